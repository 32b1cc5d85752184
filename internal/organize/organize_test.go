package organize

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("First name,Last name,Video watched (%)\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestRunSortsDumpedFiles(t *testing.T) {
	dir := t.TempDir()
	date := time.Date(2024, 1, 27, 0, 0, 0, 0, time.UTC)
	touch(t, filepath.Join(dir, "BOS Cell Division.csv"))
	touch(t, filepath.Join(dir, "SHN-Photosynthesis.csv"))
	touch(t, filepath.Join(dir, "Unknown Class.csv"))
	touch(t, filepath.Join(dir, "old", "BOS last week.csv"))

	opts := Options{FilesDir: dir, Advisories: []string{"BOS", "SHN", "Casa-Amigos"}, Date: date}
	result, err := Run(opts)
	if err != nil {
		t.Fatalf("organize: %v", err)
	}

	if len(result.Renamed) != 3 {
		t.Fatalf("expected 3 renamed files, got %v", result.Renamed)
	}
	if len(result.Created) != 3 {
		t.Fatalf("expected 3 created folders, got %v", result.Created)
	}

	bosDir := filepath.Join(dir, "inputBOS-2024-01-27")
	if !exists(filepath.Join(bosDir, "BOS-Cell-Division.csv")) {
		t.Fatalf("expected BOS export moved into %s", bosDir)
	}
	if !exists(filepath.Join(dir, "inputSHN-2024-01-27", "SHN-Photosynthesis.csv")) {
		t.Fatalf("expected SHN export moved")
	}
	if !exists(filepath.Join(dir, "Unknown-Class.csv")) {
		t.Fatalf("expected unmatched file renamed in place")
	}
	if !exists(filepath.Join(dir, "old", "BOS-last-week.csv")) {
		t.Fatalf("expected nested file renamed but not moved")
	}
	if !exists(filepath.Join(dir, "inputCasa-Amigos-2024-01-27")) {
		t.Fatalf("expected empty folder for advisory without files")
	}

	again, err := Run(opts)
	if err != nil {
		t.Fatalf("second organize: %v", err)
	}
	if len(again.Created) != 0 || len(again.Renamed) != 0 {
		t.Fatalf("expected rerun to change nothing, got %+v", again)
	}
	if !exists(filepath.Join(bosDir, "BOS-Cell-Division.csv")) {
		t.Fatalf("expected BOS export to stay in place on rerun")
	}
}

func TestRunMissingFolder(t *testing.T) {
	_, err := Run(Options{FilesDir: filepath.Join(t.TempDir(), "missing"), Advisories: []string{"BOS"}, Date: time.Now()})
	if err == nil {
		t.Fatalf("expected error for missing files folder")
	}
}

func TestMatchAdvisoryFirstWins(t *testing.T) {
	advisory, ok := matchAdvisory("BOS-SHN-joint.csv", []string{"SHN", "BOS"})
	if !ok || advisory != "SHN" {
		t.Fatalf("expected first configured advisory SHN, got %q", advisory)
	}
	if _, ok := matchAdvisory("random.csv", []string{"SHN"}); ok {
		t.Fatalf("expected no match")
	}
}

func TestRunNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	date := time.Date(2024, 1, 27, 0, 0, 0, 0, time.UTC)
	bosDir := filepath.Join(dir, "inputBOS-2024-01-27")
	touch(t, filepath.Join(dir, "BOS Video 1.csv"))
	touch(t, filepath.Join(dir, "BOS-Video-1.csv"))
	touch(t, filepath.Join(dir, "BOS-Video-2.csv"))
	earlier := filepath.Join(bosDir, "BOS-Video-2.csv")
	if err := os.MkdirAll(bosDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(earlier, []byte("earlier export\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	result, err := Run(Options{FilesDir: dir, Advisories: []string{"BOS"}, Date: date})
	if err != nil {
		t.Fatalf("organize: %v", err)
	}
	if len(result.Renamed) != 0 {
		t.Fatalf("expected no rename onto an existing file, got %v", result.Renamed)
	}
	if len(result.Skipped) != 2 {
		t.Fatalf("expected 2 skipped files, got %v", result.Skipped)
	}

	if !exists(filepath.Join(bosDir, "BOS-Video-1.csv")) || !exists(filepath.Join(bosDir, "BOS Video 1.csv")) {
		t.Fatalf("expected both video 1 exports kept")
	}
	if !exists(filepath.Join(dir, "BOS-Video-2.csv")) {
		t.Fatalf("expected clashing export left in place")
	}
	data, err := os.ReadFile(earlier)
	if err != nil {
		t.Fatalf("read earlier export: %v", err)
	}
	if string(data) != "earlier export\n" {
		t.Fatalf("expected earlier export untouched, got %q", data)
	}
}
