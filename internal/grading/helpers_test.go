package grading

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const exportHeader = "First name,Last name,Role,Username,Video watched (%),Time spent,Last watched,Time turned in,On time?,Correct answers (3),Grade (out of 100)\n"

var testDate = time.Date(2024, 1, 27, 0, 0, 0, 0, time.UTC)

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// exportRow builds an EdPuzzle export line for a student.
func exportRow(first, last, watched string) string {
	return strings.Join([]string{first, last, "student", strings.ToLower(first), watched, "10:02", "2024-01-26", "2024-01-26", "Yes", "2", "66"}, ",") + "\n"
}

// table builds a normalized table from name/percent pairs without touching disk.
func table(t *testing.T, id string, rows map[string]float64) AssignmentTable {
	t.Helper()
	var b strings.Builder
	b.WriteString(exportHeader)
	for name, pct := range rows {
		first, last, _ := strings.Cut(name, " ")
		b.WriteString(exportRow(first, last, formatFloat(pct)))
	}
	tbl, err := ParseAssignment(strings.NewReader(b.String()), id)
	if err != nil {
		t.Fatalf("parse %s: %v", id, err)
	}
	return tbl
}

func findStudent(t *testing.T, report *AdvisoryReport, name string) StudentAggregate {
	t.Helper()
	for _, student := range report.Students {
		if student.Name == name {
			return student
		}
	}
	t.Fatalf("student %q not in report", name)
	return StudentAggregate{}
}

func floatEqual(a float64, b float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < 0.01
}
