package grading

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func sampleReport(t *testing.T) *AdvisoryReport {
	t.Helper()
	tables := []AssignmentTable{
		table(t, "A", map[string]float64{"Alice Smith": 95, "Bob Jones": 40}),
		table(t, "B", map[string]float64{"Alice Smith": 85}),
	}
	report, err := Aggregate("BOS", testDate, tables)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	return report
}

func TestWriteReportLayout(t *testing.T) {
	root := t.TempDir()
	path, err := WriteReport(root, sampleReport(t))
	if err != nil {
		t.Fatalf("write report: %v", err)
	}

	want := filepath.Join(root, "grades-2024-01-27", "BOS-grades-2024-01-27.csv")
	if path != want {
		t.Fatalf("expected %s, got %s", want, path)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()
	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	header := strings.Join(records[0], "|")
	if header != "Scholar Name|Video-1 % Watched|Video-2 % Watched|Average Completion %|SA Grade" {
		t.Fatalf("unexpected header %q", header)
	}
	if len(records) != 3 {
		t.Fatalf("expected 2 student rows, got %d", len(records)-1)
	}
	bob := strings.Join(records[1], "|")
	if bob != "Bob Jones|40||40|50" {
		t.Fatalf("unexpected bob row %q", bob)
	}
	alice := strings.Join(records[2], "|")
	if alice != "Alice Smith|95|85|90|100" {
		t.Fatalf("unexpected alice row %q", alice)
	}
}

func TestWriteReportIdempotent(t *testing.T) {
	root := t.TempDir()
	report := sampleReport(t)

	path, err := WriteReport(root, report)
	if err != nil {
		t.Fatalf("first write: %v", err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if _, err := WriteReport(root, report); err != nil {
		t.Fatalf("second write: %v", err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("expected identical output on rerun")
	}
}

func TestWriteSummary(t *testing.T) {
	root := t.TempDir()
	ok := NewSummaryRow("BOS", testDate, sampleReport(t))
	failed := NewSummaryRow("SHN", testDate, nil)
	failed.Status = StatusFailed
	failed.Error = "no assignment files for advisory SHN"

	path, err := WriteSummary(root, testDate, []SummaryRow{ok, failed})
	if err != nil {
		t.Fatalf("write summary: %v", err)
	}
	if path != SummaryPath(root, testDate) {
		t.Fatalf("unexpected summary path %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(records))
	}
	if records[0][0] != "Advisory" || records[1][0] != "BOS" || records[2][2] != StatusFailed {
		t.Fatalf("unexpected summary: %v", records)
	}
	if records[1][3] != "2" {
		t.Fatalf("expected 2 students for BOS, got %s", records[1][3])
	}
}
