package grading

import (
	"encoding/csv"
	"errors"
	"os"
	"strings"
	"testing"
)

func TestMergePositional(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "BOS-template.csv",
		"Student ID,Student Name,Grade,Comment\n"+
			"1002,\"Jones, Bob\",,\n"+
			"1001,\"Smith, Alice\",,late\n")

	tpl, err := ReadTemplate(path)
	if err != nil {
		t.Fatalf("read template: %v", err)
	}
	merged, err := MergeTemplate(tpl, sampleReport(t), MergePositional)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged.Rows[0][2] != "50" || merged.Rows[1][2] != "100" {
		t.Fatalf("unexpected grades: %v", merged.Rows)
	}
	if merged.Rows[1][3] != "late" {
		t.Fatalf("expected other columns untouched, got %v", merged.Rows[1])
	}
	if tpl.Rows[0][2] != "" {
		t.Fatalf("expected source template untouched")
	}

	out := ExportPath(dir, "BOS", testDate)
	if err := WriteExport(out, merged); err != nil {
		t.Fatalf("write export: %v", err)
	}
	file, err := os.Open(out)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer file.Close()
	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if len(records) != 3 || records[2][1] != "Smith, Alice" || records[2][2] != "100" {
		t.Fatalf("unexpected export: %v", records)
	}
}

func TestMergePositionalRowMismatch(t *testing.T) {
	tpl, err := parseTemplate(strings.NewReader("Student Name,Grade\nBob Jones,\n"))
	if err != nil {
		t.Fatalf("parse template: %v", err)
	}
	merged, err := MergeTemplate(tpl, sampleReport(t), MergePositional)
	var mismatch *RosterMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected RosterMismatchError, got %v", err)
	}
	if merged != nil {
		t.Fatalf("expected no merged template on mismatch")
	}
	if mismatch.TemplateRows != 1 || mismatch.GradeRows != 2 {
		t.Fatalf("unexpected counts: %+v", mismatch)
	}
	if tpl.Rows[0][1] != "" {
		t.Fatalf("expected grade column untouched, got %q", tpl.Rows[0][1])
	}
}

func TestMergeKeyed(t *testing.T) {
	tpl, err := parseTemplate(strings.NewReader(
		"First name,Last name,grade\n" +
			"alice,SMITH,\n" +
			"Bob,Jones,\n"))
	if err != nil {
		t.Fatalf("parse template: %v", err)
	}
	merged, err := MergeTemplate(tpl, sampleReport(t), MergeKeyed)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged.Rows[0][2] != "100" || merged.Rows[1][2] != "50" {
		t.Fatalf("expected grades matched by name, got %v", merged.Rows)
	}
}

func TestMergeKeyedReportsUnmatchedNames(t *testing.T) {
	tpl, err := parseTemplate(strings.NewReader(
		"Student Name,Grade\n" +
			"\"Smith, Alice\",\n" +
			"Zed Brown,\n"))
	if err != nil {
		t.Fatalf("parse template: %v", err)
	}
	_, err = MergeTemplate(tpl, sampleReport(t), MergeKeyed)
	var mismatch *RosterMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected RosterMismatchError, got %v", err)
	}
	if len(mismatch.MissingFromGrades) != 1 || mismatch.MissingFromGrades[0] != "Zed Brown" {
		t.Fatalf("unexpected template-only names: %v", mismatch.MissingFromGrades)
	}
	if len(mismatch.MissingFromTemplate) != 1 || mismatch.MissingFromTemplate[0] != "Bob Jones" {
		t.Fatalf("unexpected grade-only names: %v", mismatch.MissingFromTemplate)
	}
}

func TestMergeKeyedNameCollision(t *testing.T) {
	report, err := Aggregate("BOS", testDate, []AssignmentTable{
		table(t, "A", map[string]float64{"Alice Smith": 10, "alice smith": 100}),
	})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	tpl, err := parseTemplate(strings.NewReader("Student Name,Grade\nAlice Smith,\n"))
	if err != nil {
		t.Fatalf("parse template: %v", err)
	}

	merged, err := MergeTemplate(tpl, report, MergeKeyed)
	var mismatch *RosterMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected RosterMismatchError, got %v (merged %v)", err, merged)
	}
	if len(mismatch.MissingFromTemplate) != 2 {
		t.Fatalf("expected both colliding students reported, got %v", mismatch.MissingFromTemplate)
	}
	if len(mismatch.MissingFromGrades) != 1 || mismatch.MissingFromGrades[0] != "Alice Smith" {
		t.Fatalf("expected template row left unmatched, got %v", mismatch.MissingFromGrades)
	}
	if tpl.Rows[0][1] != "" {
		t.Fatalf("expected source template untouched, got %q", tpl.Rows[0][1])
	}
}

func TestMergeKeyedWithoutNameColumn(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "BOS-template.csv", "Student ID,Grade\n1001,\n1002,\n")
	tpl, err := ReadTemplate(path)
	if err != nil {
		t.Fatalf("read template: %v", err)
	}
	_, err = MergeTemplate(tpl, sampleReport(t), MergeKeyed)
	var malformed *MalformedInputError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedInputError, got %v", err)
	}
	if malformed.Path != path || !strings.HasPrefix(err.Error(), path) {
		t.Fatalf("expected error naming %s, got %q", path, err.Error())
	}
}

func TestReadTemplateWithoutGradeColumn(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "BOS-template.csv", "Student Name,Score\nAlice Smith,\n")
	_, err := ReadTemplate(path)
	var malformed *MalformedInputError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedInputError, got %v", err)
	}
	if malformed.Path != path {
		t.Fatalf("expected path %s, got %s", path, malformed.Path)
	}
}
