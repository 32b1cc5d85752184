package grading

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const ColumnTemplateGrade = "Grade"

// MergeMode selects how template rows are matched to graded students.
type MergeMode int

const (
	// MergePositional assigns grades by row order. Both sides must be sorted the
	// same way (last name, then first name).
	MergePositional MergeMode = iota
	// MergeKeyed matches rows on the normalized student name.
	MergeKeyed
)

func (m MergeMode) String() string {
	if m == MergeKeyed {
		return "keyed"
	}
	return "positional"
}

// Template is an SIS grade-import roster.
type Template struct {
	Path     string
	Header   []string
	Rows     [][]string
	gradeIdx int
}

// TemplatePath is the roster template location for an advisory.
func TemplatePath(root, advisory string) string {
	return filepath.Join(root, advisory+"-template.csv")
}

// ExportPath is where the merged template for (advisory, date) is written.
func ExportPath(root, advisory string, date time.Time) string {
	stamp := date.Format(DateLayout)
	return filepath.Join(root, "export-"+stamp, fmt.Sprintf("%s-export-%s.csv", advisory, stamp))
}

// ReadTemplate loads a roster template. It must carry a Grade column.
func ReadTemplate(path string) (*Template, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	tpl, err := parseTemplate(file)
	if err != nil {
		var malformed *MalformedInputError
		if errors.As(err, &malformed) {
			malformed.Path = path
			return nil, malformed
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	tpl.Path = path
	return tpl, nil
}

func parseTemplate(r io.Reader) (*Template, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("unable to read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, &MalformedInputError{Missing: []string{ColumnTemplateGrade}}
	}

	header := records[0]
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	gradeIdx, ok := findColumn(normalizeHeaders(header), []string{ColumnTemplateGrade})
	if !ok {
		return nil, &MalformedInputError{Missing: []string{ColumnTemplateGrade}}
	}

	var rows [][]string
	for _, record := range records[1:] {
		if isBlankRecord(record) {
			continue
		}
		for len(record) < len(header) {
			record = append(record, "")
		}
		rows = append(rows, record)
	}
	return &Template{Header: header, Rows: rows, gradeIdx: gradeIdx}, nil
}

// MergeTemplate returns a copy of tpl with its Grade column set from report.
// On a mismatch it returns a *RosterMismatchError and no template.
func MergeTemplate(tpl *Template, report *AdvisoryReport, mode MergeMode) (*Template, error) {
	merged := &Template{
		Path:     tpl.Path,
		Header:   append([]string(nil), tpl.Header...),
		Rows:     make([][]string, len(tpl.Rows)),
		gradeIdx: tpl.gradeIdx,
	}
	for i, row := range tpl.Rows {
		merged.Rows[i] = append([]string(nil), row...)
	}

	switch mode {
	case MergeKeyed:
		if err := mergeKeyed(merged, report); err != nil {
			return nil, err
		}
	default:
		if len(merged.Rows) != len(report.Students) {
			return nil, &RosterMismatchError{
				Advisory:     report.Advisory,
				TemplateRows: len(merged.Rows),
				GradeRows:    len(report.Students),
			}
		}
		for i, student := range report.Students {
			merged.Rows[i][merged.gradeIdx] = formatFloat(student.SAGrade)
		}
	}
	return merged, nil
}

func mergeKeyed(tpl *Template, report *AdvisoryReport) error {
	nameOf, err := templateNamer(tpl.Header)
	if err != nil {
		var malformed *MalformedInputError
		if errors.As(err, &malformed) {
			malformed.Path = tpl.Path
		}
		return err
	}

	// Students whose names normalize to the same key cannot be told apart, so
	// none of them is matched.
	students := make(map[string][]StudentAggregate, len(report.Students))
	for _, student := range report.Students {
		key := NormalizeName(student.Name)
		students[key] = append(students[key], student)
	}

	used := map[string]bool{}
	var missingFromGrades []string
	for i, row := range tpl.Rows {
		name := nameOf(row)
		key := NormalizeName(name)
		if len(students[key]) != 1 || used[key] {
			missingFromGrades = append(missingFromGrades, name)
			continue
		}
		used[key] = true
		tpl.Rows[i][tpl.gradeIdx] = formatFloat(students[key][0].SAGrade)
	}

	var missingFromTemplate []string
	for _, student := range report.Students {
		if !used[NormalizeName(student.Name)] {
			missingFromTemplate = append(missingFromTemplate, student.Name)
		}
	}

	if len(missingFromGrades) > 0 || len(missingFromTemplate) > 0 {
		sort.Strings(missingFromGrades)
		sort.Strings(missingFromTemplate)
		return &RosterMismatchError{
			Advisory:            report.Advisory,
			TemplateRows:        len(tpl.Rows),
			GradeRows:           len(report.Students),
			MissingFromTemplate: missingFromTemplate,
			MissingFromGrades:   missingFromGrades,
		}
	}
	return nil
}

// templateNamer finds the column(s) holding the student name in a template.
func templateNamer(header []string) (func([]string) string, error) {
	colMap := normalizeHeaders(header)
	if idx, ok := findColumn(colMap, []string{"Student Name", "Scholar Name", "Full Name", "Name", "Student"}); ok {
		return func(row []string) string {
			value := getValue(row, idx)
			if last, first, found := strings.Cut(value, ","); found {
				return strings.TrimSpace(first) + " " + strings.TrimSpace(last)
			}
			return value
		}, nil
	}
	firstIdx, okFirst := findColumn(colMap, []string{ColumnFirstName})
	lastIdx, okLast := findColumn(colMap, []string{ColumnLastName})
	if okFirst && okLast {
		return func(row []string) string {
			return getValue(row, firstIdx) + " " + getValue(row, lastIdx)
		}, nil
	}
	return nil, &MalformedInputError{Missing: []string{"Student Name"}}
}

// NormalizeName folds case and whitespace so names from different exports compare equal.
func NormalizeName(name string) string {
	return strings.ToLower(collapseSpaces(name))
}

// WriteExport writes a merged template, creating the export folder if needed.
func WriteExport(path string, tpl *Template) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export folder: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(tpl.Header); err != nil {
		return err
	}
	if err := writer.WriteAll(tpl.Rows); err != nil {
		return err
	}
	return writer.Error()
}

func isBlankRecord(record []string) bool {
	for _, value := range record {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}
