package grading

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	ColumnFirstName = "First name"
	ColumnLastName  = "Last name"
	ColumnWatched   = "Video watched (%)"
)

// CompletionRecord is one student's completion for one assignment.
type CompletionRecord struct {
	StudentName    string
	FirstName      string
	LastName       string
	AssignmentID   string
	PercentWatched float64
	// Recorded is false when the export left the percentage blank.
	Recorded bool
}

// AssignmentTable is a normalized EdPuzzle export: one record per student.
type AssignmentTable struct {
	AssignmentID string
	Path         string
	Records      []CompletionRecord
	Warnings     []string
}

// LoadAssignment reads one EdPuzzle CSV export from disk.
func LoadAssignment(path string) (AssignmentTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return AssignmentTable{}, err
	}
	defer file.Close()

	table, err := ParseAssignment(file, AssignmentID(path))
	if err != nil {
		var malformed *MalformedInputError
		if errors.As(err, &malformed) {
			malformed.Path = path
			return AssignmentTable{}, malformed
		}
		return AssignmentTable{}, fmt.Errorf("%s: %w", path, err)
	}
	table.Path = path
	return table, nil
}

// AssignmentID derives the assignment identifier from an export file name.
func AssignmentID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ParseAssignment keeps the name and completion columns of an export and drops
// every other column.
func ParseAssignment(r io.Reader, assignmentID string) (AssignmentTable, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return AssignmentTable{}, &MalformedInputError{Path: assignmentID, Missing: []string{ColumnFirstName, ColumnLastName, ColumnWatched}}
		}
		return AssignmentTable{}, fmt.Errorf("unable to read header: %w", err)
	}
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}

	colMap := normalizeHeaders(headers)
	var missing []string
	firstIdx, ok := findColumn(colMap, []string{ColumnFirstName})
	if !ok {
		missing = append(missing, ColumnFirstName)
	}
	lastIdx, ok := findColumn(colMap, []string{ColumnLastName})
	if !ok {
		missing = append(missing, ColumnLastName)
	}
	watchedIdx, ok := findColumn(colMap, []string{ColumnWatched})
	if !ok {
		missing = append(missing, ColumnWatched)
	}
	if len(missing) > 0 {
		return AssignmentTable{}, &MalformedInputError{Path: assignmentID, Missing: missing}
	}

	table := AssignmentTable{AssignmentID: assignmentID}
	seen := map[string]bool{}
	line := 1
	for {
		record, err := reader.Read()
		line++
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return AssignmentTable{}, fmt.Errorf("unable to read CSV: %w", err)
		}
		if len(record) == 0 {
			continue
		}

		first := collapseSpaces(getValue(record, firstIdx))
		last := collapseSpaces(getValue(record, lastIdx))
		if first == "" && last == "" {
			table.Warnings = append(table.Warnings, fmt.Sprintf("line %d: missing student name", line))
			continue
		}
		name := strings.TrimSpace(first + " " + last)
		if seen[name] {
			table.Warnings = append(table.Warnings, fmt.Sprintf("line %d: duplicate student %q ignored", line, name))
			continue
		}
		seen[name] = true

		rec := CompletionRecord{
			StudentName:  name,
			FirstName:    first,
			LastName:     last,
			AssignmentID: assignmentID,
		}
		raw := strings.TrimSpace(strings.TrimSuffix(getValue(record, watchedIdx), "%"))
		if raw != "" {
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return AssignmentTable{}, &MalformedInputError{
					Path:   assignmentID,
					Detail: fmt.Sprintf("line %d: invalid %s value %q", line, ColumnWatched, raw),
				}
			}
			if _, err := Bucket(value); err != nil {
				return AssignmentTable{}, fmt.Errorf("line %d: %w", line, err)
			}
			rec.PercentWatched = value
			rec.Recorded = true
		}
		table.Records = append(table.Records, rec)
	}

	return table, nil
}

func normalizeHeaders(headers []string) map[string]int {
	result := make(map[string]int, len(headers))
	for idx, header := range headers {
		normalized := normalizeHeader(header)
		if _, exists := result[normalized]; !exists {
			result[normalized] = idx
		}
	}
	return result
}

func normalizeHeader(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	value = strings.ReplaceAll(value, " ", "")
	value = strings.ReplaceAll(value, "_", "")
	value = strings.ReplaceAll(value, "-", "")
	return value
}

func findColumn(headers map[string]int, names []string) (int, bool) {
	for _, name := range names {
		if idx, ok := headers[normalizeHeader(name)]; ok {
			return idx, true
		}
	}
	return -1, false
}

func getValue(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func collapseSpaces(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
