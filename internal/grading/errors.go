package grading

import (
	"fmt"
	"strings"
)

// MalformedInputError reports a CSV that is missing required columns or holds
// a value that cannot be parsed.
type MalformedInputError struct {
	Path    string
	Missing []string
	Detail  string
}

func (e *MalformedInputError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("%s: missing required columns: %s", e.Path, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Detail)
}

// EmptyAdvisoryError reports an advisory with no assignment files for the run date.
type EmptyAdvisoryError struct {
	Advisory string
	Dir      string
}

func (e *EmptyAdvisoryError) Error() string {
	if e.Dir == "" {
		return fmt.Sprintf("no assignment files for advisory %s", e.Advisory)
	}
	return fmt.Sprintf("no assignment files for advisory %s in %s", e.Advisory, e.Dir)
}

// OutOfRangeError reports a completion percentage outside [0,100].
type OutOfRangeError struct {
	Value float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("completion %v is outside [0,100]", e.Value)
}

// RosterMismatchError reports a roster template that cannot be aligned with
// the graded students. Nothing is written when it is returned.
type RosterMismatchError struct {
	Advisory     string
	TemplateRows int
	GradeRows    int
	// Keyed merges only.
	MissingFromTemplate []string
	MissingFromGrades   []string
}

func (e *RosterMismatchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "roster mismatch for %s: template has %d rows, grades have %d", e.Advisory, e.TemplateRows, e.GradeRows)
	if len(e.MissingFromTemplate) > 0 {
		fmt.Fprintf(&b, "; not in template: %s", strings.Join(e.MissingFromTemplate, ", "))
	}
	if len(e.MissingFromGrades) > 0 {
		fmt.Fprintf(&b, "; no grade for: %s", strings.Join(e.MissingFromGrades, ", "))
	}
	return b.String()
}
