package grading

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// DateLayout formats run dates in folder and file names.
const DateLayout = "2006-01-02"

// GradesDir is the dated folder holding every advisory report of one run.
func GradesDir(root string, date time.Time) string {
	return filepath.Join(root, "grades-"+date.Format(DateLayout))
}

// ReportPath is where the report for (advisory, date) is written.
func ReportPath(root, advisory string, date time.Time) string {
	return filepath.Join(GradesDir(root, date), fmt.Sprintf("%s-grades-%s.csv", advisory, date.Format(DateLayout)))
}

// WriteReport persists the report under root, replacing any earlier report for
// the same advisory and date.
func WriteReport(root string, report *AdvisoryReport) (string, error) {
	path := ReportPath(root, report.Advisory, report.Date)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create grades folder: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	header := append([]string{ColumnScholarName}, report.Columns...)
	header = append(header, ColumnAverage, ColumnSAGrade)
	if err := writer.Write(header); err != nil {
		return "", err
	}

	for _, student := range report.Students {
		record := make([]string, 0, len(header))
		record = append(record, student.Name)
		for i, present := range student.Present {
			if present {
				record = append(record, formatFloat(student.Percents[i]))
			} else {
				record = append(record, "")
			}
		}
		record = append(record, formatFloat(student.AverageCompletion), formatFloat(student.SAGrade))
		if err := writer.Write(record); err != nil {
			return "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}
	return path, nil
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
