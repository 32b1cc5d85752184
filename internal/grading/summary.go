package grading

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
)

const (
	StatusGraded      = "graded"
	StatusFailed      = "failed"
	StatusMergeFailed = "merge_failed"
)

// SummaryRow records the outcome of one advisory in a grading run.
type SummaryRow struct {
	Advisory    string  `csv:"Advisory" json:"advisory"`
	Date        string  `csv:"Date" json:"date"`
	Status      string  `csv:"Status" json:"status"`
	Students    int     `csv:"Students" json:"students"`
	Assignments int     `csv:"Assignments" json:"assignments"`
	MeanGrade   float64 `csv:"Mean SA Grade" json:"mean_sa_grade"`
	StdDevGrade float64 `csv:"Std Dev SA Grade" json:"std_dev_sa_grade"`
	Report      string  `csv:"Report" json:"report,omitempty"`
	Export      string  `csv:"Export" json:"export,omitempty"`
	Error       string  `csv:"Error" json:"error,omitempty"`
}

// NewSummaryRow fills the statistics columns from a report. report may be nil
// when the advisory failed before aggregation.
func NewSummaryRow(advisory string, date time.Time, report *AdvisoryReport) SummaryRow {
	row := SummaryRow{
		Advisory: advisory,
		Date:     date.Format(DateLayout),
		Status:   StatusGraded,
	}
	if report != nil {
		row.Students = len(report.Students)
		row.Assignments = len(report.Columns)
		row.MeanGrade = report.MeanGrade
		row.StdDevGrade = report.StdDevGrade
	}
	return row
}

// SummaryPath is where the run summary for date is written.
func SummaryPath(root string, date time.Time) string {
	return filepath.Join(GradesDir(root, date), fmt.Sprintf("summary-%s.csv", date.Format(DateLayout)))
}

// WriteSummary writes one row per advisory attempted in the run.
func WriteSummary(root string, date time.Time, rows []SummaryRow) (string, error) {
	path := SummaryPath(root, date)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create grades folder: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&rows, file); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	return path, nil
}
