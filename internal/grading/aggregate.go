package grading

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/montanaflynn/stats"
)

const (
	ColumnScholarName = "Scholar Name"
	ColumnAverage     = "Average Completion %"
	ColumnSAGrade     = "SA Grade"
)

// StudentAggregate is one student's row in an advisory report.
type StudentAggregate struct {
	Name      string
	FirstName string
	LastName  string
	// Percents and Present are indexed like AdvisoryReport.Columns.
	Percents          []float64
	Present           []bool
	AverageCompletion float64
	SAGrade           float64
	HasData           bool
}

// AdvisoryReport is the graded snapshot for one advisory on one date.
type AdvisoryReport struct {
	Advisory     string
	Date         time.Time
	Columns      []string
	Assignments  []string
	Students     []StudentAggregate
	MeanGrade    float64
	StdDevGrade  float64
	MedianGrade  float64
	Distribution map[float64]int
	Warnings     []string
}

// ColumnLabel is the report header for the nth (1-based) assignment.
func ColumnLabel(n int) string {
	return fmt.Sprintf("Video-%d %% Watched", n)
}

// Aggregate outer-joins the assignment tables on student name and grades each
// student on the mean of the completions they actually have.
func Aggregate(advisory string, date time.Time, tables []AssignmentTable) (*AdvisoryReport, error) {
	if len(tables) == 0 {
		return nil, &EmptyAdvisoryError{Advisory: advisory}
	}

	report := &AdvisoryReport{
		Advisory:     advisory,
		Date:         date,
		Distribution: map[float64]int{},
	}
	for _, grade := range Grades() {
		report.Distribution[grade] = 0
	}

	students := map[string]*StudentAggregate{}
	var order []string
	for n, table := range tables {
		report.Columns = append(report.Columns, ColumnLabel(n+1))
		report.Assignments = append(report.Assignments, table.AssignmentID)
		for _, warning := range table.Warnings {
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s: %s", table.AssignmentID, warning))
		}

		for _, rec := range table.Records {
			student, exists := students[rec.StudentName]
			if !exists {
				student = &StudentAggregate{
					Name:      rec.StudentName,
					FirstName: rec.FirstName,
					LastName:  rec.LastName,
					Percents:  make([]float64, len(tables)),
					Present:   make([]bool, len(tables)),
				}
				students[rec.StudentName] = student
				order = append(order, rec.StudentName)
			}
			if student.Present[n] || !rec.Recorded {
				continue
			}
			student.Percents[n] = rec.PercentWatched
			student.Present[n] = true
		}
	}

	grades := make([]float64, 0, len(order))
	for _, name := range order {
		student := students[name]
		var values []float64
		for i, present := range student.Present {
			if present {
				values = append(values, student.Percents[i])
			}
		}
		if len(values) > 0 {
			// Sum in value order so permuted inputs give identical averages.
			sort.Float64s(values)
			student.AverageCompletion, _ = stats.Sum(values)
			student.AverageCompletion /= float64(len(values))
			student.HasData = true
		} else {
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s has no recorded completion; graded as 0", name))
		}

		grade, err := Bucket(student.AverageCompletion)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		student.SAGrade = grade
		report.Distribution[grade]++
		grades = append(grades, grade)
		report.Students = append(report.Students, *student)
	}

	sortStudents(report.Students)
	report.MeanGrade, report.StdDevGrade, report.MedianGrade = summarizeGrades(grades)
	return report, nil
}

func sortStudents(students []StudentAggregate) {
	sort.SliceStable(students, func(i, j int) bool {
		a, b := students[i], students[j]
		if la, lb := strings.ToLower(a.LastName), strings.ToLower(b.LastName); la != lb {
			return la < lb
		}
		if fa, fb := strings.ToLower(a.FirstName), strings.ToLower(b.FirstName); fa != fb {
			return fa < fb
		}
		return a.Name < b.Name
	})
}

func summarizeGrades(grades []float64) (float64, float64, float64) {
	if len(grades) == 0 {
		return 0, 0, 0
	}
	mean, _ := stats.Mean(grades)
	stdDev, _ := stats.StandardDeviationPopulation(grades)
	median, _ := stats.Median(grades)
	return round2(mean), round2(stdDev), median
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
