// Package archive keeps a history of grading runs in a local SQLite file.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"edpuzzle-grade-check/internal/grading"
)

var sqlb = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// Archive is an open run history file.
type Archive struct {
	db *sql.DB
}

// Result is one advisory's outcome within a run. Report is nil for failures.
type Result struct {
	Summary grading.SummaryRow
	Report  *grading.AdvisoryReport
}

// Run is everything produced by one invocation of the grader.
type Run struct {
	Date    time.Time
	Tag     string
	Results []Result
}

// HistoryEntry is one archived advisory result.
type HistoryEntry struct {
	RunID       string
	RunDate     string
	Status      string
	Students    int
	Assignments int
	MeanGrade   float64
	StdDevGrade float64
	MedianGrade float64
	Error       string
	CreatedAt   string
}

// Open opens (creating if needed) the archive at path and ensures its schema.
func Open(ctx context.Context, path string) (*Archive, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := ensureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Archive{db: db}, nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}

// StoreRun records a run and every advisory result in one transaction and
// returns the run id.
func (a *Archive) StoreRun(ctx context.Context, run Run) (string, error) {
	runID := uuid.New()

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	err = exec(ctx, tx, sqlb.Insert("grade_runs").
		Columns("id", "run_date", "run_tag", "created_at").
		Values(runID.String(), run.Date.Format(grading.DateLayout), nullString(run.Tag), time.Now().UTC().Format(time.RFC3339)))
	if err != nil {
		return "", err
	}

	for _, result := range run.Results {
		resultID := uuid.New()
		var median float64
		if result.Report != nil {
			median = result.Report.MedianGrade
		}
		err = exec(ctx, tx, sqlb.Insert("advisory_results").
			Columns("id", "run_id", "advisory", "status", "students", "assignments",
				"mean_grade", "std_dev_grade", "median_grade", "report_path", "error").
			Values(resultID.String(), runID.String(), result.Summary.Advisory, result.Summary.Status,
				result.Summary.Students, result.Summary.Assignments, result.Summary.MeanGrade,
				result.Summary.StdDevGrade, median, nullString(result.Summary.Report), nullString(result.Summary.Error)))
		if err != nil {
			return "", err
		}
		if result.Report == nil {
			continue
		}

		for _, student := range result.Report.Students {
			recorded := 0
			for _, present := range student.Present {
				if present {
					recorded++
				}
			}
			err = exec(ctx, tx, sqlb.Insert("student_grades").
				Columns("id", "result_id", "student_name", "average_completion", "sa_grade", "assignments_recorded").
				Values(uuid.New().String(), resultID.String(), student.Name, student.AverageCompletion, student.SAGrade, recorded))
			if err != nil {
				return "", err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return "", err
	}
	return runID.String(), nil
}

// RecentResults returns up to limit archived results for advisory, newest first.
func (a *Archive) RecentResults(ctx context.Context, advisory string, limit int) ([]HistoryEntry, error) {
	query := sqlb.Select("r.id", "r.run_date", "ar.status", "ar.students", "ar.assignments",
		"ar.mean_grade", "ar.std_dev_grade", "ar.median_grade", "COALESCE(ar.error, '')", "r.created_at").
		From("advisory_results ar").
		Join("grade_runs r ON r.id = ar.run_id").
		Where(sq.Eq{"ar.advisory": advisory}).
		OrderBy("r.run_date DESC", "r.created_at DESC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := a.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var entry HistoryEntry
		if err := rows.Scan(&entry.RunID, &entry.RunDate, &entry.Status, &entry.Students, &entry.Assignments,
			&entry.MeanGrade, &entry.StdDevGrade, &entry.MedianGrade, &entry.Error, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// StudentGrades returns the archived grades of one run for advisory, keyed by student.
func (a *Archive) StudentGrades(ctx context.Context, runID, advisory string) (map[string]float64, error) {
	stmt, args, err := sqlb.Select("sg.student_name", "sg.sa_grade").
		From("student_grades sg").
		Join("advisory_results ar ON ar.id = sg.result_id").
		Where(sq.Eq{"ar.run_id": runID, "ar.advisory": advisory}).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := a.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	grades := map[string]float64{}
	for rows.Next() {
		var name string
		var grade float64
		if err := rows.Scan(&name, &grade); err != nil {
			return nil, err
		}
		grades[name] = grade
	}
	return grades, rows.Err()
}

func exec(ctx context.Context, tx *sql.Tx, builder sq.InsertBuilder) error {
	stmt, args, err := builder.ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("archive insert: %w", err)
	}
	return nil
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS grade_runs (
			id TEXT PRIMARY KEY,
			run_date TEXT NOT NULL,
			run_tag TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS advisory_results (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL REFERENCES grade_runs(id) ON DELETE CASCADE,
			advisory TEXT NOT NULL,
			status TEXT NOT NULL,
			students INTEGER NOT NULL,
			assignments INTEGER NOT NULL,
			mean_grade REAL NOT NULL,
			std_dev_grade REAL NOT NULL,
			median_grade REAL NOT NULL,
			report_path TEXT,
			error TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS student_grades (
			id TEXT PRIMARY KEY,
			result_id TEXT NOT NULL REFERENCES advisory_results(id) ON DELETE CASCADE,
			student_name TEXT NOT NULL,
			average_completion REAL NOT NULL,
			sa_grade REAL NOT NULL,
			assignments_recorded INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS advisory_results_run_idx ON advisory_results (run_id)`,
		`CREATE INDEX IF NOT EXISTS advisory_results_advisory_idx ON advisory_results (advisory)`,
		`CREATE INDEX IF NOT EXISTS student_grades_result_idx ON student_grades (result_id)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
