package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"edpuzzle-grade-check/internal/archive"
	"edpuzzle-grade-check/internal/config"
	"edpuzzle-grade-check/internal/grading"
	"edpuzzle-grade-check/internal/organize"
)

type runOptions struct {
	Merge     bool
	MergeMode grading.MergeMode
	Quiet     bool
}

// advisoryOutcome is the result of grading one advisory. Err is set when the
// advisory failed; Report may still be set if only the merge failed.
type advisoryOutcome struct {
	Advisory   string
	Report     *grading.AdvisoryReport
	ReportPath string
	ExportPath string
	Err        error
}

func (o advisoryOutcome) summaryRow(date time.Time) grading.SummaryRow {
	row := grading.NewSummaryRow(o.Advisory, date, o.Report)
	row.Report = o.ReportPath
	row.Export = o.ExportPath
	if o.Err != nil {
		row.Status = grading.StatusFailed
		if o.ReportPath != "" {
			row.Status = grading.StatusMergeFailed
		}
		row.Error = o.Err.Error()
	}
	return row
}

type runReport struct {
	Date       string               `json:"date"`
	Summary    string               `json:"summary_csv"`
	ArchiveRun string               `json:"archive_run_id,omitempty"`
	Failed     int                  `json:"failed"`
	Advisories []grading.SummaryRow `json:"advisories"`
}

// gradeAll grades every configured advisory. A failing advisory is recorded and
// the remaining ones still run.
func gradeAll(cfg config.Config, opts runOptions) []advisoryOutcome {
	outcomes := make([]advisoryOutcome, 0, len(cfg.Advisories))
	for _, advisory := range cfg.Advisories {
		outcome := gradeAdvisory(cfg, advisory, opts)
		entry := log.WithField("advisory", advisory)
		if outcome.Err != nil {
			entry.WithError(outcome.Err).Error("advisory failed")
		} else {
			entry.WithField("report", outcome.ReportPath).Info("advisory graded")
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func gradeAdvisory(cfg config.Config, advisory string, opts runOptions) advisoryOutcome {
	outcome := advisoryOutcome{Advisory: advisory}

	tables, err := loadAdvisoryTables(cfg.FilesDir, advisory, cfg.Date)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	report, err := grading.Aggregate(advisory, cfg.Date, tables)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.Report = report
	if !opts.Quiet {
		printReport(report)
	}

	path, err := grading.WriteReport(cfg.GradesDir, report)
	if err != nil {
		outcome.Err = fmt.Errorf("write report: %w", err)
		return outcome
	}
	outcome.ReportPath = path

	if opts.Merge {
		exportPath, err := mergeAdvisory(cfg, report, opts.MergeMode)
		if err != nil {
			outcome.Err = fmt.Errorf("merge template: %w", err)
			return outcome
		}
		outcome.ExportPath = exportPath
	}
	return outcome
}

// loadAdvisoryTables reads every CSV in the advisory's dated input folder, in
// file name order.
func loadAdvisoryTables(filesDir, advisory string, date time.Time) ([]grading.AssignmentTable, error) {
	dir := organize.InputDir(filesDir, advisory, date)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &grading.EmptyAdvisoryError{Advisory: advisory, Dir: dir}
		}
		return nil, err
	}

	var tables []grading.AssignmentTable
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		table, err := grading.LoadAssignment(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}
	if len(tables) == 0 {
		return nil, &grading.EmptyAdvisoryError{Advisory: advisory, Dir: dir}
	}
	return tables, nil
}

func mergeAdvisory(cfg config.Config, report *grading.AdvisoryReport, mode grading.MergeMode) (string, error) {
	tpl, err := grading.ReadTemplate(grading.TemplatePath(cfg.TemplatesDir, report.Advisory))
	if err != nil {
		return "", err
	}
	merged, err := grading.MergeTemplate(tpl, report, mode)
	if err != nil {
		return "", err
	}
	path := grading.ExportPath(cfg.ExportsDir, report.Advisory, cfg.Date)
	if err := grading.WriteExport(path, merged); err != nil {
		return "", err
	}
	return path, nil
}

// finishRun writes the run summary, the optional JSON report and the optional
// archive entry. It returns the number of failed advisories.
func finishRun(ctx context.Context, cfg config.Config, outcomes []advisoryOutcome, jsonPath, tag string) (int, error) {
	rows := make([]grading.SummaryRow, 0, len(outcomes))
	failed := 0
	for _, outcome := range outcomes {
		rows = append(rows, outcome.summaryRow(cfg.Date))
		if outcome.Err != nil {
			failed++
		}
	}

	summaryPath, err := grading.WriteSummary(cfg.GradesDir, cfg.Date, rows)
	if err != nil {
		return failed, err
	}
	log.WithField("summary", summaryPath).Debug("run summary written")

	result := runReport{
		Date:       cfg.Date.Format(grading.DateLayout),
		Summary:    summaryPath,
		Failed:     failed,
		Advisories: rows,
	}

	if cfg.ArchivePath != "" {
		runID, err := archiveRun(ctx, cfg, outcomes, rows, tag)
		if err != nil {
			return failed, fmt.Errorf("archive run: %w", err)
		}
		result.ArchiveRun = runID
		fmt.Printf("\nStored grading run in %s (run_id=%s)\n", cfg.ArchivePath, runID)
	}

	if jsonPath != "" {
		if err := writeJSON(result, jsonPath); err != nil {
			return failed, err
		}
		fmt.Printf("JSON report saved to %s\n", jsonPath)
	}
	return failed, nil
}

func archiveRun(ctx context.Context, cfg config.Config, outcomes []advisoryOutcome, rows []grading.SummaryRow, tag string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	store, err := archive.Open(ctx, cfg.ArchivePath)
	if err != nil {
		return "", err
	}
	defer store.Close()

	run := archive.Run{Date: cfg.Date, Tag: tag}
	for i, outcome := range outcomes {
		run.Results = append(run.Results, archive.Result{Summary: rows[i], Report: outcome.Report})
	}
	return store.StoreRun(ctx, run)
}

func writeJSON(report runReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
