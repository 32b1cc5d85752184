package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"

	"edpuzzle-grade-check/internal/archive"
	"edpuzzle-grade-check/internal/grading"
)

var (
	heading = color.New(color.FgCyan, color.Bold)
	failure = color.New(color.FgRed)
	warning = color.New(color.FgYellow)
)

func printReport(report *grading.AdvisoryReport) {
	fmt.Println()
	heading.Printf("EdPuzzle grades: %s (%s)\n", report.Advisory, report.Date.Format(grading.DateLayout))
	fmt.Println(strings.Repeat("=", 38))
	for i, assignment := range report.Assignments {
		fmt.Printf("%s: %s\n", report.Columns[i], assignment)
	}

	fmt.Println("\nStudents")
	fmt.Println(strings.Repeat("-", 38))
	if len(report.Students) == 0 {
		fmt.Println("No students found.")
	}
	for _, student := range report.Students {
		cells := make([]string, len(student.Present))
		for i, present := range student.Present {
			if present {
				cells[i] = fmt.Sprintf("%5.1f", student.Percents[i])
			} else {
				cells[i] = "    -"
			}
		}
		fmt.Printf("%-28s | %s | avg %5.1f | SA %3.0f\n",
			student.Name,
			strings.Join(cells, " "),
			student.AverageCompletion,
			student.SAGrade,
		)
	}

	fmt.Printf("\nClass average SA grade: %.2f (std dev %.2f, median %.0f)\n", report.MeanGrade, report.StdDevGrade, report.MedianGrade)
	printDistribution(report)

	for _, msg := range report.Warnings {
		warning.Printf("warning: %s\n", msg)
	}
}

func printDistribution(report *grading.AdvisoryReport) {
	fmt.Println("\nSA grade distribution")
	fmt.Println(strings.Repeat("-", 38))
	for _, grade := range grading.Grades() {
		count := report.Distribution[grade]
		fmt.Printf("%3.0f | %-20s %d\n", grade, strings.Repeat("#", count), count)
	}
}

func printRunSummary(outcomes []advisoryOutcome) {
	fmt.Println()
	heading.Println("Run summary")
	fmt.Println(strings.Repeat("=", 38))
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			failure.Printf("%s | FAILED | %v\n", outcome.Advisory, outcome.Err)
			continue
		}
		line := fmt.Sprintf("%s | %d students | mean SA %.2f | %s",
			outcome.Advisory,
			len(outcome.Report.Students),
			outcome.Report.MeanGrade,
			outcome.ReportPath,
		)
		if outcome.ExportPath != "" {
			line += " | export " + outcome.ExportPath
		}
		fmt.Println(line)
	}
}

func printCompletionCheck(advisory string, threshold float64, names []string) {
	heading.Printf("Kids who watched at least %.0f%% of every video in %s:\n", threshold, advisory)
	if len(names) == 0 {
		fmt.Println("  nobody")
	}
	for _, name := range names {
		fmt.Printf("  %s\n", name)
	}
	fmt.Println(strings.Repeat("#", 30))
}

func printHistory(advisory string, entries []archive.HistoryEntry) {
	heading.Printf("Grading history for %s\n", advisory)
	fmt.Println(strings.Repeat("-", 38))
	if len(entries) == 0 {
		fmt.Println("No archived runs.")
		return
	}
	for _, entry := range entries {
		if entry.Error != "" {
			failure.Printf("%s | %s | %s\n", entry.RunDate, entry.Status, entry.Error)
			continue
		}
		fmt.Printf("%s | %s | students %d | assignments %d | mean %.2f | std dev %.2f | median %.0f\n",
			entry.RunDate,
			entry.Status,
			entry.Students,
			entry.Assignments,
			entry.MeanGrade,
			entry.StdDevGrade,
			entry.MedianGrade,
		)
	}
}

func printStudentGrades(advisory, runID string, grades map[string]float64) {
	heading.Printf("SA grades for %s, run %s\n", advisory, runID)
	fmt.Println(strings.Repeat("-", 38))
	names := make([]string, 0, len(grades))
	for name := range grades {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%-28s | SA %3.0f\n", name, grades[name])
	}
}
