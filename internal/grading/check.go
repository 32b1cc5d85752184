package grading

import "sort"

// DefaultCompletionThreshold is the completion a student needs on every video
// to count as having done them all.
const DefaultCompletionThreshold = 90.0

// FullCompletion returns the students who watched at least threshold percent of
// every assignment, sorted by name. Blank or absent completions disqualify.
func FullCompletion(tables []AssignmentTable, threshold float64) []string {
	if len(tables) == 0 {
		return nil
	}

	counts := map[string]int{}
	for _, table := range tables {
		for _, rec := range table.Records {
			if rec.Recorded && rec.PercentWatched >= threshold {
				counts[rec.StudentName]++
			}
		}
	}

	var names []string
	for name, count := range counts {
		if count == len(tables) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
