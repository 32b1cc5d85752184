package grading

import "math"

// gradeBand maps completion in [Min, next band's Min) to Grade.
type gradeBand struct {
	Min   float64
	Grade float64
}

// Highest band first. Lower bounds are inclusive.
var gradeBands = []gradeBand{
	{Min: 90, Grade: 100},
	{Min: 70, Grade: 85},
	{Min: 50, Grade: 70},
	{Min: 25, Grade: 50},
	{Min: 0, Grade: 0},
}

// Grades lists every SA grade Bucket can return, lowest first.
func Grades() []float64 {
	grades := make([]float64, 0, len(gradeBands))
	for i := len(gradeBands) - 1; i >= 0; i-- {
		grades = append(grades, gradeBands[i].Grade)
	}
	return grades
}

// Bucket converts an EdPuzzle completion percentage to an SA homework grade
// (0, 50, 70, 85 or 100). Values exactly on 25, 50, 70 and 90 take the higher
// grade.
func Bucket(raw float64) (float64, error) {
	if math.IsNaN(raw) || raw < 0 || raw > 100 {
		return 0, &OutOfRangeError{Value: raw}
	}
	for _, band := range gradeBands {
		if raw >= band.Min {
			return band.Grade, nil
		}
	}
	return 0, &OutOfRangeError{Value: raw}
}
