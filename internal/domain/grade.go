package domain

import "github.com/shopspring/decimal"

// Grade is a letter grade on the 11-point scale, plus the administrative
// marks that never count toward GPA.
type Grade string

// Letter grades and administrative marks.
const (
	GradeA      Grade = "A"
	GradeAMinus Grade = "A-"
	GradeBPlus  Grade = "B+"
	GradeB      Grade = "B"
	GradeBMinus Grade = "B-"
	GradeCPlus  Grade = "C+"
	GradeC      Grade = "C"
	GradeCMinus Grade = "C-"
	GradeDPlus  Grade = "D+"
	GradeD      Grade = "D"
	GradeF      Grade = "F"

	GradePass       Grade = "P"
	GradeFail       Grade = "NP"
	GradeIncomplete Grade = "I"
	GradeAudit      Grade = "AU"
	GradeWithdrawn  Grade = "W"
)

var gradePoints = map[Grade]decimal.Decimal{
	GradeA:      decimal.RequireFromString("4.0"),
	GradeAMinus: decimal.RequireFromString("3.7"),
	GradeBPlus:  decimal.RequireFromString("3.3"),
	GradeB:      decimal.RequireFromString("3.0"),
	GradeBMinus: decimal.RequireFromString("2.7"),
	GradeCPlus:  decimal.RequireFromString("2.3"),
	GradeC:      decimal.RequireFromString("2.0"),
	GradeCMinus: decimal.RequireFromString("1.7"),
	GradeDPlus:  decimal.RequireFromString("1.3"),
	GradeD:      decimal.RequireFromString("1.0"),
	GradeF:      decimal.RequireFromString("0.0"),
}

// Valid reports whether g is a recognised grade or administrative mark.
func (g Grade) Valid() bool {
	if _, ok := gradePoints[g]; ok {
		return true
	}
	switch g {
	case GradePass, GradeFail, GradeIncomplete, GradeAudit, GradeWithdrawn:
		return true
	}
	return false
}

// CountsTowardGPA reports whether g contributes to GPA calculation.
// Pass/Fail, Incomplete, Audit and Withdrawn marks are excluded.
func (g Grade) CountsTowardGPA() bool {
	_, ok := gradePoints[g]
	return ok
}

// Points returns the grade-point value of g on the 11-point scale. The
// second return is false for marks excluded from GPA.
func (g Grade) Points() (decimal.Decimal, bool) {
	p, ok := gradePoints[g]
	return p, ok
}

// Passing reports whether g satisfies a prerequisite. F does not; a
// bare Pass mark does.
func (g Grade) Passing() bool {
	if g == GradePass {
		return true
	}
	p, ok := gradePoints[g]
	if !ok {
		return false
	}
	return p.GreaterThan(decimal.Zero)
}
