// Package gpa computes cumulative grade point averages from enrollment
// history. The calculation is pure: no I/O, no clock, no mutation.
package gpa

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/uni-registrar-api/internal/domain"
)

// Precision is the number of decimal places in a reported GPA.
const Precision = 3

// ComputeCumulativeGPA returns the credit-weighted average of the grade
// points across records. Records whose grade does not count toward GPA
// (Pass/Fail, Incomplete, Audit, Withdrawn) are excluded. A nil result
// means "no GPA", which is distinct from a 0.0 GPA. The result is
// rounded to three decimal places, half away from zero.
func ComputeCumulativeGPA(records []domain.Enrollment) *decimal.Decimal {
	totalPoints := decimal.Zero
	totalCredits := decimal.Zero

	for _, record := range records {
		if record.Grade == nil {
			continue
		}
		points, ok := record.Grade.Points()
		if !ok {
			continue
		}
		credits := decimal.NewFromInt(int64(record.CreditHours))
		totalPoints = totalPoints.Add(points.Mul(credits))
		totalCredits = totalCredits.Add(credits)
	}

	// Zero total credits cannot happen with valid records, but a guard
	// beats a division panic on malformed input.
	if totalCredits.IsZero() {
		return nil
	}

	result := totalPoints.DivRound(totalCredits, Precision+1).Round(Precision)
	return &result
}

// ComputeTermGPA restricts the calculation to records in a single term.
func ComputeTermGPA(records []domain.Enrollment, term string) *decimal.Decimal {
	var scoped []domain.Enrollment
	for _, record := range records {
		if record.Term == term {
			scoped = append(scoped, record)
		}
	}
	return ComputeCumulativeGPA(scoped)
}
