// Package compare checks locally computed wellness values against readings
// from an external reference system. Each formula family carries a fixed
// tolerance; a comparison only fails when the reference value exists and the
// difference exceeds it.
package compare

import (
	"fmt"

	"github.com/OksanaKushniaryk/wellness-meter/internal/scoring"
)

// Per-family tolerances. Kcal unless noted otherwise.
const (
	// ScoreTolerance covers every 0-100 score, in points.
	ScoreTolerance = 5.0

	// CreditTolerance covers the 0-1000 energy credit scale, in points.
	CreditTolerance = 25.0

	BMRTolerance         = 50.0
	ExpenditureTolerance = 100.0
	CapacityTolerance    = 200.0

	SafeZoneBoundTolerance = 25.0
)

// Result reports one calculated-vs-reference check. ValueDiff is the signed
// difference calculated minus reference, nil when no reference exists.
type Result struct {
	Available     bool     `json:"available"`
	ValueDiff     *float64 `json:"valueDiff"`
	IsWithinRange bool     `json:"isWithinRange"`
	Message       string   `json:"message"`
}

// Against compares a calculated value to an optional reference value within
// the given tolerance. A nil or non-finite reference yields an unavailable
// result rather than an error.
func Against(calculated float64, reference *float64, tolerance float64, unit string) Result {
	if reference == nil || !scoring.IsFinite(*reference) {
		return Result{
			Available: false,
			Message:   "no reference value supplied",
		}
	}

	diff := calculated - *reference
	within := diff <= tolerance && diff >= -tolerance

	msg := fmt.Sprintf("within ±%.1f %s of reference", tolerance, unit)
	if !within {
		msg = fmt.Sprintf("differs from reference by %+.2f %s (tolerance ±%.1f)", diff, unit, tolerance)
	}

	return Result{
		Available:     true,
		ValueDiff:     &diff,
		IsWithinRange: within,
		Message:       msg,
	}
}

// Score compares two 0-100 scores.
func Score(calculated float64, reference *float64) Result {
	return Against(calculated, reference, ScoreTolerance, "points")
}

// Credit compares two 0-1000 energy credit scores.
func Credit(calculated float64, reference *float64) Result {
	return Against(calculated, reference, CreditTolerance, "points")
}

// BMR compares two basal metabolic rates.
func BMR(calculated float64, reference *float64) Result {
	return Against(calculated, reference, BMRTolerance, "kcal")
}

// Expenditure compares two expenditure quantities (TEF, PAEE, or TEE).
func Expenditure(calculated float64, reference *float64) Result {
	return Against(calculated, reference, ExpenditureTolerance, "kcal")
}

// Capacity compares two energy capacities.
func Capacity(calculated float64, reference *float64) Result {
	return Against(calculated, reference, CapacityTolerance, "kcal")
}

// SafeZoneBound compares one safe-zone bound. The calculated bound may itself
// be unavailable when history is short; that also yields an unavailable
// comparison.
func SafeZoneBound(calculated *float64, reference *float64) Result {
	if calculated == nil {
		return Result{
			Available: false,
			Message:   "no calculated bound: insufficient history",
		}
	}
	return Against(*calculated, reference, SafeZoneBoundTolerance, "kcal")
}
