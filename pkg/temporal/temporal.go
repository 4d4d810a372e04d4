// Package temporal computes changes between two observations of the same
// municipality: absolute and relative deltas, rank movement and change in
// share of the state total.
package temporal

import (
	"github.com/iwvelando/icms-educacional/pkg/constants"
	"github.com/iwvelando/icms-educacional/pkg/dataset"
	"github.com/iwvelando/icms-educacional/pkg/measure"
)

// Delta is the change from an earlier to a later value.
type Delta struct {
	Absolute measure.Value `json:"absolute"`
	Percent  measure.Value `json:"percent"`
}

// Compare returns later-earlier and its percentage of earlier. The
// percentage is undefined when earlier is undefined or exactly zero.
func Compare(earlier, later measure.Value) Delta {
	unit := earlier.Unit
	if unit == measure.UnitNone {
		unit = later.Unit
	}

	if !earlier.Defined() || !later.Defined() {
		return Delta{
			Absolute: measure.Undefined(undefinedReason(earlier, later), unit),
			Percent:  measure.Undefined(undefinedReason(earlier, later), measure.UnitPercent),
		}
	}

	abs := later.Number - earlier.Number
	d := Delta{Absolute: measure.Of(abs, unit)}
	if earlier.Number == 0 {
		d.Percent = measure.Undefined(measure.DivisionByZero, measure.UnitPercent)
	} else {
		d.Percent = measure.Of(abs/earlier.Number*constants.PercentageMultiplier, measure.UnitPercent)
	}
	return d
}

// CompareFloats is Compare for bare numbers, NaN meaning undefined.
func CompareFloats(earlier, later float64, unit measure.Unit) Delta {
	return Compare(measure.Of(earlier, unit), measure.Of(later, unit))
}

// ComparePositions returns earlier-later. A positive result means the
// municipality moved up to a numerically smaller rank.
func ComparePositions(earlier, later measure.Value) measure.Value {
	if !earlier.Defined() || !later.Defined() {
		return measure.Undefined(undefinedReason(earlier, later), measure.UnitPosition)
	}
	return measure.Of(earlier.Number-later.Number, measure.UnitPosition)
}

// CompareShares returns later-earlier in percentage points.
func CompareShares(earlier, later measure.Value) measure.Value {
	if !earlier.Defined() || !later.Defined() {
		return measure.Undefined(undefinedReason(earlier, later), measure.UnitPercentagePoint)
	}
	return measure.Of(later.Number-earlier.Number, measure.UnitPercentagePoint)
}

// Change is the delta of one field between two consecutive reference years.
type Change struct {
	FromYear int   `json:"fromYear"`
	ToYear   int   `json:"toYear"`
	Delta    Delta `json:"delta"`
}

// Changes walks a municipality's history, ordered by reference year, and
// returns the delta of field between each pair of consecutive records.
func Changes(history []dataset.Record, field dataset.Field) []Change {
	if len(history) < 2 {
		return nil
	}
	out := make([]Change, 0, len(history)-1)
	for i := 1; i < len(history); i++ {
		prev, cur := history[i-1], history[i]
		out = append(out, Change{
			FromYear: prev.ReferenceYear,
			ToYear:   cur.ReferenceYear,
			Delta:    Compare(field.Value(prev), field.Value(cur)),
		})
	}
	return out
}

func undefinedReason(values ...measure.Value) measure.Reason {
	for _, v := range values {
		if !v.Defined() {
			return v.Reason
		}
	}
	return measure.UndefinedValue
}
