// Package indicator computes the composite educational quality index (IQE)
// from its three weighted sub-indicators.
package indicator

import (
	"encoding/json"

	"github.com/iwvelando/icms-educacional/pkg/constants"
	"github.com/iwvelando/icms-educacional/pkg/dataset"
	"github.com/iwvelando/icms-educacional/pkg/measure"
	"github.com/iwvelando/icms-educacional/pkg/mathutil"
)

// Components holds the three sub-indicators of the composite index.
type Components struct {
	Formation     float64 `json:"formation"`     // IQEF
	Participation float64 `json:"participation"` // P
	Equity        float64 `json:"equity"`        // IMEG
}

// ComponentsOf extracts the sub-indicators of a record.
func ComponentsOf(r dataset.Record) Components {
	return Components{
		Formation:     r.Formation,
		Participation: r.Participation,
		Equity:        r.Equity,
	}
}

// Aggregate returns 0.70·formation + 0.15·participation + 0.15·equity.
// The result is undefined when any input is undefined. Inputs outside [0,1]
// are used as given.
func Aggregate(formation, participation, equity float64) measure.Value {
	if !mathutil.IsFinite(formation) || !mathutil.IsFinite(participation) || !mathutil.IsFinite(equity) {
		return measure.Undefined(measure.UndefinedValue, measure.UnitIndex)
	}
	return measure.Of(weighted(formation, participation, equity), measure.UnitIndex)
}

// Index aggregates c.
func (c Components) Index() measure.Value {
	return Aggregate(c.Formation, c.Participation, c.Equity)
}

// Sub returns the component-wise difference c - base.
func (c Components) Sub(base Components) Components {
	return Components{
		Formation:     c.Formation - base.Formation,
		Participation: c.Participation - base.Participation,
		Equity:        c.Equity - base.Equity,
	}
}

// AggregateDelta returns the change in the composite index implied by
// changes in the sub-indicators. The weights are linear, so this is exact.
func AggregateDelta(delta Components) measure.Value {
	return Aggregate(delta.Formation, delta.Participation, delta.Equity)
}

// InRange reports whether every component lies in [0,1].
func (c Components) InRange() bool {
	for _, v := range []float64{c.Formation, c.Participation, c.Equity} {
		if !mathutil.IsFinite(v) || v < 0 || v > 1 {
			return false
		}
	}
	return true
}

// MarshalJSON writes absent components as null.
func (c Components) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Formation     *float64 `json:"formation"`
		Participation *float64 `json:"participation"`
		Equity        *float64 `json:"equity"`
	}{finite(c.Formation), finite(c.Participation), finite(c.Equity)})
}

func finite(v float64) *float64 {
	if !mathutil.IsFinite(v) {
		return nil
	}
	return &v
}

func weighted(formation, participation, equity float64) float64 {
	return constants.WeightFormation*formation +
		constants.WeightParticipation*participation +
		constants.WeightEquity*equity
}
