// Package simulator answers "what if" questions: how the composite index and
// the estimated ICMS Educacional of a municipality would change under
// hypothetical sub-indicator values or a hypothetical index.
package simulator

import (
	"fmt"
	"strings"

	"github.com/iwvelando/icms-educacional/pkg/dataset"
	"github.com/iwvelando/icms-educacional/pkg/indicator"
	"github.com/iwvelando/icms-educacional/pkg/measure"
	"github.com/iwvelando/icms-educacional/pkg/revenue"
	"github.com/iwvelando/icms-educacional/pkg/temporal"
)

// Mode selects how the simulated index and revenue are derived.
type Mode string

const (
	// ModeComposed aggregates hypothetical sub-indicators with the fixed
	// weights and re-evaluates the revenue line at the result.
	ModeComposed Mode = "composed"

	// ModeDirect re-evaluates the revenue line at a hypothetical index.
	ModeDirect Mode = "direct"

	// ModeLinear converts sub-indicator changes into an index change and
	// multiplies it by the fitted slope alone, a first-order approximation
	// around the municipality's real point.
	ModeLinear Mode = "linear"
)

// Modes lists the supported modes.
var Modes = []Mode{ModeComposed, ModeDirect, ModeLinear}

// ParseMode resolves a mode name, case-insensitively. Empty means composed.
func ParseMode(name string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(name))) {
	case "", ModeComposed:
		return ModeComposed, nil
	case ModeDirect:
		return ModeDirect, nil
	case ModeLinear:
		return ModeLinear, nil
	}
	names := make([]string, len(Modes))
	for i, m := range Modes {
		names[i] = string(m)
	}
	return "", fmt.Errorf("unknown simulation mode %q (expected %s)", name, strings.Join(names, ", "))
}

// Input describes one hypothetical scenario.
type Input struct {
	Mode Mode

	// Components holds hypothetical sub-indicator values for ModeComposed and
	// ModeLinear. They are contextual only in ModeDirect.
	Components indicator.Components

	// Index is the hypothetical composite index for ModeDirect.
	Index float64

	// Delta, when set in ModeLinear, gives sub-indicator changes directly
	// instead of deriving them from Components.
	Delta *indicator.Components
}

// Point is an (index, revenue) pair.
type Point struct {
	Index   measure.Value `json:"index"`
	Revenue measure.Value `json:"revenue"`
}

// Result is the outcome of one simulation. Deltas are simulated minus real.
type Result struct {
	Municipality   string               `json:"municipality"`
	ReferenceYear  int                  `json:"referenceYear"`
	TransferYear   int                  `json:"transferYear"`
	Mode           Mode                 `json:"mode"`
	RealComponents indicator.Components `json:"realComponents"`
	Real           Point                `json:"real"`
	Simulated      Point                `json:"simulated"`
	IndexDelta     temporal.Delta       `json:"indexDelta"`
	RevenueDelta   temporal.Delta       `json:"revenueDelta"`
	RSquared       measure.Value        `json:"rSquared"`
	Extrapolated   bool                 `json:"extrapolated"`
}

// Simulator holds a revenue model fitted for one reference year together with
// the table the real values are read from.
type Simulator struct {
	table *dataset.Table
	model revenue.Model
}

// New fits the revenue model for year and returns a simulator over table.
func New(table *dataset.Table, year int) (*Simulator, error) {
	model, err := revenue.FitYear(table, year)
	if err != nil {
		return nil, fmt.Errorf("insufficient reference data for simulation in %d: %w", year, err)
	}
	return &Simulator{table: table, model: model}, nil
}

// NewWithModel returns a simulator using an already fitted model.
func NewWithModel(table *dataset.Table, model revenue.Model) *Simulator {
	return &Simulator{table: table, model: model}
}

// Model returns the fitted revenue model.
func (s *Simulator) Model() revenue.Model {
	return s.model
}

// Simulate runs in against the real record of municipality in the model's
// reference year.
func (s *Simulator) Simulate(municipality string, in Input) (Result, error) {
	year := s.model.ReferenceYear
	rec, err := s.table.Find(municipality, year)
	if err != nil {
		return Result{}, fmt.Errorf("insufficient reference data: %w (%w)", err, measure.ErrInsufficientData)
	}

	res := Result{
		Municipality:   rec.Municipality,
		ReferenceYear:  year,
		TransferYear:   s.model.TransferYear,
		Mode:           in.Mode,
		RealComponents: indicator.ComponentsOf(rec),
		Real: Point{
			Index:   dataset.FieldCompositeIndex.Value(rec),
			Revenue: dataset.FieldEstimatedRevenue.Value(rec),
		},
		RSquared: s.model.RSquared,
	}

	switch in.Mode {
	case ModeComposed, "":
		res.Mode = ModeComposed
		s.evaluate(&res, in.Components.Index())
	case ModeDirect:
		s.evaluate(&res, measure.Of(in.Index, measure.UnitIndex))
	case ModeLinear:
		delta := in.Components.Sub(res.RealComponents)
		if in.Delta != nil {
			delta = *in.Delta
		}
		s.approximate(&res, indicator.AggregateDelta(delta))
	default:
		return Result{}, fmt.Errorf("unknown simulation mode %q", in.Mode)
	}
	return res, nil
}

func (s *Simulator) evaluate(res *Result, index measure.Value) {
	res.Simulated = Point{Index: index, Revenue: s.model.EstimateValue(index)}
	res.IndexDelta = temporal.Compare(res.Real.Index, res.Simulated.Index)
	res.RevenueDelta = temporal.Compare(res.Real.Revenue, res.Simulated.Revenue)
	res.Extrapolated = index.Defined() && s.model.Extrapolated(index.Number)
}

func (s *Simulator) approximate(res *Result, indexDelta measure.Value) {
	if !indexDelta.Defined() {
		undefined := temporal.Delta{
			Absolute: measure.Undefined(indexDelta.Reason, measure.UnitIndex),
			Percent:  measure.Undefined(indexDelta.Reason, measure.UnitPercent),
		}
		res.IndexDelta = undefined
		res.RevenueDelta = temporal.Delta{
			Absolute: measure.Undefined(indexDelta.Reason, measure.UnitCurrency),
			Percent:  measure.Undefined(indexDelta.Reason, measure.UnitPercent),
		}
		res.Simulated = Point{
			Index:   undefined.Absolute,
			Revenue: res.RevenueDelta.Absolute,
		}
		return
	}

	revenueDelta := measure.Of(s.model.Slope*indexDelta.Number, measure.UnitCurrency)
	res.IndexDelta = shift(res.Real.Index, indexDelta)
	res.RevenueDelta = shift(res.Real.Revenue, revenueDelta)
	res.Simulated = Point{
		Index:   sum(res.Real.Index, indexDelta),
		Revenue: sum(res.Real.Revenue, revenueDelta),
	}
	res.Extrapolated = res.Simulated.Index.Defined() && s.model.Extrapolated(res.Simulated.Index.Number)
}

// shift reports a known absolute change against base. The absolute part stays
// defined even when base is not.
func shift(base, change measure.Value) temporal.Delta {
	pct := temporal.Compare(base, sum(base, change)).Percent
	return temporal.Delta{Absolute: change, Percent: pct}
}

func sum(a, b measure.Value) measure.Value {
	if !a.Defined() {
		return measure.Undefined(a.Reason, a.Unit)
	}
	if !b.Defined() {
		return measure.Undefined(b.Reason, a.Unit)
	}
	return measure.Of(a.Number+b.Number, a.Unit)
}
