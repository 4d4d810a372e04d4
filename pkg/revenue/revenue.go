// Package revenue estimates the ICMS Educacional value a municipality would
// receive for a given composite index. The relationship is fitted by least
// squares over every municipality of one reference year; it is an
// illustrative estimator, not the official transfer rule.
package revenue

import (
	"fmt"

	"github.com/iwvelando/icms-educacional/pkg/constants"
	"github.com/iwvelando/icms-educacional/pkg/dataset"
	"github.com/iwvelando/icms-educacional/pkg/mathutil"
	"github.com/iwvelando/icms-educacional/pkg/measure"
	"gonum.org/v1/gonum/stat"
)

// TransferYear returns the year in which revenue for referenceYear is paid.
func TransferYear(referenceYear int) int {
	return referenceYear + constants.TransferYearOffset
}

// ReferenceYear is the inverse of TransferYear.
func ReferenceYear(transferYear int) int {
	return transferYear - constants.TransferYearOffset
}

// Model is the fitted line revenue = Intercept + Slope·index.
type Model struct {
	ReferenceYear int           `json:"referenceYear"`
	TransferYear  int           `json:"transferYear"`
	Slope         float64       `json:"slope"`
	Intercept     float64       `json:"intercept"`
	RSquared      measure.Value `json:"rSquared"`
	Samples       int           `json:"samples"`
	MinIndex      float64       `json:"minIndex"`
	MaxIndex      float64       `json:"maxIndex"`
}

// Observation is one (index, revenue) pair used in a fit.
type Observation struct {
	Municipality string  `json:"municipality"`
	Index        float64 `json:"index"`
	Revenue      float64 `json:"revenue"`
}

// Observations returns the records that have both a composite index and an
// estimated revenue.
func Observations(records []dataset.Record) []Observation {
	out := make([]Observation, 0, len(records))
	for _, r := range records {
		if !dataset.FieldCompositeIndex.Defined(r) || !dataset.FieldEstimatedRevenue.Defined(r) {
			continue
		}
		out = append(out, Observation{
			Municipality: r.Municipality,
			Index:        r.CompositeIndex,
			Revenue:      r.EstimatedRevenue,
		})
	}
	return out
}

// Fit regresses estimated revenue on composite index over records of a single
// reference year. It needs MinRevenueSample records with both values and at
// least two distinct index values. RSquared is undefined when every observed
// revenue is identical.
func Fit(records []dataset.Record) (Model, error) {
	if len(records) > 0 {
		year := records[0].ReferenceYear
		for _, r := range records[1:] {
			if r.ReferenceYear != year {
				return Model{}, fmt.Errorf("revenue fit mixes reference years %d and %d", year, r.ReferenceYear)
			}
		}
	}

	obs := Observations(records)
	if len(obs) < constants.MinRevenueSample {
		return Model{}, fmt.Errorf("revenue fit needs %d municipalities with IQE and ICMS, got %d: %w",
			constants.MinRevenueSample, len(obs), measure.ErrInsufficientData)
	}

	xs := make([]float64, len(obs))
	ys := make([]float64, len(obs))
	m := Model{
		ReferenceYear: records[0].ReferenceYear,
		TransferYear:  TransferYear(records[0].ReferenceYear),
		Samples:       len(obs),
		MinIndex:      obs[0].Index,
		MaxIndex:      obs[0].Index,
	}
	for i, o := range obs {
		xs[i], ys[i] = o.Index, o.Revenue
		m.MinIndex = mathutil.Min(m.MinIndex, o.Index)
		m.MaxIndex = mathutil.Max(m.MaxIndex, o.Index)
	}
	if mathutil.WithinTolerance(m.MinIndex, m.MaxIndex, constants.Tolerance) {
		return Model{}, fmt.Errorf("revenue fit needs at least two distinct IQE values: %w", measure.ErrInsufficientData)
	}

	m.Intercept, m.Slope = stat.LinearRegression(xs, ys, nil, false)

	meanY := stat.Mean(ys, nil)
	ssTot := 0.0
	for _, y := range ys {
		ssTot += (y - meanY) * (y - meanY)
	}
	if ssTot == 0 {
		m.RSquared = measure.Undefined(measure.DivisionByZero, measure.UnitNone)
	} else {
		m.RSquared = measure.Of(stat.RSquared(xs, ys, nil, m.Intercept, m.Slope), measure.UnitNone)
	}
	return m, nil
}

// FitYear fits the model over every record of year in table.
func FitYear(table *dataset.Table, year int) (Model, error) {
	records := table.Year(year)
	if len(records) == 0 {
		return Model{}, fmt.Errorf("no records for reference year %d: %w", year, measure.ErrInsufficientData)
	}
	return Fit(records)
}

// Estimate evaluates the fitted line at index. Values outside the observed
// index range are extrapolated, not clamped.
func (m Model) Estimate(index float64) measure.Value {
	if !mathutil.IsFinite(index) {
		return measure.Undefined(measure.UndefinedValue, measure.UnitCurrency)
	}
	return measure.Of(m.Intercept+m.Slope*index, measure.UnitCurrency)
}

// EstimateValue is Estimate for a possibly undefined index.
func (m Model) EstimateValue(index measure.Value) measure.Value {
	if !index.Defined() {
		return measure.Undefined(index.Reason, measure.UnitCurrency)
	}
	return m.Estimate(index.Number)
}

// Residual returns observed minus the fitted value at index.
func (m Model) Residual(index, observed float64) measure.Value {
	fitted := m.Estimate(index)
	if !fitted.Defined() || !mathutil.IsFinite(observed) {
		return measure.Undefined(measure.UndefinedValue, measure.UnitCurrency)
	}
	return measure.Of(observed-fitted.Number, measure.UnitCurrency)
}

// Extrapolated reports whether index lies outside the fitted index range.
func (m Model) Extrapolated(index float64) bool {
	return index < m.MinIndex || index > m.MaxIndex
}

// Line samples the fitted line at n+1 evenly spaced index values in [from, to].
func (m Model) Line(from, to float64, n int) []Observation {
	if n < 1 {
		n = 1
	}
	out := make([]Observation, 0, n+1)
	step := (to - from) / float64(n)
	for i := 0; i <= n; i++ {
		x := from + step*float64(i)
		out = append(out, Observation{Index: x, Revenue: m.Estimate(x).Float()})
	}
	return out
}
