package ranking

import (
	"sort"

	"github.com/iwvelando/icms-educacional/pkg/dataset"
	"github.com/iwvelando/icms-educacional/pkg/measure"
	"gonum.org/v1/gonum/stat"
)

// Summary holds state-wide descriptive statistics of one field in one year.
type Summary struct {
	Field  string        `json:"field"`
	Count  int           `json:"count"`
	Total  measure.Value `json:"total"`
	Mean   measure.Value `json:"mean"`
	Median measure.Value `json:"median"`
	StdDev measure.Value `json:"stdDev"`
	Min    measure.Value `json:"min"`
	Max    measure.Value `json:"max"`
}

// Summarize describes the defined values of field across records.
func Summarize(records []dataset.Record, field dataset.Field) Summary {
	unit := field.Unit()
	values := make([]float64, 0, len(records))
	for _, r := range records {
		if field.Defined(r) {
			values = append(values, field.Of(r))
		}
	}

	s := Summary{Field: field.Column(), Count: len(values)}
	if len(values) == 0 {
		undefined := measure.Undefined(measure.InsufficientData, unit)
		s.Total, s.Mean, s.Median, s.StdDev, s.Min, s.Max = undefined, undefined, undefined, undefined, undefined, undefined
		return s
	}

	sort.Float64s(values)
	total := 0.0
	for _, v := range values {
		total += v
	}
	s.Total = measure.Of(total, unit)
	s.Mean = measure.Of(stat.Mean(values, nil), unit)
	s.Min = measure.Of(values[0], unit)
	s.Max = measure.Of(values[len(values)-1], unit)

	mid := len(values) / 2
	if len(values)%2 == 1 {
		s.Median = measure.Of(values[mid], unit)
	} else {
		s.Median = measure.Of((values[mid-1]+values[mid])/2, unit)
	}

	if len(values) > 1 {
		s.StdDev = measure.Of(stat.StdDev(values, nil), unit)
	} else {
		s.StdDev = measure.Undefined(measure.InsufficientData, unit)
	}
	return s
}
