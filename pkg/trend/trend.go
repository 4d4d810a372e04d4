// Package trend fits a first-degree least-squares line through a
// municipality's yearly history. The line is descriptive only.
package trend

import (
	"fmt"

	"github.com/iwvelando/icms-educacional/pkg/constants"
	"github.com/iwvelando/icms-educacional/pkg/dataset"
	"github.com/iwvelando/icms-educacional/pkg/mathutil"
	"github.com/iwvelando/icms-educacional/pkg/measure"
	"gonum.org/v1/gonum/stat"
)

// Point is one (year, value) observation.
type Point struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// Model is the fitted line value = Intercept + Slope·year.
type Model struct {
	Slope     float64      `json:"slope"`
	Intercept float64      `json:"intercept"`
	Points    int          `json:"points"`
	FirstYear int          `json:"firstYear"`
	LastYear  int          `json:"lastYear"`
	Unit      measure.Unit `json:"-"`
}

// PointsOf extracts field from a history, keeping undefined values as NaN so
// Fit can skip them.
func PointsOf(history []dataset.Record, field dataset.Field) []Point {
	out := make([]Point, 0, len(history))
	for _, r := range history {
		out = append(out, Point{Year: r.ReferenceYear, Value: field.Of(r)})
	}
	return out
}

// Fit runs an ordinary least-squares regression of value on year. Points with
// undefined values are skipped; at least two distinct years must remain.
func Fit(points []Point, unit measure.Unit) (Model, error) {
	xs := make([]float64, 0, len(points))
	ys := make([]float64, 0, len(points))
	years := make(map[int]struct{})
	m := Model{Unit: unit}

	for _, p := range points {
		if !mathutil.IsFinite(p.Value) {
			continue
		}
		xs = append(xs, float64(p.Year))
		ys = append(ys, p.Value)
		years[p.Year] = struct{}{}
		if len(xs) == 1 || p.Year < m.FirstYear {
			m.FirstYear = p.Year
		}
		if len(xs) == 1 || p.Year > m.LastYear {
			m.LastYear = p.Year
		}
	}

	if len(years) < constants.MinTrendPoints {
		return Model{}, fmt.Errorf("trend needs %d distinct years with data, got %d: %w",
			constants.MinTrendPoints, len(years), measure.ErrInsufficientData)
	}

	m.Intercept, m.Slope = stat.LinearRegression(xs, ys, nil, false)
	m.Points = len(xs)
	return m, nil
}

// Evaluate returns the fitted value at year.
func (m Model) Evaluate(year int) measure.Value {
	return measure.Of(m.Intercept+m.Slope*float64(year), m.Unit)
}

// Line evaluates the model at every year from the first fitted year up to
// LastYear+ahead.
func (m Model) Line(ahead int) []Point {
	if ahead < 0 {
		ahead = 0
	}
	out := make([]Point, 0, m.LastYear-m.FirstYear+ahead+1)
	for year := m.FirstYear; year <= m.LastYear+ahead; year++ {
		out = append(out, Point{Year: year, Value: m.Evaluate(year).Float()})
	}
	return out
}

// Direction classifies the slope as "alta", "queda" or "estável".
func (m Model) Direction() string {
	switch {
	case m.Slope > constants.Tolerance:
		return "alta"
	case m.Slope < -constants.Tolerance:
		return "queda"
	default:
		return "estável"
	}
}
