package dashboard

import (
	"github.com/iwvelando/icms-educacional/pkg/dataset"
	"github.com/iwvelando/icms-educacional/pkg/indicator"
	"github.com/iwvelando/icms-educacional/pkg/measure"
	"github.com/iwvelando/icms-educacional/pkg/ranking"
	"github.com/iwvelando/icms-educacional/pkg/trend"
	"go.uber.org/zap"
)

// IndicatorFields are the composite index and its sub-indicators, in the
// order the radar chart draws them.
var IndicatorFields = []dataset.Field{
	dataset.FieldCompositeIndex,
	dataset.FieldFormation,
	dataset.FieldParticipation,
	dataset.FieldEquity,
}

// Comparison sets one indicator of the municipality against the state mean.
type Comparison struct {
	Indicator  string        `json:"indicator"`
	Value      measure.Value `json:"value"`
	StateMean  measure.Value `json:"stateMean"`
	Difference measure.Value `json:"difference"`
}

// HistoryPoint is the composite index of one reference year.
type HistoryPoint struct {
	Year  int           `json:"year"`
	Value measure.Value `json:"value"`
	Trend measure.Value `json:"trend"`
}

// TrendSummary describes the line fitted through the index history. Line
// runs one year past the last observed year.
type TrendSummary struct {
	Slope     float64       `json:"slope"`
	Intercept float64       `json:"intercept"`
	Direction string        `json:"direction"`
	Line      []trend.Point `json:"line"`
}

// IndicatorView is the indicator breakdown of one municipality in one year.
type IndicatorView struct {
	Municipality  string          `json:"municipality"`
	ReferenceYear int             `json:"referenceYear"`
	Indicators    []Comparison    `json:"indicators"`
	Aggregated    measure.Value   `json:"aggregated"`
	Rank          ranking.Result  `json:"rank"`
	Summary       ranking.Summary `json:"summary"`
	History       []HistoryPoint  `json:"history"`
	Trend         *TrendSummary   `json:"trend,omitempty"`
	TrendNote     string          `json:"trendNote,omitempty"`
}

// Indicator builds the indicator view of municipality for year, or for the
// latest year when year is zero.
func Indicator(logger *zap.Logger, table *dataset.Table, municipality string, year int) (IndicatorView, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := table.Require(dataset.FieldCompositeIndex); err != nil {
		return IndicatorView{}, err
	}
	name, err := table.Resolve(municipality)
	if err != nil {
		return IndicatorView{}, err
	}
	year, err = ResolveYear(table, year)
	if err != nil {
		return IndicatorView{}, err
	}
	rec, err := table.Find(name, year)
	if err != nil {
		return IndicatorView{}, err
	}

	records := table.Year(year)
	view := IndicatorView{
		Municipality:  name,
		ReferenceYear: year,
		Aggregated:    indicator.ComponentsOf(rec).Index(),
		Rank:          ranking.Rank(records, dataset.FieldCompositeIndex, name),
		Summary:       ranking.Summarize(records, dataset.FieldCompositeIndex),
	}

	for _, f := range IndicatorFields {
		value := f.Value(rec)
		mean := ranking.Summarize(records, f).Mean
		view.Indicators = append(view.Indicators, Comparison{
			Indicator:  f.Column(),
			Value:      value,
			StateMean:  mean,
			Difference: difference(value, mean),
		})
	}

	history := table.History(name)
	model, fitErr := trend.Fit(trend.PointsOf(history, dataset.FieldCompositeIndex), measure.UnitIndex)
	for _, r := range history {
		p := HistoryPoint{
			Year:  r.ReferenceYear,
			Value: dataset.FieldCompositeIndex.Value(r),
			Trend: measure.Undefined(measure.ReasonOf(fitErr), measure.UnitIndex),
		}
		if fitErr == nil {
			p.Trend = model.Evaluate(r.ReferenceYear)
		}
		view.History = append(view.History, p)
	}

	if fitErr != nil {
		view.TrendNote = fitErr.Error()
		logger.Debug("index trend not fitted",
			zap.String("op", "dashboard.Indicator"),
			zap.String("municipality", name),
			zap.Error(fitErr),
		)
	} else {
		view.Trend = &TrendSummary{
			Slope:     model.Slope,
			Intercept: model.Intercept,
			Direction: model.Direction(),
			Line:      model.Line(1),
		}
	}

	logger.Debug("indicator view computed",
		zap.String("op", "dashboard.Indicator"),
		zap.String("municipality", name),
		zap.Int("year", year),
	)
	return view, nil
}

func difference(value, base measure.Value) measure.Value {
	if !value.Defined() {
		return measure.Undefined(value.Reason, value.Unit)
	}
	if !base.Defined() {
		return measure.Undefined(base.Reason, value.Unit)
	}
	return measure.Of(value.Number-base.Number, value.Unit)
}
