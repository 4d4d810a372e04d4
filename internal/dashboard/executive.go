package dashboard

import (
	"fmt"

	"github.com/iwvelando/icms-educacional/pkg/dataset"
	"github.com/iwvelando/icms-educacional/pkg/measure"
	"github.com/iwvelando/icms-educacional/pkg/ranking"
	"github.com/iwvelando/icms-educacional/pkg/revenue"
	"github.com/iwvelando/icms-educacional/pkg/temporal"
	"go.uber.org/zap"
)

// YearRevenue is a municipality's estimated revenue standing in one
// reference year.
type YearRevenue struct {
	ReferenceYear int           `json:"referenceYear"`
	TransferYear  int           `json:"transferYear"`
	Revenue       measure.Value `json:"revenue"`
	Position      measure.Value `json:"position"`
	Total         int           `json:"total"`
	Share         measure.Value `json:"share"`
}

// ExecutiveView compares a municipality's estimated revenue across two
// reference years.
type ExecutiveView struct {
	Municipality   string         `json:"municipality"`
	Compare        YearRevenue    `json:"compare"`
	Reference      YearRevenue    `json:"reference"`
	RevenueDelta   temporal.Delta `json:"revenueDelta"`
	DeltaPositions measure.Value  `json:"deltaPositions"`
	ShareDelta     measure.Value  `json:"shareDelta"`
}

// Executive builds the executive view of municipality for year against
// compareYear. A zero year selects the latest year; a zero compareYear selects
// the year before year.
func Executive(logger *zap.Logger, table *dataset.Table, municipality string, year, compareYear int) (ExecutiveView, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := table.Require(dataset.FieldEstimatedRevenue); err != nil {
		return ExecutiveView{}, err
	}
	name, err := table.Resolve(municipality)
	if err != nil {
		return ExecutiveView{}, err
	}
	year, err = ResolveYear(table, year)
	if err != nil {
		return ExecutiveView{}, err
	}

	if compareYear == 0 {
		previous, ok := PreviousYear(table, year)
		if !ok {
			return ExecutiveView{}, fmt.Errorf("no reference year before %d to compare with: %w", year, measure.ErrInsufficientData)
		}
		compareYear = previous
	} else if !table.HasYear(compareYear) {
		return ExecutiveView{}, fmt.Errorf("comparison year %d: %w", compareYear, measure.ErrNotFound)
	}

	view := ExecutiveView{
		Municipality: name,
		Compare:      standing(table, name, compareYear),
		Reference:    standing(table, name, year),
	}
	view.RevenueDelta = temporal.Compare(view.Compare.Revenue, view.Reference.Revenue)
	view.DeltaPositions = temporal.ComparePositions(view.Compare.Position, view.Reference.Position)
	view.ShareDelta = temporal.CompareShares(view.Compare.Share, view.Reference.Share)

	logger.Debug("executive view computed",
		zap.String("op", "dashboard.Executive"),
		zap.String("municipality", name),
		zap.Int("year", year),
		zap.Int("compareYear", compareYear),
	)
	return view, nil
}

// standing ranks revenue within one year. Municipalities without an estimated
// revenue take no position.
func standing(table *dataset.Table, name string, year int) YearRevenue {
	r := ranking.Rank(table.Year(year), dataset.FieldEstimatedRevenue, name)
	return YearRevenue{
		ReferenceYear: year,
		TransferYear:  revenue.TransferYear(year),
		Revenue:       r.Value,
		Position:      r.Position,
		Total:         r.Total,
		Share:         r.Share,
	}
}
