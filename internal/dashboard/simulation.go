package dashboard

import (
	"fmt"

	"github.com/iwvelando/icms-educacional/internal/config"
	"github.com/iwvelando/icms-educacional/pkg/dataset"
	"github.com/iwvelando/icms-educacional/pkg/measure"
	"github.com/iwvelando/icms-educacional/pkg/revenue"
	"github.com/iwvelando/icms-educacional/pkg/simulator"
	"go.uber.org/zap"
)

// ScenarioResult is the outcome of one named scenario. Error is set instead
// of a result when the scenario could not be run.
type ScenarioResult struct {
	Name string `json:"name"`
	simulator.Result
	Error string `json:"error,omitempty"`
}

// SimulationView holds the fitted revenue model and the outcome of each
// scenario. The model's R² always accompanies the estimates.
type SimulationView struct {
	Municipality  string           `json:"municipality"`
	ReferenceYear int              `json:"referenceYear"`
	TransferYear  int              `json:"transferYear"`
	Model         revenue.Model    `json:"model"`
	Scenarios     []ScenarioResult `json:"scenarios"`
}

// Simulate fits the revenue model for year, or the latest year when year is
// zero, and runs every scenario for municipality.
func Simulate(logger *zap.Logger, table *dataset.Table, municipality string, year int, scenarios []config.Scenario) (SimulationView, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := table.Require(dataset.FieldCompositeIndex, dataset.FieldEstimatedRevenue); err != nil {
		return SimulationView{}, err
	}
	name, err := table.Resolve(municipality)
	if err != nil {
		return SimulationView{}, err
	}
	year, err = ResolveYear(table, year)
	if err != nil {
		return SimulationView{}, err
	}
	if _, err := table.Find(name, year); err != nil {
		return SimulationView{}, fmt.Errorf("insufficient reference data: %w (%w)", err, measure.ErrInsufficientData)
	}

	sim, err := simulator.New(table, year)
	if err != nil {
		return SimulationView{}, err
	}

	view := SimulationView{
		Municipality:  name,
		ReferenceYear: year,
		TransferYear:  revenue.TransferYear(year),
		Model:         sim.Model(),
	}
	for _, s := range scenarios {
		out := ScenarioResult{Name: s.Name}
		in, err := s.Input()
		if err == nil {
			out.Result, err = sim.Simulate(name, in)
		}
		if err != nil {
			out.Error = err.Error()
			logger.Warn("scenario could not be simulated",
				zap.String("op", "dashboard.Simulate"),
				zap.String("scenario", s.Name),
				zap.Error(err),
			)
		}
		view.Scenarios = append(view.Scenarios, out)
	}

	logger.Debug("simulation view computed",
		zap.String("op", "dashboard.Simulate"),
		zap.String("municipality", name),
		zap.Int("year", year),
		zap.Int("scenarios", len(view.Scenarios)),
	)
	return view, nil
}
