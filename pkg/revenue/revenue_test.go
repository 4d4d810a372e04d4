package revenue

import (
	"errors"
	"math"
	"testing"

	"github.com/iwvelando/icms-educacional/pkg/dataset"
	"github.com/iwvelando/icms-educacional/pkg/measure"
)

func record(name string, year int, index, revenue float64) dataset.Record {
	r := dataset.NewRecord(name, year)
	r.CompositeIndex = index
	r.EstimatedRevenue = revenue
	return r
}

func scenarioRecords() []dataset.Record {
	return []dataset.Record{
		record("A", 2024, 0.80, 1000000),
		record("B", 2024, 0.60, 600000),
		record("C", 2024, 0.40, 300000),
		record("D", 2024, 0.90, 1200000),
		record("E", 2024, 0.50, 450000),
	}
}

func TestFitExactLine(t *testing.T) {
	var records []dataset.Record
	for i, x := range []float64{0.1, 0.3, 0.45, 0.7, 0.9, 1.0} {
		records = append(records, record(string(rune('A'+i)), 2023, x, 3+2*x))
	}

	m, err := Fit(records)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if math.Abs(m.Slope-2) > 1e-6 {
		t.Errorf("Slope = %v, expected 2", m.Slope)
	}
	if math.Abs(m.Intercept-3) > 1e-6 {
		t.Errorf("Intercept = %v, expected 3", m.Intercept)
	}
	if math.Abs(m.RSquared.Float()-1) > 1e-6 {
		t.Errorf("RSquared = %v, expected 1", m.RSquared)
	}
	if m.Samples != 6 || m.ReferenceYear != 2023 || m.TransferYear != 2025 {
		t.Errorf("model metadata = %+v", m)
	}
}

func TestFitScenario(t *testing.T) {
	m, err := Fit(scenarioRecords())
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	if math.Abs(m.Slope-1819767.4418604653) > 1e-3 {
		t.Errorf("Slope = %v, expected 1819767.44", m.Slope)
	}
	if math.Abs(m.Intercept+454651.16279069753) > 1e-3 {
		t.Errorf("Intercept = %v, expected -454651.16", m.Intercept)
	}
	if math.Abs(m.RSquared.Float()-0.9957818344446251) > 1e-9 {
		t.Errorf("RSquared = %v, expected 0.99578", m.RSquared.Float())
	}

	est := m.Estimate(0.70)
	if !est.Defined() || est.Unit != measure.UnitCurrency {
		t.Fatalf("Estimate(0.70) = %v", est)
	}
	if est.Number <= 600000 || est.Number >= 1000000 {
		t.Errorf("Estimate(0.70) = %v, expected between B and A revenues", est.Number)
	}
	if math.Abs(est.Number-819186.0465116282) > 1e-3 {
		t.Errorf("Estimate(0.70) = %v, expected 819186.05", est.Number)
	}
}

func TestEstimateMatchesFittedLine(t *testing.T) {
	m, err := Fit(scenarioRecords())
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	for _, o := range Observations(scenarioRecords()) {
		predicted := m.Estimate(o.Index).Float()
		expected := m.Intercept + m.Slope*o.Index
		if math.Abs(predicted-expected) > 1e-6 {
			t.Errorf("Estimate(%v) = %v, expected %v", o.Index, predicted, expected)
		}
		residual := m.Residual(o.Index, o.Revenue).Float()
		if math.Abs(predicted+residual-o.Revenue) > 1e-6 {
			t.Errorf("prediction %v + residual %v != observed %v", predicted, residual, o.Revenue)
		}
	}
}

func TestEstimateExtrapolates(t *testing.T) {
	m, err := Fit(scenarioRecords())
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if !m.Extrapolated(1.0) || !m.Extrapolated(0.1) || m.Extrapolated(0.6) {
		t.Error("Extrapolated() misreports the fitted range")
	}
	high := m.Estimate(1.0).Float()
	if math.Abs(high-(m.Intercept+m.Slope)) > 1e-6 {
		t.Errorf("Estimate(1.0) = %v, expected unclamped line value", high)
	}
	low := m.Estimate(0.0)
	if !low.Defined() || low.Number >= 0 {
		t.Errorf("Estimate(0) = %v, expected the negative intercept", low)
	}
	if m.Estimate(math.NaN()).Defined() {
		t.Error("Estimate(NaN) should be undefined")
	}
	if got := m.EstimateValue(measure.Undefined(measure.InsufficientData, measure.UnitIndex)); got.Reason != measure.InsufficientData {
		t.Errorf("EstimateValue(undefined) reason = %v", got.Reason)
	}
}

func TestFitInsufficientData(t *testing.T) {
	records := scenarioRecords()
	tests := []struct {
		name    string
		records []dataset.Record
	}{
		{"Empty", nil},
		{"Four records", records[:4]},
		{"Five records with one missing revenue", append(records[:4:4], record("F", 2024, 0.7, math.NaN()))},
		{"Five records with one missing index", append(records[:4:4], record("F", 2024, math.NaN(), 10))},
		{"Identical index values", []dataset.Record{
			record("A", 2024, 0.5, 1), record("B", 2024, 0.5, 2), record("C", 2024, 0.5, 3),
			record("D", 2024, 0.5, 4), record("E", 2024, 0.5, 5),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Fit(tt.records)
			if !errors.Is(err, measure.ErrInsufficientData) {
				t.Errorf("Fit() error = %v, expected ErrInsufficientData", err)
			}
		})
	}
}

func TestFitConstantRevenue(t *testing.T) {
	var records []dataset.Record
	for i, x := range []float64{0.2, 0.4, 0.6, 0.8, 1.0} {
		records = append(records, record(string(rune('A'+i)), 2024, x, 500))
	}
	m, err := Fit(records)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if m.RSquared.Defined() {
		t.Errorf("RSquared = %v, expected undefined", m.RSquared)
	}
	if m.RSquared.Reason != measure.DivisionByZero {
		t.Errorf("RSquared reason = %v, expected %v", m.RSquared.Reason, measure.DivisionByZero)
	}
	if math.Abs(m.Estimate(0.3).Float()-500) > 1e-9 {
		t.Errorf("Estimate(0.3) = %v, expected 500", m.Estimate(0.3).Float())
	}
}

func TestFitRejectsMixedYears(t *testing.T) {
	records := scenarioRecords()
	records[2].ReferenceYear = 2023
	if _, err := Fit(records); err == nil {
		t.Error("Fit() expected error for mixed reference years")
	}
}

func TestFitYear(t *testing.T) {
	records := scenarioRecords()
	records = append(records, record("A", 2023, 0.7, 100), record("B", 2023, 0.5, 50))
	table, err := dataset.NewTable(records)
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}

	m, err := FitYear(table, 2024)
	if err != nil {
		t.Fatalf("FitYear(2024) error = %v", err)
	}
	if m.Samples != 5 {
		t.Errorf("Samples = %d, expected 5", m.Samples)
	}
	if _, err := FitYear(table, 2023); !errors.Is(err, measure.ErrInsufficientData) {
		t.Errorf("FitYear(2023) error = %v, expected ErrInsufficientData", err)
	}
	if _, err := FitYear(table, 1999); !errors.Is(err, measure.ErrInsufficientData) {
		t.Errorf("FitYear(1999) error = %v, expected ErrInsufficientData", err)
	}
}

func TestTransferYear(t *testing.T) {
	if TransferYear(2024) != 2026 {
		t.Errorf("TransferYear(2024) = %d, expected 2026", TransferYear(2024))
	}
	if ReferenceYear(2025) != 2023 {
		t.Errorf("ReferenceYear(2025) = %d, expected 2023", ReferenceYear(2025))
	}
}

func TestLine(t *testing.T) {
	m, err := Fit(scenarioRecords())
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	line := m.Line(0, 1, 10)
	if len(line) != 11 {
		t.Fatalf("Line() returned %d points, expected 11", len(line))
	}
	if line[0].Index != 0 || math.Abs(line[10].Index-1) > 1e-12 {
		t.Errorf("Line() range = %v..%v", line[0].Index, line[10].Index)
	}
}
