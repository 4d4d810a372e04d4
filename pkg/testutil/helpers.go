// Package testutil provides common utility functions for testing.
package testutil

import (
	"math"
	"testing"

	"github.com/iwvelando/icms-educacional/internal/dashboard"
	"github.com/iwvelando/icms-educacional/pkg/dataset"
	"github.com/iwvelando/icms-educacional/pkg/indicator"
)

// Record returns a record whose three sub-indicators all equal sub, with the
// composite index aggregated from them.
func Record(name string, year int, sub, revenue float64) dataset.Record {
	r := dataset.NewRecord(name, year)
	r.Formation, r.Participation, r.Equity = sub, sub, sub
	r.CompositeIndex = indicator.Aggregate(sub, sub, sub).Float()
	r.EstimatedRevenue = revenue
	return r
}

// StateRecords is a two-year fixture. 2024 has five municipalities with
// revenue and one without; 2023 has four, too few for a revenue fit.
func StateRecords() []dataset.Record {
	return []dataset.Record{
		Record("Vitória", 2024, 0.8, 1000000),
		Record("Serra", 2024, 0.6, 600000),
		Record("Cariacica", 2024, 0.4, 300000),
		Record("Vila Velha", 2024, 0.9, 1200000),
		Record("Guarapari", 2024, 0.5, 450000),
		Record("Afonso Cláudio", 2024, 0.3, math.NaN()),
		Record("Vitória", 2023, 0.75, 900000),
		Record("Serra", 2023, 0.6, 950000),
		Record("Vila Velha", 2023, 0.9, 1100000),
		Record("Cariacica", 2023, 0.4, 300000),
	}
}

// Table builds a table from records, failing the test on error.
func Table(tb testing.TB, records []dataset.Record) *dataset.Table {
	tb.Helper()
	table, err := dataset.NewTable(records)
	if err != nil {
		tb.Fatalf("NewTable() error = %v", err)
	}
	return table
}

// StateTable is Table over StateRecords.
func StateTable(tb testing.TB) *dataset.Table {
	tb.Helper()
	return Table(tb, StateRecords())
}

// FindScenario finds a scenario by name in the results slice.
// Returns a pointer to the result if found, nil otherwise.
func FindScenario(results []dashboard.ScenarioResult, name string) *dashboard.ScenarioResult {
	for i := range results {
		if results[i].Name == name {
			return &results[i]
		}
	}
	return nil
}

// Float returns a pointer to v, for optional scenario inputs.
func Float(v float64) *float64 {
	return &v
}
