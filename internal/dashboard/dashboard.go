// Package dashboard assembles the views shown to a municipal manager: the
// executive revenue summary, the indicator breakdown and the scenario
// simulations. Every view reads from the shared read-only dataset table.
package dashboard

import (
	"fmt"

	"github.com/iwvelando/icms-educacional/pkg/dataset"
	"github.com/iwvelando/icms-educacional/pkg/measure"
)

// ResolveYear returns year when the table holds it, or the latest year in the
// table when year is zero.
func ResolveYear(table *dataset.Table, year int) (int, error) {
	if year == 0 {
		latest, ok := table.LatestYear()
		if !ok {
			return 0, fmt.Errorf("dataset has no reference years: %w", measure.ErrInsufficientData)
		}
		return latest, nil
	}
	if !table.HasYear(year) {
		return 0, fmt.Errorf("reference year %d: %w", year, measure.ErrNotFound)
	}
	return year, nil
}

// PreviousYear returns the latest year in the table before year.
func PreviousYear(table *dataset.Table, year int) (int, bool) {
	years := table.Years()
	for i := len(years) - 1; i >= 0; i-- {
		if years[i] < year {
			return years[i], true
		}
	}
	return 0, false
}
