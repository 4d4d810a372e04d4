// Package validation provides configuration validation utilities.
package validation

import (
	"fmt"
	"math"
)

// ValidateUnitInterval warns when a sub-indicator or index input lies outside
// [0,1]. Such values are still simulated as given.
func ValidateUnitInterval(scenario, field string, value float64) []string {
	if math.IsNaN(value) || value < 0 || value > 1 {
		return []string{fmt.Sprintf("Scenario '%s' %s %v is outside [0, 1]", scenario, field, value)}
	}
	return nil
}

// ValidateYears checks the selected reference and comparison years.
func ValidateYears(referenceYear, compareYear int) []string {
	var warnings []string

	if referenceYear < 0 || compareYear < 0 {
		warnings = append(warnings, fmt.Sprintf("negative year in selection (%d, %d)", referenceYear, compareYear))
	}

	if referenceYear != 0 && compareYear != 0 && compareYear >= referenceYear {
		warnings = append(warnings, fmt.Sprintf("compare year %d is not earlier than reference year %d",
			compareYear, referenceYear))
	}

	return warnings
}
