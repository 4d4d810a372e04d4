// Package format renders numeric results with Brazilian conventions:
// period as thousands separator, comma as decimal separator.
package format

import (
	"fmt"
	"math"
	"strings"

	"github.com/iwvelando/icms-educacional/pkg/measure"
)

// Missing is shown in place of undefined values.
const Missing = "—"

// Currency returns a currency string with the real sign and separators (e.g., "R$ 1.234,56").
func Currency(amount float64) string {
	if !finite(amount) {
		return Missing
	}
	formatted := formatPositive(math.Abs(amount), 2)
	if amount < 0 && formatted != "0,00" {
		return "-R$ " + formatted
	}
	return "R$ " + formatted
}

// SignedCurrency is Currency with an explicit "+" for positive amounts.
func SignedCurrency(amount float64) string {
	if finite(amount) && amount > 0 {
		return "+" + Currency(amount)
	}
	return Currency(amount)
}

// Number returns value with nd decimals and separators, without a unit.
func Number(value float64, nd int) string {
	if !finite(value) {
		return Missing
	}
	formatted := formatPositive(math.Abs(value), nd)
	if value < 0 && strings.Trim(formatted, "0,.") != "" {
		return "-" + formatted
	}
	return formatted
}

// Percent returns value with nd decimals followed by "%" (e.g., "12,50%").
func Percent(value float64, nd int) string {
	if !finite(value) {
		return Missing
	}
	return Number(value, nd) + "%"
}

// PercentagePoints returns a signed percentage-point delta (e.g., "+0,125 p.p.").
// It returns an empty string for undefined deltas so callers can omit the badge.
func PercentagePoints(value float64, nd int) string {
	if !finite(value) {
		return ""
	}
	sign := "+"
	if value < 0 && strings.Trim(formatPositive(math.Abs(value), nd), "0,.") != "" {
		sign = "-"
	}
	return sign + formatPositive(math.Abs(value), nd) + " p.p."
}

// Position returns a rank such as "3º / 78".
func Position(position float64, total int) string {
	if !finite(position) {
		return Missing
	}
	return fmt.Sprintf("%dº / %d", int(position), total)
}

// PositionDelta returns a movement such as "+2 posições". Zero counts as
// "+0"; undefined values yield an empty string.
func PositionDelta(delta float64) string {
	if !finite(delta) {
		return ""
	}
	d := int(delta)
	label := "posições"
	if d == 1 || d == -1 {
		label = "posição"
	}
	if d >= 0 {
		return fmt.Sprintf("+%d %s", d, label)
	}
	return fmt.Sprintf("%d %s", d, label)
}

// Value renders v according to its unit.
func Value(v measure.Value) string {
	if !v.Defined() {
		if v.Unit == measure.UnitPercentagePoint {
			return ""
		}
		return Missing
	}
	switch v.Unit {
	case measure.UnitCurrency:
		return Currency(v.Number)
	case measure.UnitPercent:
		return Percent(v.Number, 2)
	case measure.UnitPercentagePoint:
		return PercentagePoints(v.Number, 3)
	case measure.UnitIndex:
		return Number(v.Number, 3)
	case measure.UnitPosition, measure.UnitCount:
		return Number(v.Number, 0)
	}
	return Number(v.Number, 2)
}

func formatPositive(value float64, nd int) string {
	if nd < 0 {
		nd = 0
	}
	formatted := fmt.Sprintf("%.*f", nd, value)
	parts := strings.SplitN(formatted, ".", 2)
	intPart := parts[0]

	if len(intPart) > 3 {
		var builder strings.Builder
		for i, digit := range intPart {
			if i > 0 && (len(intPart)-i)%3 == 0 {
				builder.WriteByte('.')
			}
			builder.WriteRune(digit)
		}
		intPart = builder.String()
	}

	if len(parts) == 2 {
		return intPart + "," + parts[1]
	}
	return intPart
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
