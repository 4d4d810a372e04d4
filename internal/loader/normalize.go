package loader

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/iwvelando/icms-educacional/pkg/dataset"
)

type column int

const (
	columnUnknown column = iota
	columnMunicipality
	columnReferenceYear
	columnCompositeIndex
	columnFormation
	columnParticipation
	columnEquity
	columnEstimatedRevenue
)

// Header keys are folded with dataset.NameKey before lookup.
var headerAliases = map[string]column{
	"municipio":                 columnMunicipality,
	"municipality":              columnMunicipality,
	"ano-referencia":            columnReferenceYear,
	"ano referencia":            columnReferenceYear,
	"ano_referencia":            columnReferenceYear,
	"referenceyear":             columnReferenceYear,
	"iqe":                       columnCompositeIndex,
	"compositeindex":            columnCompositeIndex,
	"iqef":                      columnFormation,
	"subindicatorformation":     columnFormation,
	"p":                         columnParticipation,
	"subindicatorparticipation": columnParticipation,
	"imeg":                      columnEquity,
	"subindicatorequity":        columnEquity,
	"icms_educacional_estimado": columnEstimatedRevenue,
	"icms educacional estimado": columnEstimatedRevenue,
	"estimatedrevenueshare":     columnEstimatedRevenue,
}

var fieldColumns = map[dataset.Field]column{
	dataset.FieldCompositeIndex:   columnCompositeIndex,
	dataset.FieldFormation:        columnFormation,
	dataset.FieldParticipation:    columnParticipation,
	dataset.FieldEquity:           columnEquity,
	dataset.FieldEstimatedRevenue: columnEstimatedRevenue,
}

// NormalizeHeader strips surrounding and repeated whitespace, including
// non-breaking spaces and byte order marks, from a column name.
func NormalizeHeader(name string) string {
	name = strings.ReplaceAll(name, "\ufeff", "")
	return dataset.CleanName(name)
}

func classify(header string) column {
	return headerAliases[dataset.NameKey(NormalizeHeader(header))]
}

var missingMarkers = map[string]struct{}{
	"":     {},
	"-":    {},
	"—":    {},
	"nan":  {},
	"null": {},
	"n/a":  {},
	"na":   {},
	"#n/d": {},
	"#n/a": {},
}

// thousandsGrouped matches an integer written with dot thousands separators.
var thousandsGrouped = regexp.MustCompile(`^-?[1-9]\d{0,2}(\.\d{3})+$`)

// ParseNumber coerces a spreadsheet cell to a float. Brazilian formatting is
// accepted: "1.234,56", "0,785" and "1.000.000" parse as 1234.56, 0.785 and
// 1000000. A single dot group such as "1.234" is a decimal point unless the
// cell carries the R$ prefix. Blank or non-numeric cells yield NaN.
func ParseNumber(cell string) float64 {
	s := strings.TrimSpace(strings.ReplaceAll(cell, "\u00a0", " "))
	currency := strings.HasPrefix(s, "R$")
	s = strings.TrimSpace(strings.TrimPrefix(s, "R$"))
	s = strings.ReplaceAll(s, " ", "")
	if _, missing := missingMarkers[strings.ToLower(s)]; missing {
		return math.NaN()
	}

	switch {
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case thousandsGrouped.MatchString(s) && (currency || strings.Count(s, ".") > 1):
		s = strings.ReplaceAll(s, ".", "")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}

// ParseYear coerces a cell to an integer year, accepting "2024" and "2024.0".
func ParseYear(cell string) (int, bool) {
	v := ParseNumber(cell)
	if math.IsNaN(v) || v != math.Trunc(v) {
		return 0, false
	}
	return int(v), true
}
