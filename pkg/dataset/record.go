// Package dataset defines the per-municipality, per-year record and the
// read-only table handle every computation reads from.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/iwvelando/icms-educacional/pkg/measure"
)

// Record is one row of the dataset: one municipality in one reference year.
// Absent numeric cells hold NaN.
type Record struct {
	Municipality     string
	ReferenceYear    int
	CompositeIndex   float64 // IQE
	Formation        float64 // IQEF
	Participation    float64 // P
	Equity           float64 // IMEG
	EstimatedRevenue float64 // ICMS_Educacional_Estimado

	// Extended holds per-grade and per-subject scores used only by detail views.
	Extended map[string]float64
}

// NewRecord returns a record with every numeric field absent.
func NewRecord(municipality string, year int) Record {
	nan := math.NaN()
	return Record{
		Municipality:     municipality,
		ReferenceYear:    year,
		CompositeIndex:   nan,
		Formation:        nan,
		Participation:    nan,
		Equity:           nan,
		EstimatedRevenue: nan,
	}
}

// Field selects a numeric column of a Record.
type Field int

const (
	FieldCompositeIndex Field = iota
	FieldFormation
	FieldParticipation
	FieldEquity
	FieldEstimatedRevenue
)

// Column names as they appear in the source spreadsheets.
const (
	ColumnMunicipality     = "Município"
	ColumnReferenceYear    = "Ano-Referência"
	ColumnCompositeIndex   = "IQE"
	ColumnFormation        = "IQEF"
	ColumnParticipation    = "P"
	ColumnEquity           = "IMEG"
	ColumnEstimatedRevenue = "ICMS_Educacional_Estimado"
)

// Fields lists every numeric field in display order.
var Fields = []Field{
	FieldCompositeIndex,
	FieldFormation,
	FieldParticipation,
	FieldEquity,
	FieldEstimatedRevenue,
}

var fieldColumns = map[Field]string{
	FieldCompositeIndex:   ColumnCompositeIndex,
	FieldFormation:        ColumnFormation,
	FieldParticipation:    ColumnParticipation,
	FieldEquity:           ColumnEquity,
	FieldEstimatedRevenue: ColumnEstimatedRevenue,
}

var fieldAliases = map[string]Field{
	"iqe":                       FieldCompositeIndex,
	"compositeindex":            FieldCompositeIndex,
	"iqef":                      FieldFormation,
	"formation":                 FieldFormation,
	"p":                         FieldParticipation,
	"participation":             FieldParticipation,
	"imeg":                      FieldEquity,
	"equity":                    FieldEquity,
	"icms":                      FieldEstimatedRevenue,
	"icms_educacional_estimado": FieldEstimatedRevenue,
	"estimatedrevenue":          FieldEstimatedRevenue,
	"estimatedrevenueshare":     FieldEstimatedRevenue,
	"revenue":                   FieldEstimatedRevenue,
}

// ErrUnknownField is returned by ParseField for names that match no column.
var ErrUnknownField = errors.New("unknown metric")

// ParseField resolves a column name or alias, case-insensitively.
func ParseField(name string) (Field, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if f, ok := fieldAliases[key]; ok {
		return f, nil
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownField, name)
}

// Column returns the source column name of f.
func (f Field) Column() string {
	return fieldColumns[f]
}

func (f Field) String() string {
	if c, ok := fieldColumns[f]; ok {
		return c
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// Unit returns the unit tag of values in f.
func (f Field) Unit() measure.Unit {
	if f == FieldEstimatedRevenue {
		return measure.UnitCurrency
	}
	return measure.UnitIndex
}

// Of reads f from r. Unknown fields read as NaN.
func (f Field) Of(r Record) float64 {
	switch f {
	case FieldCompositeIndex:
		return r.CompositeIndex
	case FieldFormation:
		return r.Formation
	case FieldParticipation:
		return r.Participation
	case FieldEquity:
		return r.Equity
	case FieldEstimatedRevenue:
		return r.EstimatedRevenue
	}
	return math.NaN()
}

// Value reads f from r as a measure.Value.
func (f Field) Value(r Record) measure.Value {
	return measure.Of(f.Of(r), f.Unit())
}

// Defined reports whether r holds a finite value for f.
func (f Field) Defined(r Record) bool {
	v := f.Of(r)
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
