// Package measure defines the value-or-undefined result type shared by every
// numeric operation, together with the unit tags and failure reasons the
// presentation layer relies on.
package measure

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Unit tags a numeric result so the presentation layer can format it.
type Unit int

const (
	UnitNone Unit = iota
	UnitIndex
	UnitCurrency
	UnitPercent
	UnitPercentagePoint
	UnitPosition
	UnitCount
)

var unitNames = map[Unit]string{
	UnitNone:            "none",
	UnitIndex:           "index",
	UnitCurrency:        "currency",
	UnitPercent:         "percent",
	UnitPercentagePoint: "percentage-point",
	UnitPosition:        "position",
	UnitCount:           "count",
}

func (u Unit) String() string {
	if name, ok := unitNames[u]; ok {
		return name
	}
	return fmt.Sprintf("unit(%d)", int(u))
}

// Reason explains why a Value is or is not defined.
type Reason int

const (
	Defined Reason = iota
	UndefinedValue
	DivisionByZero
	InsufficientData
	Unranked
)

var reasonNames = map[Reason]string{
	Defined:          "defined",
	UndefinedValue:   "undefined-value",
	DivisionByZero:   "division-by-zero",
	InsufficientData: "insufficient-data",
	Unranked:         "unranked",
}

func (r Reason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

// Value is a number that may be undefined. The zero Value is a defined 0 with
// no unit; use Of or Undefined to build values.
type Value struct {
	Number float64
	Unit   Unit
	Reason Reason
}

// Of wraps x. Non-finite inputs produce an UndefinedValue.
func Of(x float64, unit Unit) Value {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return Value{Number: math.NaN(), Unit: unit, Reason: UndefinedValue}
	}
	return Value{Number: x, Unit: unit, Reason: Defined}
}

// Undefined returns an undefined value carrying the given reason.
func Undefined(reason Reason, unit Unit) Value {
	if reason == Defined {
		reason = UndefinedValue
	}
	return Value{Number: math.NaN(), Unit: unit, Reason: reason}
}

// Defined reports whether v holds a usable number.
func (v Value) Defined() bool {
	return v.Reason == Defined
}

// Float returns the number, or NaN when v is undefined.
func (v Value) Float() float64 {
	if !v.Defined() {
		return math.NaN()
	}
	return v.Number
}

func (v Value) String() string {
	if !v.Defined() {
		return "undefined (" + v.Reason.String() + ")"
	}
	return fmt.Sprintf("%g %s", v.Number, v.Unit)
}

type jsonValue struct {
	Value  *float64 `json:"value"`
	Unit   string   `json:"unit"`
	Reason string   `json:"reason"`
}

// MarshalJSON renders undefined values as a null number.
func (v Value) MarshalJSON() ([]byte, error) {
	out := jsonValue{Unit: v.Unit.String(), Reason: v.Reason.String()}
	if v.Defined() {
		n := v.Number
		out.Value = &n
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the form produced by MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	var in jsonValue
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	unit := UnitNone
	for u, name := range unitNames {
		if name == in.Unit {
			unit = u
		}
	}
	if in.Value == nil {
		reason := UndefinedValue
		for r, name := range reasonNames {
			if name == in.Reason && r != Defined {
				reason = r
			}
		}
		*v = Undefined(reason, unit)
		return nil
	}
	*v = Of(*in.Value, unit)
	return nil
}

// Sentinel errors for failures that abort an operation rather than yield an
// undefined number.
var (
	ErrInsufficientData = errors.New("not enough data")
	ErrNotFound         = errors.New("not found")
)

// MissingColumnError reports a required dataset column that is absent.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("column '%s' not found in dataset", e.Column)
}

// ReasonOf maps an error onto the Reason used for undefined values.
func ReasonOf(err error) Reason {
	switch {
	case err == nil:
		return Defined
	case errors.Is(err, ErrInsufficientData):
		return InsufficientData
	default:
		return UndefinedValue
	}
}
