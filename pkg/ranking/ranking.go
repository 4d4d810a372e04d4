// Package ranking orders municipalities by a numeric column within one
// reference year and locates a target municipality in that order.
package ranking

import (
	"encoding/json"
	"sort"

	"github.com/iwvelando/icms-educacional/pkg/dataset"
	"github.com/iwvelando/icms-educacional/pkg/mathutil"
	"github.com/iwvelando/icms-educacional/pkg/measure"
)

// Entry is one ranked municipality.
type Entry struct {
	Position     int     `json:"position"`
	Municipality string  `json:"municipality"`
	Value        float64 `json:"value"`
	Share        float64 `json:"share"`
}

// MarshalJSON writes the share as a measure so an undefined share encodes
// as null.
func (e Entry) MarshalJSON() ([]byte, error) {
	type entry Entry
	return json.Marshal(struct {
		entry
		Share measure.Value `json:"share"`
	}{entry(e), measure.Of(e.Share, measure.UnitPercent)})
}

// Result locates a target municipality in a ranking.
type Result struct {
	Municipality string        `json:"municipality"`
	Field        string        `json:"field"`
	Value        measure.Value `json:"value"`
	Position     measure.Value `json:"position"`
	Total        int           `json:"total"`
	Share        measure.Value `json:"share"`
}

// Ranked reports whether the target holds a position.
func (r Result) Ranked() bool {
	return r.Position.Defined()
}

// Order ranks records by field, descending. Records whose field is undefined
// are left out and take no position. Equal values keep their input order.
// Share is each value's percentage of the ranked total, NaN when the total is
// zero.
func Order(records []dataset.Record, field dataset.Field) []Entry {
	entries := make([]Entry, 0, len(records))
	for _, r := range records {
		if !field.Defined(r) {
			continue
		}
		entries = append(entries, Entry{Municipality: r.Municipality, Value: field.Of(r)})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Value > entries[j].Value
	})

	total := 0.0
	for _, e := range entries {
		total += e.Value
	}
	for i := range entries {
		entries[i].Position = i + 1
		entries[i].Share = mathutil.Percentage(entries[i].Value, total)
	}
	return entries
}

// Rank places target in the ranking of records by field. The records are
// expected to share one reference year. A target without a defined value
// is unranked; Total still counts the ranked municipalities.
func Rank(records []dataset.Record, field dataset.Field, target string) Result {
	entries := Order(records, field)
	result := Result{
		Municipality: dataset.CleanName(target),
		Field:        field.Column(),
		Value:        measure.Undefined(measure.Unranked, field.Unit()),
		Position:     measure.Undefined(measure.Unranked, measure.UnitPosition),
		Total:        len(entries),
		Share:        measure.Undefined(measure.Unranked, measure.UnitPercent),
	}

	key := dataset.NameKey(target)
	total := 0.0
	found := -1
	for i, e := range entries {
		total += e.Value
		if found < 0 && dataset.NameKey(e.Municipality) == key {
			found = i
		}
	}
	if found < 0 {
		return result
	}

	e := entries[found]
	result.Municipality = e.Municipality
	result.Value = measure.Of(e.Value, field.Unit())
	result.Position = measure.Of(float64(e.Position), measure.UnitPosition)
	if total == 0 {
		result.Share = measure.Undefined(measure.DivisionByZero, measure.UnitPercent)
	} else {
		result.Share = measure.Of(mathutil.Percentage(e.Value, total), measure.UnitPercent)
	}
	return result
}

// Top returns the first n entries of an ordering, or all of them when n <= 0.
func Top(entries []Entry, n int) []Entry {
	if n <= 0 || n >= len(entries) {
		return entries
	}
	return entries[:n]
}
