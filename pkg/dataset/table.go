package dataset

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/iwvelando/icms-educacional/pkg/measure"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Table is the read-only record set loaded once per process. Accessors return
// copies so callers cannot mutate the shared rows.
type Table struct {
	records []Record
	byYear  map[int][]int
	byKey   map[string]string
	years   []int
	columns map[Field]bool
}

// NewTable validates records and builds the lookup indexes. Municipality
// names must be non-empty and unique within a reference year. Every numeric
// column is considered present.
func NewTable(records []Record) (*Table, error) {
	return NewTableWithColumns(records, Fields)
}

// NewTableWithColumns is NewTable for a source that only carried the given
// numeric columns.
func NewTableWithColumns(records []Record, columns []Field) (*Table, error) {
	t := &Table{
		records: make([]Record, 0, len(records)),
		byYear:  make(map[int][]int),
		byKey:   make(map[string]string),
		columns: make(map[Field]bool, len(columns)),
	}
	for _, f := range columns {
		t.columns[f] = true
	}

	seen := make(map[int]map[string]struct{})
	for i, r := range records {
		name := CleanName(r.Municipality)
		if name == "" {
			return nil, fmt.Errorf("row %d: empty municipality name", i+1)
		}
		key := NameKey(name)
		if seen[r.ReferenceYear] == nil {
			seen[r.ReferenceYear] = make(map[string]struct{})
		}
		if _, dup := seen[r.ReferenceYear][key]; dup {
			return nil, fmt.Errorf("row %d: duplicate municipality %q in reference year %d", i+1, name, r.ReferenceYear)
		}
		seen[r.ReferenceYear][key] = struct{}{}

		r.Municipality = name
		if r.Extended != nil {
			ext := make(map[string]float64, len(r.Extended))
			for k, v := range r.Extended {
				ext[k] = v
			}
			r.Extended = ext
		}
		if _, ok := t.byYear[r.ReferenceYear]; !ok {
			t.years = append(t.years, r.ReferenceYear)
		}
		t.byYear[r.ReferenceYear] = append(t.byYear[r.ReferenceYear], len(t.records))
		if _, ok := t.byKey[key]; !ok {
			t.byKey[key] = name
		}
		t.records = append(t.records, r)
	}
	sort.Ints(t.years)
	return t, nil
}

// HasColumn reports whether the source carried field.
func (t *Table) HasColumn(field Field) bool {
	return t.columns[field]
}

// Require returns a *measure.MissingColumnError naming the first absent field.
func (t *Table) Require(fields ...Field) error {
	for _, f := range fields {
		if !t.columns[f] {
			return &measure.MissingColumnError{Column: f.Column()}
		}
	}
	return nil
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.records)
}

// Records returns every record in load order.
func (t *Table) Records() []Record {
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

// Year returns the records of one reference year in load order.
func (t *Table) Year(year int) []Record {
	idx := t.byYear[year]
	out := make([]Record, 0, len(idx))
	for _, i := range idx {
		out = append(out, t.records[i])
	}
	return out
}

// Years returns the reference years present, ascending.
func (t *Table) Years() []int {
	return append([]int(nil), t.years...)
}

// HasYear reports whether any record belongs to year.
func (t *Table) HasYear(year int) bool {
	_, ok := t.byYear[year]
	return ok
}

// LatestYear returns the most recent reference year, or false for an empty table.
func (t *Table) LatestYear() (int, bool) {
	if len(t.years) == 0 {
		return 0, false
	}
	return t.years[len(t.years)-1], true
}

// Municipalities returns the distinct municipality names in Portuguese
// alphabetical order.
func (t *Table) Municipalities() []string {
	names := make([]string, 0, len(t.byKey))
	for _, name := range t.byKey {
		names = append(names, name)
	}
	collate.New(language.BrazilianPortuguese).SortStrings(names)
	return names
}

// Resolve maps a user-typed municipality name to its canonical spelling,
// ignoring case, accents and redundant whitespace.
func (t *Table) Resolve(name string) (string, error) {
	if canonical, ok := t.byKey[NameKey(name)]; ok {
		return canonical, nil
	}
	return "", fmt.Errorf("municipality %q: %w", strings.TrimSpace(name), measure.ErrNotFound)
}

// Find returns the record of municipality in year.
func (t *Table) Find(municipality string, year int) (Record, error) {
	key := NameKey(municipality)
	for _, i := range t.byYear[year] {
		if NameKey(t.records[i].Municipality) == key {
			return t.records[i], nil
		}
	}
	return Record{}, fmt.Errorf("municipality %q in reference year %d: %w", strings.TrimSpace(municipality), year, measure.ErrNotFound)
}

// History returns every record of municipality ordered by reference year.
func (t *Table) History(municipality string) []Record {
	key := NameKey(municipality)
	var out []Record
	for _, year := range t.years {
		for _, i := range t.byYear[year] {
			if NameKey(t.records[i].Municipality) == key {
				out = append(out, t.records[i])
				break
			}
		}
	}
	return out
}

// CleanName trims whitespace, including non-breaking spaces, and collapses
// internal runs of whitespace.
func CleanName(name string) string {
	name = strings.ReplaceAll(name, "\u00a0", " ")
	return strings.Join(strings.Fields(name), " ")
}

// NameKey folds a name to its lookup key: lower case without diacritics.
func NameKey(name string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), CleanName(name))
	if err != nil {
		folded = CleanName(name)
	}
	return strings.ToLower(folded)
}
