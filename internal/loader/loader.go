// Package loader reads the IQE / ICMS Educacional dataset from a spreadsheet,
// a CSV file or a SQL table and builds the read-only dataset table.
package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/iwvelando/icms-educacional/internal/config"
	"github.com/iwvelando/icms-educacional/pkg/dataset"
	"github.com/iwvelando/icms-educacional/pkg/mathutil"
	"github.com/iwvelando/icms-educacional/pkg/measure"
	"go.uber.org/zap"
)

// Kind identifies a dataset source format.
type Kind string

const (
	KindXLSX     Kind = "xlsx"
	KindCSV      Kind = "csv"
	KindSQLite   Kind = "sqlite"
	KindPostgres Kind = "postgres"
)

// DetectKind infers the source format from the configured driver or path.
func DetectKind(src config.DatasetConfig) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(src.Driver)) {
	case "sqlite", "sqlite3":
		return KindSQLite, nil
	case "postgres", "postgresql", "pgx":
		return KindPostgres, nil
	case "":
	default:
		return "", fmt.Errorf("unsupported dataset driver: %s", src.Driver)
	}

	path := strings.TrimSpace(src.Path)
	lower := strings.ToLower(path)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return KindPostgres, nil
	}
	switch filepath.Ext(lower) {
	case ".xlsx", ".xlsm":
		return KindXLSX, nil
	case ".csv", ".txt":
		return KindCSV, nil
	case ".db", ".sqlite", ".sqlite3":
		return KindSQLite, nil
	}
	return "", fmt.Errorf("cannot infer dataset format from %q", path)
}

// Load reads the configured dataset. It is meant to run once at startup; the
// returned table is shared read-only by every request.
func Load(ctx context.Context, logger *zap.Logger, src config.DatasetConfig) (*dataset.Table, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	kind, err := DetectKind(src)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	switch kind {
	case KindXLSX:
		rows, err = readXLSX(src.Path, src.Sheet)
	case KindCSV:
		rows, err = readCSV(src.Path)
	case KindSQLite, KindPostgres:
		rows, err = readSQL(ctx, kind, src.Path, src.Table)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s dataset %s: %w", kind, src.Path, err)
	}

	table, skipped, err := FromRows(rows)
	if err != nil {
		return nil, err
	}

	if skipped > 0 {
		logger.Warn("skipped rows without municipality or reference year",
			zap.String("op", "loader.Load"),
			zap.Int("skipped", skipped),
		)
	}
	logger.Info("dataset loaded",
		zap.String("op", "loader.Load"),
		zap.String("kind", string(kind)),
		zap.Int("records", table.Len()),
		zap.Ints("years", table.Years()),
	)
	return table, nil
}

// FromRows builds a table from a header row followed by data rows. Rows
// without a municipality name or a parseable year are skipped and counted.
// The municipality and reference year columns are required; absent numeric
// columns leave their fields undefined and are reported by Table.Require.
func FromRows(rows [][]string) (*dataset.Table, int, error) {
	if len(rows) == 0 {
		return nil, 0, &measure.MissingColumnError{Column: dataset.ColumnMunicipality}
	}

	header := rows[0]
	positions := make(map[column]int)
	extended := make(map[int]string)
	for i, h := range header {
		c := classify(h)
		if c == columnUnknown {
			if name := NormalizeHeader(h); name != "" {
				extended[i] = name
			}
			continue
		}
		if _, dup := positions[c]; !dup {
			positions[c] = i
		}
	}

	if _, ok := positions[columnMunicipality]; !ok {
		return nil, 0, &measure.MissingColumnError{Column: dataset.ColumnMunicipality}
	}
	if _, ok := positions[columnReferenceYear]; !ok {
		return nil, 0, &measure.MissingColumnError{Column: dataset.ColumnReferenceYear}
	}

	var present []dataset.Field
	for _, f := range dataset.Fields {
		if _, ok := positions[fieldColumns[f]]; ok {
			present = append(present, f)
		}
	}

	cell := func(row []string, c column) string {
		i, ok := positions[c]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	records := make([]dataset.Record, 0, len(rows)-1)
	skipped := 0
	for _, row := range rows[1:] {
		name := dataset.CleanName(cell(row, columnMunicipality))
		year, ok := ParseYear(cell(row, columnReferenceYear))
		if name == "" || !ok {
			if !blank(row) {
				skipped++
			}
			continue
		}

		r := dataset.NewRecord(name, year)
		r.CompositeIndex = ParseNumber(cell(row, columnCompositeIndex))
		r.Formation = ParseNumber(cell(row, columnFormation))
		r.Participation = ParseNumber(cell(row, columnParticipation))
		r.Equity = ParseNumber(cell(row, columnEquity))
		r.EstimatedRevenue = ParseNumber(cell(row, columnEstimatedRevenue))

		for i, col := range extended {
			if i >= len(row) {
				continue
			}
			v := ParseNumber(row[i])
			if mathutil.IsFinite(v) {
				if r.Extended == nil {
					r.Extended = make(map[string]float64)
				}
				r.Extended[col] = v
			}
		}
		records = append(records, r)
	}

	table, err := dataset.NewTableWithColumns(records, present)
	if err != nil {
		return nil, skipped, err
	}
	return table, skipped, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
