package loader

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/iwvelando/icms-educacional/pkg/constants"
	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// readSQL reads every row of table as strings, with the column names as the
// header row.
func readSQL(ctx context.Context, kind Kind, dsn, table string) ([][]string, error) {
	var drvName string
	switch kind {
	case KindSQLite:
		drvName = "sqlite" // modernc driver
	case KindPostgres:
		drvName = "pgx" // pgx stdlib driver
	default:
		return nil, fmt.Errorf("unsupported driver: %s", kind)
	}

	if table == "" {
		table = constants.DefaultSQLTable
	}
	if !identifier.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = db.Close()
	}()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM "%s"`, table))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := [][]string{columns}
	cells := make([]sql.NullString, len(columns))
	dest := make([]any, len(columns))
	for i := range cells {
		dest[i] = &cells[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		row := make([]string, len(columns))
		for i, c := range cells {
			if c.Valid {
				row[i] = c.String
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
