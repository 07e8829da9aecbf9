package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/bjaus/pivot/frame"
	_ "modernc.org/sqlite"
)

// DefaultPrimaryKey names the key field of table-backed sources.
const DefaultPrimaryKey = "id"

// SQL reads every row of a table, or the rows of a query, as records.
type SQL struct {
	db    *sql.DB
	table string
	query string
}

// OpenSQLite opens a read-only connection to the database at path. Exactly
// one of table or query is used; a query wins when both are set.
func OpenSQLite(path, table, query string) (*SQL, error) {
	if table == "" && query == "" {
		return nil, fmt.Errorf("%w: sqlite %s needs a table or a query", ErrUnsupportedSource, path)
	}
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return &SQL{db: db, table: table, query: query}, nil
}

// PrimaryKey is "id" for table sources and empty for queries.
func (s *SQL) PrimaryKey() string {
	if s.query != "" {
		return ""
	}
	return DefaultPrimaryKey
}

func (s *SQL) statement() string {
	if s.query != "" {
		return s.query
	}
	return "SELECT * FROM " + quoteIdent(s.table)
}

func (s *SQL) Records(ctx context.Context) ([]frame.Record, error) {
	rows, err := s.db.QueryContext(ctx, s.statement())
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}

	var out []frame.Record
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		rec := make(frame.Record, len(cols))
		for i, name := range cols {
			v := vals[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			rec[i] = frame.Field{Name: name, Value: v}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close releases the connection pool.
func (s *SQL) Close() error {
	return s.db.Close()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
