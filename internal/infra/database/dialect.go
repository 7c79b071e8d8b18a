package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Dialect selects the SQL flavour; queries are written with '?' placeholders.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// Rebind rewrites '?' placeholders into $1..$n for Postgres.
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ForUpdate is the row-lock suffix; SQLite serialises writers instead.
func (d Dialect) ForUpdate() string {
	if d == DialectPostgres {
		return " FOR UPDATE"
	}
	return ""
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// timestamp scans DATETIME/TIMESTAMPTZ columns from either driver.
type timestamp struct {
	t *time.Time
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (s timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*s.t = v
		return nil
	case string:
		return s.parse(v)
	case []byte:
		return s.parse(string(v))
	case nil:
		*s.t = time.Time{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into timestamp", src)
	}
}

func (s timestamp) parse(v string) error {
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, v); err == nil {
			*s.t = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", v)
}

// nullTimestamp is timestamp for nullable columns.
type nullTimestamp struct {
	nt *sql.NullTime
}

func (s nullTimestamp) Scan(src any) error {
	if src == nil {
		*s.nt = sql.NullTime{}
		return nil
	}
	if err := (timestamp{t: &s.nt.Time}).Scan(src); err != nil {
		return err
	}
	s.nt.Valid = true
	return nil
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
