// Package dbloader reads payment records from a tabular store: a SQLite file
// or a PostgreSQL database reached through a postgres:// URL.
package dbloader

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/vinaygupta2050/painFileGenerator/internal/types"
)

// DefaultTable is read when no table is configured.
const DefaultTable = "pain001"

var sqlOpen = sql.Open

var unsafeTableChars = regexp.MustCompile(`[^A-Za-z0-9_]`)

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// IsSource reports whether path names a tabular store rather than a file
// handled by another loader.
func IsSource(path string) bool {
	if isPostgresURL(path) {
		return true
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

func isPostgresURL(source string) bool {
	return strings.HasPrefix(source, "postgres://") || strings.HasPrefix(source, "postgresql://")
}

// DriverFor picks the database/sql driver for a source. An explicit driver wins.
func DriverFor(source, driver string) string {
	if driver != "" {
		return driver
	}
	if isPostgresURL(source) {
		return "pgx"
	}
	return "sqlite3"
}

// Open connects to source and verifies the connection.
// SQLite files are opened read-only.
func Open(ctx context.Context, source, driver string) (*sql.DB, error) {
	driver = DriverFor(source, driver)

	dsn := source
	if driver == "sqlite3" && !strings.HasPrefix(source, "file:") {
		dsn = "file:" + source + "?mode=ro"
	}

	db, err := sqlOpen(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return db, nil
}

// SanitizeTableName replaces every character outside [A-Za-z0-9_] with an
// underscore. An empty name becomes DefaultTable.
func SanitizeTableName(table string) string {
	if table == "" {
		return DefaultTable
	}
	return unsafeTableChars.ReplaceAllString(table, "_")
}

// Load reads every row of table in storage order. Column values are rendered
// as text; NULL becomes the empty string.
func Load(ctx context.Context, q Querier, table string) ([]types.FlatRecord, error) {
	table = SanitizeTableName(table)

	rows, err := q.QueryContext(ctx, "SELECT * FROM "+table)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}

	records := []types.FlatRecord{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row %d of %s: %w", len(records)+1, table, err)
		}

		record := make(types.FlatRecord, len(columns))
		for i, col := range columns {
			record[col] = strings.TrimSpace(text(values[i]))
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}

	return records, nil
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format("2006-01-02T15:04:05")
	default:
		return fmt.Sprint(x)
	}
}
