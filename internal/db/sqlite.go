package db

import (
	"database/sql"
	"database/sql/driver"
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/arashthr/shelf/internal/query"
	"modernc.org/sqlite"
)

//go:embed sqlite_schema.sql
var sqliteSchema string

var (
	registerOnce sync.Once
	registerErr  error
)

// registerFunctions adds the SQL functions the composed queries rely on.
// Registration is process wide and has to happen before the first connection.
func registerFunctions() error {
	registerOnce.Do(func() {
		registerErr = sqlite.RegisterDeterministicScalarFunction(query.CaseFoldFunc, 1, caseFold)
	})
	return registerErr
}

func caseFold(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// OpenSQLite opens (or creates) a SQLite database at path and applies the
// schema. Use ":memory:" for a throwaway database.
func OpenSQLite(path string) (*sql.DB, error) {
	if err := registerFunctions(); err != nil {
		return nil, fmt.Errorf("register sqlite functions: %w", err)
	}
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Every connection of an in-memory database is a separate database, and
	// SQLite serialises writers anyway.
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := sqlDB.Exec(sqliteSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return sqlDB, nil
}
