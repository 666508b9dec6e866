// internal/store/sqlite/store.go
package sqlite

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/nikhileshnr/mess-rebate-system/internal/store"
)

type SQLiteStore struct {
	store.BaseStore
}

// NewSQLiteStore opens dsn with foreign keys on and write transactions
// started as BEGIN IMMEDIATE. The pool is capped at one connection so that
// ":memory:" databases are shared and writers queue up.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Connect("sqlite3", withParams(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SQLiteStore{BaseStore: store.BaseStore{
		DB: db,
		Converter: func(query string) string {
			return query
		},
		Dialect: store.Dialect{
			Type: store.DBTypeSQLite,
			DateText: func(column string) string {
				return fmt.Sprintf("strftime('%%Y-%%m-%%d', %s)", column)
			},
			UniqueViolation: uniqueViolation,
		},
	}}

	return s, nil
}

func (s *SQLiteStore) ApplyMigrations(fsys fs.FS) error {
	return s.BaseStore.ApplyMigrations(fsys, translateToSQLite)
}

func withParams(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_txlock=immediate&_foreign_keys=on"
}

func uniqueViolation(err error) (string, bool) {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return sqliteErr.Error(), true
	}
	return "", false
}

var sqliteReplacer = strings.NewReplacer(
	"BIGSERIAL PRIMARY KEY", "INTEGER PRIMARY KEY AUTOINCREMENT",
	"UUID", "TEXT",
	"VARCHAR(20)", "TEXT",
	"VARCHAR(10)", "TEXT",
	"now()", "CURRENT_TIMESTAMP",
)

// translateToSQLite converts Postgres SQL to SQLite dialect
func translateToSQLite(sql string) string {
	return sqliteReplacer.Replace(sql)
}
