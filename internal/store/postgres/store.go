package postgres

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/nikhileshnr/mess-rebate-system/internal/store"
)

type PostgresStore struct {
	store.BaseStore
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &PostgresStore{BaseStore: store.BaseStore{
		DB: db,
		Converter: func(query string) string {
			out := query
			for i := 1; strings.Contains(out, "?"); i++ {
				out = strings.Replace(out, "?", fmt.Sprintf("$%d", i), 1)
			}
			return out
		},
		Dialect: store.Dialect{
			Type: store.DBTypePostgres,
			DateText: func(column string) string {
				return fmt.Sprintf("to_char(%s, 'YYYY-MM-DD')", column)
			},
			LockSuffix:      " FOR UPDATE",
			UniqueViolation: uniqueViolation,
		},
	}}

	return s, nil
}

func (s *PostgresStore) ApplyMigrations(fsys fs.FS) error {
	return s.BaseStore.ApplyMigrations(fsys, nil)
}

func uniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return pqErr.Constraint + " " + pqErr.Detail, true
	}
	return "", false
}
