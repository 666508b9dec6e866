package app

import (
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/nikhileshnr/mess-rebate-system/internal/store"
	"github.com/nikhileshnr/mess-rebate-system/internal/store/postgres"
	"github.com/nikhileshnr/mess-rebate-system/internal/store/sqlite"
	"github.com/nikhileshnr/mess-rebate-system/migrations"
)

func NewStore(dsn string) (store.RebateStore, error) {
	dbType := store.DBTypeSQLite
	if strings.HasPrefix(dsn, "postgres") {
		dbType = store.DBTypePostgres
	}

	switch dbType {
	case store.DBTypePostgres:
		return postgres.NewPostgresStore(dsn)
	case store.DBTypeSQLite:
		return sqlite.NewSQLiteStore(dsn)
	default:
		return nil, fmt.Errorf("unable to determine database type from DSN: %s", dsn)
	}
}

// MigrationsFS returns dir as a filesystem, or the embedded schema when dir
// is empty.
func MigrationsFS(dir string) fs.FS {
	if dir == "" {
		return migrations.FS
	}
	return os.DirFS(dir)
}

// OpenStore connects to dsn and brings the schema up to date.
func OpenStore(dsn, migrationsDir string) (store.RebateStore, error) {
	s, err := NewStore(dsn)
	if err != nil {
		return nil, err
	}
	if err := s.ApplyMigrations(MigrationsFS(migrationsDir)); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	return s, nil
}
