package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/nikhileshnr/mess-rebate-system/internal/calendar"
	"github.com/nikhileshnr/mess-rebate-system/internal/models"
)

var (
	ErrOverlap           = errors.New("rebate overlaps an existing period")
	ErrDuplicateGatePass = errors.New("gate pass number already used")
	ErrStudentNotFound   = errors.New("student not found")
	ErrRebateNotFound    = errors.New("rebate not found")
)

type RebateStore interface {
	Close() error
	ApplyMigrations(fsys fs.FS) error

	GetStudent(ctx context.Context, rollNo string) (*models.Student, error)
	ListStudents(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
	UpsertStudent(ctx context.Context, student *models.Student) error

	HasOverlap(ctx context.Context, rollNo string, start, end calendar.Date, excludeID int64) (bool, error)
	InsertRebate(ctx context.Context, rebate *models.Rebate) error
	UpdateRebateDates(ctx context.Context, id int64, start, end calendar.Date, days int) (*models.Rebate, error)

	GetRebateByID(ctx context.Context, id int64) (*models.Rebate, error)
	GetRebateByPublicID(ctx context.Context, publicID string) (*models.Rebate, error)
	FindRebateByStart(ctx context.Context, rollNo string, start calendar.Date) (*models.Rebate, error)
	FindRebateByStartText(ctx context.Context, rollNo, start string) (*models.Rebate, error)
	GatePassExists(ctx context.Context, gatePassNo string) (bool, error)
	ListRebates(ctx context.Context, filter models.RebateFilter) ([]models.Rebate, error)
}

// Dialect captures the few places where Postgres and SQLite disagree.
type Dialect struct {
	Type DatabaseType

	// DateText renders a DATE column as YYYY-MM-DD text.
	DateText func(column string) string

	// LockSuffix is appended to the student lookup that opens every write
	// transaction.
	LockSuffix string

	// UniqueViolation reports whether err is a unique constraint failure and
	// returns the driver's description of it.
	UniqueViolation func(err error) (string, bool)
}

// BaseStore provides common functionality for different DB implementations
type BaseStore struct {
	DB        *sqlx.DB
	Converter func(string) string
	Dialect   Dialect
}

func (s *BaseStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// ApplyMigrations runs every .sql file of fsys in name order, translating
// dialect if needed
func (s *BaseStore) ApplyMigrations(fsys fs.FS, translateSQL func(string) string) error {
	files, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		content, err := fs.ReadFile(fsys, file.Name())
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file.Name(), err)
		}

		sql := string(content)
		if translateSQL != nil {
			sql = translateSQL(sql)
		}

		if _, err := s.DB.Exec(sql); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file.Name(), err)
		}
	}

	return nil
}

func (s *BaseStore) isDuplicateGatePass(err error) bool {
	if s.Dialect.UniqueViolation == nil {
		return false
	}
	detail, ok := s.Dialect.UniqueViolation(err)
	return ok && strings.Contains(detail, "gate_pass")
}
