package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/nikhileshnr/mess-rebate-system/internal/calendar"
	"github.com/nikhileshnr/mess-rebate-system/internal/models"
)

func (s *BaseStore) HasOverlap(ctx context.Context, rollNo string, start, end calendar.Date, excludeID int64) (bool, error) {
	overlap, err := s.overlap(ctx, s.DB, rollNo, start, end, excludeID)
	if err != nil {
		return false, fmt.Errorf("failed to check overlap: %w", err)
	}
	return overlap, nil
}

// overlap applies the inclusive intersection test: an existing period
// conflicts when it starts on or before end and ends on or after start.
func (s *BaseStore) overlap(ctx context.Context, q sqlx.QueryerContext, rollNo string, start, end calendar.Date, excludeID int64) (bool, error) {
	query := s.Converter(`
		SELECT COUNT(*)
		FROM rebates
		WHERE roll_no = ?
		AND start_date <= ?
		AND end_date >= ?
		AND id <> ?
	`)

	var count int
	if err := sqlx.GetContext(ctx, q, &count, query, rollNo, end, start, excludeID); err != nil {
		return false, err
	}
	return count > 0, nil
}

// withStudentLock runs fn in a transaction that first locks the student row,
// so overlap checks and writes for one student never interleave.
func (s *BaseStore) withStudentLock(ctx context.Context, rollNo string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var locked string
	query := s.Converter(`SELECT roll_no FROM students WHERE roll_no = ?` + s.Dialect.LockSuffix)
	err = tx.GetContext(ctx, &locked, query, rollNo)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrStudentNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock student: %w", err)
	}

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// InsertRebate stores rebate unless it overlaps an existing period of the
// same student. Check and insert share one transaction.
func (s *BaseStore) InsertRebate(ctx context.Context, rebate *models.Rebate) error {
	return s.withStudentLock(ctx, rebate.RollNo, func(tx *sqlx.Tx) error {
		overlap, err := s.overlap(ctx, tx, rebate.RollNo, rebate.StartDate, rebate.EndDate, 0)
		if err != nil {
			return fmt.Errorf("failed to check overlap: %w", err)
		}
		if overlap {
			return ErrOverlap
		}

		query := s.Converter(`
			INSERT INTO rebates (public_id, roll_no, start_date, end_date, rebate_days, gate_pass_no)
			VALUES (?, ?, ?, ?, ?, ?)
			RETURNING id
		`)
		err = tx.QueryRowxContext(ctx, query,
			rebate.PublicID,
			rebate.RollNo,
			rebate.StartDate,
			rebate.EndDate,
			rebate.RebateDays,
			rebate.GatePassNo,
		).Scan(&rebate.ID)
		if err != nil {
			if s.isDuplicateGatePass(err) {
				return ErrDuplicateGatePass
			}
			return fmt.Errorf("failed to insert rebate: %w", err)
		}
		return nil
	})
}

// UpdateRebateDates rewrites the period of rebate id. The record itself is
// excluded from the overlap check.
func (s *BaseStore) UpdateRebateDates(ctx context.Context, id int64, start, end calendar.Date, days int) (*models.Rebate, error) {
	current, err := s.GetRebateByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrRebateNotFound
	}

	err = s.withStudentLock(ctx, current.RollNo, func(tx *sqlx.Tx) error {
		overlap, err := s.overlap(ctx, tx, current.RollNo, start, end, id)
		if err != nil {
			return fmt.Errorf("failed to check overlap: %w", err)
		}
		if overlap {
			return ErrOverlap
		}

		query := s.Converter(`
			UPDATE rebates
			SET start_date = ?, end_date = ?, rebate_days = ?
			WHERE id = ?
		`)
		res, err := tx.ExecContext(ctx, query, start, end, days, id)
		if err != nil {
			return fmt.Errorf("failed to update rebate: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrRebateNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	current.StartDate = start
	current.EndDate = end
	current.RebateDays = days
	return current, nil
}

func (s *BaseStore) getRebate(ctx context.Context, where string, args ...any) (*models.Rebate, error) {
	var rebate models.Rebate
	query := s.Converter(`SELECT ` + rebateColumns + ` FROM rebates r WHERE ` + where + ` ORDER BY r.id LIMIT 1`)

	err := s.DB.GetContext(ctx, &rebate, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rebate: %w", err)
	}
	return &rebate, nil
}

func (s *BaseStore) GetRebateByID(ctx context.Context, id int64) (*models.Rebate, error) {
	return s.getRebate(ctx, "r.id = ?", id)
}

func (s *BaseStore) GetRebateByPublicID(ctx context.Context, publicID string) (*models.Rebate, error) {
	return s.getRebate(ctx, "r.public_id = ?", publicID)
}

// FindRebateByStart matches the start date as a calendar date.
func (s *BaseStore) FindRebateByStart(ctx context.Context, rollNo string, start calendar.Date) (*models.Rebate, error) {
	return s.getRebate(ctx, "r.roll_no = ? AND r.start_date = ?", rollNo, start)
}

// FindRebateByStartText matches against the stored start date rendered as
// YYYY-MM-DD text.
func (s *BaseStore) FindRebateByStartText(ctx context.Context, rollNo, start string) (*models.Rebate, error) {
	return s.getRebate(ctx, "r.roll_no = ? AND "+s.Dialect.DateText("r.start_date")+" = ?", rollNo, start)
}

func (s *BaseStore) GatePassExists(ctx context.Context, gatePassNo string) (bool, error) {
	var count int
	query := s.Converter(`SELECT COUNT(*) FROM rebates WHERE gate_pass_no = ?`)
	if err := s.DB.GetContext(ctx, &count, query, gatePassNo); err != nil {
		return false, fmt.Errorf("failed to check gate pass: %w", err)
	}
	return count > 0, nil
}

func (s *BaseStore) ListRebates(ctx context.Context, filter models.RebateFilter) ([]models.Rebate, error) {
	var (
		where []string
		args  []any
	)
	if filter.RollNo != "" {
		where = append(where, "r.roll_no = ?")
		args = append(args, filter.RollNo)
	}
	if from, to, ok := filter.Range(); ok {
		if filter.Intersecting {
			where = append(where, "r.start_date <= ?", "r.end_date >= ?")
			args = append(args, to, from)
		} else {
			where = append(where, "r.start_date >= ?", "r.start_date <= ?")
			args = append(args, from, to)
		}
	}
	if filter.Branch != "" {
		where = append(where, "s.branch = ?")
		args = append(args, filter.Branch)
	}
	if filter.Batch != "" {
		where = append(where, "TRIM(CAST(s.batch AS TEXT)) = ?")
		args = append(args, string(models.NormalizeBatch(string(filter.Batch))))
	}

	query := `
		SELECT ` + rebateColumns + `, ` + studentColumns + `
		FROM rebates r
		JOIN students s ON s.roll_no = r.roll_no`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tORDER BY r.start_date DESC, r.roll_no"

	rebates := []models.Rebate{}
	if err := s.DB.SelectContext(ctx, &rebates, s.Converter(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list rebates: %w", err)
	}
	return rebates, nil
}
