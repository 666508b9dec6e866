package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/nikhileshnr/mess-rebate-system/internal/models"
)

func (s *BaseStore) GetStudent(ctx context.Context, rollNo string) (*models.Student, error) {
	var student models.Student
	query := s.Converter(`
		SELECT roll_no, name, branch, batch
		FROM students
		WHERE roll_no = ?
	`)

	err := s.DB.GetContext(ctx, &student, query, rollNo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return &student, nil
}

func (s *BaseStore) ListStudents(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	var (
		where []string
		args  []any
	)
	if filter.Branch != "" {
		where = append(where, "branch = ?")
		args = append(args, filter.Branch)
	}
	if filter.Batch != "" {
		where = append(where, "TRIM(CAST(batch AS TEXT)) = ?")
		args = append(args, string(models.NormalizeBatch(string(filter.Batch))))
	}

	query := `SELECT roll_no, name, branch, batch FROM students`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY roll_no"

	students := []models.Student{}
	if err := s.DB.SelectContext(ctx, &students, s.Converter(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	return students, nil
}

func (s *BaseStore) UpsertStudent(ctx context.Context, student *models.Student) error {
	query := s.Converter(`
		INSERT INTO students (roll_no, name, branch, batch)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (roll_no) DO UPDATE SET
		name = excluded.name,
		branch = excluded.branch,
		batch = excluded.batch
	`)
	_, err := s.DB.ExecContext(ctx, query, student.RollNo, student.Name, student.Branch, student.Batch)
	if err != nil {
		return fmt.Errorf("failed to upsert student: %w", err)
	}
	return nil
}
