// Package roster loads the student list from the institute's xlsx export.
package roster

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/shrimpsizemoose/trekker/logger"
	"github.com/xuri/excelize/v2"

	"github.com/nikhileshnr/mess-rebate-system/internal/models"
)

// Writer is the store side of an import.
type Writer interface {
	UpsertStudent(ctx context.Context, student *models.Student) error
}

var columnAliases = map[string]string{
	"roll_no":     "roll_no",
	"roll no":     "roll_no",
	"roll number": "roll_no",
	"name":        "name",
	"student":     "name",
	"branch":      "branch",
	"batch":       "batch",
}

// RowError points at a spreadsheet row that could not be read.
type RowError struct {
	Sheet string
	Row   int
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s row %d: %v", e.Sheet, e.Row, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Read parses every sheet of the workbook. The first row of a sheet names the
// columns; roll number, name, branch and batch are required, extra columns
// are ignored and blank rows skipped.
func Read(r io.Reader) ([]models.Student, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open roster: %w", err)
	}
	defer f.Close()

	var students []models.Student
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}

		index, err := headerIndex(rows[0])
		if err != nil {
			return nil, &RowError{Sheet: sheet, Row: 1, Err: err}
		}

		for i, row := range rows[1:] {
			if blank(row) {
				continue
			}
			student := models.Student{
				RollNo: cell(row, index["roll_no"]),
				Name:   cell(row, index["name"]),
				Branch: cell(row, index["branch"]),
				Batch:  models.NormalizeBatch(cell(row, index["batch"])),
			}
			if err := student.Validate(); err != nil {
				return nil, &RowError{Sheet: sheet, Row: i + 2, Err: err}
			}
			students = append(students, student)
		}
	}
	return students, nil
}

// Import upserts students one by one and reports how many were written.
func Import(ctx context.Context, w Writer, students []models.Student) (int, error) {
	for i := range students {
		if err := w.UpsertStudent(ctx, &students[i]); err != nil {
			return i, fmt.Errorf("failed to store %s: %w", students[i].RollNo, err)
		}
	}
	logger.Info.Printf("Imported %d students", len(students))
	return len(students), nil
}

func headerIndex(header []string) (map[string]int, error) {
	index := make(map[string]int)
	for i, name := range header {
		key, ok := columnAliases[strings.ToLower(strings.TrimSpace(name))]
		if ok {
			if _, seen := index[key]; !seen {
				index[key] = i
			}
		}
	}
	for _, required := range []string{"roll_no", "name", "branch", "batch"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("missing %s column", required)
		}
	}
	return index, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
