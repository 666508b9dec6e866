package billing

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/shrimpsizemoose/trekker/logger"
	"github.com/xuri/excelize/v2"

	"github.com/nikhileshnr/mess-rebate-system/internal/apperrors"
	"github.com/nikhileshnr/mess-rebate-system/internal/models"
)

const (
	dateLayout   = "02/01/2006"
	defaultSheet = "Sheet1"
	maxSheetName = 31
)

var sheetNameReplacer = strings.NewReplacer(":", "-", "\\", "-", "/", "-", "?", "", "*", "", "[", "(", "]", ")")

var columnWidths = []float64{10, 30, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15}

// Source is the read side of the store the generator needs.
type Source interface {
	ListStudents(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
	ListRebates(ctx context.Context, filter models.RebateFilter) ([]models.Rebate, error)
}

type Generator struct {
	source     Source
	prices     *PriceFile
	institute  string
	gstPercent decimal.Decimal
}

func NewGenerator(source Source, prices *PriceFile, institute string, gstPercent decimal.Decimal) *Generator {
	return &Generator{
		source:     source,
		prices:     prices,
		institute:  institute,
		gstPercent: gstPercent,
	}
}

// Statement loads the batch and computes its bills for the requested month.
func (g *Generator) Statement(ctx context.Context, req Request) (*Statement, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	batch := models.NormalizeBatch(string(req.Batch))

	students, err := g.source.ListStudents(ctx, models.StudentFilter{Batch: batch})
	if err != nil {
		return nil, apperrors.Database("list students for billing", err)
	}
	if len(students) == 0 {
		return nil, apperrors.NotFound("students", apperrors.CodeStudentNotFound, "batch "+batch.String())
	}

	rebates, err := g.source.ListRebates(ctx, models.RebateFilter{
		Year:         req.Year,
		Month:        int(req.Month),
		Batch:        batch,
		Intersecting: true,
	})
	if err != nil {
		return nil, apperrors.Database("list rebates for billing", err)
	}

	prices, err := g.prices.Current()
	if err != nil {
		return nil, err
	}

	logger.Debug.Printf("Billing %s batch %s: %d students, %d rebates", req.Label(), batch, len(students), len(rebates))
	return Compute(req, students, rebates, prices, g.gstPercent), nil
}

// Export writes the statement for req as an xlsx workbook to w.
func (g *Generator) Export(ctx context.Context, req Request, w io.Writer) error {
	st, err := g.Statement(ctx, req)
	if err != nil {
		return err
	}
	return WriteWorkbook(w, st, g.institute)
}

// WriteWorkbook renders one sheet per branch.
func WriteWorkbook(w io.Writer, st *Statement, institute string) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			logger.Error.Printf("Failed to close workbook: %v", err)
		}
	}()

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create title style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, sheet := range st.Sheets {
		name := sheetName(sheet.Branch)
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to add sheet %s: %w", name, err)
		}

		if err := writeSheet(f, name, sheet, st, institute, titleStyle, headerStyle); err != nil {
			return fmt.Errorf("failed to write sheet %s: %w", name, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, name string, sheet Sheet, st *Statement, institute string, titleStyle, headerStyle int) error {
	if err := f.SetCellValue(name, "A1", institute); err != nil {
		return err
	}
	if err := f.MergeCell(name, "A1", "L1"); err != nil {
		return err
	}
	if err := f.SetCellStyle(name, "A1", "L1", titleStyle); err != nil {
		return err
	}
	if err := f.SetRowHeight(name, 1, 30); err != nil {
		return err
	}

	header := Header(st)
	if err := f.SetSheetRow(name, "A2", &header); err != nil {
		return err
	}
	if err := f.SetCellStyle(name, "A2", "L2", headerStyle); err != nil {
		return err
	}
	if err := f.SetRowHeight(name, 2, 40); err != nil {
		return err
	}

	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(name, col, col, width); err != nil {
			return err
		}
	}

	row := 3
	for _, bill := range sheet.Bills {
		for _, values := range Rows(bill) {
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(name, cell, &values); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}

// Header is the column header row for st.
func Header(st *Statement) []interface{} {
	feast := "No Feast"
	if !st.Request.NoFeast {
		feast = st.Request.FeastDate.Format(dateLayout)
	}
	price := st.Prices.PricePerDay
	gstPerDay := price.Mul(st.GSTPercent).Div(decimal.NewFromInt(100))

	return []interface{}{
		"S.No",
		"Student Name",
		"Roll No",
		"Date From",
		"Date To",
		"Rebate (Days)",
		"Feast Day\n" + feast,
		"Total Days",
		"Feast Amount",
		fmt.Sprintf("Amount\n(@₹%s)", price.String()),
		fmt.Sprintf("GST-%s%%\n(@₹%s)", st.GSTPercent.String(), gstPerDay.String()),
		"Total Amount",
	}
}

// Rows renders a bill as worksheet rows. The first row carries the month's
// rebate total; every further period gets its own row with zero days.
func Rows(b Bill) [][]interface{} {
	row := func(from, to string, days int) []interface{} {
		return []interface{}{
			b.SerialNo,
			b.Name,
			b.RollNo,
			from,
			to,
			days,
			b.FeastDayPresence(),
			b.TotalDays,
			money(b.FeastAmount),
			money(b.Amount),
			money(b.GST),
			money(b.Total),
		}
	}

	if len(b.Periods) == 0 {
		return [][]interface{}{row("", "", 0)}
	}

	rows := make([][]interface{}, 0, len(b.Periods))
	for i, p := range b.Periods {
		days := 0
		if i == 0 {
			days = b.RebateDays
		}
		rows = append(rows, row(p.From.Format(dateLayout), p.To.Format(dateLayout), days))
	}
	return rows
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func sheetName(branch string) string {
	r := []rune(sheetNameReplacer.Replace(branch))
	if len(r) > maxSheetName {
		r = r[:maxSheetName]
	}
	return string(r)
}
