package billing

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nikhileshnr/mess-rebate-system/internal/apperrors"
	"github.com/nikhileshnr/mess-rebate-system/internal/calendar"
	"github.com/nikhileshnr/mess-rebate-system/internal/models"
)

const unassignedBranch = "Unassigned"

// Request selects one monthly statement.
type Request struct {
	Year      int
	Month     time.Month
	Batch     models.Batch
	FeastDate calendar.Date
	NoFeast   bool
}

// ParseMonth reads a YYYY-MM value.
func ParseMonth(s string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, apperrors.Validation("month", apperrors.CodeInvalidDateFormat, fmt.Sprintf("month %q must look like YYYY-MM", s))
	}
	return t.Year(), t.Month(), nil
}

func (r Request) Validate() error {
	if r.Year <= 0 || r.Month < time.January || r.Month > time.December {
		return apperrors.Validation("month", apperrors.CodeInvalidFilter, "month is required")
	}
	if models.NormalizeBatch(string(r.Batch)) == "" {
		return apperrors.Validation("batch", apperrors.CodeInvalidFilter, "batch is required")
	}
	if r.NoFeast {
		return nil
	}
	if r.FeastDate.IsZero() {
		return apperrors.Validation("feast_date", apperrors.CodeInvalidFilter, "feast_date is required unless no_feast is set")
	}
	if !r.FeastDate.SameMonth(r.monthStart()) {
		return apperrors.Validation("feast_date", apperrors.CodeInvalidDateRange, "feast_date must fall inside the billed month")
	}
	return nil
}

func (r Request) monthStart() calendar.Date {
	return calendar.New(r.Year, r.Month, 1)
}

// Label renders the month as YYYY-MM.
func (r Request) Label() string {
	return fmt.Sprintf("%04d-%02d", r.Year, int(r.Month))
}

// FileName is the download name of the workbook for r.
func (r Request) FileName() string {
	return fmt.Sprintf("rebates_%s_batch_%s.xlsx", r.Label(), models.NormalizeBatch(string(r.Batch)))
}

// Period is a rebate clipped to the billed month.
type Period struct {
	From calendar.Date `json:"from"`
	To   calendar.Date `json:"to"`
	Days int           `json:"days"`
}

// Bill is one student's charge for the month.
type Bill struct {
	SerialNo     int             `json:"serial_no"`
	RollNo       string          `json:"roll_no"`
	Name         string          `json:"name"`
	Periods      []Period        `json:"periods"`
	RebateDays   int             `json:"rebate_days"`
	FeastPresent bool            `json:"feast_present"`
	TotalDays    int             `json:"total_days"`
	FeastAmount  decimal.Decimal `json:"feast_amount"`
	Amount       decimal.Decimal `json:"amount"`
	GST          decimal.Decimal `json:"gst"`
	Total        decimal.Decimal `json:"total"`
}

// FeastDayPresence is the 0/1 value printed in the feast column.
func (b Bill) FeastDayPresence() int {
	if b.FeastPresent {
		return 1
	}
	return 0
}

type Sheet struct {
	Branch string `json:"branch"`
	Bills  []Bill `json:"bills"`
}

type Statement struct {
	Request     Request         `json:"-"`
	Prices      Prices          `json:"prices"`
	GSTPercent  decimal.Decimal `json:"gst_percent"`
	DaysInMonth int             `json:"days_in_month"`
	Sheets      []Sheet         `json:"sheets"`
}

// Compute builds the statement for req from the batch's students and every
// rebate intersecting the month. Rebates of students outside the list are
// ignored.
func Compute(req Request, students []models.Student, rebates []models.Rebate, prices Prices, gstPercent decimal.Decimal) *Statement {
	first := req.monthStart()
	last := first.EndOfMonth()

	st := &Statement{
		Request:     req,
		Prices:      prices,
		GSTPercent:  gstPercent,
		DaysInMonth: first.DaysInMonth(),
	}

	byRoll := make(map[string][]models.Rebate)
	for _, r := range rebates {
		byRoll[r.RollNo] = append(byRoll[r.RollNo], r)
	}

	byBranch := make(map[string][]models.Student)
	for _, s := range students {
		branch := s.Branch
		if branch == "" {
			branch = unassignedBranch
		}
		byBranch[branch] = append(byBranch[branch], s)
	}

	branches := make([]string, 0, len(byBranch))
	for b := range byBranch {
		branches = append(branches, b)
	}
	sort.Strings(branches)

	gstRate := gstPercent.Div(decimal.NewFromInt(100))
	for _, branch := range branches {
		members := byBranch[branch]
		sort.Slice(members, func(i, j int) bool { return members[i].RollNo < members[j].RollNo })

		sheet := Sheet{Branch: branch, Bills: make([]Bill, 0, len(members))}
		for i, s := range members {
			bill := Bill{SerialNo: i + 1, RollNo: s.RollNo, Name: s.Name}
			absentOnFeast := false

			own := byRoll[s.RollNo]
			sort.Slice(own, func(i, j int) bool { return own[i].StartDate.Before(own[j].StartDate) })
			for _, r := range own {
				from, to, ok := calendar.Clip(r.StartDate, r.EndDate, first, last)
				if !ok {
					continue
				}
				p := Period{From: from, To: to, Days: calendar.InclusiveDays(from, to)}
				bill.Periods = append(bill.Periods, p)
				bill.RebateDays += p.Days
				if !req.NoFeast && !req.FeastDate.Before(from) && !req.FeastDate.After(to) {
					absentOnFeast = true
				}
			}

			feastDays := 0
			if !req.NoFeast {
				feastDays = 1
				bill.FeastPresent = !absentOnFeast
			}

			bill.TotalDays = st.DaysInMonth - bill.RebateDays - feastDays
			if bill.TotalDays < 0 {
				bill.TotalDays = 0
			}

			bill.FeastAmount = decimal.Zero
			if bill.FeastPresent {
				bill.FeastAmount = prices.GalaDinnerCost
			}
			bill.Amount = prices.PricePerDay.Mul(decimal.NewFromInt(int64(bill.TotalDays)))
			bill.GST = bill.Amount.Mul(gstRate)
			bill.Total = bill.Amount.Add(bill.GST).Add(bill.FeastAmount)

			sheet.Bills = append(sheet.Bills, bill)
		}
		st.Sheets = append(st.Sheets, sheet)
	}

	return st
}
