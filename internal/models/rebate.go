package models

import (
	"fmt"
	"time"

	"github.com/nikhileshnr/mess-rebate-system/internal/calendar"
)

type Rebate struct {
	ID         int64         `db:"id" json:"-"`
	PublicID   string        `db:"public_id" json:"id"`
	RollNo     string        `db:"roll_no" json:"roll_no"`
	StartDate  calendar.Date `db:"start_date" json:"start_date"`
	EndDate    calendar.Date `db:"end_date" json:"end_date"`
	RebateDays int           `db:"rebate_days" json:"rebate_days"`
	GatePassNo *string       `db:"gate_pass_no" json:"gate_pass_no"`

	// Student columns, populated by listing queries only.
	Name   string `db:"name" json:"name,omitempty"`
	Branch string `db:"branch" json:"branch,omitempty"`
	Batch  Batch  `db:"batch" json:"batch,omitempty"`

	VirtualID string `db:"-" json:"virtual_id"`
}

// CompositeID builds the legacy "{rollNo}_{YYYY-MM-DD}" identity token.
func CompositeID(rollNo string, start calendar.Date) string {
	return fmt.Sprintf("%s_%s", rollNo, start.String())
}

// Label sets the externally visible identity token. An empty token derives it
// from the record itself.
func (r *Rebate) Label(token string) {
	if token == "" {
		token = CompositeID(r.RollNo, r.StartDate)
	}
	r.VirtualID = token
}

func (r *Rebate) GatePass() string {
	if r.GatePassNo == nil || *r.GatePassNo == "" {
		return "N/A"
	}
	return *r.GatePassNo
}

type RebateFilter struct {
	RollNo string
	Year   int
	Month  int
	Branch string
	Batch  Batch

	// Intersecting selects rebates whose period touches the Year/Month window
	// instead of those starting inside it.
	Intersecting bool
}

// Range returns the calendar window selected by Year and Month. ok is false
// when no year is set.
func (f RebateFilter) Range() (from, to calendar.Date, ok bool) {
	if f.Year == 0 {
		return calendar.Date{}, calendar.Date{}, false
	}
	if f.Month == 0 {
		return calendar.New(f.Year, 1, 1), calendar.New(f.Year, 12, 31), true
	}
	from = calendar.New(f.Year, time.Month(f.Month), 1)
	return from, from.EndOfMonth(), true
}
