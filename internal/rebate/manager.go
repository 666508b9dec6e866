package rebate

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/nikhileshnr/mess-rebate-system/internal/apperrors"
	"github.com/nikhileshnr/mess-rebate-system/internal/calendar"
	"github.com/nikhileshnr/mess-rebate-system/internal/metrics"
	"github.com/nikhileshnr/mess-rebate-system/internal/models"
	"github.com/nikhileshnr/mess-rebate-system/internal/store"
)

// CacheInvalidator is cleared after every successful write.
type CacheInvalidator interface {
	ClearCache(ctx context.Context) error
}

type Manager struct {
	store    store.RebateStore
	cache    CacheInvalidator
	resolver *Resolver
}

func NewManager(s store.RebateStore, cache CacheInvalidator) *Manager {
	return &Manager{
		store:    s,
		cache:    cache,
		resolver: NewResolver(s),
	}
}

type CreateRequest struct {
	RollNo     string `json:"roll_no" validate:"required,max=20"`
	StartDate  string `json:"start_date" validate:"required"`
	EndDate    string `json:"end_date" validate:"required"`
	RebateDays *int   `json:"rebate_days,omitempty"`
	GatePassNo string `json:"gate_pass_no,omitempty"`
}

// Edit changes the dates of the rebate identified by ID, which is either the
// rebate's public id or a "{rollNo}_{startDate}" token. Absent or blank dates
// keep their stored value.
type Edit struct {
	ID        string  `json:"id"`
	StartDate *string `json:"start_date,omitempty"`
	EndDate   *string `json:"end_date,omitempty"`
}

// Create validates and stores a new rebate. The overlap check and the insert
// run in one store transaction.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*models.Rebate, error) {
	if err := models.ValidateStruct(req); err != nil {
		return nil, err
	}

	rollNo := strings.TrimSpace(req.RollNo)
	student, err := m.requireStudent(ctx, rollNo)
	if err != nil {
		return nil, err
	}

	gatePass, err := m.checkGatePass(ctx, req.GatePassNo)
	if err != nil {
		return nil, err
	}

	start, end, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		metrics.RebateRejections.WithLabelValues("invalid_dates").Inc()
		return nil, err
	}

	days := calendar.DayCount(start, end)
	if req.RebateDays != nil && *req.RebateDays > 0 {
		days = *req.RebateDays
	}

	rebate := &models.Rebate{
		PublicID:   uuid.NewString(),
		RollNo:     rollNo,
		StartDate:  start,
		EndDate:    end,
		RebateDays: days,
		GatePassNo: gatePass,
		Name:       student.Name,
		Branch:     student.Branch,
		Batch:      student.Batch,
	}
	if err := m.store.InsertRebate(ctx, rebate); err != nil {
		return nil, translate("create rebate", rollNo, err)
	}
	rebate.Label("")

	m.invalidate(ctx)
	metrics.RebatesCreated.WithLabelValues(student.Branch).Inc()
	metrics.RebateDays.Observe(float64(days))
	logger.Info.Printf("Created rebate %s for %s: %s..%s (%d days)", rebate.PublicID, rollNo, start, end, days)

	return rebate, nil
}

// CheckOverlap reports whether [start, end] shares a day with any stored
// rebate of rollNo. It does not write.
func (m *Manager) CheckOverlap(ctx context.Context, rollNo, startDate, endDate string) (bool, error) {
	rollNo = strings.TrimSpace(rollNo)
	if rollNo == "" {
		return false, apperrors.Validation("roll_no", apperrors.CodeInvalidRequest, "roll_no is required")
	}
	if _, err := m.requireStudent(ctx, rollNo); err != nil {
		return false, err
	}

	start, end, err := parseRange(startDate, endDate)
	if err != nil {
		return false, err
	}

	overlap, err := m.store.HasOverlap(ctx, rollNo, start, end, 0)
	if err != nil {
		return false, apperrors.Database("check overlap", err)
	}
	return overlap, nil
}

func (m *Manager) List(ctx context.Context, filter models.RebateFilter) ([]models.Rebate, error) {
	if filter.Month != 0 && (filter.Month < 1 || filter.Month > 12) {
		return nil, apperrors.Validation("month", apperrors.CodeInvalidFilter, "month must be between 1 and 12")
	}
	if filter.Month != 0 && filter.Year == 0 {
		return nil, apperrors.Validation("year", apperrors.CodeInvalidFilter, "month filter requires a year")
	}

	rebates, err := m.store.ListRebates(ctx, filter)
	if err != nil {
		return nil, apperrors.Database("list rebates", err)
	}
	for i := range rebates {
		rebates[i].Label("")
	}
	return rebates, nil
}

func (m *Manager) ListForStudent(ctx context.Context, rollNo string) ([]models.Rebate, error) {
	rollNo = strings.TrimSpace(rollNo)
	if _, err := m.requireStudent(ctx, rollNo); err != nil {
		return nil, err
	}
	return m.List(ctx, models.RebateFilter{RollNo: rollNo})
}

// ListForMonth returns rebates whose period touches the given month.
func (m *Manager) ListForMonth(ctx context.Context, year, month int) ([]models.Rebate, error) {
	if year == 0 || month == 0 {
		return nil, apperrors.Validation("month", apperrors.CodeInvalidFilter, "year and month are required")
	}
	return m.List(ctx, models.RebateFilter{Year: year, Month: month, Intersecting: true})
}

// Update applies edits in order. Each edit is atomic on its own but the batch
// is not: on failure the edits already applied stay committed and are
// returned alongside a *BatchError.
func (m *Manager) Update(ctx context.Context, edits []Edit) ([]models.Rebate, error) {
	if len(edits) == 0 {
		return nil, apperrors.Validation("rebates", apperrors.CodeInvalidRequest, "no rebates to update")
	}

	updated := make([]models.Rebate, 0, len(edits))
	written := false
	defer func() {
		if written {
			m.invalidate(ctx)
		}
	}()

	for i, edit := range edits {
		rebate, changed, err := m.applyEdit(ctx, edit)
		if err != nil {
			metrics.RebateUpdates.WithLabelValues("failed").Inc()
			logger.Debug.Printf("Rebate edit %d (%s) failed: %v", i, edit.ID, err)
			return updated, &BatchError{Index: i, ID: edit.ID, Err: err}
		}
		if changed {
			written = true
			metrics.RebateUpdates.WithLabelValues("updated").Inc()
		} else {
			metrics.RebateUpdates.WithLabelValues("unchanged").Inc()
		}
		updated = append(updated, *rebate)
	}

	return updated, nil
}

func (m *Manager) applyEdit(ctx context.Context, edit Edit) (*models.Rebate, bool, error) {
	token := strings.TrimSpace(edit.ID)
	current, err := m.resolver.Resolve(ctx, token)
	if err != nil {
		return nil, false, err
	}

	startRaw, hasStart := present(edit.StartDate)
	endRaw, hasEnd := present(edit.EndDate)
	if !hasStart && !hasEnd {
		return current, false, nil
	}

	start, end := current.StartDate, current.EndDate
	if hasStart {
		if start, err = calendar.ParseField("start_date", startRaw); err != nil {
			return nil, false, err
		}
	}
	if hasEnd {
		if end, err = calendar.ParseField("end_date", endRaw); err != nil {
			return nil, false, err
		}
	}
	if !end.After(start) {
		return nil, false, apperrors.Validation("end_date", apperrors.CodeInvalidDateRange, "end date must be after start date")
	}

	if start.Equal(current.StartDate) && end.Equal(current.EndDate) {
		return current, false, nil
	}

	days := calendar.DayCount(start, end)
	updated, err := m.store.UpdateRebateDates(ctx, current.ID, start, end, days)
	if err != nil {
		return nil, false, translate("update rebate", token, err)
	}
	updated.Label(token)

	logger.Info.Printf("Updated rebate %s (%s): %s..%s (%d days)", updated.PublicID, token, start, end, days)
	return updated, true, nil
}

func (m *Manager) requireStudent(ctx context.Context, rollNo string) (*models.Student, error) {
	student, err := m.store.GetStudent(ctx, rollNo)
	if err != nil {
		return nil, apperrors.Database("get student", err)
	}
	if student == nil {
		return nil, apperrors.NotFound("student", apperrors.CodeStudentNotFound, rollNo)
	}
	return student, nil
}

func (m *Manager) checkGatePass(ctx context.Context, raw string) (*string, error) {
	tag := strings.TrimSpace(raw)
	if tag == "" {
		return nil, nil
	}

	if !models.ValidGatePass(tag) {
		metrics.RebateRejections.WithLabelValues("invalid_gate_pass").Inc()
		return nil, apperrors.Validation(
			"gate_pass_no",
			apperrors.CodeInvalidGatePass,
			"gate pass number must look like A-123 and be at most 10 characters",
		)
	}

	exists, err := m.store.GatePassExists(ctx, tag)
	if err != nil {
		return nil, apperrors.Database("check gate pass", err)
	}
	if exists {
		metrics.RebateRejections.WithLabelValues("duplicate_gate_pass").Inc()
		return nil, apperrors.Validation("gate_pass_no", apperrors.CodeDuplicateGatePass, "gate pass number already used")
	}
	return &tag, nil
}

func (m *Manager) invalidate(ctx context.Context) {
	if m.cache == nil {
		return
	}
	if err := m.cache.ClearCache(ctx); err != nil {
		logger.Error.Printf("Failed to clear statistics cache: %v", err)
	}
}

func parseRange(startRaw, endRaw string) (calendar.Date, calendar.Date, error) {
	start, err := calendar.ParseField("start_date", startRaw)
	if err != nil {
		return calendar.Date{}, calendar.Date{}, err
	}
	end, err := calendar.ParseField("end_date", endRaw)
	if err != nil {
		return calendar.Date{}, calendar.Date{}, err
	}
	if !end.After(start) {
		return calendar.Date{}, calendar.Date{}, apperrors.Validation(
			"end_date",
			apperrors.CodeInvalidDateRange,
			fmt.Sprintf("end date %s must be after start date %s", end, start),
		)
	}
	return start, end, nil
}

func present(s *string) (string, bool) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return "", false
	}
	return *s, true
}
