package rebate

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhileshnr/mess-rebate-system/internal/apperrors"
	"github.com/nikhileshnr/mess-rebate-system/internal/calendar"
	"github.com/nikhileshnr/mess-rebate-system/internal/models"
)

func TestParseToken(t *testing.T) {
	tests := []struct {
		token    string
		rollNo   string
		date     string
		wantCode string
	}{
		{token: "S1_2024-03-01", rollNo: "S1", date: "2024-03-01"},
		{token: "CS_21_007_2024-03-01", rollNo: "CS_21_007", date: "2024-03-01"},
		{token: "S1_2024-02-29T18:30:00.000Z", rollNo: "S1", date: "2024-02-29"},
		{token: "S1", wantCode: apperrors.CodeInvalidIDFormat},
		{token: "S1_", wantCode: apperrors.CodeInvalidIDFormat},
		{token: "_2024-03-01", wantCode: apperrors.CodeInvalidIDFormat},
		{token: "S1_someday", wantCode: apperrors.CodeInvalidDateFormat},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			rollNo, date, err := ParseToken(tt.token)
			if tt.wantCode != "" {
				require.Error(t, err)
				requireCode(t, err, tt.wantCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.rollNo, rollNo)
			assert.Equal(t, tt.date, date.String())
		})
	}
}

func TestResolveFindsDriftedStartDate(t *testing.T) {
	m, s, _ := setupManager(t)
	ctx := context.Background()

	_, err := s.DB.Exec(`
		INSERT INTO rebates (public_id, roll_no, start_date, end_date, rebate_days)
		VALUES (?, 'S1', '2024-02-29', '2024-03-05', 5)`, uuid.NewString())
	require.NoError(t, err)

	first, err := m.resolver.Resolve(ctx, "S1_2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, "S1_2024-03-01", first.VirtualID)
	assert.Equal(t, "2024-02-29", first.StartDate.String())

	second, err := m.resolver.Resolve(ctx, "S1_2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, first.RollNo, second.RollNo)
	assert.Equal(t, first.StartDate, second.StartDate)
	assert.Equal(t, first.EndDate, second.EndDate)
	assert.Equal(t, first.RebateDays, second.RebateDays)
}

func TestResolveMatchesTimestampText(t *testing.T) {
	m, s, _ := setupManager(t)

	_, err := s.DB.Exec(`
		INSERT INTO rebates (public_id, roll_no, start_date, end_date, rebate_days)
		VALUES (?, 'S1', '2024-03-01 00:00:00', '2024-03-05', 4)`, uuid.NewString())
	require.NoError(t, err)

	r, err := m.resolver.Resolve(context.Background(), "S1_01/03/2024")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", r.StartDate.String())
	assert.Equal(t, "S1_01/03/2024", r.VirtualID)
}

func TestResolveStrategyOrder(t *testing.T) {
	ms := new(MockStore)
	r := NewResolver(ms)

	date := calendar.MustParse("2024-03-01")
	next := &models.Rebate{ID: 7, RollNo: "S1", StartDate: date.AddDays(1)}

	ms.On("FindRebateByStart", "S1", date).Return(nil, nil).Once()
	ms.On("FindRebateByStartText", "S1", "2024-03-01").Return(nil, nil).Once()
	ms.On("FindRebateByStart", "S1", date.AddDays(1)).Return(next, nil).Once()

	got, err := r.Resolve(context.Background(), "S1_2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, "S1_2024-03-01", got.VirtualID)

	ms.AssertExpectations(t)
	ms.AssertNotCalled(t, "FindRebateByStart", "S1", date.AddDays(-1))
}

func TestResolvePublicID(t *testing.T) {
	ms := new(MockStore)
	r := NewResolver(ms)

	id := uuid.NewString()
	ms.On("GetRebateByPublicID", id).Return(&models.Rebate{PublicID: id, RollNo: "S1", StartDate: calendar.MustParse("2024-03-01")}, nil)

	got, err := r.Resolve(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, got.VirtualID, "tagged with the identifier the caller sent")

	missing := uuid.NewString()
	ms.On("GetRebateByPublicID", missing).Return(nil, nil)
	_, err = r.Resolve(context.Background(), missing)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestResolveStoreFailure(t *testing.T) {
	ms := new(MockStore)
	r := NewResolver(ms)

	ms.On("FindRebateByStart", "S1", calendar.MustParse("2024-03-01")).Return(nil, errors.New("connection refused"))

	_, err := r.Resolve(context.Background(), "S1_2024-03-01")
	assert.ErrorIs(t, err, apperrors.ErrDatabase)
}
