package stats

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhileshnr/mess-rebate-system/internal/apperrors"
	"github.com/nikhileshnr/mess-rebate-system/internal/calendar"
	"github.com/nikhileshnr/mess-rebate-system/internal/models"
)

type fakeSource struct {
	students []models.Student
	rebates  []models.Rebate
	err      error
	loads    atomic.Int32
}

func (f *fakeSource) ListStudents(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	f.loads.Add(1)
	return f.students, f.err
}

func (f *fakeSource) ListRebates(ctx context.Context, filter models.RebateFilter) ([]models.Rebate, error) {
	return f.rebates, f.err
}

func rebate(rollNo, start, end string) models.Rebate {
	s, e := calendar.MustParse(start), calendar.MustParse(end)
	return models.Rebate{RollNo: rollNo, StartDate: s, EndDate: e, RebateDays: calendar.DayCount(s, e)}
}

func fixture() *fakeSource {
	return &fakeSource{
		students: []models.Student{
			{RollNo: "S1", Name: "Asha", Branch: "CSE", Batch: "2022"},
			{RollNo: "S2", Name: "Bilal", Branch: "CSE", Batch: "2022"},
			{RollNo: "S3", Name: "Chen", Branch: "ECE", Batch: "2023"},
			{RollNo: "S4", Name: "Dara", Branch: "MECH", Batch: " 2023"},
		},
		rebates: []models.Rebate{
			rebate("S1", "2024-03-01", "2024-03-05"), // 4
			rebate("S1", "2023-11-10", "2023-11-12"), // 2
			rebate("S2", "2024-03-20", "2024-03-27"), // 7
			rebate("S3", "2024-01-02", "2024-01-03"), // 1
		},
	}
}

func TestFoldOverview(t *testing.T) {
	src := fixture()
	report := Fold(src.students, src.rebates, Filter{})

	assert.Equal(t, 4, report.Overview.TotalRebates)
	assert.Equal(t, 14, report.Overview.TotalDays)
	assert.Equal(t, 3, report.Overview.UniqueStudents)
	assert.InDelta(t, 14.0/3.0, report.Overview.AverageDaysPerStudent, 1e-9)

	require.Len(t, report.AllUsers, 4)
	assert.Equal(t, "S4", report.AllUsers[3].RollNo)
	assert.Zero(t, report.AllUsers[3].TotalRebates, "students without rebates are listed")

	require.Len(t, report.MonthlyTrends, 3)
	assert.Equal(t, "November 2023", report.MonthlyTrends[0].Month)
	assert.Equal(t, "January 2024", report.MonthlyTrends[1].Month)
	assert.Equal(t, "March 2024", report.MonthlyTrends[2].Month)
	assert.Equal(t, 2, report.MonthlyTrends[2].UniqueStudents)
	assert.Equal(t, 11, report.MonthlyTrends[2].TotalDays)

	assert.Equal(t, []string{"CSE", "ECE", "MECH"}, report.Filters.Branches)
	assert.Equal(t, []string{"2022", "2023"}, report.Filters.Batches)
	assert.Equal(t, []int{2024, 2023}, report.Filters.Years)
}

func TestFoldYearFilter(t *testing.T) {
	src := fixture()
	report := Fold(src.students, src.rebates, Filter{Year: 2024})

	assert.Equal(t, 3, report.Overview.TotalRebates)
	assert.Equal(t, 12, report.Overview.TotalDays)

	s1 := report.AllUsers[0]
	assert.Equal(t, "S1", s1.RollNo)
	assert.Equal(t, 2, s1.TotalRebates)
	assert.Equal(t, 6, s1.TotalDays)
	assert.Equal(t, 1, s1.FilteredRebates)
	assert.Equal(t, 4, s1.FilteredDays)

	sum := 0
	for _, row := range report.AllUsers {
		sum += row.FilteredDays
	}
	assert.Equal(t, report.Overview.TotalDays, sum)
}

func TestFoldBucketsIncludeIdleGroups(t *testing.T) {
	src := fixture()
	report := Fold(src.students, src.rebates, Filter{Batch: "2023"})

	require.Len(t, report.AllUsers, 2, "batch compares in trimmed string form")
	require.Len(t, report.BranchStats, 2)
	assert.Equal(t, Bucket{Name: "ECE", TotalRebates: 1, TotalDays: 1, UniqueStudents: 1, AverageDaysPerStudent: 1}, report.BranchStats[0])
	assert.Equal(t, Bucket{Name: "MECH"}, report.BranchStats[1])

	require.Len(t, report.BatchStats, 1)
	assert.Equal(t, "2023", report.BatchStats[0].Name)
}

func TestFoldFiltersFollowPopulation(t *testing.T) {
	src := fixture()

	report := Fold(src.students, src.rebates, Filter{Batch: "2023"})
	assert.Equal(t, []string{"ECE", "MECH"}, report.Filters.Branches)
	assert.Equal(t, []string{"2023"}, report.Filters.Batches)
	assert.Equal(t, []int{2024}, report.Filters.Years)

	report = Fold(src.students, src.rebates, Filter{Branch: "CSE", Year: 2023})
	assert.Equal(t, []string{"CSE"}, report.Filters.Branches)
	assert.Equal(t, []string{"2022"}, report.Filters.Batches)
	assert.Equal(t, []int{2023}, report.Filters.Years)
}

func TestFoldEmpty(t *testing.T) {
	report := Fold(nil, nil, Filter{Branch: "CSE"})

	assert.Zero(t, report.Overview.AverageDaysPerStudent)
	assert.Empty(t, report.AllUsers)
	assert.NotNil(t, report.MonthlyTrends)
}

func TestStatisticsCachesPerFilter(t *testing.T) {
	src := fixture()
	cache := NewMemoryCache()
	engine := NewEngine(src, cache, time.Minute)
	ctx := context.Background()

	first, err := engine.Statistics(ctx, Filter{Year: 2024})
	require.NoError(t, err)
	_, err = engine.Statistics(ctx, Filter{Year: 2024, Page: 2, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int32(1), src.loads.Load(), "pagination shares the cached report")

	src.rebates = append(src.rebates, rebate("S4", "2024-05-01", "2024-05-11"))
	stale, err := engine.Statistics(ctx, Filter{Year: 2024})
	require.NoError(t, err)
	assert.Equal(t, first.Overview, stale.Overview)

	_, err = engine.Statistics(ctx, Filter{Branch: "CSE"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.loads.Load())
	assert.Equal(t, 2, cache.Len())

	require.NoError(t, engine.ClearCache(ctx))
	assert.Zero(t, cache.Len())

	fresh, err := engine.Statistics(ctx, Filter{Year: 2024})
	require.NoError(t, err)
	assert.Equal(t, 22, fresh.Overview.TotalDays)
}

func TestStatisticsPagination(t *testing.T) {
	engine := NewEngine(fixture(), nil, 0)
	ctx := context.Background()

	report, err := engine.Statistics(ctx, Filter{Page: 2, Limit: 3})
	require.NoError(t, err)
	require.Len(t, report.AllUsers, 1)
	assert.Equal(t, "S4", report.AllUsers[0].RollNo)
	assert.Equal(t, Pagination{CurrentPage: 2, TotalPages: 2, TotalItems: 4, ItemsPerPage: 3}, report.Pagination)
	assert.Equal(t, 14, report.Overview.TotalDays, "totals ignore pagination")

	report, err = engine.Statistics(ctx, Filter{Page: 9})
	require.NoError(t, err)
	assert.Empty(t, report.AllUsers)
	assert.Equal(t, DefaultLimit, report.Pagination.ItemsPerPage)

	report, err = engine.Statistics(ctx, Filter{Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, report.Pagination.ItemsPerPage)

	_, err = engine.Statistics(ctx, Filter{Page: -1})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestStatisticsSourceFailure(t *testing.T) {
	src := fixture()
	src.err = errors.New("connection refused")
	engine := NewEngine(src, NewMemoryCache(), time.Minute)

	_, err := engine.Statistics(context.Background(), Filter{})
	assert.ErrorIs(t, err, apperrors.ErrDatabase)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "all:all:all", CacheKey(Filter{Page: 3}))
	assert.Equal(t, "2024:CSE:2022", CacheKey(Filter{Year: 2024, Branch: "CSE", Batch: " 2022 "}))
}

func TestMemoryCacheExpiry(t *testing.T) {
	cache := NewMemoryCache()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", []byte("v"), 30*time.Minute))

	got, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	now = now.Add(31 * time.Minute)
	_, ok, err = cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, cache.Len())
}
