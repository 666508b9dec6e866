package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"
	"golang.org/x/sync/errgroup"

	"github.com/nikhileshnr/mess-rebate-system/internal/apperrors"
	"github.com/nikhileshnr/mess-rebate-system/internal/metrics"
	"github.com/nikhileshnr/mess-rebate-system/internal/models"
)

const DefaultTTL = 30 * time.Minute

// Source is the read side of the store the engine folds over.
type Source interface {
	ListStudents(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
	ListRebates(ctx context.Context, filter models.RebateFilter) ([]models.Rebate, error)
}

type Engine struct {
	source Source
	cache  Cache
	ttl    time.Duration
}

func NewEngine(source Source, cache Cache, ttl time.Duration) *Engine {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Engine{source: source, cache: cache, ttl: ttl}
}

// CacheKey identifies a filter combination. Pagination is not part of it:
// the cached report always holds every student row.
func CacheKey(f Filter) string {
	year, branch, batch := "all", "all", "all"
	if f.Year != 0 {
		year = strconv.Itoa(f.Year)
	}
	if f.Branch != "" {
		branch = f.Branch
	}
	if f.Batch != "" {
		batch = string(models.NormalizeBatch(string(f.Batch)))
	}
	return fmt.Sprintf("%s:%s:%s", year, branch, batch)
}

// Statistics returns the report for f. Totals always cover the full filtered
// set; only AllUsers is paginated.
func (e *Engine) Statistics(ctx context.Context, f Filter) (*Report, error) {
	page, limit, err := normalizePaging(f.Page, f.Limit)
	if err != nil {
		return nil, err
	}

	key := CacheKey(f)
	report, err := e.cached(ctx, key)
	if err != nil {
		logger.Error.Printf("Statistics cache read failed for %s: %v", key, err)
	}

	if report == nil {
		metrics.StatsCacheLookups.WithLabelValues("miss").Inc()
		report, err = e.build(ctx, f)
		if err != nil {
			return nil, err
		}
		e.store(ctx, key, report)
	} else {
		metrics.StatsCacheLookups.WithLabelValues("hit").Inc()
	}

	return paginate(report, page, limit), nil
}

func (e *Engine) ClearCache(ctx context.Context) error {
	if e.cache == nil {
		return nil
	}
	if err := e.cache.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear statistics cache: %w", err)
	}
	logger.Debug.Println("Statistics cache cleared")
	return nil
}

func (e *Engine) cached(ctx context.Context, key string) (*Report, error) {
	if e.cache == nil {
		return nil, nil
	}
	data, ok, err := e.cache.Get(ctx, key)
	if err != nil || !ok {
		return nil, err
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to decode cached report: %w", err)
	}
	return &report, nil
}

func (e *Engine) store(ctx context.Context, key string, report *Report) {
	if e.cache == nil {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		logger.Error.Printf("Failed to encode statistics report: %v", err)
		return
	}
	if err := e.cache.Set(ctx, key, data, e.ttl); err != nil {
		logger.Error.Printf("Statistics cache write failed for %s: %v", key, err)
	}
}

func (e *Engine) build(ctx context.Context, f Filter) (*Report, error) {
	var (
		students []models.Student
		rebates  []models.Rebate
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		students, err = e.source.ListStudents(gctx, models.StudentFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		rebates, err = e.source.ListRebates(gctx, models.RebateFilter{})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperrors.Database("load statistics data", err)
	}

	return Fold(students, rebates, f), nil
}

// Fold computes the unpaginated report for f from the complete student and
// rebate sets.
func Fold(students []models.Student, rebates []models.Rebate, f Filter) *Report {
	batch := models.NormalizeBatch(string(f.Batch))

	population := make(map[string]models.Student)
	for _, s := range students {
		if f.Branch != "" && s.Branch != f.Branch {
			continue
		}
		if batch != "" && !s.Batch.Equal(batch) {
			continue
		}
		population[s.RollNo] = s
	}

	rows := make(map[string]*StudentRow, len(population))
	branchAgg := make(map[string]*aggregate)
	batchAgg := make(map[string]*aggregate)
	for roll, s := range population {
		b := batchKey(s.Batch)
		rows[roll] = &StudentRow{RollNo: s.RollNo, Name: s.Name, Branch: s.Branch, Batch: models.Batch(b)}
		if _, ok := branchAgg[s.Branch]; !ok {
			branchAgg[s.Branch] = newAggregate()
		}
		if _, ok := batchAgg[b]; !ok {
			batchAgg[b] = newAggregate()
		}
	}

	overall := newAggregate()
	monthly := make(map[monthKey]*aggregate)
	years := make(map[int]struct{})
	for _, r := range rebates {
		s, ok := population[r.RollNo]
		if !ok {
			continue
		}
		row := rows[r.RollNo]
		row.TotalRebates++
		row.TotalDays += r.RebateDays

		if f.Year != 0 && r.StartDate.Year() != f.Year {
			continue
		}
		row.FilteredRebates++
		row.FilteredDays += r.RebateDays
		years[r.StartDate.Year()] = struct{}{}

		overall.add(r)
		branchAgg[s.Branch].add(r)
		batchAgg[batchKey(s.Batch)].add(r)

		mk := monthKey{year: r.StartDate.Year(), month: r.StartDate.Month()}
		if _, ok := monthly[mk]; !ok {
			monthly[mk] = newAggregate()
		}
		monthly[mk].add(r)
	}

	report := &Report{
		Overview: Overview{
			TotalRebates:          overall.rebates,
			TotalDays:             overall.days,
			UniqueStudents:        len(overall.students),
			AverageDaysPerStudent: overall.average(),
		},
		AllUsers:      make([]StudentRow, 0, len(rows)),
		MonthlyTrends: make([]MonthTrend, 0, len(monthly)),
		BranchStats:   buckets(branchAgg),
		BatchStats:    buckets(batchAgg),
		Filters:       availableFilters(population, years),
	}

	for _, row := range rows {
		report.AllUsers = append(report.AllUsers, *row)
	}
	sort.Slice(report.AllUsers, func(i, j int) bool {
		return report.AllUsers[i].RollNo < report.AllUsers[j].RollNo
	})

	for mk, agg := range monthly {
		report.MonthlyTrends = append(report.MonthlyTrends, MonthTrend{
			Month:          fmt.Sprintf("%s %d", mk.month, mk.year),
			Year:           mk.year,
			MonthNumber:    int(mk.month),
			TotalRebates:   agg.rebates,
			TotalDays:      agg.days,
			UniqueStudents: len(agg.students),
		})
	}
	sort.Slice(report.MonthlyTrends, func(i, j int) bool {
		a, b := report.MonthlyTrends[i], report.MonthlyTrends[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.MonthNumber < b.MonthNumber
	})

	return report
}

func batchKey(b models.Batch) string {
	return models.NormalizeBatch(string(b)).String()
}

type monthKey struct {
	year  int
	month time.Month
}

type aggregate struct {
	rebates  int
	days     int
	students map[string]struct{}
}

func newAggregate() *aggregate {
	return &aggregate{students: make(map[string]struct{})}
}

func (a *aggregate) add(r models.Rebate) {
	a.rebates++
	a.days += r.RebateDays
	a.students[r.RollNo] = struct{}{}
}

func (a *aggregate) average() float64 {
	if len(a.students) == 0 {
		return 0
	}
	return float64(a.days) / float64(len(a.students))
}

func buckets(aggs map[string]*aggregate) []Bucket {
	out := make([]Bucket, 0, len(aggs))
	for name, agg := range aggs {
		out = append(out, Bucket{
			Name:                  name,
			TotalRebates:          agg.rebates,
			TotalDays:             agg.days,
			UniqueStudents:        len(agg.students),
			AverageDaysPerStudent: agg.average(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// availableFilters lists the dropdown values of the filtered population and
// the years of its matching rebates.
func availableFilters(population map[string]models.Student, years map[int]struct{}) Filters {
	branches := make(map[string]struct{})
	batches := make(map[string]struct{})
	for _, s := range population {
		if s.Branch != "" {
			branches[s.Branch] = struct{}{}
		}
		if b := batchKey(s.Batch); b != "" {
			batches[b] = struct{}{}
		}
	}

	f := Filters{
		Branches: make([]string, 0, len(branches)),
		Batches:  make([]string, 0, len(batches)),
		Years:    make([]int, 0, len(years)),
	}
	for b := range branches {
		f.Branches = append(f.Branches, b)
	}
	for b := range batches {
		f.Batches = append(f.Batches, b)
	}
	for y := range years {
		f.Years = append(f.Years, y)
	}
	sort.Strings(f.Branches)
	sort.Strings(f.Batches)
	sort.Sort(sort.Reverse(sort.IntSlice(f.Years)))
	return f
}

func normalizePaging(page, limit int) (int, int, error) {
	if page < 0 || limit < 0 {
		return 0, 0, apperrors.Validation("page", apperrors.CodeInvalidFilter, "page and limit must be positive")
	}
	if page == 0 {
		page = DefaultPage
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit, nil
}

// paginate returns a copy of report whose AllUsers holds only the requested
// page.
func paginate(report *Report, page, limit int) *Report {
	out := *report
	total := len(report.AllUsers)

	from := (page - 1) * limit
	if from > total {
		from = total
	}
	to := from + limit
	if to > total {
		to = total
	}
	out.AllUsers = report.AllUsers[from:to]
	out.Pagination = Pagination{
		CurrentPage:  page,
		TotalPages:   (total + limit - 1) / limit,
		TotalItems:   total,
		ItemsPerPage: limit,
	}
	return &out
}
