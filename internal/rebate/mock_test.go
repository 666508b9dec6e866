package rebate

import (
	"context"
	"io/fs"

	"github.com/stretchr/testify/mock"

	"github.com/nikhileshnr/mess-rebate-system/internal/calendar"
	"github.com/nikhileshnr/mess-rebate-system/internal/models"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Close() error {
	return nil
}

func (m *MockStore) ApplyMigrations(fsys fs.FS) error {
	return nil
}

func (m *MockStore) GetStudent(ctx context.Context, rollNo string) (*models.Student, error) {
	args := m.Called(rollNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Student), args.Error(1)
}

func (m *MockStore) ListStudents(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	return nil, nil
}

func (m *MockStore) UpsertStudent(ctx context.Context, student *models.Student) error {
	return nil
}

func (m *MockStore) HasOverlap(ctx context.Context, rollNo string, start, end calendar.Date, excludeID int64) (bool, error) {
	args := m.Called(rollNo, start, end, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) InsertRebate(ctx context.Context, rebate *models.Rebate) error {
	args := m.Called(rebate)
	return args.Error(0)
}

func (m *MockStore) UpdateRebateDates(ctx context.Context, id int64, start, end calendar.Date, days int) (*models.Rebate, error) {
	args := m.Called(id, start, end, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Rebate), args.Error(1)
}

func (m *MockStore) GetRebateByID(ctx context.Context, id int64) (*models.Rebate, error) {
	return nil, nil
}

func (m *MockStore) GetRebateByPublicID(ctx context.Context, publicID string) (*models.Rebate, error) {
	args := m.Called(publicID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Rebate), args.Error(1)
}

func (m *MockStore) FindRebateByStart(ctx context.Context, rollNo string, start calendar.Date) (*models.Rebate, error) {
	args := m.Called(rollNo, start)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Rebate), args.Error(1)
}

func (m *MockStore) FindRebateByStartText(ctx context.Context, rollNo, start string) (*models.Rebate, error) {
	args := m.Called(rollNo, start)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Rebate), args.Error(1)
}

func (m *MockStore) GatePassExists(ctx context.Context, gatePassNo string) (bool, error) {
	args := m.Called(gatePassNo)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) ListRebates(ctx context.Context, filter models.RebateFilter) ([]models.Rebate, error) {
	args := m.Called(filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Rebate), args.Error(1)
}

type countingCache struct {
	clears int
	err    error
}

func (c *countingCache) ClearCache(ctx context.Context) error {
	c.clears++
	return c.err
}
