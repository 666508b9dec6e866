package stats

import "github.com/nikhileshnr/mess-rebate-system/internal/models"

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

type Filter struct {
	Year   int
	Branch string
	Batch  models.Batch
	Page   int
	Limit  int
}

type Overview struct {
	TotalRebates          int     `json:"totalRebates"`
	TotalDays             int     `json:"totalDays"`
	UniqueStudents        int     `json:"uniqueStudents"`
	AverageDaysPerStudent float64 `json:"averageDaysPerStudent"`
}

// StudentRow carries all-time totals next to the totals under the year filter.
type StudentRow struct {
	RollNo          string       `json:"roll_no"`
	Name            string       `json:"name"`
	Branch          string       `json:"branch"`
	Batch           models.Batch `json:"batch"`
	TotalRebates    int          `json:"totalRebates"`
	TotalDays       int          `json:"totalDays"`
	FilteredRebates int          `json:"filteredRebates"`
	FilteredDays    int          `json:"filteredDays"`
}

type MonthTrend struct {
	Month          string `json:"month"`
	Year           int    `json:"year"`
	MonthNumber    int    `json:"monthNumber"`
	TotalRebates   int    `json:"totalRebates"`
	TotalDays      int    `json:"totalDays"`
	UniqueStudents int    `json:"uniqueStudents"`
}

type Bucket struct {
	Name                  string  `json:"name"`
	TotalRebates          int     `json:"totalRebates"`
	TotalDays             int     `json:"totalDays"`
	UniqueStudents        int     `json:"uniqueStudents"`
	AverageDaysPerStudent float64 `json:"averageDaysPerStudent"`
}

type Filters struct {
	Branches []string `json:"branches"`
	Batches  []string `json:"batches"`
	Years    []int    `json:"years"`
}

type Pagination struct {
	CurrentPage  int `json:"currentPage"`
	TotalPages   int `json:"totalPages"`
	TotalItems   int `json:"totalItems"`
	ItemsPerPage int `json:"itemsPerPage"`
}

type Report struct {
	Overview      Overview     `json:"overview"`
	AllUsers      []StudentRow `json:"allUsers"`
	MonthlyTrends []MonthTrend `json:"monthlyTrends"`
	BranchStats   []Bucket     `json:"branchStats"`
	BatchStats    []Bucket     `json:"batchStats"`
	Filters       Filters      `json:"filters"`
	Pagination    Pagination   `json:"pagination"`
}
