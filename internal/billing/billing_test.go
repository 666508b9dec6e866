package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/nikhileshnr/mess-rebate-system/internal/apperrors"
	"github.com/nikhileshnr/mess-rebate-system/internal/calendar"
	"github.com/nikhileshnr/mess-rebate-system/internal/models"
)

func TestMain(m *testing.M) {
	log.Println("Starting billing tests...")
	code := m.Run()
	log.Println("Finished billing tests")
	os.Exit(code)
}

type fakeSource struct {
	students      []models.Student
	rebates       []models.Rebate
	err           error
	studentFilter models.StudentFilter
	rebateFilter  models.RebateFilter
}

func (f *fakeSource) ListStudents(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	f.studentFilter = filter
	return f.students, f.err
}

func (f *fakeSource) ListRebates(ctx context.Context, filter models.RebateFilter) ([]models.Rebate, error) {
	f.rebateFilter = filter
	return f.rebates, f.err
}

func rebate(rollNo, start, end string) models.Rebate {
	s, e := calendar.MustParse(start), calendar.MustParse(end)
	return models.Rebate{RollNo: rollNo, StartDate: s, EndDate: e, RebateDays: calendar.DayCount(s, e)}
}

func fixture() *fakeSource {
	return &fakeSource{
		students: []models.Student{
			{RollNo: "S3", Name: "Chen", Branch: "ECE", Batch: "2022"},
			{RollNo: "S2", Name: "Bilal", Branch: "CSE", Batch: "2022"},
			{RollNo: "S1", Name: "Asha", Branch: "CSE", Batch: "2022"},
		},
		rebates: []models.Rebate{
			rebate("S1", "2024-03-18", "2024-03-21"),
			rebate("S1", "2024-02-27", "2024-03-03"),
			rebate("S3", "2024-03-30", "2024-04-04"),
			rebate("S9", "2024-03-01", "2024-03-10"),
		},
	}
}

var testPrices = Prices{
	PricePerDay:    decimal.NewFromInt(105),
	GalaDinnerCost: decimal.NewFromInt(200),
}

func march(feast string) Request {
	req := Request{Year: 2024, Month: time.March, Batch: "2022"}
	if feast == "" {
		req.NoFeast = true
	} else {
		req.FeastDate = calendar.MustParse(feast)
	}
	return req
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeWithFeast(t *testing.T) {
	src := fixture()
	st := Compute(march("2024-03-20"), src.students, src.rebates, testPrices, decimal.NewFromInt(5))

	assert.Equal(t, 31, st.DaysInMonth)
	require.Len(t, st.Sheets, 2)
	assert.Equal(t, "CSE", st.Sheets[0].Branch)
	assert.Equal(t, "ECE", st.Sheets[1].Branch)

	cse := st.Sheets[0].Bills
	require.Len(t, cse, 2)

	asha := cse[0]
	assert.Equal(t, 1, asha.SerialNo)
	assert.Equal(t, "S1", asha.RollNo)
	require.Len(t, asha.Periods, 2)
	assert.Equal(t, Period{From: calendar.MustParse("2024-03-01"), To: calendar.MustParse("2024-03-03"), Days: 3}, asha.Periods[0])
	assert.Equal(t, 4, asha.Periods[1].Days)
	assert.Equal(t, 7, asha.RebateDays)
	assert.False(t, asha.FeastPresent, "away on the feast day")
	assert.Equal(t, 23, asha.TotalDays)
	assert.True(t, asha.FeastAmount.IsZero())
	assert.True(t, dec("2415").Equal(asha.Amount))
	assert.True(t, dec("120.75").Equal(asha.GST))
	assert.True(t, dec("2535.75").Equal(asha.Total))

	bilal := cse[1]
	assert.Equal(t, 2, bilal.SerialNo)
	assert.Empty(t, bilal.Periods)
	assert.True(t, bilal.FeastPresent)
	assert.Equal(t, 30, bilal.TotalDays)
	assert.True(t, dec("200").Equal(bilal.FeastAmount))
	assert.True(t, dec("3507.5").Equal(bilal.Total))

	chen := st.Sheets[1].Bills[0]
	assert.Equal(t, 1, chen.SerialNo, "serial numbers restart per sheet")
	assert.Equal(t, 2, chen.RebateDays, "clipped to the end of the month")
	assert.Equal(t, 28, chen.TotalDays)
	assert.True(t, dec("3287").Equal(chen.Total))
}

func TestComputeWithoutFeast(t *testing.T) {
	src := fixture()
	st := Compute(march(""), src.students, src.rebates, testPrices, decimal.NewFromInt(5))

	bilal := st.Sheets[0].Bills[1]
	assert.False(t, bilal.FeastPresent)
	assert.Equal(t, 0, bilal.FeastDayPresence())
	assert.Equal(t, 31, bilal.TotalDays)
	assert.True(t, dec("3255").Equal(bilal.Amount))
	assert.True(t, dec("162.75").Equal(bilal.GST))
	assert.True(t, dec("3417.75").Equal(bilal.Total))
}

func TestComputeNeverBillsNegativeDays(t *testing.T) {
	students := []models.Student{{RollNo: "S1", Name: "Asha", Branch: "CSE", Batch: "2022"}}
	rebates := []models.Rebate{
		rebate("S1", "2024-02-01", "2024-03-31"),
		rebate("S1", "2024-03-10", "2024-03-12"),
	}

	st := Compute(march("2024-03-20"), students, rebates, testPrices, decimal.NewFromInt(5))

	bill := st.Sheets[0].Bills[0]
	assert.Equal(t, 34, bill.RebateDays)
	assert.Zero(t, bill.TotalDays)
	assert.True(t, bill.Total.IsZero())
}

func TestRequestValidate(t *testing.T) {
	assert.NoError(t, march("2024-03-20").Validate())
	assert.NoError(t, march("").Validate())

	missingFeast := Request{Year: 2024, Month: time.March, Batch: "2022"}
	assert.ErrorIs(t, missingFeast.Validate(), apperrors.ErrValidation)

	outside := march("2024-04-01")
	var verr *apperrors.ValidationError
	require.ErrorAs(t, outside.Validate(), &verr)
	assert.Equal(t, "feast_date", verr.Field)
	assert.Equal(t, apperrors.CodeInvalidDateRange, verr.Code)

	noBatch := march("")
	noBatch.Batch = "  "
	assert.ErrorIs(t, noBatch.Validate(), apperrors.ErrValidation)

	assert.ErrorIs(t, Request{NoFeast: true, Batch: "2022"}.Validate(), apperrors.ErrValidation)
}

func TestParseMonth(t *testing.T) {
	year, month, err := ParseMonth("2024-03")
	require.NoError(t, err)
	assert.Equal(t, 2024, year)
	assert.Equal(t, time.March, month)

	_, _, err = ParseMonth("03/2024")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestFileName(t *testing.T) {
	req := march("")
	req.Batch = " 2022 "
	assert.Equal(t, "rebates_2024-03_batch_2022.xlsx", req.FileName())
}

func TestRows(t *testing.T) {
	src := fixture()
	st := Compute(march("2024-03-20"), src.students, src.rebates, testPrices, decimal.NewFromInt(5))

	rows := Rows(st.Sheets[0].Bills[0])
	require.Len(t, rows, 2)
	assert.Equal(t, []interface{}{1, "Asha", "S1", "01/03/2024", "03/03/2024", 7, 0, 23, 0.0, 2415.0, 120.75, 2535.75}, rows[0])
	assert.Equal(t, "18/03/2024", rows[1][3])
	assert.Equal(t, 0, rows[1][5], "only the first row carries the rebate total")
	assert.Equal(t, 2535.75, rows[1][11])

	rows = Rows(st.Sheets[0].Bills[1])
	require.Len(t, rows, 1)
	assert.Equal(t, "", rows[0][3])
	assert.Equal(t, 0, rows[0][5])
}

func TestHeader(t *testing.T) {
	src := fixture()
	st := Compute(march("2024-03-20"), src.students, src.rebates, testPrices, decimal.NewFromInt(5))

	header := Header(st)
	require.Len(t, header, 12)
	assert.Equal(t, "Feast Day\n20/03/2024", header[6])
	assert.Equal(t, "Amount\n(@₹105)", header[9])
	assert.Equal(t, "GST-5%\n(@₹5.25)", header[10])

	st.Request.NoFeast = true
	assert.Equal(t, "Feast Day\nNo Feast", Header(st)[6])
}

func TestGeneratorExport(t *testing.T) {
	src := fixture()
	prices := NewPriceFile(filepath.Join(t.TempDir(), ".env"))
	_, err := prices.Update(PriceUpdate{PricePerDay: ptr(dec("105")), GalaDinnerCost: ptr(dec("200"))})
	require.NoError(t, err)

	gen := NewGenerator(src, prices, "Institute Mess", decimal.NewFromInt(5))

	var buf bytes.Buffer
	require.NoError(t, gen.Export(context.Background(), march("2024-03-20"), &buf))

	assert.Equal(t, models.Batch("2022"), src.studentFilter.Batch)
	assert.Equal(t, models.RebateFilter{Year: 2024, Month: 3, Batch: "2022", Intersecting: true}, src.rebateFilter)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"CSE", "ECE"}, f.GetSheetList())

	title, err := f.GetCellValue("CSE", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Institute Mess", title)

	merged, err := f.GetMergeCells("CSE")
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, "A1", merged[0].GetStartAxis())
	assert.Equal(t, "L1", merged[0].GetEndAxis())

	rows, err := f.GetRows("CSE")
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "S.No", rows[1][0])
	assert.Equal(t, []string{"1", "Asha", "S1", "01/03/2024", "03/03/2024", "7", "0", "23", "0", "2415", "120.75", "2535.75"}, rows[2])
	assert.Equal(t, "18/03/2024", rows[3][3])
	assert.Equal(t, "Bilal", rows[4][1])
	assert.Equal(t, "3507.5", rows[4][11])

	rows, err = f.GetRows("ECE")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "3287", rows[2][11])
}

func TestGeneratorErrors(t *testing.T) {
	prices := NewPriceFile(filepath.Join(t.TempDir(), ".env"))
	ctx := context.Background()

	empty := NewGenerator(&fakeSource{}, prices, "", decimal.NewFromInt(5))
	_, err := empty.Statement(ctx, march(""))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	broken := NewGenerator(&fakeSource{err: errors.New("connection refused")}, prices, "", decimal.NewFromInt(5))
	_, err = broken.Statement(ctx, march(""))
	assert.ErrorIs(t, err, apperrors.ErrDatabase)

	_, err = empty.Statement(ctx, Request{Year: 2024, Month: time.March})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func ptr(d decimal.Decimal) *decimal.Decimal { return &d }

func TestPriceFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DATABASE_URL=postgres://x\nPRICE_PER_DAY=100\n"), 0o600))

	prices := NewPriceFile(path)
	current, err := prices.Current()
	require.NoError(t, err)
	assert.True(t, dec("100").Equal(current.PricePerDay))
	assert.True(t, current.GalaDinnerCost.IsZero(), "missing keys read as zero")

	updated, err := prices.Update(PriceUpdate{GalaDinnerCost: ptr(dec("250.5"))})
	require.NoError(t, err)
	assert.True(t, dec("100").Equal(updated.PricePerDay))
	assert.True(t, dec("250.5").Equal(updated.GalaDinnerCost))

	env, err := godotenv.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://x", env["DATABASE_URL"])
	assert.Equal(t, "250.5", env[KeyGalaDinnerCost])

	reread, err := NewPriceFile(path).Current()
	require.NoError(t, err)
	assert.Equal(t, updated.GalaDinnerCost.String(), reread.GalaDinnerCost.String())
}

func TestPriceFileMissing(t *testing.T) {
	prices := NewPriceFile(filepath.Join(t.TempDir(), "absent.env"))
	current, err := prices.Current()
	require.NoError(t, err)
	assert.True(t, current.PricePerDay.IsZero())
}

func TestPriceUpdateValidate(t *testing.T) {
	var verr *apperrors.ValidationError

	err := PriceUpdate{}.Validate()
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, apperrors.CodeNoPriceProvided, verr.Code)

	err = PriceUpdate{PricePerDay: ptr(dec("-1"))}.Validate()
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, apperrors.CodeInvalidPrice, verr.Code)
	assert.Equal(t, "price_per_day", verr.Field)

	assert.NoError(t, PriceUpdate{GalaDinnerCost: ptr(decimal.Zero)}.Validate())

	var u PriceUpdate
	require.NoError(t, json.Unmarshal([]byte(`{"price_per_day": 110}`), &u))
	require.NotNil(t, u.PricePerDay)
	assert.Nil(t, u.GalaDinnerCost)
	assert.NoError(t, u.Validate())
}
