package store

type DatabaseType string

const (
	DBTypePostgres DatabaseType = "postgres"
	DBTypeSQLite   DatabaseType = "sqlite"
)

type DBConfig struct {
	DSN  string
	Type DatabaseType
}

const rebateColumns = `r.id, r.public_id, r.roll_no, r.start_date, r.end_date, r.rebate_days, r.gate_pass_no`

const studentColumns = `s.name, s.branch, s.batch`
