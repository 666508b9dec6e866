package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type Student struct {
	RollNo string `db:"roll_no" json:"roll_no" validate:"required,max=20"`
	Name   string `db:"name" json:"name" validate:"required"`
	Branch string `db:"branch" json:"branch" validate:"required"`
	Batch  Batch  `db:"batch" json:"batch" validate:"required"`
}

func (s *Student) Validate() error {
	return ValidateStruct(s)
}

type StudentFilter struct {
	Branch string
	Batch  Batch
}

// Batch is a cohort label. Upstream systems send it either as a number or a
// string, so it is always held and compared in trimmed string form.
type Batch string

func NormalizeBatch(s string) Batch {
	return Batch(strings.TrimSpace(s))
}

func (b Batch) String() string { return string(b) }

func (b Batch) Equal(o Batch) bool {
	return NormalizeBatch(string(b)) == NormalizeBatch(string(o))
}

func (b *Batch) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*b = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*b = NormalizeBatch(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("batch must be a string or a number: %w", err)
	}
	*b = NormalizeBatch(n.String())
	return nil
}

func (b *Batch) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*b = ""
	case string:
		*b = NormalizeBatch(v)
	case []byte:
		*b = NormalizeBatch(string(v))
	case int64:
		*b = Batch(strconv.FormatInt(v, 10))
	case float64:
		*b = Batch(strconv.FormatFloat(v, 'f', -1, 64))
	default:
		return fmt.Errorf("scan batch: unsupported type %T", src)
	}
	return nil
}

func (b Batch) Value() (driver.Value, error) {
	return string(NormalizeBatch(string(b))), nil
}
