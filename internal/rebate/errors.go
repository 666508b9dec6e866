package rebate

import (
	"errors"
	"fmt"

	"github.com/nikhileshnr/mess-rebate-system/internal/apperrors"
	"github.com/nikhileshnr/mess-rebate-system/internal/metrics"
	"github.com/nikhileshnr/mess-rebate-system/internal/store"
)

// BatchError reports the edit that stopped an update batch. Edits before
// Index were committed.
type BatchError struct {
	Index int
	ID    string
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("edit %d (%s): %v", e.Index, e.ID, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// translate maps store sentinels onto the caller-facing taxonomy. Anything
// unrecognised becomes an opaque database error.
func translate(op, id string, err error) error {
	switch {
	case errors.Is(err, store.ErrOverlap):
		metrics.RebateRejections.WithLabelValues("overlap").Inc()
		return apperrors.BusinessRule(
			apperrors.RuleNoOverlap,
			apperrors.CodeOverlap,
			"rebate period overlaps an existing rebate for this student",
		)
	case errors.Is(err, store.ErrDuplicateGatePass):
		metrics.RebateRejections.WithLabelValues("duplicate_gate_pass").Inc()
		return apperrors.Validation("gate_pass_no", apperrors.CodeDuplicateGatePass, "gate pass number already used")
	case errors.Is(err, store.ErrStudentNotFound):
		return apperrors.NotFound("student", apperrors.CodeStudentNotFound, id)
	case errors.Is(err, store.ErrRebateNotFound):
		return apperrors.NotFound("rebate", apperrors.CodeRebateNotFound, id)
	default:
		return apperrors.Database(op, err)
	}
}
