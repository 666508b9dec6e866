package rebate

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/nikhileshnr/mess-rebate-system/internal/apperrors"
	"github.com/nikhileshnr/mess-rebate-system/internal/calendar"
	"github.com/nikhileshnr/mess-rebate-system/internal/metrics"
	"github.com/nikhileshnr/mess-rebate-system/internal/models"
	"github.com/nikhileshnr/mess-rebate-system/internal/store"
)

// Resolver locates a rebate from the identifier a caller holds: the public id
// returned at creation, or the older "{rollNo}_{startDate}" token.
type Resolver struct {
	store store.RebateStore
}

func NewResolver(s store.RebateStore) *Resolver {
	return &Resolver{store: s}
}

// ParseToken splits a composite token on its last underscore.
func ParseToken(token string) (string, calendar.Date, error) {
	idx := strings.LastIndex(token, "_")
	if idx <= 0 || idx == len(token)-1 {
		return "", calendar.Date{}, apperrors.Validation(
			"id",
			apperrors.CodeInvalidIDFormat,
			"id must be a rebate id or look like {roll_no}_{YYYY-MM-DD}",
		)
	}

	date, err := calendar.ParseField("id", token[idx+1:])
	if err != nil {
		return "", calendar.Date{}, err
	}
	return token[:idx], date, nil
}

// Resolve returns the rebate for token. A composite token is kept as the
// record's virtual id even when a shifted-date lookup found it.
//
// Composite tokens are tried against the stored start date as a calendar
// date, then as rendered text, then one day later and one day earlier.
func (r *Resolver) Resolve(ctx context.Context, token string) (*models.Rebate, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperrors.Validation("id", apperrors.CodeInvalidIDFormat, "id is required")
	}

	if id, err := uuid.Parse(token); err == nil {
		rebate, err := r.store.GetRebateByPublicID(ctx, id.String())
		if err != nil {
			return nil, apperrors.Database("resolve rebate", err)
		}
		return r.found(rebate, token, "public_id")
	}

	rollNo, date, err := ParseToken(token)
	if err != nil {
		return nil, err
	}

	lookups := []struct {
		strategy string
		find     func() (*models.Rebate, error)
	}{
		{"exact", func() (*models.Rebate, error) {
			return r.store.FindRebateByStart(ctx, rollNo, date)
		}},
		{"text", func() (*models.Rebate, error) {
			return r.store.FindRebateByStartText(ctx, rollNo, date.String())
		}},
		{"shift_forward", func() (*models.Rebate, error) {
			return r.store.FindRebateByStart(ctx, rollNo, date.AddDays(1))
		}},
		{"shift_back", func() (*models.Rebate, error) {
			return r.store.FindRebateByStart(ctx, rollNo, date.AddDays(-1))
		}},
	}

	for _, l := range lookups {
		rebate, err := l.find()
		if err != nil {
			return nil, apperrors.Database("resolve rebate", err)
		}
		if rebate != nil {
			if strings.HasPrefix(l.strategy, "shift") {
				logger.Debug.Printf("Resolved %s via %s to start date %s", token, l.strategy, rebate.StartDate)
			}
			return r.found(rebate, token, l.strategy)
		}
	}

	return r.found(nil, token, "")
}

func (r *Resolver) found(rebate *models.Rebate, token, strategy string) (*models.Rebate, error) {
	if rebate == nil {
		metrics.IdentityResolutions.WithLabelValues("miss").Inc()
		return nil, apperrors.NotFound("rebate", apperrors.CodeRebateNotFound, token)
	}
	metrics.IdentityResolutions.WithLabelValues(strategy).Inc()
	rebate.Label(token)
	return rebate, nil
}
