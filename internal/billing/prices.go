package billing

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/nikhileshnr/mess-rebate-system/internal/apperrors"
	"github.com/nikhileshnr/mess-rebate-system/internal/models"
)

const (
	KeyPricePerDay    = "PRICE_PER_DAY"
	KeyGalaDinnerCost = "GALA_DINNER_COST"
)

// Prices are the per-day mess charge and the flat feast (gala dinner) charge.
type Prices struct {
	PricePerDay    decimal.Decimal `json:"price_per_day"`
	GalaDinnerCost decimal.Decimal `json:"gala_dinner_cost"`
}

// PriceUpdate carries the prices to change. Absent fields keep their value.
type PriceUpdate struct {
	PricePerDay    *decimal.Decimal `json:"price_per_day" validate:"required_without=GalaDinnerCost"`
	GalaDinnerCost *decimal.Decimal `json:"gala_dinner_cost" validate:"required_without=PricePerDay"`
}

func (u PriceUpdate) Validate() error {
	if err := models.Validator().Struct(u); err != nil {
		return apperrors.Validation("", apperrors.CodeNoPriceProvided, "at least one of price_per_day and gala_dinner_cost is required")
	}
	if u.PricePerDay != nil && u.PricePerDay.IsNegative() {
		return apperrors.Validation("price_per_day", apperrors.CodeInvalidPrice, "price_per_day must not be negative")
	}
	if u.GalaDinnerCost != nil && u.GalaDinnerCost.IsNegative() {
		return apperrors.Validation("gala_dinner_cost", apperrors.CodeInvalidPrice, "gala_dinner_cost must not be negative")
	}
	return nil
}

// PriceFile keeps prices in a KEY=VALUE file next to the rest of the
// deployment environment. Unrelated keys in the file are preserved on write.
type PriceFile struct {
	mu   sync.Mutex
	path string
}

func NewPriceFile(path string) *PriceFile {
	return &PriceFile{path: path}
}

func (p *PriceFile) Path() string { return p.path }

// Current returns the stored prices. A missing file or key reads as zero.
func (p *PriceFile) Current() (Prices, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	env, err := p.read()
	if err != nil {
		return Prices{}, err
	}
	return parsePrices(env)
}

// Update applies u and persists the result.
func (p *PriceFile) Update(u PriceUpdate) (Prices, error) {
	if err := u.Validate(); err != nil {
		return Prices{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	env, err := p.read()
	if err != nil {
		return Prices{}, err
	}
	if u.PricePerDay != nil {
		env[KeyPricePerDay] = u.PricePerDay.String()
	}
	if u.GalaDinnerCost != nil {
		env[KeyGalaDinnerCost] = u.GalaDinnerCost.String()
	}

	if err := godotenv.Write(env, p.path); err != nil {
		return Prices{}, fmt.Errorf("failed to write prices to %s: %w", p.path, err)
	}
	logger.Info.Printf("Prices updated: %s=%s %s=%s", KeyPricePerDay, env[KeyPricePerDay], KeyGalaDinnerCost, env[KeyGalaDinnerCost])

	return parsePrices(env)
}

func (p *PriceFile) read() (map[string]string, error) {
	env, err := godotenv.Read(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug.Printf("Prices file %s does not exist yet", p.path)
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read prices from %s: %w", p.path, err)
	}
	return env, nil
}

func parsePrices(env map[string]string) (Prices, error) {
	perDay, err := parseAmount(env, KeyPricePerDay)
	if err != nil {
		return Prices{}, err
	}
	gala, err := parseAmount(env, KeyGalaDinnerCost)
	if err != nil {
		return Prices{}, err
	}
	return Prices{PricePerDay: perDay, GalaDinnerCost: gala}, nil
}

func parseAmount(env map[string]string, key string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(env[key])
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}
