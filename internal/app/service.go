package app

import (
	"fmt"
	"io"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/nikhileshnr/mess-rebate-system/internal/billing"
	"github.com/nikhileshnr/mess-rebate-system/internal/rebate"
	"github.com/nikhileshnr/mess-rebate-system/internal/stats"
	"github.com/nikhileshnr/mess-rebate-system/internal/store"
)

type Service struct {
	Config  *Config
	Store   store.RebateStore
	Auth    *Auth
	Rebates *rebate.Manager
	Stats   *stats.Engine
	Prices  *billing.PriceFile
	Billing *billing.Generator

	cache stats.Cache
}

func NewService(configPath string) (*Service, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	store, err := OpenStore(config.Database.DSN, config.Database.MigrationsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to init store: %w", err)
	}

	cache, err := NewCache(config)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to init cache: %w", err)
	}

	auth, err := NewAuth(config)
	if err != nil {
		store.Close()
		closeCache(cache)
		return nil, fmt.Errorf("failed to init auth: %w", err)
	}

	service, err := NewServiceWith(config, store, cache, auth)
	if err != nil {
		store.Close()
		closeCache(cache)
		auth.Close()
		return nil, err
	}
	return service, nil
}

// NewServiceWith wires the domain components over already opened
// infrastructure.
func NewServiceWith(config *Config, s store.RebateStore, cache stats.Cache, auth *Auth) (*Service, error) {
	ttl, err := config.CacheTTL()
	if err != nil {
		return nil, err
	}
	gst, err := config.GSTPercent()
	if err != nil {
		return nil, err
	}

	engine := stats.NewEngine(s, cache, ttl)
	prices := billing.NewPriceFile(config.Billing.PricesFile)

	return &Service{
		Config:  config,
		Store:   s,
		Auth:    auth,
		Rebates: rebate.NewManager(s, engine),
		Stats:   engine,
		Prices:  prices,
		Billing: billing.NewGenerator(s, prices, config.Billing.InstituteName, gst),
		cache:   cache,
	}, nil
}

// NewCache builds the statistics cache backend selected in config.
func NewCache(config *Config) (stats.Cache, error) {
	switch config.Cache.Backend {
	case CacheRedis:
		client, err := connectRedis(config.Cache.RedisURL)
		if err != nil {
			return nil, err
		}
		logger.Info.Printf("Statistics cache: redis, prefix %q", config.Cache.KeyPrefix)
		return stats.NewRedisCache(client, config.Cache.KeyPrefix), nil
	default:
		logger.Info.Println("Statistics cache: in-memory")
		return stats.NewMemoryCache(), nil
	}
}

func closeCache(cache stats.Cache) error {
	if c, ok := cache.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *Service) Close() error {
	var errs []error

	if err := s.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	if err := closeCache(s.cache); err != nil {
		errs = append(errs, fmt.Errorf("cache: %w", err))
	}
	if s.Auth != nil {
		if err := s.Auth.Close(); err != nil {
			errs = append(errs, fmt.Errorf("auth: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors while closing: %v", errs)
	}
	return nil
}
