package app

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"

	"github.com/shrimpsizemoose/trekker/logger"
)

const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type Config struct {
	Server struct {
		Port           string   `toml:"port"`
		EnableAuth     bool     `toml:"enable_auth"`
		AllowedOrigins []string `toml:"allowed_origins"`
	} `toml:"server"`

	Auth struct {
		RedisURL           string `toml:"redis_url"`
		TokenHeader        string `toml:"token_header"`
		SessionKeyTemplate string `toml:"session_key_template"`
	} `toml:"auth"`

	Database struct {
		DSN           string `toml:"dsn"`
		MigrationsDir string `toml:"migrations_dir"`
	} `toml:"database"`

	Cache struct {
		Backend   string `toml:"backend"`
		RedisURL  string `toml:"redis_url"`
		TTL       string `toml:"ttl"`
		KeyPrefix string `toml:"key_prefix"`
	} `toml:"cache"`

	Billing struct {
		PricesFile    string `toml:"prices_file"`
		InstituteName string `toml:"institute_name"`
		GSTPercent    string `toml:"gst_percent"`
	} `toml:"billing"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf(
			"error reading config file %s\n> Error: %w\n> Content:\n%s",
			path,
			err,
			string(data),
		)
	}

	if config.Server.Port == "" {
		return nil, fmt.Errorf("Server port is not specified in config, use a value like :9999")
	}

	config.applyDefaults()
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	logger.Debug.Printf("Loaded config: database=%s cache=%s auth=%t", config.Database.DSN, config.Cache.Backend, config.Server.EnableAuth)

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Auth.TokenHeader == "" {
		c.Auth.TokenHeader = "Authorization"
	}
	if c.Auth.SessionKeyTemplate == "" {
		c.Auth.SessionKeyTemplate = "session:{token}"
	}
	if c.Database.DSN == "" {
		c.Database.DSN = "file:rebates.db"
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheMemory
	}
	if c.Cache.TTL == "" {
		c.Cache.TTL = "30m"
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "stats:"
	}
	if c.Billing.PricesFile == "" {
		c.Billing.PricesFile = ".env"
	}
	if c.Billing.GSTPercent == "" {
		c.Billing.GSTPercent = "5"
	}
}

func (c *Config) validate() error {
	switch c.Cache.Backend {
	case CacheMemory:
	case CacheRedis:
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("cache.redis_url is required for the redis cache backend")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}

	if _, err := c.CacheTTL(); err != nil {
		return err
	}
	if _, err := c.GSTPercent(); err != nil {
		return err
	}

	if c.Server.EnableAuth && c.Auth.RedisURL == "" {
		return fmt.Errorf("auth.redis_url is required when server.enable_auth is set")
	}
	return nil
}

func (c *Config) CacheTTL() (time.Duration, error) {
	ttl, err := time.ParseDuration(c.Cache.TTL)
	if err != nil {
		return 0, fmt.Errorf("invalid cache.ttl %q: %w", c.Cache.TTL, err)
	}
	if ttl <= 0 {
		return 0, fmt.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL)
	}
	return ttl, nil
}

func (c *Config) GSTPercent() (decimal.Decimal, error) {
	gst, err := decimal.NewFromString(c.Billing.GSTPercent)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid billing.gst_percent %q: %w", c.Billing.GSTPercent, err)
	}
	if gst.IsNegative() {
		return decimal.Zero, fmt.Errorf("billing.gst_percent must not be negative")
	}
	return gst, nil
}
