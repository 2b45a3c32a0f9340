package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server    ServerConfig    `envconfig:"SERVER"`
	Dataset   DatasetConfig   `envconfig:"DATASET"`
	Logger    LoggerConfig    `envconfig:"LOG"`
	Security  SecurityConfig  `envconfig:"SECURITY"`
	Dashboard DashboardConfig `envconfig:"DASHBOARD"`
}

// Nested fields are read as <SECTION>_<FIELD_NAME>, e.g. SERVER_READ_TIMEOUT
// or DATASET_PATH.
type ServerConfig struct {
	Host            string        `split_words:"true" default:"localhost"`
	Port            int           `split_words:"true" default:"8084"`
	ReadTimeout     time.Duration `split_words:"true" default:"10s"`
	WriteTimeout    time.Duration `split_words:"true" default:"10s"`
	IdleTimeout     time.Duration `split_words:"true" default:"60s"`
	ShutdownTimeout time.Duration `split_words:"true" default:"30s"`
}

type DatasetConfig struct {
	// Path is a .csv, .xlsx or SQLite file.
	Path string `split_words:"true" default:"data/olist.csv"`
	// Table names the SQLite table or XLSX sheet; empty picks the first one.
	Table                 string `split_words:"true"`
	CategoryTranslations  string `split_words:"true"`
	TimeColumn            string `split_words:"true"`
	DropInvalidTimestamps bool   `split_words:"true" default:"false"`
	CacheSize             int    `split_words:"true" default:"4"`
}

type LoggerConfig struct {
	Level  string `split_words:"true" default:"info"`
	Format string `split_words:"true" default:"json"`
}

type SecurityConfig struct {
	EnableRateLimit bool `split_words:"true" default:"true"`
	RateLimitRPS    int  `split_words:"true" default:"100"`
	RateLimitBurst  int  `split_words:"true" default:"10"`
	// RateLimitIdle is how long a client's limiter survives without requests.
	RateLimitIdle time.Duration `split_words:"true" default:"5m"`
	// RateLimitClients caps the number of tracked clients; the least recently
	// seen is dropped first.
	RateLimitClients int `split_words:"true" default:"10000"`
	AllowedOrigins   []string `split_words:"true" default:"http://localhost:8084"`
	// TrustedProxies lists addresses or CIDR ranges whose forwarding headers
	// are honoured.
	TrustedProxies []string `split_words:"true" default:"127.0.0.1"`
}

type DashboardConfig struct {
	DefaultTopN int  `split_words:"true" default:"5"`
	ZeroFill    bool `split_words:"true" default:"true"`
}

var validTimeColumns = []string{"", "order_purchase_timestamp", "order_approved_at"}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Dataset.Path == "" {
		return fmt.Errorf("dataset path cannot be empty")
	}

	if !slices.Contains(validTimeColumns, c.Dataset.TimeColumn) {
		return fmt.Errorf("invalid time column %q, must be one of: %s",
			c.Dataset.TimeColumn, strings.Join(validTimeColumns[1:], ", "))
	}

	if c.Dataset.CacheSize <= 0 {
		return fmt.Errorf("dataset cache size must be positive")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !slices.Contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	if c.Security.RateLimitIdle <= 0 {
		return fmt.Errorf("rate limit idle timeout must be positive")
	}

	if c.Security.RateLimitClients <= 0 {
		return fmt.Errorf("rate limit client cap must be positive")
	}

	if c.Dashboard.DefaultTopN < 3 || c.Dashboard.DefaultTopN > 15 {
		return fmt.Errorf("default top-n must be between 3 and 15, got %d", c.Dashboard.DefaultTopN)
	}

	return nil
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
