package app

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`
	AppRateLimit      int           `envconfig:"APP_RATE_LIMIT" default:"120"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	PGDSN         string `envconfig:"PG_DSN"`
	PGMaxConns    int32  `envconfig:"PG_MAX_CONNS" default:"10"`
	DBAutoMigrate bool   `envconfig:"DB_AUTO_MIGRATE" default:"false"`

	RedisAddr      string        `envconfig:"REDIS_ADDR"`
	ReportCacheTTL time.Duration `envconfig:"REPORT_CACHE_TTL" default:"0s"`

	AuthJWTSecret string `envconfig:"AUTH_JWT_SECRET"`
	AuthJWTIssuer string `envconfig:"AUTH_JWT_ISSUER"`

	ReportDefaultTimezone string          `envconfig:"REPORT_DEFAULT_TIMEZONE" default:"America/Santo_Domingo"`
	ReportTaxRate         decimal.Decimal `envconfig:"REPORT_TAX_RATE" default:"0.18"`
	ReportTaxPlaces       int32           `envconfig:"REPORT_TAX_PLACES" default:"2"`
	ReportTopClients      int             `envconfig:"REPORT_TOP_CLIENTS" default:"5"`
	ExportLocale          string          `envconfig:"EXPORT_LOCALE" default:"es-DO"`

	InvoiceNumberPrefix     string `envconfig:"INVOICE_NUMBER_PREFIX" default:"F"`
	InvoiceOverdueAfterDays int    `envconfig:"INVOICE_OVERDUE_AFTER_DAYS" default:"0"`

	WorkerConcurrency int    `envconfig:"WORKER_CONCURRENCY" default:"5"`
	WorkerMetricsAddr string `envconfig:"WORKER_METRICS_ADDR" default:":9091"`

	location *time.Location
}

// LoadConfig reads configuration from a local .env file, when present, and
// the environment. Variables already set win over the file.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.LogFormat {
	case "pretty", "json":
	default:
		return fmt.Errorf("config: LOG_FORMAT must be pretty or json, got %q", c.LogFormat)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	loc, err := time.LoadLocation(strings.TrimSpace(c.ReportDefaultTimezone))
	if err != nil {
		return fmt.Errorf("config: REPORT_DEFAULT_TIMEZONE: %w", err)
	}
	c.location = loc
	if c.ReportTaxRate.IsNegative() || c.ReportTaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("config: REPORT_TAX_RATE must be in [0, 1), got %s", c.ReportTaxRate)
	}
	if c.ReportTaxPlaces < 1 || c.ReportTaxPlaces > 8 {
		return fmt.Errorf("config: REPORT_TAX_PLACES must be between 1 and 8, got %d", c.ReportTaxPlaces)
	}
	if c.ReportTopClients <= 0 {
		return errors.New("config: REPORT_TOP_CLIENTS must be positive")
	}
	if c.InvoiceOverdueAfterDays < 0 {
		return errors.New("config: INVOICE_OVERDUE_AFTER_DAYS must not be negative")
	}
	if c.ReportCacheTTL < 0 {
		return errors.New("config: REPORT_CACHE_TTL must not be negative")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// Location is the default report time zone.
func (c *Config) Location() *time.Location {
	if c == nil || c.location == nil {
		return time.UTC
	}
	return c.location
}

// CacheEnabled reports whether the dashboard cache should be wired.
func (c *Config) CacheEnabled() bool {
	return c != nil && c.RedisAddr != "" && c.ReportCacheTTL > 0
}
