/*
Package config loads the server configuration from the environment.

PURPOSE:
  Every knob of the dues engine server in one struct, read from
  environment variables with defaults, validated before anything starts.
  cmd/server optionally loads a .env file first (godotenv); this package
  only reads the resulting environment.

VARIABLES:
  PORT            HTTP port                          (default 8080)
  DB_PATH         SQLite snapshot database path      (default dues.db)
  LOG_LEVEL       trace..panic                       (default info)
  LOG_FORMAT      console or json                    (default console)
  LOG_TIME_FORMAT time layout for console output     (default RFC3339)
  LOG_OUTPUT      stdout, stderr, or a file path     (default stdout)
  DEBOUNCE_MS     recompute quiet window, millis     (default 300)
  SLICE_SIZE      members per recompute slice        (default 25, 1..500)
  CACHE_CAPACITY  calculation cache entries          (default 1000)
  INVOICE_YEAR    default invoice year when no snapshot exists
  TAX_PERCENT     default tax percentage             (default 0)
  CURRENCY_RATE   default home-to-local rate         (default 1.0)
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clubdesk/dues-engine/logger"
)

type Config struct {
	// Server
	Port   int
	DBPath string

	// Scheduler
	DebounceMS int
	SliceSize  int

	// Calculation cache
	CacheCapacity int

	// Default invoice settings, used when no snapshot exists
	InvoiceYear  int
	TaxPercent   decimal.Decimal
	CurrencyRate decimal.Decimal

	// Logging
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:          getEnvInt("PORT", 8080),
		DBPath:        getEnv("DB_PATH", "dues.db"),
		DebounceMS:    getEnvInt("DEBOUNCE_MS", 300),
		SliceSize:     getEnvInt("SLICE_SIZE", 25),
		CacheCapacity: getEnvInt("CACHE_CAPACITY", 1000),
		InvoiceYear:   getEnvInt("INVOICE_YEAR", time.Now().Year()+1),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "console"),
		LogTimeFormat: getEnv("LOG_TIME_FORMAT", time.RFC3339),
		LogOutput:     getEnv("LOG_OUTPUT", "stdout"),
	}

	var err error
	if cfg.TaxPercent, err = getEnvDecimal("TAX_PERCENT", "0"); err != nil {
		return nil, err
	}
	if cfg.CurrencyRate, err = getEnvDecimal("CURRENCY_RATE", "1.0"); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT %d out of range", c.Port)
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH must not be empty")
	}
	if c.DebounceMS < 0 {
		return fmt.Errorf("DEBOUNCE_MS must not be negative")
	}
	if c.SliceSize < 1 || c.SliceSize > 500 {
		return fmt.Errorf("SLICE_SIZE %d out of range 1..500", c.SliceSize)
	}
	if c.CacheCapacity < 1 {
		return fmt.Errorf("CACHE_CAPACITY must be positive")
	}
	if c.TaxPercent.IsNegative() {
		return fmt.Errorf("TAX_PERCENT must not be negative")
	}
	if !c.CurrencyRate.IsPositive() {
		return fmt.Errorf("CURRENCY_RATE must be positive")
	}
	return nil
}

// Debounce returns the recompute quiet window as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// GetLoggerConfig bridges to the logger package.
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvDecimal(key, defaultValue string) (decimal.Decimal, error) {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
