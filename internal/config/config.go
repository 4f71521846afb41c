// Package config loads service configuration from the environment and an
// optional config.yaml.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/neexbeast/ecobalance/internal/pricing"
)

// Config holds all configuration values.
type Config struct {
	Port          string `mapstructure:"PORT"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	RedisURL      string `mapstructure:"REDIS_URL"`
	BearerToken   string `mapstructure:"BEARER_TOKEN"`
	LogLevel      string `mapstructure:"LOG_LEVEL"`
	MigrationsDir string `mapstructure:"MIGRATIONS_DIR"`
	RateLimit     int    `mapstructure:"RATE_LIMIT_PER_MIN"`

	// Live sensor feed.
	FeedURL      string        `mapstructure:"FEED_URL"`
	FeedTimeout  time.Duration `mapstructure:"FEED_TIMEOUT"`
	PollInterval time.Duration `mapstructure:"POLL_INTERVAL"`

	// AI advisory.
	GeminiAPIKey string `mapstructure:"GEMINI_API_KEY"`
	GeminiModel  string `mapstructure:"GEMINI_MODEL"`

	// Departure dates are interpreted in this zone.
	BookingTimezone string `mapstructure:"BOOKING_TIMEZONE"`

	// Pricing constants.
	CurrencyScale     int64   `mapstructure:"PRICING_CURRENCY_SCALE"`
	EcoRatePerPoint   float64 `mapstructure:"PRICING_ECO_RATE_PER_POINT"`
	PlatformSurcharge int64   `mapstructure:"PRICING_PLATFORM_SURCHARGE"`
	TaxRate           float64 `mapstructure:"PRICING_TAX_RATE"`
	PremiumMultiplier float64 `mapstructure:"PRICING_PREMIUM_MULTIPLIER"`
	EcoLuxuryFactor   float64 `mapstructure:"PRICING_ECO_LUXURY_MULTIPLIER"`
}

var required = []string{"DATABASE_URL", "REDIS_URL", "BEARER_TOKEN"}

// Load reads config.yaml from the given directories (default "." and
// "./config"), then overrides it with environment variables.
func Load(configPaths ...string) (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(configPaths) == 0 {
		configPaths = []string{".", "./config"}
	}
	for _, p := range configPaths {
		v.AddConfigPath(p)
	}
	v.AutomaticEnv()

	def := pricing.DefaultConfig()
	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("BEARER_TOKEN", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MIGRATIONS_DIR", "migrations")
	v.SetDefault("RATE_LIMIT_PER_MIN", 60)
	v.SetDefault("FEED_URL", "")
	v.SetDefault("FEED_TIMEOUT", "10s")
	v.SetDefault("POLL_INTERVAL", "5s")
	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	v.SetDefault("BOOKING_TIMEZONE", "UTC")
	v.SetDefault("PRICING_CURRENCY_SCALE", def.CurrencyScale)
	v.SetDefault("PRICING_ECO_RATE_PER_POINT", def.EcoRatePerPoint)
	v.SetDefault("PRICING_PLATFORM_SURCHARGE", def.PlatformSurcharge)
	v.SetDefault("PRICING_TAX_RATE", def.TaxRate)
	v.SetDefault("PRICING_PREMIUM_MULTIPLIER", def.TierMultipliers[pricing.TierPremium])
	v.SetDefault("PRICING_ECO_LUXURY_MULTIPLIER", def.TierMultipliers[pricing.TierEcoLuxury])

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var missing []string
	for _, key := range required {
		if c.value(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	if c.TaxRate < 0 || c.EcoRatePerPoint < 0 || c.PlatformSurcharge < 0 ||
		c.PremiumMultiplier < 0 || c.EcoLuxuryFactor < 0 {
		return fmt.Errorf("pricing constants must not be negative")
	}
	if c.CurrencyScale < 1 {
		return fmt.Errorf("PRICING_CURRENCY_SCALE must be at least 1")
	}
	if _, err := time.LoadLocation(c.BookingTimezone); err != nil {
		return fmt.Errorf("BOOKING_TIMEZONE: %w", err)
	}
	return nil
}

func (c Config) value(key string) string {
	switch key {
	case "DATABASE_URL":
		return c.DatabaseURL
	case "REDIS_URL":
		return c.RedisURL
	case "BEARER_TOKEN":
		return c.BearerToken
	}
	return ""
}

// Pricing returns the pricing engine configuration.
func (c Config) Pricing() pricing.Config {
	return pricing.Config{
		CurrencyScale:     c.CurrencyScale,
		EcoRatePerPoint:   c.EcoRatePerPoint,
		PlatformSurcharge: c.PlatformSurcharge,
		TaxRate:           c.TaxRate,
		TierMultipliers: map[pricing.ComfortTier]float64{
			pricing.TierStandard:  1.0,
			pricing.TierPremium:   c.PremiumMultiplier,
			pricing.TierEcoLuxury: c.EcoLuxuryFactor,
		},
	}
}

// Location returns the booking time zone.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.BookingTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
