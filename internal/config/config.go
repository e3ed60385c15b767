package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config is the process-wide configuration, loaded once at startup and passed
// explicitly to the components that need it.
type Config struct {
	DatabaseURL    string
	ServerPort     string
	AllowedOrigins string
	JWTSecret      string
	CookieSecure   bool
	LogLevel       string

	// Par rules
	RiskRatio             decimal.Decimal
	RequireVarianceReason bool

	// Reporting
	UsageWindowDays    int
	LeadTimeBufferDays int
	RedisAddr          string
	ReportCacheTTL     time.Duration
}

// Load reads .env (if present) and then the environment. Missing keys fall back
// to the defaults below.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("PAR_RISK_RATIO", "1.2")
	v.SetDefault("REQUIRE_VARIANCE_REASON", false)
	v.SetDefault("USAGE_WINDOW_DAYS", 30)
	v.SetDefault("LEAD_TIME_BUFFER_DAYS", 3)
	v.SetDefault("REPORT_CACHE_TTL", "5m")

	ratio, err := decimal.NewFromString(v.GetString("PAR_RISK_RATIO"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAR_RISK_RATIO %q: %w", v.GetString("PAR_RISK_RATIO"), err)
	}
	if !ratio.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("PAR_RISK_RATIO must be greater than 1, got %s", ratio)
	}

	ttl, err := time.ParseDuration(v.GetString("REPORT_CACHE_TTL"))
	if err != nil {
		return nil, fmt.Errorf("invalid REPORT_CACHE_TTL: %w", err)
	}

	cfg := &Config{
		DatabaseURL:           v.GetString("DATABASE_URL"),
		ServerPort:            v.GetString("SERVER_PORT"),
		AllowedOrigins:        v.GetString("ALLOWED_ORIGINS"),
		JWTSecret:             v.GetString("JWT_SECRET"),
		CookieSecure:          v.GetBool("COOKIE_SECURE"),
		LogLevel:              v.GetString("LOG_LEVEL"),
		RiskRatio:             ratio,
		RequireVarianceReason: v.GetBool("REQUIRE_VARIANCE_REASON"),
		UsageWindowDays:       v.GetInt("USAGE_WINDOW_DAYS"),
		LeadTimeBufferDays:    v.GetInt("LEAD_TIME_BUFFER_DAYS"),
		RedisAddr:             v.GetString("REDIS_ADDR"),
		ReportCacheTTL:        ttl,
	}

	if cfg.UsageWindowDays <= 0 {
		return nil, fmt.Errorf("USAGE_WINDOW_DAYS must be positive, got %d", cfg.UsageWindowDays)
	}
	if cfg.LeadTimeBufferDays < 0 {
		return nil, fmt.Errorf("LEAD_TIME_BUFFER_DAYS cannot be negative, got %d", cfg.LeadTimeBufferDays)
	}
	return cfg, nil
}

// RequireDatabase returns an error when DATABASE_URL is unset.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}
	return nil
}
