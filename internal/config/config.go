package config

import (
	"fmt"
	"log"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

type Config struct {
	Port             string        `mapstructure:"PORT"`
	Env              string        `mapstructure:"ENV"`
	DatabaseURL      string        `mapstructure:"DATABASE_URL"`
	DBMaxConns       int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns       int32         `mapstructure:"DB_MIN_CONNS"`
	RedisURL         string        `mapstructure:"REDIS_URL"`
	AuthIssuer       string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience     string        `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey   string        `mapstructure:"AUTH_SIGNING_KEY"`
	CORSOrigins      []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS     float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst   int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout   time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit        string        `mapstructure:"BODY_LIMIT"`
	Timezone         string        `mapstructure:"TIMEZONE"`
	GeminiAPIKey     string        `mapstructure:"GEMINI_API_KEY"`
	GeminiModel      string        `mapstructure:"GEMINI_MODEL"`
	GeminiBaseURL    string        `mapstructure:"GEMINI_BASE_URL"`
	GeminiTimeout    time.Duration `mapstructure:"GEMINI_TIMEOUT"`
	GeminiMaxRetries int           `mapstructure:"GEMINI_MAX_RETRIES"`
	MigrationsDir    string        `mapstructure:"MIGRATIONS_DIR"`
	ShiftJobEnabled  bool          `mapstructure:"SHIFT_JOB_ENABLED"`
	DevUserID        string        `mapstructure:"DEV_USER_ID"`

	loc *time.Location
}

var boundKeys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "REDIS_URL",
	"AUTH_ISSUER", "AUTH_AUDIENCE", "AUTH_SIGNING_KEY", "CORS_ORIGINS",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT", "BODY_LIMIT", "TIMEZONE",
	"GEMINI_API_KEY", "GEMINI_MODEL", "GEMINI_BASE_URL", "GEMINI_TIMEOUT",
	"GEMINI_MAX_RETRIES", "MIGRATIONS_DIR", "SHIFT_JOB_ENABLED", "DEV_USER_ID",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("REQUEST_TIMEOUT", "60s")
	v.SetDefault("BODY_LIMIT", "256K")
	v.SetDefault("TIMEZONE", "Asia/Seoul")
	v.SetDefault("GEMINI_MODEL", "gemini-2.0-flash")
	v.SetDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("GEMINI_TIMEOUT", "30s")
	v.SetDefault("GEMINI_MAX_RETRIES", 0)
	v.SetDefault("MIGRATIONS_DIR", "")
	v.SetDefault("SHIFT_JOB_ENABLED", true)
	v.SetDefault("DEV_USER_ID", "00000000-0000-0000-0000-000000000001")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range boundKeys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) <= 1 {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.loc = loc

	if cfg.IsDev() {
		log.Println("WARNING: running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active; unauthenticated requests act as a dev nurse.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Location is the hospital's wall-clock zone. Every date and shift window
// computation takes it explicitly.
func (c *Config) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE %q is not a known zone: %w", c.Timezone, err)
	}
	if !c.IsDev() && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY is required when ENV=%q", c.Env)
	}
	if c.AuthSigningKey != "" && len(c.AuthSigningKey) < 32 {
		return fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 characters, got %d", len(c.AuthSigningKey))
	}
	if c.IsDev() && c.DevUserID != "" {
		if _, err := uuid.Parse(c.DevUserID); err != nil {
			return fmt.Errorf("DEV_USER_ID %q is not a valid id", c.DevUserID)
		}
	}
	if c.IsProduction() && c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required in production")
	}
	if c.GeminiTimeout <= 0 {
		return fmt.Errorf("GEMINI_TIMEOUT must be positive, got %s", c.GeminiTimeout)
	}
	if c.GeminiMaxRetries < 0 {
		return fmt.Errorf("GEMINI_MAX_RETRIES must not be negative, got %d", c.GeminiMaxRetries)
	}
	if c.RequestTimeout > 0 && c.RequestTimeout < c.GeminiTimeout {
		return fmt.Errorf("REQUEST_TIMEOUT (%s) must not be shorter than GEMINI_TIMEOUT (%s)", c.RequestTimeout, c.GeminiTimeout)
	}
	return nil
}
