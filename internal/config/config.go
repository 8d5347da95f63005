package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Database drivers understood by database.Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the application configuration, read from the environment and an
// optional config file.
type Config struct {
	AppPort    string `mapstructure:"APP_PORT"`
	AppEnv     string `mapstructure:"APP_ENV"`
	AppBaseURL string `mapstructure:"APP_BASE_URL"`

	DBDriver    string `mapstructure:"DB_DRIVER"`
	DatabaseDSN string `mapstructure:"DATABASE_DSN"`

	JWTSecret string        `mapstructure:"JWT_SECRET"`
	JWTTTL    time.Duration `mapstructure:"JWT_TTL"`

	RabbitMQURL       string        `mapstructure:"RABBITMQ_URL"`
	RedisURL          string        `mapstructure:"REDIS_URL"`
	AnalyticsCacheTTL time.Duration `mapstructure:"ANALYTICS_CACHE_TTL"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogPretty bool   `mapstructure:"LOG_PRETTY"`
	Timezone  string `mapstructure:"TIMEZONE"`

	SeedProducts  bool   `mapstructure:"SEED_PRODUCTS"`
	AdminEmail    string `mapstructure:"ADMIN_EMAIL"`
	AdminPassword string `mapstructure:"ADMIN_PASSWORD"`
	AdminUsername string `mapstructure:"ADMIN_USERNAME"`

	RequireEmailVerification bool   `mapstructure:"REQUIRE_EMAIL_VERIFICATION"`
	OAuthAPIKey              string `mapstructure:"OAUTH_API_KEY"`
}

var keys = []string{
	"APP_PORT", "APP_ENV", "APP_BASE_URL",
	"DB_DRIVER", "DATABASE_DSN",
	"JWT_SECRET", "JWT_TTL",
	"RABBITMQ_URL", "REDIS_URL", "ANALYTICS_CACHE_TTL",
	"LOG_LEVEL", "LOG_PRETTY", "TIMEZONE",
	"SEED_PRODUCTS", "ADMIN_EMAIL", "ADMIN_PASSWORD", "ADMIN_USERNAME",
	"REQUIRE_EMAIL_VERIFICATION", "OAUTH_API_KEY",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_BASE_URL", "http://localhost:8080")
	v.SetDefault("DB_DRIVER", DriverSQLite)
	v.SetDefault("DATABASE_DSN", "storefront.db")
	v.SetDefault("JWT_TTL", 24*time.Hour)
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("ANALYTICS_CACHE_TTL", time.Minute)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)
	v.SetDefault("TIMEZONE", "Asia/Kolkata")
	v.SetDefault("SEED_PRODUCTS", false)
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("REQUIRE_EMAIL_VERIFICATION", false)
}

// Load reads the configuration. Environment variables win over the file
// named by CONFIG_FILE, which wins over defaults.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	// AutomaticEnv only applies to keys viper already knows about.
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if strings.HasSuffix(file, ".env") {
			v.SetConfigType("env")
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values the application cannot start without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	switch c.DBDriver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if c.DatabaseDSN == "" {
			return errors.New("DATABASE_DSN must be set for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}
	if c.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// IsProduction reports whether internal error details must be hidden.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Location returns the configured time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
