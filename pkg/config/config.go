package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// ServerConfig holds server configuration
type ServerConfig struct {
	Port      string
	Env       string
	BodyLimit string
}

// StoreConfig holds configuration of the backing store
type StoreConfig struct {
	Driver       string
	Name         string
	MaxOpenConns int
	LogLevel     logger.LogLevel
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SigningKey      string
	ExpirationHours int
	ResetTTL        time.Duration
	// GeneratedKey is true when no key was configured and a random one was created at startup.
	GeneratedKey bool
}

// AuthConfig holds account and password settings
type AuthConfig struct {
	ExposeResetToken bool
	DefaultPassword  string
	BcryptCost       int
	HashConcurrency  int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// JobConfig holds the cron schedules of background jobs
type JobConfig struct {
	MetricsSpec     string
	LicenseSpec     string
	LicenseWarnDays int
}

// Config holds all configuration
type Config struct {
	ServiceName string
	SeedDemo    bool
	Server      ServerConfig
	Store       StoreConfig
	JWT         JWTConfig
	Auth        AuthConfig
	Log         LogConfig
	Jobs        JobConfig
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Not returning error as .env file is optional
		fmt.Printf("Warning: .env file not found, using environment variables\n")
	}

	env := getEnv("APP_ENV", EnvDevelopment)
	serviceName := getEnv("SERVICE_NAME", "disclosure-service")

	config := &Config{
		ServiceName: serviceName,
		SeedDemo:    getEnvAsBool("SEED_DEMO_DATA", true),
		Server: ServerConfig{
			Port:      getEnv("PORT", getEnv("SERVER_PORT", "3002")),
			Env:       env,
			BodyLimit: getEnv("BODY_LIMIT", "10M"),
		},
		Store: StoreConfig{
			Driver:       strings.ToLower(getEnv("STORE_DRIVER", StoreMemory)),
			Name:         getEnv("STORE_NAME", serviceName),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 1),
			LogLevel:     getEnvAsLogLevel("DB_LOG_LEVEL", logger.Warn),
		},
		JWT: JWTConfig{
			SigningKey:      getEnv("JWT_SECRET", getEnv("JWT_SIGNING_KEY", "")),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24*7),
			ResetTTL:        time.Duration(getEnvAsInt("JWT_RESET_EXPIRATION_MINUTES", 60)) * time.Minute,
		},
		Auth: AuthConfig{
			ExposeResetToken: getEnvAsBool("AUTH_EXPOSE_RESET_TOKEN", env != EnvProduction),
			DefaultPassword:  getEnv("DEFAULT_USER_PASSWORD", "password123"),
			BcryptCost:       getEnvAsInt("BCRYPT_COST", 10),
			HashConcurrency:  getEnvAsInt("HASH_CONCURRENCY", runtime.NumCPU()),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Jobs: JobConfig{
			MetricsSpec:     getEnv("JOB_METRICS_SPEC", "@every 1m"),
			LicenseSpec:     getEnv("JOB_LICENSE_SPEC", "0 2 * * *"),
			LicenseWarnDays: getEnvAsInt("LICENSE_WARN_DAYS", 30),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the settings that cannot fall back to a default
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreMemory, StoreSQLite:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.Store.Driver)
	}

	if c.JWT.SigningKey == "" {
		if c.Server.Env == EnvProduction {
			return errors.New("JWT_SECRET must be set in production")
		}
		c.JWT.SigningKey = randomKey()
		c.JWT.GeneratedKey = true
	}

	if c.JWT.ExpirationHours <= 0 {
		return fmt.Errorf("JWT_EXPIRATION_HOURS must be positive, got %d", c.JWT.ExpirationHours)
	}
	if c.Auth.HashConcurrency < 1 {
		c.Auth.HashConcurrency = 1
	}
	return nil
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == EnvProduction
}

// LogFields returns the configuration as zap fields, secrets excluded
func (c *Config) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("service", c.ServiceName),
		zap.String("environment", c.Server.Env),
		zap.String("server_port", c.Server.Port),
		zap.String("body_limit", c.Server.BodyLimit),
		zap.String("store_driver", c.Store.Driver),
		zap.String("store_name", c.Store.Name),
		zap.String("jwt_signing_key", maskSecret(c.JWT.SigningKey)),
		zap.Int("jwt_expiration_hours", c.JWT.ExpirationHours),
		zap.Bool("expose_reset_token", c.Auth.ExposeResetToken),
		zap.Int("hash_concurrency", c.Auth.HashConcurrency),
		zap.Bool("seed_demo", c.SeedDemo),
	}
}

// randomKey returns a per-process signing key used when none is configured
func randomKey() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic("config: cannot read random bytes: " + err.Error())
	}
	return hex.EncodeToString(buf)
}

func maskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	return "***MASKED***"
}

// Helper function to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as integers
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := cast.ToIntE(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// Helper function to get environment variables as booleans
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := cast.ToBoolE(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// Helper function to get environment variables as log levels
func getEnvAsLogLevel(key string, defaultValue logger.LogLevel) logger.LogLevel {
	valueStr := getEnv(key, "")
	switch valueStr {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return defaultValue
	}
}
