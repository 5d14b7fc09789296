// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// Port is the HTTP listen port (default: 8080).
	Port int

	// BaseURL is the public-facing URL used to build links in emails
	// (password reset, email confirmation). May be empty in development;
	// see ResolveBaseURL for the fallback chain.
	BaseURL string

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	LogLevel string

	// Database holds MariaDB connection settings.
	Database DatabaseConfig

	// Redis holds Redis connection settings.
	Redis RedisConfig

	// Auth holds authentication and session settings.
	Auth AuthConfig

	// Google holds Google Identity Services settings for One Tap sign-in.
	Google GoogleConfig

	// SMTP holds outbound mail settings.
	SMTP SMTPConfig

	// Demo holds the fixed demo account credentials.
	Demo DemoConfig

	// Upload holds avatar upload settings.
	Upload UploadConfig
}

// DatabaseConfig holds MariaDB connection parameters. Individual fields
// (Host, User, Password, Name) are read from separate env vars so container
// orchestrators can manage each independently. If DATABASE_URL is set, it
// takes precedence over the individual fields.
type DatabaseConfig struct {
	// Host is the MariaDB address in host:port format (default: "localhost:3306").
	// If no port is specified, 3306 is appended automatically.
	Host string

	// User is the MariaDB username (default: "tradingsim").
	User string

	// Password is the MariaDB password (default: "tradingsim").
	Password string

	// Name is the database name (default: "tradingsim").
	Name string

	// dsnOverride is set when DATABASE_URL is provided, bypassing individual fields.
	dsnOverride string

	// MaxOpenConns is the maximum number of open connections in the pool.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections in the pool.
	MaxIdleConns int

	// ConnMaxLifetime is how long a connection can be reused.
	ConnMaxLifetime time.Duration
}

// DSN returns the go-sql-driver/mysql connection string. If DATABASE_URL was
// set, it is returned as-is. Otherwise the DSN is built from the individual
// Host/User/Password/Name fields using the driver's Config.FormatDSN()
// to safely handle special characters in passwords.
func (d DatabaseConfig) DSN() string {
	if d.dsnOverride != "" {
		return d.dsnOverride
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, "3306")
	cfg.DBName = d.Name
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// ensurePort appends the default port if the host string doesn't include one.
// Allows users to set DB_HOST=mydb (gets :3306) or DB_HOST=mydb:3307 (as-is).
func ensurePort(host, defaultPort string) string {
	_, _, err := net.SplitHostPort(host)
	if err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	URL string
}

// AuthConfig holds authentication and session settings.
type AuthConfig struct {
	// SecretKey gates production startup and is reserved for cookie
	// encryption. Must be 32+ chars in production.
	SecretKey string

	// AccessTTL is the lifetime of an access token in Redis.
	AccessTTL time.Duration

	// RefreshTTL is the lifetime of a refresh token in MariaDB.
	RefreshTTL time.Duration

	// ResetTTL is how long a password reset code stays valid.
	ResetTTL time.Duration

	// VerifyTTL is how long an email confirmation code stays valid.
	VerifyTTL time.Duration
}

// GoogleConfig holds Google Identity Services settings.
type GoogleConfig struct {
	// ClientID is the OAuth client ID used by the One Tap widget and the
	// ID token audience check. One Tap is disabled when empty.
	ClientID string
}

// Enabled returns true if Google One Tap sign-in is configured.
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != ""
}

// SMTPConfig holds outbound mail settings. Mail sending is disabled when
// Host is empty -- reset/confirmation links are then logged instead.
type SMTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	FromName   string
	FromAddr   string
	Encryption string // "starttls" (default), "ssl", or "none".
}

// Configured returns true if a mail host has been set.
func (s SMTPConfig) Configured() bool {
	return s.Host != ""
}

// DemoConfig holds the fixed demo account credentials. The demo user is
// seeded at startup so the one-click demo login always has a target.
type DemoConfig struct {
	Email    string
	Password string
}

// UploadConfig holds avatar upload settings.
type UploadConfig struct {
	// MaxSize is the maximum avatar file size in bytes.
	MaxSize int64

	// MediaPath is the root directory for uploaded media storage.
	MediaPath string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first if present (ignored
// when absent). Returns an error if required production variables are missing.
func Load() (*Config, error) {
	// Best-effort .env load for local development.
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		BaseURL:  getEnv("BASE_URL", ""),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost:3306"),
			User:            getEnv("DB_USER", "tradingsim"),
			Password:        getEnv("DB_PASSWORD", "tradingsim"),
			Name:            getEnv("DB_NAME", "tradingsim"),
			dsnOverride:     getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},

		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},

		Auth: AuthConfig{
			SecretKey:  getEnv("SECRET_KEY", ""),
			AccessTTL:  getEnvDuration("ACCESS_TOKEN_TTL", 30*time.Minute),
			RefreshTTL: getEnvDuration("REFRESH_TOKEN_TTL", 720*time.Hour),
			ResetTTL:   getEnvDuration("RESET_TOKEN_TTL", time.Hour),
			VerifyTTL:  getEnvDuration("VERIFY_TOKEN_TTL", 24*time.Hour),
		},

		Google: GoogleConfig{
			ClientID: getEnv("GOOGLE_CLIENT_ID", ""),
		},

		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvInt("SMTP_PORT", 587),
			Username:   getEnv("SMTP_USERNAME", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			FromName:   getEnv("SMTP_FROM_NAME", "TradingSim"),
			FromAddr:   getEnv("SMTP_FROM_ADDR", "no-reply@tradingsim.co"),
			Encryption: getEnv("SMTP_ENCRYPTION", "starttls"),
		},

		Demo: DemoConfig{
			Email:    getEnv("DEMO_EMAIL", "demo@tradingsim.co"),
			Password: getEnv("DEMO_PASSWORD", "demo123"),
		},

		Upload: UploadConfig{
			MaxSize:   getEnvInt64("MAX_AVATAR_SIZE", 2*1024*1024), // 2MB
			MediaPath: getEnv("MEDIA_PATH", "./media"),
		},
	}

	// Validate required fields in production. Case-insensitive check catches
	// common variants like "Production", "prod", etc.
	envLower := strings.ToLower(cfg.Env)
	if envLower == "production" || envLower == "prod" {
		if cfg.Auth.SecretKey == "" {
			return nil, fmt.Errorf("SECRET_KEY is required in production")
		}
		if len(cfg.Auth.SecretKey) < 32 {
			return nil, fmt.Errorf("SECRET_KEY must be at least 32 characters in production")
		}
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("BASE_URL is required in production")
		}
	}

	// Provide a dev-only default secret so local dev works without .env.
	if cfg.Auth.SecretKey == "" {
		cfg.Auth.SecretKey = "dev-secret-key-do-not-use-in-production!!"
	}

	return cfg, nil
}

// ResolveBaseURL returns the site URL used to build absolute links. The
// chain is: configured BASE_URL, then the origin of the current request,
// then a hardcoded local default. Trailing slashes are stripped.
func (c *Config) ResolveBaseURL(requestOrigin string) string {
	url := c.BaseURL
	if url == "" {
		url = requestOrigin
	}
	url = strings.TrimSuffix(url, "/")
	if url == "" {
		url = "http://localhost:8080"
	}
	return url
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// --- Helper functions for reading environment variables ---

// getEnv reads a string env var or returns the default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer env var or returns the default.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvInt64 reads an int64 env var or returns the default.
func getEnvInt64(key string, defaultVal int64) int64 {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvDuration reads a duration env var (e.g., "720h") or returns the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
