// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development.
package config

import (
	"fmt"
	"log/slog"
	"math"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// Port is the HTTP listen port (default: 8080).
	Port int

	// BaseURL is the public-facing URL used for CORS and links.
	BaseURL string

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	LogLevel string

	// MigrationsPath is the directory holding the SQL migration files.
	MigrationsPath string

	// HTTP holds settings of the HTTP edge: CORS, proxies, TLS headers.
	HTTP HTTPConfig

	// Database holds MariaDB connection settings for the local event store.
	Database DatabaseConfig

	// Redis holds Redis connection settings (session lookup).
	Redis RedisConfig

	// Auth holds session-related settings.
	Auth AuthConfig

	// Workdeck holds settings for the remote Workdeck REST API.
	Workdeck WorkdeckConfig

	// Timeline holds display constants of the calendar time grid.
	Timeline TimelineConfig
}

// DatabaseConfig holds MariaDB connection parameters. Individual fields
// (Host, User, Password, Name) are read from separate env vars so
// container orchestrators can manage each independently.
// If DATABASE_URL is set, it takes precedence over the individual fields.
type DatabaseConfig struct {
	// Host is the MariaDB address in host:port format (default: "localhost:3306").
	// If no port is specified, 3306 is appended automatically.
	Host string

	User     string
	Password string
	Name     string

	// dsnOverride is set when DATABASE_URL is provided, bypassing individual fields.
	dsnOverride string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN returns the go-sql-driver/mysql connection string. If DATABASE_URL was
// set, it is returned as-is. Otherwise the DSN is built from the individual
// fields using the driver's Config.FormatDSN() to handle special characters.
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
	cfg.Loc = time.UTC
	return cfg.FormatDSN()
}

// ensurePort appends the default port if the host string doesn't include one.
func ensurePort(host, defaultPort string) string {
	_, _, err := net.SplitHostPort(host)
	if err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// HTTPConfig holds settings of the HTTP edge.
type HTTPConfig struct {
	// CORSOrigins may call the event API from a browser (default: BaseURL).
	CORSOrigins []string

	// TrustedProxies are CIDRs whose forwarding headers are honored.
	TrustedProxies []string

	// HSTS enables Strict-Transport-Security; set when served over TLS.
	HSTS bool

	// ShutdownTimeout bounds graceful shutdown of in-flight requests.
	ShutdownTimeout time.Duration
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	URL string
}

// AuthConfig holds session lookup settings. Sessions are written by the
// Workdeck login service; this application only reads them.
type AuthConfig struct {
	// CookieName is the cookie carrying the session token.
	CookieName string

	// SessionTTL is refreshed on every successful lookup.
	SessionTTL time.Duration
}

// WorkdeckConfig holds settings for the remote Workdeck REST API.
type WorkdeckConfig struct {
	// APIURL is the base URL of the Workdeck API. Empty means the timeline
	// persists into the local MariaDB event store instead.
	APIURL string

	// Timeout bounds every remote request.
	Timeout time.Duration
}

// IsRemote reports whether timelines should talk to a remote Workdeck API.
func (w WorkdeckConfig) IsRemote() bool {
	return w.APIURL != ""
}

// TimelineConfig holds display constants of the calendar time grid.
type TimelineConfig struct {
	// PixelsPerHour is the vertical scale of the grid (default: 60).
	PixelsPerHour float64

	// StartHour and EndHour bound the visible range of the grid.
	StartHour float64
	EndHour   float64

	// Timezone is the IANA zone used to map days to wall-clock hours.
	Timezone string

	// IdleTTL is how long an untouched timeline is kept in memory.
	IdleTTL time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
// Returns an error if values are inconsistent.
func Load() (*Config, error) {
	cfg := &Config{
		Env:            getEnv("ENV", "development"),
		Port:           getEnvInt("PORT", 8080),
		BaseURL:        getEnv("BASE_URL", "http://localhost:8080"),
		LogLevel:       getEnv("LOG_LEVEL", ""),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "db/migrations"),

		HTTP: HTTPConfig{
			TrustedProxies:  getEnvList("TRUSTED_PROXIES", nil),
			HSTS:            getEnvBool("HSTS", false),
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost:3306"),
			User:            getEnv("DB_USER", "planner"),
			Password:        getEnv("DB_PASSWORD", "planner"),
			Name:            getEnv("DB_NAME", "planner"),
			dsnOverride:     getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},

		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},

		Auth: AuthConfig{
			CookieName: getEnv("SESSION_COOKIE", "workdeck_session"),
			SessionTTL: getEnvDuration("SESSION_TTL", 720*time.Hour),
		},

		Workdeck: WorkdeckConfig{
			APIURL:  strings.TrimRight(getEnv("WORKDECK_API_URL", ""), "/"),
			Timeout: getEnvDuration("WORKDECK_API_TIMEOUT", 15*time.Second),
		},

		Timeline: TimelineConfig{
			PixelsPerHour: getEnvFloat("TIMELINE_PIXELS_PER_HOUR", 60),
			StartHour:     getEnvFloat("TIMELINE_START_HOUR", 0),
			EndHour:       getEnvFloat("TIMELINE_END_HOUR", 23),
			Timezone:      getEnv("TIMELINE_TIMEZONE", "UTC"),
			IdleTTL:       getEnvDuration("TIMELINE_IDLE_TTL", 30*time.Minute),
		},
	}

	cfg.HTTP.CORSOrigins = getEnvList("CORS_ORIGINS", []string{cfg.BaseURL})

	if err := cfg.Timeline.validate(); err != nil {
		return nil, err
	}
	if _, err := time.LoadLocation(cfg.Timeline.Timezone); err != nil {
		return nil, fmt.Errorf("TIMELINE_TIMEZONE %q: %w", cfg.Timeline.Timezone, err)
	}

	return cfg, nil
}

// validate checks the grid constants describe a usable viewport.
func (t TimelineConfig) validate() error {
	if t.PixelsPerHour <= 0 {
		return fmt.Errorf("TIMELINE_PIXELS_PER_HOUR must be positive")
	}
	if t.StartHour < 0 || t.EndHour > 23 || t.StartHour > t.EndHour {
		return fmt.Errorf("TIMELINE_START_HOUR/TIMELINE_END_HOUR must satisfy 0 <= start <= end <= 23")
	}
	if !onQuarterHour(t.StartHour) || !onQuarterHour(t.EndHour) {
		return fmt.Errorf("TIMELINE_START_HOUR/TIMELINE_END_HOUR must be whole quarter hours")
	}
	return nil
}

// onQuarterHour reports whether h lies on the grid's 15-minute snap step.
func onQuarterHour(h float64) bool {
	q := h * 4
	return q == math.Trunc(q)
}

// Location returns the configured zone. Load has already validated it.
func (t TimelineConfig) Location() *time.Location {
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SlogLevel maps LogLevel to a slog level. Unset means debug in
// development and info elsewhere.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		return slog.LevelInfo
	}
	if c.IsDevelopment() {
		return slog.LevelDebug
	}
	return slog.LevelInfo
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

// getEnvFloat reads a float env var or returns the default.
func getEnvFloat(key string, defaultVal float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// getEnvBool reads a boolean env var ("true", "1", ...) or returns the default.
func getEnvBool(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvList reads a comma-separated env var or returns the default.
// Empty items are dropped.
func getEnvList(key string, defaultVal []string) []string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
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
