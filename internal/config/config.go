package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// AlertsConfig holds the alert engine's scheduling and delivery settings.
type AlertsConfig struct {
	Enabled         bool
	DailySchedule   string // Cron expression, 5 fields
	MonthlySchedule string // Cron expression, 5 fields
	SchedulerTZ     string // Process-wide zone the cron expressions are read in
	JobTimeout      time.Duration
	DispatchTimeout time.Duration
	RetryAttempts   int
	RetryBaseDelay  time.Duration
	DeferQuietHours bool // Re-run a suppressed tenant when its quiet hours end the same day
}

// LogConfig selects where structured logs go.
type LogConfig struct {
	Level      string // debug, info, warn, error
	Output     string // "stdout" or "file"
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type Config struct {
	// Server
	Port string
	Env  string // "development", "production"

	// Storage
	DatabaseURL string
	RedisURL    string // Optional; enables the cross-process job lease
	AutoMigrate bool

	// Auth
	JWTSecret string

	// CORS
	AllowedOrigins []string
	FrontendURL    string

	Alerts AlertsConfig
	Log    LogConfig
}

func Load() *Config {
	env := getEnv("ENV", "development")

	return &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  env,

		// Storage
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/renewalwatch?sslmode=disable"),
		RedisURL:    os.Getenv("REDIS_URL"),
		AutoMigrate: getBoolEnv("AUTO_MIGRATE", env != "production"),

		// Auth
		JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-in-production"),

		// CORS
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:3000"), ","),
		FrontendURL:    strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),

		Alerts: AlertsConfig{
			Enabled:         getBoolEnv("ALERTS_ENABLED", true),
			DailySchedule:   getEnv("ALERTS_DAILY_SCHEDULE", "0 9 * * *"),   // 09:00 every day
			MonthlySchedule: getEnv("ALERTS_MONTHLY_SCHEDULE", "0 8 1 * *"), // 08:00 on the 1st
			SchedulerTZ:     getEnv("ALERTS_SCHEDULER_TZ", "UTC"),
			JobTimeout:      getDurationEnv("ALERTS_JOB_TIMEOUT", 30*time.Minute),
			DispatchTimeout: getDurationEnv("ALERTS_DISPATCH_TIMEOUT", 10*time.Second),
			RetryAttempts:   getIntEnv("ALERTS_RETRY_ATTEMPTS", 5),
			RetryBaseDelay:  getDurationEnv("ALERTS_RETRY_BASE_DELAY", 10*time.Second),
			DeferQuietHours: getBoolEnv("ALERTS_DEFER_QUIET_HOURS", true),
		},

		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", defaultLogLevel(env)),
			Output:     getEnv("LOG_OUTPUT", "stdout"),
			FilePath:   getEnv("LOG_FILE", "logs/alerts.log"),
			MaxSizeMB:  getIntEnv("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getIntEnv("LOG_MAX_BACKUPS", 3),
			MaxAgeDays: getIntEnv("LOG_MAX_AGE_DAYS", 7),
		},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// SchedulerLocation resolves Alerts.SchedulerTZ, falling back to UTC.
func (c *Config) SchedulerLocation() *time.Location {
	loc, err := time.LoadLocation(c.Alerts.SchedulerTZ)
	if err != nil {
		return time.UTC
	}
	return loc
}

func defaultLogLevel(env string) string {
	if env == "production" {
		return "info"
	}
	return "debug"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
