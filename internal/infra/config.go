package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	LogLevel    string
	Port        string
	DatabaseURL string
	DBMaxConns  int
	DBMinConns  int
	StoragePath string
	// LedgerDBPath is the sqlite file used by the one-shot CLI ledger.
	LedgerDBPath string

	VideoAPIKey  string
	VideoBaseURL string

	OpenAIAPIKey          string
	OpenAIBaseURL         string
	OpenAIModerationModel string

	FFProbeBin string

	MonthlyBudget   float64
	BudgetWarnRatio float64

	RateLimitPerWindow int
	RateLimitWindow    time.Duration
	PollInterval       time.Duration
	JobTimeout         time.Duration
	RetryMax           int
	RetryInitial       time.Duration
	RetryMaxDelay      time.Duration
	BatchConcurrency   int
	QualityMinScore    float64
	// QualityFixedScore is what the built-in scorer assigns to every item.
	QualityFixedScore  float64

	HTTPReadTimeout     time.Duration
	HTTPWriteTimeout    time.Duration
	HTTPIdleTimeout     time.Duration
	ShutdownTimeout     time.Duration
	VideoRequestTimeout time.Duration
	APIRateLimitPerMin  int
	CORSAllowedOrigins  []string
	WorkerIdleInterval  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
// DATABASE_URL is checked by the binaries that need it.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:       getEnv("APP_ENV", "development"),
		LogLevel:     os.Getenv("LOG_LEVEL"),
		Port:         getEnv("PORT", "8080"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DBMaxConns:   getEnvInt("DB_MAX_CONNS", 10),
		DBMinConns:   getEnvInt("DB_MIN_CONNS", 1),
		StoragePath:  getEnv("STORAGE_PATH", "./storage"),
		LedgerDBPath: getEnv("LEDGER_DB_PATH", "./ledger.db"),

		VideoAPIKey:  strings.TrimSpace(os.Getenv("VIDEO_API_KEY")),
		VideoBaseURL: os.Getenv("VIDEO_BASE_URL"),

		OpenAIAPIKey:          strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIBaseURL:         os.Getenv("OPENAI_BASE_URL"),
		OpenAIModerationModel: getEnv("OPENAI_MODERATION_MODEL", "omni-moderation-latest"),

		FFProbeBin: getEnv("FFPROBE_BIN", "ffprobe"),

		MonthlyBudget:   getEnvFloat("MONTHLY_BUDGET", 5000),
		BudgetWarnRatio: getEnvFloat("BUDGET_WARN_RATIO", 0.9),

		RateLimitPerWindow: getEnvInt("RATE_LIMIT_PER_WINDOW", 3),
		RateLimitWindow:    getEnvDuration("RATE_LIMIT_WINDOW_SECONDS", time.Second, 60),
		PollInterval:       getEnvDuration("POLL_INTERVAL_SECONDS", time.Second, 10),
		JobTimeout:         getEnvDuration("JOB_TIMEOUT_SECONDS", time.Second, 300),
		RetryMax:           getEnvInt("RETRY_MAX", 3),
		RetryInitial:       getEnvDuration("RETRY_INITIAL_MS", time.Millisecond, 30000),
		RetryMaxDelay:      getEnvDuration("RETRY_MAX_MS", time.Millisecond, 300000),
		BatchConcurrency:   getEnvInt("BATCH_CONCURRENCY", 3),
		QualityMinScore:    getEnvFloat("QUALITY_MIN_SCORE", 70),
		QualityFixedScore:  getEnvFloat("QUALITY_FIXED_SCORE", 80),

		HTTPReadTimeout:     getEnvDuration("HTTP_READ_TIMEOUT_SECONDS", time.Second, 15),
		HTTPWriteTimeout:    getEnvDuration("HTTP_WRITE_TIMEOUT_SECONDS", time.Second, 30),
		HTTPIdleTimeout:     getEnvDuration("HTTP_IDLE_TIMEOUT_SECONDS", time.Second, 60),
		ShutdownTimeout:     getEnvDuration("SHUTDOWN_TIMEOUT_SECONDS", time.Second, 15),
		VideoRequestTimeout: getEnvDuration("VIDEO_REQUEST_TIMEOUT_SECONDS", time.Second, 30),
		APIRateLimitPerMin:  getEnvInt("API_RATE_LIMIT_PER_MINUTE", 30),
		CORSAllowedOrigins:  getEnvList("CORS_ALLOWED_ORIGINS"),
		WorkerIdleInterval:  getEnvDuration("WORKER_IDLE_SECONDS", time.Second, 2),
	}

	if cfg.BudgetWarnRatio <= 0 || cfg.BudgetWarnRatio > 1 {
		return nil, fmt.Errorf("BUDGET_WARN_RATIO must be in (0, 1], got %v", cfg.BudgetWarnRatio)
	}
	if cfg.MonthlyBudget <= 0 {
		return nil, fmt.Errorf("MONTHLY_BUDGET must be positive, got %v", cfg.MonthlyBudget)
	}
	if cfg.DBMaxConns <= 0 || cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		return nil, fmt.Errorf("DB_MIN_CONNS/DB_MAX_CONNS must satisfy 0 <= min <= max, max > 0; got %d/%d", cfg.DBMinConns, cfg.DBMaxConns)
	}
	if cfg.BatchConcurrency <= 0 {
		return nil, fmt.Errorf("BATCH_CONCURRENCY must be positive, got %d", cfg.BatchConcurrency)
	}

	return cfg, nil
}

// RequireDatabase returns an error when DATABASE_URL is unset.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// LogOptions derives the process logger settings for service.
func (c *Config) LogOptions(service string) LogOptions {
	return LogOptions{Env: c.AppEnv, Level: c.LogLevel, Service: service}
}

// getEnvDuration reads an integer count of unit.
func getEnvDuration(key string, unit time.Duration, fallback int) time.Duration {
	return unit * time.Duration(getEnvInt(key, fallback))
}
