package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

// Config holds all configuration for careerhub.
// Values are loaded from environment variables; see printUsage() for the full list.
type Config struct {
	// StoreDriver: "memory" (SEED_FILE optional), "mongo" or "postgres".
	StoreDriver   string `json:"store_driver"`
	DatabaseURL   string `json:"database_url"`
	MongoURI      string `json:"mongo_uri"`
	MongoDatabase string `json:"mongo_database"`
	SeedFile      string `json:"seed_file,omitempty"`

	// DataDir holds the source CSV files; OutDir receives jobs.json and industries.json.
	DataDir string `json:"data_dir"`
	OutDir  string `json:"out_dir"`

	RedisAddr string `json:"redis_addr,omitempty"`
	HTTPAddr  string `json:"http_addr"`

	StoreOpTimeout    time.Duration `json:"-"`
	StoreOpTimeoutStr string        `json:"store_op_timeout"`

	DBMaxOpenConns       int           `json:"db_max_open_conns"`
	DBMaxIdleConns       int           `json:"db_max_idle_conns"`
	DBConnMaxLifetime    time.Duration `json:"-"`
	DBConnMaxLifetimeStr string        `json:"db_conn_max_lifetime"`

	HTTPShutdownTimeout    time.Duration `json:"-"`
	HTTPShutdownTimeoutStr string        `json:"http_shutdown_timeout"`

	MetricsEnabled bool   `json:"metrics_enabled"`
	MetricsPath    string `json:"metrics_path"`
	MetricsPort    int    `json:"metrics_port"`

	// CircuitBreakerThreshold: 0 disables the circuit breaker.
	CircuitBreakerThreshold   int           `json:"circuit_breaker_threshold"`
	CircuitBreakerCooldown    time.Duration `json:"-"`
	CircuitBreakerCooldownStr string        `json:"circuit_breaker_cooldown"`

	AnalyticsRetention    time.Duration `json:"-"`
	AnalyticsRetentionStr string        `json:"analytics_retention"`

	// RateLimitRPS: 0 disables per-client rate limiting.
	RateLimitRPS    float64 `json:"-"`
	RateLimitRPSStr string  `json:"rate_limit_rps"`
	RateLimitBurst  int     `json:"rate_limit_burst"`

	CORSAllowOrigins []string `json:"cors_allow_origins"`

	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`

	// ImportLockKey: every importer sharing a database must use the same key.
	ImportLockKey int64 `json:"import_lock_key"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	cfg := Config{
		StoreDriver:               os.Getenv("STORE_DRIVER"),
		DatabaseURL:               os.Getenv("DATABASE_URL"),
		MongoURI:                  os.Getenv("MONGO_URI"),
		MongoDatabase:             os.Getenv("MONGO_DATABASE"),
		SeedFile:                  os.Getenv("SEED_FILE"),
		DataDir:                   os.Getenv("DATA_DIR"),
		OutDir:                    os.Getenv("OUTPUT_DIR"),
		RedisAddr:                 os.Getenv("REDIS_ADDR"),
		HTTPAddr:                  os.Getenv("HTTP_ADDR"),
		StoreOpTimeoutStr:         os.Getenv("STORE_OP_TIMEOUT"),
		DBConnMaxLifetimeStr:      os.Getenv("DB_CONN_MAX_LIFETIME"),
		HTTPShutdownTimeoutStr:    os.Getenv("HTTP_SHUTDOWN_TIMEOUT"),
		MetricsEnabled:            os.Getenv("METRICS_ENABLED") == "true",
		MetricsPath:               os.Getenv("METRICS_PATH"),
		CircuitBreakerCooldownStr: os.Getenv("CIRCUIT_BREAKER_COOLDOWN"),
		AnalyticsRetentionStr:     os.Getenv("ANALYTICS_RETENTION"),
		RateLimitRPSStr:           os.Getenv("RATE_LIMIT_RPS"),
		LogLevel:                  strings.ToLower(os.Getenv("LOG_LEVEL")),
		LogFormat:                 strings.ToLower(os.Getenv("LOG_FORMAT")),
	}

	if cfg.StoreDriver == "" {
		cfg.StoreDriver = DriverMemory
	}
	if cfg.MongoDatabase == "" {
		cfg.MongoDatabase = "careerhub"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if cfg.OutDir == "" {
		cfg.OutDir = "output"
	}

	cfg.DBMaxOpenConns = positiveInt("DB_MAX_OPEN_CONNS", 25)
	cfg.DBMaxIdleConns = positiveInt("DB_MAX_IDLE_CONNS", 5)
	cfg.MetricsPort = positiveInt("METRICS_PORT", 9090)
	cfg.RateLimitBurst = positiveInt("RATE_LIMIT_BURST", 20)

	// An explicit 0 disables the breaker; unset means the default.
	cfg.CircuitBreakerThreshold = 5
	if s := os.Getenv("CIRCUIT_BREAKER_THRESHOLD"); s != "" {
		if n, err := parseInt(s); err == nil {
			cfg.CircuitBreakerThreshold = n
		} else {
			log.Warn().Str("value", s).Msg("config: invalid CIRCUIT_BREAKER_THRESHOLD, using default 5")
		}
	}

	cfg.ImportLockKey = 0x63617265 // "care"
	if s := os.Getenv("IMPORT_LOCK_KEY"); s != "" {
		if n, err := parseInt(s); err == nil && n > 0 {
			cfg.ImportLockKey = int64(n)
		} else {
			log.Warn().Str("value", s).Msg("config: invalid IMPORT_LOCK_KEY (must be a positive integer), using default")
		}
	}

	cfg.CORSAllowOrigins = []string{"*"}
	if s := os.Getenv("CORS_ALLOW_ORIGINS"); s != "" {
		cfg.CORSAllowOrigins = splitList(s)
	}

	// Support PORT as fallback for HTTP_ADDR.
	if cfg.HTTPAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			cfg.HTTPAddr = ":" + port
		} else {
			cfg.HTTPAddr = ":8080"
		}
	}
	if cfg.StoreOpTimeoutStr == "" {
		cfg.StoreOpTimeoutStr = "5s"
	}
	if cfg.DBConnMaxLifetimeStr == "" {
		cfg.DBConnMaxLifetimeStr = "30m"
	}
	if cfg.HTTPShutdownTimeoutStr == "" {
		cfg.HTTPShutdownTimeoutStr = "10s"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.CircuitBreakerCooldownStr == "" {
		cfg.CircuitBreakerCooldownStr = "30s"
	}
	if cfg.AnalyticsRetentionStr == "" {
		cfg.AnalyticsRetentionStr = "168h"
	}
	if cfg.RateLimitRPSStr == "" {
		cfg.RateLimitRPSStr = "0"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "console"
	}

	// Parse durations; validation is handled separately by Validate().
	cfg.StoreOpTimeout = parseDuration(cfg.StoreOpTimeoutStr)
	cfg.DBConnMaxLifetime = parseDuration(cfg.DBConnMaxLifetimeStr)
	cfg.HTTPShutdownTimeout = parseDuration(cfg.HTTPShutdownTimeoutStr)
	cfg.CircuitBreakerCooldown = parseDuration(cfg.CircuitBreakerCooldownStr)
	cfg.AnalyticsRetention = parseDuration(cfg.AnalyticsRetentionStr)
	if f, err := strconv.ParseFloat(cfg.RateLimitRPSStr, 64); err == nil {
		cfg.RateLimitRPS = f
	}

	return cfg
}

func positiveInt(name string, def int) int {
	s := os.Getenv(name)
	if s == "" {
		return def
	}
	n, err := parseInt(s)
	if err != nil || n <= 0 {
		log.Warn().Str("value", s).Int("default", def).Msgf("config: invalid %s (must be a positive integer), using default", name)
		return def
	}
	return n
}

// parseInt accepts only unsigned decimal integers.
func parseInt(s string) (int, error) {
	if s == "" || strings.ContainsAny(s, "+-") {
		return 0, os.ErrInvalid
	}
	return strconv.Atoi(s)
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// MaskedJSON returns the configuration as JSON with secrets masked.
func (c Config) MaskedJSON() ([]byte, error) {
	masked := c
	masked.DatabaseURL = maskSecret(c.DatabaseURL)
	masked.MongoURI = maskSecret(c.MongoURI)
	return json.MarshalIndent(masked, "", "  ")
}

// maskSecret masks a secret value, preserving only the URI scheme if present.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	for _, scheme := range []string{"postgres://", "postgresql://", "mongodb://", "mongodb+srv://"} {
		if strings.HasPrefix(s, scheme) {
			return scheme + "***"
		}
	}
	return "***"
}
