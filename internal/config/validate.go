package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:", len(e))
	for _, err := range e {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Validate checks the configuration for errors.
// Returns nil if valid, or ValidationErrors if invalid.
func Validate(cfg Config) error {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	switch cfg.StoreDriver {
	case DriverMemory, "":
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			add("DATABASE_URL", "required when STORE_DRIVER=postgres")
		}
	case DriverMongo:
		if cfg.MongoURI == "" {
			add("MONGO_URI", "required when STORE_DRIVER=mongo")
		}
	default:
		add("STORE_DRIVER", "must be 'memory', 'mongo' or 'postgres', got %q", cfg.StoreDriver)
	}

	durations := []struct {
		field string
		value string
	}{
		{"STORE_OP_TIMEOUT", cfg.StoreOpTimeoutStr},
		{"DB_CONN_MAX_LIFETIME", cfg.DBConnMaxLifetimeStr},
		{"HTTP_SHUTDOWN_TIMEOUT", cfg.HTTPShutdownTimeoutStr},
		{"CIRCUIT_BREAKER_COOLDOWN", cfg.CircuitBreakerCooldownStr},
		{"ANALYTICS_RETENTION", cfg.AnalyticsRetentionStr},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil {
			add(d.field, "invalid duration: %v", err)
		} else if v <= 0 {
			add(d.field, "must be positive")
		}
	}

	if cfg.CircuitBreakerThreshold < 0 {
		add("CIRCUIT_BREAKER_THRESHOLD", "must be zero (disabled) or positive")
	}

	if cfg.RateLimitRPSStr != "" {
		rps, err := strconv.ParseFloat(cfg.RateLimitRPSStr, 64)
		if err != nil {
			add("RATE_LIMIT_RPS", "invalid number: %q", cfg.RateLimitRPSStr)
		} else if rps < 0 {
			add("RATE_LIMIT_RPS", "must be zero (disabled) or positive")
		}
	}

	if cfg.MetricsPort < 0 || cfg.MetricsPort > 65535 {
		add("METRICS_PORT", "must be a valid TCP port, got %d", cfg.MetricsPort)
	}

	if cfg.LogLevel != "" {
		if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
			add("LOG_LEVEL", "unknown level %q", cfg.LogLevel)
		}
	}
	if cfg.LogFormat != "" && cfg.LogFormat != "console" && cfg.LogFormat != "json" {
		add("LOG_FORMAT", "must be 'console' or 'json', got %q", cfg.LogFormat)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
