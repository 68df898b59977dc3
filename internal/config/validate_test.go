package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	return Config{
		StoreDriver:               DriverPostgres,
		DatabaseURL:               "postgres://localhost/careerhub",
		StoreOpTimeoutStr:         "5s",
		CircuitBreakerCooldownStr: "30s",
		RateLimitRPSStr:           "0",
		MetricsPort:               9090,
		LogLevel:                  "info",
		LogFormat:                 "json",
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Errorf("valid config should not return error, got: %v", err)
	}
}

func TestValidate_DriverRequirements(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"postgres without DATABASE_URL", func(c *Config) { c.DatabaseURL = "" }, "DATABASE_URL"},
		{"mongo without MONGO_URI", func(c *Config) { c.StoreDriver = DriverMongo }, "MONGO_URI"},
		{"unknown driver", func(c *Config) { c.StoreDriver = "sqlite" }, "STORE_DRIVER"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %s", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidate_MemoryNeedsNoURL(t *testing.T) {
	cfg := validConfig()
	cfg.StoreDriver = DriverMemory
	cfg.DatabaseURL = ""
	if err := Validate(cfg); err != nil {
		t.Errorf("memory driver should not need a URL, got: %v", err)
	}
}

func TestValidate_InvalidDuration(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr string
	}{
		{"non-parseable", "invalid", "invalid duration"},
		{"negative", "-1s", "must be positive"},
		{"zero", "0s", "must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.StoreOpTimeoutStr = tt.value

			err := Validate(cfg)
			if err == nil {
				t.Fatalf("expected error for store_op_timeout=%q", tt.value)
			}
			if !strings.Contains(err.Error(), "STORE_OP_TIMEOUT") || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should name STORE_OP_TIMEOUT and contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidate_EnumsAndNumbers(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "LOG_LEVEL"},
		{"log format", func(c *Config) { c.LogFormat = "xml" }, "LOG_FORMAT"},
		{"rate not a number", func(c *Config) { c.RateLimitRPSStr = "fast" }, "RATE_LIMIT_RPS"},
		{"negative rate", func(c *Config) { c.RateLimitRPSStr = "-2" }, "RATE_LIMIT_RPS"},
		{"negative breaker threshold", func(c *Config) { c.CircuitBreakerThreshold = -1 }, "CIRCUIT_BREAKER_THRESHOLD"},
		{"port out of range", func(c *Config) { c.MetricsPort = 70000 }, "METRICS_PORT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if err == nil || !strings.Contains(err.Error(), tt.field) {
				t.Errorf("expected error mentioning %s, got %v", tt.field, err)
			}
		})
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.DatabaseURL = ""
	cfg.StoreOpTimeoutStr = "invalid"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected errors")
	}

	errs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(errs) != 2 {
		t.Errorf("expected 2 errors, got %d: %v", len(errs), errs)
	}
	if !strings.HasPrefix(err.Error(), "2 validation errors:") {
		t.Errorf("unexpected message: %q", err.Error())
	}
}
