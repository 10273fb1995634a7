// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
)

// Config holds all application configuration.
type Config struct {
	// Storage roots.
	DataPath        string // Dataset base directory.
	AnnotationsPath string // Annotation project base directory.
	MetricsPath     string // Metric set base directory.

	// OTEL settings.
	OTELEndpoint string
	ServiceName  string

	// Operational settings.
	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		DataPath:        envStr("AUTOLIBRA_DATA_PATH", ".data"),
		AnnotationsPath: envStr("AUTOLIBRA_ANNOTATIONS_PATH", ".data/annotations"),
		MetricsPath:     envStr("AUTOLIBRA_METRICS_PATH", ".data/metrics"),
		OTELEndpoint:    envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:     envStr("OTEL_SERVICE_NAME", "autolibra"),
		LogLevel:        envStr("AUTOLIBRA_LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present.
func (c Config) Validate() error {
	if c.DataPath == "" {
		return fmt.Errorf("config: AUTOLIBRA_DATA_PATH is required")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: AUTOLIBRA_LOG_LEVEL must be one of debug, info, warn, error")
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
