package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ".data", cfg.DataPath)
	assert.Equal(t, ".data/annotations", cfg.AnnotationsPath)
	assert.Equal(t, ".data/metrics", cfg.MetricsPath)
	assert.Equal(t, "autolibra", cfg.ServiceName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.OTELEndpoint)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("AUTOLIBRA_DATA_PATH", "/srv/autolibra")
	t.Setenv("AUTOLIBRA_LOG_LEVEL", "debug")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/srv/autolibra", cfg.DataPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "localhost:4318", cfg.OTELEndpoint)
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	t.Setenv("AUTOLIBRA_LOG_LEVEL", "verbose")
	_, err := Load()
	assert.Error(t, err)
}
