package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("test-version")
	require.NoError(t, err)

	assert.Equal(t, "test-version", cfg.Version)
	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, "openai", cfg.Generator.Provider)
	assert.Equal(t, 500, cfg.Insight.MaxResultRows)
	assert.Equal(t, 50, cfg.Insight.GroundingRowLimit)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("INSIGHT_MAX_RESULT_ROWS", "42")
	t.Setenv("GENERATOR_PROVIDER", "anthropic")
	t.Setenv("GENERATOR_API_KEY", "secret-key")

	cfg, err := Load("v")
	require.NoError(t, err)

	assert.Equal(t, 42, cfg.Insight.MaxResultRows)
	assert.Equal(t, "anthropic", cfg.Generator.Provider)
	assert.Equal(t, "secret-key", cfg.Generator.APIKey)
}

func TestLoadRejectsNonPositiveRowCap(t *testing.T) {
	t.Setenv("INSIGHT_MAX_RESULT_ROWS", "0")
	_, err := Load("v")
	assert.Error(t, err)
}

func TestDurationHelpers(t *testing.T) {
	cfg, err := Load("v")
	require.NoError(t, err)

	assert.Equal(t, cfg.Generator.Timeout().Seconds(), float64(cfg.Generator.TimeoutSeconds))
	assert.Equal(t, cfg.Insight.QueryTimeout().Seconds(), float64(cfg.Insight.QueryTimeoutSeconds))
	assert.Equal(t, cfg.Insight.SessionTTL().Minutes(), float64(cfg.Insight.SessionTTLMinutes))
}

func TestConnectionString(t *testing.T) {
	dc := &DatabaseConfig{
		Host: "db", Port: 5432, User: "insight", Password: "pw",
		Database: "propfolio", SSLMode: "disable",
	}
	assert.Equal(t,
		"host=db port=5432 user=insight password=pw dbname=propfolio sslmode=disable",
		dc.ConnectionString())

	dc.URL = "postgres://u:p@h/d"
	assert.Equal(t, "postgres://u:p@h/d", dc.ConnectionString(), "URL overrides the parts")
}
