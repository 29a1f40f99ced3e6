package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", "8081")
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Port)
	assert.Contains(t, cfg.DatabaseURL, "postgres://")
	assert.Equal(t, "http://localhost:8081", cfg.CatalogServiceURL)
	assert.Equal(t, 200.0, cfg.MonthlySavingsGoal)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), "8082")
	require.NoError(t, err)
	assert.Equal(t, "8082", cfg.Port)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("port: \"9000\"\ndatabase_url: postgres://other/db\nmonthly_savings_goal: 350\n")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path, "8081")
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "postgres://other/db", cfg.DatabaseURL)
	assert.Equal(t, 350.0, cfg.MonthlySavingsGoal)
	// Fields absent from the file keep their defaults.
	assert.Equal(t, "http://localhost:8083", cfg.EnrollmentServiceURL)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"9000\"\n"), 0o600))

	t.Setenv("PORT", "9100")
	t.Setenv("MONTHLY_SAVINGS_GOAL", "125.5")

	cfg, err := Load(path, "8081")
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, 125.5, cfg.MonthlySavingsGoal)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [unclosed"), 0o600))

	_, err := Load(path, "8081")
	assert.Error(t, err)
}
