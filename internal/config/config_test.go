package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  name: prokat-test
database:
  path: /tmp/prokat-test.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "prokat-test", cfg.App.Name)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, "x-api-key", cfg.API.Auth.HeaderAPIKey)
	assert.Equal(t, 3, cfg.Rental.BufferDays)
	assert.Equal(t, 15, cfg.Rental.ServiceFeePercent)
	assert.Equal(t, 365, cfg.Rental.MaxBookingDays)
	assert.Equal(t, 30, cfg.Worker.ExpirySweepMinutes)
	assert.Equal(t, 24, cfg.Worker.PendingHoldHours)
	assert.Equal(t, 60, cfg.API.RateLimit.Requests)
	assert.Equal(t, 60, cfg.API.RateLimit.WindowS)
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("PROKAT_TEST_DB", "/tmp/from-env.db")
	path := writeConfig(t, `
database:
  path: ${PROKAT_TEST_DB}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/from-env.db", cfg.Database.Path)
}

func TestValidate_RequiresDatabasePath(t *testing.T) {
	path := writeConfig(t, `
app:
  name: broken
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database path")
}

func TestValidate_FeePercentRange(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /tmp/prokat-test.db
rental:
  service_fee_percent: 140
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service_fee_percent")
}

func TestValidate_AuthNeedsKeys(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /tmp/prokat-test.db
api:
  enabled: true
  auth:
    enabled: true
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_keys")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
