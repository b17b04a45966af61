package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"alcyxob/tricoach/internal/planner"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_DefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Database.URI)
	assert.Equal(t, time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, planner.EngineDeterministic, cfg.Planner.Engine)
	assert.Equal(t, 10, cfg.Planner.TriggerWindow)
	assert.Equal(t, planner.DefaultPolicy(), cfg.Planner.Policy, "policy defaults survive unmarshal")
}

func TestLoadConfig_FileOverridesPartialPolicy(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  address: ":9090"
planner:
  engine: model
  policy:
    min_session_minutes: 20
openai:
  api_key: test-key
  model: gpt-4o
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, planner.EngineModel, cfg.Planner.Engine)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	assert.Equal(t, 20, cfg.Planner.Policy.MinSessionMinutes)
	// Unnamed thresholds keep their defaults.
	assert.Equal(t, planner.DefaultPolicy().TooHardMinSignals, cfg.Planner.Policy.TooHardMinSignals)
	assert.Equal(t, planner.DefaultPolicy().VolumeDeltaMaxPct, cfg.Planner.Policy.VolumeDeltaMaxPct)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("DATABASE_NAME", "tricoach_test")
	t.Setenv("SERVER_ADDRESS", ":7070")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "tricoach_test", cfg.Database.Name)
	assert.Equal(t, ":7070", cfg.Server.Address)
}
