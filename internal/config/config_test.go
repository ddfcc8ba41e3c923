package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func TestLoadDefaultsSafetyModeToLog(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
ai:
  extraction:
    apiKey: sk-test
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "log", cfg.AI.Safety.Mode)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadSafetyProviderInline(t *testing.T) {
	path := writeConfig(t, `
ai:
  safety:
    mode: strict
    apiKey: sk-mod
    model: omni-moderation-latest
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "strict", cfg.AI.Safety.Mode)
	assert.True(t, cfg.AI.Safety.Configured())
	assert.Equal(t, "omni-moderation-latest", cfg.AI.Safety.Model)
}

func TestPostgresDSN(t *testing.T) {
	var cfg Config
	cfg.Database.Host = "db.internal"
	cfg.Database.Port = 5432
	cfg.Database.User = "orderflow"
	cfg.Database.Password = "secret"
	cfg.Database.Name = "orderflow"

	assert.Equal(t,
		"host=db.internal port=5432 user=orderflow password=secret dbname=orderflow sslmode=disable",
		cfg.PostgresDSN())

	cfg.Database.SSLMode = "require"
	assert.Contains(t, cfg.PostgresDSN(), "sslmode=require")
}

func TestValidateInvalidSafetyMode(t *testing.T) {
	var cfg Config
	cfg.AI.Safety.Mode = "paranoid"

	_, err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "paranoid")
}

func TestValidateWarnsOnMissingSafetyKey(t *testing.T) {
	var cfg Config
	cfg.AI.Safety.Mode = "strict"
	cfg.AI.Extraction.APIKey = "sk-test"
	cfg.AI.Transcription.Primary.APIKey = "sk-test"

	warnings, err := cfg.Validate()
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "safety API key is not set")
	assert.Contains(t, warnings[0], "strict")
}

func TestValidateNoWarningForSafetyOff(t *testing.T) {
	var cfg Config
	cfg.AI.Safety.Mode = "off"
	cfg.AI.Extraction.APIKey = "sk-test"
	cfg.AI.Transcription.Fallback.APIKey = "sk-test"

	warnings, err := cfg.Validate()
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestValidateWarnsOnFullyUnconfiguredAI(t *testing.T) {
	var cfg Config
	cfg.AI.Safety.Mode = "log"

	warnings, err := cfg.Validate()
	require.NoError(t, err)
	assert.Len(t, warnings, 3)
}
