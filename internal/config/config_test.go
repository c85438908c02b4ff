package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDefaultConfigIsValid(t *testing.T) {
	cfg := GetDefaultConfig()
	assert.NoError(t, Validate(cfg))
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "LOUD"
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oneof")
}

func TestValidateRejectsBadDatabaseDriver(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Database.Driver = "mongo"
	assert.Error(t, Validate(cfg))
}

func TestLoadFallsBackToDefaultsWithoutConfigFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, []string{"0.0.0.0:3260"}, cfg.Portals)
}

func TestSaveConfigThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "DEBUG"
	cfg.Portals = []string{"10.0.0.1:3260", "10.0.0.2:3260"}

	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", loaded.Logging.Level)
	assert.Equal(t, cfg.Portals, loaded.Portals)
}

func TestApplyDefaultsIsIdempotent(t *testing.T) {
	cfg := GetDefaultConfig()
	before := *cfg
	ApplyDefaults(cfg)
	assert.Equal(t, before, *cfg)
}
