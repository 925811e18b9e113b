package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, DefaultHubBaseURL, cfg.Hub.BaseURL)
	assert.Equal(t, []string{"main", "master"}, cfg.Hub.Branches)
	assert.Equal(t, int64(DefaultSyncThresholdBytes), cfg.Settings.SyncThresholdBytes)
	assert.Equal(t, DefaultHTTPTimeout, cfg.Settings.HTTPTimeout)
	assert.Equal(t, "info", cfg.Settings.LogLevel)
	assert.NotEmpty(t, cfg.Settings.ModelsDir)
	assert.NotEmpty(t, cfg.Settings.StateDir)
}

func TestLoadConfigFromReader(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		check   func(t *testing.T, cfg *Config)
		wantErr bool
	}{
		{
			name: "overrides applied",
			yaml: `
hub:
  base_url: https://hub.example.com
  branches: [release, main]
settings:
  models_dir: /srv/models
  sync_threshold_bytes: 1024
  http_timeout: 5m
  log_level: debug
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "https://hub.example.com", cfg.Hub.BaseURL)
				assert.Equal(t, []string{"release", "main"}, cfg.Hub.Branches)
				assert.Equal(t, "/srv/models", cfg.Settings.ModelsDir)
				assert.Equal(t, int64(1024), cfg.Settings.SyncThresholdBytes)
				assert.Equal(t, 5*time.Minute, cfg.Settings.HTTPTimeout)
				assert.Equal(t, "debug", cfg.Settings.LogLevel)
			},
		},
		{
			name: "missing values get defaults",
			yaml: `
settings:
  log_level: warn
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultHubBaseURL, cfg.Hub.BaseURL)
				assert.Equal(t, int64(DefaultSyncThresholdBytes), cfg.Settings.SyncThresholdBytes)
				assert.Equal(t, "warn", cfg.Settings.LogLevel)
			},
		},
		{
			name:    "invalid yaml",
			yaml:    "settings: [not a map",
			wantErr: true,
		},
		{
			name: "negative threshold rejected",
			yaml: `
settings:
  sync_threshold_bytes: -1
`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfigFromReader(strings.NewReader(tt.yaml))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadConfig_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultHubBaseURL, cfg.Hub.BaseURL)
}

func TestSaveAndReloadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	cfg := DefaultConfig()
	cfg.Settings.SyncThresholdBytes = 4096
	cfg.Settings.ListenAddr = "127.0.0.1:9090"
	require.NoError(t, cfg.SaveConfig(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, int64(4096), loaded.Settings.SyncThresholdBytes)
	assert.Equal(t, "127.0.0.1:9090", loaded.Settings.ListenAddr)
}

func TestModelPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Settings.ModelsDir = "/data/models"
	assert.Equal(t, filepath.Join("/data/models", "llama-7b.gguf"), cfg.ModelPath("llama-7b"))
}
