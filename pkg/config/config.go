// Package config provides configuration management for modelfetch. It
// handles loading, validating, and saving application settings from YAML
// files, providing sensible defaults while allowing customization.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/glorpus-work/modelfetch/pkg/errors"
	"github.com/glorpus-work/modelfetch/pkg/fsutil"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	// Hub configuration
	Hub HubConfig `yaml:"hub"`

	// General settings
	Settings Settings `yaml:"settings"`
}

// HubConfig configures access to the remote model hub.
type HubConfig struct {
	// BaseURL is the root of the hub API (e.g. https://huggingface.co).
	BaseURL string `yaml:"base_url,omitempty"`

	// Branches is the ordered list of branch names tried during resolution.
	Branches []string `yaml:"branches,omitempty"`
}

// Settings represents general application settings.
type Settings struct {
	// Storage settings
	ModelsDir string `yaml:"models_dir,omitempty"` // Directory holding downloaded model files
	StateDir  string `yaml:"state_dir,omitempty"`  // Directory holding the registry and job databases

	// Transfer settings
	SyncThresholdBytes int64         `yaml:"sync_threshold_bytes"` // Size boundary between inline and queued downloads
	HTTPTimeout        time.Duration `yaml:"http_timeout"`         // Outbound HTTP timeout, sized for multi-GB transfers

	// Server settings
	ListenAddr string `yaml:"listen_addr,omitempty"`

	// Output settings
	LogLevel  string `yaml:"log_level"` // error, warn, info, debug
	UserAgent string `yaml:"user_agent,omitempty"`
}

// Default configuration values.
const (
	// DefaultSyncThresholdBytes is the size boundary (2 GiB) below which
	// downloads run inline instead of being queued.
	DefaultSyncThresholdBytes = 2 * 1024 * 1024 * 1024

	// DefaultHTTPTimeout is the default timeout for outbound HTTP requests.
	// Transfers can span many gigabytes, so this is deliberately long.
	DefaultHTTPTimeout = 6 * time.Hour

	// DefaultHubBaseURL is the default remote hub endpoint.
	DefaultHubBaseURL = "https://huggingface.co"

	// DefaultListenAddr is the default API listen address.
	DefaultListenAddr = ":8080"

	// DefaultUserAgent identifies modelfetch on outbound requests.
	DefaultUserAgent = "modelfetch/1.0"

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2
)

// DefaultBranches is the ordered branch priority list used during resolution.
func DefaultBranches() []string {
	return []string{"main", "master"}
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	dataDir, err := os.UserHomeDir()
	if err != nil {
		dataDir = "."
	}
	baseDir := filepath.Join(dataDir, ".modelfetch")

	return &Config{
		Hub: HubConfig{
			BaseURL:  DefaultHubBaseURL,
			Branches: DefaultBranches(),
		},
		Settings: Settings{
			ModelsDir:          filepath.Join(baseDir, "models"),
			StateDir:           filepath.Join(baseDir, "state"),
			SyncThresholdBytes: DefaultSyncThresholdBytes,
			HTTPTimeout:        DefaultHTTPTimeout,
			ListenAddr:         DefaultListenAddr,
			LogLevel:           "info",
			UserAgent:          DefaultUserAgent,
		},
	}
}

// LoadConfig loads configuration from a file. A missing file yields the
// default configuration.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrConfigValidation, err.Error())
	}

	return &config, nil
}

// SaveConfig saves configuration to a file atomically.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	if err := os.MkdirAll(filepath.Dir(absPath), fsutil.DirModeDefault); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	tempPath := absPath + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModeDefault)
	if err != nil {
		return errors.Wrap(err, "failed to create config file")
	}

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(YAMLIndent)

	if err := encoder.Encode(c); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return errors.Wrap(err, "failed to encode config")
	}

	_ = encoder.Close()
	_ = file.Close()

	if err := os.Rename(tempPath, absPath); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(err, "failed to replace config file")
	}

	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrConfigValidation
	}
	if c.Settings.SyncThresholdBytes < 0 {
		return fmt.Errorf("sync_threshold_bytes cannot be negative: %w", errors.ErrConfigValidation)
	}
	if c.Settings.HTTPTimeout < 0 {
		return fmt.Errorf("http_timeout cannot be negative: %w", errors.ErrConfigValidation)
	}
	if len(c.Hub.Branches) == 0 {
		return fmt.Errorf("hub branches cannot be empty: %w", errors.ErrConfigValidation)
	}
	return nil
}

// applyDefaults fills in zero values with defaults.
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Hub.BaseURL == "" {
		c.Hub.BaseURL = def.Hub.BaseURL
	}
	if len(c.Hub.Branches) == 0 {
		c.Hub.Branches = def.Hub.Branches
	}
	if c.Settings.ModelsDir == "" {
		c.Settings.ModelsDir = def.Settings.ModelsDir
	}
	if c.Settings.StateDir == "" {
		c.Settings.StateDir = def.Settings.StateDir
	}
	if c.Settings.SyncThresholdBytes == 0 {
		c.Settings.SyncThresholdBytes = def.Settings.SyncThresholdBytes
	}
	if c.Settings.HTTPTimeout == 0 {
		c.Settings.HTTPTimeout = def.Settings.HTTPTimeout
	}
	if c.Settings.ListenAddr == "" {
		c.Settings.ListenAddr = def.Settings.ListenAddr
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = def.Settings.LogLevel
	}
	if c.Settings.UserAgent == "" {
		c.Settings.UserAgent = def.Settings.UserAgent
	}
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "modelfetch", "config.yaml"), nil
}

// ModelPath returns the canonical on-disk path for a model id.
func (c *Config) ModelPath(modelID string) string {
	return filepath.Join(c.Settings.ModelsDir, modelID+".gguf")
}

// RegistryPath returns the path of the persisted model registry.
func (c *Config) RegistryPath() string {
	return filepath.Join(c.Settings.StateDir, "models.json")
}

// JobsPath returns the path of the persisted job store.
func (c *Config) JobsPath() string {
	return filepath.Join(c.Settings.StateDir, "jobs.json")
}
