package cli

import (
	"fmt"

	"github.com/glorpus-work/modelfetch/internal/logger"
	"github.com/glorpus-work/modelfetch/pkg/config"
	"github.com/glorpus-work/modelfetch/pkg/download"
	"github.com/glorpus-work/modelfetch/pkg/hub"
	"github.com/glorpus-work/modelfetch/pkg/orchestrator"
	"github.com/glorpus-work/modelfetch/pkg/store"
)

// These variables will be set by the main package
var (
	ConfigPath *string
	Verbose    *bool
)

// loadConfig loads the configuration from the flag-provided path or the
// default location, applying CLI flag overrides.
func loadConfig() (*config.Config, error) {
	configPath := ""
	if ConfigPath != nil {
		configPath = *ConfigPath
	}

	if configPath == "" {
		defaultPath, err := config.GetDefaultConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get default config path: %w", err)
		}
		configPath = defaultPath
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if Verbose != nil && *Verbose {
		cfg.Settings.LogLevel = "debug"
	}
	logger.InitLogger(cfg.Settings.LogLevel)

	return cfg, nil
}

// components holds the wired acquisition pipeline.
type components struct {
	Registry *store.ModelRegistryImpl
	Jobs     *store.JobStoreImpl
	Queue    *orchestrator.Queue
	Orch     *orchestrator.Orchestrator
	Worker   *orchestrator.Worker
}

// buildComponents wires resolver, transfer engine, stores, queue, dispatcher
// and worker from the configuration.
func buildComponents(cfg *config.Config) (*components, error) {
	registry, err := store.NewModelRegistry(cfg.RegistryPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open model registry: %w", err)
	}
	jobs, err := store.NewJobStore(cfg.JobsPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open job store: %w", err)
	}

	resolver := hub.NewClient(cfg.Hub.BaseURL, cfg.Settings.HTTPTimeout, cfg.Settings.UserAgent, cfg.Hub.Branches)
	dl := download.NewManager(cfg.Settings.HTTPTimeout, cfg.Settings.UserAgent)
	queue := orchestrator.NewQueue()

	return &components{
		Registry: registry,
		Jobs:     jobs,
		Queue:    queue,
		Orch: &orchestrator.Orchestrator{
			Resolver:      resolver,
			DL:            dl,
			Registry:      registry,
			Jobs:          jobs,
			Queue:         queue,
			ModelsDir:     cfg.Settings.ModelsDir,
			SyncThreshold: cfg.Settings.SyncThresholdBytes,
		},
		Worker: &orchestrator.Worker{
			DL:       dl,
			Registry: registry,
			Jobs:     jobs,
			Queue:    queue,
		},
	}, nil
}
