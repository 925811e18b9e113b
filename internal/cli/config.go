package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/modelfetch/internal/logger"
	"github.com/glorpus-work/modelfetch/pkg/config"
)

// NewConfigCmd creates the config command with subcommands.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  "View and initialize modelfetch configuration settings",
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigInitCmd(),
	)
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE:  runConfigShow,
	}
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file",
		Long:  "Create a default configuration file",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runConfigInit(force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration file")
	return cmd
}

func runConfigShow(*cobra.Command, []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SETTING\tVALUE")
	fmt.Fprintf(w, "hub.base_url\t%s\n", cfg.Hub.BaseURL)
	fmt.Fprintf(w, "hub.branches\t%v\n", cfg.Hub.Branches)
	fmt.Fprintf(w, "models_dir\t%s\n", cfg.Settings.ModelsDir)
	fmt.Fprintf(w, "state_dir\t%s\n", cfg.Settings.StateDir)
	fmt.Fprintf(w, "sync_threshold_bytes\t%d\n", cfg.Settings.SyncThresholdBytes)
	fmt.Fprintf(w, "http_timeout\t%s\n", cfg.Settings.HTTPTimeout)
	fmt.Fprintf(w, "listen_addr\t%s\n", cfg.Settings.ListenAddr)
	fmt.Fprintf(w, "log_level\t%s\n", cfg.Settings.LogLevel)
	return w.Flush()
}

func runConfigInit(force bool) error {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", configPath)
	}

	if err := config.DefaultConfig().SaveConfig(configPath); err != nil {
		return fmt.Errorf("failed to save default configuration: %w", err)
	}

	fmt.Printf("Configuration file created at %s\n", configPath)
	return nil
}

func getConfigPath() string {
	if ConfigPath != nil && *ConfigPath != "" {
		return *ConfigPath
	}

	defaultPath, err := config.GetDefaultConfigPath()
	if err != nil {
		logger.Warn("failed to get default config path, using empty path", logger.Fields{"error": err.Error()})
		return ""
	}
	return defaultPath
}
