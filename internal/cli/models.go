package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewModelsCmd creates the models command group.
func NewModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Manage registered models",
		Long:  "List registered model artifacts and switch the active one.",
	}

	cmd.AddCommand(
		newModelsListCmd(),
		newModelsActivateCmd(),
	)
	return cmd
}

func newModelsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered models",
		RunE:  runModelsList,
	}
}

func newModelsActivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate <model-id>",
		Short: "Mark a model as the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runModelsActivate(args[0])
		},
	}
}

func runModelsList(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	comps, err := buildComponents(cfg)
	if err != nil {
		return err
	}

	models := comps.Registry.GetAll()
	if len(models) == 0 {
		fmt.Println("No models registered")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tSIZE\tON DISK\tACTIVE\tSOURCE")
	for _, m := range models {
		active := ""
		if m.Active {
			active = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%t\t%s\t%s\n", m.ID, m.Status, m.SizeBytes, m.OnDisk, active, m.Source)
	}
	return w.Flush()
}

func runModelsActivate(modelID string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	comps, err := buildComponents(cfg)
	if err != nil {
		return err
	}

	if err := comps.Registry.SetActive(modelID); err != nil {
		return fmt.Errorf("failed to activate model: %w", err)
	}
	fmt.Printf("Model %s is now active\n", modelID)
	return nil
}
