package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewJobsCmd creates the jobs command group.
func NewJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect transfer jobs",
	}

	cmd.AddCommand(newJobsShowCmd())
	return cmd
}

func newJobsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show the status of a transfer job",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runJobsShow(args[0])
		},
	}
}

func runJobsShow(jobID string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	comps, err := buildComponents(cfg)
	if err != nil {
		return err
	}

	job, err := comps.Jobs.Get(jobID)
	if err != nil {
		return fmt.Errorf("failed to read job: %w", err)
	}

	fmt.Printf("Job:      %s\n", job.ID)
	fmt.Printf("Status:   %s\n", job.Status)
	fmt.Printf("Progress: %.0f%%\n", job.Progress*100)
	if job.Error != "" {
		fmt.Printf("Error:    %s\n", job.Error)
	}
	return nil
}
