package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/modelfetch/internal/logger"
	"github.com/glorpus-work/modelfetch/pkg/model"
	"github.com/glorpus-work/modelfetch/pkg/orchestrator"
)

// NewFetchCmd creates the fetch command.
func NewFetchCmd() *cobra.Command {
	var checksum string

	cmd := &cobra.Command{
		Use:   "fetch <model-id> <source>",
		Short: "Download a model artifact",
		Long: `Download a model artifact from a hub source reference such as
hf://organization/model or hf://organization/model/file.gguf.

The artifact is stored under the configured models directory as
<model-id>.gguf. Artifacts already on disk are registered without a
download.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd.Context(), args[0], args[1], checksum)
		},
	}

	cmd.Flags().StringVar(&checksum, "checksum", "", "expected sha256 of the artifact")
	return cmd
}

func runFetch(ctx context.Context, modelID, source, checksum string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	comps, err := buildComponents(cfg)
	if err != nil {
		return err
	}

	res, err := comps.Orch.Acquire(ctx, orchestrator.AcquireRequest{
		ModelID:  modelID,
		Source:   source,
		Checksum: checksum,
	})
	if err != nil {
		return fmt.Errorf("failed to acquire model: %w", err)
	}

	if !res.Async() {
		fmt.Printf("Model %s available at %s (%d bytes)\n", res.Model.ID, comps.Orch.ModelPath(res.Model.ID), res.Model.SizeBytes)
		return nil
	}

	// Queued transfer: drain it in this process instead of leaving the job
	// behind for a server.
	logger.Info("download queued, waiting for transfer", logger.Fields{"job": res.JobID})

	workerCtx, stop := context.WithCancel(ctx)
	defer stop()
	go comps.Worker.Run(workerCtx)

	job, err := waitForJob(ctx, comps, res.JobID)
	if err != nil {
		return err
	}
	if job.Status == model.JobFailed {
		return fmt.Errorf("download failed: %s", job.Error)
	}

	fmt.Printf("Model %s available at %s\n", modelID, comps.Orch.ModelPath(modelID))
	return nil
}

// waitForJob polls the job store until the job reaches a terminal status.
func waitForJob(ctx context.Context, comps *components, jobID string) (*model.Job, error) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		job, err := comps.Jobs.Get(jobID)
		if err != nil {
			return nil, fmt.Errorf("failed to read job: %w", err)
		}
		if job.Status.Terminal() {
			return job, nil
		}
	}
}
