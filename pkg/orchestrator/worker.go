package orchestrator

import (
	"context"
	"time"

	"github.com/glorpus-work/modelfetch/internal/logger"
	"github.com/glorpus-work/modelfetch/internal/metrics"
	"github.com/glorpus-work/modelfetch/pkg/download"
	"github.com/glorpus-work/modelfetch/pkg/model"
)

// DefaultPollInterval is how long the worker sleeps when the queue is empty.
const DefaultPollInterval = 100 * time.Millisecond

// progressStep is the minimum progress delta between two job store writes.
// Keeps multi-gigabyte transfers from hammering the store on every chunk.
const progressStep = 0.01

// Worker is the single background consumer of the job queue. Exactly one
// descriptor is processed end-to-end at a time, in FIFO order.
type Worker struct {
	DL       Downloader
	Registry Registry
	Jobs     Jobs
	Queue    *Queue

	// PollInterval overrides DefaultPollInterval when positive.
	PollInterval time.Duration
}

// Run drains the queue until ctx is cancelled. An in-flight transfer is not
// cancelled gracefully; shutdown aborts it via the context.
func (w *Worker) Run(ctx context.Context) {
	interval := w.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	logger.Debug("download worker started")
	for {
		desc, ok := w.Queue.Pop()
		if !ok {
			select {
			case <-ctx.Done():
				logger.Debug("download worker stopped")
				return
			case <-time.After(interval):
			}
			continue
		}
		metrics.QueueDepth.Dec()
		w.process(ctx, desc)

		select {
		case <-ctx.Done():
			logger.Debug("download worker stopped")
			return
		default:
		}
	}
}

// process runs one queued transfer end-to-end, updating the job store and
// the registry as it goes. Errors are captured in the job record; they are
// not observable anywhere else.
func (w *Worker) process(ctx context.Context, desc model.Descriptor) {
	logger.Info("processing download job", logger.Fields{
		"job":   desc.JobID,
		"model": desc.ModelID,
	})

	if err := w.Jobs.Update(desc.JobID, model.JobRunning, 0.0, ""); err != nil {
		logger.Error("failed to mark job running", logger.Fields{"job": desc.JobID, "error": err.Error()})
		return
	}
	metrics.DownloadsStarted.Inc()

	lastReported := 0.0
	written, err := w.DL.Fetch(ctx, download.Item{
		URL:          desc.DownloadURL,
		Dest:         desc.DestPath,
		Checksum:     desc.Checksum,
		ExpectedSize: desc.ExpectedSize,
		OnProgress: func(p float64) {
			if p > 1.0 {
				p = 1.0
			}
			if p-lastReported < progressStep {
				return
			}
			lastReported = p
			if err := w.Jobs.Update(desc.JobID, model.JobRunning, p, ""); err != nil {
				logger.Warnf("progress update failed for job %s: %v", desc.JobID, err)
			}
		},
	})

	if err != nil {
		metrics.DownloadsFailed.Inc()
		logger.Error("download job failed", logger.Fields{"job": desc.JobID, "error": err.Error()})
		if upErr := w.Jobs.Update(desc.JobID, model.JobFailed, 0.0, err.Error()); upErr != nil {
			logger.Error("failed to mark job failed", logger.Fields{"job": desc.JobID, "error": upErr.Error()})
		}
		if upErr := w.Registry.Upsert(desc.ModelID, desc.Source, desc.ExpectedSize, model.StatusError, false, false); upErr != nil {
			logger.Error("failed to mark model errored", logger.Fields{"model": desc.ModelID, "error": upErr.Error()})
		}
		return
	}

	metrics.DownloadsSucceeded.Inc()
	metrics.BytesTransferred.Add(float64(written))

	if err := w.Jobs.Update(desc.JobID, model.JobSucceeded, 1.0, ""); err != nil {
		logger.Error("failed to mark job succeeded", logger.Fields{"job": desc.JobID, "error": err.Error()})
	}
	if err := w.Registry.Upsert(desc.ModelID, desc.Source, written, model.StatusAvailable, true, false); err != nil {
		logger.Error("failed to mark model available", logger.Fields{"model": desc.ModelID, "error": err.Error()})
	}

	logger.Info("download job succeeded", logger.Fields{
		"job":   desc.JobID,
		"model": desc.ModelID,
		"bytes": written,
	})
}
