// Package orchestrator ties the hub resolver, the transfer engine and the
// persisted stores together. The Orchestrator decides between inline and
// queued execution; the Worker drains the queue in the background.
package orchestrator

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/glorpus-work/modelfetch/internal/logger"
	"github.com/glorpus-work/modelfetch/internal/metrics"
	"github.com/glorpus-work/modelfetch/pkg/download"
	"github.com/glorpus-work/modelfetch/pkg/model"
)

// Orchestrator is the entry point for acquisition requests.
type Orchestrator struct {
	Resolver Resolver
	DL       Downloader
	Registry Registry
	Jobs     Jobs
	Queue    *Queue

	// ModelsDir is the directory holding downloaded model files.
	ModelsDir string
	// SyncThreshold is the size boundary in bytes: transfers at or below it
	// run inline, larger or unknown-size transfers are queued.
	SyncThreshold int64
}

// ModelPath returns the canonical on-disk path for a model id.
func (o *Orchestrator) ModelPath(modelID string) string {
	return filepath.Join(o.ModelsDir, modelID+".gguf")
}

// Acquire satisfies one acquisition request. Artifacts already on disk are
// registered and returned without any network call. Otherwise the source is
// resolved and the transfer either runs inline (small known size) or is
// queued for the background worker.
func (o *Orchestrator) Acquire(ctx context.Context, req AcquireRequest) (*AcquireResult, error) {
	destPath := o.ModelPath(req.ModelID)

	if info, err := os.Stat(destPath); err == nil {
		logger.Debug("model already on disk", logger.Fields{"model": req.ModelID})
		if err := o.Registry.Upsert(req.ModelID, req.Source, info.Size(), model.StatusAvailable, true, false); err != nil {
			return nil, err
		}
		return &AcquireResult{Model: &model.Model{
			ID:        req.ModelID,
			Source:    req.Source,
			SizeBytes: info.Size(),
			Status:    model.StatusAvailable,
			OnDisk:    true,
		}}, nil
	}

	res, err := o.Resolver.Resolve(ctx, req.Source)
	if err != nil {
		return nil, err
	}

	if err := o.Registry.Upsert(req.ModelID, req.Source, res.Size, model.StatusDownloading, false, false); err != nil {
		return nil, err
	}

	if res.Size > 0 && res.Size <= o.SyncThreshold {
		return o.acquireInline(ctx, req, res, destPath)
	}

	return o.enqueue(req, res, destPath)
}

// acquireInline runs the transfer on the caller's goroutine and returns the
// final artifact state.
func (o *Orchestrator) acquireInline(ctx context.Context, req AcquireRequest, res *model.Resolution, destPath string) (*AcquireResult, error) {
	logger.Info("downloading model inline", logger.Fields{
		"model": req.ModelID,
		"size":  res.Size,
	})
	metrics.DownloadsStarted.Inc()

	written, err := o.DL.Fetch(ctx, download.Item{
		URL:          res.URL,
		Dest:         destPath,
		Checksum:     req.Checksum,
		ExpectedSize: res.Size,
	})
	if err != nil {
		metrics.DownloadsFailed.Inc()
		logger.Error("inline download failed", logger.Fields{"model": req.ModelID, "error": err.Error()})
		if upErr := o.Registry.Upsert(req.ModelID, req.Source, res.Size, model.StatusError, false, false); upErr != nil {
			return nil, upErr
		}
		return nil, err
	}

	metrics.DownloadsSucceeded.Inc()
	metrics.BytesTransferred.Add(float64(written))

	if err := o.Registry.Upsert(req.ModelID, req.Source, written, model.StatusAvailable, true, false); err != nil {
		return nil, err
	}
	return &AcquireResult{Model: &model.Model{
		ID:        req.ModelID,
		Source:    req.Source,
		SizeBytes: written,
		Status:    model.StatusAvailable,
		OnDisk:    true,
	}}, nil
}

// enqueue creates a queued job and hands the descriptor to the worker.
func (o *Orchestrator) enqueue(req AcquireRequest, res *model.Resolution, destPath string) (*AcquireResult, error) {
	jobID := uuid.NewString()
	if err := o.Jobs.Create(jobID, model.JobQueued); err != nil {
		return nil, err
	}

	o.Queue.Push(model.Descriptor{
		JobID:        jobID,
		DownloadURL:  res.URL,
		DestPath:     destPath,
		ModelID:      req.ModelID,
		Source:       req.Source,
		ExpectedSize: res.Size,
		Checksum:     req.Checksum,
	})
	metrics.QueueDepth.Inc()

	logger.Info("download job enqueued", logger.Fields{
		"job":   jobID,
		"model": req.ModelID,
		"size":  res.Size,
	})
	return &AcquireResult{JobID: jobID}, nil
}
