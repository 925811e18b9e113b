//go:generate mockgen -destination=./mocks/orchestrator.go -package=mocks . Resolver,Downloader,Registry,Jobs

package orchestrator

import (
	"context"

	"github.com/glorpus-work/modelfetch/pkg/download"
	"github.com/glorpus-work/modelfetch/pkg/model"
)

// Resolver is the subset of the hub client used by the orchestrator.
type Resolver interface {
	Resolve(ctx context.Context, source string) (*model.Resolution, error)
}

// Downloader is the subset of the transfer engine used by the orchestrator.
type Downloader interface {
	Fetch(ctx context.Context, item download.Item) (int64, error)
}

// Registry is the subset of the model registry used by the orchestrator.
type Registry interface {
	Upsert(id, source string, sizeBytes int64, status model.ModelStatus, onDisk, active bool) error
}

// Jobs is the subset of the job store used by the orchestrator.
type Jobs interface {
	Create(jobID string, status model.JobStatus) error
	Update(jobID string, status model.JobStatus, progress float64, errMsg string) error
}

// AcquireRequest describes one acquisition request.
type AcquireRequest struct {
	ModelID  string
	Source   string
	Checksum string
	// Priority is accepted for API compatibility but does not influence
	// queue ordering; jobs run in strict FIFO order.
	Priority string
}

// AcquireResult is the outcome of an acquisition. Exactly one of Model or
// JobID is set: Model when the request was satisfied synchronously, JobID
// when the transfer was queued.
type AcquireResult struct {
	Model *model.Model
	JobID string
}

// Async reports whether the transfer was deferred to the background worker.
func (r *AcquireResult) Async() bool {
	return r.JobID != ""
}
