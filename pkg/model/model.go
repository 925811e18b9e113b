// Package model provides the data structures shared across modelfetch:
// registry entries, transfer jobs and the in-memory descriptors handed to the
// download worker.
package model

// ModelStatus describes the lifecycle state of a model artifact in the registry.
type ModelStatus string

// Model lifecycle states.
const (
	StatusAvailable   ModelStatus = "available"
	StatusDownloading ModelStatus = "downloading"
	StatusLoaded      ModelStatus = "loaded"
	StatusError       ModelStatus = "error"
)

// ParseModelStatus maps a stored string onto a ModelStatus, falling back to
// StatusAvailable for unknown values.
func ParseModelStatus(s string) ModelStatus {
	switch ModelStatus(s) {
	case StatusAvailable, StatusDownloading, StatusLoaded, StatusError:
		return ModelStatus(s)
	default:
		return StatusAvailable
	}
}

// JobStatus describes the state of one asynchronous transfer attempt.
type JobStatus string

// Job states. Succeeded and Failed are terminal.
const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// ParseJobStatus maps a stored string onto a JobStatus, falling back to
// JobQueued for unknown values.
func ParseJobStatus(s string) JobStatus {
	switch JobStatus(s) {
	case JobQueued, JobRunning, JobSucceeded, JobFailed:
		return JobStatus(s)
	default:
		return JobQueued
	}
}

// Terminal reports whether no further transitions are expected for the status.
func (s JobStatus) Terminal() bool {
	return s == JobSucceeded || s == JobFailed
}

// Model is one registry row describing a tracked artifact.
type Model struct {
	ID        string      `json:"id"`
	Source    string      `json:"source,omitempty"`
	SizeBytes int64       `json:"sizeBytes"`
	Status    ModelStatus `json:"status"`
	OnDisk    bool        `json:"onDisk"`
	Active    bool        `json:"active"`
}

// Job is one job-store row describing an asynchronous transfer.
type Job struct {
	ID       string    `json:"jobId"`
	Status   JobStatus `json:"status"`
	Progress float64   `json:"progress"`
	Error    string    `json:"error,omitempty"`
}

// Descriptor is the queue payload for one deferred transfer. It is built by
// the dispatcher, consumed exactly once by the worker and never persisted.
type Descriptor struct {
	JobID        string
	DownloadURL  string
	DestPath     string
	ModelID      string
	Source       string
	ExpectedSize int64
	Checksum     string
}

// Resolution is the outcome of resolving a source reference against the hub:
// a concrete download URL, the selected file name and the expected size in
// bytes (0 when the size could not be discovered).
type Resolution struct {
	URL      string
	FileName string
	Size     int64
}
