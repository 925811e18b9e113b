package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/glorpus-work/modelfetch/pkg/errors"
	"github.com/glorpus-work/modelfetch/pkg/model"
)

// JobStore defines the persisted table of transfer jobs.
type JobStore interface {
	// Create inserts a new job in the given initial status.
	Create(jobID string, status model.JobStatus) error
	// Update replaces status, progress and error message of an existing job.
	Update(jobID string, status model.JobStatus, progress float64, errMsg string) error
	// Get returns the job or errors.ErrJobNotFound.
	Get(jobID string) (*model.Job, error)
}

// jobsFile is the on-disk representation of the job store.
type jobsFile struct {
	FormatVersion string      `json:"format_version"`
	LastUpdate    time.Time   `json:"last_update"`
	Jobs          []model.Job `json:"jobs"`
}

// JobStoreImpl is a JSON-file-backed JobStore.
type JobStoreImpl struct {
	path string
	mu   sync.RWMutex
	jobs map[string]model.Job
}

// NewJobStore opens (or initializes) the job store persisted at path.
func NewJobStore(path string) (*JobStoreImpl, error) {
	cleanPath := filepath.Clean(path)
	if !filepath.IsAbs(cleanPath) {
		return nil, fmt.Errorf("job store path must be absolute: %s: %w", path, errors.ErrInvalidPath)
	}

	s := &JobStoreImpl{
		path: cleanPath,
		jobs: make(map[string]model.Job),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *JobStoreImpl) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "failed to read job store")
	}

	var file jobsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return errors.Wrap(err, "failed to parse job store")
	}
	for _, j := range file.Jobs {
		s.jobs[j.ID] = j
	}
	return nil
}

// save writes the job store to disk atomically. Callers must hold the lock.
func (s *JobStoreImpl) save() error {
	jobs := make([]model.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })

	return writeJSONAtomic(s.path, jobsFile{
		FormatVersion: "1",
		LastUpdate:    time.Now(),
		Jobs:          jobs,
	})
}

// Create inserts a new job in the given initial status.
func (s *JobStoreImpl) Create(jobID string, status model.JobStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[jobID] = model.Job{ID: jobID, Status: status}
	return s.save()
}

// Update replaces status, progress and error message of an existing job.
func (s *JobStoreImpl) Update(jobID string, status model.JobStatus, progress float64, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[jobID]; !ok {
		return fmt.Errorf("job %s: %w", jobID, errors.ErrJobNotFound)
	}

	s.jobs[jobID] = model.Job{ID: jobID, Status: status, Progress: progress, Error: errMsg}
	return s.save()
}

// Get returns the job for jobID.
func (s *JobStoreImpl) Get(jobID string) (*model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", jobID, errors.ErrJobNotFound)
	}
	return &j, nil
}
