// Package store provides JSON-file-backed persistence for the model registry
// and the transfer job store. Every mutation is written through to disk with
// an atomic temp-file rename, and reads within the process see their own
// writes.
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
	"github.com/glorpus-work/modelfetch/pkg/fsutil"
	"github.com/glorpus-work/modelfetch/pkg/model"
)

// ModelRegistry defines the persisted table of known artifacts.
type ModelRegistry interface {
	// Upsert creates or replaces the registry row for id.
	Upsert(id, source string, sizeBytes int64, status model.ModelStatus, onDisk, active bool) error
	// Get returns the row for id or errors.ErrModelNotFound.
	Get(id string) (*model.Model, error)
	// GetAll returns all rows ordered by id.
	GetAll() []model.Model
	// SetActive marks id active and clears the flag on every other row in
	// one atomic write.
	SetActive(id string) error
}

// registryFile is the on-disk representation of the registry.
type registryFile struct {
	FormatVersion string        `json:"format_version"`
	LastUpdate    time.Time     `json:"last_update"`
	Models        []model.Model `json:"models"`
}

// ModelRegistryImpl is a JSON-file-backed ModelRegistry.
type ModelRegistryImpl struct {
	path   string
	mu     sync.RWMutex
	models map[string]model.Model
}

// NewModelRegistry opens (or initializes) the registry persisted at path.
func NewModelRegistry(path string) (*ModelRegistryImpl, error) {
	cleanPath := filepath.Clean(path)
	if !filepath.IsAbs(cleanPath) {
		return nil, fmt.Errorf("registry path must be absolute: %s: %w", path, errors.ErrInvalidPath)
	}

	r := &ModelRegistryImpl{
		path:   cleanPath,
		models: make(map[string]model.Model),
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *ModelRegistryImpl) load() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "failed to read registry")
	}

	var file registryFile
	if err := json.Unmarshal(data, &file); err != nil {
		return errors.Wrap(err, "failed to parse registry")
	}
	for _, m := range file.Models {
		r.models[m.ID] = m
	}
	return nil
}

// save writes the registry to disk atomically. Callers must hold the lock.
func (r *ModelRegistryImpl) save() error {
	models := make([]model.Model, 0, len(r.models))
	for _, m := range r.models {
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })

	return writeJSONAtomic(r.path, registryFile{
		FormatVersion: "1",
		LastUpdate:    time.Now(),
		Models:        models,
	})
}

// Upsert creates or replaces the registry row for id.
func (r *ModelRegistryImpl) Upsert(id, source string, sizeBytes int64, status model.ModelStatus, onDisk, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.models[id] = model.Model{
		ID:        id,
		Source:    source,
		SizeBytes: sizeBytes,
		Status:    status,
		OnDisk:    onDisk,
		Active:    active,
	}
	return r.save()
}

// Get returns the row for id.
func (r *ModelRegistryImpl) Get(id string) (*model.Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.models[id]
	if !ok {
		return nil, fmt.Errorf("model %s: %w", id, errors.ErrModelNotFound)
	}
	return &m, nil
}

// GetAll returns all rows ordered by id.
func (r *ModelRegistryImpl) GetAll() []model.Model {
	r.mu.RLock()
	defer r.mu.RUnlock()

	models := make([]model.Model, 0, len(r.models))
	for _, m := range r.models {
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models
}

// SetActive marks id active and clears the flag everywhere else.
func (r *ModelRegistryImpl) SetActive(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	target, ok := r.models[id]
	if !ok {
		return fmt.Errorf("model %s: %w", id, errors.ErrModelNotFound)
	}

	for key, m := range r.models {
		if m.Active {
			m.Active = false
			r.models[key] = m
		}
	}
	target.Active = true
	r.models[id] = target

	return r.save()
}

// writeJSONAtomic marshals v and replaces path with a temp-file rename.
func writeJSONAtomic(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), fsutil.DirModeDefault); err != nil {
		return errors.Wrap(err, "failed to create state directory")
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(path), "modelfetch-db-*.tmp")
	if err != nil {
		return errors.Wrap(err, "failed to create temporary file")
	}
	tmpPath := tmpFile.Name()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, "failed to marshal state")
	}

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, "failed to write temporary file")
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, "failed to sync temporary file")
	}
	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, "failed to close temporary file")
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrapf(err, "failed to rename temporary file to %s", path)
	}
	return nil
}
