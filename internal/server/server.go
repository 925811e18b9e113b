// Package server exposes the acquisition pipeline over HTTP: download
// requests, job and model lookups, model activation, health and metrics.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/glorpus-work/modelfetch/internal/logger"
	"github.com/glorpus-work/modelfetch/pkg/errors"
	"github.com/glorpus-work/modelfetch/pkg/hub"
	"github.com/glorpus-work/modelfetch/pkg/orchestrator"
	"github.com/glorpus-work/modelfetch/pkg/store"
)

// Request field bounds.
const (
	maxModelIDLen  = 200
	maxSourceLen   = 500
	maxChecksumLen = 100
	maxPriorityLen = 50
)

// Acquirer is the orchestrator subset the server calls into.
type Acquirer interface {
	Acquire(ctx context.Context, req orchestrator.AcquireRequest) (*orchestrator.AcquireResult, error)
}

// Server wires HTTP handlers to the orchestrator and the stores.
type Server struct {
	Orch     Acquirer
	Registry store.ModelRegistry
	Jobs     store.JobStore
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/models/download", s.handleDownload)
		r.Get("/models", s.handleListModels)
		r.Post("/models/{id}/activate", s.handleActivate)
		r.Get("/jobs/{jobId}", s.handleGetJob)
	})

	return r
}

// downloadRequest is the body of POST /api/models/download.
type downloadRequest struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	Checksum string `json:"checksum,omitempty"`
	Priority string `json:"priority,omitempty"`
}

func (req *downloadRequest) validate() error {
	if req.ID == "" {
		return fmt.Errorf("id is required: %w", errors.ErrValidation)
	}
	if len(req.ID) > maxModelIDLen {
		return fmt.Errorf("id exceeds %d characters: %w", maxModelIDLen, errors.ErrValidation)
	}
	if req.Source == "" {
		return fmt.Errorf("source is required: %w", errors.ErrValidation)
	}
	if len(req.Source) > maxSourceLen {
		return fmt.Errorf("source exceeds %d characters: %w", maxSourceLen, errors.ErrValidation)
	}
	if len(req.Checksum) > maxChecksumLen {
		return fmt.Errorf("checksum exceeds %d characters: %w", maxChecksumLen, errors.ErrValidation)
	}
	if len(req.Priority) > maxPriorityLen {
		return fmt.Errorf("priority exceeds %d characters: %w", maxPriorityLen, errors.ErrValidation)
	}
	return nil
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.Orch.Acquire(r.Context(), orchestrator.AcquireRequest{
		ModelID:  req.ID,
		Source:   req.Source,
		Checksum: req.Checksum,
		Priority: req.Priority,
	})
	if err != nil {
		writeAcquireError(w, req.ID, err)
		return
	}

	if res.Async() {
		writeJSON(w, http.StatusAccepted, map[string]string{"jobId": res.JobID})
		return
	}
	writeJSON(w, http.StatusOK, res.Model)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")

	job, err := s.Jobs.Get(jobID)
	if err != nil {
		if stderrors.Is(err, errors.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleListModels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Registry.GetAll())
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.Registry.SetActive(id); err != nil {
		if stderrors.Is(err, errors.ErrModelNotFound) {
			writeError(w, http.StatusNotFound, "model not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	model, err := s.Registry.Get(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, model)
}

// writeAcquireError maps acquisition errors to status codes: unparseable
// sources are the caller's fault, resolution failures are the upstream
// hub's.
func writeAcquireError(w http.ResponseWriter, modelID string, err error) {
	logger.Error("acquisition failed", logger.Fields{"model": modelID, "error": err.Error()})

	switch {
	case stderrors.Is(err, hub.ErrInvalidSourceFormat):
		writeError(w, http.StatusBadRequest, err.Error())
	case stderrors.Is(err, hub.ErrResolutionFailed):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warnf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
