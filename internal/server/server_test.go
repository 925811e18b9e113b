package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/modelfetch/pkg/hub"
	"github.com/glorpus-work/modelfetch/pkg/model"
	"github.com/glorpus-work/modelfetch/pkg/orchestrator"
	"github.com/glorpus-work/modelfetch/pkg/store"
)

type acquireFunc func(ctx context.Context, req orchestrator.AcquireRequest) (*orchestrator.AcquireResult, error)

func (f acquireFunc) Acquire(ctx context.Context, req orchestrator.AcquireRequest) (*orchestrator.AcquireResult, error) {
	return f(ctx, req)
}

func newTestServer(t *testing.T, acquire acquireFunc) (*Server, *store.ModelRegistryImpl, *store.JobStoreImpl) {
	t.Helper()
	dir := t.TempDir()

	registry, err := store.NewModelRegistry(filepath.Join(dir, "models.json"))
	require.NoError(t, err)
	jobs, err := store.NewJobStore(filepath.Join(dir, "jobs.json"))
	require.NoError(t, err)

	return &Server{Orch: acquire, Registry: registry, Jobs: jobs}, registry, jobs
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestDownload_SyncReturnsModel(t *testing.T) {
	s, _, _ := newTestServer(t, func(_ context.Context, req orchestrator.AcquireRequest) (*orchestrator.AcquireResult, error) {
		assert.Equal(t, "llama", req.ModelID)
		assert.Equal(t, "hf://org/llama", req.Source)
		return &orchestrator.AcquireResult{Model: &model.Model{
			ID:        "llama",
			Source:    req.Source,
			SizeBytes: 42,
			Status:    model.StatusAvailable,
			OnDisk:    true,
		}}, nil
	})

	rec := doRequest(t, s, http.MethodPost, "/api/models/download",
		`{"id":"llama","source":"hf://org/llama"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var got model.Model
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "llama", got.ID)
	assert.Equal(t, model.StatusAvailable, got.Status)
	assert.True(t, got.OnDisk)
}

func TestDownload_AsyncReturnsJobID(t *testing.T) {
	s, _, _ := newTestServer(t, func(_ context.Context, _ orchestrator.AcquireRequest) (*orchestrator.AcquireResult, error) {
		return &orchestrator.AcquireResult{JobID: "job-123"}, nil
	})

	rec := doRequest(t, s, http.MethodPost, "/api/models/download",
		`{"id":"big","source":"hf://org/big"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var got map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "job-123", got["jobId"])
}

func TestDownload_Validation(t *testing.T) {
	s, _, _ := newTestServer(t, func(_ context.Context, _ orchestrator.AcquireRequest) (*orchestrator.AcquireResult, error) {
		t.Fatal("orchestrator must not be called for invalid requests")
		return nil, nil
	})

	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{`},
		{name: "missing id", body: `{"source":"hf://org/m"}`},
		{name: "missing source", body: `{"id":"m"}`},
		{name: "id too long", body: `{"id":"` + strings.Repeat("a", 201) + `","source":"hf://org/m"}`},
		{name: "source too long", body: `{"id":"m","source":"hf://` + strings.Repeat("a", 500) + `"}`},
		{name: "checksum too long", body: `{"id":"m","source":"hf://org/m","checksum":"` + strings.Repeat("f", 101) + `"}`},
		{name: "priority too long", body: `{"id":"m","source":"hf://org/m","priority":"` + strings.Repeat("x", 51) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodPost, "/api/models/download", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestDownload_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "invalid source", err: hub.Wrapf(hub.ErrInvalidSourceFormat, "bad ref"), wantCode: http.StatusBadRequest},
		{name: "resolution failed", err: hub.Wrap(hub.ErrResolutionFailed, "no candidates"), wantCode: http.StatusBadGateway},
		{name: "other failure", err: assert.AnError, wantCode: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _ := newTestServer(t, func(_ context.Context, _ orchestrator.AcquireRequest) (*orchestrator.AcquireResult, error) {
				return nil, tt.err
			})
			rec := doRequest(t, s, http.MethodPost, "/api/models/download",
				`{"id":"m","source":"hf://org/m"}`)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestGetJob(t *testing.T) {
	s, _, jobs := newTestServer(t, nil)
	require.NoError(t, jobs.Create("job-1", model.JobQueued))
	require.NoError(t, jobs.Update("job-1", model.JobRunning, 0.25, ""))

	rec := doRequest(t, s, http.MethodGet, "/api/jobs/job-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got model.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "job-1", got.ID)
	assert.Equal(t, model.JobRunning, got.Status)
	assert.Equal(t, 0.25, got.Progress)
}

func TestGetJob_NotFound(t *testing.T) {
	s, _, _ := newTestServer(t, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/jobs/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListModels(t *testing.T) {
	s, registry, _ := newTestServer(t, nil)
	require.NoError(t, registry.Upsert("b", "hf://org/b", 2, model.StatusAvailable, true, false))
	require.NoError(t, registry.Upsert("a", "hf://org/a", 1, model.StatusDownloading, false, false))

	rec := doRequest(t, s, http.MethodGet, "/api/models", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []model.Model
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

func TestActivateModel(t *testing.T) {
	s, registry, _ := newTestServer(t, nil)
	require.NoError(t, registry.Upsert("a", "hf://org/a", 1, model.StatusAvailable, true, true))
	require.NoError(t, registry.Upsert("b", "hf://org/b", 2, model.StatusAvailable, true, false))

	rec := doRequest(t, s, http.MethodPost, "/api/models/b/activate", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got model.Model
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Active)

	prev, err := registry.Get("a")
	require.NoError(t, err)
	assert.False(t, prev.Active)
}

func TestActivateModel_NotFound(t *testing.T) {
	s, _, _ := newTestServer(t, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/models/ghost/activate", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthz(t *testing.T) {
	s, _, _ := newTestServer(t, nil)

	rec := doRequest(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
