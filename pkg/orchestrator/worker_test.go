package orchestrator

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/glorpus-work/modelfetch/pkg/download"
	"github.com/glorpus-work/modelfetch/pkg/model"
	"github.com/glorpus-work/modelfetch/pkg/orchestrator/mocks"
	"github.com/glorpus-work/modelfetch/pkg/store"
)

// runWorker drives the worker in the background until the test finishes.
func runWorker(t *testing.T, w *Worker) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	w.PollInterval = 5 * time.Millisecond
	go w.Run(ctx)
}

func newTestStores(t *testing.T) (*store.ModelRegistryImpl, *store.JobStoreImpl) {
	t.Helper()
	dir := t.TempDir()

	registry, err := store.NewModelRegistry(filepath.Join(dir, "models.json"))
	require.NoError(t, err)
	jobs, err := store.NewJobStore(filepath.Join(dir, "jobs.json"))
	require.NoError(t, err)
	return registry, jobs
}

func TestWorker_ProcessesJobsInOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	registry, jobs := newTestStores(t)
	queue := NewQueue()

	var fetched []string
	dl := mocks.NewMockDownloader(ctrl)
	dl.EXPECT().
		Fetch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, item download.Item) (int64, error) {
			fetched = append(fetched, item.URL)
			return 100, nil
		}).
		Times(3)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, jobs.Create("job-"+id, model.JobQueued))
		queue.Push(model.Descriptor{
			JobID:       "job-" + id,
			ModelID:     id,
			Source:      "hf://org/" + id,
			DownloadURL: "https://hub/resolve/main/" + id + ".gguf",
			DestPath:    filepath.Join(t.TempDir(), id+".gguf"),
		})
	}

	runWorker(t, &Worker{DL: dl, Registry: registry, Jobs: jobs, Queue: queue})

	require.Eventually(t, func() bool {
		for _, id := range []string{"a", "b", "c"} {
			j, err := jobs.Get("job-" + id)
			if err != nil || !j.Status.Terminal() {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{
		"https://hub/resolve/main/a.gguf",
		"https://hub/resolve/main/b.gguf",
		"https://hub/resolve/main/c.gguf",
	}, fetched)

	for _, id := range []string{"a", "b", "c"} {
		j, err := jobs.Get("job-" + id)
		require.NoError(t, err)
		assert.Equal(t, model.JobSucceeded, j.Status)
		assert.Equal(t, 1.0, j.Progress)
		assert.Empty(t, j.Error)

		m, err := registry.Get(id)
		require.NoError(t, err)
		assert.Equal(t, model.StatusAvailable, m.Status)
		assert.True(t, m.OnDisk)
		assert.Equal(t, int64(100), m.SizeBytes)
	}
}

func TestWorker_FailureMarksJobAndModel(t *testing.T) {
	ctrl := gomock.NewController(t)
	registry, jobs := newTestStores(t)
	queue := NewQueue()

	dl := mocks.NewMockDownloader(ctrl)
	dl.EXPECT().
		Fetch(gomock.Any(), gomock.Any()).
		Return(int64(0), assert.AnError)

	require.NoError(t, jobs.Create("job-x", model.JobQueued))
	queue.Push(model.Descriptor{
		JobID:       "job-x",
		ModelID:     "x",
		Source:      "hf://org/x",
		DownloadURL: "https://hub/resolve/main/x.gguf",
		DestPath:    filepath.Join(t.TempDir(), "x.gguf"),
	})

	runWorker(t, &Worker{DL: dl, Registry: registry, Jobs: jobs, Queue: queue})

	require.Eventually(t, func() bool {
		j, err := jobs.Get("job-x")
		return err == nil && j.Status.Terminal()
	}, 2*time.Second, 10*time.Millisecond)

	j, err := jobs.Get("job-x")
	require.NoError(t, err)
	assert.Equal(t, model.JobFailed, j.Status)
	assert.Equal(t, 0.0, j.Progress)
	assert.Contains(t, j.Error, assert.AnError.Error())

	m, err := registry.Get("x")
	require.NoError(t, err)
	assert.Equal(t, model.StatusError, m.Status)
	assert.False(t, m.OnDisk)
}

func TestWorker_ProgressReportingThrottledAndClamped(t *testing.T) {
	ctrl := gomock.NewController(t)
	queue := NewQueue()

	registry := mocks.NewMockRegistry(ctrl)
	jobsMock := mocks.NewMockJobs(ctrl)

	dl := mocks.NewMockDownloader(ctrl)
	dl.EXPECT().
		Fetch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, item download.Item) (int64, error) {
			item.OnProgress(0.005) // below step, must be dropped
			item.OnProgress(0.5)
			item.OnProgress(0.504) // delta below step, must be dropped
			item.OnProgress(1.5)   // clamped to 1.0
			return 2048, nil
		})

	gomock.InOrder(
		jobsMock.EXPECT().Update("job-p", model.JobRunning, 0.0, "").Return(nil),
		jobsMock.EXPECT().Update("job-p", model.JobRunning, 0.5, "").Return(nil),
		jobsMock.EXPECT().Update("job-p", model.JobRunning, 1.0, "").Return(nil),
		jobsMock.EXPECT().Update("job-p", model.JobSucceeded, 1.0, "").Return(nil),
	)
	registry.EXPECT().
		Upsert("p", "hf://org/p", int64(2048), model.StatusAvailable, true, false).
		Return(nil)

	w := &Worker{DL: dl, Registry: registry, Jobs: jobsMock, Queue: queue}
	w.process(context.Background(), model.Descriptor{
		JobID:        "job-p",
		ModelID:      "p",
		Source:       "hf://org/p",
		DownloadURL:  "https://hub/resolve/main/p.gguf",
		DestPath:     filepath.Join(t.TempDir(), "p.gguf"),
		ExpectedSize: 2048,
	})
}

func TestWorker_TerminalJobStaysUnchanged(t *testing.T) {
	ctrl := gomock.NewController(t)
	registry, jobs := newTestStores(t)
	queue := NewQueue()

	dl := mocks.NewMockDownloader(ctrl)
	dl.EXPECT().
		Fetch(gomock.Any(), gomock.Any()).
		Return(int64(10), nil)

	require.NoError(t, jobs.Create("job-t", model.JobQueued))
	queue.Push(model.Descriptor{
		JobID:       "job-t",
		ModelID:     "tm",
		Source:      "hf://org/tm",
		DownloadURL: "https://hub/resolve/main/tm.gguf",
		DestPath:    filepath.Join(t.TempDir(), "tm.gguf"),
	})

	runWorker(t, &Worker{DL: dl, Registry: registry, Jobs: jobs, Queue: queue})

	require.Eventually(t, func() bool {
		j, err := jobs.Get("job-t")
		return err == nil && j.Status.Terminal()
	}, 2*time.Second, 10*time.Millisecond)

	first, err := jobs.Get("job-t")
	require.NoError(t, err)

	// The worker keeps running; the drained job must not be touched again.
	time.Sleep(50 * time.Millisecond)
	second, err := jobs.Get("job-t")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 0, queue.Len())
}

func TestWorker_StopsOnContextCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	registry, jobs := newTestStores(t)
	queue := NewQueue()
	dl := mocks.NewMockDownloader(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{DL: dl, Registry: registry, Jobs: jobs, Queue: queue, PollInterval: 5 * time.Millisecond}

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}
}
