package orchestrator

import (
	"sync"

	"github.com/glorpus-work/modelfetch/pkg/model"
)

// Queue is a concurrency-safe FIFO of transfer descriptors. Any number of
// producers may push concurrently; the single worker pops. Order among
// successfully pushed items is strictly first-in-first-out.
type Queue struct {
	mu    sync.Mutex
	items []model.Descriptor
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends a descriptor to the tail of the queue.
func (q *Queue) Push(d model.Descriptor) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, d)
}

// Pop removes and returns the head of the queue. The second return value is
// false when the queue is empty.
func (q *Queue) Pop() (model.Descriptor, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return model.Descriptor{}, false
	}
	head := q.items[0]
	q.items = q.items[1:]
	return head, true
}

// Len returns the number of queued descriptors.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
