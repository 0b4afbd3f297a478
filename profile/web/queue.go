package web

import (
	"sync"
	"time"

	"github.com/lvalerom/samphub/sampvalue"
)

// pendingCallback is one outbound delivery awaiting a pull, shaped the same
// way a Standard Profile callback POST's body would be: a method name and
// its argument list.
type pendingCallback struct {
	method string
	args   []sampvalue.Value
}

// pullQueue is a bounded FIFO of pendingCallbacks for one Web client,
// guarded by its own mutex and condition variable per spec §5 ("per-client
// pending queues are each protected by their own mutex and condition
// variable"). Overflow drops the oldest entry and raises lagging.
type pullQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []pendingCallback
	max     int
	lagging bool
}

func newPullQueue(max int) *pullQueue {
	if max <= 0 {
		max = 4096
	}
	q := &pullQueue{max: max}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push enqueues a callback, evicting the oldest entry and marking the
// queue lagging if it's already at capacity.
func (q *pullQueue) push(method string, args []sampvalue.Value) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) >= q.max {
		q.items = q.items[1:]
		q.lagging = true
	}
	q.items = append(q.items, pendingCallback{method: method, args: args})
	q.cond.Signal()
}

// pull blocks up to timeout for at least one pending callback, then drains
// and returns the entire batch. An idle timeout returns an empty, non-nil
// slice. sync.Cond has no native timeout, so a timer wakes the wait via
// Broadcast if nothing else does first — the same "race a timer against
// the real event" shape as the teacher's lease-expiry select in
// endpoint/httprest.go, adapted from a channel to a cond.
func (q *pullQueue) pull(timeout time.Duration) []pendingCallback {
	deadline := time.Now().Add(timeout)

	timer := time.AfterFunc(timeout, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer timer.Stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 {
		if !time.Now().Before(deadline) {
			return []pendingCallback{}
		}
		q.cond.Wait()
	}

	batch := q.items
	q.items = nil
	return batch
}

// isLagging reports and clears the lagging flag.
func (q *pullQueue) isLagging() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	lagging := q.lagging
	q.lagging = false
	return lagging
}
