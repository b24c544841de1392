package reconciler

import (
	"context"
	"sync"
	"time"
)

// requestKey identifies the resource a request is for. Two requests with the
// same key are never handed to workers at the same time.
func requestKey(req ReconcileRequest) string {
	return statusKey(req.Type, req.Name, req.Namespace)
}

// requestQueue is a keyed FIFO of reconcile requests.
//
// Each key is in at most one of three states: pending (waiting for a
// worker), active (handed out by Get, not yet Done) or deferred (waiting on
// a timer). A request added for an active key parks in parked and becomes
// pending again on Done, so a resource is only ever processed by one worker.
// Adding a key that is already pending replaces the request in place and
// keeps its position.
type requestQueue struct {
	mu sync.Mutex

	order   []string
	pending map[string]ReconcileRequest
	active  map[string]struct{}
	parked  map[string]ReconcileRequest
	timers  map[string]*time.Timer

	// wake carries at most one token; a Get that takes it passes it on
	// while work remains.
	wake   chan struct{}
	closed chan struct{}
	down   bool
}

func newRequestQueue() *requestQueue {
	return &requestQueue{
		pending: make(map[string]ReconcileRequest),
		active:  make(map[string]struct{}),
		parked:  make(map[string]ReconcileRequest),
		timers:  make(map[string]*time.Timer),
		wake:    make(chan struct{}, 1),
		closed:  make(chan struct{}),
	}
}

// Add queues req, or replaces the request already queued for its key.
func (q *requestQueue) Add(req ReconcileRequest) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.addLocked(req)
}

func (q *requestQueue) addLocked(req ReconcileRequest) {
	if q.down {
		return
	}
	key := requestKey(req)
	if _, busy := q.active[key]; busy {
		q.parked[key] = req
		return
	}
	if _, queued := q.pending[key]; !queued {
		q.order = append(q.order, key)
	}
	q.pending[key] = req
	q.signal()
}

// AddAfter queues req once delay has passed. A later AddAfter for the same
// key replaces the earlier one.
func (q *requestQueue) AddAfter(req ReconcileRequest, delay time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.down {
		return
	}

	key := requestKey(req)
	if t, ok := q.timers[key]; ok {
		t.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		// A replaced timer may still fire once.
		if q.timers[key] != timer {
			return
		}
		delete(q.timers, key)
		q.addLocked(req)
	})
	q.timers[key] = timer
}

// Get blocks until a request is pending, ctx ends or the queue shuts down.
func (q *requestQueue) Get(ctx context.Context) (ReconcileRequest, bool) {
	for {
		q.mu.Lock()
		if q.down {
			q.mu.Unlock()
			return ReconcileRequest{}, false
		}
		if len(q.order) > 0 {
			key := q.order[0]
			q.order = q.order[1:]
			req := q.pending[key]
			delete(q.pending, key)
			q.active[key] = struct{}{}
			if len(q.order) > 0 {
				q.signal()
			}
			q.mu.Unlock()
			return req, true
		}
		q.mu.Unlock()

		select {
		case <-q.wake:
		case <-q.closed:
		case <-ctx.Done():
			return ReconcileRequest{}, false
		}
	}
}

// Done releases the key of req. A request parked while it was active is
// queued again.
func (q *requestQueue) Done(req ReconcileRequest) {
	q.mu.Lock()
	defer q.mu.Unlock()

	key := requestKey(req)
	delete(q.active, key)
	if next, ok := q.parked[key]; ok {
		delete(q.parked, key)
		q.addLocked(next)
	}
}

// Len returns the number of pending requests.
func (q *requestQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}

// Shutdown drops pending, parked and deferred requests and releases every
// blocked Get. Active requests may still call Done.
func (q *requestQueue) Shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.down {
		return
	}
	q.down = true
	for _, t := range q.timers {
		t.Stop()
	}
	q.order = nil
	clear(q.pending)
	clear(q.parked)
	clear(q.timers)
	close(q.closed)
}

func (q *requestQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
