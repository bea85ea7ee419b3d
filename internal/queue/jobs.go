package queue

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the outcome of a JobQueue.Get.
type Status int

const (
	// Empty means no job is available right now; poll again later.
	Empty Status = iota
	// Leased means a job was handed out under a lease.
	Leased
	// Pill means every job is finished and the caller should exit.
	Pill
)

func (s Status) String() string {
	switch s {
	case Leased:
		return "leased"
	case Pill:
		return "pill"
	default:
		return "empty"
	}
}

// Lease is a job handed to one worker until Deadline.
type Lease[T any] struct {
	ID       string
	JobID    string
	Item     T
	Deadline time.Time
}

type entry[T any] struct {
	id   string
	item T
}

// JobQueue hands jobs out in FIFO order under time-limited leases. A job
// whose lease expires before it is completed goes back to the head of the
// queue, so a worker that dies mid-job costs a delay instead of a result.
//
// Close marks the end of the job stream with a poison pill. The pill is
// never consumed: once every job is completed, every Get returns Pill,
// so each worker sees it on its next poll. This bounds shutdown by one
// poll interval, which a pill that has to be requeued by whoever takes it
// does not.
type JobQueue[T any] struct {
	mu      sync.Mutex
	pending []entry[T]
	leases  map[string]*Lease[T] // by job ID
	done    map[string]bool
	cap     int
	closed  bool

	timeout  time.Duration
	now      func() time.Time
	onExpire func(Lease[T])
}

// JobQueueOption configures a JobQueue.
type JobQueueOption[T any] func(*JobQueue[T])

// WithClock replaces time.Now, for tests.
func WithClock[T any](now func() time.Time) JobQueueOption[T] {
	return func(q *JobQueue[T]) { q.now = now }
}

// OnExpire registers a callback run (under the queue lock) for each lease
// that expires and is requeued.
func OnExpire[T any](fn func(Lease[T])) JobQueueOption[T] {
	return func(q *JobQueue[T]) { q.onExpire = fn }
}

// NewJobQueue returns a queue holding at most capacity jobs (<=0 =
// unbounded) whose leases last leaseTimeout.
func NewJobQueue[T any](capacity int, leaseTimeout time.Duration, opts ...JobQueueOption[T]) *JobQueue[T] {
	q := &JobQueue[T]{
		leases:  make(map[string]*Lease[T]),
		done:    make(map[string]bool),
		cap:     capacity,
		timeout: leaseTimeout,
		now:     time.Now,
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

// Put enqueues a job under id.
func (q *JobQueue[T]) Put(id string, item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	if q.cap > 0 && len(q.pending)+len(q.leases) >= q.cap {
		return ErrFull
	}
	q.pending = append(q.pending, entry[T]{id: id, item: item})
	return nil
}

// Close appends the poison pill. No job may be put afterwards.
func (q *JobQueue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

// PutPill re-enqueues the pill on behalf of a worker that saw it. The pill
// is never removed, so this only checks that it was there to be seen.
func (q *JobQueue[T]) PutPill() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		return ErrClosed
	}
	return nil
}

// Get never blocks. It returns the head job under a new lease, Pill once
// the queue is closed and drained, or Empty.
func (q *JobQueue[T]) Get() (Lease[T], Status) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.expireLocked()
	if len(q.pending) == 0 {
		if q.closed && len(q.leases) == 0 {
			return Lease[T]{}, Pill
		}
		return Lease[T]{}, Empty
	}
	e := q.pending[0]
	q.pending = q.pending[1:]
	l := &Lease[T]{
		ID:       uuid.NewString(),
		JobID:    e.id,
		Item:     e.item,
		Deadline: q.now().Add(q.timeout),
	}
	q.leases[e.id] = l
	return *l, Leased
}

// Complete records that jobID finished. It returns false if the job was
// already completed (a late duplicate from an expired lease) or is
// unknown. A result is accepted even if its lease expired, as long as no
// other result for the job arrived first.
func (q *JobQueue[T]) Complete(jobID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.done[jobID] {
		return false
	}
	_, leased := q.leases[jobID]
	idx := -1
	for i, e := range q.pending {
		if e.id == jobID {
			idx = i
			break
		}
	}
	if !leased && idx < 0 {
		return false
	}
	delete(q.leases, jobID)
	if idx >= 0 {
		q.pending = append(q.pending[:idx], q.pending[idx+1:]...)
	}
	q.done[jobID] = true
	return true
}

// Outstanding returns the job IDs not yet completed, queued or leased.
func (q *JobQueue[T]) Outstanding() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.pending)+len(q.leases))
	for _, e := range q.pending {
		out = append(out, e.id)
	}
	for id := range q.leases {
		out = append(out, id)
	}
	return out
}

// Stats reports queued, leased and completed job counts.
func (q *JobQueue[T]) Stats() (queued, leased, completed int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending), len(q.leases), len(q.done)
}

func (q *JobQueue[T]) expireLocked() {
	if q.timeout <= 0 || len(q.leases) == 0 {
		return
	}
	now := q.now()
	var expired []entry[T]
	for id, l := range q.leases {
		if now.After(l.Deadline) {
			expired = append(expired, entry[T]{id: id, item: l.Item})
			if q.onExpire != nil {
				q.onExpire(*l)
			}
			delete(q.leases, id)
		}
	}
	if len(expired) > 0 {
		q.pending = append(expired, q.pending...)
	}
}
