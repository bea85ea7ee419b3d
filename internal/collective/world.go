package collective

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"phredavg/internal/errors"
)

// Root is the rank that scatters work and gathers results.
const Root = 0

// World is a set of Size participants wired for one scatter and one
// gather of values of type T (scatter) and R (gather).
type World[T, R any] struct {
	size    int
	scatter []chan T
	gather  chan ranked[R]
	arrive  *barrier

	mu     sync.Mutex
	failed *errors.ParticipantFailure
	cancel context.CancelFunc
}

type ranked[R any] struct {
	rank int
	val  R
}

// NewWorld returns a world of size participants (at least 1).
func NewWorld[T, R any](size int) *World[T, R] {
	if size < 1 {
		size = 1
	}
	w := &World[T, R]{
		size:    size,
		scatter: make([]chan T, size),
		gather:  make(chan ranked[R], size),
		arrive:  newBarrier(size),
	}
	for i := range w.scatter {
		w.scatter[i] = make(chan T, 1)
	}
	return w
}

func (w *World[T, R]) Size() int { return w.size }

// Comm is one participant's handle on the world.
type Comm[T, R any] struct {
	rank int
	w    *World[T, R]
}

func (c *Comm[T, R]) Rank() int { return c.rank }
func (c *Comm[T, R]) Size() int { return c.w.size }

// Run starts every participant and waits for all of them. If any returns
// an error, the world is cancelled, blocked participants give up, and Run
// returns a *errors.ParticipantFailure naming the first rank that failed.
func (w *World[T, R]) Run(ctx context.Context, fn func(ctx context.Context, c *Comm[T, R]) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	var eg errgroup.Group
	for r := 0; r < w.size; r++ {
		c := &Comm[T, R]{rank: r, w: w}
		eg.Go(func() error {
			err := fn(ctx, c)
			if err != nil {
				return w.fail(r, err)
			}
			return nil
		})
	}
	err := eg.Wait()
	if f := w.failure(); f != nil {
		return errors.WithStack(f)
	}
	return err
}

// fail records the first failure and cancels the rest. Errors that are a
// consequence of an earlier failure collapse into it.
func (w *World[T, R]) fail(rank int, err error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failed == nil {
		var pf *errors.ParticipantFailure
		if errors.As(err, &pf) {
			w.failed = pf
		} else {
			w.failed = &errors.ParticipantFailure{Rank: rank, Err: err}
		}
		if w.cancel != nil {
			w.cancel()
		}
	}
	return w.failed
}

func (w *World[T, R]) failure() *errors.ParticipantFailure {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.failed
}

// aborted is what a blocked collective call returns once the world is
// cancelled.
func (w *World[T, R]) aborted(ctx context.Context) error {
	if f := w.failure(); f != nil {
		return f
	}
	return ctx.Err()
}

// barrier releases its waiters once n of them have arrived. It resets
// after each release so the same barrier serves scatter and then gather.
type barrier struct {
	mu      sync.Mutex
	n       int
	arrived int
	release chan struct{}
}

func newBarrier(n int) *barrier {
	return &barrier{n: n, release: make(chan struct{})}
}

func (b *barrier) wait(ctx context.Context) error {
	b.mu.Lock()
	ch := b.release
	b.arrived++
	if b.arrived == b.n {
		close(ch)
		b.arrived = 0
		b.release = make(chan struct{})
	}
	b.mu.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Scatter hands parts[i] to rank i. Only the root's parts are read and
// the root must pass exactly Size parts. No rank leaves Scatter before
// every rank has entered it.
func (c *Comm[T, R]) Scatter(ctx context.Context, parts []T) (T, error) {
	var zero T
	if c.rank == Root && len(parts) != c.w.size {
		return zero, errors.Errorf("scatter: %d parts for %d participants", len(parts), c.w.size)
	}
	if err := c.w.arrive.wait(ctx); err != nil {
		return zero, c.w.aborted(ctx)
	}
	if c.rank == Root {
		for i, p := range parts {
			c.w.scatter[i] <- p // buffered, one slot per rank
		}
	}
	select {
	case v := <-c.w.scatter[c.rank]:
		return v, nil
	case <-ctx.Done():
		return zero, c.w.aborted(ctx)
	}
}

// Gather sends v to the root. No rank leaves Gather before every rank has
// entered it. The root gets the values indexed by rank; other ranks get nil.
func (c *Comm[T, R]) Gather(ctx context.Context, v R) ([]R, error) {
	if err := c.w.arrive.wait(ctx); err != nil {
		return nil, c.w.aborted(ctx)
	}
	c.w.gather <- ranked[R]{rank: c.rank, val: v} // buffered, one slot per rank
	if c.rank != Root {
		return nil, nil
	}
	out := make([]R, c.w.size)
	for n := 0; n < c.w.size; n++ {
		select {
		case r := <-c.w.gather:
			out[r.rank] = r.val
		case <-ctx.Done():
			return nil, c.w.aborted(ctx)
		}
	}
	return out, nil
}

// Groups splits items into p contiguous groups whose sizes differ by at
// most one; the first len(items)%p groups get the extra item. Groups may
// be empty when p exceeds len(items).
func Groups[T any](items []T, p int) [][]T {
	if p < 1 {
		p = 1
	}
	out := make([][]T, p)
	base, extra := len(items)/p, len(items)%p
	off := 0
	for i := range out {
		n := base
		if i < extra {
			n++
		}
		out[i] = items[off : off+n : off+n]
		off += n
	}
	return out
}
