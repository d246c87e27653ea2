package live

import (
	"context"
	"time"

	"github.com/google/go-cmp/cmp"
)

// Query loads one snapshot. It must honour ctx so that closing a subscription
// cancels the read and releases its cursor.
type Query[T any] func(ctx context.Context) (T, error)

// Snapshot is one delivery from a subscription.
type Snapshot[T any] struct {
	Value T
	Err   error
}

// Subscription delivers query results until it is closed.
type Subscription[T any] struct {
	updates chan Snapshot[T]
	cancel  context.CancelFunc
	exited  chan struct{}
}

// Watch registers query against tables and starts delivering snapshots.
//
// The observer is registered before the first query runs, so a write that
// lands between the initial snapshot and registration cannot be missed. The
// first snapshot is always delivered; later results equal to the last
// delivered value are skipped.
func Watch[T any](ctx context.Context, t *Tracker, query Query[T], tables ...string) *Subscription[T] {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription[T]{
		updates: make(chan Snapshot[T]),
		cancel:  cancel,
		exited:  make(chan struct{}),
	}

	o, ok := t.register(tables)
	if !ok {
		cancel()
		close(s.updates)
		close(s.exited)
		return s
	}

	go s.run(ctx, t, o, query)
	return s
}

// Updates returns the delivery channel. It is closed when the subscription
// ends.
func (s *Subscription[T]) Updates() <-chan Snapshot[T] {
	return s.updates
}

// Close stops the subscription. Once it returns no further queries run.
func (s *Subscription[T]) Close() {
	s.cancel()
	<-s.exited
}

func (s *Subscription[T]) run(ctx context.Context, t *Tracker, o *observer, query Query[T]) {
	defer t.wg.Done()
	defer close(s.exited)
	defer close(s.updates)
	defer t.unregister(o)

	var last T
	delivered := false

	for {
		select {
		case <-ctx.Done():
			return
		case <-o.done:
			return
		case <-o.dirty:
		}

		if t.debounce > 0 && !s.wait(ctx, o, t.debounce) {
			return
		}

		value, err := query(ctx)
		if ctx.Err() != nil {
			return
		}
		if err == nil && delivered && cmp.Equal(value, last) {
			continue
		}

		select {
		case s.updates <- Snapshot[T]{Value: value, Err: err}:
			if err == nil {
				last = value
				delivered = true
			}
		case <-ctx.Done():
			return
		case <-o.done:
			return
		}
	}
}

// wait sleeps for the debounce window and drops notifications that arrived
// during it, since the query about to run will observe them.
func (s *Subscription[T]) wait(ctx context.Context, o *observer, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-o.done:
		return false
	case <-timer.C:
	}

	select {
	case <-o.dirty:
	default:
	}
	return true
}
