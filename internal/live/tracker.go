// Package live re-runs queries whenever the tables they read from change.
//
// Writers call Tracker.Notify after committing. Each subscription owns a
// single-slot pending flag, so any number of notifications that arrive while a
// query is running or a result is waiting to be received collapse into one
// refresh.
package live

import (
	"sync"
	"time"

	"github.com/julianstephens/daybook/internal/logger"
)

type observer struct {
	tables []string
	dirty  chan struct{}
	done   chan struct{}
}

// invalidate marks the observer dirty. It never blocks.
func (o *observer) invalidate() {
	select {
	case o.dirty <- struct{}{}:
	default:
	}
}

// Tracker is an observer registry keyed by table name.
type Tracker struct {
	mu        sync.Mutex
	observers map[string]map[*observer]struct{}
	debounce  time.Duration
	closed    bool
	wg        sync.WaitGroup
}

// NewTracker creates a tracker. A positive debounce makes every subscription
// wait that long after the first change before re-querying, widening the
// coalescing window.
func NewTracker(debounce time.Duration) *Tracker {
	return &Tracker{
		observers: make(map[string]map[*observer]struct{}),
		debounce:  debounce,
	}
}

// Notify marks every observer of the given tables dirty.
func (t *Tracker) Notify(tables ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	seen := make(map[*observer]struct{})
	for _, table := range tables {
		for o := range t.observers[table] {
			if _, ok := seen[o]; ok {
				continue
			}
			seen[o] = struct{}{}
			o.invalidate()
		}
	}
	if len(seen) > 0 {
		logger.Debug("Invalidated live queries", "tables", tables, "observers", len(seen))
	}
}

// ObserverCount returns the number of registered observers for table.
func (t *Tracker) ObserverCount(table string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.observers[table])
}

// Close ends every subscription and waits for their goroutines to exit.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	for _, set := range t.observers {
		for o := range set {
			select {
			case <-o.done:
			default:
				close(o.done)
			}
		}
	}
	t.observers = make(map[string]map[*observer]struct{})
	t.mu.Unlock()

	t.wg.Wait()
}

// register adds an observer that starts out dirty. It returns false when the
// tracker is closed.
func (t *Tracker) register(tables []string) (*observer, bool) {
	o := &observer{
		tables: tables,
		dirty:  make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	o.invalidate()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, false
	}
	for _, table := range tables {
		set, ok := t.observers[table]
		if !ok {
			set = make(map[*observer]struct{})
			t.observers[table] = set
		}
		set[o] = struct{}{}
	}
	t.wg.Add(1)
	return o, true
}

func (t *Tracker) unregister(o *observer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, table := range o.tables {
		if set, ok := t.observers[table]; ok {
			delete(set, o)
			if len(set) == 0 {
				delete(t.observers, table)
			}
		}
	}
	select {
	case <-o.done:
	default:
		close(o.done)
	}
}
