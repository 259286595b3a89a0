package service

import (
	"context"
	"errors"
	"sync"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/infra/observability"
)

// ErrSuperseded is returned to a fetch whose result was discarded because a
// newer fetch for the same view started, or because the view was reset.
var ErrSuperseded = errors.New("superseded by a newer request")

// Latest holds the state of one view and enforces last-request-wins: each
// fetch gets a sequence number, starting a fetch cancels the previous one,
// and only the newest fetch may commit its result.
type Latest[T any] struct {
	view    string
	metrics *observability.Metrics

	mu       sync.Mutex
	seq      uint64
	cancel   context.CancelFunc
	value    T
	loaded   bool
	disposed bool
}

// NewLatest creates the state holder of view. Stale results are counted
// under that name.
func NewLatest[T any](view string, metrics *observability.Metrics) *Latest[T] {
	return &Latest[T]{view: view, metrics: metrics}
}

// Begin starts a fetch. The returned context is cancelled when a newer fetch
// begins, on Reset and on Dispose.
func (l *Latest[T]) Begin(parent context.Context) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(parent)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		l.cancel()
	}
	l.seq++
	if l.disposed {
		cancel()
		return ctx, l.seq
	}
	l.cancel = cancel
	return ctx, l.seq
}

// Commit stores v if seq is still the newest fetch. It reports whether the
// value was applied.
func (l *Latest[T]) Commit(seq uint64, v T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if seq != l.seq || l.disposed {
		l.stale()
		return false
	}
	l.value, l.loaded = v, true
	l.release()
	return true
}

// Abandon ends fetch seq without a value.
func (l *Latest[T]) Abandon(seq uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if seq == l.seq {
		l.release()
	}
}

// Current reports whether seq is still the newest fetch.
func (l *Latest[T]) Current(seq uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return seq == l.seq && !l.disposed
}

// Get returns the last committed value.
func (l *Latest[T]) Get() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value, l.loaded
}

// Update applies fn to the committed value, if any, without a fetch.
func (l *Latest[T]) Update(fn func(T) T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded && !l.disposed {
		l.value = fn(l.value)
	}
}

// Reset cancels any fetch in flight and forgets the committed value. The
// holder stays usable.
func (l *Latest[T]) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resetLocked()
}

// Dispose cancels any fetch in flight. Every later completion is discarded.
func (l *Latest[T]) Dispose() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resetLocked()
	l.disposed = true
}

// resetLocked must be called with mu held.
func (l *Latest[T]) resetLocked() {
	l.release()
	l.seq++
	var zero T
	l.value, l.loaded = zero, false
}

// Run begins a fetch, runs it and commits its result. A fetch overtaken by a
// newer one returns ErrSuperseded, whatever its own outcome.
func (l *Latest[T]) Run(ctx context.Context, fetch func(context.Context) (T, error)) (T, error) {
	ctx, seq := l.Begin(ctx)
	v, err := fetch(ctx)

	var zero T
	if err != nil {
		if !l.Current(seq) {
			l.metrics.IncrStaleResult(l.view)
			return zero, ErrSuperseded
		}
		l.Abandon(seq)
		return zero, err
	}
	if !l.Commit(seq, v) {
		return zero, ErrSuperseded
	}
	return v, nil
}

// release drops the cancel func of the finished fetch. Callers hold mu.
func (l *Latest[T]) release() {
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

func (l *Latest[T]) stale() {
	l.metrics.IncrStaleResult(l.view)
}
