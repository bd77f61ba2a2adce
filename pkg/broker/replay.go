// Package broker is the per-session state broker: typed channels that let
// independent components observe shared UI state without referencing each
// other.
package broker

import (
	"context"
	"sync"
)

// Replay is a last-value channel. A new subscriber first receives the latest
// value (if one was ever set), then every later value. A slow subscriber only
// misses intermediate values; it always ends on the latest one.
type Replay[T any] struct {
	mu   sync.Mutex
	val  T
	set  bool
	subs map[chan T]struct{}
}

func NewReplay[T any]() *Replay[T] {
	return &Replay[T]{subs: make(map[chan T]struct{})}
}

func (r *Replay[T]) Set(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.val = v
	r.set = true
	for ch := range r.subs {
		offer(ch, v)
	}
}

// Get returns the latest value and whether one was ever set.
func (r *Replay[T]) Get() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.val, r.set
}

// Subscribe returns a channel closed when ctx ends.
func (r *Replay[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)

	r.mu.Lock()
	if r.set {
		ch <- r.val
	}
	r.subs[ch] = struct{}{}
	r.mu.Unlock()

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		delete(r.subs, ch)
		close(ch)
		r.mu.Unlock()
	}()
	return ch
}

// offer replaces any undelivered value with v. Callers hold the lock, so
// this is the only sender on ch.
func offer[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}
