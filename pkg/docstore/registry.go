package docstore

import (
	"context"
	"sync"
)

// watcher is one live subscription: either a collection query or a single
// document path.
type watcher struct {
	query   Query
	docPath string
	ch      chan []Document

	// loading serializes read-then-deliver so snapshots arrive in the order
	// they were read.
	loading sync.Mutex
}

func (w *watcher) matches(docPath, collection string) bool {
	if w.docPath != "" {
		return w.docPath == docPath
	}
	return w.query.Collection == collection
}

type registry struct {
	mu       sync.Mutex
	watchers map[*watcher]struct{}
}

func newRegistry() *registry {
	return &registry{watchers: make(map[*watcher]struct{})}
}

// open registers w and returns its subscription. Teardown runs when ctx
// ends or Close is called.
func (r *registry) open(ctx context.Context, w *watcher) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	w.ch = make(chan []Document, 1)

	r.mu.Lock()
	r.watchers[w] = struct{}{}
	r.mu.Unlock()

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		delete(r.watchers, w)
		close(w.ch)
		r.mu.Unlock()
	}()

	return &Subscription{C: w.ch, cancel: cancel}
}

func (r *registry) matching(docPath, collection string) []*watcher {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*watcher
	for w := range r.watchers {
		if w.matches(docPath, collection) {
			out = append(out, w)
		}
	}
	return out
}

// reload reads a fresh snapshot for w and delivers it. A read that started
// later is never overtaken by an older one.
func (r *registry) reload(w *watcher, read func() ([]Document, error)) error {
	w.loading.Lock()
	defer w.loading.Unlock()
	docs, err := read()
	if err != nil {
		return err
	}
	r.deliver(w, docs)
	return nil
}

// deliver hands a snapshot to w unless it was closed meanwhile. An
// undelivered older snapshot is replaced: snapshots are whole, so only the
// newest matters.
func (r *registry) deliver(w *watcher, docs []Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.watchers[w]; !ok {
		return
	}
	select {
	case w.ch <- docs:
		return
	default:
	}
	select {
	case <-w.ch:
	default:
	}
	select {
	case w.ch <- docs:
	default:
	}
}
