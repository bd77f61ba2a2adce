package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReloadKeepsReadOrder(t *testing.T) {
	reg := newRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := &watcher{docPath: "orders/o1"}
	sub := reg.open(ctx, w)

	stale := []Document{{Path: "orders/o1", ID: "o1", Data: map[string]any{"v": 1}}}
	fresh := []Document{{Path: "orders/o1", ID: "o1", Data: map[string]any{"v": 2}}}

	// The initial read is slow; a change lands while it is still running.
	entered := make(chan struct{})
	release := make(chan struct{})
	initial := make(chan error, 1)
	go func() {
		initial <- reg.reload(w, func() ([]Document, error) {
			close(entered)
			<-release
			return stale, nil
		})
	}()
	<-entered

	refreshed := make(chan error, 1)
	go func() {
		refreshed <- reg.reload(w, func() ([]Document, error) { return fresh, nil })
	}()
	select {
	case <-refreshed:
		t.Fatal("refresh delivered before the initial snapshot")
	case <-time.After(30 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-initial)
	require.NoError(t, <-refreshed)

	assert.Equal(t, 2, next(t, sub)[0].Data["v"])
	select {
	case docs := <-sub.C:
		t.Fatalf("unexpected extra snapshot %v", docs)
	default:
	}
}

func TestReloadErrorDeliversNothing(t *testing.T) {
	reg := newRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := &watcher{query: Query{Collection: "orders"}}
	sub := reg.open(ctx, w)

	err := reg.reload(w, func() ([]Document, error) { return nil, ErrNotFound })
	assert.ErrorIs(t, err, ErrNotFound)
	select {
	case <-sub.C:
		t.Fatal("snapshot delivered after a failed read")
	default:
	}
}
