package broker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cymbal-assist-be/pkg/catalog"
)

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}

func TestReplayLateSubscriberGetsLatest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := NewReplay[string]()
	r.Set("D1")
	r.Set("D2")

	ch := r.Subscribe(ctx)
	assert.Equal(t, "D2", recv(t, ch))

	r.Set("D3")
	assert.Equal(t, "D3", recv(t, ch))
}

func TestReplayNoValueBeforeSet(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := NewReplay[bool]()
	_, ok := r.Get()
	assert.False(t, ok)

	ch := r.Subscribe(ctx)
	select {
	case <-ch:
		t.Fatal("unexpected value before first Set")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestReplaySlowSubscriberEndsOnLatest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := NewReplay[int]()
	ch := r.Subscribe(ctx)
	for i := 1; i <= 100; i++ {
		r.Set(i)
	}
	assert.Equal(t, 100, recv(t, ch))
}

func TestBrokerStateChannelsCoalesce(t *testing.T) {
	ps := NewPubSub(nil)
	defer ps.Close()
	b := New(ps, ps, "s1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := b.Loading.Subscribe(ctx)

	b.Loading.Set(true)
	b.Loading.Set(false)
	b.Loading.Set(true)

	assert.True(t, recv(t, ch))
	select {
	case v := <-ch:
		t.Fatalf("intermediate value %v was not coalesced", v)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestReplayUnsubscribeClosesChannel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewReplay[int]()
	ch := r.Subscribe(ctx)
	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	r.Set(1)
}

func TestEventOnlyActiveSubscribers(t *testing.T) {
	ps := NewPubSub(nil)
	defer ps.Close()
	b := New(ps, ps, "s1")

	require.NoError(t, b.AddToCart.Publish(catalog.Product{ID: "early", Title: "Early"}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := b.AddToCart.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, b.AddToCart.Publish(catalog.Product{ID: "p1", Title: "Sofa", Price: 1000}))
	require.NoError(t, b.AddToCart.Publish(catalog.Product{ID: "p2", Title: "Chair"}))

	got := recv(t, ch)
	assert.Equal(t, catalog.ProductID("p1"), got.ID)
	assert.Equal(t, catalog.Money(1000), got.Price)
	assert.Equal(t, catalog.ProductID("p2"), recv(t, ch).ID)
}

func TestEventTopicsAreIsolatedPerSession(t *testing.T) {
	ps := NewPubSub(nil)
	defer ps.Close()
	a := New(ps, ps, "a")
	b := New(ps, ps, "b")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	chB, err := b.AddToCart.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, a.AddToCart.Publish(catalog.Product{ID: "x", Title: "X"}))
	select {
	case v := <-chB:
		t.Fatalf("session b received %v", v)
	case <-time.After(50 * time.Millisecond):
	}
}
