package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func next(t *testing.T, sub *Subscription) []Document {
	t.Helper()
	select {
	case docs, ok := <-sub.C:
		require.True(t, ok, "subscription closed")
		return docs
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return nil
}

func ids(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func TestWatchMissingThenCreated(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	sub, err := s.Watch(ctx, SearchDoc("D1"))
	require.NoError(t, err)
	defer sub.Close()

	assert.Empty(t, next(t, sub))

	require.NoError(t, s.Set(ctx, SearchDoc("D1"), map[string]any{"conversation": []any{}}))
	docs := next(t, sub)
	require.Len(t, docs, 1)
	assert.Equal(t, "D1", docs[0].ID)
	assert.Equal(t, "website_search/D1", docs[0].Path)
}

func TestSubscribeOrderedSnapshots(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	col := MessagesCollection("u1", "c1")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Set(ctx, col+"/b", map[string]any{"timestamp": base.Add(2 * time.Second)}))
	require.NoError(t, s.Set(ctx, col+"/a", map[string]any{"timestamp": base.Add(time.Second)}))

	sub, err := s.Subscribe(ctx, Query{Collection: col, OrderBy: "timestamp"})
	require.NoError(t, err)
	defer sub.Close()
	assert.Equal(t, []string{"a", "b"}, ids(next(t, sub)))

	require.NoError(t, s.Set(ctx, col+"/c", map[string]any{"timestamp": base}))
	assert.Equal(t, []string{"c", "a", "b"}, ids(next(t, sub)))

	desc, err := s.Subscribe(ctx, Query{Collection: col, OrderBy: "timestamp", Desc: true})
	require.NoError(t, err)
	defer desc.Close()
	assert.Equal(t, []string{"b", "a", "c"}, ids(next(t, desc)))
}

func TestIndependentSubscribers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	a, err := s.Watch(ctx, RecommendationsDoc("R1"))
	require.NoError(t, err)
	b, err := s.Watch(ctx, RecommendationsDoc("R1"))
	require.NoError(t, err)
	next(t, a)
	next(t, b)

	a.Close()
	a.Close()

	require.NoError(t, s.Set(ctx, RecommendationsDoc("R1"), map[string]any{"recommendations": []any{"x"}}))
	assert.Len(t, next(t, b), 1)

	require.Eventually(t, func() bool {
		_, ok := <-a.C
		return !ok
	}, time.Second, 5*time.Millisecond)
	b.Close()
}

func TestSubscriptionEndsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewMemoryStore()
	sub, err := s.Subscribe(ctx, Query{Collection: ActivitiesCollection("u1")})
	require.NoError(t, err)
	next(t, sub)

	cancel()
	require.Eventually(t, func() bool {
		_, ok := <-sub.C
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestAddGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	id, err := s.Add(ctx, CreatorProducts("u1"), map[string]any{"title": "Lamp"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	doc, err := s.Get(ctx, CreatorProducts("u1")+"/"+id)
	require.NoError(t, err)
	assert.Equal(t, "Lamp", doc.Data["title"])

	require.NoError(t, s.Delete(ctx, CreatorProducts("u1")+"/"+id))
	_, err = s.Get(ctx, CreatorProducts("u1")+"/"+id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInvalidPaths(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Watch(ctx, "website_search")
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = s.Subscribe(ctx, Query{Collection: "website_search/D1"})
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = s.Add(ctx, "", nil)
	assert.ErrorIs(t, err, ErrInvalidPath)
}

type record struct {
	ID    string `json:"id" validate:"required"`
	Title string `json:"title" validate:"required"`
}

func TestDecode(t *testing.T) {
	good := Document{Path: "c/1", ID: "1", Data: map[string]any{"title": "Sofa"}}
	r, err := Decode[record](good)
	require.NoError(t, err)
	assert.Equal(t, record{ID: "1", Title: "Sofa"}, r)

	_, err = Decode[record](Document{Path: "c/2", ID: "2", Data: map[string]any{}})
	assert.ErrorIs(t, err, ErrInvalidRecord)

	_, err = Decode[record](Document{Path: "c/3", ID: "3", Data: map[string]any{"title": 5}})
	assert.ErrorIs(t, err, ErrInvalidRecord)

	all, err := DecodeAll[record]([]Document{good, {Path: "c/2", ID: "2"}})
	assert.ErrorIs(t, err, ErrInvalidRecord)
	assert.Len(t, all, 1)
}

func TestCompareValuesMixedTimestamps(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		a, b any
		want int
	}{
		{"time vs rfc3339", ts, ts.Add(time.Second).Format(time.RFC3339Nano), -1},
		{"seconds map", map[string]any{"seconds": float64(ts.Unix()), "nanoseconds": float64(0)}, ts, 0},
		{"numbers", float64(2), 1, 1},
		{"strings", "a", "b", -1},
		{"nil first", nil, "x", -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, compareValues(tc.a, tc.b))
		})
	}
}
