package conversation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cymbal-assist-be/pkg/blob"
	"cymbal-assist-be/pkg/broker"
	"cymbal-assist-be/pkg/docstore"
	"cymbal-assist-be/pkg/gateway"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type fakeSearch struct {
	mu      sync.Mutex
	reqs    []gateway.InitiateSearchRequest
	rec     *recorder
	entered chan struct{}
	release chan struct{}
	err     error
	docID   string
}

func (f *fakeSearch) InitiateSearch(ctx context.Context, req gateway.InitiateSearchRequest) (gateway.InitiateSearchResponse, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.rec != nil {
		f.rec.add("search")
	}
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return gateway.InitiateSearchResponse{}, ctx.Err()
		}
	}
	if f.err != nil {
		return gateway.InitiateSearchResponse{}, f.err
	}
	id := req.SearchDocID
	if id == "" {
		id = f.docID
	}
	return gateway.InitiateSearchResponse{DocumentID: id}, nil
}

func (f *fakeSearch) requests() []gateway.InitiateSearchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]gateway.InitiateSearchRequest(nil), f.reqs...)
}

// countingStore records every subscription it hands out.
type countingStore struct {
	*docstore.MemoryStore
	mu   sync.Mutex
	subs []*docstore.Subscription
}

func (s *countingStore) Watch(ctx context.Context, docPath string) (*docstore.Subscription, error) {
	sub, err := s.MemoryStore.Watch(ctx, docPath)
	if err == nil {
		s.mu.Lock()
		s.subs = append(s.subs, sub)
		s.mu.Unlock()
	}
	return sub, err
}

func (s *countingStore) opened() []*docstore.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*docstore.Subscription(nil), s.subs...)
}

func closed(sub *docstore.Subscription) bool {
	for {
		select {
		case _, ok := <-sub.C:
			if !ok {
				return true
			}
		default:
			return false
		}
	}
}

type fakeBlob struct {
	rec *recorder
}

func (b *fakeBlob) Upload(_ context.Context, prefix, _ string, r io.Reader) (blob.Object, error) {
	_, _ = io.Copy(io.Discard, r)
	time.Sleep(20 * time.Millisecond)
	b.rec.add("upload")
	return blob.Object{Name: "img-1", Path: prefix + "/img-1"}, nil
}

func (b *fakeBlob) URL(_ context.Context, p string) (string, error) { return "/uploads/" + p, nil }

func writeThread(t *testing.T, s docstore.Store, docID string, items ...[2]string) {
	t.Helper()
	conv := make([]map[string]any, 0, len(items))
	for _, it := range items {
		conv = append(conv, map[string]any{"author": it[0], "message": it[1]})
	}
	require.NoError(t, s.Set(context.Background(), docstore.SearchDoc(docID), map[string]any{"conversation": conv}))
}

func texts(msgs []Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Text
	}
	return out
}

func newSearch(t *testing.T, backend *fakeSearch, opts Options) (*Orchestrator, *countingStore) {
	t.Helper()
	store := &countingStore{MemoryStore: docstore.NewMemoryStore()}
	opts.Surface = &SearchSurface{Backend: backend, Store: store, UserID: "u1"}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return New(ctx, opts), store
}

func TestSendFromIdleOpensSessionAndMergesAnswers(t *testing.T) {
	backend := &fakeSearch{docID: "D1"}
	o, store := newSearch(t, backend, Options{})

	require.NoError(t, o.Send(context.Background(), Query{Text: "green sofa"}))
	assert.Equal(t, Active, o.State())
	assert.Equal(t, "D1", o.DocumentID())

	writeThread(t, store, "D1", [2]string{"user", "green sofa"}, [2]string{"system", "Here are sofas"})
	require.Eventually(t, func() bool { return len(o.Messages()) == 2 }, time.Second, 5*time.Millisecond)

	msgs := o.Messages()
	assert.Equal(t, User, msgs[0].Author)
	assert.Equal(t, System, msgs[1].Author)
	assert.Equal(t, "Here are sofas", msgs[1].Text)

	require.NoError(t, o.Send(context.Background(), Query{Text: "cheaper?"}))
	reqs := backend.requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "", reqs[0].SearchDocID)
	assert.Equal(t, "D1", reqs[1].SearchDocID)
	assert.Len(t, store.opened(), 1)
}

// Redelivering any earlier or identical snapshot never adds messages.
func TestMergeIsIdempotentProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	thread := make([]Entry, 10)
	for i := range thread {
		a := User
		if i%2 == 1 {
			a = System
		}
		thread[i] = Entry{ID: fmt.Sprintf("D#%d", i), Author: a, Text: fmt.Sprint(i)}
	}

	properties.Property("rendered = longest snapshot minus the pending local echoes", prop.ForAll(
		func(lengths []int, pending int) bool {
			o := New(context.Background(), Options{Surface: &SearchSurface{}})
			o.echoes = pending
			longest := 0
			for _, n := range lengths {
				o.merge(0, thread[:n])
				if n > longest {
					longest = n
				}
			}
			var want []string
			skip := pending
			for _, e := range thread[:longest] {
				if e.Author == User && skip > 0 {
					skip--
					continue
				}
				want = append(want, e.ID)
			}
			got := o.Messages()
			if len(got) != len(want) {
				return false
			}
			for i := range got {
				if got[i].ID != want[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, len(thread))),
		gen.IntRange(0, 3),
	))

	properties.TestingRun(t)
}

func TestSameSnapshotTwiceRendersOnce(t *testing.T) {
	backend := &fakeSearch{docID: "D1"}
	o, store := newSearch(t, backend, Options{})
	require.NoError(t, o.Send(context.Background(), Query{Text: "lamp"}))

	writeThread(t, store, "D1", [2]string{"user", "lamp"}, [2]string{"system", "Lamps!"})
	require.Eventually(t, func() bool { return len(o.Messages()) == 2 }, time.Second, 5*time.Millisecond)
	for i := 0; i < 3; i++ {
		writeThread(t, store, "D1", [2]string{"user", "lamp"}, [2]string{"system", "Lamps!"})
	}
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, []string{"lamp", "Lamps!"}, texts(o.Messages()))
}

func TestRapidFollowUpsFromIdleOpenOneSession(t *testing.T) {
	backend := &fakeSearch{docID: "D1", entered: make(chan struct{}, 4), release: make(chan struct{})}
	o, store := newSearch(t, backend, Options{})

	errc := make(chan error, 1)
	go func() { errc <- o.Send(context.Background(), Query{Text: "first"}) }()
	<-backend.entered

	assert.ErrorIs(t, o.Send(context.Background(), Query{Text: "second"}), ErrRequestInFlight)
	assert.Equal(t, Initiating, o.State())

	close(backend.release)
	require.NoError(t, <-errc)

	assert.Len(t, backend.requests(), 1)
	subs := store.opened()
	require.Len(t, subs, 1)
	assert.False(t, closed(subs[0]))
	assert.Equal(t, []string{"first"}, texts(o.Messages()))
}

func TestImageQueryUploadsBeforeSearchAndPreviewsImmediately(t *testing.T) {
	rec := &recorder{}
	backend := &fakeSearch{docID: "D1", rec: rec, entered: make(chan struct{}, 1), release: make(chan struct{})}
	o, _ := newSearch(t, backend, Options{Blob: &fakeBlob{rec: rec}})

	errc := make(chan error, 1)
	go func() {
		errc <- o.Send(context.Background(), Query{
			Text:  "what is this chair?",
			Image: &Attachment{ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}},
		})
	}()

	require.Eventually(t, func() bool { return len(o.Messages()) == 1 }, time.Second, time.Millisecond)
	msg := o.Messages()[0]
	assert.True(t, strings.HasPrefix(msg.ImageURL, "data:image/png;base64,"))
	assert.Empty(t, backend.requests())

	<-backend.entered
	close(backend.release)
	require.NoError(t, <-errc)

	assert.Equal(t, []string{"upload", "search"}, rec.list())
	assert.Equal(t, "img-1", backend.requests()[0].Image)
}

func TestImageQueryWithoutStorageIsRejected(t *testing.T) {
	o, _ := newSearch(t, &fakeSearch{docID: "D1"}, Options{})
	err := o.Send(context.Background(), Query{Image: &Attachment{Data: []byte("x")}})
	assert.ErrorIs(t, err, ErrNoImageStorage)
	assert.Equal(t, Idle, o.State())
}

func TestFailedInitiationStaysInitiating(t *testing.T) {
	ps := broker.NewPubSub(nil)
	defer ps.Close()
	b := broker.New(ps, ps, "s1")

	backend := &fakeSearch{err: &gateway.BackendError{Op: "initiate-search", Status: 500, Err: errors.New("boom")}}
	o, store := newSearch(t, backend, Options{Broker: b})

	err := o.Send(context.Background(), Query{Text: "sofa"})
	assert.ErrorIs(t, err, gateway.ErrBackend)
	assert.Equal(t, Initiating, o.State())
	loading, _ := b.Loading.Get()
	assert.False(t, loading)
	assert.Empty(t, store.opened())

	backend.err = nil
	backend.docID = "D2"
	require.NoError(t, o.Send(context.Background(), Query{Text: "sofa"}))
	assert.Equal(t, Active, o.State())
	id, _ := b.ActiveDocumentID.Get()
	assert.Equal(t, "D2", id)
	assert.Equal(t, []string{"sofa"}, texts(o.Messages()))
}

func TestInitiationTimeoutReturnsToIdle(t *testing.T) {
	backend := &fakeSearch{docID: "D1", release: make(chan struct{})}
	o, _ := newSearch(t, backend, Options{InitiationTimeout: 20 * time.Millisecond})

	err := o.Send(context.Background(), Query{Text: "sofa"})
	assert.ErrorIs(t, err, ErrInitiationTimeout)
	assert.Equal(t, Idle, o.State())
}

func TestAttachReplacesPreviousSubscription(t *testing.T) {
	o, store := newSearch(t, &fakeSearch{}, Options{})

	require.NoError(t, o.Attach("D1"))
	require.NoError(t, o.Attach("D1"))

	subs := store.opened()
	require.Len(t, subs, 2)
	require.Eventually(t, func() bool { return closed(subs[0]) }, time.Second, 5*time.Millisecond)
	assert.False(t, closed(subs[1]))
}

func TestRestartSupersedesSession(t *testing.T) {
	backend := &fakeSearch{docID: "D1"}
	o, store := newSearch(t, backend, Options{})
	require.NoError(t, o.Send(context.Background(), Query{Text: "sofa"}))

	backend.docID = "D2"
	require.NoError(t, o.Restart(context.Background(), Query{Text: "rug"}))
	assert.Equal(t, "D2", o.DocumentID())
	assert.Equal(t, []string{"rug"}, texts(o.Messages()))

	writeThread(t, store, "D1", [2]string{"user", "sofa"}, [2]string{"system", "stale"})
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, []string{"rug"}, texts(o.Messages()))
}

type gatedTranslator struct {
	mu      sync.Mutex
	calls   int
	gates   map[string]chan struct{}
	started chan string
}

func newGatedTranslator(inputs ...string) *gatedTranslator {
	g := &gatedTranslator{gates: map[string]chan struct{}{}, started: make(chan string, 16)}
	for _, in := range inputs {
		g.gates[in] = make(chan struct{})
	}
	return g
}

func (g *gatedTranslator) Translate(ctx context.Context, text, lang string) (string, error) {
	g.mu.Lock()
	g.calls++
	gate := g.gates[text]
	g.mu.Unlock()
	g.started <- text
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return lang + ":" + text, nil
}

func seedThread(o *Orchestrator, texts ...string) []Entry {
	entries := make([]Entry, len(texts))
	for i, s := range texts {
		entries[i] = Entry{ID: fmt.Sprintf("D#%d", i), Author: System, Text: s}
	}
	o.merge(o.gen, entries)
	return entries
}

func TestSetLanguageOutOfOrderResults(t *testing.T) {
	tr := newGatedTranslator("a", "b", "c")
	o := New(context.Background(), Options{Surface: &SearchSurface{}, Translator: tr, Language: "en"})
	seedThread(o, "a", "b", "c")

	done := make(chan error, 1)
	go func() { done <- o.SetLanguage(context.Background(), "es") }()
	for i := 0; i < 3; i++ {
		<-tr.started
	}

	close(tr.gates["c"])
	close(tr.gates["a"])
	close(tr.gates["b"])
	require.NoError(t, <-done)

	assert.Equal(t, 3, tr.calls)
	assert.Equal(t, []string{"es:a", "es:b", "es:c"}, texts(o.Messages()))
	for _, m := range o.Messages() {
		assert.Equal(t, "es", m.Language)
	}
}

func TestSetLanguageKeepsMessagesArrivingMidway(t *testing.T) {
	tr := newGatedTranslator("a", "b")
	o := New(context.Background(), Options{Surface: &SearchSurface{}, Translator: tr, Language: "en"})
	entries := seedThread(o, "a", "b")

	done := make(chan error, 1)
	go func() { done <- o.SetLanguage(context.Background(), "es") }()
	<-tr.started
	<-tr.started

	o.merge(o.gen, append(entries, Entry{ID: "D#2", Author: System, Text: "c"}))

	close(tr.gates["b"])
	close(tr.gates["a"])
	require.NoError(t, <-done)

	assert.Equal(t, []string{"es:a", "es:b", "c"}, texts(o.Messages()))
}

type failingTranslator struct{}

func (failingTranslator) Translate(context.Context, string, string) (string, error) {
	return "", errors.New("quota")
}

func TestSetLanguageJoinsFailures(t *testing.T) {
	o := New(context.Background(), Options{Surface: &SearchSurface{}, Translator: failingTranslator{}})
	seedThread(o, "a", "b")

	err := o.SetLanguage(context.Background(), "fr")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "D#0")
	assert.Contains(t, err.Error(), "D#1")
	assert.Equal(t, []string{"a", "b"}, texts(o.Messages()))
}

type fakeChat struct {
	mu       sync.Mutex
	sent     []gateway.ChatMessage
	convs    []string
	store    docstore.Store
	userID   string
	summary  gateway.SummaryResponse
	summoned int
}

func (f *fakeChat) AddMessage(ctx context.Context, userID, conversationID string, msg gateway.ChatMessage) (gateway.AddMessageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if conversationID == gateway.NewConversation {
		conversationID = fmt.Sprintf("C%d", len(f.convs)+1)
		f.convs = append(f.convs, conversationID)
	}
	f.sent = append(f.sent, msg)
	_, err := f.store.Add(ctx, docstore.MessagesCollection(userID, conversationID), map[string]any{
		"author":    msg.Author,
		"text":      msg.Text,
		"language":  msg.Language,
		"timestamp": time.Now().UTC(),
	})
	return gateway.AddMessageResponse{ConversationID: conversationID}, err
}

func (f *fakeChat) ConversationSummary(context.Context, string, string) (gateway.SummaryResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summoned++
	return f.summary, nil
}

func TestChatSkipsLocalEchoAndTranslatesIncoming(t *testing.T) {
	store := docstore.NewMemoryStore()
	backend := &fakeChat{store: store, summary: gateway.SummaryResponse{Title: "Delivery delay", Summary: "..."}}

	var got gateway.SummaryResponse
	surface := &ChatSurface{
		Backend:   backend,
		Store:     store,
		UserID:    "cust-1",
		Author:    Agent,
		OnSummary: func(s gateway.SummaryResponse) { got = s },
	}
	tr := newGatedTranslator()
	o := New(context.Background(), Options{Surface: surface, Translator: tr, TranslateIncoming: true, Language: "es"})

	require.NoError(t, o.Send(context.Background(), Query{Text: "Hello, how can I help?"}))
	assert.Equal(t, "C1", o.DocumentID())

	_, err := store.Add(context.Background(), docstore.MessagesCollection("cust-1", "C1"), map[string]any{
		"author":    "User",
		"text":      "My sofa is late",
		"timestamp": time.Now().UTC().Add(time.Second),
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		msgs := o.Messages()
		return len(msgs) == 2 && msgs[1].Text == "es:My sofa is late"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, Agent, o.Messages()[0].Author)

	require.NoError(t, o.Close(context.Background()))
	assert.Equal(t, Closed, o.State())
	assert.Empty(t, o.Messages())
	assert.Equal(t, "Delivery delay", got.Title)

	require.NoError(t, o.Send(context.Background(), Query{Text: "New case"}))
	assert.Equal(t, "C2", o.DocumentID())
}

func TestAttachRendersExistingHistoryOfLocalAuthor(t *testing.T) {
	store := docstore.NewMemoryStore()
	backend := &fakeChat{store: store}
	col := docstore.MessagesCollection("cust-1", "C9")
	base := time.Now().UTC().Add(-time.Minute)
	for i, m := range [][2]string{{"User", "My sofa is late"}, {"Agent", "Let me check"}, {"User", "Thanks"}} {
		_, err := store.Add(context.Background(), col, map[string]any{
			"author":    m[0],
			"text":      m[1],
			"timestamp": base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	surface := &ChatSurface{Backend: backend, Store: store, UserID: "cust-1", Author: Agent}
	o := New(context.Background(), Options{Surface: surface})
	require.NoError(t, o.Attach("C9"))

	require.Eventually(t, func() bool { return len(o.Messages()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"My sofa is late", "Let me check", "Thanks"}, texts(o.Messages()))
	assert.Equal(t, Agent, o.Messages()[1].Author)

	// The agent's own reply is rendered once: on send, not again from the store.
	require.NoError(t, o.Send(context.Background(), Query{Text: "It ships tomorrow"}))
	assert.Len(t, backend.sent, 1)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, []string{"My sofa is late", "Let me check", "Thanks", "It ships tomorrow"}, texts(o.Messages()))
}

func TestOnChangeSeesLoading(t *testing.T) {
	var (
		mu    sync.Mutex
		seen  []bool
		state []State
	)
	backend := &fakeSearch{docID: "D1"}
	o, _ := newSearch(t, backend, Options{OnChange: func(s Snapshot) {
		mu.Lock()
		seen = append(seen, s.Loading)
		state = append(state, s.State)
		mu.Unlock()
	}})

	require.NoError(t, o.Send(context.Background(), Query{Text: "x"}))
	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	assert.True(t, seen[0])
	assert.Equal(t, Initiating, state[0])
	assert.False(t, seen[len(seen)-1])
	assert.Equal(t, Active, state[len(state)-1])
}

func TestEmptyQueryRejected(t *testing.T) {
	o, _ := newSearch(t, &fakeSearch{}, Options{})
	assert.ErrorIs(t, o.Send(context.Background(), Query{Text: "  "}), ErrEmptyQuery)
}

func TestNormalizeAuthor(t *testing.T) {
	assert.Equal(t, User, NormalizeAuthor("user"))
	assert.Equal(t, System, NormalizeAuthor("system"))
	assert.Equal(t, Agent, NormalizeAuthor("AGENT"))
	assert.Equal(t, Author("bot"), NormalizeAuthor("bot"))
}
