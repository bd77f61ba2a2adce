// Package conversation runs one conversation per interaction surface: it
// allocates the backend document, follows it live, and keeps the rendered
// thread free of duplicates.
package conversation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"cymbal-assist-be/internal/pkg/logger"
	"cymbal-assist-be/pkg/blob"
	"cymbal-assist-be/pkg/broker"
	"cymbal-assist-be/pkg/docstore"
)

type Options struct {
	Surface Surface
	// Blob receives image attachments before the backend is called.
	Blob   blob.Storage
	Broker *broker.Broker
	// Translator is used by SetLanguage and, with TranslateIncoming, for
	// every message arriving from the store.
	Translator        Translator
	TranslateIncoming bool
	Language          string
	// InitiationTimeout bounds the wait for a document id. Zero waits for
	// as long as the caller's context allows.
	InitiationTimeout time.Duration
	// OnChange runs with the session locked after every change; it must not
	// call back into the Orchestrator.
	OnChange func(Snapshot)
	Logger   logger.ILogger
}

type Orchestrator struct {
	opts Options
	ctx  context.Context
	stop context.CancelFunc

	mu           sync.Mutex
	state        State
	docID        string
	messages     []Message
	lastRendered int
	echoes       int // optimistic sends whose store copy has not arrived
	sub          *docstore.Subscription
	gen          uint64
	inFlight     bool
	loading      bool
	lang         string
}

// New ties the orchestrator's subscriptions to ctx: when it ends, every live
// subscription is released.
func New(ctx context.Context, opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}
	ctx, stop := context.WithCancel(ctx)
	return &Orchestrator{
		opts:         opts,
		ctx:          ctx,
		stop:         stop,
		lastRendered: -1,
		lang:         opts.Language,
	}
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) DocumentID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.docID
}

func (o *Orchestrator) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Message, len(o.messages))
	copy(out, o.messages)
	return out
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	msgs := make([]Message, len(o.messages))
	copy(msgs, o.messages)
	return Snapshot{
		State:      o.state,
		DocumentID: o.docID,
		Language:   o.lang,
		Loading:    o.loading,
		Messages:   msgs,
	}
}

func (o *Orchestrator) changedLocked() {
	if o.opts.OnChange != nil {
		o.opts.OnChange(o.snapshotLocked())
	}
}

func (o *Orchestrator) setLoadingLocked(v bool) {
	o.loading = v
	if o.opts.Broker != nil {
		o.opts.Broker.Loading.Set(v)
	}
}

// Send posts a query. Without a document id (Idle, Closed, or an initiation
// that failed) it starts a new session; otherwise it is a follow-up on the
// current one. A second call while one is outstanding fails with
// ErrRequestInFlight.
func (o *Orchestrator) Send(ctx context.Context, q Query) error {
	return o.send(ctx, q, false)
}

// Restart supersedes the current session with a new one started by q.
func (o *Orchestrator) Restart(ctx context.Context, q Query) error {
	return o.send(ctx, q, true)
}

func (o *Orchestrator) send(ctx context.Context, q Query, fresh bool) error {
	if q.empty() {
		return ErrEmptyQuery
	}
	if q.Image != nil && o.opts.Blob == nil {
		return ErrNoImageStorage
	}

	o.mu.Lock()
	if o.inFlight {
		o.mu.Unlock()
		return ErrRequestInFlight
	}
	o.inFlight = true
	first := fresh || o.docID == "" || o.state == Closed
	if first {
		o.resetLocked()
		o.state = Initiating
	}
	gen := o.gen
	docID := o.docID
	msg := Message{
		ID:        uuid.NewString(),
		Author:    o.opts.Surface.LocalAuthor(),
		Text:      q.Text,
		Original:  q.Text,
		Language:  o.lang,
		Timestamp: time.Now(),
		Link:      q.Link,
		IconURL:   q.IconURL,
	}
	if q.Image != nil {
		msg.ImageURL = q.Image.preview()
	}
	o.messages = append(o.messages, msg)
	o.echoes++
	o.setLoadingLocked(true)
	o.changedLocked()
	o.mu.Unlock()

	err := o.dispatch(ctx, q, first, gen, docID)

	o.mu.Lock()
	o.inFlight = false
	if err != nil && o.gen == gen && o.echoes > 0 {
		o.echoes--
	}
	o.setLoadingLocked(false)
	o.changedLocked()
	o.mu.Unlock()

	if err != nil {
		o.opts.Logger.Error("CONVERSATION", "Send failed", map[string]interface{}{
			"document_id": docID,
			"first":       first,
			"error":       err.Error(),
		})
	}
	return err
}

func (o *Orchestrator) dispatch(ctx context.Context, q Query, first bool, gen uint64, docID string) error {
	var image string
	if q.Image != nil {
		obj, err := o.opts.Blob.Upload(ctx, blob.ImagesPrefix, q.Image.ContentType, bytes.NewReader(q.Image.Data))
		if err != nil {
			return fmt.Errorf("upload image: %w", err)
		}
		image = obj.Name
	}

	if !first {
		return o.opts.Surface.FollowUp(ctx, docID, q, image)
	}

	startCtx := ctx
	if o.opts.InitiationTimeout > 0 {
		var cancel context.CancelFunc
		startCtx, cancel = context.WithTimeout(ctx, o.opts.InitiationTimeout)
		defer cancel()
	}
	id, err := o.opts.Surface.Start(startCtx, q, image)
	if err != nil {
		if ctx.Err() == nil && errors.Is(startCtx.Err(), context.DeadlineExceeded) {
			o.mu.Lock()
			if o.gen == gen {
				o.state = Idle
			}
			o.mu.Unlock()
			return ErrInitiationTimeout
		}
		return err
	}
	return o.attach(id, gen)
}

// Attach joins an existing document (an agent opening a case) as a new
// session.
func (o *Orchestrator) Attach(docID string) error {
	o.mu.Lock()
	if o.inFlight {
		o.mu.Unlock()
		return ErrRequestInFlight
	}
	o.resetLocked()
	o.state = Initiating
	gen := o.gen
	o.mu.Unlock()
	return o.attach(docID, gen)
}

// attach replaces any live subscription with one on docID. Nothing happens
// when the session it was started for has since been closed or superseded.
func (o *Orchestrator) attach(docID string, gen uint64) error {
	sub, err := o.opts.Surface.Watch(o.ctx, docID)
	if err != nil {
		return fmt.Errorf("watch %s: %w", docID, err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gen != gen {
		sub.Close()
		return nil
	}
	if o.sub != nil {
		o.sub.Close()
	}
	o.sub = sub
	o.docID = docID
	o.state = Active
	if o.opts.Broker != nil {
		o.opts.Broker.ActiveDocumentID.Set(docID)
	}
	o.changedLocked()

	go o.consume(sub, gen, docID)
	return nil
}

func (o *Orchestrator) consume(sub *docstore.Subscription, gen uint64, docID string) {
	for docs := range sub.C {
		entries, err := o.opts.Surface.Entries(docID, docs)
		if err != nil {
			o.opts.Logger.Warn("CONVERSATION", "Rejected malformed thread entries", map[string]interface{}{
				"document_id": docID,
				"error":       err.Error(),
			})
		}
		o.merge(gen, entries)
	}
}

// merge appends the entries past the last rendered index. A local-author
// entry is skipped only while it can be the store copy of a message this
// session already rendered on send; history written before the session
// attached is rendered in full. Delivering the same snapshot again changes
// nothing.
func (o *Orchestrator) merge(gen uint64, entries []Entry) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gen != gen || len(entries)-1 <= o.lastRendered {
		return
	}
	fresh := entries[o.lastRendered+1:]
	o.lastRendered = len(entries) - 1

	local := o.opts.Surface.LocalAuthor()
	var added []Message
	for _, e := range fresh {
		if e.Author == local && o.echoes > 0 {
			o.echoes--
			continue
		}
		ts := e.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		m := Message{
			ID:        e.ID,
			Author:    e.Author,
			Text:      e.Text,
			Original:  e.Text,
			Language:  e.Language,
			Timestamp: ts,
			Link:      e.Link,
			IconURL:   e.IconURL,
		}
		o.messages = append(o.messages, m)
		added = append(added, m)
	}
	if len(added) == 0 {
		return
	}
	o.changedLocked()

	if o.opts.TranslateIncoming && o.opts.Translator != nil && o.lang != "" {
		lang := o.lang
		for _, m := range added {
			go o.translateOne(o.ctx, gen, m.ID, m.Original, lang)
		}
	}
}

func (o *Orchestrator) translateOne(ctx context.Context, gen uint64, id, text, lang string) error {
	out, err := o.opts.Translator.Translate(ctx, text, lang)
	if err != nil {
		o.opts.Logger.Warn("CONVERSATION", "Translation failed", map[string]interface{}{
			"message_id": id,
			"language":   lang,
			"error":      err.Error(),
		})
		return fmt.Errorf("translate %s: %w", id, err)
	}
	o.applyTranslation(gen, id, lang, out)
	return nil
}

// applyTranslation writes a result onto the message with the given id. A
// result for a language that is no longer selected is dropped.
func (o *Orchestrator) applyTranslation(gen uint64, id, lang, text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gen != gen || o.lang != lang {
		return
	}
	for i := range o.messages {
		if o.messages[i].ID == id {
			o.messages[i].Text = text
			o.messages[i].Language = lang
			o.changedLocked()
			return
		}
	}
}

// SetLanguage re-translates every buffered message into lang, one call per
// message, and returns once all calls have finished. Results are applied by
// message id, so messages arriving meanwhile keep their own text.
func (o *Orchestrator) SetLanguage(ctx context.Context, lang string) error {
	if o.opts.Translator == nil {
		return ErrNoTranslator
	}

	o.mu.Lock()
	o.lang = lang
	gen := o.gen
	pending := make([]Message, len(o.messages))
	copy(pending, o.messages)
	o.changedLocked()
	o.mu.Unlock()

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, m := range pending {
		g.Go(func() error {
			if err := o.translateOne(ctx, gen, m.ID, m.Original, lang); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Close ends the session: the subscription is released, the thread cleared
// and the surface's end hook (if any) runs.
func (o *Orchestrator) Close(ctx context.Context) error {
	o.mu.Lock()
	if o.state == Idle || o.state == Closed {
		o.mu.Unlock()
		return nil
	}
	docID := o.docID
	o.resetLocked()
	o.state = Closed
	o.changedLocked()
	o.mu.Unlock()

	if ender, ok := o.opts.Surface.(Ender); ok && docID != "" {
		if err := ender.End(ctx, docID); err != nil {
			return fmt.Errorf("end session %s: %w", docID, err)
		}
	}
	return nil
}

// Shutdown releases everything for good. Used when the owning session is
// evicted.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	o.resetLocked()
	o.state = Closed
	o.mu.Unlock()
	o.stop()
}

// resetLocked drops the current session: subscription, document id and
// thread. Anything still in flight for it is ignored when it lands.
func (o *Orchestrator) resetLocked() {
	if o.sub != nil {
		o.sub.Close()
		o.sub = nil
	}
	o.gen++
	o.docID = ""
	o.messages = nil
	o.lastRendered = -1
	o.echoes = 0
}
