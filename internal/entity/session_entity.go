package entity

import (
	"context"
	"sync"
	"time"

	"cymbal-assist-be/pkg/broker"
	"cymbal-assist-be/pkg/conversation"
	"cymbal-assist-be/pkg/docstore"
	"cymbal-assist-be/pkg/recommend"
)

// Session is one browser tab: its broker, the conversations it runs and the
// recommendation pages it shows. Everything it owns ends with Close.
type Session struct {
	ID        string
	UserID    string
	Broker    *broker.Broker
	CreatedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	closed        bool
	conversations map[string]*conversation.Orchestrator
	pages         map[string]*recommend.Page
	watches       map[string]*docstore.Subscription
}

func NewSession(parent context.Context, id, userID string, b *broker.Broker) *Session {
	ctx, cancel := context.WithCancel(parent)
	return &Session{
		ID:            id,
		UserID:        userID,
		Broker:        b,
		CreatedAt:     time.Now(),
		ctx:           ctx,
		cancel:        cancel,
		conversations: make(map[string]*conversation.Orchestrator),
		pages:         make(map[string]*recommend.Page),
		watches:       make(map[string]*docstore.Subscription),
	}
}

// Context ends when the session is closed.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Conversation returns the orchestrator registered under key, creating it
// on first use.
func (s *Session) Conversation(key string, create func(ctx context.Context) *conversation.Orchestrator) *conversation.Orchestrator {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.conversations[key]; ok {
		return o
	}
	o := create(s.ctx)
	if s.closed {
		o.Shutdown()
		return o
	}
	s.conversations[key] = o
	return o
}

// ReplaceConversation shuts down the orchestrator under key, if any, and
// registers a new one.
func (s *Session) ReplaceConversation(key string, create func(ctx context.Context) *conversation.Orchestrator) *conversation.Orchestrator {
	s.mu.Lock()
	old := s.conversations[key]
	delete(s.conversations, key)
	s.mu.Unlock()
	if old != nil {
		old.Shutdown()
	}
	return s.Conversation(key, create)
}

func (s *Session) LookupConversation(key string) (*conversation.Orchestrator, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.conversations[key]
	return o, ok
}

func (s *Session) Page(key string, create func(ctx context.Context) *recommend.Page) *recommend.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pages[key]; ok {
		return p
	}
	p := create(s.ctx)
	if s.closed {
		p.Close()
		return p
	}
	s.pages[key] = p
	return p
}

func (s *Session) LookupPage(key string) (*recommend.Page, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pages[key]
	return p, ok
}

// Watch keeps sub as the live subscription under key, closing the one it
// replaces.
func (s *Session) Watch(key string, sub *docstore.Subscription) {
	s.mu.Lock()
	old := s.watches[key]
	if s.closed {
		s.mu.Unlock()
		sub.Close()
		return
	}
	s.watches[key] = sub
	s.mu.Unlock()
	if old != nil {
		old.Close()
	}
}

// Close shuts every conversation down and abandons pending slots. Safe to
// call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	convs := s.conversations
	pages := s.pages
	watches := s.watches
	s.conversations = map[string]*conversation.Orchestrator{}
	s.pages = map[string]*recommend.Page{}
	s.watches = map[string]*docstore.Subscription{}
	s.mu.Unlock()

	for _, w := range watches {
		w.Close()
	}
	for _, o := range convs {
		o.Shutdown()
	}
	for _, p := range pages {
		p.Close()
	}
	s.cancel()
}
