package entity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cymbal-assist-be/pkg/broker"
	"cymbal-assist-be/pkg/conversation"
	"cymbal-assist-be/pkg/docstore"
)

func newTestSession() *Session {
	ps := broker.NewPubSub(nil)
	return NewSession(context.Background(), "s1", "u1", broker.New(ps, ps, "s1"))
}

func newOrchestrator(ctx context.Context) *conversation.Orchestrator {
	return conversation.New(ctx, conversation.Options{})
}

func TestConversationIsCreatedOnce(t *testing.T) {
	s := newTestSession()
	defer s.Close()

	calls := 0
	create := func(ctx context.Context) *conversation.Orchestrator {
		calls++
		return newOrchestrator(ctx)
	}
	a := s.Conversation("search", create)
	b := s.Conversation("search", create)
	assert.Same(t, a, b)
	assert.Equal(t, 1, calls)

	c := s.ReplaceConversation("search", create)
	assert.NotSame(t, a, c)
	assert.Equal(t, conversation.Closed, a.State())
}

func TestCloseReleasesEverything(t *testing.T) {
	s := newTestSession()
	o := s.Conversation("search", newOrchestrator)

	store := docstore.NewMemoryStore()
	sub, err := store.Watch(context.Background(), docstore.SearchDoc("d1"))
	require.NoError(t, err)
	s.Watch("cases", sub)

	s.Close()
	s.Close()

	assert.Equal(t, conversation.Closed, o.State())
	assert.Error(t, s.Context().Err())
	for range sub.C {
	}

	late := s.Conversation("chat", newOrchestrator)
	assert.Equal(t, conversation.Closed, late.State())
	_, ok := s.LookupConversation("chat")
	assert.False(t, ok)
}
