package service

import (
	"context"
	"time"

	"cymbal-assist-be/internal/dto"
	"cymbal-assist-be/internal/entity"
	"cymbal-assist-be/internal/pkg/logger"
	"cymbal-assist-be/pkg/blob"
	"cymbal-assist-be/pkg/conversation"
	"cymbal-assist-be/pkg/docstore"
	"cymbal-assist-be/pkg/events"
	"cymbal-assist-be/pkg/gateway"

	"github.com/gofiber/fiber/v2"
)

// Conversation keys, one orchestrator each per session.
const (
	SearchConversation  = "search"
	SupportConversation = "support"
	AgentConversation   = "agent"
	FieldQAConversation = "field-qa"
)

var errNoCase = fiber.NewError(fiber.StatusConflict, "no case is open")

// ConversationBackend is what the conversation surfaces need from the
// gateway.
type ConversationBackend interface {
	conversation.SearchBackend
	conversation.ChatBackend
	conversation.ImageQABackend
	conversation.Translator
}

// conversationFactory builds the orchestrators of a session. Every change is
// pushed to the session's user as a conversation frame.
type conversationFactory struct {
	backend           ConversationBackend
	store             docstore.Store
	blob              blob.Storage
	delivery          FrameDelivery
	language          string
	initiationTimeout time.Duration
	logger            logger.ILogger
}

func (f *conversationFactory) build(sess *entity.Session, key string, surface conversation.Surface, translateIncoming bool) func(ctx context.Context) *conversation.Orchestrator {
	return func(ctx context.Context) *conversation.Orchestrator {
		return conversation.New(ctx, conversation.Options{
			Surface:           surface,
			Blob:              f.blob,
			Broker:            sess.Broker,
			Translator:        f.backend,
			TranslateIncoming: translateIncoming,
			Language:          f.language,
			InitiationTimeout: f.initiationTimeout,
			OnChange: func(snap conversation.Snapshot) {
				f.delivery.Push(sess.UserID, dto.Frame{Type: dto.FrameConversation, SessionID: sess.ID, Key: key, Data: snap})
			},
			Logger: f.logger,
		})
	}
}

func (f *conversationFactory) summaryPusher(sess *entity.Session, key string) func(gateway.SummaryResponse) {
	return func(res gateway.SummaryResponse) {
		f.delivery.Push(sess.UserID, dto.Frame{Type: dto.FrameSummary, SessionID: sess.ID, Key: key, Data: res})
	}
}

// surface returns the surface of a conversation the tab may start on its
// own. The agent thread is only opened through a case.
func (f *conversationFactory) surface(sess *entity.Session, key string) (conversation.Surface, bool, error) {
	switch key {
	case SearchConversation:
		return &conversation.SearchSurface{Backend: f.backend, Store: f.store, UserID: sess.UserID}, false, nil
	case SupportConversation:
		return &conversation.ChatSurface{
			Backend:   f.backend,
			Store:     f.store,
			UserID:    sess.UserID,
			Author:    conversation.User,
			Language:  f.language,
			OnSummary: f.summaryPusher(sess, key),
		}, true, nil
	case FieldQAConversation:
		return &conversation.FieldQASurface{Backend: f.backend, Store: f.store, UserID: sess.UserID}, false, nil
	case AgentConversation:
		return nil, false, errNoCase
	}
	return nil, false, fiber.NewError(fiber.StatusNotFound, "unknown conversation "+key)
}

func (f *conversationFactory) conversation(sess *entity.Session, key string) (*conversation.Orchestrator, error) {
	if o, ok := sess.LookupConversation(key); ok {
		return o, nil
	}
	surface, translate, err := f.surface(sess, key)
	if err != nil {
		return nil, err
	}
	return sess.Conversation(key, f.build(sess, key, surface, translate)), nil
}

type IConversationService interface {
	Send(ctx context.Context, userID, sessionID, key string, q conversation.Query, restart bool) (conversation.Snapshot, error)
	Snapshot(userID, sessionID, key string) (conversation.Snapshot, error)
	SetLanguage(ctx context.Context, userID, sessionID, key, lang string) (conversation.Snapshot, error)
	End(ctx context.Context, userID, sessionID, key string) error
}

type conversationService struct {
	sessions  ISessionService
	factory   *conversationFactory
	analytics IAnalyticsService
}

func NewConversationService(
	sessions ISessionService,
	backend ConversationBackend,
	store docstore.Store,
	storage blob.Storage,
	delivery FrameDelivery,
	language string,
	initiationTimeout time.Duration,
	analytics IAnalyticsService,
	log logger.ILogger,
) IConversationService {
	return &conversationService{
		sessions: sessions,
		factory: &conversationFactory{
			backend:           backend,
			store:             store,
			blob:              storage,
			delivery:          delivery,
			language:          language,
			initiationTimeout: initiationTimeout,
			logger:            log,
		},
		analytics: analytics,
	}
}

func (s *conversationService) Send(ctx context.Context, userID, sessionID, key string, q conversation.Query, restart bool) (conversation.Snapshot, error) {
	sess, err := s.sessions.Get(userID, sessionID)
	if err != nil {
		return conversation.Snapshot{}, err
	}
	o, err := s.factory.conversation(sess, key)
	if err != nil {
		return conversation.Snapshot{}, err
	}

	if restart {
		err = o.Restart(ctx, q)
	} else {
		err = o.Send(ctx, q)
	}
	if err != nil {
		return o.Snapshot(), err
	}

	if key == SearchConversation {
		s.analytics.LogEvent(ctx, events.SearchQuery, userID, sessionID, map[string]interface{}{
			"search_term": q.Text,
			"with_image":  q.Image != nil,
		})
	}
	return o.Snapshot(), nil
}

func (s *conversationService) Snapshot(userID, sessionID, key string) (conversation.Snapshot, error) {
	sess, err := s.sessions.Get(userID, sessionID)
	if err != nil {
		return conversation.Snapshot{}, err
	}
	o, ok := sess.LookupConversation(key)
	if !ok {
		return conversation.Snapshot{State: conversation.Idle, Messages: []conversation.Message{}}, nil
	}
	return o.Snapshot(), nil
}

func (s *conversationService) SetLanguage(ctx context.Context, userID, sessionID, key, lang string) (conversation.Snapshot, error) {
	sess, err := s.sessions.Get(userID, sessionID)
	if err != nil {
		return conversation.Snapshot{}, err
	}
	o, err := s.factory.conversation(sess, key)
	if err != nil {
		return conversation.Snapshot{}, err
	}
	err = o.SetLanguage(ctx, lang)
	return o.Snapshot(), err
}

// End closes the conversation's backend session. The orchestrator stays
// registered so the next query starts a fresh one.
func (s *conversationService) End(ctx context.Context, userID, sessionID, key string) error {
	sess, err := s.sessions.Get(userID, sessionID)
	if err != nil {
		return err
	}
	o, ok := sess.LookupConversation(key)
	if !ok {
		return nil
	}
	docID := o.DocumentID()
	if err := o.Close(ctx); err != nil {
		return err
	}
	if docID != "" {
		s.analytics.LogEvent(ctx, events.ConversationEnded, userID, sessionID, map[string]interface{}{
			"conversation": key,
			"document_id":  docID,
		})
	}
	return nil
}
