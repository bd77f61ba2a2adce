package service

import (
	"context"
	"fmt"
	"strings"

	"cymbal-assist-be/internal/dto"
	"cymbal-assist-be/internal/pkg/logger"
	"cymbal-assist-be/pkg/conversation"
	"cymbal-assist-be/pkg/docstore"
	"cymbal-assist-be/pkg/gateway"
)

// suggestionWindow is how many of the customer's latest messages seed an
// auto-suggested knowledge query.
const suggestionWindow = 3

type AgentBackend interface {
	RephraseText(ctx context.Context, text string) (string, error)
	AutoSuggestQuery(ctx context.Context, input string) (string, error)
	ScheduleEvent(ctx context.Context, req gateway.ScheduleEventRequest) (gateway.ScheduleEventResponse, error)
	ClearConversations(ctx context.Context, userID string) error
	SearchManuals(ctx context.Context, req gateway.SearchRequest) (gateway.SearchResponse, error)
	SearchConversations(ctx context.Context, req gateway.SearchRequest) (gateway.SearchResponse, error)
	SearchReviews(ctx context.Context, req gateway.SearchRequest) (gateway.SearchResponse, error)
}

// IAgentChatService is the customer-service agent's desk: one open case per
// tab, driven through the "agent" conversation.
type IAgentChatService interface {
	WatchCases(ctx context.Context, agentID, sessionID, customerID string) error
	OpenCase(ctx context.Context, agentID, sessionID string, req *dto.OpenCaseRequest) (conversation.Snapshot, error)
	ScheduleMeeting(ctx context.Context, agentID, sessionID string, req *dto.ScheduleMeetingRequest) (conversation.Snapshot, error)
	AutoSuggest(ctx context.Context, agentID, sessionID string) (string, error)
	Rephrase(ctx context.Context, text string) (string, error)
	Clear(ctx context.Context, customerID string) error
	KnowledgeSearch(ctx context.Context, agentID string, req *dto.KnowledgeSearchRequest) (gateway.SearchResponse, error)
}

type agentChatService struct {
	backend       AgentBackend
	store         docstore.Store
	sessions      ISessionService
	conversations IConversationService
	factory       *conversationFactory
	delivery      FrameDelivery
	logger        logger.ILogger
}

func NewAgentChatService(
	backend AgentBackend,
	chat ConversationBackend,
	store docstore.Store,
	sessions ISessionService,
	conversations IConversationService,
	delivery FrameDelivery,
	language string,
	log logger.ILogger,
) IAgentChatService {
	return &agentChatService{
		backend:       backend,
		store:         store,
		sessions:      sessions,
		conversations: conversations,
		factory: &conversationFactory{
			backend:  chat,
			store:    store,
			delivery: delivery,
			language: language,
			logger:   log,
		},
		delivery: delivery,
		logger:   log,
	}
}

// WatchCases follows the customer's case history, newest first.
func (s *agentChatService) WatchCases(_ context.Context, agentID, sessionID, customerID string) error {
	sess, err := s.sessions.Get(agentID, sessionID)
	if err != nil {
		return err
	}
	return watchCollection[dto.CaseResponse](sess, s.store, s.delivery, s.logger, "cases", dto.FrameCases, docstore.Query{
		Collection: docstore.ConversationsCollection(customerID),
		OrderBy:    "timestamp",
		Desc:       true,
	})
}

// OpenCase joins an existing customer conversation as the agent, replacing
// whatever case the tab had open.
func (s *agentChatService) OpenCase(_ context.Context, agentID, sessionID string, req *dto.OpenCaseRequest) (conversation.Snapshot, error) {
	sess, err := s.sessions.Get(agentID, sessionID)
	if err != nil {
		return conversation.Snapshot{}, err
	}
	surface := &conversation.ChatSurface{
		Backend:   s.factory.backend,
		Store:     s.store,
		UserID:    req.CustomerID,
		Author:    conversation.Agent,
		Language:  s.factory.language,
		OnSummary: s.factory.summaryPusher(sess, AgentConversation),
	}
	o := sess.ReplaceConversation(AgentConversation, s.factory.build(sess, AgentConversation, surface, true))
	if err := o.Attach(req.ConversationID); err != nil {
		return o.Snapshot(), err
	}
	s.logger.Info("AGENT", "Case opened", map[string]interface{}{
		"session_id":      sessionID,
		"customer_id":     req.CustomerID,
		"conversation_id": req.ConversationID,
	})
	return o.Snapshot(), nil
}

// ScheduleMeeting books the call and posts its link into the open case.
func (s *agentChatService) ScheduleMeeting(ctx context.Context, agentID, sessionID string, req *dto.ScheduleMeetingRequest) (conversation.Snapshot, error) {
	sess, err := s.sessions.Get(agentID, sessionID)
	if err != nil {
		return conversation.Snapshot{}, err
	}
	if _, ok := sess.LookupConversation(AgentConversation); !ok {
		return conversation.Snapshot{}, errNoCase
	}

	res, err := s.backend.ScheduleEvent(ctx, gateway.ScheduleEventRequest{
		EventSummary: req.Summary,
		Attendees:    req.Attendees,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
	})
	if err != nil {
		return conversation.Snapshot{}, err
	}

	text := fmt.Sprintf("I scheduled a meeting for %s.", res.StartTimeISO)
	return s.conversations.Send(ctx, agentID, sessionID, AgentConversation, conversation.Query{
		Text:    text,
		Link:    res.ConferenceCallLink,
		IconURL: res.IconURL,
	}, false)
}

// AutoSuggest derives a knowledge query from the customer's latest messages
// in the open case.
func (s *agentChatService) AutoSuggest(ctx context.Context, agentID, sessionID string) (string, error) {
	snap, err := s.conversations.Snapshot(agentID, sessionID, AgentConversation)
	if err != nil {
		return "", err
	}
	var recent []string
	for i := len(snap.Messages) - 1; i >= 0 && len(recent) < suggestionWindow; i-- {
		if m := snap.Messages[i]; m.Author == conversation.User {
			recent = append([]string{m.Original}, recent...)
		}
	}
	if len(recent) == 0 {
		return "", nil
	}
	return s.backend.AutoSuggestQuery(ctx, strings.Join(recent, "\n"))
}

func (s *agentChatService) Rephrase(ctx context.Context, text string) (string, error) {
	return s.backend.RephraseText(ctx, text)
}

func (s *agentChatService) Clear(ctx context.Context, customerID string) error {
	return s.backend.ClearConversations(ctx, customerID)
}

func searchRequest(userID string, req *dto.KnowledgeSearchRequest) gateway.SearchRequest {
	return gateway.SearchRequest{
		Query:        req.Query,
		UserPseudoID: userID,
		CustomerID:   req.CustomerID,
		ProductID:    req.ProductID,
		Rating:       req.Rating,
		Status:       req.Status,
		Sentiment:    req.Sentiment,
		Category:     req.Category,
	}
}

func (s *agentChatService) KnowledgeSearch(ctx context.Context, agentID string, req *dto.KnowledgeSearchRequest) (gateway.SearchResponse, error) {
	sr := searchRequest(agentID, req)
	sr.AgentID = agentID
	switch req.Source {
	case "manuals":
		return s.backend.SearchManuals(ctx, sr)
	case "reviews":
		return s.backend.SearchReviews(ctx, sr)
	}
	return s.backend.SearchConversations(ctx, sr)
}
