package service

import (
	"context"
	"time"

	"cymbal-assist-be/internal/dto"
	"cymbal-assist-be/internal/pkg/logger"
	"cymbal-assist-be/pkg/catalog"
	"cymbal-assist-be/pkg/docstore"
	"cymbal-assist-be/pkg/events"
	"cymbal-assist-be/pkg/gateway"
	"cymbal-assist-be/pkg/workflow"
)

type FieldBackend interface {
	AddAgentActivity(ctx context.Context, userID string, a catalog.AgentActivity) error
	PutAgentActivity(ctx context.Context, userID string, a catalog.AgentActivity) error
	DeleteAgentActivity(ctx context.Context, userID, activityID string) error
	GenerateAgentActivity(ctx context.Context, req gateway.GenerateActivityRequest) error
	ScheduleVisit(ctx context.Context, attendees []string, start string) (gateway.ScheduleEventResponse, error)
	FieldSearchManuals(ctx context.Context, req gateway.SearchRequest) (gateway.SearchResponse, error)
	CustomerInfo(ctx context.Context, p gateway.Persona, customerID string) (gateway.CustomerInfo, error)
	GenerateConversationsInsights(ctx context.Context, p gateway.Persona, conversations []map[string]any) (gateway.InsightsResponse, error)
}

type IFieldAgentService interface {
	WatchActivities(ctx context.Context, userID, sessionID string) error
	AddActivity(ctx context.Context, userID string, req *dto.ActivityRequest) error
	SetActivityStatus(ctx context.Context, userID, sessionID, activityID string, req *dto.ActivityStatusRequest) (catalog.AgentActivity, error)
	DeleteActivity(ctx context.Context, userID, activityID string) error
	GenerateActivity(ctx context.Context, userID string, req *dto.GenerateActivityRequest) error
	CustomerInfo(ctx context.Context, customerID string) (gateway.CustomerInfo, error)
	Insights(ctx context.Context, conversations []map[string]any) (gateway.InsightsResponse, error)
	ScheduleVisit(ctx context.Context, req *dto.ScheduleVisitRequest) (gateway.ScheduleEventResponse, error)
	SearchManuals(ctx context.Context, userID, query string) (gateway.SearchResponse, error)
}

type fieldAgentService struct {
	backend   FieldBackend
	store     docstore.Store
	sessions  ISessionService
	delivery  FrameDelivery
	analytics IAnalyticsService
	logger    logger.ILogger
}

func NewFieldAgentService(
	backend FieldBackend,
	store docstore.Store,
	sessions ISessionService,
	delivery FrameDelivery,
	analytics IAnalyticsService,
	log logger.ILogger,
) IFieldAgentService {
	return &fieldAgentService{
		backend:   backend,
		store:     store,
		sessions:  sessions,
		delivery:  delivery,
		analytics: analytics,
		logger:    log,
	}
}

// WatchActivities follows the agent's activity list, newest first.
func (s *fieldAgentService) WatchActivities(_ context.Context, userID, sessionID string) error {
	sess, err := s.sessions.Get(userID, sessionID)
	if err != nil {
		return err
	}
	return watchCollection[catalog.AgentActivity](sess, s.store, s.delivery, s.logger, "activities", dto.FrameActivities, docstore.Query{
		Collection: docstore.ActivitiesCollection(userID),
		OrderBy:    "timestamp",
		Desc:       true,
	})
}

func (s *fieldAgentService) AddActivity(ctx context.Context, userID string, req *dto.ActivityRequest) error {
	return s.backend.AddAgentActivity(ctx, userID, catalog.AgentActivity{
		Title:       req.Title,
		Description: req.Description,
		CustomerID:  req.CustomerID,
		Status:      string(workflow.ActivityOpen),
		Timestamp:   catalog.NewInstant(time.Now()),
	})
}

// SetActivityStatus moves an activity along Open -> In progress -> Completed
// and writes it back whole.
func (s *fieldAgentService) SetActivityStatus(ctx context.Context, userID, sessionID, activityID string, req *dto.ActivityStatusRequest) (catalog.AgentActivity, error) {
	doc, err := s.store.Get(ctx, docstore.ActivitiesCollection(userID)+"/"+activityID)
	if err != nil {
		return catalog.AgentActivity{}, err
	}
	current, err := docstore.Decode[catalog.AgentActivity](doc)
	if err != nil {
		return catalog.AgentActivity{}, err
	}
	next, err := workflow.AdvanceActivity(current, workflow.ActivityStatus(req.Status))
	if err != nil {
		return current, err
	}
	if err := s.backend.PutAgentActivity(ctx, userID, next); err != nil {
		return current, err
	}

	s.analytics.LogEvent(ctx, events.ActivityChanged, userID, sessionID, map[string]interface{}{
		"activity_id": activityID,
		"from":        current.Status,
		"to":          next.Status,
	})
	return next, nil
}

func (s *fieldAgentService) DeleteActivity(ctx context.Context, userID, activityID string) error {
	return s.backend.DeleteAgentActivity(ctx, userID, activityID)
}

func (s *fieldAgentService) GenerateActivity(ctx context.Context, userID string, req *dto.GenerateActivityRequest) error {
	return s.backend.GenerateAgentActivity(ctx, gateway.GenerateActivityRequest{
		UserID:       userID,
		CustomerID:   req.CustomerID,
		Conversation: req.Conversation,
		Timestamp:    gateway.NewTimestamp(time.Now()),
	})
}

func (s *fieldAgentService) CustomerInfo(ctx context.Context, customerID string) (gateway.CustomerInfo, error) {
	return s.backend.CustomerInfo(ctx, gateway.FieldServiceAgent, customerID)
}

func (s *fieldAgentService) Insights(ctx context.Context, conversations []map[string]any) (gateway.InsightsResponse, error) {
	return s.backend.GenerateConversationsInsights(ctx, gateway.FieldServiceAgent, conversations)
}

func (s *fieldAgentService) ScheduleVisit(ctx context.Context, req *dto.ScheduleVisitRequest) (gateway.ScheduleEventResponse, error) {
	return s.backend.ScheduleVisit(ctx, req.Attendees, req.StartTime)
}

func (s *fieldAgentService) SearchManuals(ctx context.Context, userID, query string) (gateway.SearchResponse, error) {
	return s.backend.FieldSearchManuals(ctx, gateway.SearchRequest{Query: query, UserPseudoID: userID})
}
