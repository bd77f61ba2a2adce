package service

import (
	"context"

	"cymbal-assist-be/internal/dto"
	"cymbal-assist-be/internal/pkg/logger"
	"cymbal-assist-be/pkg/docstore"
	"cymbal-assist-be/pkg/gateway"
)

const maxRecentEvents = 100

type AnalystBackend interface {
	CustomerInfo(ctx context.Context, p gateway.Persona, customerID string) (gateway.CustomerInfo, error)
	GenerateConversationsInsights(ctx context.Context, p gateway.Persona, conversations []map[string]any) (gateway.InsightsResponse, error)
	GenerateReviewsInsights(ctx context.Context, reviews []map[string]any) (gateway.InsightsResponse, error)
	AnalystSearchConversations(ctx context.Context, req gateway.SearchRequest) (gateway.SearchResponse, error)
	SearchReviews(ctx context.Context, req gateway.SearchRequest) (gateway.SearchResponse, error)
	VectorFindSimilar(ctx context.Context, input, journey string) ([]any, error)
}

type IAnalystService interface {
	CustomerInfo(ctx context.Context, customerID string) (gateway.CustomerInfo, error)
	Insights(ctx context.Context, req *dto.InsightsRequest) (gateway.InsightsResponse, error)
	Search(ctx context.Context, userID string, req *dto.KnowledgeSearchRequest) (gateway.SearchResponse, error)
	Similar(ctx context.Context, req *dto.SimilarRequest) ([]any, error)
	RecentEvents(ctx context.Context, limit int) ([]dto.AnalyticsEventResponse, error)
}

type analystService struct {
	backend AnalystBackend
	store   docstore.Store
	logger  logger.ILogger
}

func NewAnalystService(backend AnalystBackend, store docstore.Store, log logger.ILogger) IAnalystService {
	return &analystService{backend: backend, store: store, logger: log}
}

func (s *analystService) CustomerInfo(ctx context.Context, customerID string) (gateway.CustomerInfo, error) {
	return s.backend.CustomerInfo(ctx, gateway.ContactCenterAnalyst, customerID)
}

func (s *analystService) Insights(ctx context.Context, req *dto.InsightsRequest) (gateway.InsightsResponse, error) {
	if req.Source == "reviews" {
		return s.backend.GenerateReviewsInsights(ctx, req.Items)
	}
	persona := gateway.ContactCenterAnalyst
	if req.Persona == "field-service" {
		persona = gateway.FieldServiceAgent
	}
	return s.backend.GenerateConversationsInsights(ctx, persona, req.Items)
}

func (s *analystService) Search(ctx context.Context, userID string, req *dto.KnowledgeSearchRequest) (gateway.SearchResponse, error) {
	sr := searchRequest(userID, req)
	if req.Source == "reviews" {
		return s.backend.SearchReviews(ctx, sr)
	}
	return s.backend.AnalystSearchConversations(ctx, sr)
}

func (s *analystService) Similar(ctx context.Context, req *dto.SimilarRequest) ([]any, error) {
	return s.backend.VectorFindSimilar(ctx, req.Input, req.Journey)
}

// RecentEvents reads the recorded analytics, newest first.
func (s *analystService) RecentEvents(ctx context.Context, limit int) ([]dto.AnalyticsEventResponse, error) {
	if limit <= 0 || limit > maxRecentEvents {
		limit = maxRecentEvents
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	sub, err := s.store.Subscribe(ctx, docstore.Query{Collection: AnalyticsCollection, OrderBy: "timestamp", Desc: true})
	if err != nil {
		return nil, err
	}
	defer sub.Close()

	var docs []docstore.Document
	select {
	case docs = <-sub.C:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if len(docs) > limit {
		docs = docs[:limit]
	}
	out, err := docstore.DecodeAll[dto.AnalyticsEventResponse](docs)
	if err != nil {
		s.logger.Warn("ANALYST", "Skipped malformed analytics events", map[string]interface{}{"error": err.Error()})
	}
	return out, nil
}
