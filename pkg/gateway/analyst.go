package gateway

import (
	"context"
	"net/http"
)

type CustomerInfo struct {
	Conversations []map[string]any `json:"conversations"`
	Reviews       []map[string]any `json:"reviews"`
	CustomerInfo  map[string]any   `json:"customer_info"`
}

type InsightsResponse struct {
	Summary        string `json:"summary"`
	Entities       []any  `json:"entities"`
	Insights       string `json:"insights"`
	PendingTasks   string `json:"pending_tasks"`
	NextBestAction string `json:"next_best_action"`
}

// Persona is the route prefix of a persona; some analyst capabilities are
// served under both p5 and p6.
type Persona string

const (
	ContactCenterAnalyst Persona = "/p5"
	FieldServiceAgent    Persona = "/p6"
)

func (c *Client) CustomerInfo(ctx context.Context, p Persona, customerID string) (CustomerInfo, error) {
	var res CustomerInfo
	err := c.do(ctx, "customer-info", http.MethodGet, pathEscape(string(p)+"/customer", customerID), nil, &res)
	return res, err
}

func (c *Client) GenerateConversationsInsights(ctx context.Context, p Persona, conversations []map[string]any) (InsightsResponse, error) {
	var res InsightsResponse
	err := c.do(ctx, "generate-conversations-insights", http.MethodPost, string(p)+"/generate-conversations-insights",
		map[string]any{"conversations": conversations}, &res)
	return res, err
}

func (c *Client) GenerateReviewsInsights(ctx context.Context, reviews []map[string]any) (InsightsResponse, error) {
	var res InsightsResponse
	err := c.do(ctx, "generate-reviews-insights", http.MethodPost, "/p5/generate-reviews-insights",
		map[string]any{"reviews": reviews}, &res)
	return res, err
}

func (c *Client) AnalystSearchConversations(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	var res SearchResponse
	err := c.do(ctx, "analyst-search-conversations", http.MethodPost, "/p5/search-conversations", req, &res)
	return res, err
}

func (c *Client) SearchReviews(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	var res SearchResponse
	err := c.do(ctx, "search-reviews", http.MethodPost, "/p5/search-reviews", req, &res)
	return res, err
}

func (c *Client) VectorFindSimilar(ctx context.Context, input, journey string) ([]any, error) {
	if journey == "" {
		journey = "conversations"
	}
	var res struct {
		SimilarVectors []any `json:"similar_vectors"`
	}
	err := c.do(ctx, "vector-find-similar", http.MethodPost, "/p5/vector-find-similar",
		map[string]string{"input_text": input, "user_journey": journey}, &res)
	return res.SimilarVectors, err
}
