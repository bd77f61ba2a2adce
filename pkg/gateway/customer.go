package gateway

import (
	"context"
	"net/http"

	"cymbal-assist-be/pkg/catalog"
)

type InitiateSearchRequest struct {
	Query       string `json:"query"`
	VisitorID   string `json:"visitor_id"`
	UserID      string `json:"user_id,omitempty"`
	SearchDocID string `json:"search_doc_id"`
	Image       string `json:"image"`
}

type InitiateSearchResponse struct {
	DocumentID string `json:"document_id"`
}

// InitiateSearch starts (or continues, when SearchDocID is set) a shopping
// assistant search. The answer is written to website_search/{document_id}.
func (c *Client) InitiateSearch(ctx context.Context, req InitiateSearchRequest) (InitiateSearchResponse, error) {
	var res InitiateSearchResponse
	err := c.do(ctx, "initiate-search", http.MethodPost, "/p1/initiate-vertexai-search", req, &res)
	return res, err
}

type RecommendationsRequest struct {
	RecommendationType      string         `json:"recommendation_type"`
	EventType               string         `json:"event_type"`
	UserPseudoID            string         `json:"user_pseudo_id"`
	Documents               []string       `json:"documents"`
	OptionalUserEventFields map[string]any `json:"optional_user_event_fields"`
}

type InitiateRecommendationsResponse struct {
	RecommendationsDocID string `json:"recommendations_doc_id"`
}

func (c *Client) InitiateRecommendations(ctx context.Context, req RecommendationsRequest) (InitiateRecommendationsResponse, error) {
	if req.Documents == nil {
		req.Documents = []string{}
	}
	if req.OptionalUserEventFields == nil {
		req.OptionalUserEventFields = map[string]any{}
	}
	var res InitiateRecommendationsResponse
	err := c.do(ctx, "initiate-recommendations", http.MethodPost, "/p1/initiate-vertexai-recommendations", req, &res)
	return res, err
}

type CollectEventsRequest struct {
	EventType               string         `json:"event_type"`
	UserPseudoID            string         `json:"user_pseudo_id"`
	Documents               []string       `json:"documents"`
	OptionalUserEventFields map[string]any `json:"optional_user_event_fields"`
}

func (c *Client) CollectRecommendationEvents(ctx context.Context, req CollectEventsRequest) error {
	if req.Documents == nil {
		req.Documents = []string{}
	}
	if req.OptionalUserEventFields == nil {
		req.OptionalUserEventFields = map[string]any{}
	}
	return c.do(ctx, "collect-recommendations-events", http.MethodPost, "/p1/collect-recommendations-events", req, nil)
}

type TranslateTextRequest struct {
	Text           []string `json:"text"`
	TargetLanguage string   `json:"target_language"`
	SourceLanguage string   `json:"source_language,omitempty"`
}

type TranslateTextResponse struct {
	Translation []string `json:"translation"`
}

func (c *Client) TranslateText(ctx context.Context, req TranslateTextRequest) (TranslateTextResponse, error) {
	var res TranslateTextResponse
	err := c.do(ctx, "translate-text", http.MethodPost, "/p1/translate-text", req, &res)
	return res, err
}

func (c *Client) GetProduct(ctx context.Context, productID string) (catalog.Product, error) {
	var res catalog.Product
	err := c.do(ctx, "get-product", http.MethodGet, pathEscape("/p1/get-product", productID), nil, &res)
	return res, err
}

type ProductSummaryResponse struct {
	ProductSummary string `json:"product_summary"`
}

func (c *Client) GetProductSummary(ctx context.Context, productID string) (ProductSummaryResponse, error) {
	var res ProductSummaryResponse
	err := c.do(ctx, "get-product-summary", http.MethodGet, pathEscape("/p1/get-product-summary", productID), nil, &res)
	return res, err
}

type Review struct {
	Review    string `json:"review"`
	Sentiment string `json:"sentiment"`
	Stars     int    `json:"stars"`
}

type ReviewsResponse struct {
	Reviews []Review `json:"reviews"`
}

func (c *Client) GetReviews(ctx context.Context, productID string) (ReviewsResponse, error) {
	var res ReviewsResponse
	err := c.do(ctx, "get-reviews", http.MethodGet, pathEscape("/p1/get-reviews", productID), nil, &res)
	return res, err
}

type ReviewsSummaryResponse struct {
	ReviewsSummary string `json:"reviews_summary"`
}

func (c *Client) GetReviewsSummary(ctx context.Context, productID string) (ReviewsSummaryResponse, error) {
	var res ReviewsSummaryResponse
	err := c.do(ctx, "get-reviews-summary", http.MethodGet, pathEscape("/p1/get-reviews-summary", productID), nil, &res)
	return res, err
}

// CompareProducts returns the backend's HTML comparison table verbatim.
func (c *Client) CompareProducts(ctx context.Context, productIDs []string) (string, error) {
	raw, err := c.doRaw(ctx, "compare-products", http.MethodPost, "/p1/compare-products", map[string]any{"products": productIDs})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (c *Client) AddOrder(ctx context.Context, order catalog.Order) error {
	return c.do(ctx, "add-order", http.MethodPost, "/p1/add-order", order, nil)
}
