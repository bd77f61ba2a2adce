package dto

import (
	"cymbal-assist-be/pkg/catalog"
	"cymbal-assist-be/pkg/gateway"
)

type ProductDetailResponse struct {
	Product        catalog.Product  `json:"product"`
	Summary        string           `json:"summary"`
	Reviews        []gateway.Review `json:"reviews"`
	ReviewsSummary string           `json:"reviews_summary"`
}

type CompareRequest struct {
	ProductIDs []string `json:"product_ids" validate:"required,min=2"`
}

type CartItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
}

type CartResponse struct {
	Items []catalog.Product `json:"items"`
	Total catalog.Money     `json:"total"`
}

// RecommendationRequest asks for one merchandising slot. Page and Instance
// identify the consuming view; a slot key is requested once per instance.
type RecommendationRequest struct {
	Page               string   `json:"page" validate:"required"`
	Instance           string   `json:"instance" validate:"required"`
	Slot               string   `json:"slot" validate:"required"`
	EventType          string   `json:"event_type" validate:"required,oneof=view-item purchase add-to-cart view-home-page"`
	RecommendationType string   `json:"recommendation_type" validate:"required"`
	Seeds              []string `json:"seeds"`
}

type HomeRecommendationsRequest struct {
	Instance string `json:"instance" validate:"required"`
}

type RecommendationResponse struct {
	Requested bool `json:"requested"`
}

type CheckoutRequest struct {
	IsDelivery     bool   `json:"is_delivery"`
	PickupDatetime string `json:"pickup_datetime" validate:"required_without=IsDelivery"`
	EmailQuote     bool   `json:"email_quote"`
}

type CheckoutResponse struct {
	Order catalog.Order `json:"order"`
}

type CollectEventRequest struct {
	EventType  string         `json:"event_type" validate:"required"`
	Documents  []string       `json:"documents"`
	Additional map[string]any `json:"optional_user_event_fields"`
}
