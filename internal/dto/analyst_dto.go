package dto

import "cymbal-assist-be/pkg/catalog"

type InsightsRequest struct {
	Source  string           `json:"source" validate:"required,oneof=conversations reviews"`
	Persona string           `json:"persona" validate:"omitempty,oneof=contact-center field-service"`
	Items   []map[string]any `json:"items" validate:"required,min=1"`
}

type SimilarRequest struct {
	Input   string `json:"input" validate:"required"`
	Journey string `json:"journey" validate:"required"`
}

type AnalyticsEventResponse struct {
	ID        string          `json:"id" validate:"required"`
	Type      string          `json:"type" validate:"required"`
	UserID    string          `json:"user_id"`
	SessionID string          `json:"session_id,omitempty"`
	Timestamp catalog.Instant `json:"timestamp"`
}
