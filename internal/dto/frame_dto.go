package dto

// Frame is one message pushed to a user's WebSocket connections.
type Frame struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Key       string `json:"key,omitempty"`
	Data      any    `json:"data"`
}

const (
	FrameConversation    = "conversation"
	FrameRecommendations = "recommendations"
	FrameBroker          = "broker"
	FrameCases           = "cases"
	FrameActivities      = "activities"
	FrameCreatorProducts = "creator_products"
	FrameCreatorServices = "creator_services"
	FrameSummary         = "summary"
)
