package dto

import "cymbal-assist-be/pkg/catalog"

type OpenCaseRequest struct {
	CustomerID     string `json:"customer_id" validate:"required"`
	ConversationID string `json:"conversation_id" validate:"required"`
}

type TextRequest struct {
	Text string `json:"text" validate:"required"`
}

type TextResponse struct {
	Text string `json:"text"`
}

type ScheduleMeetingRequest struct {
	Attendees []string `json:"attendees" validate:"required,min=1,dive,email"`
	StartTime string   `json:"start_time" validate:"required"`
	EndTime   string   `json:"end_time"`
	Summary   string   `json:"summary"`
}

type KnowledgeSearchRequest struct {
	Query      string   `json:"query" validate:"required"`
	Source     string   `json:"source" validate:"required,oneof=manuals conversations reviews"`
	CustomerID string   `json:"customer_id"`
	ProductID  string   `json:"product_id"`
	Rating     []string `json:"rating"`
	Status     []string `json:"status"`
	Sentiment  []string `json:"sentiment"`
	Category   []string `json:"category"`
}

// CaseResponse is one entry of a customer's case history.
type CaseResponse struct {
	ID        string          `json:"id" validate:"required"`
	Title     string          `json:"title"`
	Summary   string          `json:"summary"`
	Status    string          `json:"status"`
	Timestamp catalog.Instant `json:"timestamp"`
}

type WatchCasesRequest struct {
	CustomerID string `json:"customer_id" validate:"required"`
}
