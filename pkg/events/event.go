// Package events is the contract of the analytics bus: what the shopper and
// agents did, keyed by user and browser session.
package events

import (
	"strings"
	"time"
)

// Event defines the contract for all published events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "ADD_TO_CART").
	EventType() string

	Payload() map[string]interface{}

	Timestamp() time.Time
}

const (
	Login             = "LOGIN"
	SearchQuery       = "SEARCH_QUERY"
	ViewItem          = "VIEW_ITEM"
	AddToCart         = "ADD_TO_CART"
	RemoveFromCart    = "REMOVE_FROM_CART"
	Purchase          = "PURCHASE"
	ReturnSubmitted   = "RETURN_SUBMITTED"
	ReturnDecided     = "RETURN_DECIDED"
	ConversationEnded = "CONVERSATION_ENDED"
	ActivityChanged   = "ACTIVITY_CHANGED"
)

// Analytics is the one event shape on the bus.
type Analytics struct {
	Type       string
	UserID     string
	SessionID  string
	Params     map[string]interface{}
	OccurredAt time.Time
}

func NewAnalytics(eventType, userID, sessionID string, params map[string]interface{}) Analytics {
	return Analytics{
		Type:       eventType,
		UserID:     userID,
		SessionID:  sessionID,
		Params:     params,
		OccurredAt: time.Now().UTC(),
	}
}

func (e Analytics) EventType() string {
	return e.Type
}

func (e Analytics) Payload() map[string]interface{} {
	out := make(map[string]interface{}, len(e.Params)+3)
	for k, v := range e.Params {
		out[k] = v
	}
	out["user_id"] = e.UserID
	if e.SessionID != "" {
		out["session_id"] = e.SessionID
	}
	out["occurred_at"] = e.OccurredAt.Format(time.RFC3339Nano)
	return out
}

func (e Analytics) Timestamp() time.Time {
	return e.OccurredAt
}

// FromPayload rebuilds an event received on subject (e.g.
// "analytics.ADD_TO_CART").
func FromPayload(subject string, payload map[string]interface{}) Analytics {
	e := Analytics{
		Type:   subject[strings.LastIndex(subject, ".")+1:],
		Params: make(map[string]interface{}, len(payload)),
	}
	for k, v := range payload {
		switch k {
		case "user_id":
			e.UserID, _ = v.(string)
		case "session_id":
			e.SessionID, _ = v.(string)
		case "occurred_at":
			if s, ok := v.(string); ok {
				e.OccurredAt, _ = time.Parse(time.RFC3339Nano, s)
			}
		default:
			e.Params[k] = v
		}
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	return e
}
