package gateway

import (
	"context"
	"net/http"
	"time"

	"cymbal-assist-be/pkg/catalog"
)

// Timestamp is the seconds/nanoseconds pair the field-agent endpoints expect.
type Timestamp struct {
	Seconds     int64 `json:"seconds"`
	Nanoseconds int64 `json:"nanoseconds"`
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Seconds: t.Unix(), Nanoseconds: int64(t.Nanosecond())}
}

type agentActivityBody struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CustomerID  string    `json:"customer_id"`
	Timestamp   Timestamp `json:"timestamp"`
	Status      string    `json:"status"`
}

func activityBody(a catalog.AgentActivity) agentActivityBody {
	ts := a.Timestamp.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	return agentActivityBody{
		Title:       a.Title,
		Description: a.Description,
		CustomerID:  a.CustomerID,
		Timestamp:   NewTimestamp(ts),
		Status:      a.Status,
	}
}

func (c *Client) AddAgentActivity(ctx context.Context, userID string, a catalog.AgentActivity) error {
	return c.do(ctx, "add-agent-activity", http.MethodPost, pathEscape("/p6/agent-activity", userID), activityBody(a), nil)
}

// PutAgentActivity writes the whole activity back.
func (c *Client) PutAgentActivity(ctx context.Context, userID string, a catalog.AgentActivity) error {
	return c.do(ctx, "put-agent-activity", http.MethodPut, pathEscape("/p6/agent-activity", userID, a.ID), activityBody(a), nil)
}

func (c *Client) DeleteAgentActivity(ctx context.Context, userID, activityID string) error {
	return c.do(ctx, "delete-agent-activity", http.MethodDelete, pathEscape("/p6/agent-activity", userID, activityID), nil, nil)
}

// AskImage asks a question about an image previously uploaded under images/.
func (c *Client) AskImage(ctx context.Context, imageName, query string) (string, error) {
	var res struct {
		Response string `json:"response"`
	}
	err := c.do(ctx, "ask-image", http.MethodPost, "/p6/ask-image-gemini",
		map[string]string{"image_name": imageName, "user_query": query}, &res)
	return res.Response, err
}

type GenerateActivityRequest struct {
	UserID       string    `json:"user_id"`
	CustomerID   string    `json:"customer_id"`
	Conversation string    `json:"conversation"`
	Timestamp    Timestamp `json:"timestamp"`
}

func (c *Client) GenerateAgentActivity(ctx context.Context, req GenerateActivityRequest) error {
	return c.do(ctx, "generate-agent-activity", http.MethodPost, "/p6/generate-agent-activity", req, nil)
}

func (c *Client) ScheduleVisit(ctx context.Context, attendees []string, start string) (ScheduleEventResponse, error) {
	var res ScheduleEventResponse
	err := c.do(ctx, "schedule-visit", http.MethodPost, "/p6/schedule-event",
		ScheduleEventRequest{Attendees: attendees, StartTime: start}, &res)
	return res, err
}

func (c *Client) FieldSearchManuals(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	var res SearchResponse
	err := c.do(ctx, "field-search-manuals", http.MethodPost, "/p6/search-manuals", req, &res)
	return res, err
}
