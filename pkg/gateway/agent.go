package gateway

import (
	"context"
	"net/http"
)

// NewConversation is the conversation id that asks the backend to allocate one.
const NewConversation = "new"

type ChatMessage struct {
	Text     string `json:"text"`
	Author   string `json:"author"`
	Language string `json:"language"`
	Link     string `json:"link"`
	IconURL  string `json:"iconURL"`
}

type AddMessageResponse struct {
	ConversationID string `json:"conversation_id"`
}

// AddMessage appends a message to p4-conversations/{user}/conversations/{id}.
// Passing NewConversation creates the conversation first.
func (c *Client) AddMessage(ctx context.Context, userID, conversationID string, msg ChatMessage) (AddMessageResponse, error) {
	if msg.Language == "" {
		msg.Language = "en-US"
	}
	var res AddMessageResponse
	err := c.do(ctx, "add-message", http.MethodPost, pathEscape("/p4/message", userID, conversationID), msg, &res)
	return res, err
}

type SummaryResponse struct {
	Summary string `json:"summary"`
	Title   string `json:"title"`
}

func (c *Client) ConversationSummary(ctx context.Context, userID, conversationID string) (SummaryResponse, error) {
	var res SummaryResponse
	err := c.do(ctx, "conversation-summary", http.MethodGet, pathEscape("/p4/conversation_summary_and_title", userID, conversationID), nil, &res)
	return res, err
}

func (c *Client) ClearConversations(ctx context.Context, userID string) error {
	return c.do(ctx, "clear-conversations", http.MethodDelete, pathEscape("/p4/clear_conversations", userID), nil, nil)
}

func (c *Client) RephraseText(ctx context.Context, text string) (string, error) {
	var res struct {
		Output string `json:"rephrase_text_output"`
	}
	err := c.do(ctx, "rephrase-text", http.MethodPost, "/p4/rephrase-text", map[string]string{"rephrase_text_input": text}, &res)
	return res.Output, err
}

func (c *Client) AutoSuggestQuery(ctx context.Context, input string) (string, error) {
	var res struct {
		Output string `json:"output_text"`
	}
	err := c.do(ctx, "auto-suggest-query", http.MethodPost, "/p4/auto-suggest-query", map[string]string{"input_text": input}, &res)
	return res.Output, err
}

// Translate translates one text. Used for per-message chat translation.
func (c *Client) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	var res struct {
		Output string `json:"output_text"`
	}
	err := c.do(ctx, "translate", http.MethodPost, "/p4/translate",
		map[string]string{"input_text": text, "target_language": targetLanguage}, &res)
	return res.Output, err
}

type ScheduleEventRequest struct {
	EventSummary string   `json:"event_summary,omitempty"`
	Attendees    []string `json:"attendees"`
	StartTime    string   `json:"start_time"`
	EndTime      string   `json:"end_time,omitempty"`
}

type ScheduleEventResponse struct {
	ConferenceCallLink string `json:"conference_call_link"`
	CalendarLink       string `json:"calendar_link,omitempty"`
	IconURL            string `json:"icon_url"`
	StartTimeISO       string `json:"start_time_iso"`
	EndTimeISO         string `json:"end_time_iso"`
}

func (c *Client) ScheduleEvent(ctx context.Context, req ScheduleEventRequest) (ScheduleEventResponse, error) {
	var res ScheduleEventResponse
	err := c.do(ctx, "schedule-event", http.MethodPost, "/p4/schedule-event", req, &res)
	return res, err
}

// SearchRequest is shared by the conversation, review and manual searches.
// Empty filters are omitted.
type SearchRequest struct {
	Query          string   `json:"query"`
	UserPseudoID   string   `json:"user_pseudo_id"`
	ConversationID string   `json:"conversation_id,omitempty"`
	AgentID        string   `json:"agent_id,omitempty"`
	CustomerID     string   `json:"customer_id,omitempty"`
	ProductID      string   `json:"product_id,omitempty"`
	Rating         []string `json:"rating,omitempty"`
	Status         []string `json:"status,omitempty"`
	Sentiment      []string `json:"sentiment,omitempty"`
	Category       []string `json:"category,omitempty"`
}

type SearchResponse struct {
	Responses      map[string]any `json:"responses"`
	ConversationID string         `json:"conversation_id,omitempty"`
}

func (c *Client) SearchConversations(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	var res SearchResponse
	err := c.do(ctx, "search-conversations", http.MethodPost, "/p4/search-conversations", req, &res)
	return res, err
}

func (c *Client) SearchManuals(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	var res SearchResponse
	err := c.do(ctx, "search-manuals", http.MethodPost, "/p4/search-manuals", req, &res)
	return res, err
}
