package conversation

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

var (
	ErrRequestInFlight   = errors.New("a request is already in flight for this session")
	ErrInitiationTimeout = errors.New("timed out waiting for a document id")
	ErrEmptyQuery        = errors.New("query has neither text nor image")
	ErrNoImageStorage    = errors.New("image queries need object storage")
	ErrNoTranslator      = errors.New("no translator configured")
)

type Author string

const (
	User   Author = "User"
	Agent  Author = "Agent"
	System Author = "System"
)

// NormalizeAuthor maps the store's spellings ("user", "system", "Agent")
// onto the three authors. Unknown values are kept as written.
func NormalizeAuthor(s string) Author {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return User
	case "agent":
		return Agent
	case "system", "assistant":
		return System
	}
	return Author(s)
}

type Message struct {
	ID        string    `json:"id"`
	Author    Author    `json:"author"`
	Text      string    `json:"text"`
	Original  string    `json:"original"`
	Language  string    `json:"language,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Link      string    `json:"link,omitempty"`
	IconURL   string    `json:"icon_url,omitempty"`
	ImageURL  string    `json:"image_url,omitempty"`
}

type Attachment struct {
	ContentType string
	Data        []byte
	// Preview is shown in the sent message bubble. A data URL is derived
	// from Data when empty.
	Preview string
}

func (a *Attachment) preview() string {
	if a.Preview != "" {
		return a.Preview
	}
	ct := a.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

type Query struct {
	Text  string
	Image *Attachment
	// Link and IconURL attach a scheduled meeting to the message.
	Link    string
	IconURL string
}

func (q Query) empty() bool {
	return strings.TrimSpace(q.Text) == "" && q.Image == nil && q.Link == ""
}

type State int

const (
	Idle State = iota
	Initiating
	Active
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Initiating:
		return "initiating"
	case Active:
		return "active"
	case Closed:
		return "closed"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is the rendered view of a session handed to OnChange.
type Snapshot struct {
	State      State     `json:"state"`
	DocumentID string    `json:"document_id,omitempty"`
	Language   string    `json:"language,omitempty"`
	Loading    bool      `json:"loading"`
	Messages   []Message `json:"messages"`
}
