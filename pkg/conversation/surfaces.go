package conversation

import (
	"context"
	"fmt"
	"time"

	"cymbal-assist-be/pkg/docstore"
	"cymbal-assist-be/pkg/gateway"
)

// SearchBackend is the part of the gateway the shopping assistant needs.
type SearchBackend interface {
	InitiateSearch(ctx context.Context, req gateway.InitiateSearchRequest) (gateway.InitiateSearchResponse, error)
}

// SearchSurface is the shopping assistant: answers accumulate in the
// "conversation" array of website_search/{id}.
type SearchSurface struct {
	Backend SearchBackend
	Store   docstore.Store
	UserID  string
}

func (s *SearchSurface) Start(ctx context.Context, q Query, image string) (string, error) {
	res, err := s.Backend.InitiateSearch(ctx, gateway.InitiateSearchRequest{
		Query:     q.Text,
		VisitorID: s.UserID,
		UserID:    s.UserID,
		Image:     image,
	})
	if err != nil {
		return "", err
	}
	if res.DocumentID == "" {
		return "", fmt.Errorf("initiate search: empty document id")
	}
	return res.DocumentID, nil
}

func (s *SearchSurface) FollowUp(ctx context.Context, docID string, q Query, image string) error {
	_, err := s.Backend.InitiateSearch(ctx, gateway.InitiateSearchRequest{
		Query:       q.Text,
		VisitorID:   s.UserID,
		UserID:      s.UserID,
		SearchDocID: docID,
		Image:       image,
	})
	return err
}

func (s *SearchSurface) Watch(ctx context.Context, docID string) (*docstore.Subscription, error) {
	return s.Store.Watch(ctx, docstore.SearchDoc(docID))
}

func (s *SearchSurface) Entries(docID string, docs []docstore.Document) ([]Entry, error) {
	return threadEntries(docID, docs)
}

func (s *SearchSurface) LocalAuthor() Author { return User }

// ChatBackend is the part of the gateway the customer-service chat needs.
type ChatBackend interface {
	AddMessage(ctx context.Context, userID, conversationID string, msg gateway.ChatMessage) (gateway.AddMessageResponse, error)
	ConversationSummary(ctx context.Context, userID, conversationID string) (gateway.SummaryResponse, error)
}

// ChatSurface is the customer-service chat over
// p4-conversations/{user}/conversations/{id}/messages. The same surface
// serves the customer (Author User) and the agent (Author Agent); UserID is
// always the customer's.
type ChatSurface struct {
	Backend  ChatBackend
	Store    docstore.Store
	UserID   string
	Author   Author
	Language string
	// OnSummary receives the summary produced when the session ends.
	OnSummary func(gateway.SummaryResponse)
}

func (s *ChatSurface) message(q Query) gateway.ChatMessage {
	return gateway.ChatMessage{
		Text:     q.Text,
		Author:   string(s.LocalAuthor()),
		Language: s.Language,
		Link:     q.Link,
		IconURL:  q.IconURL,
	}
}

func (s *ChatSurface) Start(ctx context.Context, q Query, _ string) (string, error) {
	res, err := s.Backend.AddMessage(ctx, s.UserID, gateway.NewConversation, s.message(q))
	if err != nil {
		return "", err
	}
	if res.ConversationID == "" {
		return "", fmt.Errorf("add message: empty conversation id")
	}
	return res.ConversationID, nil
}

func (s *ChatSurface) FollowUp(ctx context.Context, docID string, q Query, _ string) error {
	_, err := s.Backend.AddMessage(ctx, s.UserID, docID, s.message(q))
	return err
}

func (s *ChatSurface) Watch(ctx context.Context, docID string) (*docstore.Subscription, error) {
	return s.Store.Subscribe(ctx, docstore.Query{
		Collection: docstore.MessagesCollection(s.UserID, docID),
		OrderBy:    "timestamp",
	})
}

type chatRecord struct {
	ID        string `json:"id" validate:"required"`
	Author    string `json:"author" validate:"required"`
	Text      string `json:"text"`
	Language  string `json:"language"`
	Link      string `json:"link"`
	IconURL   string `json:"iconURL"`
	Timestamp any    `json:"timestamp"`
}

func (s *ChatSurface) Entries(_ string, docs []docstore.Document) ([]Entry, error) {
	recs, err := docstore.DecodeAll[chatRecord](docs)
	out := make([]Entry, 0, len(recs))
	for _, r := range recs {
		out = append(out, Entry{
			ID:        r.ID,
			Author:    NormalizeAuthor(r.Author),
			Text:      r.Text,
			Language:  r.Language,
			Timestamp: parseTimestamp(r.Timestamp),
			Link:      r.Link,
			IconURL:   r.IconURL,
		})
	}
	return out, err
}

func (s *ChatSurface) LocalAuthor() Author {
	if s.Author == "" {
		return User
	}
	return s.Author
}

func (s *ChatSurface) End(ctx context.Context, docID string) error {
	res, err := s.Backend.ConversationSummary(ctx, s.UserID, docID)
	if err != nil {
		return err
	}
	if s.OnSummary != nil {
		s.OnSummary(res)
	}
	return nil
}

func parseTimestamp(v any) time.Time {
	switch t := v.(type) {
	case string:
		if ts, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return ts
		}
	case map[string]any:
		sec, _ := t["seconds"].(float64)
		nsec, _ := t["nanoseconds"].(float64)
		if sec > 0 {
			return time.Unix(int64(sec), int64(nsec))
		}
	}
	return time.Time{}
}

// ImageQABackend is the part of the gateway the field agent Q&A needs.
type ImageQABackend interface {
	AskImage(ctx context.Context, imageName, query string) (string, error)
}

// FieldQASurface is the field agent's image Q&A. The backend answers
// synchronously; question and answer are appended to a thread document
// under field-agent/{user}/image-qa so the session renders the same way as
// the others.
type FieldQASurface struct {
	Backend ImageQABackend
	Store   docstore.Store
	UserID  string
}

func (s *FieldQASurface) docPath(id string) string {
	return "field-agent/" + s.UserID + "/image-qa/" + id
}

func (s *FieldQASurface) Start(ctx context.Context, q Query, image string) (string, error) {
	if image == "" {
		return "", fmt.Errorf("image question needs an image")
	}
	answer, err := s.Backend.AskImage(ctx, image, q.Text)
	if err != nil {
		return "", err
	}
	id, err := s.Store.Add(ctx, "field-agent/"+s.UserID+"/image-qa", map[string]any{
		"image_name": image,
		"timestamp":  time.Now().UTC(),
		"conversation": []map[string]any{
			{"author": "user", "message": q.Text},
			{"author": "system", "message": answer},
		},
	})
	if err != nil {
		return "", fmt.Errorf("store answer: %w", err)
	}
	return id, nil
}

// FollowUp asks about the new image when one is attached, otherwise about
// the session's last image.
func (s *FieldQASurface) FollowUp(ctx context.Context, docID string, q Query, image string) error {
	doc, err := s.Store.Get(ctx, s.docPath(docID))
	if err != nil {
		return err
	}
	if image == "" {
		image, _, _ = docstore.Field[string](doc, "image_name")
	}
	answer, err := s.Backend.AskImage(ctx, image, q.Text)
	if err != nil {
		return err
	}

	items, _, err := docstore.Field[[]map[string]any](doc, "conversation")
	if err != nil {
		return err
	}
	items = append(items,
		map[string]any{"author": "user", "message": q.Text},
		map[string]any{"author": "system", "message": answer},
	)
	data := make(map[string]any, len(doc.Data))
	for k, v := range doc.Data {
		data[k] = v
	}
	data["conversation"] = items
	data["image_name"] = image
	return s.Store.Set(ctx, s.docPath(docID), data)
}

func (s *FieldQASurface) Watch(ctx context.Context, docID string) (*docstore.Subscription, error) {
	return s.Store.Watch(ctx, s.docPath(docID))
}

func (s *FieldQASurface) Entries(docID string, docs []docstore.Document) ([]Entry, error) {
	return threadEntries(docID, docs)
}

func (s *FieldQASurface) LocalAuthor() Author { return User }
