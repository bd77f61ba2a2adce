package conversation

import (
	"context"
	"fmt"
	"time"

	"cymbal-assist-be/pkg/docstore"
)

// Surface adapts one backend conversation protocol to the orchestrator.
type Surface interface {
	// Start opens a backend session for the first query and returns its
	// document id. image is the stored name of an uploaded attachment.
	Start(ctx context.Context, q Query, image string) (string, error)
	FollowUp(ctx context.Context, docID string, q Query, image string) error
	Watch(ctx context.Context, docID string) (*docstore.Subscription, error)
	// Entries turns a snapshot into the ordered thread.
	Entries(docID string, docs []docstore.Document) ([]Entry, error)
	// LocalAuthor is the author whose messages are rendered optimistically
	// and therefore skipped when they come back from the store.
	LocalAuthor() Author
}

// Ender is implemented by surfaces with work to do when a session ends.
type Ender interface {
	End(ctx context.Context, docID string) error
}

type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}

// Entry is one element of a thread as the store holds it.
type Entry struct {
	ID        string
	Author    Author
	Text      string
	Language  string
	Timestamp time.Time
	Link      string
	IconURL   string
}

type threadItem struct {
	Author  string `json:"author" validate:"required"`
	Message string `json:"message"`
}

// threadEntries reads a "conversation" array field, the layout shared by
// website_search documents and image Q&A documents. Ids are positional since
// the array holds none.
func threadEntries(docID string, docs []docstore.Document) ([]Entry, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	items, _, err := docstore.Field[[]threadItem](docs[0], "conversation")
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(items))
	for i, it := range items {
		if it.Author == "" {
			return out, fmt.Errorf("%w: %s conversation[%d] has no author", docstore.ErrInvalidRecord, docs[0].Path, i)
		}
		out = append(out, Entry{
			ID:     fmt.Sprintf("%s#%d", docID, i),
			Author: NormalizeAuthor(it.Author),
			Text:   it.Message,
		})
	}
	return out, nil
}
