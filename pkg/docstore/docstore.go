// Package docstore adapts the hierarchical document store the backend writes
// results into. Collections and documents alternate along a slash separated
// path (website_search/{id}, p4-conversations/{user}/conversations/{id}/messages).
// Subscriptions deliver whole ordered snapshots, never deltas.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrInvalidPath   = errors.New("invalid document path")
	ErrInvalidRecord = errors.New("invalid record")
)

type Document struct {
	Path string         `json:"path"`
	ID   string         `json:"id"`
	Data map[string]any `json:"data"`
}

// Query selects a collection. With OrderBy empty the store's natural order
// (creation order) is kept.
type Query struct {
	Collection string
	OrderBy    string
	Desc       bool
}

type Store interface {
	// Subscribe streams ordered snapshots of a collection, starting with the
	// current one.
	Subscribe(ctx context.Context, q Query) (*Subscription, error)
	// Watch streams snapshots of one document: an empty slice while it does
	// not exist, otherwise a single element.
	Watch(ctx context.Context, docPath string) (*Subscription, error)
	Get(ctx context.Context, docPath string) (Document, error)
	Set(ctx context.Context, docPath string, data map[string]any) error
	Add(ctx context.Context, collection string, data map[string]any) (string, error)
	Delete(ctx context.Context, docPath string) error
}

// Subscription ends when Close is called or the context it was opened with
// ends; C is closed afterwards.
type Subscription struct {
	C      <-chan []Document
	cancel context.CancelFunc
	once   sync.Once
}

func (s *Subscription) Close() {
	s.once.Do(s.cancel)
}

func segments(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// SplitDoc returns the collection path and id of a document path.
func SplitDoc(docPath string) (collection, id string, err error) {
	segs := segments(docPath)
	if len(segs) == 0 || len(segs)%2 != 0 {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPath, docPath)
	}
	for _, s := range segs {
		if s == "" {
			return "", "", fmt.Errorf("%w: %q", ErrInvalidPath, docPath)
		}
	}
	return strings.Join(segs[:len(segs)-1], "/"), segs[len(segs)-1], nil
}

func checkCollection(collection string) (string, error) {
	segs := segments(collection)
	if len(segs)%2 != 1 {
		return "", fmt.Errorf("%w: %q is not a collection", ErrInvalidPath, collection)
	}
	return strings.Join(segs, "/"), nil
}

func SearchDoc(id string) string { return "website_search/" + id }

func RecommendationsDoc(id string) string { return "website_recommendations/" + id }

func OrderDoc(id string) string { return "orders/" + id }

func ConversationsCollection(userID string) string {
	return "p4-conversations/" + userID + "/conversations"
}

func MessagesCollection(userID, conversationID string) string {
	return ConversationsCollection(userID) + "/" + conversationID + "/messages"
}

func ActivitiesCollection(userID string) string {
	return "field-agent/" + userID + "/activities"
}

func CreatorProducts(userID string) string {
	return "content-creator/" + userID + "/products"
}

func CreatorServices(userID string) string {
	return "content-creator/" + userID + "/services"
}

var validate = validator.New()

// Decode converts a document into a typed record and checks its validate
// tags. The document id is exposed as "id" unless the body has one.
func Decode[T any](doc Document) (T, error) {
	var out T
	body := make(map[string]any, len(doc.Data)+1)
	for k, v := range doc.Data {
		body[k] = v
	}
	if _, ok := body["id"]; !ok && doc.ID != "" {
		body["id"] = doc.ID
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return out, fmt.Errorf("%w: %s: %v", ErrInvalidRecord, doc.Path, err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%w: %s: %v", ErrInvalidRecord, doc.Path, err)
	}
	if err := validate.Struct(out); err != nil {
		var invalid *validator.InvalidValidationError
		if !errors.As(err, &invalid) {
			return out, fmt.Errorf("%w: %s: %v", ErrInvalidRecord, doc.Path, err)
		}
	}
	return out, nil
}

// DecodeAll decodes a snapshot, dropping records that fail validation. The
// returned error joins the rejections.
func DecodeAll[T any](docs []Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	var errs []error
	for _, d := range docs {
		v, err := Decode[T](d)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, v)
	}
	return out, errors.Join(errs...)
}

// Field decodes a single field of a document into T.
func Field[T any](doc Document, name string) (T, bool, error) {
	var out T
	v, ok := doc.Data[name]
	if !ok || v == nil {
		return out, false, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return out, true, fmt.Errorf("%w: %s.%s: %v", ErrInvalidRecord, doc.Path, name, err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, true, fmt.Errorf("%w: %s.%s: %v", ErrInvalidRecord, doc.Path, name, err)
	}
	return out, true, nil
}
