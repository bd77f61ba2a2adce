// Package recommend turns merchandising intents into product lists: an intent
// request yields a document id in website_recommendations, which is then
// watched until the backend has filled it.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"cymbal-assist-be/internal/pkg/logger"
	"cymbal-assist-be/pkg/catalog"
	"cymbal-assist-be/pkg/docstore"
	"cymbal-assist-be/pkg/gateway"
)

// MaxSeeds caps the product ids sent with one intent. The most recent ones
// are kept.
const MaxSeeds = 10

// PlaceholderSize is the number of empty stand-ins a slot shows while it
// resolves.
const PlaceholderSize = 8

var ErrEmptyDocumentID = errors.New("recommendation request returned no document id")

const (
	EventViewItem     = "view-item"
	EventViewItemList = "view-item-list"
	EventPurchase     = "purchase"
	EventAddToCart    = "add-to-cart"
	EventViewHomePage = "view-home-page"
)

const (
	NewAndFeatured    = "new-and-featured"
	MostPopularItems  = "most-popular-items"
	RecommendedForYou = "recommended-for-you"
	OthersYouMayLike  = "others-you-may-like"
	MoreLikeThis      = "more-like-this"
)

// Kind pairs the recommendation model with the user event that triggers it.
type Kind struct {
	RecommendationType string
	EventType          string
}

// ViewItem is the intent for a product page; several seeds make it a list
// view.
func ViewItem(recommendationType string, seeds []string) Kind {
	ev := EventViewItem
	if len(seeds) > 1 {
		ev = EventViewItemList
	}
	return Kind{RecommendationType: recommendationType, EventType: ev}
}

func Purchase(recommendationType string) Kind {
	return Kind{RecommendationType: recommendationType, EventType: EventPurchase}
}

func AddToCart(recommendationType string) Kind {
	return Kind{RecommendationType: recommendationType, EventType: EventAddToCart}
}

func ViewHomePage(recommendationType string) Kind {
	return Kind{RecommendationType: recommendationType, EventType: EventViewHomePage}
}

// CapSeeds keeps the last MaxSeeds ids.
func CapSeeds(seeds []string) []string {
	if len(seeds) <= MaxSeeds {
		out := make([]string, len(seeds))
		copy(out, seeds)
		return out
	}
	out := make([]string, MaxSeeds)
	copy(out, seeds[len(seeds)-MaxSeeds:])
	return out
}

type Backend interface {
	InitiateRecommendations(ctx context.Context, req gateway.RecommendationsRequest) (gateway.InitiateRecommendationsResponse, error)
}

type Aggregator struct {
	Backend Backend
	Store   docstore.Store
	Logger  logger.ILogger
}

func NewAggregator(backend Backend, store docstore.Store, log logger.ILogger) *Aggregator {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Aggregator{Backend: backend, Store: store, Logger: log}
}

func (a *Aggregator) RequestRecommendations(ctx context.Context, kind Kind, userID string, seeds []string) (string, error) {
	res, err := a.Backend.InitiateRecommendations(ctx, gateway.RecommendationsRequest{
		RecommendationType: kind.RecommendationType,
		EventType:          kind.EventType,
		UserPseudoID:       userID,
		Documents:          CapSeeds(seeds),
	})
	if err != nil {
		return "", err
	}
	if res.RecommendationsDocID == "" {
		return "", ErrEmptyDocumentID
	}
	return res.RecommendationsDocID, nil
}

// Resolve waits until website_recommendations/{docID} exists with a
// non-empty list, then releases the subscription. Entries that are not valid
// products are dropped.
func (a *Aggregator) Resolve(ctx context.Context, docID string) ([]catalog.Product, error) {
	path := docstore.RecommendationsDoc(docID)
	sub, err := a.Store.Watch(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case docs, ok := <-sub.C:
			if !ok {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				return nil, fmt.Errorf("watch %s: subscription closed", path)
			}
			if len(docs) == 0 {
				continue
			}
			products, err := a.products(docs[0])
			if len(products) == 0 {
				if err != nil {
					a.Logger.Warn("RECOMMEND", "Recommendations document not usable yet", map[string]interface{}{
						"document_id": docID,
						"error":       err.Error(),
					})
				}
				continue
			}
			if err != nil {
				a.Logger.Warn("RECOMMEND", "Dropped malformed recommendations", map[string]interface{}{
					"document_id": docID,
					"error":       err.Error(),
				})
			}
			return products, nil
		}
	}
}

func (a *Aggregator) products(doc docstore.Document) ([]catalog.Product, error) {
	items, _, err := docstore.Field[[]map[string]any](doc, "recommendations")
	if err != nil {
		return nil, err
	}
	docs := make([]docstore.Document, len(items))
	for i, it := range items {
		docs[i] = docstore.Document{Path: doc.Path + "#" + strconv.Itoa(i), Data: it}
	}
	return docstore.DecodeAll[catalog.Product](docs)
}

// Recommend requests and resolves in one call.
func (a *Aggregator) Recommend(ctx context.Context, kind Kind, userID string, seeds []string) ([]catalog.Product, error) {
	docID, err := a.RequestRecommendations(ctx, kind, userID, seeds)
	if err != nil {
		return nil, err
	}
	return a.Resolve(ctx, docID)
}
