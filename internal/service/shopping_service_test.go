package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cymbal-assist-be/internal/dto"
	"cymbal-assist-be/internal/pkg/logger"
	"cymbal-assist-be/internal/pkg/serverutils"
	"cymbal-assist-be/pkg/cart"
	"cymbal-assist-be/pkg/catalog"
	"cymbal-assist-be/pkg/docstore"
	"cymbal-assist-be/pkg/events"
	"cymbal-assist-be/pkg/gateway"
	"cymbal-assist-be/pkg/recommend"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type shopBackend struct {
	mu         sync.Mutex
	products   map[string]catalog.Product
	summaryErr error
	orders     []catalog.Order
	collected  []gateway.CollectEventsRequest
	intents    chan gateway.RecommendationsRequest
}

func newShopBackend() *shopBackend {
	return &shopBackend{
		products: map[string]catalog.Product{
			"chair": {ID: "chair", Title: "Chair", Price: catalog.FromFloat(19.99)},
			"lamp":  {ID: "lamp", Title: "Lamp", Price: catalog.FromFloat(5.01)},
		},
		intents: make(chan gateway.RecommendationsRequest, 8),
	}
}

func (b *shopBackend) InitiateRecommendations(_ context.Context, req gateway.RecommendationsRequest) (gateway.InitiateRecommendationsResponse, error) {
	b.intents <- req
	return gateway.InitiateRecommendationsResponse{RecommendationsDocID: "r1"}, nil
}

func (b *shopBackend) GetProduct(_ context.Context, id string) (catalog.Product, error) {
	p, ok := b.products[id]
	if !ok {
		return p, fiber.NewError(fiber.StatusNotFound, "no such product")
	}
	return p, nil
}

func (b *shopBackend) GetProductSummary(context.Context, string) (gateway.ProductSummaryResponse, error) {
	return gateway.ProductSummaryResponse{}, b.summaryErr
}

func (b *shopBackend) GetReviews(context.Context, string) (gateway.ReviewsResponse, error) {
	return gateway.ReviewsResponse{}, nil
}

func (b *shopBackend) GetReviewsSummary(context.Context, string) (gateway.ReviewsSummaryResponse, error) {
	return gateway.ReviewsSummaryResponse{}, nil
}

func (b *shopBackend) CompareProducts(context.Context, []string) (string, error) {
	return "<table></table>", nil
}

func (b *shopBackend) AddOrder(_ context.Context, o catalog.Order) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders = append(b.orders, o)
	return nil
}

func (b *shopBackend) CollectRecommendationEvents(_ context.Context, req gateway.CollectEventsRequest) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.collected = append(b.collected, req)
	return nil
}

type quoteMailer struct {
	to    string
	total catalog.Money
}

func (m *quoteMailer) SendQuote(to, _ string, _ []catalog.Product, total catalog.Money) error {
	m.to, m.total = to, total
	return nil
}

type shopFixture struct {
	svc       IShoppingService
	backend   *shopBackend
	analytics *recordedAnalytics
	frames    *recordedFrames
	mail      *quoteMailer
	sessionID string
}

func newShopFixture(t *testing.T) *shopFixture {
	t.Helper()
	f := &shopFixture{
		backend:   newShopBackend(),
		analytics: &recordedAnalytics{},
		frames:    &recordedFrames{},
		mail:      &quoteMailer{},
	}
	sessions, _ := newTestSessions(f.frames)
	res, err := sessions.Open(context.Background(), "alice")
	require.NoError(t, err)
	f.sessionID = res.SessionID
	t.Cleanup(func() { _ = sessions.Close("alice", res.SessionID) })

	agg := recommend.NewAggregator(f.backend, docstore.NewMemoryStore(), logger.NewNopLogger())
	f.svc = NewShoppingService(f.backend, agg, cart.NewMemoryStore(time.Hour), f.mail, sessions, f.frames, f.analytics, logger.NewNopLogger())
	return f
}

func TestCartTotalsAndCheckout(t *testing.T) {
	f := newShopFixture(t)
	ctx := context.Background()
	alice := serverutils.Identity{UID: "alice", Email: "alice@example.com", DisplayName: "Alice"}

	_, err := f.svc.AddToCart(ctx, "alice", f.sessionID, "chair")
	require.NoError(t, err)
	res, err := f.svc.AddToCart(ctx, "alice", f.sessionID, "lamp")
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
	assert.Equal(t, catalog.Money(2500), res.Total)

	out, err := f.svc.Checkout(ctx, alice, f.sessionID, &dto.CheckoutRequest{PickupDatetime: "2026-10-20T10:00:00Z", EmailQuote: true})
	require.NoError(t, err)
	assert.Equal(t, catalog.OrderStatusInitiated, out.Order.OrderStatus)
	assert.True(t, out.Order.IsPickup)
	assert.False(t, out.Order.IsDelivery)
	assert.Equal(t, catalog.Money(2500), out.Order.TotalAmount)
	require.Len(t, f.backend.orders, 1)
	assert.Len(t, f.backend.orders[0].OrderItems, 2)
	assert.Equal(t, "alice@example.com", f.mail.to)

	empty, err := f.svc.Cart(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
	assert.Equal(t, catalog.Money(0), empty.Total)

	assert.Contains(t, f.analytics.types(), events.Purchase)
}

func TestCheckoutRejectsEmptyCart(t *testing.T) {
	f := newShopFixture(t)
	_, err := f.svc.Checkout(context.Background(), serverutils.Identity{UID: "alice"}, f.sessionID, &dto.CheckoutRequest{IsDelivery: true})
	assert.ErrorIs(t, err, errEmptyCart)
	assert.Empty(t, f.backend.orders)
}

func TestRemoveMissingCartItem(t *testing.T) {
	f := newShopFixture(t)
	_, err := f.svc.RemoveFromCart(context.Background(), "alice", f.sessionID, "chair")
	var fe *fiber.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fiber.StatusNotFound, fe.Code)
}

func TestProductToleratesMissingSummaries(t *testing.T) {
	f := newShopFixture(t)
	f.backend.summaryErr = errors.New("summary unavailable")

	res, err := f.svc.Product(context.Background(), "alice", f.sessionID, "chair")
	require.NoError(t, err)
	assert.Equal(t, "Chair", res.Product.Title)
	assert.Empty(t, res.Summary)
	assert.NotNil(t, res.Reviews)

	_, err = f.svc.Product(context.Background(), "alice", f.sessionID, "sofa")
	assert.Error(t, err)
}

func TestProductChecksSessionOwner(t *testing.T) {
	f := newShopFixture(t)
	_, err := f.svc.Product(context.Background(), "bob", f.sessionID, "chair")
	assert.ErrorIs(t, err, serverutils.ErrForbidden)
}

func TestPurchaseRecommendationsSeedFromCart(t *testing.T) {
	f := newShopFixture(t)
	ctx := context.Background()
	_, err := f.svc.AddToCart(ctx, "alice", f.sessionID, "chair")
	require.NoError(t, err)

	req := &dto.RecommendationRequest{
		Page:               "cart",
		Instance:           "1",
		Slot:               recommend.OthersYouMayLike,
		EventType:          recommend.EventPurchase,
		RecommendationType: recommend.OthersYouMayLike,
	}
	res, err := f.svc.Recommend(ctx, "alice", f.sessionID, req)
	require.NoError(t, err)
	assert.True(t, res.Requested)

	select {
	case intent := <-f.backend.intents:
		assert.Equal(t, recommend.EventPurchase, intent.EventType)
		assert.Equal(t, []string{"chair"}, intent.Documents)
	case <-time.After(testWait):
		t.Fatal("no recommendation intent sent")
	}

	again, err := f.svc.Recommend(ctx, "alice", f.sessionID, req)
	require.NoError(t, err)
	assert.False(t, again.Requested)

	slots, err := f.svc.Slots("alice", f.sessionID, "cart", "1")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, recommend.OthersYouMayLike, slots[0].Key)
}

func TestHomeRequestsThreeSlots(t *testing.T) {
	f := newShopFixture(t)
	slots, err := f.svc.Home(context.Background(), "alice", f.sessionID, "main")
	require.NoError(t, err)
	require.Len(t, slots, 3)
	for _, s := range slots {
		assert.True(t, s.Placeholder)
		assert.Len(t, s.Products, recommend.PlaceholderSize)
	}
}
