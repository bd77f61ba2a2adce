package service

import (
	"context"
	"time"

	"cymbal-assist-be/internal/dto"
	"cymbal-assist-be/internal/entity"
	"cymbal-assist-be/internal/pkg/logger"
	"cymbal-assist-be/internal/pkg/mailer"
	"cymbal-assist-be/internal/pkg/serverutils"
	"cymbal-assist-be/pkg/cart"
	"cymbal-assist-be/pkg/catalog"
	"cymbal-assist-be/pkg/events"
	"cymbal-assist-be/pkg/gateway"
	"cymbal-assist-be/pkg/recommend"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

// HomePage is the page key of the landing view's three slots.
const HomePage = "home"

var errEmptyCart = fiber.NewError(fiber.StatusBadRequest, "cart is empty")

type ShoppingBackend interface {
	recommend.Backend
	GetProduct(ctx context.Context, productID string) (catalog.Product, error)
	GetProductSummary(ctx context.Context, productID string) (gateway.ProductSummaryResponse, error)
	GetReviews(ctx context.Context, productID string) (gateway.ReviewsResponse, error)
	GetReviewsSummary(ctx context.Context, productID string) (gateway.ReviewsSummaryResponse, error)
	CompareProducts(ctx context.Context, productIDs []string) (string, error)
	AddOrder(ctx context.Context, order catalog.Order) error
	CollectRecommendationEvents(ctx context.Context, req gateway.CollectEventsRequest) error
}

type IShoppingService interface {
	Product(ctx context.Context, userID, sessionID, productID string) (*dto.ProductDetailResponse, error)
	Compare(ctx context.Context, req *dto.CompareRequest) (string, error)

	Cart(ctx context.Context, userID string) (*dto.CartResponse, error)
	AddToCart(ctx context.Context, userID, sessionID, productID string) (*dto.CartResponse, error)
	RemoveFromCart(ctx context.Context, userID, sessionID, productID string) (*dto.CartResponse, error)
	Checkout(ctx context.Context, user serverutils.Identity, sessionID string, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error)

	Recommend(ctx context.Context, userID, sessionID string, req *dto.RecommendationRequest) (*dto.RecommendationResponse, error)
	Home(ctx context.Context, userID, sessionID, instance string) ([]recommend.Slot, error)
	Slots(userID, sessionID, page, instance string) ([]recommend.Slot, error)
	CollectEvent(ctx context.Context, userID string, req *dto.CollectEventRequest) error
}

type shoppingService struct {
	backend    ShoppingBackend
	aggregator *recommend.Aggregator
	carts      cart.Store
	mailer     mailer.IEmailService
	sessions   ISessionService
	delivery   FrameDelivery
	analytics  IAnalyticsService
	logger     logger.ILogger
}

// NewShoppingService accepts a nil mailer; quotes are then not sent.
func NewShoppingService(
	backend ShoppingBackend,
	aggregator *recommend.Aggregator,
	carts cart.Store,
	mail mailer.IEmailService,
	sessions ISessionService,
	delivery FrameDelivery,
	analytics IAnalyticsService,
	log logger.ILogger,
) IShoppingService {
	return &shoppingService{
		backend:    backend,
		aggregator: aggregator,
		carts:      carts,
		mailer:     mail,
		sessions:   sessions,
		delivery:   delivery,
		analytics:  analytics,
		logger:     log,
	}
}

// Product loads the detail view. Only the product itself is required; the
// summaries and reviews are left empty when they fail.
func (s *shoppingService) Product(ctx context.Context, userID, sessionID, productID string) (*dto.ProductDetailResponse, error) {
	sess, err := s.sessions.Get(userID, sessionID)
	if err != nil {
		return nil, err
	}

	res := &dto.ProductDetailResponse{Reviews: []gateway.Review{}}
	var g errgroup.Group
	g.Go(func() error {
		p, err := s.backend.GetProduct(ctx, productID)
		res.Product = p
		return err
	})
	g.Go(func() error {
		sum, err := s.backend.GetProductSummary(ctx, productID)
		s.optional("product summary", productID, err)
		res.Summary = sum.ProductSummary
		return nil
	})
	g.Go(func() error {
		reviews, err := s.backend.GetReviews(ctx, productID)
		s.optional("reviews", productID, err)
		if reviews.Reviews != nil {
			res.Reviews = reviews.Reviews
		}
		return nil
	})
	g.Go(func() error {
		sum, err := s.backend.GetReviewsSummary(ctx, productID)
		s.optional("reviews summary", productID, err)
		res.ReviewsSummary = sum.ReviewsSummary
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sess.Broker.ProductDisplay.Set(true)
	s.analytics.LogEvent(ctx, events.ViewItem, userID, sessionID, map[string]interface{}{
		"item_id":   string(res.Product.ID),
		"item_name": res.Product.Title,
		"price":     res.Product.Price.Float(),
	})
	s.collect(ctx, userID, recommend.EventViewItem, []string{productID})
	return res, nil
}

func (s *shoppingService) optional(what, productID string, err error) {
	if err != nil {
		s.logger.Warn("SHOPPING", "Failed to load "+what, map[string]interface{}{
			"product_id": productID,
			"error":      err.Error(),
		})
	}
}

func (s *shoppingService) Compare(ctx context.Context, req *dto.CompareRequest) (string, error) {
	return s.backend.CompareProducts(ctx, req.ProductIDs)
}

func cartResponse(c *cart.Cart) *dto.CartResponse {
	return &dto.CartResponse{Items: c.Items(), Total: c.Total()}
}

func (s *shoppingService) Cart(ctx context.Context, userID string) (*dto.CartResponse, error) {
	c, err := s.carts.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return cartResponse(c), nil
}

// AddToCart adds the product and announces it on the session's add-to-cart
// channel.
func (s *shoppingService) AddToCart(ctx context.Context, userID, sessionID, productID string) (*dto.CartResponse, error) {
	sess, err := s.sessions.Get(userID, sessionID)
	if err != nil {
		return nil, err
	}
	p, err := s.backend.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	c, err := s.carts.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.Add(p)
	if err := s.carts.Save(ctx, userID, c); err != nil {
		return nil, err
	}

	if err := sess.Broker.AddToCart.Publish(p); err != nil {
		s.logger.Warn("SHOPPING", "Failed to announce add-to-cart", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
	sess.Broker.CartDisplay.Set(true)

	s.analytics.LogEvent(ctx, events.AddToCart, userID, sessionID, map[string]interface{}{
		"item_id":  string(p.ID),
		"price":    p.Price.Float(),
		"currency": "USD",
	})
	s.collect(ctx, userID, recommend.EventAddToCart, []string{string(p.ID)})
	return cartResponse(c), nil
}

func (s *shoppingService) RemoveFromCart(ctx context.Context, userID, sessionID, productID string) (*dto.CartResponse, error) {
	c, err := s.carts.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !c.Remove(productID) {
		return nil, fiber.NewError(fiber.StatusNotFound, "product not in cart")
	}
	if err := s.carts.Save(ctx, userID, c); err != nil {
		return nil, err
	}
	s.analytics.LogEvent(ctx, events.RemoveFromCart, userID, sessionID, map[string]interface{}{"item_id": productID})
	return cartResponse(c), nil
}

// Checkout places the cart as an Initiated order and empties it.
func (s *shoppingService) Checkout(ctx context.Context, user serverutils.Identity, sessionID string, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	sess, err := s.sessions.Get(user.UID, sessionID)
	if err != nil {
		return nil, err
	}
	c, err := s.carts.Load(ctx, user.UID)
	if err != nil {
		return nil, err
	}
	if c.Len() == 0 {
		return nil, errEmptyCart
	}

	products := c.Items()
	items := make([]catalog.OrderItem, len(products))
	ids := make([]string, len(products))
	for i, p := range products {
		items[i] = catalog.OrderItem{Product: p}
		ids[i] = string(p.ID)
	}
	order := catalog.Order{
		OrderDate:   time.Now().UTC().Format(time.RFC3339),
		OrderStatus: catalog.OrderStatusInitiated,
		OrderItems:  items,
		UserID:      user.UID,
		Email:       user.Email,
		TotalAmount: c.Total(),
		IsDelivery:  req.IsDelivery,
		IsPickup:    !req.IsDelivery,
	}
	if !req.IsDelivery {
		order.PickupDatetime = req.PickupDatetime
	}

	if err := s.backend.AddOrder(ctx, order); err != nil {
		return nil, err
	}
	if err := s.carts.Delete(ctx, user.UID); err != nil {
		s.logger.Warn("SHOPPING", "Failed to clear cart after checkout", map[string]interface{}{
			"user_id": user.UID,
			"error":   err.Error(),
		})
	}
	sess.Broker.CartDisplay.Set(false)

	if req.EmailQuote && s.mailer != nil && user.Email != "" {
		if err := s.mailer.SendQuote(user.Email, user.DisplayName, products, order.TotalAmount); err != nil {
			s.logger.Warn("SHOPPING", "Failed to send quote", map[string]interface{}{
				"user_id": user.UID,
				"error":   err.Error(),
			})
		}
	}

	s.analytics.LogEvent(ctx, events.Purchase, user.UID, sessionID, map[string]interface{}{
		"items":    ids,
		"value":    order.TotalAmount.Float(),
		"currency": "USD",
	})
	s.collect(ctx, user.UID, recommend.EventPurchase, ids)
	return &dto.CheckoutResponse{Order: order}, nil
}

// collect reports a user event to the recommendation engine. Failures only
// degrade future recommendations, so they are logged.
func (s *shoppingService) collect(ctx context.Context, userID, eventType string, documents []string) {
	err := s.backend.CollectRecommendationEvents(ctx, gateway.CollectEventsRequest{
		EventType:    eventType,
		UserPseudoID: userID,
		Documents:    documents,
	})
	if err != nil {
		s.logger.Warn("SHOPPING", "Failed to collect recommendation event", map[string]interface{}{
			"event_type": eventType,
			"error":      err.Error(),
		})
	}
}

func (s *shoppingService) CollectEvent(ctx context.Context, userID string, req *dto.CollectEventRequest) error {
	return s.backend.CollectRecommendationEvents(ctx, gateway.CollectEventsRequest{
		EventType:               req.EventType,
		UserPseudoID:            userID,
		Documents:               req.Documents,
		OptionalUserEventFields: req.Additional,
	})
}

func pageKey(page, instance string) string {
	return page + ":" + instance
}

func (s *shoppingService) page(sess *entity.Session, key string) *recommend.Page {
	return sess.Page(key, func(ctx context.Context) *recommend.Page {
		return s.aggregator.NewPage(ctx, func(slot recommend.Slot) {
			s.delivery.Push(sess.UserID, dto.Frame{Type: dto.FrameRecommendations, SessionID: sess.ID, Key: key, Data: slot})
		})
	})
}

// Recommend requests one slot. A slot key already requested on the same page
// instance is not requested again.
func (s *shoppingService) Recommend(ctx context.Context, userID, sessionID string, req *dto.RecommendationRequest) (*dto.RecommendationResponse, error) {
	sess, err := s.sessions.Get(userID, sessionID)
	if err != nil {
		return nil, err
	}

	seeds := req.Seeds
	var kind recommend.Kind
	switch req.EventType {
	case recommend.EventViewItem:
		kind = recommend.ViewItem(req.RecommendationType, seeds)
	case recommend.EventPurchase, recommend.EventAddToCart:
		if len(seeds) == 0 {
			if c, err := s.carts.Load(ctx, userID); err == nil {
				for _, p := range c.Items() {
					seeds = append(seeds, string(p.ID))
				}
			}
		}
		kind = recommend.Purchase(req.RecommendationType)
		if req.EventType == recommend.EventAddToCart {
			kind = recommend.AddToCart(req.RecommendationType)
		}
	default:
		kind = recommend.ViewHomePage(req.RecommendationType)
	}

	requested := s.page(sess, pageKey(req.Page, req.Instance)).Request(req.Slot, kind, userID, seeds)
	return &dto.RecommendationResponse{Requested: requested}, nil
}

// Home requests the landing view's slots and returns them as they stand,
// placeholders included.
func (s *shoppingService) Home(ctx context.Context, userID, sessionID, instance string) ([]recommend.Slot, error) {
	sess, err := s.sessions.Get(userID, sessionID)
	if err != nil {
		return nil, err
	}
	p := s.page(sess, pageKey(HomePage, instance))
	for _, t := range []string{recommend.NewAndFeatured, recommend.MostPopularItems, recommend.RecommendedForYou} {
		p.Request(t, recommend.ViewHomePage(t), userID, nil)
	}
	return p.Slots(), nil
}

func (s *shoppingService) Slots(userID, sessionID, page, instance string) ([]recommend.Slot, error) {
	sess, err := s.sessions.Get(userID, sessionID)
	if err != nil {
		return nil, err
	}
	p, ok := sess.LookupPage(pageKey(page, instance))
	if !ok {
		return []recommend.Slot{}, nil
	}
	return p.Slots(), nil
}
