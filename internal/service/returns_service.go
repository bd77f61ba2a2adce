package service

import (
	"context"
	"io"
	"time"

	"cymbal-assist-be/internal/dto"
	"cymbal-assist-be/internal/pkg/logger"
	"cymbal-assist-be/internal/pkg/serverutils"
	"cymbal-assist-be/pkg/blob"
	"cymbal-assist-be/pkg/catalog"
	"cymbal-assist-be/pkg/docstore"
	"cymbal-assist-be/pkg/events"
	"cymbal-assist-be/pkg/gateway"
	"cymbal-assist-be/pkg/workflow"

	"github.com/gofiber/fiber/v2"
)

var errOrderReturned = fiber.NewError(fiber.StatusConflict, "every item of this order has already been returned")

// Upload is a file received from the browser.
type Upload struct {
	ContentType string
	Body        io.Reader
}

type ReturnsBackend interface {
	ReturnValidation(ctx context.Context, req gateway.ReturnValidationRequest) (gateway.ReturnValidationResponse, error)
	SearchSimilar(ctx context.Context, image, query string) ([]any, error)
	UpdateOrder(ctx context.Context, order catalog.Order) error
}

type IReturnsService interface {
	Order(ctx context.Context, userID, orderID string) (*dto.OrderResponse, error)
	SubmitReturn(ctx context.Context, userID, sessionID, orderID, productID string, image, video *Upload) (*dto.OrderResponse, error)
	Decide(ctx context.Context, reviewerID, orderID, productID string, accept bool) (*dto.OrderResponse, error)
	CompleteExchange(ctx context.Context, userID, orderID, productID string) (*dto.OrderResponse, error)
	Similar(ctx context.Context, req *dto.SimilarItemsRequest) ([]any, error)
}

type returnsService struct {
	backend   ReturnsBackend
	store     docstore.Store
	blob      blob.Storage
	analytics IAnalyticsService
	logger    logger.ILogger
	now       func() time.Time
}

func NewReturnsService(
	backend ReturnsBackend,
	store docstore.Store,
	storage blob.Storage,
	analytics IAnalyticsService,
	log logger.ILogger,
) IReturnsService {
	return &returnsService{
		backend:   backend,
		store:     store,
		blob:      storage,
		analytics: analytics,
		logger:    log,
		now:       time.Now,
	}
}

func orderResponse(o catalog.Order) *dto.OrderResponse {
	return &dto.OrderResponse{Order: o, AllReturned: o.AllReturned()}
}

func (s *returnsService) load(ctx context.Context, orderID string) (catalog.Order, error) {
	doc, err := s.store.Get(ctx, docstore.OrderDoc(orderID))
	if err != nil {
		return catalog.Order{}, err
	}
	return docstore.Decode[catalog.Order](doc)
}

func (s *returnsService) owned(ctx context.Context, userID, orderID string) (catalog.Order, error) {
	o, err := s.load(ctx, orderID)
	if err != nil {
		return o, err
	}
	if o.UserID != userID {
		return o, serverutils.ErrForbidden
	}
	return o, nil
}

func (s *returnsService) Order(ctx context.Context, userID, orderID string) (*dto.OrderResponse, error) {
	o, err := s.owned(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	return orderResponse(o), nil
}

// SubmitReturn stores the evidence, has it validated and puts the item under
// review. At least one of image and video is required.
func (s *returnsService) SubmitReturn(ctx context.Context, userID, sessionID, orderID, productID string, image, video *Upload) (*dto.OrderResponse, error) {
	if image == nil && video == nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "a return needs an image or a video")
	}
	o, err := s.owned(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if o.AllReturned() {
		return nil, errOrderReturned
	}
	i := o.Item(productID)
	if i < 0 {
		return nil, fiber.NewError(fiber.StatusNotFound, "item not in order")
	}

	item := o.OrderItems[i]
	req := gateway.ReturnValidationRequest{ProductURL: item.Image}
	if req.ProductURL == "" && len(item.ImageURLs) > 0 {
		req.ProductURL = item.ImageURLs[0]
	}
	v := workflow.Validation{}

	if image != nil {
		obj, err := s.blob.Upload(ctx, blob.ReturnImagesPrefix, image.ContentType, image.Body)
		if err != nil {
			return nil, err
		}
		req.ReturnImage = obj.Path
		v.ImageName = obj.Path
	}
	if video != nil {
		obj, err := s.blob.Upload(ctx, blob.ReturnVideosPrefix, video.ContentType, video.Body)
		if err != nil {
			return nil, err
		}
		url, err := s.blob.URL(ctx, obj.Path)
		if err != nil {
			return nil, err
		}
		req.ReturnVideoURL = url
		v.VideoName = obj.Path
	}

	res, err := s.backend.ReturnValidation(ctx, req)
	if err != nil {
		return nil, err
	}
	v.Valid = res.Valid
	v.ReturnType = res.ReturnType
	v.Reasoning = res.Reasoning

	next, err := workflow.SubmitReturn(o, productID, v, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.backend.UpdateOrder(ctx, next); err != nil {
		return nil, err
	}

	s.analytics.LogEvent(ctx, events.ReturnSubmitted, userID, sessionID, map[string]interface{}{
		"order_id":    orderID,
		"item_id":     productID,
		"valid":       res.Valid,
		"return_type": res.ReturnType,
	})
	return orderResponse(next), nil
}

// Decide records a reviewer's verdict; the reviewer is not the order owner.
func (s *returnsService) Decide(ctx context.Context, reviewerID, orderID, productID string, accept bool) (*dto.OrderResponse, error) {
	o, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	next, err := workflow.Decide(o, productID, accept)
	if err != nil {
		return nil, err
	}
	if err := s.backend.UpdateOrder(ctx, next); err != nil {
		return nil, err
	}
	s.analytics.LogEvent(ctx, events.ReturnDecided, reviewerID, "", map[string]interface{}{
		"order_id": orderID,
		"item_id":  productID,
		"accepted": accept,
	})
	return orderResponse(next), nil
}

func (s *returnsService) CompleteExchange(ctx context.Context, userID, orderID, productID string) (*dto.OrderResponse, error) {
	o, err := s.owned(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	next, err := workflow.CompleteExchange(o, productID)
	if err != nil {
		return nil, err
	}
	if err := s.backend.UpdateOrder(ctx, next); err != nil {
		return nil, err
	}
	return orderResponse(next), nil
}

func (s *returnsService) Similar(ctx context.Context, req *dto.SimilarItemsRequest) ([]any, error) {
	if req.Image == "" && req.Query == "" {
		return nil, fiber.NewError(fiber.StatusBadRequest, "image or query is required")
	}
	return s.backend.SearchSimilar(ctx, req.Image, req.Query)
}
