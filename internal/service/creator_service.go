package service

import (
	"context"
	"errors"

	"cymbal-assist-be/internal/dto"
	"cymbal-assist-be/internal/pkg/logger"
	"cymbal-assist-be/pkg/blob"
	"cymbal-assist-be/pkg/catalog"
	"cymbal-assist-be/pkg/docstore"
	"cymbal-assist-be/pkg/gateway"
)

type CreatorBackend interface {
	GenerateImage(ctx context.Context, req gateway.GenerateImageRequest) (gateway.GeneratedImagesResponse, error)
	EditImage(ctx context.Context, req gateway.EditImageRequest) (gateway.GeneratedImagesResponse, error)
	DetectProductCategories(ctx context.Context, imageNames []string) (gateway.DetectCategoriesResponse, error)
	GenerateTitleDescription(ctx context.Context, req gateway.TitleDescriptionRequest) (gateway.TitleDescriptionResponse, error)
	SaveProduct(ctx context.Context, userID string, d catalog.Draft) error
	UpdateProduct(ctx context.Context, userID, productID string, d catalog.Draft) error
	DeleteProduct(ctx context.Context, userID, productID string) error
	SaveService(ctx context.Context, userID string, s catalog.Service) error
	UpdateService(ctx context.Context, userID, serviceID string, s catalog.Service) error
	DeleteService(ctx context.Context, userID, serviceID string) error
}

type ICreatorService interface {
	UploadImage(ctx context.Context, file *Upload) (*dto.UploadResponse, error)
	GenerateImage(ctx context.Context, req *dto.GenerateImageRequest) (gateway.GeneratedImagesResponse, error)
	EditImage(ctx context.Context, req *dto.EditImageRequest) (gateway.GeneratedImagesResponse, error)
	DetectCategories(ctx context.Context, req *dto.DetectCategoriesRequest) (gateway.DetectCategoriesResponse, error)
	TitleDescription(ctx context.Context, req *dto.TitleDescriptionRequest) (gateway.TitleDescriptionResponse, error)

	WatchCatalog(ctx context.Context, userID, sessionID string) error
	SaveProduct(ctx context.Context, userID string, d *catalog.Draft) error
	UpdateProduct(ctx context.Context, userID, productID string, d *catalog.Draft) error
	DeleteProduct(ctx context.Context, userID, productID string) error
	SaveService(ctx context.Context, userID string, svc *catalog.Service) error
	UpdateService(ctx context.Context, userID, serviceID string, svc *catalog.Service) error
	DeleteService(ctx context.Context, userID, serviceID string) error
}

type creatorService struct {
	backend  CreatorBackend
	store    docstore.Store
	blob     blob.Storage
	sessions ISessionService
	delivery FrameDelivery
	logger   logger.ILogger
}

func NewCreatorService(
	backend CreatorBackend,
	store docstore.Store,
	storage blob.Storage,
	sessions ISessionService,
	delivery FrameDelivery,
	log logger.ILogger,
) ICreatorService {
	return &creatorService{
		backend:  backend,
		store:    store,
		blob:     storage,
		sessions: sessions,
		delivery: delivery,
		logger:   log,
	}
}

// UploadImage stores a base image under images/; the returned name is what
// the image endpoints expect.
func (s *creatorService) UploadImage(ctx context.Context, file *Upload) (*dto.UploadResponse, error) {
	obj, err := s.blob.Upload(ctx, blob.ImagesPrefix, file.ContentType, file.Body)
	if err != nil {
		return nil, err
	}
	url, err := s.blob.URL(ctx, obj.Path)
	if err != nil {
		return nil, err
	}
	return &dto.UploadResponse{Name: obj.Name, Path: obj.Path, URL: url}, nil
}

func (s *creatorService) GenerateImage(ctx context.Context, req *dto.GenerateImageRequest) (gateway.GeneratedImagesResponse, error) {
	return s.backend.GenerateImage(ctx, gateway.GenerateImageRequest{
		Prompt:         req.Prompt,
		NumberOfImages: req.NumberOfImages,
		NegativePrompt: req.NegativePrompt,
	})
}

func (s *creatorService) EditImage(ctx context.Context, req *dto.EditImageRequest) (gateway.GeneratedImagesResponse, error) {
	return s.backend.EditImage(ctx, gateway.EditImageRequest{
		Prompt:         req.Prompt,
		BaseImageName:  req.BaseImageName,
		MaskImageName:  req.MaskImageName,
		NumberOfImages: req.NumberOfImages,
		NegativePrompt: req.NegativePrompt,
	})
}

func (s *creatorService) DetectCategories(ctx context.Context, req *dto.DetectCategoriesRequest) (gateway.DetectCategoriesResponse, error) {
	return s.backend.DetectProductCategories(ctx, req.ImageNames)
}

func (s *creatorService) TitleDescription(ctx context.Context, req *dto.TitleDescriptionRequest) (gateway.TitleDescriptionResponse, error) {
	return s.backend.GenerateTitleDescription(ctx, gateway.TitleDescriptionRequest{
		ProductCategories: req.Categories,
		Context:           req.Context,
	})
}

// WatchCatalog follows the creator's products and services.
func (s *creatorService) WatchCatalog(_ context.Context, userID, sessionID string) error {
	sess, err := s.sessions.Get(userID, sessionID)
	if err != nil {
		return err
	}
	return errors.Join(
		watchCollection[catalog.Draft](sess, s.store, s.delivery, s.logger, "creator-products", dto.FrameCreatorProducts,
			docstore.Query{Collection: docstore.CreatorProducts(userID)}),
		watchCollection[catalog.Service](sess, s.store, s.delivery, s.logger, "creator-services", dto.FrameCreatorServices,
			docstore.Query{Collection: docstore.CreatorServices(userID)}),
	)
}

func (s *creatorService) SaveProduct(ctx context.Context, userID string, d *catalog.Draft) error {
	return s.backend.SaveProduct(ctx, userID, *d)
}

func (s *creatorService) UpdateProduct(ctx context.Context, userID, productID string, d *catalog.Draft) error {
	return s.backend.UpdateProduct(ctx, userID, productID, *d)
}

func (s *creatorService) DeleteProduct(ctx context.Context, userID, productID string) error {
	return s.backend.DeleteProduct(ctx, userID, productID)
}

func (s *creatorService) SaveService(ctx context.Context, userID string, svc *catalog.Service) error {
	return s.backend.SaveService(ctx, userID, *svc)
}

func (s *creatorService) UpdateService(ctx context.Context, userID, serviceID string, svc *catalog.Service) error {
	return s.backend.UpdateService(ctx, userID, serviceID, *svc)
}

func (s *creatorService) DeleteService(ctx context.Context, userID, serviceID string) error {
	return s.backend.DeleteService(ctx, userID, serviceID)
}
