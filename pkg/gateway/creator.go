package gateway

import (
	"context"
	"net/http"

	"cymbal-assist-be/pkg/catalog"
)

type GenerateImageRequest struct {
	Prompt         string `json:"prompt"`
	NumberOfImages int    `json:"number_of_images"`
	NegativePrompt string `json:"negative_prompt"`
}

type EditImageRequest struct {
	Prompt         string `json:"prompt"`
	BaseImageName  string `json:"base_image_name"`
	MaskImageName  string `json:"mask_image_name"`
	NumberOfImages int    `json:"number_of_images"`
	NegativePrompt string `json:"negative_prompt"`
}

type GeneratedImage struct {
	ImageName       string         `json:"image_name"`
	ImageSize       []int          `json:"image_size"`
	ImageParameters map[string]any `json:"image_parameters"`
}

type GeneratedImagesResponse struct {
	GeneratedImages []GeneratedImage `json:"generated_images"`
}

func (c *Client) GenerateImage(ctx context.Context, req GenerateImageRequest) (GeneratedImagesResponse, error) {
	if req.NumberOfImages <= 0 {
		req.NumberOfImages = 1
	}
	var res GeneratedImagesResponse
	err := c.do(ctx, "generate-image", http.MethodPost, "/p2/generate-image", req, &res)
	return res, err
}

func (c *Client) EditImage(ctx context.Context, req EditImageRequest) (GeneratedImagesResponse, error) {
	if req.NumberOfImages <= 0 {
		req.NumberOfImages = 1
	}
	var res GeneratedImagesResponse
	err := c.do(ctx, "edit-image", http.MethodPost, "/p2/edit-image", req, &res)
	return res, err
}

type DetectCategoriesResponse struct {
	VisionLabels     []string `json:"vision_labels"`
	ImagesFeatures   []any    `json:"images_features"`
	ImagesCategories []any    `json:"images_categories"`
	SimilarProducts  []any    `json:"similar_products"`
}

func (c *Client) DetectProductCategories(ctx context.Context, imageNames []string) (DetectCategoriesResponse, error) {
	var res DetectCategoriesResponse
	err := c.do(ctx, "detect-product-categories", http.MethodPost, "/p2/detect-product-categories",
		map[string]any{"images_names": imageNames}, &res)
	return res, err
}

type TitleDescriptionRequest struct {
	ProductCategories []string `json:"product_categories"`
	Context           string   `json:"context"`
}

type TitleDescriptionResponse struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (c *Client) GenerateTitleDescription(ctx context.Context, req TitleDescriptionRequest) (TitleDescriptionResponse, error) {
	var res TitleDescriptionResponse
	err := c.do(ctx, "generate-title-description", http.MethodPost, "/p2/generate-title-description", req, &res)
	return res, err
}

func (c *Client) SaveProduct(ctx context.Context, userID string, d catalog.Draft) error {
	return c.do(ctx, "save-product", http.MethodPost, pathEscape("/p2/user-product", userID), d, nil)
}

func (c *Client) UpdateProduct(ctx context.Context, userID, productID string, d catalog.Draft) error {
	return c.do(ctx, "update-product", http.MethodPut, pathEscape("/p2/user-product", userID, productID), d, nil)
}

func (c *Client) DeleteProduct(ctx context.Context, userID, productID string) error {
	return c.do(ctx, "delete-product", http.MethodDelete, pathEscape("/p2/user-product", userID, productID), nil, nil)
}

func (c *Client) SaveService(ctx context.Context, userID string, s catalog.Service) error {
	return c.do(ctx, "save-service", http.MethodPost, pathEscape("/p2/user-service", userID), s, nil)
}

func (c *Client) UpdateService(ctx context.Context, userID, serviceID string, s catalog.Service) error {
	return c.do(ctx, "update-service", http.MethodPut, pathEscape("/p2/user-service", userID, serviceID), s, nil)
}

func (c *Client) DeleteService(ctx context.Context, userID, serviceID string) error {
	return c.do(ctx, "delete-service", http.MethodDelete, pathEscape("/p2/user-service", userID, serviceID), nil, nil)
}
