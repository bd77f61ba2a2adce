package gateway

import (
	"context"
	"net/http"

	"cymbal-assist-be/pkg/catalog"
)

type ReturnValidationRequest struct {
	ProductURL     string `json:"product_url"`
	ReturnImage    string `json:"return_image,omitempty"`
	ReturnVideoURL string `json:"return_video_url,omitempty"`
}

type ReturnValidationResponse struct {
	Valid      bool   `json:"valid"`
	ReturnType string `json:"return_type"`
	Reasoning  string `json:"reasoning"`
}

func (c *Client) ReturnValidation(ctx context.Context, req ReturnValidationRequest) (ReturnValidationResponse, error) {
	var res ReturnValidationResponse
	err := c.do(ctx, "return-validation", http.MethodPost, "/p7/return-validation", req, &res)
	return res, err
}

func (c *Client) SearchSimilar(ctx context.Context, image, query string) ([]any, error) {
	var res struct {
		Results []any `json:"results"`
	}
	err := c.do(ctx, "search-similar", http.MethodPost, "/p7/search-similar",
		map[string]string{"image": image, "query": query}, &res)
	return res.Results, err
}

// UpdateOrder writes the whole order back.
func (c *Client) UpdateOrder(ctx context.Context, order catalog.Order) error {
	return c.do(ctx, "order-update", http.MethodPost, pathEscape("/p7/order-update", order.ID), order, nil)
}
