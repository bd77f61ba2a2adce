package dto

import "cymbal-assist-be/pkg/catalog"

type OrderResponse struct {
	Order       catalog.Order `json:"order"`
	AllReturned bool          `json:"all_returned"`
}

type ReturnDecisionRequest struct {
	Accept bool `json:"accept"`
}

type SimilarItemsRequest struct {
	Image string `json:"image"`
	Query string `json:"query"`
}
