package dto

import "cymbal-assist-be/internal/pkg/serverutils"

type LoginResponse struct {
	AccessToken string               `json:"access_token"`
	User        serverutils.Identity `json:"user"`
}
