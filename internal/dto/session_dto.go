package dto

type SessionResponse struct {
	SessionID string `json:"session_id"`
	Language  string `json:"language"`
}

// SendMessageRequest is a query to one conversation surface. An image, when
// present, arrives as the multipart field "image".
type SendMessageRequest struct {
	Text    string `json:"text" form:"text"`
	Restart bool   `json:"restart" form:"restart"`
}

type SetLanguageRequest struct {
	Language string `json:"language" validate:"required"`
}

type DisplayRequest struct {
	Product *bool `json:"product"`
	Cart    *bool `json:"cart"`
}
