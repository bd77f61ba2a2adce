package dto

type ActivityRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	CustomerID  string `json:"customer_id" validate:"required"`
}

type ActivityStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=Open 'In progress' Completed"`
}

type GenerateActivityRequest struct {
	CustomerID   string `json:"customer_id" validate:"required"`
	Conversation string `json:"conversation" validate:"required"`
}

type ScheduleVisitRequest struct {
	Attendees []string `json:"attendees" validate:"required,min=1"`
	StartTime string   `json:"start_time" validate:"required"`
}
