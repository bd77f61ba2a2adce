// Package catalog holds the value records the backend owns: products,
// services, orders and field activities. The client treats them as immutable
// snapshots once fetched.
package catalog

type Product struct {
	ID          ProductID `json:"id" validate:"required"`
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description,omitempty"`
	ImageURLs   []string  `json:"image_urls,omitempty"`
	Image       string    `json:"image,omitempty"`
	Labels      []string  `json:"labels,omitempty"`
	Categories  []string  `json:"categories,omitempty"`
	Features    []string  `json:"features,omitempty"`
	Price       Money     `json:"price"`
}

// Service mirrors Product for the content creator's service catalogue.
type Service struct {
	ID          string   `json:"id,omitempty"`
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description" validate:"required"`
	ImageURLs   []string `json:"image_urls"`
	Labels      []string `json:"labels"`
	Categories  []string `json:"categories"`
	Features    []string `json:"features"`
}

// Draft is the payload of a content-creator product before it has an id.
type Draft struct {
	ID          string   `json:"id,omitempty"`
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description" validate:"required"`
	ImageURLs   []string `json:"image_urls"`
	Labels      []string `json:"labels"`
	Categories  []string `json:"categories"`
	Features    []string `json:"features"`
}

// Placeholder returns n empty product stand-ins rendered while a slot resolves.
func Placeholder(n int) []Product {
	out := make([]Product, n)
	return out
}

type OrderStatus string

const OrderStatusInitiated OrderStatus = "Initiated"

type ReturnMetadata struct {
	ImageUploaded      string `json:"image_uploaded"`
	VideoUploaded      string `json:"video_uploaded"`
	IsValid            bool   `json:"is_valid"`
	AIValidationReason string `json:"ai_validation_reason"`
	ReturnStatus       string `json:"return_status"`
	ReturnType         string `json:"return_type"`
	ReturnedDate       string `json:"returned_date"`
}

type OrderItem struct {
	Product
	IsReturned     bool            `json:"is_returned,omitempty"`
	ReturnMetadata *ReturnMetadata `json:"return_metadata,omitempty"`
}

type Order struct {
	ID             string      `json:"id,omitempty"`
	OrderDate      string      `json:"order_date" validate:"required"`
	OrderStatus    OrderStatus `json:"order_status" validate:"required"`
	OrderItems     []OrderItem `json:"order_items" validate:"required,min=1,dive"`
	UserID         string      `json:"user_id" validate:"required"`
	Email          string      `json:"email"`
	TotalAmount    Money       `json:"total_amount"`
	IsDelivery     bool        `json:"is_delivery"`
	IsPickup       bool        `json:"is_pickup"`
	PickupDatetime string      `json:"pickup_datetime"`
}

// AllReturned reports whether every item of the order has been returned.
func (o Order) AllReturned() bool {
	for _, it := range o.OrderItems {
		if !it.IsReturned {
			return false
		}
	}
	return true
}

// Item returns the index of the item with the given product id, or -1.
func (o Order) Item(productID string) int {
	for i, it := range o.OrderItems {
		if string(it.ID) == productID {
			return i
		}
	}
	return -1
}

type AgentActivity struct {
	ID          string    `json:"id,omitempty"`
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	CustomerID  string    `json:"customer_id" validate:"required"`
	Status      string    `json:"status" validate:"required,oneof=Open 'In progress' Completed"`
	Timestamp   Instant   `json:"timestamp"`
}
