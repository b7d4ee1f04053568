package models

import "time"

// Event types
const (
	EventTypeOrderSubmitted = "ORDER_SUBMITTED"
	EventTypeOrderConfirmed = "ORDER_CONFIRMED"
	EventTypeOrderFailed    = "ORDER_FAILED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderSubmittedEvent published when checkout submits an order
type OrderSubmittedEvent struct {
	BaseEvent
	OrderID       int64           `json:"order_id"`
	UserID        string          `json:"user_id"`
	Total         float64         `json:"total"`
	PaymentMethod string          `json:"payment_method"`
	PaymentStatus string          `json:"payment_status"`
	Items         []OrderItemData `json:"items"`
}

// OrderConfirmedEvent published when payment settles
type OrderConfirmedEvent struct {
	BaseEvent
	OrderID int64  `json:"order_id"`
	UserID  string `json:"user_id"`
	TxID    string `json:"tx_id"`
}

// OrderFailedEvent published when payment is declined
type OrderFailedEvent struct {
	BaseEvent
	OrderID int64  `json:"order_id"`
	Reason  string `json:"reason"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID int64   `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}
