package models

import "time"

// Product represents a product in the catalog. Stock is the availability
// the caller observed when it handed the product over; the cart trusts it
// as-is and never queries availability itself.
type Product struct {
	ID            int64   `db:"id" json:"id"`
	Name          string  `db:"name" json:"name"`
	Price         float64 `db:"price" json:"price"`
	OriginalPrice float64 `db:"original_price" json:"original_price,omitempty"`
	Image         string  `db:"image" json:"image"`
	Category      string  `db:"category" json:"category"`
	Brand         string  `db:"brand" json:"brand"`
	Size          string  `db:"size" json:"size,omitempty"`
	Stock         int     `db:"stock" json:"stock"`
}

// CartItem is a product plus the quantity in the cart.
// Invariant: 1 <= Quantity <= Stock.
type CartItem struct {
	Product
	Quantity int `json:"quantity"`
}

// Subtotal returns price * quantity for this line.
func (ci CartItem) Subtotal() float64 {
	return ci.Price * float64(ci.Quantity)
}

// CartSnapshot is the persisted form of the cart. SchemaVersion gates
// rehydration: snapshots with an unknown version are discarded wholesale
// instead of migrated.
type CartSnapshot struct {
	SchemaVersion int        `json:"schema_version"`
	Items         []CartItem `json:"items"`
	Total         float64    `json:"total"`
	ItemCount     int        `json:"item_count"`
	SavedAt       time.Time  `json:"saved_at"`
}

// CartSnapshotVersion is the current persisted schema version. Version 0
// covers the legacy storefront format whose image field held a rendered
// icon object rather than a URL.
const CartSnapshotVersion = 1

// Delivery methods
const (
	DeliveryMethodDelivery = "delivery"
	DeliveryMethodPickup   = "pickup"
)

// Delivery cities with a fixed shipping fee. Any other city ships
// destination-paid.
const (
	CityMontevideo = "Montevideo"
	CityCanelones  = "Canelones"
	CityOther      = "Otro"
)

// Payment methods as selected in checkout
const (
	PaymentMethodCard        = "card"
	PaymentMethodMercadoPago = "mercadopago"
	PaymentMethodCash        = "cash"
)

// Normalized payment method codes sent on the order payload
const (
	PaymentCodeCreditCard  = "credit_card"
	PaymentCodeMercadoPago = "mercadopago"
	PaymentCodeCash        = "cash"
)

// Payment statuses
const (
	PaymentStatusPending     = "pending"
	PaymentStatusPendingCash = "pending_cash"
	PaymentStatusPaid        = "paid"
	PaymentStatusFailed      = "failed"
)

// Order statuses
const (
	OrderStatusSubmitted = "SUBMITTED"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusFailed    = "FAILED"
)

// Totals is the monetary breakdown of a cart: subtotal, 16% tax, the
// delivery fee, and their sum, each rounded to 2 decimals independently.
// ShippingDueOnDelivery marks quotes whose shipping is collected by the
// carrier at the destination and therefore excluded from Total.
type Totals struct {
	Subtotal              float64 `json:"subtotal"`
	Shipping              float64 `json:"shipping"`
	Tax                   float64 `json:"tax"`
	Total                 float64 `json:"total"`
	ShippingDueOnDelivery bool    `json:"shipping_due_on_delivery,omitempty"`
}

// ShippingAddress is the address snapshot stored with an order.
type ShippingAddress struct {
	Address    string `db:"address" json:"address"`
	City       string `db:"city" json:"city"`
	State      string `db:"state" json:"state"`
	PostalCode string `db:"postal_code" json:"postal_code"`
	Country    string `db:"country" json:"country"`
}

// Order represents a submitted customer order.
type Order struct {
	ID             int64     `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	Subtotal       float64   `db:"subtotal" json:"subtotal"`
	Shipping       float64   `db:"shipping" json:"shipping"`
	Tax            float64   `db:"tax" json:"tax"`
	Total          float64   `db:"total" json:"total"`
	PaymentMethod  string    `db:"payment_method" json:"payment_method"`
	PaymentStatus  string    `db:"payment_status" json:"payment_status"`
	Status         string    `db:"status" json:"status"`
	IdempotencyKey string    `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// OrderItem represents one cart line frozen into an order.
type OrderItem struct {
	ID           int64   `db:"id" json:"id"`
	OrderID      int64   `db:"order_id" json:"order_id"`
	ProductID    int64   `db:"product_id" json:"product_id"`
	Quantity     int     `db:"quantity" json:"quantity"`
	Price        float64 `db:"price" json:"price"`
	ProductName  string  `db:"product_name" json:"product_name"`
	ProductImage string  `db:"product_image" json:"product_image"`
}

// ProcessedEvent for consumer idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
