package checkout

import (
	"context"
	"errors"
	"sync"
	"time"

	"glowhair/internal/cart"
	"glowhair/internal/models"
	"glowhair/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderRequest is the payload handed to the order placer. The consumer
// defines this contract; placers adapt it to whatever backend they talk
// to.
type OrderRequest struct {
	UserID          string                 `json:"user_id"`
	Subtotal        float64                `json:"subtotal"`
	Shipping        float64                `json:"shipping"`
	Tax             float64                `json:"tax"`
	Total           float64                `json:"total"`
	PaymentMethod   string                 `json:"payment_method"`
	PaymentStatus   string                 `json:"payment_status"`
	ShippingAddress models.ShippingAddress `json:"shipping_address"`
	Items           []OrderRequestItem     `json:"items"`
	IdempotencyKey  string                 `json:"idempotency_key,omitempty"`
}

// OrderRequestItem is one cart line on the order payload.
type OrderRequestItem struct {
	ProductID    int64   `json:"product_id"`
	Quantity     int     `json:"quantity"`
	Price        float64 `json:"price"`
	ProductName  string  `json:"product_name"`
	ProductImage string  `json:"product_image"`
}

// OrderResult holds the acknowledgement of a placed order.
type OrderResult struct {
	OrderID int64
}

// OrderPlacer submits one order-creation request. Implementations: the
// in-process order service and the remote HTTP client.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req *OrderRequest) (*OrderResult, error)
}

// PlacementError carries the server-provided message for a rejected
// order. Other error types surface the generic message to the shopper.
type PlacementError struct {
	Message string
}

func (e *PlacementError) Error() string {
	return e.Message
}

var (
	ErrSubmissionInFlight = errors.New("order submission already in progress")
	ErrAlreadySubmitted   = errors.New("order already submitted")
	ErrNotAtConfirmation  = errors.New("checkout is not at the confirmation step")
	ErrEmptyCart          = errors.New("cart is empty")
)

const genericSubmitMessage = "Could not process your order. Please try again."

// Timing holds the post-submission delays: the simulated processing wait
// for prepaid methods and the pause before the success redirect.
type Timing struct {
	ProcessingDelay time.Duration
	RedirectDelay   time.Duration
}

// Session drives one shopper through the four checkout steps over a cart
// store, and owns the single terminal submission. Form data is held in
// memory only; abandoning the session discards it.
type Session struct {
	mu          sync.Mutex
	id          string
	userID      string
	cart        *cart.Store
	placer      OrderPlacer
	timing      Timing
	logger      *zap.Logger
	onRedirect  func(orderID int64)
	step        Step
	form        Form
	fieldErrors map[string]string
	submitting  bool
	submitted   bool
	orderID     int64
	lastError   string
}

// NewSession starts a checkout at the personal-info step with the
// storefront defaults selected.
func NewSession(userID string, c *cart.Store, placer OrderPlacer, timing Timing) *Session {
	return &Session{
		id:     uuid.New().String(),
		userID: userID,
		cart:   c,
		placer: placer,
		timing: timing,
		logger: util.NamedLogger("checkout"),
		step:   StepPersonalInfo,
		form: Form{
			DeliveryMethod: models.DeliveryMethodDelivery,
			PaymentMethod:  models.PaymentMethodMercadoPago,
			Country:        "Uruguay",
		},
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// UserID returns the shopper this session belongs to.
func (s *Session) UserID() string {
	return s.userID
}

// OnRedirect registers the hook fired once after a successful submission,
// when the success screen hands control back to the storefront.
func (s *Session) OnRedirect(fn func(orderID int64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRedirect = fn
}

// Submitted reports whether the order went through, and its id.
func (s *Session) Submitted() (bool, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitted, s.orderID
}

// ErrorMessage returns the shopper-facing message from the last failed
// submission, or empty.
func (s *Session) ErrorMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// SubmitResult reports a successful submission and when the cart clear
// and redirect will fire.
type SubmitResult struct {
	OrderID       int64
	RedirectAfter time.Duration
}

// Submit places the order. Only valid at the confirmation step, with a
// non-empty cart, and with no submission in flight. On failure the
// session stays at confirmation with form and cart intact, and the
// server's error message (or a generic one) is kept for display; retry
// is always shopper-initiated. On success the cart is cleared exactly
// once, after the redirect delay.
func (s *Session) Submit(ctx context.Context) (*SubmitResult, error) {
	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	if s.submitted {
		s.mu.Unlock()
		return nil, ErrAlreadySubmitted
	}
	if s.step != StepConfirmation {
		s.mu.Unlock()
		return nil, ErrNotAtConfirmation
	}
	form := s.form
	s.submitting = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.submitting = false
		s.mu.Unlock()
	}()

	items := s.cart.Items()
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	ctx, span := util.StartSpan(ctx, "Checkout.Submit")
	defer span.End()

	totals := Quote(items, form.DeliveryMethod, form.City)
	req := s.buildOrderRequest(form, items, totals)

	start := time.Now()
	res, err := s.placer.PlaceOrder(ctx, req)
	util.OrderSubmitLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		msg := genericSubmitMessage
		var pe *PlacementError
		if errors.As(err, &pe) && pe.Message != "" {
			msg = pe.Message
		}

		s.mu.Lock()
		s.lastError = msg
		s.mu.Unlock()

		s.logger.Error("Order submission failed",
			zap.String("session_id", s.id),
			zap.Error(err))
		return nil, err
	}

	if form.PaymentMethod != models.PaymentMethodCash {
		// Stands in for the payment-gateway redirect, which is handled
		// out of band by the payment worker.
		time.Sleep(s.timing.ProcessingDelay)
	}

	s.mu.Lock()
	s.submitted = true
	s.orderID = res.OrderID
	s.lastError = ""
	redirect := s.onRedirect
	s.mu.Unlock()

	util.OrdersSubmittedTotal.Inc()
	s.logger.Info("Order submitted",
		zap.String("session_id", s.id),
		zap.Int64("order_id", res.OrderID))

	time.AfterFunc(s.timing.RedirectDelay, func() {
		s.cart.Clear(context.Background())
		if redirect != nil {
			redirect(res.OrderID)
		}
	})

	return &SubmitResult{
		OrderID:       res.OrderID,
		RedirectAfter: s.timing.RedirectDelay,
	}, nil
}

func (s *Session) buildOrderRequest(form Form, items []models.CartItem, totals models.Totals) *OrderRequest {
	reqItems := make([]OrderRequestItem, 0, len(items))
	for _, item := range items {
		reqItems = append(reqItems, OrderRequestItem{
			ProductID:    item.ID,
			Quantity:     item.Quantity,
			Price:        item.Price,
			ProductName:  item.Name,
			ProductImage: item.Image,
		})
	}

	return &OrderRequest{
		UserID:          s.userID,
		Subtotal:        totals.Subtotal,
		Shipping:        totals.Shipping,
		Tax:             totals.Tax,
		Total:           totals.Total,
		PaymentMethod:   normalizePaymentMethod(form.PaymentMethod),
		PaymentStatus:   initialPaymentStatus(form.PaymentMethod),
		ShippingAddress: form.ShippingAddress(),
		Items:           reqItems,
		IdempotencyKey:  s.id,
	}
}

func normalizePaymentMethod(method string) string {
	switch method {
	case models.PaymentMethodCard:
		return models.PaymentCodeCreditCard
	case models.PaymentMethodCash:
		return models.PaymentCodeCash
	default:
		return models.PaymentCodeMercadoPago
	}
}

func initialPaymentStatus(method string) string {
	if method == models.PaymentMethodCash {
		return models.PaymentStatusPendingCash
	}
	return models.PaymentStatusPending
}
