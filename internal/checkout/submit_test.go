package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"glowhair/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlacer struct {
	mu       sync.Mutex
	requests []*OrderRequest
	result   *OrderResult
	err      error
	block    chan struct{}
}

func (f *fakePlacer) PlaceOrder(_ context.Context, req *OrderRequest) (*OrderResult, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakePlacer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func fastTiming() Timing {
	return Timing{
		ProcessingDelay: time.Millisecond,
		RedirectDelay:   5 * time.Millisecond,
	}
}

func toConfirmation(t *testing.T, s *Session, deliveryMethod, paymentMethod string) {
	t.Helper()

	f := s.Form()
	validPersonalInfo(&f)
	f.DeliveryMethod = deliveryMethod
	if deliveryMethod == models.DeliveryMethodDelivery {
		validDeliveryAddress(&f)
	}
	f.PaymentMethod = paymentMethod
	s.SetForm(f)

	for i := 0; i < 3; i++ {
		_, errs := s.Next()
		require.Empty(t, errs)
	}
	require.Equal(t, StepConfirmation, s.Step())
}

func TestSubmitSuccessClearsCartAfterRedirectDelay(t *testing.T) {
	c := testCart(t)
	placer := &fakePlacer{result: &OrderResult{OrderID: 42}}
	s := NewSession("user-1", c, placer, fastTiming())
	toConfirmation(t, s, models.DeliveryMethodDelivery, models.PaymentMethodMercadoPago)

	redirected := make(chan int64, 1)
	s.OnRedirect(func(orderID int64) { redirected <- orderID })

	result, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), result.OrderID)

	submitted, orderID := s.Submitted()
	assert.True(t, submitted)
	assert.Equal(t, int64(42), orderID)

	select {
	case id := <-redirected:
		assert.Equal(t, int64(42), id)
	case <-time.After(time.Second):
		t.Fatal("redirect hook never fired")
	}
	assert.Empty(t, c.Items(), "cart must clear before the redirect fires")
}

func TestSubmitBuildsNormalizedPayload(t *testing.T) {
	c := testCart(t)
	placer := &fakePlacer{result: &OrderResult{OrderID: 7}}
	s := NewSession("user-9", c, placer, fastTiming())
	toConfirmation(t, s, models.DeliveryMethodDelivery, models.PaymentMethodMercadoPago)

	_, err := s.Submit(context.Background())
	require.NoError(t, err)

	require.Len(t, placer.requests, 1)
	req := placer.requests[0]

	assert.Equal(t, "user-9", req.UserID)
	assert.Equal(t, models.PaymentCodeMercadoPago, req.PaymentMethod)
	assert.Equal(t, models.PaymentStatusPending, req.PaymentStatus)
	assert.Equal(t, 59.98, req.Subtotal)
	assert.Equal(t, 9.6, req.Tax)
	assert.Equal(t, 160.0, req.Shipping)
	assert.Equal(t, 229.58, req.Total)
	assert.Equal(t, models.CityMontevideo, req.ShippingAddress.City)
	assert.Equal(t, s.ID(), req.IdempotencyKey)

	require.Len(t, req.Items, 1)
	assert.Equal(t, int64(1), req.Items[0].ProductID)
	assert.Equal(t, 2, req.Items[0].Quantity)
	assert.Equal(t, 29.99, req.Items[0].Price)
	assert.Equal(t, "Repair Shampoo", req.Items[0].ProductName)
	assert.Equal(t, "https://cdn.example.com/shampoo.jpg", req.Items[0].ProductImage)
}

func TestSubmitCashOrderPayload(t *testing.T) {
	c := testCart(t)
	placer := &fakePlacer{result: &OrderResult{OrderID: 8}}
	s := NewSession("user-1", c, placer, fastTiming())
	toConfirmation(t, s, models.DeliveryMethodPickup, models.PaymentMethodCash)

	_, err := s.Submit(context.Background())
	require.NoError(t, err)

	req := placer.requests[0]
	assert.Equal(t, models.PaymentCodeCash, req.PaymentMethod)
	assert.Equal(t, models.PaymentStatusPendingCash, req.PaymentStatus)
	assert.Equal(t, 0.0, req.Shipping)
}

func TestSubmitCardPaymentNormalizesToCreditCard(t *testing.T) {
	c := testCart(t)
	placer := &fakePlacer{result: &OrderResult{OrderID: 9}}
	s := NewSession("user-1", c, placer, fastTiming())

	f := s.Form()
	validPersonalInfo(&f)
	validDeliveryAddress(&f)
	f.PaymentMethod = models.PaymentMethodCard
	f.CardNumber = "4111111111111111"
	f.CardExpiry = "12/27"
	f.CardCVV = "123"
	f.CardName = "Ana Pérez"
	s.SetForm(f)
	for i := 0; i < 3; i++ {
		_, errs := s.Next()
		require.Empty(t, errs)
	}

	_, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCodeCreditCard, placer.requests[0].PaymentMethod)
}

func TestSubmitServerRejectionKeepsStateForRetry(t *testing.T) {
	c := testCart(t)
	placer := &fakePlacer{err: &PlacementError{Message: "Out of stock"}}
	s := NewSession("user-1", c, placer, fastTiming())
	toConfirmation(t, s, models.DeliveryMethodDelivery, models.PaymentMethodMercadoPago)
	form := s.Form()

	_, err := s.Submit(context.Background())
	require.Error(t, err)

	assert.Equal(t, StepConfirmation, s.Step())
	assert.Equal(t, "Out of stock", s.ErrorMessage())
	assert.Equal(t, form, s.Form())
	assert.Len(t, c.Items(), 1, "a failed submission must not clear the cart")

	submitted, _ := s.Submitted()
	assert.False(t, submitted)

	// Shopper-initiated retry goes through once the backend recovers.
	placer.err = nil
	placer.result = &OrderResult{OrderID: 11}
	result, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(11), result.OrderID)
	assert.Empty(t, s.ErrorMessage())
}

func TestSubmitNetworkErrorUsesGenericMessage(t *testing.T) {
	c := testCart(t)
	placer := &fakePlacer{err: errors.New("dial tcp: connection refused")}
	s := NewSession("user-1", c, placer, fastTiming())
	toConfirmation(t, s, models.DeliveryMethodDelivery, models.PaymentMethodMercadoPago)

	_, err := s.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, genericSubmitMessage, s.ErrorMessage())
}

func TestSubmitGuardsAgainstDoubleSubmit(t *testing.T) {
	c := testCart(t)
	placer := &fakePlacer{
		result: &OrderResult{OrderID: 5},
		block:  make(chan struct{}),
	}
	s := NewSession("user-1", c, placer, fastTiming())
	toConfirmation(t, s, models.DeliveryMethodDelivery, models.PaymentMethodMercadoPago)

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool {
		return placer.calls() == 1
	}, time.Second, time.Millisecond)

	_, err := s.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	close(placer.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, placer.calls(), "only one order may be created")
}

func TestSubmitAfterSuccessIsRejected(t *testing.T) {
	c := testCart(t)
	placer := &fakePlacer{result: &OrderResult{OrderID: 5}}
	s := NewSession("user-1", c, placer, fastTiming())
	toConfirmation(t, s, models.DeliveryMethodDelivery, models.PaymentMethodMercadoPago)

	_, err := s.Submit(context.Background())
	require.NoError(t, err)

	_, err = s.Submit(context.Background())
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	assert.Equal(t, 1, placer.calls())
}

func TestSubmitOnlyAtConfirmationStep(t *testing.T) {
	s := NewSession("user-1", testCart(t), &fakePlacer{}, fastTiming())

	_, err := s.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNotAtConfirmation)
}

func TestSubmitEmptyCartIsRejected(t *testing.T) {
	c := testCart(t)
	placer := &fakePlacer{result: &OrderResult{OrderID: 5}}
	s := NewSession("user-1", c, placer, fastTiming())
	toConfirmation(t, s, models.DeliveryMethodDelivery, models.PaymentMethodMercadoPago)

	c.Clear(context.Background())

	_, err := s.Submit(context.Background())
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Zero(t, placer.calls())
}
