package service

import (
	"context"
	"fmt"
	"time"

	"glowhair/internal/checkout"
	"glowhair/internal/models"
	"glowhair/internal/util"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// RemoteOrderClient submits orders to an external storefront API over
// HTTP. The response carries the order id either nested under "order" or
// at the top level; rejection bodies carry an "error" string.
type RemoteOrderClient struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewRemoteOrderClient creates a client for the orders API at baseURL.
// No automatic retries: every retry is shopper-initiated.
func NewRemoteOrderClient(baseURL string) *RemoteOrderClient {
	return &RemoteOrderClient{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(10 * time.Second).
			SetRetryCount(0),
		logger: util.NamedLogger("orders-client"),
	}
}

type orderAPIResponse struct {
	ID    int64 `json:"id"`
	Order *struct {
		ID int64 `json:"id"`
	} `json:"order"`
	Error string `json:"error"`
}

// PlaceOrder implements checkout.OrderPlacer against the remote API.
func (c *RemoteOrderClient) PlaceOrder(ctx context.Context, req *checkout.OrderRequest) (*checkout.OrderResult, error) {
	var body orderAPIResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", req.IdempotencyKey).
		SetBody(req).
		SetResult(&body).
		SetError(&body).
		Post("/api/orders")
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("network").Inc()
		return nil, fmt.Errorf("order request failed: %w", err)
	}

	if resp.IsError() {
		util.OrdersFailedTotal.WithLabelValues("rejected").Inc()
		c.logger.Warn("Order rejected by server",
			zap.Int("status", resp.StatusCode()),
			zap.String("error", body.Error))
		return nil, &checkout.PlacementError{Message: body.Error}
	}

	orderID := body.ID
	if body.Order != nil && body.Order.ID != 0 {
		orderID = body.Order.ID
	}
	if orderID == 0 {
		util.OrdersFailedTotal.WithLabelValues("bad_response").Inc()
		return nil, fmt.Errorf("order id missing in response")
	}

	return &checkout.OrderResult{OrderID: orderID}, nil
}

// TotalsClient double-checks cart totals against the backend. The call
// is advisory, so it sits behind a circuit breaker; callers fall back to
// the local pricing function when the fetch fails or the breaker is
// open.
type TotalsClient struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	url     string
	logger  *zap.Logger
}

// NewTotalsClient creates a totals client for the given endpoint.
func NewTotalsClient(url string) *TotalsClient {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "cart-totals",
		MaxRequests: 3,
		Interval:    15 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
	})

	return &TotalsClient{
		http: resty.New().
			SetTimeout(5 * time.Second).
			SetRetryCount(0),
		breaker: cb,
		url:     url,
		logger:  util.NamedLogger("totals-client"),
	}
}

// Fetch returns the backend's view of the session's cart totals.
func (c *TotalsClient) Fetch(ctx context.Context, sessionID string) (*models.Totals, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		var totals models.Totals
		resp, err := c.http.R().
			SetContext(ctx).
			SetHeader("X-Session-ID", sessionID).
			SetResult(&totals).
			Get(c.url)
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("totals fetch failed: %s", resp.Status())
		}
		return &totals, nil
	})
	if err != nil {
		util.TotalsFetchFallbacksTotal.Inc()
		return nil, err
	}

	return result.(*models.Totals), nil
}
