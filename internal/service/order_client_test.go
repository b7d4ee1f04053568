package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"glowhair/internal/checkout"
	"glowhair/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOrderRequest() *checkout.OrderRequest {
	return &checkout.OrderRequest{
		UserID:         "user-1",
		Subtotal:       59.98,
		Shipping:       160,
		Tax:            9.6,
		Total:          229.58,
		PaymentMethod:  models.PaymentCodeMercadoPago,
		PaymentStatus:  models.PaymentStatusPending,
		IdempotencyKey: "sess-abc",
		Items: []checkout.OrderRequestItem{
			{ProductID: 1, Quantity: 2, Price: 29.99, ProductName: "Repair Shampoo"},
		},
	}
}

func TestRemoteOrderClientReadsNestedOrderID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/orders", r.URL.Path)
		assert.Equal(t, "sess-abc", r.Header.Get("Idempotency-Key"))

		var req checkout.OrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "user-1", req.UserID)
		assert.Equal(t, 229.58, req.Total)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"order":{"id":42}}`))
	}))
	defer srv.Close()

	client := NewRemoteOrderClient(srv.URL)
	res, err := client.PlaceOrder(context.Background(), sampleOrderRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(42), res.OrderID)
}

func TestRemoteOrderClientReadsTopLevelID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":7}`))
	}))
	defer srv.Close()

	client := NewRemoteOrderClient(srv.URL)
	res, err := client.PlaceOrder(context.Background(), sampleOrderRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(7), res.OrderID)
}

func TestRemoteOrderClientSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Out of stock"}`))
	}))
	defer srv.Close()

	client := NewRemoteOrderClient(srv.URL)
	_, err := client.PlaceOrder(context.Background(), sampleOrderRequest())
	require.Error(t, err)

	var pe *checkout.PlacementError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "Out of stock", pe.Message)
}

func TestRemoteOrderClientRejectsResponseWithoutID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	client := NewRemoteOrderClient(srv.URL)
	_, err := client.PlaceOrder(context.Background(), sampleOrderRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order id missing")
}

func TestTotalsClientFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sess-abc", r.Header.Get("X-Session-ID"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"subtotal":59.98,"shipping":160,"tax":9.6,"total":229.58}`))
	}))
	defer srv.Close()

	client := NewTotalsClient(srv.URL)
	totals, err := client.Fetch(context.Background(), "sess-abc")
	require.NoError(t, err)
	assert.Equal(t, 229.58, totals.Total)
	assert.Equal(t, 160.0, totals.Shipping)
}

func TestTotalsClientReportsBackendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewTotalsClient(srv.URL)
	_, err := client.Fetch(context.Background(), "sess-abc")
	require.Error(t, err)
}
