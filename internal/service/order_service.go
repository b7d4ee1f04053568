package service

import (
	"context"
	"fmt"
	"time"

	"glowhair/internal/broker"
	"glowhair/internal/checkout"
	"glowhair/internal/models"
	"glowhair/internal/store"
	"glowhair/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService is the backend side of order creation: it persists the
// order with its line items and address snapshot and announces it on the
// event bus. It is the in-process implementation of checkout.OrderPlacer.
type OrderService struct {
	store          *store.Store
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(store *store.Store, eventPublisher *broker.EventPublisher) *OrderService {
	return &OrderService{
		store:          store,
		eventPublisher: eventPublisher,
		logger:         util.NamedLogger("orders"),
	}
}

// Store exposes the backing store for read-side handlers.
func (s *OrderService) Store() *store.Store {
	return s.store
}

// PlaceOrder persists one submitted order. Requests replayed with the
// same idempotency key return the original order instead of creating a
// duplicate.
func (s *OrderService) PlaceOrder(ctx context.Context, req *checkout.OrderRequest) (*checkout.OrderResult, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.PlaceOrder")
	defer span.End()

	if len(req.Items) == 0 {
		util.OrdersFailedTotal.WithLabelValues("no_items").Inc()
		return nil, &checkout.PlacementError{Message: "Order has no items"}
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.New().String()
	}

	existing, err := s.store.GetOrderByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}
	if existing != nil {
		s.logger.Info("Duplicate order request detected",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Int64("order_id", existing.ID))
		return &checkout.OrderResult{OrderID: existing.ID}, nil
	}

	order := &models.Order{
		UserID:         req.UserID,
		Subtotal:       req.Subtotal,
		Shipping:       req.Shipping,
		Tax:            req.Tax,
		Total:          req.Total,
		PaymentMethod:  req.PaymentMethod,
		PaymentStatus:  req.PaymentStatus,
		Status:         models.OrderStatusSubmitted,
		IdempotencyKey: req.IdempotencyKey,
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	eventItems := make([]models.OrderItemData, 0, len(req.Items))
	for _, item := range req.Items {
		orderItem := &models.OrderItem{
			OrderID:      order.ID,
			ProductID:    item.ProductID,
			Quantity:     item.Quantity,
			Price:        item.Price,
			ProductName:  item.ProductName,
			ProductImage: item.ProductImage,
		}
		if err := s.store.CreateOrderItem(ctx, orderItem); err != nil {
			util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}

		eventItems = append(eventItems, models.OrderItemData{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	addr := req.ShippingAddress
	if err := s.store.CreateShippingAddress(ctx, order.ID, &addr); err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to store shipping address: %w", err)
	}

	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.String("payment_method", order.PaymentMethod))

	event := &models.OrderSubmittedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderSubmitted,
			Timestamp: time.Now(),
		},
		OrderID:       order.ID,
		UserID:        order.UserID,
		Total:         order.Total,
		PaymentMethod: order.PaymentMethod,
		PaymentStatus: order.PaymentStatus,
		Items:         eventItems,
	}

	if err := s.eventPublisher.PublishOrderSubmitted(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderSubmitted event", zap.Error(err))
	}

	return &checkout.OrderResult{OrderID: order.ID}, nil
}

// GetOrder retrieves an order with its items and address snapshot
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*models.Order, []models.OrderItem, *models.ShippingAddress, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, nil, err
	}

	items, err := s.store.GetOrderItemsByOrderID(ctx, orderID)
	if err != nil {
		return nil, nil, nil, err
	}

	addr, err := s.store.GetShippingAddress(ctx, orderID)
	if err != nil {
		return nil, nil, nil, err
	}

	return order, items, addr, nil
}
