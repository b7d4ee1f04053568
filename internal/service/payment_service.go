package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"glowhair/internal/broker"
	"glowhair/internal/models"
	"glowhair/internal/store"
	"glowhair/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChargeResult is the outcome of a payment attempt.
type ChargeResult struct {
	TxID     string
	Approved bool
	Reason   string
}

// PaymentGateway settles a submitted order. The checkout models payment
// confirmation behind this interface so a real provider can replace the
// simulated one without touching the workflow.
type PaymentGateway interface {
	Charge(ctx context.Context, order *models.Order) (*ChargeResult, error)
}

// SimulatedGateway stands in for a real payment provider: it waits a
// provider-shaped delay and approves. Cash orders settle with the
// courier, so they are approved without the delay. declineRate exists to
// exercise the failure path in tests.
type SimulatedGateway struct {
	delay       time.Duration
	declineRate float64
	logger      *zap.Logger
}

// NewSimulatedGateway creates a gateway that always approves.
func NewSimulatedGateway(delay time.Duration) *SimulatedGateway {
	return &SimulatedGateway{
		delay:  delay,
		logger: util.NamedLogger("gateway"),
	}
}

// NewFlakySimulatedGateway creates a gateway declining the given share
// of charges.
func NewFlakySimulatedGateway(delay time.Duration, declineRate float64) *SimulatedGateway {
	g := NewSimulatedGateway(delay)
	g.declineRate = declineRate
	return g
}

// Charge processes one payment.
func (g *SimulatedGateway) Charge(ctx context.Context, order *models.Order) (*ChargeResult, error) {
	util.PaymentAttemptsTotal.Inc()
	start := time.Now()
	defer func() {
		util.PaymentProcessingLatency.Observe(time.Since(start).Seconds())
	}()

	if order.PaymentMethod != models.PaymentCodeCash {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if rand.Float64() < g.declineRate {
		util.PaymentFailedTotal.Inc()
		g.logger.Warn("Payment declined", zap.Int64("order_id", order.ID))
		return &ChargeResult{Approved: false, Reason: "payment_declined"}, nil
	}

	txID := fmt.Sprintf("TXN-%s", uuid.New().String()[:8])
	util.PaymentSuccessTotal.Inc()
	g.logger.Info("Payment approved",
		zap.Int64("order_id", order.ID),
		zap.String("tx_id", txID))

	return &ChargeResult{TxID: txID, Approved: true}, nil
}

// PaymentProcessor settles submitted orders: it charges the gateway,
// records the outcome, deducts sold stock, and publishes the resulting
// event. Driven by the payment worker off the order events topic.
type PaymentProcessor struct {
	store          *store.Store
	gateway        PaymentGateway
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewPaymentProcessor creates a payment processor.
func NewPaymentProcessor(store *store.Store, gateway PaymentGateway, eventPublisher *broker.EventPublisher) *PaymentProcessor {
	return &PaymentProcessor{
		store:          store,
		gateway:        gateway,
		eventPublisher: eventPublisher,
		logger:         util.NamedLogger("payments"),
	}
}

// ProcessOrderSubmitted handles one OrderSubmitted event. Events are
// deduplicated through the processed_events table.
func (p *PaymentProcessor) ProcessOrderSubmitted(ctx context.Context, event *models.OrderSubmittedEvent) error {
	ctx, span := util.StartSpan(ctx, "PaymentProcessor.ProcessOrderSubmitted")
	defer span.End()

	processed, err := p.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		p.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	order, err := p.store.GetOrderByID(ctx, event.OrderID)
	if err != nil {
		return fmt.Errorf("failed to load order: %w", err)
	}

	result, err := p.gateway.Charge(ctx, order)
	if err != nil {
		return fmt.Errorf("charge failed: %w", err)
	}

	if result.Approved {
		if err := p.confirm(ctx, order, event, result.TxID); err != nil {
			return err
		}
	} else {
		if err := p.fail(ctx, order, result.Reason); err != nil {
			return err
		}
	}

	if err := p.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		p.logger.Error("Failed to mark event processed", zap.Error(err))
	}
	return nil
}

func (p *PaymentProcessor) confirm(ctx context.Context, order *models.Order, event *models.OrderSubmittedEvent, txID string) error {
	// Cash orders stay pending_cash until the courier collects; the
	// order itself is still confirmed for fulfillment.
	if order.PaymentMethod != models.PaymentCodeCash {
		if err := p.store.UpdatePaymentStatus(ctx, order.ID, models.PaymentStatusPaid); err != nil {
			return fmt.Errorf("failed to update payment status: %w", err)
		}
	}

	if err := p.store.UpdateOrderStatus(ctx, order.ID, models.OrderStatusConfirmed); err != nil {
		return fmt.Errorf("failed to confirm order: %w", err)
	}

	for _, item := range event.Items {
		if err := p.store.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			p.logger.Error("Failed to deduct stock",
				zap.Int64("product_id", item.ProductID),
				zap.Error(err))
		}
	}

	confirmed := &models.OrderConfirmedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderConfirmed,
			Timestamp: time.Now(),
		},
		OrderID: order.ID,
		UserID:  order.UserID,
		TxID:    txID,
	}
	if err := p.eventPublisher.PublishOrderConfirmed(ctx, confirmed); err != nil {
		p.logger.Error("Failed to publish OrderConfirmed event", zap.Error(err))
	}

	p.logger.Info("Order confirmed", zap.Int64("order_id", order.ID))
	return nil
}

func (p *PaymentProcessor) fail(ctx context.Context, order *models.Order, reason string) error {
	if err := p.store.UpdatePaymentStatus(ctx, order.ID, models.PaymentStatusFailed); err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	if err := p.store.UpdateOrderStatus(ctx, order.ID, models.OrderStatusFailed); err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	failed := &models.OrderFailedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderFailed,
			Timestamp: time.Now(),
		},
		OrderID: order.ID,
		Reason:  reason,
	}
	if err := p.eventPublisher.PublishOrderFailed(ctx, failed); err != nil {
		p.logger.Error("Failed to publish OrderFailed event", zap.Error(err))
	}

	p.logger.Warn("Order failed",
		zap.Int64("order_id", order.ID),
		zap.String("reason", reason))
	return nil
}
