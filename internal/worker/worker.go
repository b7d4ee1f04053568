package worker

import (
	"context"
	"log"

	"glowhair/internal/broker"
	"glowhair/internal/service"
)

// PaymentWorker settles submitted orders in the background: it consumes
// OrderSubmitted events and runs them through the payment processor.
type PaymentWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewPaymentWorker creates a new payment worker
func NewPaymentWorker(consumer *broker.Consumer, processor *service.PaymentProcessor) *PaymentWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderSubmitted(processor.ProcessOrderSubmitted)

	return &PaymentWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
}

// Start starts the worker
func (w *PaymentWorker) Start(ctx context.Context) error {
	log.Println("Starting payment worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *PaymentWorker) Stop() error {
	log.Println("Stopping payment worker...")
	return w.consumer.Close()
}
