package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"barterhub/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func transactionKey(id int64) string {
	return fmt.Sprintf("transaction-%d", id)
}

func roomKey(id int64) string {
	return fmt.Sprintf("room-%d", id)
}

// PublishOfferSubmitted publishes OfferSubmitted event
func (ep *EventPublisher) PublishOfferSubmitted(ctx context.Context, event *models.OfferSubmittedEvent) error {
	return ep.producer.PublishEvent(ctx, roomKey(event.RoomID), event)
}

// PublishOfferAccepted publishes OfferAccepted event
func (ep *EventPublisher) PublishOfferAccepted(ctx context.Context, event *models.OfferAcceptedEvent) error {
	return ep.producer.PublishEvent(ctx, transactionKey(event.TransactionID), event)
}

// PublishOfferDeclined publishes OfferDeclined event
func (ep *EventPublisher) PublishOfferDeclined(ctx context.Context, event *models.OfferDeclinedEvent) error {
	return ep.producer.PublishEvent(ctx, roomKey(event.RoomID), event)
}

// PublishTransactionAgreed publishes TransactionAgreed event
func (ep *EventPublisher) PublishTransactionAgreed(ctx context.Context, event *models.TransactionAgreedEvent) error {
	return ep.producer.PublishEvent(ctx, transactionKey(event.TransactionID), event)
}

// PublishTransactionShipped publishes TransactionShipped event
func (ep *EventPublisher) PublishTransactionShipped(ctx context.Context, event *models.TransactionShippedEvent) error {
	return ep.producer.PublishEvent(ctx, transactionKey(event.TransactionID), event)
}

// PublishTransactionCompleted publishes TransactionCompleted event
func (ep *EventPublisher) PublishTransactionCompleted(ctx context.Context, event *models.TransactionCompletedEvent) error {
	return ep.producer.PublishEvent(ctx, transactionKey(event.TransactionID), event)
}

// PublishTransactionCancelled publishes TransactionCancelled event
func (ep *EventPublisher) PublishTransactionCancelled(ctx context.Context, event *models.TransactionCancelledEvent) error {
	return ep.producer.PublishEvent(ctx, transactionKey(event.TransactionID), event)
}

// PublishTransactionDisputed publishes TransactionDisputed event
func (ep *EventPublisher) PublishTransactionDisputed(ctx context.Context, event *models.TransactionDisputedEvent) error {
	return ep.producer.PublishEvent(ctx, transactionKey(event.TransactionID), event)
}

// EventHandler routes incoming lifecycle events to registered callbacks
type EventHandler struct {
	onTransactionCompleted func(context.Context, *models.TransactionCompletedEvent) error
	onTransactionCancelled func(context.Context, *models.TransactionCancelledEvent) error
	onTransactionDisputed  func(context.Context, *models.TransactionDisputedEvent) error
	onOfferAccepted        func(context.Context, *models.OfferAcceptedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnTransactionCompleted registers a handler for TransactionCompleted events
func (eh *EventHandler) OnTransactionCompleted(handler func(context.Context, *models.TransactionCompletedEvent) error) {
	eh.onTransactionCompleted = handler
}

// OnTransactionCancelled registers a handler for TransactionCancelled events
func (eh *EventHandler) OnTransactionCancelled(handler func(context.Context, *models.TransactionCancelledEvent) error) {
	eh.onTransactionCancelled = handler
}

// OnTransactionDisputed registers a handler for TransactionDisputed events
func (eh *EventHandler) OnTransactionDisputed(handler func(context.Context, *models.TransactionDisputedEvent) error) {
	eh.onTransactionDisputed = handler
}

// OnOfferAccepted registers a handler for OfferAccepted events
func (eh *EventHandler) OnOfferAccepted(handler func(context.Context, *models.OfferAcceptedEvent) error) {
	eh.onOfferAccepted = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeTransactionCompleted:
		if eh.onTransactionCompleted != nil {
			var event models.TransactionCompletedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal TransactionCompleted event: %w", err)
			}
			return eh.onTransactionCompleted(ctx, &event)
		}

	case models.EventTypeTransactionCancelled:
		if eh.onTransactionCancelled != nil {
			var event models.TransactionCancelledEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal TransactionCancelled event: %w", err)
			}
			return eh.onTransactionCancelled(ctx, &event)
		}

	case models.EventTypeTransactionDisputed:
		if eh.onTransactionDisputed != nil {
			var event models.TransactionDisputedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal TransactionDisputed event: %w", err)
			}
			return eh.onTransactionDisputed(ctx, &event)
		}

	case models.EventTypeOfferAccepted:
		if eh.onOfferAccepted != nil {
			var event models.OfferAcceptedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OfferAccepted event: %w", err)
			}
			return eh.onOfferAccepted(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
