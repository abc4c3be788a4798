package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"biblioteca-server/internal/models"

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

// PublishBooksIngested publishes a BooksIngested event
func (ep *EventPublisher) PublishBooksIngested(ctx context.Context, event *models.BooksIngestedEvent) error {
	key := fmt.Sprintf("bookstore-%d", event.BookstoreID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishImageUploaded publishes an ImageUploaded event
func (ep *EventPublisher) PublishImageUploaded(ctx context.Context, event *models.ImageUploadedEvent) error {
	key := fmt.Sprintf("bookstore-%s", event.BookstoreSlug)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler routes incoming ingest events to registered callbacks
type EventHandler struct {
	onBooksIngested func(context.Context, *models.BooksIngestedEvent) error
	onImageUploaded func(context.Context, *models.ImageUploadedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnBooksIngested registers a handler for BooksIngested events
func (eh *EventHandler) OnBooksIngested(handler func(context.Context, *models.BooksIngestedEvent) error) {
	eh.onBooksIngested = handler
}

// OnImageUploaded registers a handler for ImageUploaded events
func (eh *EventHandler) OnImageUploaded(handler func(context.Context, *models.ImageUploadedEvent) error) {
	eh.onImageUploaded = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	log.Printf("Handling event: type=%s, id=%s", baseEvent.EventType, baseEvent.EventID)

	switch baseEvent.EventType {
	case models.EventTypeBooksIngested:
		if eh.onBooksIngested != nil {
			var event models.BooksIngestedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal BooksIngested event: %w", err)
			}
			return eh.onBooksIngested(ctx, &event)
		}

	case models.EventTypeImageUploaded:
		if eh.onImageUploaded != nil {
			var event models.ImageUploadedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ImageUploaded event: %w", err)
			}
			return eh.onImageUploaded(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
