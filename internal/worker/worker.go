package worker

import (
	"context"
	"log"

	"biblioteca-server/internal/broker"
	"biblioteca-server/internal/models"
	"biblioteca-server/internal/redisclient"
	"biblioteca-server/internal/util"

	"go.uber.org/zap"
)

// IngestWorker consumes ingest events and keeps the Redis cache consistent
// with reconciler writes: each BooksIngested event bumps the bookstore's
// inventory version, which retires every cached listing page for the store.
type IngestWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	redis        *redisclient.Client
	logger       *zap.Logger
}

// NewIngestWorker creates a new ingest worker
func NewIngestWorker(consumer *broker.Consumer, redis *redisclient.Client) *IngestWorker {
	w := &IngestWorker{
		consumer: consumer,
		redis:    redis,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnBooksIngested(w.handleBooksIngested)
	eventHandler.OnImageUploaded(w.handleImageUploaded)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *IngestWorker) Start(ctx context.Context) error {
	log.Println("Starting ingest worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *IngestWorker) Stop() error {
	log.Println("Stopping ingest worker...")
	return w.consumer.Close()
}

func (w *IngestWorker) handleBooksIngested(ctx context.Context, event *models.BooksIngestedEvent) error {
	util.BooksIngestedEventsTotal.Inc()

	if err := w.redis.BumpInventoryVersion(ctx, event.BookstoreSlug); err != nil {
		return err
	}

	w.logger.Info("Inventory cache invalidated",
		zap.String("bookstore_slug", event.BookstoreSlug),
		zap.Int("added", event.AddedCount),
		zap.Int("errors", event.ErrorCount))
	return nil
}

func (w *IngestWorker) handleImageUploaded(ctx context.Context, event *models.ImageUploadedEvent) error {
	w.logger.Info("Shelf image stored",
		zap.String("bookstore_slug", event.BookstoreSlug),
		zap.String("file_name", event.FileName),
		zap.Int64("size", event.Size))
	return nil
}
