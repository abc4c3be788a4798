package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"biblioteca-server/internal/models"
	"biblioteca-server/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Batch-level errors. Anything per-item is captured in the result instead.
var (
	ErrMissingSlug       = errors.New("bookstore slug is required")
	ErrEmptyBatch        = errors.New("books array is required and must not be empty")
	ErrBookstoreNotFound = errors.New("bookstore not found")
)

// Catalog is the storage contract the reconciler depends on. Find methods
// return nil without error when nothing matches. *store.Store satisfies it.
type Catalog interface {
	GetBookstoreBySlug(ctx context.Context, slug string) (*models.Bookstore, error)
	FindAuthorByName(ctx context.Context, name string) (*models.Author, error)
	CreateAuthor(ctx context.Context, author *models.Author) error
	FindBookByTitleAndAuthor(ctx context.Context, title string, authorID int64) (*models.Book, error)
	CreateBook(ctx context.Context, book *models.Book) error
	CreateBookAuthor(ctx context.Context, bookID, authorID int64) error
	GetInventory(ctx context.Context, bookstoreID, bookID int64) (*models.Inventory, error)
	CreateInventory(ctx context.Context, inv *models.Inventory) error
	AddInventoryStock(ctx context.Context, inventoryID int64, delta int) (*models.Inventory, error)
}

// IngestPublisher publishes ingest events. *broker.EventPublisher satisfies it.
type IngestPublisher interface {
	PublishBooksIngested(ctx context.Context, event *models.BooksIngestedEvent) error
}

// Reconciler converts batches of confirmed detections into durable
// inventory updates for one bookstore. It is deliberately not idempotent:
// re-submitting the same batch adds its counts again. That matches the
// confirm-and-submit flow this feeds, where each batch is one photograph,
// but it means a client retry after a network blip double-counts stock.
type Reconciler struct {
	catalog   Catalog
	publisher IngestPublisher
	logger    *zap.Logger
}

// NewReconciler creates a new ingestion reconciler
func NewReconciler(catalog Catalog, publisher IngestPublisher) *Reconciler {
	return &Reconciler{
		catalog:   catalog,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// BulkAddRequest is a batch of confirmed detections for one bookstore
type BulkAddRequest struct {
	BookstoreSlug string             `json:"bookstoreSlug"`
	Books         []models.Detection `json:"books"`
}

// AddedBook records one successfully reconciled detection
type AddedBook struct {
	Title         string `json:"title"`
	Author        string `json:"author"`
	Count         int    `json:"count"`
	InventoryID   int64  `json:"inventoryId"`
	NewStockCount int    `json:"newStockCount"`
}

// ItemError records one detection that failed reconciliation
type ItemError struct {
	Book  models.Detection `json:"book"`
	Error string           `json:"error"`
}

// BulkAddResult reports the per-item outcome of a batch, preserving input
// order within each list
type BulkAddResult struct {
	Added  []AddedBook `json:"added"`
	Errors []ItemError `json:"errors"`
}

// BulkAdd reconciles a batch of detections against the catalog and the
// bookstore's inventory. Batch-level preconditions fail the whole call with
// no side effects; after that, each detection is processed independently
// and a failure on one never aborts the rest.
func (r *Reconciler) BulkAdd(ctx context.Context, req *BulkAddRequest) (*BulkAddResult, error) {
	ctx, span := util.StartSpan(ctx, "Reconciler.BulkAdd")
	defer span.End()

	start := time.Now()
	defer func() {
		util.BulkAddLatency.Observe(time.Since(start).Seconds())
	}()

	if req.BookstoreSlug == "" {
		util.BulkAddBatchesFailedTotal.WithLabelValues("missing_slug").Inc()
		return nil, ErrMissingSlug
	}
	if len(req.Books) == 0 {
		util.BulkAddBatchesFailedTotal.WithLabelValues("empty_batch").Inc()
		return nil, ErrEmptyBatch
	}

	bookstore, err := r.catalog.GetBookstoreBySlug(ctx, req.BookstoreSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to look up bookstore: %w", err)
	}
	if bookstore == nil {
		util.BulkAddBatchesFailedTotal.WithLabelValues("store_not_found").Inc()
		return nil, ErrBookstoreNotFound
	}

	result := &BulkAddResult{
		Added:  []AddedBook{},
		Errors: []ItemError{},
	}

	for _, detection := range req.Books {
		added, err := r.processDetection(ctx, bookstore.ID, detection)
		if err != nil {
			r.logger.Warn("Failed to reconcile detection",
				zap.String("bookstore_slug", req.BookstoreSlug),
				zap.String("title", detection.Title),
				zap.String("author", detection.Author),
				zap.Error(err))
			util.BookItemErrorsTotal.WithLabelValues(itemErrorReason(err)).Inc()
			result.Errors = append(result.Errors, ItemError{
				Book:  detection,
				Error: err.Error(),
			})
			continue
		}

		util.BooksAddedTotal.Inc()
		result.Added = append(result.Added, *added)
	}

	util.BulkAddBatchesTotal.Inc()
	r.logger.Info("Bulk add completed",
		zap.String("bookstore_slug", req.BookstoreSlug),
		zap.Int("added", len(result.Added)),
		zap.Int("errors", len(result.Errors)))

	if len(result.Added) > 0 && r.publisher != nil {
		r.publishIngested(ctx, bookstore, req.BookstoreSlug, result)
	}

	return result, nil
}

// processDetection runs the three-step resolution for one detection:
// author, then book, then inventory. Each step is a find-or-create over
// soft keys; no transaction spans the steps, so a concurrent duplicate
// submission can race (documented best-effort semantics).
func (r *Reconciler) processDetection(ctx context.Context, bookstoreID int64, d models.Detection) (*AddedBook, error) {
	if d.Title == "" {
		return nil, errors.New("detection title is required")
	}
	if d.Author == "" {
		return nil, errors.New("detection author is required")
	}
	if d.Count < 0 {
		return nil, fmt.Errorf("detection count must not be negative: %d", d.Count)
	}

	author, err := r.catalog.FindAuthorByName(ctx, d.Author)
	if err != nil {
		return nil, fmt.Errorf("failed to find author: %w", err)
	}
	if author == nil {
		author = &models.Author{Name: d.Author}
		if err := r.catalog.CreateAuthor(ctx, author); err != nil {
			return nil, fmt.Errorf("failed to create author: %w", err)
		}
	}

	book, err := r.catalog.FindBookByTitleAndAuthor(ctx, d.Title, author.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find book: %w", err)
	}
	if book == nil {
		book = &models.Book{Title: d.Title}
		if err := r.catalog.CreateBook(ctx, book); err != nil {
			return nil, fmt.Errorf("failed to create book: %w", err)
		}
		if err := r.catalog.CreateBookAuthor(ctx, book.ID, author.ID); err != nil {
			return nil, fmt.Errorf("failed to link book to author: %w", err)
		}
	}

	inventory, err := r.catalog.GetInventory(ctx, bookstoreID, book.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find inventory: %w", err)
	}
	if inventory != nil {
		inventory, err = r.catalog.AddInventoryStock(ctx, inventory.ID, d.Count)
		if err != nil {
			return nil, fmt.Errorf("failed to update inventory: %w", err)
		}
	} else {
		inventory = &models.Inventory{
			BookstoreID: bookstoreID,
			BookID:      book.ID,
			StockCount:  d.Count,
		}
		if err := r.catalog.CreateInventory(ctx, inventory); err != nil {
			return nil, fmt.Errorf("failed to create inventory: %w", err)
		}
		util.InventoryRowsCreatedTotal.Inc()
	}

	return &AddedBook{
		Title:         d.Title,
		Author:        d.Author,
		Count:         d.Count,
		InventoryID:   inventory.ID,
		NewStockCount: inventory.StockCount,
	}, nil
}

// publishIngested publishes the batch outcome; publish failures are logged,
// never surfaced to the caller
func (r *Reconciler) publishIngested(ctx context.Context, bookstore *models.Bookstore, slug string, result *BulkAddResult) {
	items := make([]models.IngestedItemData, 0, len(result.Added))
	for _, added := range result.Added {
		items = append(items, models.IngestedItemData{
			Title:         added.Title,
			Author:        added.Author,
			Count:         added.Count,
			InventoryID:   added.InventoryID,
			NewStockCount: added.NewStockCount,
		})
	}

	event := &models.BooksIngestedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeBooksIngested,
			Timestamp: time.Now(),
		},
		BookstoreID:   bookstore.ID,
		BookstoreSlug: slug,
		AddedCount:    len(result.Added),
		ErrorCount:    len(result.Errors),
		Items:         items,
	}

	if err := r.publisher.PublishBooksIngested(ctx, event); err != nil {
		r.logger.Error("Failed to publish BooksIngested event",
			zap.String("bookstore_slug", slug),
			zap.Error(err))
	}
}

func itemErrorReason(err error) string {
	if strings.HasPrefix(err.Error(), "detection ") {
		return "invalid_detection"
	}
	return "store_error"
}
