package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"biblioteca-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCatalog is an in-memory Catalog used to exercise the reconciler
// without a database
type fakeCatalog struct {
	bookstores  map[string]*models.Bookstore
	authors     []*models.Author
	books       []*models.Book
	links       map[int64][]int64 // book ID -> author IDs
	inventories []*models.Inventory
	nextID      int64

	// bookErrs fails book resolution for specific titles to simulate
	// transient store errors
	bookErrs map[string]error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		bookstores: make(map[string]*models.Bookstore),
		links:      make(map[int64][]int64),
		bookErrs:   make(map[string]error),
	}
}

func (f *fakeCatalog) addBookstore(slug string) *models.Bookstore {
	bs := &models.Bookstore{ID: f.id(), Slug: slug, Name: slug}
	f.bookstores[slug] = bs
	return bs
}

func (f *fakeCatalog) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeCatalog) GetBookstoreBySlug(_ context.Context, slug string) (*models.Bookstore, error) {
	return f.bookstores[slug], nil
}

func (f *fakeCatalog) FindAuthorByName(_ context.Context, name string) (*models.Author, error) {
	for _, a := range f.authors {
		if a.Name == name {
			return a, nil
		}
	}
	return nil, nil
}

func (f *fakeCatalog) CreateAuthor(_ context.Context, author *models.Author) error {
	author.ID = f.id()
	f.authors = append(f.authors, author)
	return nil
}

func (f *fakeCatalog) FindBookByTitleAndAuthor(_ context.Context, title string, authorID int64) (*models.Book, error) {
	if err, ok := f.bookErrs[title]; ok {
		return nil, err
	}
	for _, b := range f.books {
		if b.Title != title {
			continue
		}
		for _, linked := range f.links[b.ID] {
			if linked == authorID {
				return b, nil
			}
		}
	}
	return nil, nil
}

func (f *fakeCatalog) CreateBook(_ context.Context, book *models.Book) error {
	book.ID = f.id()
	book.CreatedAt = time.Now()
	book.UpdatedAt = book.CreatedAt
	f.books = append(f.books, book)
	return nil
}

func (f *fakeCatalog) CreateBookAuthor(_ context.Context, bookID, authorID int64) error {
	f.links[bookID] = append(f.links[bookID], authorID)
	return nil
}

func (f *fakeCatalog) GetInventory(_ context.Context, bookstoreID, bookID int64) (*models.Inventory, error) {
	for _, inv := range f.inventories {
		if inv.BookstoreID == bookstoreID && inv.BookID == bookID {
			return inv, nil
		}
	}
	return nil, nil
}

func (f *fakeCatalog) CreateInventory(_ context.Context, inv *models.Inventory) error {
	inv.ID = f.id()
	inv.LastUpdated = time.Now()
	f.inventories = append(f.inventories, inv)
	return nil
}

func (f *fakeCatalog) AddInventoryStock(_ context.Context, inventoryID int64, delta int) (*models.Inventory, error) {
	for _, inv := range f.inventories {
		if inv.ID == inventoryID {
			inv.StockCount += delta
			inv.LastUpdated = time.Now()
			return inv, nil
		}
	}
	return nil, errors.New("inventory row missing")
}

type capturingPublisher struct {
	events []*models.BooksIngestedEvent
	err    error
}

func (p *capturingPublisher) PublishBooksIngested(_ context.Context, event *models.BooksIngestedEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func TestBulkAddFirstSighting(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addBookstore("dune-books")
	r := NewReconciler(catalog, &capturingPublisher{})

	result, err := r.BulkAdd(context.Background(), &BulkAddRequest{
		BookstoreSlug: "dune-books",
		Books: []models.Detection{
			{Title: "Dune", Author: "Frank Herbert", Count: 3},
		},
	})

	require.NoError(t, err)
	require.Len(t, result.Added, 1)
	assert.Empty(t, result.Errors)

	added := result.Added[0]
	assert.Equal(t, "Dune", added.Title)
	assert.Equal(t, "Frank Herbert", added.Author)
	assert.Equal(t, 3, added.NewStockCount)
	assert.NotZero(t, added.InventoryID)

	assert.Len(t, catalog.authors, 1)
	assert.Len(t, catalog.books, 1)
	assert.Len(t, catalog.links[catalog.books[0].ID], 1)
	assert.Len(t, catalog.inventories, 1)
}

func TestBulkAddRepeatedSightingIncrementsStock(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addBookstore("dune-books")
	r := NewReconciler(catalog, &capturingPublisher{})

	_, err := r.BulkAdd(context.Background(), &BulkAddRequest{
		BookstoreSlug: "dune-books",
		Books:         []models.Detection{{Title: "Dune", Author: "Frank Herbert", Count: 3}},
	})
	require.NoError(t, err)

	result, err := r.BulkAdd(context.Background(), &BulkAddRequest{
		BookstoreSlug: "dune-books",
		Books:         []models.Detection{{Title: "Dune", Author: "Frank Herbert", Count: 2}},
	})
	require.NoError(t, err)

	require.Len(t, result.Added, 1)
	assert.Equal(t, 5, result.Added[0].NewStockCount)

	// Author and book are reused, not duplicated
	assert.Len(t, catalog.authors, 1)
	assert.Len(t, catalog.books, 1)
	assert.Len(t, catalog.inventories, 1)
}

func TestBulkAddDuplicatesWithinBatchAccumulate(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addBookstore("dune-books")
	r := NewReconciler(catalog, &capturingPublisher{})

	result, err := r.BulkAdd(context.Background(), &BulkAddRequest{
		BookstoreSlug: "dune-books",
		Books: []models.Detection{
			{Title: "Dune", Author: "Frank Herbert", Count: 3},
			{Title: "Dune", Author: "Frank Herbert", Count: 2},
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Added, 2)
	assert.Equal(t, 3, result.Added[0].NewStockCount)
	assert.Equal(t, 5, result.Added[1].NewStockCount)

	require.Len(t, catalog.inventories, 1)
	assert.Equal(t, 5, catalog.inventories[0].StockCount)
}

func TestBulkAddItemErrorIsolation(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addBookstore("dune-books")
	r := NewReconciler(catalog, &capturingPublisher{})

	input := []models.Detection{
		{Title: "Dune", Author: "Frank Herbert", Count: 3},
		{Title: "", Author: "Anonymous", Count: 1},
		{Title: "Hyperion", Author: "Dan Simmons", Count: 2},
	}

	result, err := r.BulkAdd(context.Background(), &BulkAddRequest{
		BookstoreSlug: "dune-books",
		Books:         input,
	})
	require.NoError(t, err)

	assert.Len(t, result.Added, 2)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, len(input), len(result.Added)+len(result.Errors))

	assert.Equal(t, input[1], result.Errors[0].Book)
	assert.Equal(t, "Dune", result.Added[0].Title)
	assert.Equal(t, "Hyperion", result.Added[1].Title)
}

func TestBulkAddStoreErrorIsolated(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addBookstore("dune-books")
	catalog.bookErrs["Broken"] = errors.New("connection reset")
	r := NewReconciler(catalog, &capturingPublisher{})

	result, err := r.BulkAdd(context.Background(), &BulkAddRequest{
		BookstoreSlug: "dune-books",
		Books: []models.Detection{
			{Title: "Broken", Author: "Nobody", Count: 1},
			{Title: "Dune", Author: "Frank Herbert", Count: 3},
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Error, "connection reset")
	require.Len(t, result.Added, 1)
	assert.Equal(t, "Dune", result.Added[0].Title)
}

func TestBulkAddNegativeCountIsItemError(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addBookstore("dune-books")
	r := NewReconciler(catalog, &capturingPublisher{})

	result, err := r.BulkAdd(context.Background(), &BulkAddRequest{
		BookstoreSlug: "dune-books",
		Books:         []models.Detection{{Title: "Dune", Author: "Frank Herbert", Count: -1}},
	})
	require.NoError(t, err)

	assert.Empty(t, result.Added)
	assert.Len(t, result.Errors, 1)
	assert.Empty(t, catalog.authors)
}

func TestBulkAddBatchLevelFailures(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addBookstore("dune-books")
	r := NewReconciler(catalog, &capturingPublisher{})

	_, err := r.BulkAdd(context.Background(), &BulkAddRequest{
		BookstoreSlug: "",
		Books:         []models.Detection{{Title: "Dune", Author: "Frank Herbert", Count: 1}},
	})
	assert.ErrorIs(t, err, ErrMissingSlug)

	_, err = r.BulkAdd(context.Background(), &BulkAddRequest{
		BookstoreSlug: "dune-books",
		Books:         []models.Detection{},
	})
	assert.ErrorIs(t, err, ErrEmptyBatch)

	_, err = r.BulkAdd(context.Background(), &BulkAddRequest{
		BookstoreSlug: "nope",
		Books:         []models.Detection{{Title: "Dune", Author: "Frank Herbert", Count: 1}},
	})
	assert.ErrorIs(t, err, ErrBookstoreNotFound)

	// No per-item work ran for any of the failed batches
	assert.Empty(t, catalog.authors)
	assert.Empty(t, catalog.books)
	assert.Empty(t, catalog.inventories)
}

func TestBulkAddIsNotIdempotent(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addBookstore("dune-books")
	r := NewReconciler(catalog, &capturingPublisher{})

	batch := &BulkAddRequest{
		BookstoreSlug: "dune-books",
		Books:         []models.Detection{{Title: "Dune", Author: "Frank Herbert", Count: 3}},
	}

	_, err := r.BulkAdd(context.Background(), batch)
	require.NoError(t, err)
	result, err := r.BulkAdd(context.Background(), batch)
	require.NoError(t, err)

	// Re-submission re-adds counts; doubling is the documented behavior
	assert.Equal(t, 6, result.Added[0].NewStockCount)
}

func TestBulkAddSameAuthorDifferentTitles(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addBookstore("dune-books")
	r := NewReconciler(catalog, &capturingPublisher{})

	result, err := r.BulkAdd(context.Background(), &BulkAddRequest{
		BookstoreSlug: "dune-books",
		Books: []models.Detection{
			{Title: "Dune", Author: "Frank Herbert", Count: 1},
			{Title: "Dune Messiah", Author: "Frank Herbert", Count: 1},
		},
	})
	require.NoError(t, err)

	assert.Len(t, result.Added, 2)
	assert.Len(t, catalog.authors, 1)
	assert.Len(t, catalog.books, 2)
	assert.Len(t, catalog.inventories, 2)
}

func TestBulkAddZeroCountAccepted(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addBookstore("dune-books")
	r := NewReconciler(catalog, &capturingPublisher{})

	result, err := r.BulkAdd(context.Background(), &BulkAddRequest{
		BookstoreSlug: "dune-books",
		Books:         []models.Detection{{Title: "Dune", Author: "Frank Herbert", Count: 0}},
	})
	require.NoError(t, err)

	require.Len(t, result.Added, 1)
	assert.Equal(t, 0, result.Added[0].NewStockCount)
	assert.Len(t, catalog.inventories, 1)
}

func TestBulkAddPublishesIngestEvent(t *testing.T) {
	catalog := newFakeCatalog()
	bs := catalog.addBookstore("dune-books")
	publisher := &capturingPublisher{}
	r := NewReconciler(catalog, publisher)

	_, err := r.BulkAdd(context.Background(), &BulkAddRequest{
		BookstoreSlug: "dune-books",
		Books: []models.Detection{
			{Title: "Dune", Author: "Frank Herbert", Count: 3},
			{Title: "", Author: "Anonymous", Count: 1},
		},
	})
	require.NoError(t, err)

	require.Len(t, publisher.events, 1)
	event := publisher.events[0]
	assert.Equal(t, models.EventTypeBooksIngested, event.EventType)
	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, bs.ID, event.BookstoreID)
	assert.Equal(t, "dune-books", event.BookstoreSlug)
	assert.Equal(t, 1, event.AddedCount)
	assert.Equal(t, 1, event.ErrorCount)
	require.Len(t, event.Items, 1)
	assert.Equal(t, "Dune", event.Items[0].Title)
}

func TestBulkAddPublishFailureDoesNotFailBatch(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addBookstore("dune-books")
	publisher := &capturingPublisher{err: errors.New("broker down")}
	r := NewReconciler(catalog, publisher)

	result, err := r.BulkAdd(context.Background(), &BulkAddRequest{
		BookstoreSlug: "dune-books",
		Books:         []models.Detection{{Title: "Dune", Author: "Frank Herbert", Count: 3}},
	})
	require.NoError(t, err)
	assert.Len(t, result.Added, 1)
}

func TestBulkAddNoEventWhenNothingAdded(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addBookstore("dune-books")
	publisher := &capturingPublisher{}
	r := NewReconciler(catalog, publisher)

	_, err := r.BulkAdd(context.Background(), &BulkAddRequest{
		BookstoreSlug: "dune-books",
		Books:         []models.Detection{{Title: "", Author: "", Count: 1}},
	})
	require.NoError(t, err)
	assert.Empty(t, publisher.events)
}
