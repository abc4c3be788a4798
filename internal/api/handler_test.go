package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"biblioteca-server/internal/models"
	"biblioteca-server/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCatalog backs the reconciler with a single known bookstore and
// records nothing else; enough to drive the HTTP contract
type stubCatalog struct {
	bookstore   *models.Bookstore
	author      *models.Author
	book        *models.Book
	inventories map[int64]*models.Inventory
	nextID      int64
}

func newStubCatalog() *stubCatalog {
	return &stubCatalog{
		bookstore:   &models.Bookstore{ID: 1, Slug: "dune-books", Name: "Dune Books"},
		inventories: make(map[int64]*models.Inventory),
		nextID:      1,
	}
}

func (s *stubCatalog) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *stubCatalog) GetBookstoreBySlug(_ context.Context, slug string) (*models.Bookstore, error) {
	if slug == s.bookstore.Slug {
		return s.bookstore, nil
	}
	return nil, nil
}

func (s *stubCatalog) FindAuthorByName(_ context.Context, name string) (*models.Author, error) {
	if s.author != nil && s.author.Name == name {
		return s.author, nil
	}
	return nil, nil
}

func (s *stubCatalog) CreateAuthor(_ context.Context, author *models.Author) error {
	author.ID = s.id()
	s.author = author
	return nil
}

func (s *stubCatalog) FindBookByTitleAndAuthor(_ context.Context, title string, _ int64) (*models.Book, error) {
	if s.book != nil && s.book.Title == title {
		return s.book, nil
	}
	return nil, nil
}

func (s *stubCatalog) CreateBook(_ context.Context, book *models.Book) error {
	book.ID = s.id()
	s.book = book
	return nil
}

func (s *stubCatalog) CreateBookAuthor(_ context.Context, _, _ int64) error {
	return nil
}

func (s *stubCatalog) GetInventory(_ context.Context, _, bookID int64) (*models.Inventory, error) {
	return s.inventories[bookID], nil
}

func (s *stubCatalog) CreateInventory(_ context.Context, inv *models.Inventory) error {
	inv.ID = s.id()
	inv.LastUpdated = time.Now()
	s.inventories[inv.BookID] = inv
	return nil
}

func (s *stubCatalog) AddInventoryStock(_ context.Context, inventoryID int64, delta int) (*models.Inventory, error) {
	for _, inv := range s.inventories {
		if inv.ID == inventoryID {
			inv.StockCount += delta
			return inv, nil
		}
	}
	return nil, nil
}

type noopPublisher struct{}

func (noopPublisher) PublishBooksIngested(context.Context, *models.BooksIngestedEvent) error {
	return nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reconciler := service.NewReconciler(newStubCatalog(), noopPublisher{})
	handler := NewHandler(reconciler, &service.CatalogQueryService{}, nil, nil, nil, nil, time.Hour)

	router := gin.New()
	handler.SetupRoutes(router)
	return router
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestBulkAddEndpointSuccess(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/books/bulk-add",
		`{"bookstoreSlug":"dune-books","books":[{"title":"Dune","author":"Frank Herbert","count":3}]}`)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Results struct {
			Added  []service.AddedBook `json:"added"`
			Errors []service.ItemError `json:"errors"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.True(t, resp.Success)
	assert.Equal(t, "Successfully processed 1 books", resp.Message)
	require.Len(t, resp.Results.Added, 1)
	assert.Equal(t, 3, resp.Results.Added[0].NewStockCount)
	assert.Empty(t, resp.Results.Errors)
}

func TestBulkAddEndpointValidation(t *testing.T) {
	router := newTestRouter(t)

	cases := []struct {
		name string
		body string
	}{
		{"missing slug", `{"books":[{"title":"Dune","author":"Frank Herbert","count":1}]}`},
		{"empty books", `{"bookstoreSlug":"dune-books","books":[]}`},
		{"unknown store", `{"bookstoreSlug":"nope","books":[{"title":"Dune","author":"Frank Herbert","count":1}]}`},
		{"malformed body", `{"bookstoreSlug":`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(router, http.MethodPost, "/api/books/bulk-add", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "error")
		})
	}
}

func TestBulkAddEndpointPartialFailure(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/books/bulk-add",
		`{"bookstoreSlug":"dune-books","books":[
			{"title":"Dune","author":"Frank Herbert","count":3},
			{"title":"","author":"Anonymous","count":1}
		]}`)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Results service.BulkAddResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Results.Added, 1)
	assert.Len(t, resp.Results.Errors, 1)
}

func TestListBooksEndpointValidation(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/api/books", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodGet, "/api/books?bookstoreId=dune-books&page=0", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodGet, "/api/books?bookstoreId=dune-books&limit=101", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodGet, "/api/books?bookstoreId=dune-books&page=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t)

	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/ready", "").Code)
}
