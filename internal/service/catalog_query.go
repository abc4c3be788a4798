package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"biblioteca-server/internal/models"
	"biblioteca-server/internal/redisclient"
	"biblioteca-server/internal/store"
	"biblioteca-server/internal/util"

	"go.uber.org/zap"
)

var (
	ErrMissingBookstoreID = errors.New("bookstoreId is required")
	ErrInvalidPagination  = errors.New("invalid pagination parameters: page must be >= 1, limit must be between 1-100")
)

const (
	bookstoreCacheTTL = 10 * time.Minute
	listingCacheTTL   = 5 * time.Minute
)

// CatalogQueryService serves paginated, searchable reads of a bookstore's
// inventory joined with books, authors and genres. Listing pages are cached
// in Redis under a per-store version counter that the ingest worker bumps,
// so reads observe reconciler writes once the BooksIngested event lands.
type CatalogQueryService struct {
	store  *store.Store
	redis  *redisclient.Client
	logger *zap.Logger
}

// NewCatalogQueryService creates a new catalog query service
func NewCatalogQueryService(store *store.Store, redis *redisclient.Client) *CatalogQueryService {
	return &CatalogQueryService{
		store:  store,
		redis:  redis,
		logger: util.GetLogger(),
	}
}

// Pagination describes one page of results
type Pagination struct {
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	TotalCount  int  `json:"totalCount"`
	TotalPages  int  `json:"totalPages"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

// InventoryInfo is the inventory portion of a listed book
type InventoryInfo struct {
	ID          int64     `json:"id"`
	StockCount  int       `json:"stockCount"`
	Price       *int64    `json:"price"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// BookstoreInfo is the bookstore summary attached to each listed book
type BookstoreInfo struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	Country string `json:"country"`
}

// BookListItem is one book in a bookstore's inventory listing
type BookListItem struct {
	ID              int64           `json:"id"`
	Title           string          `json:"title"`
	Subtitle        *string         `json:"subtitle"`
	ISBN            *string         `json:"isbn"`
	Language        *string         `json:"language"`
	PublicationYear *int            `json:"publicationYear"`
	PageCount       *int            `json:"pageCount"`
	Description     *string         `json:"description"`
	Authors         []models.Author `json:"authors"`
	Genres          []models.Genre  `json:"genres"`
	Inventory       InventoryInfo   `json:"inventory"`
	Bookstore       BookstoreInfo   `json:"bookstore"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// ListFilters echoes the filters applied to a listing
type ListFilters struct {
	BookstoreID int64  `json:"bookstoreId"`
	Search      string `json:"search"`
}

// ListBooksResult is a full page of inventory listing
type ListBooksResult struct {
	Data       []BookListItem `json:"data"`
	Pagination Pagination     `json:"pagination"`
	Filters    ListFilters    `json:"filters"`
}

// ListBooks returns one page of a bookstore's inventory, ordered by book
// title, optionally filtered by a case-insensitive search over title,
// subtitle, author name and ISBN.
func (s *CatalogQueryService) ListBooks(ctx context.Context, slug string, page, limit int, search string) (*ListBooksResult, error) {
	ctx, span := util.StartSpan(ctx, "CatalogQueryService.ListBooks")
	defer span.End()

	if slug == "" {
		return nil, ErrMissingBookstoreID
	}
	if page < 1 || limit < 1 || limit > 100 {
		return nil, ErrInvalidPagination
	}

	bookstore, err := s.lookupBookstore(ctx, slug)
	if err != nil {
		return nil, err
	}
	if bookstore == nil {
		return nil, ErrBookstoreNotFound
	}

	cacheKey, cacheable := s.listingCacheKey(ctx, slug, page, limit, search)
	if cacheable {
		var cached ListBooksResult
		hit, err := s.redis.GetCachedJSON(ctx, cacheKey, &cached)
		if err != nil {
			s.logger.Warn("Listing cache read failed", zap.String("key", cacheKey), zap.Error(err))
		} else if hit {
			util.CatalogCacheHitsTotal.WithLabelValues("hit").Inc()
			return &cached, nil
		}
		util.CatalogCacheHitsTotal.WithLabelValues("miss").Inc()
	}

	result, err := s.listBooksFromStore(ctx, bookstore, page, limit, search)
	if err != nil {
		return nil, err
	}

	if cacheable {
		if err := s.redis.SetCachedJSON(ctx, cacheKey, result, listingCacheTTL); err != nil {
			s.logger.Warn("Listing cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}

	return result, nil
}

func (s *CatalogQueryService) listBooksFromStore(ctx context.Context, bookstore *models.Bookstore, page, limit int, search string) (*ListBooksResult, error) {
	totalCount, err := s.store.CountInventory(ctx, bookstore.ID, search)
	if err != nil {
		return nil, fmt.Errorf("failed to count inventory: %w", err)
	}

	offset := (page - 1) * limit
	rows, err := s.store.ListInventory(ctx, bookstore.ID, search, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}

	bookIDs := make([]int64, len(rows))
	for i, row := range rows {
		bookIDs[i] = row.BookID
	}

	authors, err := s.store.GetAuthorsForBooks(ctx, bookIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load authors: %w", err)
	}
	genres, err := s.store.GetGenresForBooks(ctx, bookIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load genres: %w", err)
	}

	bookstoreInfo := BookstoreInfo{
		ID:      bookstore.ID,
		Name:    bookstore.Name,
		Address: bookstore.Address,
		City:    bookstore.City,
		Country: bookstore.Country,
	}

	items := make([]BookListItem, 0, len(rows))
	for _, row := range rows {
		bookAuthors := authors[row.BookID]
		if bookAuthors == nil {
			bookAuthors = []models.Author{}
		}
		bookGenres := genres[row.BookID]
		if bookGenres == nil {
			bookGenres = []models.Genre{}
		}

		items = append(items, BookListItem{
			ID:              row.BookID,
			Title:           row.Title,
			Subtitle:        row.Subtitle,
			ISBN:            row.ISBN,
			Language:        row.Language,
			PublicationYear: row.PublicationYear,
			PageCount:       row.PageCount,
			Description:     row.Description,
			Authors:         bookAuthors,
			Genres:          bookGenres,
			Inventory: InventoryInfo{
				ID:          row.InventoryID,
				StockCount:  row.StockCount,
				Price:       row.Price,
				LastUpdated: row.LastUpdated,
			},
			Bookstore: bookstoreInfo,
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		})
	}

	return &ListBooksResult{
		Data:       items,
		Pagination: buildPagination(page, limit, totalCount),
		Filters: ListFilters{
			BookstoreID: bookstore.ID,
			Search:      search,
		},
	}, nil
}

// lookupBookstore is a Redis read-through over the store; cache failures
// fall back to the database
func (s *CatalogQueryService) lookupBookstore(ctx context.Context, slug string) (*models.Bookstore, error) {
	if s.redis != nil {
		cached, err := s.redis.GetBookstore(ctx, slug)
		if err != nil {
			s.logger.Warn("Bookstore cache read failed", zap.String("slug", slug), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	bookstore, err := s.store.GetBookstoreBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to look up bookstore: %w", err)
	}
	if bookstore == nil {
		return nil, nil
	}

	if s.redis != nil {
		if err := s.redis.SetBookstore(ctx, bookstore, bookstoreCacheTTL); err != nil {
			s.logger.Warn("Bookstore cache write failed", zap.String("slug", slug), zap.Error(err))
		}
	}
	return bookstore, nil
}

func (s *CatalogQueryService) listingCacheKey(ctx context.Context, slug string, page, limit int, search string) (string, bool) {
	if s.redis == nil {
		return "", false
	}

	version, err := s.redis.InventoryVersion(ctx, slug)
	if err != nil {
		s.logger.Warn("Failed to read inventory version", zap.String("slug", slug), zap.Error(err))
		return "", false
	}
	return fmt.Sprintf("books:%s:v%d:p%d:l%d:q:%s", slug, version, page, limit, search), true
}

// buildPagination computes page metadata from a total row count
func buildPagination(page, limit, totalCount int) Pagination {
	totalPages := (totalCount + limit - 1) / limit
	return Pagination{
		Page:        page,
		Limit:       limit,
		TotalCount:  totalCount,
		TotalPages:  totalPages,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
}
