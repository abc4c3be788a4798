package service

import (
	"context"
	"errors"
	"fmt"

	"biblioteca-server/internal/models"
	"biblioteca-server/internal/store"
	"biblioteca-server/internal/util"

	"go.uber.org/zap"
)

var ErrMissingBookstoreName = errors.New("bookstore name is required")

// BookstoreService manages the bookstore registry. Bookstores are created
// once and treated as read-only by the reconciliation path.
type BookstoreService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewBookstoreService creates a new bookstore service
func NewBookstoreService(store *store.Store) *BookstoreService {
	return &BookstoreService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// CreateBookstoreRequest carries the fields of a new bookstore. Slug is
// derived from the name when absent.
type CreateBookstoreRequest struct {
	Name      string   `json:"name"`
	Slug      string   `json:"slug"`
	Address   string   `json:"address"`
	City      string   `json:"city"`
	Country   string   `json:"country"`
	Phone     string   `json:"phone"`
	Email     string   `json:"email"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// CreateBookstore registers a new bookstore. Slug uniqueness is enforced by
// the store; a duplicate surfaces as an error.
func (s *BookstoreService) CreateBookstore(ctx context.Context, req *CreateBookstoreRequest) (*models.Bookstore, error) {
	if req.Name == "" {
		return nil, ErrMissingBookstoreName
	}

	slug := req.Slug
	if slug == "" {
		slug = util.Slugify(req.Name)
	}

	bookstore := &models.Bookstore{
		Slug:      slug,
		Name:      req.Name,
		Address:   req.Address,
		City:      req.City,
		Country:   req.Country,
		Phone:     req.Phone,
		Email:     req.Email,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	}

	if err := s.store.CreateBookstore(ctx, bookstore); err != nil {
		return nil, fmt.Errorf("failed to create bookstore: %w", err)
	}

	s.logger.Info("Bookstore created",
		zap.Int64("id", bookstore.ID),
		zap.String("slug", bookstore.Slug))
	return bookstore, nil
}

// ListBookstores retrieves all registered bookstores
func (s *BookstoreService) ListBookstores(ctx context.Context) ([]models.BookstoreSummary, error) {
	stores, err := s.store.ListBookstores(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookstores: %w", err)
	}
	if stores == nil {
		stores = []models.BookstoreSummary{}
	}
	return stores, nil
}
