package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"biblioteca-server/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetBookstoreBySlug retrieves a bookstore by its slug.
// Returns nil without error when no bookstore matches.
func (s *Store) GetBookstoreBySlug(ctx context.Context, slug string) (*models.Bookstore, error) {
	var bs models.Bookstore
	err := s.db.GetContext(ctx, &bs, "SELECT * FROM bookstores WHERE slug = $1", slug)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bs, nil
}

// CreateBookstore creates a new bookstore
func (s *Store) CreateBookstore(ctx context.Context, bs *models.Bookstore) error {
	query := `
		INSERT INTO bookstores (slug, name, address, city, country, phone, email, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	return s.db.GetContext(ctx, &bs.ID, query,
		bs.Slug, bs.Name, bs.Address, bs.City, bs.Country, bs.Phone, bs.Email, bs.Latitude, bs.Longitude)
}

// ListBookstores retrieves all bookstores
func (s *Store) ListBookstores(ctx context.Context) ([]models.BookstoreSummary, error) {
	var stores []models.BookstoreSummary
	err := s.db.SelectContext(ctx, &stores,
		"SELECT name, slug, city, country, phone, email FROM bookstores ORDER BY name")
	return stores, err
}
