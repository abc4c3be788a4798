package store

import (
	"context"
	"database/sql"
	"time"

	"biblioteca-server/internal/models"
)

// GetInventory retrieves the inventory row for a book at a bookstore.
// Returns nil when the pair has no row yet.
func (s *Store) GetInventory(ctx context.Context, bookstoreID, bookID int64) (*models.Inventory, error) {
	var inv models.Inventory
	err := s.db.GetContext(ctx, &inv,
		"SELECT * FROM inventory WHERE bookstore_id = $1 AND book_id = $2", bookstoreID, bookID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// CreateInventory creates an inventory row on first sighting of a book at a store
func (s *Store) CreateInventory(ctx context.Context, inv *models.Inventory) error {
	query := `
		INSERT INTO inventory (bookstore_id, book_id, stock_count, last_updated)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, last_updated`

	return s.db.QueryRowxContext(ctx, query,
		inv.BookstoreID, inv.BookID, inv.StockCount).Scan(&inv.ID, &inv.LastUpdated)
}

// AddInventoryStock increments stock on an existing inventory row and
// refreshes last_updated, returning the updated row. Stock is only ever
// added through this path, never decremented.
func (s *Store) AddInventoryStock(ctx context.Context, inventoryID int64, delta int) (*models.Inventory, error) {
	query := `
		UPDATE inventory
		SET stock_count = stock_count + $1, last_updated = NOW()
		WHERE id = $2
		RETURNING *`

	var inv models.Inventory
	if err := s.db.GetContext(ctx, &inv, query, delta, inventoryID); err != nil {
		return nil, err
	}
	return &inv, nil
}

// InventoryListRow is one row of the paginated inventory listing join
type InventoryListRow struct {
	InventoryID     int64     `db:"inventory_id"`
	StockCount      int       `db:"stock_count"`
	Price           *int64    `db:"price"`
	LastUpdated     time.Time `db:"last_updated"`
	BookID          int64     `db:"book_id"`
	Title           string    `db:"title"`
	Subtitle        *string   `db:"subtitle"`
	ISBN            *string   `db:"isbn"`
	Language        *string   `db:"language"`
	PublicationYear *int      `db:"publication_year"`
	PageCount       *int      `db:"page_count"`
	Description     *string   `db:"description"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

const inventorySearchFilter = `
	i.bookstore_id = $1
	AND ($2 = ''
		OR b.title ILIKE '%' || $2 || '%'
		OR b.subtitle ILIKE '%' || $2 || '%'
		OR b.isbn ILIKE '%' || $2 || '%'
		OR EXISTS (
			SELECT 1 FROM book_authors ba
			JOIN authors a ON a.id = ba.author_id
			WHERE ba.book_id = b.id AND a.name ILIKE '%' || $2 || '%'))`

// CountInventory counts inventory rows at a bookstore matching the search text
func (s *Store) CountInventory(ctx context.Context, bookstoreID int64, search string) (int, error) {
	query := `
		SELECT COUNT(*) FROM inventory i
		JOIN books b ON b.id = i.book_id
		WHERE ` + inventorySearchFilter

	var count int
	err := s.db.GetContext(ctx, &count, query, bookstoreID, search)
	return count, err
}

// ListInventory retrieves a page of inventory rows at a bookstore joined with
// their books. Search matches case-insensitively against title, subtitle,
// ISBN or author name; results are ordered by book title.
func (s *Store) ListInventory(ctx context.Context, bookstoreID int64, search string, limit, offset int) ([]InventoryListRow, error) {
	query := `
		SELECT i.id AS inventory_id, i.stock_count, i.price, i.last_updated,
			b.id AS book_id, b.title, b.subtitle, b.isbn, b.language,
			b.publication_year, b.page_count, b.description, b.created_at, b.updated_at
		FROM inventory i
		JOIN books b ON b.id = i.book_id
		WHERE ` + inventorySearchFilter + `
		ORDER BY b.title ASC
		LIMIT $3 OFFSET $4`

	var rows []InventoryListRow
	err := s.db.SelectContext(ctx, &rows, query, bookstoreID, search, limit, offset)
	return rows, err
}
