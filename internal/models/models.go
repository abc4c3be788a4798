package models

import "time"

// Bookstore represents a registered bookstore, looked up by slug
type Bookstore struct {
	ID        int64    `db:"id" json:"id"`
	Slug      string   `db:"slug" json:"slug"`
	Name      string   `db:"name" json:"name"`
	Address   string   `db:"address" json:"address"`
	City      string   `db:"city" json:"city"`
	Country   string   `db:"country" json:"country"`
	Phone     string   `db:"phone" json:"phone"`
	Email     string   `db:"email" json:"email"`
	Latitude  *float64 `db:"latitude" json:"latitude,omitempty"`
	Longitude *float64 `db:"longitude" json:"longitude,omitempty"`
}

// BookstoreSummary is the public listing shape for a bookstore
type BookstoreSummary struct {
	Name    string `db:"name" json:"name"`
	Slug    string `db:"slug" json:"slug"`
	City    string `db:"city" json:"city"`
	Country string `db:"country" json:"country"`
	Phone   string `db:"phone" json:"phone"`
	Email   string `db:"email" json:"email"`
}

// Author represents a book author. Names are not unique: the first row
// whose name matches a detection is treated as canonical.
type Author struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Book represents a catalog book
type Book struct {
	ID              int64     `db:"id" json:"id"`
	Title           string    `db:"title" json:"title"`
	Subtitle        *string   `db:"subtitle" json:"subtitle,omitempty"`
	ISBN            *string   `db:"isbn" json:"isbn,omitempty"`
	Language        *string   `db:"language" json:"language,omitempty"`
	PublicationYear *int      `db:"publication_year" json:"publicationYear,omitempty"`
	PageCount       *int      `db:"page_count" json:"pageCount,omitempty"`
	Description     *string   `db:"description" json:"description,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}

// Genre represents a book genre
type Genre struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Inventory represents stock of one book at one bookstore.
// At most one row exists per (bookstore_id, book_id) pair.
type Inventory struct {
	ID          int64     `db:"id" json:"id"`
	BookstoreID int64     `db:"bookstore_id" json:"bookstoreId"`
	BookID      int64     `db:"book_id" json:"bookId"`
	StockCount  int       `db:"stock_count" json:"stockCount"`
	Price       *int64    `db:"price" json:"price,omitempty"`
	LastUpdated time.Time `db:"last_updated" json:"lastUpdated"`
}

// Detection is a transient (title, author, count) triple produced by the
// inference service; it is not persisted until confirmed and reconciled.
type Detection struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Count  int    `json:"count"`
}
