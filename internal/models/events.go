package models

import "time"

// Event types
const (
	EventTypeBooksIngested = "BOOKS_INGESTED"
	EventTypeImageUploaded = "IMAGE_UPLOADED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// IngestedItemData represents one reconciled detection in an event
type IngestedItemData struct {
	Title         string `json:"title"`
	Author        string `json:"author"`
	Count         int    `json:"count"`
	InventoryID   int64  `json:"inventory_id"`
	NewStockCount int    `json:"new_stock_count"`
}

// BooksIngestedEvent published after a bulk-add batch reconciles at
// least one detection into inventory
type BooksIngestedEvent struct {
	BaseEvent
	BookstoreID   int64              `json:"bookstore_id"`
	BookstoreSlug string             `json:"bookstore_slug"`
	AddedCount    int                `json:"added_count"`
	ErrorCount    int                `json:"error_count"`
	Items         []IngestedItemData `json:"items"`
}

// ImageUploadedEvent published when a shelf photo lands in the object store
type ImageUploadedEvent struct {
	BaseEvent
	BookstoreSlug string `json:"bookstore_slug"`
	FileName      string `json:"file_name"`
	Size          int64  `json:"size"`
	ContentType   string `json:"content_type"`
}
