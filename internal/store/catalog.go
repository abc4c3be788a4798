package store

import (
	"context"
	"database/sql"

	"biblioteca-server/internal/models"

	"github.com/jmoiron/sqlx"
)

// FindAuthorByName retrieves the first author whose name matches exactly.
// Author names carry no unique constraint, so concurrent creates can leave
// duplicates; the lowest id wins on lookup. Returns nil when no author matches.
func (s *Store) FindAuthorByName(ctx context.Context, name string) (*models.Author, error) {
	var author models.Author
	err := s.db.GetContext(ctx, &author,
		"SELECT * FROM authors WHERE name = $1 ORDER BY id LIMIT 1", name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &author, nil
}

// CreateAuthor creates a new author
func (s *Store) CreateAuthor(ctx context.Context, author *models.Author) error {
	return s.db.GetContext(ctx, &author.ID,
		"INSERT INTO authors (name) VALUES ($1) RETURNING id", author.Name)
}

// FindBookByTitleAndAuthor retrieves a book whose title matches and that is
// already linked to the given author. Returns nil when no book matches.
func (s *Store) FindBookByTitleAndAuthor(ctx context.Context, title string, authorID int64) (*models.Book, error) {
	query := `
		SELECT b.* FROM books b
		JOIN book_authors ba ON ba.book_id = b.id
		WHERE b.title = $1 AND ba.author_id = $2
		ORDER BY b.id LIMIT 1`

	var book models.Book
	err := s.db.GetContext(ctx, &book, query, title, authorID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// CreateBook creates a new book with only a title; bibliographic fields are
// filled in later by enrichment, not by the ingestion path
func (s *Store) CreateBook(ctx context.Context, book *models.Book) error {
	query := `
		INSERT INTO books (title)
		VALUES ($1)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, book, query, book.Title)
}

// CreateBookAuthor links a book to an author
func (s *Store) CreateBookAuthor(ctx context.Context, bookID, authorID int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO book_authors (book_id, author_id) VALUES ($1, $2)", bookID, authorID)
	return err
}

type bookAuthorRow struct {
	BookID int64  `db:"book_id"`
	ID     int64  `db:"id"`
	Name   string `db:"name"`
}

// GetAuthorsForBooks retrieves authors for multiple books, keyed by book ID
func (s *Store) GetAuthorsForBooks(ctx context.Context, bookIDs []int64) (map[int64][]models.Author, error) {
	result := make(map[int64][]models.Author)
	if len(bookIDs) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`
		SELECT ba.book_id, a.id, a.name FROM book_authors ba
		JOIN authors a ON a.id = ba.author_id
		WHERE ba.book_id IN (?)
		ORDER BY a.id`, bookIDs)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var rows []bookAuthorRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	for _, row := range rows {
		result[row.BookID] = append(result[row.BookID], models.Author{ID: row.ID, Name: row.Name})
	}
	return result, nil
}

type bookGenreRow struct {
	BookID int64  `db:"book_id"`
	ID     int64  `db:"id"`
	Name   string `db:"name"`
}

// GetGenresForBooks retrieves genres for multiple books, keyed by book ID
func (s *Store) GetGenresForBooks(ctx context.Context, bookIDs []int64) (map[int64][]models.Genre, error) {
	result := make(map[int64][]models.Genre)
	if len(bookIDs) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`
		SELECT bg.book_id, g.id, g.name FROM book_genres bg
		JOIN genres g ON g.id = bg.genre_id
		WHERE bg.book_id IN (?)
		ORDER BY g.id`, bookIDs)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var rows []bookGenreRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	for _, row := range rows {
		result[row.BookID] = append(result[row.BookID], models.Genre{ID: row.ID, Name: row.Name})
	}
	return result, nil
}
