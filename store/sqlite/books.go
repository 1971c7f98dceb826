package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aluiziolira/go-scrape-shelves/models"
	"github.com/aluiziolira/go-scrape-shelves/store"
)

// bookColumns must match the scan order in scanBook.
const bookColumns = `id, goodreads_id, title, author, isbn, isbn13,
	average_rating, ratings_count, publication_year, pages, description,
	image_url, small_image_url, medium_image_url, large_image_url,
	created_at, updated_at`

func scanBook(scanner interface{ Scan(dest ...any) error }) (*models.Book, error) {
	var b models.Book

	var (
		goodreadsID sql.NullString
		fields      bookFields
	)

	err := scanner.Scan(append([]any{&b.ID, &goodreadsID}, fields.dest(&b)...)...)
	if err != nil {
		return nil, err
	}
	return fields.finish(&b, goodreadsID)
}

// bookFields holds the nullable scan targets shared by scanBook and the
// joined reading-record scan.
type bookFields struct {
	isbn            sql.Null[string]
	isbn13          sql.Null[string]
	averageRating   sql.Null[float64]
	publicationYear sql.Null[string]
	pages           sql.Null[int]
	description     sql.Null[string]
	imageURL        sql.Null[string]
	smallImageURL   sql.Null[string]
	mediumImageURL  sql.Null[string]
	largeImageURL   sql.Null[string]
	createdAt       string
	updatedAt       string
}

// dest returns scan targets for every book column after id and goodreads_id.
func (f *bookFields) dest(b *models.Book) []any {
	return []any{
		&b.Title,
		&b.Author,
		&f.isbn,
		&f.isbn13,
		&f.averageRating,
		&b.RatingsCount,
		&f.publicationYear,
		&f.pages,
		&f.description,
		&f.imageURL,
		&f.smallImageURL,
		&f.mediumImageURL,
		&f.largeImageURL,
		&f.createdAt,
		&f.updatedAt,
	}
}

func (f *bookFields) finish(b *models.Book, goodreadsID sql.NullString) (*models.Book, error) {
	b.GoodreadsID = goodreadsID.String
	b.ISBN = ptr(f.isbn)
	b.ISBN13 = ptr(f.isbn13)
	b.AverageRating = ptr(f.averageRating)
	b.PublicationYear = ptr(f.publicationYear)
	b.Pages = ptr(f.pages)
	b.Description = ptr(f.description)
	b.ImageURL = ptr(f.imageURL)
	b.SmallImageURL = ptr(f.smallImageURL)
	b.MediumImageURL = ptr(f.mediumImageURL)
	b.LargeImageURL = ptr(f.largeImageURL)

	var err error
	if b.CreatedAt, err = parseTime(f.createdAt); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = parseTime(f.updatedAt); err != nil {
		return nil, err
	}
	return b, nil
}

// UpsertBookByExternalID inserts book, or updates the existing row that
// carries the same Goodreads id and keeps that row's id. A book without a
// Goodreads id is always inserted as a new row.
func (s *Store) UpsertBookByExternalID(ctx context.Context, book *models.Book) (string, error) {
	var goodreadsID any
	if book.GoodreadsID != "" {
		goodreadsID = book.GoodreadsID
	}

	var id string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO books (`+bookColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(goodreads_id) DO UPDATE SET
			title = excluded.title,
			author = excluded.author,
			isbn = excluded.isbn,
			isbn13 = excluded.isbn13,
			average_rating = excluded.average_rating,
			ratings_count = excluded.ratings_count,
			publication_year = excluded.publication_year,
			pages = excluded.pages,
			description = excluded.description,
			image_url = excluded.image_url,
			small_image_url = excluded.small_image_url,
			medium_image_url = excluded.medium_image_url,
			large_image_url = excluded.large_image_url,
			updated_at = excluded.updated_at
		RETURNING id`,
		book.ID,
		goodreadsID,
		book.Title,
		book.Author,
		nullable(book.ISBN),
		nullable(book.ISBN13),
		nullable(book.AverageRating),
		book.RatingsCount,
		nullable(book.PublicationYear),
		nullable(book.Pages),
		nullable(book.Description),
		nullable(book.ImageURL),
		nullable(book.SmallImageURL),
		nullable(book.MediumImageURL),
		nullable(book.LargeImageURL),
		formatTime(book.CreatedAt),
		formatTime(book.UpdatedAt),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert book %q: %w", book.GoodreadsID, err)
	}
	return id, nil
}

// FindBookByExternalID returns the book with the given Goodreads id.
// Returns store.ErrNotFound if none exists.
func (s *Store) FindBookByExternalID(ctx context.Context, goodreadsID string) (*models.Book, error) {
	if goodreadsID == "" {
		return nil, store.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE goodreads_id = ?`, goodreadsID)

	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}
