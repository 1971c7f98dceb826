// Package store defines the persistence contract for users, books, reading
// records and feed snapshots.
package store

import (
	"context"
	"errors"

	"github.com/aluiziolira/go-scrape-shelves/models"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")

// Store persists the reconciled library of scraped users.
type Store interface {
	UpsertUser(ctx context.Context, user *models.User) error
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	DeleteUserByUsername(ctx context.Context, username string) error

	// UpsertBookByExternalID inserts book or, when a row with the same
	// Goodreads id exists, updates it in place. It returns the id of the
	// persisted row, which differs from book.ID on update.
	UpsertBookByExternalID(ctx context.Context, book *models.Book) (string, error)
	FindBookByExternalID(ctx context.Context, goodreadsID string) (*models.Book, error)

	InsertUserBooks(ctx context.Context, userBooks []*models.UserBook) error
	DeleteUserBooksByUserID(ctx context.Context, userID string) error
	FindUserBooksByUserID(ctx context.Context, userID string) ([]*models.UserBook, error)
	FindUserBooksByUserIDAndStatus(ctx context.Context, userID string, status models.ReadingStatus) ([]*models.UserBook, error)

	InsertFeedSnapshot(ctx context.Context, snapshot *models.FeedSnapshot) error
	DeleteFeedSnapshotsByUserID(ctx context.Context, userID string) error
}
