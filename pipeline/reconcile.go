package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/go-scrape-shelves/models"
	"github.com/aluiziolira/go-scrape-shelves/store"
)

// Reconciler replaces a user's stored library with the contents of a snapshot.
type Reconciler struct {
	store   store.Store
	books   *lru.Cache[string, string]
	locks   *keyedMutex
	metrics *Metrics
	now     func() time.Time
}

// NewReconciler creates a reconciler that caches up to cacheSize Goodreads
// book ids. metrics may be nil.
func NewReconciler(st store.Store, cacheSize int, metrics *Metrics) (*Reconciler, error) {
	books, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create book cache: %w", err)
	}
	return &Reconciler{
		store:   st,
		books:   books,
		locks:   newKeyedMutex(),
		metrics: metrics,
		now:     time.Now,
	}, nil
}

// Reconcile deletes the previous rows stored for the snapshot's username and
// writes a fresh user, its feed snapshot and one reading record per book.
// Catalog rows are shared across users and updated in place by Goodreads id.
//
// Reconciles of the same username are serialized. A failure aborts with a
// *PersistenceError; rows already written by this call stay in place until
// the next successful reconcile of that username replaces them.
func (r *Reconciler) Reconcile(ctx context.Context, snap *models.UserSnapshot) (*models.PersistResult, error) {
	release := r.locks.Lock(snap.Username)
	defer release()

	start := time.Now()
	defer func() { r.metrics.observeReconcile(time.Since(start)) }()

	if err := r.removeExisting(ctx, snap.Username); err != nil {
		return nil, err
	}

	now := r.now()
	user, err := r.insertUser(ctx, snap, now)
	if err != nil {
		return nil, err
	}

	if err := r.insertFeedSnapshot(ctx, user.ID, snap, now); err != nil {
		return nil, err
	}

	result := &models.PersistResult{UserID: user.ID, Username: user.Username}
	userBooks := make([]*models.UserBook, 0, len(snap.Books))
	for _, parsed := range snap.Books {
		bookID, created, err := r.persistBook(ctx, parsed, now)
		if err != nil {
			return nil, err
		}
		if created {
			result.BooksCreated++
		} else {
			result.BooksUpdated++
		}

		ub, err := newUserBook(user.ID, bookID, parsed, now)
		if err != nil {
			return nil, &PersistenceError{Op: "generate_id", Err: err}
		}
		userBooks = append(userBooks, ub)
	}

	if err := r.store.InsertUserBooks(ctx, userBooks); err != nil {
		return nil, &PersistenceError{Op: "insert_user_books", Err: err}
	}
	result.BookCount = len(userBooks)
	r.metrics.addBooks(result.BooksCreated, result.BooksUpdated)

	slog.Info("library reconciled",
		slog.String("username", user.Username),
		slog.String("user_id", user.ID),
		slog.Int("books", result.BookCount),
		slog.Int("created", result.BooksCreated),
		slog.Int("updated", result.BooksUpdated),
	)
	return result, nil
}

func (r *Reconciler) removeExisting(ctx context.Context, username string) error {
	existing, err := r.store.FindUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return &PersistenceError{Op: "find_user", Err: err}
	}

	if err := r.store.DeleteUserBooksByUserID(ctx, existing.ID); err != nil {
		return &PersistenceError{Op: "delete_user_books", Err: err}
	}
	if err := r.store.DeleteFeedSnapshotsByUserID(ctx, existing.ID); err != nil {
		return &PersistenceError{Op: "delete_feed_snapshots", Err: err}
	}
	if err := r.store.DeleteUserByUsername(ctx, username); err != nil {
		return &PersistenceError{Op: "delete_user", Err: err}
	}
	slog.Debug("previous library removed", slog.String("username", username), slog.String("user_id", existing.ID))
	return nil
}

func (r *Reconciler) insertUser(ctx context.Context, snap *models.UserSnapshot, now time.Time) (*models.User, error) {
	id, err := models.NewID(models.PrefixUser)
	if err != nil {
		return nil, &PersistenceError{Op: "generate_id", Err: err}
	}

	user := &models.User{
		ID:            id,
		GoodreadsID:   snap.GoodreadsID,
		Username:      snap.Username,
		ProfileURL:    snap.ProfileURL,
		Name:          snap.Profile.Name,
		Location:      snap.Profile.Location,
		Bio:           snap.Profile.Bio,
		JoinedDate:    snap.Profile.JoinedDate,
		FriendsCount:  snap.Profile.FriendsCount,
		ReviewsCount:  snap.Profile.ReviewsCount,
		RatingsCount:  snap.Profile.RatingsCount,
		AverageRating: snap.Profile.AverageRating,
		ScrapedAt:     now,
		CreatedAt:     now,
	}
	if err := r.store.UpsertUser(ctx, user); err != nil {
		return nil, &PersistenceError{Op: "upsert_user", Err: err}
	}
	return user, nil
}

func (r *Reconciler) insertFeedSnapshot(ctx context.Context, userID string, snap *models.UserSnapshot, now time.Time) error {
	id, err := models.NewID(models.PrefixFeedSnapshot)
	if err != nil {
		return &PersistenceError{Op: "generate_id", Err: err}
	}

	feed := &models.FeedSnapshot{
		ID:            id,
		UserID:        userID,
		FeedURL:       snap.FeedURL,
		Title:         snap.Feed.Title,
		Description:   snap.Feed.Description,
		Language:      snap.Feed.Language,
		LastBuildDate: snap.Feed.LastBuildDate,
		TTL:           snap.Feed.TTL,
		RawContent:    snap.RawFeed,
		ScrapedAt:     now,
	}
	if err := r.store.InsertFeedSnapshot(ctx, feed); err != nil {
		return &PersistenceError{Op: "insert_feed_snapshot", Err: err}
	}
	return nil
}

// persistBook upserts the catalog row for parsed and reports its id and
// whether a new row was created.
func (r *Reconciler) persistBook(ctx context.Context, parsed *models.ParsedBook, now time.Time) (string, bool, error) {
	book := catalogBook(parsed, now)

	existingID, err := r.lookupBook(ctx, parsed.GoodreadsID)
	if err != nil {
		return "", false, err
	}
	created := existingID == ""
	if created {
		if book.ID, err = models.NewID(models.PrefixBook); err != nil {
			return "", false, &PersistenceError{Op: "generate_id", Err: err}
		}
	} else {
		book.ID = existingID
	}

	id, err := r.store.UpsertBookByExternalID(ctx, book)
	if err != nil {
		return "", false, &PersistenceError{Op: "upsert_book", Err: err}
	}
	if parsed.GoodreadsID != "" {
		r.books.Add(parsed.GoodreadsID, id)
	}
	return id, created, nil
}

// lookupBook returns the stored id for goodreadsID, or "" when no row exists.
func (r *Reconciler) lookupBook(ctx context.Context, goodreadsID string) (string, error) {
	if goodreadsID == "" {
		return "", nil
	}
	if id, ok := r.books.Get(goodreadsID); ok {
		return id, nil
	}

	existing, err := r.store.FindBookByExternalID(ctx, goodreadsID)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", &PersistenceError{Op: "find_book", Err: err}
	}
	return existing.ID, nil
}

func catalogBook(parsed *models.ParsedBook, now time.Time) *models.Book {
	return &models.Book{
		GoodreadsID:     parsed.GoodreadsID,
		Title:           parsed.Title,
		Author:          parsed.Author,
		ISBN:            parsed.ISBN,
		ISBN13:          parsed.ISBN13,
		AverageRating:   parsed.AverageRating,
		PublicationYear: parsed.PublicationYear,
		Pages:           parsed.Pages,
		Description:     parsed.Description,
		ImageURL:        parsed.ImageURL,
		SmallImageURL:   parsed.SmallImageURL,
		MediumImageURL:  parsed.MediumImageURL,
		LargeImageURL:   parsed.LargeImageURL,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func newUserBook(userID, bookID string, parsed *models.ParsedBook, now time.Time) (*models.UserBook, error) {
	id, err := models.NewID(models.PrefixUserBook)
	if err != nil {
		return nil, err
	}

	var shelves *string
	if len(parsed.Shelves) > 0 {
		joined := strings.Join(parsed.Shelves, ", ")
		shelves = &joined
	}

	return &models.UserBook{
		ID:           id,
		UserID:       userID,
		BookID:       bookID,
		Status:       parsed.Status,
		Rating:       parsed.Rating,
		Review:       parsed.Review,
		ReviewURL:    parsed.ReviewURL,
		RSSGUID:      parsed.RSSGUID,
		DateAdded:    parsed.DateAdded,
		DateCreated:  parsed.DateCreated,
		DateStarted:  parsed.DateStarted,
		DateFinished: parsed.DateFinished,
		Shelves:      shelves,
		PubDate:      parsed.PubDate,
		CreatedAt:    now,
	}, nil
}
