package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aluiziolira/go-scrape-shelves/models"
	"github.com/aluiziolira/go-scrape-shelves/store"
)

// IngestResult is the uniform outcome of IngestAndPersist.
type IngestResult struct {
	Success   bool   `json:"success"`
	UserID    string `json:"user_id,omitempty"`
	Username  string `json:"username,omitempty"`
	BookCount int    `json:"book_count"`
	Message   string `json:"message"`
	Error     string `json:"error,omitempty"`
}

// Summary is a user's stored library.
type Summary struct {
	User       *models.User       `json:"user"`
	Books      []*models.UserBook `json:"books"`
	TotalBooks int                `json:"total_books"`
}

// Service exposes ingestion and the read paths over the store.
type Service struct {
	ingestor   *Ingestor
	reconciler *Reconciler
	store      store.Store
	metrics    *Metrics
}

// NewService wires an ingestor and reconciler to st. metrics may be nil.
func NewService(ingestor *Ingestor, reconciler *Reconciler, st store.Store, metrics *Metrics) *Service {
	return &Service{
		ingestor:   ingestor,
		reconciler: reconciler,
		store:      st,
		metrics:    metrics,
	}
}

// IngestAndPersist ingests ref and reconciles the snapshot into the store.
// Failures are reported in the result, never as an error value.
func (s *Service) IngestAndPersist(ctx context.Context, ref string) IngestResult {
	snap, err := s.ingestor.Ingest(ctx, ref)
	if err != nil {
		return s.failure(ref, "failed to scrape user data", err)
	}

	persisted, err := s.reconciler.Reconcile(ctx, snap)
	if err != nil {
		result := s.failure(ref, "failed to save user data", err)
		result.Username = snap.Username
		return result
	}

	s.metrics.incIngestion("success")
	return IngestResult{
		Success:   true,
		UserID:    persisted.UserID,
		Username:  persisted.Username,
		BookCount: persisted.BookCount,
		Message:   fmt.Sprintf("scraped and saved %d books for %s", persisted.BookCount, persisted.Username),
	}
}

func (s *Service) failure(ref, message string, err error) IngestResult {
	kind := ErrorKind(err)
	s.metrics.incIngestion(kind)
	slog.Error("ingestion failed",
		slog.String("ref", ref),
		slog.String("kind", kind),
		slog.Any("error", err),
	)
	return IngestResult{
		Success: false,
		Message: message,
		Error:   kind + ": " + err.Error(),
	}
}

// FetchSnapshotSummary returns the stored user and all of its reading
// records. Returns store.ErrNotFound for an unknown username.
func (s *Service) FetchSnapshotSummary(ctx context.Context, username string) (*Summary, error) {
	user, err := s.store.FindUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	books, err := s.store.FindUserBooksByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load books of %s: %w", username, err)
	}
	if books == nil {
		books = []*models.UserBook{}
	}
	return &Summary{User: user, Books: books, TotalBooks: len(books)}, nil
}

// FetchBooksByStatus returns username's records with status. An unknown
// username yields an empty list.
func (s *Service) FetchBooksByStatus(ctx context.Context, username string, status models.ReadingStatus) ([]*models.UserBook, error) {
	user, err := s.store.FindUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return []*models.UserBook{}, nil
	}
	if err != nil {
		return nil, err
	}

	books, err := s.store.FindUserBooksByUserIDAndStatus(ctx, user.ID, status)
	if err != nil {
		return nil, fmt.Errorf("load %s books of %s: %w", status, username, err)
	}
	if books == nil {
		books = []*models.UserBook{}
	}
	return books, nil
}

// ExportLibrary writes username's stored records to w and returns how many
// were written. The caller closes w.
func (s *Service) ExportLibrary(ctx context.Context, username string, w OutputWriter) (int, error) {
	summary, err := s.FetchSnapshotSummary(ctx, username)
	if err != nil {
		return 0, err
	}

	p := NewPipeline(w, 0)
	p.Start(1)
	processErr := p.Process(summary.Books)
	if err := p.Close(); err != nil {
		return p.Written(), fmt.Errorf("export %s: %w", username, err)
	}
	if processErr != nil {
		return p.Written(), fmt.Errorf("export %s: %w", username, processErr)
	}

	written := p.Written()
	s.metrics.addExported(written)
	slog.Info("library exported",
		slog.String("username", username),
		slog.Int("records", written),
		slog.Any("rejected", p.Rejected()),
	)
	return written, nil
}
