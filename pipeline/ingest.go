// Package pipeline turns a profile reference into a persisted library: it
// ingests the shelf feed, reconciles it into the store and exports it.
package pipeline

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-shelves/config"
	"github.com/aluiziolira/go-scrape-shelves/models"
	"github.com/aluiziolira/go-scrape-shelves/parser"
)

// Fetcher retrieves profile pages and shelf feeds.
type Fetcher interface {
	FetchProfilePage(ctx context.Context, profileURL string) (string, error)
	FetchFeedDocument(ctx context.Context, userID, shelf string, perPage int) (string, error)
	FeedURL(userID, shelf string, perPage int) string
}

// Ingestor builds a complete UserSnapshot from a profile reference.
type Ingestor struct {
	fetcher Fetcher
	cfg     *config.Config
	metrics *Metrics
}

// NewIngestor creates an ingestor. metrics may be nil.
func NewIngestor(fetcher Fetcher, cfg *config.Config, metrics *Metrics) *Ingestor {
	return &Ingestor{
		fetcher: fetcher,
		cfg:     cfg,
		metrics: metrics,
	}
}

// Ingest resolves ref, fetches the profile page and the full shelf feed, and
// parses every entry. Entries that fail to parse are logged and skipped.
// Identification and fetch failures return an *IngestionError and no snapshot.
func (i *Ingestor) Ingest(ctx context.Context, ref string) (*models.UserSnapshot, error) {
	start := time.Now()

	id := parser.ExtractProfileID(ref)
	if id.UserID == "" {
		return nil, &IngestionError{Step: StepIdentify, Err: &InvalidReferenceError{Ref: ref}}
	}

	logger := slog.With(slog.String("user_id", id.UserID), slog.String("username", id.Username))
	profileURL := i.profileURL(id)

	page, err := i.fetcher.FetchProfilePage(ctx, profileURL)
	if err != nil {
		return nil, &IngestionError{Step: StepProfile, Err: err}
	}
	profile := parser.ScrapeProfile(page)

	raw, err := i.fetcher.FetchFeedDocument(ctx, id.UserID, "", i.cfg.PerPage)
	if err != nil {
		return nil, &IngestionError{Step: StepFeed, Err: err}
	}
	feed, err := parser.DecodeFeed(raw)
	if err != nil {
		return nil, &IngestionError{Step: StepDecode, Err: err}
	}

	snap := &models.UserSnapshot{
		GoodreadsID: id.UserID,
		Username:    id.Username,
		ProfileURL:  profileURL,
		Profile:     profile,
		FeedURL:     i.fetcher.FeedURL(id.UserID, "", i.cfg.PerPage),
		Feed:        feed.Meta,
		RawFeed:     raw,
		Books:       make([]*models.ParsedBook, 0, len(feed.Entries)),
		ByStatus: map[models.ReadingStatus][]*models.ParsedBook{
			models.StatusRead:             {},
			models.StatusCurrentlyReading: {},
			models.StatusToRead:           {},
		},
		StartTime: start,
	}

	for idx, entry := range feed.Entries {
		book, err := parser.ParseEntry(entry, i.cfg.DefaultShelf)
		if err != nil {
			snap.Skipped++
			logger.Warn("skipping feed entry", slog.Int("index", idx), slog.Any("error", err))
			continue
		}
		snap.Books = append(snap.Books, book)
		if bucket, ok := snap.ByStatus[book.Status]; ok {
			snap.ByStatus[book.Status] = append(bucket, book)
		}
	}

	snap.Counts = models.StatusCounts{
		Total:            len(snap.Books),
		Read:             len(snap.ByStatus[models.StatusRead]),
		CurrentlyReading: len(snap.ByStatus[models.StatusCurrentlyReading]),
		ToRead:           len(snap.ByStatus[models.StatusToRead]),
	}
	snap.EndTime = time.Now()
	i.metrics.addEntries(len(snap.Books), snap.Skipped)

	logger.Info("feed ingested",
		slog.Int("books", snap.Counts.Total),
		slog.Int("read", snap.Counts.Read),
		slog.Int("currently_reading", snap.Counts.CurrentlyReading),
		slog.Int("to_read", snap.Counts.ToRead),
		slog.Int("skipped", snap.Skipped),
		slog.Duration("elapsed", snap.EndTime.Sub(snap.StartTime)),
	)
	return snap, nil
}

// profileURL is the canonical profile address for id on the configured site.
func (i *Ingestor) profileURL(id models.ProfileID) string {
	slug := id.UserID
	if id.Username != id.UserID && id.Username != parser.UnknownUsername {
		slug += "-" + url.PathEscape(id.Username)
	}
	return strings.TrimSuffix(i.cfg.BaseURL, "/") + "/user/show/" + slug
}
