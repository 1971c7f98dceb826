package sqlite

import (
	"context"
	"fmt"

	"github.com/aluiziolira/go-scrape-shelves/models"
)

// InsertFeedSnapshot stores the raw feed document fetched for a user.
func (s *Store) InsertFeedSnapshot(ctx context.Context, snapshot *models.FeedSnapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rss_feeds (
			id, user_id, feed_url, title, description, language,
			last_build_date, ttl, raw_content, scraped_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snapshot.ID,
		snapshot.UserID,
		snapshot.FeedURL,
		nullable(snapshot.Title),
		nullable(snapshot.Description),
		nullable(snapshot.Language),
		nullable(snapshot.LastBuildDate),
		nullable(snapshot.TTL),
		snapshot.RawContent,
		formatTime(snapshot.ScrapedAt),
	)
	if err != nil {
		return fmt.Errorf("insert feed snapshot %s: %w", snapshot.ID, err)
	}
	return nil
}

// DeleteFeedSnapshotsByUserID removes every stored feed of userID.
func (s *Store) DeleteFeedSnapshotsByUserID(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM rss_feeds WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete feed snapshots of %s: %w", userID, err)
	}
	return nil
}
