package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aluiziolira/go-scrape-shelves/models"
	"github.com/aluiziolira/go-scrape-shelves/store"
)

// userColumns must match the scan order in scanUser.
const userColumns = `id, goodreads_id, username, profile_url,
	name, location, bio, joined_date,
	friends_count, reviews_count, ratings_count, average_rating,
	scraped_at, created_at`

func scanUser(scanner interface{ Scan(dest ...any) error }) (*models.User, error) {
	var u models.User

	var (
		name          sql.Null[string]
		location      sql.Null[string]
		bio           sql.Null[string]
		joinedDate    sql.Null[string]
		friendsCount  sql.Null[int]
		reviewsCount  sql.Null[int]
		ratingsCount  sql.Null[int]
		averageRating sql.Null[float64]
		scrapedAt     string
		createdAt     string
	)

	err := scanner.Scan(
		&u.ID,
		&u.GoodreadsID,
		&u.Username,
		&u.ProfileURL,
		&name,
		&location,
		&bio,
		&joinedDate,
		&friendsCount,
		&reviewsCount,
		&ratingsCount,
		&averageRating,
		&scrapedAt,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	u.Name = ptr(name)
	u.Location = ptr(location)
	u.Bio = ptr(bio)
	u.JoinedDate = ptr(joinedDate)
	u.FriendsCount = ptr(friendsCount)
	u.ReviewsCount = ptr(reviewsCount)
	u.RatingsCount = ptr(ratingsCount)
	u.AverageRating = ptr(averageRating)

	if u.ScrapedAt, err = parseTime(scrapedAt); err != nil {
		return nil, err
	}
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpsertUser inserts user or replaces the row with the same id.
func (s *Store) UpsertUser(ctx context.Context, user *models.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO goodreads_users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			goodreads_id = excluded.goodreads_id,
			username = excluded.username,
			profile_url = excluded.profile_url,
			name = excluded.name,
			location = excluded.location,
			bio = excluded.bio,
			joined_date = excluded.joined_date,
			friends_count = excluded.friends_count,
			reviews_count = excluded.reviews_count,
			ratings_count = excluded.ratings_count,
			average_rating = excluded.average_rating,
			scraped_at = excluded.scraped_at`,
		user.ID,
		user.GoodreadsID,
		user.Username,
		user.ProfileURL,
		nullable(user.Name),
		nullable(user.Location),
		nullable(user.Bio),
		nullable(user.JoinedDate),
		nullable(user.FriendsCount),
		nullable(user.ReviewsCount),
		nullable(user.RatingsCount),
		nullable(user.AverageRating),
		formatTime(user.ScrapedAt),
		formatTime(user.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", user.ID, err)
	}
	return nil
}

// FindUserByUsername returns the most recently created user with username.
// Returns store.ErrNotFound if none exists.
func (s *Store) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM goodreads_users
		WHERE username = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, username)

	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// DeleteUserByUsername removes every user row with username. Reading
// records and feed snapshots cascade.
func (s *Store) DeleteUserByUsername(ctx context.Context, username string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM goodreads_users WHERE username = ?`, username); err != nil {
		return fmt.Errorf("delete user %s: %w", username, err)
	}
	return nil
}
