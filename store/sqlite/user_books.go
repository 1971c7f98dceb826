package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/aluiziolira/go-scrape-shelves/models"
)

// userBookColumns must match the scan order in scanUserBook.
const userBookColumns = `id, user_id, book_id, status, rating, review,
	review_url, rss_guid, date_added, date_created, date_started,
	date_finished, shelves, pub_date, created_at`

// joinedUserBookQuery selects reading records with their catalog row.
var joinedUserBookQuery = `SELECT ` + prefixColumns("ub", userBookColumns) + `, ` +
	prefixColumns("b", bookColumns) + `
	FROM user_books ub
	JOIN books b ON b.id = ub.book_id`

func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = alias + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}

// scanUserBook scans a joined row into a UserBook with Book populated.
func scanUserBook(scanner interface{ Scan(dest ...any) error }) (*models.UserBook, error) {
	var (
		ub           models.UserBook
		b            models.Book
		rating       sql.Null[int]
		review       sql.Null[string]
		reviewURL    sql.Null[string]
		rssGUID      sql.Null[string]
		dateAdded    sql.Null[string]
		dateCreated  sql.Null[string]
		dateStarted  sql.Null[string]
		dateFinished sql.Null[string]
		shelves      sql.Null[string]
		pubDate      sql.Null[string]
		status       string
		createdAt    string
		goodreadsID  sql.NullString
		fields       bookFields
	)

	dest := []any{
		&ub.ID,
		&ub.UserID,
		&ub.BookID,
		&status,
		&rating,
		&review,
		&reviewURL,
		&rssGUID,
		&dateAdded,
		&dateCreated,
		&dateStarted,
		&dateFinished,
		&shelves,
		&pubDate,
		&createdAt,
		&b.ID,
		&goodreadsID,
	}
	if err := scanner.Scan(append(dest, fields.dest(&b)...)...); err != nil {
		return nil, err
	}

	ub.Status = models.ReadingStatus(status)
	ub.Rating = ptr(rating)
	ub.Review = ptr(review)
	ub.ReviewURL = ptr(reviewURL)
	ub.RSSGUID = ptr(rssGUID)
	ub.DateAdded = ptr(dateAdded)
	ub.DateCreated = ptr(dateCreated)
	ub.DateStarted = ptr(dateStarted)
	ub.DateFinished = ptr(dateFinished)
	ub.Shelves = ptr(shelves)
	ub.PubDate = ptr(pubDate)

	var err error
	if ub.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if ub.Book, err = fields.finish(&b, goodreadsID); err != nil {
		return nil, err
	}
	return &ub, nil
}

// InsertUserBooks writes all records in one transaction.
func (s *Store) InsertUserBooks(ctx context.Context, userBooks []*models.UserBook) error {
	if len(userBooks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO user_books (`+userBookColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare user book insert: %w", err)
	}
	defer stmt.Close()

	for _, ub := range userBooks {
		_, err := stmt.ExecContext(ctx,
			ub.ID,
			ub.UserID,
			ub.BookID,
			string(ub.Status),
			nullable(ub.Rating),
			nullable(ub.Review),
			nullable(ub.ReviewURL),
			nullable(ub.RSSGUID),
			nullable(ub.DateAdded),
			nullable(ub.DateCreated),
			nullable(ub.DateStarted),
			nullable(ub.DateFinished),
			nullable(ub.Shelves),
			nullable(ub.PubDate),
			formatTime(ub.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert user book %s: %w", ub.ID, err)
		}
	}

	return tx.Commit()
}

// DeleteUserBooksByUserID removes every reading record of userID.
func (s *Store) DeleteUserBooksByUserID(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM user_books WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete user books of %s: %w", userID, err)
	}
	return nil
}

// FindUserBooksByUserID returns userID's records in insertion order.
func (s *Store) FindUserBooksByUserID(ctx context.Context, userID string) ([]*models.UserBook, error) {
	return s.queryUserBooks(ctx, joinedUserBookQuery+` WHERE ub.user_id = ? ORDER BY ub.rowid`, userID)
}

// FindUserBooksByUserIDAndStatus returns userID's records with status.
func (s *Store) FindUserBooksByUserIDAndStatus(ctx context.Context, userID string, status models.ReadingStatus) ([]*models.UserBook, error) {
	return s.queryUserBooks(ctx,
		joinedUserBookQuery+` WHERE ub.user_id = ? AND ub.status = ? ORDER BY ub.rowid`, userID, string(status))
}

func (s *Store) queryUserBooks(ctx context.Context, query string, args ...any) ([]*models.UserBook, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var userBooks []*models.UserBook
	for rows.Next() {
		ub, err := scanUserBook(rows)
		if err != nil {
			return nil, err
		}
		userBooks = append(userBooks, ub)
	}
	return userBooks, rows.Err()
}
