// Package models defines data structures shared by the fetcher, parser, pipeline and store.
package models

import "time"

// ReadingStatus is the single reading state derived from a feed entry's shelves.
type ReadingStatus string

// Known reading states. A derived status may also be the name of a custom
// exclusive shelf, which is stored verbatim.
const (
	StatusToRead           ReadingStatus = "to-read"
	StatusCurrentlyReading ReadingStatus = "currently-reading"
	StatusRead             ReadingStatus = "read"
	StatusDidNotFinish     ReadingStatus = "did-not-finish"
)

// Known reports whether s is one of the built-in reading states.
func (s ReadingStatus) Known() bool {
	switch s {
	case StatusToRead, StatusCurrentlyReading, StatusRead, StatusDidNotFinish:
		return true
	default:
		return false
	}
}

// Book is a catalog entry shared by every user that shelved it.
type Book struct {
	ID              string    `csv:"book_id" json:"id"`
	GoodreadsID     string    `csv:"goodreads_id" json:"goodreads_id,omitempty"`
	Title           string    `csv:"title" json:"title"`
	Author          string    `csv:"author" json:"author"`
	ISBN            *string   `csv:"isbn" json:"isbn,omitempty"`
	ISBN13          *string   `csv:"isbn13" json:"isbn13,omitempty"`
	AverageRating   *float64  `csv:"average_rating" json:"average_rating,omitempty"`
	RatingsCount    int       `csv:"ratings_count" json:"ratings_count"`
	PublicationYear *string   `csv:"publication_year" json:"publication_year,omitempty"`
	Pages           *int      `csv:"pages" json:"pages,omitempty"`
	Description     *string   `csv:"-" json:"description,omitempty"`
	ImageURL        *string   `csv:"image_url" json:"image_url,omitempty"`
	SmallImageURL   *string   `csv:"-" json:"small_image_url,omitempty"`
	MediumImageURL  *string   `csv:"-" json:"medium_image_url,omitempty"`
	LargeImageURL   *string   `csv:"-" json:"large_image_url,omitempty"`
	CreatedAt       time.Time `csv:"-" json:"created_at"`
	UpdatedAt       time.Time `csv:"-" json:"updated_at"`
}

// UserBook is one user's reading record for one book.
type UserBook struct {
	ID           string        `json:"id"`
	UserID       string        `json:"user_id"`
	BookID       string        `json:"book_id"`
	Status       ReadingStatus `json:"status"`
	Rating       *int          `json:"rating,omitempty"`
	Review       *string       `json:"review,omitempty"`
	ReviewURL    *string       `json:"review_url,omitempty"`
	RSSGUID      *string       `json:"rss_guid,omitempty"`
	DateAdded    *string       `json:"date_added,omitempty"`
	DateCreated  *string       `json:"date_created,omitempty"`
	DateStarted  *string       `json:"date_started,omitempty"`
	DateFinished *string       `json:"date_finished,omitempty"`
	Shelves      *string       `json:"shelves,omitempty"`
	PubDate      *string       `json:"pub_date,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`

	// Book is populated on reads that join the catalog row.
	Book *Book `json:"book,omitempty"`
}
