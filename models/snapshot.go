package models

import "time"

// ParsedBook is one normalized feed entry: catalog fields plus the reading state.
type ParsedBook struct {
	GoodreadsID     string
	Title           string
	Author          string
	ISBN            *string
	ISBN13          *string
	AverageRating   *float64
	PublicationYear *string
	Pages           *int
	Description     *string
	ImageURL        *string
	SmallImageURL   *string
	MediumImageURL  *string
	LargeImageURL   *string

	Status       ReadingStatus
	Shelves      []string
	Rating       *int
	Review       *string
	ReviewURL    *string
	RSSGUID      *string
	PubDate      *string
	DateAdded    *string
	DateCreated  *string
	DateStarted  *string
	DateFinished *string
}

// FeedMeta is the channel-level metadata of a fetched feed.
type FeedMeta struct {
	Title         *string
	Description   *string
	Language      *string
	LastBuildDate *string
	TTL           *int
}

// StatusCounts are the headline counts of a snapshot. Books whose status is
// outside the three headline buckets only count towards Total.
type StatusCounts struct {
	Total            int `json:"total"`
	Read             int `json:"read"`
	CurrentlyReading int `json:"currently_reading"`
	ToRead           int `json:"to_read"`
}

// UserSnapshot is the complete result of one ingestion run, prior to persistence.
type UserSnapshot struct {
	GoodreadsID string
	Username    string
	ProfileURL  string
	Profile     Profile

	FeedURL string
	Feed    FeedMeta
	RawFeed string

	Books    []*ParsedBook
	ByStatus map[ReadingStatus][]*ParsedBook
	Counts   StatusCounts

	StartTime time.Time
	EndTime   time.Time
	Skipped   int
}

// FeedSnapshot is the append-only audit row holding a raw feed document.
type FeedSnapshot struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	FeedURL       string    `json:"feed_url"`
	Title         *string   `json:"feed_title,omitempty"`
	Description   *string   `json:"feed_description,omitempty"`
	Language      *string   `json:"feed_language,omitempty"`
	LastBuildDate *string   `json:"feed_last_build_date,omitempty"`
	TTL           *int      `json:"feed_ttl,omitempty"`
	RawContent    string    `json:"-"`
	ScrapedAt     time.Time `json:"scraped_at"`
}

// PersistResult summarizes one reconciliation.
type PersistResult struct {
	UserID       string
	Username     string
	BookCount    int
	BooksCreated int
	BooksUpdated int
}
