package models

import "time"

// User is a scraped Goodreads account. A fresh row is written on every ingestion.
type User struct {
	ID            string    `json:"id"`
	GoodreadsID   string    `json:"goodreads_id"`
	Username      string    `json:"username"`
	ProfileURL    string    `json:"profile_url"`
	Name          *string   `json:"name,omitempty"`
	Location      *string   `json:"location,omitempty"`
	Bio           *string   `json:"bio,omitempty"`
	JoinedDate    *string   `json:"joined_date,omitempty"`
	FriendsCount  *int      `json:"friends_count,omitempty"`
	ReviewsCount  *int      `json:"reviews_count,omitempty"`
	RatingsCount  *int      `json:"ratings_count,omitempty"`
	AverageRating *float64  `json:"average_rating,omitempty"`
	ScrapedAt     time.Time `json:"scraped_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// Profile holds the display fields scraped from a profile page.
// Each field is nil when the page did not expose it.
type Profile struct {
	Name          *string
	Location      *string
	Bio           *string
	JoinedDate    *string
	FriendsCount  *int
	ReviewsCount  *int
	RatingsCount  *int
	AverageRating *float64
}

// ProfileID is the identity derived from a profile reference.
// UserID is empty when the reference carried no numeric id.
type ProfileID struct {
	UserID   string
	Username string
}
