// Package parser turns raw feed documents and profile pages into normalized records.
// Everything in this package is free of I/O.
package parser

import (
	"errors"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/aluiziolira/go-scrape-shelves/models"
)

// Entry is one feed item as a loosely typed field bag: tag name to text.
// Any field may be missing.
type Entry map[string]string

// Field names of a Goodreads shelf feed item.
const (
	FieldGUID           = "guid"
	FieldPubDate        = "pubDate"
	FieldLink           = "link"
	FieldTitle          = "title"
	FieldBookID         = "book_id"
	FieldAuthorName     = "author_name"
	FieldISBN           = "isbn"
	FieldISBN13         = "isbn13"
	FieldUserRating     = "user_rating"
	FieldAverageRating  = "average_rating"
	FieldDateAdded      = "user_date_added"
	FieldDateCreated    = "user_date_created"
	FieldDateStarted    = "user_date_started"
	FieldReadAt         = "user_read_at"
	FieldReview         = "user_review"
	FieldShelves        = "user_shelves"
	FieldDescription    = "book_description"
	FieldPublished      = "book_published"
	FieldImageURL       = "book_image_url"
	FieldSmallImageURL  = "book_small_image_url"
	FieldMediumImageURL = "book_medium_image_url"
	FieldLargeImageURL  = "book_large_image_url"
	FieldNumPages       = "num_pages"
)

var bookURLPattern = regexp.MustCompile(`/book/show/(\d+)`)

// text returns the trimmed value of key, or nil when it is missing or blank.
func (e Entry) text(key string) *string {
	v := strings.TrimSpace(e[key])
	if v == "" {
		return nil
	}
	return &v
}

// ParseEntry maps one feed entry to a normalized book record. Missing fields
// are left nil; the only failure is an entry that is not a field bag at all.
// defaultShelf is the status used when neither shelves nor a finish date say otherwise.
func ParseEntry(entry Entry, defaultShelf string) (*models.ParsedBook, error) {
	if entry == nil {
		return nil, ParseError{Err: errors.New("entry has no fields")}
	}

	book := &models.ParsedBook{
		RSSGUID:         entry.text(FieldGUID),
		PubDate:         entry.text(FieldPubDate),
		ReviewURL:       entry.text(FieldLink),
		ISBN:            entry.text(FieldISBN),
		ISBN13:          entry.text(FieldISBN13),
		PublicationYear: entry.text(FieldPublished),
		ImageURL:        entry.text(FieldImageURL),
		SmallImageURL:   entry.text(FieldSmallImageURL),
		MediumImageURL:  entry.text(FieldMediumImageURL),
		LargeImageURL:   entry.text(FieldLargeImageURL),
		DateAdded:       entry.text(FieldDateAdded),
		DateCreated:     entry.text(FieldDateCreated),
		DateStarted:     entry.text(FieldDateStarted),
		DateFinished:    entry.text(FieldReadAt),
		Review:          StripHTML(entry[FieldReview]),
		Description:     StripHTML(entry[FieldDescription]),
		Rating:          ParseRating(entry[FieldUserRating]),
		AverageRating:   parseFloat(entry[FieldAverageRating]),
		Pages:           parseInt(entry[FieldNumPages]),
	}

	book.Title, book.Author = SplitTitleAuthor(entry[FieldTitle])
	if author := strings.TrimSpace(entry[FieldAuthorName]); author != "" {
		book.Author = author
	}
	book.GoodreadsID = BookID(entry)
	book.Shelves = ParseShelves(entry[FieldShelves])
	book.Status = DeriveStatus(book.Shelves, book.DateFinished != nil, defaultShelf)

	return book, nil
}

// SplitTitleAuthor splits "<title> by <author>" on the last " by ".
// Without a match the whole string is the title and author is empty.
func SplitTitleAuthor(raw string) (title, author string) {
	raw = strings.TrimSpace(raw)
	if i := strings.LastIndex(raw, " by "); i >= 0 {
		title = strings.TrimSpace(raw[:i])
		author = strings.TrimSpace(raw[i+len(" by "):])
		if title != "" && author != "" {
			return title, author
		}
	}
	return raw, ""
}

// BookID prefers the explicit book_id field and falls back to the numeric
// id of a /book/show/ URL in the entry link.
func BookID(entry Entry) string {
	if id := strings.TrimSpace(entry[FieldBookID]); id != "" {
		return id
	}
	if m := bookURLPattern.FindStringSubmatch(entry[FieldLink]); m != nil {
		return m[1]
	}
	return ""
}

// ParseRating converts a user rating. Zero and unparseable values mean "not rated".
func ParseRating(raw string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n == 0 {
		return nil
	}
	return &n
}

// ParseShelves splits a comma separated shelf list into trimmed, non-empty,
// de-duplicated names in their original order.
func ParseShelves(raw string) []string {
	var shelves []string
	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "" || slices.Contains(shelves, token) {
			continue
		}
		shelves = append(shelves, token)
	}
	return shelves
}

// statusPriority is the order in which built-in shelves decide the status.
var statusPriority = []models.ReadingStatus{
	models.StatusCurrentlyReading,
	models.StatusToRead,
	models.StatusRead,
}

// DeriveStatus picks the single reading status of an entry:
// currently-reading, to-read, read (in that order) when shelved; otherwise the
// first shelf; otherwise read when a finish date exists; otherwise defaultShelf
// or to-read.
func DeriveStatus(shelves []string, finished bool, defaultShelf string) models.ReadingStatus {
	for _, status := range statusPriority {
		if slices.Contains(shelves, string(status)) {
			return status
		}
	}
	if len(shelves) > 0 {
		return models.ReadingStatus(shelves[0])
	}
	if finished {
		return models.StatusRead
	}
	if shelf := strings.TrimSpace(defaultShelf); shelf != "" {
		return models.ReadingStatus(shelf)
	}
	return models.StatusToRead
}

// blockElements get whitespace around their text so words do not run together.
var blockElements = map[string]bool{
	"br": true, "p": true, "div": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "tr": true, "td": true,
}

// StripHTML reduces an HTML fragment to collapsed plain text.
// Blank input, or input that is only markup, yields nil.
func StripHTML(fragment string) *string {
	if strings.TrimSpace(fragment) == "" {
		return nil
	}

	text := fragment
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment)); err == nil {
		var b strings.Builder
		for _, n := range doc.Nodes {
			writeText(&b, n)
		}
		text = b.String()
	}

	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}
	return &text
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		if n.Data == "script" || n.Data == "style" {
			return
		}
	}

	block := n.Type == html.ElementNode && blockElements[n.Data]
	if block {
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if block {
		b.WriteByte(' ')
	}
}

func parseInt(raw string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	return &n
}

func parseFloat(raw string) *float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil
	}
	return &f
}
