package parser

import (
	"errors"
	"testing"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Jane's bookshelf: all</title>
  <description><![CDATA[Jane's bookshelf: all]]></description>
  <language>en-US</language>
  <lastBuildDate>Mon, 01 Jan 2024 10:00:00 -0800</lastBuildDate>
  <ttl>60</ttl>
  <item>
    <guid><![CDATA[https://www.goodreads.com/review/show/1]]></guid>
    <pubDate><![CDATA[Mon, 01 Jan 2024 10:00:00 -0800]]></pubDate>
    <title>Dune</title>
    <link><![CDATA[https://www.goodreads.com/review/show/1?utm_medium=api]]></link>
    <book_id>234225</book_id>
    <book_description><![CDATA[Set on <i>Arrakis</i>]]></book_description>
    <book id="234225">
      <num_pages>604</num_pages>
    </book>
    <author_name>Frank Herbert</author_name>
    <user_rating>5</user_rating>
    <user_read_at><![CDATA[Tue, 02 Jan 2024 00:00:00 +0000]]></user_read_at>
    <user_shelves>read</user_shelves>
  </item>
  <item>
    <title>Hyperion</title>
    <book_id>77566</book_id>
    <author_name>Dan Simmons</author_name>
    <user_rating>0</user_rating>
    <user_read_at></user_read_at>
    <user_shelves>to-read</user_shelves>
  </item>
  <item></item>
</channel>
</rss>`

func TestDecodeFeed(t *testing.T) {
	feed, err := DecodeFeed(sampleFeed)
	if err != nil {
		t.Fatalf("decode feed: %v", err)
	}

	if got := len(feed.Entries); got != 3 {
		t.Fatalf("entries = %d, want 3", got)
	}

	first := feed.Entries[0]
	if first[FieldBookID] != "234225" || first[FieldTitle] != "Dune" {
		t.Fatalf("unexpected first entry: %v", first)
	}
	if first[FieldNumPages] != "604" {
		t.Fatalf("nested num_pages = %q, want 604", first[FieldNumPages])
	}
	if first[FieldDescription] != "Set on <i>Arrakis</i>" {
		t.Fatalf("description = %q", first[FieldDescription])
	}

	second := feed.Entries[1]
	if v, ok := second[FieldReadAt]; !ok || v != "" {
		t.Fatalf("empty read_at should be present and blank, got %q (present=%v)", v, ok)
	}

	if feed.Entries[2] != nil {
		t.Fatalf("item without fields should decode to nil, got %v", feed.Entries[2])
	}

	meta := feed.Meta
	if meta.Title == nil || *meta.Title != "Jane's bookshelf: all" {
		t.Fatalf("meta title = %v", meta.Title)
	}
	if meta.Language == nil || *meta.Language != "en-US" {
		t.Fatalf("meta language = %v", meta.Language)
	}
	if meta.TTL == nil || *meta.TTL != 60 {
		t.Fatalf("meta ttl = %v", meta.TTL)
	}
	if meta.LastBuildDate == nil {
		t.Fatalf("meta last build date missing")
	}
}

func TestDecodeFeedEntriesParse(t *testing.T) {
	feed, err := DecodeFeed(sampleFeed)
	if err != nil {
		t.Fatalf("decode feed: %v", err)
	}

	parsed := 0
	skipped := 0
	for _, entry := range feed.Entries {
		if _, err := ParseEntry(entry, ""); err != nil {
			skipped++
			continue
		}
		parsed++
	}
	if parsed != 2 || skipped != 1 {
		t.Fatalf("parsed=%d skipped=%d, want 2/1", parsed, skipped)
	}

	second, _ := ParseEntry(feed.Entries[1], "")
	if second.Rating != nil || second.DateFinished != nil || second.Status != "to-read" {
		t.Fatalf("unexpected second entry: %+v", second)
	}
}

func TestDecodeFeedMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: "   "},
		{name: "html page", raw: "<html><body><p>Sign in</p></body></html>"},
		{name: "not xml", raw: "{\"error\":\"nope\"}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeFeed(tt.raw); !errors.Is(err, ErrMalformedFeed) {
				t.Fatalf("expected ErrMalformedFeed, got %v", err)
			}
		})
	}
}

func TestDecodeFeedNoItems(t *testing.T) {
	feed, err := DecodeFeed(`<rss version="2.0"><channel><title>empty</title></channel></rss>`)
	if err != nil {
		t.Fatalf("decode feed: %v", err)
	}
	if len(feed.Entries) != 0 {
		t.Fatalf("entries = %d, want 0", len(feed.Entries))
	}
}
