package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/mmcdole/gofeed/rss"

	"github.com/aluiziolira/go-scrape-shelves/models"
)

// Feed is a decoded shelf feed: channel metadata plus one field bag per item.
// An item without element children decodes to a nil Entry.
type Feed struct {
	Meta    models.FeedMeta
	Entries []Entry
}

// DecodeFeed splits a raw RSS document into channel metadata and item field bags.
// It fails with ErrMalformedFeed when the document has no RSS channel.
func DecodeFeed(raw string) (*Feed, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: empty document", ErrMalformedFeed)
	}

	doc, err := xmlquery.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFeed, err)
	}
	channel := xmlquery.FindOne(doc, "//channel")
	if channel == nil {
		return nil, fmt.Errorf("%w: no channel element", ErrMalformedFeed)
	}

	items := xmlquery.Find(channel, "item")
	feed := &Feed{
		Meta:    decodeMeta(raw),
		Entries: make([]Entry, 0, len(items)),
	}
	for _, item := range items {
		feed.Entries = append(feed.Entries, fieldBag(item))
	}
	return feed, nil
}

// decodeMeta reads channel metadata; it is best-effort and yields an empty
// record when the channel does not parse as RSS.
func decodeMeta(raw string) models.FeedMeta {
	var p rss.Parser
	channel, err := p.Parse(strings.NewReader(raw))
	if err != nil || channel == nil {
		return models.FeedMeta{}
	}

	meta := models.FeedMeta{
		Title:         optional(channel.Title),
		Description:   optional(channel.Description),
		Language:      optional(channel.Language),
		LastBuildDate: optional(channel.LastBuildDate),
	}
	if ttl, err := strconv.Atoi(strings.TrimSpace(channel.TTL)); err == nil {
		meta.TTL = &ttl
	}
	return meta
}

func fieldBag(item *xmlquery.Node) Entry {
	bag := Entry{}
	collectFields(item, bag)
	if len(bag) == 0 {
		return nil
	}
	return bag
}

// collectFields records leaf children of n by tag name, then descends into
// container children (e.g. <book><num_pages>) to fill names not seen yet.
func collectFields(n *xmlquery.Node, bag Entry) {
	var containers []*xmlquery.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		if hasElementChild(c) {
			containers = append(containers, c)
			continue
		}
		if _, seen := bag[c.Data]; !seen {
			bag[c.Data] = c.InnerText()
		}
	}
	for _, c := range containers {
		collectFields(c, bag)
	}
}

func hasElementChild(n *xmlquery.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			return true
		}
	}
	return false
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
