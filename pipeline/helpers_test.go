package pipeline

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/aluiziolira/go-scrape-shelves/config"
	"github.com/aluiziolira/go-scrape-shelves/scraper"
	"github.com/aluiziolira/go-scrape-shelves/store/sqlite"
)

type feedItem struct {
	bookID  string
	title   string
	author  string
	shelves string
	rating  string
	readAt  string
}

// buildFeed renders a shelf feed; extra is appended verbatim inside the channel.
func buildFeed(items []feedItem, extra string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>bookshelf: all</title>
<language>en-US</language>
<ttl>60</ttl>
`)
	for _, it := range items {
		b.WriteString("<item>")
		fmt.Fprintf(&b, "<guid>https://www.goodreads.com/review/show/%s</guid>", it.bookID)
		fmt.Fprintf(&b, "<title>%s</title>", it.title)
		if it.bookID != "" {
			fmt.Fprintf(&b, "<book_id>%s</book_id>", it.bookID)
		}
		fmt.Fprintf(&b, "<author_name>%s</author_name>", it.author)
		fmt.Fprintf(&b, "<user_rating>%s</user_rating>", it.rating)
		fmt.Fprintf(&b, "<user_read_at>%s</user_read_at>", it.readAt)
		fmt.Fprintf(&b, "<user_shelves>%s</user_shelves>", it.shelves)
		b.WriteString("</item>\n")
	}
	b.WriteString(extra)
	b.WriteString("</channel></rss>")
	return b.String()
}

const profilePage = `<html><body>
<h1 itemprop="name">Jane Doe</h1>
<div>42 ratings (3.90 avg) 7 reviews</div>
</body></html>`

type harness struct {
	cfg        *config.Config
	transport  *httpmock.MockTransport
	store      *sqlite.Store
	dbPath     string
	metrics    *Metrics
	ingestor   *Ingestor
	reconciler *Reconciler
	service    *Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.BaseURL = "http://example.test"
	cfg.PerPage = 200
	cfg.RequestsPerSec = 0

	fetcher, err := scraper.NewFetcher(cfg)
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}
	transport := httpmock.NewMockTransport()
	fetcher.WithTransport(transport)

	dbPath := filepath.Join(t.TempDir(), "shelves.db")
	st, err := sqlite.Open(dbPath, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	metrics := NewMetrics(prometheus.NewRegistry())
	reconciler, err := NewReconciler(st, 16, metrics)
	if err != nil {
		t.Fatalf("new reconciler: %v", err)
	}
	ingestor := NewIngestor(fetcher, cfg, metrics)

	return &harness{
		cfg:        cfg,
		transport:  transport,
		store:      st,
		dbPath:     dbPath,
		metrics:    metrics,
		ingestor:   ingestor,
		reconciler: reconciler,
		service:    NewService(ingestor, reconciler, st, metrics),
	}
}

// serve registers the profile page and shelf feed of user userID-slug.
func (h *harness) serve(userID, slug, feed string) {
	h.transport.RegisterResponder("GET", "http://example.test/user/show/"+userID+"-"+slug,
		httpmock.NewStringResponder(200, profilePage))
	h.transport.RegisterResponder("GET", "=~^http://example.test/review/list_rss/"+userID+`\?`,
		httpmock.NewStringResponder(200, feed))
}

func (h *harness) countRows(t *testing.T, table string) int {
	t.Helper()
	db, err := sql.Open("sqlite", h.dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}
