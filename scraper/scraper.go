// Package scraper fetches Goodreads profile pages and shelf feeds.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"

	"github.com/aluiziolira/go-scrape-shelves/config"
)

const (
	phaseProfile = "profile"
	phaseFeed    = "feed"
)

// Fetcher performs single-attempt fetches. Every call runs on a clone of one
// collector, so all calls share its HTTP backend and connection pool, and
// waits on one process-wide rate limiter.
type Fetcher struct {
	cfg       *config.Config
	collector *colly.Collector
	limiter   *rate.Limiter
	Metrics   *Metrics
}

// NewFetcher builds a fetcher configured from cfg.
func NewFetcher(cfg *config.Config) (*Fetcher, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
		colly.MaxBodySize(cfg.MaxBodySize),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	limit := rate.Inf
	if cfg.RequestsPerSec > 0 {
		limit = rate.Limit(cfg.RequestsPerSec)
	}

	return &Fetcher{
		cfg:       cfg,
		collector: collector,
		limiter:   rate.NewLimiter(limit, 1),
		Metrics:   NewMetrics(),
	}, nil
}

// WithTransport replaces the round tripper of the shared HTTP backend.
func (f *Fetcher) WithTransport(rt http.RoundTripper) {
	f.collector.WithTransport(rt)
}

// FetchProfilePage returns the HTML of a profile page.
func (f *Fetcher) FetchProfilePage(ctx context.Context, profileURL string) (string, error) {
	return f.fetch(ctx, phaseProfile, profileURL)
}

// FetchFeedDocument returns the raw RSS document of a user's shelf feed.
// An empty shelf selects every shelf; perPage <= 0 uses the configured page size.
// Feeds are not paginated: entries beyond one page are not fetched.
func (f *Fetcher) FetchFeedDocument(ctx context.Context, userID, shelf string, perPage int) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", FetchError{Err: fmt.Errorf("user id is required to build a feed url")}
	}
	return f.fetch(ctx, phaseFeed, f.FeedURL(userID, shelf, perPage))
}

// FeedURL builds the shelf feed URL for userID.
func (f *Fetcher) FeedURL(userID, shelf string, perPage int) string {
	if perPage <= 0 {
		perPage = f.cfg.PerPage
	}
	query := url.Values{}
	query.Set("per_page", strconv.Itoa(perPage))
	if shelf != "" {
		query.Set("shelf", shelf)
	}
	return strings.TrimSuffix(f.cfg.BaseURL, "/") + "/review/list_rss/" + url.PathEscape(userID) + "?" + query.Encode()
}

func (f *Fetcher) fetch(ctx context.Context, phase, target string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", FetchError{URL: target, Err: classifyError(err, 0)}
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return "", FetchError{URL: target, Err: classifyError(err, 0)}
	}

	c := f.collector.Clone()

	var (
		body   []byte
		status int
		start  time.Time
	)
	c.OnRequest(func(r *colly.Request) {
		start = time.Now()
		f.Metrics.IncRequest(phase)
	})
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
		f.Metrics.ObserveDuration(phase, time.Since(start))
		f.Metrics.ObserveBytes(len(r.Body))
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	err := c.Visit(target)
	if err == nil && (status < http.StatusOK || status >= http.StatusMultipleChoices) {
		err = fmt.Errorf("unexpected response status %d", status)
	}
	if err != nil {
		fetchErr := FetchError{URL: target, StatusCode: status, Err: classifyError(err, status)}
		category := ErrorType(fetchErr)
		f.Metrics.IncError(phase, category)
		slog.Error("fetch failed",
			slog.String("phase", phase),
			slog.String("url", target),
			slog.Int("status", status),
			slog.String("category", category),
			slog.Any("error", err),
		)
		return "", fetchErr
	}

	slog.Debug("fetched document",
		slog.String("phase", phase),
		slog.String("url", target),
		slog.Int("bytes", len(body)),
	)
	return string(body), nil
}
