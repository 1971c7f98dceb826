package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/aluiziolira/go-scrape-shelves/config"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		expected   string
	}{
		{name: "nil", err: nil, statusCode: 0, expected: "unknown"},
		{name: "context timeout", err: context.DeadlineExceeded, statusCode: 0, expected: "timeout"},
		{name: "net timeout", err: &net.DNSError{IsTimeout: true}, statusCode: 0, expected: "timeout"},
		{name: "connection", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, statusCode: 0, expected: "connection"},
		{name: "forbidden", err: nil, statusCode: http.StatusForbidden, expected: "forbidden"},
		{name: "not found", err: nil, statusCode: http.StatusNotFound, expected: "not_found"},
		{name: "rate limited", err: nil, statusCode: http.StatusTooManyRequests, expected: "rate_limited"},
		{name: "other", err: errors.New("some other error"), statusCode: 0, expected: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorType(classifyError(tt.err, tt.statusCode)); got != tt.expected {
				t.Fatalf("classifyError(%v, %d) = %q, want %q", tt.err, tt.statusCode, got, tt.expected)
			}
		})
	}
}

func TestFeedURL(t *testing.T) {
	f := newTestFetcher(t)

	tests := []struct {
		name    string
		userID  string
		shelf   string
		perPage int
		want    string
	}{
		{name: "all shelves", userID: "123", perPage: 50, want: "http://example.test/review/list_rss/123?per_page=50"},
		{name: "single shelf", userID: "123", shelf: "to-read", perPage: 10, want: "http://example.test/review/list_rss/123?per_page=10&shelf=to-read"},
		{name: "default page size", userID: "9", want: "http://example.test/review/list_rss/9?per_page=1000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.FeedURL(tt.userID, tt.shelf, tt.perPage); got != tt.want {
				t.Fatalf("FeedURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFetchFeedDocument(t *testing.T) {
	f := newTestFetcher(t)
	transport := httpmock.NewMockTransport()
	f.WithTransport(transport)

	transport.RegisterResponder("GET", "=~^http://example.test/review/list_rss/123",
		func(req *http.Request) (*http.Response, error) {
			query := req.URL.Query()
			if query.Get("shelf") != "read" || query.Get("per_page") != "25" {
				return httpmock.NewStringResponse(http.StatusBadRequest, ""), nil
			}
			resp := httpmock.NewStringResponse(http.StatusOK, "<rss><channel></channel></rss>")
			resp.Header.Set("Content-Type", "application/xml")
			return resp, nil
		},
	)

	body, err := f.FetchFeedDocument(context.Background(), "123", "read", 25)
	if err != nil {
		t.Fatalf("fetch feed: %v", err)
	}
	if body != "<rss><channel></channel></rss>" {
		t.Fatalf("unexpected body %q", body)
	}
	if got := counterValue(t, f.Metrics.RequestsTotal.WithLabelValues(phaseFeed)); got != 1 {
		t.Fatalf("feed requests = %v, want 1", got)
	}
}

func TestFetchFeedDocumentRequiresUserID(t *testing.T) {
	f := newTestFetcher(t)
	transport := httpmock.NewMockTransport()
	f.WithTransport(transport)

	_, err := f.FetchFeedDocument(context.Background(), "  ", "", 0)
	var fetchErr FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if transport.GetTotalCallCount() != 0 {
		t.Fatalf("no request should be issued without a user id")
	}
}

func TestFetchProfilePage(t *testing.T) {
	f := newTestFetcher(t)
	transport := httpmock.NewMockTransport()
	f.WithTransport(transport)

	profileURL := "http://example.test/user/show/123-alice"
	transport.RegisterResponder("GET", profileURL, htmlResponder("<html><h1>Alice</h1></html>"))

	body, err := f.FetchProfilePage(context.Background(), profileURL)
	if err != nil {
		t.Fatalf("fetch profile: %v", err)
	}
	if !strings.Contains(body, "Alice") {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestFetchHTTPStatusClassification(t *testing.T) {
	tests := []struct {
		status   int
		expected string
	}{
		{status: http.StatusTooManyRequests, expected: "rate_limited"},
		{status: http.StatusForbidden, expected: "forbidden"},
		{status: http.StatusNotFound, expected: "not_found"},
		{status: http.StatusInternalServerError, expected: "server_error"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			f := newTestFetcher(t)
			transport := httpmock.NewMockTransport()
			f.WithTransport(transport)

			profileURL := "http://example.test/user/show/1-x"
			transport.RegisterResponder("GET", profileURL, httpmock.NewStringResponder(tt.status, ""))

			_, err := f.FetchProfilePage(context.Background(), profileURL)
			var fetchErr FetchError
			if !errors.As(err, &fetchErr) {
				t.Fatalf("expected FetchError, got %v", err)
			}
			if fetchErr.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", fetchErr.StatusCode, tt.status)
			}
			if got := ErrorType(err); got != tt.expected {
				t.Fatalf("ErrorType() = %q, want %q", got, tt.expected)
			}
			if got := counterValue(t, f.Metrics.ErrorsTotal.WithLabelValues(phaseProfile, tt.expected)); got != 1 {
				t.Fatalf("error counter = %v, want 1", got)
			}
		})
	}
}

func TestFetchConnectionError(t *testing.T) {
	f := newTestFetcher(t)
	transport := httpmock.NewMockTransport()
	f.WithTransport(transport)

	profileURL := "http://example.test/user/show/1-x"
	transport.RegisterResponder("GET", profileURL,
		httpmock.NewErrorResponder(&net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}))

	_, err := f.FetchProfilePage(context.Background(), profileURL)
	if got := ErrorType(err); got != "connection" {
		t.Fatalf("ErrorType() = %q, want connection (err=%v)", got, err)
	}
}

func TestFetchCanceledContext(t *testing.T) {
	f := newTestFetcher(t)
	transport := httpmock.NewMockTransport()
	f.WithTransport(transport)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.FetchFeedDocument(ctx, "123", "", 0); err == nil {
		t.Fatalf("expected error for canceled context")
	}
	if transport.GetTotalCallCount() != 0 {
		t.Fatalf("no request should be issued after cancellation")
	}
}

func newTestFetcher(t *testing.T) *Fetcher {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.BaseURL = "http://example.test/"
	cfg.RequestsPerSec = 0
	f, err := NewFetcher(cfg)
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}
	return f
}

func htmlResponder(body string) httpmock.Responder {
	resp := httpmock.NewStringResponse(200, body)
	resp.Header.Set("Content-Type", "text/html")
	return httpmock.ResponderFromResponse(resp)
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}
