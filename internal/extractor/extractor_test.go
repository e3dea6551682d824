package extractor

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/thomaskoefod/podcast-briefing/internal/config"
)

var articleBody = strings.Repeat("The quarterly results beat every analyst estimate by a wide margin. ", 8)

func articlePage(head string) string {
	return fmt.Sprintf(`<html><head><title>Story</title>%s<script>var tracking = true;</script></head>
<body><article><h1>Story</h1><p>%s</p></article></body></html>`, head, articleBody)
}

func newTestExtractor(concurrency int) *Extractor {
	e := New(config.ExtractorConfig{Concurrency: concurrency, Timeout: 5 * time.Second}, nil, nil)
	e.policy.InitialDelay = time.Millisecond
	return e
}

func TestFetchDeniedStatusIsSingleCall(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound} {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(status)
		}))

		e := newTestExtractor(1)
		e.policy.InitialDelay = time.Second

		start := time.Now()
		if got := e.Fetch(context.Background(), server.URL); got != nil {
			t.Errorf("status %d: expected nil content, got %+v", status, got)
		}
		if n := calls.Load(); n != 1 {
			t.Errorf("status %d: expected 1 call, got %d", status, n)
		}
		if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
			t.Errorf("status %d: unexpected backoff, took %v", status, elapsed)
		}
		server.Close()
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		if ua := r.Header.Get("User-Agent"); ua != DefaultUserAgent {
			t.Errorf("unexpected user agent %q", ua)
		}
		_, _ = w.Write([]byte(articlePage("")))
	}))
	defer server.Close()

	got := newTestExtractor(1).Fetch(context.Background(), server.URL)
	if got == nil {
		t.Fatal("expected content after retries")
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}
	if !strings.Contains(got.Text, "quarterly results") {
		t.Fatalf("article text missing: %q", got.Text)
	}
	if strings.Contains(got.Text, "tracking") {
		t.Fatalf("script content leaked into text: %q", got.Text)
	}
}

func TestFetchGivesUpAfterThreeAttempts(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	if got := newTestExtractor(1).Fetch(context.Background(), server.URL); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestFetchRejectsShortContent(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>Subscribe to read.</p></body></html>`))
	}))
	defer server.Close()

	if got := newTestExtractor(1).Fetch(context.Background(), server.URL); got != nil {
		t.Fatalf("expected nil for short page, got %+v", got)
	}
}

func TestFetchAllRespectsConcurrencyCap(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		_, _ = w.Write([]byte(articlePage("")))
	}))
	defer server.Close()

	urls := make([]string, 8)
	for i := range urls {
		urls[i] = fmt.Sprintf("%s/a/%d", server.URL, i)
	}

	results := newTestExtractor(2).FetchAll(context.Background(), urls)
	if len(results) != len(urls) {
		t.Fatalf("expected %d results, got %d", len(urls), len(results))
	}

	seen := map[string]bool{}
	for _, r := range results {
		if r.Content == nil {
			t.Errorf("missing content for %s", r.URL)
		}
		seen[r.URL] = true
	}
	if len(seen) != len(urls) {
		t.Fatalf("expected every url once, got %d distinct", len(seen))
	}
	if p := peak.Load(); p > 2 {
		t.Fatalf("expected at most 2 concurrent fetches, saw %d", p)
	}
}

func TestPublishedDate(t *testing.T) {
	tests := []struct {
		name string
		head string
		want string
	}{
		{
			name: "article published time",
			head: `<meta property="article:published_time" content="2026-01-05T14:30:00Z">`,
			want: "Monday, 01/05/2026  2:30 PM",
		},
		{
			name: "offset converted to utc",
			head: `<meta property="og:published_time" content="2026-01-05T09:05:00-05:00">`,
			want: "Monday, 01/05/2026  2:05 PM",
		},
		{
			name: "date only is midnight",
			head: `<meta name="date" content="2026-02-01">`,
			want: "Sunday, 02/01/2026 12:00 AM",
		},
		{
			name: "unparseable selector falls through",
			head: `<meta name="publishdate" content="last tuesday"><meta itemprop="datePublished" content="2026-01-15">`,
			want: "Thursday, 01/15/2026 12:00 AM",
		},
		{
			name: "time element",
			head: `<time datetime="2026-03-10T11:00:00Z">March 10</time>`,
			want: "Tuesday, 03/10/2026 11:00 AM",
		},
		{
			name: "none",
			head: ``,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(articlePage(tt.head)))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if got := PublishedDate(doc); got != tt.want {
				t.Fatalf("PublishedDate = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFetchCarriesPublishedDate(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(articlePage(`<meta property="article:published_time" content="2026-01-05T14:30:00Z">`)))
	}))
	defer server.Close()

	got := newTestExtractor(1).Fetch(context.Background(), server.URL)
	if got == nil {
		t.Fatal("expected content")
	}
	if got.PublishedDate != "Monday, 01/05/2026  2:30 PM" {
		t.Fatalf("unexpected date %q", got.PublishedDate)
	}
}

func TestFetchHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if got := newTestExtractor(1).Fetch(ctx, "http://127.0.0.1:0"); got != nil {
		t.Fatalf("expected nil on cancelled context, got %+v", got)
	}
}
