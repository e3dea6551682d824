// Package extractor fetches bookmarked pages and reduces them to plain
// article text plus a best-effort publish date.
package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/sync/semaphore"

	"github.com/thomaskoefod/podcast-briefing/internal/config"
	"github.com/thomaskoefod/podcast-briefing/internal/logging"
	"github.com/thomaskoefod/podcast-briefing/internal/retry"
	"github.com/thomaskoefod/podcast-briefing/pkg/models"
)

const (
	DefaultTimeout     = 30 * time.Second
	DefaultConcurrency = 10
	DefaultMinLength   = 100
	DefaultUserAgent   = "Mozilla/5.0 (compatible; PodcastBriefing/1.0)"

	maxBodySize = 10 << 20
)

// DefaultPolicy is three attempts with backoff doubling from 500ms.
func DefaultPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		Multiplier:   2,
	}
}

// StatusError is a retryable non-success response.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

func (e *StatusError) HTTPStatus() int { return e.StatusCode }

// Result pairs a URL with its extracted content; Content is nil when the
// page was unreachable or had no usable text.
type Result struct {
	URL     string
	Content *models.ArticleContent
}

type Extractor struct {
	client      *http.Client
	userAgent   string
	minLength   int
	concurrency int
	sem         *semaphore.Weighted
	policy      retry.Policy
	converter   *md.Converter
	logger      *slog.Logger
}

// New builds an extractor from config. jar may be nil.
func New(cfg config.ExtractorConfig, jar http.CookieJar, logger *slog.Logger) *Extractor {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	minLength := cfg.MinLength
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &Extractor{
		client:      &http.Client{Timeout: timeout, Jar: jar},
		userAgent:   userAgent,
		minLength:   minLength,
		concurrency: concurrency,
		sem:         semaphore.NewWeighted(int64(concurrency)),
		policy:      DefaultPolicy(),
		converter:   md.NewConverter("", true, nil),
		logger:      logging.Component(logger, "extractor"),
	}
}

// Fetch returns the article at pageURL, or nil when it is unreachable,
// denied, missing or too short. Transport failures are retried and then
// logged; they never surface as errors.
func (e *Extractor) Fetch(ctx context.Context, pageURL string) *models.ArticleContent {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil
	}
	defer e.sem.Release(1)

	content, err := retry.Do(ctx, e.policy, func(ctx context.Context) (*models.ArticleContent, error) {
		return e.fetchOnce(ctx, pageURL)
	}, func(attempt int, err error, wait time.Duration) {
		e.logger.Debug("retrying fetch", "url", pageURL, "attempt", attempt, "wait", wait, "error", err)
	})
	if err != nil {
		e.logger.Warn("failed to fetch article", "url", pageURL, "error", err)
		return nil
	}
	if content == nil {
		e.logger.Debug("no usable content", "url", pageURL)
	}
	return content
}

// FetchAll fetches every URL concurrently, bounded by the permit pool.
// Results arrive in completion order.
func (e *Extractor) FetchAll(ctx context.Context, urls []string) []Result {
	results := make(chan Result, len(urls))

	var wg sync.WaitGroup
	for _, u := range urls {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			results <- Result{URL: u, Content: e.Fetch(ctx, u)}
		}(u)
	}
	wg.Wait()
	close(results)

	out := make([]Result, 0, len(urls))
	for r := range results {
		out = append(out, r)
	}
	return out
}

func (e *Extractor) fetchOnce(ctx context.Context, pageURL string) (*models.ArticleContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: pageURL}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return e.Parse(pageURL, body), nil
}

// Parse extracts text and publish date from a fetched page.
func (e *Extractor) Parse(pageURL string, page []byte) *models.ArticleContent {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil
	}

	published := PublishedDate(doc)

	doc.Find("script, style, noscript, iframe, svg").Remove()
	text := e.text(doc, pageURL)
	if len(text) < e.minLength {
		return nil
	}

	return &models.ArticleContent{Text: text, PublishedDate: published}
}

// text isolates the main article with readability and renders it as
// markdown-flavoured plain text. The whole document is used when
// readability finds nothing.
func (e *Extractor) text(doc *goquery.Document, pageURL string) string {
	page, err := doc.Html()
	if err != nil {
		return strings.TrimSpace(doc.Text())
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		base = &url.URL{}
	}

	body := page
	if article, err := readability.FromReader(strings.NewReader(page), base); err == nil && strings.TrimSpace(article.Content) != "" {
		body = article.Content
	}

	text, err := e.converter.ConvertString(body)
	if err != nil {
		return strings.TrimSpace(doc.Text())
	}
	return strings.TrimSpace(text)
}
