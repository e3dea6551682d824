package raindrop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/thomaskoefod/podcast-briefing/internal/config"
	"github.com/thomaskoefod/podcast-briefing/internal/logging"
	"github.com/thomaskoefod/podcast-briefing/internal/retry"
	"github.com/thomaskoefod/podcast-briefing/pkg/models"
)

const (
	DefaultBaseURL   = "https://api.raindrop.io/rest/v1"
	DefaultPerPage   = 50
	DefaultPageDelay = 500 * time.Millisecond
	DefaultTimeout   = 30 * time.Second

	// maxPages stops a runaway search that never returns an empty page.
	maxPages = 200
)

// StatusError is a non-success response from the Raindrop API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Raindrop API error (status %d): %s", e.StatusCode, e.Body)
}

func (e *StatusError) HTTPStatus() int { return e.StatusCode }

type Client struct {
	apiToken  string
	baseURL   string
	perPage   int
	pageDelay time.Duration
	client    *http.Client
	policy    retry.Policy
	logger    *slog.Logger
}

type raindropsResponse struct {
	Result bool              `json:"result"`
	Items  []models.Bookmark `json:"items"`
	Count  int               `json:"count"`
}

// DefaultPolicy retries a page three times, waiting longer when throttled.
func DefaultPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:   3,
		InitialDelay:  time.Second,
		Multiplier:    2,
		RateLimitStep: 15 * time.Second,
		IsRateLimited: isRateLimited,
	}
}

func NewClient(apiToken string, cfg config.RaindropConfig, logger *slog.Logger) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	perPage := cfg.PerPage
	if perPage < 1 || perPage > DefaultPerPage {
		perPage = DefaultPerPage
	}
	pageDelay := cfg.PageDelay
	if pageDelay < 0 {
		pageDelay = 0
	}

	return &Client{
		apiToken:  apiToken,
		baseURL:   baseURL,
		perPage:   perPage,
		pageDelay: pageDelay,
		client:    &http.Client{Timeout: DefaultTimeout},
		policy:    DefaultPolicy(),
		logger:    logging.Component(logger, "raindrop"),
	}
}

// TagVariants returns the lowercase, uppercase and title-case spellings of
// tag, without repeats.
func TagVariants(tag string) []string {
	title := ""
	if r, size := utf8.DecodeRuneInString(tag); size > 0 {
		title = string(unicode.ToUpper(r)) + strings.ToLower(tag[size:])
	}

	var variants []string
	for _, v := range []string{strings.ToLower(tag), strings.ToUpper(tag), title} {
		if v == "" {
			continue
		}
		dup := false
		for _, seen := range variants {
			if seen == v {
				dup = true
				break
			}
		}
		if !dup {
			variants = append(variants, v)
		}
	}
	return variants
}

// FetchBookmarks returns every bookmark tagged tag and created after since.
// Tag casing in Raindrop is inconsistent, so each spelling is searched and
// the results merged by bookmark ID, first occurrence winning.
func (c *Client) FetchBookmarks(ctx context.Context, tag string, since time.Time) ([]models.Bookmark, error) {
	seen := make(map[int64]bool)
	var bookmarks []models.Bookmark

	for _, variant := range TagVariants(tag) {
		query := fmt.Sprintf("%s created:>%s", variant, since.Format("2006-01-02"))
		found, err := c.search(ctx, query, func(b models.Bookmark) {
			if seen[b.ID] {
				return
			}
			seen[b.ID] = true
			bookmarks = append(bookmarks, b)
		})
		if err != nil {
			return nil, fmt.Errorf("searching %q: %w", query, err)
		}
		c.logger.Debug("searched tag variant", "query", query, "found", found)
	}

	return bookmarks, nil
}

// search pages through one query until a page comes back empty.
func (c *Client) search(ctx context.Context, query string, add func(models.Bookmark)) (int, error) {
	found := 0
	for page := 0; page < maxPages; page++ {
		items, err := retry.Do(ctx, c.policy, func(ctx context.Context) ([]models.Bookmark, error) {
			return c.fetchPage(ctx, query, page)
		}, func(attempt int, err error, wait time.Duration) {
			c.logger.Warn("retrying page", "query", query, "page", page, "attempt", attempt, "wait", wait, "error", err)
		})
		if err != nil {
			return found, fmt.Errorf("fetching page %d: %w", page, err)
		}
		if len(items) == 0 {
			return found, nil
		}

		for _, b := range items {
			add(b)
		}
		found += len(items)

		if err := retry.Sleep(ctx, c.pageDelay); err != nil {
			return found, err
		}
	}

	c.logger.Warn("stopped paging at limit", "query", query, "pages", maxPages)
	return found, nil
}

func (c *Client) fetchPage(ctx context.Context, query string, page int) ([]models.Bookmark, error) {
	params := url.Values{}
	params.Set("perpage", fmt.Sprint(c.perPage))
	params.Set("page", fmt.Sprint(page))
	params.Set("search", query)
	endpoint := fmt.Sprintf("%s/raindrops/0?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiToken))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request to Raindrop: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, retry.Permanent(err)
		}
		return nil, err
	}

	var result raindropsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return result.Items, nil
}

// TestConnection checks the API token with a cheap authenticated request.
func (c *Client) TestConnection(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/user", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiToken))

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request to Raindrop: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	return nil
}

func isRateLimited(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusTooManyRequests
}
