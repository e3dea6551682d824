package ai

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/thomaskoefod/podcast-briefing/internal/retry"
)

// APIError is a non-success response from a completion endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("completion API error (status %d): %s", e.StatusCode, e.Body)
}

// statusCoder is implemented by transport errors that carry an HTTP status.
type statusCoder interface {
	HTTPStatus() int
}

func (e *APIError) HTTPStatus() int { return e.StatusCode }

var rateLimitMarkers = []string{"rate_limit", "rate limit", "429"}

// IsRateLimited classifies throttling errors. A 429 status wins; otherwise the
// message is searched for known markers, which covers providers that report
// throttling inside an otherwise ordinary error body.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}

	var sc statusCoder
	if errors.As(err, &sc) && sc.HTTPStatus() == http.StatusTooManyRequests {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// RetryPolicy is the backoff shared by summarization and clustering: five
// attempts, doubling from 1s, or 15s times the attempt number when throttled.
func RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:   5,
		InitialDelay:  time.Second,
		Multiplier:    2,
		RateLimitStep: 15 * time.Second,
		IsRateLimited: IsRateLimited,
	}
}
