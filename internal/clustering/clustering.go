// Package clustering groups summarized stories into topics with a
// completion service, falling back to a single topic when that fails.
package clustering

import (
	"context"
	"log/slog"
	"time"

	"github.com/thomaskoefod/podcast-briefing/internal/ai"
	"github.com/thomaskoefod/podcast-briefing/internal/logging"
	"github.com/thomaskoefod/podcast-briefing/internal/retry"
	"github.com/thomaskoefod/podcast-briefing/pkg/models"
)

const (
	DefaultModel     = "claude-haiku-4-5-20251001"
	DefaultMaxTokens = 2048

	SingleTopicTitle = "News"
	FallbackTitle    = "News Stories"
	OtherTitle       = "Other"
)

type Options struct {
	Model     string
	MaxTokens int
}

type Clusterer struct {
	completer ai.Completer
	opts      Options
	policy    retry.Policy
	logger    *slog.Logger
}

func New(completer ai.Completer, opts Options, logger *slog.Logger) *Clusterer {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	return &Clusterer{
		completer: completer,
		opts:      opts,
		policy:    ai.RetryPolicy(),
		logger:    logging.Component(logger, "clustering"),
	}
}

// Cluster returns topics covering every story exactly once. It does not
// fail: when the service keeps erroring or replying with unusable JSON the
// stories come back as one topic in their original order.
func (c *Clusterer) Cluster(ctx context.Context, stories []models.Story) []models.Topic {
	switch len(stories) {
	case 0:
		return []models.Topic{}
	case 1:
		return []models.Topic{{Title: SingleTopicTitle, Stories: stories}}
	}

	req := ai.Request{
		Model:     c.opts.Model,
		MaxTokens: c.opts.MaxTokens,
		Prompt:    buildPrompt(stories),
	}

	topics, err := retry.Do(ctx, c.policy, func(ctx context.Context) ([]models.Topic, error) {
		reply, err := c.completer.Complete(ctx, req)
		if err != nil {
			return nil, err
		}
		return Parse(reply, stories)
	}, func(attempt int, err error, wait time.Duration) {
		if c.policy.RateLimited(err) {
			c.logger.Warn("rate limit hit during clustering", "attempt", attempt, "wait", wait)
			return
		}
		c.logger.Warn("clustering attempt failed", "attempt", attempt, "wait", wait, "error", err)
	})
	if err != nil {
		c.logger.Warn("clustering failed, using single topic fallback", "stories", len(stories), "error", err)
		return Fallback(stories)
	}

	c.logger.Debug("clustered stories", "stories", len(stories), "topics", len(topics))
	return topics
}

// Fallback puts every story in one topic, order unchanged.
func Fallback(stories []models.Story) []models.Topic {
	return []models.Topic{{Title: FallbackTitle, Stories: stories}}
}
