// Package summarizer asks a completion service for a structured summary of
// each article and parses the reply into a models.Summary.
package summarizer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/thomaskoefod/podcast-briefing/internal/ai"
	"github.com/thomaskoefod/podcast-briefing/internal/logging"
	"github.com/thomaskoefod/podcast-briefing/internal/retry"
	"github.com/thomaskoefod/podcast-briefing/pkg/models"
)

const (
	DefaultModel       = "claude-3-5-haiku-20241022"
	DefaultMaxTokens   = 768
	DefaultConcurrency = 2
	DefaultPause       = 500 * time.Millisecond
	DefaultMaxChars    = 10000
)

type Options struct {
	Model       string
	MaxTokens   int
	Concurrency int
	// Pause is held after each successful call, permit still taken.
	Pause    time.Duration
	MaxChars int
}

// Input is one article to summarize.
type Input struct {
	URL  string
	Text string
}

// Result is the summary produced for one URL.
type Result struct {
	URL     string
	Summary models.Summary
}

type Summarizer struct {
	completer ai.Completer
	opts      Options
	sem       *semaphore.Weighted
	policy    retry.Policy
	logger    *slog.Logger
}

func New(completer ai.Completer, opts Options, logger *slog.Logger) *Summarizer {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Pause < 0 {
		opts.Pause = 0
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}

	return &Summarizer{
		completer: completer,
		opts:      opts,
		sem:       semaphore.NewWeighted(int64(opts.Concurrency)),
		policy:    ai.RetryPolicy(),
		logger:    logging.Component(logger, "summarizer"),
	}
}

// Summarize never fails outward: once retries are exhausted it returns a
// Failed summary carrying the last error.
func (s *Summarizer) Summarize(ctx context.Context, text string) models.Summary {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return models.FailedSummary(err.Error())
	}
	defer s.sem.Release(1)

	req := ai.Request{
		Model:     s.opts.Model,
		MaxTokens: s.opts.MaxTokens,
		Prompt:    buildPrompt(Truncate(text, s.opts.MaxChars)),
	}

	summary, err := retry.Do(ctx, s.policy, func(ctx context.Context) (models.Summary, error) {
		reply, err := s.completer.Complete(ctx, req)
		if err != nil {
			return models.Summary{}, err
		}
		return ParseReply(reply)
	}, func(attempt int, err error, wait time.Duration) {
		if s.policy.RateLimited(err) {
			s.logger.Warn("rate limit hit, backing off", "attempt", attempt, "wait", wait)
			return
		}
		s.logger.Debug("retrying summary", "attempt", attempt, "wait", wait, "error", err)
	})
	if err != nil {
		s.logger.Warn("failed to summarize", "error", err)
		return models.FailedSummary(err.Error())
	}

	if err := retry.Sleep(ctx, s.opts.Pause); err != nil {
		s.logger.Debug("pause interrupted", "error", err)
	}
	return summary
}

// SummarizeAll summarizes every input concurrently, bounded by the permit
// pool. progress, when set, is called once per finished article from the
// collecting goroutine. Results are in completion order.
func (s *Summarizer) SummarizeAll(ctx context.Context, inputs []Input, progress func(Result)) []Result {
	results := make(chan Result)

	var wg sync.WaitGroup
	for _, in := range inputs {
		wg.Add(1)
		go func(in Input) {
			defer wg.Done()
			results <- Result{URL: in.URL, Summary: s.Summarize(ctx, in.Text)}
		}(in)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]Result, 0, len(inputs))
	for r := range results {
		if progress != nil {
			progress(r)
		}
		out = append(out, r)
	}
	return out
}
