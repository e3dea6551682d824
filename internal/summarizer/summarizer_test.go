package summarizer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/thomaskoefod/podcast-briefing/internal/ai"
	"github.com/thomaskoefod/podcast-briefing/pkg/models"
)

const editorialReply = `FORMAT: EDITORIAL
WHATS_HAPPENING: The regulator approved the merger.
WHY_IT_MATTERS: It creates the largest carrier in the region.
BIG_PICTURE: Consolidation keeps accelerating.
QUOTE: "We are thrilled" -- Jane Doe`

type completerFunc func(ctx context.Context, req ai.Request) (string, error)

func (f completerFunc) Complete(ctx context.Context, req ai.Request) (string, error) {
	return f(ctx, req)
}

func newTestSummarizer(c ai.Completer, concurrency int) *Summarizer {
	s := New(c, Options{Concurrency: concurrency}, nil)
	s.opts.Pause = 0
	s.policy.InitialDelay = time.Millisecond
	s.policy.RateLimitStep = time.Millisecond
	return s
}

func TestParseReply(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		kind    models.SummaryKind
		wantErr error
	}{
		{"editorial", editorialReply, models.KindEditorial, nil},
		{
			name:  "product",
			reply: "FORMAT: PRODUCT\nTHE_PRODUCT: A folding phone.\nCOST: $1,799\nAVAILABILITY: March\nPLATFORMS: Android",
			kind:  models.KindProduct,
		},
		{
			name:  "format inferred from product field",
			reply: "THE_PRODUCT: A new laptop.\nCOST: $999",
			kind:  models.KindProduct,
		},
		{
			name:  "format inferred as editorial",
			reply: "WHATS_HAPPENING: Something.\nWHY_IT_MATTERS: Because.",
			kind:  models.KindEditorial,
		},
		{
			name:  "lowercase format value",
			reply: "FORMAT: product\nTHE_PRODUCT: A watch.",
			kind:  models.KindProduct,
		},
		{
			name:  "indented labels and prose",
			reply: "Here is your summary:\n\n   WHATS_HAPPENING: A.  \n\tWHY_IT_MATTERS: B.\nThanks!",
			kind:  models.KindEditorial,
		},
		{
			name:  "sentinel wins over labels",
			reply: editorialReply + "\nInsufficient content for summary",
			kind:  models.KindInsufficient,
		},
		{
			name:    "product missing product field",
			reply:   "FORMAT: PRODUCT\nCOST: $5",
			wantErr: ErrMissingProduct,
		},
		{
			name:    "editorial missing why",
			reply:   "FORMAT: EDITORIAL\nWHATS_HAPPENING: A.",
			wantErr: ErrMissingEditorial,
		},
		{
			name:    "labels are case sensitive",
			reply:   "whats_happening: A.\nwhy_it_matters: B.",
			wantErr: ErrMissingEditorial,
		},
		{
			name:    "empty",
			reply:   "",
			wantErr: ErrMissingEditorial,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReply(tt.reply)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v (%v)", tt.wantErr, err, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Kind() != tt.kind {
				t.Fatalf("expected %s, got %s", tt.kind, got.Kind())
			}
		})
	}
}

func TestParseReplyFields(t *testing.T) {
	got, err := ParseReply(editorialReply)
	if err != nil {
		t.Fatalf("ParseReply: %v", err)
	}
	e, ok := got.Editorial()
	if !ok {
		t.Fatalf("expected editorial, got %v", got)
	}
	if e.WhatsHappening != "The regulator approved the merger." || e.BigPicture != "Consolidation keeps accelerating." {
		t.Fatalf("unexpected fields %+v", e)
	}
	if e.Quote == nil || *e.Quote != `"We are thrilled" -- Jane Doe` {
		t.Fatalf("unexpected quote %v", e.Quote)
	}

	got, err = ParseReply("THE_PRODUCT: A phone.\nQUOTE:   ")
	if err != nil {
		t.Fatalf("ParseReply: %v", err)
	}
	p, _ := got.Product()
	if p.Quote != nil {
		t.Fatalf("empty quote should be omitted, got %q", *p.Quote)
	}
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	// 10,050 characters, most of them three bytes wide.
	article := "a" + strings.Repeat("日本語", 3349) + "bc"
	if n := utf8.RuneCountInString(article); n != 10050 {
		t.Fatalf("fixture has %d characters", n)
	}

	for _, max := range []int{10000, 9999, 9998} {
		got := Truncate(article, max)
		if len(got) > max {
			t.Fatalf("max %d: got %d bytes", max, len(got))
		}
		if !utf8.ValidString(got) {
			t.Fatalf("max %d: truncated text is not valid UTF-8", max)
		}
		if !strings.HasPrefix(article, got) {
			t.Fatalf("max %d: truncation is not a prefix", max)
		}
		if len(got) < max-3 {
			t.Fatalf("max %d: cut too much, %d bytes left", max, len(got))
		}
	}

	if got := Truncate("short", 10000); got != "short" {
		t.Fatalf("short input changed: %q", got)
	}
}

func TestSummarizeSendsTruncatedPrompt(t *testing.T) {
	t.Parallel()

	var got ai.Request
	c := completerFunc(func(ctx context.Context, req ai.Request) (string, error) {
		got = req
		return editorialReply, nil
	})

	article := strings.Repeat("x", 20000)
	summary := newTestSummarizer(c, 1).Summarize(context.Background(), article)
	if summary.Kind() != models.KindEditorial {
		t.Fatalf("expected editorial, got %v", summary)
	}
	if got.Model != DefaultModel || got.MaxTokens != DefaultMaxTokens {
		t.Fatalf("unexpected request %+v", got)
	}
	if !strings.HasSuffix(got.Prompt, "Article:\n"+strings.Repeat("x", DefaultMaxChars)) {
		t.Fatalf("prompt should end with the truncated article")
	}
}

func TestSummarizeRetriesRateLimit(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := completerFunc(func(ctx context.Context, req ai.Request) (string, error) {
		if calls.Add(1) == 1 {
			return "", &ai.APIError{StatusCode: 429, Body: "rate_limit_error"}
		}
		return editorialReply, nil
	})

	summary := newTestSummarizer(c, 1).Summarize(context.Background(), "text")
	if !summary.Usable() {
		t.Fatalf("expected usable summary, got %v", summary)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestSummarizeExhaustedRetriesIsFailed(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := completerFunc(func(ctx context.Context, req ai.Request) (string, error) {
		calls.Add(1)
		return "", errors.New("connection reset by peer")
	})

	summary := newTestSummarizer(c, 1).Summarize(context.Background(), "text")
	reason, ok := summary.FailureReason()
	if !ok {
		t.Fatalf("expected Failed, got %v", summary)
	}
	if !strings.Contains(reason, "connection reset") {
		t.Fatalf("reason should carry the last error, got %q", reason)
	}
	if calls.Load() != 5 {
		t.Fatalf("expected 5 attempts, got %d", calls.Load())
	}
}

func TestSummarizeMalformedReplyIsFailed(t *testing.T) {
	t.Parallel()

	c := completerFunc(func(ctx context.Context, req ai.Request) (string, error) {
		return "FORMAT: PRODUCT\nCOST: free", nil
	})

	summary := newTestSummarizer(c, 1).Summarize(context.Background(), "text")
	if summary.Kind() != models.KindFailed {
		t.Fatalf("expected Failed, got %v", summary)
	}
	if _, ok := summary.Product(); ok {
		t.Fatal("must never produce a product without THE_PRODUCT")
	}
}

func TestSummarizeInsufficientIsSingleCall(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := completerFunc(func(ctx context.Context, req ai.Request) (string, error) {
		calls.Add(1)
		return "Insufficient content for summary.", nil
	})

	summary := newTestSummarizer(c, 1).Summarize(context.Background(), "text")
	if summary.Kind() != models.KindInsufficient {
		t.Fatalf("expected Insufficient, got %v", summary)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 call, got %d", calls.Load())
	}
}

func TestSummarizeAllRespectsConcurrencyCap(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32
	c := completerFunc(func(ctx context.Context, req ai.Request) (string, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		return editorialReply, nil
	})

	inputs := make([]Input, 7)
	for i := range inputs {
		inputs[i] = Input{URL: string(rune('a' + i)), Text: "text"}
	}

	var mu sync.Mutex
	var progressed int
	results := newTestSummarizer(c, 2).SummarizeAll(context.Background(), inputs, func(Result) {
		mu.Lock()
		progressed++
		mu.Unlock()
	})

	if len(results) != len(inputs) || progressed != len(inputs) {
		t.Fatalf("expected %d results and progress calls, got %d and %d", len(inputs), len(results), progressed)
	}
	if p := peak.Load(); p > 2 {
		t.Fatalf("expected at most 2 concurrent calls, saw %d", p)
	}
}

func FuzzParseReply(f *testing.F) {
	f.Add(editorialReply)
	f.Add("FORMAT: PRODUCT\nTHE_PRODUCT: x")
	f.Add("FORMAT: PRODUCT\n")
	f.Add("QUOTE: \nFORMAT:\n\n")
	f.Add("Insufficient content for summary")

	f.Fuzz(func(t *testing.T, reply string) {
		got, err := ParseReply(reply)
		if strings.Contains(reply, InsufficientSentinel) {
			if err != nil || got.Kind() != models.KindInsufficient {
				t.Fatalf("sentinel reply must be Insufficient, got %v, %v", got, err)
			}
			return
		}
		if err != nil {
			return
		}
		switch got.Kind() {
		case models.KindEditorial:
			e, _ := got.Editorial()
			if e.WhatsHappening == "" || e.WhyItMatters == "" {
				t.Fatalf("half-populated editorial %+v", e)
			}
		case models.KindProduct:
			p, _ := got.Product()
			if p.TheProduct == "" {
				t.Fatalf("product without product field %+v", p)
			}
		default:
			t.Fatalf("unexpected kind %s", got.Kind())
		}
	})
}
