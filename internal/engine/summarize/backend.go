package summarize

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
)

// Request is one summarization call. MaxLength and MinLength are advisory
// budgets in characters; 0 means unspecified.
type Request struct {
	Text      string
	Language  engine.Language
	MaxLength int
	MinLength int
}

// Backend is one summarization capability provider.
type Backend interface {
	Name() string
	Tier() engine.SummaryTier
	Summarize(ctx context.Context, req Request) (string, error)
}

// Loader is implemented by backends that need a readiness check before use
// (model download, local server probe). Backends whose Load fails are dropped.
type Loader interface {
	Load(ctx context.Context) error
}

// Closer is implemented by backends holding resources.
type Closer interface {
	Close() error
}

var (
	// ErrEmptyOutput is returned when a backend answers with no text.
	ErrEmptyOutput = errors.New("backend returned empty summary")
	// ErrNoBackends is returned by a chain with nothing configured.
	ErrNoBackends = errors.New("no summarization backend configured")
)

// BackendFunc adapts a function into a Backend. Used by tests and for
// wrapping ad-hoc providers.
type BackendFunc struct {
	BackendName string
	BackendTier engine.SummaryTier
	Fn          func(ctx context.Context, req Request) (string, error)
}

func (b BackendFunc) Name() string             { return b.BackendName }
func (b BackendFunc) Tier() engine.SummaryTier { return b.BackendTier }
func (b BackendFunc) Summarize(ctx context.Context, req Request) (string, error) {
	return b.Fn(ctx, req)
}

// retryStatusRe finds a rate-limit or server status code in a client error.
// go-kit/llm and genai report the HTTP status only in the message text.
var retryStatusRe = regexp.MustCompile(`\b(429|500|502|503|504)\b`)

var retryMarkers = []string{
	"rate limit",
	"too many requests",
	"resource_exhausted",
	"overloaded",
	"service unavailable",
	"internal server error",
	"bad gateway",
	"gateway timeout",
}

// markTransient wraps rate-limit and server errors with engine.Transient so
// the chain retries them. Context errors and client errors pass through.
func markTransient(err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	msg := strings.ToLower(err.Error())
	if retryStatusRe.MatchString(msg) {
		return engine.Transient(err)
	}
	for _, m := range retryMarkers {
		if strings.Contains(msg, m) {
			return engine.Transient(err)
		}
	}
	return err
}
