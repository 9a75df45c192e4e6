package summarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
)

// Chain tries backends in order until one produces a summary. Every call runs
// under its own timeout and a panic boundary.
type Chain struct {
	backends []Backend
	timeout  time.Duration
	retry    engine.RetryConfig
}

// NewChain loads every backend implementing Loader and keeps only those that
// load. Dropped backends are logged, never returned as errors.
func NewChain(ctx context.Context, timeout time.Duration, backends ...Backend) *Chain {
	c := &Chain{timeout: timeout, retry: engine.BackendRetryConfig}
	for _, b := range backends {
		if b == nil {
			continue
		}
		if l, ok := b.(Loader); ok {
			if err := safeLoad(ctx, l); err != nil {
				slog.Info("summary backend unavailable, skipping",
					slog.String("backend", b.Name()), slog.Any("error", err))
				continue
			}
		}
		c.backends = append(c.backends, b)
	}
	return c
}

// WithRetry overrides the per-backend retry policy.
func (c *Chain) WithRetry(rc engine.RetryConfig) *Chain {
	c.retry = rc
	return c
}

// Backends returns the loaded backends in fallback order.
func (c *Chain) Backends() []Backend { return c.backends }

// Len returns the number of loaded backends.
func (c *Chain) Len() int { return len(c.backends) }

// Primary returns the first backend, or nil for an empty chain.
func (c *Chain) Primary() Backend {
	if len(c.backends) == 0 {
		return nil
	}
	return c.backends[0]
}

// Remote returns the first backend of the remote tier, or nil.
func (c *Chain) Remote() Backend {
	for _, b := range c.backends {
		if b.Tier() == engine.TierRemote {
			return b
		}
	}
	return nil
}

// Summarize returns the first successful backend answer and the backend that
// produced it. The error joins every backend failure when all are exhausted.
func (c *Chain) Summarize(ctx context.Context, req Request) (string, Backend, error) {
	if len(c.backends) == 0 {
		return "", nil, ErrNoBackends
	}
	var errs []error
	for i, b := range c.backends {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		out, err := c.call(ctx, b, req)
		if err == nil {
			if i > 0 {
				engine.IncrBackendFallback()
			}
			return out, b, nil
		}
		engine.IncrBackendError()
		slog.Info("summary backend failed, falling back",
			slog.String("backend", b.Name()), slog.Any("error", err))
		errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
	}
	return "", nil, errors.Join(errs...)
}

// SummarizeWith runs a single backend under the same boundary as the chain.
func (c *Chain) SummarizeWith(ctx context.Context, b Backend, req Request) (string, error) {
	out, err := c.call(ctx, b, req)
	if err != nil {
		engine.IncrBackendError()
	}
	return out, err
}

func (c *Chain) call(ctx context.Context, b Backend, req Request) (string, error) {
	return engine.RetryDo(ctx, c.retry, func() (string, error) {
		engine.IncrBackendCall()
		callCtx := ctx
		if c.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}
		out, err := safeSummarize(callCtx, b, req)
		if err != nil {
			return "", err
		}
		out = engine.StripFences(out)
		if strings.TrimSpace(out) == "" {
			return "", ErrEmptyOutput
		}
		return out, nil
	})
}

func safeSummarize(ctx context.Context, b Backend, req Request) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("summary backend panic", slog.String("backend", b.Name()),
				slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return b.Summarize(ctx, req)
}

func safeLoad(ctx context.Context, l Loader) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return l.Load(ctx)
}

// Close releases resources held by backends that implement Closer.
func (c *Chain) Close() error {
	var errs []error
	for _, b := range c.backends {
		if cl, ok := b.(Closer); ok {
			if err := cl.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
