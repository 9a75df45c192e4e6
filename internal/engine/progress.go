package engine

import (
	"context"
	"sync"
	"time"
)

// ProgressFunc receives an estimated completion percentage in [0, 99].
type ProgressFunc func(percent int)

// StartProgress reports elapsed-time-based progress for a blocking call whose
// duration is roughly known. fn runs on a ticker goroutine every interval.
// The returned stop is idempotent; once it returns, fn is not called again.
// Progress never reaches 100: only the caller knows when the work is done.
func StartProgress(ctx context.Context, expected, interval time.Duration, fn ProgressFunc) (stop func()) {
	if fn == nil || expected <= 0 || interval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	var once sync.Once
	start := time.Now()

	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(EstimatePercent(time.Since(start), expected))
			}
		}
	}()

	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}

// EstimatePercent maps elapsed/expected onto [0, 99].
func EstimatePercent(elapsed, expected time.Duration) int {
	if expected <= 0 || elapsed <= 0 {
		return 0
	}
	pct := int(elapsed * 100 / expected)
	if pct > 99 {
		return 99
	}
	return pct
}
