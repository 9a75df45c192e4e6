package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestEstimatePercent(t *testing.T) {
	tests := []struct {
		elapsed, expected time.Duration
		want              int
	}{
		{0, time.Second, 0},
		{500 * time.Millisecond, time.Second, 50},
		{time.Second, time.Second, 99},
		{time.Hour, time.Second, 99},
		{time.Second, 0, 0},
	}
	for _, tt := range tests {
		if got := EstimatePercent(tt.elapsed, tt.expected); got != tt.want {
			t.Errorf("EstimatePercent(%v, %v) = %d, want %d", tt.elapsed, tt.expected, got, tt.want)
		}
	}
}

func TestStartProgressStops(t *testing.T) {
	var calls atomic.Int64
	var last atomic.Int64
	stop := StartProgress(context.Background(), 50*time.Millisecond, time.Millisecond, func(p int) {
		calls.Add(1)
		last.Store(int64(p))
	})

	time.Sleep(20 * time.Millisecond)
	stop()
	after := calls.Load()
	if after == 0 {
		t.Fatal("expected at least one progress callback")
	}
	if p := last.Load(); p < 0 || p > 99 {
		t.Errorf("progress out of range: %d", p)
	}

	time.Sleep(10 * time.Millisecond)
	if calls.Load() != after {
		t.Error("callback fired after stop returned")
	}
	stop() // idempotent
}

func TestStartProgressNoop(t *testing.T) {
	stop := StartProgress(context.Background(), 0, time.Millisecond, func(int) {
		t.Error("callback must not run without an expected duration")
	})
	time.Sleep(5 * time.Millisecond)
	stop()
}

func TestStartProgressContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int64
	stop := StartProgress(ctx, time.Second, time.Millisecond, func(int) { calls.Add(1) })
	cancel()
	time.Sleep(10 * time.Millisecond)
	n := calls.Load()
	time.Sleep(10 * time.Millisecond)
	if calls.Load() != n {
		t.Error("callback kept firing after context cancel")
	}
	stop()
}
