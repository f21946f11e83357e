package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 30 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 30 * time.Second},
		{"negative failures", -1, 30 * time.Second},
		{"one failure", 1, time.Minute},
		{"two failures", 2, 2 * time.Minute},
		{"three failures", 3, 4 * time.Minute},
		{"four failures capped", 4, 5 * time.Minute}, // Would be 8m, capped to 5m
		{"many failures capped", 40, 5 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	baseInterval := 2 * time.Second
	for failures := 0; failures <= 20; failures++ {
		got := calculateBackoff(failures, baseInterval)
		if got > maxBackoff {
			t.Errorf("calculateBackoff(%d, %v) = %v, exceeds maxBackoff %v", failures, baseInterval, got, maxBackoff)
		}
	}
}

func TestRunRefresher_RetriesUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := make(chan struct{})

	go func() {
		defer close(done)
		runRefresher(ctx, 5*time.Millisecond, func(context.Context) error {
			n := calls.Add(1)
			if n == 4 {
				cancel()
			}
			if n <= 2 {
				return errors.New("offline")
			}
			return nil
		}, zaptest.NewLogger(t))
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("refresher did not stop after cancel")
	}
	if got := calls.Load(); got < 4 {
		t.Fatalf("refresh called %d times, want at least 4", got)
	}
}

func TestRunRefresher_DisabledReturnsImmediately(t *testing.T) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		runRefresher(context.Background(), 0, func(context.Context) error {
			t.Error("refresh must not run when disabled")
			return nil
		}, zaptest.NewLogger(t))
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled refresher blocked")
	}
}
