package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Harky911/ReolinkANPR/internal/retry"
)

func TestDoSucceedsOnLaterAttempt(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), nil, "test", 3, time.Millisecond, func(context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestDoReturnsLastError(t *testing.T) {
	sentinel := errors.New("still broken")
	calls := 0
	err := retry.Do(context.Background(), nil, "test", 3, time.Millisecond, func(context.Context) error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestDoHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := retry.Do(ctx, nil, "test", 5, time.Minute, func(context.Context) error {
		calls++
		cancel()
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call before cancellation, got %d", calls)
	}
}

func TestBestEffortSwallowsError(t *testing.T) {
	retry.BestEffort(context.Background(), nil, "test", 2, time.Millisecond, func(context.Context) error {
		return errors.New("always fails")
	})
}
