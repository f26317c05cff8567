package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Multiplier:      1.5,
	}
}

func TestDoSucceedsAfterRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(3), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if calls != 3 {
		t.Errorf("op called %d times, want 3", calls)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	var exhausted error
	p := fastPolicy(3)
	p.OnExhausted = func(err error) { exhausted = err }

	err := Do(context.Background(), p, func() error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want the final error", err)
	}
	if calls != 3 {
		t.Errorf("op called %d times, want MaxAttempts of 3", calls)
	}
	if !errors.Is(exhausted, boom) {
		t.Errorf("OnExhausted received %v", exhausted)
	}
}

func TestDoSingleAttempt(t *testing.T) {
	calls := 0
	p := Policy{MaxAttempts: 1}
	err := Do(context.Background(), p, func() error {
		calls++
		return errors.New("fail")
	})
	if err == nil {
		t.Fatalf("expected failure")
	}
	if calls != 1 {
		t.Errorf("op called %d times, want 1", calls)
	}
}

func TestDoPermanentStops(t *testing.T) {
	fatal := errors.New("fatal")
	calls := 0
	err := Do(context.Background(), fastPolicy(5), func() error {
		calls++
		return Permanent(fatal)
	})
	if !errors.Is(err, fatal) {
		t.Fatalf("got %v, want the permanent error", err)
	}
	if calls != 1 {
		t.Errorf("permanent error retried %d times", calls)
	}
}

func TestDoContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{
		MaxAttempts:     100,
		InitialInterval: 50 * time.Millisecond,
		Multiplier:      1,
	}
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, p, func() error {
			calls++
			return errors.New("never succeeds")
		})
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("cancelled retry should fail")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("retry loop did not stop on cancellation")
	}
	if calls >= 100 {
		t.Errorf("retry loop ran to exhaustion despite cancellation")
	}
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", p.MaxAttempts)
	}
	if p.InitialInterval != 100*time.Millisecond {
		t.Errorf("InitialInterval = %v", p.InitialInterval)
	}
}
