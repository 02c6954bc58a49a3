package util

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestCircuitBreakerOpensAndRecovers(t *testing.T) {
	cb := NewCircuitBreaker("test", 2, 30*time.Second, zap.NewNop())
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb.now = func() time.Time { return now }

	cb.RecordFailure()
	if ok, _ := cb.Allow(); !ok {
		t.Fatalf("one failure must not open the circuit")
	}
	cb.RecordFailure()
	if cb.State() != CircuitStateOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}

	now = now.Add(10 * time.Second)
	ok, wait := cb.Allow()
	if ok || wait != 20*time.Second {
		t.Fatalf("expected rejection with 20s wait, got %v %v", ok, wait)
	}

	now = now.Add(20 * time.Second)
	if ok, _ := cb.Allow(); !ok || cb.State() != CircuitStateHalfOpen {
		t.Fatalf("expected a half-open trial call")
	}

	cb.RecordFailure()
	if cb.State() != CircuitStateOpen {
		t.Fatalf("failed trial call must reopen, got %s", cb.State())
	}

	now = now.Add(30 * time.Second)
	cb.Allow()
	cb.RecordSuccess()
	if cb.State() != CircuitStateClosed {
		t.Fatalf("successful trial call must close, got %s", cb.State())
	}
}

func TestCircuitBreakerHalfOpenAdmitsOneTrial(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, 30*time.Second, zap.NewNop())
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb.now = func() time.Time { return now }

	cb.RecordFailure()
	now = now.Add(30 * time.Second)

	if ok, _ := cb.Allow(); !ok {
		t.Fatalf("expected the first caller to try")
	}
	for i := 0; i < 3; i++ {
		if ok, _ := cb.Allow(); ok {
			t.Fatalf("caller %d must wait for the in-flight trial call", i)
		}
	}

	cb.Release()
	if cb.State() != CircuitStateHalfOpen {
		t.Fatalf("release must not change state, got %s", cb.State())
	}
	if ok, _ := cb.Allow(); !ok {
		t.Fatalf("expected a new trial call after release")
	}
	if ok, _ := cb.Allow(); ok {
		t.Fatalf("second trial call must be rejected")
	}

	cb.RecordSuccess()
	for i := 0; i < 3; i++ {
		if ok, _ := cb.Allow(); !ok {
			t.Fatalf("closed circuit must admit caller %d", i)
		}
	}
}
