package circuitbreaker

import (
	"testing"
	"time"
)

func TestTripsOpenAfterThreshold(t *testing.T) {
	b := New(3, 1, time.Minute)

	b.Failure()
	b.Failure()
	if b.State() != StateClosed {
		t.Fatal("breaker should stay closed below threshold")
	}

	b.Failure()
	if b.State() != StateOpen {
		t.Fatal("breaker should open at threshold")
	}
	if b.Allow() {
		t.Fatal("open breaker should reject requests during cooldown")
	}
}

func TestHalfOpenRecovery(t *testing.T) {
	b := New(1, 2, 10*time.Millisecond)
	b.Failure()
	if b.State() != StateOpen {
		t.Fatal("breaker should open")
	}

	time.Sleep(20 * time.Millisecond)
	if !b.Allow() {
		t.Fatal("breaker should allow a probe after cooldown")
	}
	if b.State() != StateHalfOpen {
		t.Fatal("breaker should be half-open after cooldown probe")
	}

	b.Success()
	if b.State() != StateHalfOpen {
		t.Fatal("one success should not close the breaker yet")
	}
	b.Success()
	if b.State() != StateClosed {
		t.Fatal("breaker should close after success threshold")
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	b := New(1, 1, 10*time.Millisecond)
	b.Failure()
	time.Sleep(20 * time.Millisecond)
	b.Allow()

	var from, to State
	b.OnStateChange(func(f, t State) { from, to = f, t })
	b.Failure()
	if b.State() != StateOpen {
		t.Fatal("failure in half-open should reopen")
	}
	if from != StateHalfOpen || to != StateOpen {
		t.Errorf("unexpected transition %s -> %s", from, to)
	}
}
