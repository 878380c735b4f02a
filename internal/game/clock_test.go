package game

import "testing"

func TestCountdownFiresOnce(t *testing.T) {
	c := NewCountdown(3)

	fired := 0
	for i := 0; i < 10; i++ {
		if c.Tick() {
			fired++
		}
	}

	if fired != 1 {
		t.Errorf("Expected expiry to fire once, fired %d times", fired)
	}
	if c.SecondsRemaining() != 0 {
		t.Errorf("Expected 0 seconds remaining, got %d", c.SecondsRemaining())
	}
	if !c.Expired() {
		t.Error("Expected countdown to report expired")
	}
}

func TestCountdownDecrements(t *testing.T) {
	c := NewCountdown(10)
	for want := 9; want > 0; want-- {
		if c.Tick() {
			t.Fatalf("Unexpected expiry with %d seconds left", want)
		}
		if c.SecondsRemaining() != want {
			t.Fatalf("Expected %d seconds remaining, got %d", want, c.SecondsRemaining())
		}
	}
	if !c.Tick() {
		t.Error("Expected expiry on the tick reaching zero")
	}
}

func TestCountdownStopPreventsExpiry(t *testing.T) {
	c := NewCountdown(2)
	c.Tick()
	c.Stop()

	if c.Tick() || c.Tick() {
		t.Error("Stopped countdown must not fire")
	}
	if c.SecondsRemaining() != 1 {
		t.Errorf("Stopped countdown should keep its value, got %d", c.SecondsRemaining())
	}
}

func TestCountdownStopAfterExpiryDoesNotRefire(t *testing.T) {
	c := NewCountdown(1)
	if !c.Tick() {
		t.Fatal("Expected expiry")
	}
	c.Stop()
	if c.Tick() {
		t.Error("Expiry must not be delivered twice")
	}
}

func TestCountdownReset(t *testing.T) {
	c := NewCountdown(1)
	c.Tick()
	c.Reset(5)

	if c.Expired() || c.Stopped() {
		t.Error("Reset should re-arm the countdown")
	}
	if c.SecondsRemaining() != 5 {
		t.Errorf("Expected 5 seconds after reset, got %d", c.SecondsRemaining())
	}
}
