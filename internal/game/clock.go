package game

// Countdown is the betting window's round clock. It is advanced by explicit
// ticks on an external cadence and fires its expiry exactly once per arm.
type Countdown struct {
	remaining int
	fired     bool
	stopped   bool
}

// NewCountdown returns a countdown armed with seconds.
func NewCountdown(seconds int) *Countdown {
	c := &Countdown{}
	c.Reset(seconds)
	return c
}

// Tick decrements the countdown by one second. It returns true exactly once,
// on the tick that reaches zero.
func (c *Countdown) Tick() bool {
	if c.fired || c.stopped {
		return false
	}
	if c.remaining > 0 {
		c.remaining--
	}
	if c.remaining == 0 {
		c.fired = true
		return true
	}
	return false
}

// SecondsRemaining returns the current countdown value.
func (c *Countdown) SecondsRemaining() int {
	return c.remaining
}

// Expired reports whether the expiry has fired since the last Reset.
func (c *Countdown) Expired() bool {
	return c.fired
}

// Stop cancels the countdown. Later ticks are ignored and expiry never fires.
func (c *Countdown) Stop() {
	c.stopped = true
}

// Stopped reports whether the countdown was cancelled.
func (c *Countdown) Stopped() bool {
	return c.stopped
}

// Reset re-arms the countdown.
func (c *Countdown) Reset(seconds int) {
	if seconds < 0 {
		seconds = 0
	}
	c.remaining = seconds
	c.fired = false
	c.stopped = false
}
