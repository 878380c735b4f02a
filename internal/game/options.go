package game

import "time"

// MatchOption configures a Match during creation.
type MatchOption func(*matchConfig)

type matchConfig struct {
	rules    Rules
	codec    BetCodec
	now      func() time.Time
	matchID  string
	onLocked func(round int, ack []byte)
}

func defaultMatchConfig() *matchConfig {
	return &matchConfig{
		rules: DefaultRules(),
		codec: JSONCodec{},
		now:   time.Now,
	}
}

// optionRules returns the rules opts would configure.
func optionRules(opts []MatchOption) Rules {
	cfg := defaultMatchConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg.rules
}

// WithRules replaces the default rule set.
func WithRules(rules Rules) MatchOption {
	return func(c *matchConfig) {
		c.rules = rules
	}
}

// WithCodec sets the codec used to seal and open opponent bets.
func WithCodec(codec BetCodec) MatchOption {
	return func(c *matchConfig) {
		c.codec = codec
	}
}

// WithNow sets the time source used to stamp bets.
func WithNow(now func() time.Time) MatchOption {
	return func(c *matchConfig) {
		c.now = now
	}
}

// WithMatchID sets the match identifier reported in snapshots and logs.
func WithMatchID(id string) MatchOption {
	return func(c *matchConfig) {
		c.matchID = id
	}
}

// WithLockNotifier registers the outbound "player locked" notification.
// It receives the round and the sealed bet and must not block.
func WithLockNotifier(fn func(round int, ack []byte)) MatchOption {
	return func(c *matchConfig) {
		c.onLocked = fn
	}
}
