package game

import (
	"fmt"
	"strings"
	"time"
)

// Prediction is a player's call on the next die relative to the baseline.
type Prediction int

const (
	Higher Prediction = iota
	Lower
)

func (p Prediction) String() string {
	switch p {
	case Higher:
		return "higher"
	case Lower:
		return "lower"
	default:
		return fmt.Sprintf("prediction(%d)", int(p))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Prediction) MarshalText() ([]byte, error) {
	if p != Higher && p != Lower {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPrediction, int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Prediction) UnmarshalText(text []byte) error {
	parsed, err := ParsePrediction(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePrediction accepts "higher"/"lower" and the single letter forms.
func ParsePrediction(s string) (Prediction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "higher", "h", "hi":
		return Higher, nil
	case "lower", "l", "lo":
		return Lower, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrediction, s)
	}
}

// Bet is a locked wager. Bets are immutable once locked.
type Bet struct {
	PlayerID   string     `toml:"player_id" json:"player_id"`
	Amount     int        `toml:"amount" json:"amount"`
	Prediction Prediction `toml:"prediction" json:"prediction"`
	LockedAt   time.Time  `toml:"locked_at" json:"locked_at"`
	Forced     bool       `toml:"forced,omitempty" json:"forced,omitempty"`
}

// Category is the per-player outcome of a resolved round.
type Category int

const (
	Push Category = iota
	Win
	Lose
)

var categoryNames = [...]string{"push", "win", "lose"}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c]
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	if c < 0 || int(c) >= len(categoryNames) {
		return nil, fmt.Errorf("unknown category %d", int(c))
	}
	return []byte(categoryNames[c]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	switch string(text) {
	case "push":
		*c = Push
	case "win":
		*c = Win
	case "lose":
		*c = Lose
	default:
		return fmt.Errorf("unknown category %q", text)
	}
	return nil
}

// BonusKind tags a bonus applied to a round delta.
type BonusKind string

const (
	BonusStreak BonusKind = "streak"
	BonusRush   BonusKind = "rush"
	BonusForced BonusKind = "forced"
)

// Bonus is one additive adjustment to a player's round delta.
type Bonus struct {
	Kind   BonusKind `toml:"kind" json:"kind"`
	Points int       `toml:"points" json:"points"`
}

// PlayerResult is one player's share of a RoundResult.
type PlayerResult struct {
	Category Category `toml:"category" json:"category"`
	Delta    int      `toml:"delta" json:"delta"`
	Bonuses  []Bonus  `toml:"bonuses,omitempty" json:"bonuses,omitempty"`
	Bet      Bet      `toml:"bet" json:"bet"`
}

// HasBonus reports whether a bonus of the given kind was applied.
func (r PlayerResult) HasBonus(kind BonusKind) bool {
	for _, b := range r.Bonuses {
		if b.Kind == kind {
			return true
		}
	}
	return false
}

// RoundResult is produced once per round by the Resolver.
type RoundResult struct {
	Round    int                     `toml:"round" json:"round"`
	Baseline int                     `toml:"baseline" json:"baseline"`
	Outcome  int                     `toml:"outcome" json:"outcome"`
	Rush     bool                    `toml:"rush" json:"rush"`
	Players  map[string]PlayerResult `toml:"players" json:"players"`
}

// For returns the result for playerID.
func (r *RoundResult) For(playerID string) (PlayerResult, bool) {
	if r == nil {
		return PlayerResult{}, false
	}
	pr, ok := r.Players[playerID]
	return pr, ok
}

func (r *RoundResult) clone() *RoundResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Players = make(map[string]PlayerResult, len(r.Players))
	for id, pr := range r.Players {
		pr.Bonuses = append([]Bonus(nil), pr.Bonuses...)
		out.Players[id] = pr
	}
	return &out
}
