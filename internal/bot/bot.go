// Package bot provides computer opponents and a driver that plays one
// through a match runner.
package bot

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/lox/dicerush/internal/game"
)

// Decision is a bot's bet for one round.
type Decision struct {
	Amount     int
	Prediction game.Prediction
	Reasoning  string
}

// Strategy decides a bet from the current snapshot.
type Strategy interface {
	Decide(s game.Snapshot, rules game.Rules) Decision
}

// Names of the built-in strategies.
const (
	StrategyRandom     = "random"
	StrategyCautious   = "cautious"
	StrategyAggressive = "aggressive"
)

// Strategies lists the built-in strategy names.
func Strategies() []string {
	return []string{StrategyRandom, StrategyCautious, StrategyAggressive}
}

// New returns the named strategy.
func New(name string, rng *rand.Rand) (Strategy, error) {
	switch strings.ToLower(name) {
	case StrategyRandom, "rand":
		return NewRandBot(rng), nil
	case StrategyCautious, "tag":
		return NewCautiousBot(rng), nil
	case StrategyAggressive, "maniac":
		return NewAggressiveBot(rng), nil
	default:
		return nil, fmt.Errorf("unknown bot strategy %q (want one of %s)", name, strings.Join(Strategies(), ", "))
	}
}

// Odds returns the chance of winning with each prediction against baseline
// on a fair die with faces sides.
func Odds(baseline, faces int) (higher, lower float64) {
	if faces <= 0 {
		return 0, 0
	}
	higher = float64(faces-baseline) / float64(faces)
	lower = float64(baseline-1) / float64(faces)
	return higher, lower
}

// favoured returns the prediction with the better odds and its win chance.
func favoured(baseline, faces int) (game.Prediction, float64) {
	higher, lower := Odds(baseline, faces)
	if lower > higher {
		return game.Lower, lower
	}
	return game.Higher, higher
}

// clampWager keeps amount inside 0..score.
func clampWager(amount, score int) int {
	return min(max(amount, 0), max(score, 0))
}
