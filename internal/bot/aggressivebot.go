package bot

import (
	"math/rand"

	"github.com/lox/dicerush/internal/game"
)

// AggressiveBot wagers big, pushes harder on rush rounds and occasionally
// shoves its whole score.
type AggressiveBot struct {
	rng *rand.Rand
}

// NewAggressiveBot creates a new AggressiveBot instance
func NewAggressiveBot(rng *rand.Rand) *AggressiveBot {
	return &AggressiveBot{rng: rng}
}

func (a *AggressiveBot) Decide(s game.Snapshot, rules game.Rules) Decision {
	prediction, win := favoured(s.Baseline, rules.Faces)
	score := s.Local.Score

	switch {
	case s.Rush && win >= 0.5:
		return Decision{Amount: score, Prediction: prediction, Reasoning: "aggressive rush shove"}
	case a.rng.Float64() < 0.15:
		return Decision{Amount: score, Prediction: prediction, Reasoning: "aggressive shove"}
	}

	fraction := 0.25 + 0.25*a.rng.Float64()
	if s.Local.Streak > 0 {
		fraction += 0.1
	}
	amount := clampWager(int(float64(score)*fraction), score)
	return Decision{Amount: amount, Prediction: prediction, Reasoning: "aggressive big bet"}
}
