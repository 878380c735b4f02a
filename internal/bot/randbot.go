package bot

import (
	"math/rand"

	"github.com/lox/dicerush/internal/game"
)

// RandBot picks a uniform random prediction and wagers up to a quarter of
// its score.
type RandBot struct {
	rng *rand.Rand
}

// NewRandBot creates a new RandBot instance
func NewRandBot(rng *rand.Rand) *RandBot {
	return &RandBot{rng: rng}
}

func (r *RandBot) Decide(s game.Snapshot, _ game.Rules) Decision {
	prediction := game.Higher
	if r.rng.Intn(2) == 0 {
		prediction = game.Lower
	}
	amount := 0
	if limit := s.Local.Score / 4; limit > 0 {
		amount = r.rng.Intn(limit + 1)
	}
	return Decision{Amount: amount, Prediction: prediction, Reasoning: "rand-bot random bet"}
}
