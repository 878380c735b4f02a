package bot

import (
	"math/rand"

	"github.com/lox/dicerush/internal/game"
)

// CautiousBot always takes the favoured side and sizes its wager to the
// edge, betting nothing on a coin flip.
type CautiousBot struct {
	rng *rand.Rand
}

// NewCautiousBot creates a new CautiousBot instance
func NewCautiousBot(rng *rand.Rand) *CautiousBot {
	return &CautiousBot{rng: rng}
}

func (c *CautiousBot) Decide(s game.Snapshot, rules game.Rules) Decision {
	higher, lower := Odds(s.Baseline, rules.Faces)
	prediction, win, lose := game.Higher, higher, lower
	if lower > higher {
		prediction, win, lose = game.Lower, lower, higher
	}

	edge := win - lose
	if edge <= 0 {
		return Decision{Amount: 0, Prediction: prediction, Reasoning: "cautious no edge"}
	}

	// Risk a tenth of the score scaled by the edge, with a little jitter.
	fraction := 0.1 * edge * (0.8 + 0.4*c.rng.Float64())
	amount := clampWager(int(float64(s.Local.Score)*fraction), s.Local.Score)
	return Decision{Amount: amount, Prediction: prediction, Reasoning: "cautious edge bet"}
}
