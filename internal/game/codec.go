package game

import (
	"encoding/json"
	"fmt"
)

// BetCodec seals a bet into the opaque ack sent to the opponent and opens
// acks received from the opponent at resolution time.
type BetCodec interface {
	Seal(Bet) ([]byte, error)
	Open([]byte) (Bet, error)
}

// JSONCodec is the default BetCodec.
type JSONCodec struct{}

type sealedBet struct {
	Amount     int        `json:"amount"`
	Prediction Prediction `json:"prediction"`
	Forced     bool       `json:"forced,omitempty"`
}

// Seal implements BetCodec.
func (JSONCodec) Seal(b Bet) ([]byte, error) {
	return json.Marshal(sealedBet{Amount: b.Amount, Prediction: b.Prediction, Forced: b.Forced})
}

// Open implements BetCodec.
func (JSONCodec) Open(ack []byte) (Bet, error) {
	var s sealedBet
	if err := json.Unmarshal(ack, &s); err != nil {
		return Bet{}, fmt.Errorf("open sealed bet: %w", err)
	}
	return Bet{Amount: s.Amount, Prediction: s.Prediction, Forced: s.Forced}, nil
}
