package game

import (
	"fmt"
	"time"
)

// Ledger records each player's locked bet for the active round.
type Ledger struct {
	players []string
	bets    map[string]Bet
	sealed  map[string][]byte
	open    bool
}

// NewLedger creates an open ledger for the given players.
func NewLedger(players ...string) *Ledger {
	return &Ledger{
		players: append([]string(nil), players...),
		bets:    make(map[string]Bet, len(players)),
		sealed:  make(map[string][]byte, len(players)),
		open:    true,
	}
}

func (l *Ledger) known(playerID string) bool {
	for _, id := range l.players {
		if id == playerID {
			return true
		}
	}
	return false
}

// Lock records a visible bet for playerID. score is the player's score at
// lock time and bounds the wager.
func (l *Ledger) Lock(playerID string, amount int, prediction Prediction, score int, at time.Time) (Bet, error) {
	if err := l.checkLockable(playerID); err != nil {
		return Bet{}, err
	}
	if amount < 0 || amount > score {
		return Bet{}, fmt.Errorf("%w: %d not in 0..%d", ErrInvalidWager, amount, score)
	}
	if prediction != Higher && prediction != Lower {
		return Bet{}, fmt.Errorf("%w: %d", ErrInvalidPrediction, int(prediction))
	}
	bet := Bet{
		PlayerID:   playerID,
		Amount:     amount,
		Prediction: prediction,
		LockedAt:   at,
	}
	l.bets[playerID] = bet
	return bet, nil
}

// LockSealed records that playerID locked a bet whose content stays opaque
// until resolution.
func (l *Ledger) LockSealed(playerID string, ack []byte) error {
	if err := l.checkLockable(playerID); err != nil {
		return err
	}
	l.sealed[playerID] = append([]byte{}, ack...)
	return nil
}

// force records a default bet for a player who did not lock before expiry.
// It bypasses the open check because expiry closes betting.
func (l *Ledger) force(playerID string, prediction Prediction, at time.Time) Bet {
	bet := Bet{
		PlayerID:   playerID,
		Amount:     0,
		Prediction: prediction,
		LockedAt:   at,
		Forced:     true,
	}
	l.bets[playerID] = bet
	return bet
}

func (l *Ledger) checkLockable(playerID string) error {
	if !l.open {
		return fmt.Errorf("%w: betting is closed", ErrPhaseViolation)
	}
	if !l.known(playerID) {
		return fmt.Errorf("unknown player %q", playerID)
	}
	if l.Has(playerID) {
		return fmt.Errorf("%w: %s", ErrAlreadyLocked, playerID)
	}
	return nil
}

// Has reports whether playerID has locked this round.
func (l *Ledger) Has(playerID string) bool {
	if _, ok := l.bets[playerID]; ok {
		return true
	}
	_, ok := l.sealed[playerID]
	return ok
}

// Bet returns the visible bet for playerID, if any.
func (l *Ledger) Bet(playerID string) (Bet, bool) {
	bet, ok := l.bets[playerID]
	return bet, ok
}

// Sealed returns the opaque ack recorded for playerID, if any.
func (l *Ledger) Sealed(playerID string) ([]byte, bool) {
	ack, ok := l.sealed[playerID]
	return ack, ok
}

// BothLocked reports whether every player has a bet this round.
func (l *Ledger) BothLocked() bool {
	for _, id := range l.players {
		if !l.Has(id) {
			return false
		}
	}
	return len(l.players) > 0
}

// IsOpen reports whether bets are accepted.
func (l *Ledger) IsOpen() bool { return l.open }

// Open starts accepting bets.
func (l *Ledger) Open() { l.open = true }

// Close stops accepting bets.
func (l *Ledger) Close() { l.open = false }

// Clear discards all bets. Called when a new round begins.
func (l *Ledger) Clear() {
	clear(l.bets)
	clear(l.sealed)
}
