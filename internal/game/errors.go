package game

import "errors"

var (
	// ErrInvalidWager is returned when a wager is negative or exceeds the score.
	ErrInvalidWager = errors.New("invalid wager")
	// ErrAlreadyLocked is returned for a second lock by the same player in a round.
	ErrAlreadyLocked = errors.New("bet already locked this round")
	// ErrPhaseViolation is returned for a command issued from the wrong phase.
	ErrPhaseViolation = errors.New("phase violation")
	// ErrStaleRoundEvent marks an opponent event for a round that is not active.
	ErrStaleRoundEvent = errors.New("stale round event")
	// ErrForfeitAbandon is returned once the opponent has left the match.
	ErrForfeitAbandon = errors.New("match abandoned by opponent")
	// ErrInvalidPrediction is returned for anything other than higher or lower.
	ErrInvalidPrediction = errors.New("invalid prediction")
)
