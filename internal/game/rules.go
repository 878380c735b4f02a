package game

import (
	"errors"
	"fmt"
)

// Rules are the tunable constants of a match.
type Rules struct {
	Faces             int        `toml:"faces"`           // die faces, outcomes are 1..Faces
	BettingSeconds    int        `toml:"betting_seconds"` // countdown length of the betting window
	ResultsSeconds    int        `toml:"results_seconds"` // ticks the results are held before auto-dismissal
	MaxRounds         int        `toml:"max_rounds"`      // 0 means unlimited
	StartingScore     int        `toml:"starting_score"`
	StreakBonus       int        `toml:"streak_bonus"`       // points per pre-round win streak level, on a win
	RushEvery         int        `toml:"rush_every"`         // every n-th round is a rush round
	RushMultiplier    int        `toml:"rush_multiplier"`    // multiplier applied to the base delta on rush rounds
	EndOnBust         bool       `toml:"end_on_bust"`        // end the match when a player cannot recover from 0
	DefaultPrediction Prediction `toml:"default_prediction"` // used for bets forced by clock expiry
	InitialBaseline   int        `toml:"initial_baseline"`   // 0 draws the first baseline
}

// DefaultRules returns the standard rule set.
func DefaultRules() Rules {
	return Rules{
		Faces:             6,
		BettingSeconds:    10,
		ResultsSeconds:    4,
		MaxRounds:         20,
		StartingScore:     100,
		StreakBonus:       2,
		RushEvery:         5,
		RushMultiplier:    2,
		EndOnBust:         true,
		DefaultPrediction: Higher,
	}
}

// Validate checks the rules for internal consistency.
func (r Rules) Validate() error {
	var errs []error
	if r.Faces < 2 {
		errs = append(errs, fmt.Errorf("faces must be at least 2, got %d", r.Faces))
	}
	if r.BettingSeconds < 1 {
		errs = append(errs, fmt.Errorf("betting seconds must be positive, got %d", r.BettingSeconds))
	}
	if r.ResultsSeconds < 0 {
		errs = append(errs, fmt.Errorf("results seconds must not be negative, got %d", r.ResultsSeconds))
	}
	if r.MaxRounds < 0 {
		errs = append(errs, fmt.Errorf("max rounds must not be negative, got %d", r.MaxRounds))
	}
	if r.StartingScore < 0 {
		errs = append(errs, fmt.Errorf("starting score must not be negative, got %d", r.StartingScore))
	}
	if r.StreakBonus < 0 {
		errs = append(errs, fmt.Errorf("streak bonus must not be negative, got %d", r.StreakBonus))
	}
	if r.RushEvery < 1 {
		errs = append(errs, fmt.Errorf("rush interval must be positive, got %d", r.RushEvery))
	}
	if r.RushMultiplier < 1 {
		errs = append(errs, fmt.Errorf("rush multiplier must be at least 1, got %d", r.RushMultiplier))
	}
	if r.DefaultPrediction != Higher && r.DefaultPrediction != Lower {
		errs = append(errs, fmt.Errorf("%w: default %d", ErrInvalidPrediction, int(r.DefaultPrediction)))
	}
	if r.InitialBaseline < 0 || r.InitialBaseline > r.Faces {
		errs = append(errs, fmt.Errorf("initial baseline %d outside 0..%d", r.InitialBaseline, r.Faces))
	}
	return errors.Join(errs...)
}

// IsRushRound reports whether round n is a rush round.
func (r Rules) IsRushRound(n int) bool {
	return IsRushRound(n, r.RushEvery)
}

// IsRushRound reports whether round n is a rush round for the given interval.
func IsRushRound(n, every int) bool {
	return every > 0 && n > 0 && n%every == 0
}
