// Package game implements the round and session state machine for a
// two-player higher/lower dice game.
//
// The main type is Match, which owns one match between a local player and a
// remote opponent: the betting countdown, the bet ledger, the dice resolver
// and the session accumulator.
//
// # Basic Usage
//
//	m := game.NewMatch(logger, roller, "alice", "bob")
//	m.LockBet(10, game.Higher)
//	m.OpponentLocked(1, ack)
//	// Both players locked: the round has been resolved.
//	res := m.LastResult()
//
// # Deterministic Testing
//
// The die is drawn through the Roller interface, which is the only source of
// randomness in the package. Tests pass a fixed sequence:
//
//	m := game.NewMatch(logger, dice.NewSequence(3, 5, 1), "alice", "bob")
//
// # Concurrency
//
// Match is not safe for concurrent use. A single owner (see internal/match)
// serializes commands, opponent events and clock ticks into it.
package game
