package game

import (
	"encoding/base64"
	"fmt"

	"github.com/rs/zerolog"
)

// Snapshot is the read-only projection handed to presentation. The
// opponent's bet is only visible as a lock flag until the round resolves.
type Snapshot struct {
	MatchID          string
	Phase            Phase
	Round            int
	Rush             bool
	Baseline         int
	SecondsRemaining int
	ResultsRemaining int
	Local            Player
	Opponent         Player
	LocalLocked      bool
	OpponentLocked   bool
	LocalBet         *Bet
	LastResult       *RoundResult
	EndReason        EndReason
	StaleEvents      int
	Duplicates       int
}

// Snapshot returns the current projection.
func (m *Match) Snapshot() Snapshot {
	s := Snapshot{
		MatchID:          m.cfg.matchID,
		Phase:            m.phase,
		Round:            m.round,
		Rush:             m.rules.IsRushRound(m.round),
		Baseline:         m.baseline,
		SecondsRemaining: m.clock.SecondsRemaining(),
		ResultsRemaining: m.resultsLeft,
		Local:            m.acc.Player(m.localID),
		Opponent:         m.acc.Player(m.opponentID),
		LocalLocked:      m.ledger.Has(m.localID),
		OpponentLocked:   m.ledger.Has(m.opponentID),
		LastResult:       m.last.clone(),
		EndReason:        m.endReason,
		StaleEvents:      m.staleEvents,
		Duplicates:       m.duplicates,
	}
	if bet, ok := m.ledger.Bet(m.localID); ok {
		s.LocalBet = &bet
	}
	return s
}

// State is the persistable form of a match. Restoring a State and replaying
// the same events against a roller positioned at Draws reproduces the
// original match exactly.
type State struct {
	MatchID          string       `toml:"match_id"`
	LocalID          string       `toml:"local_id"`
	OpponentID       string       `toml:"opponent_id"`
	Seed             int64        `toml:"seed"`
	Draws            int          `toml:"draws"`
	Phase            Phase        `toml:"phase"`
	Round            int          `toml:"round"`
	Baseline         int          `toml:"baseline"`
	SecondsRemaining int          `toml:"seconds_remaining"`
	ResultsRemaining int          `toml:"results_remaining"`
	ResolvedRound    int          `toml:"resolved_round"`
	EndReason        EndReason    `toml:"end_reason,omitempty"`
	StaleEvents      int          `toml:"stale_events"`
	Duplicates       int          `toml:"duplicates"`
	Players          []Player     `toml:"players"`
	LocalBet         *Bet         `toml:"local_bet,omitempty"`
	OpponentBet      *Bet         `toml:"opponent_bet,omitempty"`
	OpponentAck      string       `toml:"opponent_ack,omitempty"`
	LastResult       *RoundResult `toml:"last_result,omitempty"`
	Rules            *Rules       `toml:"rules,omitempty"`
}

// Export captures the match state. Seed is left for the caller, which owns
// the roller.
func (m *Match) Export() State {
	st := State{
		MatchID:          m.cfg.matchID,
		LocalID:          m.localID,
		OpponentID:       m.opponentID,
		Draws:            m.resolver.Draws(),
		Phase:            m.phase,
		Round:            m.round,
		Baseline:         m.baseline,
		SecondsRemaining: m.clock.SecondsRemaining(),
		ResultsRemaining: m.resultsLeft,
		ResolvedRound:    m.resolvedRound,
		EndReason:        m.endReason,
		StaleEvents:      m.staleEvents,
		Duplicates:       m.duplicates,
		Players:          m.acc.Players(),
		LastResult:       m.last.clone(),
	}
	rules := m.rules
	st.Rules = &rules
	if bet, ok := m.ledger.Bet(m.localID); ok {
		st.LocalBet = &bet
	}
	if bet, ok := m.ledger.Bet(m.opponentID); ok {
		st.OpponentBet = &bet
	}
	if ack, ok := m.ledger.Sealed(m.opponentID); ok {
		st.OpponentAck = base64.StdEncoding.EncodeToString(ack)
	}
	return st
}

// Restore rebuilds a match from st. The roller must already be positioned
// after st.Draws draws. Rules saved in st take precedence over WithRules, so
// a match always finishes under the rules it started with.
func Restore(logger zerolog.Logger, st State, roller Roller, opts ...MatchOption) (*Match, error) {
	if st.Round < 1 {
		return nil, fmt.Errorf("restore: invalid round %d", st.Round)
	}
	if st.Phase < PhaseBetting || st.Phase > PhaseAbandoned {
		return nil, fmt.Errorf("restore: invalid phase %d", int(st.Phase))
	}
	if len(st.Players) != 2 {
		return nil, fmt.Errorf("restore: expected 2 players, got %d", len(st.Players))
	}
	if st.Phase == PhaseResults && st.LastResult == nil {
		return nil, fmt.Errorf("restore: results phase without a result")
	}

	opts = append([]MatchOption{WithMatchID(st.MatchID)}, opts...)
	if st.Rules != nil {
		if err := st.Rules.Validate(); err != nil {
			return nil, fmt.Errorf("restore: saved rules: %w", err)
		}
		if configured := optionRules(opts); configured != *st.Rules {
			logger.Warn().
				Interface("configured", configured).
				Interface("saved", *st.Rules).
				Msg("Configured rules differ from the saved match, keeping the saved rules")
		}
		opts = append(opts, WithRules(*st.Rules))
	}
	m := newMatch(logger, roller, st.LocalID, st.OpponentID, opts...)
	m.acc = NewAccumulator(m.rules, st.LocalID, st.OpponentID)
	for _, p := range st.Players {
		if p.ID != st.LocalID && p.ID != st.OpponentID {
			return nil, fmt.Errorf("restore: unknown player %q", p.ID)
		}
		if p.Score < 0 || p.Streak < 0 {
			return nil, fmt.Errorf("restore: negative totals for %q", p.ID)
		}
		m.acc.restore(p)
	}

	m.ledger = NewLedger(st.LocalID, st.OpponentID)
	if st.LocalBet != nil {
		m.ledger.bets[st.LocalID] = *st.LocalBet
	}
	if st.OpponentBet != nil {
		m.ledger.bets[st.OpponentID] = *st.OpponentBet
	}
	if st.OpponentAck != "" {
		ack, err := base64.StdEncoding.DecodeString(st.OpponentAck)
		if err != nil {
			return nil, fmt.Errorf("restore: opponent ack: %w", err)
		}
		m.ledger.sealed[st.OpponentID] = ack
	}

	m.phase = st.Phase
	m.round = st.Round
	m.baseline = st.Baseline
	m.endReason = st.EndReason
	m.resultsLeft = st.ResultsRemaining
	m.resolvedRound = st.ResolvedRound
	m.staleEvents = st.StaleEvents
	m.duplicates = st.Duplicates
	m.last = st.LastResult.clone()
	m.resolver.draws = st.Draws

	m.clock.Reset(st.SecondsRemaining)
	if m.phase != PhaseBetting {
		m.clock.Stop()
		m.ledger.Close()
	}

	m.logger.Info().
		Int("round", m.round).
		Str("phase", m.phase.String()).
		Msg("Match restored")

	// REVEALING is transient; finish the interrupted resolution.
	if m.phase == PhaseRevealing {
		m.resolve()
	}
	return m, nil
}

// Mirror returns the same match seen from the opponent's side, for resuming
// both runners of a local match from one file. Unopened bets stay sealed
// from the new local player's point of view.
func (st State) Mirror(codec BetCodec) (State, error) {
	if codec == nil {
		codec = JSONCodec{}
	}
	out := st
	out.LocalID, out.OpponentID = st.OpponentID, st.LocalID
	out.LocalBet, out.OpponentBet, out.OpponentAck = nil, nil, ""
	out.Players = append([]Player(nil), st.Players...)
	out.LastResult = st.LastResult.clone()
	if st.Rules != nil {
		rules := *st.Rules
		out.Rules = &rules
	}

	switch {
	case st.OpponentBet != nil:
		bet := *st.OpponentBet
		out.LocalBet = &bet
	case st.OpponentAck != "":
		raw, err := base64.StdEncoding.DecodeString(st.OpponentAck)
		if err != nil {
			return State{}, fmt.Errorf("mirror: opponent ack: %w", err)
		}
		bet, err := codec.Open(raw)
		if err != nil {
			return State{}, fmt.Errorf("mirror: %w", err)
		}
		bet.PlayerID = st.OpponentID
		out.LocalBet = &bet
	}

	if st.LocalBet != nil {
		if st.Phase == PhaseBetting {
			ack, err := codec.Seal(*st.LocalBet)
			if err != nil {
				return State{}, fmt.Errorf("mirror: %w", err)
			}
			out.OpponentAck = base64.StdEncoding.EncodeToString(ack)
		} else {
			bet := *st.LocalBet
			out.OpponentBet = &bet
		}
	}
	return out, nil
}
