package game

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Match is the round state machine for one match between a local player and
// a remote opponent. It owns the countdown, the ledger, the resolver and the
// accumulator.
type Match struct {
	logger     zerolog.Logger
	cfg        *matchConfig
	rules      Rules
	localID    string
	opponentID string

	phase         Phase
	round         int
	baseline      int
	endReason     EndReason
	clock         *Countdown
	resultsLeft   int
	ledger        *Ledger
	resolver      *Resolver
	acc           *Accumulator
	last          *RoundResult
	resolvedRound int

	staleEvents int
	duplicates  int

	subs subscribers
}

// NewMatch creates a match in round 1 BETTING. The roller is required to
// make the only source of randomness explicit.
func NewMatch(logger zerolog.Logger, roller Roller, localID, opponentID string, opts ...MatchOption) *Match {
	m := newMatch(logger, roller, localID, opponentID, opts...)
	m.start()
	return m
}

func newMatch(logger zerolog.Logger, roller Roller, localID, opponentID string, opts ...MatchOption) *Match {
	if roller == nil {
		panic("roller is required for match creation")
	}
	if localID == "" || opponentID == "" || localID == opponentID {
		panic("two distinct player ids are required")
	}

	cfg := defaultMatchConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.rules.Validate(); err != nil {
		panic(fmt.Sprintf("invalid rules: %v", err))
	}

	return &Match{
		logger: logger.With().
			Str("component", "match").
			Str("match_id", cfg.matchID).
			Str("player", localID).
			Logger(),
		cfg:        cfg,
		rules:      cfg.rules,
		localID:    localID,
		opponentID: opponentID,
		clock:      NewCountdown(cfg.rules.BettingSeconds),
		resolver:   NewResolver(cfg.rules, roller),
	}
}

// start (re)initializes all per-match state and enters round 1.
func (m *Match) start() {
	m.round = 1
	m.phase = PhaseBetting
	m.endReason = EndNone
	m.last = nil
	m.resolvedRound = 0
	m.resultsLeft = 0
	m.staleEvents = 0
	m.duplicates = 0
	m.acc = NewAccumulator(m.rules, m.localID, m.opponentID)
	m.ledger = NewLedger(m.localID, m.opponentID)
	m.clock.Reset(m.rules.BettingSeconds)

	m.baseline = m.rules.InitialBaseline
	if m.baseline == 0 {
		m.baseline = m.resolver.Draw()
	}

	m.logger.Info().
		Int("baseline", m.baseline).
		Int("starting_score", m.rules.StartingScore).
		Msg("Match started")
	m.publish()
}

// Subscribe registers s for snapshots and returns a function removing it.
func (m *Match) Subscribe(s Subscriber) (unsubscribe func()) {
	id := m.subs.add(s)
	return func() { m.subs.remove(id) }
}

// LockBet locks the local player's bet for the current round.
func (m *Match) LockBet(amount int, prediction Prediction) error {
	if err := m.requirePhase("lock bet", PhaseBetting); err != nil {
		return err
	}

	score := m.acc.Player(m.localID).Score
	bet, err := m.ledger.Lock(m.localID, amount, prediction, score, m.cfg.now())
	if err != nil {
		m.logger.Debug().Err(err).Int("amount", amount).Msg("Bet rejected")
		return fmt.Errorf("lock bet: %w", err)
	}

	m.logger.Debug().
		Int("round", m.round).
		Int("amount", bet.Amount).
		Str("prediction", bet.Prediction.String()).
		Msg("Bet locked")
	m.notifyLocked(bet)
	m.publish()
	m.maybeReveal()
	return nil
}

// OpponentLocked records the opponent's lock for round. The ack is kept
// sealed until resolution. If the local bet is already locked it is emitted
// again, since the opponent may have dropped it as stale while still showing
// the previous round's results.
func (m *Match) OpponentLocked(round int, ack []byte) error {
	if round == m.round && round == m.resolvedRound {
		m.duplicates++
		m.logger.Debug().
			Int("round", round).
			Str("phase", m.phase.String()).
			Msg("Dropping late opponent lock for resolved round")
		m.publish()
		return nil
	}
	if round != m.round || m.phase != PhaseBetting {
		m.staleEvents++
		m.logger.Debug().
			Int("event_round", round).
			Int("round", m.round).
			Str("phase", m.phase.String()).
			Int("stale_events", m.staleEvents).
			Msg("Dropping stale opponent lock")
		m.publish()
		return fmt.Errorf("%w: round %d during round %d %s", ErrStaleRoundEvent, round, m.round, m.phase)
	}

	if err := m.ledger.LockSealed(m.opponentID, ack); err != nil {
		if errors.Is(err, ErrAlreadyLocked) {
			m.duplicates++
			m.logger.Debug().Int("round", round).Msg("Dropping duplicate opponent lock")
			m.publish()
			return nil
		}
		return fmt.Errorf("opponent lock: %w", err)
	}

	m.logger.Debug().Int("round", round).Msg("Opponent locked")
	if bet, ok := m.ledger.Bet(m.localID); ok {
		m.notifyLocked(bet)
	}
	m.publish()
	m.maybeReveal()
	return nil
}

// OpponentLeft ends the match as a forfeit from any non-terminal phase.
func (m *Match) OpponentLeft() error {
	if m.phase.Terminal() {
		m.logger.Debug().Str("phase", m.phase.String()).Msg("Opponent left after match end")
		return nil
	}
	m.clock.Stop()
	m.ledger.Close()
	m.phase = PhaseAbandoned
	m.endReason = EndForfeit
	m.logger.Info().Int("round", m.round).Msg("Opponent left, match abandoned")
	m.publish()
	return nil
}

// Tick advances the match by one second of the external cadence. During
// BETTING it runs the countdown; during RESULTS it runs the display hold.
func (m *Match) Tick() {
	switch m.phase {
	case PhaseBetting:
		if m.clock.Tick() {
			m.expire()
			return
		}
		m.publish()
	case PhaseResults:
		if m.rules.ResultsSeconds == 0 {
			return
		}
		if m.resultsLeft > 0 {
			m.resultsLeft--
		}
		if m.resultsLeft == 0 {
			if err := m.DismissResults(); err != nil {
				m.logger.Warn().Err(err).Msg("Auto-dismiss failed")
			}
			return
		}
		m.publish()
	}
}

// ResendLock repeats the local lock notification while the opponent has not
// locked yet. Receivers drop duplicates.
func (m *Match) ResendLock() bool {
	if m.phase != PhaseBetting || m.ledger.Has(m.opponentID) {
		return false
	}
	bet, ok := m.ledger.Bet(m.localID)
	if !ok {
		return false
	}
	m.notifyLocked(bet)
	return true
}

// DismissResults leaves RESULTS for the next round or GAME_OVER.
func (m *Match) DismissResults() error {
	if err := m.requirePhase("dismiss results", PhaseResults); err != nil {
		return err
	}

	if over, reason := m.acc.GameOver(m.round); over {
		m.phase = PhaseGameOver
		m.endReason = reason
		m.logger.Info().
			Int("round", m.round).
			Str("reason", string(reason)).
			Int("local_score", m.acc.Player(m.localID).Score).
			Int("opponent_score", m.acc.Player(m.opponentID).Score).
			Msg("Game over")
		m.publish()
		return nil
	}

	m.round++
	m.baseline = m.last.Outcome
	m.ledger.Clear()
	m.ledger.Open()
	m.clock.Reset(m.rules.BettingSeconds)
	m.phase = PhaseBetting
	m.logger.Debug().
		Int("round", m.round).
		Int("baseline", m.baseline).
		Bool("rush", m.rules.IsRushRound(m.round)).
		Msg("Round started")
	m.publish()
	return nil
}

// Reset reinitializes the match from round 1. It is the only way out of a
// terminal phase.
func (m *Match) Reset() {
	m.logger.Info().Str("phase", m.phase.String()).Msg("Resetting match")
	m.start()
}

func (m *Match) requirePhase(op string, want Phase) error {
	if m.phase == want {
		return nil
	}
	if m.phase == PhaseAbandoned {
		return fmt.Errorf("%s: %w", op, ErrForfeitAbandon)
	}
	m.logger.Warn().
		Str("op", op).
		Str("phase", m.phase.String()).
		Str("want", want.String()).
		Msg("Ignoring command from invalid phase")
	return fmt.Errorf("%s: %w: in %s, want %s", op, ErrPhaseViolation, m.phase, want)
}

// expire handles the countdown reaching zero while betting is open.
func (m *Match) expire() {
	if !m.ledger.Has(m.localID) {
		bet := m.ledger.force(m.localID, m.rules.DefaultPrediction, m.cfg.now())
		m.logger.Info().Int("round", m.round).Msg("Countdown expired, forcing default bet")
		m.notifyLocked(bet)
	}
	m.reveal()
}

func (m *Match) maybeReveal() {
	if m.ledger.BothLocked() {
		m.reveal()
	}
}

// reveal moves BETTING to REVEALING and resolves the round.
func (m *Match) reveal() {
	if m.phase != PhaseBetting {
		m.logger.Warn().Str("phase", m.phase.String()).Msg("Ignoring reveal from invalid phase")
		return
	}
	m.clock.Stop()
	m.ledger.Close()
	m.phase = PhaseRevealing
	m.publish()
	m.resolve()
}

// resolve draws the outcome at most once per round and enters RESULTS.
func (m *Match) resolve() {
	if m.resolvedRound == m.round {
		m.logger.Warn().Int("round", m.round).Msg("Round already resolved")
		return
	}

	bets := []Bet{m.betFor(m.localID), m.betFor(m.opponentID)}
	res := m.resolver.Resolve(m.round, m.baseline, bets, m.acc.Streaks())
	m.acc.Apply(res)
	m.last = res
	m.resolvedRound = m.round
	m.resultsLeft = m.rules.ResultsSeconds
	m.phase = PhaseResults

	local, _ := res.For(m.localID)
	opp, _ := res.For(m.opponentID)
	m.logger.Debug().
		Int("round", m.round).
		Int("baseline", res.Baseline).
		Int("outcome", res.Outcome).
		Str("local", local.Category.String()).
		Int("local_delta", local.Delta).
		Str("opponent", opp.Category.String()).
		Int("opponent_delta", opp.Delta).
		Msg("Round resolved")
	m.publish()
}

// betFor returns the bet to score for playerID, opening sealed acks and
// forcing the default for players without a usable lock.
func (m *Match) betFor(playerID string) Bet {
	if bet, ok := m.ledger.Bet(playerID); ok {
		return bet
	}
	now := m.cfg.now()
	ack, ok := m.ledger.Sealed(playerID)
	if !ok {
		return m.ledger.force(playerID, m.rules.DefaultPrediction, now)
	}

	bet, err := m.cfg.codec.Open(ack)
	if err != nil {
		m.logger.Warn().Err(err).Str("opponent", playerID).Msg("Unreadable opponent bet, forcing default")
		return m.ledger.force(playerID, m.rules.DefaultPrediction, now)
	}
	score := m.acc.Player(playerID).Score
	if bet.Amount < 0 || bet.Amount > score {
		m.logger.Warn().
			Int("amount", bet.Amount).
			Int("score", score).
			Msg("Opponent wager out of range, clamping")
		bet.Amount = min(max(bet.Amount, 0), score)
	}
	if bet.Prediction != Higher && bet.Prediction != Lower {
		bet.Prediction = m.rules.DefaultPrediction
	}
	bet.PlayerID = playerID
	bet.LockedAt = now
	return bet
}

func (m *Match) notifyLocked(bet Bet) {
	if m.cfg.onLocked == nil {
		return
	}
	ack, err := m.cfg.codec.Seal(bet)
	if err != nil {
		m.logger.Error().Err(err).Msg("Failed to seal bet")
		return
	}
	m.cfg.onLocked(m.round, ack)
}

func (m *Match) publish() {
	m.subs.publish(m.Snapshot())
}

// Phase returns the current phase.
func (m *Match) Phase() Phase { return m.phase }

// Round returns the current round number.
func (m *Match) Round() int { return m.round }

// Baseline returns the value the current round's predictions compare against.
func (m *Match) Baseline() int { return m.baseline }

// SecondsRemaining returns the betting countdown.
func (m *Match) SecondsRemaining() int { return m.clock.SecondsRemaining() }

// LastResult returns the most recent round result, or nil.
func (m *Match) LastResult() *RoundResult { return m.last.clone() }

// Local returns the local player's totals.
func (m *Match) Local() Player { return m.acc.Player(m.localID) }

// Opponent returns the opponent's totals.
func (m *Match) Opponent() Player { return m.acc.Player(m.opponentID) }

// EndReason returns why the match ended, if it has.
func (m *Match) EndReason() EndReason { return m.endReason }

// StaleEvents returns how many opponent events were dropped as stale.
func (m *Match) StaleEvents() int { return m.staleEvents }

// Rules returns the match's rule set.
func (m *Match) Rules() Rules { return m.rules }
