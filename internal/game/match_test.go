package game

import (
	"errors"
	"testing"

	"github.com/lox/dicerush/internal/dice"
)

type lockRecorder struct {
	rounds []int
	acks   [][]byte
}

func (r *lockRecorder) notify(round int, ack []byte) {
	r.rounds = append(r.rounds, round)
	r.acks = append(r.acks, ack)
}

// playRound locks both sides and waits out the results hold.
func playRound(t *testing.T, m *Match, amount int, prediction Prediction, oppAmount int, oppPrediction Prediction) *RoundResult {
	t.Helper()
	if err := m.LockBet(amount, prediction); err != nil {
		t.Fatalf("round %d: lock bet: %v", m.Round(), err)
	}
	if err := m.OpponentLocked(m.Round(), mustSeal(t, oppAmount, oppPrediction)); err != nil {
		t.Fatalf("round %d: opponent lock: %v", m.Round(), err)
	}
	if m.Phase() != PhaseResults {
		t.Fatalf("round %d: expected RESULTS, got %s", m.Round(), m.Phase())
	}
	res := m.LastResult()
	if err := m.DismissResults(); err != nil {
		t.Fatalf("round %d: dismiss: %v", m.Round(), err)
	}
	return res
}

func TestNewMatchStartsInBetting(t *testing.T) {
	m := newTestMatch(t, []int{4})

	if m.Phase() != PhaseBetting || m.Round() != 1 {
		t.Fatalf("Expected round 1 BETTING, got round %d %s", m.Round(), m.Phase())
	}
	if m.Baseline() != 4 {
		t.Errorf("Expected drawn baseline 4, got %d", m.Baseline())
	}
	if m.SecondsRemaining() != 10 {
		t.Errorf("Expected 10 seconds, got %d", m.SecondsRemaining())
	}
	if m.Local().Score != 100 || m.Opponent().Score != 100 {
		t.Errorf("Expected starting scores of 100, got %d/%d", m.Local().Score, m.Opponent().Score)
	}
}

func TestNewMatchInitialBaseline(t *testing.T) {
	rules := DefaultRules()
	rules.InitialBaseline = 2
	counter := &dice.Counting{Roller: dice.NewSequence(5)}
	m := NewMatch(testLogger(), counter, alice, bob, WithRules(rules))

	if m.Baseline() != 2 || counter.Calls != 0 {
		t.Errorf("Expected fixed baseline without a draw, got %d after %d draws", m.Baseline(), counter.Calls)
	}
}

func TestNewMatchPanicsWithoutRoller(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for nil roller")
		}
	}()
	NewMatch(testLogger(), nil, alice, bob)
}

func TestRoundOneBothLockBeforeExpiry(t *testing.T) {
	m := newTestMatch(t, []int{3, 5})

	tickN(m, 3)
	if m.SecondsRemaining() != 7 {
		t.Fatalf("Expected 7 seconds remaining, got %d", m.SecondsRemaining())
	}

	if err := m.LockBet(10, Higher); err != nil {
		t.Fatalf("LockBet: %v", err)
	}
	if m.Phase() != PhaseBetting {
		t.Fatalf("One lock must not reveal, got %s", m.Phase())
	}
	if err := m.OpponentLocked(1, mustSeal(t, 5, Lower)); err != nil {
		t.Fatalf("OpponentLocked: %v", err)
	}

	if m.Phase() != PhaseResults {
		t.Fatalf("Expected immediate resolution, got %s", m.Phase())
	}
	res := m.LastResult()
	a, _ := res.For(alice)
	b, _ := res.For(bob)
	if a.Delta < 10 {
		t.Errorf("Expected alice delta >= +10, got %+d", a.Delta)
	}
	if b.Delta > -5 {
		t.Errorf("Expected bob delta <= -5, got %+d", b.Delta)
	}
	if m.Local().Score != 110 || m.Opponent().Score != 95 {
		t.Errorf("Expected 110/95, got %d/%d", m.Local().Score, m.Opponent().Score)
	}

	// The countdown is stopped once betting closes.
	if m.SecondsRemaining() != 7 {
		t.Errorf("Countdown should stop at 7, got %d", m.SecondsRemaining())
	}
}

func TestExpiryForcesDefaultBets(t *testing.T) {
	locks := &lockRecorder{}
	m := newTestMatch(t, []int{3, 5}, WithLockNotifier(locks.notify))

	tickN(m, 9)
	if m.Phase() != PhaseBetting {
		t.Fatalf("Expected BETTING at 1s, got %s", m.Phase())
	}
	m.Tick()

	if m.Phase() != PhaseResults {
		t.Fatalf("Expected RESULTS after expiry, got %s", m.Phase())
	}
	res := m.LastResult()
	for _, id := range []string{alice, bob} {
		pr, _ := res.For(id)
		if !pr.Bet.Forced || pr.Bet.Amount != 0 || pr.Bet.Prediction != Higher {
			t.Errorf("%s: expected forced 0 higher, got %+v", id, pr.Bet)
		}
		if !pr.HasBonus(BonusForced) {
			t.Errorf("%s: expected forced tag", id)
		}
		if pr.Delta != 0 {
			t.Errorf("%s: forced zero wager should not move the score, got %+d", id, pr.Delta)
		}
	}
	if len(locks.rounds) != 1 || locks.rounds[0] != 1 {
		t.Errorf("Expected the forced lock to be announced once, got %v", locks.rounds)
	}
}

func TestExpiryKeepsExistingLocalBet(t *testing.T) {
	m := newTestMatch(t, []int{3, 1})
	if err := m.LockBet(20, Lower); err != nil {
		t.Fatal(err)
	}
	tickN(m, 10)

	a, _ := m.LastResult().For(alice)
	if a.Bet.Forced || a.Delta != 20 {
		t.Errorf("Expected alice's own bet to win +20, got %+v", a)
	}
	b, _ := m.LastResult().For(bob)
	if !b.Bet.Forced {
		t.Error("Expected missing opponent bet to be forced")
	}
}

func TestOpponentLeftAbandonsMatch(t *testing.T) {
	m := newTestMatch(t, []int{3, 5})
	if err := m.LockBet(10, Higher); err != nil {
		t.Fatal(err)
	}

	if err := m.OpponentLeft(); err != nil {
		t.Fatal(err)
	}

	if m.Phase() != PhaseAbandoned || m.EndReason() != EndForfeit {
		t.Fatalf("Expected ABANDONED/forfeit, got %s/%s", m.Phase(), m.EndReason())
	}
	if err := m.LockBet(1, Higher); !errors.Is(err, ErrForfeitAbandon) {
		t.Errorf("Expected ErrForfeitAbandon, got %v", err)
	}
	if err := m.DismissResults(); !errors.Is(err, ErrForfeitAbandon) {
		t.Errorf("Expected ErrForfeitAbandon, got %v", err)
	}
	if err := m.OpponentLocked(1, mustSeal(t, 1, Lower)); !errors.Is(err, ErrStaleRoundEvent) {
		t.Errorf("Expected late lock to be stale, got %v", err)
	}

	tickN(m, 20)
	if m.Phase() != PhaseAbandoned || m.LastResult() != nil {
		t.Error("Ticks must not move an abandoned match")
	}

	m.Reset()
	if m.Phase() != PhaseBetting || m.Round() != 1 || m.EndReason() != EndNone {
		t.Errorf("Reset should start a fresh match, got %s round %d", m.Phase(), m.Round())
	}
}

func TestPhaseOrderAcrossRounds(t *testing.T) {
	m := newTestMatch(t, []int{3, 5, 2})
	rec := &phaseRecorder{}
	m.Subscribe(rec)

	playRound(t, m, 1, Higher, 1, Higher)

	want := []Phase{PhaseBetting, PhaseRevealing, PhaseResults, PhaseBetting}
	if len(rec.phases) != len(want) {
		t.Fatalf("Expected phases %v, got %v", want, rec.phases)
	}
	for i := range want {
		if rec.phases[i] != want[i] {
			t.Errorf("phase %d: expected %s, got %s", i, want[i], rec.phases[i])
		}
	}
}

func TestBaselineCarriesOver(t *testing.T) {
	m := newTestMatch(t, []int{3, 5, 2})
	res := playRound(t, m, 0, Higher, 0, Higher)

	if m.Round() != 2 || m.Baseline() != res.Outcome {
		t.Errorf("Expected round 2 baseline %d, got round %d baseline %d", res.Outcome, m.Round(), m.Baseline())
	}
	if m.SecondsRemaining() != 10 {
		t.Errorf("Expected countdown reset to 10, got %d", m.SecondsRemaining())
	}
}

func TestResultsAutoDismiss(t *testing.T) {
	m := newTestMatch(t, []int{3, 5, 2})
	if err := m.LockBet(0, Higher); err != nil {
		t.Fatal(err)
	}
	if err := m.OpponentLocked(1, mustSeal(t, 0, Lower)); err != nil {
		t.Fatal(err)
	}

	tickN(m, 3)
	if m.Phase() != PhaseResults {
		t.Fatalf("Expected results held for 4 ticks, got %s", m.Phase())
	}
	m.Tick()
	if m.Phase() != PhaseBetting || m.Round() != 2 {
		t.Errorf("Expected round 2 BETTING after hold, got round %d %s", m.Round(), m.Phase())
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	counter := &dice.Counting{Roller: dice.NewSequence(3, 5)}
	m := NewMatch(testLogger(), counter, alice, bob)

	if err := m.LockBet(10, Higher); err != nil {
		t.Fatal(err)
	}
	if err := m.OpponentLocked(1, mustSeal(t, 10, Lower)); err != nil {
		t.Fatal(err)
	}
	local := m.Local()

	m.reveal()
	m.resolve()
	m.Tick()

	if counter.Calls != 2 {
		t.Errorf("Expected baseline and one outcome draw, got %d", counter.Calls)
	}
	if m.Local() != local {
		t.Errorf("Scores changed on repeated resolution: %+v -> %+v", local, m.Local())
	}
}

func TestOpponentEventsStaleAndDuplicate(t *testing.T) {
	m := newTestMatch(t, []int{3, 5})

	if err := m.OpponentLocked(2, mustSeal(t, 1, Higher)); !errors.Is(err, ErrStaleRoundEvent) {
		t.Fatalf("Expected ErrStaleRoundEvent, got %v", err)
	}
	if m.StaleEvents() != 1 || m.Snapshot().OpponentLocked {
		t.Error("Stale lock must be counted and not applied")
	}

	ack := mustSeal(t, 1, Higher)
	if err := m.OpponentLocked(1, ack); err != nil {
		t.Fatal(err)
	}
	if err := m.OpponentLocked(1, ack); err != nil {
		t.Errorf("Duplicate lock should be dropped silently, got %v", err)
	}
	if m.Snapshot().Duplicates != 1 {
		t.Errorf("Expected one duplicate, got %d", m.Snapshot().Duplicates)
	}
	if m.Phase() != PhaseBetting {
		t.Errorf("Opponent lock alone must not reveal, got %s", m.Phase())
	}
}

func TestResendLock(t *testing.T) {
	locks := &lockRecorder{}
	m := newTestMatch(t, []int{3, 5}, WithLockNotifier(locks.notify))

	if m.ResendLock() {
		t.Error("Nothing to resend before locking")
	}
	if err := m.LockBet(5, Lower); err != nil {
		t.Fatal(err)
	}
	if !m.ResendLock() {
		t.Error("Expected resend while opponent is pending")
	}
	if len(locks.acks) != 2 || string(locks.acks[0]) != string(locks.acks[1]) {
		t.Errorf("Expected identical repeated acks, got %d", len(locks.acks))
	}

	bet, err := JSONCodec{}.Open(locks.acks[0])
	if err != nil || bet.Amount != 5 || bet.Prediction != Lower {
		t.Errorf("Ack should carry the locked bet, got %+v %v", bet, err)
	}

	if err := m.OpponentLocked(1, mustSeal(t, 0, Higher)); err != nil {
		t.Fatal(err)
	}
	if m.ResendLock() {
		t.Error("No resend after resolution")
	}
}

func TestOpponentWagerIsClamped(t *testing.T) {
	m := newTestMatch(t, []int{3, 5})
	if err := m.LockBet(0, Higher); err != nil {
		t.Fatal(err)
	}
	if err := m.OpponentLocked(1, mustSeal(t, 500, Higher)); err != nil {
		t.Fatal(err)
	}

	b, _ := m.LastResult().For(bob)
	if b.Bet.Amount != 100 || b.Delta != 100 {
		t.Errorf("Expected wager clamped to 100, got %+v", b)
	}
}

func TestUnreadableOpponentAckIsForced(t *testing.T) {
	m := newTestMatch(t, []int{3, 5})
	if err := m.OpponentLocked(1, []byte("not a bet")); err != nil {
		t.Fatal(err)
	}
	if err := m.LockBet(10, Higher); err != nil {
		t.Fatal(err)
	}

	b, _ := m.LastResult().For(bob)
	if !b.Bet.Forced || b.Delta != 0 {
		t.Errorf("Expected forced default bet, got %+v", b)
	}
}

func TestRushRounds(t *testing.T) {
	m := newTestMatch(t, []int{1, 6, 1})

	for round := 1; round <= 15; round++ {
		res := playRound(t, m, 1, Higher, 0, Higher)
		want := round%5 == 0
		if res.Rush != want {
			t.Errorf("round %d: expected rush=%v", round, want)
		}
		a, _ := res.For(alice)
		if want && a.Category != Push && !a.HasBonus(BonusRush) {
			t.Errorf("round %d: expected rush bonus", round)
		}
	}
}

func TestScoreFloorAndWagerBound(t *testing.T) {
	rules := DefaultRules()
	rules.StartingScore = 10
	rules.EndOnBust = false
	m := newTestMatch(t, []int{3, 1, 1}, WithRules(rules))

	playRound(t, m, 10, Higher, 0, Higher)

	if m.Local().Score != 0 {
		t.Fatalf("Expected score floored at 0, got %d", m.Local().Score)
	}
	if err := m.LockBet(1, Higher); !errors.Is(err, ErrInvalidWager) {
		t.Errorf("Expected ErrInvalidWager at zero score, got %v", err)
	}
	if err := m.LockBet(0, Higher); err != nil {
		t.Errorf("Zero wager must remain valid, got %v", err)
	}
}

func TestStreakResetsOnLoss(t *testing.T) {
	m := newTestMatch(t, []int{1, 3, 5, 2})

	playRound(t, m, 1, Higher, 0, Higher)
	playRound(t, m, 1, Higher, 0, Higher)
	if m.Local().Streak != 2 {
		t.Fatalf("Expected streak 2, got %d", m.Local().Streak)
	}
	playRound(t, m, 1, Higher, 0, Higher)
	if m.Local().Streak != 0 {
		t.Errorf("Expected streak reset, got %d", m.Local().Streak)
	}
}

func TestGameOverMaxRounds(t *testing.T) {
	rules := DefaultRules()
	rules.MaxRounds = 2
	m := newTestMatch(t, []int{3, 5, 2}, WithRules(rules))

	playRound(t, m, 0, Higher, 0, Higher)
	playRound(t, m, 0, Higher, 0, Higher)

	if m.Phase() != PhaseGameOver || m.EndReason() != EndMaxRounds {
		t.Fatalf("Expected GAME_OVER/max_rounds, got %s/%s", m.Phase(), m.EndReason())
	}
	if err := m.LockBet(0, Higher); !errors.Is(err, ErrPhaseViolation) {
		t.Errorf("Expected ErrPhaseViolation, got %v", err)
	}
	tickN(m, 5)
	if m.Phase() != PhaseGameOver {
		t.Error("Ticks must not leave GAME_OVER")
	}

	m.Reset()
	if m.Round() != 1 || m.Local().Score != rules.StartingScore || m.LastResult() != nil {
		t.Errorf("Reset should restore round 1 state, got round %d score %d", m.Round(), m.Local().Score)
	}
}

func TestGameOverBust(t *testing.T) {
	rules := DefaultRules()
	rules.StartingScore = 10
	m := newTestMatch(t, []int{3, 1}, WithRules(rules))

	playRound(t, m, 10, Higher, 0, Higher)

	if m.Phase() != PhaseGameOver || m.EndReason() != EndBust {
		t.Errorf("Expected GAME_OVER/bust, got %s/%s", m.Phase(), m.EndReason())
	}
}

func TestCommandsOutOfPhase(t *testing.T) {
	m := newTestMatch(t, []int{3, 5})

	if err := m.DismissResults(); !errors.Is(err, ErrPhaseViolation) {
		t.Errorf("Expected ErrPhaseViolation dismissing during BETTING, got %v", err)
	}
	if err := m.LockBet(0, Higher); err != nil {
		t.Fatal(err)
	}
	if err := m.OpponentLocked(1, mustSeal(t, 0, Higher)); err != nil {
		t.Fatal(err)
	}
	if err := m.LockBet(0, Lower); !errors.Is(err, ErrPhaseViolation) {
		t.Errorf("Expected ErrPhaseViolation locking during RESULTS, got %v", err)
	}
}

func TestCurrentRound(t *testing.T) {
	m := newTestMatch(t, []int{3, 5})

	if got := m.CurrentRound(); got != (Round{Number: 1, Baseline: 3}) {
		t.Fatalf("Expected unresolved round 1 on 3, got %+v", got)
	}

	if err := m.LockBet(10, Higher); err != nil {
		t.Fatal(err)
	}
	if err := m.OpponentLocked(1, mustSeal(t, 5, Lower)); err != nil {
		t.Fatal(err)
	}
	if got := m.CurrentRound(); got != (Round{Number: 1, Baseline: 3, Outcome: 5, Resolved: true}) {
		t.Fatalf("Expected resolved round 1 rolling 5, got %+v", got)
	}

	if err := m.DismissResults(); err != nil {
		t.Fatal(err)
	}
	if got := m.CurrentRound(); got != (Round{Number: 2, Baseline: 5}) {
		t.Errorf("Expected round 2 on the previous outcome, got %+v", got)
	}
}
