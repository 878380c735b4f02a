package match

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/lox/dicerush/internal/dice"
	"github.com/lox/dicerush/internal/game"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lockedEvent struct {
	round int
	ack   []byte
}

type recordingPeer struct {
	mu     sync.Mutex
	locked []lockedEvent
	left   int
}

func (p *recordingPeer) EmitLocked(round int, ack []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.locked = append(p.locked, lockedEvent{round: round, ack: ack})
	return nil
}

func (p *recordingPeer) EmitLeft() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.left++
	return nil
}

func (p *recordingPeer) lockCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.locked)
}

func (p *recordingPeer) firstLock() lockedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.locked[0]
}

func (p *recordingPeer) lastLock() lockedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.locked[len(p.locked)-1]
}

func (p *recordingPeer) leftCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.left
}

type harness struct {
	t      *testing.T
	ctx    context.Context
	clock  *quartz.Mock
	peer   *recordingPeer
	runner *Runner
}

func newHarness(t *testing.T, rolls ...int) *harness {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	h := &harness{
		t:     t,
		ctx:   ctx,
		clock: quartz.NewMock(t),
		peer:  &recordingPeer{},
	}
	h.runner = NewRunner(zerolog.New(io.Discard), Config{
		LocalID:    "alice",
		OpponentID: "bob",
		Roller:     dice.NewSequence(rolls...),
		Peer:       h.peer,
		Clock:      h.clock,
	})
	h.runner.Start(ctx)
	t.Cleanup(h.runner.Stop)
	return h
}

// tick advances one second and waits until the runner reflects it.
func (h *harness) tick(until func(game.Snapshot) bool) {
	h.t.Helper()
	h.clock.Advance(TickInterval).MustWait(h.ctx)
	h.waitFor(until)
}

func (h *harness) waitFor(cond func(game.Snapshot) bool) {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		return cond(h.runner.Snapshot())
	}, 2*time.Second, time.Millisecond)
}

func secondsLeft(n int) func(game.Snapshot) bool {
	return func(s game.Snapshot) bool { return s.SecondsRemaining == n }
}

func inPhase(p game.Phase) func(game.Snapshot) bool {
	return func(s game.Snapshot) bool { return s.Phase == p }
}

func TestRunnerCountsDown(t *testing.T) {
	h := newHarness(t, 3, 5)

	assert.Equal(t, 10, h.runner.Snapshot().SecondsRemaining)
	for want := 9; want >= 7; want-- {
		h.tick(secondsLeft(want))
	}
	assert.Equal(t, game.PhaseBetting, h.runner.Snapshot().Phase)
}

func TestRunnerResolvesWhenBothLock(t *testing.T) {
	h := newHarness(t, 3, 5)
	for want := 9; want >= 7; want-- {
		h.tick(secondsLeft(want))
	}

	require.NoError(t, h.runner.LockBet(h.ctx, 10, game.Higher))
	require.Equal(t, 1, h.peer.lockCount())
	assert.Equal(t, 1, h.peer.lastLock().round)

	ack, err := game.JSONCodec{}.Seal(game.Bet{Amount: 5, Prediction: game.Lower})
	require.NoError(t, err)
	h.runner.OnOpponentLocked(1, ack)

	h.waitFor(inPhase(game.PhaseResults))
	snap := h.runner.Snapshot()
	require.NotNil(t, snap.LastResult)
	assert.Equal(t, 110, snap.Local.Score)
	assert.Equal(t, 95, snap.Opponent.Score)
}

func TestRunnerResendsLockUntilOpponentLocks(t *testing.T) {
	h := newHarness(t, 3, 5)

	require.NoError(t, h.runner.LockBet(h.ctx, 10, game.Higher))
	h.tick(secondsLeft(9))
	h.tick(secondsLeft(8))

	require.Eventually(t, func() bool { return h.peer.lockCount() >= 3 }, time.Second, time.Millisecond)
	first := h.peer.firstLock()
	last := h.peer.lastLock()
	assert.Equal(t, first.round, last.round)
	assert.Equal(t, first.ack, last.ack)
}

func TestRunnerForcesBetOnExpiry(t *testing.T) {
	h := newHarness(t, 3, 5)

	for want := 9; want >= 1; want-- {
		h.tick(secondsLeft(want))
	}
	h.tick(inPhase(game.PhaseResults))

	require.Equal(t, 1, h.peer.lockCount(), "forced bet should be announced")
	bet, err := game.JSONCodec{}.Open(h.peer.lastLock().ack)
	require.NoError(t, err)
	assert.True(t, bet.Forced)
	assert.Equal(t, 0, bet.Amount)

	res := h.runner.Snapshot().LastResult
	local, _ := res.For("alice")
	assert.True(t, local.HasBonus(game.BonusForced))
}

func TestRunnerResultsHoldAdvancesRound(t *testing.T) {
	h := newHarness(t, 3, 5, 2)

	require.NoError(t, h.runner.LockBet(h.ctx, 0, game.Higher))
	ack, err := game.JSONCodec{}.Seal(game.Bet{Amount: 0, Prediction: game.Lower})
	require.NoError(t, err)
	h.runner.OnOpponentLocked(1, ack)
	h.waitFor(inPhase(game.PhaseResults))

	for left := 3; left >= 1; left-- {
		h.tick(func(s game.Snapshot) bool { return s.ResultsRemaining == left })
	}
	h.tick(func(s game.Snapshot) bool { return s.Round == 2 && s.Phase == game.PhaseBetting })
	assert.Equal(t, 5, h.runner.Snapshot().Baseline)
}

func TestRunnerOpponentLeftAbandons(t *testing.T) {
	h := newHarness(t, 3, 5)
	require.NoError(t, h.runner.LockBet(h.ctx, 10, game.Higher))

	h.runner.OnOpponentLeft()
	h.waitFor(inPhase(game.PhaseAbandoned))

	err := h.runner.LockBet(h.ctx, 1, game.Higher)
	assert.True(t, errors.Is(err, game.ErrForfeitAbandon), "got %v", err)
	assert.Equal(t, game.EndForfeit, h.runner.Snapshot().EndReason)
}

func TestRunnerStaleEventsAreCounted(t *testing.T) {
	h := newHarness(t, 3, 5)

	h.runner.OnOpponentLocked(4, []byte(`{}`))
	h.runner.OnOpponentLocked(0, []byte(`{}`))

	h.waitFor(func(s game.Snapshot) bool { return s.StaleEvents == 2 })
	assert.False(t, h.runner.Snapshot().OpponentLocked)
}

func TestRunnerLeave(t *testing.T) {
	h := newHarness(t, 3, 5)

	require.NoError(t, h.runner.Leave(h.ctx))
	require.NoError(t, h.runner.Wait(h.ctx))
	assert.Equal(t, 1, h.peer.leftCount())

	err := h.runner.LockBet(h.ctx, 1, game.Higher)
	assert.ErrorIs(t, err, ErrStopped)
}

func TestRunnerSubscribe(t *testing.T) {
	h := newHarness(t, 3, 5)

	var mu sync.Mutex
	var seen []int
	unsubscribe, err := h.runner.Subscribe(h.ctx, game.SubscriberFunc(func(s game.Snapshot) {
		mu.Lock()
		seen = append(seen, s.SecondsRemaining)
		mu.Unlock()
	}))
	require.NoError(t, err)

	h.tick(secondsLeft(9))
	unsubscribe()
	h.tick(secondsLeft(8))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{10, 9}, seen)
}

func TestRunnerStopBeforeStart(t *testing.T) {
	r := NewRunner(zerolog.New(io.Discard), Config{
		LocalID:    "alice",
		OpponentID: "bob",
		Roller:     dice.NewSequence(1),
		Clock:      quartz.NewMock(t),
	})
	r.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.Wait(ctx))
	assert.ErrorIs(t, r.Reset(ctx), ErrStopped)
}

func TestRunnerFromStateResumes(t *testing.T) {
	const seed = 11
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	orig := NewRunner(zerolog.New(io.Discard), Config{
		LocalID:    "alice",
		OpponentID: "bob",
		Roller:     dice.NewSeeded(seed),
		Clock:      quartz.NewMock(t),
	})
	orig.Start(ctx)
	defer orig.Stop()
	require.NoError(t, orig.LockBet(ctx, 4, game.Lower))

	st, err := orig.Export(ctx)
	require.NoError(t, err)

	resumed, err := NewRunnerFromState(zerolog.New(io.Discard), st, Config{
		LocalID:    "alice",
		OpponentID: "bob",
		Roller:     dice.NewSeeded(seed).Skip(st.Draws, 6),
		Clock:      quartz.NewMock(t),
	})
	require.NoError(t, err)

	snap := resumed.Snapshot()
	assert.Equal(t, orig.Snapshot().Baseline, snap.Baseline)
	assert.True(t, snap.LocalLocked)
	require.NotNil(t, snap.LocalBet)
	assert.Equal(t, 4, snap.LocalBet.Amount)
}
