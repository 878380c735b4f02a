package match

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/lox/dicerush/internal/game"
	"github.com/rs/zerolog"
)

// TickInterval is the cadence of the betting countdown and results hold.
const TickInterval = time.Second

// ErrStopped is returned by commands sent to a stopped runner.
var ErrStopped = errors.New("match runner stopped")

const inboundQueueSize = 64

type command struct {
	name  string
	fn    func(*game.Match) error
	reply chan error
}

type inboundKind int

const (
	inboundLocked inboundKind = iota
	inboundLeft
)

type inboundEvent struct {
	kind  inboundKind
	round int
	ack   []byte
}

// Config describes a runner's match.
type Config struct {
	LocalID    string
	OpponentID string
	Roller     game.Roller
	Peer       Peer
	Clock      quartz.Clock
	Options    []game.MatchOption
}

// Runner owns a game.Match and is the only goroutine touching it.
type Runner struct {
	logger zerolog.Logger
	clock  quartz.Clock
	peer   Peer
	match  *game.Match

	commands chan command
	inbound  chan inboundEvent

	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	runOnce  sync.Once

	mu       sync.RWMutex
	snapshot game.Snapshot
}

// NewRunner creates the runner and its match. The match is in round 1
// BETTING but its countdown does not advance until Start.
func NewRunner(logger zerolog.Logger, cfg Config) *Runner {
	r := newRunner(logger, &cfg)
	r.attach(game.NewMatch(logger, cfg.Roller, cfg.LocalID, cfg.OpponentID, r.matchOptions(cfg)...))
	return r
}

// NewRunnerFromState resumes a persisted match. cfg.Roller must already be
// positioned after st.Draws draws.
func NewRunnerFromState(logger zerolog.Logger, st game.State, cfg Config) (*Runner, error) {
	r := newRunner(logger, &cfg)
	m, err := game.Restore(logger, st, cfg.Roller, r.matchOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("restore match: %w", err)
	}
	r.attach(m)
	return r, nil
}

func newRunner(logger zerolog.Logger, cfg *Config) *Runner {
	if cfg.Peer == nil {
		cfg.Peer = NopPeer{}
	}
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}
	return &Runner{
		logger: logger.With().
			Str("component", "runner").
			Str("player", cfg.LocalID).
			Logger(),
		clock:    cfg.Clock,
		peer:     cfg.Peer,
		commands: make(chan command),
		inbound:  make(chan inboundEvent, inboundQueueSize),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (r *Runner) matchOptions(cfg Config) []game.MatchOption {
	return append([]game.MatchOption{game.WithLockNotifier(r.emitLocked)}, cfg.Options...)
}

func (r *Runner) attach(m *game.Match) {
	r.match = m
	r.snapshot = m.Snapshot()
	m.Subscribe(game.SubscriberFunc(r.storeSnapshot))
}

// Start launches the event loop. It is safe to call more than once.
func (r *Runner) Start(ctx context.Context) {
	r.runOnce.Do(func() {
		ticker := r.clock.NewTicker(TickInterval, "runner", "tick")
		go r.run(ctx, ticker)
	})
}

func (r *Runner) run(ctx context.Context, ticker *quartz.Ticker) {
	defer close(r.done)
	defer ticker.Stop()

	r.logger.Debug().Msg("Runner started")
	for {
		select {
		case <-ctx.Done():
			r.logger.Debug().Err(ctx.Err()).Msg("Runner context done")
			return
		case <-r.stopCh:
			r.logger.Debug().Msg("Runner stopped")
			return
		case cmd := <-r.commands:
			cmd.reply <- cmd.fn(r.match)
		case ev := <-r.inbound:
			r.handleInbound(ev)
		case <-ticker.C:
			r.match.Tick()
			if r.match.ResendLock() {
				r.logger.Debug().Int("round", r.match.Round()).Msg("Re-emitted local lock")
			}
		}
	}
}

func (r *Runner) handleInbound(ev inboundEvent) {
	switch ev.kind {
	case inboundLocked:
		if err := r.match.OpponentLocked(ev.round, ev.ack); err != nil {
			if errors.Is(err, game.ErrStaleRoundEvent) {
				return
			}
			r.logger.Warn().Err(err).Int("round", ev.round).Msg("Opponent lock rejected")
		}
	case inboundLeft:
		if err := r.match.OpponentLeft(); err != nil {
			r.logger.Warn().Err(err).Msg("Opponent leave rejected")
		}
	}
}

// do runs fn on the event loop and waits for its result.
func (r *Runner) do(ctx context.Context, name string, fn func(*game.Match) error) error {
	cmd := command{name: name, fn: fn, reply: make(chan error, 1)}
	select {
	case r.commands <- cmd:
	case <-r.done:
		return fmt.Errorf("%s: %w", name, ErrStopped)
	case <-r.stopCh:
		return fmt.Errorf("%s: %w", name, ErrStopped)
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LockBet locks the local bet for the current round.
func (r *Runner) LockBet(ctx context.Context, amount int, prediction game.Prediction) error {
	return r.do(ctx, "lock bet", func(m *game.Match) error {
		return m.LockBet(amount, prediction)
	})
}

// DismissResults leaves the results screen early.
func (r *Runner) DismissResults(ctx context.Context) error {
	return r.do(ctx, "dismiss results", func(m *game.Match) error {
		return m.DismissResults()
	})
}

// Reset starts the match over from round 1.
func (r *Runner) Reset(ctx context.Context) error {
	return r.do(ctx, "reset", func(m *game.Match) error {
		m.Reset()
		return nil
	})
}

// Leave tells the opponent the local player left and stops the runner.
func (r *Runner) Leave(ctx context.Context) error {
	err := r.do(ctx, "leave", func(*game.Match) error {
		if err := r.peer.EmitLeft(); err != nil {
			return fmt.Errorf("emit left: %w", err)
		}
		r.logger.Info().Msg("Left match")
		return nil
	})
	r.Stop()
	return err
}

// Export captures the match for persistence. The caller fills in the seed.
func (r *Runner) Export(ctx context.Context) (game.State, error) {
	var st game.State
	err := r.do(ctx, "export", func(m *game.Match) error {
		st = m.Export()
		return nil
	})
	return st, err
}

// Subscribe registers s for snapshots. s runs on the runner goroutine and
// must not block or call runner commands synchronously.
func (r *Runner) Subscribe(ctx context.Context, s game.Subscriber) (unsubscribe func(), err error) {
	var unsub func()
	err = r.do(ctx, "subscribe", func(m *game.Match) error {
		unsub = m.Subscribe(s)
		s.OnSnapshot(m.Snapshot())
		return nil
	})
	if err != nil {
		return func() {}, err
	}
	return func() {
		_ = r.do(context.Background(), "unsubscribe", func(*game.Match) error {
			unsub()
			return nil
		})
	}, nil
}

// OnOpponentLocked implements OpponentSink.
func (r *Runner) OnOpponentLocked(round int, ack []byte) {
	r.enqueue(inboundEvent{kind: inboundLocked, round: round, ack: ack})
}

// OnOpponentLeft implements OpponentSink.
func (r *Runner) OnOpponentLeft() {
	r.enqueue(inboundEvent{kind: inboundLeft})
}

func (r *Runner) enqueue(ev inboundEvent) {
	select {
	case r.inbound <- ev:
	case <-r.stopCh:
	case <-r.done:
	}
}

func (r *Runner) emitLocked(round int, ack []byte) {
	if err := r.peer.EmitLocked(round, ack); err != nil {
		r.logger.Warn().Err(err).Int("round", round).Msg("Failed to emit lock")
	}
}

func (r *Runner) storeSnapshot(s game.Snapshot) {
	r.mu.Lock()
	r.snapshot = s
	r.mu.Unlock()
}

// Snapshot returns the latest published snapshot.
func (r *Runner) Snapshot() game.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot
}

// Stop ends the event loop. It is safe to call more than once, and before
// Start, in which case the runner can no longer be started.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
	})
	r.runOnce.Do(func() {
		close(r.done)
	})
}

// Done is closed when the event loop has exited.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the event loop exits or ctx is done.
func (r *Runner) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
