package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/dicerush/internal/game"
)

// Locker is the part of a match runner the driver needs.
type Locker interface {
	LockBet(ctx context.Context, amount int, prediction game.Prediction) error
	Subscribe(ctx context.Context, s game.Subscriber) (func(), error)
}

// Driver plays a strategy through a runner: each betting round it waits a
// think delay, then locks the strategy's decision.
type Driver struct {
	logger   *log.Logger
	clock    quartz.Clock
	runner   Locker
	strategy Strategy
	rules    game.Rules
	think    time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	scheduled   int
	timer       *quartz.Timer
	unsubscribe func()
}

// NewDriver creates a driver. think is the delay before each lock.
func NewDriver(logger *log.Logger, clock quartz.Clock, runner Locker, strategy Strategy, rules game.Rules, think time.Duration) *Driver {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Driver{
		logger:   logger.WithPrefix("bot"),
		clock:    clock,
		runner:   runner,
		strategy: strategy,
		rules:    rules,
		think:    think,
	}
}

// Start subscribes to the runner.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	d.ctx, d.cancel = context.WithCancel(ctx)
	d.mu.Unlock()

	unsubscribe, err := d.runner.Subscribe(ctx, d)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.unsubscribe = unsubscribe
	d.mu.Unlock()
	return nil
}

// OnSnapshot implements game.Subscriber. It runs on the runner goroutine, so
// the lock itself happens later on the timer's goroutine.
func (d *Driver) OnSnapshot(s game.Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s.Phase != game.PhaseBetting {
		d.scheduled = 0
		return
	}
	if s.LocalLocked || d.scheduled == s.Round || d.ctx == nil {
		return
	}
	d.scheduled = s.Round

	d.timer = d.clock.AfterFunc(d.think, func() {
		d.decide(s)
	}, "bot", "think")
}

func (d *Driver) decide(s game.Snapshot) {
	d.mu.Lock()
	ctx := d.ctx
	d.mu.Unlock()
	if ctx.Err() != nil {
		return
	}

	decision := d.strategy.Decide(s, d.rules)
	d.logger.Debug("Bot decision",
		"round", s.Round,
		"baseline", s.Baseline,
		"amount", decision.Amount,
		"prediction", decision.Prediction,
		"reasoning", decision.Reasoning)

	err := d.runner.LockBet(ctx, decision.Amount, decision.Prediction)
	switch {
	case err == nil:
	case errors.Is(err, game.ErrPhaseViolation), errors.Is(err, game.ErrForfeitAbandon), errors.Is(err, game.ErrAlreadyLocked):
		d.logger.Debug("Bot lock skipped", "round", s.Round, "error", err)
	default:
		d.logger.Warn("Bot lock failed", "round", s.Round, "error", err)
	}
}

// Stop cancels any pending decision and unsubscribes.
func (d *Driver) Stop() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	cancel, unsubscribe := d.cancel, d.unsubscribe
	d.unsubscribe = nil
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if unsubscribe != nil {
		unsubscribe()
	}
}
