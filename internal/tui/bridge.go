package tui

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/lox/dicerush/internal/game"
)

// Feed is a game.Subscriber that hands snapshots to the model through a
// channel. OnSnapshot never blocks: when the buffer is full the oldest
// snapshot is discarded, since every snapshot carries the full state.
type Feed struct {
	ch     chan game.Snapshot
	mu     sync.Mutex
	closed bool
}

// NewFeed creates a feed buffering up to size snapshots.
func NewFeed(size int) *Feed {
	if size < 1 {
		size = 1
	}
	return &Feed{ch: make(chan game.Snapshot, size)}
}

// OnSnapshot implements game.Subscriber.
func (f *Feed) OnSnapshot(s game.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	for {
		select {
		case f.ch <- s:
			return
		default:
		}
		select {
		case <-f.ch:
		default:
		}
	}
}

// C returns the snapshot channel. It is closed by Close.
func (f *Feed) C() <-chan game.Snapshot {
	return f.ch
}

// Close stops delivery and closes the channel.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.ch)
	}
}

// Describe turns the change between two snapshots into game log lines.
// first is true for the first snapshot the model sees.
func Describe(prev, next game.Snapshot, first bool) []string {
	var lines []string

	newRound := first || prev.Round != next.Round || (prev.Phase.Terminal() && !next.Phase.Terminal())
	if newRound && next.Phase == game.PhaseBetting {
		if !first && next.Round == 1 {
			lines = append(lines, "New match")
		}
		header := fmt.Sprintf("*** ROUND %d ***", next.Round)
		if next.Rush {
			header = fmt.Sprintf("*** ROUND %d (RUSH) ***", next.Round)
		}
		lines = append(lines, header, fmt.Sprintf("Baseline die shows %d", next.Baseline))
		if first {
			return lines
		}
	}

	if !prev.LocalLocked && next.LocalLocked && next.LocalBet != nil {
		bet := next.LocalBet
		if bet.Forced {
			lines = append(lines, fmt.Sprintf("Time up, you were locked at %d on %s", bet.Amount, bet.Prediction))
		} else {
			lines = append(lines, fmt.Sprintf("You locked %d on %s", bet.Amount, bet.Prediction))
		}
	}
	if !prev.OpponentLocked && next.OpponentLocked && next.Phase == game.PhaseBetting {
		lines = append(lines, fmt.Sprintf("%s locked in", next.Opponent.ID))
	}

	if next.Phase == game.PhaseResults && (prev.Phase != game.PhaseResults || first) && next.LastResult != nil {
		lines = append(lines, describeResult(next.LastResult, next.Local.ID, next.Opponent.ID)...)
	}

	if next.Phase != prev.Phase || first {
		switch next.Phase {
		case game.PhaseGameOver:
			lines = append(lines, describeGameOver(next))
		case game.PhaseAbandoned:
			lines = append(lines, fmt.Sprintf("%s left the match, you win by forfeit", next.Opponent.ID))
		}
	}
	return lines
}

func describeResult(res *game.RoundResult, ids ...string) []string {
	lines := []string{fmt.Sprintf("Rolled %d against %d", res.Outcome, res.Baseline)}
	for _, id := range ids {
		pr, ok := res.For(id)
		if !ok {
			continue
		}
		line := fmt.Sprintf("  %s: %s on %s %d, %+d", id, pr.Category, pr.Bet.Prediction, pr.Bet.Amount, pr.Delta)
		if tags := bonusTags(pr.Bonuses); tags != "" {
			line += " (" + tags + ")"
		}
		lines = append(lines, line)
	}
	return lines
}

func bonusTags(bonuses []game.Bonus) string {
	tags := make([]string, 0, len(bonuses))
	for _, b := range bonuses {
		if b.Points == 0 {
			tags = append(tags, string(b.Kind))
			continue
		}
		tags = append(tags, fmt.Sprintf("%s %+d", b.Kind, b.Points))
	}
	sort.Strings(tags)
	return strings.Join(tags, ", ")
}

func describeGameOver(s game.Snapshot) string {
	verdict := "draw"
	switch {
	case s.Local.Score > s.Opponent.Score:
		verdict = "you win"
	case s.Local.Score < s.Opponent.Score:
		verdict = s.Opponent.ID + " wins"
	}
	return fmt.Sprintf("Game over (%s): %s %d, %s %d, %s",
		s.EndReason, s.Local.ID, s.Local.Score, s.Opponent.ID, s.Opponent.Score, verdict)
}
