package game

import (
	"io"
	"testing"
	"time"

	"github.com/lox/dicerush/internal/dice"
	"github.com/rs/zerolog"
)

const (
	alice = "alice"
	bob   = "bob"
)

// testLogger creates a logger that discards output for tests
func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard).Level(zerolog.Disabled)
}

var fixedNow = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

// newTestMatch builds a match whose die yields rolls in order. The first
// roll is the round 1 baseline.
func newTestMatch(t *testing.T, rolls []int, opts ...MatchOption) *Match {
	t.Helper()
	opts = append([]MatchOption{WithNow(func() time.Time { return fixedNow })}, opts...)
	return NewMatch(testLogger(), dice.NewSequence(rolls...), alice, bob, opts...)
}

func mustSeal(t *testing.T, amount int, prediction Prediction) []byte {
	t.Helper()
	ack, err := JSONCodec{}.Seal(Bet{Amount: amount, Prediction: prediction})
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	return ack
}

// phaseRecorder collects the phase of every published snapshot.
type phaseRecorder struct {
	phases []Phase
}

func (r *phaseRecorder) OnSnapshot(s Snapshot) {
	if n := len(r.phases); n > 0 && r.phases[n-1] == s.Phase {
		return
	}
	r.phases = append(r.phases, s.Phase)
}

// tickN advances the match n seconds.
func tickN(m *Match, n int) {
	for i := 0; i < n; i++ {
		m.Tick()
	}
}
