package game

import (
	"testing"

	"github.com/lox/dicerush/internal/dice"
)

func TestSnapshotHidesOpponentBet(t *testing.T) {
	m := newTestMatch(t, []int{3, 5})
	if err := m.OpponentLocked(1, mustSeal(t, 42, Lower)); err != nil {
		t.Fatal(err)
	}

	s := m.Snapshot()
	if !s.OpponentLocked || s.LocalLocked {
		t.Errorf("Expected only opponent lock flag, got local=%v opponent=%v", s.LocalLocked, s.OpponentLocked)
	}
	if s.LocalBet != nil || s.LastResult != nil {
		t.Error("No bet content should be visible before resolution")
	}
}

func TestExportRestoreResumesIdentically(t *testing.T) {
	const seed = 7
	opts := []MatchOption{WithMatchID("m-1")}
	m := NewMatch(testLogger(), dice.NewSeeded(seed), alice, bob, opts...)

	playRound(t, m, 10, Higher, 5, Lower)
	tickN(m, 2)
	if err := m.LockBet(3, Lower); err != nil {
		t.Fatal(err)
	}

	st := m.Export()
	st.Seed = seed
	restored, err := Restore(testLogger(), st, dice.NewSeeded(seed).Skip(st.Draws, 6), opts...)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if restored.Snapshot().SecondsRemaining != 8 || restored.Round() != 2 {
		t.Fatalf("Restored clock or round mismatch: %+v", restored.Snapshot())
	}

	ack := mustSeal(t, 4, Higher)
	for _, mm := range []*Match{m, restored} {
		if err := mm.OpponentLocked(2, ack); err != nil {
			t.Fatal(err)
		}
	}

	want, got := m.LastResult(), restored.LastResult()
	if want.Outcome != got.Outcome || want.Baseline != got.Baseline {
		t.Errorf("Expected outcome %d/%d, got %d/%d", want.Baseline, want.Outcome, got.Baseline, got.Outcome)
	}
	if m.Local() != restored.Local() || m.Opponent() != restored.Opponent() {
		t.Errorf("Totals diverged: %+v/%+v vs %+v/%+v", m.Local(), m.Opponent(), restored.Local(), restored.Opponent())
	}
}

func TestRestoreKeepsSavedRules(t *testing.T) {
	saved := DefaultRules()
	saved.MaxRounds = 1
	saved.Faces = 12
	m := NewMatch(testLogger(), dice.NewSequence(3, 5), alice, bob, WithRules(saved))

	st := m.Export()
	if st.Rules == nil || *st.Rules != saved {
		t.Fatalf("Export should carry the match rules, got %+v", st.Rules)
	}

	restored, err := Restore(testLogger(), st, dice.NewSequence(5), WithRules(DefaultRules()))
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.Rules() != saved {
		t.Errorf("Expected the saved rules to win, got %+v", restored.Rules())
	}

	playRound(t, restored, 0, Higher, 0, Lower)
	if restored.Phase() != PhaseGameOver || restored.EndReason() != EndMaxRounds {
		t.Errorf("Saved max_rounds 1 should end the match, got %s %s", restored.Phase(), restored.EndReason())
	}

	st.Rules = &Rules{}
	if _, err := Restore(testLogger(), st, dice.NewSequence(5)); err == nil {
		t.Error("Expected invalid saved rules to be rejected")
	}
}

func TestRestoreFinishesRevealing(t *testing.T) {
	st := State{
		MatchID:    "m-2",
		LocalID:    alice,
		OpponentID: bob,
		Phase:      PhaseRevealing,
		Round:      1,
		Baseline:   3,
		Players: []Player{
			{ID: alice, Score: 100},
			{ID: bob, Score: 100},
		},
		LocalBet: &Bet{PlayerID: alice, Amount: 10, Prediction: Higher},
	}

	m, err := Restore(testLogger(), st, dice.NewSequence(6))
	if err != nil {
		t.Fatal(err)
	}
	if m.Phase() != PhaseResults || m.Local().Score != 110 {
		t.Errorf("Expected resolved round with 110, got %s %d", m.Phase(), m.Local().Score)
	}
}

func TestRestoreRejectsInvalidState(t *testing.T) {
	valid := State{
		LocalID:    alice,
		OpponentID: bob,
		Phase:      PhaseBetting,
		Round:      1,
		Players:    []Player{{ID: alice}, {ID: bob}},
	}

	tests := []struct {
		name   string
		mutate func(*State)
	}{
		{"zero round", func(s *State) { s.Round = 0 }},
		{"one player", func(s *State) { s.Players = s.Players[:1] }},
		{"unknown player", func(s *State) { s.Players[1].ID = "mallory" }},
		{"negative score", func(s *State) { s.Players[0].Score = -1 }},
		{"results without result", func(s *State) { s.Phase = PhaseResults }},
		{"bad ack", func(s *State) { s.OpponentAck = "!!!" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := valid
			st.Players = append([]Player(nil), valid.Players...)
			tt.mutate(&st)
			if _, err := Restore(testLogger(), st, dice.NewSequence(1)); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestStateMirror(t *testing.T) {
	t.Run("local lock becomes a sealed opponent lock", func(t *testing.T) {
		m := newTestMatch(t, []int{3, 5})
		if err := m.LockBet(10, Higher); err != nil {
			t.Fatal(err)
		}

		mirrored, err := m.Export().Mirror(nil)
		if err != nil {
			t.Fatal(err)
		}
		if mirrored.LocalID != bob || mirrored.OpponentID != alice {
			t.Fatalf("Expected swapped ids, got %s/%s", mirrored.LocalID, mirrored.OpponentID)
		}
		if mirrored.LocalBet != nil || mirrored.OpponentAck == "" {
			t.Fatalf("Expected only a sealed opponent bet, got %+v", mirrored)
		}

		restored, err := Restore(testLogger(), mirrored, dice.NewSequence(5))
		if err != nil {
			t.Fatal(err)
		}
		s := restored.Snapshot()
		if s.LocalLocked || !s.OpponentLocked {
			t.Errorf("Expected opponent lock only, got local=%v opponent=%v", s.LocalLocked, s.OpponentLocked)
		}

		if err := restored.LockBet(4, Lower); err != nil {
			t.Fatal(err)
		}
		res, ok := restored.LastResult().For(alice)
		if !ok || res.Bet.Amount != 10 || res.Bet.Prediction != Higher {
			t.Errorf("Expected alice's sealed bet to open as 10 higher, got %+v", res.Bet)
		}
	})

	t.Run("opponent ack opens into the local bet", func(t *testing.T) {
		m := newTestMatch(t, []int{3, 5})
		if err := m.OpponentLocked(1, mustSeal(t, 4, Lower)); err != nil {
			t.Fatal(err)
		}

		mirrored, err := m.Export().Mirror(JSONCodec{})
		if err != nil {
			t.Fatal(err)
		}
		if mirrored.LocalBet == nil || mirrored.LocalBet.Amount != 4 || mirrored.LocalBet.Prediction != Lower {
			t.Fatalf("Expected local bet 4 lower, got %+v", mirrored.LocalBet)
		}
		if mirrored.OpponentAck != "" {
			t.Errorf("Expected no opponent ack, got %q", mirrored.OpponentAck)
		}
	})

	t.Run("unreadable ack", func(t *testing.T) {
		st := newTestMatch(t, []int{3}).Export()
		st.OpponentAck = "not base64!"
		if _, err := st.Mirror(nil); err == nil {
			t.Error("Expected an error for a corrupt ack")
		}
	})
}
