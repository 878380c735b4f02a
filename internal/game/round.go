package game

// Round describes the active round. Outcome stays 0 until the round is
// resolved.
type Round struct {
	Number   int
	Baseline int
	Outcome  int
	Resolved bool
	Rush     bool
}

// CurrentRound returns the active round.
func (m *Match) CurrentRound() Round {
	r := Round{
		Number:   m.round,
		Baseline: m.baseline,
		Rush:     m.rules.IsRushRound(m.round),
	}
	if m.resolvedRound == m.round && m.last != nil {
		r.Outcome = m.last.Outcome
		r.Resolved = true
	}
	return r
}
