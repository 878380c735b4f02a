package game

// Accumulator tracks cumulative score and streak per player across a match
// and decides when the match is over.
type Accumulator struct {
	rules   Rules
	order   []string
	players map[string]*Player
}

// NewAccumulator seeds every player with the starting score.
func NewAccumulator(rules Rules, ids ...string) *Accumulator {
	a := &Accumulator{
		rules:   rules,
		order:   append([]string(nil), ids...),
		players: make(map[string]*Player, len(ids)),
	}
	for _, id := range ids {
		a.players[id] = &Player{ID: id, Score: rules.StartingScore}
	}
	return a
}

// Apply adds each player's delta with a floor of zero and updates streaks.
func (a *Accumulator) Apply(res *RoundResult) {
	for id, pr := range res.Players {
		p, ok := a.players[id]
		if !ok {
			continue
		}
		p.Score = max(0, p.Score+pr.Delta)
		if pr.Category == Win {
			p.Streak++
		} else {
			p.Streak = 0
		}
	}
}

// Player returns a copy of the player's totals.
func (a *Accumulator) Player(id string) Player {
	if p, ok := a.players[id]; ok {
		return *p
	}
	return Player{ID: id}
}

// Players returns all players in registration order.
func (a *Accumulator) Players() []Player {
	out := make([]Player, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, *a.players[id])
	}
	return out
}

// Streaks returns each player's current streak.
func (a *Accumulator) Streaks() map[string]int {
	out := make(map[string]int, len(a.players))
	for id, p := range a.players {
		out[id] = p.Streak
	}
	return out
}

// restore overwrites a player's totals.
func (a *Accumulator) restore(p Player) {
	if cur, ok := a.players[p.ID]; ok {
		*cur = p
	}
}

// GameOver reports whether the match ends after round completes.
// Reaching MaxRounds takes precedence over a bust.
func (a *Accumulator) GameOver(round int) (bool, EndReason) {
	if a.rules.MaxRounds > 0 && round >= a.rules.MaxRounds {
		return true, EndMaxRounds
	}
	if a.rules.EndOnBust {
		for _, id := range a.order {
			if a.busted(a.players[id]) {
				return true, EndBust
			}
		}
	}
	return false, EndNone
}

// busted reports whether a player sits at zero with no way back: a zero
// score only allows zero wagers, so only a streak bonus could recover it.
func (a *Accumulator) busted(p *Player) bool {
	if p.Score > 0 {
		return false
	}
	return p.Streak == 0 || a.rules.StreakBonus == 0
}
