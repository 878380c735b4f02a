package game

// Roller is the single source of randomness: it returns a face in 1..faces.
type Roller interface {
	Roll(faces int) int
}

// Resolver draws round outcomes and scores locked bets against them.
type Resolver struct {
	rules  Rules
	roller Roller
	draws  int
}

// NewResolver creates a resolver that draws through roller.
func NewResolver(rules Rules, roller Roller) *Resolver {
	if roller == nil {
		panic("roller is required for resolver creation")
	}
	return &Resolver{rules: rules, roller: roller}
}

// Draw returns a fresh die face. Out-of-range rolls are folded back into
// 1..Faces so a misbehaving roller can never produce an impossible face.
func (r *Resolver) Draw() int {
	r.draws++
	v := r.roller.Roll(r.rules.Faces)
	if v < 1 || v > r.rules.Faces {
		v = ((v%r.rules.Faces)+r.rules.Faces)%r.rules.Faces + 1
	}
	return v
}

// Draws returns how many faces have been drawn.
func (r *Resolver) Draws() int {
	return r.draws
}

// Resolve draws the outcome for round and scores every bet. streaks holds
// each player's streak before the round.
func (r *Resolver) Resolve(round, baseline int, bets []Bet, streaks map[string]int) *RoundResult {
	return Score(r.rules, round, baseline, r.Draw(), bets, streaks)
}

// Score computes a RoundResult for a known outcome. It is pure.
func Score(rules Rules, round, baseline, outcome int, bets []Bet, streaks map[string]int) *RoundResult {
	res := &RoundResult{
		Round:    round,
		Baseline: baseline,
		Outcome:  outcome,
		Rush:     rules.IsRushRound(round),
		Players:  make(map[string]PlayerResult, len(bets)),
	}
	for _, bet := range bets {
		res.Players[bet.PlayerID] = scoreBet(rules, res.Rush, baseline, outcome, bet, streaks[bet.PlayerID])
	}
	return res
}

// Categorize compares outcome to baseline for prediction.
func Categorize(prediction Prediction, baseline, outcome int) Category {
	switch {
	case outcome == baseline:
		return Push
	case prediction == Higher && outcome > baseline:
		return Win
	case prediction == Lower && outcome < baseline:
		return Win
	default:
		return Lose
	}
}

func scoreBet(rules Rules, rush bool, baseline, outcome int, bet Bet, streak int) PlayerResult {
	pr := PlayerResult{
		Category: Categorize(bet.Prediction, baseline, outcome),
		Bet:      bet,
	}

	var base int
	switch pr.Category {
	case Win:
		base = bet.Amount
	case Lose:
		base = -bet.Amount
	}
	pr.Delta = base

	if rush && base != 0 && rules.RushMultiplier > 1 {
		extra := base * (rules.RushMultiplier - 1)
		pr.Delta += extra
		pr.Bonuses = append(pr.Bonuses, Bonus{Kind: BonusRush, Points: extra})
	}
	if pr.Category == Win && streak > 0 && rules.StreakBonus > 0 {
		extra := streak * rules.StreakBonus
		pr.Delta += extra
		pr.Bonuses = append(pr.Bonuses, Bonus{Kind: BonusStreak, Points: extra})
	}
	if bet.Forced {
		pr.Bonuses = append(pr.Bonuses, Bonus{Kind: BonusForced})
	}
	return pr
}
