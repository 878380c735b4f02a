package game

// Player holds a participant's running totals for the match.
type Player struct {
	ID     string `toml:"id" json:"id"`
	Score  int    `toml:"score" json:"score"`
	Streak int    `toml:"streak" json:"streak"`
}

// CanWager reports whether amount is an acceptable wager for the player.
func (p Player) CanWager(amount int) bool {
	return amount >= 0 && amount <= p.Score
}
