package game

import "fmt"

// Phase is the match's authoritative phase.
type Phase int

const (
	PhaseBetting Phase = iota
	PhaseRevealing
	PhaseResults
	PhaseGameOver
	PhaseAbandoned
)

var phaseNames = [...]string{"BETTING", "REVEALING", "RESULTS", "GAME_OVER", "ABANDONED"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

// Terminal reports whether no further transitions are possible without Reset.
func (p Phase) Terminal() bool {
	return p == PhaseGameOver || p == PhaseAbandoned
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(text []byte) error {
	for i, name := range phaseNames {
		if name == string(text) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// EndReason explains why a match reached a terminal phase.
type EndReason string

const (
	EndNone      EndReason = ""
	EndMaxRounds EndReason = "max_rounds"
	EndBust      EndReason = "bust"
	EndForfeit   EndReason = "forfeit"
)
