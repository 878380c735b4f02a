package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lox/dicerush/internal/game"
)

// ActionKind identifies what a line typed into the action input asks for.
type ActionKind int

const (
	ActionContinue ActionKind = iota // empty input
	ActionBet
	ActionReset
	ActionSave
	ActionHelp
	ActionQuit
)

// Action is a parsed input line.
type Action struct {
	Kind       ActionKind
	Prediction game.Prediction
	Amount     int
	AllIn      bool // amount is the current score
}

var errEmptyBet = errors.New("bet needs a prediction")

// ParseAction parses input such as "h 10", "lower 5", "l max", "reset",
// "save" or "quit". An empty line continues past the results.
func ParseAction(input string) (Action, error) {
	parts := strings.Fields(strings.ToLower(input))
	if len(parts) == 0 {
		return Action{Kind: ActionContinue}, nil
	}

	switch parts[0] {
	case "reset", "r", "again":
		return Action{Kind: ActionReset}, nil
	case "save", "s":
		return Action{Kind: ActionSave}, nil
	case "help", "?":
		return Action{Kind: ActionHelp}, nil
	case "quit", "q", "exit", "leave":
		return Action{Kind: ActionQuit}, nil
	case "bet":
		parts = parts[1:]
		if len(parts) == 0 {
			return Action{}, errEmptyBet
		}
	}

	prediction, err := game.ParsePrediction(parts[0])
	if err != nil {
		return Action{}, fmt.Errorf("unknown action %q", parts[0])
	}
	act := Action{Kind: ActionBet, Prediction: prediction}

	switch len(parts) {
	case 1:
		return act, nil
	case 2:
	default:
		return Action{}, fmt.Errorf("too many arguments for %s", prediction)
	}

	switch parts[1] {
	case "max", "all", "allin":
		act.AllIn = true
		return act, nil
	}
	amount, err := strconv.Atoi(parts[1])
	if err != nil {
		return Action{}, fmt.Errorf("invalid amount %q", parts[1])
	}
	if amount < 0 {
		return Action{}, fmt.Errorf("%w: %d", game.ErrInvalidWager, amount)
	}
	act.Amount = amount
	return act, nil
}
