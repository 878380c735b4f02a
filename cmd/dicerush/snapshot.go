package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/lox/dicerush/internal/game"
	"github.com/lox/dicerush/internal/snapshot"
)

type SnapshotCmd struct {
	Show SnapshotShowCmd `cmd:"" help:"Print a saved match"`
}

type SnapshotShowCmd struct {
	File string `arg:"" type:"existingfile" help:"Snapshot file to read"`
	Raw  bool   `help:"Print the normalized TOML instead of a summary"`
}

func (c *SnapshotShowCmd) Run() error {
	file, err := snapshot.Load(c.File)
	if err != nil {
		return err
	}
	if c.Raw {
		return snapshot.Encode(os.Stdout, file.Match, file.SavedAt)
	}
	return printSummary(os.Stdout, file)
}

func printSummary(w io.Writer, file snapshot.File) error {
	st := file.Match
	var b strings.Builder

	fmt.Fprintf(&b, "Match %s (saved %s)\n", st.MatchID, file.SavedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Round %d, %s", st.Round, st.Phase)
	if st.EndReason != game.EndNone {
		fmt.Fprintf(&b, " (%s)", st.EndReason)
	}
	fmt.Fprintf(&b, ", baseline %d\n", st.Baseline)
	fmt.Fprintf(&b, "Seed %d after %d draws\n", st.Seed, st.Draws)

	players := append([]game.Player(nil), st.Players...)
	sort.Slice(players, func(i, j int) bool { return players[i].Score > players[j].Score })
	for _, p := range players {
		marker := ""
		if p.ID == st.LocalID {
			marker = " (local)"
		}
		fmt.Fprintf(&b, "  %-16s score %4d  streak %d\n", p.ID+marker, p.Score, p.Streak)
	}

	if res := st.LastResult; res != nil {
		fmt.Fprintf(&b, "Last roll: %d against %d in round %d\n", res.Outcome, res.Baseline, res.Round)
	}
	if st.StaleEvents > 0 || st.Duplicates > 0 {
		fmt.Fprintf(&b, "Dropped events: %d stale, %d duplicate\n", st.StaleEvents, st.Duplicates)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
