package main

import (
	"context"
	"fmt"
	"time"

	"github.com/lox/dicerush/cmd/dicerush/shared"
	"github.com/lox/dicerush/internal/dice"
	"github.com/lox/dicerush/internal/game"
	"github.com/lox/dicerush/internal/match"
	"github.com/lox/dicerush/internal/room"
)

// JoinCmd connects to a relay and plays whoever it pairs us with.
type JoinCmd struct {
	Server  string        `kong:"help='Relay websocket URL (defaults to the configured relay url)'"`
	Name    string        `kong:"help='Display name (defaults to the configured player name)'"`
	Wait    time.Duration `kong:"default='5m',help='How long to wait for an opponent'"`
	LogFile string        `kong:"name='log-file',help='Write logs to this file instead of discarding them'"`
}

func (c *JoinCmd) Run(g *Globals) error {
	cfg, err := g.Load()
	if err != nil {
		return err
	}
	server := firstNonEmpty(c.Server, cfg.RelayURL)
	name := firstNonEmpty(c.Name, cfg.PlayerName)

	logs, err := shared.SetupSessionLoggers(c.LogFile, g.Debug)
	if err != nil {
		return err
	}
	defer logs.Close()

	ctx, stop := shared.SetupSignalHandler(logs.Core)
	defer stop()

	fmt.Printf("Connecting to %s as %s...\n", server, name)
	peer, err := room.Dial(ctx, logs.Core, server, name)
	if err != nil {
		return err
	}
	defer peer.Close()

	fmt.Println("Waiting for an opponent...")
	waitCtx, cancel := context.WithTimeout(ctx, c.Wait)
	pairing, err := peer.WaitPaired(waitCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("wait for opponent: %w", err)
	}

	runner := match.NewRunner(logs.Core, match.Config{
		LocalID:    pairing.LocalID,
		OpponentID: pairing.OpponentID,
		Roller:     dice.NewSeeded(pairing.Seed),
		Peer:       peer,
		Options: []game.MatchOption{
			game.WithRules(cfg.Rules),
			game.WithMatchID(pairing.MatchID),
		},
	})
	peer.Attach(runner)
	runner.Start(ctx)

	logs.Core.Info().
		Str("match_id", pairing.MatchID).
		Str("opponent", pairing.OpponentID).
		Msg("Paired")

	err = runTUI(ctx, logs.TUI, runner, runner, snapshotSaver(runner, pairing.Seed, cfg.SnapshotDir))
	leave(logs.TUI, runner)
	return err
}
