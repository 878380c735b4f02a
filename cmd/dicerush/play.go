package main

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/coder/quartz"
	"github.com/lox/dicerush/cmd/dicerush/shared"
	"github.com/lox/dicerush/internal/bot"
	"github.com/lox/dicerush/internal/dice"
	"github.com/lox/dicerush/internal/game"
	"github.com/lox/dicerush/internal/match"
	"github.com/lox/dicerush/internal/matchid"
	"github.com/lox/dicerush/internal/room"
	"github.com/lox/dicerush/internal/snapshot"
)

// PlayCmd plays a match against a built-in bot over an in-process pipe.
type PlayCmd struct {
	Name    string        `kong:"help='Display name (defaults to the configured player name)'"`
	Bot     string        `kong:"help='Bot strategy: random, cautious or aggressive'"`
	Think   time.Duration `kong:"help='How long the bot thinks before locking'"`
	Seed    *int64        `kong:"help='Deterministic dice seed (optional)'"`
	Resume  string        `kong:"type='existingfile',help='Resume the match saved in this snapshot file'"`
	LogFile string        `kong:"name='log-file',help='Write logs to this file instead of discarding them'"`
}

func (c *PlayCmd) Run(g *Globals) error {
	cfg, err := g.Load()
	if err != nil {
		return err
	}
	name := firstNonEmpty(c.Name, cfg.PlayerName)
	strategyName := firstNonEmpty(c.Bot, cfg.BotStrategy)
	think := cfg.BotThink
	if c.Think > 0 {
		think = c.Think
	}

	logs, err := shared.SetupSessionLoggers(c.LogFile, g.Debug)
	if err != nil {
		return err
	}
	defer logs.Close()

	ctx, stop := shared.SetupSignalHandler(logs.Core)
	defer stop()
	botName := "bot-" + strings.ToLower(strategyName)
	if botName == name {
		botName += "-2"
	}

	seed, err := c.seed()
	if err != nil {
		return err
	}

	lm, err := c.runners(cfg.Rules, name, botName, seed, logs)
	if err != nil {
		return err
	}
	local, opponent, seed := lm.local, lm.opponent, lm.seed

	strategy, err := bot.New(strategyName, rand.New(rand.NewSource(seed ^ time.Now().UnixNano())))
	if err != nil {
		return err
	}
	driver := bot.NewDriver(logs.TUI, quartz.NewReal(), opponent, strategy, lm.rules, think)

	local.Start(ctx)
	opponent.Start(ctx)
	defer opponent.Stop()
	if err := driver.Start(ctx); err != nil {
		return fmt.Errorf("start bot: %w", err)
	}
	defer driver.Stop()

	logs.Core.Info().
		Str("player", name).
		Str("bot", strategyName).
		Int64("seed", seed).
		Msg("Starting local match")

	commands := pairedCommander{Runner: local, opponent: opponent}
	err = runTUI(ctx, logs.TUI, local, commands, snapshotSaver(local, seed, cfg.SnapshotDir))
	leave(logs.TUI, local)
	return err
}

func (c *PlayCmd) seed() (int64, error) {
	if c.Seed != nil {
		return *c.Seed, nil
	}
	return dice.NewSeed()
}

// localMatch is both sides of a match played against a bot.
type localMatch struct {
	local, opponent *match.Runner
	seed            int64
	rules           game.Rules
}

// runners builds both sides of the match, fresh or from the resume file,
// joined by an in-process pipe. A resumed match keeps its saved seed and
// rules.
func (c *PlayCmd) runners(rules game.Rules, name, botName string, seed int64, logs shared.SessionLoggers) (localMatch, error) {
	localEnd, botEnd := room.NewPipe(logs.Core)
	localCfg := match.Config{LocalID: name, OpponentID: botName, Peer: localEnd}
	botCfg := match.Config{LocalID: botName, OpponentID: name, Peer: botEnd}

	var local, opponent *match.Runner
	if c.Resume == "" {
		id, err := matchid.New()
		if err != nil {
			return localMatch{}, err
		}
		opts := []game.MatchOption{game.WithRules(rules), game.WithMatchID(id)}
		localCfg.Roller, localCfg.Options = dice.NewSeeded(seed), opts
		botCfg.Roller, botCfg.Options = dice.NewSeeded(seed), opts

		local = match.NewRunner(logs.Core.With().Str("side", "local").Logger(), localCfg)
		opponent = match.NewRunner(logs.Core.With().Str("side", "bot").Logger(), botCfg)
	} else {
		file, err := snapshot.Load(c.Resume)
		if err != nil {
			return localMatch{}, err
		}
		st := file.Match
		mirrored, err := st.Mirror(nil)
		if err != nil {
			return localMatch{}, err
		}
		seed = st.Seed
		if st.Rules != nil {
			rules = *st.Rules
		}

		opts := []game.MatchOption{game.WithRules(rules)}
		localCfg.LocalID, localCfg.OpponentID = st.LocalID, st.OpponentID
		botCfg.LocalID, botCfg.OpponentID = st.OpponentID, st.LocalID
		localCfg.Roller = dice.NewSeeded(seed).Skip(st.Draws, rules.Faces)
		botCfg.Roller = dice.NewSeeded(seed).Skip(st.Draws, rules.Faces)
		localCfg.Options, botCfg.Options = opts, opts

		if local, err = match.NewRunnerFromState(logs.Core.With().Str("side", "local").Logger(), st, localCfg); err != nil {
			return localMatch{}, err
		}
		if opponent, err = match.NewRunnerFromState(logs.Core.With().Str("side", "bot").Logger(), mirrored, botCfg); err != nil {
			return localMatch{}, err
		}
	}

	localEnd.Attach(local)
	botEnd.Attach(opponent)
	return localMatch{local: local, opponent: opponent, seed: seed, rules: rules}, nil
}

// pairedCommander resets the bot's runner along with the player's, so a
// rematch starts both sides from the same die position.
type pairedCommander struct {
	*match.Runner
	opponent *match.Runner
}

func (p pairedCommander) Reset(ctx context.Context) error {
	if err := p.Runner.Reset(ctx); err != nil {
		return err
	}
	return p.opponent.Reset(ctx)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
