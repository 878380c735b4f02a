package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/lox/dicerush/internal/match"
	"github.com/lox/dicerush/internal/snapshot"
	"github.com/lox/dicerush/internal/tui"
)

const leaveTimeout = 2 * time.Second

// runTUI shows the runner's match until the player quits or ctx ends.
func runTUI(ctx context.Context, logger *log.Logger, runner *match.Runner, commands tui.Commander, save tui.SaveFunc) error {
	feed := tui.NewFeed(64)
	unsubscribe, err := runner.Subscribe(ctx, feed)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer func() {
		unsubscribe()
		feed.Close()
	}()

	model := tui.NewTUIModel(ctx, logger, tui.Options{
		Commands:  commands,
		Snapshots: feed.C(),
		Save:      save,
	})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

// leave tells the opponent we are gone and stops the runner.
func leave(logger *log.Logger, runner *match.Runner) {
	ctx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
	defer cancel()
	if err := runner.Leave(ctx); err != nil && !errors.Is(err, match.ErrStopped) {
		logger.Warn("Failed to leave match", "error", err)
	}
}

// snapshotSaver writes the runner's match into dir as <match id>.toml.
func snapshotSaver(runner *match.Runner, seed int64, dir string) tui.SaveFunc {
	return func(ctx context.Context) (string, error) {
		st, err := runner.Export(ctx)
		if err != nil {
			return "", err
		}
		st.Seed = seed
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create snapshot dir: %w", err)
		}
		name := st.MatchID
		if name == "" {
			name = "match"
		}
		path := filepath.Join(dir, name+".toml")
		if err := snapshot.Save(path, st, time.Now()); err != nil {
			return "", err
		}
		return path, nil
	}
}
