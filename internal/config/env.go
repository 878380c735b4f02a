package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/lox/dicerush/internal/game"
)

// envOverrides holds the DICERUSH_* variables. Unset variables leave the
// file or default value in place.
type envOverrides struct {
	PlayerName        string        `env:"DICERUSH_NAME"`
	SnapshotDir       string        `env:"DICERUSH_SNAPSHOT_DIR"`
	RelayAddr         string        `env:"DICERUSH_RELAY_ADDR"`
	RelayURL          string        `env:"DICERUSH_RELAY_URL"`
	BotStrategy       string        `env:"DICERUSH_BOT_STRATEGY"`
	BotThink          time.Duration `env:"DICERUSH_BOT_THINK"`
	MaxRounds         *int          `env:"DICERUSH_MAX_ROUNDS"`
	StartingScore     *int          `env:"DICERUSH_STARTING_SCORE"`
	BettingSeconds    *int          `env:"DICERUSH_BETTING_SECONDS"`
	ResultsSeconds    *int          `env:"DICERUSH_RESULTS_SECONDS"`
	EndOnBust         *bool         `env:"DICERUSH_END_ON_BUST"`
	DefaultPrediction string        `env:"DICERUSH_DEFAULT_PREDICTION"`
}

// ApplyEnv overrides c from the environment. A nil environ reads the
// process environment.
func (c *Config) ApplyEnv(environ map[string]string) error {
	var raw envOverrides
	var err error
	if environ == nil {
		err = env.Parse(&raw)
	} else {
		err = env.ParseWithOptions(&raw, env.Options{Environment: environ})
	}
	if err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	setString(&c.PlayerName, raw.PlayerName)
	setString(&c.SnapshotDir, raw.SnapshotDir)
	setString(&c.RelayAddr, raw.RelayAddr)
	setString(&c.RelayURL, raw.RelayURL)
	setString(&c.BotStrategy, raw.BotStrategy)
	if raw.BotThink != 0 {
		c.BotThink = raw.BotThink
	}
	setInt(&c.Rules.MaxRounds, raw.MaxRounds)
	setInt(&c.Rules.StartingScore, raw.StartingScore)
	setInt(&c.Rules.BettingSeconds, raw.BettingSeconds)
	setInt(&c.Rules.ResultsSeconds, raw.ResultsSeconds)
	if raw.EndOnBust != nil {
		c.Rules.EndOnBust = *raw.EndOnBust
	}
	if raw.DefaultPrediction != "" {
		p, err := game.ParsePrediction(raw.DefaultPrediction)
		if err != nil {
			return fmt.Errorf("DICERUSH_DEFAULT_PREDICTION: %w", err)
		}
		c.Rules.DefaultPrediction = p
	}
	return nil
}
