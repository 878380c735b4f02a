// Package config loads dicerush settings from an HCL file, then applies
// DICERUSH_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/lox/dicerush/internal/bot"
	"github.com/lox/dicerush/internal/game"
)

// DefaultFile is the config file looked up when none is given.
const DefaultFile = "dicerush.hcl"

// Config is the resolved configuration.
type Config struct {
	PlayerName  string
	Rules       game.Rules
	RelayAddr   string
	RelayURL    string
	BotStrategy string
	BotThink    time.Duration
	SnapshotDir string
}

// fileConfig mirrors the HCL layout. Every block and attribute is optional.
type fileConfig struct {
	Player *playerBlock `hcl:"player,block"`
	Rules  *rulesBlock  `hcl:"rules,block"`
	Relay  *relayBlock  `hcl:"relay,block"`
	Bot    *botBlock    `hcl:"bot,block"`
}

type playerBlock struct {
	Name        string `hcl:"name,optional"`
	SnapshotDir string `hcl:"snapshot_dir,optional"`
}

type rulesBlock struct {
	Faces             *int    `hcl:"faces,optional"`
	BettingSeconds    *int    `hcl:"betting_seconds,optional"`
	ResultsSeconds    *int    `hcl:"results_seconds,optional"`
	MaxRounds         *int    `hcl:"max_rounds,optional"`
	StartingScore     *int    `hcl:"starting_score,optional"`
	StreakBonus       *int    `hcl:"streak_bonus,optional"`
	RushEvery         *int    `hcl:"rush_every,optional"`
	RushMultiplier    *int    `hcl:"rush_multiplier,optional"`
	EndOnBust         *bool   `hcl:"end_on_bust,optional"`
	DefaultPrediction *string `hcl:"default_prediction,optional"`
	InitialBaseline   *int    `hcl:"initial_baseline,optional"`
}

type relayBlock struct {
	Address string `hcl:"address,optional"`
	URL     string `hcl:"url,optional"`
}

type botBlock struct {
	Strategy string `hcl:"strategy,optional"`
	Think    string `hcl:"think,optional"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		PlayerName:  "player",
		Rules:       game.DefaultRules(),
		RelayAddr:   ":8080",
		RelayURL:    "ws://localhost:8080/ws",
		BotStrategy: bot.StrategyCautious,
		BotThink:    1500 * time.Millisecond,
		SnapshotDir: ".",
	}
}

// LoadFile reads filename. A missing file yields the defaults.
func LoadFile(filename string) (*Config, error) {
	cfg := Default()
	if filename == "" {
		return cfg, nil
	}
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var fc fileConfig
	diags = gohcl.DecodeBody(file.Body, nil, &fc)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	if err := cfg.apply(fc); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads filename, applies environment overrides and validates.
func Load(filename string) (*Config, error) {
	cfg, err := LoadFile(filename)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(nil); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) apply(fc fileConfig) error {
	if p := fc.Player; p != nil {
		setString(&c.PlayerName, p.Name)
		setString(&c.SnapshotDir, p.SnapshotDir)
	}
	if r := fc.Relay; r != nil {
		setString(&c.RelayAddr, r.Address)
		setString(&c.RelayURL, r.URL)
	}
	if b := fc.Bot; b != nil {
		setString(&c.BotStrategy, b.Strategy)
		if b.Think != "" {
			d, err := time.ParseDuration(b.Think)
			if err != nil {
				return fmt.Errorf("bot think: %w", err)
			}
			c.BotThink = d
		}
	}
	if r := fc.Rules; r != nil {
		setInt(&c.Rules.Faces, r.Faces)
		setInt(&c.Rules.BettingSeconds, r.BettingSeconds)
		setInt(&c.Rules.ResultsSeconds, r.ResultsSeconds)
		setInt(&c.Rules.MaxRounds, r.MaxRounds)
		setInt(&c.Rules.StartingScore, r.StartingScore)
		setInt(&c.Rules.StreakBonus, r.StreakBonus)
		setInt(&c.Rules.RushEvery, r.RushEvery)
		setInt(&c.Rules.RushMultiplier, r.RushMultiplier)
		setInt(&c.Rules.InitialBaseline, r.InitialBaseline)
		if r.EndOnBust != nil {
			c.Rules.EndOnBust = *r.EndOnBust
		}
		if r.DefaultPrediction != nil {
			p, err := game.ParsePrediction(*r.DefaultPrediction)
			if err != nil {
				return fmt.Errorf("rules default_prediction: %w", err)
			}
			c.Rules.DefaultPrediction = p
		}
	}
	return nil
}

// Validate checks the resolved configuration.
func (c *Config) Validate() error {
	var errs []error
	if c.PlayerName == "" {
		errs = append(errs, errors.New("player name must not be empty"))
	}
	if err := c.Rules.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("rules: %w", err))
	}
	if c.BotThink >= time.Duration(c.Rules.BettingSeconds)*time.Second {
		errs = append(errs, fmt.Errorf("bot think %s must be shorter than the %ds betting window", c.BotThink, c.Rules.BettingSeconds))
	}
	if c.BotThink < 0 {
		errs = append(errs, fmt.Errorf("bot think must not be negative, got %s", c.BotThink))
	}
	valid := false
	for _, name := range bot.Strategies() {
		if c.BotStrategy == name {
			valid = true
		}
	}
	if !valid {
		errs = append(errs, fmt.Errorf("invalid bot strategy %q", c.BotStrategy))
	}
	return errors.Join(errs...)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
