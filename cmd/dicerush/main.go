package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/lox/dicerush/internal/config"
	"github.com/muesli/termenv"
)

// version is set by ldflags during build
var version = "dev"

// Globals are flags shared by every command.
type Globals struct {
	Config  string `kong:"short='c',default='dicerush.hcl',type='path',help='HCL configuration file'"`
	Debug   bool   `kong:"help='Enable debug logging'"`
	NoColor bool   `kong:"name='no-color',help='Disable colors in the terminal client'"`
}

// Load reads the configuration file and DICERUSH_* overrides.
func (g *Globals) Load() (*config.Config, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

type CLI struct {
	Globals

	Version  kong.VersionFlag `short:"v" help:"Show version"`
	Play     PlayCmd          `cmd:"" default:"withargs" help:"Play against a bot in the terminal"`
	Serve    ServeCmd         `cmd:"" help:"Run the websocket relay that pairs players"`
	Join     JoinCmd          `cmd:"" help:"Join a relay and play against another person"`
	Snapshot SnapshotCmd      `cmd:"" help:"Inspect saved match snapshots"`
}

func main() {
	// A missing .env is normal; real environment variables still apply.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: .env: %v\n", err)
	}

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("dicerush"),
		kong.Description("Two-player higher-or-lower dice betting"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	if cli.NoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
