package main

import (
	"github.com/lox/dicerush/cmd/dicerush/shared"
	"github.com/lox/dicerush/internal/room"
)

// ServeCmd runs the relay that pairs websocket clients into matches.
type ServeCmd struct {
	Addr     string `kong:"help='Listen address (defaults to the configured relay address)'"`
	JSONLogs bool   `kong:"name='json-logs',help='Emit structured JSON logs'"`
}

func (c *ServeCmd) Run(g *Globals) error {
	cfg, err := g.Load()
	if err != nil {
		return err
	}

	logger := shared.SetupLogger(g.Debug)
	if c.JSONLogs {
		logger = shared.SetupStructuredLogger(g.Debug)
	}

	addr := firstNonEmpty(c.Addr, cfg.RelayAddr)
	logger.Info().
		Str("address", addr).
		Str("version", version).
		Msg("Starting dicerush relay")

	ctx, stop := shared.SetupSignalHandler(logger)
	defer stop()
	return room.NewRelay(logger).Serve(ctx, addr)
}
