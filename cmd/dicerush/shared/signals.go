package shared

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
)

// SetupSignalHandler returns a context cancelled on SIGINT or SIGTERM.
// Calling stop cancels it as well and stops listening for signals.
func SetupSignalHandler(logger zerolog.Logger) (ctx context.Context, stop context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		watchSignals(ctx, cancel, logger, sigChan)
	}()

	return ctx, cancel
}

// watchSignals cancels on the first signal, or returns once ctx is done.
func watchSignals(ctx context.Context, cancel context.CancelFunc, logger zerolog.Logger, sigs <-chan os.Signal) {
	select {
	case sig := <-sigs:
		logger.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")
		cancel()
	case <-ctx.Done():
	}
}
