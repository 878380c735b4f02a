package shared

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/rs/zerolog"
)

// SetupLogger configures zerolog with pretty console output
func SetupLogger(debug bool) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level(debug)).
		With().
		Timestamp().
		Logger()
}

// SetupStructuredLogger configures zerolog for structured (JSON) output
func SetupStructuredLogger(debug bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	return zerolog.New(os.Stderr).
		Level(level(debug)).
		With().
		Timestamp().
		Logger()
}

// SessionLoggers are the loggers of an interactive session. The terminal
// belongs to the TUI, so both write to a file or nowhere.
type SessionLoggers struct {
	Core  zerolog.Logger
	TUI   *log.Logger
	close func() error
}

// Close flushes and closes the log file, if any.
func (s SessionLoggers) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// SetupSessionLoggers writes both loggers to path, or discards them when
// path is empty.
func SetupSessionLoggers(path string, debug bool) (SessionLoggers, error) {
	var out io.Writer = io.Discard
	var closer func() error
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return SessionLoggers{}, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closer = f.Close
	}

	charmLevel := log.InfoLevel
	if debug {
		charmLevel = log.DebugLevel
	}
	return SessionLoggers{
		Core: zerolog.New(zerolog.ConsoleWriter{Out: out, NoColor: true}).
			Level(level(debug)).
			With().
			Timestamp().
			Logger(),
		TUI: log.NewWithOptions(out, log.Options{
			Level:           charmLevel,
			ReportTimestamp: true,
		}),
		close: closer,
	}, nil
}

func level(debug bool) zerolog.Level {
	if debug {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}
