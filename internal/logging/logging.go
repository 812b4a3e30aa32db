// Package logging configures structured logging for the CLI using zerolog.
// Diagnostics always go to stderr so they interleave cleanly with the
// progress lines the console writes to stdout.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config selects the log surface for a run.
type Config struct {
	// Verbose lowers the level from warn to debug.
	Verbose bool

	// JSON emits raw JSON lines instead of the human console format.
	JSON bool

	// Output defaults to os.Stderr.
	Output io.Writer
}

// Setup configures and returns the process logger, also installing it as
// the zerolog global.
func Setup(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	level := zerolog.WarnLevel
	if cfg.Verbose {
		level = zerolog.DebugLevel
	}

	if !cfg.JSON {
		out = zerolog.ConsoleWriter{Out: out}
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

// For returns a child of the global logger tagged with a component name.
func For(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}
