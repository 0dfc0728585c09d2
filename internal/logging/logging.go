// Package logging wires up the daemon's structured logger.
//
// It mirrors the verbosity-count-to-level mapping the daemon used
// before this rewrite: a single boolean for total silence, plus a
// repeatable -v flag that lowers the threshold one level per
// occurrence, starting from "info".
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New builds a zerolog.Logger writing to w (stderr in production).
// quiet silences everything; otherwise verbosity 0 is info, 1 is
// debug, 2 or more is trace.
func New(w io.Writer, quiet bool, verbosity int) zerolog.Logger {
	level := zerolog.InfoLevel
	switch {
	case quiet:
		level = zerolog.Disabled
	case verbosity >= 2:
		level = zerolog.TraceLevel
	case verbosity == 1:
		level = zerolog.DebugLevel
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Default returns a logger writing to stderr at the info level, for
// call sites that run before CLI flags are parsed.
func Default() zerolog.Logger {
	return New(os.Stderr, false, 0)
}
