// Package logging builds the structured logger handed to every component.
package logging

import (
	"io"

	"github.com/charmbracelet/log"
)

// Prefix tags every line written by the tool.
const Prefix = "model-declarator"

// Level picks the logger level from the CLI verbosity flags. quiet wins over
// verbose.
func Level(verbose, quiet bool) log.Level {
	switch {
	case quiet:
		return log.ErrorLevel
	case verbose:
		return log.DebugLevel
	default:
		return log.InfoLevel
	}
}

// New returns a logger writing to w at the given level.
func New(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Prefix: Prefix,
		Level:  level,
	})
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
