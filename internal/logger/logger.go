// Package logger provides the structured logging adapter used across the
// motion pipeline. It wraps zerolog behind a small component/message/fields
// interface so call sites never depend on the zerolog API directly.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the structured logging contract used by every pipeline package.
type Logger interface {
	Info(component, message string, fields map[string]interface{})
	Warning(component, message string, fields map[string]interface{})
	Error(component string, err error, fields map[string]interface{})
	Debug(component, message string, fields map[string]interface{})
}

// Adapter backs Logger with zerolog.
type Adapter struct {
	logger zerolog.Logger
}

// New builds an Adapter writing to w at the given level.
func New(w io.Writer, level zerolog.Level) *Adapter {
	return &Adapter{
		logger: zerolog.New(w).Level(level).With().Timestamp().Logger(),
	}
}

// NewConsole builds an Adapter writing human-readable, colorized output to
// stderr, meant for a demo CLI's terminal rather than a log aggregator — the
// JSON New produces is what a long-running pipeline process should emit.
func NewConsole(level zerolog.Level) *Adapter {
	return New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.Kitchen,
	}, level)
}

// event is the shared body the four level methods below delegate to: each
// of them stamps
// the same component field, folds in the same fields map, and emits the same
// message, differing only in which zerolog level and which *zerolog.Event
// they start from.
func (a *Adapter) event(e *zerolog.Event, component, message string, fields map[string]interface{}) {
	e = e.Str("component", component)
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	e.Msg(message)
}

func (a *Adapter) Info(component, message string, fields map[string]interface{}) {
	a.event(a.logger.Info(), component, message, fields)
}

func (a *Adapter) Warning(component, message string, fields map[string]interface{}) {
	a.event(a.logger.Warn(), component, message, fields)
}

func (a *Adapter) Error(component string, err error, fields map[string]interface{}) {
	a.event(a.logger.Error().Err(err), component, "operation failed", fields)
}

func (a *Adapter) Debug(component, message string, fields map[string]interface{}) {
	a.event(a.logger.Debug(), component, message, fields)
}

// Noop discards everything; useful in tests that don't care about logs.
type Noop struct{}

func (Noop) Info(string, string, map[string]interface{})    {}
func (Noop) Warning(string, string, map[string]interface{}) {}
func (Noop) Error(string, error, map[string]interface{})    {}
func (Noop) Debug(string, string, map[string]interface{})   {}
