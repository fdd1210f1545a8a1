// Package diag is the injectable diagnostics sink for the push engine.
package diag

import "github.com/rs/zerolog"

// Logger is the minimal sink the engine logs through. Implementations must be
// safe for concurrent use.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}

// Nop returns a sink that discards everything. The default for tests.
func Nop() Logger {
	return nopLogger{}
}

type zerologSink struct {
	logger zerolog.Logger
}

// NewZerolog adapts a zerolog.Logger to the sink interface.
func NewZerolog(logger zerolog.Logger) Logger {
	return zerologSink{logger: logger}
}

func (s zerologSink) Debugf(format string, args ...any) {
	s.logger.Debug().Msgf(format, args...)
}

func (s zerologSink) Infof(format string, args ...any) {
	s.logger.Info().Msgf(format, args...)
}

func (s zerologSink) Warnf(format string, args ...any) {
	s.logger.Warn().Msgf(format, args...)
}
