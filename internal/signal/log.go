package signal

import "github.com/rs/zerolog"

// LogEmitter writes signals to the structured log. Used as the default
// sink outside GitHub Actions and alongside the file emitter in watch
// mode so outcomes stay visible.
type LogEmitter struct {
	logger zerolog.Logger
}

// NewLogEmitter returns an emitter writing to the given logger.
func NewLogEmitter(logger zerolog.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

// Emit implements Emitter.
func (e *LogEmitter) Emit(key, value string) error {
	e.logger.Info().Str("key", key).Str("value", value).Msg("signal")
	return nil
}
