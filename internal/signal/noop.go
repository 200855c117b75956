package signal

import "github.com/rs/zerolog"

// NoopEmitter drops signals.
type NoopEmitter struct {
	logger zerolog.Logger
}

// NewNoop returns an emitter that logs once and does nothing thereafter.
func NewNoop(logger zerolog.Logger, reason string) *NoopEmitter {
	if reason != "" {
		logger.Info().Msg(reason)
	}
	return &NoopEmitter{logger: logger}
}

// Emit implements Emitter.
func (e *NoopEmitter) Emit(_, _ string) error {
	return nil
}
