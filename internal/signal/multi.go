package signal

// MultiEmitter fans out each signal to multiple emitters.
type MultiEmitter struct {
	emitters []Emitter
}

// NewMultiEmitter creates an emitter that dispatches to all provided emitters.
func NewMultiEmitter(emitters ...Emitter) *MultiEmitter {
	filtered := make([]Emitter, 0, len(emitters))
	for _, emitter := range emitters {
		if emitter == nil {
			continue
		}
		filtered = append(filtered, emitter)
	}
	return &MultiEmitter{emitters: filtered}
}

// Emit implements Emitter. Every emitter is attempted; the first error
// is returned after the fan-out completes.
func (m *MultiEmitter) Emit(key, value string) error {
	var firstErr error
	for _, emitter := range m.emitters {
		if err := emitter.Emit(key, value); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
