// Package signal surfaces reconciliation outcomes to the orchestrator
// as key/value pairs.
package signal

// Keys emitted after every run. Updated and HasChanges always carry the
// same value; both are kept for downstream compatibility.
const (
	KeyUpdated        = "updated"
	KeyStableVersion  = "stable-version"
	KeyPreviewVersion = "preview-version"
	KeyHasChanges     = "has-changes"
)

// Emitter delivers one key/value pair to an external sink. Delivery is
// best-effort: a failed emit must not mask a successful reconciliation.
type Emitter interface {
	Emit(key, value string) error
}
