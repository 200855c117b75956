// Package state defines the persisted version document and its store.
package state

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for store failures. Callers treat all of them as fatal
// for the run; the prior document on disk is left untouched.
var (
	// ErrStoreRead reports an existing document that could not be read.
	ErrStoreRead = errors.New("state: read failed")
	// ErrStoreWrite reports an I/O failure while saving the document.
	ErrStoreWrite = errors.New("state: write failed")
	// ErrCorrupt reports an existing document that does not parse into,
	// or violates, the expected shape.
	ErrCorrupt = errors.New("state: document corrupt")
)

// Channel identifies a release track.
type Channel string

const (
	ChannelStable  Channel = "stable"
	ChannelPreview Channel = "preview"
)

// Valid reports whether the channel is one of the known tracks.
func (c Channel) Valid() bool {
	return c == ChannelStable || c == ChannelPreview
}

// Descriptor is one release of the dedicated server: its version
// identifier, the per-platform download URLs, and the moment this
// version was first observed as latest. Download URLs may be empty when
// the upstream listing lacked a platform; Version may be the "unknown"
// sentinel when no URL carried an extractable identifier.
type Descriptor struct {
	Version    string    `json:"version"`
	WindowsURL string    `json:"windows"`
	LinuxURL   string    `json:"linux"`
	ReleasedAt time.Time `json:"releasedAt"`
}

// Latest holds the current descriptor per channel.
type Latest struct {
	Stable  Descriptor `json:"stable"`
	Preview Descriptor `json:"preview"`
}

// HistoryEntry is a superseded release tagged with its channel.
// ReleasedAt carries the moment the release became latest, not the
// moment it was superseded. No two entries share (type, version).
type HistoryEntry struct {
	Channel Channel `json:"type"`
	Descriptor
}

// Document is the whole persisted file: the per-channel latest plus the
// release history ordered by ReleasedAt descending.
type Document struct {
	Latest  Latest         `json:"latest"`
	History []HistoryEntry `json:"history"`
}

// Validate checks the structural invariants of a parsed document.
// A violation means the file was hand-edited or produced by something
// else entirely; coercing it would corrupt history downstream.
func (d *Document) Validate() error {
	if d.Latest.Stable.Version == "" {
		return fmt.Errorf("%w: latest.stable.version missing", ErrCorrupt)
	}
	if d.Latest.Preview.Version == "" {
		return fmt.Errorf("%w: latest.preview.version missing", ErrCorrupt)
	}
	for i, entry := range d.History {
		if !entry.Channel.Valid() {
			return fmt.Errorf("%w: history[%d] has unknown type %q", ErrCorrupt, i, entry.Channel)
		}
		if entry.Version == "" {
			return fmt.Errorf("%w: history[%d] version missing", ErrCorrupt, i)
		}
	}
	return nil
}

// Store persists the version document. Load returns (nil, nil) when no
// document exists yet; that is the expected first-run state.
type Store interface {
	Load(ctx context.Context) (*Document, error)
	Save(ctx context.Context, doc *Document) error
}
