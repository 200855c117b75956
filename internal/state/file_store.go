package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// CorruptPolicy decides what Load does with a file that exists but does
// not parse into a valid document.
type CorruptPolicy string

const (
	// PolicyFail aborts the run, leaving the file on disk for inspection.
	PolicyFail CorruptPolicy = "fail"
	// PolicyReset logs a warning and treats the file as absent, discarding
	// whatever history it held.
	PolicyReset CorruptPolicy = "reset"
)

// ParseCorruptPolicy validates a policy name from configuration.
func ParseCorruptPolicy(value string) (CorruptPolicy, error) {
	switch CorruptPolicy(value) {
	case PolicyFail, PolicyReset:
		return CorruptPolicy(value), nil
	case "":
		return PolicyFail, nil
	default:
		return "", fmt.Errorf("unknown corrupt policy %q (want %q or %q)", value, PolicyFail, PolicyReset)
	}
}

// FileStore persists the version document as JSON on disk.
type FileStore struct {
	path   string
	policy CorruptPolicy
	logger zerolog.Logger
}

// NewFileStore returns a JSON-backed document store.
func NewFileStore(path string, policy CorruptPolicy, logger zerolog.Logger) *FileStore {
	if policy == "" {
		policy = PolicyFail
	}
	return &FileStore{
		path:   path,
		policy: policy,
		logger: logger,
	}
}

// Load reads the document from disk. A missing file returns (nil, nil).
// A file that cannot be read fails with ErrStoreRead. A file that reads
// but does not parse into a valid document fails with ErrCorrupt under
// PolicyFail, or is treated as absent under PolicyReset.
func (s *FileStore) Load(ctx context.Context) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Debug().Str("path", s.path).Msg("no prior document, bootstrapping")
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreRead, err)
	}

	doc, err := parseDocument(data)
	if err != nil {
		if s.policy == PolicyReset {
			s.logger.Warn().Str("path", s.path).Err(err).Msg("document corrupt, resetting per policy")
			return nil, nil
		}
		return nil, err
	}
	return doc, nil
}

func parseDocument(data []byte) (*Document, error) {
	// Presence of the latest object is checked before shape validation so
	// that an empty or truncated file is reported as corrupt, not zeroed.
	var probe struct {
		Latest  *Latest        `json:"latest"`
		History []HistoryEntry `json:"history"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if probe.Latest == nil {
		return nil, fmt.Errorf("%w: latest object missing", ErrCorrupt)
	}

	doc := &Document{Latest: *probe.Latest, History: probe.History}
	if doc.History == nil {
		doc.History = []HistoryEntry{}
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Save writes the document to disk atomically.
func (s *FileStore) Save(ctx context.Context, doc *Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if doc.History == nil {
		doc.History = []HistoryEntry{}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}

	tempFile, err := os.CreateTemp(dir, ".versions-*.json")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}

	cleanup := func() {
		_ = os.Remove(tempFile.Name())
	}

	encoder := json.NewEncoder(tempFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		_ = tempFile.Close()
		cleanup()
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	if err := tempFile.Sync(); err != nil {
		_ = tempFile.Close()
		cleanup()
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	if err := tempFile.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}

	if err := os.Rename(tempFile.Name(), s.path); err != nil {
		cleanup()
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}

	if dirHandle, err := os.Open(dir); err == nil {
		_ = dirHandle.Sync()
		_ = dirHandle.Close()
	}

	return nil
}
