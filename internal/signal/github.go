package signal

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// GitHubEmitter appends workflow output lines to the file GitHub Actions
// names in GITHUB_OUTPUT. The path is injected rather than read from the
// environment here so runs outside Actions stay deterministic.
type GitHubEmitter struct {
	path   string
	logger zerolog.Logger
}

// NewGitHubEmitter returns an emitter writing to the given output file,
// or a noop emitter when the path is empty.
func NewGitHubEmitter(path string, logger zerolog.Logger) Emitter {
	if path == "" {
		return NewNoop(logger, "no output file configured; signals disabled")
	}
	return &GitHubEmitter{path: path, logger: logger}
}

// Emit implements Emitter. Values are written as single key=value lines;
// embedded newlines are flattened since none of the emitted values are
// legitimately multi-line.
func (e *GitHubEmitter) Emit(key, value string) error {
	if strings.ContainsAny(key, "=\n") {
		return fmt.Errorf("invalid output key %q", key)
	}
	value = strings.ReplaceAll(value, "\n", " ")

	file, err := os.OpenFile(e.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	if _, err := fmt.Fprintf(file, "%s=%s\n", key, value); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
