package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nholik/bedrock-sentinel/internal/mojang"
	"github.com/nholik/bedrock-sentinel/internal/reconcile"
	"github.com/nholik/bedrock-sentinel/internal/signal"
	"github.com/nholik/bedrock-sentinel/internal/state"
	"github.com/rs/zerolog"
)

type fakeFetcher struct {
	latest state.Latest
	err    error
}

func (f *fakeFetcher) Fetch(_ context.Context) (state.Latest, error) {
	if f.err != nil {
		return state.Latest{}, f.err
	}
	return f.latest, nil
}

type recordingEmitter struct {
	pairs map[string]string
	err   error
}

func (r *recordingEmitter) Emit(key, value string) error {
	if r.pairs == nil {
		r.pairs = map[string]string{}
	}
	r.pairs[key] = value
	return r.err
}

type recordingNotifier struct {
	calls   int
	changes []reconcile.ChannelChange
	err     error
}

func (r *recordingNotifier) Notify(_ context.Context, changes []reconcile.ChannelChange) error {
	r.calls++
	r.changes = changes
	return r.err
}

func latestVersions(stable, preview string) state.Latest {
	return state.Latest{
		Stable: state.Descriptor{
			Version:    stable,
			WindowsURL: "https://example.com/bin-win/bedrock-server-" + stable + ".zip",
			LinuxURL:   "https://example.com/bin-linux/bedrock-server-" + stable + ".zip",
		},
		Preview: state.Descriptor{
			Version:    preview,
			WindowsURL: "https://example.com/bin-win-preview/bedrock-server-" + preview + ".zip",
			LinuxURL:   "https://example.com/bin-linux-preview/bedrock-server-" + preview + ".zip",
		},
	}
}

func newTestRunner(t *testing.T, fetcher mojang.Fetcher, opts ...Option) (*Runner, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "versions.json")
	store := state.NewFileStore(path, state.PolicyFail, zerolog.Nop())
	r := New(zerolog.Nop(), fetcher, store, time.Minute, opts...)
	return r, path
}

func TestRunOnce_BootstrapWritesDocumentAndSignals(t *testing.T) {
	fetcher := &fakeFetcher{latest: latestVersions("1.0.0.1", "1.0.0.2")}
	emitter := &recordingEmitter{}
	r, path := newTestRunner(t, fetcher, WithEmitter(emitter))

	outcome, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if !outcome.Changed || !outcome.Bootstrap {
		t.Fatalf("expected changed bootstrap outcome, got %+v", outcome)
	}

	store := state.NewFileStore(path, state.PolicyFail, zerolog.Nop())
	doc, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load written document: %v", err)
	}
	if doc == nil {
		t.Fatal("expected document on disk")
	}
	if doc.Latest.Stable.Version != "1.0.0.1" {
		t.Fatalf("unexpected stable version: %s", doc.Latest.Stable.Version)
	}
	if len(doc.History) != 0 {
		t.Fatalf("bootstrap history must be empty, got %d", len(doc.History))
	}

	want := map[string]string{
		signal.KeyUpdated:        "true",
		signal.KeyStableVersion:  "1.0.0.1",
		signal.KeyPreviewVersion: "1.0.0.2",
		signal.KeyHasChanges:     "true",
	}
	for key, value := range want {
		if emitter.pairs[key] != value {
			t.Fatalf("signal %s = %q, want %q", key, emitter.pairs[key], value)
		}
	}
}

func TestRunOnce_SecondRunIsStable(t *testing.T) {
	fetcher := &fakeFetcher{latest: latestVersions("1.0.0.1", "1.0.0.2")}
	emitter := &recordingEmitter{}
	r, path := newTestRunner(t, fetcher, WithEmitter(emitter))

	if _, err := r.RunOnce(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read document: %v", err)
	}

	outcome, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if outcome.Changed {
		t.Fatal("second run with same versions must not report changed")
	}
	if emitter.pairs[signal.KeyHasChanges] != "false" {
		t.Fatalf("has-changes = %q, want false", emitter.pairs[signal.KeyHasChanges])
	}

	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("no-change run must leave identical bytes\nfirst:  %s\nsecond: %s", first, second)
	}
}

func TestRunOnce_ChangeAppendsHistoryAndNotifies(t *testing.T) {
	fetcher := &fakeFetcher{latest: latestVersions("1.0.0.1", "1.0.0.2")}
	notifier := &recordingNotifier{}
	r, path := newTestRunner(t, fetcher, WithNotifier(notifier))

	if _, err := r.RunOnce(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	// Bootstrap counts as a change and notifies.
	if notifier.calls != 1 {
		t.Fatalf("expected 1 notification after bootstrap, got %d", notifier.calls)
	}

	fetcher.latest = latestVersions("1.0.0.5", "1.0.0.2")
	outcome, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !outcome.Changed {
		t.Fatal("expected changed outcome")
	}
	if notifier.calls != 2 {
		t.Fatalf("expected 2 notifications, got %d", notifier.calls)
	}
	if len(notifier.changes) != 1 || notifier.changes[0].Channel != state.ChannelStable {
		t.Fatalf("unexpected notified changes: %+v", notifier.changes)
	}

	store := state.NewFileStore(path, state.PolicyFail, zerolog.Nop())
	doc, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load document: %v", err)
	}
	if len(doc.History) != 1 || doc.History[0].Version != "1.0.0.1" {
		t.Fatalf("expected superseded version in history, got %+v", doc.History)
	}
}

func TestRunOnce_FetchFailureLeavesStoreUntouched(t *testing.T) {
	fetchErr := errors.New("boom")
	fetcher := &fakeFetcher{err: fetchErr}
	r, path := newTestRunner(t, fetcher)

	_, err := r.RunOnce(context.Background())
	if !errors.Is(err, fetchErr) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	var runtimeErr *RuntimeError
	if !errors.As(err, &runtimeErr) || runtimeErr.Op != "fetch latest" {
		t.Fatalf("expected fetch runtime error, got %v", err)
	}

	if _, statErr := os.Stat(path); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatal("failed run must not create the document")
	}
}

func TestRunOnce_CorruptStoreFailsRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "versions.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o600); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	fetcher := &fakeFetcher{latest: latestVersions("1.0.0.1", "1.0.0.2")}
	store := state.NewFileStore(path, state.PolicyFail, zerolog.Nop())
	r := New(zerolog.Nop(), fetcher, store, time.Minute)

	_, err := r.RunOnce(context.Background())
	if !errors.Is(err, state.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}

	data, readErr := os.ReadFile(path)
	if readErr != nil {
		t.Fatalf("read file: %v", readErr)
	}
	if string(data) != "{broken" {
		t.Fatal("failed run must leave the corrupt file untouched")
	}
}

func TestRunOnce_EmitterFailureDoesNotFailRun(t *testing.T) {
	fetcher := &fakeFetcher{latest: latestVersions("1.0.0.1", "1.0.0.2")}
	emitter := &recordingEmitter{err: errors.New("sink down")}
	r, _ := newTestRunner(t, fetcher, WithEmitter(emitter))

	if _, err := r.RunOnce(context.Background()); err != nil {
		t.Fatalf("emitter failure must not fail the run: %v", err)
	}
}

func TestRunOnce_NotifierFailureDoesNotFailRun(t *testing.T) {
	fetcher := &fakeFetcher{latest: latestVersions("1.0.0.1", "1.0.0.2")}
	notifier := &recordingNotifier{err: errors.New("webhook down")}
	r, _ := newTestRunner(t, fetcher, WithNotifier(notifier))

	if _, err := r.RunOnce(context.Background()); err != nil {
		t.Fatalf("notifier failure must not fail the run: %v", err)
	}
}

type fakeTicker struct {
	ch      chan time.Time
	stopped bool
	mu      sync.Mutex
}

func (t *fakeTicker) C() <-chan time.Time {
	return t.ch
}

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

func (t *fakeTicker) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

func TestRun_TicksAndStopsOnCancel(t *testing.T) {
	ticker := &fakeTicker{ch: make(chan time.Time, 2)}
	fetcher := &fakeFetcher{latest: latestVersions("1.0.0.1", "1.0.0.2")}
	notifier := &recordingNotifier{}

	path := filepath.Join(t.TempDir(), "versions.json")
	store := state.NewFileStore(path, state.PolicyFail, zerolog.Nop())
	r := New(zerolog.Nop(), fetcher, store, time.Minute,
		WithNotifier(notifier),
		WithTickerFactory(func(time.Duration) Ticker {
			return ticker
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		_ = r.Run(ctx)
		close(done)
	}()

	ticker.ch <- time.Now()
	ticker.ch <- time.Now()

	deadline := time.After(2 * time.Second)
	for {
		if _, err := os.Stat(path); err == nil {
			break
		}
		select {
		case <-deadline:
			t.Fatal("document never written by watch loop")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runner did not stop after cancel")
	}

	if !ticker.Stopped() {
		t.Fatal("expected ticker to be stopped")
	}
}

func TestRun_RejectsNonPositiveInterval(t *testing.T) {
	fetcher := &fakeFetcher{latest: latestVersions("1.0.0.1", "1.0.0.2")}
	path := filepath.Join(t.TempDir(), "versions.json")
	store := state.NewFileStore(path, state.PolicyFail, zerolog.Nop())
	r := New(zerolog.Nop(), fetcher, store, 0)

	if err := r.Run(context.Background()); err == nil {
		t.Fatal("expected error for zero poll interval")
	}
}
