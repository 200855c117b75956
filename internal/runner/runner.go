// Package runner orchestrates fetch, reconcile, persist, and report.
package runner

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/nholik/bedrock-sentinel/internal/healthcheck"
	"github.com/nholik/bedrock-sentinel/internal/metrics"
	"github.com/nholik/bedrock-sentinel/internal/mojang"
	"github.com/nholik/bedrock-sentinel/internal/notify"
	"github.com/nholik/bedrock-sentinel/internal/reconcile"
	"github.com/nholik/bedrock-sentinel/internal/signal"
	"github.com/nholik/bedrock-sentinel/internal/state"
	"github.com/rs/zerolog"
)

// Ticker is the minimal interface needed for driving the runner loop.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	ticker *time.Ticker
}

func (t timeTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t timeTicker) Stop() {
	t.ticker.Stop()
}

// Runner executes reconciliation cycles: once for a single invocation,
// or repeatedly on a ticker in watch mode.
type Runner struct {
	logger        zerolog.Logger
	pollInterval  time.Duration
	tickerFactory func(time.Duration) Ticker
	clock         func() time.Time
	fetcher       mojang.Fetcher
	store         state.Store
	emitter       signal.Emitter
	notifier      notify.Notifier
	metrics       *metrics.Metrics
	tracker       *healthcheck.Tracker
}

// Option customizes runner behavior.
type Option func(*Runner)

// WithTickerFactory overrides how tickers are created.
func WithTickerFactory(factory func(time.Duration) Ticker) Option {
	return func(r *Runner) {
		r.tickerFactory = factory
	}
}

// WithClock overrides the time source used to stamp new releases.
func WithClock(clock func() time.Time) Option {
	return func(r *Runner) {
		r.clock = clock
	}
}

// WithEmitter sets the signal emitter for reconciliation outcomes.
func WithEmitter(emitter signal.Emitter) Option {
	return func(r *Runner) {
		r.emitter = emitter
	}
}

// WithNotifier sets the notifier invoked on release changes.
func WithNotifier(notifier notify.Notifier) Option {
	return func(r *Runner) {
		r.notifier = notifier
	}
}

// WithMetrics enables Prometheus metric collection.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithTracker enables cycle tracking for health endpoints.
func WithTracker(tracker *healthcheck.Tracker) Option {
	return func(r *Runner) {
		r.tracker = tracker
	}
}

// New constructs a Runner around the fetcher and store.
func New(logger zerolog.Logger, fetcher mojang.Fetcher, store state.Store, pollInterval time.Duration, opts ...Option) *Runner {
	r := &Runner{
		logger:       logger,
		pollInterval: pollInterval,
		fetcher:      fetcher,
		store:        store,
		clock:        func() time.Time { return time.Now().UTC() },
		tickerFactory: func(d time.Duration) Ticker {
			return timeTicker{ticker: time.NewTicker(d)}
		},
	}

	for _, opt := range opts {
		opt(r)
	}
	if r.emitter == nil {
		r.emitter = signal.NewNoop(logger, "")
	}
	if r.notifier == nil {
		r.notifier = notify.NewNoop(logger, "")
	}

	return r
}

// Run starts the watch loop and blocks until the context is canceled.
// Cycle failures are logged and do not stop the loop.
func (r *Runner) Run(ctx context.Context) error {
	if r.pollInterval <= 0 {
		return errors.New("poll interval must be greater than zero")
	}

	// Run immediately on startup
	if _, err := r.RunOnce(ctx); err != nil {
		r.logger.Error().Err(err).Msg("initial run cycle failed")
	}

	ticker := r.tickerFactory(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("runner stopped")
			return nil
		case <-ticker.C():
			if _, err := r.RunOnce(ctx); err != nil {
				r.logger.Error().Err(err).Msg("run cycle failed")
			}
		}
	}
}

// RunOnce executes a single reconciliation cycle. The returned outcome
// is valid only when err is nil. Failures before the save leave the
// stored document untouched; signal and notification failures after the
// save are logged and do not surface as errors.
func (r *Runner) RunOnce(ctx context.Context) (reconcile.Outcome, error) {
	start := r.clock()

	fetched, err := r.fetcher.Fetch(ctx)
	if err != nil {
		r.metrics.IncFetchErrors()
		return reconcile.Outcome{}, wrapRuntime("fetch latest", err)
	}
	r.logger.Debug().
		Str("stable", fetched.Stable.Version).
		Str("preview", fetched.Preview.Version).
		Msg("fetched latest versions")

	prior, err := r.store.Load(ctx)
	if err != nil {
		r.metrics.IncStoreErrors()
		return reconcile.Outcome{}, wrapRuntime("load document", err)
	}

	next, outcome := reconcile.Reconcile(fetched, prior, r.clock())

	if err := r.store.Save(ctx, &next); err != nil {
		r.metrics.IncStoreErrors()
		return reconcile.Outcome{}, wrapRuntime("save document", err)
	}

	r.report(ctx, next, outcome)

	duration := r.clock().Sub(start)
	r.metrics.ObserveCycleDuration(duration)
	r.metrics.SetLastSuccessfulCycleTimestamp(r.clock())
	for _, change := range outcome.Changes {
		r.metrics.IncChangesTotal(string(change.Channel))
	}
	r.tracker.RecordCycle(duration, outcome.Changed)

	event := r.logger.Info().
		Bool("changed", outcome.Changed).
		Str("stable", next.Latest.Stable.Version).
		Str("preview", next.Latest.Preview.Version)
	if outcome.Bootstrap {
		event = event.Bool("bootstrap", true)
	}
	event.Msg("reconciliation complete")

	return outcome, nil
}

// report emits the outcome signals and dispatches notifications.
// Neither may mask the already persisted reconciliation.
func (r *Runner) report(ctx context.Context, next state.Document, outcome reconcile.Outcome) {
	changed := strconv.FormatBool(outcome.Changed)
	pairs := [][2]string{
		{signal.KeyUpdated, changed},
		{signal.KeyStableVersion, next.Latest.Stable.Version},
		{signal.KeyPreviewVersion, next.Latest.Preview.Version},
		{signal.KeyHasChanges, changed},
	}
	for _, pair := range pairs {
		if err := r.emitter.Emit(pair[0], pair[1]); err != nil {
			r.logger.Error().Err(err).Str("key", pair[0]).Msg("signal emit failed")
		}
	}

	if len(outcome.Changes) == 0 {
		return
	}
	if err := r.notifier.Notify(ctx, outcome.Changes); err != nil {
		r.logger.Error().Err(err).Msg("notification failed")
	}
}
