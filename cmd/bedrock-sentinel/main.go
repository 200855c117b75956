package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/nholik/bedrock-sentinel/internal/config"
	"github.com/nholik/bedrock-sentinel/internal/healthcheck"
	"github.com/nholik/bedrock-sentinel/internal/logging"
	"github.com/nholik/bedrock-sentinel/internal/metrics"
	"github.com/nholik/bedrock-sentinel/internal/mojang"
	"github.com/nholik/bedrock-sentinel/internal/notify"
	"github.com/nholik/bedrock-sentinel/internal/runner"
	"github.com/nholik/bedrock-sentinel/internal/server"
	"github.com/nholik/bedrock-sentinel/internal/signal"
	"github.com/nholik/bedrock-sentinel/internal/state"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "bedrock-sentinel:", err)
		os.Exit(1)
	}
}

// run does all the work; main only maps its error to the exit code.
func run(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("bedrock-sentinel", flag.ContinueOnError)
	watch := flags.Bool("watch", false, "poll continuously instead of running once")
	dryRun := flags.Bool("dry-run", false, "log notifications instead of delivering them")
	flags.Usage = func() {
		fmt.Fprintln(flags.Output(), "usage: bedrock-sentinel [flags] [STATE_FILE]")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if flags.NArg() > 1 {
		flags.Usage()
		return fmt.Errorf("expected at most one positional argument, got %d", flags.NArg())
	}
	if flags.NArg() == 1 {
		cfg.StateFile = flags.Arg(0)
	}
	if *dryRun {
		cfg.DryRun = true
	}

	logger := logging.NewWithLevel(cfg.LogLevel)
	logger.Info().
		Str("state_file", cfg.StateFile).
		Bool("watch", *watch).
		Msg("bedrock-sentinel starting")

	fetcher, err := mojang.NewClient(cfg.APIURL, cfg.FetchTimeout, 0)
	if err != nil {
		return err
	}
	store := state.NewFileStore(cfg.StateFile, cfg.OnCorrupt, logger)
	emitter := buildEmitter(cfg, logger)
	notifier, err := buildNotifier(cfg, logger)
	if err != nil {
		return err
	}

	if !*watch {
		r := runner.New(logger, fetcher, store, cfg.PollInterval,
			runner.WithEmitter(emitter),
			runner.WithNotifier(notifier),
		)
		_, err := r.RunOnce(ctx)
		return err
	}

	ctx, stop := ossignal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsCollector := metrics.New()
	tracker := healthcheck.NewTracker()
	server.Start(ctx, logger, cfg.PollInterval, tracker, metricsCollector, cfg.HealthPort, cfg.MetricsPort)

	r := runner.New(logger, fetcher, store, cfg.PollInterval,
		runner.WithEmitter(emitter),
		runner.WithNotifier(notifier),
		runner.WithMetrics(metricsCollector),
		runner.WithTracker(tracker),
	)
	return r.Run(ctx)
}

// buildEmitter always includes the log sink; the file sink joins it when
// an output file is configured (GITHUB_OUTPUT or BS_OUTPUT_FILE).
func buildEmitter(cfg config.Config, logger zerolog.Logger) signal.Emitter {
	if cfg.OutputFile == "" {
		return signal.NewLogEmitter(logger)
	}
	return signal.NewMultiEmitter(
		signal.NewLogEmitter(logger),
		signal.NewGitHubEmitter(cfg.OutputFile, logger),
	)
}

func buildNotifier(cfg config.Config, logger zerolog.Logger) (notify.Notifier, error) {
	notifiers := []notify.Notifier{}
	if cfg.SlackWebhookURL != "" {
		notifiers = append(notifiers, notify.NewSlackNotifier(logger, cfg.SlackWebhookURL))
	}

	targets, err := config.LoadWebhookFile(cfg.WebhookFile)
	if err != nil {
		return nil, err
	}
	for _, target := range targets {
		timeout := target.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		webhook, err := notify.NewWebhookNotifier(logger, target.Name, target.URL, target.Template, timeout)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, webhook)
	}

	if len(notifiers) == 0 {
		return notify.NewNoop(logger, "no notification targets configured"), nil
	}

	var notifier notify.Notifier = notify.NewMultiNotifier(notifiers...)
	if cfg.DryRun {
		notifier = notify.NewDryRunNotifier(logger, notifier)
	}
	return notifier, nil
}
