package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nholik/bedrock-sentinel/internal/reconcile"
	"github.com/nholik/bedrock-sentinel/internal/state"
	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

// SlackNotifier posts release changes to a Slack incoming webhook.
type SlackNotifier struct {
	logger     zerolog.Logger
	webhookURL string
	timing     timingConfig
	poster     *httpPoster
}

// SlackOption customizes SlackNotifier behavior.
type SlackOption func(*SlackNotifier)

// WithSlackTiming overrides timing parameters (primarily for testing).
func WithSlackTiming(rateInterval time.Duration, rateBurst int, backoffInitial, backoffMax, backoffMaxElapsed time.Duration) SlackOption {
	return func(s *SlackNotifier) {
		s.timing.rateInterval = rateInterval
		s.timing.rateBurst = rateBurst
		s.timing.backoffInitial = backoffInitial
		s.timing.backoffMax = backoffMax
		s.timing.backoffMaxElapsed = backoffMaxElapsed
	}
}

// NewSlackNotifier creates a Slack notifier or a noop notifier when the webhook is empty.
func NewSlackNotifier(logger zerolog.Logger, webhookURL string, opts ...SlackOption) Notifier {
	if webhookURL == "" {
		return NewNoop(logger, "slack webhook not configured; notifications disabled")
	}

	notifier := &SlackNotifier{
		logger:     logger,
		webhookURL: webhookURL,
		timing:     defaultTiming,
	}

	for _, opt := range opts {
		opt(notifier)
	}

	notifier.poster = newHTTPPoster(logger, "slack", webhookURL, "application/json", notifier.timing)

	return notifier
}

// Notify implements Notifier.
func (n *SlackNotifier) Notify(ctx context.Context, changes []reconcile.ChannelChange) error {
	if len(changes) == 0 {
		return nil
	}
	if err := n.poster.waitForRateLimit(ctx); err != nil {
		return err
	}

	message := buildSlackMessage(changes)
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}
	if err := n.poster.postWithRetry(ctx, payload); err != nil {
		return err
	}

	n.logger.Debug().
		Int("changes", len(changes)).
		Msg("slack notification sent")

	return nil
}

func buildSlackMessage(changes []reconcile.ChannelChange) slack.WebhookMessage {
	summary := fmt.Sprintf("Bedrock server: %d release change(s)", len(changes))
	header := slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", summary, false, false))

	blocks := []slack.Block{header}
	for _, change := range changes {
		blocks = append(blocks, buildChangeBlock(change))
	}

	blockSet := slack.Blocks{BlockSet: blocks}
	return slack.WebhookMessage{
		Text:   summary,
		Blocks: &blockSet,
	}
}

func buildChangeBlock(change reconcile.ChannelChange) slack.Block {
	var title string
	if change.Previous.Version == "" {
		title = fmt.Sprintf("*%s*: `%s` first observed", channelLabel(change.Channel), change.Current.Version)
	} else {
		title = fmt.Sprintf("*%s*: `%s` → `%s`", channelLabel(change.Channel), change.Previous.Version, change.Current.Version)
	}
	text := slack.NewTextBlockObject("mrkdwn", title, false, false)

	fields := make([]*slack.TextBlockObject, 0, 2)
	if change.Current.WindowsURL != "" {
		fields = append(fields, slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Windows:*\n<%s|download>", change.Current.WindowsURL), false, false))
	}
	if change.Current.LinuxURL != "" {
		fields = append(fields, slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Linux:*\n<%s|download>", change.Current.LinuxURL), false, false))
	}

	return slack.NewSectionBlock(text, fields, nil)
}

func channelLabel(channel state.Channel) string {
	switch channel {
	case state.ChannelStable:
		return "Stable"
	case state.ChannelPreview:
		return "Preview"
	default:
		return string(channel)
	}
}
