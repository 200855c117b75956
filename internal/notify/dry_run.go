package notify

import (
	"context"

	"github.com/nholik/bedrock-sentinel/internal/reconcile"
	"github.com/rs/zerolog"
)

// DryRunNotifier logs changes without sending notifications.
type DryRunNotifier struct {
	logger zerolog.Logger
	inner  Notifier
}

// NewDryRunNotifier returns a notifier that suppresses delivery and logs instead.
func NewDryRunNotifier(logger zerolog.Logger, inner Notifier) *DryRunNotifier {
	return &DryRunNotifier{logger: logger, inner: inner}
}

// Notify implements Notifier.
func (n *DryRunNotifier) Notify(_ context.Context, changes []reconcile.ChannelChange) error {
	for _, change := range changes {
		n.logger.Info().
			Str("channel", string(change.Channel)).
			Str("previous_version", change.Previous.Version).
			Str("current_version", change.Current.Version).
			Msg("[DRY-RUN] Would notify")
	}
	return nil
}
