// Package notify delivers release-change notifications to external
// systems. Delivery is best-effort: reconciliation has already been
// persisted by the time notifiers run.
package notify

import (
	"context"

	"github.com/nholik/bedrock-sentinel/internal/reconcile"
)

// Notifier delivers release change alerts to external systems.
type Notifier interface {
	Notify(ctx context.Context, changes []reconcile.ChannelChange) error
}
