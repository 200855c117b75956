package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"
	"time"

	"github.com/nholik/bedrock-sentinel/internal/reconcile"
	"github.com/rs/zerolog"
)

const defaultWebhookTemplate = `{"summary":"{{ .Summary }}","changes":{{ toJson .Changes }}}`

// WebhookPayload is the template context for webhook notifications.
type WebhookPayload struct {
	Summary     string
	Changes     []reconcile.ChannelChange
	GeneratedAt time.Time
}

// WebhookNotifier sends release change notifications to a generic webhook.
type WebhookNotifier struct {
	logger   zerolog.Logger
	name     string
	template *template.Template
	poster   *httpPoster
}

// NewWebhookNotifier creates a webhook notifier with the provided
// template. An empty template falls back to a plain JSON payload; a
// zero timeout uses the default posting timeout.
func NewWebhookNotifier(logger zerolog.Logger, name, webhookURL, tmpl string, timeout time.Duration) (*WebhookNotifier, error) {
	if webhookURL == "" {
		return nil, nil
	}
	if name == "" {
		name = "webhook"
	}
	if tmpl == "" {
		tmpl = defaultWebhookTemplate
	}

	parsed, err := template.New("webhook").Funcs(template.FuncMap{
		"toJson": func(v any) (string, error) {
			encoded, err := json.Marshal(v)
			if err != nil {
				return "", err
			}
			return string(encoded), nil
		},
	}).Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("parse webhook template: %w", err)
	}

	timing := defaultTiming
	if timeout > 0 {
		timing.timeout = timeout
	}

	return &WebhookNotifier{
		logger:   logger,
		name:     name,
		template: parsed,
		poster:   newHTTPPoster(logger, name, webhookURL, "application/json", timing),
	}, nil
}

// Notify implements Notifier.
func (n *WebhookNotifier) Notify(ctx context.Context, changes []reconcile.ChannelChange) error {
	if n == nil || len(changes) == 0 {
		return nil
	}

	if err := n.poster.waitForRateLimit(ctx); err != nil {
		return err
	}

	payload := WebhookPayload{
		Summary:     summarize(changes),
		Changes:     changes,
		GeneratedAt: time.Now().UTC(),
	}

	var buf bytes.Buffer
	if err := n.template.Execute(&buf, payload); err != nil {
		return fmt.Errorf("render webhook template: %w", err)
	}

	if err := n.poster.postWithRetry(ctx, buf.Bytes()); err != nil {
		return err
	}

	n.logger.Debug().
		Str("webhook", n.name).
		Int("changes", len(changes)).
		Msg("webhook notification sent")

	return nil
}

func summarize(changes []reconcile.ChannelChange) string {
	if len(changes) == 0 {
		return "no release changes"
	}
	summary := ""
	for i, change := range changes {
		if i > 0 {
			summary += ", "
		}
		if change.Previous.Version == "" {
			summary += fmt.Sprintf("%s %s", change.Channel, change.Current.Version)
			continue
		}
		summary += fmt.Sprintf("%s %s -> %s", change.Channel, change.Previous.Version, change.Current.Version)
	}
	return "bedrock server release: " + summary
}
