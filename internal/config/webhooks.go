package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// WebhookTarget represents a single notification webhook.
type WebhookTarget struct {
	Name     string        `yaml:"name"`
	URL      string        `yaml:"url"`
	Template string        `yaml:"template,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
}

// WebhookFile is the parsed YAML structure for extra notification
// targets: webhooks: [{name, url, template, timeout}]
type WebhookFile struct {
	Webhooks []WebhookTarget `yaml:"webhooks"`
}

// LoadWebhookFile parses a YAML webhook targets file from the given path.
// Returns nil if path is empty (no webhook file).
func LoadWebhookFile(path string) ([]WebhookTarget, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read webhook file: %w", err)
	}

	var wf WebhookFile
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("parse webhook file: %w", err)
	}

	if err := validateWebhooks(wf.Webhooks); err != nil {
		return nil, err
	}

	return wf.Webhooks, nil
}

func validateWebhooks(targets []WebhookTarget) error {
	if len(targets) == 0 {
		return fmt.Errorf("webhook file contains no webhooks")
	}

	seen := make(map[string]bool)

	for i, target := range targets {
		if target.Name == "" {
			return fmt.Errorf("webhook %d: name is required", i)
		}

		if target.URL == "" {
			return fmt.Errorf("webhook %q: url is required", target.Name)
		}

		if err := validateHTTPURL(target.URL, "url"); err != nil {
			return fmt.Errorf("webhook %q: %w", target.Name, err)
		}

		if seen[target.Name] {
			return fmt.Errorf("webhook %q: duplicate name", target.Name)
		}
		seen[target.Name] = true

		if target.Timeout < 0 {
			return fmt.Errorf("webhook %q: timeout cannot be negative", target.Name)
		}
	}

	return nil
}
