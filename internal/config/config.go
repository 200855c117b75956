// Package config loads runtime configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/nholik/bedrock-sentinel/internal/mojang"
	"github.com/nholik/bedrock-sentinel/internal/state"
)

const (
	envAPIURL          = "BS_API_URL"
	envStateFile       = "BS_STATE_FILE"
	envFetchTimeout    = "BS_FETCH_TIMEOUT"
	envOnCorrupt       = "BS_ON_CORRUPT"
	envPollInterval    = "BS_POLL_INTERVAL"
	envSlackWebhookURL = "BS_SLACK_WEBHOOK_URL"
	envWebhookFile     = "BS_WEBHOOK_FILE"
	envDryRun          = "BS_DRY_RUN"
	envHealthPort      = "BS_HEALTH_PORT"
	envMetricsPort     = "BS_METRICS_PORT"
	envLogLevel        = "BS_LOG_LEVEL"
	envOutputFile      = "BS_OUTPUT_FILE"
	envGitHubOutput    = "GITHUB_OUTPUT"
)

const (
	defaultStateFile    = "versions.json"
	defaultFetchTimeout = 30 * time.Second
	defaultPollInterval = 15 * time.Minute
)

// Config describes runtime configuration loaded from the environment.
type Config struct {
	APIURL          string
	StateFile       string
	FetchTimeout    time.Duration
	OnCorrupt       state.CorruptPolicy
	PollInterval    time.Duration
	SlackWebhookURL string
	WebhookFile     string
	DryRun          bool
	HealthPort      int
	MetricsPort     int
	LogLevel        string
	OutputFile      string
}

// Load reads configuration from environment variables and a local .env
// file if present. Existing environment variables take precedence over
// values in .env. BS_OUTPUT_FILE overrides GITHUB_OUTPUT for the signal
// sink; when neither is set signals go to the log only.
func Load() (Config, error) {
	if err := loadDotEnvIfPresent(".env"); err != nil {
		return Config{}, err
	}

	cfg := Config{
		APIURL:       mojang.DefaultAPIURL,
		StateFile:    defaultStateFile,
		FetchTimeout: defaultFetchTimeout,
		OnCorrupt:    state.PolicyFail,
		PollInterval: defaultPollInterval,
	}

	if value, ok := lookupTrimmed(envAPIURL); ok {
		cfg.APIURL = value
	}
	if value, ok := lookupTrimmed(envStateFile); ok && value != "" {
		cfg.StateFile = value
	}

	if value, ok := lookupTrimmed(envFetchTimeout); ok {
		timeout, err := parsePositiveDuration(value, envFetchTimeout)
		if err != nil {
			return Config{}, err
		}
		cfg.FetchTimeout = timeout
	}

	if value, ok := lookupTrimmed(envOnCorrupt); ok {
		policy, err := state.ParseCorruptPolicy(value)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envOnCorrupt, err)
		}
		cfg.OnCorrupt = policy
	}

	if value, ok := lookupTrimmed(envPollInterval); ok {
		interval, err := parsePositiveDuration(value, envPollInterval)
		if err != nil {
			return Config{}, err
		}
		cfg.PollInterval = interval
	}

	if value, ok := lookupTrimmed(envSlackWebhookURL); ok {
		cfg.SlackWebhookURL = value
	}
	if value, ok := lookupTrimmed(envWebhookFile); ok {
		cfg.WebhookFile = value
	}

	if value, ok := lookupTrimmed(envDryRun); ok && value != "" {
		dryRun, err := strconv.ParseBool(value)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envDryRun, err)
		}
		cfg.DryRun = dryRun
	}

	for _, port := range []struct {
		env    string
		target *int
	}{
		{envHealthPort, &cfg.HealthPort},
		{envMetricsPort, &cfg.MetricsPort},
	} {
		value, ok := lookupTrimmed(port.env)
		if !ok || value == "" {
			continue
		}
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 0 || parsed > 65535 {
			return Config{}, fmt.Errorf("invalid %s: %q", port.env, value)
		}
		*port.target = parsed
	}

	if value, ok := lookupTrimmed(envLogLevel); ok {
		cfg.LogLevel = value
	}

	if value, ok := lookupTrimmed(envOutputFile); ok && value != "" {
		cfg.OutputFile = value
	} else if value, ok := lookupTrimmed(envGitHubOutput); ok {
		cfg.OutputFile = value
	}

	if cfg.APIURL == "" {
		return Config{}, errors.New(envAPIURL + " must not be empty")
	}
	if err := validateHTTPURL(cfg.APIURL, envAPIURL); err != nil {
		return Config{}, err
	}
	if cfg.SlackWebhookURL != "" {
		if err := validateHTTPURL(cfg.SlackWebhookURL, envSlackWebhookURL); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

func parsePositiveDuration(value, name string) (time.Duration, error) {
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than zero", name)
	}
	return parsed, nil
}

func lookupTrimmed(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(value), true
}

func loadDotEnvIfPresent(path string) error {
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) && errors.Is(pathErr.Err, os.ErrNotExist) {
		return nil
	}

	return err
}

func validateHTTPURL(value, name string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid %s: must include scheme and host", name)
	}
	return nil
}
