// Package mojang fetches the current Bedrock dedicated server download
// links from the Minecraft services API.
package mojang

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nholik/bedrock-sentinel/internal/state"
	"github.com/nholik/bedrock-sentinel/internal/version"
)

// DefaultAPIURL is the public download-links endpoint.
const DefaultAPIURL = "https://net-secondary.web.minecraft-services.net/api/v1.0/download/links"

const defaultMaxBytes int64 = 1 << 20

// ErrFetch reports a failed or malformed upstream response. Fetch
// failures are a hard fault for the run and are never retried.
var ErrFetch = errors.New("mojang: fetch failed")

// Download types published by the links endpoint.
const (
	typeServerWindows        = "serverBedrockWindows"
	typeServerLinux          = "serverBedrockLinux"
	typeServerPreviewWindows = "serverBedrockPreviewWindows"
	typeServerPreviewLinux   = "serverBedrockPreviewLinux"
)

// Fetcher retrieves the current per-channel release descriptors.
// The returned descriptors carry no timestamp; stamping is the
// reconciler's concern.
type Fetcher interface {
	Fetch(ctx context.Context) (state.Latest, error)
}

// Client fetches download links over HTTP.
type Client struct {
	url      string
	client   *http.Client
	maxBytes int64
}

// NewClient constructs a Client for the given endpoint and timeout.
func NewClient(url string, timeout time.Duration, maxBytes int64) (*Client, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("api url must not be empty")
	}
	if timeout <= 0 {
		return nil, errors.New("timeout must be greater than zero")
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}

	return &Client{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
		maxBytes: maxBytes,
	}, nil
}

type linksResponse struct {
	Result struct {
		Links []struct {
			DownloadType string `json:"downloadType"`
			DownloadURL  string `json:"downloadUrl"`
		} `json:"links"`
	} `json:"result"`
}

// Fetch downloads the links document and assembles the stable and
// preview descriptors. Link types absent from the listing leave their
// URL empty; a channel whose URLs carry no extractable version gets the
// "unknown" sentinel identifier.
func (c *Client) Fetch(ctx context.Context) (state.Latest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, http.NoBody)
	if err != nil {
		return state.Latest{}, fmt.Errorf("%w: create request: %v", ErrFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return state.Latest{}, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return state.Latest{}, fmt.Errorf("%w: unexpected status: %s", ErrFetch, resp.Status)
	}

	body, err := readWithLimit(resp.Body, c.maxBytes)
	if err != nil {
		return state.Latest{}, err
	}

	var parsed linksResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return state.Latest{}, fmt.Errorf("%w: parse response: %v", ErrFetch, err)
	}
	if len(parsed.Result.Links) == 0 {
		return state.Latest{}, fmt.Errorf("%w: response contains no links", ErrFetch)
	}

	byType := make(map[string]string, len(parsed.Result.Links))
	for _, link := range parsed.Result.Links {
		byType[link.DownloadType] = link.DownloadURL
	}

	return state.Latest{
		Stable:  buildDescriptor(byType[typeServerWindows], byType[typeServerLinux]),
		Preview: buildDescriptor(byType[typeServerPreviewWindows], byType[typeServerPreviewLinux]),
	}, nil
}

func buildDescriptor(windowsURL, linuxURL string) state.Descriptor {
	return state.Descriptor{
		Version:    version.Resolve(windowsURL, linuxURL),
		WindowsURL: windowsURL,
		LinuxURL:   linuxURL,
	}
}

func readWithLimit(r io.Reader, maxBytes int64) ([]byte, error) {
	limited := io.LimitReader(r, maxBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrFetch, err)
	}
	if int64(len(body)) > maxBytes {
		return nil, fmt.Errorf("%w: response exceeds %d bytes", ErrFetch, maxBytes)
	}
	return body, nil
}
