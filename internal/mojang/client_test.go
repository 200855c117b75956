package mojang

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nholik/bedrock-sentinel/internal/version"
)

const sampleLinks = `{
  "result": {
    "links": [
      {"downloadType": "serverBedrockWindows", "downloadUrl": "https://www.minecraft.net/bedrockdedicatedserver/bin-win/bedrock-server-1.21.124.2.zip"},
      {"downloadType": "serverBedrockLinux", "downloadUrl": "https://www.minecraft.net/bedrockdedicatedserver/bin-linux/bedrock-server-1.21.124.2.zip"},
      {"downloadType": "serverBedrockPreviewWindows", "downloadUrl": "https://www.minecraft.net/bedrockdedicatedserver/bin-win-preview/bedrock-server-1.21.130.25.zip"},
      {"downloadType": "serverBedrockPreviewLinux", "downloadUrl": "https://www.minecraft.net/bedrockdedicatedserver/bin-linux-preview/bedrock-server-1.21.130.25.zip"}
    ]
  }
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, 5*time.Second, 0)
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	return client
}

func TestClient_FetchAssemblesChannels(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleLinks))
	})

	latest, err := client.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if latest.Stable.Version != "1.21.124.2" {
		t.Fatalf("unexpected stable version: %s", latest.Stable.Version)
	}
	if latest.Preview.Version != "1.21.130.25" {
		t.Fatalf("unexpected preview version: %s", latest.Preview.Version)
	}
	if latest.Stable.WindowsURL == "" || latest.Stable.LinuxURL == "" {
		t.Fatalf("stable URLs missing: %+v", latest.Stable)
	}
	if !latest.Stable.ReleasedAt.IsZero() {
		t.Fatal("fetched descriptors must not carry timestamps")
	}
}

func TestClient_FetchMissingPlatformLeavesEmptyURL(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
  "result": {
    "links": [
      {"downloadType": "serverBedrockLinux", "downloadUrl": "https://example.com/bin-linux/bedrock-server-1.21.124.2.zip"}
    ]
  }
}`))
	})

	latest, err := client.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if latest.Stable.WindowsURL != "" {
		t.Fatalf("expected empty windows URL, got %s", latest.Stable.WindowsURL)
	}
	// Linux acts as the secondary locator and still yields the version.
	if latest.Stable.Version != "1.21.124.2" {
		t.Fatalf("unexpected stable version: %s", latest.Stable.Version)
	}
	if latest.Preview.Version != version.Unknown {
		t.Fatalf("channel without links must resolve to %q, got %q", version.Unknown, latest.Preview.Version)
	}
}

func TestClient_FetchNon200IsFetchError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream sad", http.StatusBadGateway)
	})

	_, err := client.Fetch(context.Background())
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
}

func TestClient_FetchMalformedJSONIsFetchError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	})

	_, err := client.Fetch(context.Background())
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
}

func TestClient_FetchEmptyLinksIsFetchError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":{"links":[]}}`))
	})

	_, err := client.Fetch(context.Background())
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
}

func TestClient_FetchBodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 2048))
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, 5*time.Second, 1024)
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	_, err = client.Fetch(context.Background())
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch for oversized body, got %v", err)
	}
}

func TestNewClient_Validation(t *testing.T) {
	if _, err := NewClient("", time.Second, 0); err == nil {
		t.Fatal("expected error for empty url")
	}
	if _, err := NewClient("https://example.com", 0, 0); err == nil {
		t.Fatal("expected error for zero timeout")
	}
}
