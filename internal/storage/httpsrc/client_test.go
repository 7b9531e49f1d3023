// internal/storage/httpsrc/client_test.go
package httpsrc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/northwalk/floormap/internal/storage"
)

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c := New("http://localhost:5173/assets/", 0)
	if c.baseURL != "http://localhost:5173/assets" {
		t.Errorf("expected trailing slash trimmed, got %s", c.baseURL)
	}
	if c.httpClient.Timeout != 30*time.Second {
		t.Errorf("expected default timeout, got %s", c.httpClient.Timeout)
	}
}

func TestFetch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/assets/maps/ground-floor.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"type":"FeatureCollection","features":[]}`))
	}))
	defer server.Close()

	c := New(server.URL+"/assets", time.Second)
	data, err := c.Fetch(context.Background(), "maps/ground-floor.json")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(data) != `{"type":"FeatureCollection","features":[]}` {
		t.Errorf("unexpected body %q", data)
	}
}

func TestFetch_NotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	c := New(server.URL, time.Second)
	_, err := c.Fetch(context.Background(), "logos/missing.png")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFetch_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := New(server.URL, time.Second)
	_, err := c.Fetch(context.Background(), "logos/bata.png")
	if err == nil || errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestFetch_InvalidKey(t *testing.T) {
	c := New("http://localhost:59999", time.Second)
	if _, err := c.Fetch(context.Background(), "../secret"); err == nil {
		t.Error("expected error for invalid key")
	}
}

func TestHealthcheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD, got %s", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := New(server.URL, time.Second)
	if err := c.Healthcheck(context.Background()); err != nil {
		t.Errorf("Healthcheck failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestHealthcheck_ServerDown(t *testing.T) {
	c := New("http://localhost:59999", time.Second)
	if err := c.Healthcheck(context.Background()); err == nil {
		t.Error("expected error for unreachable server")
	}
}
