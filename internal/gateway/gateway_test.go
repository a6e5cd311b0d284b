// ABOUTME: Tests for the Gateway orchestrator and its HTTP surface
// ABOUTME: Exercises the full path from bearer key to register lookup via httptest

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ledgerline/registre-gateway/internal/config"
)

// testLogger creates a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRegistry serves a minimal register API for integration tests.
func fakeRegistry(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/companies/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"company": {
				"identity": {"legalName": "ATELIER BLEU", "siren": "842019051"},
				"status": "registered"
			}
		}`)
	}))
}

// testConfig creates a minimal config backed by a temp keystore.
func testConfig(t *testing.T, registryURL string) *config.Config {
	t.Helper()
	return &config.Config{
		Server:   config.ServerConfig{HTTPAddr: "127.0.0.1:0"},
		Keystore: config.KeystoreConfig{Path: filepath.Join(t.TempDir(), "keys.db")},
		Registry: config.RegistryConfig{
			BaseURL:  registryURL,
			APIKey:   "test-api-key",
			Timeout:  5 * time.Second,
			CacheTTL: time.Minute,
		},
		Sessions: config.SessionsConfig{MaxEntries: 10},
	}
}

func newTestGateway(t *testing.T, registryURL string) *Gateway {
	t.Helper()
	gw, err := New(testConfig(t, registryURL), testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = gw.Shutdown(ctx)
	})
	return gw
}

func TestGatewayHealthz(t *testing.T) {
	registry := fakeRegistry(t)
	defer registry.Close()
	gw := newTestGateway(t, registry.URL)

	rec := httptest.NewRecorder()
	gw.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestGatewayLandingPage(t *testing.T) {
	registry := fakeRegistry(t)
	defer registry.Close()
	gw := newTestGateway(t, registry.URL)

	rec := httptest.NewRecorder()
	gw.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("unexpected content type %s", ct)
	}
	if !strings.Contains(rec.Body.String(), "company_extract") {
		t.Error("landing page should document the extract tool")
	}
}

func TestGatewayLandingPageNotFound(t *testing.T) {
	registry := fakeRegistry(t)
	defer registry.Close()
	gw := newTestGateway(t, registry.URL)

	rec := httptest.NewRecorder()
	gw.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGatewayMCPRequiresAuth(t *testing.T) {
	registry := fakeRegistry(t)
	defer registry.Close()
	gw := newTestGateway(t, registry.URL)

	body := `{"jsonrpc": "2.0", "id": 1, "method": "ping"}`
	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader([]byte(body)))
	rec := httptest.NewRecorder()
	gw.httpServer.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestGatewayEndToEndToolCall(t *testing.T) {
	registry := fakeRegistry(t)
	defer registry.Close()
	gw := newTestGateway(t, registry.URL)

	rawKey, _, err := gw.keys.CreateKey(t.Context(), "acct-1", "integration test")
	if err != nil {
		t.Fatalf("CreateKey: %v", err)
	}

	body := `{"jsonrpc": "2.0", "id": 1, "method": "tools/call",
		"params": {"name": "company_extract", "arguments": {"siren": "842019051"}}}`
	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader([]byte(body)))
	req.Header.Set("Authorization", "Bearer "+rawKey)
	rec := httptest.NewRecorder()
	gw.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Result struct {
			IsError           bool `json:"isError"`
			StructuredContent struct {
				Name   string `json:"name"`
				Siren  string `json:"siren"`
				Status string `json:"status"`
			} `json:"structuredContent"`
		} `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Result.IsError {
		t.Fatalf("unexpected error result: %s", rec.Body.String())
	}
	if resp.Result.StructuredContent.Name != "ATELIER BLEU" {
		t.Errorf("unexpected company name %q", resp.Result.StructuredContent.Name)
	}
	if resp.Result.StructuredContent.Status != "registered" {
		t.Errorf("unexpected status %q", resp.Result.StructuredContent.Status)
	}
}

func TestGatewayStatsIncludeExtractCache(t *testing.T) {
	registry := fakeRegistry(t)
	defer registry.Close()
	gw := newTestGateway(t, registry.URL)

	stats := gw.extractCacheStats()
	if _, ok := stats["extract_cache"]; !ok {
		t.Fatalf("missing extract_cache counters: %v", stats)
	}
}

func TestGatewayRequiresRegistryURL(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Registry.BaseURL = ""
	if _, err := New(cfg, testLogger()); err == nil {
		t.Fatal("expected error for missing registry base URL")
	}
}
