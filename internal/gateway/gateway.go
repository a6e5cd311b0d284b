// ABOUTME: Gateway orchestrator wiring the keystore, register resolver, and MCP server
// ABOUTME: Manages the HTTP server lifecycle including optional Tailscale listeners

package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/yuin/goldmark"
	"tailscale.com/ipn/ipnstate"
	"tailscale.com/tsnet"

	"github.com/ledgerline/registre-gateway/internal/auth"
	"github.com/ledgerline/registre-gateway/internal/config"
	"github.com/ledgerline/registre-gateway/internal/keystore"
	"github.com/ledgerline/registre-gateway/internal/mcp"
	"github.com/ledgerline/registre-gateway/internal/registre"
)

// Gateway orchestrates the registre-gateway server components. It owns the
// keystore, the register lookup path, the MCP server, and the HTTP listener.
type Gateway struct {
	config      *config.Config
	keys        *keystore.SQLiteStore
	resolver    *registre.Resolver
	mcpServer   *mcp.Server
	httpServer  *http.Server
	tsnetServer *tsnet.Server
	logger      *slog.Logger

	// landingPage is the rendered usage document served at /
	landingPage []byte
}

// Version identifies the gateway build in initialize responses. Overridden
// at link time via -ldflags.
var Version = "dev"

// New creates a new Gateway instance from the given configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	keys, err := keystore.Open(cfg.Keystore.Path)
	if err != nil {
		return nil, fmt.Errorf("opening keystore: %w", err)
	}

	client, err := registre.NewClient(registre.ClientConfig{
		BaseURL: cfg.Registry.BaseURL,
		APIKey:  cfg.Registry.APIKey,
		Timeout: cfg.Registry.Timeout,
		Logger:  logger,
	})
	if err != nil {
		_ = keys.Close()
		return nil, fmt.Errorf("creating register client: %w", err)
	}

	resolver, err := registre.NewResolver(registre.ResolverConfig{
		Fetcher: client,
		TTL:     cfg.Registry.CacheTTL,
		Logger:  logger,
	})
	if err != nil {
		_ = keys.Close()
		return nil, fmt.Errorf("creating resolver: %w", err)
	}

	gw := &Gateway{
		config:   cfg,
		keys:     keys,
		resolver: resolver,
		logger:   logger.With("component", "gateway"),
	}

	var verifier auth.TokenVerifier
	if cfg.Auth.JWTSecret != "" {
		verifier = auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
		logger.Info("delegated token lane enabled")
	} else {
		logger.Warn("delegated token lane disabled - no jwt_secret configured")
	}

	mcpServer, err := mcp.NewServer(mcp.Config{
		Resolver:        resolver,
		KeyValidator:    keys,
		TokenVerifier:   verifier,
		SessionCapacity: cfg.Sessions.MaxEntries,
		ServerName:      "registre-gateway",
		ServerVersion:   Version,
		Logger:          logger,
		ExtraStats:      gw.extractCacheStats,
	})
	if err != nil {
		_ = keys.Close()
		return nil, fmt.Errorf("creating MCP server: %w", err)
	}
	gw.mcpServer = mcpServer

	if err := gw.renderLandingPage(); err != nil {
		_ = keys.Close()
		return nil, fmt.Errorf("rendering landing page: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", gw.handleIndex)
	mux.HandleFunc("/healthz", gw.handleHealthz)
	mcpServer.RegisterRoutes(mux)

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return gw, nil
}

// extractCacheStats feeds the response cache counters into the stats resource.
func (g *Gateway) extractCacheStats() map[string]any {
	metrics := g.resolver.CacheStats()
	return map[string]any{
		"extract_cache": map[string]any{
			"size":   metrics.Size,
			"hits":   metrics.Hits,
			"misses": metrics.Misses,
		},
	}
}

// renderLandingPage converts the embedded usage markdown into the HTML
// served at the root path.
func (g *Gateway) renderLandingPage() error {
	var body bytes.Buffer
	if err := goldmark.Convert([]byte(mcp.UsageMarkdown), &body); err != nil {
		return err
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>registre-gateway</title>\n")
	page.WriteString("<style>body{font-family:sans-serif;max-width:48rem;margin:2rem auto;padding:0 1rem;line-height:1.5}table{border-collapse:collapse}td,th{border:1px solid #ccc;padding:0.3rem 0.6rem}code{background:#f4f4f4;padding:0.1rem 0.3rem}</style>\n")
	page.WriteString("</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")

	g.landingPage = page.Bytes()
	return nil
}

// Run starts the gateway server and blocks until the context is canceled.
// Returns nil on graceful shutdown, or an error if the server fails.
func (g *Gateway) Run(ctx context.Context) error {
	httpLn, err := g.setupListener(ctx)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", httpLn.Addr().String())
		if err := g.httpServer.Serve(httpLn); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		g.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := g.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// setupListener creates the HTTP listener based on configuration.
func (g *Gateway) setupListener(ctx context.Context) (net.Listener, error) {
	if g.config.Tailscale.Enabled {
		if g.config.Server.HTTPAddr != "" {
			g.logger.Warn("server.http_addr is ignored when tailscale is enabled",
				"http_addr", g.config.Server.HTTPAddr)
		}
		return g.setupTailscaleListener(ctx)
	}

	g.logger.Info("starting gateway", "http_addr", g.config.Server.HTTPAddr)
	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listening on HTTP address: %w", err)
	}
	return ln, nil
}

// resolveTailscaleStateDir returns the state directory, using the default
// under the user's data dir if not configured.
func resolveTailscaleStateDir(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for tailscale state (set tailscale.state_dir explicitly): %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "registre-gateway", "tailscale"), nil
}

// resolveTailscaleAuthKey returns the auth key from config or environment.
func resolveTailscaleAuthKey(configured string) (string, error) {
	authKey := configured
	if authKey == "" {
		authKey = os.Getenv("TS_AUTHKEY")
	}
	if authKey == "" {
		return "", errors.New("tailscale auth key required: set auth_key in config or TS_AUTHKEY environment variable")
	}
	return authKey, nil
}

// setupTailscaleListener creates a tsnet node and returns its HTTP listener.
func (g *Gateway) setupTailscaleListener(ctx context.Context) (net.Listener, error) {
	tsCfg := g.config.Tailscale

	stateDir, err := resolveTailscaleStateDir(tsCfg.StateDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, fmt.Errorf("creating tailscale state dir: %w", err)
	}

	authKey, err := resolveTailscaleAuthKey(tsCfg.AuthKey)
	if err != nil {
		return nil, err
	}

	g.tsnetServer = &tsnet.Server{
		Hostname:  tsCfg.Hostname,
		Dir:       stateDir,
		Ephemeral: tsCfg.Ephemeral,
		AuthKey:   authKey,
	}

	g.logger.Info("starting tailscale node", "hostname", tsCfg.Hostname, "state_dir", stateDir, "ephemeral", tsCfg.Ephemeral)
	status, err := g.tsnetServer.Up(ctx)
	if err != nil {
		_ = g.tsnetServer.Close()
		return nil, fmt.Errorf("starting tailscale: %w", err)
	}
	g.logTailscaleStatus(tsCfg.Hostname, status)

	ln, err := g.tsnetServer.Listen("tcp", ":80")
	if err != nil {
		_ = g.tsnetServer.Close()
		return nil, fmt.Errorf("listening on tailscale HTTP port: %w", err)
	}
	return ln, nil
}

// logTailscaleStatus logs info about the tailscale node status.
func (g *Gateway) logTailscaleStatus(hostname string, status *ipnstate.Status) {
	var tsAddr, dnsName string
	if len(status.TailscaleIPs) > 0 {
		tsAddr = status.TailscaleIPs[0].String()
	} else {
		g.logger.Warn("tailscale node has no IP addresses assigned")
	}
	if status.Self != nil {
		dnsName = status.Self.DNSName
	}
	g.logger.Info("tailscale node ready", "hostname", hostname, "tailscale_ip", tsAddr, "dns_name", dnsName)
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is
// already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// Shutdown gracefully stops the gateway server and releases resources.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	if err := g.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}
	if g.tsnetServer != nil {
		if err := g.tsnetServer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("tailscale shutdown: %w", err))
		}
	}
	if err := g.keys.Close(); err != nil {
		errs = append(errs, fmt.Errorf("keystore close: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// handleIndex serves the rendered usage document.
func (g *Gateway) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(g.landingPage)
}

// handleHealthz returns 200 OK if the server is alive.
func (g *Gateway) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
