// ABOUTME: HTTP endpoint for the MCP protocol with two authentication lanes
// ABOUTME: Static-key credentials resolve sessions through the LRU identity cache

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/ledgerline/registre-gateway/internal/auth"
	"github.com/ledgerline/registre-gateway/internal/session"
)

// MaxRequestBodySize is the maximum allowed size for request bodies (1MB).
const MaxRequestBodySize = 1 << 20

// Config holds configuration for the MCP server.
type Config struct {
	Resolver      RecordResolver
	KeyValidator  auth.KeyValidator
	TokenVerifier auth.TokenVerifier
	// SessionCapacity bounds the key-lane identity cache.
	SessionCapacity int
	ServerName      string
	ServerVersion   string
	Logger          *slog.Logger
	// ExtraStats merges additional counters into the stats resource.
	ExtraStats StatsFunc
}

// Server terminates the protocol endpoint. Each request is classified into
// exactly one authentication lane; both lanes converge on the same
// dispatcher through their respective session stores.
type Server struct {
	resolver   RecordResolver
	keys       auth.KeyValidator
	verifier   auth.TokenVerifier
	serverInfo ServerInfo
	logger     *slog.Logger
	extraStats StatsFunc

	sessions *session.Cache[*Session]
	durable  *durableStore
}

// NewServer creates a new MCP server with the given configuration.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Resolver == nil {
		return nil, errors.New("resolver is required")
	}
	if cfg.KeyValidator == nil && cfg.TokenVerifier == nil {
		return nil, errors.New("key validator or token verifier required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	name := cfg.ServerName
	if name == "" {
		name = "registre-gateway"
	}
	version := cfg.ServerVersion
	if version == "" {
		version = "dev"
	}

	capacity := cfg.SessionCapacity
	if capacity <= 0 {
		capacity = 1000
	}

	return &Server{
		resolver:   cfg.Resolver,
		keys:       cfg.KeyValidator,
		verifier:   cfg.TokenVerifier,
		serverInfo: ServerInfo{Name: name, Version: version},
		logger:     logger.With("component", "mcp"),
		extraStats: cfg.ExtraStats,
		sessions:   session.New[*Session](capacity, logger),
		durable:    newDurableStore(),
	}, nil
}

// RegisterRoutes registers the MCP endpoint on the given ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/mcp", s.handleMCP)
}

// SessionCount returns the number of live key-lane sessions.
func (s *Server) SessionCount() int {
	return s.sessions.Len()
}

// handleMCP is the single protocol endpoint.
func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handlePost(w, r)
	default:
		w.Header().Set("Allow", "POST")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

// handlePost authenticates the caller, resolves a session, and dispatches
// the JSON-RPC body. Authentication failures short-circuit before any cache
// or dispatch work.
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	sess, ctx, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		s.sendResponse(w, http.StatusOK, errorResponse(nullID, JSONRPCParseError, "failed to read request body"))
		return
	}
	if int64(len(body)) > MaxRequestBodySize {
		s.sendResponse(w, http.StatusOK, errorResponse(nullID, JSONRPCInvalidRequest, "request body too large"))
		return
	}

	resp := sess.Handle(ctx, body)
	if resp == nil {
		// Notification: accept with no body
		w.WriteHeader(http.StatusAccepted)
		return
	}

	s.sendResponse(w, http.StatusOK, resp)
}

// authenticate classifies the credential into a lane and resolves the
// session for its identity. The returned context carries the identity for
// downstream handlers. On failure it writes the unauthorized response and
// returns ok=false.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (*Session, context.Context, bool) {
	token, errMsg := auth.ExtractBearerToken(r.Header.Get("Authorization"))
	if errMsg != "" {
		s.logger.Info("authentication failed", "outcome", false, "reason", errMsg)
		s.sendUnauthorized(w)
		return nil, nil, false
	}

	var sess *Session
	var identity *auth.Identity
	var ok bool
	switch auth.ClassifyToken(token) {
	case auth.LaneStaticKey:
		sess, identity, ok = s.authenticateStaticKey(r.Context(), w, token)
	case auth.LaneDelegated:
		sess, identity, ok = s.authenticateDelegated(w, token)
	default:
		s.sendUnauthorized(w)
		return nil, nil, false
	}
	if !ok {
		return nil, nil, false
	}
	return sess, auth.WithIdentity(r.Context(), identity), true
}

// authenticateStaticKey is the key lane: validate against the key
// collaborator, then resolve or create the cached session.
func (s *Server) authenticateStaticKey(ctx context.Context, w http.ResponseWriter, token string) (*Session, *auth.Identity, bool) {
	if s.keys == nil {
		s.sendUnauthorized(w)
		return nil, nil, false
	}

	identity, err := s.keys.Validate(ctx, token)
	if err != nil {
		// The raw key never reaches the log
		s.logger.Info("authentication failed", "outcome", false, "lane", "static-key")
		s.sendUnauthorized(w)
		return nil, nil, false
	}

	if sess, ok := s.sessions.Get(identity.Key); ok {
		return sess, identity, true
	}

	sess := newSession(s.newDispatcher(*identity))
	s.sessions.Set(identity.Key, sess)
	s.logger.Info("session created", "lane", "static-key", "identity", identity.Key)
	return sess, identity, true
}

// authenticateDelegated is the delegated lane: verify the access token
// minted by the authorization flow and resolve the durable session.
func (s *Server) authenticateDelegated(w http.ResponseWriter, token string) (*Session, *auth.Identity, bool) {
	if s.verifier == nil {
		s.sendUnauthorized(w)
		return nil, nil, false
	}

	identity, err := s.verifier.Verify(token)
	if err != nil {
		s.logger.Info("authentication failed", "outcome", false, "lane", "delegated")
		s.sendUnauthorized(w)
		return nil, nil, false
	}

	sess := s.durable.getOrCreate(identity.Key, func() *Session {
		s.logger.Info("session created", "lane", "delegated", "identity", identity.Key)
		return newSession(s.newDispatcher(*identity))
	})
	return sess, identity, true
}

// newDispatcher builds the per-identity dispatcher with the stats hook.
func (s *Server) newDispatcher(identity auth.Identity) *Dispatcher {
	return NewDispatcher(identity, s.resolver, s.statsSnapshot, s.serverInfo, s.logger)
}

// statsSnapshot assembles the counters served by the stats resource.
func (s *Server) statsSnapshot() map[string]any {
	cacheStats := s.sessions.Stats()
	stats := map[string]any{
		"sessions": map[string]any{
			"size":      cacheStats.Size,
			"capacity":  s.sessions.Capacity(),
			"hits":      cacheStats.Hits,
			"misses":    cacheStats.Misses,
			"evictions": cacheStats.Evictions,
			"durable":   s.durable.size(),
		},
	}
	if s.extraStats != nil {
		for k, v := range s.extraStats() {
			stats[k] = v
		}
	}
	return stats
}

// sendUnauthorized writes the unauthorized failure shared by both lanes.
// The body is identical regardless of why the credential was rejected.
func (s *Server) sendUnauthorized(w http.ResponseWriter) {
	s.sendResponse(w, http.StatusUnauthorized,
		errorResponse(nullID, JSONRPCInvalidRequest, "invalid or expired credential"))
}

// sendResponse writes a JSON-RPC response with the given HTTP status.
func (s *Server) sendResponse(w http.ResponseWriter, status int, resp *JSONRPCResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("failed to encode JSON-RPC response", "error", err)
	}
}
