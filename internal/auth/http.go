// ABOUTME: Bearer token extraction and credential lane classification
// ABOUTME: Static-key-prefixed tokens go to the key lane, everything else to the delegated lane

package auth

import (
	"context"
	"strings"
)

// StaticKeyPrefix marks gateway-issued static API keys. Tokens carrying this
// prefix are routed to the key lane without consulting the JWT verifier.
const StaticKeyPrefix = "rg_sk_"

// Lane identifies which authentication path a credential takes.
type Lane int

const (
	// LaneNone means no usable credential was presented.
	LaneNone Lane = iota
	// LaneStaticKey means the token is a gateway static API key.
	LaneStaticKey
	// LaneDelegated means the token belongs to the external authorization flow.
	LaneDelegated
)

// Identity is the result of a successful credential validation.
type Identity struct {
	// Key is the stable identity string used as the session cache key.
	Key string
	// DisplayLabel is a human-readable label for logs and serverInfo.
	DisplayLabel string
}

// KeyValidator validates static API keys. Implementations must never log or
// persist the raw key material they are handed.
type KeyValidator interface {
	// Validate resolves a static key to its identity. Returns ErrUnknownKey
	// when the key does not exist or has been revoked.
	Validate(ctx context.Context, key string) (*Identity, error)
}

// ExtractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func ExtractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// ClassifyToken decides which lane a bearer token belongs to. Classification
// is a pure prefix match; full validation happens inside the selected lane.
func ClassifyToken(token string) Lane {
	if token == "" {
		return LaneNone
	}
	if strings.HasPrefix(token, StaticKeyPrefix) {
		return LaneStaticKey
	}
	return LaneDelegated
}
