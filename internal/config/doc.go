// Package config handles configuration loading for registre-gateway.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${REGISTRE_JWT_SECRET}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	registry:
//	  timeout: "10s"
//	  cache_ttl: "1h"
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//
// Upstream register API:
//
//	registry:
//	  base_url: "https://registre.example.com/api/v1"
//	  api_key: "${REGISTRE_API_KEY}"
//	  timeout: "10s"
//	  cache_ttl: "1h"
//
// Identity sessions:
//
//	sessions:
//	  max_entries: 1000
//
// Static key store:
//
//	keystore:
//	  path: "/var/lib/registre/keys.db"
//
// Tailscale:
//
//	tailscale:
//	  enabled: false
//	  hostname: "registre-gateway"
//	  auth_key: "${TS_AUTHKEY}"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
