// Package auth classifies and validates inbound credentials for the gateway.
//
// Two mutually exclusive lanes exist. Bearer tokens carrying the static key
// prefix are validated against a KeyValidator (backed by the keystore or a
// remote service). Any other bearer token is treated as an access token minted
// by the external authorization flow and verified as an HS256 JWT.
//
// The package also provides context plumbing so handlers can retrieve the
// authenticated identity without re-parsing headers.
package auth
