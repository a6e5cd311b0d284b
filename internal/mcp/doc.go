// Package mcp implements the Model Context Protocol server for register lookups.
//
// # Overview
//
// MCP (Model Context Protocol) is a standard for AI tool integration. This
// package provides an MCP-compatible HTTP server that exposes company-register
// lookup tools to external AI clients (like Claude Desktop, other LLMs, or
// custom applications).
//
// # Protocol
//
// The server speaks JSON-RPC 2.0 over HTTP on a single endpoint:
//
//   - POST /mcp - JSON-RPC requests (initialize, ping, tools/*, resources/*, prompts/list)
//
// Notifications (requests without an id) are accepted with HTTP 202 and no
// body. Envelope-level failures map to standard JSON-RPC error codes; tool
// handler failures instead come back as results flagged isError so the
// channel stays usable.
//
// # Authentication
//
// Every request must carry a bearer credential:
//
//	Authorization: Bearer <credential>
//
// Credentials fall into exactly one of two lanes. Keys with the rg_sk_
// prefix go to the static-key lane: they are checked against the key store
// and their sessions live in a fixed-capacity LRU cache, so an idle identity
// can be evicted and transparently rebuilt on its next request. Any other
// bearer token is treated as an access token from the authorization flow and
// verified as a JWT; those sessions are durable for the process lifetime.
//
// # Sessions
//
// A Session is a live protocol-server instance scoped to one authenticated
// identity. Both lanes converge on the same Dispatcher, which routes the
// fixed method set and performs register lookups through the RecordResolver
// it was built with.
//
// # Usage
//
// Create and mount the server:
//
//	server, err := mcp.NewServer(mcp.Config{
//		Resolver:     resolver,
//		KeyValidator: keystore,
//		Logger:       logger,
//	})
//	server.RegisterRoutes(mux)
package mcp
