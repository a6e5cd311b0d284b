// Package gateway orchestrates the registre-gateway server components.
//
// # Overview
//
// The gateway package is the central coordinator of the registre-gateway
// server. It owns and wires the major components: the SQLite keystore, the
// register client and its cached resolver, the MCP server, and the HTTP
// listener (TCP or Tailscale tsnet).
//
// # HTTP Surface
//
//   - GET  /        - rendered usage document
//   - GET  /healthz - liveness check
//   - POST /mcp     - the MCP protocol endpoint (see the mcp package)
//
// # Lifecycle
//
// Start the gateway:
//
//	gw, err := gateway.New(cfg, logger)
//	err = gw.Run(ctx) // blocks until ctx is canceled
//
// Run handles graceful shutdown itself when the context is canceled; the
// keystore and any tsnet node are closed on the way out.
package gateway
