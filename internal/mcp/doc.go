// Package mcp implements the Model Context Protocol surface of the pool
// manager.
//
// MCP clients (agent runtimes, IDE assistants) speak JSON-RPC 2.0. Two
// transports share one Handler:
//
//   - stdio: newline-delimited JSON-RPC on stdin/stdout (Server.Serve).
//     This is the transport MCP clients spawn the binary with; all logging
//     goes to stderr so stdout stays clean for protocol frames.
//   - HTTP: POST /mcp on the API server, one JSON-RPC message per request.
//
// Supported methods:
//
//	initialize               protocol handshake and server info
//	tools/list               tool descriptors with JSON schemas
//	tools/call               dispatch one tool invocation
//	ping                     liveness probe
//	notifications/initialized  accepted and ignored (no response)
//
// Tool-level failures (validation, not-found, conflicts) are not JSON-RPC
// errors: they come back as a tools/call result carrying the structured
// error envelope, with isError set. JSON-RPC errors are reserved for
// protocol problems such as malformed frames or unknown methods.
package mcp
