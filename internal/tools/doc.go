// Package tools exposes the device pool as named, schema-described
// operations callable by external agents.
//
// The registry is static: the full tool set is declared at startup,
// validated once, and never changes at runtime. The dispatcher is the
// single translation point between internal errors and the caller-visible
// error envelope; a handler fault never crosses the Call boundary as a
// panic. Transports (stdio, HTTP) forward results and envelopes verbatim,
// adding only framing.
package tools
