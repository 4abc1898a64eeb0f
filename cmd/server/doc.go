// Package main is the entry point for the TabStash session server.
//
// The server hosts the session/bookmark reconciliation engine and
// exposes it over a JSON HTTP API plus a WebSocket event stream. It
// either runs standalone against in-process host fakes or drives a real
// browser through the extension bridge.
//
// Architecture:
//
//	Extension pages / tooling → HTTP API → Lifecycle manager
//	                                     → Bookmark mirror repository
//	                                     → Host backend (memory | bridge)
//
// Configuration:
//   - Environment variables (12-factor)
//   - Optional YAML file (-config)
//   - CLI flags (override both)
//
// Usage:
//
//	# Standalone, in-memory host
//	./server -port 8600
//
//	# Against a browser bridge
//	./server -host-mode remote
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown with a final event log flush
package main
