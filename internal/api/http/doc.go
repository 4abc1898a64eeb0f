// Package http exposes the session engine over a JSON HTTP API. Every
// handler resolves with either a {"success": true, ...} payload or an
// {"error": string} payload; no handler surfaces a raw panic or leaves a
// client waiting.
package http
