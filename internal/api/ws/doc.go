// Package ws streams event log entries to WebSocket clients. Each
// connection receives a backlog of recent entries followed by live
// entries; slow clients drop entries rather than blocking the log.
package ws
