// Package eventlog implements an append-only, capacity- and age-bounded
// buffer of structured log entries.
//
// The buffer lives in memory, is flushed to one durable storage key only
// when dirty, and restores itself from that key lazily on first access,
// so entries survive the host process being evicted and restarted.
// Subscribers receive appended entries on buffered channels; a slow
// subscriber drops entries rather than blocking the writer.
package eventlog
