// Package id centralizes identifier generation.
//
// Two identifier families exist:
//   - Session and event ids are UUIDv4 strings. Session ids are the join key
//     between local storage and the bookmark mirror and must survive
//     restore, so they are never re-derived.
//   - Instance ids are ULIDs: short, sortable, alphanumeric markers stamped
//     on mirrored tab records by the takeover protocol.
package id

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Generator produces ULIDs from a guarded entropy source.
type Generator struct {
	entropy io.Reader
	mu      sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator(rand.Reader)
	})
	return defaultGenerator
}

// NewGenerator creates a generator with the given entropy source.
// Tests pass a deterministic reader.
func NewGenerator(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// ULID generates a new ULID string.
func (g *Generator) ULID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}

// NewSessionID generates a session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// NewEventID generates an event-log entry identifier.
func NewEventID() string {
	return uuid.NewString()
}

// NewInstanceID generates an instance identifier for the takeover protocol.
func NewInstanceID() string {
	return Default().ULID()
}

// IsSessionID reports whether s parses as a session identifier.
func IsSessionID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
