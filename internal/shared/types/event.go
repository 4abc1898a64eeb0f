package types

// Event log levels.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// EventLogEntry is one structured entry in the append-only event log.
// Buffer order is append order, which is also timestamp order under the
// single-writer assumption.
type EventLogEntry struct {
	ID      string         `json:"id"`
	TS      int64          `json:"ts"`
	Level   string         `json:"level"`
	Type    string         `json:"type"`
	Message string         `json:"message,omitempty"`
	Context map[string]any `json:"context,omitempty"`
	Source  string         `json:"source,omitempty"`
}
