package eventlog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/tabstash/tabstash/internal/host"
	"github.com/tabstash/tabstash/internal/infrastructure/logging"
	"github.com/tabstash/tabstash/internal/infrastructure/monitoring"
	"github.com/tabstash/tabstash/internal/shared/id"
	"github.com/tabstash/tabstash/internal/shared/types"
)

// Options configures a Store.
type Options struct {
	// StorageKey is the single key the buffer is persisted under.
	StorageKey string
	// MaxEntries bounds the buffer by count; oldest entries drop first.
	MaxEntries int
	// MaxAge bounds the buffer by entry age. Zero disables age retention.
	MaxAge time.Duration
	// FlushInterval is the period of the background flush loop started by
	// Start.
	FlushInterval time.Duration
}

// Store is the append-only event log.
type Store struct {
	storage host.Storage
	opts    Options
	logger  *logging.Logger
	metrics *monitoring.Metrics

	mu          sync.Mutex
	entries     []types.EventLogEntry
	dirty       bool
	restored    bool
	subscribers map[int]chan types.EventLogEntry
	nextSub     int

	done     chan struct{}
	stopOnce sync.Once
}

// New creates a store. The persisted buffer is restored lazily on first
// access, not here.
func New(storage host.Storage, opts Options, logger *logging.Logger) *Store {
	return &Store{
		storage:     storage,
		opts:        opts,
		logger:      logger,
		subscribers: make(map[int]chan types.EventLogEntry),
		done:        make(chan struct{}),
	}
}

// WithMetrics attaches a metrics collector.
func (s *Store) WithMetrics(m *monitoring.Metrics) *Store {
	s.metrics = m
	return s
}

// Append adds one entry to the buffer, enforcing retention and marking the
// buffer dirty.
func (s *Store) Append(ctx context.Context, level, eventType, message string, eventCtx map[string]any, source string) {
	entry := types.EventLogEntry{
		ID:      id.NewEventID(),
		TS:      time.Now().UnixMilli(),
		Level:   level,
		Type:    eventType,
		Message: message,
		Context: eventCtx,
		Source:  source,
	}

	s.mu.Lock()
	s.restoreLocked(ctx)
	s.entries = append(s.entries, entry)
	s.trimLocked()
	s.dirty = true
	for _, ch := range s.subscribers {
		select {
		case ch <- entry:
		default:
			// Slow subscriber: drop rather than block the writer.
		}
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.EventLogEntries.Inc()
	}
}

// Info appends an info-level entry.
func (s *Store) Info(ctx context.Context, eventType, message string, eventCtx map[string]any) {
	s.Append(ctx, types.LevelInfo, eventType, message, eventCtx, "engine")
}

// Warn appends a warn-level entry.
func (s *Store) Warn(ctx context.Context, eventType, message string, eventCtx map[string]any) {
	s.Append(ctx, types.LevelWarn, eventType, message, eventCtx, "engine")
}

// Error appends an error-level entry.
func (s *Store) Error(ctx context.Context, eventType, message string, eventCtx map[string]any) {
	s.Append(ctx, types.LevelError, eventType, message, eventCtx, "engine")
}

// Recent returns up to n entries in append order, newest last. n <= 0
// returns everything.
func (s *Store) Recent(ctx context.Context, n int) []types.EventLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.restoreLocked(ctx)
	start := 0
	if n > 0 && len(s.entries) > n {
		start = len(s.entries) - n
	}
	out := make([]types.EventLogEntry, len(s.entries)-start)
	copy(out, s.entries[start:])
	return out
}

// Flush writes the buffer to storage if it changed since the last flush.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	s.restoreLocked(ctx)
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	s.trimLocked()
	data, err := sonic.Marshal(s.entries)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to serialize event log: %w", err)
	}
	s.dirty = false
	s.mu.Unlock()

	if err := s.storage.Set(ctx, s.opts.StorageKey, data); err != nil {
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
		return fmt.Errorf("failed to persist event log: %w", err)
	}

	if s.metrics != nil {
		s.metrics.EventLogFlushes.Inc()
	}
	return nil
}

// Subscribe registers a listener for appended entries. The returned cancel
// function must be called to release the channel.
func (s *Store) Subscribe() (<-chan types.EventLogEntry, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subID := s.nextSub
	s.nextSub++
	ch := make(chan types.EventLogEntry, 64)
	s.subscribers[subID] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if existing, ok := s.subscribers[subID]; ok {
			delete(s.subscribers, subID)
			close(existing)
		}
	}
	return ch, cancel
}

// Start launches the periodic flush loop.
func (s *Store) Start() {
	if s.opts.FlushInterval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(s.opts.FlushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.Flush(context.Background()); err != nil {
					s.logger.Warn("Event log flush failed", zap.Error(err))
				}
			case <-s.done:
				return
			}
		}
	}()
}

// Close stops the flush loop and performs a final flush.
func (s *Store) Close() error {
	s.stopOnce.Do(func() { close(s.done) })
	return s.Flush(context.Background())
}

// restoreLocked loads the persisted buffer once per store lifetime. A
// missing or malformed buffer starts empty; restore failure is never
// fatal.
func (s *Store) restoreLocked(ctx context.Context) {
	if s.restored {
		return
	}
	s.restored = true

	data, found, err := s.storage.Get(ctx, s.opts.StorageKey)
	if err != nil {
		s.logger.Warn("Failed to restore event log", zap.Error(err))
		return
	}
	if !found {
		return
	}
	var entries []types.EventLogEntry
	if err := sonic.Unmarshal(data, &entries); err != nil {
		s.logger.Warn("Discarding malformed event log buffer", zap.Error(err))
		return
	}
	s.entries = entries
	s.trimLocked()
}

// trimLocked enforces count and age retention, oldest entries first.
func (s *Store) trimLocked() {
	if s.opts.MaxEntries > 0 && len(s.entries) > s.opts.MaxEntries {
		s.entries = append(s.entries[:0:0], s.entries[len(s.entries)-s.opts.MaxEntries:]...)
	}
	if s.opts.MaxAge > 0 {
		cutoff := time.Now().Add(-s.opts.MaxAge).UnixMilli()
		firstLive := 0
		for firstLive < len(s.entries) && s.entries[firstLive].TS < cutoff {
			firstLive++
		}
		if firstLive > 0 {
			s.entries = append(s.entries[:0:0], s.entries[firstLive:]...)
		}
	}
}
