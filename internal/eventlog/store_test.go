package eventlog

import (
	"context"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/require"

	"github.com/tabstash/tabstash/internal/host/memory"
	"github.com/tabstash/tabstash/internal/infrastructure/logging"
	"github.com/tabstash/tabstash/internal/shared/types"
)

func newTestStore(storage *memory.Storage, maxEntries int) *Store {
	return New(storage, Options{
		StorageKey: "test.events",
		MaxEntries: maxEntries,
		MaxAge:     time.Hour,
	}, logging.NewNop())
}

func TestAppendAndRecent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(memory.NewStorage(), 10)

	s.Info(ctx, "session_created", "created session", map[string]any{"id": "s1"})
	s.Warn(ctx, "sync_failed", "mirror write rejected", nil)

	entries := s.Recent(ctx, 0)
	require.Len(t, entries, 2)
	require.Equal(t, "session_created", entries[0].Type)
	require.Equal(t, types.LevelWarn, entries[1].Level)
	require.NotEmpty(t, entries[0].ID)
	require.LessOrEqual(t, entries[0].TS, entries[1].TS)

	last := s.Recent(ctx, 1)
	require.Len(t, last, 1)
	require.Equal(t, "sync_failed", last[0].Type)
}

func TestCountRetention(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(memory.NewStorage(), 3)

	for i := 0; i < 5; i++ {
		s.Info(ctx, "tick", "", map[string]any{"i": i})
	}

	entries := s.Recent(ctx, 0)
	require.Len(t, entries, 3)
	require.EqualValues(t, 2, entries[0].Context["i"], "oldest entries drop first")
}

func TestAgeRetention(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewStorage()

	// A persisted buffer whose first two entries predate the retention
	// window. MaxAge is an hour (see newTestStore), so restore drops them.
	stale := time.Now().Add(-2 * time.Hour).UnixMilli()
	seed := []types.EventLogEntry{
		{ID: "e1", TS: stale, Level: types.LevelInfo, Type: "session_created"},
		{ID: "e2", TS: stale + 1, Level: types.LevelInfo, Type: "session_deleted"},
		{ID: "e3", TS: time.Now().UnixMilli(), Level: types.LevelInfo, Type: "session_restored"},
	}
	data, err := sonic.Marshal(seed)
	require.NoError(t, err)
	require.NoError(t, storage.Set(ctx, "test.events", data))

	s := newTestStore(storage, 10)
	entries := s.Recent(ctx, 0)
	require.Len(t, entries, 1)
	require.Equal(t, "session_restored", entries[0].Type)
}

func TestFlushOnlyWhenDirty(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewStorage()
	s := newTestStore(storage, 10)

	require.NoError(t, s.Flush(ctx))
	_, found, err := storage.Get(ctx, "test.events")
	require.NoError(t, err)
	require.False(t, found, "clean buffer should not be written")

	s.Info(ctx, "tick", "", nil)
	require.NoError(t, s.Flush(ctx))
	_, found, err = storage.Get(ctx, "test.events")
	require.NoError(t, err)
	require.True(t, found)
}

func TestRestoreAfterRestart(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewStorage()

	first := newTestStore(storage, 10)
	first.Info(ctx, "session_created", "", nil)
	first.Info(ctx, "session_deleted", "", nil)
	require.NoError(t, first.Flush(ctx))

	second := newTestStore(storage, 10)
	entries := second.Recent(ctx, 0)
	require.Len(t, entries, 2)
	require.Equal(t, "session_created", entries[0].Type)
}

func TestMalformedBufferStartsEmpty(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewStorage()
	require.NoError(t, storage.Set(ctx, "test.events", []byte("corrupt")))

	s := newTestStore(storage, 10)
	require.Empty(t, s.Recent(ctx, 0))
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(memory.NewStorage(), 10)

	ch, cancel := s.Subscribe()
	defer cancel()

	s.Error(ctx, "takeover_failed", "tab not in mirror", nil)

	select {
	case entry := <-ch:
		require.Equal(t, "takeover_failed", entry.Type)
		require.Equal(t, types.LevelError, entry.Level)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive entry")
	}
}
