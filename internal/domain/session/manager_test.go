package session

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tabstash/tabstash/internal/domain/bookmarks"
	"github.com/tabstash/tabstash/internal/host"
	"github.com/tabstash/tabstash/internal/host/memory"
	"github.com/tabstash/tabstash/internal/infrastructure/config"
	"github.com/tabstash/tabstash/internal/infrastructure/logging"
	"github.com/tabstash/tabstash/internal/shared/id"
	"github.com/tabstash/tabstash/internal/shared/types"
)

func pageFor(title, url string) types.NamedSessionTab {
	return types.NamedSessionTab{Title: title, URL: url}
}

// fixture is one running instance: its own storage, tab surface, and
// repository, optionally sharing a bookmark tree with other instances.
type fixture struct {
	storage *memory.Storage
	tabs    *memory.Tabs
	repo    *bookmarks.Repository
	mgr     *Manager
}

func newFixture(shared *memory.Bookmarks) *fixture {
	if shared == nil {
		shared = memory.NewBookmarks()
	}
	storage := memory.NewStorage()
	tabs := memory.NewTabs()
	repo := bookmarks.New(shared, memory.RootFolderID, "Tab Sessions", logging.NewNop())
	cfg := config.SessionConfig{
		StorageKey:        "test.sessions",
		InstanceKey:       "test.instance",
		ParentFolderTitle: "Tab Sessions",
		RootFolderID:      memory.RootFolderID,
		UIPageURL:         "tabstash://session",
	}
	return &fixture{
		storage: storage,
		tabs:    tabs,
		repo:    repo,
		mgr:     NewManager(storage, tabs, repo, cfg, logging.NewNop()),
	}
}

// openWindow creates a window holding one tab per url.
func (f *fixture) openWindow(t *testing.T, urls ...string) *host.Window {
	t.Helper()
	ctx := context.Background()
	window, err := f.tabs.CreateWindow(ctx, "", true)
	require.NoError(t, err)
	for _, u := range urls {
		_, err := f.tabs.Create(ctx, host.CreateTabOptions{URL: u, WindowID: &window.ID})
		require.NoError(t, err)
	}
	return window
}

func TestCreateRejectsEmptyName(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	window := f.openWindow(t)

	_, err := f.mgr.Create(ctx, CreateOptions{WindowID: window.ID, Name: ""})
	require.Error(t, err)
	_, err = f.mgr.Create(ctx, CreateOptions{WindowID: window.ID, Name: "   "})
	require.Error(t, err)
}

func TestCreateSyncsMirror(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	window := f.openWindow(t, "https://a.test", "https://b.test")

	session, err := f.mgr.Create(ctx, CreateOptions{WindowID: window.ID, Name: "Work"})
	require.NoError(t, err)
	require.NotEmpty(t, session.ID)
	require.True(t, session.Open())

	folder, found := f.repo.SessionFolder(ctx, session.ID)
	require.True(t, found)
	require.Equal(t, "Work", folder.Name)

	tabs := f.mgr.SyncedOpenTabs(ctx, session.ID)
	require.Len(t, tabs, 2)
	require.Equal(t, f.mgr.InstanceID(ctx), tabs[0].Owner)
}

func TestStaleWindowDemotesToClosed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	window := f.openWindow(t, "https://a.test")

	session, err := f.mgr.Create(ctx, CreateOptions{WindowID: window.ID, Name: "Work"})
	require.NoError(t, err)

	f.tabs.CloseWindow(window.ID)

	summaries, err := f.mgr.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.False(t, summaries[0].Open)
	require.Equal(t, session.ID, summaries[0].ID)
}

func TestListNeverReportsOpenSessionAsClosed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	window := f.openWindow(t, "https://a.test")

	session, err := f.mgr.Create(ctx, CreateOptions{WindowID: window.ID, Name: "Work"})
	require.NoError(t, err)

	// The mirror also knows this id, but it must only surface as open.
	summaries, err := f.mgr.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.True(t, summaries[0].Open)

	closed, err := f.mgr.ClosedSessions(ctx)
	require.NoError(t, err)
	for _, c := range closed {
		require.NotEqual(t, session.ID, c.ID)
	}
}

func TestDeleteIsTotal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	window := f.openWindow(t, "https://a.test")

	session, err := f.mgr.Create(ctx, CreateOptions{WindowID: window.ID, Name: "Work"})
	require.NoError(t, err)

	deleted, err := f.mgr.Delete(ctx, session.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	summaries, err := f.mgr.List(ctx)
	require.NoError(t, err)
	require.Empty(t, summaries)
	_, found := f.repo.SessionFolder(ctx, session.ID)
	require.False(t, found)

	deleted, err = f.mgr.Delete(ctx, session.ID)
	require.NoError(t, err)
	require.False(t, deleted, "second delete finds nothing")
}

func TestDeleteClosedSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	window := f.openWindow(t, "https://a.test")

	session, err := f.mgr.Create(ctx, CreateOptions{WindowID: window.ID, Name: "Work"})
	require.NoError(t, err)
	f.tabs.CloseWindow(window.ID)

	deleted, err := f.mgr.Delete(ctx, session.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	closed, err := f.mgr.ClosedSessions(ctx)
	require.NoError(t, err)
	require.Empty(t, closed)
}

func TestRenameOpenAndClosed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	window := f.openWindow(t, "https://a.test")

	session, err := f.mgr.Create(ctx, CreateOptions{WindowID: window.ID, Name: "Work"})
	require.NoError(t, err)

	renamed, err := f.mgr.Rename(ctx, session.ID, "Research")
	require.NoError(t, err)
	require.True(t, renamed)
	folder, found := f.repo.SessionFolder(ctx, session.ID)
	require.True(t, found)
	require.Equal(t, "Research", folder.Name)

	f.tabs.CloseWindow(window.ID)
	renamed, err = f.mgr.Rename(ctx, session.ID, "Archive")
	require.NoError(t, err)
	require.True(t, renamed)
	closed, err := f.mgr.ClosedSessions(ctx)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	require.Equal(t, "Archive", closed[0].Name)

	_, err = f.mgr.Rename(ctx, session.ID, "")
	require.Error(t, err)
	renamed, err = f.mgr.Rename(ctx, "no-such-session", "Anything")
	require.NoError(t, err)
	require.False(t, renamed, "an unknown session is reported, not an error")
}

func TestCloneCopiesTabsAndSavedPages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	window := f.openWindow(t, "https://a.test", "https://b.test")

	session, err := f.mgr.Create(ctx, CreateOptions{WindowID: window.ID, Name: "Work"})
	require.NoError(t, err)
	require.NoError(t, f.mgr.SavePage(ctx, session.ID, pageFor("Paper", "https://paper.test")))

	clone, err := f.mgr.Clone(ctx, session.ID)
	require.NoError(t, err)
	require.NotEqual(t, session.ID, clone.ID)
	require.Equal(t, "Work (Copy)", clone.Name)
	require.Len(t, clone.Tabs, 2)

	// The clone is closed: it has no local record, only a mirror subtree.
	closed, err := f.mgr.ClosedSessions(ctx)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	require.Equal(t, clone.ID, closed[0].ID)

	pages := f.mgr.SavedPages(ctx, clone.ID)
	require.Len(t, pages, 1)
	require.Equal(t, "https://paper.test", pages[0].URL)
}

func TestCloneRequiresOpenSource(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	window := f.openWindow(t, "https://a.test")

	session, err := f.mgr.Create(ctx, CreateOptions{WindowID: window.ID, Name: "Work"})
	require.NoError(t, err)
	f.tabs.CloseWindow(window.ID)

	_, err = f.mgr.Clone(ctx, session.ID)
	require.Error(t, err)
}

func TestTakeoverActivatesExistingTab(t *testing.T) {
	ctx := context.Background()
	tree := memory.NewBookmarks()

	// Instance A mirrors the session; instance B sees it via the shared
	// tree and already has the URL open in one of its own windows.
	a := newFixture(tree)
	windowA := a.openWindow(t, "https://shared.test")
	session, err := a.mgr.Create(ctx, CreateOptions{WindowID: windowA.ID, Name: "Work"})
	require.NoError(t, err)

	b := newFixture(tree)
	windowB := b.openWindow(t, "https://shared.test")

	mirrored := b.mgr.SyncedOpenTabs(ctx, session.ID)
	require.Len(t, mirrored, 1)
	require.NoError(t, b.mgr.TakeoverTab(ctx, session.ID, mirrored[0].BookmarkID))

	// No new tab was opened; the existing one was activated.
	tabs, err := b.tabs.Query(ctx, host.TabQuery{WindowID: &windowB.ID})
	require.NoError(t, err)
	require.Len(t, tabs, 1)
	require.True(t, tabs[0].Active)

	after := b.mgr.SyncedOpenTabs(ctx, session.ID)
	require.Equal(t, b.mgr.InstanceID(ctx), after[0].Owner)
}

func TestTakeoverOpensMissingTab(t *testing.T) {
	ctx := context.Background()
	tree := memory.NewBookmarks()

	a := newFixture(tree)
	windowA := a.openWindow(t, "https://shared.test")
	session, err := a.mgr.Create(ctx, CreateOptions{WindowID: windowA.ID, Name: "Work"})
	require.NoError(t, err)

	b := newFixture(tree)
	windowB := b.openWindow(t, "https://other.test")

	mirrored := b.mgr.SyncedOpenTabs(ctx, session.ID)
	require.Len(t, mirrored, 1)
	require.NoError(t, b.mgr.TakeoverTab(ctx, session.ID, mirrored[0].BookmarkID))

	tabs, err := b.tabs.Query(ctx, host.TabQuery{URL: "https://shared.test", WindowID: &windowB.ID})
	require.NoError(t, err)
	require.Len(t, tabs, 1, "the url was opened in this instance")

	after := b.mgr.SyncedOpenTabs(ctx, session.ID)
	require.Equal(t, b.mgr.InstanceID(ctx), after[0].Owner)
}

func TestTakeoverUnknownTabFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	window := f.openWindow(t, "https://a.test")

	session, err := f.mgr.Create(ctx, CreateOptions{WindowID: window.ID, Name: "Work"})
	require.NoError(t, err)

	require.Error(t, f.mgr.TakeoverTab(ctx, session.ID, "no-such-bookmark"))
	require.Error(t, f.mgr.TakeoverTab(ctx, session.ID, ""))
}

func TestRestoreClosedSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	window := f.openWindow(t, "https://a.test", "https://b.test")

	session, err := f.mgr.Create(ctx, CreateOptions{WindowID: window.ID, Name: "Work"})
	require.NoError(t, err)
	f.tabs.CloseWindow(window.ID)

	restored, err := f.mgr.RestoreClosedSession(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, restored)
	require.Equal(t, session.ID, restored.ID, "restore keeps the original identity")
	require.Equal(t, "Work", restored.Name)
	require.True(t, restored.Open())

	tabs, err := f.tabs.Query(ctx, host.TabQuery{WindowID: restored.WindowID})
	require.NoError(t, err)
	require.Len(t, tabs, 3, "two restored tabs plus the anchor")

	var anchors int
	for _, tab := range tabs {
		if tab.Pinned {
			anchors++
			require.True(t, strings.HasPrefix(tab.URL, "tabstash://session?"))
			require.Contains(t, tab.URL, session.ID)
		}
	}
	require.Equal(t, 1, anchors)

	summaries, err := f.mgr.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.True(t, summaries[0].Open)
}

func TestRestoreUnknownSessionReturnsNil(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)

	restored, err := f.mgr.RestoreClosedSession(ctx, "no-such-session")
	require.NoError(t, err)
	require.Nil(t, restored)
}

func TestActivateRestoresWhenClosed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	window := f.openWindow(t, "https://a.test")

	session, err := f.mgr.Create(ctx, CreateOptions{WindowID: window.ID, Name: "Work"})
	require.NoError(t, err)
	f.tabs.CloseWindow(window.ID)

	require.NoError(t, f.mgr.Activate(ctx, session.ID))

	current, found, err := f.mgr.Get(ctx, session.ID)
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, current.Open())

	require.Error(t, f.mgr.Activate(ctx, "no-such-session"))
}

func TestFullSyncScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	window := f.openWindow(t)

	session, err := f.mgr.Create(ctx, CreateOptions{WindowID: window.ID, Name: "Work"})
	require.NoError(t, err)
	require.Empty(t, f.mgr.SyncedOpenTabs(ctx, session.ID), "zero tabs mirrored")

	tab, err := f.tabs.Create(ctx, host.CreateTabOptions{URL: "https://a.test", WindowID: &window.ID})
	require.NoError(t, err)
	_, err = f.mgr.UpdateTabs(ctx, session.ID, nil, false)
	require.NoError(t, err)

	mirrored := f.mgr.SyncedOpenTabs(ctx, session.ID)
	require.Len(t, mirrored, 1)
	require.Equal(t, "https://a.test", mirrored[0].URL)
	require.Equal(t, "Untitled", mirrored[0].Title, "titleless tabs get a placeholder label")

	// Move the tab out of the session's window; the next sync drops it.
	other, err := f.tabs.CreateWindow(ctx, "", false)
	require.NoError(t, err)
	require.NoError(t, f.tabs.Move(ctx, tab.ID, other.ID, 0))
	_, err = f.mgr.UpdateTabs(ctx, session.ID, nil, false)
	require.NoError(t, err)

	require.Empty(t, f.mgr.SyncedOpenTabs(ctx, session.ID))
}

// countingMirror counts sync calls on top of a real mirror.
type countingMirror struct {
	Mirror
	mu    sync.Mutex
	syncs int
}

func (c *countingMirror) SyncSession(ctx context.Context, session *types.NamedSession, tabs []types.NamedSessionTab) bool {
	c.mu.Lock()
	c.syncs++
	c.mu.Unlock()
	return c.Mirror.SyncSession(ctx, session, tabs)
}

func (c *countingMirror) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.syncs
}

func TestAutoSaveCoalescesMutations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	counter := &countingMirror{Mirror: f.repo}
	mgr := NewManager(f.storage, f.tabs, counter, config.SessionConfig{
		StorageKey:       "test.sessions",
		InstanceKey:      "test.instance",
		UIPageURL:        "tabstash://session",
		AutoSaveInterval: 100 * time.Millisecond,
	}, logging.NewNop())
	defer mgr.Close()

	window := f.openWindow(t, "https://a.test")
	session, err := mgr.Create(ctx, CreateOptions{WindowID: window.ID, Name: "Work"})
	require.NoError(t, err)
	_, err = mgr.UpdateTabs(ctx, session.ID, nil, false)
	require.NoError(t, err)
	require.Equal(t, 2, counter.count(), "each mutation syncs immediately")

	// Both mutations fall inside one pending window: the second must not
	// arm a second timer or reset the first, so exactly one deferred save
	// fires.
	require.Eventually(t, func() bool { return counter.count() >= 3 },
		2*time.Second, 5*time.Millisecond, "the deferred save fires")
	time.Sleep(250 * time.Millisecond)
	require.Equal(t, 3, counter.count(), "quiescence does not re-arm the timer")

	// The next mutation arms a fresh timer.
	_, err = mgr.UpdateTabs(ctx, session.ID, nil, false)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return counter.count() >= 5 },
		2*time.Second, 5*time.Millisecond)
}

// failingDeleteMirror rejects every subtree removal.
type failingDeleteMirror struct {
	Mirror
}

func (failingDeleteMirror) DeleteSessionFolder(context.Context, string) bool { return false }

func TestDeleteFailsLoudlyOnMirrorError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	mgr := NewManager(f.storage, f.tabs, &failingDeleteMirror{Mirror: f.repo}, config.SessionConfig{
		StorageKey:  "test.sessions",
		InstanceKey: "test.instance",
	}, logging.NewNop())

	window := f.openWindow(t, "https://a.test")
	session, err := mgr.Create(ctx, CreateOptions{WindowID: window.ID, Name: "Work"})
	require.NoError(t, err)

	_, err = mgr.Delete(ctx, session.ID)
	require.Error(t, err, "a surviving subtree must not be silent")

	// The local record is gone but the mirror still holds the session, so
	// it resurfaces as closed and a retry can take the closed path.
	closed, err := mgr.ClosedSessions(ctx)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	require.Equal(t, session.ID, closed[0].ID)
}

func TestCreateValidatesProvidedID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	window := f.openWindow(t, "https://a.test")

	_, err := f.mgr.Create(ctx, CreateOptions{WindowID: window.ID, Name: "Work", ID: "not-a-session-id"})
	require.Error(t, err)

	reused := id.NewSessionID()
	session, err := f.mgr.Create(ctx, CreateOptions{WindowID: window.ID, Name: "Work", ID: reused})
	require.NoError(t, err)
	require.Equal(t, reused, session.ID)
}

func TestInstanceIDStableAcrossRestarts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)

	first := f.mgr.InstanceID(ctx)
	require.NotEmpty(t, first)
	require.Equal(t, first, f.mgr.InstanceID(ctx))

	// A new manager over the same storage reads the persisted id.
	restarted := NewManager(f.storage, f.tabs, f.repo, config.SessionConfig{
		StorageKey:  "test.sessions",
		InstanceKey: "test.instance",
	}, logging.NewNop())
	require.Equal(t, first, restarted.InstanceID(ctx))
}
