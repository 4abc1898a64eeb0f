package bookmarks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tabstash/tabstash/internal/host"
	"github.com/tabstash/tabstash/internal/host/memory"
	"github.com/tabstash/tabstash/internal/infrastructure/logging"
	"github.com/tabstash/tabstash/internal/shared/types"
	"github.com/tabstash/tabstash/internal/titlecodec"
)

// countingBookmarks wraps a backend and counts write calls.
type countingBookmarks struct {
	host.Bookmarks
	creates int
	updates int
	removes int
}

func (c *countingBookmarks) Create(ctx context.Context, parentID, title, url string) (*host.BookmarkNode, error) {
	c.creates++
	return c.Bookmarks.Create(ctx, parentID, title, url)
}

func (c *countingBookmarks) Update(ctx context.Context, id, title string) (*host.BookmarkNode, error) {
	c.updates++
	return c.Bookmarks.Update(ctx, id, title)
}

func (c *countingBookmarks) Remove(ctx context.Context, id string) error {
	c.removes++
	return c.Bookmarks.Remove(ctx, id)
}

func (c *countingBookmarks) reset() {
	c.creates, c.updates, c.removes = 0, 0, 0
}

func newTestRepo(b host.Bookmarks) *Repository {
	return New(b, memory.RootFolderID, "Tab Sessions", logging.NewNop())
}

func testSession(id, name string) *types.NamedSession {
	return &types.NamedSession{ID: id, Name: name, CreatedAt: 1000, UpdatedAt: 1000}
}

func testTab(title, url string) types.NamedSessionTab {
	return types.NamedSessionTab{Title: title, URL: url, UpdatedAt: 1000, Owner: "inst-a"}
}

func TestSyncCreatesSubtree(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(memory.NewBookmarks())

	ok := repo.SyncSession(ctx, testSession("s1", "Work"), []types.NamedSessionTab{
		testTab("Inbox", "https://mail.example.com"),
		testTab("Docs", "https://docs.example.com"),
	})
	require.True(t, ok)

	folder, found := repo.SessionFolder(ctx, "s1")
	require.True(t, found)
	require.Equal(t, "Work", folder.Name)
	require.NotEmpty(t, folder.OpenedPagesID)
	require.NotEmpty(t, folder.SavedPagesID)

	tabs := repo.SyncedOpenTabs(ctx, "s1")
	require.Len(t, tabs, 2)
	require.Equal(t, "Inbox", tabs[0].Title)
	require.Equal(t, "https://mail.example.com", tabs[0].URL)
	require.Equal(t, "inst-a", tabs[0].Owner)
}

func TestSyncIdempotent(t *testing.T) {
	ctx := context.Background()
	counting := &countingBookmarks{Bookmarks: memory.NewBookmarks()}
	repo := newTestRepo(counting)

	session := testSession("s1", "Work")
	tabs := []types.NamedSessionTab{
		testTab("Inbox", "https://mail.example.com"),
		testTab("Docs", "https://docs.example.com"),
	}
	require.True(t, repo.SyncSession(ctx, session, tabs))

	counting.reset()
	require.True(t, repo.SyncSession(ctx, session, tabs))
	require.Zero(t, counting.creates, "unchanged sync must not create")
	require.Zero(t, counting.updates, "unchanged sync must not rewrite titles")
	require.Zero(t, counting.removes, "unchanged sync must not delete")
}

func TestReconcileConvergesByURL(t *testing.T) {
	ctx := context.Background()
	counting := &countingBookmarks{Bookmarks: memory.NewBookmarks()}
	repo := newTestRepo(counting)

	session := testSession("s1", "Work")
	require.True(t, repo.SyncSession(ctx, session, []types.NamedSessionTab{
		testTab("A", "https://a.example.com"),
		testTab("B", "https://b.example.com"),
		testTab("C", "https://c.example.com"),
	}))

	counting.reset()
	require.True(t, repo.SyncSession(ctx, session, []types.NamedSessionTab{
		testTab("B", "https://b.example.com"),
		testTab("C", "https://c.example.com"),
		testTab("D", "https://d.example.com"),
	}))
	require.Equal(t, 1, counting.creates, "only D is new")
	require.Equal(t, 0, counting.updates, "B and C are unchanged")
	require.Equal(t, 1, counting.removes, "only A is stale")

	urls := make([]string, 0, 3)
	for _, tab := range repo.SyncedOpenTabs(ctx, "s1") {
		urls = append(urls, tab.URL)
	}
	require.ElementsMatch(t, urls, []string{
		"https://b.example.com",
		"https://c.example.com",
		"https://d.example.com",
	})
}

func TestReconcileCollapsesDuplicateURLs(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(memory.NewBookmarks())

	require.True(t, repo.SyncSession(ctx, testSession("s1", "Work"), []types.NamedSessionTab{
		testTab("First", "https://dup.example.com"),
		testTab("Second", "https://dup.example.com"),
	}))

	tabs := repo.SyncedOpenTabs(ctx, "s1")
	require.Len(t, tabs, 1)
	require.Equal(t, "Second", tabs[0].Title, "the later tab wins the claim")
}

func TestSyncRenamesFolder(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(memory.NewBookmarks())

	session := testSession("s1", "Work")
	require.True(t, repo.SyncSession(ctx, session, nil))

	session.Name = "Research"
	session.UpdatedAt = 2000
	require.True(t, repo.SyncSession(ctx, session, nil))

	folder, found := repo.SessionFolder(ctx, "s1")
	require.True(t, found)
	require.Equal(t, "Research", folder.Name)
}

func TestDiscoveryRequiresBothSubfolders(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewBookmarks()

	parent, err := backend.Create(ctx, memory.RootFolderID, "Tab Sessions", "")
	require.NoError(t, err)

	// Complete subtree.
	complete, err := backend.Create(ctx, parent.ID,
		titlecodec.EncodeSession("Work", titlecodec.SessionMeta{ID: "s1", UpdatedAt: 1000}), "")
	require.NoError(t, err)
	_, err = backend.Create(ctx, complete.ID, "Opened Pages", "")
	require.NoError(t, err)
	_, err = backend.Create(ctx, complete.ID, "Saved Pages", "")
	require.NoError(t, err)

	// Subtree missing "Saved Pages".
	partial, err := backend.Create(ctx, parent.ID,
		titlecodec.EncodeSession("Broken", titlecodec.SessionMeta{ID: "s2", UpdatedAt: 1000}), "")
	require.NoError(t, err)
	_, err = backend.Create(ctx, partial.ID, "Opened Pages", "")
	require.NoError(t, err)

	// Folder with no session id at all.
	_, err = backend.Create(ctx, parent.ID, "Manually created", "")
	require.NoError(t, err)

	repo := newTestRepo(backend)
	require.ElementsMatch(t, repo.SessionIDs(ctx), []string{"s1"})
}

func TestDiscoveryAcceptsLegacyFolderTitles(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewBookmarks()

	parent, err := backend.Create(ctx, memory.RootFolderID, "Tab Sessions", "")
	require.NoError(t, err)
	legacy, err := backend.Create(ctx, parent.ID,
		"Work (3f2a9c10-aaaa-bbbb-cccc-0123456789ab)", "")
	require.NoError(t, err)
	_, err = backend.Create(ctx, legacy.ID, "Opened Pages", "")
	require.NoError(t, err)
	_, err = backend.Create(ctx, legacy.ID, "Saved Pages", "")
	require.NoError(t, err)

	repo := newTestRepo(backend)
	folder, found := repo.SessionFolder(ctx, "3f2a9c10-aaaa-bbbb-cccc-0123456789ab")
	require.True(t, found)
	require.Equal(t, "Work", folder.Name)
}

func TestClosedSessionsExcludesActive(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(memory.NewBookmarks())

	require.True(t, repo.SyncSession(ctx, testSession("s1", "Work"), []types.NamedSessionTab{
		testTab("Inbox", "https://mail.example.com"),
	}))
	require.True(t, repo.SyncSession(ctx, testSession("s2", "Play"), []types.NamedSessionTab{
		testTab("Game", "https://game.example.com"),
	}))

	closed := repo.ClosedSessions(ctx, []string{"s1"})
	require.Len(t, closed, 1)
	require.Equal(t, "s2", closed[0].ID)
	require.Equal(t, "Play", closed[0].Name)
	require.Len(t, closed[0].Tabs, 1)
	require.Equal(t, "https://game.example.com", closed[0].Tabs[0].URL)

	require.Empty(t, repo.ClosedSessions(ctx, []string{"s1", "s2"}))
}

func TestSavedPagesAreAdditive(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(memory.NewBookmarks())

	session := testSession("s1", "Work")
	require.True(t, repo.SyncSession(ctx, session, nil))
	require.True(t, repo.SaveTab(ctx, "s1", testTab("Paper", "https://paper.example.com")))
	require.True(t, repo.SaveTab(ctx, "s1", testTab("Video", "https://video.example.com")))

	// Open-tab reconciliation must not touch saved pages.
	require.True(t, repo.SyncSession(ctx, session, []types.NamedSessionTab{
		testTab("Inbox", "https://mail.example.com"),
	}))

	pages := repo.SavedPages(ctx, "s1")
	require.Len(t, pages, 2)
	require.Equal(t, "Paper", pages[0].Title)

	require.True(t, repo.DeleteSavedPage(ctx, "s1", pages[0].BookmarkID))
	pages = repo.SavedPages(ctx, "s1")
	require.Len(t, pages, 1)
	require.Equal(t, "Video", pages[0].Title)
}

func TestUpdateTabOwner(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(memory.NewBookmarks())

	require.True(t, repo.SyncSession(ctx, testSession("s1", "Work"), []types.NamedSessionTab{
		testTab("Inbox", "https://mail.example.com"),
	}))
	tabs := repo.SyncedOpenTabs(ctx, "s1")
	require.Len(t, tabs, 1)

	require.NoError(t, repo.UpdateTabOwner(ctx, "s1", tabs[0].BookmarkID, "inst-b"))
	tabs = repo.SyncedOpenTabs(ctx, "s1")
	require.Equal(t, "inst-b", tabs[0].Owner)
	require.Equal(t, "Inbox", tabs[0].Title, "ownership write keeps the label")

	require.Error(t, repo.UpdateTabOwner(ctx, "s1", "no-such-bookmark", "inst-b"))
	require.Error(t, repo.UpdateTabOwner(ctx, "no-such-session", tabs[0].BookmarkID, "inst-b"))
}

func TestDeleteSessionFolder(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(memory.NewBookmarks())

	require.True(t, repo.SyncSession(ctx, testSession("s1", "Work"), []types.NamedSessionTab{
		testTab("Inbox", "https://mail.example.com"),
	}))
	require.True(t, repo.DeleteSessionFolder(ctx, "s1"))

	_, found := repo.SessionFolder(ctx, "s1")
	require.False(t, found)
	require.True(t, repo.DeleteSessionFolder(ctx, "s1"), "an absent folder counts as deleted")
}

func TestOpaqueTabTitlesGetPlaceholders(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewBookmarks()
	repo := newTestRepo(backend)

	require.True(t, repo.SyncSession(ctx, testSession("s1", "Work"), nil))
	folder, found := repo.SessionFolder(ctx, "s1")
	require.True(t, found)

	// A bookmark written by hand, with no metadata block.
	_, err := backend.Create(ctx, folder.OpenedPagesID, "Plain bookmark", "https://plain.example.com")
	require.NoError(t, err)

	tabs := repo.SyncedOpenTabs(ctx, "s1")
	require.Len(t, tabs, 1)
	require.Equal(t, "Plain bookmark", tabs[0].Title)
	require.Equal(t, "unknown", tabs[0].Owner)
	require.NotZero(t, tabs[0].UpdatedAt)
}
