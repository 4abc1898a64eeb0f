package bookmarks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tabstash/tabstash/internal/eventlog"
	"github.com/tabstash/tabstash/internal/host"
	"github.com/tabstash/tabstash/internal/infrastructure/logging"
	"github.com/tabstash/tabstash/internal/infrastructure/monitoring"
	"github.com/tabstash/tabstash/internal/shared/types"
	"github.com/tabstash/tabstash/internal/titlecodec"
)

// Subfolder titles of the three-node session subtree. Both must exist for
// a discovered folder to be usable.
const (
	openedPagesTitle = "Opened Pages"
	savedPagesTitle  = "Saved Pages"
)

// untitledLabel substitutes for tabs without a title.
const untitledLabel = "Untitled"

// unknownOwner substitutes when a mirrored tab title carries no decodable
// owner.
const unknownOwner = "unknown"

// folderEntry is a cached session folder plus the raw encoded title, kept
// so sync can skip redundant title writes.
type folderEntry struct {
	view  types.BookmarkSessionFolder
	title string
	meta  titlecodec.SessionMeta
}

// Repository maps session ids to bookmark subtrees.
type Repository struct {
	bookmarks   host.Bookmarks
	rootID      string
	parentTitle string
	logger      *logging.Logger
	metrics     *monitoring.Metrics
	events      *eventlog.Store

	mu       sync.Mutex
	parentID string
	folders  map[string]*folderEntry // session id -> folder
	loaded   bool
}

// New creates a repository rooted under the folder titled parentTitle,
// which is created beneath rootID if missing.
func New(b host.Bookmarks, rootID, parentTitle string, logger *logging.Logger) *Repository {
	return &Repository{
		bookmarks:   b,
		rootID:      rootID,
		parentTitle: parentTitle,
		logger:      logger,
		folders:     make(map[string]*folderEntry),
	}
}

// WithMetrics attaches a metrics collector.
func (r *Repository) WithMetrics(m *monitoring.Metrics) *Repository {
	r.metrics = m
	return r
}

// WithEvents attaches an event log.
func (r *Repository) WithEvents(e *eventlog.Store) *Repository {
	r.events = e
	return r
}

// SessionFolder returns the cached folder view for a session.
func (r *Repository) SessionFolder(ctx context.Context, sessionID string) (*types.BookmarkSessionFolder, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoadedLocked(ctx); err != nil {
		r.fail("SessionFolder", err)
		return nil, false
	}
	entry, ok := r.folders[sessionID]
	if !ok {
		return nil, false
	}
	view := entry.view
	return &view, true
}

// SessionIDs returns the ids of every discovered session folder.
func (r *Repository) SessionIDs(ctx context.Context) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoadedLocked(ctx); err != nil {
		r.fail("SessionIDs", err)
		return []string{}
	}
	ids := make([]string, 0, len(r.folders))
	for sessionID := range r.folders {
		ids = append(ids, sessionID)
	}
	return ids
}

// SyncSession upserts the session's subtree and reconciles its "Opened
// Pages" folder against tabs. The upsert writes the folder title only
// when the encoded form changed; reconciliation is run regardless.
// Returns false when any backend call failed.
func (r *Repository) SyncSession(ctx context.Context, session *types.NamedSession, tabs []types.NamedSessionTab) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoadedLocked(ctx); err != nil {
		r.fail("SyncSession", err)
		return false
	}

	meta := titlecodec.SessionMeta{ID: session.ID, UpdatedAt: session.UpdatedAt}
	encoded := titlecodec.EncodeSession(sessionLabel(session.Name), meta)

	entry, ok := r.folders[session.ID]
	if ok {
		if entry.title != encoded {
			if _, err := r.bookmarks.Update(ctx, entry.view.ID, encoded); err != nil {
				r.fail("SyncSession", fmt.Errorf("failed to update session folder title: %w", err))
				return false
			}
			entry.title = encoded
			entry.meta = meta
			entry.view.Name = sessionLabel(session.Name)
		}
	} else {
		created, err := r.createSubtreeLocked(ctx, session, encoded, meta)
		if err != nil {
			r.fail("SyncSession", err)
			return false
		}
		entry = created
	}

	if err := r.reconcileOpenedPagesLocked(ctx, entry, tabs); err != nil {
		r.fail("SyncSession", err)
		return false
	}

	if r.metrics != nil {
		r.metrics.SyncsTotal.Inc()
	}
	return true
}

// SyncedOpenTabs returns the mirrored open tabs for a session, each with
// the bookmark node id the takeover protocol addresses them by.
func (r *Repository) SyncedOpenTabs(ctx context.Context, sessionID string) []types.SyncedTab {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, err := r.folderLocked(ctx, sessionID)
	if err != nil {
		r.fail("SyncedOpenTabs", err)
		return []types.SyncedTab{}
	}

	children, err := r.bookmarks.Children(ctx, entry.view.OpenedPagesID)
	if err != nil {
		r.fail("SyncedOpenTabs", fmt.Errorf("failed to list opened pages: %w", err))
		return []types.SyncedTab{}
	}

	tabs := make([]types.SyncedTab, 0, len(children))
	for i := range children {
		node := &children[i]
		if node.Folder() {
			continue
		}
		label, meta := decodeTabTitle(node.Title)
		tabs = append(tabs, types.SyncedTab{
			BookmarkID: node.ID,
			Title:      label,
			URL:        node.URL,
			UpdatedAt:  meta.LastModified,
			Owner:      meta.Owner,
		})
	}
	return tabs
}

// SaveTab appends one entry to the session's additive "Saved Pages"
// collection. Saved pages are never reconciled against a desired set.
func (r *Repository) SaveTab(ctx context.Context, sessionID string, tab types.NamedSessionTab) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, err := r.folderLocked(ctx, sessionID)
	if err != nil {
		r.fail("SaveTab", err)
		return false
	}

	title := titlecodec.EncodeTab(tabLabel(tab.Title), titlecodec.TabMeta{
		LastModified: time.Now().UnixMilli(),
		Owner:        tab.Owner,
	})
	if _, err := r.bookmarks.Create(ctx, entry.view.SavedPagesID, title, tab.URL); err != nil {
		r.fail("SaveTab", fmt.Errorf("failed to create saved page: %w", err))
		return false
	}
	return true
}

// SavedPages lists the session's saved pages.
func (r *Repository) SavedPages(ctx context.Context, sessionID string) []types.SavedPage {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, err := r.folderLocked(ctx, sessionID)
	if err != nil {
		r.fail("SavedPages", err)
		return []types.SavedPage{}
	}

	children, err := r.bookmarks.Children(ctx, entry.view.SavedPagesID)
	if err != nil {
		r.fail("SavedPages", fmt.Errorf("failed to list saved pages: %w", err))
		return []types.SavedPage{}
	}

	pages := make([]types.SavedPage, 0, len(children))
	for i := range children {
		node := &children[i]
		if node.Folder() {
			continue
		}
		label, meta := decodeTabTitle(node.Title)
		pages = append(pages, types.SavedPage{
			BookmarkID: node.ID,
			Title:      label,
			URL:        node.URL,
			SavedAt:    meta.LastModified,
		})
	}
	return pages
}

// DeleteSavedPage removes one saved page by bookmark id.
func (r *Repository) DeleteSavedPage(ctx context.Context, sessionID, bookmarkID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.folderLocked(ctx, sessionID); err != nil {
		r.fail("DeleteSavedPage", err)
		return false
	}
	if err := r.bookmarks.Remove(ctx, bookmarkID); err != nil {
		r.fail("DeleteSavedPage", fmt.Errorf("failed to remove saved page: %w", err))
		return false
	}
	return true
}

// ClosedSessions materializes every cached folder whose session id is not
// in activeIDs into a ClosedNamedSession.
func (r *Repository) ClosedSessions(ctx context.Context, activeIDs []string) []types.ClosedNamedSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoadedLocked(ctx); err != nil {
		r.fail("ClosedSessions", err)
		return []types.ClosedNamedSession{}
	}

	active := make(map[string]struct{}, len(activeIDs))
	for _, sessionID := range activeIDs {
		active[sessionID] = struct{}{}
	}

	closed := make([]types.ClosedNamedSession, 0, len(r.folders))
	for sessionID, entry := range r.folders {
		if _, open := active[sessionID]; open {
			continue
		}

		children, err := r.bookmarks.Children(ctx, entry.view.OpenedPagesID)
		if err != nil {
			r.fail("ClosedSessions", fmt.Errorf("failed to list opened pages for %s: %w", sessionID, err))
			continue
		}

		tabs := make([]types.NamedSessionTab, 0, len(children))
		for i := range children {
			node := &children[i]
			if node.Folder() {
				continue
			}
			label, meta := decodeTabTitle(node.Title)
			tabs = append(tabs, types.NamedSessionTab{
				Title:     label,
				URL:       node.URL,
				UpdatedAt: meta.LastModified,
				Owner:     meta.Owner,
			})
		}

		updatedAt := entry.meta.UpdatedAt
		closed = append(closed, types.ClosedNamedSession{
			ID:        sessionID,
			Name:      entry.view.Name,
			Tabs:      tabs,
			CreatedAt: updatedAt,
			UpdatedAt: updatedAt,
		})
	}
	return closed
}

// UpdateTabOwner stamps owner onto one mirrored tab record. Unlike the
// rest of the repository this propagates errors: the takeover protocol
// must see a failed ownership write.
func (r *Repository) UpdateTabOwner(ctx context.Context, sessionID, bookmarkID, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, err := r.folderLocked(ctx, sessionID)
	if err != nil {
		return err
	}

	children, err := r.bookmarks.Children(ctx, entry.view.OpenedPagesID)
	if err != nil {
		return fmt.Errorf("failed to list opened pages: %w", err)
	}

	for i := range children {
		node := &children[i]
		if node.ID != bookmarkID {
			continue
		}
		label, meta := decodeTabTitle(node.Title)
		meta.Owner = owner
		meta.LastModified = time.Now().UnixMilli()
		encoded := titlecodec.EncodeTab(label, meta)
		if _, err := r.bookmarks.Update(ctx, node.ID, encoded); err != nil {
			return fmt.Errorf("failed to write tab ownership: %w", err)
		}
		return nil
	}
	return fmt.Errorf("tab %s not found in mirror for session %s", bookmarkID, sessionID)
}

// DeleteSessionFolder removes the session's entire subtree and forgets
// it. An absent folder counts as deleted; false means a removal was
// attempted and failed.
func (r *Repository) DeleteSessionFolder(ctx context.Context, sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoadedLocked(ctx); err != nil {
		r.fail("DeleteSessionFolder", err)
		return false
	}
	entry, ok := r.folders[sessionID]
	if !ok {
		return true
	}
	if err := r.bookmarks.RemoveSubtree(ctx, entry.view.ID); err != nil {
		r.fail("DeleteSessionFolder", fmt.Errorf("failed to remove session subtree: %w", err))
		return false
	}
	delete(r.folders, sessionID)
	if r.events != nil {
		r.events.Info(ctx, "mirror_folder_deleted", "", map[string]any{"sessionId": sessionID})
	}
	return true
}

// ensureLoadedLocked performs the one-time discovery scan: list the
// parent folder's children, decode each title, and register folders that
// carry a session id and hold both required subfolders. A folder missing
// either subfolder is silently skipped as not yet usable.
func (r *Repository) ensureLoadedLocked(ctx context.Context) error {
	if r.loaded {
		return nil
	}

	parentID, err := r.findOrCreateParent(ctx)
	if err != nil {
		return err
	}
	r.parentID = parentID

	children, err := r.bookmarks.Children(ctx, parentID)
	if err != nil {
		return fmt.Errorf("failed to list session folders: %w", err)
	}

	for i := range children {
		node := &children[i]
		if !node.Folder() {
			continue
		}
		name, meta, ok := titlecodec.DecodeSession(node.Title)
		if !ok {
			continue
		}

		sub, err := r.bookmarks.Children(ctx, node.ID)
		if err != nil {
			r.logger.Warn("Failed to inspect session folder",
				zap.String("folder_id", node.ID),
				zap.Error(err),
			)
			continue
		}
		var openedID, savedID string
		for j := range sub {
			child := &sub[j]
			if !child.Folder() {
				continue
			}
			switch child.Title {
			case openedPagesTitle:
				openedID = child.ID
			case savedPagesTitle:
				savedID = child.ID
			}
		}
		if openedID == "" || savedID == "" {
			continue
		}

		r.folders[meta.ID] = &folderEntry{
			view: types.BookmarkSessionFolder{
				ID:            node.ID,
				Name:          name,
				SessionID:     meta.ID,
				OpenedPagesID: openedID,
				SavedPagesID:  savedID,
			},
			title: node.Title,
			meta:  meta,
		}
	}

	r.loaded = true
	r.logger.Info("Discovered session folders", zap.Int("count", len(r.folders)))
	return nil
}

func (r *Repository) findOrCreateParent(ctx context.Context) (string, error) {
	children, err := r.bookmarks.Children(ctx, r.rootID)
	if err != nil {
		return "", fmt.Errorf("failed to list root folder: %w", err)
	}
	for i := range children {
		node := &children[i]
		if node.Folder() && node.Title == r.parentTitle {
			return node.ID, nil
		}
	}
	created, err := r.bookmarks.Create(ctx, r.rootID, r.parentTitle, "")
	if err != nil {
		return "", fmt.Errorf("failed to create parent folder: %w", err)
	}
	return created.ID, nil
}

func (r *Repository) createSubtreeLocked(ctx context.Context, session *types.NamedSession, encoded string, meta titlecodec.SessionMeta) (*folderEntry, error) {
	folder, err := r.bookmarks.Create(ctx, r.parentID, encoded, "")
	if err != nil {
		return nil, fmt.Errorf("failed to create session folder: %w", err)
	}
	opened, err := r.bookmarks.Create(ctx, folder.ID, openedPagesTitle, "")
	if err != nil {
		return nil, fmt.Errorf("failed to create opened pages folder: %w", err)
	}
	saved, err := r.bookmarks.Create(ctx, folder.ID, savedPagesTitle, "")
	if err != nil {
		return nil, fmt.Errorf("failed to create saved pages folder: %w", err)
	}

	entry := &folderEntry{
		view: types.BookmarkSessionFolder{
			ID:            folder.ID,
			Name:          sessionLabel(session.Name),
			SessionID:     session.ID,
			OpenedPagesID: opened.ID,
			SavedPagesID:  saved.ID,
		},
		title: encoded,
		meta:  meta,
	}
	r.folders[session.ID] = entry

	if r.events != nil {
		r.events.Info(ctx, "mirror_folder_created", "", map[string]any{
			"sessionId": session.ID,
			"folderId":  folder.ID,
		})
	}
	return entry, nil
}

// reconcileOpenedPagesLocked converges the "Opened Pages" folder to the
// desired tab list. URL is the natural key: host tab ids are ephemeral
// and per-instance. Existing bookmarks are updated in place only when the
// encoded title changed, which preserves bookmark identity and order and
// avoids write amplification. Bookmarks left unclaimed are deleted.
// Duplicate URLs in the desired list collapse to one bookmark.
func (r *Repository) reconcileOpenedPagesLocked(ctx context.Context, entry *folderEntry, tabs []types.NamedSessionTab) error {
	existing, err := r.bookmarks.Children(ctx, entry.view.OpenedPagesID)
	if err != nil {
		return fmt.Errorf("failed to list opened pages: %w", err)
	}

	index := make(map[string]*host.BookmarkNode, len(existing))
	for i := range existing {
		node := &existing[i]
		if node.Folder() {
			continue
		}
		index[node.URL] = node
	}

	// claimed maps url -> bookmark id, titles maps bookmark id -> the title
	// last written for it.
	claimed := make(map[string]string, len(tabs))
	titles := make(map[string]string, len(tabs))
	for i := range tabs {
		tab := &tabs[i]
		encoded := titlecodec.EncodeTab(tabLabel(tab.Title), titlecodec.TabMeta{
			LastModified: tab.UpdatedAt,
			Owner:        tab.Owner,
		})

		if bookmarkID, done := claimed[tab.URL]; done {
			// Duplicate URL in the desired list: the later tab overwrites
			// the earlier claim, still one bookmark per URL.
			if titles[bookmarkID] != encoded {
				if _, err := r.bookmarks.Update(ctx, bookmarkID, encoded); err != nil {
					return fmt.Errorf("failed to update opened page: %w", err)
				}
				titles[bookmarkID] = encoded
				r.recordOp(monitoring.OpUpdate)
			}
			continue
		}

		if node, ok := index[tab.URL]; ok {
			if node.Title != encoded {
				if _, err := r.bookmarks.Update(ctx, node.ID, encoded); err != nil {
					return fmt.Errorf("failed to update opened page: %w", err)
				}
				r.recordOp(monitoring.OpUpdate)
			}
			claimed[tab.URL] = node.ID
			titles[node.ID] = encoded
			delete(index, tab.URL)
			continue
		}

		created, err := r.bookmarks.Create(ctx, entry.view.OpenedPagesID, encoded, tab.URL)
		if err != nil {
			return fmt.Errorf("failed to create opened page: %w", err)
		}
		claimed[tab.URL] = created.ID
		titles[created.ID] = encoded
		r.recordOp(monitoring.OpCreate)
	}

	for _, node := range index {
		if err := r.bookmarks.Remove(ctx, node.ID); err != nil {
			return fmt.Errorf("failed to remove stale opened page: %w", err)
		}
		r.recordOp(monitoring.OpDelete)
	}
	return nil
}

// folderLocked combines ensureLoaded with a cache lookup.
func (r *Repository) folderLocked(ctx context.Context, sessionID string) (*folderEntry, error) {
	if err := r.ensureLoadedLocked(ctx); err != nil {
		return nil, err
	}
	entry, ok := r.folders[sessionID]
	if !ok {
		return nil, fmt.Errorf("no session folder for %s", sessionID)
	}
	return entry, nil
}

func (r *Repository) recordOp(op string) {
	if r.metrics != nil {
		r.metrics.RecordReconcileOp(op)
	}
}

// fail logs a swallowed error and counts it for operators; callers still
// receive the safe default.
func (r *Repository) fail(method string, err error) {
	r.logger.Error("Repository operation failed",
		zap.String("method", method),
		zap.Error(err),
	)
	if r.metrics != nil {
		r.metrics.RecordRepoError(method)
	}
	if r.events != nil {
		r.events.Error(context.Background(), "repository_error", err.Error(), map[string]any{"method": method})
	}
}

// decodeTabTitle decodes a mirrored tab title, substituting placeholders
// ("unknown" owner, current time) when the title carries no metadata.
func decodeTabTitle(title string) (string, titlecodec.TabMeta) {
	label, meta, ok := titlecodec.DecodeTab(title)
	if !ok {
		return title, titlecodec.TabMeta{
			LastModified: time.Now().UnixMilli(),
			Owner:        unknownOwner,
		}
	}
	if meta.Owner == "" {
		meta.Owner = unknownOwner
	}
	if meta.LastModified == 0 {
		meta.LastModified = time.Now().UnixMilli()
	}
	return label, meta
}

func sessionLabel(name string) string {
	if name == "" {
		return "Session"
	}
	return name
}

func tabLabel(title string) string {
	if title == "" {
		return untitledLabel
	}
	return title
}
