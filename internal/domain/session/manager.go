package session

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/tabstash/tabstash/internal/eventlog"
	"github.com/tabstash/tabstash/internal/host"
	"github.com/tabstash/tabstash/internal/infrastructure/config"
	"github.com/tabstash/tabstash/internal/infrastructure/logging"
	"github.com/tabstash/tabstash/internal/infrastructure/monitoring"
	"github.com/tabstash/tabstash/internal/shared/id"
	"github.com/tabstash/tabstash/internal/shared/types"
)

// Mirror is the bookmark mirror surface the lifecycle layer drives.
type Mirror interface {
	SyncSession(ctx context.Context, session *types.NamedSession, tabs []types.NamedSessionTab) bool
	SyncedOpenTabs(ctx context.Context, sessionID string) []types.SyncedTab
	SaveTab(ctx context.Context, sessionID string, tab types.NamedSessionTab) bool
	SavedPages(ctx context.Context, sessionID string) []types.SavedPage
	DeleteSavedPage(ctx context.Context, sessionID, bookmarkID string) bool
	ClosedSessions(ctx context.Context, activeIDs []string) []types.ClosedNamedSession
	UpdateTabOwner(ctx context.Context, sessionID, bookmarkID, owner string) error
	DeleteSessionFolder(ctx context.Context, sessionID string) bool
}

// Manager owns the local session map and orchestrates the mirror.
type Manager struct {
	storage host.Storage
	tabs    host.Tabs
	mirror  Mirror
	cfg     config.SessionConfig
	logger  *logging.Logger
	metrics *monitoring.Metrics
	events  *eventlog.Store

	mu          sync.Mutex
	instanceID  string
	saveTimer   *time.Timer
	savePending bool
}

// NewManager creates a session lifecycle manager.
func NewManager(storage host.Storage, tabs host.Tabs, mirror Mirror, cfg config.SessionConfig, logger *logging.Logger) *Manager {
	return &Manager{
		storage: storage,
		tabs:    tabs,
		mirror:  mirror,
		cfg:     cfg,
		logger:  logger,
	}
}

// WithMetrics attaches a metrics collector.
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// WithEvents attaches an event log.
func (m *Manager) WithEvents(events *eventlog.Store) *Manager {
	m.events = events
	return m
}

// CreateOptions configures session creation.
type CreateOptions struct {
	// WindowID is the host window the new session is bound to.
	WindowID int
	// Name must be non-empty after trimming.
	Name string
	// ID reuses an existing session identity; empty allocates a new one.
	ID string
	// Restoring skips the initial mirror sync. The restore path pushes the
	// full tab set itself once every tab is open.
	Restoring bool
}

// Create opens a new named session bound to a window.
func (m *Manager) Create(ctx context.Context, opts CreateOptions) (*types.NamedSession, error) {
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		return nil, fmt.Errorf("session name must not be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, err := m.loadLocked(ctx)
	if err != nil {
		return nil, err
	}

	sessionID := opts.ID
	if sessionID == "" {
		sessionID = id.NewSessionID()
	} else if !id.IsSessionID(sessionID) {
		return nil, fmt.Errorf("invalid session id %q", sessionID)
	}
	now := time.Now().UnixMilli()
	windowID := opts.WindowID
	session := &types.NamedSession{
		ID:        sessionID,
		Name:      name,
		WindowID:  &windowID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	sessions[sessionID] = session
	if err := m.persistLocked(ctx, sessions); err != nil {
		return nil, err
	}

	if !opts.Restoring {
		m.syncOpenLocked(ctx, session)
	}
	m.armAutoSaveLocked()

	if m.metrics != nil {
		m.metrics.SessionsCreated.Inc()
		m.metrics.SessionsOpen.Set(float64(len(sessions)))
	}
	if m.events != nil {
		m.events.Info(ctx, "session_created", "", map[string]any{"sessionId": sessionID, "name": name})
	}

	copied := *session
	return &copied, nil
}

// UpdateTabs refreshes a session's updatedAt, optionally rebinds its
// window, and mirrors the current tab set unless restoring.
func (m *Manager) UpdateTabs(ctx context.Context, sessionID string, windowID *int, restoring bool) (*types.NamedSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, err := m.loadLocked(ctx)
	if err != nil {
		return nil, err
	}
	session, ok := sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s is not open", sessionID)
	}

	session.UpdatedAt = time.Now().UnixMilli()
	if windowID != nil {
		session.WindowID = windowID
	}
	if err := m.persistLocked(ctx, sessions); err != nil {
		return nil, err
	}

	if !restoring {
		m.syncOpenLocked(ctx, session)
	}
	m.armAutoSaveLocked()

	copied := *session
	return &copied, nil
}

// Rename changes a session's name, open or closed. It reports whether
// the session was found; a found session can still fail to rename.
func (m *Manager) Rename(ctx context.Context, sessionID, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, fmt.Errorf("session name must not be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, err := m.loadLocked(ctx)
	if err != nil {
		return false, err
	}

	if session, ok := sessions[sessionID]; ok {
		session.Name = name
		session.UpdatedAt = time.Now().UnixMilli()
		if err := m.persistLocked(ctx, sessions); err != nil {
			return true, err
		}
		m.syncOpenLocked(ctx, session)
		m.armAutoSaveLocked()
		return true, nil
	}

	for _, closed := range m.mirror.ClosedSessions(ctx, activeIDs(sessions)) {
		if closed.ID != sessionID {
			continue
		}
		record := &types.NamedSession{
			ID:        sessionID,
			Name:      name,
			CreatedAt: closed.CreatedAt,
			UpdatedAt: time.Now().UnixMilli(),
		}
		if !m.mirror.SyncSession(ctx, record, closed.Tabs) {
			return true, fmt.Errorf("failed to rename mirrored session %s", sessionID)
		}
		return true, nil
	}
	return false, nil
}

// Delete removes a session's local record and its bookmark subtree. It
// handles both open and closed sessions and reports whether anything was
// deleted.
func (m *Manager) Delete(ctx context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, err := m.loadLocked(ctx)
	if err != nil {
		return false, err
	}

	if _, ok := sessions[sessionID]; ok {
		delete(sessions, sessionID)
		if err := m.persistLocked(ctx, sessions); err != nil {
			return false, err
		}
		if !m.mirror.DeleteSessionFolder(ctx, sessionID) {
			// The local record is already gone, so the session survives
			// only as a closed one; a retry takes the closed path.
			return false, fmt.Errorf("failed to delete mirrored session %s", sessionID)
		}
		m.recordDeleted(ctx, sessionID, len(sessions))
		return true, nil
	}

	for _, closed := range m.mirror.ClosedSessions(ctx, activeIDs(sessions)) {
		if closed.ID != sessionID {
			continue
		}
		if !m.mirror.DeleteSessionFolder(ctx, sessionID) {
			return false, fmt.Errorf("failed to delete mirrored session %s", sessionID)
		}
		m.recordDeleted(ctx, sessionID, len(sessions))
		return true, nil
	}
	return false, nil
}

// Clone copies an open session into a new closed session in the mirror.
// The copy is not transactional: a failed saved-page copy logs and
// continues, and already-copied tabs are never rolled back.
func (m *Manager) Clone(ctx context.Context, sessionID string) (*types.ClosedNamedSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, err := m.loadLocked(ctx)
	if err != nil {
		return nil, err
	}
	source, ok := sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s is not open", sessionID)
	}

	tabs := m.windowTabsLocked(ctx, *source.WindowID)
	now := time.Now().UnixMilli()
	clone := &types.NamedSession{
		ID:        id.NewSessionID(),
		Name:      source.Name + " (Copy)",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if !m.mirror.SyncSession(ctx, clone, tabs) {
		return nil, fmt.Errorf("failed to mirror cloned session %s", clone.ID)
	}

	owner := m.instanceIDLocked(ctx)
	for _, page := range m.mirror.SavedPages(ctx, sessionID) {
		copied := m.mirror.SaveTab(ctx, clone.ID, types.NamedSessionTab{
			Title:     page.Title,
			URL:       page.URL,
			UpdatedAt: page.SavedAt,
			Owner:     owner,
		})
		if !copied {
			m.logger.Warn("Failed to copy saved page",
				zap.String("session_id", clone.ID),
				zap.String("url", page.URL),
			)
		}
	}

	if m.events != nil {
		m.events.Info(ctx, "session_cloned", "", map[string]any{"sourceId": sessionID, "cloneId": clone.ID})
	}
	return &types.ClosedNamedSession{
		ID:        clone.ID,
		Name:      clone.Name,
		Tabs:      tabs,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// TakeoverTab claims a mirrored tab for this instance. The tab is
// addressed by its bookmark id in the mirror, not a live host tab id. If
// the tab's URL is already open in any window it is activated, otherwise
// a new tab is opened; either way the mirror record's owner is stamped
// with this instance's id. Errors propagate so a failed takeover is never
// silent.
func (m *Manager) TakeoverTab(ctx context.Context, sessionID, bookmarkID string) error {
	if bookmarkID == "" {
		return fmt.Errorf("takeover requires a mirror tab id")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var target *types.SyncedTab
	for _, tab := range m.mirror.SyncedOpenTabs(ctx, sessionID) {
		if tab.BookmarkID == bookmarkID {
			copied := tab
			target = &copied
			break
		}
	}
	if target == nil {
		return fmt.Errorf("tab %s not found in mirror for session %s", bookmarkID, sessionID)
	}

	existing, err := m.tabs.Query(ctx, host.TabQuery{URL: target.URL})
	if err != nil {
		return fmt.Errorf("failed to query tabs for takeover: %w", err)
	}
	if len(existing) > 0 {
		active := true
		if _, err := m.tabs.Update(ctx, existing[0].ID, host.UpdateTabOptions{Active: &active}); err != nil {
			return fmt.Errorf("failed to activate tab: %w", err)
		}
		if err := m.tabs.FocusWindow(ctx, existing[0].WindowID); err != nil {
			return fmt.Errorf("failed to focus window: %w", err)
		}
	} else {
		if _, err := m.tabs.Create(ctx, host.CreateTabOptions{URL: target.URL}); err != nil {
			return fmt.Errorf("failed to open tab: %w", err)
		}
	}

	owner := m.instanceIDLocked(ctx)
	if err := m.mirror.UpdateTabOwner(ctx, sessionID, bookmarkID, owner); err != nil {
		return err
	}

	if m.metrics != nil {
		m.metrics.TakeoversTotal.Inc()
	}
	if m.events != nil {
		m.events.Info(ctx, "tab_takeover", "", map[string]any{
			"sessionId":  sessionID,
			"bookmarkId": bookmarkID,
			"owner":      owner,
		})
	}
	return nil
}

// RestoreClosedSession rebuilds a closed session into a fresh window,
// reusing its original id. It returns nil (without an error) when the
// closed session cannot be found or the window cannot be created.
func (m *Manager) RestoreClosedSession(ctx context.Context, sessionID string) (*types.NamedSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.restoreLocked(ctx, sessionID)
}

// Activate focuses a session's window, restoring the session first if it
// is closed.
func (m *Manager) Activate(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, err := m.loadLocked(ctx)
	if err != nil {
		return err
	}
	if session, ok := sessions[sessionID]; ok {
		if err := m.tabs.FocusWindow(ctx, *session.WindowID); err != nil {
			return fmt.Errorf("failed to focus session window: %w", err)
		}
		return nil
	}

	restored, err := m.restoreLocked(ctx, sessionID)
	if err != nil {
		return err
	}
	if restored == nil {
		return fmt.Errorf("session %s not found", sessionID)
	}
	return m.tabs.FocusWindow(ctx, *restored.WindowID)
}

// Reassociate rebinds an open session to a different window.
func (m *Manager) Reassociate(ctx context.Context, sessionID string, windowID int) error {
	_, err := m.UpdateTabs(ctx, sessionID, &windowID, false)
	return err
}

// Get returns one open session.
func (m *Manager) Get(ctx context.Context, sessionID string) (*types.NamedSession, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, err := m.loadLocked(ctx)
	if err != nil {
		return nil, false, err
	}
	session, ok := sessions[sessionID]
	if !ok {
		return nil, false, nil
	}
	copied := *session
	return &copied, true, nil
}

// List merges open and closed sessions into summaries, most recently
// updated first. A session id present in the local map is never reported
// as closed, even if it also exists in the mirror.
func (m *Manager) List(ctx context.Context) ([]types.SessionSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, err := m.loadLocked(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]types.SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		count := 0
		if hostTabs, err := m.tabs.Query(ctx, host.TabQuery{WindowID: session.WindowID}); err == nil {
			count = len(hostTabs)
		}
		summaries = append(summaries, types.SessionSummary{
			ID:        session.ID,
			Name:      session.Name,
			Open:      true,
			WindowID:  session.WindowID,
			TabCount:  count,
			CreatedAt: session.CreatedAt,
			UpdatedAt: session.UpdatedAt,
		})
	}
	for _, closed := range m.mirror.ClosedSessions(ctx, activeIDs(sessions)) {
		summaries = append(summaries, types.SessionSummary{
			ID:        closed.ID,
			Name:      closed.Name,
			Open:      false,
			TabCount:  len(closed.Tabs),
			CreatedAt: closed.CreatedAt,
			UpdatedAt: closed.UpdatedAt,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].UpdatedAt != summaries[j].UpdatedAt {
			return summaries[i].UpdatedAt > summaries[j].UpdatedAt
		}
		return summaries[i].ID < summaries[j].ID
	})
	return summaries, nil
}

// ClosedSessions lists sessions known only via the mirror.
func (m *Manager) ClosedSessions(ctx context.Context) ([]types.ClosedNamedSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, err := m.loadLocked(ctx)
	if err != nil {
		return nil, err
	}
	return m.mirror.ClosedSessions(ctx, activeIDs(sessions)), nil
}

// SyncedOpenTabs lists a session's mirrored open tabs.
func (m *Manager) SyncedOpenTabs(ctx context.Context, sessionID string) []types.SyncedTab {
	return m.mirror.SyncedOpenTabs(ctx, sessionID)
}

// SavePage appends one page to a session's saved collection, stamped
// with this instance's id.
func (m *Manager) SavePage(ctx context.Context, sessionID string, tab types.NamedSessionTab) error {
	if tab.URL == "" {
		return fmt.Errorf("saved page requires a url")
	}
	if tab.UpdatedAt == 0 {
		tab.UpdatedAt = time.Now().UnixMilli()
	}

	m.mu.Lock()
	tab.Owner = m.instanceIDLocked(ctx)
	m.mu.Unlock()

	if !m.mirror.SaveTab(ctx, sessionID, tab) {
		return fmt.Errorf("failed to save page for session %s", sessionID)
	}
	return nil
}

// SavedPages lists a session's saved pages.
func (m *Manager) SavedPages(ctx context.Context, sessionID string) []types.SavedPage {
	return m.mirror.SavedPages(ctx, sessionID)
}

// DeleteSavedPage removes one saved page.
func (m *Manager) DeleteSavedPage(ctx context.Context, sessionID, bookmarkID string) error {
	if !m.mirror.DeleteSavedPage(ctx, sessionID, bookmarkID) {
		return fmt.Errorf("failed to delete saved page %s", bookmarkID)
	}
	return nil
}

// InstanceID returns this instance's identifier, generating and
// persisting one on first use.
func (m *Manager) InstanceID(ctx context.Context) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.instanceIDLocked(ctx)
}

// Close stops the auto-save timer.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveTimer != nil {
		m.saveTimer.Stop()
		m.savePending = false
	}
}

// restoreLocked implements the restore protocol: create a blank window
// first so nothing reacts to restored tabs mid-flight, write the local
// record reusing the original id, open every mirrored tab, then re-point
// the window's initial tab at the session page, pinned.
func (m *Manager) restoreLocked(ctx context.Context, sessionID string) (*types.NamedSession, error) {
	sessions, err := m.loadLocked(ctx)
	if err != nil {
		return nil, err
	}

	var source *types.ClosedNamedSession
	for _, closed := range m.mirror.ClosedSessions(ctx, activeIDs(sessions)) {
		if closed.ID == sessionID {
			copied := closed
			source = &copied
			break
		}
	}
	if source == nil {
		m.logger.Warn("Closed session not found for restore", zap.String("session_id", sessionID))
		return nil, nil
	}

	window, err := m.tabs.CreateWindow(ctx, "about:blank", true)
	if err != nil {
		m.logger.Warn("Failed to create window for restore",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return nil, nil
	}

	var anchorID int
	if winTabs, err := m.tabs.Query(ctx, host.TabQuery{WindowID: &window.ID}); err == nil && len(winTabs) > 0 {
		anchorID = winTabs[0].ID
	}

	now := time.Now().UnixMilli()
	createdAt := source.CreatedAt
	if createdAt == 0 {
		createdAt = now
	}
	session := &types.NamedSession{
		ID:        sessionID,
		Name:      source.Name,
		WindowID:  &window.ID,
		CreatedAt: createdAt,
		UpdatedAt: now,
	}
	sessions[sessionID] = session
	if err := m.persistLocked(ctx, sessions); err != nil {
		return nil, err
	}

	for _, tab := range source.Tabs {
		if _, err := m.tabs.Create(ctx, host.CreateTabOptions{URL: tab.URL, WindowID: &window.ID}); err != nil {
			m.logger.Warn("Failed to restore tab",
				zap.String("session_id", sessionID),
				zap.String("url", tab.URL),
				zap.Error(err),
			)
		}
	}

	if anchorID != 0 {
		anchorURL := m.sessionPageURL(session)
		pinned, active := true, true
		if _, err := m.tabs.Update(ctx, anchorID, host.UpdateTabOptions{URL: &anchorURL, Pinned: &pinned, Active: &active}); err != nil {
			m.logger.Warn("Failed to pin session anchor tab",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}
	}

	m.syncOpenLocked(ctx, session)
	m.armAutoSaveLocked()

	if m.metrics != nil {
		m.metrics.SessionsRestored.Inc()
		m.metrics.SessionsOpen.Set(float64(len(sessions)))
	}
	if m.events != nil {
		m.events.Info(ctx, "session_restored", "", map[string]any{
			"sessionId": sessionID,
			"windowId":  window.ID,
			"tabs":      len(source.Tabs),
		})
	}

	copied := *session
	return &copied, nil
}

// loadLocked reads the session map and demotes sessions whose window no
// longer exists. Demotion deletes the local record, leaving the session
// discoverable only via the mirror.
func (m *Manager) loadLocked(ctx context.Context) (map[string]*types.NamedSession, error) {
	sessions := make(map[string]*types.NamedSession)

	data, found, err := m.storage.Get(ctx, m.cfg.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read session map: %w", err)
	}
	if found {
		if err := sonic.Unmarshal(data, &sessions); err != nil {
			m.logger.Warn("Discarding malformed session map", zap.Error(err))
			sessions = make(map[string]*types.NamedSession)
		}
	}

	changed := false
	for sessionID, session := range sessions {
		if session.WindowID == nil {
			delete(sessions, sessionID)
			changed = true
			continue
		}
		if _, err := m.tabs.Window(ctx, *session.WindowID); err != nil {
			m.logger.Info("Demoting session with stale window",
				zap.String("session_id", sessionID),
				zap.Intp("window_id", session.WindowID),
			)
			delete(sessions, sessionID)
			changed = true
		}
	}
	if changed {
		if err := m.persistLocked(ctx, sessions); err != nil {
			return nil, err
		}
	}

	if m.metrics != nil {
		m.metrics.SessionsOpen.Set(float64(len(sessions)))
	}
	return sessions, nil
}

func (m *Manager) persistLocked(ctx context.Context, sessions map[string]*types.NamedSession) error {
	data, err := sonic.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("failed to serialize session map: %w", err)
	}
	if err := m.storage.Set(ctx, m.cfg.StorageKey, data); err != nil {
		return fmt.Errorf("failed to persist session map: %w", err)
	}
	return nil
}

// syncOpenLocked mirrors one open session's current tab set. Failures are
// logged and counted; sync is opportunistic and the next save retries.
func (m *Manager) syncOpenLocked(ctx context.Context, session *types.NamedSession) {
	if session.WindowID == nil {
		return
	}
	tabs := m.windowTabsLocked(ctx, *session.WindowID)
	if !m.mirror.SyncSession(ctx, session, tabs) {
		m.logger.Warn("Mirror sync failed", zap.String("session_id", session.ID))
		if m.metrics != nil {
			m.metrics.SyncFailures.Inc()
		}
	}
}

// windowTabsLocked snapshots a window's tabs as mirror records owned by
// this instance.
func (m *Manager) windowTabsLocked(ctx context.Context, windowID int) []types.NamedSessionTab {
	hostTabs, err := m.tabs.Query(ctx, host.TabQuery{WindowID: &windowID})
	if err != nil {
		m.logger.Warn("Failed to query window tabs",
			zap.Int("window_id", windowID),
			zap.Error(err),
		)
		return nil
	}

	owner := m.instanceIDLocked(ctx)
	now := time.Now().UnixMilli()
	out := make([]types.NamedSessionTab, 0, len(hostTabs))
	for i := range hostTabs {
		tabID := hostTabs[i].ID
		out = append(out, types.NamedSessionTab{
			TabID:     &tabID,
			Title:     hostTabs[i].Title,
			URL:       hostTabs[i].URL,
			UpdatedAt: now,
			Owner:     owner,
		})
	}
	return out
}

func (m *Manager) instanceIDLocked(ctx context.Context) string {
	if m.instanceID != "" {
		return m.instanceID
	}
	if data, found, err := m.storage.Get(ctx, m.cfg.InstanceKey); err == nil && found && len(data) > 0 {
		m.instanceID = string(data)
		return m.instanceID
	}
	m.instanceID = id.NewInstanceID()
	if err := m.storage.Set(ctx, m.cfg.InstanceKey, []byte(m.instanceID)); err != nil {
		m.logger.Warn("Failed to persist instance id", zap.Error(err))
	}
	return m.instanceID
}

// armAutoSaveLocked schedules the deferred save if one is not already
// pending. Activity does not reset an in-flight timer.
func (m *Manager) armAutoSaveLocked() {
	if m.cfg.AutoSaveInterval <= 0 || m.savePending {
		return
	}
	m.savePending = true
	m.saveTimer = time.AfterFunc(m.cfg.AutoSaveInterval, m.autoSave)
}

// autoSave mirrors every open named session. Failures are logged per
// session and never crash the timer.
func (m *Manager) autoSave() {
	ctx := context.Background()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.savePending = false

	sessions, err := m.loadLocked(ctx)
	if err != nil {
		m.logger.Warn("Auto-save skipped", zap.Error(err))
		return
	}
	for _, session := range sessions {
		if !session.Named() {
			continue
		}
		m.syncOpenLocked(ctx, session)
	}
}

func (m *Manager) recordDeleted(ctx context.Context, sessionID string, open int) {
	if m.metrics != nil {
		m.metrics.SessionsDeleted.Inc()
		m.metrics.SessionsOpen.Set(float64(open))
	}
	if m.events != nil {
		m.events.Info(ctx, "session_deleted", "", map[string]any{"sessionId": sessionID})
	}
}

func (m *Manager) sessionPageURL(session *types.NamedSession) string {
	params := url.Values{}
	params.Set("sessionId", session.ID)
	if session.Name != "" {
		params.Set("name", session.Name)
	}
	return m.cfg.UIPageURL + "?" + params.Encode()
}

func activeIDs(sessions map[string]*types.NamedSession) []string {
	ids := make([]string, 0, len(sessions))
	for sessionID := range sessions {
		ids = append(ids, sessionID)
	}
	return ids
}
