package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tabstash/tabstash/internal/cache"
	"github.com/tabstash/tabstash/internal/domain/session"
	"github.com/tabstash/tabstash/internal/eventlog"
	"github.com/tabstash/tabstash/internal/shared/types"
)

// Handlers contains all HTTP handlers for the session API.
type Handlers struct {
	sessions *session.Manager
	events   *eventlog.Store
	digests  *cache.PersistentCache[types.PageDigest]
}

// NewHandlers creates a new handler set.
func NewHandlers(sessions *session.Manager, events *eventlog.Store, digests *cache.PersistentCache[types.PageDigest]) *Handlers {
	return &Handlers{
		sessions: sessions,
		events:   events,
		digests:  digests,
	}
}

// Root reports service identity.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "tabstash",
	})
}

// Health reports service health.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"instance": h.sessions.InstanceID(c.Request.Context()),
	})
}

// ListSessions returns open and closed sessions merged.
func (h *Handlers) ListSessions(c *gin.Context) {
	summaries, err := h.sessions.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "sessions": summaries})
}

// ListClosedSessions returns sessions known only via the bookmark mirror.
func (h *Handlers) ListClosedSessions(c *gin.Context) {
	closed, err := h.sessions.ClosedSessions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "sessions": closed})
}

type createSessionRequest struct {
	WindowID int    `json:"windowId" binding:"required"`
	Name     string `json:"name"`
	ID       string `json:"id"`
}

// CreateSession opens a new named session bound to a window.
func (h *Handlers) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.sessions.Create(c.Request.Context(), session.CreateOptions{
		WindowID: req.WindowID,
		Name:     req.Name,
		ID:       req.ID,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "session": created})
}

// GetSession returns one open session.
func (h *Handlers) GetSession(c *gin.Context) {
	found, ok, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "session": found})
}

type renameSessionRequest struct {
	Name string `json:"name" binding:"required"`
}

// RenameSession changes a session's name, open or closed.
func (h *Handlers) RenameSession(c *gin.Context) {
	var req renameSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	found, err := h.sessions.Rename(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteSession removes a session and its bookmark subtree.
func (h *Handlers) DeleteSession(c *gin.Context) {
	deleted, err := h.sessions.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type updateTabsRequest struct {
	WindowID *int `json:"windowId"`
}

// UpdateSessionTabs refreshes a session and mirrors its current tab set.
func (h *Handlers) UpdateSessionTabs(c *gin.Context) {
	var req updateTabsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated, err := h.sessions.UpdateTabs(c.Request.Context(), c.Param("id"), req.WindowID, false)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "session": updated})
}

// GetSyncedTabs lists a session's mirrored open tabs.
func (h *Handlers) GetSyncedTabs(c *gin.Context) {
	tabs := h.sessions.SyncedOpenTabs(c.Request.Context(), c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"success": true, "tabs": tabs})
}

// CloneSession copies an open session into a new closed session.
func (h *Handlers) CloneSession(c *gin.Context) {
	clone, err := h.sessions.Clone(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "session": clone})
}

// ActivateSession focuses a session's window, restoring it first if
// closed.
func (h *Handlers) ActivateSession(c *gin.Context) {
	if err := h.sessions.Activate(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RestoreSession rebuilds a closed session into a fresh window.
func (h *Handlers) RestoreSession(c *gin.Context) {
	restored, err := h.sessions.RestoreClosedSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if restored == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "closed session not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "session": restored})
}

type reassociateRequest struct {
	WindowID int `json:"windowId" binding:"required"`
}

// ReassociateSession rebinds an open session to a different window.
func (h *Handlers) ReassociateSession(c *gin.Context) {
	var req reassociateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.sessions.Reassociate(c.Request.Context(), c.Param("id"), req.WindowID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type takeoverRequest struct {
	BookmarkID string `json:"bookmarkId" binding:"required"`
}

// TakeoverTab claims a mirrored tab for this instance.
func (h *Handlers) TakeoverTab(c *gin.Context) {
	var req takeoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.sessions.TakeoverTab(c.Request.Context(), c.Param("id"), req.BookmarkID); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type savePageRequest struct {
	Title string `json:"title"`
	URL   string `json:"url" binding:"required"`
}

// SavePage appends one page to a session's saved collection.
func (h *Handlers) SavePage(c *gin.Context) {
	var req savePageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := h.sessions.SavePage(c.Request.Context(), c.Param("id"), types.NamedSessionTab{
		Title: req.Title,
		URL:   req.URL,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListSavedPages lists a session's saved pages.
func (h *Handlers) ListSavedPages(c *gin.Context) {
	pages := h.sessions.SavedPages(c.Request.Context(), c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"success": true, "pages": pages})
}

// DeleteSavedPage removes one saved page.
func (h *Handlers) DeleteSavedPage(c *gin.Context) {
	if err := h.sessions.DeleteSavedPage(c.Request.Context(), c.Param("id"), c.Param("bookmarkId")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetDigest returns one cached page digest.
func (h *Handlers) GetDigest(c *gin.Context) {
	digest, found, err := h.digests.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "digest not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "digest": digest})
}

type putDigestRequest struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Summary string `json:"summary" binding:"required"`
}

// PutDigest stores one page digest.
func (h *Handlers) PutDigest(c *gin.Context) {
	var req putDigestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	digest := types.PageDigest{
		URL:       req.URL,
		Title:     req.Title,
		Summary:   req.Summary,
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := h.digests.Put(c.Request.Context(), c.Param("key"), digest); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListEvents returns recent event log entries, newest last.
func (h *Handlers) ListEvents(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}
	entries := h.events.Recent(c.Request.Context(), limit)
	c.JSON(http.StatusOK, gin.H{"success": true, "events": entries})
}
