package types

// NamedSession is the authoritative record of a session while it is open.
// ID is immutable once assigned and joins the local record with the
// bookmark mirror.
type NamedSession struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	WindowID  *int   `json:"windowId,omitempty"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// Open reports whether the session is bound to a live window.
func (s *NamedSession) Open() bool {
	return s.WindowID != nil
}

// Named reports whether the session carries a user-assigned name.
// Only named sessions participate in auto-save.
func (s *NamedSession) Named() bool {
	return s.Name != ""
}

// NamedSessionTab is one tab's last-known state as mirrored into a bookmark.
// TabID is host-assigned and only meaningful while the tab is open in this
// instance; it is nil for tabs known only via the mirror. Owner identifies
// the instance that last wrote the record and is the conflict-resolution
// key for the takeover protocol.
type NamedSessionTab struct {
	TabID     *int   `json:"tabId,omitempty"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	UpdatedAt int64  `json:"updatedAt"`
	Owner     string `json:"owner"`
}

// SyncedTab is a mirrored open tab together with the bookmark node backing
// it. BookmarkID is the mirror-level tab identifier used by the takeover
// protocol.
type SyncedTab struct {
	BookmarkID string `json:"bookmarkId"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	UpdatedAt  int64  `json:"updatedAt"`
	Owner      string `json:"owner"`
}

// BookmarkSessionFolder is the materialized view of the three-node bookmark
// subtree for one session. It is cached in memory after discovery or
// creation and is always re-derivable from the tree by decoding titles.
type BookmarkSessionFolder struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	SessionID     string `json:"sessionId"`
	OpenedPagesID string `json:"openedPagesId"`
	SavedPagesID  string `json:"savedPagesId"`
}

// ClosedNamedSession is a session reconstructed entirely from the bookmark
// mirror, for sessions absent from local storage.
type ClosedNamedSession struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Tabs      []NamedSessionTab `json:"tabs"`
	CreatedAt int64             `json:"createdAt"`
	UpdatedAt int64             `json:"updatedAt"`
}

// SavedPage is one entry in a session's additive "Saved Pages" collection.
type SavedPage struct {
	BookmarkID string `json:"bookmarkId"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	SavedAt    int64  `json:"savedAt"`
}

// SessionSummary merges open and closed sessions for listing surfaces.
type SessionSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Open      bool   `json:"open"`
	WindowID  *int   `json:"windowId,omitempty"`
	TabCount  int    `json:"tabCount"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}
