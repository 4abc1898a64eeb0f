package host

import "context"

// Storage is the host's durable key-value store. Values are opaque JSON
// payloads. Get returns found=false for absent keys; absence is not an
// error.
type Storage interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// BookmarkNode is one node of the bookmark tree. A node with an empty URL
// is a folder; presence of a URL is the only folder/bookmark distinction
// the host offers.
type BookmarkNode struct {
	ID       string `json:"id"`
	ParentID string `json:"parentId"`
	Title    string `json:"title"`
	URL      string `json:"url,omitempty"`
}

// Folder reports whether the node is a folder.
func (n *BookmarkNode) Folder() bool { return n.URL == "" }

// Bookmarks is the host's bookmark tree storage.
type Bookmarks interface {
	// Create adds a folder (empty url) or bookmark under parentID.
	Create(ctx context.Context, parentID, title, url string) (*BookmarkNode, error)
	// Update rewrites a node's title.
	Update(ctx context.Context, id, title string) (*BookmarkNode, error)
	// Remove deletes a leaf node.
	Remove(ctx context.Context, id string) error
	// RemoveSubtree deletes a folder and everything beneath it.
	RemoveSubtree(ctx context.Context, id string) error
	// Children lists the immediate children of a folder.
	Children(ctx context.Context, id string) ([]BookmarkNode, error)
	// Get fetches a single node; it fails if the node is absent.
	Get(ctx context.Context, id string) (*BookmarkNode, error)
}

// Tab is one host tab.
type Tab struct {
	ID       int    `json:"id"`
	WindowID int    `json:"windowId"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Active   bool   `json:"active"`
	Pinned   bool   `json:"pinned"`
}

// Window is one host window.
type Window struct {
	ID      int  `json:"id"`
	Focused bool `json:"focused"`
}

// TabQuery filters Query results. Zero-value fields match everything.
type TabQuery struct {
	URL      string `json:"url,omitempty"`
	WindowID *int   `json:"windowId,omitempty"`
}

// CreateTabOptions configures tab creation. A nil WindowID targets the
// most recently focused window.
type CreateTabOptions struct {
	URL      string `json:"url"`
	WindowID *int   `json:"windowId,omitempty"`
	Pinned   bool   `json:"pinned,omitempty"`
}

// UpdateTabOptions mutates a tab in place; nil fields are untouched.
type UpdateTabOptions struct {
	Active *bool   `json:"active,omitempty"`
	URL    *string `json:"url,omitempty"`
	Pinned *bool   `json:"pinned,omitempty"`
}

// Tabs is the host's tab and window control surface.
type Tabs interface {
	Query(ctx context.Context, q TabQuery) ([]Tab, error)
	Create(ctx context.Context, opts CreateTabOptions) (*Tab, error)
	Update(ctx context.Context, id int, opts UpdateTabOptions) (*Tab, error)
	Move(ctx context.Context, id, windowID, index int) error
	CreateWindow(ctx context.Context, url string, focused bool) (*Window, error)
	Windows(ctx context.Context) ([]Window, error)
	// Window fetches one window; it fails if the window no longer exists,
	// which is how stale sessions are detected.
	Window(ctx context.Context, id int) (*Window, error)
	FocusWindow(ctx context.Context, id int) error
}
