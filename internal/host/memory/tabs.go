package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tabstash/tabstash/internal/host"
)

// Tabs is an in-memory tab and window surface.
type Tabs struct {
	mu         sync.RWMutex
	tabs       map[int]*host.Tab
	windows    map[int]*host.Window
	nextTab    int
	nextWindow int
	focused    int
}

// NewTabs creates an empty surface.
func NewTabs() *Tabs {
	return &Tabs{
		tabs:       make(map[int]*host.Tab),
		windows:    make(map[int]*host.Window),
		nextTab:    1,
		nextWindow: 1,
	}
}

// Query returns tabs matching q, ordered by tab id.
func (t *Tabs) Query(_ context.Context, q host.TabQuery) ([]host.Tab, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []host.Tab
	for _, tab := range t.tabs {
		if q.URL != "" && tab.URL != q.URL {
			continue
		}
		if q.WindowID != nil && tab.WindowID != *q.WindowID {
			continue
		}
		out = append(out, *tab)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Create opens a new tab.
func (t *Tabs) Create(_ context.Context, opts host.CreateTabOptions) (*host.Tab, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	windowID := t.focused
	if opts.WindowID != nil {
		windowID = *opts.WindowID
	}
	if _, ok := t.windows[windowID]; !ok {
		return nil, fmt.Errorf("window %d not found", windowID)
	}

	tab := &host.Tab{
		ID:       t.nextTab,
		WindowID: windowID,
		URL:      opts.URL,
		Pinned:   opts.Pinned,
	}
	t.nextTab++
	t.tabs[tab.ID] = tab

	copied := *tab
	return &copied, nil
}

// Update mutates a tab. Setting Active focuses the tab within its window.
func (t *Tabs) Update(_ context.Context, id int, opts host.UpdateTabOptions) (*host.Tab, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tab, ok := t.tabs[id]
	if !ok {
		return nil, fmt.Errorf("tab %d not found", id)
	}
	if opts.URL != nil {
		tab.URL = *opts.URL
	}
	if opts.Pinned != nil {
		tab.Pinned = *opts.Pinned
	}
	if opts.Active != nil && *opts.Active {
		for _, other := range t.tabs {
			if other.WindowID == tab.WindowID {
				other.Active = false
			}
		}
		tab.Active = true
	}

	copied := *tab
	return &copied, nil
}

// Move reattaches a tab to another window. The index is accepted for
// interface parity but insertion order is not modeled.
func (t *Tabs) Move(_ context.Context, id, windowID, _ int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	tab, ok := t.tabs[id]
	if !ok {
		return fmt.Errorf("tab %d not found", id)
	}
	if _, ok := t.windows[windowID]; !ok {
		return fmt.Errorf("window %d not found", windowID)
	}
	tab.WindowID = windowID
	return nil
}

// CreateWindow opens a new window, optionally with an initial tab.
func (t *Tabs) CreateWindow(_ context.Context, url string, focused bool) (*host.Window, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	window := &host.Window{ID: t.nextWindow, Focused: focused}
	t.nextWindow++
	t.windows[window.ID] = window
	if focused {
		t.setFocusLocked(window.ID)
	}

	if url != "" {
		tab := &host.Tab{ID: t.nextTab, WindowID: window.ID, URL: url, Active: true}
		t.nextTab++
		t.tabs[tab.ID] = tab
	}

	copied := *window
	return &copied, nil
}

// Windows lists all open windows ordered by id.
func (t *Tabs) Windows(_ context.Context) ([]host.Window, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]host.Window, 0, len(t.windows))
	for _, w := range t.windows {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Window fetches one window, failing when it no longer exists.
func (t *Tabs) Window(_ context.Context, id int) (*host.Window, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	w, ok := t.windows[id]
	if !ok {
		return nil, fmt.Errorf("window %d not found", id)
	}
	copied := *w
	return &copied, nil
}

// FocusWindow brings a window to the front.
func (t *Tabs) FocusWindow(_ context.Context, id int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.windows[id]; !ok {
		return fmt.Errorf("window %d not found", id)
	}
	t.setFocusLocked(id)
	return nil
}

// CloseWindow removes a window and its tabs. Tests use it to simulate the
// user closing a session's window.
func (t *Tabs) CloseWindow(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.windows, id)
	for tabID, tab := range t.tabs {
		if tab.WindowID == id {
			delete(t.tabs, tabID)
		}
	}
	if t.focused == id {
		t.focused = 0
	}
}

func (t *Tabs) setFocusLocked(id int) {
	for _, w := range t.windows {
		w.Focused = w.ID == id
	}
	t.focused = id
}
