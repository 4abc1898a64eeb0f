package remote

import (
	"context"

	"github.com/tabstash/tabstash/internal/host"
)

// Tabs implements host.Tabs over the bridge.
type Tabs struct {
	client *Client
}

// Query returns tabs matching q.
func (t *Tabs) Query(ctx context.Context, q host.TabQuery) ([]host.Tab, error) {
	var out struct {
		Tabs []host.Tab `json:"tabs"`
	}
	if err := t.client.call(ctx, "/tabs/query", q, &out); err != nil {
		return nil, err
	}
	return out.Tabs, nil
}

// Create opens a new tab.
func (t *Tabs) Create(ctx context.Context, opts host.CreateTabOptions) (*host.Tab, error) {
	var tab host.Tab
	if err := t.client.call(ctx, "/tabs/create", opts, &tab); err != nil {
		return nil, err
	}
	return &tab, nil
}

// Update mutates a tab in place.
func (t *Tabs) Update(ctx context.Context, id int, opts host.UpdateTabOptions) (*host.Tab, error) {
	var tab host.Tab
	body := struct {
		ID int `json:"id"`
		host.UpdateTabOptions
	}{ID: id, UpdateTabOptions: opts}
	if err := t.client.call(ctx, "/tabs/update", body, &tab); err != nil {
		return nil, err
	}
	return &tab, nil
}

// Move reattaches a tab to another window at the given index.
func (t *Tabs) Move(ctx context.Context, id, windowID, index int) error {
	body := map[string]int{"id": id, "windowId": windowID, "index": index}
	return t.client.call(ctx, "/tabs/move", body, nil)
}

// CreateWindow opens a new window.
func (t *Tabs) CreateWindow(ctx context.Context, url string, focused bool) (*host.Window, error) {
	var window host.Window
	body := struct {
		URL     string `json:"url,omitempty"`
		Focused bool   `json:"focused"`
	}{URL: url, Focused: focused}
	if err := t.client.call(ctx, "/windows/create", body, &window); err != nil {
		return nil, err
	}
	return &window, nil
}

// Windows lists all open windows.
func (t *Tabs) Windows(ctx context.Context) ([]host.Window, error) {
	var out struct {
		Windows []host.Window `json:"windows"`
	}
	if err := t.client.call(ctx, "/windows/list", nil, &out); err != nil {
		return nil, err
	}
	return out.Windows, nil
}

// Window fetches one window, failing when it no longer exists.
func (t *Tabs) Window(ctx context.Context, id int) (*host.Window, error) {
	var window host.Window
	if err := t.client.call(ctx, "/windows/get", map[string]int{"id": id}, &window); err != nil {
		return nil, err
	}
	return &window, nil
}

// FocusWindow brings a window to the front.
func (t *Tabs) FocusWindow(ctx context.Context, id int) error {
	return t.client.call(ctx, "/windows/focus", map[string]int{"id": id}, nil)
}
