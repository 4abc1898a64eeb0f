package remote

import (
	"context"

	"github.com/tabstash/tabstash/internal/host"
)

// Bookmarks implements host.Bookmarks over the bridge.
type Bookmarks struct {
	client *Client
}

type bookmarkWriteRequest struct {
	ParentID string `json:"parentId,omitempty"`
	ID       string `json:"id,omitempty"`
	Title    string `json:"title,omitempty"`
	URL      string `json:"url,omitempty"`
}

// Create adds a folder or bookmark under parentID.
func (b *Bookmarks) Create(ctx context.Context, parentID, title, url string) (*host.BookmarkNode, error) {
	var node host.BookmarkNode
	req := bookmarkWriteRequest{ParentID: parentID, Title: title, URL: url}
	if err := b.client.call(ctx, "/bookmarks/create", req, &node); err != nil {
		return nil, err
	}
	return &node, nil
}

// Update rewrites a node's title.
func (b *Bookmarks) Update(ctx context.Context, id, title string) (*host.BookmarkNode, error) {
	var node host.BookmarkNode
	req := bookmarkWriteRequest{ID: id, Title: title}
	if err := b.client.call(ctx, "/bookmarks/update", req, &node); err != nil {
		return nil, err
	}
	return &node, nil
}

// Remove deletes a leaf node.
func (b *Bookmarks) Remove(ctx context.Context, id string) error {
	return b.client.call(ctx, "/bookmarks/remove", map[string]string{"id": id}, nil)
}

// RemoveSubtree deletes a node and everything beneath it.
func (b *Bookmarks) RemoveSubtree(ctx context.Context, id string) error {
	return b.client.call(ctx, "/bookmarks/remove-subtree", map[string]string{"id": id}, nil)
}

// Children lists the immediate children of a folder.
func (b *Bookmarks) Children(ctx context.Context, id string) ([]host.BookmarkNode, error) {
	var out struct {
		Nodes []host.BookmarkNode `json:"nodes"`
	}
	if err := b.client.call(ctx, "/bookmarks/children", map[string]string{"id": id}, &out); err != nil {
		return nil, err
	}
	return out.Nodes, nil
}

// Get fetches one node.
func (b *Bookmarks) Get(ctx context.Context, id string) (*host.BookmarkNode, error) {
	var node host.BookmarkNode
	if err := b.client.call(ctx, "/bookmarks/get", map[string]string{"id": id}, &node); err != nil {
		return nil, err
	}
	return &node, nil
}
