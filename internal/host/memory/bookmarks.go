package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/tabstash/tabstash/internal/host"
)

// RootFolderID is the id of the implicit root folder.
const RootFolderID = "0"

// Bookmarks is an in-memory bookmark tree.
type Bookmarks struct {
	mu     sync.RWMutex
	nodes  map[string]*host.BookmarkNode
	order  map[string][]string // parent id -> child ids in insertion order
	nextID int
}

// NewBookmarks creates a tree holding only the root folder.
func NewBookmarks() *Bookmarks {
	b := &Bookmarks{
		nodes:  make(map[string]*host.BookmarkNode),
		order:  make(map[string][]string),
		nextID: 1,
	}
	b.nodes[RootFolderID] = &host.BookmarkNode{ID: RootFolderID, Title: "Bookmarks"}
	return b
}

// Create adds a folder or bookmark under parentID.
func (b *Bookmarks) Create(_ context.Context, parentID, title, url string) (*host.BookmarkNode, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	parent, ok := b.nodes[parentID]
	if !ok {
		return nil, fmt.Errorf("bookmark parent %s not found", parentID)
	}
	if !parent.Folder() {
		return nil, fmt.Errorf("bookmark parent %s is not a folder", parentID)
	}

	node := &host.BookmarkNode{
		ID:       strconv.Itoa(b.nextID),
		ParentID: parentID,
		Title:    title,
		URL:      url,
	}
	b.nextID++
	b.nodes[node.ID] = node
	b.order[parentID] = append(b.order[parentID], node.ID)

	copied := *node
	return &copied, nil
}

// Update rewrites a node's title.
func (b *Bookmarks) Update(_ context.Context, id, title string) (*host.BookmarkNode, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	node, ok := b.nodes[id]
	if !ok {
		return nil, fmt.Errorf("bookmark %s not found", id)
	}
	node.Title = title

	copied := *node
	return &copied, nil
}

// Remove deletes a leaf node.
func (b *Bookmarks) Remove(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	node, ok := b.nodes[id]
	if !ok {
		return fmt.Errorf("bookmark %s not found", id)
	}
	if len(b.order[id]) > 0 {
		return fmt.Errorf("bookmark %s is a non-empty folder", id)
	}
	b.unlink(node)
	return nil
}

// RemoveSubtree deletes a node and everything beneath it.
func (b *Bookmarks) RemoveSubtree(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	node, ok := b.nodes[id]
	if !ok {
		return fmt.Errorf("bookmark %s not found", id)
	}
	b.removeRecursive(node)
	return nil
}

// Children lists the immediate children of a folder in insertion order.
func (b *Bookmarks) Children(_ context.Context, id string) ([]host.BookmarkNode, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if _, ok := b.nodes[id]; !ok {
		return nil, fmt.Errorf("bookmark %s not found", id)
	}

	ids := b.order[id]
	children := make([]host.BookmarkNode, 0, len(ids))
	for _, childID := range ids {
		children = append(children, *b.nodes[childID])
	}
	return children, nil
}

// Get fetches one node.
func (b *Bookmarks) Get(_ context.Context, id string) (*host.BookmarkNode, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	node, ok := b.nodes[id]
	if !ok {
		return nil, fmt.Errorf("bookmark %s not found", id)
	}
	copied := *node
	return &copied, nil
}

func (b *Bookmarks) removeRecursive(node *host.BookmarkNode) {
	for _, childID := range b.order[node.ID] {
		if child, ok := b.nodes[childID]; ok {
			b.removeRecursive(child)
		}
	}
	delete(b.order, node.ID)
	b.unlink(node)
}

func (b *Bookmarks) unlink(node *host.BookmarkNode) {
	siblings := b.order[node.ParentID]
	for i, sibID := range siblings {
		if sibID == node.ID {
			b.order[node.ParentID] = append(siblings[:i], siblings[i+1:]...)
			break
		}
	}
	delete(b.nodes, node.ID)
}
