package bplus

import (
	"coredb/types"
	"fmt"
)

// newNode allocates a fresh page through the buffer pool and wraps it in
// an empty Node. The returned node is pinned — caller must releaseNode
// when done.
func (t *BPlusTree) newNode(nodeType NodeType) (*Node, error) {
	pg, err := t.bufferPool.NewPage(t.fileID, types.PageTypeBPlusNode)
	if err != nil {
		return nil, fmt.Errorf("newNode: failed to allocate page: %w", err)
	}

	n := &Node{
		pageID:   pg.ID,
		nodeType: nodeType,
		keys:     make([][]byte, 0),
		children: make([]int64, 0),
		values:   make([][]byte, 0),
		next:     -1,
		prev:     -1,
		parent:   -1,
		isDirty:  true,
		pincnt:   1,
	}

	// Serialize the empty state immediately so the page is never garbage
	// if it gets evicted before its first writeNode.
	if err := SerializeNode(n, pg.Data, t.keyWidth); err != nil {
		_ = t.bufferPool.UnpinPage(pg.ID, false)
		return nil, fmt.Errorf("newNode: initial serialize failed: %w", err)
	}
	pg.IsDirty = true

	return n, nil
}

// writeNode serializes a node back into its buffer pool frame and marks
// the frame dirty. It does NOT unpin — the caller keeps its pin until
// releaseNode.
func (t *BPlusTree) writeNode(n *Node) error {
	pg, err := t.bufferPool.FetchPage(n.pageID)
	if err != nil {
		return fmt.Errorf("writeNode: failed to fetch page %d: %w", n.pageID, err)
	}
	// FetchPage adds an extra pin — drop it once the serialize is done;
	// the pin from fetchNode/newNode remains.
	defer func() {
		_ = t.bufferPool.UnpinPage(n.pageID, false)
	}()

	if err := SerializeNode(n, pg.Data, t.keyWidth); err != nil {
		return fmt.Errorf("writeNode: serialize failed for page %d: %w", n.pageID, err)
	}

	if err := t.bufferPool.MarkDirty(n.pageID); err != nil {
		return fmt.Errorf("writeNode: failed to mark page %d dirty: %w", n.pageID, err)
	}

	// The page now carries the node's state; the in-memory node is clean.
	n.isDirty = false
	return nil
}

// fetchNode loads a node from the buffer pool (or disk via the pool).
// The returned node is pinned — caller must releaseNode when done.
func (t *BPlusTree) fetchNode(pageID int64) (*Node, error) {
	if pageID < 0 {
		return nil, fmt.Errorf("fetchNode: invalid pageID %d", pageID)
	}

	pg, err := t.bufferPool.FetchPage(pageID)
	if err != nil {
		return nil, fmt.Errorf("fetchNode: failed to fetch page %d: %w", pageID, err)
	}

	n, err := DeserializeNode(pg.Data, t.fileID, t.keyWidth)
	if err != nil {
		_ = t.bufferPool.UnpinPage(pageID, false)
		return nil, fmt.Errorf("fetchNode: deserialize failed for page %d: %w", pageID, err)
	}

	n.pageID = pageID // always override with the actual global ID
	n.pincnt = 1
	return n, nil
}

// freeNode unpins n and drops its page from the buffer pool — the release
// path for a node emptied out by a merge or a collapsed root. The page's
// bytes stay on disk but nothing references them anymore.
func (t *BPlusTree) freeNode(n *Node) {
	if n == nil {
		return
	}
	_ = t.bufferPool.UnpinPage(n.pageID, false)
	_ = t.bufferPool.DeletePage(n.pageID)
	n.pincnt = 0
}
