// Structure of B+ Tree
/*
Tree
 ├── Internal Node (keys + child pointers)
 │      └── Child Internal Nodes ...
 │             └── Leaf Nodes (keys + values + prev/next pointers)

- keys: sorted ascending under the tree's typed comparator
- internal nodes: len(children) == len(keys); keys[i] is the smallest key
  in children[i]'s subtree, so the child covering k is upperBound(k)-1
- leaf nodes: values length == len(keys)
- leaf nodes form a doubly linked chain (prev/next) bounded by the
  firstLeaf/lastLeaf page IDs kept on the metadata page
- all leaf nodes at same depth
- every non-root node holds between minKeys and order keys
*/
package bplus

import (
	"coredb/storage_engine/bufferpool"
	diskmanager "coredb/storage_engine/disk_manager"
	"sync"
)

type NodeType int

const (
	NodeInternal NodeType = iota
	NodeLeaf
)

const (
	// DefaultOrder is the per-node key capacity used unless the caller
	// asks for a smaller tree (mostly useful to force deep trees in
	// tests). Wide composite keys clamp it further so that order+1
	// entries — the transient overflow a split repairs — still fit a
	// page.
	DefaultOrder = 32

	MaxKeyWidth = 256 // in bytes

	// ridValueSize is the fixed width of every leaf value: an encoded
	// Rid (page number int64 + slot int32).
	ridValueSize = 12
)

type Node struct {
	pageID   int64
	nodeType NodeType
	keys     [][]byte // sorted keys, each exactly keyWidth bytes
	children []int64  // internal only; children[i] pairs with keys[i]
	values   [][]byte // leaf only; values[i] belongs to keys[i]
	next     int64    // leaf chain forward link, -1 at the last leaf
	prev     int64    // leaf chain backward link, -1 at the first leaf
	parent   int64

	isDirty bool
	pincnt  int16
	mu      sync.RWMutex
}

type BPlusTree struct {
	fileID      uint32                   // DiskManager file ID for this index
	root        int64                    // global page ID of the root, -1 when the tree is empty
	firstLeaf   int64                    // global page ID of the leftmost leaf, -1 when empty
	lastLeaf    int64                    // global page ID of the rightmost leaf, -1 when empty
	order       int                      // max keys per node
	keyWidth    int                      // composite key width (sum of indexed column lens)
	bufferPool  *bufferpool.BufferPool   // shared buffer pool
	diskManager *diskmanager.DiskManager // shared disk manager
	cmp         func(a, b []byte) int    // typed composite-key comparator
	mu          sync.RWMutex             // serializes structural changes
}

// minKeys is the underflow threshold: a non-root node must keep at least
// ceil(order/2) keys.
func (t *BPlusTree) minKeys() int {
	return (t.order + 1) / 2
}
