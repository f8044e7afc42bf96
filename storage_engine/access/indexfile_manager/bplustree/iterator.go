package bplus

import (
	"fmt"

	"coredb/types"
)

// Iterator is a forward-only cursor over the leaf chain. It is lazy and
// non-restartable: the current leaf stays pinned between calls, and
// advancing past a leaf boundary swaps that pin for the successor's. A
// cursor abandoned mid-range must be Closed to drop its pin.
type Iterator struct {
	tree  *BPlusTree
	leaf  *Node
	index int
	valid bool
}

// SeekGE positions a cursor at the first entry whose key is >= target,
// or at an invalid cursor when no such entry exists.
func (t *BPlusTree) SeekGE(target []byte) *Iterator {
	t.mu.RLock()
	defer t.mu.RUnlock()

	it := &Iterator{tree: t}
	if t.root < 0 {
		return it
	}

	leaf, err := t.FindLeaf(t.root, target)
	if err != nil {
		return it
	}

	i := lowerBound(leaf.keys, target, t.cmp)
	if i >= len(leaf.keys) {
		// Every key in this leaf is below target; the first qualifying
		// entry, if any, opens the next leaf.
		nextID := leaf.next
		_ = t.bufferPool.UnpinPage(leaf.pageID, false)
		if nextID < 0 {
			return it
		}
		next, err := t.fetchNode(nextID)
		if err != nil || len(next.keys) == 0 {
			if next != nil {
				t.releaseNode(next, false)
			}
			return it
		}
		it.leaf = next
		it.index = 0
		it.valid = true
		return it
	}

	it.leaf = leaf
	it.index = i
	it.valid = true
	return it
}

// SeekFirst positions a cursor at the smallest key in the tree, straight
// off the firstLeaf pointer rather than a keyed descent.
func (t *BPlusTree) SeekFirst() *Iterator {
	t.mu.RLock()
	defer t.mu.RUnlock()

	it := &Iterator{tree: t}
	if t.firstLeaf < 0 {
		return it
	}

	leaf, err := t.fetchNode(t.firstLeaf)
	if err != nil || len(leaf.keys) == 0 {
		if leaf != nil {
			t.releaseNode(leaf, false)
		}
		return it
	}

	it.leaf = leaf
	it.index = 0
	it.valid = true
	return it
}

// Next advances the cursor, following the leaf chain at boundaries.
// Returns false once the range is exhausted, at which point the cursor
// holds no pin.
func (it *Iterator) Next() bool {
	if !it.valid {
		return false
	}
	it.index++
	if it.index < len(it.leaf.keys) {
		return true
	}

	nextID := it.leaf.next
	_ = it.tree.bufferPool.UnpinPage(it.leaf.pageID, false)
	it.leaf = nil
	if nextID < 0 {
		it.valid = false
		return false
	}

	next, err := it.tree.fetchNode(nextID)
	if err != nil || len(next.keys) == 0 {
		if next != nil {
			it.tree.releaseNode(next, false)
		}
		it.valid = false
		return false
	}

	it.leaf = next
	it.index = 0
	return true
}

// Close releases the pinned leaf of a cursor abandoned before exhaustion.
func (it *Iterator) Close() {
	if it.leaf != nil {
		_ = it.tree.bufferPool.UnpinPage(it.leaf.pageID, false)
		it.leaf = nil
	}
	it.valid = false
}

// Valid reports whether the cursor currently sits on an entry.
func (it *Iterator) Valid() bool { return it.valid }

// Entry returns the current key/value pair; dereferencing an exhausted or
// never-positioned cursor reports ErrIndexEntryNotFound.
func (it *Iterator) Entry() (key, value []byte, err error) {
	if !it.valid {
		return nil, nil, fmt.Errorf("Entry: %w", types.ErrIndexEntryNotFound)
	}
	return it.leaf.keys[it.index], it.leaf.values[it.index], nil
}

// Key returns the current entry's key, nil on an invalid cursor.
func (it *Iterator) Key() []byte {
	if !it.valid {
		return nil
	}
	return it.leaf.keys[it.index]
}

// Value returns the current entry's value, nil on an invalid cursor.
func (it *Iterator) Value() []byte {
	if !it.valid {
		return nil
	}
	return it.leaf.values[it.index]
}
