package bplus

import "fmt"

// Search looks key up and returns its stored value, or nil when the key is
// absent (an empty tree included).
func (t *BPlusTree) Search(key []byte) ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.root < 0 {
		return nil, nil
	}

	leaf, err := t.FindLeaf(t.root, key)
	if err != nil {
		return nil, fmt.Errorf("Search: %w", err)
	}
	defer t.bufferPool.UnpinPage(leaf.pageID, false)

	if idx := findEqual(leaf.keys, key, t.cmp); idx >= 0 {
		out := make([]byte, len(leaf.values[idx]))
		copy(out, leaf.values[idx])
		return out, nil
	}
	return nil, nil
}
