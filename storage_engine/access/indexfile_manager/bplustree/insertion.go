package bplus

import "fmt"

// Insertion adds a key/value entry. Inserting a key that is already
// present is a silent no-op — callers that care whether anything changed
// compare Search results before and after, the entry count is the
// observable.
func (t *BPlusTree) Insertion(key []byte, value []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(key) != t.keyWidth {
		return fmt.Errorf("Insertion: key is %d bytes, index expects %d", len(key), t.keyWidth)
	}
	if len(value) != ridValueSize {
		return fmt.Errorf("Insertion: value is %d bytes, want %d", len(value), ridValueSize)
	}

	// Empty tree: the new root leaf is also both ends of the leaf chain.
	if t.root < 0 {
		root, err := t.newNode(NodeLeaf)
		if err != nil {
			return fmt.Errorf("Insertion: failed to allocate root: %w", err)
		}
		root.keys = append(root.keys, key)
		root.values = append(root.values, value)
		root.isDirty = true
		if err := t.writeNode(root); err != nil {
			t.releaseNode(root, false)
			return err
		}
		t.root = root.pageID
		t.firstLeaf = root.pageID
		t.lastLeaf = root.pageID
		t.releaseNode(root, true)
		return t.saveMeta()
	}

	leaf, err := t.FindLeaf(t.root, key)
	if err != nil {
		return fmt.Errorf("Insertion: failed to find leaf: %w", err)
	}
	defer t.bufferPool.UnpinPage(leaf.pageID, true)

	if findEqual(leaf.keys, key, t.cmp) >= 0 {
		return nil // duplicate key
	}

	insertPos := lowerBound(leaf.keys, key, t.cmp)
	leaf.keys = insert(leaf.keys, insertPos, key)
	leaf.values = insert(leaf.values, insertPos, value)
	leaf.isDirty = true
	if err := t.writeNode(leaf); err != nil {
		return err
	}

	// A new smallest key changes what every ancestor separator for this
	// subtree should say.
	if insertPos == 0 && leaf.parent >= 0 {
		if err := t.maintainParent(leaf); err != nil {
			return err
		}
	}

	if len(leaf.keys) > t.order {
		return t.splitLeaf(leaf)
	}
	return nil
}
