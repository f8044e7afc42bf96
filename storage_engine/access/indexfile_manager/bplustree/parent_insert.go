package bplus

import "fmt"

// insertIntoParent wires a freshly split-off sibling into the parent of
// the node it split from: the (sepKey, rightId) pair lands immediately
// after the left child's entry. Overflow propagates by splitting the
// parent in turn.
func (t *BPlusTree) insertIntoParent(parentId int64, leftId int64, sepKey []byte, rightId int64) error {
	parent, err := t.fetchNode(parentId)
	if err != nil {
		return fmt.Errorf("insertIntoParent: failed to fetch parent %d: %w", parentId, err)
	}
	defer t.bufferPool.UnpinPage(parentId, true)

	idx := 0
	for idx < len(parent.children) && parent.children[idx] != leftId {
		idx++
	}
	if idx >= len(parent.children) {
		return fmt.Errorf("insertIntoParent: node %d is not a child of %d", leftId, parentId)
	}

	parent.keys = insert(parent.keys, idx+1, sepKey)
	parent.children = insert(parent.children, idx+1, rightId)

	if err := t.setParent(rightId, parentId); err != nil {
		return fmt.Errorf("insertIntoParent: %w", err)
	}

	parent.isDirty = true
	if err := t.writeNode(parent); err != nil {
		return err
	}

	if len(parent.keys) > t.order {
		return t.splitInternal(parent)
	}
	return nil
}
