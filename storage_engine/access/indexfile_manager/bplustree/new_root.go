package bplus

import "fmt"

// createNewRoot grows the tree by one level: a fresh internal root over
// the two halves of a split root, each paired with its subtree's smallest
// key.
func (t *BPlusTree) createNewRoot(leftPageID int64, leftKey []byte, rightPageID int64, rightKey []byte) error {
	root, err := t.newNode(NodeInternal)
	if err != nil {
		return fmt.Errorf("createNewRoot: failed to allocate new root: %w", err)
	}
	defer t.releaseNode(root, true)

	root.keys = append(root.keys, leftKey, rightKey)
	root.children = append(root.children, leftPageID, rightPageID)
	root.parent = -1

	for _, childID := range []int64{leftPageID, rightPageID} {
		if err := t.setParent(childID, root.pageID); err != nil {
			return fmt.Errorf("createNewRoot: %w", err)
		}
	}

	root.isDirty = true
	if err := t.writeNode(root); err != nil {
		return err
	}

	t.root = root.pageID
	return t.saveMeta()
}
