package bplus

import "fmt"

// splitInternal splits an overflowing internal node. With keys and
// children paired one-to-one, the split is the same shape as a leaf's:
// the right sibling takes the upper half of both arrays and its first key
// becomes the new separator in the parent — nothing is promoted out.
func (t *BPlusTree) splitInternal(node *Node) error {
	mid := len(node.keys) / 2

	right, err := t.newNode(NodeInternal)
	if err != nil {
		return fmt.Errorf("splitInternal: failed to allocate right sibling: %w", err)
	}
	defer t.releaseNode(right, true)

	right.keys = append(right.keys, node.keys[mid:]...)
	right.children = append(right.children, node.children[mid:]...)
	right.parent = node.parent

	for _, childID := range right.children {
		if err := t.setParent(childID, right.pageID); err != nil {
			return fmt.Errorf("splitInternal: %w", err)
		}
	}

	node.keys = node.keys[:mid]
	node.children = node.children[:mid]
	node.isDirty = true
	if err := t.writeNode(node); err != nil {
		return err
	}
	right.isDirty = true
	if err := t.writeNode(right); err != nil {
		return err
	}

	if node.pageID == t.root {
		return t.createNewRoot(node.pageID, node.keys[0], right.pageID, right.keys[0])
	}
	return t.insertIntoParent(node.parent, node.pageID, right.keys[0], right.pageID)
}

// setParent rewrites one node's parent pointer in place.
func (t *BPlusTree) setParent(nodeID, parentID int64) error {
	child, err := t.fetchNode(nodeID)
	if err != nil {
		return fmt.Errorf("setParent: failed to fetch node %d: %w", nodeID, err)
	}
	child.parent = parentID
	child.isDirty = true
	if err := t.writeNode(child); err != nil {
		t.releaseNode(child, false)
		return err
	}
	t.releaseNode(child, true)
	return nil
}

// releaseNode unpins a node's backing page, marking it dirty when either
// the caller or the node itself says so.
func (t *BPlusTree) releaseNode(n *Node, dirty bool) {
	if n == nil {
		return
	}
	_ = t.bufferPool.UnpinPage(n.pageID, dirty || n.isDirty)
	n.pincnt = 0
}
