package bplus

import "fmt"

// childIndexFor picks which child of an internal node covers key. With
// keys[i] holding the smallest key of children[i]'s subtree, the covering
// child is upperBound(keys, key) - 1; a key below every subtree minimum
// clamps to child 0.
func childIndexFor(node *Node, key []byte, cmp func(a, b []byte) int) int {
	i := upperBound(node.keys, key, cmp) - 1
	if i < 0 {
		i = 0
	}
	return i
}

// FindLeaf descends from nodeId to the leaf whose key range covers key.
// Each internal node is pinned only for the duration of its own lookup;
// the returned leaf stays pinned and the caller unpins it.
func (t *BPlusTree) FindLeaf(nodeId int64, key []byte) (*Node, error) {
	for {
		if nodeId < 0 {
			return nil, fmt.Errorf("FindLeaf: invalid node ID %d", nodeId)
		}
		node, err := t.fetchNode(nodeId)
		if err != nil {
			return nil, fmt.Errorf("FindLeaf: failed to fetch node %d: %w", nodeId, err)
		}

		if node.nodeType == NodeLeaf {
			return node, nil
		}
		if len(node.children) == 0 {
			_ = t.bufferPool.UnpinPage(nodeId, false)
			return nil, fmt.Errorf("FindLeaf: internal node %d has no children", nodeId)
		}
		nextId := node.children[childIndexFor(node, key, t.cmp)]
		_ = t.bufferPool.UnpinPage(nodeId, false)
		nodeId = nextId
	}
}
