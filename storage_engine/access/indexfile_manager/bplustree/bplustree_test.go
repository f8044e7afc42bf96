package bplus

import (
	"encoding/binary"
	"errors"
	"path/filepath"
	"testing"

	"coredb/storage_engine/bufferpool"
	diskmanager "coredb/storage_engine/disk_manager"
	"coredb/types"
)

func encInt(v int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

func decInt(b []byte) int32 {
	return int32(binary.LittleEndian.Uint32(b))
}

// encVal builds a rid-width value carrying v in its first four bytes.
func encVal(v int32) []byte {
	b := make([]byte, 12)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

func intCmp(a, b []byte) int {
	va, vb := decInt(a), decInt(b)
	switch {
	case va < vb:
		return -1
	case va > vb:
		return 1
	default:
		return 0
	}
}

func newTestTree(t *testing.T, order int) *BPlusTree {
	t.Helper()
	dir := t.TempDir()
	dm := diskmanager.NewDiskManager()
	bp := bufferpool.NewBufferPool(64, dm)
	tree, err := OpenBPlusTreeWithOrder(filepath.Join(dir, "test.idx"), 1, bp, dm, intCmp, 4, order)
	if err != nil {
		t.Fatalf("failed to open tree: %v", err)
	}
	return tree
}

// checkInvariants walks the whole tree and fails the test on any violated
// structural property: node occupancy, separator/first-key agreement,
// parent pointers, uniform leaf depth, and the doubly linked leaf chain.
func checkInvariants(t *testing.T, tree *BPlusTree) {
	t.Helper()

	if tree.root < 0 {
		if tree.firstLeaf != -1 || tree.lastLeaf != -1 {
			t.Fatalf("empty tree should have no leaf chain, got first=%d last=%d", tree.firstLeaf, tree.lastLeaf)
		}
		return
	}

	leafDepth := -1
	var walk func(nodeID, parentID int64, depth int) []byte
	walk = func(nodeID, parentID int64, depth int) []byte {
		node, err := tree.fetchNode(nodeID)
		if err != nil {
			t.Fatalf("fetch node %d: %v", nodeID, err)
		}
		defer tree.releaseNode(node, false)

		if node.parent != parentID {
			t.Fatalf("node %d parent pointer is %d, want %d", nodeID, node.parent, parentID)
		}
		if nodeID != tree.root {
			if len(node.keys) < tree.minKeys() || len(node.keys) > tree.order {
				t.Fatalf("node %d has %d keys, want [%d, %d]", nodeID, len(node.keys), tree.minKeys(), tree.order)
			}
		}
		for i := 1; i < len(node.keys); i++ {
			if tree.cmp(node.keys[i-1], node.keys[i]) >= 0 {
				t.Fatalf("node %d keys out of order at %d", nodeID, i)
			}
		}

		if node.nodeType == NodeLeaf {
			if leafDepth == -1 {
				leafDepth = depth
			} else if depth != leafDepth {
				t.Fatalf("leaf %d at depth %d, want %d", nodeID, depth, leafDepth)
			}
			if len(node.values) != len(node.keys) {
				t.Fatalf("leaf %d has %d values for %d keys", nodeID, len(node.values), len(node.keys))
			}
			return node.keys[0]
		}

		if len(node.children) != len(node.keys) {
			t.Fatalf("internal %d has %d children for %d keys", nodeID, len(node.children), len(node.keys))
		}
		for i, childID := range node.children {
			childMin := walk(childID, nodeID, depth+1)
			if tree.cmp(node.keys[i], childMin) != 0 {
				t.Fatalf("internal %d separator %d names key %d, child subtree min is %d",
					nodeID, i, decInt(node.keys[i]), decInt(childMin))
			}
		}
		return node.keys[0]
	}
	walk(tree.root, -1, 0)

	// Leaf chain: non-decreasing keys, consistent back links, matching
	// first/last bookkeeping.
	prevID := int64(-1)
	var prevKey []byte
	leafID := tree.firstLeaf
	for leafID >= 0 {
		leaf, err := tree.fetchNode(leafID)
		if err != nil {
			t.Fatalf("fetch leaf %d: %v", leafID, err)
		}
		if leaf.prev != prevID {
			t.Fatalf("leaf %d prev is %d, want %d", leafID, leaf.prev, prevID)
		}
		for _, k := range leaf.keys {
			if prevKey != nil && tree.cmp(prevKey, k) >= 0 {
				t.Fatalf("leaf chain keys not increasing at %d", decInt(k))
			}
			prevKey = k
		}
		nextID := leaf.next
		tree.releaseNode(leaf, false)
		if nextID < 0 && leafID != tree.lastLeaf {
			t.Fatalf("chain ends at %d but lastLeaf is %d", leafID, tree.lastLeaf)
		}
		prevID = leafID
		leafID = nextID
	}
}

// chainKeys collects every key by walking the leaf chain from firstLeaf.
func chainKeys(t *testing.T, tree *BPlusTree) []int32 {
	t.Helper()
	var out []int32
	for it := tree.SeekFirst(); it.Valid(); it.Next() {
		out = append(out, decInt(it.Key()))
	}
	return out
}

func TestInsertSearchRoundTrip(t *testing.T) {
	tree := newTestTree(t, DefaultOrder)

	for i := int32(1); i <= 200; i++ {
		if err := tree.Insertion(encInt(i), encVal(i*10)); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	checkInvariants(t, tree)

	for i := int32(1); i <= 200; i++ {
		v, err := tree.Search(encInt(i))
		if err != nil {
			t.Fatalf("search %d: %v", i, err)
		}
		if v == nil {
			t.Fatalf("key %d not found after insert", i)
		}
		if decInt(v) != i*10 {
			t.Fatalf("key %d maps to %d, want %d", i, decInt(v), i*10)
		}
	}

	if v, _ := tree.Search(encInt(999)); v != nil {
		t.Fatalf("absent key returned value %v", v)
	}
}

func TestDuplicateInsertIsNoOp(t *testing.T) {
	tree := newTestTree(t, DefaultOrder)

	if err := tree.Insertion(encInt(7), encVal(70)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := tree.Insertion(encInt(7), encVal(700)); err != nil {
		t.Fatalf("duplicate insert should be a silent no-op, got %v", err)
	}

	v, err := tree.Search(encInt(7))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if decInt(v) != 70 {
		t.Fatalf("duplicate insert overwrote value: got %d, want 70", decInt(v))
	}
}

// A key that was published upward as a separator must stay findable: the
// descent has to pick the right child when the key equals the separator.
func TestSeparatorKeysRemainFindable(t *testing.T) {
	tree := newTestTree(t, 4)

	for i := int32(1); i <= 50; i++ {
		if err := tree.Insertion(encInt(i), encVal(i)); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	checkInvariants(t, tree)

	for i := int32(1); i <= 50; i++ {
		v, err := tree.Search(encInt(i))
		if err != nil {
			t.Fatalf("search %d: %v", i, err)
		}
		if v == nil {
			t.Fatalf("key %d lost after splits", i)
		}
	}
}

func TestLeafSplitBoundary(t *testing.T) {
	tree := newTestTree(t, 4)

	// Order 4: the fifth insert overflows the root leaf. The left half
	// keeps floor(5/2)=2 keys, the right gets 3, and the chain ends move.
	for i := int32(1); i <= 5; i++ {
		if err := tree.Insertion(encInt(i), encVal(i)); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	checkInvariants(t, tree)

	first, err := tree.fetchNode(tree.firstLeaf)
	if err != nil {
		t.Fatalf("fetch first leaf: %v", err)
	}
	nKeys := len(first.keys)
	nextID := first.next
	tree.releaseNode(first, false)

	if nKeys != 2 {
		t.Fatalf("left leaf kept %d keys after split, want 2", nKeys)
	}
	if nextID != tree.lastLeaf {
		t.Fatalf("two-leaf chain should end at lastLeaf")
	}
	if tree.firstLeaf == tree.lastLeaf {
		t.Fatalf("split did not move lastLeaf")
	}
}

func TestDeleteDrainAndRefill(t *testing.T) {
	tree := newTestTree(t, 4)

	for i := int32(1); i <= 100; i++ {
		if err := tree.Insertion(encInt(i), encVal(i)); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	// Delete the lower half in order, checking structure at every step.
	for i := int32(1); i <= 50; i++ {
		if err := tree.Delete(encInt(i)); err != nil {
			t.Fatalf("delete %d: %v", i, err)
		}
		checkInvariants(t, tree)
		if v, _ := tree.Search(encInt(i)); v != nil {
			t.Fatalf("key %d still present after delete", i)
		}
	}

	keys := chainKeys(t, tree)
	if len(keys) != 50 {
		t.Fatalf("expected 50 surviving keys, got %d", len(keys))
	}
	for j, k := range keys {
		if k != int32(51+j) {
			t.Fatalf("surviving key %d is %d, want %d", j, k, 51+j)
		}
	}

	// Drain completely; the tree must become empty, then accept fresh data.
	for i := int32(51); i <= 100; i++ {
		if err := tree.Delete(encInt(i)); err != nil {
			t.Fatalf("delete %d: %v", i, err)
		}
		checkInvariants(t, tree)
	}
	if tree.root != -1 {
		t.Fatalf("drained tree should have no root, got %d", tree.root)
	}

	if err := tree.Insertion(encInt(42), encVal(420)); err != nil {
		t.Fatalf("insert into drained tree: %v", err)
	}
	if v, _ := tree.Search(encInt(42)); v == nil || decInt(v) != 420 {
		t.Fatalf("reinserted key not found")
	}
}

func TestDeleteAbsentKeyIsNoOp(t *testing.T) {
	tree := newTestTree(t, 4)

	if err := tree.Delete(encInt(1)); err != nil {
		t.Fatalf("delete on empty tree: %v", err)
	}
	for i := int32(1); i <= 10; i++ {
		if err := tree.Insertion(encInt(i), encVal(i)); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	if err := tree.Delete(encInt(99)); err != nil {
		t.Fatalf("delete absent key: %v", err)
	}
	if got := len(chainKeys(t, tree)); got != 10 {
		t.Fatalf("absent-key delete changed entry count to %d", got)
	}
}

func TestSeekGERange(t *testing.T) {
	tree := newTestTree(t, 4)
	for i := int32(10); i <= 100; i += 10 {
		if err := tree.Insertion(encInt(i), encVal(i)); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	tests := []struct {
		target int32
		first  int32
		found  bool
	}{
		{10, 10, true},
		{35, 40, true},   // between keys: lands on the next one
		{100, 100, true}, // last key
		{101, 0, false},  // past the end
	}
	for _, tt := range tests {
		it := tree.SeekGE(encInt(tt.target))
		if it.Valid() != tt.found {
			t.Fatalf("SeekGE(%d) valid=%v, want %v", tt.target, it.Valid(), tt.found)
		}
		if tt.found && decInt(it.Key()) != tt.first {
			t.Fatalf("SeekGE(%d) landed on %d, want %d", tt.target, decInt(it.Key()), tt.first)
		}
		it.Close()
	}
}

func TestIteratorWalksWholeRange(t *testing.T) {
	tree := newTestTree(t, 4)
	const n = 60
	for i := int32(n); i >= 1; i-- { // reverse insertion order
		if err := tree.Insertion(encInt(i), encVal(i)); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	keys := chainKeys(t, tree)
	if len(keys) != n {
		t.Fatalf("iterator visited %d keys, want %d", len(keys), n)
	}
	for j, k := range keys {
		if k != int32(j+1) {
			t.Fatalf("position %d holds %d, want %d", j, k, j+1)
		}
	}
}

// Every tree operation must leave the buffer pool with zero pinned pages —
// a leaked pin would eventually starve eviction.
func TestNoPinLeaks(t *testing.T) {
	dir := t.TempDir()
	dm := diskmanager.NewDiskManager()
	bp := bufferpool.NewBufferPool(64, dm)
	tree, err := OpenBPlusTreeWithOrder(filepath.Join(dir, "pins.idx"), 1, bp, dm, intCmp, 4, 4)
	if err != nil {
		t.Fatalf("open tree: %v", err)
	}

	assertUnpinned := func(when string) {
		t.Helper()
		if stats := bp.GetStats(); stats.PinnedPages != 0 {
			t.Fatalf("%s: %d pages still pinned", when, stats.PinnedPages)
		}
	}

	for i := int32(1); i <= 80; i++ {
		if err := tree.Insertion(encInt(i), encVal(i)); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	assertUnpinned("after inserts")

	for i := int32(1); i <= 80; i++ {
		if _, err := tree.Search(encInt(i)); err != nil {
			t.Fatalf("search %d: %v", i, err)
		}
	}
	assertUnpinned("after searches")

	it := tree.SeekGE(encInt(20))
	for it.Valid() && decInt(it.Key()) < 40 {
		it.Next()
	}
	it.Close()
	assertUnpinned("after closed range scan")

	for i := int32(1); i <= 80; i++ {
		if err := tree.Delete(encInt(i)); err != nil {
			t.Fatalf("delete %d: %v", i, err)
		}
	}
	assertUnpinned("after deletes")
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "persist.idx")

	dm := diskmanager.NewDiskManager()
	bp := bufferpool.NewBufferPool(64, dm)
	tree, err := OpenBPlusTreeWithOrder(path, 1, bp, dm, intCmp, 4, 4)
	if err != nil {
		t.Fatalf("open tree: %v", err)
	}
	for i := int32(1); i <= 30; i++ {
		if err := tree.Insertion(encInt(i), encVal(i*3)); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	if err := tree.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := dm.CloseAll(); err != nil {
		t.Fatalf("close files: %v", err)
	}

	dm2 := diskmanager.NewDiskManager()
	bp2 := bufferpool.NewBufferPool(64, dm2)
	reopened, err := OpenBPlusTreeWithOrder(path, 1, bp2, dm2, intCmp, 4, 4)
	if err != nil {
		t.Fatalf("reopen tree: %v", err)
	}
	for i := int32(1); i <= 30; i++ {
		v, err := reopened.Search(encInt(i))
		if err != nil {
			t.Fatalf("search %d after reopen: %v", i, err)
		}
		if v == nil || decInt(v) != i*3 {
			t.Fatalf("key %d lost or corrupted across reopen", i)
		}
	}
	checkInvariants(t, reopened)
}

func TestSerializeRoundTrip(t *testing.T) {
	n := &Node{
		pageID:   int64(1)<<32 | 7,
		nodeType: NodeLeaf,
		keys:     [][]byte{encInt(1), encInt(2)},
		values:   [][]byte{encVal(10), encVal(20)},
		next:     int64(1)<<32 | 9,
		prev:     int64(1)<<32 | 5,
		parent:   int64(1)<<32 | 3,
	}
	buf := make([]byte, 4096)
	if err := SerializeNode(n, buf, 4); err != nil {
		t.Fatalf("serialize: %v", err)
	}
	got, err := DeserializeNode(buf, 1, 4)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if got.nodeType != NodeLeaf || len(got.keys) != 2 {
		t.Fatalf("round trip lost shape: %+v", got)
	}
	if got.next != n.next || got.prev != n.prev || got.parent != n.parent {
		t.Fatalf("round trip lost links: next=%d prev=%d parent=%d", got.next, got.prev, got.parent)
	}
	for i := range n.keys {
		if decInt(got.keys[i]) != decInt(n.keys[i]) || decInt(got.values[i]) != decInt(n.values[i]) {
			t.Fatalf("entry %d corrupted", i)
		}
	}

	// Keys are a dense fixed-stride array: key 1 starts exactly keyWidth
	// bytes after key 0, with no length prefixes.
	if decInt(buf[nodeHeaderSize:]) != 1 || decInt(buf[nodeHeaderSize+4:]) != 2 {
		t.Fatalf("keys not densely packed at the key-width stride")
	}

	// Internal nodes carry one child per key.
	in := &Node{
		pageID:   int64(1)<<32 | 11,
		nodeType: NodeInternal,
		keys:     [][]byte{encInt(1), encInt(9)},
		children: []int64{int64(1)<<32 | 12, int64(1)<<32 | 13},
		next:     -1,
		prev:     -1,
		parent:   -1,
	}
	if err := SerializeNode(in, buf, 4); err != nil {
		t.Fatalf("serialize internal: %v", err)
	}
	gotIn, err := DeserializeNode(buf, 1, 4)
	if err != nil {
		t.Fatalf("deserialize internal: %v", err)
	}
	if len(gotIn.children) != len(gotIn.keys) || gotIn.children[1] != in.children[1] {
		t.Fatalf("internal round trip lost children: %+v", gotIn.children)
	}
}

func TestSerializeRejectsWrongWidths(t *testing.T) {
	buf := make([]byte, 4096)
	n := &Node{nodeType: NodeLeaf, keys: [][]byte{encInt(1)}, values: [][]byte{encVal(1)}, next: -1, prev: -1, parent: -1}
	if err := SerializeNode(n, buf, 8); err == nil {
		t.Fatalf("4-byte key must be rejected at key width 8")
	}
	n = &Node{nodeType: NodeLeaf, keys: [][]byte{encInt(1)}, values: [][]byte{encInt(1)}, next: -1, prev: -1, parent: -1}
	if err := SerializeNode(n, buf, 4); err == nil {
		t.Fatalf("4-byte value must be rejected, rids are 12 bytes")
	}
}

func TestOrderValidation(t *testing.T) {
	dir := t.TempDir()
	dm := diskmanager.NewDiskManager()
	bp := bufferpool.NewBufferPool(8, dm)
	if _, err := OpenBPlusTreeWithOrder(filepath.Join(dir, "bad.idx"), 1, bp, dm, intCmp, 4, 1); err == nil {
		t.Fatalf("order 1 should be rejected")
	}
	if _, err := OpenBPlusTreeWithOrder(filepath.Join(dir, "bad2.idx"), 2, bp, dm, intCmp, 0, 4); err == nil {
		t.Fatalf("key width 0 should be rejected")
	}
}

// Deleting from the high end underflows rightmost nodes, whose only
// sibling is on the left — the mirror set of repair paths from the
// ascending drain.
func TestDeleteDescending(t *testing.T) {
	tree := newTestTree(t, 4)

	for i := int32(1); i <= 100; i++ {
		if err := tree.Insertion(encInt(i), encVal(i)); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	for i := int32(100); i > 50; i-- {
		if err := tree.Delete(encInt(i)); err != nil {
			t.Fatalf("delete %d: %v", i, err)
		}
		checkInvariants(t, tree)
	}

	keys := chainKeys(t, tree)
	if len(keys) != 50 {
		t.Fatalf("expected 50 surviving keys, got %d", len(keys))
	}
	for j, k := range keys {
		if k != int32(j+1) {
			t.Fatalf("surviving key %d is %d, want %d", j, k, j+1)
		}
	}
}

func TestDeleteInterleaved(t *testing.T) {
	tree := newTestTree(t, 4)

	for i := int32(1); i <= 64; i++ {
		if err := tree.Insertion(encInt(i), encVal(i)); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	// Punch out every even key: underflow repairs land all over the chain.
	for i := int32(2); i <= 64; i += 2 {
		if err := tree.Delete(encInt(i)); err != nil {
			t.Fatalf("delete %d: %v", i, err)
		}
		checkInvariants(t, tree)
	}

	keys := chainKeys(t, tree)
	if len(keys) != 32 {
		t.Fatalf("expected 32 surviving keys, got %d", len(keys))
	}
	for j, k := range keys {
		if k != int32(2*j+1) {
			t.Fatalf("surviving key %d is %d, want %d", j, k, 2*j+1)
		}
	}
	for i := int32(1); i <= 64; i += 2 {
		if v, _ := tree.Search(encInt(i)); v == nil {
			t.Fatalf("odd key %d lost during even-key deletes", i)
		}
	}
}

func TestEntryPastEndReportsNotFound(t *testing.T) {
	tree := newTestTree(t, 4)
	if err := tree.Insertion(encInt(1), encVal(1)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	it := tree.SeekGE(encInt(2)) // nothing at or above 2
	if _, _, err := it.Entry(); !errors.Is(err, types.ErrIndexEntryNotFound) {
		t.Fatalf("dereferencing an exhausted cursor should report ErrIndexEntryNotFound, got %v", err)
	}
	it.Close()
}
