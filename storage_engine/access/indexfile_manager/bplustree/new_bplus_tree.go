package bplus

import (
	"encoding/binary"
	"fmt"
	"os"

	"coredb/storage_engine/bufferpool"
	diskmanager "coredb/storage_engine/disk_manager"
	"coredb/storage_engine/page"
	"coredb/types"
)

// OpenBPlusTree opens (or creates) the B+ tree stored in the file at
// indexPath, using the shared BufferPool and DiskManager.
//
// The tree's file header lives on the metadata page (local page 0):
// root, first leaf, and last leaf as little-endian local page IDs (-1
// meaning "empty tree"), then the key width and the order. keyWidth is
// the index's col_tot_len — the sum of the indexed columns' fixed byte
// lengths — and fixes the dense key stride inside every node page.
//
// cmp orders keys. Keys are opaque []byte to this package — for a
// composite multi-column index, the caller concatenates each column's
// fixed-width encoding and supplies a comparator that decodes and compares
// each segment by its declared type (bytes.Compare alone sorts
// little-endian fixed-width integers and floats incorrectly).
func OpenBPlusTree(indexPath string, fileID uint32, bufferPool *bufferpool.BufferPool, diskManager *diskmanager.DiskManager, cmp func(a, b []byte) int, keyWidth int) (*BPlusTree, error) {
	return OpenBPlusTreeWithOrder(indexPath, fileID, bufferPool, diskManager, cmp, keyWidth, DefaultOrder)
}

// maxOrderFor is the largest order whose worst-case node — order+1
// entries, the transient overflow a split repairs — still serializes into
// one page.
func maxOrderFor(keyWidth int) int {
	return (page.PageSize-nodeHeaderSize)/(keyWidth+ridValueSize) - 1
}

// OpenBPlusTreeWithOrder is OpenBPlusTree with an explicit per-node key
// capacity. Small orders force deep trees out of few keys, which is how
// the rebalancing paths get exercised without bulk data. Orders too large
// for the key width are clamped to what a page can hold.
func OpenBPlusTreeWithOrder(indexPath string, fileID uint32, bufferPool *bufferpool.BufferPool, diskManager *diskmanager.DiskManager, cmp func(a, b []byte) int, keyWidth, order int) (*BPlusTree, error) {
	if order < 2 {
		return nil, fmt.Errorf("OpenBPlusTreeWithOrder: order %d too small", order)
	}
	if keyWidth < 1 || keyWidth > MaxKeyWidth {
		return nil, fmt.Errorf("OpenBPlusTreeWithOrder: key width %d out of range", keyWidth)
	}
	if max := maxOrderFor(keyWidth); order > max {
		order = max
	}

	// Check if the file already exists before OpenFileWithID creates it.
	_, statErr := os.Stat(indexPath)
	isNew := os.IsNotExist(statErr)

	if _, err := diskManager.OpenFileWithID(indexPath, fileID); err != nil {
		return nil, fmt.Errorf("OpenBPlusTree: failed to open index file %s: %w", indexPath, err)
	}

	t := &BPlusTree{
		fileID:      fileID,
		root:        -1,
		firstLeaf:   -1,
		lastLeaf:    -1,
		order:       order,
		keyWidth:    keyWidth,
		bufferPool:  bufferPool,
		diskManager: diskManager,
		cmp:         cmp,
	}

	if isNew {
		// Reserve local page 0 for the metadata page.
		if _, err := diskManager.AllocatePage(fileID, types.PageTypeMetadata); err != nil {
			return nil, fmt.Errorf("OpenBPlusTree: failed to reserve metadata page: %w", err)
		}
		if err := t.saveMeta(); err != nil {
			return nil, err
		}
		return t, nil
	}

	// Register all existing pages so the buffer pool can resolve them.
	fd, err := diskManager.GetFileDescriptor(fileID)
	if err != nil {
		return nil, err
	}
	for localPage := int64(0); localPage < fd.NextPageID; localPage++ {
		if err := diskManager.RegisterPage(fileID, localPage); err != nil {
			return nil, err
		}
	}

	meta, err := diskManager.ReadMetadata(fileID)
	if err != nil {
		return nil, fmt.Errorf("OpenBPlusTree: failed to read metadata: %w", err)
	}
	t.root = t.globalFromMeta(meta, 0)
	t.firstLeaf = t.globalFromMeta(meta, 8)
	t.lastLeaf = t.globalFromMeta(meta, 16)
	if len(meta) >= 40 {
		storedWidth := int(binary.LittleEndian.Uint64(meta[24:32]))
		if storedWidth != keyWidth {
			return nil, fmt.Errorf("OpenBPlusTree: index file has key width %d, caller expects %d", storedWidth, keyWidth)
		}
		t.order = int(binary.LittleEndian.Uint64(meta[32:40]))
	}
	fmt.Printf("[BTree] loaded tree fileID=%d root=%d firstLeaf=%d lastLeaf=%d order=%d\n", fileID, t.root, t.firstLeaf, t.lastLeaf, t.order)

	return t, nil
}

func (t *BPlusTree) globalFromMeta(meta []byte, off int) int64 {
	if len(meta) < off+8 {
		return -1
	}
	local := int64(binary.LittleEndian.Uint64(meta[off : off+8]))
	if local < 0 {
		return -1
	}
	return int64(t.fileID)<<32 | local
}

// saveMeta persists the file header: root/firstLeaf/lastLeaf as local page
// IDs plus the key width and order. Called after every operation that
// moves any of the three page pointers.
func (t *BPlusTree) saveMeta() error {
	meta := make([]byte, 40)
	for i, global := range []int64{t.root, t.firstLeaf, t.lastLeaf} {
		local := int64(-1)
		if global >= 0 {
			local = global & 0xFFFFFFFF
		}
		binary.LittleEndian.PutUint64(meta[i*8:], uint64(local))
	}
	binary.LittleEndian.PutUint64(meta[24:], uint64(t.keyWidth))
	binary.LittleEndian.PutUint64(meta[32:], uint64(t.order))
	if err := t.diskManager.WriteMetadata(t.fileID, meta); err != nil {
		return fmt.Errorf("saveMeta: failed to persist tree metadata: %w", err)
	}
	return nil
}

// Close flushes all dirty pages in the shared BufferPool (every file's, not
// only this tree's) and syncs the disk manager. It closes no file
// descriptors.
//
// Call this when switching databases or on shutdown to ensure all changes
// are persisted.
func (t *BPlusTree) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.bufferPool.FlushAllPages(); err != nil {
		return fmt.Errorf("Close: failed to flush pages: %w", err)
	}

	if err := t.diskManager.Sync(); err != nil {
		return fmt.Errorf("Close: failed to sync disk: %w", err)
	}

	return nil
}
