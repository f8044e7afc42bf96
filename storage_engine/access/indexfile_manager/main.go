package indexfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	bplus "coredb/storage_engine/access/indexfile_manager/bplustree"
	"coredb/storage_engine/bufferpool"
	diskmanager "coredb/storage_engine/disk_manager"
	"coredb/types"
)

/*
This file is the main file for Index File Manager, which deals with the
index pages backing a table's secondary indexes. Like HeapFileManager it
holds the disk manager and the buffer pool; it adds a per-index typed
comparator derived from the index's column types so that a composite key
(each column's fixed-width encoding concatenated in column order) sorts
correctly even though the B+ tree itself only ever sees opaque []byte keys.
*/

func NewIndexFileManager(baseDir string, diskManager *diskmanager.DiskManager, bufferPool *bufferpool.BufferPool) (*IndexFileManager, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create indexes directory: %w", err)
	}

	return &IndexFileManager{
		baseDir:     baseDir,
		indexes:     make(map[string]*bplus.BPlusTree),
		bufferPool:  bufferPool,
		diskManager: diskManager,
	}, nil
}

// indexKey identifies one table index by its column list, matching the
// table's types.IndexMeta entries one-for-one.
func indexKey(tableName string, cols []string) string {
	return tableName + "/" + strings.Join(cols, ",")
}

func indexFileName(tableName string, cols []string) string {
	return fmt.Sprintf("%s_%s.idx", tableName, strings.Join(cols, "_"))
}

// ComparatorFor builds the typed composite-key comparator for idx, looking
// up each indexed column's (Type, Len) in tab.
func ComparatorFor(tab types.TabMeta, idx types.IndexMeta) (func(a, b []byte) int, error) {
	colTypes := make([]types.ColType, len(idx.Cols))
	colLens := make([]int, len(idx.Cols))
	for i, name := range idx.Cols {
		col, err := tab.Col(name)
		if err != nil {
			return nil, fmt.Errorf("ComparatorFor: %w", err)
		}
		colTypes[i] = col.Type
		colLens[i] = col.Len
	}
	return TypedComparator(colTypes, colLens), nil
}

// GetOrCreateIndex returns the B+ tree backing idx on tab, opening or
// creating its file on first use. Indexes are cached by (table, columns);
// the cache is cleared and file handles closed on CloseAll.
func (ifm *IndexFileManager) GetOrCreateIndex(tab types.TabMeta, idx types.IndexMeta, indexFileID uint32) (*bplus.BPlusTree, error) {
	key := indexKey(tab.Name, idx.Cols)

	ifm.mu.RLock()
	btree, exists := ifm.indexes[key]
	ifm.mu.RUnlock()
	if exists && btree != nil {
		return btree, nil
	}

	ifm.mu.Lock()
	defer ifm.mu.Unlock()

	if btree, exists := ifm.indexes[key]; exists && btree != nil {
		return btree, nil
	}

	cmp, err := ComparatorFor(tab, idx)
	if err != nil {
		return nil, err
	}

	indexPath := filepath.Join(ifm.baseDir, indexFileName(tab.Name, idx.Cols))
	btree, err = bplus.OpenBPlusTree(indexPath, indexFileID, ifm.bufferPool, ifm.diskManager, cmp, idx.ColTotLen)
	if err != nil {
		return nil, fmt.Errorf("GetOrCreateIndex: failed to open B+ tree for %s(%v): %w", tab.Name, idx.Cols, err)
	}

	ifm.indexes[key] = btree
	return btree, nil
}

// CloseIndex closes the B+ tree for one table index and removes it from
// the cache. The index is flushed to disk before closing.
func (ifm *IndexFileManager) CloseIndex(tableName string, cols []string) error {
	ifm.mu.Lock()
	defer ifm.mu.Unlock()

	key := indexKey(tableName, cols)
	btree, exists := ifm.indexes[key]
	if !exists {
		return nil
	}
	if err := btree.Close(); err != nil {
		return fmt.Errorf("CloseIndex: failed to close index %s(%v): %w", tableName, cols, err)
	}
	delete(ifm.indexes, key)
	return nil
}

// CloseAll closes all cached indexes and clears the cache. Called when
// switching databases or shutting down the storage engine.
func (ifm *IndexFileManager) CloseAll() error {
	ifm.mu.Lock()
	defer ifm.mu.Unlock()

	var lastErr error
	for key, btree := range ifm.indexes {
		if err := btree.Close(); err != nil {
			lastErr = fmt.Errorf("CloseAll: failed to close index %s: %w", key, err)
		}
		delete(ifm.indexes, key)
	}
	return lastErr
}

// LoadIndex opens an existing index file and caches it — used during
// database initialization to preload every index of every open table.
func (ifm *IndexFileManager) LoadIndex(tab types.TabMeta, idx types.IndexMeta, indexFileID uint32) error {
	ifm.mu.Lock()
	defer ifm.mu.Unlock()

	key := indexKey(tab.Name, idx.Cols)
	if _, exists := ifm.indexes[key]; exists {
		return nil
	}

	indexPath := filepath.Join(ifm.baseDir, indexFileName(tab.Name, idx.Cols))
	if _, err := os.Stat(indexPath); os.IsNotExist(err) {
		return fmt.Errorf("LoadIndex: index file for %s(%v) not found at %s", tab.Name, idx.Cols, indexPath)
	}

	cmp, err := ComparatorFor(tab, idx)
	if err != nil {
		return err
	}

	btree, err := bplus.OpenBPlusTree(indexPath, indexFileID, ifm.bufferPool, ifm.diskManager, cmp, idx.ColTotLen)
	if err != nil {
		return fmt.Errorf("LoadIndex: failed to load index %s(%v): %w", tab.Name, idx.Cols, err)
	}

	ifm.indexes[key] = btree
	return nil
}
