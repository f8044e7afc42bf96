package indexfile

import (
	bplus "coredb/storage_engine/access/indexfile_manager/bplustree"
	"coredb/storage_engine/bufferpool"
	diskmanager "coredb/storage_engine/disk_manager"
	"sync"
)

type IndexFileManager struct {
	baseDir     string                      // e.g., /data/mydb/indexes
	indexes     map[string]*bplus.BPlusTree // indexKey(table, cols) → cached B+ tree
	bufferPool  *bufferpool.BufferPool      // ← shared with heap files
	diskManager *diskmanager.DiskManager    // ← shared with heap files
	mu          sync.RWMutex
}
