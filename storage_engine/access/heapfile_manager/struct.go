package heapfile

import (
	"sync"

	"coredb/storage_engine/bufferpool"
	diskmanager "coredb/storage_engine/disk_manager"
)

// HeapFile represents a single heap file on disk. Local page 0 is a
// reserved file-header page written directly through the disk manager
// (never pinned through the buffer pool); data pages start at local page 1,
// matching the record manager's own page numbering.
type HeapFile struct {
	fileID      uint32
	tableName   string
	recordSize  int
	diskManager *diskmanager.DiskManager
	bufferPool  *bufferpool.BufferPool
	filePath    string

	// firstFreePage caches the file header's free-list head: the local page
	// number of a data page known to have at least one empty slot, or
	// types.InvalidPageID if none is known. Every change is persisted to
	// the header page before it is trusted across a reopen.
	firstFreePage int64

	mu sync.RWMutex
}

// HeapFileManager manages all heap files in a database directory.
type HeapFileManager struct {
	baseDir     string
	files       map[uint32]*HeapFile
	tableIndex  map[string]uint32 // tableName → catalog fileID (name-based lookup)
	bufferPool  *bufferpool.BufferPool
	diskManager *diskmanager.DiskManager
	mu          sync.RWMutex
}
