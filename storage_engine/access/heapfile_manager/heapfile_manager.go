package heapfile

import (
	"fmt"
	"os"
	"path/filepath"

	"coredb/storage_engine/bufferpool"
	diskmanager "coredb/storage_engine/disk_manager"
	"coredb/types"
)

/*
This file is the entry point of the heap file manager: creating a heap
file is opening its backing OS file through the DiskManager, reserving
local page 0 as a header page for the free-list head, and registering the
HeapFile for later row operations. The header page is written directly
through DiskManager.WriteMetadata/ReadMetadata — the same mechanism the
B+ tree file uses for its root page ID — rather than through the buffer
pool, since it is touched only at open/insert/delete and never scanned.
*/

// NewHeapFileManager creates a new heap file manager.
func NewHeapFileManager(baseDir string, diskManager *diskmanager.DiskManager, bufferPool *bufferpool.BufferPool) (*HeapFileManager, error) {
	return &HeapFileManager{
		baseDir:     baseDir,
		files:       make(map[uint32]*HeapFile),
		tableIndex:  make(map[string]uint32),
		diskManager: diskManager,
		bufferPool:  bufferPool,
	}, nil
}

// CreateHeapfile creates a brand new heap file for tableName with the given
// catalog fileID and fixed record size.
func (hfm *HeapFileManager) CreateHeapfile(tableName string, fileID int, recordSize int) error {
	hfm.mu.Lock()
	defer hfm.mu.Unlock()

	if _, exists := hfm.tableIndex[tableName]; exists {
		return fmt.Errorf("CreateHeapfile: heap file for table %q already open", tableName)
	}

	catalogFileID := uint32(fileID)
	heapPath := filepath.Join(hfm.baseDir, fmt.Sprintf("%d.heap", catalogFileID))

	if _, err := os.Stat(heapPath); err == nil {
		return fmt.Errorf("CreateHeapfile: heapfile %d already exists", catalogFileID)
	}
	if err := os.MkdirAll(hfm.baseDir, 0755); err != nil {
		return fmt.Errorf("CreateHeapfile: failed to create heap directory: %w", err)
	}

	if _, err := hfm.diskManager.OpenFileWithID(heapPath, catalogFileID); err != nil {
		return fmt.Errorf("CreateHeapfile: %w", err)
	}

	// Reserve local page 0 for the file header; data pages start at 1.
	if _, err := hfm.diskManager.AllocatePage(catalogFileID, types.PageTypeMetadata); err != nil {
		return fmt.Errorf("CreateHeapfile: failed to reserve header page: %w", err)
	}
	if err := hfm.diskManager.WriteMetadata(catalogFileID, encodeFreeListHead(types.InvalidPageID)); err != nil {
		return fmt.Errorf("CreateHeapfile: failed to write header page: %w", err)
	}

	hfm.files[catalogFileID] = &HeapFile{
		fileID:        catalogFileID,
		tableName:     tableName,
		recordSize:    recordSize,
		filePath:      heapPath,
		diskManager:   hfm.diskManager,
		bufferPool:    hfm.bufferPool,
		firstFreePage: types.InvalidPageID,
	}
	hfm.tableIndex[tableName] = catalogFileID

	return nil
}

// LoadHeapFile reopens an existing heap file, re-registering its data
// pages with the disk manager and restoring the free-list head from the
// header page.
func (hfm *HeapFileManager) LoadHeapFile(catalogFileID uint32, tableName string, recordSize int) (*HeapFile, error) {
	hfm.mu.Lock()
	defer hfm.mu.Unlock()

	if hf, exists := hfm.files[catalogFileID]; exists {
		return hf, nil
	}

	heapPath := filepath.Join(hfm.baseDir, fmt.Sprintf("%d.heap", catalogFileID))
	if _, err := os.Stat(heapPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("LoadHeapFile: heap file %d not found on disk", catalogFileID)
	}

	if _, err := hfm.diskManager.OpenFileWithID(heapPath, catalogFileID); err != nil {
		return nil, fmt.Errorf("LoadHeapFile: %w", err)
	}

	fd, err := hfm.diskManager.GetFileDescriptor(catalogFileID)
	if err != nil {
		return nil, err
	}

	// Local page 0 is the header page; data pages are 1..NextPageID-1.
	for localPage := int64(1); localPage < fd.NextPageID; localPage++ {
		if err := hfm.diskManager.RegisterPage(catalogFileID, localPage); err != nil {
			return nil, fmt.Errorf("LoadHeapFile: failed to register page %d: %w", localPage, err)
		}
	}

	firstFreePage := types.InvalidPageID
	if meta, err := hfm.diskManager.ReadMetadata(catalogFileID); err == nil {
		firstFreePage = decodeFreeListHead(meta)
	}

	hf := &HeapFile{
		fileID:        catalogFileID,
		tableName:     tableName,
		recordSize:    recordSize,
		filePath:      heapPath,
		diskManager:   hfm.diskManager,
		bufferPool:    hfm.bufferPool,
		firstFreePage: firstFreePage,
	}

	hfm.files[catalogFileID] = hf
	hfm.tableIndex[tableName] = catalogFileID

	return hf, nil
}
