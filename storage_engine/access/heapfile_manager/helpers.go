package heapfile

import (
	"encoding/binary"
	"fmt"
)

// This file contains helpers related to HeapFileManager and HeapFile that
// don't belong in the creation path or the row operations proper.

func (hfm *HeapFileManager) UpdateBaseDir(dir string) {
	hfm.mu.Lock()
	defer hfm.mu.Unlock()
	hfm.baseDir = dir
}

func (hfm *HeapFileManager) GetHeapFileByTable(tableName string) (*HeapFile, error) {
	hfm.mu.RLock()
	defer hfm.mu.RUnlock()

	fileID, exists := hfm.tableIndex[tableName]
	if !exists {
		return nil, fmt.Errorf("GetHeapFileByTable: no heap file open for table %q", tableName)
	}
	hf, exists := hfm.files[fileID]
	if !exists {
		return nil, fmt.Errorf("GetHeapFileByTable: heap file index inconsistency for table %q", tableName)
	}
	return hf, nil
}

func (hfm *HeapFileManager) GetHeapFileByID(fileID uint32) (*HeapFile, error) {
	hfm.mu.RLock()
	defer hfm.mu.RUnlock()

	hf, exists := hfm.files[fileID]
	if !exists {
		return nil, fmt.Errorf("GetHeapFileByID: heap file %d not found", fileID)
	}
	return hf, nil
}

// Flush flushes all dirty pages belonging to this heap file's buffer pool.
// The buffer pool is shared across heap and index files, so this flushes
// the whole pool.
func (hf *HeapFile) Flush() error {
	return hf.bufferPool.FlushAllPages()
}

func (hf *HeapFile) RecordSize() int { return hf.recordSize }

func (hf *HeapFile) FileID() uint32 { return hf.fileID }

// persistFreeListHead writes the current in-memory free-list head to the
// file's header page. Callers must hold hf.mu for writing.
func (hf *HeapFile) persistFreeListHead() error {
	return hf.diskManager.WriteMetadata(hf.fileID, encodeFreeListHead(hf.firstFreePage))
}

func encodeFreeListHead(v int64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return b
}

func decodeFreeListHead(meta []byte) int64 {
	if len(meta) < 8 {
		return -1
	}
	return int64(binary.LittleEndian.Uint64(meta[:8]))
}
