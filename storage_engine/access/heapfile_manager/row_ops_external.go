package heapfile

import (
	"fmt"

	"coredb/types"
)

// This file contains the locking external functions for row operations on
// the heap file: every one of them takes hf.mu before delegating to the
// unlocked internal function of the same name. Internal functions must
// never lock — hf.mu is not reentrant, and taking it again while the
// external caller holds it would deadlock.

func (hfm *HeapFileManager) heapFileFor(fileID uint32) (*HeapFile, error) {
	hfm.mu.RLock()
	defer hfm.mu.RUnlock()
	hf, exists := hfm.files[fileID]
	if !exists {
		return nil, fmt.Errorf("heap file %d not found", fileID)
	}
	return hf, nil
}

// InsertRow inserts a row into the heap file identified by fileID.
func (hfm *HeapFileManager) InsertRow(fileID uint32, rowData []byte) (types.Rid, error) {
	hf, err := hfm.heapFileFor(fileID)
	if err != nil {
		return types.Rid{}, err
	}
	hf.mu.Lock()
	defer hf.mu.Unlock()
	return hf.insertRow(rowData)
}

// GetRow retrieves the record at rid.
func (hfm *HeapFileManager) GetRow(fileID uint32, rid types.Rid) ([]byte, error) {
	hf, err := hfm.heapFileFor(fileID)
	if err != nil {
		return nil, err
	}
	hf.mu.RLock()
	defer hf.mu.RUnlock()
	return hf.getRow(rid)
}

// IsRecord reports whether rid currently holds a live record.
func (hfm *HeapFileManager) IsRecord(fileID uint32, rid types.Rid) (bool, error) {
	hf, err := hfm.heapFileFor(fileID)
	if err != nil {
		return false, err
	}
	hf.mu.RLock()
	defer hf.mu.RUnlock()
	return hf.isRecord(rid)
}

// UpdateRow overwrites the record at rid in place.
func (hfm *HeapFileManager) UpdateRow(fileID uint32, rid types.Rid, newRowData []byte) error {
	hf, err := hfm.heapFileFor(fileID)
	if err != nil {
		return err
	}
	hf.mu.Lock()
	defer hf.mu.Unlock()
	return hf.updateRow(rid, newRowData)
}

// DeleteRow tombstones the record at rid. After this, GetRow(rid) reports
// ErrRecordNotFound.
func (hfm *HeapFileManager) DeleteRow(fileID uint32, rid types.Rid) error {
	hf, err := hfm.heapFileFor(fileID)
	if err != nil {
		return err
	}
	hf.mu.Lock()
	defer hf.mu.Unlock()
	return hf.deleteRow(rid)
}
