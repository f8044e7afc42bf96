package heapfile

import (
	"fmt"

	"coredb/storage_engine/page"
	"coredb/types"
)

// This file contains internal, unlocked row operations. Callers in
// row_ops_external.go hold hf.mu before calling into these — an internal
// function must never take hf.mu itself: hf.mu is not reentrant, so doing
// so while the caller holds it would deadlock.

func (hf *HeapFile) fetchDataPage(localPageNum int64) (*page.Page, error) {
	globalPageID, err := hf.diskManager.GetGlobalPageID(hf.fileID, localPageNum)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve page %d: %w", localPageNum, err)
	}
	return hf.bufferPool.FetchPage(globalPageID)
}

// insertRow writes data into the first page with a free slot, allocating a
// new page if the free list is empty.
func (hf *HeapFile) insertRow(data []byte) (types.Rid, error) {
	if len(data) != hf.recordSize {
		return types.Rid{}, fmt.Errorf("insertRow: data length %d does not match record size %d", len(data), hf.recordSize)
	}
	recordsPerPage, _ := ComputeHeapLayout(hf.recordSize)
	if recordsPerPage == 0 {
		return types.Rid{}, fmt.Errorf("insertRow: record size %d leaves no room for any record on a page", hf.recordSize)
	}

	for {
		var pg *page.Page
		var localPageNum int64
		allocatedNew := false

		if hf.firstFreePage == types.InvalidPageID {
			newPg, err := hf.bufferPool.NewPage(hf.fileID, types.PageTypeHeapData)
			if err != nil {
				return types.Rid{}, fmt.Errorf("insertRow: failed to allocate page: %w", err)
			}
			fd, err := hf.diskManager.GetFileDescriptor(hf.fileID)
			if err != nil {
				hf.bufferPool.UnpinPage(newPg.ID, false)
				return types.Rid{}, err
			}
			localPageNum = fd.NextPageID - 1
			InitHeapPage(newPg)
			if err := hf.diskManager.RegisterPage(hf.fileID, localPageNum); err != nil {
				hf.bufferPool.UnpinPage(newPg.ID, false)
				return types.Rid{}, fmt.Errorf("insertRow: failed to register new page: %w", err)
			}
			pg = newPg
			allocatedNew = true
		} else {
			localPageNum = hf.firstFreePage
			fetched, err := hf.fetchDataPage(localPageNum)
			if err != nil {
				return types.Rid{}, err
			}
			pg = fetched
		}

		pg.Lock()
		slotNo, insErr := InsertRecord(pg, hf.recordSize, data)
		if insErr != nil {
			// Free-list head lied about having space — drop it and retry.
			next := GetNextFreePage(pg)
			pg.Unlock()
			hf.bufferPool.UnpinPage(pg.ID, false)
			hf.firstFreePage = int64(next)
			if perr := hf.persistFreeListHead(); perr != nil {
				return types.Rid{}, perr
			}
			continue
		}

		if allocatedNew {
			SetNextFreePage(pg, int32(types.InvalidPageID))
			hf.firstFreePage = localPageNum
		}
		if int(GetNumRecords(pg)) >= recordsPerPage {
			hf.firstFreePage = int64(GetNextFreePage(pg))
		}
		pg.Unlock()
		hf.bufferPool.UnpinPage(pg.ID, true)

		if err := hf.persistFreeListHead(); err != nil {
			return types.Rid{}, err
		}

		fmt.Printf("[Heap] INSERT fileID=%d page=%d slot=%d\n", hf.fileID, localPageNum, slotNo)
		return types.Rid{PageNo: localPageNum, SlotNo: slotNo}, nil
	}
}

func (hf *HeapFile) getRow(rid types.Rid) ([]byte, error) {
	pg, err := hf.fetchDataPage(rid.PageNo)
	if err != nil {
		return nil, err
	}
	defer hf.bufferPool.UnpinPage(pg.ID, false)

	pg.RLock()
	defer pg.RUnlock()
	return GetRecord(pg, hf.recordSize, rid.SlotNo)
}

func (hf *HeapFile) isRecord(rid types.Rid) (bool, error) {
	pg, err := hf.fetchDataPage(rid.PageNo)
	if err != nil {
		return false, err
	}
	defer hf.bufferPool.UnpinPage(pg.ID, false)

	pg.RLock()
	defer pg.RUnlock()
	return IsSlotUsed(pg, rid.SlotNo), nil
}

// deleteRow clears rid's bit and, if the page was previously full, pushes
// it back onto the free list.
func (hf *HeapFile) deleteRow(rid types.Rid) error {
	recordsPerPage, _ := ComputeHeapLayout(hf.recordSize)

	pg, err := hf.fetchDataPage(rid.PageNo)
	if err != nil {
		return err
	}
	defer hf.bufferPool.UnpinPage(pg.ID, true)

	pg.Lock()
	wasFull := int(GetNumRecords(pg)) >= recordsPerPage
	if err := DeleteRecord(pg, rid.SlotNo); err != nil {
		pg.Unlock()
		return err
	}
	if wasFull {
		SetNextFreePage(pg, int32(hf.firstFreePage))
		hf.firstFreePage = rid.PageNo
	}
	pg.Unlock()

	fmt.Printf("[Heap] DELETE fileID=%d page=%d slot=%d\n", hf.fileID, rid.PageNo, rid.SlotNo)

	if wasFull {
		return hf.persistFreeListHead()
	}
	return nil
}

// updateRow overwrites a record in place. Because every record on a page
// has the same fixed size, there is no relocate-on-grow path: the slot's
// allocation always fits the replacement data.
func (hf *HeapFile) updateRow(rid types.Rid, data []byte) error {
	pg, err := hf.fetchDataPage(rid.PageNo)
	if err != nil {
		return err
	}
	defer hf.bufferPool.UnpinPage(pg.ID, true)

	pg.Lock()
	defer pg.Unlock()

	if err := UpdateRecord(pg, hf.recordSize, rid.SlotNo, data); err != nil {
		return fmt.Errorf("updateRow: %w", err)
	}
	fmt.Printf("[Heap] UPDATE fileID=%d page=%d slot=%d\n", hf.fileID, rid.PageNo, rid.SlotNo)
	return nil
}
