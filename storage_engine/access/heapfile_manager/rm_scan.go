package heapfile

import "coredb/types"

/*
RmScan is a full-file table scan cursor: walk every data page from local
page 1 onward (local page 0 is the file header) and, within a page, test
each slot's bitmap bit in order. The cursor's Rid sits on the current
live record and advances to EndRid once no page has any slot left to
test.
*/
type RmScan struct {
	hf  *HeapFile
	rid types.Rid
}

// NewRmScan builds a scan over hf positioned at its first live record, or
// at EndRid if the file holds none.
func NewRmScan(hf *HeapFile) *RmScan {
	s := &RmScan{hf: hf, rid: types.Rid{PageNo: 0, SlotNo: -1}}
	s.advance()
	return s
}

func (s *RmScan) advance() {
	hf := s.hf
	recordsPerPage, _ := ComputeHeapLayout(hf.recordSize)

	fd, err := hf.diskManager.GetFileDescriptor(hf.fileID)
	if err != nil {
		s.rid = types.EndRid
		return
	}

	pageNo := s.rid.PageNo
	slotNo := s.rid.SlotNo + 1
	if pageNo == 0 {
		pageNo = 1 // data pages start at local page 1
		slotNo = 0
	}

	for ; pageNo < fd.NextPageID; pageNo++ {
		globalID, err := hf.diskManager.GetGlobalPageID(hf.fileID, pageNo)
		if err != nil {
			slotNo = 0
			continue
		}
		pg, err := hf.bufferPool.FetchPage(globalID)
		if err != nil {
			slotNo = 0
			continue
		}

		pg.RLock()
		found := -1
		for ; slotNo < recordsPerPage; slotNo++ {
			if IsSlotUsed(pg, slotNo) {
				found = slotNo
				break
			}
		}
		pg.RUnlock()
		hf.bufferPool.UnpinPage(globalID, false)

		if found >= 0 {
			s.rid = types.Rid{PageNo: pageNo, SlotNo: found}
			return
		}
		slotNo = 0
	}

	s.rid = types.EndRid
}

// Next moves the cursor to the next live record, or to EndRid.
func (s *RmScan) Next() { s.advance() }

// IsEnd reports whether the cursor has run past the last record.
func (s *RmScan) IsEnd() bool { return s.rid.IsEnd() }

// Rid returns the cursor's current position.
func (s *RmScan) Rid() types.Rid { return s.rid }
