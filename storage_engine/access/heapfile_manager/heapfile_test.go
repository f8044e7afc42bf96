package heapfile

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"coredb/storage_engine/bufferpool"
	diskmanager "coredb/storage_engine/disk_manager"
	"coredb/types"
)

const testRecordSize = 16

func newTestManager(t *testing.T) (*HeapFileManager, *bufferpool.BufferPool) {
	t.Helper()
	dm := diskmanager.NewDiskManager()
	bp := bufferpool.NewBufferPool(32, dm)
	hfm, err := NewHeapFileManager(t.TempDir(), dm, bp)
	if err != nil {
		t.Fatalf("failed to create heap file manager: %v", err)
	}
	return hfm, bp
}

func testRow(i int) []byte {
	row := make([]byte, testRecordSize)
	copy(row, fmt.Sprintf("row-%04d", i))
	return row
}

func TestInsertGetRoundTrip(t *testing.T) {
	hfm, _ := newTestManager(t)
	if err := hfm.CreateHeapfile("students", 1, testRecordSize); err != nil {
		t.Fatalf("create heap file: %v", err)
	}

	rids := make([]types.Rid, 0, 10)
	for i := 0; i < 10; i++ {
		rid, err := hfm.InsertRow(1, testRow(i))
		if err != nil {
			t.Fatalf("insert row %d: %v", i, err)
		}
		rids = append(rids, rid)
	}

	for i, rid := range rids {
		got, err := hfm.GetRow(1, rid)
		if err != nil {
			t.Fatalf("get row %d: %v", i, err)
		}
		if !bytes.Equal(got, testRow(i)) {
			t.Fatalf("row %d round trip mismatch: got %q", i, got)
		}
	}
}

func TestDeleteThenGetReportsNotFound(t *testing.T) {
	hfm, _ := newTestManager(t)
	if err := hfm.CreateHeapfile("students", 1, testRecordSize); err != nil {
		t.Fatalf("create heap file: %v", err)
	}

	rid, err := hfm.InsertRow(1, testRow(0))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := hfm.DeleteRow(1, rid); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := hfm.GetRow(1, rid); !errors.Is(err, types.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound after delete, got %v", err)
	}
	exists, err := hfm.IsRecord(1, rid)
	if err != nil {
		t.Fatalf("is record: %v", err)
	}
	if exists {
		t.Fatalf("deleted slot still reports a live record")
	}
	if err := hfm.DeleteRow(1, rid); !errors.Is(err, types.ErrRecordNotFound) {
		t.Fatalf("double delete should report ErrRecordNotFound, got %v", err)
	}
}

func TestUpdateOverwritesInPlace(t *testing.T) {
	hfm, _ := newTestManager(t)
	if err := hfm.CreateHeapfile("students", 1, testRecordSize); err != nil {
		t.Fatalf("create heap file: %v", err)
	}

	rid, err := hfm.InsertRow(1, testRow(0))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	replacement := testRow(99)
	if err := hfm.UpdateRow(1, rid, replacement); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := hfm.GetRow(1, rid)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if !bytes.Equal(got, replacement) {
		t.Fatalf("update not visible: got %q", got)
	}

	if err := hfm.UpdateRow(1, rid, make([]byte, 3)); err == nil {
		t.Fatalf("wrong-size update should fail")
	}
}

// A slot freed by delete must be found again by a later insert, via the
// free-page list rather than endless file growth.
func TestDeletedSlotIsReused(t *testing.T) {
	hfm, _ := newTestManager(t)
	if err := hfm.CreateHeapfile("students", 1, testRecordSize); err != nil {
		t.Fatalf("create heap file: %v", err)
	}

	recordsPerPage, _ := ComputeHeapLayout(testRecordSize)

	// Fill page 1 completely, then one more row to open page 2.
	rids := make([]types.Rid, 0, recordsPerPage+1)
	for i := 0; i <= recordsPerPage; i++ {
		rid, err := hfm.InsertRow(1, testRow(i))
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		rids = append(rids, rid)
	}
	if rids[recordsPerPage].PageNo == rids[0].PageNo {
		t.Fatalf("expected overflow row on a fresh page")
	}

	// Free a slot in the middle of the (full) first page and insert again:
	// the freed slot must be the one handed back.
	victim := rids[recordsPerPage/2]
	if err := hfm.DeleteRow(1, victim); err != nil {
		t.Fatalf("delete: %v", err)
	}
	rid, err := hfm.InsertRow(1, testRow(1000))
	if err != nil {
		t.Fatalf("reinsert: %v", err)
	}
	if rid != victim {
		t.Fatalf("freed slot not reused: got %v, want %v", rid, victim)
	}
}

func TestScanVisitsLiveRecordsInRidOrder(t *testing.T) {
	hfm, _ := newTestManager(t)
	if err := hfm.CreateHeapfile("students", 1, testRecordSize); err != nil {
		t.Fatalf("create heap file: %v", err)
	}

	recordsPerPage, _ := ComputeHeapLayout(testRecordSize)
	total := recordsPerPage + 5 // spill onto a second page

	rids := make([]types.Rid, 0, total)
	for i := 0; i < total; i++ {
		rid, err := hfm.InsertRow(1, testRow(i))
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		rids = append(rids, rid)
	}

	// Punch holes: delete every third record.
	deleted := make(map[types.Rid]bool)
	for i := 0; i < total; i += 3 {
		if err := hfm.DeleteRow(1, rids[i]); err != nil {
			t.Fatalf("delete %d: %v", i, err)
		}
		deleted[rids[i]] = true
	}

	hf, err := hfm.GetHeapFileByTable("students")
	if err != nil {
		t.Fatalf("get heap file: %v", err)
	}

	var visited []types.Rid
	for scan := NewRmScan(hf); !scan.IsEnd(); scan.Next() {
		visited = append(visited, scan.Rid())
	}

	if len(visited) != total-len(deleted) {
		t.Fatalf("scan visited %d records, want %d", len(visited), total-len(deleted))
	}
	for i, rid := range visited {
		if deleted[rid] {
			t.Fatalf("scan returned deleted rid %v", rid)
		}
		if i > 0 && !visited[i-1].Less(rid) {
			t.Fatalf("scan out of order: %v before %v", visited[i-1], rid)
		}
	}
}

func TestScanOnEmptyFile(t *testing.T) {
	hfm, _ := newTestManager(t)
	if err := hfm.CreateHeapfile("empty", 1, testRecordSize); err != nil {
		t.Fatalf("create heap file: %v", err)
	}
	hf, err := hfm.GetHeapFileByTable("empty")
	if err != nil {
		t.Fatalf("get heap file: %v", err)
	}
	if scan := NewRmScan(hf); !scan.IsEnd() {
		t.Fatalf("scan over empty file should start at end, got %v", scan.Rid())
	}
}

func TestRowOperationsLeaveNoPins(t *testing.T) {
	hfm, bp := newTestManager(t)
	if err := hfm.CreateHeapfile("students", 1, testRecordSize); err != nil {
		t.Fatalf("create heap file: %v", err)
	}

	rid, err := hfm.InsertRow(1, testRow(1))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := hfm.GetRow(1, rid); err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := hfm.UpdateRow(1, rid, testRow(2)); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := hfm.DeleteRow(1, rid); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if stats := bp.GetStats(); stats.PinnedPages != 0 {
		t.Fatalf("%d pages still pinned after row operations", stats.PinnedPages)
	}
}

func TestReopenRestoresFreeList(t *testing.T) {
	dir := t.TempDir()
	dm := diskmanager.NewDiskManager()
	bp := bufferpool.NewBufferPool(32, dm)
	hfm, err := NewHeapFileManager(dir, dm, bp)
	if err != nil {
		t.Fatalf("create manager: %v", err)
	}
	if err := hfm.CreateHeapfile("students", 1, testRecordSize); err != nil {
		t.Fatalf("create heap file: %v", err)
	}

	var rids []types.Rid
	for i := 0; i < 5; i++ {
		rid, err := hfm.InsertRow(1, testRow(i))
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		rids = append(rids, rid)
	}
	hf, err := hfm.GetHeapFileByTable("students")
	if err != nil {
		t.Fatalf("get heap file: %v", err)
	}
	if err := hf.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := dm.CloseAll(); err != nil {
		t.Fatalf("close files: %v", err)
	}

	dm2 := diskmanager.NewDiskManager()
	bp2 := bufferpool.NewBufferPool(32, dm2)
	hfm2, err := NewHeapFileManager(dir, dm2, bp2)
	if err != nil {
		t.Fatalf("create manager: %v", err)
	}
	if _, err := hfm2.LoadHeapFile(1, "students", testRecordSize); err != nil {
		t.Fatalf("load heap file: %v", err)
	}

	for i, rid := range rids {
		got, err := hfm2.GetRow(1, rid)
		if err != nil {
			t.Fatalf("get row %d after reopen: %v", i, err)
		}
		if !bytes.Equal(got, testRow(i)) {
			t.Fatalf("row %d lost across reopen", i)
		}
	}

	// The reopened free list must still find room on the existing page.
	rid, err := hfm2.InsertRow(1, testRow(100))
	if err != nil {
		t.Fatalf("insert after reopen: %v", err)
	}
	if rid.PageNo != rids[0].PageNo {
		t.Fatalf("insert after reopen opened page %d, want reuse of page %d", rid.PageNo, rids[0].PageNo)
	}
}

func TestComputeHeapLayout(t *testing.T) {
	tests := []struct {
		recordSize int
	}{
		{1}, {8}, {16}, {100}, {512}, {4000},
	}
	for _, tt := range tests {
		n, bitmap := ComputeHeapLayout(tt.recordSize)
		if n <= 0 && tt.recordSize <= 4000 {
			t.Fatalf("record size %d: no records fit", tt.recordSize)
		}
		if bitmap != (n+7)/8 {
			t.Fatalf("record size %d: bitmap %d for %d records", tt.recordSize, bitmap, n)
		}
		if HeapHeaderSize+bitmap+n*tt.recordSize > 4096 {
			t.Fatalf("record size %d: layout overflows the page", tt.recordSize)
		}
		// One more record must not fit.
		if HeapHeaderSize+((n+1)+7)/8+(n+1)*tt.recordSize <= 4096 {
			t.Fatalf("record size %d: layout wastes a slot", tt.recordSize)
		}
	}
}
