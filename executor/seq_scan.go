package executor

import (
	heapfile "coredb/storage_engine/access/heapfile_manager"
	"coredb/types"
)

// SeqScanExecutor wraps a record-manager scan: begin advances to the
// first Rid whose record satisfies every predicate, next advances past
// the current Rid to the next qualifying one.
type SeqScanExecutor struct {
	tableName string
	conds     []types.Condition
	hfm       *heapfile.HeapFileManager
	fileID    uint32
	cols      []types.ColMeta
	recordLen int

	scan *heapfile.RmScan
	rid  types.Rid
}

// NewSeqScanExecutor builds a full-table scan over tableName filtered by
// conds. cols is the table's column layout (offsets already assigned).
func NewSeqScanExecutor(hfm *heapfile.HeapFileManager, fileID uint32, tableName string, cols []types.ColMeta, recordLen int, conds []types.Condition) *SeqScanExecutor {
	return &SeqScanExecutor{
		tableName: tableName,
		conds:     conds,
		hfm:       hfm,
		fileID:    fileID,
		cols:      cols,
		recordLen: recordLen,
	}
}

func (e *SeqScanExecutor) Begin() error {
	hf, err := e.hfm.GetHeapFileByTable(e.tableName)
	if err != nil {
		return err
	}
	e.scan = heapfile.NewRmScan(hf)
	e.rid = e.scan.Rid()

	for !e.scan.IsEnd() {
		ok, err := e.matches(e.rid)
		if err != nil {
			return err
		}
		if ok {
			break
		}
		e.scan.Next()
		e.rid = e.scan.Rid()
	}
	return nil
}

func (e *SeqScanExecutor) Next() error {
	for e.scan.Next(); !e.scan.IsEnd(); e.scan.Next() {
		e.rid = e.scan.Rid()
		ok, err := e.matches(e.rid)
		if err != nil {
			return err
		}
		if ok {
			break
		}
	}
	if e.scan.IsEnd() {
		e.rid = types.EndRid
	}
	return nil
}

func (e *SeqScanExecutor) matches(rid types.Rid) (bool, error) {
	rec, err := e.hfm.GetRow(e.fileID, rid)
	if err != nil {
		return false, err
	}
	return evalConditions(e.cols, rec, e.conds)
}

func (e *SeqScanExecutor) IsEnd() bool          { return e.scan.IsEnd() }
func (e *SeqScanExecutor) CurrentRid() types.Rid { return e.rid }
func (e *SeqScanExecutor) TupleLength() int      { return e.recordLen }
func (e *SeqScanExecutor) Columns() []types.ColMeta { return e.cols }

func (e *SeqScanExecutor) CurrentTuple() (types.Record, error) {
	return e.hfm.GetRow(e.fileID, e.rid)
}
