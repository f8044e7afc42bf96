package executor

import (
	heapfile "coredb/storage_engine/access/heapfile_manager"
	indexfile "coredb/storage_engine/access/indexfile_manager"
	bplus "coredb/storage_engine/access/indexfile_manager/bplustree"
	"coredb/types"
)

// IndexScanExecutor selects a range over an index using the predicates on
// the index's leading column: `=` narrows to [lower,
// upper], `<`/`<=` bound only the upper end, `>`/`>=` only the lower end,
// `!=` never narrows. Any predicate whose left column is on another table
// is swapped (with its comparator flipped) before construction, since an
// index scan only ever evaluates predicates local to its own table.
type IndexScanExecutor struct {
	tableName string
	tab       types.TabMeta
	idx       types.IndexMeta
	fedConds  []types.Condition
	hfm       *heapfile.HeapFileManager
	fileID    uint32
	cols      []types.ColMeta
	recordLen int

	tree *bplus.BPlusTree
	cmp  func(a, b []byte) int

	upperKey       []byte
	upperInclusive bool

	it  *bplus.Iterator
	rid types.Rid
}

// NewIndexScanExecutor builds an index scan over tab's idx index, filtered
// by conds, materializing full rows through hfm/fileID.
func NewIndexScanExecutor(hfm *heapfile.HeapFileManager, ifm *indexfile.IndexFileManager, fileID uint32, indexFileID uint32, tab types.TabMeta, idx types.IndexMeta, cols []types.ColMeta, recordLen int, conds []types.Condition) (*IndexScanExecutor, error) {
	fedConds := make([]types.Condition, len(conds))
	copy(fedConds, conds)
	for i, cond := range fedConds {
		if cond.LhsTable != "" && cond.LhsTable != tab.Name {
			cond.LhsCol, cond.RhsCol = cond.RhsCol, cond.LhsCol
			cond.LhsTable, cond.RhsTable = cond.RhsTable, cond.LhsTable
			cond.Op = types.FlipOp(cond.Op)
			fedConds[i] = cond
		}
	}

	tree, err := ifm.GetOrCreateIndex(tab, idx, indexFileID)
	if err != nil {
		return nil, err
	}
	cmp, err := indexfile.ComparatorFor(tab, idx)
	if err != nil {
		return nil, err
	}

	return &IndexScanExecutor{
		tableName: tab.Name,
		tab:       tab,
		idx:       idx,
		fedConds:  fedConds,
		hfm:       hfm,
		fileID:    fileID,
		cols:      cols,
		recordLen: recordLen,
		tree:      tree,
		cmp:       cmp,
	}, nil
}

// boundsFromPredicate looks for the one predicate narrowing the leading
// indexed column and returns the seek start key plus an optional exclusive
// upper bound. Narrowing only applies to single-column indexes: a composite
// bound key would need its non-leading columns padded to some filler value,
// and since those columns can be typed (e.g. signed int32), a raw 0x00/0xFF
// filler does not always sort as the true min/max under the tree's typed
// comparator, which could move the bound past keys that still qualify.
// Composite-index scans fall back to a full SeekFirst walk instead; every
// fetched row is still re-checked against fedConds regardless, so this only
// costs scan-range tightness, never correctness.
func (e *IndexScanExecutor) boundsFromPredicate() []byte {
	if len(e.idx.Cols) != 1 {
		return nil
	}
	leadCol := e.idx.Cols[0]
	for _, cond := range e.fedConds {
		if !cond.IsRhsVal || cond.Op == types.OpNe || cond.LhsCol != leadCol {
			continue
		}

		col, err := e.tab.Col(leadCol)
		if err != nil {
			continue
		}
		switch cond.Op {
		case types.OpEq:
			// Equality probes bound both ends at k.
			e.upperKey = e.padBound(cond.RhsVal.Raw, col.Len, true)
			e.upperInclusive = true
			return e.padBound(cond.RhsVal.Raw, col.Len, false)
		case types.OpGe:
			return e.padBound(cond.RhsVal.Raw, col.Len, false)
		case types.OpGt:
			return e.exclusiveSuccessor(cond.RhsVal.Raw, col.Len)
		case types.OpLt:
			e.upperKey = e.padBound(cond.RhsVal.Raw, col.Len, false)
			e.upperInclusive = false
			return nil
		case types.OpLe:
			e.upperKey = e.padBound(cond.RhsVal.Raw, col.Len, true)
			e.upperInclusive = true
			return nil
		}
	}
	return nil
}

func (e *IndexScanExecutor) padBound(lead []byte, leadLen int, padHigh bool) []byte {
	total := e.idx.ColTotLen
	buf := make([]byte, total)
	copy(buf, lead)
	fill := byte(0x00)
	if padHigh {
		fill = 0xFF
	}
	for i := leadLen; i < total; i++ {
		buf[i] = fill
	}
	return buf
}

// exclusiveSuccessor builds the seek key for `>`: the bound with any bytes
// past the leading column padded with 0xFF. Bounds are only built for
// single-column indexes, where there are no such bytes, so the key is the
// bound itself; SeekGE lands on keys equal to it and the fedConds re-check
// skips them.
func (e *IndexScanExecutor) exclusiveSuccessor(lead []byte, leadLen int) []byte {
	return e.padBound(lead, leadLen, true)
}

func (e *IndexScanExecutor) Begin() error {
	startKey := e.boundsFromPredicate()
	if startKey == nil {
		e.it = e.tree.SeekFirst()
	} else {
		e.it = e.tree.SeekGE(startKey)
	}
	return e.advanceToQualifying(false)
}

func (e *IndexScanExecutor) Next() error {
	return e.advanceToQualifying(true)
}

// advanceToQualifying walks the iterator (optionally stepping once first)
// until it lands on a Rid whose live record satisfies fedConds, the upper
// bound, or the iterator is exhausted.
func (e *IndexScanExecutor) advanceToQualifying(stepFirst bool) error {
	if stepFirst {
		if !e.it.Next() {
			e.rid = types.EndRid
			return nil
		}
	}
	for {
		if e.it == nil {
			e.rid = types.EndRid
			return nil
		}
		key, value, err := e.it.Entry()
		if err != nil {
			// Exhausted cursor: the range simply ended.
			e.rid = types.EndRid
			return nil
		}
		if e.upperKey != nil {
			cmp := e.cmp(key, e.upperKey)
			if cmp > 0 || (cmp == 0 && !e.upperInclusive) {
				// Stopping short of the iterator's natural end: drop its
				// leaf pin explicitly.
				e.it.Close()
				e.rid = types.EndRid
				return nil
			}
		}

		e.rid = indexfile.DecodeRid(value)
		isRecord, err := e.hfm.IsRecord(e.fileID, e.rid)
		if err == nil && isRecord {
			rec, err := e.hfm.GetRow(e.fileID, e.rid)
			if err != nil {
				return err
			}
			ok, err := evalConditions(e.cols, rec, e.fedConds)
			if err != nil {
				return err
			}
			if ok {
				return nil
			}
		}
		if !e.it.Next() {
			e.rid = types.EndRid
			return nil
		}
	}
}

func (e *IndexScanExecutor) IsEnd() bool           { return e.rid.IsEnd() }
func (e *IndexScanExecutor) CurrentRid() types.Rid { return e.rid }
func (e *IndexScanExecutor) TupleLength() int      { return e.recordLen }
func (e *IndexScanExecutor) Columns() []types.ColMeta { return e.cols }

func (e *IndexScanExecutor) CurrentTuple() (types.Record, error) {
	return e.hfm.GetRow(e.fileID, e.rid)
}
