package executor

import (
	heapfile "coredb/storage_engine/access/heapfile_manager"
	"coredb/types"
	"errors"
)

// DeleteExecutor consumes a pre-computed list of Rids (typically produced
// by a child scan) plus residual predicates: for each
// Rid it skips rows that no longer exist, re-verifies the predicates
// against the live record (the row may have changed since the Rid list
// was built), and issues DeleteRow only for rows that still qualify.
type DeleteExecutor struct {
	hfm       *heapfile.HeapFileManager
	fileID    uint32
	cols      []types.ColMeta
	recordLen int
	conds     []types.Condition

	rids    []types.Rid
	pos     int
	rid     types.Rid
	deleted int
}

// NewDeleteExecutor builds a delete over rids, re-checking conds against
// each row's live record before removing it.
func NewDeleteExecutor(hfm *heapfile.HeapFileManager, fileID uint32, cols []types.ColMeta, recordLen int, conds []types.Condition, rids []types.Rid) *DeleteExecutor {
	return &DeleteExecutor{
		hfm:       hfm,
		fileID:    fileID,
		cols:      cols,
		recordLen: recordLen,
		conds:     conds,
		rids:      rids,
	}
}

func (e *DeleteExecutor) Begin() error {
	e.pos = 0
	return e.advance(false)
}

func (e *DeleteExecutor) Next() error {
	return e.advance(true)
}

// advance walks forward through e.rids, deleting every row that still
// exists and still satisfies conds, stopping once one has been deleted
// (CurrentRid reports the row just removed) or the list is exhausted.
func (e *DeleteExecutor) advance(stepFirst bool) error {
	if stepFirst {
		e.pos++
	}
	for e.pos < len(e.rids) {
		rid := e.rids[e.pos]
		isRecord, err := e.hfm.IsRecord(e.fileID, rid)
		if err != nil || !isRecord {
			e.pos++
			continue
		}
		rec, err := e.hfm.GetRow(e.fileID, rid)
		if err != nil {
			if errors.Is(err, types.ErrRecordNotFound) {
				e.pos++
				continue
			}
			return err
		}
		ok, err := evalConditions(e.cols, rec, e.conds)
		if err != nil {
			return err
		}
		if !ok {
			e.pos++
			continue
		}
		if err := e.hfm.DeleteRow(e.fileID, rid); err != nil {
			return err
		}
		e.rid = rid
		e.deleted++
		return nil
	}
	e.rid = types.EndRid
	return nil
}

func (e *DeleteExecutor) IsEnd() bool              { return e.pos >= len(e.rids) }
func (e *DeleteExecutor) CurrentRid() types.Rid    { return e.rid }
func (e *DeleteExecutor) TupleLength() int         { return e.recordLen }
func (e *DeleteExecutor) Columns() []types.ColMeta { return e.cols }

// CurrentTuple has nothing to return once a row is deleted, so it always
// returns an error. DeleteExecutor exists for its side effect — callers
// drive it for Next()/IsEnd() only, and Deleted reports the rows removed.
func (e *DeleteExecutor) CurrentTuple() (types.Record, error) {
	return nil, errors.New("DeleteExecutor: CurrentTuple is not meaningful after delete")
}

// Deleted returns the number of rows removed so far.
func (e *DeleteExecutor) Deleted() int { return e.deleted }
