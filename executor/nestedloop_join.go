package executor

import "coredb/types"

// NestedLoopJoinExecutor pairs every right tuple with every left tuple.
// The loop order is non-standard: right drives the outer loop, left the
// inner one. Nothing in the predicate evaluation or the joined column
// layout depends on which side drives which loop — it only changes which
// side gets re-scanned more often.
type NestedLoopJoinExecutor struct {
	left  Executor
	right Executor

	cols      []types.ColMeta
	recordLen int
	fedConds  []types.Condition

	leftDone bool
	isEnd    bool
}

// NewNestedLoopJoinExecutor builds a join of left and right filtered by
// conds. The joined column list is left's columns followed by right's, with
// right's offsets shifted by left's tuple length so both halves address
// into the single concatenated output record.
func NewNestedLoopJoinExecutor(left, right Executor, conds []types.Condition) *NestedLoopJoinExecutor {
	leftCols := left.Columns()
	rightCols := right.Columns()
	leftLen := left.TupleLength()

	cols := make([]types.ColMeta, 0, len(leftCols)+len(rightCols))
	cols = append(cols, leftCols...)
	for _, c := range rightCols {
		c.Offset += leftLen
		cols = append(cols, c)
	}

	return &NestedLoopJoinExecutor{
		left:      left,
		right:     right,
		cols:      cols,
		recordLen: leftLen + right.TupleLength(),
		fedConds:  conds,
	}
}

func (e *NestedLoopJoinExecutor) Begin() error {
	if err := e.left.Begin(); err != nil {
		return err
	}
	if err := e.right.Begin(); err != nil {
		return err
	}
	e.leftDone = false
	return e.advanceToQualifying()
}

func (e *NestedLoopJoinExecutor) Next() error {
	return e.advanceToQualifying()
}

// advanceToQualifying walks right in the outer loop and left in the inner
// one, starting from the current position, until both sides land on a pair
// whose joined record satisfies fedConds or right is exhausted.
func (e *NestedLoopJoinExecutor) advanceToQualifying() error {
	for ; !e.right.IsEnd(); e.advanceRight() {
		if !e.leftDone {
			e.leftDone = true
		} else {
			if err := e.left.Next(); err != nil {
				return err
			}
		}
		for !e.left.IsEnd() {
			rec, err := e.currentJoined()
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
			if err := e.left.Next(); err != nil {
				return err
			}
		}
	}
	e.isEnd = true
	return nil
}

// advanceRight moves right forward and rewinds left back to its start:
// every right tuple gets a full pass over left, beginning with left's
// first tuple.
func (e *NestedLoopJoinExecutor) advanceRight() {
	_ = e.right.Next()
	_ = e.left.Begin()
	e.leftDone = false
}

func (e *NestedLoopJoinExecutor) currentJoined() (types.Record, error) {
	l, err := e.left.CurrentTuple()
	if err != nil {
		return nil, err
	}
	r, err := e.right.CurrentTuple()
	if err != nil {
		return nil, err
	}
	rec := make(types.Record, e.recordLen)
	copy(rec, l)
	copy(rec[len(l):], r)
	return rec, nil
}

func (e *NestedLoopJoinExecutor) IsEnd() bool { return e.isEnd }

// CurrentRid has no single well-defined value for a join: a joined tuple
// is not addressable through either child's heap file alone, so this
// reports the end sentinel.
func (e *NestedLoopJoinExecutor) CurrentRid() types.Rid { return types.EndRid }

func (e *NestedLoopJoinExecutor) TupleLength() int       { return e.recordLen }
func (e *NestedLoopJoinExecutor) Columns() []types.ColMeta { return e.cols }

func (e *NestedLoopJoinExecutor) CurrentTuple() (types.Record, error) {
	return e.currentJoined()
}
