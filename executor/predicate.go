package executor

import (
	"fmt"

	"coredb/types"
)

// findCol looks up a column by name within a (possibly multi-table) column
// list. An empty table restricts nothing; a non-empty one must match,
// which disambiguates cross-table column names after a join.
func findCol(cols []types.ColMeta, table, name string) (*types.ColMeta, error) {
	for i := range cols {
		if cols[i].Name == name && (table == "" || cols[i].TableName == table) {
			return &cols[i], nil
		}
	}
	return nil, fmt.Errorf("findCol: %w: %s.%s", types.ErrColumnNotFound, table, name)
}

// applyOp turns a 3-valued comparator result into the boolean the
// condition's operator asks for.
func applyOp(op types.CompOp, cmp int) bool {
	switch op {
	case types.OpEq:
		return cmp == 0
	case types.OpNe:
		return cmp != 0
	case types.OpLt:
		return cmp < 0
	case types.OpGt:
		return cmp > 0
	case types.OpLe:
		return cmp <= 0
	case types.OpGe:
		return cmp >= 0
	default:
		return false
	}
}

// evalConditions AND-combines every condition against one record: for each,
// it locates the left column's bytes, the right side's bytes (a literal's
// raw encoding or another column's slice), and compares them with the
// comparator for the right side's declared type over the left column's
// length — types must match; no implicit conversion. This is the single
// free function Condition evaluation flows through for every operator, so
// SeqScan/IndexScan/NestedLoopJoin/Delete all agree on predicate semantics.
func evalConditions(cols []types.ColMeta, record types.Record, conds []types.Condition) (bool, error) {
	for _, cond := range conds {
		lhsCol, err := findCol(cols, cond.LhsTable, cond.LhsCol)
		if err != nil {
			return false, err
		}
		lhs := record[lhsCol.Offset : lhsCol.Offset+lhsCol.Len]

		var rhs []byte
		var rhsType types.ColType
		if cond.IsRhsVal {
			rhs = cond.RhsVal.Raw
			rhsType = cond.RhsVal.Type
		} else {
			rhsCol, err := findCol(cols, cond.RhsTable, cond.RhsCol)
			if err != nil {
				return false, err
			}
			rhs = record[rhsCol.Offset : rhsCol.Offset+rhsCol.Len]
			rhsType = rhsCol.Type
		}

		if rhsType != lhsCol.Type {
			return false, fmt.Errorf("evalConditions: %s.%s vs %s: %w", cond.LhsTable, cond.LhsCol, cond.RhsCol, types.ErrTypeMismatch)
		}

		cmp := types.CompareTyped(rhsType, lhs, rhs)
		if !applyOp(cond.Op, cmp) {
			return false, nil
		}
	}
	return true, nil
}
