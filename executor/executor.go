// Package executor implements the Volcano-model pull iterators that
// compose over the record manager and B+ tree index layers: sequential
// scan, index scan, nested-loop join, and delete. Each operator exposes
// the same seven operations so a plan tree can pull tuples uniformly
// regardless of its shape.
package executor

import "coredb/types"

// Executor is the pull-based physical-operator contract every node in a
// plan tree implements. Begin positions the cursor at the first qualifying
// tuple (or end); Next advances past the current one. A single query runs
// one operator tree on one goroutine — there is no concurrent pulling
// within a pipeline.
type Executor interface {
	Begin() error
	Next() error
	IsEnd() bool
	CurrentRid() types.Rid
	TupleLength() int
	Columns() []types.ColMeta
	CurrentTuple() (types.Record, error)
}
