package txn

import (
	"coredb/types"
	"sync"
)

// TxnState is a transaction's position in the strict two-phase locking
// protocol plus its terminal outcome: DEFAULT (no lock acquired yet) ->
// GROWING (first lock acquired) -> SHRINKING (first unlock) ->
// COMMITTED/ABORTED.
type TxnState uint8

const (
	TxnDefault TxnState = iota
	TxnGrowing
	TxnShrinking
	TxnCommitted
	TxnAborted
)

func (s TxnState) String() string {
	switch s {
	case TxnDefault:
		return "DEFAULT"
	case TxnGrowing:
		return "GROWING"
	case TxnShrinking:
		return "SHRINKING"
	case TxnCommitted:
		return "COMMITTED"
	case TxnAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// Transaction is the engine's handle on one in-flight unit of work: its
// identifier, its S2PL phase, the set of locks it currently holds (so abort
// can release all of them), and the logical undo log used to roll back its
// writes on abort.
type Transaction struct {
	ID    uint64
	State TxnState

	// LockSet is the set of LockDataIds this transaction currently holds.
	// The lock manager adds to it on grant and removes on release; abort
	// walks it to unlock everything still held.
	LockSet map[types.LockDataId]struct{}

	// Logical UNDO support.
	InsertedRows []InsertedRow
	UpdatedRows  []UpdatedRow

	mu sync.Mutex
}

type InsertedRow struct {
	Table      string
	Rid        types.Rid
	PrimaryKey []byte
}

type UpdatedRow struct {
	Table      string
	OldRid     types.Rid // location before update (may move on delete+reinsert)
	NewRid     types.Rid // location after update
	OldRowData []byte    // serialized old row, used to restore on rollback
	PrimaryKey []byte
}

type TxnManager struct {
	nextID     uint64
	activeTxns map[uint64]*Transaction // all currently active transactions
	mu         sync.RWMutex
}
