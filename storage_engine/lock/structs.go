package lock

import (
	"sync"

	"coredb/types"
)

// groupMode is the strongest mode granted among a LockRequestQueue's
// requests, plus a zero value for "nothing granted yet" that has no
// counterpart in types.LockMode.
type groupMode uint8

const (
	groupNone groupMode = iota
	groupIS
	groupIX
	groupS
	groupSIX
	groupX
)

func (g groupMode) String() string {
	switch g {
	case groupIS:
		return "IS"
	case groupIX:
		return "IX"
	case groupS:
		return "S"
	case groupSIX:
		return "SIX"
	case groupX:
		return "X"
	default:
		return "NON_LOCK"
	}
}

// fromLockMode converts a granted types.LockMode into the group's vocabulary.
func fromLockMode(m types.LockMode) groupMode {
	switch m {
	case types.LockIS:
		return groupIS
	case types.LockIX:
		return groupIX
	case types.LockS:
		return groupS
	case types.LockSIX:
		return groupSIX
	case types.LockX:
		return groupX
	default:
		return groupNone
	}
}

// request is one transaction's lock request against a LockDataId, granted
// the instant it's appended (the no-wait policy never queues a blocked
// request — it aborts the requester instead).
type request struct {
	txnID uint64
	mode  types.LockMode
}

// LockRequestQueue holds every granted request on one LockDataId plus
// cached summary fields: the strongest granted mode and the shared/IX
// counts needed to decide SIX upgrades without rescanning the queue.
type LockRequestQueue struct {
	requests    []request
	groupMode   groupMode
	sharedCount int
	ixCount     int
}

func (q *LockRequestQueue) findTxn(txnID uint64) int {
	for i := range q.requests {
		if q.requests[i].txnID == txnID {
			return i
		}
	}
	return -1
}

// recomputeGroupMode rebuilds groupMode/sharedCount/ixCount from scratch
// over the surviving requests after a release.
func (q *LockRequestQueue) recomputeGroupMode() {
	q.groupMode = groupNone
	q.sharedCount = 0
	q.ixCount = 0
	for _, r := range q.requests {
		g := fromLockMode(r.mode)
		if g > q.groupMode {
			q.groupMode = g
		}
		switch r.mode {
		case types.LockS:
			q.sharedCount++
		case types.LockIX:
			q.ixCount++
		}
	}
}

// shard is one partition of the global lock table, each independently
// mutex-guarded so unrelated tables don't serialize on the same lock.
type shard struct {
	mu    sync.Mutex
	table map[types.LockDataId]*LockRequestQueue
}

// LockManager is a table-level multigranularity lock manager enforcing
// strict two-phase locking under a no-wait deadlock-avoidance policy.
// The lock table is sharded by LockDataId hash (xxhash) to reduce
// contention between transactions touching unrelated tables.
type LockManager struct {
	shards []*shard
}

const numShards = 32
