package lock

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	txn "coredb/storage_engine/transaction_manager"
	"coredb/types"
)

/*
LockManager is the table-level multigranularity lock manager: S/X/IS/IX/SIX
modes, strict two-phase locking, no-wait deadlock avoidance. The lock table
is a sharded map so that unrelated tables do not contend on one global
mutex.
*/

// NewLockManager builds an empty lock table partitioned into numShards
// independently mutex-guarded shards.
func NewLockManager() *LockManager {
	lm := &LockManager{shards: make([]*shard, numShards)}
	for i := range lm.shards {
		lm.shards[i] = &shard{table: make(map[types.LockDataId]*LockRequestQueue)}
	}
	return lm
}

func (lm *LockManager) shardFor(id types.LockDataId) *shard {
	var buf [13]byte
	binary.LittleEndian.PutUint32(buf[0:4], id.TableFd)
	binary.LittleEndian.PutUint64(buf[4:12], uint64(id.Rid.PageNo))
	buf[12] = byte(id.Granularity)
	h := xxhash.Sum64(buf[:])
	return lm.shards[h%uint64(numShards)]
}

// LockISOnTable acquires intention-shared on the table, allowing the
// transaction to later take row-level shared locks beneath it.
func (lm *LockManager) LockISOnTable(t *txn.Transaction, tableFd uint32) error {
	return lm.lockTable(t, tableFd, types.LockIS)
}

// LockIXOnTable acquires intention-exclusive on the table.
func (lm *LockManager) LockIXOnTable(t *txn.Transaction, tableFd uint32) error {
	return lm.lockTable(t, tableFd, types.LockIX)
}

// LockSharedOnTable acquires a full-table shared (read) lock.
func (lm *LockManager) LockSharedOnTable(t *txn.Transaction, tableFd uint32) error {
	return lm.lockTable(t, tableFd, types.LockS)
}

// LockExclusiveOnTable acquires a full-table exclusive (write) lock.
func (lm *LockManager) LockExclusiveOnTable(t *txn.Transaction, tableFd uint32) error {
	return lm.lockTable(t, tableFd, types.LockX)
}

// LockSharedOnRecord and LockExclusiveOnRecord are row-level hooks kept as
// an extension point: this core never
// narrows below table granularity, so these trivially succeed without
// touching the lock table or the transaction's lock set.
func (lm *LockManager) LockSharedOnRecord(t *txn.Transaction, rid types.Rid, tableFd uint32) error {
	return nil
}

func (lm *LockManager) LockExclusiveOnRecord(t *txn.Transaction, rid types.Rid, tableFd uint32) error {
	return nil
}

func (lm *LockManager) lockTable(t *txn.Transaction, tableFd uint32, requested types.LockMode) error {
	return lm.acquire(t, types.NewTableLockDataId(tableFd), requested)
}

func (lm *LockManager) acquire(t *txn.Transaction, id types.LockDataId, requested types.LockMode) error {
	phase := t.Phase()
	if phase != txn.TxnDefault && phase != txn.TxnGrowing {
		return fmt.Errorf("lockTable txn=%d on %v: %w", t.ID, id, types.ErrLockOnShrinking)
	}

	sh := lm.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	q, exists := sh.table[id]
	if !exists {
		q = &LockRequestQueue{}
		sh.table[id] = q
	}

	if i := q.findTxn(t.ID); i >= 0 {
		if attemptUpgrade(q, i, requested) {
			t.AddLock(id)
			return nil
		}
		// Upgrade not permitted from the held mode; fall through to the
		// no-wait compatibility check below, same as a fresh request.
	}

	if !compatible(q.groupMode, requested) {
		return fmt.Errorf("lockTable txn=%d on %v (requested %s, held %s): %w", t.ID, id, requested, q.groupMode, types.ErrDeadlockPrevention)
	}

	q.requests = append(q.requests, request{txnID: t.ID, mode: requested})
	switch requested {
	case types.LockS:
		q.sharedCount++
	case types.LockIX:
		q.ixCount++
	}
	q.recomputeGroupMode()
	t.AddLock(id)
	return nil
}

// Unlock releases the transaction's request on id, recomputes the queue's
// group mode from scratch over the surviving requests, and advances the
// transaction GROWING -> SHRINKING (SHRINKING/DEFAULT are left as-is;
// releasing after COMMITTED/ABORTED is a protocol violation).
func (lm *LockManager) Unlock(t *txn.Transaction, id types.LockDataId) error {
	phase := t.Phase()
	if phase == txn.TxnCommitted || phase == txn.TxnAborted {
		return fmt.Errorf("unlock txn=%d on %v: %w", t.ID, id, types.ErrLockOnShrinking)
	}

	sh := lm.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	q, exists := sh.table[id]
	if exists {
		if i := q.findTxn(t.ID); i >= 0 {
			switch q.requests[i].mode {
			case types.LockS:
				q.sharedCount--
			case types.LockIX:
				q.ixCount--
			case types.LockSIX:
				q.sharedCount--
				q.ixCount--
			}
			q.requests = append(q.requests[:i], q.requests[i+1:]...)
			q.recomputeGroupMode()
		}
	}

	t.RemoveLock(id)
	return nil
}

// ReleaseAll unlocks every LockDataId the transaction currently holds,
// called on commit and abort so a terminated transaction leaves no
// dangling grants in the lock table.
func (lm *LockManager) ReleaseAll(t *txn.Transaction) {
	for _, id := range t.HeldLocks() {
		_ = lm.Unlock(t, id)
	}
}
