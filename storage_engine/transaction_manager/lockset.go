package txn

import "coredb/types"

// AddLock records that the transaction now holds id, enforcing strict 2PL:
// a lock may only be acquired in DEFAULT or GROWING phase. Callers (the
// lock manager) check the phase before calling this; AddLock itself just
// maintains the set and advances DEFAULT -> GROWING.
func (t *Transaction) AddLock(id types.LockDataId) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.LockSet == nil {
		t.LockSet = make(map[types.LockDataId]struct{})
	}
	t.LockSet[id] = struct{}{}
	if t.State == TxnDefault {
		t.State = TxnGrowing
	}
}

// RemoveLock drops id from the lock set and advances GROWING -> SHRINKING.
// SHRINKING and DEFAULT are left unchanged; DEFAULT only happens when
// unlocking a row-lock stub that was never counted toward phase transitions.
func (t *Transaction) RemoveLock(id types.LockDataId) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.LockSet, id)
	if t.State == TxnGrowing {
		t.State = TxnShrinking
	}
}

// HasLock reports whether the transaction currently holds a request on id.
func (t *Transaction) HasLock(id types.LockDataId) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.LockSet[id]
	return ok
}

// HeldLocks returns a snapshot of every LockDataId the transaction holds,
// used by abort to release them all.
func (t *Transaction) HeldLocks() []types.LockDataId {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]types.LockDataId, 0, len(t.LockSet))
	for id := range t.LockSet {
		ids = append(ids, id)
	}
	return ids
}

// Phase returns the transaction's current S2PL phase.
func (t *Transaction) Phase() TxnState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.State
}
