package lock

import (
	"errors"
	"testing"

	txn "coredb/storage_engine/transaction_manager"
	"coredb/types"
)

func TestIntentionModesAreCompatible(t *testing.T) {
	lm := NewLockManager()
	tm, _ := txn.NewTxnManager()

	t1 := tm.Begin()
	t2 := tm.Begin()
	t3 := tm.Begin()

	if err := lm.LockISOnTable(t1, 4); err != nil {
		t.Fatalf("IS: %v", err)
	}
	if err := lm.LockIXOnTable(t2, 4); err != nil {
		t.Fatalf("IX alongside IS: %v", err)
	}
	if err := lm.LockISOnTable(t3, 4); err != nil {
		t.Fatalf("IS alongside IS+IX: %v", err)
	}

	// X conflicts with the IS/IX group.
	t4 := tm.Begin()
	if err := lm.LockExclusiveOnTable(t4, 4); !errors.Is(err, types.ErrDeadlockPrevention) {
		t.Fatalf("X against intention group should abort, got %v", err)
	}
}

func TestSharedBlocksIntentionExclusive(t *testing.T) {
	lm := NewLockManager()
	tm, _ := txn.NewTxnManager()

	t1 := tm.Begin()
	t2 := tm.Begin()
	if err := lm.LockSharedOnTable(t1, 4); err != nil {
		t.Fatalf("S: %v", err)
	}
	if err := lm.LockIXOnTable(t2, 4); !errors.Is(err, types.ErrDeadlockPrevention) {
		t.Fatalf("IX against another txn's S should abort, got %v", err)
	}
}

// A sole S holder asking for IX lands on SIX; a second S holder forbids it.
func TestSToSIXUpgradeRequiresSoleHolder(t *testing.T) {
	lm := NewLockManager()
	tm, _ := txn.NewTxnManager()

	t1 := tm.Begin()
	if err := lm.LockSharedOnTable(t1, 4); err != nil {
		t.Fatalf("S: %v", err)
	}
	if err := lm.LockIXOnTable(t1, 4); err != nil {
		t.Fatalf("sole S holder should upgrade to SIX: %v", err)
	}

	// SIX now blocks everything except IS from others.
	t2 := tm.Begin()
	if err := lm.LockISOnTable(t2, 4); err != nil {
		t.Fatalf("IS alongside SIX: %v", err)
	}
	t3 := tm.Begin()
	if err := lm.LockSharedOnTable(t3, 4); !errors.Is(err, types.ErrDeadlockPrevention) {
		t.Fatalf("S against SIX should abort, got %v", err)
	}

	// Two S holders on a fresh item: neither may take IX anymore.
	lm2 := NewLockManager()
	a, b := tm.Begin(), tm.Begin()
	if err := lm2.LockSharedOnTable(a, 9); err != nil {
		t.Fatalf("S: %v", err)
	}
	if err := lm2.LockSharedOnTable(b, 9); err != nil {
		t.Fatalf("second S: %v", err)
	}
	if err := lm2.LockIXOnTable(a, 9); !errors.Is(err, types.ErrDeadlockPrevention) {
		t.Fatalf("S->SIX with two S holders should abort, got %v", err)
	}
}

func TestUpgradeToXRequiresSoleRequest(t *testing.T) {
	lm := NewLockManager()
	tm, _ := txn.NewTxnManager()

	t1 := tm.Begin()
	if err := lm.LockSharedOnTable(t1, 4); err != nil {
		t.Fatalf("S: %v", err)
	}
	if err := lm.LockExclusiveOnTable(t1, 4); err != nil {
		t.Fatalf("sole S holder should upgrade to X: %v", err)
	}

	// With a second reader present, S->X must abort.
	lm2 := NewLockManager()
	a, b := tm.Begin(), tm.Begin()
	if err := lm2.LockSharedOnTable(a, 9); err != nil {
		t.Fatalf("S: %v", err)
	}
	if err := lm2.LockSharedOnTable(b, 9); err != nil {
		t.Fatalf("second S: %v", err)
	}
	if err := lm2.LockExclusiveOnTable(a, 9); !errors.Is(err, types.ErrDeadlockPrevention) {
		t.Fatalf("S->X with two holders should abort, got %v", err)
	}
}

func TestTrivialUpgradeIsNoOp(t *testing.T) {
	lm := NewLockManager()
	tm, _ := txn.NewTxnManager()

	t1 := tm.Begin()
	if err := lm.LockExclusiveOnTable(t1, 4); err != nil {
		t.Fatalf("X: %v", err)
	}
	// Anything weaker than what is held is granted without a queue change.
	if err := lm.LockSharedOnTable(t1, 4); err != nil {
		t.Fatalf("S under own X: %v", err)
	}
	if err := lm.LockISOnTable(t1, 4); err != nil {
		t.Fatalf("IS under own X: %v", err)
	}
}

// The cached group mode must always equal the strongest granted mode,
// including after releases.
func TestGroupModeTracksStrongestGrant(t *testing.T) {
	lm := NewLockManager()
	tm, _ := txn.NewTxnManager()

	t1 := tm.Begin()
	t2 := tm.Begin()
	id := types.NewTableLockDataId(4)

	if err := lm.LockISOnTable(t1, 4); err != nil {
		t.Fatalf("IS: %v", err)
	}
	if err := lm.LockIXOnTable(t2, 4); err != nil {
		t.Fatalf("IX: %v", err)
	}

	sh := lm.shardFor(id)
	sh.mu.Lock()
	q := sh.table[id]
	if q.groupMode != groupIX {
		t.Fatalf("group mode %v, want IX", q.groupMode)
	}
	sh.mu.Unlock()

	// Dropping the IX holder leaves only IS.
	if err := lm.Unlock(t2, id); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	sh.mu.Lock()
	if q.groupMode != groupIS {
		t.Fatalf("group mode after release %v, want IS", q.groupMode)
	}
	sh.mu.Unlock()
}

func TestRowLockHooksAlwaysGrant(t *testing.T) {
	lm := NewLockManager()
	tm, _ := txn.NewTxnManager()
	t1 := tm.Begin()

	rid := types.Rid{PageNo: 1, SlotNo: 2}
	if err := lm.LockSharedOnRecord(t1, rid, 4); err != nil {
		t.Fatalf("row S hook: %v", err)
	}
	if err := lm.LockExclusiveOnRecord(t1, rid, 4); err != nil {
		t.Fatalf("row X hook: %v", err)
	}
	if len(t1.HeldLocks()) != 0 {
		t.Fatalf("row hooks should not touch the lock set")
	}
}

func TestReleaseAllEmptiesLockSet(t *testing.T) {
	lm := NewLockManager()
	tm, _ := txn.NewTxnManager()

	t1 := tm.Begin()
	if err := lm.LockSharedOnTable(t1, 1); err != nil {
		t.Fatalf("S: %v", err)
	}
	if err := lm.LockIXOnTable(t1, 2); err != nil {
		t.Fatalf("IX: %v", err)
	}
	if got := len(t1.HeldLocks()); got != 2 {
		t.Fatalf("lock set has %d entries, want 2", got)
	}

	lm.ReleaseAll(t1)
	if got := len(t1.HeldLocks()); got != 0 {
		t.Fatalf("lock set has %d entries after release, want 0", got)
	}

	// Both tables are free for an exclusive taker now.
	t2 := tm.Begin()
	if err := lm.LockExclusiveOnTable(t2, 1); err != nil {
		t.Fatalf("X after release: %v", err)
	}
	if err := lm.LockExclusiveOnTable(t2, 2); err != nil {
		t.Fatalf("X after release: %v", err)
	}
}
