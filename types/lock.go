package types

import "fmt"

// LockMode is one of the five multigranularity lock modes the lock manager
// grants: shared, exclusive, intention-shared, intention-exclusive, and
// shared-with-intention-exclusive.
type LockMode uint8

const (
	LockIS LockMode = iota
	LockIX
	LockS
	LockSIX
	LockX
)

func (m LockMode) String() string {
	switch m {
	case LockIS:
		return "IS"
	case LockIX:
		return "IX"
	case LockS:
		return "S"
	case LockSIX:
		return "SIX"
	case LockX:
		return "X"
	default:
		return "UNKNOWN"
	}
}

// Granularity distinguishes a table-level lock from the row-level hook,
// which this core accepts trivially (see NewRowLockDataId).
type Granularity uint8

const (
	GranularityTable Granularity = iota
	GranularityRow
)

// LockDataId names the resource a lock request targets: either a table (by
// its heap file descriptor) or a row (by Rid). Row-granularity requests are
// an always-true stub in this core; TableFd is the only field a
// granularity-TABLE id needs.
type LockDataId struct {
	TableFd     uint32
	Rid         Rid
	Granularity Granularity
}

// NewTableLockDataId builds the LockDataId for a whole-table lock.
func NewTableLockDataId(tableFd uint32) LockDataId {
	return LockDataId{TableFd: tableFd, Granularity: GranularityTable}
}

// NewRowLockDataId builds the LockDataId for the row-lock extension point.
func NewRowLockDataId(tableFd uint32, rid Rid) LockDataId {
	return LockDataId{TableFd: tableFd, Rid: rid, Granularity: GranularityRow}
}

func (id LockDataId) String() string {
	if id.Granularity == GranularityRow {
		return fmt.Sprintf("row(%d,%d:%d)", id.TableFd, id.Rid.PageNo, id.Rid.SlotNo)
	}
	return fmt.Sprintf("table(%d)", id.TableFd)
}
