package lock

import "coredb/types"

// compatible reports whether requested may be granted alongside held, the
// strongest mode already granted on the data item (groupNone meaning
// nothing is held yet, always compatible). Rows are held modes, columns
// are requested modes.
var compatMatrix = [5][5]bool{
	// requested: IS,    IX,    S,     SIX,   X
	/* held IS  */ {true, true, true, true, false},
	/* held IX  */ {true, true, false, false, false},
	/* held S   */ {true, false, true, false, false},
	/* held SIX */ {true, false, false, false, false},
	/* held X   */ {false, false, false, false, false},
}

func modeIndex(m types.LockMode) int {
	switch m {
	case types.LockIS:
		return 0
	case types.LockIX:
		return 1
	case types.LockS:
		return 2
	case types.LockSIX:
		return 3
	default:
		return 4 // types.LockX
	}
}

func compatible(held groupMode, requested types.LockMode) bool {
	if held == groupNone {
		return true
	}
	return compatMatrix[held-1][modeIndex(requested)]
}
