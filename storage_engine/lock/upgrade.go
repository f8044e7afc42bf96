package lock

import "coredb/types"

// attemptUpgrade handles the case where the requesting transaction already
// holds a request on the queue. It mutates q and q.requests[i] in place and
// reports whether the request is now granted at (at least) requested's
// strength. A false return means the held mode cannot reach requested by
// upgrade and the caller must fall back to the no-wait compatibility check
// against the queue's group mode.
func attemptUpgrade(q *LockRequestQueue, i int, requested types.LockMode) bool {
	held := q.requests[i].mode
	if held == requested {
		return true // trivial: requested <= held
	}

	switch requested {
	case types.LockIS:
		return true // IS is the weakest mode; anything held already satisfies it

	case types.LockS:
		switch held {
		case types.LockIS:
			q.requests[i].mode = types.LockS
			q.sharedCount++
			q.recomputeGroupMode()
			return true
		case types.LockIX:
			q.requests[i].mode = types.LockSIX
			q.sharedCount++
			q.recomputeGroupMode()
			return true
		case types.LockSIX, types.LockX:
			return true // already at least as strong as S
		}
		return false

	case types.LockIX:
		switch held {
		case types.LockIS:
			q.requests[i].mode = types.LockIX
			q.ixCount++
			q.recomputeGroupMode()
			return true
		case types.LockS:
			if q.sharedCount == 1 {
				q.requests[i].mode = types.LockSIX
				q.ixCount++
				q.recomputeGroupMode()
				return true
			}
			return false
		case types.LockSIX, types.LockX:
			return true // already at least as strong as IX
		}
		return false

	case types.LockX:
		if len(q.requests) == 1 {
			switch held {
			case types.LockS:
				q.sharedCount--
			case types.LockIX:
				q.ixCount--
			case types.LockSIX:
				q.sharedCount--
				q.ixCount--
			}
			q.requests[i].mode = types.LockX
			q.recomputeGroupMode()
			return true
		}
		return false
	}

	return false
}
