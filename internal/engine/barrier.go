// internal/engine/barrier.go
package engine

// Barrier predicates decide whether every relevant participant has reached a
// synchronization point. Unoccupied and unvalidated seats are excluded from
// every quorum so an evicted seat can never block the room.

// readyBarrier reports whether the room may start its next match.
//
// For the first match (room in matchmaking) only the organizer's ready flag
// gates the start: random/custom require the opposing seat implicitly through
// occupancy, royale requires organizer-ready only. For subsequent rounds
// (room in aftermatch) every occupied-and-validated seat must be ready.
func readyBarrier(room *Room) bool {
	switch room.State {
	case StateMatchmaking:
		org := room.Organizer()
		if org < 0 {
			return false
		}
		s := room.Players[org]
		if !s.Validated || !s.Ready {
			return false
		}
		if room.Mode == ModeRoyale {
			return true
		}
		// Two-seat modes need the opponent seated and validated.
		return room.ValidatedCount() == len(room.Players)
	case StateAftermatch:
		any := false
		for _, s := range room.Players {
			if !s.Occupied || !s.Validated {
				continue
			}
			any = true
			if !s.Ready {
				return false
			}
		}
		return any
	default:
		return false
	}
}

// positionedBarrier reports whether every competing participant has reported
// a start position. The wall host never competes.
func positionedBarrier(room *Room) bool {
	if room.State != StatePlaying || room.animationStarted {
		return false
	}
	any := false
	for _, s := range room.Players {
		if !s.Occupied || !s.Validated || s.Wall {
			continue
		}
		any = true
		if !s.Match.Positioned {
			return false
		}
	}
	return any
}

// animationBarrier reports whether every competing participant has finished
// the result animation.
func animationBarrier(room *Room) bool {
	if room.State != StatePlaying || !room.animationStarted {
		return false
	}
	any := false
	for _, s := range room.Players {
		if !s.Occupied || !s.Validated || s.Wall {
			continue
		}
		any = true
		if !s.Match.AnimationEnded {
			return false
		}
	}
	return any
}
