package app

import (
	"arena/internal/domain"
)

// validateIngress runs the ordered checks of 
// already-attached session before its event is allowed to reach the room
// FSM. It is a pure predicate — no I/O, no locking — mirroring the domain
// package's own "no I/O in transition functions" discipline so the room
// actor can call it inline without holding anything but the room's own
// exclusive section.
func validateIngress(sess *domain.Session, room *domain.Room, in domain.InEvent) error {
	// 1. session attached — guaranteed by the caller holding a *domain.Session
	// at all (an unattached session never reaches here), listed here only for
	// parity with the ordered check list below.

	// 2. session holds a seat in this room.
	if !sess.Seated() || sess.RoomID != room.RoomID {
		return domain.ErrNotInRoom
	}
	seat := sess.Seat

	// 3. room status permits this kind.
	if !kindAllowedInState(in.Kind, room.Status) {
		return domain.ErrBadState
	}

	// 4. seat ownership: any payload carrying a seat field must match the
	// sender's assigned seat. No silent rewrite — reject outright.
	switch p := in.Payload.(type) {
	case domain.PlayerPositionRequest:
		if p.Seat != seat {
			return domain.ErrSeatSpoof
		}
	case domain.GoalRequest:
		if p.ScoringSeat != seat {
			return domain.ErrSeatSpoof
		}
	}

	// 5. ball authority: BALL_STATE and GOAL only from room.BallAuthority.
	switch in.Kind {
	case domain.InBallState, domain.InGoal:
		if seat != room.BallAuthority {
			if in.Kind == domain.InGoal {
				return domain.ErrUnauthorizedGoal
			}
			return domain.ErrUnauthorizedBallUpdate
		}
	}

	// 6. optional positional sanity cap, applied by the caller (room actor)
	// since it needs the configured cap and the room's lastAccepted state;
	// see checkPositionDelta.

	return nil
}

// kindAllowedInState implements the per-state allow-list of 
// item 3.
func kindAllowedInState(kind domain.InKind, status domain.RoomStatus) bool {
	switch kind {
	case domain.InLeave:
		return true // leaving is always permitted, in any room state
	case domain.InReady:
		return status == domain.StatusWaiting
	case domain.InPlayerPosition, domain.InBallState, domain.InGoal:
		return status == domain.StatusPlaying
	case domain.InRequestRematch, domain.InDeclineRematch:
		return status == domain.StatusFinished
	default:
		return false
	}
}

// checkPositionDelta enforces the optional L-infinity cap on how far a
// player_position may move between accepted updates. A
// zero cap disables the check. Violation drops this message only; it never
// ends the match.
func checkPositionDelta(room *domain.Room, seat domain.Seat, next domain.PlayerPositionRequest, capPerTick float64) bool {
	if capPerTick <= 0 {
		return true
	}
	last, ok := room.LastAccepted(seat)
	if !ok {
		return true
	}
	dx := absFloat(next.X - last.X)
	dy := absFloat(next.Y - last.Y)
	return dx <= capPerTick && dy <= capPerTick
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
