package domain

import "time"

// Thresholds, in seconds, at which a single timer_warning fires.
var warningThresholdsSec = []int{30, 10}

// CanJoin reports the seat a newly joining session would take, and whether
// the room (still waiting) has a free seat at all.
func (r *Room) CanJoin() (Seat, bool) {
	if r.Status != StatusWaiting {
		return "", false
	}
	if r.Seats.P1 == "" {
		return SeatP1, true
	}
	if r.Seats.P2 == "" {
		return SeatP2, true
	}
	return "", false
}

// Join seats sessionID into the first free seat. The first occupant becomes
// p1 and is the default (and permanent) ball authority.
func (r *Room) Join(sessionID string) (Seat, []OutEvent, error) {
	seat, ok := r.CanJoin()
	if !ok {
		if r.Status != StatusWaiting {
			return "", nil, ErrBadState
		}
		return "", nil, ErrRoomFull
	}
	r.Seats = r.Seats.Set(seat, sessionID)

	events := []OutEvent{
		newEvent(OutPlayerJoined, PlayerJoinedPayload{Seat: seat}, TargetExceptSeat, seat),
	}
	return seat, events, nil
}

// ReadyToggle flips (or sets, if want is non-nil) a seat's ready flag. It
// never transitions the room itself — BothReady + StartMatch does that, so
// the caller can interpose persistence/tick-scheduler setup between the two.
func (r *Room) ReadyToggle(seat Seat, want *bool) ([]OutEvent, error) {
	if r.Status != StatusWaiting {
		return nil, ErrBadState
	}
	if r.Seats.Get(seat) == "" {
		return nil, ErrNotInRoom
	}

	next := !r.readyOf(seat)
	if want != nil {
		next = *want
	}
	r.setReady(seat, next)

	return []OutEvent{
		newEvent(OutPlayerReadyState, PlayerReadyStatePayload{
			Seat: seat, Ready: next, AllReady: r.Ready.Both(),
		}, TargetRoom, ""),
	}, nil
}

func (r *Room) readyOf(seat Seat) bool {
	if seat == SeatP1 {
		return r.Ready.P1
	}
	return r.Ready.P2
}

func (r *Room) setReady(seat Seat, v bool) {
	if seat == SeatP1 {
		r.Ready.P1 = v
	} else {
		r.Ready.P2 = v
	}
}

// BothReady reports whether the room is eligible to start: two occupied
// seats and both ready.
func (r *Room) BothReady() bool {
	return r.Status == StatusWaiting && r.Seats.Occupied() == 2 && r.Ready.Both()
}

// StartMatch applies the BOTH_READY -> playing side effects.
// matchID may be empty when persistence failed to create a record; the room
// still starts.
func (r *Room) StartMatch(now time.Time, matchID string) []OutEvent {
	r.Status = StatusPlaying
	r.Score = Score{}
	r.TimeRemainingMs = r.MatchDurationMs
	r.StartedAt = now
	r.Ready = Ready{}
	r.MatchID = matchID
	r.warnedThresholds = nil
	r.lastAccepted = nil
	r.LastGoal = ""

	return []OutEvent{
		newEvent(OutGameStarted, GameStartedPayload{
			MatchID:    matchID,
			DurationMs: r.MatchDurationMs,
		}, TargetRoom, ""),
	}
}

// Goal applies a scoring event from the ball authority seat. Authority is
// enforced by the Ingress Validator before this is called; Goal only checks
// room state.
func (r *Room) Goal(scorer Seat) ([]OutEvent, error) {
	if r.Status != StatusPlaying {
		return nil, ErrBadState
	}
	if scorer == SeatP1 {
		r.Score.P1++
	} else {
		r.Score.P2++
	}
	r.LastGoal = scorer

	return []OutEvent{
		newEvent(OutGoalScored, GoalScoredPayload{Scorer: scorer, Score: r.Score}, TargetRoom, ""),
	}, nil
}

// RelayPosition passes a validated player_position through, recording it for
// the optional anti-cheat delta cap.
func (r *Room) RelayPosition(sender Seat, p PlayerPositionRequest) []OutEvent {
	if r.lastAccepted == nil {
		r.lastAccepted = make(map[Seat]Position)
	}
	r.lastAccepted[sender] = Position{X: p.X, Y: p.Y}

	return []OutEvent{
		newEvent(OutPlayerPosition, PlayerPositionPayload{
			Seat: sender, X: p.X, Y: p.Y, VX: p.VX, VY: p.VY,
		}, TargetExceptSeat, sender),
	}
}

// LastAccepted returns the last accepted position for seat and whether one
// has been recorded yet.
func (r *Room) LastAccepted(seat Seat) (Position, bool) {
	if r.lastAccepted == nil {
		return Position{}, false
	}
	p, ok := r.lastAccepted[seat]
	return p, ok
}

// RelayBallState passes a validated ball_state through (authority already
// checked by the Ingress Validator).
func (r *Room) RelayBallState(sender Seat, b BallStateRequest) []OutEvent {
	return []OutEvent{
		newEvent(OutBallState, BallStatePayload{X: b.X, Y: b.Y, VX: b.VX, VY: b.VY}, TargetExceptSeat, sender),
	}
}

// Tick decrements the match clock by dtMs and returns the timer events due
// this step, plus whether time has just run out. Tick is a
// no-op (returns nothing) outside StatusPlaying so a stale ticker can never
// deliver events for a room it no longer drives.
func (r *Room) Tick(dtMs int64) (events []OutEvent, timeUp bool) {
	if r.Status != StatusPlaying {
		return nil, false
	}

	prevSec := secondsCeil(r.TimeRemainingMs)
	r.TimeRemainingMs -= dtMs
	if r.TimeRemainingMs < 0 {
		r.TimeRemainingMs = 0
	}
	newSec := secondsCeil(r.TimeRemainingMs)

	if newSec != prevSec {
		events = append(events, newEvent(OutTimerUpdate, TimerUpdatePayload{TimeRemainingMs: r.TimeRemainingMs}, TargetRoom, ""))
	}

	for _, threshold := range warningThresholdsSec {
		if int(newSec) == threshold && !r.warned(threshold) {
			r.markWarned(threshold)
			events = append(events, newEvent(OutTimerWarning, TimerWarningPayload{ThresholdSec: threshold}, TargetRoom, ""))
		}
	}

	if r.TimeRemainingMs == 0 {
		events = append(events, newEvent(OutTimeUp, struct{}{}, TargetRoom, ""))
		return events, true
	}
	return events, false
}

func secondsCeil(ms int64) int64 {
	if ms <= 0 {
		return 0
	}
	return (ms + 999) / 1000
}

func (r *Room) warned(threshold int) bool {
	return r.warnedThresholds != nil && r.warnedThresholds[threshold]
}

func (r *Room) markWarned(threshold int) {
	if r.warnedThresholds == nil {
		r.warnedThresholds = make(map[int]bool)
	}
	r.warnedThresholds[threshold] = true
}

// Outcome computes the finished-match result. remainingSeat is non-empty
// only for a mid-game-leave finish, in which case that seat wins regardless
// of score.
func (r *Room) Outcome(remainingSeat Seat) Outcome {
	if remainingSeat != "" {
		if remainingSeat == SeatP1 {
			return OutcomeP1Wins
		}
		return OutcomeP2Wins
	}
	switch {
	case r.Score.P1 > r.Score.P2:
		return OutcomeP1Wins
	case r.Score.P2 > r.Score.P1:
		return OutcomeP2Wins
	default:
		return OutcomeDraw
	}
}

// Finish transitions playing -> finished, computing the outcome and
// returning the game_ended event. remainingSeat is set only on a mid-game
// leave. Callers (room actor) separately invoke the Persistence Coordinator
// and Rematch Timer; Finish only mutates in-memory state.
func (r *Room) Finish(now time.Time, remainingSeat Seat, winnerUserID func(Seat) string) ([]OutEvent, MatchResult) {
	r.Status = StatusFinished
	r.EndedAt = now

	outcome := r.Outcome(remainingSeat)
	result := MatchResult{
		Outcome:    outcome,
		FinalScore: r.Score,
		DurationMs: r.EndedAt.Sub(r.StartedAt).Milliseconds(),
	}

	switch {
	case remainingSeat != "":
		result.WinnerUserID = winnerUserID(remainingSeat)
	case outcome == OutcomeP1Wins:
		result.WinnerUserID = winnerUserID(SeatP1)
	case outcome == OutcomeP2Wins:
		result.WinnerUserID = winnerUserID(SeatP2)
	}

	events := []OutEvent{
		newEvent(OutGameEnded, GameEndedPayload{
			Outcome:    outcome,
			Winner:     result.WinnerUserID,
			FinalScore: r.Score,
			DurationMs: result.DurationMs,
			MatchID:    r.MatchID,
		}, TargetRoom, ""),
	}
	return events, result
}

// Leave removes sessionID from whatever seat it holds, reporting reason in
// the player_left broadcast. In `waiting`, the seat frees up (and the room
// is left for the caller to dispose if now empty). In `playing`, the caller
// must follow up with Finish for the remaining seat — Leave itself only
// vacates the seat so the FSM stays a pure, single-responsibility step per
// transition.
func (r *Room) Leave(sessionID string, reason LeaveReason) (Seat, []OutEvent, bool) {
	seat, ok := r.Seats.SeatOf(sessionID)
	if !ok {
		return "", nil, false
	}
	r.Seats = r.Seats.Set(seat, "")
	if r.Status == StatusWaiting {
		r.setReady(seat, false)
	}

	events := []OutEvent{
		newEvent(OutPlayerLeft, PlayerLeftPayload{Seat: seat, Reason: reason}, TargetRoom, ""),
	}
	return seat, events, true
}

// Empty reports whether both seats are free.
func (r *Room) Empty() bool {
	return r.Seats.Occupied() == 0
}

// RequestRematch records one seat's rematch vote. Returns whether both seats have now requested.
func (r *Room) RequestRematch(seat Seat) ([]OutEvent, bool, error) {
	if r.Status != StatusFinished {
		return nil, false, ErrBadState
	}
	if seat == SeatP1 {
		r.Rematch.P1Requested = true
	} else {
		r.Rematch.P2Requested = true
	}
	events := []OutEvent{
		newEvent(OutRematchRequested, RematchRequestedPayload{Seat: seat}, TargetRoom, ""),
	}
	return events, r.Rematch.BothRequested(), nil
}

// DeclineRematch records a decline.
func (r *Room) DeclineRematch(seat Seat) ([]OutEvent, error) {
	if r.Status != StatusFinished {
		return nil, ErrBadState
	}
	return []OutEvent{
		newEvent(OutRematchDeclined, RematchDeclinedPayload{Seat: seat}, TargetRoom, ""),
	}, nil
}

// RematchReset restores the room to a fresh `waiting` room with the same
// occupants, preserving ball authority.
func (r *Room) RematchReset() []OutEvent {
	r.Status = StatusWaiting
	r.Score = Score{}
	r.TimeRemainingMs = r.MatchDurationMs
	r.Ready = Ready{}
	r.Rematch = RematchState{}
	r.MatchID = ""
	r.StartedAt = time.Time{}
	r.EndedAt = time.Time{}
	r.LastGoal = ""
	r.warnedThresholds = nil
	r.lastAccepted = nil

	return []OutEvent{
		newEvent(OutRematchConfirmed, struct{}{}, TargetRoom, ""),
	}
}

// Dispose marks the room for deletion.
func (r *Room) Dispose() {
	r.Status = StatusDisposing
}
