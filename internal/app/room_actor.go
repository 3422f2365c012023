package app

import (
	"context"
	"time"

	"arena/internal/config"
	"arena/internal/domain"
	"arena/internal/ports"
)

// RoomActor is the single owner of one domain.Room's mutable state. It is
// not a goroutine in its own right: the Nakama adapter's match handler
// already gives every match its own serialized callback goroutine (Nakama
// never calls MatchJoinAttempt/MatchJoin/MatchLeave/MatchLoop/MatchSignal
// for the same match concurrently), which is exactly the single-writer
// guarantee the hand-rolled channel-actor rooms (see
// room.go-style select loops in the wider retrieval set) build for
// themselves with joinCh/leaveCh/inputCh. RoomActor's methods are therefore
// ordinary synchronous calls the adapter makes from inside its own
// serialized callbacks — there is nothing left to select over here.
//
// A persistence call inside a handler blocks only this room's own tick,
// never another room's, because each room already runs on its own
// goroutine; this keeps "no exclusive lock held across persistence calls"
// true without a second locking layer on top of
// Nakama's own scheduling guarantee.
type RoomActor struct {
	Room *domain.Room

	sessions     *SessionRegistry
	rooms        *RoomRegistry
	broadcaster  *Broadcaster
	persistence  *PersistenceCoordinator
	clock        ports.Clock
	cfg          config.RoomConfig
	logger       Logger
	rematchTimer RematchTimer
	graceTimer   RematchTimer

	// onDispose is invoked once the room actor decides the room must be
	// torn down (both seats empty, or the rematch grace period elapsed).
	// The adapter uses it to deregister the room and terminate the
	// underlying match.
	onDispose func()

	// signal re-enters the room's own serialized execution path from a
	// timer's own goroutine. The Nakama adapter wires this to
	// nk.MatchSignal, which is always delivered back through MatchSignal on
	// the match's single callback goroutine; nil falls back to running the
	// signal handler inline; safe only where nothing else can observe the
	// room concurrently (tests, non-Nakama embedders).
	signal func(reason string)
}

func NewRoomActor(
	room *domain.Room,
	sessions *SessionRegistry,
	rooms *RoomRegistry,
	broadcaster *Broadcaster,
	persistence *PersistenceCoordinator,
	clock ports.Clock,
	cfg config.RoomConfig,
	logger Logger,
	onDispose func(),
	signal func(reason string),
) *RoomActor {
	return &RoomActor{
		Room:        room,
		sessions:    sessions,
		rooms:       rooms,
		broadcaster: broadcaster,
		persistence: persistence,
		clock:       clock,
		cfg:         cfg,
		logger:      logger,
		onDispose:   onDispose,
		signal:      signal,
	}
}

// rematchGracePeriod is the fixed delay between a room being marked
// disposing (rematch window lapsed, or either seat declined) and it actually
// being removed from the Room Registry. It is a constant, not a
// config.RoomConfig field: it bounds an internal bookkeeping step, not a
// tunable gameplay parameter.
const rematchGracePeriod = 2 * time.Second

// Reasons passed to emitSignal/ApplySignal, identifying which timer fired.
const (
	signalRematchTimeout = "rematch_timeout"
	signalGraceDispose   = "grace_dispose"
)

func (a *RoomActor) sessionOf(seat domain.Seat) string {
	return a.Room.Seats.Get(seat)
}

func (a *RoomActor) userIDOf(seat domain.Seat) string {
	sessionID := a.Room.Seats.Get(seat)
	if sessionID == "" {
		return ""
	}
	sess, ok := a.sessions.Lookup(sessionID)
	if !ok {
		return ""
	}
	return sess.Principal.UserID
}

func (a *RoomActor) broadcast(events []domain.OutEvent) {
	for _, ev := range events {
		a.broadcaster.Dispatch(a.Room, a.sessionOf, ev)
	}
}

// Join seats a newly attached session and announces it to the room.
func (a *RoomActor) Join(sess *domain.Session) (domain.Seat, error) {
	defer a.broadcaster.FlushAll()

	seat, events, err := a.Room.Join(sess.ID)
	if err != nil {
		return "", err
	}
	a.sessions.SetRoom(sess.ID, a.Room.RoomID, seat)

	seats := make([]domain.SeatInfo, 0, 2)
	for _, s := range []domain.Seat{domain.SeatP1, domain.SeatP2} {
		if sid := a.Room.Seats.Get(s); sid != "" {
			seats = append(seats, domain.SeatInfo{Seat: s, UserID: a.userIDOf(s)})
		}
	}
	a.broadcaster.Send(sess.ID, domain.OutEvent{
		Kind: domain.OutRoomJoined,
		Payload: domain.RoomJoinedPayload{
			RoomID: a.Room.RoomID, Code: a.Room.Code, Seat: seat, Seats: seats,
		},
		Target: domain.TargetSeat, Seat: seat,
	})
	a.broadcast(events)
	return seat, nil
}

// HandleInput validates and applies one client message.
func (a *RoomActor) HandleInput(ctx context.Context, sess *domain.Session, in domain.InEvent) error {
	if in.Kind == domain.InLeave {
		a.leave(ctx, sess.ID, domain.ReasonRequested)
		return nil
	}

	defer a.broadcaster.FlushAll()

	if err := validateIngress(sess, a.Room, in); err != nil {
		a.logAntiCheatViolation(sess, in, err)
		if err != domain.ErrSeatSpoof {
			a.broadcaster.Send(sess.ID, domain.OutEvent{
				Kind:    domain.OutError,
				Payload: domain.ErrorPayload{Code: errCode(err), Message: err.Error()},
			})
		}
		return err
	}

	switch in.Kind {
	case domain.InReady:
		req, _ := in.Payload.(domain.ReadyRequest)
		a.handleReady(ctx, sess, req)
	case domain.InPlayerPosition:
		req, _ := in.Payload.(domain.PlayerPositionRequest)
		a.handlePosition(sess.Seat, req)
	case domain.InBallState:
		req, _ := in.Payload.(domain.BallStateRequest)
		a.broadcast(a.Room.RelayBallState(sess.Seat, req))
	case domain.InGoal:
		req, _ := in.Payload.(domain.GoalRequest)
		a.handleGoal(ctx, sess.Seat, req)
	case domain.InRequestRematch:
		a.handleRequestRematch(sess.Seat)
	case domain.InDeclineRematch:
		a.handleDeclineRematch(sess.Seat)
	}
	return nil
}

// logAntiCheatViolation warns on the Ingress Validator's anti-spoofing
// rejections specifically — ordinary protocol errors (bad_state and the
// like) are not anti-cheat events and stay at the debug level the adapter
// already logs every rejection at.
func (a *RoomActor) logAntiCheatViolation(sess *domain.Session, in domain.InEvent, err error) {
	switch err {
	case domain.ErrSeatSpoof, domain.ErrUnauthorizedBallUpdate, domain.ErrUnauthorizedGoal:
		a.logger.Warn("anti-cheat: session %s (seat %s) rejected for %s: %v", sess.ID, sess.Seat, in.Kind, err)
	}
}

func (a *RoomActor) handlePosition(seat domain.Seat, req domain.PlayerPositionRequest) {
	if !checkPositionDelta(a.Room, seat, req, a.cfg.MaxPositionDeltaPerTick) {
		return // advisory cap: drop silently, never ends the match
	}
	a.broadcast(a.Room.RelayPosition(seat, req))
}

func (a *RoomActor) handleReady(ctx context.Context, sess *domain.Session, req domain.ReadyRequest) {
	events, err := a.Room.ReadyToggle(sess.Seat, req.Ready)
	if err != nil {
		return
	}
	a.broadcast(events)

	if a.Room.BothReady() {
		a.startMatch(ctx)
	}
}

func (a *RoomActor) startMatch(ctx context.Context) {
	players := a.matchPlayers()
	matchID := a.persistence.CreateMatch(ctx, players)
	a.broadcast(a.Room.StartMatch(a.clock.Now(), matchID))
}

func (a *RoomActor) matchPlayers() []domain.MatchPlayer {
	players := make([]domain.MatchPlayer, 0, 2)
	for _, seat := range []domain.Seat{domain.SeatP1, domain.SeatP2} {
		sessionID := a.Room.Seats.Get(seat)
		if sessionID == "" {
			continue
		}
		sess, ok := a.sessions.Lookup(sessionID)
		if !ok {
			continue
		}
		players = append(players, domain.MatchPlayer{
			UserID: sess.Principal.UserID, WalletAddress: sess.Principal.WalletAddress, Seat: seat,
		})
	}
	return players
}

func (a *RoomActor) handleGoal(ctx context.Context, seat domain.Seat, req domain.GoalRequest) {
	events, err := a.Room.Goal(seat)
	if err != nil {
		return
	}
	a.broadcast(events)
}

// Tick advances the match clock and finishes the match if time has run out.
func (a *RoomActor) Tick(ctx context.Context, dtMs int64) {
	defer a.broadcaster.FlushAll()

	events, timeUp := a.Room.Tick(dtMs)
	a.broadcast(events)
	if timeUp {
		a.finish(ctx, "", a.matchPlayers(), a.userIDOf)
	}
}

// finish ends the match. players and winnerUserID must be captured by the
// caller *before* any seat is vacated (a mid-game leave clears the leaving
// session's seat before finish runs, which would otherwise drop that player
// out of both the persisted roster and the winner lookup).
func (a *RoomActor) finish(ctx context.Context, remainingSeat domain.Seat, players []domain.MatchPlayer, winnerUserID func(domain.Seat) string) {
	events, result := a.Room.Finish(a.clock.Now(), remainingSeat, winnerUserID)
	a.broadcast(events)
	a.persistence.FinalizeMatch(ctx, a.Room.MatchID, result, players)
	a.armRematchTimer()
}

// armRematchTimer starts the configured rematch-window timer (default 180s).
// Its callback runs on the timer's own goroutine, so it only ever asks to
// be signaled back onto the room's serialized execution path — it never
// touches room state directly.
func (a *RoomActor) armRematchTimer() {
	a.rematchTimer.Start(time.Duration(a.cfg.RematchTimeoutMs)*time.Millisecond, func() {
		a.emitSignal(signalRematchTimeout)
	})
}

// armGraceTimer starts the short (2s) delay between a room being marked
// disposing and its actual removal from the Room Registry.
func (a *RoomActor) armGraceTimer() {
	a.graceTimer.Start(rematchGracePeriod, func() {
		a.emitSignal(signalGraceDispose)
	})
}

// emitSignal hands reason to the adapter's signal function if one is wired,
// or applies it inline otherwise.
func (a *RoomActor) emitSignal(reason string) {
	if a.signal != nil {
		a.signal(reason)
		return
	}
	a.ApplySignal(reason)
}

// ApplySignal executes the action a prior emitSignal call asked for. The
// Nakama adapter's MatchSignal callback calls this once nk.MatchSignal has
// delivered the reason back onto the match's own serialized goroutine.
func (a *RoomActor) ApplySignal(reason string) {
	switch reason {
	case signalRematchTimeout:
		a.handleRematchTimeoutSignal()
	case signalGraceDispose:
		a.handleGraceDisposeSignal()
	}
}

// handleRematchTimeoutSignal fires when the rematch window lapses without
// both seats requesting a rematch. It is a no-op if the window was already
// resolved (both requested, or a decline already disposed the room) before
// the signal made it back onto the room's execution path.
func (a *RoomActor) handleRematchTimeoutSignal() {
	if a.Room.Status != domain.StatusFinished {
		return
	}
	defer a.broadcaster.FlushAll()
	a.broadcast([]domain.OutEvent{{Kind: domain.OutRematchTimeout, Target: domain.TargetRoom, Priority: domain.PriorityCritical}})
	a.Room.Dispose()
	a.armGraceTimer()
}

// handleGraceDisposeSignal fires once the post-timeout/decline grace period
// elapses, actually removing the room from the registry.
func (a *RoomActor) handleGraceDisposeSignal() {
	a.teardown()
}

func (a *RoomActor) handleRequestRematch(seat domain.Seat) {
	events, both, err := a.Room.RequestRematch(seat)
	if err != nil {
		return
	}
	a.broadcast(events)
	if both {
		a.rematchTimer.Stop()
		a.broadcast(a.Room.RematchReset())
	}
}

func (a *RoomActor) handleDeclineRematch(seat domain.Seat) {
	events, err := a.Room.DeclineRematch(seat)
	if err != nil {
		return
	}
	a.broadcast(events)
	a.rematchTimer.Stop()
	a.Room.Dispose()
	a.armGraceTimer()
}

// Leave removes a session from the room, finishing an in-progress match in
// the remaining seat's favor if the room was playing.
func (a *RoomActor) Leave(ctx context.Context, sessionID string) {
	a.leave(ctx, sessionID, domain.ReasonDisconnect)
}

// handleOverload is the Broadcaster's onOverload callback: a session whose
// outbound queue overflowed with nothing evictable is detached and routed
// through the same leave path a disconnect uses, reported with
// ReasonOverloaded.
func (a *RoomActor) handleOverload(sessionID string) {
	a.logger.Warn("session %s: %v", sessionID, domain.ErrOverloaded)
	a.leave(context.Background(), sessionID, domain.ReasonOverloaded)
	a.sessions.Detach(sessionID)
}

func (a *RoomActor) leave(ctx context.Context, sessionID string, reason domain.LeaveReason) {
	defer a.broadcaster.FlushAll()

	wasPlaying := a.Room.Status == domain.StatusPlaying
	var players []domain.MatchPlayer
	var userIDBySeat map[domain.Seat]string
	if wasPlaying {
		players = a.matchPlayers()
		userIDBySeat = map[domain.Seat]string{
			domain.SeatP1: a.userIDOf(domain.SeatP1),
			domain.SeatP2: a.userIDOf(domain.SeatP2),
		}
	}

	seat, events, ok := a.Room.Leave(sessionID, reason)
	if !ok {
		return
	}
	a.sessions.ClearRoom(sessionID)
	a.broadcast(events)

	if wasPlaying {
		a.finish(ctx, seat.Other(), players, func(s domain.Seat) string { return userIDBySeat[s] })
		return
	}
	if a.Room.Empty() {
		a.Dispose()
	}
}

// Dispose immediately tears the room down: stops any pending timers, marks
// the room disposing, and notifies the adapter to finish deregistering it.
// Used when both seats have left a room that is not mid-match (waiting, or
// finished and awaiting a rematch) — no grace period is honored there.
func (a *RoomActor) Dispose() {
	a.rematchTimer.Stop()
	a.graceTimer.Stop()
	a.Room.Dispose()
	a.teardown()
}

// teardown removes the room from the registry and notifies the adapter,
// shared by the immediate (Dispose) and grace-period-delayed
// (handleGraceDisposeSignal) removal paths.
func (a *RoomActor) teardown() {
	a.rooms.Delete(a.Room.RoomID)
	if a.onDispose != nil {
		a.onDispose()
	}
}

func errCode(err error) string {
	code, ok := domain.ErrorCode(err)
	if !ok {
		return "internal_error"
	}
	return code
}
