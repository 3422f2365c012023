package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"arena/internal/app"
	"arena/internal/domain"

	"github.com/heroiclabs/nakama-common/runtime"
)

// MatchNameArena is the authoritative match handler name registered with Nakama.
const MatchNameArena = "arena_match"

// opEvent is the single opcode every message on the wire uses; kind is
// disambiguated by the "kind" field of the JSON envelope instead of by a
// per-message opcode, since there is no generated protobuf schema to hang
// per-kind opcodes off.
const opEvent int64 = 1

// envelope is the wire shape for every client<->server message.
type envelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// matchState is the per-match Nakama runtime state: one bound RoomActor
// plus the live dispatcher/presence bookkeeping its OutboundSink needs. The
// Room FSM itself already owns every seat/score/timer field, so this struct
// stays deliberately thin.
type matchState struct {
	actor *app.RoomActor
	sink  *dispatcherSink
}

// dispatcherSink implements app.OutboundSink over a runtime.MatchDispatcher.
// dispatcher is only valid for the duration of the Nakama callback that set
// it — MatchJoin/MatchLeave/MatchLoop each refresh it before driving the
// RoomActor and the RoomActor always flushes synchronously within that same
// callback, so the pointer never outlives the call that populated it.
type dispatcherSink struct {
	dispatcher runtime.MatchDispatcher
	presences  map[string]runtime.Presence // sessionID -> presence
}

func (s *dispatcherSink) Send(sessionID string, kind domain.OutKind, payload any) error {
	presence, ok := s.presences[sessionID]
	if !ok {
		return fmt.Errorf("no presence for session %s", sessionID)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload for %s: %w", kind, err)
	}
	env, err := json.Marshal(envelope{Kind: string(kind), Payload: raw})
	if err != nil {
		return fmt.Errorf("marshal envelope for %s: %w", kind, err)
	}
	return s.dispatcher.BroadcastMessage(opEvent, env, []runtime.Presence{presence}, nil, true)
}

// NewMatch is the factory function registered with Nakama.
func NewMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return &matchHandler{}, nil
}

type matchHandler struct{}

// MatchInit binds the room this match was created for (params["room_id"],
// set by the RPC that called nk.MatchCreate) to a fresh RoomActor, wiring
// the dispatcher-backed sink the RoomActor's Broadcaster will flush through
// for the rest of this match's life, plus a signal closure so the room
// actor's timers can safely re-enter the match's own serialized callback
// chain via nk.MatchSignal.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	roomID, _ := params["room_id"].(string)
	room, ok := sharedService.Rooms.Get(roomID)
	if !ok {
		logger.Error("MatchInit: unknown room_id %q", roomID)
		return nil, 0, ""
	}

	matchID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)
	signal := func(reason string) {
		if _, err := nk.MatchSignal(context.Background(), matchID, reason); err != nil {
			logger.Warn("MatchInit: failed to signal match %s with %q: %v", matchID, reason, err)
		}
	}

	sink := &dispatcherSink{presences: make(map[string]runtime.Presence)}
	actor := sharedService.BindRoomActor(room, sink, signal)

	label, _ := json.Marshal(map[string]interface{}{"code": room.Code, "room_id": room.RoomID})
	tickRate := int(1000 / sharedConfig.TickMs)
	if tickRate <= 0 {
		tickRate = 1
	}
	return &matchState{actor: actor, sink: sink}, tickRate, string(label)
}

// MatchJoinAttempt runs the Identity Gate against the join metadata's
// bearer token before the seat is ever touched. A session
// already holding a seat elsewhere, or an invalid/missing token, is
// rejected here rather than left to the Ingress Validator.
func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	ms, ok := state.(*matchState)
	if !ok {
		return state, false, "match not initialized"
	}

	token := bearerToken(metadata)
	if _, err := sharedService.Authenticate(ctx, presence.GetSessionId(), token); err != nil {
		code, _ := domain.ErrorCode(err)
		return state, false, code
	}

	if _, ok := ms.actor.Room.CanJoin(); !ok {
		return state, false, "room_full"
	}
	return state, true, ""
}

// MatchJoin seats each newly accepted presence.
func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	ms, ok := state.(*matchState)
	if !ok {
		return state
	}
	ms.sink.dispatcher = dispatcher

	for _, p := range presences {
		ms.sink.presences[p.GetSessionId()] = p
		sess, ok := sharedService.Sessions.Lookup(p.GetSessionId())
		if !ok {
			logger.Warn("MatchJoin: no authenticated session for %s", p.GetSessionId())
			continue
		}
		if _, err := ms.actor.Join(sess); err != nil {
			logger.Warn("MatchJoin: %s failed to join room %s: %v", sess.ID, ms.actor.Room.RoomID, err)
		}
	}
	return ms
}

// MatchLeave routes each departing presence through the room actor's own
// Leave handling.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	ms, ok := state.(*matchState)
	if !ok {
		return state
	}
	ms.sink.dispatcher = dispatcher

	for _, p := range presences {
		ms.actor.Leave(ctx, p.GetSessionId())
		delete(ms.sink.presences, p.GetSessionId())
		sharedService.Sessions.Detach(p.GetSessionId())
	}

	if ms.actor.Room.Empty() {
		return nil
	}
	return ms
}

// MatchLoop decodes each client message's envelope into a domain.InEvent
// and hands it to the room actor, then advances the room's own tick.
func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	ms, ok := state.(*matchState)
	if !ok {
		return state
	}
	ms.sink.dispatcher = dispatcher

	for _, msg := range messages {
		in, err := decodeInEvent(msg.GetData())
		if err != nil {
			logger.Warn("MatchLoop: bad payload from %s: %v", msg.GetUserId(), err)
			continue
		}
		sess, ok := sharedService.Sessions.Lookup(msg.GetSessionId())
		if !ok {
			continue
		}
		if err := ms.actor.HandleInput(ctx, sess, in); err != nil {
			logger.Debug("MatchLoop: %s rejected from %s: %v", in.Kind, sess.ID, err)
		}
	}

	ms.actor.Tick(ctx, sharedConfig.TickMs)

	if ms.actor.Room.Status == domain.StatusDisposing {
		return nil
	}
	return ms
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	return state
}

// MatchSignal is how a room actor's timers (rematch window, disposal grace
// period) safely re-enter this match's serialized callback chain: their
// goroutine calls nk.MatchSignal(matchID, reason), which Nakama always
// delivers back here on the match's own goroutine, never concurrently with
// MatchJoin/MatchLeave/MatchLoop.
func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	ms, ok := state.(*matchState)
	if !ok {
		return state, ""
	}
	ms.sink.dispatcher = dispatcher

	ms.actor.ApplySignal(data)

	if ms.actor.Room.Status == domain.StatusDisposing {
		return nil, ""
	}
	return ms, ""
}
