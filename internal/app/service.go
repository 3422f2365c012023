// Package app is the transport-agnostic orchestrator layer: it owns
// concurrency, registries and side effects, and drives the pure
// internal/domain FSM through a facade struct built from injected
// collaborators, exposing one method per use-case.
package app

import (
	"context"
	"sync"

	"arena/internal/config"
	"arena/internal/domain"
	"arena/internal/ports"
)

// Service is the single facade the transport adapter talks to. It owns the
// Session Registry and Room Registry and constructs one RoomActor per live
// room.
type Service struct {
	Sessions *SessionRegistry
	Rooms    *RoomRegistry

	verifier    ports.Verifier
	clock       ports.Clock
	cfg         config.RoomConfig
	logger      Logger
	persistence *PersistenceCoordinator

	mu     sync.Mutex
	actors map[string]*RoomActor
}

// NewService wires every collaborator the core needs via constructor
// injection: Verifier, UserRepo, MatchRepo, Clock, Rand. A RoomActor's
// broadcaster needs a live transport sink that
// only exists once the adapter's match-scheduling callback starts (Nakama
// hands a runtime.MatchDispatcher to MatchInit, not to the RPC that created
// the room), so binding a room to its actor is a separate step
// (BindRoomActor) rather than part of room creation here.
func NewService(
	verifier ports.Verifier,
	users ports.UserRepo,
	matches ports.MatchRepo,
	rand ports.RandSource,
	clock ports.Clock,
	cfg config.RoomConfig,
	logger Logger,
) *Service {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &Service{
		Sessions:    NewSessionRegistry(),
		Rooms:       NewRoomRegistry(rand, cfg),
		verifier:    verifier,
		clock:       clock,
		cfg:         cfg,
		logger:      logger,
		persistence: NewPersistenceCoordinator(users, matches, clock, logger),
		actors:      make(map[string]*RoomActor),
	}
}

// Authenticate runs the Identity Gate: verifies token, rejects a user id
// that UserRepo does not know, rejects a second concurrent session for the
// same principal, and registers the new session.
func (s *Service) Authenticate(ctx context.Context, sessionID, token string) (*domain.Session, error) {
	if token == "" {
		return nil, domain.ErrAuthRequired
	}
	userID, wallet, _, err := s.verifier.Verify(ctx, token)
	if err != nil {
		return nil, domain.ErrAuthInvalid
	}
	if known, err := s.persistence.users.Exists(ctx, userID); err != nil || !known {
		return nil, domain.ErrAuthInvalid
	}

	sess := &domain.Session{
		ID:          sessionID,
		Principal:   domain.Principal{UserID: userID, WalletAddress: wallet},
		ConnectedAt: s.clock.Now(),
	}
	if err := s.Sessions.Attach(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Disconnect detaches a session and, if it held a seat, routes a leave
// through that room's actor.
func (s *Service) Disconnect(ctx context.Context, sessionID string) {
	sess, ok := s.Sessions.Lookup(sessionID)
	if ok && sess.Seated() {
		if actor, ok := s.ActorFor(sess.RoomID); ok {
			actor.Leave(ctx, sessionID)
		}
	}
	s.Sessions.Detach(sessionID)
}

// CreateRoom allocates a fresh, unbound room for an explicit create-room
// request. The caller (the adapter) still needs to bind it
// to a transport via BindRoomActor before anyone can join it.
func (s *Service) CreateRoom() *domain.Room {
	return s.Rooms.Create()
}

// JoinByCode resolves a join code to an already-bound room. Codes are matched case-insensitively by RoomRegistry.
func (s *Service) JoinByCode(code string) (*domain.Room, error) {
	room, ok := s.Rooms.GetByCode(code)
	if !ok {
		return nil, domain.ErrBadCode
	}
	return room, nil
}

// FindOrCreateMatch implements random matchmaking: return any open room, or
// a fresh unbound one if none is waiting.
// created reports whether the room is new and still needs BindRoomActor.
func (s *Service) FindOrCreateMatch() (room *domain.Room, created bool) {
	if room, ok := s.Rooms.FindOpen(); ok {
		return room, false
	}
	return s.Rooms.Create(), true
}

// BindRoomActor constructs the RoomActor for room given a live transport
// sink and a signal function (nil outside Nakama), registering it so ActorFor can
// find it for the rest of the room's lifetime. Safe to call only once per
// room — the adapter calls this from MatchInit, which Nakama guarantees
// runs exactly once per match.
func (s *Service) BindRoomActor(room *domain.Room, sink OutboundSink, signal func(reason string)) *RoomActor {
	s.mu.Lock()
	defer s.mu.Unlock()

	roomID := room.RoomID
	var actor *RoomActor
	broadcaster := NewBroadcaster(sink, s.cfg.OutboundQueueDepth, func(sessionID string) {
		actor.handleOverload(sessionID)
	})
	actor = NewRoomActor(room, s.Sessions, s.Rooms, broadcaster, s.persistence, s.clock, s.cfg, s.logger, func() {
		s.mu.Lock()
		delete(s.actors, roomID)
		s.mu.Unlock()
	}, signal)
	s.actors[room.RoomID] = actor
	return actor
}

// ActorFor returns the bound actor for roomID, if BindRoomActor has run for it.
func (s *Service) ActorFor(roomID string) (*RoomActor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	actor, ok := s.actors[roomID]
	return actor, ok
}

// Tick advances every live room's match clock by dtMs. The Nakama adapter
// does not call this directly — each match already gets its own periodic
// MatchLoop callback from Nakama's runtime, which is that room's Tick
// Scheduler, so the adapter calls the room's own RoomActor.Tick from there
// instead. Service.Tick exists for drivers without a per-room scheduling
// callback of their own (tests, alternate transports) that need to advance
// every room from one place.
func (s *Service) Tick(ctx context.Context, dtMs int64) {
	s.mu.Lock()
	actors := make([]*RoomActor, 0, len(s.actors))
	for _, a := range s.actors {
		actors = append(actors, a)
	}
	s.mu.Unlock()

	for _, a := range actors {
		a.Tick(ctx, dtMs)
	}
}
