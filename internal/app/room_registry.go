package app

import (
	"sync"

	"arena/internal/config"
	"arena/internal/domain"
	"arena/internal/ports"

	"github.com/google/uuid"
)

// RoomRegistry owns the live set of rooms, indexed by id and by join code,
// retrying generation against the live code index until it lands on one
// not already taken.
type RoomRegistry struct {
	mu     sync.Mutex
	byID   map[string]*domain.Room
	byCode map[string]string // normalized code -> room id
	rand   ports.RandSource
	cfg    config.RoomConfig
}

func NewRoomRegistry(rand ports.RandSource, cfg config.RoomConfig) *RoomRegistry {
	return &RoomRegistry{
		byID:   make(map[string]*domain.Room),
		byCode: make(map[string]string),
		rand:   rand,
		cfg:    cfg,
	}
}

// Create allocates a fresh waiting room with a unique join code.
func (rr *RoomRegistry) Create() *domain.Room {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	roomID := uuid.NewString()
	code := rr.uniqueCodeLocked()
	room := domain.NewRoom(roomID, code, rr.cfg.MatchDurationMs)

	rr.byID[roomID] = room
	rr.byCode[code] = roomID
	return room
}

// uniqueCodeLocked must be called with mu held.
func (rr *RoomRegistry) uniqueCodeLocked() string {
	for {
		code := domain.GenerateCode(rr.cfg.Alphabet, rr.cfg.CodeLen, rr.rand.Intn)
		if _, taken := rr.byCode[code]; !taken {
			return code
		}
	}
}

// Get returns the room for roomID.
func (rr *RoomRegistry) Get(roomID string) (*domain.Room, bool) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	r, ok := rr.byID[roomID]
	return r, ok
}

// GetByCode resolves a (case-insensitive) join code to a room.
func (rr *RoomRegistry) GetByCode(code string) (*domain.Room, bool) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	id, ok := rr.byCode[domain.NormalizeCode(code)]
	if !ok {
		return nil, false
	}
	r, ok := rr.byID[id]
	return r, ok
}

// FindOpen returns an arbitrary waiting room with a free seat, for random
// matchmaking. Map iteration order in Go is
// randomized per-run, which is sufficient for "arbitrary" here — no explicit
// shuffle is needed.
func (rr *RoomRegistry) FindOpen() (*domain.Room, bool) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	for _, r := range rr.byID {
		if _, ok := r.CanJoin(); ok {
			return r, true
		}
	}
	return nil, false
}

// Delete removes a room and its code index entry, called once the room's
// actor has drained and it has nothing left to dispose.
func (rr *RoomRegistry) Delete(roomID string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	r, ok := rr.byID[roomID]
	if !ok {
		return
	}
	delete(rr.byCode, r.Code)
	delete(rr.byID, roomID)
}

// Count returns the number of live rooms, for diagnostics.
func (rr *RoomRegistry) Count() int {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	return len(rr.byID)
}
