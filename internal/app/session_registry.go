package app

import (
	"sync"

	"arena/internal/domain"
)

// SessionRegistry tracks every connected session, indexed both by session id
// and by user id so the Identity Gate can reject a second concurrent
// connection from the same principal. One mutex guards both indexes.
type SessionRegistry struct {
	mu       sync.Mutex
	byID     map[string]*domain.Session
	byUserID map[string]string // userID -> sessionID
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		byID:     make(map[string]*domain.Session),
		byUserID: make(map[string]string),
	}
}

// Attach registers a newly authenticated session. It refuses a second
// session for a principal already connected.
func (r *SessionRegistry) Attach(sess *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byUserID[sess.Principal.UserID]; ok {
		return domain.ErrAlreadyConnected
	}
	r.byID[sess.ID] = sess
	r.byUserID[sess.Principal.UserID] = sess.ID
	return nil
}

// Detach removes a session, freeing its principal for reconnection.
func (r *SessionRegistry) Detach(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.byID[sessionID]
	if !ok {
		return
	}
	delete(r.byID, sessionID)
	delete(r.byUserID, sess.Principal.UserID)
}

// Lookup returns the session for sessionID.
func (r *SessionRegistry) Lookup(sessionID string) (*domain.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.byID[sessionID]
	return sess, ok
}

// LookupByUserID returns the session for a connected principal, if any.
func (r *SessionRegistry) LookupByUserID(userID string) (*domain.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byUserID[userID]
	if !ok {
		return nil, false
	}
	return r.byID[id], true
}

// SetRoom records which room and seat a session now occupies. Called by the
// room actor after a successful Join so later lookups (e.g. on disconnect)
// know which room to notify.
func (r *SessionRegistry) SetRoom(sessionID, roomID string, seat domain.Seat) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.byID[sessionID]
	if !ok {
		return
	}
	sess.RoomID = roomID
	sess.Seat = seat
}

// ClearRoom unsets room/seat bookkeeping after a session leaves a room.
func (r *SessionRegistry) ClearRoom(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.byID[sessionID]
	if !ok {
		return
	}
	sess.RoomID = ""
	sess.Seat = ""
}

// Count returns the number of connected sessions, for diagnostics.
func (r *SessionRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}
