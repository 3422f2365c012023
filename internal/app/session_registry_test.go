package app

import (
	"testing"

	"arena/internal/domain"
)

func newSession(id, userID string) *domain.Session {
	return &domain.Session{ID: id, Principal: domain.Principal{UserID: userID}}
}

func TestAttachRejectsSecondSessionForSamePrincipal(t *testing.T) {
	r := NewSessionRegistry()
	if err := r.Attach(newSession("s1", "u1")); err != nil {
		t.Fatalf("first Attach: %v", err)
	}
	if err := r.Attach(newSession("s2", "u1")); err != domain.ErrAlreadyConnected {
		t.Fatalf("second Attach = %v, want ErrAlreadyConnected", err)
	}
}

func TestDetachFreesUserForReconnect(t *testing.T) {
	r := NewSessionRegistry()
	_ = r.Attach(newSession("s1", "u1"))
	r.Detach("s1")
	if err := r.Attach(newSession("s2", "u1")); err != nil {
		t.Fatalf("Attach after Detach: %v", err)
	}
}

func TestLookupByUserID(t *testing.T) {
	r := NewSessionRegistry()
	_ = r.Attach(newSession("s1", "u1"))
	sess, ok := r.LookupByUserID("u1")
	if !ok || sess.ID != "s1" {
		t.Fatalf("LookupByUserID = %+v, %v", sess, ok)
	}
}

func TestSetRoomAndClearRoom(t *testing.T) {
	r := NewSessionRegistry()
	_ = r.Attach(newSession("s1", "u1"))
	r.SetRoom("s1", "room-1", domain.SeatP1)

	sess, _ := r.Lookup("s1")
	if sess.RoomID != "room-1" || sess.Seat != domain.SeatP1 {
		t.Fatalf("after SetRoom: %+v", sess)
	}

	r.ClearRoom("s1")
	sess, _ = r.Lookup("s1")
	if sess.Seated() {
		t.Fatalf("after ClearRoom, session still seated: %+v", sess)
	}
}
