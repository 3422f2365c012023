package app

import (
	"testing"

	"arena/internal/domain"
)

type recordingSink struct {
	sent []sentMsg
}

type sentMsg struct {
	sessionID string
	kind      domain.OutKind
}

func (s *recordingSink) Send(sessionID string, kind domain.OutKind, payload any) error {
	s.sent = append(s.sent, sentMsg{sessionID, kind})
	return nil
}

func twoSeatSessionOf(room *domain.Room) func(domain.Seat) string {
	return room.Seats.Get
}

func TestDispatchTargetRoomSendsToBothSeatsOnFlush(t *testing.T) {
	sink := &recordingSink{}
	b := NewBroadcaster(sink, 8, nil)
	room := domain.NewRoom("r1", "CODE01", 1000)
	_, _, _ = room.Join("s1")
	_, _, _ = room.Join("s2")

	b.Dispatch(room, twoSeatSessionOf(room), domain.OutEvent{Kind: domain.OutGameStarted, Target: domain.TargetRoom})
	if len(sink.sent) != 0 {
		t.Fatalf("sent before FlushAll = %d, want 0 (enqueue must not deliver)", len(sink.sent))
	}

	b.FlushAll()
	if len(sink.sent) != 2 {
		t.Fatalf("sent after FlushAll = %d, want 2", len(sink.sent))
	}
}

func TestDispatchTargetExceptSeatSkipsSender(t *testing.T) {
	sink := &recordingSink{}
	b := NewBroadcaster(sink, 8, nil)
	room := domain.NewRoom("r1", "CODE01", 1000)
	_, _, _ = room.Join("s1")
	_, _, _ = room.Join("s2")

	b.Dispatch(room, twoSeatSessionOf(room), domain.OutEvent{
		Kind: domain.OutPlayerPosition, Target: domain.TargetExceptSeat, Seat: domain.SeatP1,
	})
	b.FlushAll()

	if len(sink.sent) != 1 || sink.sent[0].sessionID != "s2" {
		t.Fatalf("sent = %+v, want only s2", sink.sent)
	}
}

func TestEnqueueDropsLowestPriorityOnOverflowBeforeFlush(t *testing.T) {
	sink := &recordingSink{}
	b := NewBroadcaster(sink, 2, nil)

	b.Send("s1", domain.OutEvent{Kind: domain.OutTimerUpdate, Priority: domain.PriorityMedium})
	b.Send("s1", domain.OutEvent{Kind: domain.OutPlayerPosition, Priority: domain.PriorityHigh})
	// Third enqueue overflows depth 2: the medium-priority entry above is the
	// worst queued priority and must be the one dropped, not the new entry.
	b.Send("s1", domain.OutEvent{Kind: domain.OutError, Priority: domain.PriorityCritical})

	if b.DroppedCount("s1") != 1 {
		t.Fatalf("DroppedCount = %d, want 1", b.DroppedCount("s1"))
	}

	b.FlushAll()
	if len(sink.sent) != 2 {
		t.Fatalf("sent = %d, want 2 (depth 2, one dropped)", len(sink.sent))
	}
	for _, m := range sink.sent {
		if m.kind == domain.OutTimerUpdate {
			t.Fatalf("dropped entry (timer_update) was delivered: %+v", sink.sent)
		}
	}
}

func TestEnqueueNeverEvictsCriticalAndReportsOverload(t *testing.T) {
	sink := &recordingSink{}
	var overloaded []string
	b := NewBroadcaster(sink, 2, func(sessionID string) { overloaded = append(overloaded, sessionID) })

	b.Send("s1", domain.OutEvent{Kind: domain.OutError, Priority: domain.PriorityCritical})
	b.Send("s1", domain.OutEvent{Kind: domain.OutRematchTimeout, Priority: domain.PriorityCritical})
	// Queue is now saturated with nothing but Critical entries; a third
	// enqueue has nothing evictable and must report overload instead of
	// dropping (or evicting) a must-deliver event.
	b.Send("s1", domain.OutEvent{Kind: domain.OutGameEnded, Priority: domain.PriorityCritical})

	if len(overloaded) != 1 || overloaded[0] != "s1" {
		t.Fatalf("overloaded = %v, want [s1]", overloaded)
	}
	if b.DroppedCount("s1") != 0 {
		t.Fatalf("DroppedCount = %d, want 0 (nothing evictable)", b.DroppedCount("s1"))
	}

	b.FlushAll()
	if len(sink.sent) != 2 {
		t.Fatalf("sent = %d, want 2 (both original critical entries preserved)", len(sink.sent))
	}
	for _, m := range sink.sent {
		if m.kind != domain.OutError && m.kind != domain.OutRematchTimeout {
			t.Fatalf("unexpected delivered kind %v; a critical entry was evicted", m.kind)
		}
	}
}

func TestLowestPriorityIndexPicksWorstPriority(t *testing.T) {
	q := []outboxEntry{
		{kind: domain.OutTimerUpdate, priority: domain.PriorityMedium},
		{kind: domain.OutPlayerPosition, priority: domain.PriorityHigh},
	}
	idx, ok := lowestPriorityIndex(q)
	if !ok || q[idx].priority != domain.PriorityMedium {
		t.Fatalf("lowestPriorityIndex picked %+v, want the medium-priority entry", q[idx])
	}
}
