package app

import (
	"sync"

	"arena/internal/domain"
)

// OutboundSink delivers one already-targeted message to a single session.
// The Nakama adapter implements this over runtime.MatchDispatcher.BroadcastMessage;
// tests can substitute a recording fake.
type OutboundSink interface {
	Send(sessionID string, kind domain.OutKind, payload any) error
}

// outboxEntry is one queued, not-yet-delivered message.
type outboxEntry struct {
	kind     domain.OutKind
	payload  any
	priority domain.Priority
}

// Broadcaster fans a room's OutEvents out to sessions through bounded
// per-session queues, dropping the lowest-priority queued entry first on
// overflow.
//
// Enqueue and delivery are deliberately decoupled: a room actor enqueues
// every event produced while handling one message or tick, then calls
// FlushAll once at the end. This is what gives the bound teeth — a handler
// that (transiently) produces more events for a session than depth allows
// sheds the least important ones before anything goes out, rather than
// draining after every single enqueue and never actually filling the queue.
type Broadcaster struct {
	mu         sync.Mutex
	queues     map[string][]outboxEntry
	depth      int
	sink       OutboundSink
	dropped    map[string]int // sessionID -> count of dropped entries, for diagnostics
	onOverload func(sessionID string)
}

// NewBroadcaster constructs a Broadcaster bounded to depth entries per
// session. onOverload is called (outside the broadcaster's own lock) when a
// session's queue is saturated with nothing but must-deliver Critical
// entries, so nothing can be evicted to make room for a new one — the
// caller is expected to detach that session with ReasonOverloaded. onOverload
// may be nil.
func NewBroadcaster(sink OutboundSink, depth int, onOverload func(sessionID string)) *Broadcaster {
	return &Broadcaster{
		queues:     make(map[string][]outboxEntry),
		dropped:    make(map[string]int),
		depth:      depth,
		sink:       sink,
		onOverload: onOverload,
	}
}

// Dispatch resolves an OutEvent's Target against the room's occupied seats
// and enqueues one delivery per recipient session.
func (b *Broadcaster) Dispatch(room *domain.Room, sessionOf func(domain.Seat) string, ev domain.OutEvent) {
	for _, seat := range []domain.Seat{domain.SeatP1, domain.SeatP2} {
		sessionID := sessionOf(seat)
		if sessionID == "" {
			continue
		}
		switch ev.Target {
		case domain.TargetSeat:
			if seat != ev.Seat {
				continue
			}
		case domain.TargetExceptSeat:
			if seat == ev.Seat {
				continue
			}
		}
		b.enqueue(sessionID, ev)
	}
}

// Send enqueues a single direct message to one session, bypassing room seat
// resolution — used for connection-scoped replies like welcome and
// room_full that precede seating.
func (b *Broadcaster) Send(sessionID string, ev domain.OutEvent) {
	b.enqueue(sessionID, ev)
}

// enqueue appends ev to sessionID's queue, evicting the worst-priority
// queued entry first if depth is already reached. A queue saturated with
// nothing but Critical entries cannot shed anything, so that case reports
// overload instead of silently dropping (or evicting) a must-deliver event.
func (b *Broadcaster) enqueue(sessionID string, ev domain.OutEvent) {
	b.mu.Lock()
	q := b.queues[sessionID]
	overloaded := false
	if len(q) >= b.depth {
		idx, ok := lowestPriorityIndex(q)
		if ok && q[idx].priority != domain.PriorityCritical {
			q = append(q[:idx], q[idx+1:]...)
			b.dropped[sessionID]++
		} else {
			overloaded = true
		}
	}
	if !overloaded {
		b.queues[sessionID] = append(q, outboxEntry{kind: ev.Kind, payload: ev.Payload, priority: ev.Priority})
	}
	b.mu.Unlock()

	if overloaded && b.onOverload != nil {
		b.onOverload(sessionID)
	}
}

// lowestPriorityIndex finds the queued entry with the worst (numerically
// highest) priority value, so it is the first candidate dropped on overflow.
func lowestPriorityIndex(q []outboxEntry) (int, bool) {
	if len(q) == 0 {
		return 0, false
	}
	worst := 0
	for i, e := range q {
		if e.priority > q[worst].priority {
			worst = i
		}
	}
	return worst, true
}

// FlushAll delivers every session's queued entries through the sink and
// clears the queues. The room actor calls this once per handled message or
// tick, after all of that step's events have been enqueued. Delivery
// failures (disconnected session) are swallowed — the Room Actor decides
// whether a failed session needs disconnect handling; the Broadcaster's job
// ends at best-effort delivery.
func (b *Broadcaster) FlushAll() {
	b.mu.Lock()
	pending := b.queues
	b.queues = make(map[string][]outboxEntry)
	b.mu.Unlock()

	for sessionID, q := range pending {
		for _, e := range q {
			_ = b.sink.Send(sessionID, e.kind, e.payload)
		}
	}
}

// DroppedCount returns how many entries have been dropped for sessionID, for
// diagnostics and tests.
func (b *Broadcaster) DroppedCount(sessionID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped[sessionID]
}
