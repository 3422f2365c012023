// Package domain holds the pure, transport-agnostic state and rules of the
// session orchestrator: identities, sessions, rooms, events and the room
// finite state machine. Nothing in this package performs I/O, holds a lock,
// or logs; internal/app owns concurrency and internal/ports/nakama owns
// transport.
package domain

import "time"

// Seat is one of the two roles in a room.
type Seat string

const (
	SeatP1 Seat = "p1"
	SeatP2 Seat = "p2"
)

// Other returns the opposing seat.
func (s Seat) Other() Seat {
	if s == SeatP1 {
		return SeatP2
	}
	return SeatP1
}

// Valid reports whether s is a known seat.
func (s Seat) Valid() bool {
	return s == SeatP1 || s == SeatP2
}

// Principal is a verified caller identity, produced once by the Identity
// Gate and immutable thereafter.
type Principal struct {
	UserID        string
	WalletAddress string // lowercase hex, ^0x[a-f0-9]{40}$
}

// LeaveReason explains why a session detached or left a seat.
type LeaveReason string

const (
	ReasonDisconnect  LeaveReason = "disconnect"
	ReasonOverloaded  LeaveReason = "overloaded"
	ReasonShutdown    LeaveReason = "server_shutdown"
	ReasonRequested   LeaveReason = "requested" // explicit `leave` event
)

// Session is one transport connection. The Session Registry owns the
// canonical copy; a Room only ever stores a SessionID in its seat slot so
// that Session <-> Room never forms a reference cycle (see design notes).
type Session struct {
	ID          string
	Principal   Principal
	RoomID      string // empty when not seated
	Seat        Seat   // zero value when not seated
	ConnectedAt time.Time
}

// Seated reports whether the session currently holds a room seat.
func (s Session) Seated() bool {
	return s.RoomID != "" && s.Seat.Valid()
}

// RoomStatus is the Room FSM's current state.
type RoomStatus string

const (
	StatusWaiting   RoomStatus = "waiting"
	StatusPlaying   RoomStatus = "playing"
	StatusFinished  RoomStatus = "finished"
	StatusDisposing RoomStatus = "disposing"
)

// Outcome is the finalized result of a match.
type Outcome string

const (
	OutcomeP1Wins Outcome = "p1_wins"
	OutcomeP2Wins Outcome = "p2_wins"
	OutcomeDraw   Outcome = "draw"
)

// Score holds each seat's goal count.
type Score struct {
	P1 int
	P2 int
}

// Ready holds each seat's ready-up toggle.
type Ready struct {
	P1 bool
	P2 bool
}

func (r Ready) Both() bool { return r.P1 && r.P2 }

// RematchState tracks the bounded rematch negotiation after a match ends.
type RematchState struct {
	P1Requested  bool
	P2Requested  bool
	TimerActive  bool
}

func (r RematchState) BothRequested() bool { return r.P1Requested && r.P2Requested }

// Seats maps seat to occupant session id; empty string means the seat is
// free. Only session IDs are stored here, never Session values, so Room
// never needs to reach back into the Session Registry to stay consistent.
type Seats struct {
	P1 string
	P2 string
}

// Get returns the occupant session id for a seat, or "" if free.
func (s Seats) Get(seat Seat) string {
	if seat == SeatP1 {
		return s.P1
	}
	return s.P2
}

// Set returns a copy of s with seat bound to sessionID.
func (s Seats) Set(seat Seat, sessionID string) Seats {
	if seat == SeatP1 {
		s.P1 = sessionID
	} else {
		s.P2 = sessionID
	}
	return s
}

// Occupied reports how many seats are filled.
func (s Seats) Occupied() int {
	n := 0
	if s.P1 != "" {
		n++
	}
	if s.P2 != "" {
		n++
	}
	return n
}

// SeatOf returns the seat occupied by sessionID, and whether one was found.
func (s Seats) SeatOf(sessionID string) (Seat, bool) {
	if sessionID == "" {
		return "", false
	}
	if s.P1 == sessionID {
		return SeatP1, true
	}
	if s.P2 == sessionID {
		return SeatP2, true
	}
	return "", false
}

// Room is the unit of concurrency: the authoritative state for a single
// two-seat match, owned exclusively by one room actor (internal/app).
type Room struct {
	RoomID          string
	Code            string
	Status          RoomStatus
	Seats           Seats
	Ready           Ready
	Score           Score
	TimeRemainingMs int64
	MatchDurationMs int64
	BallAuthority   Seat
	MatchID         string // empty until CreateMatch succeeds
	CreatedAt       time.Time
	StartedAt       time.Time
	EndedAt         time.Time
	LastGoal        Seat // zero value if no goal yet
	Rematch         RematchState

	warnedThresholds map[int]bool // internal bookkeeping for timer_warning de-dup
	lastAccepted     map[Seat]Position
}

// Position is the last accepted player_position payload for a seat, used by
// the optional anti-cheat delta cap.
type Position struct {
	X, Y float64
}

// NewRoom constructs a waiting room with the given id/code and configured
// match duration. Ball authority defaults to p1 and never changes within a
// match.
func NewRoom(roomID, code string, matchDurationMs int64) *Room {
	return &Room{
		RoomID:          roomID,
		Code:            code,
		Status:          StatusWaiting,
		BallAuthority:   SeatP1,
		MatchDurationMs: matchDurationMs,
		TimeRemainingMs: matchDurationMs,
		CreatedAt:       time.Now(),
	}
}

// MatchRecord is the external, persisted record of a single match.
type MatchRecord struct {
	MatchID   string
	Players   []MatchPlayer
	Status    RoomStatus // waiting | playing | finished
	StartedAt time.Time
	EndedAt   time.Time
	Result    MatchResult
}

// MatchPlayer is one seat's persisted participation in a match.
type MatchPlayer struct {
	UserID        string
	WalletAddress string
	Seat          Seat
	Goals         int
}

// MatchResult is the finalized outcome of a match.
type MatchResult struct {
	WinnerUserID string // empty on draw
	Outcome      Outcome
	FinalScore   Score
	DurationMs   int64
}

// StatOutcome is a single user's result in one finalized match, used to
// increment UserRecord.GameStats.
type StatOutcome string

const (
	StatWin  StatOutcome = "win"
	StatLoss StatOutcome = "loss"
	StatDraw StatOutcome = "draw"
)

// GameStats is a user's cumulative record, incremented atomically per
// finalized match.
type GameStats struct {
	Wins         int
	Losses       int
	Draws        int
	TotalMatches int
}

// UserRecord is the external, persisted identity+stats record for a player.
type UserRecord struct {
	UserID        string
	WalletAddress string
	GameStats     GameStats
}
