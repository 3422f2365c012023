package domain

import (
	"testing"
	"time"
)

func newTestRoom() *Room {
	return NewRoom("room-1", "K7QR9P", 60000)
}

func TestJoinAssignsP1ThenP2(t *testing.T) {
	r := newTestRoom()

	seat, _, err := r.Join("sess-a")
	if err != nil {
		t.Fatalf("join a: %v", err)
	}
	if seat != SeatP1 {
		t.Fatalf("first occupant seat = %v, want p1", seat)
	}

	seat, _, err = r.Join("sess-b")
	if err != nil {
		t.Fatalf("join b: %v", err)
	}
	if seat != SeatP2 {
		t.Fatalf("second occupant seat = %v, want p2", seat)
	}

	if _, _, err := r.Join("sess-c"); err != ErrRoomFull {
		t.Fatalf("third join err = %v, want ErrRoomFull", err)
	}
}

func TestBallAuthorityDefaultsToP1AndIsStable(t *testing.T) {
	r := newTestRoom()
	if r.BallAuthority != SeatP1 {
		t.Fatalf("ball authority = %v, want p1", r.BallAuthority)
	}
	r.Join("sess-a")
	r.Join("sess-b")
	r.StartMatch(time.Now(), "match-1")
	if r.BallAuthority != SeatP1 {
		t.Fatalf("ball authority changed across start: %v", r.BallAuthority)
	}
}

func TestReadyToggleRoundTrip(t *testing.T) {
	r := newTestRoom()
	r.Join("sess-a")

	events, err := r.ReadyToggle(SeatP1, nil)
	if err != nil {
		t.Fatalf("toggle 1: %v", err)
	}
	if !r.Ready.P1 {
		t.Fatalf("ready.p1 = false after first toggle")
	}
	if len(events) != 1 || events[0].Kind != OutPlayerReadyState {
		t.Fatalf("unexpected events: %+v", events)
	}

	if _, err := r.ReadyToggle(SeatP1, nil); err != nil {
		t.Fatalf("toggle 2: %v", err)
	}
	if r.Ready.P1 {
		t.Fatalf("ready.p1 = true after second toggle, want back to original (false)")
	}
}

func TestBothReadyRequiresTwoSeatsAndBothReady(t *testing.T) {
	r := newTestRoom()
	r.Join("sess-a")
	r.ReadyToggle(SeatP1, nil)
	if r.BothReady() {
		t.Fatalf("BothReady true with one seat occupied")
	}

	r.Join("sess-b")
	if r.BothReady() {
		t.Fatalf("BothReady true before p2 readies")
	}

	r.ReadyToggle(SeatP2, nil)
	if !r.BothReady() {
		t.Fatalf("BothReady false after both readied")
	}
}

func TestStartMatchResetsStateAndClearsReady(t *testing.T) {
	r := newTestRoom()
	r.Join("sess-a")
	r.Join("sess-b")
	r.ReadyToggle(SeatP1, nil)
	r.ReadyToggle(SeatP2, nil)

	events := r.StartMatch(time.Now(), "match-1")
	if r.Status != StatusPlaying {
		t.Fatalf("status = %v, want playing", r.Status)
	}
	if r.Score != (Score{}) {
		t.Fatalf("score not reset: %+v", r.Score)
	}
	if r.TimeRemainingMs != r.MatchDurationMs {
		t.Fatalf("timeRemainingMs = %d, want %d", r.TimeRemainingMs, r.MatchDurationMs)
	}
	if r.Ready.Both() {
		t.Fatalf("ready flags not cleared after start")
	}
	if len(events) != 1 || events[0].Kind != OutGameStarted {
		t.Fatalf("unexpected start events: %+v", events)
	}
}

func TestGoalOnlyInPlaying(t *testing.T) {
	r := newTestRoom()
	if _, err := r.Goal(SeatP1); err != ErrBadState {
		t.Fatalf("goal while waiting err = %v, want ErrBadState", err)
	}

	r.Join("sess-a")
	r.Join("sess-b")
	r.StartMatch(time.Now(), "m1")

	events, err := r.Goal(SeatP1)
	if err != nil {
		t.Fatalf("goal: %v", err)
	}
	if r.Score.P1 != 1 {
		t.Fatalf("score.p1 = %d, want 1", r.Score.P1)
	}
	payload := events[0].Payload.(GoalScoredPayload)
	if payload.Scorer != SeatP1 || payload.Score.P1 != 1 {
		t.Fatalf("unexpected goal payload: %+v", payload)
	}
}

func TestOutcomeRule(t *testing.T) {
	r := newTestRoom()
	r.Score = Score{P1: 2, P2: 1}
	if got := r.Outcome(""); got != OutcomeP1Wins {
		t.Fatalf("outcome = %v, want p1_wins", got)
	}
	r.Score = Score{P1: 1, P2: 2}
	if got := r.Outcome(""); got != OutcomeP2Wins {
		t.Fatalf("outcome = %v, want p2_wins", got)
	}
	r.Score = Score{P1: 1, P2: 1}
	if got := r.Outcome(""); got != OutcomeDraw {
		t.Fatalf("outcome = %v, want draw", got)
	}
	r.Score = Score{P1: 5, P2: 9}
	if got := r.Outcome(SeatP1); got != OutcomeP1Wins {
		t.Fatalf("remaining-seat outcome = %v, want p1_wins despite trailing score", got)
	}
}

func TestMatchDurationZeroFinishesImmediatelyAsDraw(t *testing.T) {
	r := NewRoom("room-2", "AB2345", 0)
	r.Join("sess-a")
	r.Join("sess-b")
	r.StartMatch(time.Now(), "m1")

	_, timeUp := r.Tick(0)
	if !timeUp {
		t.Fatalf("tick with 0 duration did not report time up")
	}
	if r.Outcome("") != OutcomeDraw {
		t.Fatalf("zero-duration outcome = %v, want draw", r.Outcome(""))
	}
}

func TestTickEmitsWarningOnceAtEachThreshold(t *testing.T) {
	r := NewRoom("room-3", "AB2345", 31000)
	r.Join("sess-a")
	r.Join("sess-b")
	r.StartMatch(time.Now(), "m1")

	events, _ := r.Tick(1000) // 31000 -> 30000
	warnings := countKind(events, OutTimerWarning)
	if warnings != 1 {
		t.Fatalf("warnings at 30s = %d, want 1", warnings)
	}

	events, _ = r.Tick(1000) // 30000 -> 29000, should not warn again
	if countKind(events, OutTimerWarning) != 0 {
		t.Fatalf("warning repeated below threshold")
	}

	events, _ = r.Tick(19000) // 29000 -> 10000
	if countKind(events, OutTimerWarning) != 1 {
		t.Fatalf("warnings at 10s = %d, want 1", countKind(events, OutTimerWarning))
	}

	events, _ = r.Tick(1000) // 10000 -> 9000, should not warn again
	if countKind(events, OutTimerWarning) != 0 {
		t.Fatalf("10s warning repeated below threshold")
	}
}

func TestTickNeverReordersBelowZero(t *testing.T) {
	r := NewRoom("room-4", "AB2345", 500)
	r.Join("sess-a")
	r.Join("sess-b")
	r.StartMatch(time.Now(), "m1")

	_, timeUp := r.Tick(1000)
	if !timeUp {
		t.Fatalf("overshoot tick did not report time up")
	}
	if r.TimeRemainingMs != 0 {
		t.Fatalf("timeRemainingMs = %d, want clamped to 0", r.TimeRemainingMs)
	}
}

func TestTickIsNoOpOutsidePlaying(t *testing.T) {
	r := newTestRoom()
	events, timeUp := r.Tick(100)
	if events != nil || timeUp {
		t.Fatalf("tick produced output while waiting: events=%v timeUp=%v", events, timeUp)
	}
}

func TestLeaveWaitingFreesSeat(t *testing.T) {
	r := newTestRoom()
	r.Join("sess-a")
	r.Join("sess-b")

	seat, _, ok := r.Leave("sess-a", ReasonDisconnect)
	if !ok || seat != SeatP1 {
		t.Fatalf("leave returned seat=%v ok=%v, want p1/true", seat, ok)
	}
	if r.Seats.P1 != "" {
		t.Fatalf("seat not freed: %+v", r.Seats)
	}
	if r.Empty() {
		t.Fatalf("room reported empty with p2 still seated")
	}
}

func TestLeaveUnknownSessionIsNoop(t *testing.T) {
	r := newTestRoom()
	r.Join("sess-a")
	if _, _, ok := r.Leave("sess-nobody", ReasonDisconnect); ok {
		t.Fatalf("leave for unseated session reported ok")
	}
}

func TestFinishMidGameLeaveAwardsRemainingSeatRegardlessOfScore(t *testing.T) {
	r := newTestRoom()
	r.Join("sess-a")
	r.Join("sess-b")
	r.StartMatch(time.Now(), "m1")
	r.Score = Score{P1: 0, P2: 9}

	events, result := r.Finish(time.Now(), SeatP1, func(s Seat) string {
		if s == SeatP1 {
			return "userA"
		}
		return "userB"
	})
	if result.Outcome != OutcomeP1Wins {
		t.Fatalf("outcome = %v, want p1_wins (remaining seat wins)", result.Outcome)
	}
	if result.WinnerUserID != "userA" {
		t.Fatalf("winner = %q, want userA", result.WinnerUserID)
	}
	if r.Status != StatusFinished {
		t.Fatalf("status = %v, want finished", r.Status)
	}
	if len(events) != 1 || events[0].Kind != OutGameEnded {
		t.Fatalf("unexpected finish events: %+v", events)
	}
}

func TestRematchResetRestoresWaitingRoomSemantics(t *testing.T) {
	r := newTestRoom()
	r.Join("sess-a")
	r.Join("sess-b")
	r.StartMatch(time.Now(), "m1")
	r.Goal(SeatP1)
	r.Finish(time.Now(), "", func(Seat) string { return "" })
	r.RequestRematch(SeatP1)
	r.RequestRematch(SeatP2)

	r.RematchReset()

	if r.Status != StatusWaiting {
		t.Fatalf("status = %v, want waiting", r.Status)
	}
	if r.Score != (Score{}) {
		t.Fatalf("score not reset: %+v", r.Score)
	}
	if r.TimeRemainingMs != r.MatchDurationMs {
		t.Fatalf("timeRemainingMs not reset: %d", r.TimeRemainingMs)
	}
	if r.Ready.Both() {
		t.Fatalf("ready flags not cleared")
	}
	if r.Rematch != (RematchState{}) {
		t.Fatalf("rematch flags not cleared: %+v", r.Rematch)
	}
	if r.MatchID != "" {
		t.Fatalf("matchId not cleared: %q", r.MatchID)
	}
	if r.BallAuthority != SeatP1 {
		t.Fatalf("ball authority not preserved: %v", r.BallAuthority)
	}
	// Occupants preserved (this spec's definition of "byte-equal to a fresh
	// room with the same occupants").
	if r.Seats.P1 != "sess-a" || r.Seats.P2 != "sess-b" {
		t.Fatalf("occupants not preserved: %+v", r.Seats)
	}
}

func TestRequestRematchBothRequestedSignalsTrue(t *testing.T) {
	r := newTestRoom()
	r.Join("sess-a")
	r.Join("sess-b")
	r.StartMatch(time.Now(), "m1")
	r.Finish(time.Now(), "", func(Seat) string { return "" })

	_, both, err := r.RequestRematch(SeatP1)
	if err != nil {
		t.Fatalf("request p1: %v", err)
	}
	if both {
		t.Fatalf("both=true after only p1 requested")
	}

	_, both, err = r.RequestRematch(SeatP2)
	if err != nil {
		t.Fatalf("request p2: %v", err)
	}
	if !both {
		t.Fatalf("both=false after both requested")
	}
}

func TestGenerateCodeUsesAlphabetAndLength(t *testing.T) {
	seq := []int{0, 1, 2, 3, 4, 5}
	i := 0
	code := GenerateCode(DefaultAlphabet, DefaultCodeLen, func(n int) int {
		v := seq[i%len(seq)] % n
		i++
		return v
	})
	if len(code) != DefaultCodeLen {
		t.Fatalf("code length = %d, want %d", len(code), DefaultCodeLen)
	}
	for _, c := range code {
		if !containsRune(DefaultAlphabet, c) {
			t.Fatalf("code %q contains character %q outside alphabet", code, c)
		}
	}
}

func TestNormalizeCodeIsCaseInsensitive(t *testing.T) {
	if NormalizeCode("k7qr9p") != "K7QR9P" {
		t.Fatalf("normalize lowercase mismatch")
	}
	if NormalizeCode("K7QR9P") != "K7QR9P" {
		t.Fatalf("normalize uppercase mismatch")
	}
}

func countKind(events []OutEvent, kind OutKind) int {
	n := 0
	for _, e := range events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func containsRune(s string, r rune) bool {
	for _, c := range s {
		if c == r {
			return true
		}
	}
	return false
}
