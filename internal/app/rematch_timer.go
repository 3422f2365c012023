package app

import "time"

// RematchTimer is a cancelable real-time timer wrapping time.AfterFunc. The
// room actor uses one instance to bound the rematch window (finished room
// waiting for both occupants to request a rematch) and a second to bound
// the grace period before an already-disposing room is actually removed
// from the registry — both need to expire correctly on wall-clock time even
// if MatchLoop itself is not ticking between rooms.
type RematchTimer struct {
	timer *time.Timer
}

// Start arms the timer; onExpire fires on its own goroutine if the window
// elapses without being stopped first. onExpire must never touch room state
// directly — the room actor's callbacks only ever ask to be signaled back
// onto the room's own single-writer execution path (emitSignal), which the
// Nakama adapter delivers through nk.MatchSignal.
func (rt *RematchTimer) Start(d time.Duration, onExpire func()) {
	rt.Stop()
	rt.timer = time.AfterFunc(d, onExpire)
}

// Stop cancels a pending timer. Safe to call when nothing is armed, and
// called whenever both seats agree to rematch or either declines.
func (rt *RematchTimer) Stop() {
	if rt.timer != nil {
		rt.timer.Stop()
		rt.timer = nil
	}
}
