package app

import (
	"context"

	"arena/internal/domain"
	"arena/internal/ports"
)

// PersistenceCoordinator owns every write to durable storage on behalf of a
// room: creating the match record at game start and finalizing the result
// and stat deltas exactly once at game end. It holds no room state itself —
// the room actor calls it with a snapshot already taken and the room's
// exclusive section already released, so no I/O ever happens while a room's
// lock is held.
type PersistenceCoordinator struct {
	users   ports.UserRepo
	matches ports.MatchRepo
	clock   ports.Clock
	logger  Logger
}

// Logger is the narrowest slice of runtime.Logger this package needs,
// letting tests inject a no-op or recording implementation without pulling
// in the Nakama runtime package.
type Logger interface {
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

func NewPersistenceCoordinator(users ports.UserRepo, matches ports.MatchRepo, clock ports.Clock, logger Logger) *PersistenceCoordinator {
	return &PersistenceCoordinator{users: users, matches: matches, clock: clock, logger: logger}
}

// CreateMatch persists a new match-in-progress record. A failure here is
// logged and swallowed — it must never block game start. Returns the empty string on failure, which
// Room.StartMatch accepts as "no match id available".
func (p *PersistenceCoordinator) CreateMatch(ctx context.Context, players []domain.MatchPlayer) string {
	matchID, err := p.matches.CreateMatch(ctx, players, p.clock.Now())
	if err != nil {
		p.logger.Warn("persistence: CreateMatch failed, starting without a match id: %v", err)
		return ""
	}
	return matchID
}

// FinalizeMatch writes the match outcome and both players' stat deltas. It
// is safe to call more than once for the same matchID — MatchRepo
// implementations must no-op past the first successful write — but the room actor still only
// calls this once per room lifecycle, on the playing -> finished
// transition.
func (p *PersistenceCoordinator) FinalizeMatch(ctx context.Context, matchID string, result domain.MatchResult, players []domain.MatchPlayer) {
	if matchID == "" {
		return // nothing was ever persisted for this match; neither the result nor stats are written
	}

	if err := p.matches.FinalizeMatch(ctx, matchID, result, p.clock.Now()); err != nil {
		p.logger.Error("persistence: FinalizeMatch(%s) failed: %v", matchID, err)
	}

	for _, pl := range players {
		outcome := statOutcomeFor(pl.Seat, result)
		if err := p.users.UpdateStats(ctx, pl.UserID, outcome); err != nil {
			p.logger.Error("persistence: UpdateStats(%s) failed: %v", pl.UserID, err)
		}
	}
}

// statOutcomeFor maps a match result to the per-seat stat bucket.
func statOutcomeFor(seat domain.Seat, result domain.MatchResult) domain.StatOutcome {
	switch result.Outcome {
	case domain.OutcomeDraw:
		return domain.StatDraw
	case domain.OutcomeP1Wins:
		if seat == domain.SeatP1 {
			return domain.StatWin
		}
		return domain.StatLoss
	case domain.OutcomeP2Wins:
		if seat == domain.SeatP2 {
			return domain.StatWin
		}
		return domain.StatLoss
	default:
		return domain.StatDraw
	}
}
