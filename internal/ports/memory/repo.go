// Package memory provides in-memory reference implementations of
// internal/ports, used by unit tests and by any embedder that hasn't wired a
// durable store yet. It is not meant for production persistence — the real
// store is always an external collaborator.
package memory

import (
	"context"
	"sync"
	"time"

	"arena/internal/domain"
)

// UserRepo is a goroutine-safe in-memory ports.UserRepo.
type UserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.UserRecord
}

// NewUserRepo constructs an empty repo. Seed registers known users the way a
// real UserRepo would have them pre-populated from account creation.
func NewUserRepo(seed ...domain.UserRecord) *UserRepo {
	r := &UserRepo{users: make(map[string]*domain.UserRecord)}
	for _, u := range seed {
		rec := u
		r.users[u.UserID] = &rec
	}
	return r
}

func (r *UserRepo) Exists(ctx context.Context, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.users[userID]
	return ok, nil
}

func (r *UserRepo) UpdateStats(ctx context.Context, userID string, outcome domain.StatOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.users[userID]
	if !ok {
		rec = &domain.UserRecord{UserID: userID}
		r.users[userID] = rec
	}
	rec.GameStats.TotalMatches++
	switch outcome {
	case domain.StatWin:
		rec.GameStats.Wins++
	case domain.StatLoss:
		rec.GameStats.Losses++
	case domain.StatDraw:
		rec.GameStats.Draws++
	}
	return nil
}

// Get returns a copy of the stored record, for test assertions.
func (r *UserRepo) Get(userID string) (domain.UserRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.users[userID]
	if !ok {
		return domain.UserRecord{}, false
	}
	return *rec, true
}

// MatchRepo is a goroutine-safe in-memory ports.MatchRepo with the same
// "read current status, no-op if already finished" idempotency guard a real
// store must provide.
type MatchRepo struct {
	mu      sync.Mutex
	records map[string]*domain.MatchRecord
	seq     int
	// FinalizeCalls counts every FinalizeMatch invocation, including no-ops,
	// so tests can assert "at most once had an effect" without depending on
	// wall-clock ids.
	FinalizeCalls int
}

func NewMatchRepo() *MatchRepo {
	return &MatchRepo{records: make(map[string]*domain.MatchRecord)}
}

func (m *MatchRepo) CreateMatch(ctx context.Context, players []domain.MatchPlayer, startedAt time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	matchID := "match-" + itoa(m.seq)
	m.records[matchID] = &domain.MatchRecord{
		MatchID:   matchID,
		Players:   players,
		Status:    domain.StatusPlaying,
		StartedAt: startedAt,
	}
	return matchID, nil
}

func (m *MatchRepo) FinalizeMatch(ctx context.Context, matchID string, result domain.MatchResult, endedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FinalizeCalls++
	rec, ok := m.records[matchID]
	if !ok {
		return nil // nothing to finalize against; treated as a no-op, not fatal
	}
	if rec.Status == domain.StatusFinished {
		return nil // idempotency guard
	}
	rec.Status = domain.StatusFinished
	rec.EndedAt = endedAt
	rec.Result = result
	return nil
}

// Get returns a copy of the stored record, for test assertions.
func (m *MatchRepo) Get(matchID string) (domain.MatchRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[matchID]
	if !ok {
		return domain.MatchRecord{}, false
	}
	return *rec, true
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
