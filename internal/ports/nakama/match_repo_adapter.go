package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"arena/internal/domain"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"
)

const matchRecordCollection = "matches"

// storedMatchRecord is the JSON shape persisted per match. It is not
// domain.MatchRecord directly because the wire/storage shape (string
// timestamps, explicit collection key) is a storage-adapter concern, not a
// domain one.
type storedMatchRecord struct {
	MatchID   string              `json:"matchId"`
	Players   []domain.MatchPlayer `json:"players"`
	Status    domain.RoomStatus   `json:"status"`
	StartedAt time.Time           `json:"startedAt"`
	EndedAt   time.Time           `json:"endedAt,omitempty"`
	Result    domain.MatchResult  `json:"result,omitempty"`
}

// NakamaMatchRepo implements ports.MatchRepo over Nakama storage, using a
// create-with-Version-"*" then CAS-update-on-the-read-version discipline:
// a wildcard create guards against colliding ids, and a version-guarded
// update guards against finalizing the same match twice.
type NakamaMatchRepo struct {
	nk runtime.NakamaModule
}

// NewNakamaMatchRepo constructs the adapter.
func NewNakamaMatchRepo(nk runtime.NakamaModule) *NakamaMatchRepo {
	return &NakamaMatchRepo{nk: nk}
}

// CreateMatch persists a new in-progress match record under a fresh id
//. A write failure is returned for the caller
// (PersistenceCoordinator) to log and swallow — it must never block game
// start.
func (r *NakamaMatchRepo) CreateMatch(ctx context.Context, players []domain.MatchPlayer, startedAt time.Time) (string, error) {
	matchID := uuid.NewString()
	rec := storedMatchRecord{
		MatchID:   matchID,
		Players:   players,
		Status:    domain.StatusPlaying,
		StartedAt: startedAt,
	}
	value, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal match record: %w", err)
	}

	_, err = r.nk.StorageWrite(ctx, []*runtime.StorageWrite{{
		Collection:      matchRecordCollection,
		Key:             matchID,
		Value:           string(value),
		Version:         "*",
		PermissionRead:  runtime.STORAGE_PERMISSION_NO_READ,
		PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
	}})
	if err != nil {
		return "", fmt.Errorf("create match %s: %w", matchID, err)
	}
	return matchID, nil
}

// FinalizeMatch writes the final result exactly once, reading the current
// version first so a concurrent or repeated call safely no-ops instead of
// overwriting an already-finished record.
func (r *NakamaMatchRepo) FinalizeMatch(ctx context.Context, matchID string, result domain.MatchResult, endedAt time.Time) error {
	objects, err := r.nk.StorageRead(ctx, []*runtime.StorageRead{{
		Collection: matchRecordCollection,
		Key:        matchID,
		UserID:     "",
	}})
	if err != nil {
		return fmt.Errorf("read match %s: %w", matchID, err)
	}
	if len(objects) == 0 {
		return fmt.Errorf("match %s not found", matchID)
	}

	var rec storedMatchRecord
	if err := json.Unmarshal([]byte(objects[0].Value), &rec); err != nil {
		return fmt.Errorf("unmarshal match %s: %w", matchID, err)
	}
	if rec.Status == domain.StatusFinished {
		return nil // already finalized, treat as success
	}

	rec.Status = domain.StatusFinished
	rec.EndedAt = endedAt
	rec.Result = result
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal match %s: %w", matchID, err)
	}

	_, err = r.nk.StorageWrite(ctx, []*runtime.StorageWrite{{
		Collection:      matchRecordCollection,
		Key:             matchID,
		Value:           string(value),
		Version:         objects[0].Version,
		PermissionRead:  runtime.STORAGE_PERMISSION_NO_READ,
		PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
	}})
	if err != nil {
		if errors.Is(err, runtime.ErrStorageRejectedVersion) {
			return nil // a concurrent finalize already won; not an error
		}
		return fmt.Errorf("finalize match %s: %w", matchID, err)
	}
	return nil
}
