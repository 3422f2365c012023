package nakama

import (
	"context"
	"fmt"

	"arena/internal/domain"

	"github.com/heroiclabs/nakama-common/runtime"
)

// NakamaUserRepo implements ports.UserRepo using Nakama's wallet ledger as
// an atomic counter store: nk.WalletUpdate's changeset semantics, normally
// used to settle currency, give atomic concurrency-safe increments for
// win/loss/draw counters too, which a plain read-modify-write StorageWrite
// would not give for free.
type NakamaUserRepo struct {
	nk runtime.NakamaModule
}

// NewNakamaUserRepo constructs the adapter.
func NewNakamaUserRepo(nk runtime.NakamaModule) *NakamaUserRepo {
	return &NakamaUserRepo{nk: nk}
}

// Exists reports whether userID resolves to a known Nakama account.
func (r *NakamaUserRepo) Exists(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	if _, err := r.nk.AccountGetId(ctx, userID); err != nil {
		return false, nil
	}
	return true, nil
}

// UpdateStats atomically increments the wallet counters matching outcome.
func (r *NakamaUserRepo) UpdateStats(ctx context.Context, userID string, outcome domain.StatOutcome) error {
	changes := map[string]int64{"game_total_matches": 1}
	switch outcome {
	case domain.StatWin:
		changes["game_wins"] = 1
	case domain.StatLoss:
		changes["game_losses"] = 1
	case domain.StatDraw:
		changes["game_draws"] = 1
	}

	metadata := map[string]interface{}{"reason": "match_finalized", "outcome": string(outcome)}
	if _, _, err := r.nk.WalletUpdate(ctx, userID, changes, metadata, true); err != nil {
		return fmt.Errorf("update stats for user %s: %w", userID, err)
	}
	return nil
}
