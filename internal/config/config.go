// Package config loads the room orchestrator's tunables once at module init,
// generalizing the sync.Once-guarded BetConfig loader: here the
// source is Nakama runtime env vars (falling back to the process
// environment) rather than a JSON file, because every value is a single
// scalar rather than a tier table.
package config

import (
	"strconv"

	"arena/internal/domain"
)

// RoomConfig holds every tunable of the room orchestrator. Load starts from
// DefaultRoomConfig, so a setting that is absent, empty or unparsable keeps
// its default value; a parsable value (including 0) replaces it.
type RoomConfig struct {
	// MatchDurationMs is the length of a match clock.
	MatchDurationMs int64
	// TickMs is the Tick Scheduler's fixed period.
	TickMs int64
	// RematchTimeoutMs bounds how long a finished room waits for both
	// players to request a rematch before disposing.
	RematchTimeoutMs int64
	// OutboundQueueDepth bounds the Broadcaster's per-session queue before
	// it starts dropping low-priority events.
	OutboundQueueDepth int
	// MaxPositionDeltaPerTick optionally caps how far a player_position may
	// move a seat between accepted updates. Zero disables
	// the cap.
	MaxPositionDeltaPerTick float64
	// Alphabet and CodeLen parameterize room code generation.
	Alphabet string
	CodeLen  int
}

// DefaultRoomConfig returns the stock arena tuning: a 60s match clock, a
// 100ms tick, a 180s rematch window, a 256-deep outbound queue, and the
// anti-cheat position-delta cap disabled (0).
func DefaultRoomConfig() RoomConfig {
	return RoomConfig{
		MatchDurationMs:         60_000,
		TickMs:                  100,
		RematchTimeoutMs:        180_000,
		OutboundQueueDepth:      256,
		MaxPositionDeltaPerTick: 0,
		Alphabet:                domain.DefaultAlphabet,
		CodeLen:                 domain.DefaultCodeLen,
	}
}

// EnvLookup resolves a single named setting so the Nakama adapter can pass
// ctx.Value(runtime.RUNTIME_CTX_ENV) straight through without this package
// importing the runtime package itself.
type EnvLookup func(key string) (string, bool)

// Load builds a RoomConfig starting from DefaultRoomConfig and overriding
// each field present (and parsable) under its arena_ prefixed key.
func Load(lookup EnvLookup) RoomConfig {
	cfg := DefaultRoomConfig()

	if v, ok := lookupInt(lookup, "arena_match_duration_ms"); ok {
		cfg.MatchDurationMs = v
	}
	if v, ok := lookupInt(lookup, "arena_tick_ms"); ok {
		cfg.TickMs = v
	}
	if v, ok := lookupInt(lookup, "arena_rematch_timeout_ms"); ok {
		cfg.RematchTimeoutMs = v
	}
	if v, ok := lookupInt(lookup, "arena_outbound_queue_depth"); ok {
		cfg.OutboundQueueDepth = int(v)
	}
	if v, ok := lookupFloat(lookup, "arena_max_position_delta_per_tick"); ok {
		cfg.MaxPositionDeltaPerTick = v
	}
	if v, ok := lookup("arena_room_code_alphabet"); ok && v != "" {
		cfg.Alphabet = v
	}
	if v, ok := lookupInt(lookup, "arena_room_code_len"); ok {
		cfg.CodeLen = int(v)
	}

	return cfg
}

func lookupInt(lookup EnvLookup, key string) (int64, bool) {
	raw, ok := lookup(key)
	if !ok || raw == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func lookupFloat(lookup EnvLookup, key string) (float64, bool) {
	raw, ok := lookup(key)
	if !ok || raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
