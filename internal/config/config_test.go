package config

import (
	"testing"

	"arena/internal/domain"
)

func lookupFrom(m map[string]string) EnvLookup {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestLoadReturnsDefaultsWhenUnset(t *testing.T) {
	got := Load(lookupFrom(nil))
	want := DefaultRoomConfig()
	if got != want {
		t.Fatalf("Load(empty) = %+v, want defaults %+v", got, want)
	}
}

func TestDefaultRoomConfigMatchesSpecLiterals(t *testing.T) {
	got := DefaultRoomConfig()
	want := RoomConfig{
		MatchDurationMs:         60_000,
		TickMs:                  100,
		RematchTimeoutMs:        180_000,
		OutboundQueueDepth:      256,
		MaxPositionDeltaPerTick: 0,
		Alphabet:                domain.DefaultAlphabet,
		CodeLen:                 domain.DefaultCodeLen,
	}
	if got != want {
		t.Fatalf("DefaultRoomConfig() = %+v, want %+v", got, want)
	}
}

func TestLoadOverridesEachField(t *testing.T) {
	m := map[string]string{
		"arena_match_duration_ms":           "90000",
		"arena_tick_ms":                     "33",
		"arena_rematch_timeout_ms":          "5000",
		"arena_outbound_queue_depth":        "16",
		"arena_max_position_delta_per_tick": "2.5",
		"arena_room_code_alphabet":          "ABCDEF",
		"arena_room_code_len":               "4",
	}
	got := Load(lookupFrom(m))

	want := RoomConfig{
		MatchDurationMs:         90000,
		TickMs:                  33,
		RematchTimeoutMs:        5000,
		OutboundQueueDepth:      16,
		MaxPositionDeltaPerTick: 2.5,
		Alphabet:                "ABCDEF",
		CodeLen:                 4,
	}
	if got != want {
		t.Fatalf("Load(full) = %+v, want %+v", got, want)
	}
}

func TestLoadIgnoresUnparsableValues(t *testing.T) {
	m := map[string]string{
		"arena_tick_ms": "not-a-number",
	}
	got := Load(lookupFrom(m))
	if got.TickMs != DefaultRoomConfig().TickMs {
		t.Fatalf("TickMs = %d, want default %d", got.TickMs, DefaultRoomConfig().TickMs)
	}
}
