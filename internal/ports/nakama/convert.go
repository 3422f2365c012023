package nakama

import (
	"encoding/json"
	"fmt"

	"arena/internal/domain"
)

// decodeInEvent unmarshals one client match-data payload's envelope into a
// domain.InEvent, dispatching on the JSON "kind" field rather than a
// per-message protobuf opcode (see DESIGN.md).
func decodeInEvent(raw []byte) (domain.InEvent, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.InEvent{}, fmt.Errorf("unmarshal envelope: %w", err)
	}

	kind := domain.InKind(env.Kind)
	switch kind {
	case domain.InLeave, domain.InRequestRematch, domain.InDeclineRematch:
		return domain.InEvent{Kind: kind}, nil
	case domain.InReady:
		var p domain.ReadyRequest
		if len(env.Payload) > 0 {
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				return domain.InEvent{}, fmt.Errorf("unmarshal ready payload: %w", err)
			}
		}
		return domain.InEvent{Kind: kind, Payload: p}, nil
	case domain.InPlayerPosition:
		var p domain.PlayerPositionRequest
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return domain.InEvent{}, fmt.Errorf("unmarshal player_position payload: %w", err)
		}
		return domain.InEvent{Kind: kind, Payload: p}, nil
	case domain.InBallState:
		var p domain.BallStateRequest
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return domain.InEvent{}, fmt.Errorf("unmarshal ball_state payload: %w", err)
		}
		return domain.InEvent{Kind: kind, Payload: p}, nil
	case domain.InGoal:
		var p domain.GoalRequest
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return domain.InEvent{}, fmt.Errorf("unmarshal goal payload: %w", err)
		}
		return domain.InEvent{Kind: kind, Payload: p}, nil
	default:
		return domain.InEvent{}, fmt.Errorf("unknown event kind %q", env.Kind)
	}
}
