package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"

	"arena/internal/domain"

	"github.com/heroiclabs/nakama-common/runtime"
)

// RPC ids, exported under Rpc* constant names.
const (
	RpcCreateRoom = "create_room"
	RpcJoinByCode = "join_by_code"
	RpcFindMatch  = "find_match"
)

// roomMatches tracks which Nakama match id backs each domain room, since a
// domain.Room is created independently of any Nakama match —
// the RPC that first learns about a room is the one that calls
// nk.MatchCreate and records the pairing here for every later RPC that
// resolves the same room back to a socket-joinable match id.
var roomMatches sync.Map // roomID (string) -> matchID (string)

// roomResponse is the payload returned to clients for every room-resolving
// RPC: enough to join the Nakama match socket and display the room's code.
type roomResponse struct {
	MatchID string `json:"match_id"`
	Code    string `json:"code"`
	IsNew   bool   `json:"is_new"`
}

// joinByCodeRequest is the payload clients send to RpcJoinByCode.
type joinByCodeRequest struct {
	Code string `json:"code"`
}

func rpcCreateRoom(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	room := sharedService.CreateRoom()

	matchID, err := nk.MatchCreate(ctx, MatchNameArena, map[string]interface{}{"room_id": room.RoomID})
	if err != nil {
		logger.Error("create_room: MatchCreate failed for room %s: %v", room.RoomID, err)
		return "", err
	}
	roomMatches.Store(room.RoomID, matchID)

	resp, _ := json.Marshal(roomResponse{MatchID: matchID, Code: room.Code, IsNew: true})
	return string(resp), nil
}

func rpcJoinByCode(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req joinByCodeRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", runtime.NewError("invalid payload", 3)
	}

	room, err := sharedService.JoinByCode(req.Code)
	if err != nil {
		code, _ := domain.ErrorCode(err)
		return "", runtime.NewError(code, 3)
	}

	matchID, ok := roomMatches.Load(room.RoomID)
	if !ok {
		logger.Error("join_by_code: no match registered for room %s", room.RoomID)
		return "", runtime.NewError("room_unavailable", 13)
	}

	resp, _ := json.Marshal(roomResponse{MatchID: matchID.(string), Code: room.Code, IsNew: false})
	return string(resp), nil
}

func rpcFindMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	room, created := sharedService.FindOrCreateMatch()

	if !created {
		matchID, ok := roomMatches.Load(room.RoomID)
		if ok {
			resp, _ := json.Marshal(roomResponse{MatchID: matchID.(string), Code: room.Code, IsNew: false})
			return string(resp), nil
		}
		// Registered room but the mapping is missing (should not happen);
		// fall through and mint a fresh match for it rather than fail the request.
	}

	matchID, err := nk.MatchCreate(ctx, MatchNameArena, map[string]interface{}{"room_id": room.RoomID})
	if err != nil {
		logger.Error("find_match: MatchCreate failed for room %s: %v", room.RoomID, err)
		return "", err
	}
	roomMatches.Store(room.RoomID, matchID)

	resp, _ := json.Marshal(roomResponse{MatchID: matchID, Code: room.Code, IsNew: true})
	return string(resp), nil
}
