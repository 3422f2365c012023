package domain

import "errors"

// Error taxonomy. Each sentinel maps to a stable wire code via
// ErrorCode so the transport adapter never needs a second switch statement.
var (
	ErrAuthRequired          = errors.New("auth required")
	ErrAuthInvalid           = errors.New("auth invalid")
	ErrAlreadyConnected      = errors.New("user already connected")
	ErrNotInRoom             = errors.New("session not in a room")
	ErrAlreadyInRoom         = errors.New("session already in a room")
	ErrRoomFull              = errors.New("room full")
	ErrRoomNotFound          = errors.New("room not found")
	ErrBadCode               = errors.New("bad room code")
	ErrBadState              = errors.New("event not permitted in current room state")
	ErrSeatSpoof             = errors.New("seat field does not match sender's assigned seat")
	ErrUnauthorizedBallUpdate = errors.New("sender is not ball authority")
	ErrUnauthorizedGoal      = errors.New("sender is not ball authority")
	ErrOverloaded            = errors.New("outbound queue overflow")
	ErrServerShutdown        = errors.New("server shutting down")
)

var errorCodes = map[error]string{
	ErrAuthRequired:           "auth_required",
	ErrAuthInvalid:            "auth_invalid",
	ErrAlreadyConnected:       "already_connected",
	ErrNotInRoom:              "not_in_room",
	ErrAlreadyInRoom:          "already_in_room",
	ErrRoomFull:               "room_full",
	ErrRoomNotFound:           "room_not_found",
	ErrBadCode:                "bad_code",
	ErrBadState:               "bad_state",
	ErrSeatSpoof:              "seat_spoof",
	ErrUnauthorizedBallUpdate: "unauthorized_ball_update",
	ErrUnauthorizedGoal:       "unauthorized_goal",
	ErrOverloaded:             "overloaded",
	ErrServerShutdown:         "server_shutdown",
}

// ErrorCode maps a domain sentinel error to its stable wire code string. ok
// is false for errors not in the taxonomy (callers should treat those as
// internal/unexpected rather than surface them verbatim).
func ErrorCode(err error) (code string, ok bool) {
	for sentinel, c := range errorCodes {
		if errors.Is(err, sentinel) {
			return c, true
		}
	}
	return "", false
}
