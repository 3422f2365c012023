package nakama

import (
	"context"
	"database/sql"
	"os"

	"arena/internal/app"
	"arena/internal/config"

	"github.com/heroiclabs/nakama-common/runtime"
)

// sharedService is the single process-wide Service instance every match and
// RPC on this node talks to — the Session Registry and Room Registry must
// be shared across every match handler on the node for matchmaking and
// join-by-code to see each other's rooms.
var sharedService *app.Service
var sharedConfig config.RoomConfig

// InitModule wires RPCs and the match handler for the Nakama runtime.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	sharedConfig = config.Load(func(key string) (string, bool) { return envOrOsLookup(env, key) })

	secret := envOrOs(env, "ARENA_JWT_SECRET")
	verifier := NewJWTVerifier(secret)
	users := NewNakamaUserRepo(nk)
	matches := NewNakamaMatchRepo(nk)

	sharedService = app.NewService(verifier, users, matches, mathRandSource{}, nil, sharedConfig, nakamaLogger{logger})

	if err := initializer.RegisterRpc(RpcCreateRoom, rpcCreateRoom); err != nil {
		return err
	}
	if err := initializer.RegisterRpc(RpcJoinByCode, rpcJoinByCode); err != nil {
		return err
	}
	if err := initializer.RegisterRpc(RpcFindMatch, rpcFindMatch); err != nil {
		return err
	}
	if err := initializer.RegisterMatch(MatchNameArena, NewMatch); err != nil {
		return err
	}

	logger.Info("Arena match module loaded.")
	return nil
}

func envOrOs(env map[string]string, key string) string {
	if value, ok := env[key]; ok && value != "" {
		return value
	}
	return os.Getenv(key)
}

func envOrOsLookup(env map[string]string, key string) (string, bool) {
	if value, ok := env[key]; ok && value != "" {
		return value, true
	}
	if value, ok := os.LookupEnv(key); ok {
		return value, true
	}
	return "", false
}

// nakamaLogger adapts runtime.Logger to the narrow app.Logger interface.
type nakamaLogger struct{ l runtime.Logger }

func (n nakamaLogger) Warn(format string, v ...interface{})  { n.l.Warn(format, v...) }
func (n nakamaLogger) Error(format string, v ...interface{}) { n.l.Error(format, v...) }
