package nakama

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

// JWTVerifier implements ports.Verifier over an HMAC-signed bearer token.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier constructs a verifier bound to the shared HMAC secret the
// external auth service signs tokens with.
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

// Verify parses token, checks its HMAC signature and expiry, and resolves
// the "uid"/"wallet" claims to a principal.
func (v *JWTVerifier) Verify(ctx context.Context, token string) (userID, walletAddress string, expiresAt time.Time, err error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return "", "", time.Time{}, fmt.Errorf("invalid token claims")
	}

	uid, ok := claims["uid"].(string)
	if !ok || uid == "" {
		return "", "", time.Time{}, fmt.Errorf("token claims missing uid")
	}
	wallet, _ := claims["wallet"].(string)

	if exp, ok := claims["exp"].(float64); ok {
		expiresAt = time.Unix(int64(exp), 0)
	}

	return uid, wallet, expiresAt, nil
}

// bearerToken extracts the credential carried in a Nakama match-join
// metadata map: "token" first, then an "authorization" header value (stripped
// of its "Bearer " prefix), then an "authToken" cookie-style fallback.
func bearerToken(metadata map[string]string) string {
	if v, ok := metadata["token"]; ok && v != "" {
		return v
	}
	if v, ok := metadata["authorization"]; ok && v != "" {
		return strings.TrimPrefix(v, "Bearer ")
	}
	if v, ok := metadata["authToken"]; ok && v != "" {
		return v
	}
	return ""
}
