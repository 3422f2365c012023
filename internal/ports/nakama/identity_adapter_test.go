package nakama

import (
	"context"
	"testing"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestJWTVerifierAcceptsValidToken(t *testing.T) {
	v := NewJWTVerifier("s3cret")
	token := signToken(t, "s3cret", jwt.MapClaims{
		"uid":    "user-1",
		"wallet": "0xabc",
		"exp":    float64(time.Now().Add(time.Hour).Unix()),
	})

	userID, wallet, _, err := v.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if userID != "user-1" || wallet != "0xabc" {
		t.Fatalf("got userID=%q wallet=%q", userID, wallet)
	}
}

func TestJWTVerifierRejectsWrongSecret(t *testing.T) {
	v := NewJWTVerifier("s3cret")
	token := signToken(t, "wrong-secret", jwt.MapClaims{"uid": "user-1"})

	if _, _, _, err := v.Verify(context.Background(), token); err == nil {
		t.Fatal("expected error for token signed with the wrong secret")
	}
}

func TestJWTVerifierRejectsMissingUID(t *testing.T) {
	v := NewJWTVerifier("s3cret")
	token := signToken(t, "s3cret", jwt.MapClaims{"wallet": "0xabc"})

	if _, _, _, err := v.Verify(context.Background(), token); err == nil {
		t.Fatal("expected error for token missing uid claim")
	}
}

func TestBearerTokenPrefersTokenKey(t *testing.T) {
	got := bearerToken(map[string]string{
		"token":         "a",
		"authToken":     "b",
		"authorization": "c",
	})
	if got != "a" {
		t.Fatalf("got %q, want %q", got, "a")
	}
}

func TestBearerTokenStripsBearerPrefixFromAuthorization(t *testing.T) {
	got := bearerToken(map[string]string{"authorization": "Bearer c"})
	if got != "c" {
		t.Fatalf("got %q, want %q", got, "c")
	}
}

func TestBearerTokenAuthorizationBeatsAuthToken(t *testing.T) {
	got := bearerToken(map[string]string{
		"authorization": "Bearer c",
		"authToken":     "b",
	})
	if got != "c" {
		t.Fatalf("got %q, want %q", got, "c")
	}
}

func TestBearerTokenFallsBackToAuthToken(t *testing.T) {
	got := bearerToken(map[string]string{"authToken": "b"})
	if got != "b" {
		t.Fatalf("got %q, want %q", got, "b")
	}
}

func TestBearerTokenEmptyWhenAbsent(t *testing.T) {
	if got := bearerToken(map[string]string{}); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}
