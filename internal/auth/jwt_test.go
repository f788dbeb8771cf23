package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/friendsincode/muninn_media/internal/models"
)

func sign(t *testing.T, secret []byte, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestParseValidToken(t *testing.T) {
	secret := []byte("secret")
	token := sign(t, secret, Claims{
		UserID: "user-1",
		Role:   "manager",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	identity, err := Parse(secret, token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if identity.UserID != "user-1" || identity.Role != models.RoleManager {
		t.Fatalf("identity = %+v", identity)
	}
}

func TestParseFallsBackToSubject(t *testing.T) {
	secret := []byte("secret")
	token := sign(t, secret, Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "subject-user",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	identity, err := Parse(secret, token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if identity.UserID != "subject-user" {
		t.Fatalf("user id = %q", identity.UserID)
	}
}

func TestParseRejectsBadTokens(t *testing.T) {
	secret := []byte("secret")

	if _, err := Parse(secret, "not-a-token"); err == nil {
		t.Fatal("expected error for garbage token")
	}

	expired := sign(t, secret, Claims{
		UserID: "user-1",
		Role:   "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	if _, err := Parse(secret, expired); err == nil {
		t.Fatal("expected error for expired token")
	}

	wrongKey := sign(t, []byte("other"), Claims{
		UserID: "user-1",
		Role:   "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	if _, err := Parse(secret, wrongKey); err == nil {
		t.Fatal("expected error for wrong signing key")
	}
}
