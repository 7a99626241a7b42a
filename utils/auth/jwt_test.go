package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func mint(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestValidateTokenAcceptsValid(t *testing.T) {
	m := NewJWTManager("secret", "issuer")

	token := mint(t, "secret", jwt.MapClaims{
		"sub": "user-1",
		"iss": "issuer",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", claims.UserID)
	}
}

func TestValidateTokenPrefersUserIDClaim(t *testing.T) {
	m := NewJWTManager("secret", "")

	token := mint(t, "secret", jwt.MapClaims{
		"userId": "user-7",
		"exp":    time.Now().Add(time.Hour).Unix(),
	})

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != "user-7" {
		t.Errorf("UserID = %q, want user-7", claims.UserID)
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	m := NewJWTManager("secret", "")

	token := mint(t, "other-secret", jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	if _, err := m.ValidateToken(token); err != ErrInvalidToken {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	m := NewJWTManager("secret", "")

	token := mint(t, "secret", jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	if _, err := m.ValidateToken(token); err != ErrExpiredToken {
		t.Errorf("err = %v, want ErrExpiredToken", err)
	}
}

func TestValidateTokenRejectsWrongIssuer(t *testing.T) {
	m := NewJWTManager("secret", "expected-issuer")

	token := mint(t, "secret", jwt.MapClaims{
		"sub": "user-1",
		"iss": "other-issuer",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	if _, err := m.ValidateToken(token); err == nil {
		t.Error("wrong issuer should be rejected")
	}
}

func TestValidateTokenRejectsMissingSubject(t *testing.T) {
	m := NewJWTManager("secret", "")

	token := mint(t, "secret", jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	if _, err := m.ValidateToken(token); err != ErrInvalidToken {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}
