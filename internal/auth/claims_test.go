package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-at-least-32-chars!"

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken("dashboard", RoleOperator, testSecret, 15*time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if token == "" {
		t.Fatal("GenerateToken() returned empty token")
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "dashboard" {
		t.Errorf("Subject = %q, want dashboard", claims.Subject)
	}
	if claims.Role != RoleOperator {
		t.Errorf("Role = %q, want operator", claims.Role)
	}
	if claims.ID == "" {
		t.Error("JTI (ID) should not be empty")
	}
	if claims.ExpiresAt.Time.Before(time.Now()) {
		t.Error("newly generated token should not be expired")
	}
}

func TestGenerateToken_DefaultTTL(t *testing.T) {
	token, err := GenerateToken("cli", RoleViewer, testSecret, 0)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}

	diff := claims.ExpiresAt.Time.Sub(time.Now().Add(DefaultTTL))
	if diff < -time.Minute || diff > time.Minute {
		t.Errorf("default TTL off by %v", diff)
	}
}

func TestGenerateToken_Rejects(t *testing.T) {
	if _, err := GenerateToken("  ", RoleAdmin, testSecret, time.Minute); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("empty client error = %v", err)
	}
	if _, err := GenerateToken("cli", "root", testSecret, time.Minute); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("bad role error = %v", err)
	}
}

func TestParseToken_Invalid(t *testing.T) {
	valid, err := GenerateToken("cli", RoleAdmin, testSecret, time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	expired := signClaims(t, CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "cli",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
		Role: RoleAdmin,
	})
	noExpiry := signClaims(t, CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer, Subject: "cli"},
		Role:             RoleAdmin,
	})
	wrongIssuer := signClaims(t, CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			Subject:   "cli",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
		Role: RoleAdmin,
	})
	badRole := signClaims(t, CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "cli",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
		Role: "owner",
	})
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "cli"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name, token, secret string
	}{
		{"empty", "", testSecret},
		{"garbage", "not-a-valid-jwt", testSecret},
		{"two segments", "abc.def", testSecret},
		{"wrong secret", valid, "another-secret-key-of-32-chars!!"},
		{"expired", expired, testSecret},
		{"no expiry", noExpiry, testSecret},
		{"wrong issuer", wrongIssuer, testSecret},
		{"unknown role", badRole, testSecret},
		{"alg none", none, testSecret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.token, tt.secret); !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("ParseToken() error = %v, want ErrTokenInvalid", err)
			}
		})
	}
}

func signClaims(t *testing.T, c CustomClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	return s
}
