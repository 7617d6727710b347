package authkit

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type fixedClock struct {
	timestamp time.Time
}

func (clock fixedClock) Now() time.Time {
	return clock.timestamp
}

func TestIssueAndVerifySessionToken(t *testing.T) {
	t.Parallel()

	reference := time.Unix(1700000000, 0).UTC()
	clock := fixedClock{timestamp: reference}
	signingKey := []byte("signing-key")

	token, expiresAt, err := IssueSessionToken(clock, "user-123", "gh-access-token", "issuer", signingKey, 2*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token == "" {
		t.Fatalf("expected signed token")
	}
	if !expiresAt.Equal(reference.Add(2 * time.Hour)) {
		t.Fatalf("expected expiry %v, got %v", reference.Add(2*time.Hour), expiresAt)
	}

	claims, verifyErr := VerifySessionToken(clock, token, "issuer", signingKey)
	if verifyErr != nil {
		t.Fatalf("verify error: %v", verifyErr)
	}
	if claims.UserID != "user-123" {
		t.Fatalf("expected user-123, got %s", claims.UserID)
	}
	if claims.GitHubToken != "gh-access-token" {
		t.Fatalf("expected provider token to round-trip, got %s", claims.GitHubToken)
	}
}

func TestVerifySessionTokenAcceptsEmptyClaims(t *testing.T) {
	t.Parallel()

	reference := time.Unix(1700000000, 0).UTC()
	clock := fixedClock{timestamp: reference}
	signingKey := []byte("signing-key")

	token, _, err := IssueSessionToken(clock, "", "", "issuer", signingKey, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	claims, verifyErr := VerifySessionToken(clock, token, "issuer", signingKey)
	if verifyErr != nil {
		t.Fatalf("verify error: %v", verifyErr)
	}
	if claims.UserID != "" || claims.GitHubToken != "" {
		t.Fatalf("expected empty payload, got %+v", claims)
	}
}

func TestVerifySessionTokenRejectsGarbage(t *testing.T) {
	t.Parallel()

	clock := fixedClock{timestamp: time.Unix(1700000000, 0).UTC()}
	for _, tokenString := range []string{"", "   ", "bad_token"} {
		_, err := VerifySessionToken(clock, tokenString, "issuer", []byte("signing-key"))
		if !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("expected ErrTokenInvalid for %q, got %v", tokenString, err)
		}
	}
}

func TestVerifySessionTokenRejectsWrongKey(t *testing.T) {
	t.Parallel()

	clock := fixedClock{timestamp: time.Unix(1700000000, 0).UTC()}
	token, _, err := IssueSessionToken(clock, "user-123", "", "issuer", []byte("signing-key"), time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, verifyErr := VerifySessionToken(clock, token, "issuer", []byte("other-key"))
	if !errors.Is(verifyErr, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", verifyErr)
	}
}

func TestVerifySessionTokenRejectsTampering(t *testing.T) {
	t.Parallel()

	clock := fixedClock{timestamp: time.Unix(1700000000, 0).UTC()}
	token, _, err := IssueSessionToken(clock, "user-123", "", "issuer", []byte("signing-key"), time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tampered := token[:len(token)-2] + "xx"
	_, verifyErr := VerifySessionToken(clock, tampered, "issuer", []byte("signing-key"))
	if !errors.Is(verifyErr, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", verifyErr)
	}
}

func TestVerifySessionTokenRejectsWrongIssuer(t *testing.T) {
	t.Parallel()

	clock := fixedClock{timestamp: time.Unix(1700000000, 0).UTC()}
	token, _, err := IssueSessionToken(clock, "user-123", "", "other-issuer", []byte("signing-key"), time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, verifyErr := VerifySessionToken(clock, token, "issuer", []byte("signing-key"))
	if !errors.Is(verifyErr, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", verifyErr)
	}
}

func TestVerifySessionTokenRejectsExpired(t *testing.T) {
	t.Parallel()

	issuedAt := time.Unix(1700000000, 0).UTC()
	token, _, err := IssueSessionToken(fixedClock{timestamp: issuedAt}, "user-123", "", "issuer", []byte("signing-key"), time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	later := fixedClock{timestamp: issuedAt.Add(2 * time.Minute)}
	_, verifyErr := VerifySessionToken(later, token, "issuer", []byte("signing-key"))
	if !errors.Is(verifyErr, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", verifyErr)
	}
}

func TestVerifySessionTokenRejectsWrongAlgorithm(t *testing.T) {
	t.Parallel()

	clock := fixedClock{timestamp: time.Unix(1700000000, 0).UTC()}
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, SessionClaims{
		UserID: "user-123",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "issuer",
		},
	})
	tokenString, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, verifyErr := VerifySessionToken(clock, tokenString, "issuer", []byte("signing-key"))
	if !errors.Is(verifyErr, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", verifyErr)
	}
}
