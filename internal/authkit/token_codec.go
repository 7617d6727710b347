package authkit

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the payload embedded in the session token.
type SessionClaims struct {
	UserID      string `json:"userId,omitempty"`
	GitHubToken string `json:"gitHubToken,omitempty"`
	jwt.RegisteredClaims
}

// IssueSessionToken creates a signed HS256 session token for the supplied claims.
func IssueSessionToken(clock Clock, userID string, gitHubToken string, issuer string, signingKey []byte, ttl time.Duration) (string, time.Time, error) {
	if clock == nil {
		clock = systemClock{}
	}
	issuedAt := clock.Now().UTC()
	expiresAt := issuedAt.Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		UserID:      userID,
		GitHubToken: gitHubToken,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt.Add(-30 * time.Second)),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("jwt.sign: %w", err)
	}
	return signed, expiresAt, nil
}

// VerifySessionToken parses and validates a session token string.
//
// Absent, malformed, expired, and tampered tokens all fail with
// ErrTokenInvalid; callers that need to distinguish "no token" from
// "bad token" must check for absence before calling.
func VerifySessionToken(clock Clock, tokenString string, issuer string, signingKey []byte) (*SessionClaims, error) {
	if clock == nil {
		clock = systemClock{}
	}
	if strings.TrimSpace(tokenString) == "" {
		return nil, fmt.Errorf("jwt.verify: %w", ErrTokenInvalid)
	}
	parsedToken, parseErr := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(parsed *jwt.Token) (interface{}, error) {
		return signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(func() time.Time {
		return clock.Now()
	}))
	if parseErr != nil || parsedToken == nil || !parsedToken.Valid {
		return nil, fmt.Errorf("jwt.verify: %w", ErrTokenInvalid)
	}
	claims, ok := parsedToken.Claims.(*SessionClaims)
	if !ok || claims.Issuer != issuer {
		return nil, fmt.Errorf("jwt.verify: %w", ErrTokenInvalid)
	}
	return claims, nil
}
