package authkit

import "errors"

var (
	// ErrTokenInvalid indicates the session token is absent, malformed, expired, or tampered.
	ErrTokenInvalid = errors.New("session.token_invalid")
	// ErrNotSignedIn indicates no authenticated session could be resolved for the request.
	ErrNotSignedIn = errors.New("session.not_signed_in")
	// ErrCodeExchange indicates the provider rejected the authorization code exchange.
	ErrCodeExchange = errors.New("oauth.code_exchange_failed")
	// ErrIdentityFetch indicates the provider identity lookup failed after a successful exchange.
	ErrIdentityFetch = errors.New("oauth.identity_fetch_failed")
	// ErrUserNotFound indicates no user record matched the requested identifier.
	ErrUserNotFound = errors.New("user_store.not_found")
)
