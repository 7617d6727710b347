package authkit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// SessionState classifies the outcome of resolving a request's session.
type SessionState int

const (
	// SessionStateNone means the request carried no session token.
	SessionStateNone SessionState = iota
	// SessionStateInvalid means a token was present but could not be
	// verified, or referenced a user that no longer exists.
	SessionStateInvalid
	// SessionStateAuthenticated means the token verified and its user resolved.
	SessionStateAuthenticated
)

// Session is the tagged result of query-time resolution. User is only
// populated when State is SessionStateAuthenticated.
type Session struct {
	State  SessionState
	User   *User
	Claims *SessionClaims
}

// SessionManager orchestrates sign-in, sign-out, and query-time session
// resolution. It is the only component talking to the provider exchanger
// and the user store; the token codec stays pure underneath it.
type SessionManager struct {
	configuration ServerConfig
	exchanger     OAuthExchanger
	users         UserStore
	clock         Clock
	logger        *zap.Logger
	metrics       MetricsRecorder
}

// NewSessionManager constructs a SessionManager. Exchanger and user store
// are required; nil clock, logger, and metrics fall back to defaults.
func NewSessionManager(configuration ServerConfig, exchanger OAuthExchanger, users UserStore, clock Clock, logger *zap.Logger, metrics MetricsRecorder) (*SessionManager, error) {
	if exchanger == nil {
		return nil, errors.New("session_manager.new: exchanger is required")
	}
	if users == nil {
		return nil, errors.New("session_manager.new: user store is required")
	}
	if clock == nil {
		clock = NewSystemClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewCounterMetrics()
	}
	return &SessionManager{
		configuration: configuration,
		exchanger:     exchanger,
		users:         users,
		clock:         clock,
		logger:        logger,
		metrics:       metrics,
	}, nil
}

// VerifyCookie classifies the raw cookie state without touching the user
// store: no cookie (or a blank value) is distinct from a bad token.
func (manager *SessionManager) VerifyCookie(cookies SessionCookies) (*SessionClaims, SessionState) {
	value, present := cookies.Read()
	if !present || strings.TrimSpace(value) == "" {
		return nil, SessionStateNone
	}
	claims, verifyErr := VerifySessionToken(manager.clock, value, manager.configuration.TokenIssuer, manager.configuration.TokenSigningKey)
	if verifyErr != nil {
		return nil, SessionStateInvalid
	}
	return claims, SessionStateAuthenticated
}

// IsSignedIn reports whether the request carries a valid session token.
// Auth failures collapse to false and never surface as errors.
func (manager *SessionManager) IsSignedIn(cookies SessionCookies) bool {
	_, state := manager.VerifyCookie(cookies)
	return state == SessionStateAuthenticated
}

// ResolveSession runs full query-time resolution: cookie read, token
// verification, then user lookup. A verified token whose user is gone
// resolves to SessionStateInvalid.
func (manager *SessionManager) ResolveSession(ctx context.Context, cookies SessionCookies) Session {
	claims, state := manager.VerifyCookie(cookies)
	if state != SessionStateAuthenticated {
		return Session{State: state}
	}

	user, lookupErr := manager.users.GetUser(ctx, claims.UserID)
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrUserNotFound) {
			manager.logger.Error("user lookup failed",
				zap.String("code", "session.resolve.lookup_error"),
				zap.Error(lookupErr))
		} else {
			manager.logger.Warn("verified token references missing user",
				zap.String("code", "session.resolve.user_missing"),
				zap.String("user_id", claims.UserID))
		}
		return Session{State: SessionStateInvalid, Claims: claims}
	}
	return Session{State: SessionStateAuthenticated, User: user, Claims: claims}
}

// SignedInUser returns the resolved user, or ErrNotSignedIn when no
// authenticated session exists. It never returns an empty user.
func (manager *SessionManager) SignedInUser(ctx context.Context, cookies SessionCookies) (User, error) {
	session := manager.ResolveSession(ctx, cookies)
	if session.State != SessionStateAuthenticated || session.User == nil {
		return User{}, fmt.Errorf("session.signed_in_user: %w", ErrNotSignedIn)
	}
	return *session.User, nil
}

// SignIn runs the full sign-in flow: code exchange, identity fetch, user
// upsert, token issuance, cookie write. Every step must succeed before
// any token exists; a failure at any point aborts with nothing written.
func (manager *SessionManager) SignIn(ctx context.Context, code string, cookies SessionCookies) (string, error) {
	accessToken, exchangeErr := manager.exchanger.ExchangeCode(ctx, code)
	if exchangeErr != nil {
		manager.metrics.Increment("signin.exchange_failed")
		manager.logger.Warn("authorization code exchange failed",
			zap.String("code", "session.signin.exchange_failed"),
			zap.Error(exchangeErr))
		return "", exchangeErr
	}

	gitHubID, identityErr := manager.exchanger.FetchIdentity(ctx, accessToken)
	if identityErr != nil {
		manager.metrics.Increment("signin.identity_failed")
		manager.logger.Warn("provider identity fetch failed",
			zap.String("code", "session.signin.identity_failed"),
			zap.Error(identityErr))
		return "", identityErr
	}

	user, upsertErr := manager.users.UpsertUser(ctx, gitHubID)
	if upsertErr != nil {
		manager.metrics.Increment("signin.upsert_failed")
		manager.logger.Error("user upsert failed",
			zap.String("code", "session.signin.upsert_failed"),
			zap.Error(upsertErr))
		return "", upsertErr
	}

	token, expiresAt, issueErr := IssueSessionToken(manager.clock, user.ID, accessToken, manager.configuration.TokenIssuer, manager.configuration.TokenSigningKey, manager.configuration.SessionTTL)
	if issueErr != nil {
		manager.metrics.Increment("signin.issue_failed")
		return "", issueErr
	}

	cookies.Write(token, expiresAt)
	manager.metrics.Increment("signin.success")
	manager.logger.Info("user signed in",
		zap.String("code", "session.signin.success"),
		zap.String("user_id", user.ID))
	return token, nil
}

// SignOut clears the session cookie. It always succeeds and is idempotent
// regardless of prior session state.
func (manager *SessionManager) SignOut(cookies SessionCookies) bool {
	cookies.Clear()
	manager.metrics.Increment("signout")
	return true
}
