package authkit

import (
	"net/http"
	"time"
)

// ServerConfig configures the GitHub OAuth app, token signing, and cookies.
type ServerConfig struct {
	GitHubClientID     string
	GitHubClientSecret string
	TokenSigningKey    []byte
	TokenIssuer        string
	CookieDomain       string
	SessionCookieName  string
	SessionTTL         time.Duration
	StateTTL           time.Duration
	ExchangeTimeout    time.Duration
	SameSiteMode       http.SameSite
	AllowInsecureHTTP  bool
}
