package authkit

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// SessionCookies is the transport capability the session manager uses to
// read and write the session cookie. Implementations own the cookie
// mechanics; the manager owns the value.
type SessionCookies interface {
	// Read returns the raw cookie value and whether a cookie was present.
	Read() (value string, present bool)
	// Write sets the session cookie to the supplied token.
	Write(token string, expiresAt time.Time)
	// Clear instructs the client to drop the session cookie.
	Clear()
}

// GinSessionCookies adapts a gin request/response pair to SessionCookies.
type GinSessionCookies struct {
	contextGin    *gin.Context
	configuration ServerConfig
}

// NewGinSessionCookies wraps the request in scope of the gin context.
func NewGinSessionCookies(contextGin *gin.Context, configuration ServerConfig) *GinSessionCookies {
	return &GinSessionCookies{contextGin: contextGin, configuration: configuration}
}

// Read returns the session cookie value if the request carried one.
func (cookies *GinSessionCookies) Read() (string, bool) {
	cookie, cookieErr := cookies.contextGin.Request.Cookie(cookies.configuration.SessionCookieName)
	if cookieErr != nil || cookie == nil {
		return "", false
	}
	return cookie.Value, true
}

// Write sets the session cookie on the response.
func (cookies *GinSessionCookies) Write(token string, expiresAt time.Time) {
	http.SetCookie(cookies.contextGin.Writer, &http.Cookie{
		Name:     cookies.configuration.SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   cookies.configuration.CookieDomain,
		Expires:  expiresAt,
		Secure:   true,
		HttpOnly: true,
		SameSite: cookies.configuration.SameSiteMode,
	})
}

// Clear expires the session cookie on the response.
func (cookies *GinSessionCookies) Clear() {
	http.SetCookie(cookies.contextGin.Writer, &http.Cookie{
		Name:     cookies.configuration.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   cookies.configuration.CookieDomain,
		MaxAge:   -1,
		Secure:   true,
		HttpOnly: true,
		SameSite: cookies.configuration.SameSiteMode,
	})
}
