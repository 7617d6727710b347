package authkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ContextUserKey is the gin context key carrying the resolved user.
const ContextUserKey = "auth_user"

// ContextClaimsKey is the gin context key carrying the verified claims.
const ContextClaimsKey = "auth_claims"

// RequireSession resolves the session and rejects requests that are not
// authenticated, injecting the user and claims for downstream handlers.
func RequireSession(configuration ServerConfig, manager *SessionManager) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		cookies := NewGinSessionCookies(contextGin, configuration)
		session := manager.ResolveSession(contextGin.Request.Context(), cookies)
		if session.State != SessionStateAuthenticated || session.User == nil {
			contextGin.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		contextGin.Set(ContextUserKey, session.User)
		contextGin.Set(ContextClaimsKey, session.Claims)
		contextGin.Next()
	}
}
