package authkit

import (
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

const githubAuthorizeURL = "https://github.com/login/oauth/authorize"

// MountAuthRoutes registers /auth/github/start, /auth/github, /auth/logout,
// /session, and /me.
func MountAuthRoutes(router gin.IRouter, configuration ServerConfig, manager *SessionManager, states StateStore, signInLimiter *SignInRateLimiter) {
	signInHandlers := make([]gin.HandlerFunc, 0, 2)
	if signInLimiter != nil {
		signInHandlers = append(signInHandlers, signInLimiter.Middleware())
	}

	router.GET("/auth/github/start", func(contextGin *gin.Context) {
		state, stateErr := states.Issue(contextGin)
		if stateErr != nil {
			contextGin.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		params := url.Values{
			"client_id": {configuration.GitHubClientID},
			"state":     {state},
		}
		contextGin.JSON(http.StatusOK, gin.H{
			"authorize_url": githubAuthorizeURL + "?" + params.Encode(),
			"state":         state,
		})
	})

	signInHandlers = append(signInHandlers, func(contextGin *gin.Context) {
		var inbound struct {
			Code  string `json:"code"`
			State string `json:"state"`
		}
		if err := contextGin.BindJSON(&inbound); err != nil || strings.TrimSpace(inbound.Code) == "" {
			contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_json"})
			return
		}

		if !configuration.AllowInsecureHTTP && !isHTTPS(contextGin.Request) {
			contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "https_required"})
			return
		}

		// State is only enforced when the client started the flow here.
		if strings.TrimSpace(inbound.State) != "" {
			if consumeErr := states.Consume(contextGin, inbound.State); consumeErr != nil {
				contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_state"})
				return
			}
		}

		cookies := NewGinSessionCookies(contextGin, configuration)
		token, signInErr := manager.SignIn(contextGin.Request.Context(), inbound.Code, cookies)
		if signInErr != nil {
			contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "sign_in_failed"})
			return
		}

		contextGin.JSON(http.StatusOK, gin.H{"token": token})
	})
	router.POST("/auth/github", signInHandlers...)

	router.POST("/auth/logout", func(contextGin *gin.Context) {
		cookies := NewGinSessionCookies(contextGin, configuration)
		signedOut := manager.SignOut(cookies)
		contextGin.JSON(http.StatusOK, gin.H{"signed_out": signedOut})
	})

	router.GET("/session", func(contextGin *gin.Context) {
		cookies := NewGinSessionCookies(contextGin, configuration)
		contextGin.JSON(http.StatusOK, gin.H{"signed_in": manager.IsSignedIn(cookies)})
	})

	router.GET("/me", func(contextGin *gin.Context) {
		cookies := NewGinSessionCookies(contextGin, configuration)
		user, userErr := manager.SignedInUser(contextGin.Request.Context(), cookies)
		if userErr != nil {
			contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not_signed_in"})
			return
		}
		contextGin.JSON(http.StatusOK, gin.H{
			"user_id":   user.ID,
			"github_id": user.GitHubID,
		})
	})
}

func isHTTPS(request *http.Request) bool {
	if request.TLS != nil {
		return true
	}
	scheme := request.Header.Get("X-Forwarded-Proto")
	if strings.EqualFold(scheme, "https") {
		return true
	}
	forwarded := request.Header.Get("Forwarded")
	if forwarded != "" && strings.Contains(strings.ToLower(forwarded), "proto=https") {
		return true
	}
	host, _, splitErr := net.SplitHostPort(request.Host)
	if splitErr == nil && host == "localhost" {
		return true
	}
	return false
}
