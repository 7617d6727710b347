package authkit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"
)

func TestRequireSessionInjectsUser(t *testing.T) {
	gin.SetMode(gin.TestMode)

	clock := fixedClock{timestamp: time.Unix(1700000000, 0).UTC()}
	config := newTestServerConfig()
	store := NewMemoryUserStore()
	manager, managerErr := NewSessionManager(config, &fakeExchanger{}, store, clock, zaptest.NewLogger(t), NewCounterMetrics())
	if managerErr != nil {
		t.Fatalf("failed to build manager: %v", managerErr)
	}

	user, upsertErr := store.UpsertUser(context.Background(), "gh1")
	if upsertErr != nil {
		t.Fatalf("unexpected error: %v", upsertErr)
	}
	token, _, issueErr := IssueSessionToken(clock, user.ID, "tok", config.TokenIssuer, config.TokenSigningKey, time.Hour)
	if issueErr != nil {
		t.Fatalf("unexpected error: %v", issueErr)
	}

	router := gin.New()
	router.Use(RequireSession(config, manager))
	router.GET("/protected", func(contextGin *gin.Context) {
		value, found := contextGin.Get(ContextUserKey)
		if !found {
			contextGin.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		resolved, ok := value.(*User)
		if !ok || resolved.ID != user.ID {
			contextGin.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		contextGin.Status(http.StatusNoContent)
	})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/protected", nil)
	request.AddCookie(&http.Cookie{Name: config.SessionCookieName, Value: token})
	router.ServeHTTP(recorder, request)
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", recorder.Code)
	}

	missing := httptest.NewRecorder()
	router.ServeHTTP(missing, httptest.NewRequest(http.MethodGet, "/protected", nil))
	if missing.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without cookie, got %d", missing.Code)
	}

	garbage := httptest.NewRecorder()
	garbageRequest := httptest.NewRequest(http.MethodGet, "/protected", nil)
	garbageRequest.AddCookie(&http.Cookie{Name: config.SessionCookieName, Value: "bad_token"})
	router.ServeHTTP(garbage, garbageRequest)
	if garbage.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", garbage.Code)
	}
}
