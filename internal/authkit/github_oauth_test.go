package authkit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newExchangeServer(t *testing.T, tokenHandler http.HandlerFunc, userHandler http.HandlerFunc) *GitHubExchanger {
	t.Helper()
	mux := http.NewServeMux()
	if tokenHandler != nil {
		mux.HandleFunc("/login/oauth/access_token", tokenHandler)
	}
	if userHandler != nil {
		mux.HandleFunc("/user", userHandler)
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return NewGitHubExchanger(GitHubExchangerConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		TokenURL:     server.URL + "/login/oauth/access_token",
		UserURL:      server.URL + "/user",
		HTTPClient:   server.Client(),
	})
}

func TestExchangeCodeSuccess(t *testing.T) {
	t.Parallel()

	exchanger := newExchangeServer(t, func(writer http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", request.Method)
		}
		if parseErr := request.ParseForm(); parseErr != nil {
			t.Errorf("parse form: %v", parseErr)
		}
		if request.PostForm.Get("code") != "auth-code" {
			t.Errorf("expected code auth-code, got %s", request.PostForm.Get("code"))
		}
		if request.PostForm.Get("client_id") != "client-id" {
			t.Errorf("expected client id to be forwarded")
		}
		writer.Header().Set("Content-Type", "application/json")
		_, _ = writer.Write([]byte(`{"access_token":"gh-token","token_type":"bearer"}`))
	}, nil)

	token, err := exchanger.ExchangeCode(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "gh-token" {
		t.Fatalf("expected gh-token, got %s", token)
	}
}

func TestExchangeCodeNonSuccessStatus(t *testing.T) {
	t.Parallel()

	exchanger := newExchangeServer(t, func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusBadGateway)
	}, nil)

	_, err := exchanger.ExchangeCode(context.Background(), "auth-code")
	if !errors.Is(err, ErrCodeExchange) {
		t.Fatalf("expected ErrCodeExchange, got %v", err)
	}
}

func TestExchangeCodeProviderError(t *testing.T) {
	t.Parallel()

	// GitHub reports single-use code reuse with 200 and an error field.
	exchanger := newExchangeServer(t, func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		_, _ = writer.Write([]byte(`{"error":"bad_verification_code"}`))
	}, nil)

	_, err := exchanger.ExchangeCode(context.Background(), "reused-code")
	if !errors.Is(err, ErrCodeExchange) {
		t.Fatalf("expected ErrCodeExchange, got %v", err)
	}
}

func TestExchangeCodeEmptyAccessToken(t *testing.T) {
	t.Parallel()

	exchanger := newExchangeServer(t, func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		_, _ = writer.Write([]byte(`{"token_type":"bearer"}`))
	}, nil)

	_, err := exchanger.ExchangeCode(context.Background(), "auth-code")
	if !errors.Is(err, ErrCodeExchange) {
		t.Fatalf("expected ErrCodeExchange, got %v", err)
	}
}

func TestExchangeCodeUnreachableEndpoint(t *testing.T) {
	t.Parallel()

	exchanger := NewGitHubExchanger(GitHubExchangerConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		TokenURL:     "http://127.0.0.1:1/token",
		UserURL:      "http://127.0.0.1:1/user",
	})
	_, err := exchanger.ExchangeCode(context.Background(), "auth-code")
	if !errors.Is(err, ErrCodeExchange) {
		t.Fatalf("expected ErrCodeExchange, got %v", err)
	}
}

func TestFetchIdentitySuccess(t *testing.T) {
	t.Parallel()

	exchanger := newExchangeServer(t, nil, func(writer http.ResponseWriter, request *http.Request) {
		if authorization := request.Header.Get("Authorization"); authorization != "Bearer gh-token" {
			t.Errorf("expected bearer header, got %q", authorization)
		}
		writer.Header().Set("Content-Type", "application/json")
		_, _ = writer.Write([]byte(`{"id":583231,"login":"octocat"}`))
	})

	gitHubID, err := exchanger.FetchIdentity(context.Background(), "gh-token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gitHubID != "583231" {
		t.Fatalf("expected 583231, got %s", gitHubID)
	}
}

func TestFetchIdentityUnauthorized(t *testing.T) {
	t.Parallel()

	exchanger := newExchangeServer(t, nil, func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusUnauthorized)
	})

	_, err := exchanger.FetchIdentity(context.Background(), "stale-token")
	if !errors.Is(err, ErrIdentityFetch) {
		t.Fatalf("expected ErrIdentityFetch, got %v", err)
	}
}

func TestFetchIdentityMissingID(t *testing.T) {
	t.Parallel()

	exchanger := newExchangeServer(t, nil, func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		_, _ = writer.Write([]byte(`{"login":"octocat"}`))
	})

	_, err := exchanger.FetchIdentity(context.Background(), "gh-token")
	if !errors.Is(err, ErrIdentityFetch) {
		t.Fatalf("expected ErrIdentityFetch, got %v", err)
	}
}
