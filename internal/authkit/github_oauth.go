package authkit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultGitHubTokenURL = "https://github.com/login/oauth/access_token"
	defaultGitHubUserURL  = "https://api.github.com/user"

	defaultExchangeTimeout = 10 * time.Second
)

// OAuthExchanger performs the two provider calls of the sign-in flow.
//
// ExchangeCode and FetchIdentity are always invoked in sequence; the
// identity lookup only runs with a token obtained from a successful
// exchange. Authorization codes are single-use, so neither call may be
// retried.
type OAuthExchanger interface {
	ExchangeCode(ctx context.Context, code string) (accessToken string, err error)
	FetchIdentity(ctx context.Context, accessToken string) (gitHubUserID string, err error)
}

// GitHubExchangerConfig configures the GitHub OAuth web flow client.
type GitHubExchangerConfig struct {
	ClientID     string
	ClientSecret string

	// TokenURL and UserURL override the GitHub endpoints for tests.
	TokenURL string
	UserURL  string

	HTTPClient *http.Client
	Timeout    time.Duration
}

// GitHubExchanger exchanges authorization codes against the GitHub web flow.
type GitHubExchanger struct {
	config GitHubExchangerConfig
	client *http.Client
}

// NewGitHubExchanger constructs a GitHubExchanger with endpoint defaults.
func NewGitHubExchanger(config GitHubExchangerConfig) *GitHubExchanger {
	if config.TokenURL == "" {
		config.TokenURL = defaultGitHubTokenURL
	}
	if config.UserURL == "" {
		config.UserURL = defaultGitHubUserURL
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultExchangeTimeout
	}
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}
	return &GitHubExchanger{config: config, client: client}
}

type gitHubTokenResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	Scope            string `json:"scope"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type gitHubUserResponse struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
}

// ExchangeCode trades an authorization code for a GitHub access token.
func (exchanger *GitHubExchanger) ExchangeCode(ctx context.Context, code string) (string, error) {
	form := url.Values{
		"client_id":     {exchanger.config.ClientID},
		"client_secret": {exchanger.config.ClientSecret},
		"code":          {code},
	}

	request, requestErr := http.NewRequestWithContext(ctx, http.MethodPost, exchanger.config.TokenURL, strings.NewReader(form.Encode()))
	if requestErr != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrCodeExchange, requestErr)
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	request.Header.Set("Accept", "application/json")

	response, doErr := exchanger.client.Do(request)
	if doErr != nil {
		return "", fmt.Errorf("%w: %v", ErrCodeExchange, doErr)
	}
	defer func() { _ = response.Body.Close() }()

	body, readErr := io.ReadAll(response.Body)
	if readErr != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrCodeExchange, readErr)
	}
	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrCodeExchange, response.StatusCode)
	}

	var tokenResponse gitHubTokenResponse
	if unmarshalErr := json.Unmarshal(body, &tokenResponse); unmarshalErr != nil {
		return "", fmt.Errorf("%w: parse response: %v", ErrCodeExchange, unmarshalErr)
	}
	if tokenResponse.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrCodeExchange, tokenResponse.Error)
	}
	if tokenResponse.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrCodeExchange)
	}
	return tokenResponse.AccessToken, nil
}

// FetchIdentity resolves the GitHub user id behind an access token.
func (exchanger *GitHubExchanger) FetchIdentity(ctx context.Context, accessToken string) (string, error) {
	request, requestErr := http.NewRequestWithContext(ctx, http.MethodGet, exchanger.config.UserURL, nil)
	if requestErr != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrIdentityFetch, requestErr)
	}
	request.Header.Set("Authorization", "Bearer "+accessToken)
	request.Header.Set("Accept", "application/vnd.github+json")

	response, doErr := exchanger.client.Do(request)
	if doErr != nil {
		return "", fmt.Errorf("%w: %v", ErrIdentityFetch, doErr)
	}
	defer func() { _ = response.Body.Close() }()

	body, readErr := io.ReadAll(response.Body)
	if readErr != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrIdentityFetch, readErr)
	}
	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrIdentityFetch, response.StatusCode)
	}

	var userResponse gitHubUserResponse
	if unmarshalErr := json.Unmarshal(body, &userResponse); unmarshalErr != nil {
		return "", fmt.Errorf("%w: parse response: %v", ErrIdentityFetch, unmarshalErr)
	}
	if userResponse.ID == 0 {
		return "", fmt.Errorf("%w: missing user id", ErrIdentityFetch)
	}
	return strconv.FormatInt(userResponse.ID, 10), nil
}
