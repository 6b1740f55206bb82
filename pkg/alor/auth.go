package alor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// TokenSource exchanges a long-lived refresh token for short-lived access
// tokens and caches them until shortly before expiry.
type TokenSource struct {
	oauthURL     string
	refreshToken string
	clientID     string
	clientSecret string
	ttl          time.Duration
	httpClient   *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewTokenSource creates a token source against the given OAuth endpoint.
func NewTokenSource(oauthURL, refreshToken, clientID, clientSecret string, httpClient *http.Client) *TokenSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &TokenSource{
		oauthURL:     oauthURL,
		refreshToken: refreshToken,
		clientID:     clientID,
		clientSecret: clientSecret,
		ttl:          25 * time.Minute,
		httpClient:   httpClient,
	}
}

// Token returns a cached access token, refreshing it when stale.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token != "" && time.Now().Before(ts.expiresAt) {
		return ts.token, nil
	}

	form := url.Values{}
	form.Set("refresh_token", ts.refreshToken)
	form.Set("client_id", ts.clientID)
	form.Set("client_secret", ts.clientSecret)
	form.Set("grant_type", "refresh_token")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.oauthURL+"/refresh", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("refresh access token: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", newAPIError("refresh token", resp.StatusCode, string(body))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("token response without access_token")
	}

	ts.token = payload.AccessToken
	ts.expiresAt = time.Now().Add(ts.ttl)
	return ts.token, nil
}

// Invalidate drops the cached token so the next call refreshes.
func (ts *TokenSource) Invalidate() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.token = ""
}
