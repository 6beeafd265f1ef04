// Package oauth obtains access tokens from the NGW-style OAuth gateway used by
// both the speech-recognition and text-generation services. Each request is
// authenticated with Basic client credentials and a unique RqUID header.
package oauth

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

	"github.com/google/uuid"
	"github.com/openminutes/scribe/internal/errors"
	"github.com/openminutes/scribe/internal/httpclient"
)

// tokenSlack is subtracted from the reported expiry so a token is refreshed
// before it can expire mid-request.
const tokenSlack = 30 * time.Second

// defaultTTL is assumed when the gateway omits the expiry field.
const defaultTTL = 25 * time.Minute

// TokenSource fetches and caches a bearer token for one scope.
// Safe for concurrent use; pipeline invocations share one instance per service.
type TokenSource struct {
	tokenURL string
	scope    string
	clientID string
	secret   string

	httpClient *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewTokenSource creates a token source for the given gateway URL and scope.
func NewTokenSource(tokenURL, scope, clientID, secret string) *TokenSource {
	return &TokenSource{
		tokenURL:   tokenURL,
		scope:      scope,
		clientID:   clientID,
		secret:     secret,
		httpClient: httpclient.NewInstrumentedClient(30 * time.Second),
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"` // unix milliseconds
}

// Token returns a valid access token, fetching a fresh one when the cached
// token is missing or close to expiry.
func (t *TokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && time.Now().Before(t.expiresAt.Add(-tokenSlack)) {
		return t.token, nil
	}

	form := url.Values{"scope": {t.scope}}
	req, err := http.NewRequestWithContext(httpclient.WithProvider(ctx, "OAuth"),
		"POST", t.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.NewDownstreamError("failed to create token request", "OAUTH_REQUEST_ERROR", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("RqUID", uuid.New().String())
	req.SetBasicAuth(t.clientID, t.secret)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", errors.NewDownstreamError("failed to call token endpoint", "OAUTH_API_ERROR", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.NewDownstreamError("failed to read token response", "OAUTH_READ_ERROR", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", errors.NewDownstreamError(
			fmt.Sprintf("token endpoint error (status %d): %s", resp.StatusCode, string(body)),
			"OAUTH_API_HTTP_ERROR", nil)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", errors.NewDownstreamError("failed to parse token response", "OAUTH_PARSE_ERROR", err)
	}
	if tr.AccessToken == "" {
		return "", errors.NewDownstreamError("token endpoint returned no access_token", "OAUTH_EMPTY_TOKEN", nil)
	}

	t.token = tr.AccessToken
	if tr.ExpiresAt > 0 {
		t.expiresAt = time.UnixMilli(tr.ExpiresAt)
	} else {
		t.expiresAt = time.Now().Add(defaultTTL)
	}

	return t.token, nil
}

// Invalidate drops the cached token so the next call fetches a fresh one.
func (t *TokenSource) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.token = ""
	t.expiresAt = time.Time{}
}
