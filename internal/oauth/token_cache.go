// Package oauth implements the service-account JWT-bearer grant with an
// in-memory token cache.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/kursadbilgin/notify-outbox/internal/observability"
)

const (
	jwtBearerGrantType   = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	assertionLifetime    = time.Hour
	refreshSkew          = 60 * time.Second
	defaultExchangeLimit = 15 * time.Second
)

var (
	ErrMissingAccessToken = errors.New("missing_access_token")
	ErrInvalidIdentity    = errors.New("invalid service account identity")
)

// ExchangeError is a non-2xx reply from the token endpoint.
type ExchangeError struct {
	StatusCode int
	Body       string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("token endpoint returned status %d: %s", e.StatusCode, e.Body)
}

// Identity is everything needed to mint an assertion. The cache is keyed by
// (ClientEmail, TokenURI, Scope).
type Identity struct {
	ClientEmail string
	PrivateKey  string
	TokenURI    string
	Scope       string
}

type cacheKey struct {
	clientEmail string
	tokenURI    string
	scope       string
}

type cachedToken struct {
	accessToken string
	expiresAt   time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// TokenCache exchanges signed assertions for bearer tokens and keeps them in
// memory until they are within refreshSkew of expiry.
type TokenCache struct {
	client  *resty.Client
	now     func() time.Time
	metrics *observability.Metrics

	mu      sync.Mutex
	entries map[cacheKey]cachedToken
}

func NewTokenCache(client *resty.Client) *TokenCache {
	if client == nil {
		client = resty.New()
		client.SetTimeout(defaultExchangeLimit)
	}
	client.SetRetryCount(0)

	return &TokenCache{
		client:  client,
		now:     time.Now,
		entries: make(map[cacheKey]cachedToken),
	}
}

func (c *TokenCache) SetMetrics(metrics *observability.Metrics) {
	if c == nil {
		return
	}
	c.metrics = metrics
}

// Token returns a bearer token for id, reusing a cached one when it has more
// than a minute of validity left.
func (c *TokenCache) Token(ctx context.Context, id Identity) (string, error) {
	if c == nil || c.client == nil {
		return "", fmt.Errorf("token cache is not initialized")
	}
	if strings.TrimSpace(id.ClientEmail) == "" || strings.TrimSpace(id.PrivateKey) == "" || strings.TrimSpace(id.TokenURI) == "" {
		return "", ErrInvalidIdentity
	}

	key := cacheKey{clientEmail: id.ClientEmail, tokenURI: id.TokenURI, scope: id.Scope}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if entry, ok := c.entries[key]; ok && entry.expiresAt.Sub(now) > refreshSkew {
		return entry.accessToken, nil
	}

	token, err := c.exchange(ctx, id, now)
	if err != nil {
		c.metrics.IncTokenRefresh("error")
		return "", err
	}
	c.metrics.IncTokenRefresh("ok")

	c.entries[key] = token
	return token.accessToken, nil
}

// Invalidate drops the cached token for id, e.g. after the provider rejected it.
func (c *TokenCache) Invalidate(id Identity) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.entries, cacheKey{clientEmail: id.ClientEmail, tokenURI: id.TokenURI, scope: id.Scope})
	c.mu.Unlock()
}

func (c *TokenCache) exchange(ctx context.Context, id Identity, now time.Time) (cachedToken, error) {
	assertion, err := SignAssertion(id, now)
	if err != nil {
		return cachedToken{}, err
	}

	response, err := c.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type": jwtBearerGrantType,
			"assertion":  assertion,
		}).
		Post(id.TokenURI)
	if err != nil {
		return cachedToken{}, fmt.Errorf("token exchange request failed: %w", err)
	}

	statusCode := response.StatusCode()
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return cachedToken{}, &ExchangeError{
			StatusCode: statusCode,
			Body:       strings.TrimSpace(response.String()),
		}
	}

	var body tokenResponse
	if err := json.Unmarshal(response.Body(), &body); err != nil || strings.TrimSpace(body.AccessToken) == "" {
		return cachedToken{}, ErrMissingAccessToken
	}

	lifetime := time.Duration(body.ExpiresIn) * time.Second
	if lifetime <= 0 {
		lifetime = assertionLifetime
	}

	return cachedToken{
		accessToken: body.AccessToken,
		expiresAt:   now.Add(lifetime),
	}, nil
}

// SignAssertion builds the RS256 JWT presented to the token endpoint.
func SignAssertion(id Identity, now time.Time) (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(id.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("failed to parse service account private key: %w", err)
	}

	claims := jwt.MapClaims{
		"iss":   id.ClientEmail,
		"scope": id.Scope,
		"aud":   id.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(assertionLifetime).Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign assertion: %w", err)
	}
	return signed, nil
}
