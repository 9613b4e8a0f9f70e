// Package tokens caches connector access tokens in Redis so repeated
// flows against token-based connectors skip the token round trip.
package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yourorg/payment-router/internal/domain"
)

// ErrTokenNotFound is returned when no cached token exists for the key.
var ErrTokenNotFound = errors.New("access token not found")

type cachedToken struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// Cache stores access tokens keyed by merchant and connector. Concurrent
// fetches for the same key are tolerated; the last write wins.
type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func tokenKey(merchantID, connectorName string) string {
	return fmt.Sprintf("access_token:%s:%s", merchantID, connectorName)
}

// Get fetches the cached token, returning ErrTokenNotFound on a miss.
func (c *Cache) Get(ctx context.Context, merchantID, connectorName string) (*domain.AccessToken, error) {
	raw, err := c.client.Get(ctx, tokenKey(merchantID, connectorName)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("access token lookup: %w", err)
	}
	var ct cachedToken
	if err := json.Unmarshal(raw, &ct); err != nil {
		return nil, fmt.Errorf("access token decode: %w", err)
	}
	return &domain.AccessToken{Token: domain.NewSecret(ct.Token), ExpiresIn: ct.ExpiresIn}, nil
}

// Set stores the token with a TTL derived from its expiry. Tokens that
// report no expiry are held for a minute so a broken connector cannot
// pin a stale token forever.
func (c *Cache) Set(ctx context.Context, merchantID, connectorName string, token *domain.AccessToken) error {
	ttl := time.Duration(token.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = time.Minute
	}
	raw, err := json.Marshal(cachedToken{Token: token.Token.Expose(), ExpiresIn: token.ExpiresIn})
	if err != nil {
		return fmt.Errorf("access token encode: %w", err)
	}
	if err := c.client.Set(ctx, tokenKey(merchantID, connectorName), raw, ttl).Err(); err != nil {
		return fmt.Errorf("access token store: %w", err)
	}
	return nil
}
