package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
)

// CachedTokenSource shares a service-account access token between instances
// through Redis so each deployment does not mint its own hourly assertion.
// With no Redis client configured it degrades to the wrapped source.
type CachedTokenSource struct {
	base oauth2.TokenSource
	rdb  *redis.Client
	key  string

	mu sync.Mutex
}

func NewCachedTokenSource(rdb *redis.Client, key string, base oauth2.TokenSource) *CachedTokenSource {
	return &CachedTokenSource{base: base, rdb: rdb, key: key}
}

type cachedToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	Expiry      time.Time `json:"expiry"`
}

func (c *CachedTokenSource) Token() (*oauth2.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx := context.Background()

	if c.rdb != nil {
		if raw, err := c.rdb.Get(ctx, c.key).Bytes(); err == nil {
			var ct cachedToken
			if json.Unmarshal(raw, &ct) == nil && time.Until(ct.Expiry) > time.Minute {
				return &oauth2.Token{
					AccessToken: ct.AccessToken,
					TokenType:   ct.TokenType,
					Expiry:      ct.Expiry,
				}, nil
			}
		}
	}

	tok, err := c.base.Token()
	if err != nil {
		return nil, err
	}

	if c.rdb != nil && !tok.Expiry.IsZero() {
		ttl := time.Until(tok.Expiry) - time.Minute
		if ttl > 0 {
			raw, _ := json.Marshal(cachedToken{
				AccessToken: tok.AccessToken,
				TokenType:   tok.TokenType,
				Expiry:      tok.Expiry,
			})
			if err := c.rdb.Set(ctx, c.key, raw, ttl).Err(); err != nil {
				slog.Warn("token cache write failed", "key", c.key, "err", err)
			}
		}
	}
	return tok, nil
}
