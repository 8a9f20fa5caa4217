package sessions

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/R3E-Network/agent_studio/internal/app/domain/account"
	"github.com/R3E-Network/agent_studio/pkg/logger"
)

// Cache stores resolved sessions keyed by token hash. Misses and backend
// failures look the same to callers.
type Cache interface {
	Get(ctx context.Context, key string) (account.Authenticated, bool)
	Set(ctx context.Context, key string, value account.Authenticated, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// cachedSession mirrors account.Authenticated with the token hash kept, since
// the domain types hide it from JSON.
type cachedSession struct {
	Session   account.Session `json:"session"`
	TokenHash string          `json:"tokenHash"`
	User      account.User    `json:"user"`
}

// RedisCache implements Cache on Redis.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
	log    *logger.Logger
}

// NewRedisCache wraps a redis client. Keys are stored as prefix + token hash.
func NewRedisCache(client redis.UniversalClient, log *logger.Logger) *RedisCache {
	if log == nil {
		log = logger.NewDefault("session-cache")
	}
	return &RedisCache{client: client, prefix: "agent_studio:session:", log: log}
}

func (c *RedisCache) Get(ctx context.Context, key string) (account.Authenticated, bool) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.WithError(err).Warn("session cache read failed")
		}
		return account.Authenticated{}, false
	}
	var cached cachedSession
	if err := json.Unmarshal(raw, &cached); err != nil {
		return account.Authenticated{}, false
	}
	cached.Session.TokenHash = cached.TokenHash
	return account.Authenticated{Session: cached.Session, User: cached.User}, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value account.Authenticated, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	raw, err := json.Marshal(cachedSession{Session: value.Session, TokenHash: value.Session.TokenHash, User: value.User})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.prefix+key, raw, ttl).Err(); err != nil {
		c.log.WithError(err).Warn("session cache write failed")
	}
}

func (c *RedisCache) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		c.log.WithError(err).Warn("session cache delete failed")
	}
}
