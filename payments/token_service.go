package payments

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// TokenCache stores the provider OAuth token between requests.
type TokenCache interface {
	Get(ctx context.Context) (string, bool)
	Set(ctx context.Context, token string, ttl time.Duration)
}

type memoryTokenCache struct {
	mu     sync.RWMutex
	token  string
	expiry time.Time
}

func NewMemoryTokenCache() TokenCache {
	return &memoryTokenCache{}
}

func (m *memoryTokenCache) Get(ctx context.Context) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token != "" && time.Now().Before(m.expiry) {
		return m.token, true
	}
	return "", false
}

func (m *memoryTokenCache) Set(ctx context.Context, token string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.expiry = time.Now().Add(ttl)
}

const redisTokenKey = "liquidity:mpesa:access_token"

// redisTokenCache shares one token between API replicas.
type redisTokenCache struct {
	rdb *redis.Client
	log *zap.Logger
}

func (r *redisTokenCache) Get(ctx context.Context) (string, bool) {
	token, err := r.rdb.Get(ctx, redisTokenKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn("redis token lookup failed", zap.Error(err))
		}
		return "", false
	}
	return token, token != ""
}

func (r *redisTokenCache) Set(ctx context.Context, token string, ttl time.Duration) {
	if err := r.rdb.Set(ctx, redisTokenKey, token, ttl).Err(); err != nil {
		r.log.Warn("redis token store failed", zap.Error(err))
	}
}

// NewTokenCache uses Redis when redisURL is set and falls back to process memory otherwise.
func NewTokenCache(redisURL string, log *zap.Logger) TokenCache {
	if redisURL == "" {
		return NewMemoryTokenCache()
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warn("invalid REDIS_URL, using in-memory token cache", zap.Error(err))
		return NewMemoryTokenCache()
	}

	log.Info("using redis for M-Pesa token cache", zap.String("addr", opts.Addr))
	return &redisTokenCache{rdb: redis.NewClient(opts), log: log}
}
