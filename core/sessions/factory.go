package sessions

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// StoreType selects the session store driver.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"
)

const defaultIdleTimeout = 10 * time.Minute

// StoreOption configures a session store.
type StoreOption func(*storeConfig)

type storeConfig struct {
	redisClient *redis.Client
	idleTimeout time.Duration
}

// WithRedisClient sets the Redis client for the redis driver.
func WithRedisClient(client *redis.Client) StoreOption {
	return func(c *storeConfig) {
		c.redisClient = client
	}
}

// WithIdleTimeout sets how long an untouched session survives before it is
// reaped (memory driver) or expires (redis key TTL).
func WithIdleTimeout(idleTimeout time.Duration) StoreOption {
	return func(c *storeConfig) {
		c.idleTimeout = idleTimeout
	}
}

// NewStore creates a session store for the given driver type. The redis
// driver requires WithRedisClient.
func NewStore(storeType StoreType, opts ...StoreOption) (Store, error) {
	config := &storeConfig{idleTimeout: defaultIdleTimeout}
	for _, opt := range opts {
		opt(config)
	}

	switch storeType {
	case StoreTypeMemory:
		return newInMemoryStore(config.idleTimeout), nil

	case StoreTypeRedis:
		if config.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		return &redisStore{
			client: config.redisClient,
			ttl:    config.idleTimeout,
		}, nil

	default:
		return nil, ErrInvalidStoreType
	}
}
