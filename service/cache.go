// file: service/cache.go

package service

import (
	"context"
	"encoding/json"
	"errors"
	"go-user-api/logger"
	"go-user-api/model"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// ICacheClient defines the contract for a cache client.
// *redis.Client satisfies it; tests substitute a mock.
type ICacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// UserCache keeps sanitized user profiles in the cache, keyed by ID.
// A UserCache without a client is a no-op, so callers never branch on
// whether caching is enabled.
type UserCache struct {
	client ICacheClient
	ttl    time.Duration
}

func NewUserCache(client ICacheClient, ttl time.Duration) *UserCache {
	return &UserCache{client: client, ttl: ttl}
}

func userCacheKey(id bson.ObjectID) string {
	return "user:" + id.Hex()
}

// Get returns the cached profile, or nil on a miss. Cache errors count as
// misses.
func (c *UserCache) Get(ctx context.Context, id bson.ObjectID) *model.User {
	if c == nil || c.client == nil {
		return nil
	}

	data, err := c.client.Get(ctx, userCacheKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Log.WithError(err).WithField("user_id", id.Hex()).Warn("User cache read failed")
		}
		return nil
	}

	user := &model.User{}
	if err := json.Unmarshal(data, user); err != nil {
		logger.Log.WithError(err).WithField("user_id", id.Hex()).Warn("Discarding malformed cache entry")
		return nil
	}
	return user
}

// Set stores the sanitized form of user.
func (c *UserCache) Set(ctx context.Context, user *model.User) {
	if c == nil || c.client == nil || user == nil {
		return
	}

	data, err := json.Marshal(user.Sanitized())
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, userCacheKey(user.ID), data, c.ttl).Err(); err != nil {
		logger.Log.WithError(err).WithField("user_id", user.ID.Hex()).Warn("User cache write failed")
	}
}

func (c *UserCache) Invalidate(ctx context.Context, id bson.ObjectID) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, userCacheKey(id)).Err(); err != nil {
		logger.Log.WithError(err).WithField("user_id", id.Hex()).Warn("User cache invalidation failed")
	}
}
