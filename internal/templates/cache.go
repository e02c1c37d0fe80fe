// internal/templates/cache.go
package templates

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"notification-queue/internal/common/logger"
	"notification-queue/internal/models"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

const cachePrefix = "notification-templates:"

// CachedStore keeps ListByKey results in process memory and in a Redis hash
// per template key, with the partner id as hash field. Save drops both tiers
// for the saved key. Redis failures are logged and bypassed.
type CachedStore struct {
	Store
	local    *gocache.Cache
	redis    *redis.Client
	redisTTL time.Duration
	logger   logger.Logger
}

func NewCachedStore(store Store, rdb *redis.Client, localTTL, redisTTL time.Duration, log logger.Logger) *CachedStore {
	return &CachedStore{
		Store:    store,
		local:    gocache.New(localTTL, 2*localTTL),
		redis:    rdb,
		redisTTL: redisTTL,
		logger:   log,
	}
}

func redisKey(key string) string {
	return cachePrefix + key
}

func localKey(key, partnerID string) string {
	return key + "\x00" + partnerID
}

func (c *CachedStore) ListByKey(ctx context.Context, key, partnerID string) ([]models.NotificationTemplate, error) {
	if v, ok := c.local.Get(localKey(key, partnerID)); ok {
		return v.([]models.NotificationTemplate), nil
	}

	if list, ok := c.fromRedis(ctx, key, partnerID); ok {
		c.local.SetDefault(localKey(key, partnerID), list)
		return list, nil
	}

	list, err := c.Store.ListByKey(ctx, key, partnerID)
	if err != nil {
		return nil, err
	}
	c.local.SetDefault(localKey(key, partnerID), list)
	c.toRedis(ctx, key, partnerID, list)
	return list, nil
}

func (c *CachedStore) Save(ctx context.Context, t *models.NotificationTemplate) error {
	if err := c.Store.Save(ctx, t); err != nil {
		return err
	}
	c.Invalidate(ctx, t.Key)
	return nil
}

// Invalidate drops every cached resolution of key, across partners.
func (c *CachedStore) Invalidate(ctx context.Context, key string) {
	prefix := localKey(key, "")
	for k := range c.local.Items() {
		if strings.HasPrefix(k, prefix) {
			c.local.Delete(k)
		}
	}
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, redisKey(key)).Err(); err != nil {
		c.logger.Warn("template cache invalidation failed", map[string]interface{}{
			logger.FieldKey: key,
			"error":         err.Error(),
		})
	}
}

func (c *CachedStore) fromRedis(ctx context.Context, key, partnerID string) ([]models.NotificationTemplate, bool) {
	if c.redis == nil {
		return nil, false
	}
	val, err := c.redis.HGet(ctx, redisKey(key), partnerID).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("template cache read failed", map[string]interface{}{
				logger.FieldKey:       key,
				logger.FieldPartnerID: partnerID,
				"error":               err.Error(),
			})
		}
		return nil, false
	}

	var list []models.NotificationTemplate
	if err := json.Unmarshal([]byte(val), &list); err != nil {
		c.logger.Warn("template cache entry is corrupt", map[string]interface{}{
			logger.FieldKey: key,
			"error":         err.Error(),
		})
		return nil, false
	}
	return list, true
}

func (c *CachedStore) toRedis(ctx context.Context, key, partnerID string, list []models.NotificationTemplate) {
	if c.redis == nil {
		return
	}
	data, err := json.Marshal(list)
	if err != nil {
		return
	}
	pipe := c.redis.TxPipeline()
	pipe.HSet(ctx, redisKey(key), partnerID, data)
	pipe.Expire(ctx, redisKey(key), c.redisTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("template cache write failed", map[string]interface{}{
			logger.FieldKey:       key,
			logger.FieldPartnerID: partnerID,
			"error":               err.Error(),
		})
	}
}
