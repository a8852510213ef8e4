package statecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
	"github.com/travigo/onebusaway/pkg/sensor"
)

const keyFormat = "onebusaway:sensors:%s"

var ErrNotCached = errors.New("no sensors cached for stop")

// Cache keeps the latest sensor set of every stop in Redis
type Cache struct {
	Cache *cache.Cache[string]
}

func New(client *redis.Client, expiration time.Duration) *Cache {
	redisStore := redisstore.NewRedis(client, store.WithExpiration(expiration))

	return &Cache{
		Cache: cache.New[string](redisStore),
	}
}

func (c *Cache) Publish(ctx context.Context, stopIdentifier string, entities []*sensor.Entity) error {
	encoded, err := json.Marshal(entities)
	if err != nil {
		return err
	}

	return c.Cache.Set(ctx, fmt.Sprintf(keyFormat, stopIdentifier), string(encoded))
}

func (c *Cache) Remove(ctx context.Context, stopIdentifier string, entityIDs []string) error {
	entities, err := c.Get(ctx, stopIdentifier)
	if errors.Is(err, ErrNotCached) {
		return nil
	} else if err != nil {
		return err
	}

	removed := map[string]bool{}
	for _, entityID := range entityIDs {
		removed[entityID] = true
	}

	remaining := []*sensor.Entity{}
	for _, entity := range entities {
		if !removed[entity.EntityID] {
			remaining = append(remaining, entity)
		}
	}

	return c.Publish(ctx, stopIdentifier, remaining)
}

func (c *Cache) Get(ctx context.Context, stopIdentifier string) ([]*sensor.Entity, error) {
	encoded, err := c.Cache.Get(ctx, fmt.Sprintf(keyFormat, stopIdentifier))
	if errors.Is(err, store.NotFound{}) {
		return nil, ErrNotCached
	} else if err != nil {
		return nil, err
	}
	if encoded == "" {
		return nil, ErrNotCached
	}

	var entities []*sensor.Entity
	if err := json.Unmarshal([]byte(encoded), &entities); err != nil {
		return nil, err
	}

	return entities, nil
}

func (c *Cache) Delete(ctx context.Context, stopIdentifier string) error {
	return c.Cache.Delete(ctx, fmt.Sprintf(keyFormat, stopIdentifier))
}
