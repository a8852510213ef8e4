package sensor

import (
	"time"

	ttlcache "github.com/jellydator/ttlcache/v2"
	"github.com/rs/zerolog/log"
)

// Registry remembers which expiring sensors were published for each stop.
// When an entry outlives its arrival it is handed to OnExpire, so stale
// arrivals disappear even while the stop can't be refreshed.
type Registry struct {
	cache *ttlcache.Cache
	now   func() time.Time
}

func NewRegistry(onExpire func(stopIdentifier string, entityID string)) *Registry {
	cache := ttlcache.NewCache()
	cache.SkipTTLExtensionOnHit(true)
	cache.SetExpirationReasonCallback(func(key string, reason ttlcache.EvictionReason, value interface{}) {
		if reason != ttlcache.Expired {
			return
		}

		stopIdentifier := value.(string)
		log.Debug().Str("stop", stopIdentifier).Str("entity", key).Msg("Sensor expired")

		if onExpire != nil {
			onExpire(stopIdentifier, key)
		}
	})

	return &Registry{
		cache: cache,
		now:   time.Now,
	}
}

// Track records the entities of a stop that have an expiry time
func (r *Registry) Track(stopIdentifier string, entities []*Entity) {
	now := r.now()

	for _, entity := range entities {
		if entity.ExpiresAt.IsZero() {
			continue
		}

		ttl := entity.ExpiresAt.Sub(now)
		if ttl < time.Second {
			ttl = time.Second
		}

		if err := r.cache.SetWithTTL(entity.EntityID, stopIdentifier, ttl); err != nil {
			log.Error().Err(err).Str("entity", entity.EntityID).Msg("Failed to track sensor")
		}
	}
}

// Stale returns the tracked entity IDs of the stop that are missing from current
func (r *Registry) Stale(stopIdentifier string, current []*Entity) []string {
	currentIDs := map[string]bool{}
	for _, entity := range current {
		currentIDs[entity.EntityID] = true
	}

	var stale []string
	for entityID, value := range r.cache.GetItems() {
		if value.(string) == stopIdentifier && !currentIDs[entityID] {
			stale = append(stale, entityID)
		}
	}

	return stale
}

func (r *Registry) Forget(entityIDs []string) {
	for _, entityID := range entityIDs {
		r.cache.Remove(entityID)
	}
}

func (r *Registry) Count() int {
	return r.cache.Count()
}

func (r *Registry) Close() error {
	return r.cache.Close()
}
