package sensor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_Stale(t *testing.T) {
	registry := NewRegistry(nil)
	defer registry.Close()

	expires := time.Now().Add(time.Hour)
	registry.Track("1_75403", []*Entity{
		{EntityID: "sensor.onebusaway_1_75403_arrival_0", ExpiresAt: expires},
		{EntityID: "sensor.onebusaway_1_75403_arrival_1", ExpiresAt: expires},
		{EntityID: "sensor.onebusaway_1_75403_situations"},
	})
	registry.Track("1_7540", []*Entity{
		{EntityID: "sensor.onebusaway_1_7540_arrival_0", ExpiresAt: expires},
	})

	assert.Equal(t, 3, registry.Count())

	stale := registry.Stale("1_75403", []*Entity{
		{EntityID: "sensor.onebusaway_1_75403_arrival_0"},
	})
	assert.Equal(t, []string{"sensor.onebusaway_1_75403_arrival_1"}, stale)

	registry.Forget(stale)
	assert.Equal(t, 2, registry.Count())
	assert.Empty(t, registry.Stale("1_75403", []*Entity{{EntityID: "sensor.onebusaway_1_75403_arrival_0"}}))
}

func TestRegistry_Expiry(t *testing.T) {
	var mutex sync.Mutex
	var expired []string

	registry := NewRegistry(func(stopIdentifier string, entityID string) {
		mutex.Lock()
		defer mutex.Unlock()

		expired = append(expired, stopIdentifier+"/"+entityID)
	})
	defer registry.Close()

	registry.Track("1_75403", []*Entity{
		{EntityID: "sensor.onebusaway_1_75403_arrival_0", ExpiresAt: time.Now()},
	})

	assert.Eventually(t, func() bool {
		mutex.Lock()
		defer mutex.Unlock()

		return len(expired) == 1
	}, 5*time.Second, 50*time.Millisecond)

	assert.Equal(t, []string{"1_75403/sensor.onebusaway_1_75403_arrival_0"}, expired)
}
