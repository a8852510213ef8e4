package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/onebusaway/pkg/ctdf"
	"github.com/travigo/onebusaway/pkg/ctdf/ctdftest"
)

func TestTrackerManager_Run(t *testing.T) {
	now := time.Now()

	store := ctdftest.NewMemoryStopConfigStore(
		&ctdf.StopConfig{
			PrimaryIdentifier: "1_75403",
			StopID:            "1_75403",
			Token:             "GOOD",
			State:             ctdf.StopConfigStateLoaded,
		},
		&ctdf.StopConfig{
			PrimaryIdentifier: "1_10914",
			StopID:            "1_10914",
			Token:             "REJECTED",
			State:             ctdf.StopConfigStateReauthRequired,
		},
	)

	fetchers := map[string]*fakeFetcher{
		"GOOD":     {response: arrivalsResponse(now, predicted("43", "Capitol Hill", now.Add(time.Hour)))},
		"REJECTED": {response: arrivalsResponse(now)},
	}

	publisher := newFakePublisher()
	trackerManager := NewTrackerManager(store, publisher, &fakeEventQueue{})
	trackerManager.ReloadInterval = 20 * time.Millisecond
	trackerManager.NewClient = func(url string, key string) ArrivalsFetcher {
		return fetchers[key]
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- trackerManager.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return len(publisher.Published("1_75403")) > 0
	}, 5*time.Second, 10*time.Millisecond)

	// Removing the stop stops its tracker, adding one starts a new tracker
	require.NoError(t, store.Delete(context.Background(), "1_75403"))
	require.NoError(t, store.Save(context.Background(), &ctdf.StopConfig{
		PrimaryIdentifier: "1_10914",
		StopID:            "1_10914",
		Token:             "GOOD",
		State:             ctdf.StopConfigStateLoaded,
	}))

	require.Eventually(t, func() bool {
		return len(publisher.Published("1_10914")) > 0
	}, 5*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("tracker manager did not stop")
	}

	assert.Equal(t, 0, fetchers["REJECTED"].Calls())
	assert.Equal(t, 2, fetchers["GOOD"].Calls())
}

func TestTrackerManager_Reload(t *testing.T) {
	now := time.Now()

	store := ctdftest.NewMemoryStopConfigStore()
	fetcher := &fakeFetcher{response: arrivalsResponse(now, predicted("43", "Capitol Hill", now.Add(time.Hour)))}

	publisher := newFakePublisher()
	trackerManager := NewTrackerManager(store, publisher, nil)
	trackerManager.ReloadInterval = time.Hour
	trackerManager.NewClient = func(url string, key string) ArrivalsFetcher {
		return fetcher
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- trackerManager.Run(ctx)
	}()

	require.NoError(t, store.Save(context.Background(), &ctdf.StopConfig{
		PrimaryIdentifier: "1_75403",
		StopID:            "1_75403",
		State:             ctdf.StopConfigStateLoaded,
	}))
	trackerManager.RequestReload()

	require.Eventually(t, func() bool {
		return len(publisher.Published("1_75403")) > 0
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestTrackerManager_RestartsChangedStop(t *testing.T) {
	now := time.Now()

	store := ctdftest.NewMemoryStopConfigStore(&ctdf.StopConfig{
		PrimaryIdentifier:    "1_75403",
		StopID:               "1_75403",
		Token:                "OLD",
		State:                ctdf.StopConfigStateLoaded,
		ModificationDateTime: now,
	})

	fetchers := map[string]*fakeFetcher{
		"OLD": {response: arrivalsResponse(now, predicted("43", "Capitol Hill", now.Add(time.Hour)))},
		"NEW": {response: arrivalsResponse(now, predicted("43", "Capitol Hill", now.Add(time.Hour)))},
	}

	trackerManager := NewTrackerManager(store, newFakePublisher(), nil)
	trackerManager.ReloadInterval = time.Hour
	trackerManager.NewClient = func(url string, key string) ArrivalsFetcher {
		return fetchers[key]
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- trackerManager.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return fetchers["OLD"].Calls() > 0
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, store.Save(context.Background(), &ctdf.StopConfig{
		PrimaryIdentifier:    "1_75403",
		StopID:               "1_75403",
		Token:                "NEW",
		State:                ctdf.StopConfigStateLoaded,
		ModificationDateTime: now.Add(time.Minute),
	}))
	trackerManager.RequestReload()

	require.Eventually(t, func() bool {
		return fetchers["NEW"].Calls() > 0
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, 1, fetchers["OLD"].Calls())
}

func TestTrackerManager_InvalidRouteFilter(t *testing.T) {
	store := ctdftest.NewMemoryStopConfigStore(&ctdf.StopConfig{
		PrimaryIdentifier: "1_75403",
		StopID:            "1_75403",
		RouteFilter:       "Route ==",
		State:             ctdf.StopConfigStateLoaded,
	})
	fetcher := &fakeFetcher{response: arrivalsResponse(time.Now())}

	trackerManager := NewTrackerManager(store, newFakePublisher(), nil)
	trackerManager.ReloadInterval = 20 * time.Millisecond
	trackerManager.NewClient = func(url string, key string) ArrivalsFetcher {
		return fetcher
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- trackerManager.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		stopConfig, err := store.Get(context.Background(), "1_75403")
		return err == nil && stopConfig.State == ctdf.StopConfigStateSetupError
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	stopConfig, err := store.Get(context.Background(), "1_75403")
	require.NoError(t, err)
	assert.NotEmpty(t, stopConfig.LastError)
	assert.Equal(t, 0, fetcher.Calls())
}
