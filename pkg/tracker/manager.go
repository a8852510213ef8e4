package tracker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
	"github.com/travigo/onebusaway/pkg/ctdf"
	"github.com/travigo/onebusaway/pkg/onebusaway"
	"github.com/travigo/onebusaway/pkg/sensor"
)

const DefaultReloadInterval = time.Minute

type TrackerManager struct {
	Store      ctdf.StopConfigStore
	Publisher  sensor.Publisher
	EventQueue EventQueue

	NewClient      func(url string, key string) ArrivalsFetcher
	ReloadInterval time.Duration

	// Reload triggers an immediate reconcile, eg. from a database change stream
	Reload chan struct{}

	registry *sensor.Registry
	running  map[string]*runningTracker
}

type runningTracker struct {
	cancel       context.CancelFunc
	modification time.Time
}

func NewTrackerManager(store ctdf.StopConfigStore, publisher sensor.Publisher, eventQueue EventQueue) *TrackerManager {
	return &TrackerManager{
		Store:      store,
		Publisher:  publisher,
		EventQueue: eventQueue,
		NewClient: func(url string, key string) ArrivalsFetcher {
			return onebusaway.NewClient(url, key)
		},
		ReloadInterval: DefaultReloadInterval,
		Reload:         make(chan struct{}, 1),
	}
}

// RequestReload asks Run to re-read the store without blocking
func (t *TrackerManager) RequestReload() {
	select {
	case t.Reload <- struct{}{}:
	default:
	}
}

// Run keeps one tracker running for every loaded stop config until the context is cancelled.
// The store is re-read every ReloadInterval so added, changed & removed stops are picked up.
func (t *TrackerManager) Run(ctx context.Context) error {
	log.Info().Msg("Starting OneBusAway stop tracker")

	t.registry = sensor.NewRegistry(func(stopIdentifier string, entityID string) {
		if t.Publisher == nil {
			return
		}

		if err := t.Publisher.Remove(context.Background(), stopIdentifier, []string{entityID}); err != nil {
			log.Error().Err(err).Str("entity", entityID).Msg("Failed to remove expired sensor")
		}
	})
	defer t.registry.Close()

	t.running = map[string]*runningTracker{}
	trackers := pool.New().WithContext(ctx)

	for {
		if err := t.reconcile(ctx, trackers); err != nil {
			log.Error().Err(err).Msg("Failed to load stop configs")
		}

		select {
		case <-ctx.Done():
			return trackers.Wait()
		case <-time.After(t.ReloadInterval):
		case <-t.Reload:
		}
	}
}

func (t *TrackerManager) reconcile(ctx context.Context, trackers *pool.ContextPool) error {
	stopConfigs, err := t.Store.List(ctx)
	if err != nil {
		return err
	}

	wanted := map[string]*ctdf.StopConfig{}
	for _, stopConfig := range stopConfigs {
		if stopConfig.State == ctdf.StopConfigStateLoaded || stopConfig.State == "" {
			wanted[stopConfig.PrimaryIdentifier] = stopConfig
		} else {
			log.Debug().Str("stop", stopConfig.StopID).Str("state", string(stopConfig.State)).Msg("Not tracking stop")
		}
	}

	for primaryIdentifier, running := range t.running {
		stopConfig, ok := wanted[primaryIdentifier]
		if ok && stopConfig.ModificationDateTime.Equal(running.modification) {
			continue
		}

		log.Info().Str("stop", primaryIdentifier).Msg("Stopping stop tracker")
		running.cancel()
		delete(t.running, primaryIdentifier)
	}

	for primaryIdentifier, stopConfig := range wanted {
		if _, ok := t.running[primaryIdentifier]; ok {
			continue
		}

		stopTracker, err := NewStopTracker(stopConfig, t.NewClient(stopConfig.URL, stopConfig.Token))
		if err != nil {
			log.Error().Err(err).Str("stop", stopConfig.StopID).Msg("Failed setting up stop tracker")

			// Parked until the stop is reconfigured
			if err := t.Store.SetState(ctx, primaryIdentifier, ctdf.StopConfigStateSetupError, err.Error()); err != nil {
				log.Error().Err(err).Str("stop", stopConfig.StopID).Msg("Failed to save stop state")
			}
			continue
		}
		stopTracker.Store = t.Store
		stopTracker.Publisher = t.Publisher
		stopTracker.Registry = t.registry
		stopTracker.EventQueue = t.EventQueue

		trackerContext, cancel := context.WithCancel(ctx)
		t.running[primaryIdentifier] = &runningTracker{
			cancel:       cancel,
			modification: stopConfig.ModificationDateTime,
		}

		trackers.Go(func(ctx context.Context) error {
			defer cancel()
			return stopTracker.Run(trackerContext)
		})
	}

	return nil
}
