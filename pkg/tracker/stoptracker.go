package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/onebusaway/pkg/ctdf"
	"github.com/travigo/onebusaway/pkg/onebusaway"
	"github.com/travigo/onebusaway/pkg/sensor"
	"github.com/travigo/onebusaway/pkg/util"
)

// Never poll faster than this, even when an arrival is due right now
const minimumWait = time.Second

var ErrReauthRequired = errors.New("stop requires reauthentication")

type ArrivalsFetcher interface {
	GetArrivalsAndDepartures(ctx context.Context, stopID string) (*onebusaway.ArrivalsAndDeparturesResponse, error)
}

// EventQueue is satisfied by rmq.Queue
type EventQueue interface {
	PublishBytes(payload ...[]byte) error
}

type StopTracker struct {
	StopConfig *ctdf.StopConfig

	Store      ctdf.StopConfigStore
	Client     ArrivalsFetcher
	Publisher  sensor.Publisher
	Registry   *sensor.Registry
	EventQueue EventQueue

	Now func() time.Time

	arrivalFilter    *ctdf.ArrivalFilter
	knownSituations  map[string]bool
	lastPublishedIDs map[string]bool
}

func NewStopTracker(stopConfig *ctdf.StopConfig, client ArrivalsFetcher) (*StopTracker, error) {
	arrivalFilter, err := stopConfig.GetArrivalFilter()
	if err != nil {
		return nil, err
	}

	return &StopTracker{
		StopConfig: stopConfig,
		Client:     client,
		Now:        time.Now,

		arrivalFilter:    arrivalFilter,
		knownSituations:  map[string]bool{},
		lastPublishedIDs: map[string]bool{},
	}, nil
}

// Run polls the stop until the context is cancelled or the stop needs reauthenticating
func (s *StopTracker) Run(ctx context.Context) error {
	log.Info().
		Str("stop", s.StopConfig.StopID).
		Str("url", s.StopConfig.URL).
		Dur("refresh", s.StopConfig.GetRefreshInterval()).
		Msg("Registering new stop tracker")

	for {
		nextRefresh, err := s.Update(ctx)
		if errors.Is(err, ErrReauthRequired) {
			log.Warn().Str("stop", s.StopConfig.StopID).Msg("Stopping tracker until the stop is reconfigured")
			return nil
		} else if err != nil {
			log.Error().Err(err).Str("stop", s.StopConfig.StopID).Msg("Failed to update stop")
		}

		waitTime := nextRefresh.Sub(s.Now())
		if waitTime < minimumWait {
			waitTime = minimumWait
		}

		timer := time.NewTimer(waitTime)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// Update fetches the stop once, publishes its sensors and returns when it should next be refreshed.
// That is the refresh interval, or the first upcoming arrival if it comes sooner.
func (s *StopTracker) Update(ctx context.Context) (time.Time, error) {
	now := s.Now()
	nextRefresh := now.Add(s.StopConfig.GetRefreshInterval())

	response, err := s.Client.GetArrivalsAndDepartures(ctx, s.StopConfig.StopID)
	if err != nil {
		return nextRefresh, s.handleFailure(ctx, err)
	}

	arrivals := ctdf.ComputeArrivals(response.Data.Entry.ArrivalsAndDepartures, now)
	arrivals = s.arrivalFilter.Apply(arrivals, now)
	if maxArrivals := s.StopConfig.GetMaxArrivals(); len(arrivals) > maxArrivals {
		arrivals = arrivals[:maxArrivals]
	}

	if len(arrivals) > 0 && arrivals[0].Time.Before(nextRefresh) {
		nextRefresh = arrivals[0].Time
	}

	serviceAlerts := []*ctdf.ServiceAlert{}
	for i := range response.Data.References.Situations {
		serviceAlert := ctdf.NewServiceAlertFromSituation(&response.Data.References.Situations[i])
		serviceAlerts = append(serviceAlerts, serviceAlert)

		if !s.knownSituations[serviceAlert.PrimaryIdentifier] {
			s.knownSituations[serviceAlert.PrimaryIdentifier] = true

			log.Info().Str("stop", s.StopConfig.StopID).Str("id", serviceAlert.PrimaryIdentifier).Msg("New situation")
			s.publishEvent(ctdf.EventTypeSituationCreated, &ctdf.SituationCreatedEvent{
				StopID:       s.StopConfig.StopID,
				ServiceAlert: serviceAlert,
			})
		}
	}

	entities := sensor.BuildStopSensors(sensor.StopSensorsInput{
		StopConfig:    s.StopConfig,
		Arrivals:      arrivals,
		ServiceAlerts: serviceAlerts,
		Now:           now,
		NextRefresh:   nextRefresh,
	})

	if err := s.publish(ctx, entities); err != nil {
		return nextRefresh, err
	}

	log.Debug().
		Str("stop", s.StopConfig.StopID).
		Int("arrivals", len(arrivals)).
		Int("situations", len(serviceAlerts)).
		Time("nextrefresh", nextRefresh).
		Msg("Updated stop")

	s.publishEvent(ctdf.EventTypeArrivalsUpdated, &ctdf.ArrivalsUpdatedEvent{
		StopID:      s.StopConfig.StopID,
		Arrivals:    arrivals,
		NextRefresh: nextRefresh,
	})

	if s.StopConfig.LastError != "" {
		s.StopConfig.LastError = ""
		s.save(ctx)
	}

	return nextRefresh, nil
}

func (s *StopTracker) publish(ctx context.Context, entities []*sensor.Entity) error {
	stopIdentifier := s.StopConfig.PrimaryIdentifier

	current := map[string]bool{}
	for _, entity := range entities {
		current[entity.EntityID] = true
	}

	var stale []string
	for entityID := range s.lastPublishedIDs {
		if !current[entityID] {
			stale = append(stale, entityID)
		}
	}
	if s.Registry != nil {
		stale = append(stale, s.Registry.Stale(stopIdentifier, entities)...)
	}
	stale = util.RemoveDuplicateStrings(stale, nil)

	if s.Publisher != nil {
		if err := s.Publisher.Publish(ctx, stopIdentifier, entities); err != nil {
			return err
		}

		if len(stale) > 0 {
			log.Debug().Str("stop", s.StopConfig.StopID).Strs("entities", stale).Msg("Removing stale sensors")

			if err := s.Publisher.Remove(ctx, stopIdentifier, stale); err != nil {
				return err
			}
		}
	}

	if s.Registry != nil {
		s.Registry.Forget(stale)
		s.Registry.Track(stopIdentifier, entities)
	}

	s.lastPublishedIDs = current

	return nil
}

func (s *StopTracker) handleFailure(ctx context.Context, err error) error {
	s.StopConfig.LastError = err.Error()

	if onebusaway.IsAuthentication(err) {
		log.Warn().Err(err).Str("stop", s.StopConfig.StopID).Msg("Stop credentials rejected")

		s.StopConfig.State = ctdf.StopConfigStateReauthRequired
		s.save(ctx)

		s.publishEvent(ctdf.EventTypeStopReauthRequired, &ctdf.StopFailureEvent{
			StopID: s.StopConfig.StopID,
			Error:  err.Error(),
		})

		return errors.Join(ErrReauthRequired, err)
	}

	s.save(ctx)

	s.publishEvent(ctdf.EventTypeStopUpdateFailed, &ctdf.StopFailureEvent{
		StopID: s.StopConfig.StopID,
		Error:  err.Error(),
	})

	return err
}

func (s *StopTracker) save(ctx context.Context) {
	if s.Store == nil {
		return
	}

	if err := s.Store.SetState(ctx, s.StopConfig.PrimaryIdentifier, s.StopConfig.State, s.StopConfig.LastError); err != nil {
		log.Error().Err(err).Str("stop", s.StopConfig.StopID).Msg("Failed to save stop config")
	}
}

func (s *StopTracker) publishEvent(eventType ctdf.EventType, body interface{}) {
	if s.EventQueue == nil {
		return
	}

	eventBytes, err := json.Marshal(ctdf.Event{
		Type:      eventType,
		Timestamp: s.Now(),
		Body:      body,
	})
	if err != nil {
		log.Error().Err(err).Str("type", string(eventType)).Msg("Failed to encode event")
		return
	}

	if err := s.EventQueue.PublishBytes(eventBytes); err != nil {
		log.Error().Err(err).Str("type", string(eventType)).Msg("Failed to publish event")
	}
}
