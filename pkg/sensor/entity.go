package sensor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/travigo/onebusaway/pkg/util"
)

const (
	Domain      = "onebusaway"
	Attribution = "Transit data provided by OneBusAway"
	Icon        = "mdi:bus-clock"

	StateUnknown = "unknown"
)

// Entity mirrors a Home Assistant state object
type Entity struct {
	EntityID   string                 `json:"entity_id"`
	State      string                 `json:"state"`
	Attributes map[string]interface{} `json:"attributes"`

	// ExpiresAt is when the entity stops being meaningful, zero when it never does
	ExpiresAt time.Time `json:"-"`
}

// EntityID builds sensor.onebusaway_<stop>[_<field>]
func EntityID(stopID string, field string) string {
	if field == "" {
		return fmt.Sprintf("sensor.%s_%s", Domain, util.Slugify(stopID))
	}

	return fmt.Sprintf("sensor.%s_%s_%s", Domain, util.Slugify(stopID), field)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// Publisher receives the sensor set of a stop after every update
type Publisher interface {
	Publish(ctx context.Context, stopIdentifier string, entities []*Entity) error
	Remove(ctx context.Context, stopIdentifier string, entityIDs []string) error
}

// MultiPublisher fans out to every publisher and joins their errors
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, stopIdentifier string, entities []*Entity) error {
	var errs []error
	for _, publisher := range m {
		if err := publisher.Publish(ctx, stopIdentifier, entities); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (m MultiPublisher) Remove(ctx context.Context, stopIdentifier string, entityIDs []string) error {
	if len(entityIDs) == 0 {
		return nil
	}

	var errs []error
	for _, publisher := range m {
		if err := publisher.Remove(ctx, stopIdentifier, entityIDs); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
