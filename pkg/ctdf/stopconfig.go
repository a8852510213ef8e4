package ctdf

import (
	"context"
	"errors"
	"time"

	iso8601 "github.com/senseyeio/duration"
	"github.com/travigo/onebusaway/pkg/util"
)

const (
	DefaultRefreshInterval = 2 * time.Minute
	MinimumRefreshInterval = 30 * time.Second
	DefaultMaxArrivals     = 10
)

// StopConfig is a configured OneBusAway stop, the equivalent of a config entry
type StopConfig struct {
	PrimaryIdentifier string `groups:"basic"`
	Title             string `groups:"basic"`

	URL    string `groups:"basic"`
	Token  string `groups:"internal"`
	StopID string `groups:"basic"`

	RouteFilter     string `groups:"basic"`
	MaxArrivals     int    `groups:"basic"`
	RefreshInterval string `groups:"basic"` // ISO8601, eg. PT2M

	State     StopConfigState `groups:"basic"`
	LastError string          `groups:"detailed"`

	CreationDateTime     time.Time `groups:"detailed"`
	ModificationDateTime time.Time `groups:"detailed"`
}

type StopConfigState string

const (
	StopConfigStateLoaded         StopConfigState = "Loaded"
	StopConfigStateReauthRequired StopConfigState = "ReauthRequired"
	StopConfigStateSetupError     StopConfigState = "SetupError"
)

func StopConfigIdentifier(stopID string) string {
	return util.Slugify(stopID)
}

func (s *StopConfig) GetRefreshInterval() time.Duration {
	if s.RefreshInterval == "" {
		return DefaultRefreshInterval
	}

	parsed, err := iso8601.ParseISO8601(s.RefreshInterval)
	if err != nil {
		return DefaultRefreshInterval
	}

	// Shift from a fixed point so calendar units (P1D) resolve to a concrete duration
	reference := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	interval := parsed.Shift(reference).Sub(reference)

	if interval <= 0 {
		return DefaultRefreshInterval
	}
	if interval < MinimumRefreshInterval {
		return MinimumRefreshInterval
	}

	return interval
}

func (s *StopConfig) GetMaxArrivals() int {
	if s.MaxArrivals <= 0 {
		return DefaultMaxArrivals
	}

	return s.MaxArrivals
}

func (s *StopConfig) GetArrivalFilter() (*ArrivalFilter, error) {
	if s.RouteFilter == "" {
		return nil, nil
	}

	return CompileArrivalFilter(s.RouteFilter)
}

var ErrStopConfigNotFound = errors.New("stop config not found")

type StopConfigStore interface {
	List(ctx context.Context) ([]*StopConfig, error)
	Get(ctx context.Context, primaryIdentifier string) (*StopConfig, error)
	Save(ctx context.Context, stopConfig *StopConfig) error
	Delete(ctx context.Context, primaryIdentifier string) error

	// SetState only touches State & LastError so it never overwrites a concurrent reconfiguration
	SetState(ctx context.Context, primaryIdentifier string, state StopConfigState, lastError string) error
}
