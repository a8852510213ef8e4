package configflow

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
	"github.com/travigo/onebusaway/pkg/ctdf"
	"github.com/travigo/onebusaway/pkg/onebusaway"
)

const DefaultStopID = "40_55778"

const (
	ErrorAuth               = "auth"
	ErrorConnection         = "connection"
	ErrorUnknown            = "unknown"
	ErrorNoArrivals         = "no_arrivals"
	ErrorAlreadyConfigured  = "already_configured"
	ErrorInvalidURL         = "invalid_url"
	ErrorInvalidRouteFilter = "invalid_route_filter"
	ErrorNotFound           = "not_found"
)

// UserInput is what the user fills into the setup form
type UserInput struct {
	URL   string `json:"url" yaml:"url"`
	Token string `json:"token" yaml:"token"`
	ID    string `json:"id" yaml:"id"`

	RouteFilter     string `json:"route_filter" yaml:"route_filter"`
	MaxArrivals     int    `json:"max_arrivals" yaml:"max_arrivals"`
	RefreshInterval string `json:"refresh_interval" yaml:"refresh_interval"`
}

// FormError carries the form error keys to show next to the fields, "base" for form wide errors
type FormError struct {
	Errors map[string]string
	Err    error
}

func (e *FormError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %s", e.Errors, e.Err)
	}

	return fmt.Sprint(e.Errors)
}

func (e *FormError) Unwrap() error {
	return e.Err
}

func newFormError(key string, err error) *FormError {
	return &FormError{
		Errors: map[string]string{"base": key},
		Err:    err,
	}
}

// BaseError returns the form wide error key of err, or "" when err isn't a FormError
func BaseError(err error) string {
	var formErr *FormError
	if errors.As(err, &formErr) {
		return formErr.Errors["base"]
	}

	return ""
}

type ArrivalsFetcher interface {
	GetArrivalsAndDepartures(ctx context.Context, stopID string) (*onebusaway.ArrivalsAndDeparturesResponse, error)
}

type Flow struct {
	Store     ctdf.StopConfigStore
	NewClient func(url string, key string) ArrivalsFetcher
	Now       func() time.Time
}

func NewFlow(store ctdf.StopConfigStore) *Flow {
	return &Flow{
		Store: store,
		NewClient: func(url string, key string) ArrivalsFetcher {
			return onebusaway.NewClient(url, key)
		},
		Now: time.Now,
	}
}

// Defaults is the pre-filled form, reusing the token of an existing stop if there is one
func (f *Flow) Defaults(ctx context.Context) (UserInput, error) {
	existingToken, err := f.existingToken(ctx)
	if err != nil {
		return UserInput{}, err
	}

	return UserInput{
		URL:   onebusaway.DefaultURL,
		Token: existingToken,
		ID:    DefaultStopID,
	}, nil
}

func (f *Flow) existingToken(ctx context.Context) (string, error) {
	stopConfigs, err := f.Store.List(ctx)
	if err != nil {
		return "", err
	}

	for _, stopConfig := range stopConfigs {
		if stopConfig.Token != "" {
			return stopConfig.Token, nil
		}
	}

	return "", nil
}

// Create validates the input against the API and stores a new stop config
func (f *Flow) Create(ctx context.Context, input UserInput) (*ctdf.StopConfig, error) {
	if input.URL == "" {
		input.URL = onebusaway.DefaultURL
	}
	if input.ID == "" {
		input.ID = DefaultStopID
	}

	if input.Token == "" {
		existingToken, err := f.existingToken(ctx)
		if err != nil {
			return nil, err
		}

		input.Token = existingToken
	}

	now := f.Now()
	stopConfig := &ctdf.StopConfig{
		PrimaryIdentifier:    ctdf.StopConfigIdentifier(input.ID),
		URL:                  input.URL,
		Token:                input.Token,
		StopID:               input.ID,
		RouteFilter:          input.RouteFilter,
		MaxArrivals:          input.MaxArrivals,
		RefreshInterval:      input.RefreshInterval,
		CreationDateTime:     now,
		ModificationDateTime: now,
	}

	if _, err := f.Store.Get(ctx, stopConfig.PrimaryIdentifier); err == nil {
		return nil, newFormError(ErrorAlreadyConfigured, nil)
	} else if !errors.Is(err, ctdf.ErrStopConfigNotFound) {
		return nil, err
	}

	if err := f.validate(ctx, stopConfig); err != nil {
		return nil, err
	}

	if err := f.Store.Save(ctx, stopConfig); err != nil {
		return nil, err
	}

	log.Info().Str("stop", stopConfig.StopID).Str("title", stopConfig.Title).Msg("Created stop config")

	return stopConfig, nil
}

// Update merges the non-empty fields of input into an existing stop config and revalidates it.
// This is also how a stop leaves the ReauthRequired state.
func (f *Flow) Update(ctx context.Context, primaryIdentifier string, input UserInput) (*ctdf.StopConfig, error) {
	existing, err := f.Store.Get(ctx, primaryIdentifier)
	if errors.Is(err, ctdf.ErrStopConfigNotFound) {
		return nil, newFormError(ErrorNotFound, err)
	} else if err != nil {
		return nil, err
	}

	stopConfig := *existing
	if err := copier.CopyWithOption(&stopConfig, input, copier.Option{IgnoreEmpty: true}); err != nil {
		return nil, err
	}

	if err := f.validate(ctx, &stopConfig); err != nil {
		return nil, err
	}

	stopConfig.ModificationDateTime = f.Now()

	if err := f.Store.Save(ctx, &stopConfig); err != nil {
		return nil, err
	}

	log.Info().Str("stop", stopConfig.StopID).Msg("Updated stop config")

	return &stopConfig, nil
}

func (f *Flow) validate(ctx context.Context, stopConfig *ctdf.StopConfig) error {
	parsedURL, err := url.Parse(stopConfig.URL)
	if err != nil || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") || parsedURL.Host == "" {
		return &FormError{Errors: map[string]string{"url": ErrorInvalidURL}, Err: err}
	}

	if _, err := stopConfig.GetArrivalFilter(); err != nil {
		return &FormError{Errors: map[string]string{"route_filter": ErrorInvalidRouteFilter}, Err: err}
	}

	client := f.NewClient(stopConfig.URL, stopConfig.Token)
	response, err := client.GetArrivalsAndDepartures(ctx, stopConfig.StopID)

	switch {
	case onebusaway.IsAuthentication(err):
		log.Warn().Err(err).Str("stop", stopConfig.StopID).Msg("Stop validation rejected credentials")
		return newFormError(ErrorAuth, err)
	case onebusaway.IsCommunication(err):
		log.Error().Err(err).Str("stop", stopConfig.StopID).Msg("Stop validation failed to connect")
		return newFormError(ErrorConnection, err)
	case err != nil:
		log.Error().Err(err).Str("stop", stopConfig.StopID).Msg("Stop validation failed")
		return newFormError(ErrorUnknown, err)
	}

	arrivals := response.Data.Entry.ArrivalsAndDepartures
	if len(arrivals) == 0 {
		return newFormError(ErrorNoArrivals, nil)
	}

	stopConfig.Title = arrivals[0].StopID
	if stopConfig.Title == "" {
		stopConfig.Title = stopConfig.StopID
	}
	stopConfig.State = ctdf.StopConfigStateLoaded
	stopConfig.LastError = ""

	return nil
}
