package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/onebusaway/pkg/api/routes"
	"github.com/travigo/onebusaway/pkg/configflow"
	"github.com/travigo/onebusaway/pkg/ctdf"
	"github.com/travigo/onebusaway/pkg/ctdf/ctdftest"
	"github.com/travigo/onebusaway/pkg/dashboard"
	"github.com/travigo/onebusaway/pkg/onebusaway"
	"github.com/travigo/onebusaway/pkg/sensor"
	"github.com/travigo/onebusaway/pkg/statecache"
	"gopkg.in/yaml.v3"
)

var testNow = time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)

type fakeFetcher struct {
	response *onebusaway.ArrivalsAndDeparturesResponse
	err      error
}

func (f *fakeFetcher) GetArrivalsAndDepartures(ctx context.Context, stopID string) (*onebusaway.ArrivalsAndDeparturesResponse, error) {
	return f.response, f.err
}

type fakeSensorCache struct {
	entities map[string][]*sensor.Entity
	err      error
}

func (f *fakeSensorCache) Get(ctx context.Context, stopIdentifier string) ([]*sensor.Entity, error) {
	if f.err != nil {
		return nil, f.err
	}

	entities, ok := f.entities[stopIdentifier]
	if !ok {
		return nil, statecache.ErrNotCached
	}

	return entities, nil
}

func (f *fakeSensorCache) Delete(ctx context.Context, stopIdentifier string) error {
	delete(f.entities, stopIdentifier)
	return nil
}

func newTestStops(fetcher *fakeFetcher, stopConfigs ...*ctdf.StopConfig) (*routes.Stops, *ctdftest.MemoryStopConfigStore, *fakeSensorCache) {
	store := ctdftest.NewMemoryStopConfigStore(stopConfigs...)
	newClient := func(url string, key string) configflow.ArrivalsFetcher {
		return fetcher
	}

	flow := configflow.NewFlow(store)
	flow.NewClient = newClient
	flow.Now = func() time.Time { return testNow }

	sensors := &fakeSensorCache{entities: map[string][]*sensor.Entity{}}

	stops := routes.NewStops(store, flow, sensors)
	stops.NewClient = newClient
	stops.Now = func() time.Time { return testNow }

	return stops, store, sensors
}

func testResponse() *onebusaway.ArrivalsAndDeparturesResponse {
	response := &onebusaway.ArrivalsAndDeparturesResponse{Code: 200}
	response.Data.Entry.StopID = "1_75403"
	response.Data.Entry.ArrivalsAndDepartures = []onebusaway.ArrivalAndDeparture{
		{StopID: "1_75403", RouteShortName: "49", TripHeadsign: "University District", ScheduledDepartureTime: testNow.Add(10 * time.Minute).UnixMilli()},
		{StopID: "1_75403", RouteShortName: "43", TripHeadsign: "Capitol Hill", PredictedArrivalTime: testNow.Add(3 * time.Minute).UnixMilli()},
		{StopID: "1_75403", RouteShortName: "8", PredictedArrivalTime: testNow.Add(-time.Minute).UnixMilli()},
	}

	return response
}

func testStopConfig() *ctdf.StopConfig {
	return &ctdf.StopConfig{
		PrimaryIdentifier: "1_75403",
		Title:             "1_75403",
		URL:               "https://api.example.org/api",
		Token:             "SECRET",
		StopID:            "1_75403",
		State:             ctdf.StopConfigStateLoaded,
	}
}

func doRequest(t *testing.T, stops *routes.Stops, method string, target string, body string) (*http.Response, []byte) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	request := httptest.NewRequest(method, target, bodyReader)
	if body != "" {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := NewApp(stops).Test(request, -1)
	require.NoError(t, err)

	responseBody, err := io.ReadAll(response.Body)
	require.NoError(t, err)

	return response, responseBody
}

func TestAPIVersion(t *testing.T) {
	stops, _, _ := newTestStops(&fakeFetcher{})

	response, body := doRequest(t, stops, http.MethodGet, "/core/version", "")
	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.JSONEq(t, `{"version": "dev"}`, string(body))
}

func TestListAndGetStops(t *testing.T) {
	stops, _, _ := newTestStops(&fakeFetcher{}, testStopConfig())

	response, body := doRequest(t, stops, http.MethodGet, "/core/stops", "")
	require.Equal(t, http.StatusOK, response.StatusCode)

	var listed []map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "1_75403", listed[0]["StopID"])
	assert.NotContains(t, listed[0], "Token")
	assert.NotContains(t, listed[0], "LastError")

	response, body = doRequest(t, stops, http.MethodGet, "/core/stops/1_75403", "")
	require.Equal(t, http.StatusOK, response.StatusCode)

	var detailed map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &detailed))
	assert.Equal(t, "Loaded", detailed["State"])
	assert.Contains(t, detailed, "LastError")
	assert.NotContains(t, detailed, "Token")

	response, _ = doRequest(t, stops, http.MethodGet, "/core/stops/missing", "")
	assert.Equal(t, http.StatusNotFound, response.StatusCode)
}

func TestCreateStop(t *testing.T) {
	tests := []struct {
		name         string
		fetcher      *fakeFetcher
		body         string
		expectStatus int
		expectErrors map[string]string
	}{
		{
			name:         "created",
			fetcher:      &fakeFetcher{response: testResponse()},
			body:         `{"url": "https://api.example.org/api", "token": "TEST", "id": "1_75403"}`,
			expectStatus: http.StatusCreated,
		},
		{
			name:         "invalid credentials",
			fetcher:      &fakeFetcher{err: &onebusaway.APIError{Kind: onebusaway.ErrorKindAuthentication}},
			body:         `{"url": "https://api.example.org/api", "token": "WRONG", "id": "1_75403"}`,
			expectStatus: http.StatusBadRequest,
			expectErrors: map[string]string{"base": "auth"},
		},
		{
			name:         "no arrivals",
			fetcher:      &fakeFetcher{response: &onebusaway.ArrivalsAndDeparturesResponse{Code: 200}},
			body:         `{"id": "1_75403"}`,
			expectStatus: http.StatusBadRequest,
			expectErrors: map[string]string{"base": "no_arrivals"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stops, store, _ := newTestStops(tt.fetcher)

			response, body := doRequest(t, stops, http.MethodPost, "/core/stops", tt.body)
			require.Equal(t, tt.expectStatus, response.StatusCode, string(body))

			if tt.expectErrors != nil {
				var decoded struct {
					Errors map[string]string `json:"errors"`
				}
				require.NoError(t, json.Unmarshal(body, &decoded))
				assert.Equal(t, tt.expectErrors, decoded.Errors)
				return
			}

			stored, err := store.Get(context.Background(), "1_75403")
			require.NoError(t, err)
			assert.Equal(t, "TEST", stored.Token)
			assert.NotContains(t, string(body), "TEST")
		})
	}

	stops, _, _ := newTestStops(&fakeFetcher{})
	response, _ := doRequest(t, stops, http.MethodPost, "/core/stops", `not json`)
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
}

func TestUpdateStop(t *testing.T) {
	stopConfig := testStopConfig()
	stopConfig.State = ctdf.StopConfigStateReauthRequired
	stops, store, _ := newTestStops(&fakeFetcher{response: testResponse()}, stopConfig)

	response, _ := doRequest(t, stops, http.MethodPut, "/core/stops/1_75403", `{"token": "NEW"}`)
	require.Equal(t, http.StatusOK, response.StatusCode)

	stored, err := store.Get(context.Background(), "1_75403")
	require.NoError(t, err)
	assert.Equal(t, "NEW", stored.Token)
	assert.Equal(t, ctdf.StopConfigStateLoaded, stored.State)

	response, _ = doRequest(t, stops, http.MethodPut, "/core/stops/missing", `{"token": "NEW"}`)
	assert.Equal(t, http.StatusNotFound, response.StatusCode)
}

func TestDeleteStop(t *testing.T) {
	stops, store, sensors := newTestStops(&fakeFetcher{}, testStopConfig())
	sensors.entities["1_75403"] = []*sensor.Entity{{EntityID: "sensor.onebusaway_1_75403"}}

	response, _ := doRequest(t, stops, http.MethodDelete, "/core/stops/1_75403", "")
	assert.Equal(t, http.StatusNoContent, response.StatusCode)

	_, err := store.Get(context.Background(), "1_75403")
	assert.ErrorIs(t, err, ctdf.ErrStopConfigNotFound)
	assert.NotContains(t, sensors.entities, "1_75403")

	response, _ = doRequest(t, stops, http.MethodDelete, "/core/stops/1_75403", "")
	assert.Equal(t, http.StatusNotFound, response.StatusCode)
}

func TestGetStopSensors(t *testing.T) {
	stops, _, sensors := newTestStops(&fakeFetcher{}, testStopConfig())

	response, _ := doRequest(t, stops, http.MethodGet, "/core/stops/1_75403/sensors", "")
	assert.Equal(t, http.StatusNotFound, response.StatusCode)

	sensors.entities["1_75403"] = []*sensor.Entity{
		{EntityID: "sensor.onebusaway_1_75403", State: "2023-11-14T22:16:20Z", Attributes: map[string]interface{}{"route_name": "43"}},
	}

	response, body := doRequest(t, stops, http.MethodGet, "/core/stops/1_75403/sensors", "")
	require.Equal(t, http.StatusOK, response.StatusCode)
	assert.JSONEq(t, `[{"entity_id": "sensor.onebusaway_1_75403", "state": "2023-11-14T22:16:20Z", "attributes": {"route_name": "43"}}]`, string(body))

	sensors.err = errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")
	response, _ = doRequest(t, stops, http.MethodGet, "/core/stops/1_75403/sensors", "")
	assert.Equal(t, http.StatusInternalServerError, response.StatusCode)
}

func TestGetStopArrivals(t *testing.T) {
	stops, _, _ := newTestStops(&fakeFetcher{response: testResponse()}, testStopConfig())

	response, body := doRequest(t, stops, http.MethodGet, "/core/stops/1_75403/arrivals", "")
	require.Equal(t, http.StatusOK, response.StatusCode)

	var arrivals []map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &arrivals))
	require.Len(t, arrivals, 2)
	assert.Equal(t, "43", arrivals[0]["RouteShortName"])
	assert.Equal(t, "Predicted", arrivals[0]["Type"])
	assert.Equal(t, "49", arrivals[1]["RouteShortName"])
	assert.Equal(t, "Scheduled", arrivals[1]["Type"])

	response, body = doRequest(t, stops, http.MethodGet, "/core/stops/1_75403/arrivals?count=1", "")
	require.Equal(t, http.StatusOK, response.StatusCode)
	require.NoError(t, json.Unmarshal(body, &arrivals))
	assert.Len(t, arrivals, 1)

	response, _ = doRequest(t, stops, http.MethodGet, "/core/stops/1_75403/arrivals?count=many", "")
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)

	failing, _, _ := newTestStops(&fakeFetcher{err: &onebusaway.APIError{Kind: onebusaway.ErrorKindCommunication, Message: "Timeout error fetching information"}}, testStopConfig())
	response, _ = doRequest(t, failing, http.MethodGet, "/core/stops/1_75403/arrivals", "")
	assert.Equal(t, http.StatusBadGateway, response.StatusCode)
}

func TestGetStopDashboard(t *testing.T) {
	stops, _, _ := newTestStops(&fakeFetcher{}, testStopConfig())

	response, body := doRequest(t, stops, http.MethodGet, "/core/stops/1_75403/dashboard?arrivals=1", "")
	require.Equal(t, http.StatusOK, response.StatusCode)
	assert.Contains(t, response.Header.Get("Content-Type"), "text/yaml")
	assert.Contains(t, string(body), "sensor.onebusaway_1_75403_arrival_0")
	assert.NotContains(t, string(body), "sensor.onebusaway_1_75403_arrival_1")

	var card dashboard.Card
	require.NoError(t, yaml.Unmarshal(body, &card))
	require.Len(t, card.Cards, 2)
	assert.Equal(t, "{{ state_attr('sensor.onebusaway_1_75403_situations', 'markdown_content') }}", card.Cards[1].Content)
}

func TestGetStopsStats(t *testing.T) {
	reauth := testStopConfig()
	reauth.PrimaryIdentifier = "1_10914"
	reauth.State = ctdf.StopConfigStateReauthRequired

	stops, _, _ := newTestStops(&fakeFetcher{}, testStopConfig(), reauth)

	response, body := doRequest(t, stops, http.MethodGet, "/core/stats/stops", "")
	require.Equal(t, http.StatusOK, response.StatusCode)
	assert.JSONEq(t, `{"Total": 2, "Loaded": 1, "ReauthRequired": 1, "SetupError": 0, "Failing": 0}`, string(body))
}
