package onebusaway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const DefaultURL = "https://api.pugetsound.onebusaway.org/api"

const requestTimeout = 10 * time.Second

type Client struct {
	BaseURL string
	Key     string

	HTTPClient *http.Client
}

func NewClient(baseURL string, key string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Key:     key,
		HTTPClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

func (c *Client) arrivalsURL(stopID string) string {
	return fmt.Sprintf(
		"%s/where/arrivals-and-departures-for-stop/%s.json?key=%s",
		c.BaseURL, url.PathEscape(stopID), url.QueryEscape(c.Key),
	)
}

// GetArrivalsAndDepartures returns the current arrivals & departures board for a stop
func (c *Client) GetArrivalsAndDepartures(ctx context.Context, stopID string) (*ArrivalsAndDeparturesResponse, error) {
	var response ArrivalsAndDeparturesResponse

	if err := c.get(ctx, c.arrivalsURL(stopID), &response); err != nil {
		return nil, err
	}

	log.Debug().
		Str("stop", stopID).
		Int("arrivals", len(response.Data.Entry.ArrivalsAndDepartures)).
		Int("situations", len(response.Data.References.Situations)).
		Msg("Retrieved arrivals and departures")

	return &response, nil
}

func (c *Client) get(ctx context.Context, requestURL string, destination *ArrivalsAndDeparturesResponse) error {
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return newAPIError(ErrorKindUnknown, err, "Something really wrong happened!")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return newAPIError(ErrorKindAuthentication, nil, "Invalid credentials")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(ErrorKindUnknown, nil, fmt.Sprintf("unexpected HTTP status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyTransportError(err)
	}

	if err := json.Unmarshal(body, destination); err != nil {
		return newAPIError(ErrorKindUnknown, errors.Wrap(err, "decode response"), "Something really wrong happened!")
	}

	// OneBusAway mirrors the status inside the body and some deployments answer 200 with a 401 code
	switch destination.Code {
	case 0, http.StatusOK:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return newAPIError(ErrorKindAuthentication, nil, "Invalid credentials")
	default:
		return newAPIError(ErrorKindUnknown, nil, fmt.Sprintf("API returned code %d: %s", destination.Code, destination.Text))
	}
}

func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return newAPIError(ErrorKindCommunication, err, "Timeout error fetching information")
	}

	return newAPIError(ErrorKindCommunication, err, "Error fetching information")
}
