package airquality

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
)

// maxResponseBytes bounds how much of the API response body is read.
const maxResponseBytes = 1 << 20

// Client fetches the current air-quality reading from the AirVisual
// nearest_city endpoint. Each Fetch issues exactly one GET; retry scheduling
// belongs to the caller.
type Client struct {
	name      string
	apiKey    string
	baseURL   string
	userAgent string
	client    *http.Client
	circuit   *gobreaker.CircuitBreaker
	log       *slog.Logger
}

// NewClient creates an AirVisual client sharing the given HTTP client.
func NewClient(httpClient *http.Client, apiKey, userAgent string, log *slog.Logger) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "airvisual",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		name:      "airvisual",
		apiKey:    apiKey,
		baseURL:   "http://api.airvisual.com/v2/nearest_city",
		userAgent: userAgent,
		client:    httpClient,
		circuit:   cb,
		log:       log,
	}
}

// Fetch requests the nearest-city reading for the given coordinates.
// Failures are always a *FetchError; the HTTP status determines the kind:
// 401/403 auth, 429 rate limit, everything else transient. A well-formed
// 200 body that fails validation is an invalid-response error.
func (c *Client) Fetch(ctx context.Context, lat, lon float64) (Reading, error) {
	if c.apiKey == "" {
		return Reading{}, &FetchError{Kind: KindAuthFailed, Msg: "api key is not configured"}
	}

	values := url.Values{}
	values.Set("lat", fmt.Sprintf("%f", lat))
	values.Set("lon", fmt.Sprintf("%f", lon))
	values.Set("key", c.apiKey)

	u := fmt.Sprintf("%s?%s", c.baseURL, values.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Reading{}, &FetchError{Kind: KindTransient, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	result, err := c.circuit.Execute(func() (interface{}, error) {
		return c.do(req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return Reading{}, &FetchError{Kind: KindTransient, Err: err, Msg: "circuit breaker open"}
		}
		var fe *FetchError
		if errors.As(err, &fe) {
			return Reading{}, fe
		}
		return Reading{}, &FetchError{Kind: KindTransient, Err: err}
	}

	reading, ok := result.(Reading)
	if !ok {
		return Reading{}, &FetchError{Kind: KindInvalidResponse, Msg: "unexpected result type from circuit breaker"}
	}
	return reading, nil
}

// do performs the request and maps the response to a Reading or a typed error.
func (c *Client) do(req *http.Request) (Reading, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return Reading{}, &FetchError{Kind: KindTransient, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to body parsing below
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Reading{}, &FetchError{Kind: KindAuthFailed, Status: resp.StatusCode, Msg: "authentication failed, check api key"}
	case resp.StatusCode == http.StatusTooManyRequests:
		return Reading{}, &FetchError{Kind: KindRateLimited, Status: resp.StatusCode, Msg: "rate limit exceeded"}
	case resp.StatusCode >= 500:
		return Reading{}, &FetchError{Kind: KindTransient, Status: resp.StatusCode, Msg: "server error"}
	default:
		return Reading{}, &FetchError{Kind: KindTransient, Status: resp.StatusCode, Msg: "unexpected status code"}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Reading{}, &FetchError{Kind: KindTransient, Err: err}
	}

	return c.parse(body)
}

// parse validates the nearest_city payload and extracts a Reading.
func (c *Client) parse(body []byte) (Reading, error) {
	var payload struct {
		Status string `json:"status"`
		Data   struct {
			City    string `json:"city"`
			State   string `json:"state"`
			Country string `json:"country"`
			Current struct {
				Pollution struct {
					AQIUS  *float64 `json:"aqius"`
					MainUS string   `json:"mainus"`
				} `json:"pollution"`
			} `json:"current"`
		} `json:"data"`
	}

	if err := json.Unmarshal(body, &payload); err != nil {
		return Reading{}, &FetchError{Kind: KindInvalidResponse, Err: err}
	}

	if payload.Status != "success" {
		return Reading{}, &FetchError{Kind: KindInvalidResponse, Msg: fmt.Sprintf("api returned status %q", payload.Status)}
	}

	pollution := payload.Data.Current.Pollution
	if pollution.AQIUS == nil {
		return Reading{}, &FetchError{Kind: KindInvalidResponse, Msg: "response missing aqius field"}
	}

	aqi := int(*pollution.AQIUS)
	if *pollution.AQIUS != float64(aqi) || aqi < 0 {
		return Reading{}, &FetchError{Kind: KindInvalidResponse, Msg: fmt.Sprintf("invalid aqi value %v", *pollution.AQIUS)}
	}

	if pollution.MainUS == "" {
		return Reading{}, &FetchError{Kind: KindInvalidResponse, Msg: "response missing mainus field"}
	}
	if !KnownPollutant(pollution.MainUS) && c.log != nil {
		c.log.Warn("unknown pollutant code", "code", pollution.MainUS)
	}

	if c.log != nil {
		c.log.Debug("reading location",
			"city", payload.Data.City,
			"state", payload.Data.State,
			"country", payload.Data.Country,
		)
	}

	return Reading{
		AQI:           aqi,
		MainPollutant: PollutantName(pollution.MainUS),
		Level:         LevelForAQI(aqi),
		ObservedAt:    time.Now().UTC(),
	}, nil
}
