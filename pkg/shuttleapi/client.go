package shuttleapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/shuttletrack/pkg/metrics"
	"github.com/travigo/shuttletrack/pkg/shuttle"
)

const (
	EndpointCurrentLocation = "/api/shuttle/current"
	EndpointDistance        = "/api/shuttle/distance"
	EndpointActiveRoute     = "/api/route/active"
	EndpointLocations       = "/api/locations"
)

// StopCache keeps the last good stop list for when the backend is unreachable
type StopCache interface {
	Store(ctx context.Context, stops []shuttle.Stop) error
	Load(ctx context.Context) ([]shuttle.Stop, error)
}

// Client reads the shuttle backend REST API. Every call is independent and
// reports failure with ok=false instead of an error; callers keep what they
// already display.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Timeout time.Duration

	Stops   StopCache
	Metrics *metrics.Collector
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{},
		Timeout: timeout,
	}
}

func (c *Client) GetCurrentLocation(ctx context.Context) (shuttle.Position, bool) {
	var position shuttle.Position
	ok := c.get(ctx, EndpointCurrentLocation, &position)

	return position, ok
}

func (c *Client) GetDistanceStats(ctx context.Context) (shuttle.DistanceStats, bool) {
	var stats shuttle.DistanceStats
	ok := c.get(ctx, EndpointDistance, &stats)

	return stats, ok
}

func (c *Client) GetDistanceToday(ctx context.Context) (float64, bool) {
	stats, ok := c.GetDistanceStats(ctx)

	return stats.Today, ok
}

func (c *Client) GetActiveRoute(ctx context.Context) (shuttle.ActiveRoute, bool) {
	var route shuttle.ActiveRoute
	ok := c.get(ctx, EndpointActiveRoute, &route)

	return route, ok
}

func (c *Client) GetStops(ctx context.Context) ([]shuttle.Stop, bool) {
	var stops []shuttle.Stop
	if c.get(ctx, EndpointLocations, &stops) {
		if c.Stops != nil {
			if err := c.Stops.Store(ctx, stops); err != nil {
				log.Warn().Err(err).Msg("Failed to cache stop list")
			}
		}
		return stops, true
	}

	if c.Stops == nil {
		return nil, false
	}

	cached, err := c.Stops.Load(ctx)
	if err != nil || len(cached) == 0 {
		return nil, false
	}
	log.Info().Int("stops", len(cached)).Msg("Using cached stop list")

	return cached, true
}

func (c *Client) get(ctx context.Context, endpoint string, target interface{}) bool {
	startTime := time.Now()
	err := c.fetch(ctx, endpoint, target)
	c.Metrics.RESTObserve(endpoint, time.Since(startTime))

	if err != nil {
		log.Error().Err(err).Str("endpoint", endpoint).Msg("Backend request failed")
		c.Metrics.RESTFailed(endpoint)
		return false
	}

	return true
}

func (c *Client) fetch(ctx context.Context, endpoint string, target interface{}) error {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
