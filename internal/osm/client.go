// Package osm talks to the OpenStreetMap public services: Overpass for
// buildings, roads and hospitals, Nominatim for address geocoding. Results
// that feed the division engine are cached per bounding box.
package osm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"

	"sar_command/internal/monitoring"
)

const (
	// DefaultOverpassURL is the public Overpass API endpoint.
	DefaultOverpassURL = "https://overpass-api.de/api/interpreter"

	// DefaultNominatimURL is the public Nominatim endpoint.
	DefaultNominatimURL = "https://nominatim.openstreetmap.org"

	// UserAgent identifies this service to the OSM operators, who require
	// a descriptive agent string.
	UserAgent = "sar-command/1.0"

	requestTimeout = 30 * time.Second
)

var (
	// Shared HTTP client with connection pooling.
	httpClient *http.Client

	// The public OSM services ask for at most one request per second.
	overpassLimiter  *rate.Limiter
	nominatimLimiter *rate.Limiter
)

func init() {
	httpClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
		Timeout: requestTimeout,
	}
	overpassLimiter = rate.NewLimiter(rate.Limit(1), 1)
	nominatimLimiter = rate.NewLimiter(rate.Limit(1), 1)
}

// doRequest waits on the service's rate limiter, performs the request and
// records the provider metrics. The caller owns the response body.
func doRequest(ctx context.Context, service string, limiter *rate.Limiter, req *http.Request) (*http.Response, error) {
	if err := limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgent)

	start := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		monitoring.RecordProviderRequest(service, "error", time.Since(start))
		return nil, err
	}
	monitoring.RecordProviderRequest(service, fmt.Sprintf("%d", resp.StatusCode), time.Since(start))

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("%s returned status %d", service, resp.StatusCode)
	}
	return resp, nil
}

// baseURL reads a service base URL from the environment with a default.
func baseURL(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
