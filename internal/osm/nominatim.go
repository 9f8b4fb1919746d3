package osm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Geocode resolves a free-text address to a (lat, lng) pair via Nominatim.
// Returns an error when the address produces no results.
func (c *Client) Geocode(ctx context.Context, address string) (lat, lng float64, err error) {
	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.NominatimURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return 0, 0, err
	}
	resp, err := doRequest(ctx, "nominatim", nominatimLimiter, req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	// Nominatim returns lat/lon as strings.
	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return 0, 0, fmt.Errorf("decode nominatim response: %w", err)
	}
	if len(results) == 0 {
		return 0, 0, fmt.Errorf("no geocoding results for %q", address)
	}
	lat, err = strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad latitude in nominatim response: %w", err)
	}
	lng, err = strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad longitude in nominatim response: %w", err)
	}
	return lat, lng, nil
}
