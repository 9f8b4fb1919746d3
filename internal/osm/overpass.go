package osm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"github.com/twpayne/go-geom"

	"sar_command/internal/divisions"
	"sar_command/internal/geomath"
	"sar_command/internal/monitoring"
)

// DefaultCacheSize bounds the per-kind bounding-box caches.
const DefaultCacheSize = 128

// overpassElement is the subset of an Overpass JSON element we decode.
// Malformed elements are skipped, never fatal.
type overpassElement struct {
	Type     string            `json:"type"`
	ID       int64             `json:"id"`
	Tags     map[string]string `json:"tags"`
	Geometry []struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"geometry"`
	Center *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"center"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

// Client fetches map data from Overpass/Nominatim. Buildings and roads are
// cached per bounding box for the process lifetime of the client, so
// repeated generation requests over the same area hit the network once.
// The caches are bounded LRUs and safe for concurrent use.
type Client struct {
	OverpassURL  string
	NominatimURL string

	buildingCache *lru.Cache[string, []divisions.Building]
	roadCache     *lru.Cache[string, []divisions.RoadSegment]
}

var (
	defaultClient *Client
	clientOnce    sync.Once
)

// Default returns the shared client, built lazily from the environment.
func Default() *Client {
	clientOnce.Do(func() {
		size := DefaultCacheSize
		if v := baseURL("OSM_CACHE_SIZE", ""); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				size = n
			}
		}
		defaultClient = NewClient(
			baseURL("OVERPASS_BASE_URL", DefaultOverpassURL),
			baseURL("NOMINATIM_BASE_URL", DefaultNominatimURL),
			size,
		)
	})
	return defaultClient
}

// NewClient builds a client with bounded bbox caches of the given size.
func NewClient(overpassURL, nominatimURL string, cacheSize int) *Client {
	buildingCache, _ := lru.New[string, []divisions.Building](cacheSize)
	roadCache, _ := lru.New[string, []divisions.RoadSegment](cacheSize)
	return &Client{
		OverpassURL:   overpassURL,
		NominatimURL:  nominatimURL,
		buildingCache: buildingCache,
		roadCache:     roadCache,
	}
}

// FetchBuildings returns every tagged building footprint inside the box.
func (c *Client) FetchBuildings(ctx context.Context, box divisions.BoundingBox) ([]divisions.Building, error) {
	if cached, ok := c.buildingCache.Get(box.Key()); ok {
		monitoring.RecordCacheHit("buildings")
		return cached, nil
	}
	monitoring.RecordCacheMiss("buildings")

	query := fmt.Sprintf(
		`[out:json][timeout:25];(way["building"](%f,%f,%f,%f););out geom;`,
		box.MinLat, box.MinLng, box.MaxLat, box.MaxLng,
	)
	elements, err := c.runOverpass(ctx, query)
	if err != nil {
		return nil, err
	}

	var buildings []divisions.Building
	for _, el := range elements {
		b, ok := decodeBuilding(el)
		if !ok {
			continue
		}
		buildings = append(buildings, b)
	}
	logrus.WithFields(logrus.Fields{"bbox": box.Key(), "buildings": len(buildings)}).Debug("fetched buildings from Overpass")

	c.buildingCache.Add(box.Key(), buildings)
	return buildings, nil
}

// FetchRoads returns every highway polyline inside the box.
func (c *Client) FetchRoads(ctx context.Context, box divisions.BoundingBox) ([]divisions.RoadSegment, error) {
	if cached, ok := c.roadCache.Get(box.Key()); ok {
		monitoring.RecordCacheHit("roads")
		return cached, nil
	}
	monitoring.RecordCacheMiss("roads")

	query := fmt.Sprintf(
		`[out:json][timeout:25];(way["highway"](%f,%f,%f,%f););out geom;`,
		box.MinLat, box.MinLng, box.MaxLat, box.MaxLng,
	)
	elements, err := c.runOverpass(ctx, query)
	if err != nil {
		return nil, err
	}

	var roads []divisions.RoadSegment
	for _, el := range elements {
		line := elementLine(el)
		if line == nil {
			continue
		}
		roads = append(roads, divisions.RoadSegment{Name: el.Tags["name"], Line: line})
	}
	logrus.WithFields(logrus.Fields{"bbox": box.Key(), "roads": len(roads)}).Debug("fetched roads from Overpass")

	c.roadCache.Add(box.Key(), roads)
	return roads, nil
}

// runOverpass posts a QL query the way the API expects: a form-encoded
// "data" parameter.
func (c *Client) runOverpass(ctx context.Context, query string) ([]overpassElement, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.OverpassURL,
		strings.NewReader("data="+url.QueryEscape(query)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := doRequest(ctx, "overpass", overpassLimiter, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var decoded overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode overpass response: %w", err)
	}
	return decoded.Elements, nil
}

// decodeBuilding converts one way element into a Building. Elements without
// a usable ring are skipped.
func decodeBuilding(el overpassElement) (divisions.Building, bool) {
	footprint := elementRing(el)
	if footprint == nil {
		return divisions.Building{}, false
	}
	levels := 1
	if raw, ok := el.Tags["building:levels"]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && n > 0 {
			levels = n
		}
	}
	area := geomath.AreaM2(footprint)
	return divisions.Building{
		Footprint:        footprint,
		Type:             el.Tags["building"],
		Levels:           levels,
		FootprintAreaM2:  area,
		SearchableAreaM2: area * float64(levels),
		Centroid:         geomath.Centroid(footprint),
	}, true
}

func elementRing(el overpassElement) *geom.Polygon {
	if len(el.Geometry) < 3 {
		return nil
	}
	ring := make([]geom.Coord, 0, len(el.Geometry))
	for _, pt := range el.Geometry {
		ring = append(ring, geom.Coord{pt.Lon, pt.Lat})
	}
	return geomath.PolygonFromRing(ring)
}

func elementLine(el overpassElement) *geom.LineString {
	if len(el.Geometry) < 2 {
		return nil
	}
	coords := make([]geom.Coord, 0, len(el.Geometry))
	for _, pt := range el.Geometry {
		coords = append(coords, geom.Coord{pt.Lon, pt.Lat})
	}
	return geomath.LineFromCoords(coords)
}
