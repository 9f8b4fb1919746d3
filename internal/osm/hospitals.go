package osm

import (
	"context"
	"fmt"
	"sort"

	"sar_command/internal/geomath"
)

// Hospital is a medical facility near the incident, for casualty routing.
type Hospital struct {
	Name      string  `json:"name"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	DistanceM float64 `json:"distance_m"`
}

// FetchHospitals queries hospitals within radiusM meters of the point,
// sorted by great-circle distance.
func (c *Client) FetchHospitals(ctx context.Context, lat, lng, radiusM float64) ([]Hospital, error) {
	query := fmt.Sprintf(
		`[out:json][timeout:25];(node["amenity"="hospital"](around:%.0f,%f,%f);way["amenity"="hospital"](around:%.0f,%f,%f););out center;`,
		radiusM, lat, lng, radiusM, lat, lng,
	)
	elements, err := c.runOverpass(ctx, query)
	if err != nil {
		return nil, err
	}

	var hospitals []Hospital
	for _, el := range elements {
		hLat, hLng := el.Lat, el.Lon
		if el.Center != nil {
			hLat, hLng = el.Center.Lat, el.Center.Lon
		}
		if hLat == 0 && hLng == 0 {
			continue
		}
		name := el.Tags["name"]
		if name == "" {
			name = "Unnamed hospital"
		}
		hospitals = append(hospitals, Hospital{
			Name:      name,
			Lat:       hLat,
			Lng:       hLng,
			DistanceM: geomath.HaversineMeters(lat, lng, hLat, hLng),
		})
	}
	sort.Slice(hospitals, func(i, j int) bool {
		return hospitals[i].DistanceM < hospitals[j].DistanceM
	})
	return hospitals, nil
}
