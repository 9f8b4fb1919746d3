package divisions

import (
	"math"

	"github.com/twpayne/go-geom"

	"sar_command/internal/geomath"
)

// MapBuildingsToRoads assigns each building to the nearest of the given road
// lines, keeping only assignments within RoadProximityBuffer. The result
// maps a road index to the building indices nearest it; buildings with no
// road in range are left out and never join a walkable division.
//
// The scan is O(buildings x roads), fine at the expected scale of hundreds
// of each. An R-tree would make this sub-quadratic if inputs grow.
func MapBuildingsToRoads(buildings []Building, roads []*geom.LineString) map[int][]int {
	mapping := make(map[int][]int)
	for bi, b := range buildings {
		if b.Centroid == nil {
			continue
		}
		best := -1
		bestDist := math.MaxFloat64
		for ri, road := range roads {
			if road == nil {
				continue
			}
			if d := geomath.DistanceToLineString(b.Centroid, road); d < bestDist {
				bestDist = d
				best = ri
			}
		}
		if best != -1 && bestDist <= RoadProximityBuffer {
			mapping[best] = append(mapping[best], bi)
		}
	}
	return mapping
}
