package divisions

import (
	"fmt"
	"math"
	"sort"

	"github.com/twpayne/go-geom"

	"sar_command/internal/geomath"
)

// ClassifyPriority ranks a division polygon against the incident point.
// Containment always means high. Otherwise the centroid distance is
// compared against the division's own bounding diagonal (max of width and
// height), which keeps the thresholds scale-relative: within 1.5x the
// diagonal is high, within 3x medium, beyond that low. No incident point
// means low.
func ClassifyPriority(poly *geom.Polygon, incident geom.Coord) string {
	if incident == nil || poly == nil || poly.NumLinearRings() == 0 {
		return PriorityLow
	}
	if geomath.PolygonContains(poly, incident) {
		return PriorityHigh
	}
	centroid := geomath.Centroid(poly)
	if centroid == nil {
		return PriorityLow
	}
	b := poly.Bounds()
	diagonal := math.Max(b.Max(0)-b.Min(0), b.Max(1)-b.Min(1))
	if diagonal <= 0 {
		return PriorityLow
	}
	dist := geomath.Distance(centroid, incident)
	switch {
	case dist <= 1.5*diagonal:
		return PriorityHigh
	case dist <= 3*diagonal:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// BuildingTypeSummary returns the top three building types by count,
// formatted "Type (count)", counts descending. The generic OSM "yes" tag is
// normalized to a human label.
func BuildingTypeSummary(buildings []Building) []string {
	counts := make(map[string]int)
	for _, b := range buildings {
		t := b.Type
		if t == "" || t == "yes" {
			t = "structure"
		}
		counts[t]++
	}
	type entry struct {
		name  string
		count int
	}
	entries := make([]entry, 0, len(counts))
	for name, count := range counts {
		entries = append(entries, entry{name, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].name < entries[j].name
	})
	if len(entries) > 3 {
		entries = entries[:3]
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = fmt.Sprintf("%s (%d)", e.name, e.count)
	}
	return out
}

// RoadAccessSummary describes how many road segments serve a division.
func RoadAccessSummary(segmentCount int) string {
	switch segmentCount {
	case 0:
		return "No roads"
	case 1:
		return "Single road access"
	default:
		return fmt.Sprintf("%d connected roads", segmentCount)
	}
}

// EstimatedDurationHours converts searchable floor area into team-hours at
// the sweep rate, never reporting less than one hour.
func EstimatedDurationHours(searchableAreaM2 float64) float64 {
	return math.Max(1, searchableAreaM2/SweepRateM2PerHour)
}

// AssembleWalkable turns a sealed draft into a final Division. The member
// building footprints and road lines are merged into one coherent boundary
// (union, buffered by the road-proximity margin, clipped to the search
// area, largest part kept). Returns nil when the draft's geometry collapses
// to nothing.
func AssembleWalkable(index int, draft Draft, buildings []Building, g *RoadGraph, boundary *geom.Polygon, incident geom.Coord) *Division {
	var geoms []geom.T
	for _, bi := range draft.Buildings {
		if buildings[bi].Footprint != nil {
			geoms = append(geoms, buildings[bi].Footprint)
		}
	}
	for _, edgeID := range draft.EdgeIDs {
		geoms = append(geoms, g.Edges[edgeID].Line)
	}
	poly := geomath.BufferUnionClip(geoms, RoadProximityBuffer, boundary)
	if poly == nil {
		return nil
	}

	code := LetterCode(index)
	return &Division{
		Code:                   code,
		Name:                   "Division " + code,
		Polygon:                poly,
		AreaM2:                 geomath.AreaM2(poly),
		StructureCount:         len(draft.Buildings),
		SearchableAreaM2:       draft.SearchableAreaM2,
		BuildingTypeSummary:    BuildingTypeSummary(pick(buildings, draft.Buildings)),
		RoadAccessSummary:      RoadAccessSummary(len(draft.EdgeIDs)),
		Priority:               ClassifyPriority(poly, incident),
		Status:                 StatusUnassigned,
		SearchType:             SearchTypeWalkable,
		EstimatedDurationHours: EstimatedDurationHours(draft.SearchableAreaM2),
	}
}

// AssembleGrid wraps a clipped grid cell as a Division. The cell polygon is
// used directly; there are no member buildings or roads.
func AssembleGrid(index int, cell *geom.Polygon, incident geom.Coord) *Division {
	if cell == nil {
		return nil
	}
	code := LetterCode(index)
	return &Division{
		Code:                   code,
		Name:                   "Division " + code,
		Polygon:                cell,
		AreaM2:                 geomath.AreaM2(cell),
		StructureCount:         0,
		SearchableAreaM2:       0,
		BuildingTypeSummary:    nil,
		RoadAccessSummary:      RoadAccessSummary(0),
		Priority:               ClassifyPriority(cell, incident),
		Status:                 StatusUnassigned,
		SearchType:             SearchTypePrimary,
		EstimatedDurationHours: EstimatedDurationHours(0),
	}
}

func pick(buildings []Building, indices []int) []Building {
	out := make([]Building, 0, len(indices))
	for _, i := range indices {
		out = append(out, buildings[i])
	}
	return out
}
