// Package divisions implements the search-division generation engine: road
// graph construction, building-to-road mapping, walkable expansion from the
// incident point, the grid fallback partition, and assembly of the final
// division records.
package divisions

import (
	"errors"
	"fmt"

	"github.com/twpayne/go-geom"
)

// Tolerances are in degree-approximated units (see geomath).
const (
	// NodeMergeTolerance collapses near-duplicate road endpoints into one
	// graph node (~10 m at mid latitudes).
	NodeMergeTolerance = 0.0001

	// RoadProximityBuffer is the maximum distance at which a building is
	// considered "on" a road (~100 m), and the margin used when buffering
	// division boundaries around their roads.
	RoadProximityBuffer = 0.001

	// MaxDivisions is the hard safety cap on the expansion loop.
	MaxDivisions = 20

	// SweepRateM2PerHour converts searchable floor area into an estimated
	// search duration.
	SweepRateM2PerHour = 2500.0
)

// ErrInvalidSearchArea is returned when the search area ring has fewer than
// three distinct vertices or is otherwise unusable.
var ErrInvalidSearchArea = errors.New("search area must be a simple polygon with at least 3 distinct vertices")

// Priority levels for a division, relative to the incident point.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Search types distinguish road-network divisions from grid cells.
const (
	SearchTypeWalkable = "walkable_structure_search"
	SearchTypePrimary  = "primary"
)

// StatusUnassigned is the initial status of every generated division.
const StatusUnassigned = "unassigned"

// ExpansionMode selects how the walkable expander seals divisions.
type ExpansionMode int

const (
	// SealOnAreaTarget accumulates buildings as roads are traversed and
	// seals a division as soon as its searchable floor area reaches the
	// per-division target.
	SealOnAreaTarget ExpansionMode = iota

	// SealPerComponent disables the area check: the draft seals only when
	// the frontier empties, yielding one division per reachable road
	// component.
	SealPerComponent
)

// ParseExpansionMode maps a configuration string to a mode, defaulting to
// SealOnAreaTarget for unrecognized values.
func ParseExpansionMode(s string) ExpansionMode {
	if s == "component" {
		return SealPerComponent
	}
	return SealOnAreaTarget
}

// Building is a structure inside the search area, immutable once fetched.
type Building struct {
	Footprint        *geom.Polygon
	Type             string
	Levels           int
	FootprintAreaM2  float64
	SearchableAreaM2 float64
	Centroid         geom.Coord
}

// RoadSegment is a road polyline as fetched, before clipping to the area.
type RoadSegment struct {
	Name string
	Line *geom.LineString
}

// Division is the final record handed to callers and the store.
type Division struct {
	Code                   string
	Name                   string
	Polygon                *geom.Polygon
	AreaM2                 float64
	StructureCount         int
	SearchableAreaM2       float64
	BuildingTypeSummary    []string
	RoadAccessSummary      string
	Priority               string
	Status                 string
	SearchType             string
	EstimatedDurationHours float64
}

// Draft is the working state of one division during walkable expansion.
type Draft struct {
	Buildings        []int
	EdgeIDs          []int
	SearchableAreaM2 float64
}

func (d *Draft) empty() bool {
	return len(d.Buildings) == 0 && len(d.EdgeIDs) == 0
}

// BoundingBox is an axis-aligned lng/lat extent.
type BoundingBox struct {
	MinLng, MinLat, MaxLng, MaxLat float64
}

// Key renders the box as a stable cache key.
func (b BoundingBox) Key() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", b.MinLng, b.MinLat, b.MaxLng, b.MaxLat)
}

// BoundsOf computes the bounding box of a ring.
func BoundsOf(ring []geom.Coord) BoundingBox {
	box := BoundingBox{MinLng: ring[0].X(), MinLat: ring[0].Y(), MaxLng: ring[0].X(), MaxLat: ring[0].Y()}
	for _, c := range ring[1:] {
		if c.X() < box.MinLng {
			box.MinLng = c.X()
		}
		if c.X() > box.MaxLng {
			box.MaxLng = c.X()
		}
		if c.Y() < box.MinLat {
			box.MinLat = c.Y()
		}
		if c.Y() > box.MaxLat {
			box.MaxLat = c.Y()
		}
	}
	return box
}

// LetterCode converts a zero-based index to the division letter sequence
// "A".."Z","AA","AB",...
func LetterCode(i int) string {
	code := ""
	n := i + 1
	for n > 0 {
		n--
		code = string(rune('A'+n%26)) + code
		n /= 26
	}
	return code
}
