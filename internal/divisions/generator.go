package divisions

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/twpayne/go-geom"

	"sar_command/internal/geomath"
	"sar_command/internal/monitoring"
)

// MapProvider supplies the buildings and roads inside a bounding box. The
// OSM-backed implementation lives in internal/osm; tests substitute fakes.
type MapProvider interface {
	FetchBuildings(ctx context.Context, box BoundingBox) ([]Building, error)
	FetchRoads(ctx context.Context, box BoundingBox) ([]RoadSegment, error)
}

// Store persists generated divisions per incident. ReplaceDivisions carries
// the replace-not-merge contract: all prior divisions for the incident are
// deleted before the new set is inserted.
type Store interface {
	ReplaceDivisions(ctx context.Context, incidentID uint, divs []Division) error
	LoadDivisions(ctx context.Context, incidentID uint) ([]Division, error)
	DeleteDivisions(ctx context.Context, incidentID uint) error
}

// Config carries the engine tunables.
type Config struct {
	// TargetAreaM2 is the searchable floor area budget per division, and
	// the divisor for the grid fallback's cell count.
	TargetAreaM2 float64

	// Mode selects the walkable sealing behavior.
	Mode ExpansionMode
}

// DefaultTargetAreaM2 is used when the caller passes no per-division target.
const DefaultTargetAreaM2 = 50000

// Generator runs the division pipeline against injected collaborators.
type Generator struct {
	provider MapProvider
	store    Store
	cfg      Config
}

// NewGenerator wires a generator. store may be nil when only previews are
// needed.
func NewGenerator(provider MapProvider, store Store, cfg Config) *Generator {
	if cfg.TargetAreaM2 <= 0 {
		cfg.TargetAreaM2 = DefaultTargetAreaM2
	}
	return &Generator{provider: provider, store: store, cfg: cfg}
}

// GeneratePreview partitions the search area without persisting anything.
// searchArea is the boundary ring in (lng, lat) order; targetAreaM2
// overrides the configured per-division target when positive; incident may
// be nil, which forces the grid fallback.
func (gen *Generator) GeneratePreview(ctx context.Context, searchArea []geom.Coord, targetAreaM2 float64, incident geom.Coord) ([]Division, error) {
	start := time.Now()
	divs, mode, err := gen.generate(ctx, searchArea, targetAreaM2, incident)
	if err != nil {
		monitoring.RecordGeneration("invalid", 0, time.Since(start))
		return nil, err
	}
	monitoring.RecordGeneration(mode, len(divs), time.Since(start))
	return divs, nil
}

// GenerateAndSave generates divisions and replaces the incident's stored
// set. A persistence failure is propagated; by then the old divisions may
// already be gone, which callers treat as "needs regeneration".
func (gen *Generator) GenerateAndSave(ctx context.Context, incidentID uint, searchArea []geom.Coord, targetAreaM2 float64, incident geom.Coord) ([]Division, error) {
	divs, err := gen.GeneratePreview(ctx, searchArea, targetAreaM2, incident)
	if err != nil {
		return nil, err
	}
	if err := gen.store.ReplaceDivisions(ctx, incidentID, divs); err != nil {
		logrus.WithError(err).WithField("incident_id", incidentID).Error("failed to persist divisions")
		return nil, err
	}
	return divs, nil
}

func (gen *Generator) generate(ctx context.Context, searchArea []geom.Coord, targetAreaM2 float64, incident geom.Coord) ([]Division, string, error) {
	boundary := geomath.PolygonFromRing(searchArea)
	if boundary == nil || geomath.RingSelfIntersects(searchArea) {
		return nil, "", ErrInvalidSearchArea
	}
	target := targetAreaM2
	if target <= 0 {
		target = gen.cfg.TargetAreaM2
	}

	if incident != nil {
		if divs := gen.generateWalkable(ctx, boundary, target, incident); len(divs) > 0 {
			return divs, "walkable", nil
		}
	}
	return gen.generateGrid(boundary, target, incident), "grid", nil
}

// generateWalkable runs the road-graph pipeline. Any provider failure or
// empty intermediate result returns nil so the caller degrades to the grid.
func (gen *Generator) generateWalkable(ctx context.Context, boundary *geom.Polygon, targetAreaM2 float64, incident geom.Coord) []Division {
	box := BoundsOf(boundary.Coords()[0])

	roads, err := gen.provider.FetchRoads(ctx, box)
	if err != nil {
		logrus.WithError(err).Warn("road fetch failed, falling back to grid partition")
		return nil
	}
	buildings, err := gen.provider.FetchBuildings(ctx, box)
	if err != nil {
		logrus.WithError(err).Warn("building fetch failed, falling back to grid partition")
		return nil
	}

	// Keep only structures whose centroid falls inside the boundary. The
	// fetched slice may be shared through the provider's cache, so filter
	// into a fresh one.
	kept := make([]Building, 0, len(buildings))
	for _, b := range buildings {
		if geomath.PolygonContains(boundary, b.Centroid) {
			kept = append(kept, b)
		}
	}
	buildings = kept
	if len(buildings) == 0 {
		return nil
	}

	graph := BuildRoadGraph(roads, boundary)
	if graph.Empty() {
		return nil
	}
	mapping := MapBuildingsToRoads(buildings, graph.EdgeLines())
	drafts := ExpandWalkable(graph, mapping, buildings, incident, targetAreaM2, gen.cfg.Mode)

	var divs []Division
	for _, draft := range drafts {
		if d := AssembleWalkable(len(divs), draft, buildings, graph, boundary, incident); d != nil {
			divs = append(divs, *d)
		}
	}
	return divs
}

func (gen *Generator) generateGrid(boundary *geom.Polygon, targetAreaM2 float64, incident geom.Coord) []Division {
	n := TargetDivisionCount(geomath.AreaM2(boundary), targetAreaM2)
	var divs []Division
	for _, cell := range GridPartition(boundary, n) {
		if d := AssembleGrid(len(divs), cell, incident); d != nil {
			divs = append(divs, *d)
		}
	}
	return divs
}
