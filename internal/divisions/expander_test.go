package divisions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"sar_command/internal/geomath"
)

// buildingAt makes a ~20 m square building centered on (x, y) with the
// given floor count.
func buildingAt(t *testing.T, x, y float64, levels int, kind string) Building {
	t.Helper()
	const half = 0.0001
	footprint := geomath.PolygonFromRing([]geom.Coord{
		{x - half, y - half}, {x + half, y - half}, {x + half, y + half}, {x - half, y + half},
	})
	require.NotNil(t, footprint)
	area := geomath.AreaM2(footprint)
	return Building{
		Footprint:        footprint,
		Type:             kind,
		Levels:           levels,
		FootprintAreaM2:  area,
		SearchableAreaM2: area * float64(levels),
		Centroid:         geom.Coord{x, y},
	}
}

func TestMapBuildingsToRoads(t *testing.T) {
	roads := []*geom.LineString{
		line(t, geom.Coord{0.001, 0.002}, geom.Coord{0.009, 0.002}),
		line(t, geom.Coord{0.001, 0.008}, geom.Coord{0.009, 0.008}),
	}
	buildings := []Building{
		buildingAt(t, 0.005, 0.0025, 1, "house"), // near road 0
		buildingAt(t, 0.005, 0.0075, 1, "house"), // near road 1
		buildingAt(t, 0.005, 0.005, 1, "house"),  // ~170 m from both, unmapped
	}

	mapping := MapBuildingsToRoads(buildings, roads)
	assert.Equal(t, []int{0}, mapping[0])
	assert.Equal(t, []int{1}, mapping[1])

	mapped := 0
	for _, list := range mapping {
		mapped += len(list)
	}
	assert.Equal(t, 2, mapped, "the distant building must stay unmapped")
}

// chainScenario builds a three-edge road chain with one building on each
// edge and the incident at the chain's west end.
func chainScenario(t *testing.T) (*RoadGraph, map[int][]int, []Building, geom.Coord) {
	t.Helper()
	boundary := testBoundary(t)
	roads := []RoadSegment{
		{Line: line(t, geom.Coord{0.001, 0.005}, geom.Coord{0.004, 0.005})},
		{Line: line(t, geom.Coord{0.004, 0.005}, geom.Coord{0.007, 0.005})},
		{Line: line(t, geom.Coord{0.007, 0.005}, geom.Coord{0.0095, 0.005})},
	}
	g := BuildRoadGraph(roads, boundary)
	require.Equal(t, 3, len(g.Edges))

	buildings := []Building{
		buildingAt(t, 0.0025, 0.0054, 2, "house"),
		buildingAt(t, 0.0055, 0.0054, 1, "apartments"),
		buildingAt(t, 0.0085, 0.0054, 1, "commercial"),
	}
	mapping := MapBuildingsToRoads(buildings, g.EdgeLines())
	require.Len(t, mapping, 3)

	return g, mapping, buildings, geom.Coord{0.001, 0.005}
}

func TestExpandSealsOnAreaTarget(t *testing.T) {
	g, mapping, buildings, incident := chainScenario(t)

	// A target below any single building's area seals a division per
	// traversal step.
	drafts := ExpandWalkable(g, mapping, buildings, incident, 1, SealOnAreaTarget)
	assert.Equal(t, 3, len(drafts))
	for _, d := range drafts {
		assert.Len(t, d.Buildings, 1)
		assert.Greater(t, d.SearchableAreaM2, 0.0)
	}
	assertBuildingsDisjoint(t, drafts, len(buildings))
}

func TestExpandAccumulatesUntilTarget(t *testing.T) {
	g, mapping, buildings, incident := chainScenario(t)

	// A target above the combined area keeps everything in one division.
	total := 0.0
	for _, b := range buildings {
		total += b.SearchableAreaM2
	}
	drafts := ExpandWalkable(g, mapping, buildings, incident, total*2, SealOnAreaTarget)
	require.Equal(t, 1, len(drafts))
	assert.Len(t, drafts[0].Buildings, 3)
	assert.InDelta(t, total, drafts[0].SearchableAreaM2, 1e-6)
}

func TestExpandSealPerComponentIgnoresTarget(t *testing.T) {
	g, mapping, buildings, incident := chainScenario(t)

	// Even a tiny target must not split the component in this mode.
	drafts := ExpandWalkable(g, mapping, buildings, incident, 1, SealPerComponent)
	require.Equal(t, 1, len(drafts))
	assert.Len(t, drafts[0].Buildings, 3)
}

func TestExpandBuildingUniqueness(t *testing.T) {
	g, mapping, buildings, incident := chainScenario(t)

	for _, mode := range []ExpansionMode{SealOnAreaTarget, SealPerComponent} {
		drafts := ExpandWalkable(g, mapping, buildings, incident, 1, mode)
		assertBuildingsDisjoint(t, drafts, len(buildings))
	}
}

func TestExpandOneRoadTwoBuildings(t *testing.T) {
	boundary := testBoundary(t)
	roads := []RoadSegment{
		{Line: line(t, geom.Coord{0.001, 0.005}, geom.Coord{0.009, 0.005})},
	}
	g := BuildRoadGraph(roads, boundary)
	buildings := []Building{
		buildingAt(t, 0.003, 0.0054, 1, "house"),
		buildingAt(t, 0.007, 0.0054, 1, "house"),
	}
	mapping := MapBuildingsToRoads(buildings, g.EdgeLines())

	// Target below the combined area: the single road pulls both
	// buildings in one BFS pass, so they land in one division together.
	drafts := ExpandWalkable(g, mapping, buildings, geom.Coord{0.001, 0.005}, 1, SealOnAreaTarget)
	total := 0
	for _, d := range drafts {
		total += len(d.Buildings)
	}
	assert.Equal(t, 2, total)
	assertBuildingsDisjoint(t, drafts, len(buildings))
}

func TestExpandStopsAtDivisionCap(t *testing.T) {
	boundary := testBoundary(t)

	// A thirty-edge chain with one building per edge: at a one square
	// meter target every edge would seal its own division.
	const step = 0.0003
	var roads []RoadSegment
	var buildings []Building
	for i := 0; i < 30; i++ {
		x0 := 0.0005 + float64(i)*step
		roads = append(roads, RoadSegment{Line: line(t, geom.Coord{x0, 0.005}, geom.Coord{x0 + step, 0.005})})
		buildings = append(buildings, buildingAt(t, x0+step/2, 0.0054, 1, "house"))
	}
	g := BuildRoadGraph(roads, boundary)
	require.Equal(t, 30, len(g.Edges))
	mapping := MapBuildingsToRoads(buildings, g.EdgeLines())
	require.Len(t, mapping, 30)

	drafts := ExpandWalkable(g, mapping, buildings, geom.Coord{0.0005, 0.005}, 1, SealOnAreaTarget)
	assert.Equal(t, MaxDivisions, len(drafts))
	assertBuildingsDisjoint(t, drafts, len(buildings))
}

func TestExpandDiscardsBuildinglessDrafts(t *testing.T) {
	boundary := testBoundary(t)
	roads := []RoadSegment{
		{Line: line(t, geom.Coord{0.001, 0.005}, geom.Coord{0.009, 0.005})},
	}
	g := BuildRoadGraph(roads, boundary)

	// Roads but no buildings anywhere: nothing to seal.
	drafts := ExpandWalkable(g, map[int][]int{}, nil, geom.Coord{0.001, 0.005}, 1, SealOnAreaTarget)
	assert.Empty(t, drafts)
}

func TestExpandEmptyGraph(t *testing.T) {
	g := BuildRoadGraph(nil, testBoundary(t))
	drafts := ExpandWalkable(g, nil, nil, geom.Coord{0.005, 0.005}, 1, SealOnAreaTarget)
	assert.Nil(t, drafts)
}

func TestExpandNoIncident(t *testing.T) {
	g, mapping, buildings, _ := chainScenario(t)
	drafts := ExpandWalkable(g, mapping, buildings, nil, 1, SealOnAreaTarget)
	assert.Nil(t, drafts)
}

// assertBuildingsDisjoint checks the core invariant: no building appears in
// two divisions, and only known buildings appear at all.
func assertBuildingsDisjoint(t *testing.T, drafts []Draft, buildingCount int) {
	t.Helper()
	seen := make(map[int]bool)
	for _, d := range drafts {
		for _, bi := range d.Buildings {
			assert.False(t, seen[bi], "building %d assigned to two divisions", bi)
			assert.Less(t, bi, buildingCount)
			seen[bi] = true
		}
	}
}
