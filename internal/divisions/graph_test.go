package divisions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/twpayne/go-geom"

	"sar_command/internal/geomath"
)

func testBoundary(t *testing.T) *geom.Polygon {
	t.Helper()
	boundary := geomath.PolygonFromRing([]geom.Coord{
		{0, 0}, {0.01, 0}, {0.01, 0.01}, {0, 0.01},
	})
	if boundary == nil {
		t.Fatal("boundary construction failed")
	}
	return boundary
}

func line(t *testing.T, coords ...geom.Coord) *geom.LineString {
	t.Helper()
	ls := geomath.LineFromCoords(coords)
	if ls == nil {
		t.Fatal("line construction failed")
	}
	return ls
}

func TestBuildRoadGraphEmptyInput(t *testing.T) {
	g := BuildRoadGraph(nil, testBoundary(t))
	assert.True(t, g.Empty())
	assert.Equal(t, -1, g.NearestNode(geom.Coord{0.005, 0.005}))
}

func TestBuildRoadGraphMergesNearbyEndpoints(t *testing.T) {
	boundary := testBoundary(t)
	roads := []RoadSegment{
		{Name: "first", Line: line(t, geom.Coord{0.001, 0.005}, geom.Coord{0.005, 0.005})},
		// Second road starts within the merge tolerance of the first's end.
		{Name: "second", Line: line(t, geom.Coord{0.005 + 0.00005, 0.005}, geom.Coord{0.009, 0.005})},
	}
	g := BuildRoadGraph(roads, boundary)

	assert.Equal(t, 3, len(g.Nodes), "shared endpoint should merge into one node")
	assert.Equal(t, 2, len(g.Edges))

	// The merged node connects both edges.
	shared := g.NearestNode(geom.Coord{0.005, 0.005})
	assert.Len(t, g.Adj[shared], 2)
}

func TestBuildRoadGraphKeepsDistantEndpointsApart(t *testing.T) {
	boundary := testBoundary(t)
	roads := []RoadSegment{
		{Line: line(t, geom.Coord{0.001, 0.002}, geom.Coord{0.004, 0.002})},
		{Line: line(t, geom.Coord{0.001, 0.008}, geom.Coord{0.004, 0.008})},
	}
	g := BuildRoadGraph(roads, boundary)
	assert.Equal(t, 4, len(g.Nodes))
	assert.Equal(t, 2, len(g.Edges))
}

func TestBuildRoadGraphSkipsSelfLoops(t *testing.T) {
	boundary := testBoundary(t)
	// A degenerate stub shorter than the merge tolerance collapses to one
	// node and must not produce an edge.
	roads := []RoadSegment{
		{Line: line(t, geom.Coord{0.003, 0.003}, geom.Coord{0.003 + 0.00005, 0.003})},
	}
	g := BuildRoadGraph(roads, boundary)
	assert.Equal(t, 1, len(g.Nodes))
	assert.Empty(t, g.Edges)
}

func TestBuildRoadGraphClipsToBoundary(t *testing.T) {
	boundary := testBoundary(t)
	// Road extends past the boundary on both sides; the edge must be the
	// clipped interior piece.
	roads := []RoadSegment{
		{Line: line(t, geom.Coord{-0.005, 0.005}, geom.Coord{0.015, 0.005})},
	}
	g := BuildRoadGraph(roads, boundary)
	assert.Equal(t, 1, len(g.Edges))
	assert.InDelta(t, 0.01, g.Edges[0].Weight, 1e-6)
}

func TestBuildRoadGraphSplitsOnReentry(t *testing.T) {
	// U-shaped boundary: a straight road through the notch becomes two
	// independent edges.
	boundary := geomath.PolygonFromRing([]geom.Coord{
		{0, 0}, {0.003, 0}, {0.003, 0.003},
		{0.002, 0.003}, {0.002, 0.001},
		{0.001, 0.001}, {0.001, 0.003}, {0, 0.003},
	})
	roads := []RoadSegment{
		{Line: line(t, geom.Coord{0.0002, 0.002}, geom.Coord{0.0028, 0.002})},
	}
	g := BuildRoadGraph(roads, boundary)
	assert.Equal(t, 2, len(g.Edges))
	assert.Equal(t, 4, len(g.Nodes))
}

func TestNearestNode(t *testing.T) {
	boundary := testBoundary(t)
	roads := []RoadSegment{
		{Line: line(t, geom.Coord{0.001, 0.001}, geom.Coord{0.009, 0.009})},
	}
	g := BuildRoadGraph(roads, boundary)
	start := g.NearestNode(geom.Coord{0.0, 0.0})
	assert.Equal(t, geomath.Distance(g.Nodes[start], geom.Coord{0.001, 0.001}), 0.0)
}
