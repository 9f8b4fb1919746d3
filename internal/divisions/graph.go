package divisions

import (
	"math"

	"github.com/sirupsen/logrus"
	"github.com/twpayne/go-geom"

	"sar_command/internal/geomath"
)

// RoadEdge connects two graph nodes and carries the clipped road geometry it
// was built from.
type RoadEdge struct {
	ID     int
	A, B   int
	Weight float64
	Line   *geom.LineString
}

// RoadGraph is the undirected weighted graph of walkable roads inside the
// search area. Node ids index Nodes; Adj holds edge ids per node.
type RoadGraph struct {
	Nodes []geom.Coord
	Edges []RoadEdge
	Adj   [][]int

	buckets map[[2]int][]int
}

// Empty reports whether the graph has no nodes, meaning walkable expansion
// is unavailable.
func (g *RoadGraph) Empty() bool {
	return len(g.Nodes) == 0
}

// EdgeLines returns the clipped line per edge, indexed by edge id. This is
// the segment list the building mapper runs against.
func (g *RoadGraph) EdgeLines() []*geom.LineString {
	lines := make([]*geom.LineString, len(g.Edges))
	for i, e := range g.Edges {
		lines[i] = e.Line
	}
	return lines
}

// Neighbor returns the node on the far side of edge id from node n.
func (g *RoadGraph) Neighbor(edgeID, n int) int {
	e := g.Edges[edgeID]
	if e.A == n {
		return e.B
	}
	return e.A
}

// NearestNode finds the node closest to p, or -1 for an empty graph.
func (g *RoadGraph) NearestNode(p geom.Coord) int {
	best := -1
	bestDist := math.MaxFloat64
	for i, pos := range g.Nodes {
		if d := geomath.Distance(p, pos); d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

// findOrCreateNode merges coordinates within NodeMergeTolerance into one
// node. Candidate lookup goes through a coordinate-bucket index (cell size =
// tolerance, 3x3 neighborhood probe); among nodes within tolerance the
// lowest id wins, matching what a first-match linear scan would return.
func (g *RoadGraph) findOrCreateNode(p geom.Coord) int {
	cx := int(math.Floor(p.X() / NodeMergeTolerance))
	cy := int(math.Floor(p.Y() / NodeMergeTolerance))

	best := -1
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for _, id := range g.buckets[[2]int{cx + dx, cy + dy}] {
				if geomath.Distance(p, g.Nodes[id]) < NodeMergeTolerance {
					if best == -1 || id < best {
						best = id
					}
				}
			}
		}
	}
	if best != -1 {
		return best
	}

	id := len(g.Nodes)
	g.Nodes = append(g.Nodes, geom.Coord{p.X(), p.Y()})
	g.Adj = append(g.Adj, nil)
	key := [2]int{cx, cy}
	g.buckets[key] = append(g.buckets[key], id)
	return id
}

// BuildRoadGraph clips each road to the search area boundary and folds the
// resulting pieces into an undirected graph. A clip can split one road into
// several pieces; each piece becomes its own edge. Degenerate pieces whose
// endpoints collapse to the same node are skipped. An empty result means
// callers must fall back to the grid partition.
func BuildRoadGraph(roads []RoadSegment, boundary *geom.Polygon) *RoadGraph {
	g := &RoadGraph{buckets: make(map[[2]int][]int)}

	for _, road := range roads {
		if road.Line == nil {
			continue
		}
		for _, piece := range geomath.ClipLineToPolygon(road.Line, boundary) {
			coords := piece.Coords()
			a := g.findOrCreateNode(coords[0])
			b := g.findOrCreateNode(coords[len(coords)-1])
			if a == b {
				continue // self-loop, endpoints within merge tolerance
			}
			edge := RoadEdge{
				ID:     len(g.Edges),
				A:      a,
				B:      b,
				Weight: geomath.LineLength(piece),
				Line:   piece,
			}
			g.Edges = append(g.Edges, edge)
			g.Adj[a] = append(g.Adj[a], edge.ID)
			g.Adj[b] = append(g.Adj[b], edge.ID)
		}
	}

	logrus.WithFields(logrus.Fields{
		"roads": len(roads),
		"nodes": len(g.Nodes),
		"edges": len(g.Edges),
	}).Debug("road graph built")
	return g
}
