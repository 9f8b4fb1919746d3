package divisions

import (
	"github.com/sirupsen/logrus"
	"github.com/twpayne/go-geom"
)

// ExpandWalkable grows divisions outward from the graph node nearest the
// incident by breadth-first traversal. Buildings are claimed through a
// global visited set, so each building lands in at most one draft — the
// invariant everything downstream relies on.
//
// In SealOnAreaTarget mode a draft seals as soon as its accumulated
// searchable floor area reaches targetAreaM2 and a fresh draft takes over
// the remaining frontier. In SealPerComponent mode the area check is
// skipped and the draft seals only when the frontier empties.
//
// Drafts that picked up road segments but no buildings are discarded. The
// returned drafts are ordered by sealing time, which approximates
// breadth-first distance from the incident. A nil return means the caller
// must fall back to the grid partition.
func ExpandWalkable(g *RoadGraph, mapping map[int][]int, buildings []Building, incident geom.Coord, targetAreaM2 float64, mode ExpansionMode) []Draft {
	if g == nil || g.Empty() || incident == nil {
		return nil
	}
	start := g.NearestNode(incident)
	if start < 0 {
		return nil
	}

	queue := []int{start}
	visitedNodes := make([]bool, len(g.Nodes))
	visitedBuildings := make([]bool, len(buildings))
	visitedEdges := make([]bool, len(g.Edges))

	var drafts []Draft
	draft := Draft{}

	seal := func() {
		if len(draft.Buildings) > 0 {
			drafts = append(drafts, draft)
		}
		draft = Draft{}
	}

	for len(queue) > 0 && len(drafts) < MaxDivisions {
		node := queue[0]
		queue = queue[1:]
		if visitedNodes[node] {
			continue
		}
		visitedNodes[node] = true

		for _, edgeID := range g.Adj[node] {
			next := g.Neighbor(edgeID, node)
			if visitedNodes[next] {
				continue
			}
			if !visitedEdges[edgeID] {
				visitedEdges[edgeID] = true
				draft.EdgeIDs = append(draft.EdgeIDs, edgeID)
				for _, bi := range mapping[edgeID] {
					if visitedBuildings[bi] {
						continue // already claimed by an earlier division
					}
					visitedBuildings[bi] = true
					draft.Buildings = append(draft.Buildings, bi)
					draft.SearchableAreaM2 += buildings[bi].SearchableAreaM2
				}
			}
			queue = append(queue, next)
		}

		if mode == SealOnAreaTarget && draft.SearchableAreaM2 >= targetAreaM2 {
			seal()
		}
	}
	seal()

	logrus.WithFields(logrus.Fields{
		"drafts":         len(drafts),
		"target_area_m2": targetAreaM2,
		"capped":         len(drafts) >= MaxDivisions,
	}).Debug("walkable expansion finished")
	return drafts
}
