// Package geomath holds the planar and geodetic primitives the division
// engine runs on. Geometries are go-geom XY types with coordinates in
// (longitude, latitude) degree order; distances and tolerances are in degrees
// unless a function name says meters.
package geomath

import (
	"math"
	"sort"

	"github.com/twpayne/go-geom"
)

const (
	// Meters-per-degree power series terms (WGS84 approximation).
	latMetersBase = 111132.92
	latMetersCos2 = 559.82
	lngMetersBase = 111412.84

	earthRadiusM = 6371000.0

	epsilon = 1e-12
)

// MetersPerDegree returns the approximate metric length of one degree of
// latitude and longitude at the given latitude. Valid for areas small
// relative to the Earth's radius.
func MetersPerDegree(lat float64) (latMeters, lngMeters float64) {
	rad := lat * math.Pi / 180
	latMeters = latMetersBase - latMetersCos2*math.Cos(2*rad)
	lngMeters = lngMetersBase * math.Cos(rad)
	return latMeters, lngMeters
}

// RingArea returns the signed shoelace area of a ring in square degrees.
// The ring may be open or closed; a closed ring's duplicate vertex
// contributes nothing.
func RingArea(ring []geom.Coord) float64 {
	n := len(ring)
	if n < 3 {
		return 0
	}
	var sum float64
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		sum += (ring[j].X() - ring[i].X()) * (ring[j].Y() + ring[i].Y())
	}
	return sum / 2
}

// AreaM2 converts a polygon's planar degree² area to square meters using the
// latitude-dependent scale factors sampled at the polygon's bounding-box
// vertical midpoint. Holes subtract from the outer ring.
func AreaM2(p *geom.Polygon) float64 {
	if p == nil || p.NumLinearRings() == 0 {
		return 0
	}
	rings := p.Coords()
	areaDeg2 := math.Abs(RingArea(rings[0]))
	for _, hole := range rings[1:] {
		areaDeg2 -= math.Abs(RingArea(hole))
	}
	if areaDeg2 < 0 {
		areaDeg2 = 0
	}
	b := p.Bounds()
	midLat := (b.Min(1) + b.Max(1)) / 2
	latM, lngM := MetersPerDegree(midLat)
	return math.Abs(areaDeg2 * latM * lngM)
}

// Centroid returns the area-weighted centroid of the polygon's outer ring,
// falling back to the vertex mean for degenerate (near zero area) rings.
func Centroid(p *geom.Polygon) geom.Coord {
	if p == nil || p.NumLinearRings() == 0 {
		return nil
	}
	return RingCentroid(p.Coords()[0])
}

// RingCentroid is Centroid for a bare ring.
func RingCentroid(ring []geom.Coord) geom.Coord {
	n := len(ring)
	if n == 0 {
		return nil
	}
	area := RingArea(ring)
	if math.Abs(area) > epsilon {
		// Accumulate relative to the first vertex: at real lon/lat
		// magnitudes the absolute cross terms cancel catastrophically.
		ox, oy := ring[0].X(), ring[0].Y()
		var cx, cy float64
		for i, j := 0, n-1; i < n; j, i = i, i+1 {
			x0, y0 := ring[j].X()-ox, ring[j].Y()-oy
			x1, y1 := ring[i].X()-ox, ring[i].Y()-oy
			cross := x0*y1 - x1*y0
			cx += (x0 + x1) * cross
			cy += (y0 + y1) * cross
		}
		return geom.Coord{ox + cx/(6*area), oy + cy/(6*area)}
	}
	var sx, sy float64
	count := n
	if n > 1 && sameCoord(ring[0], ring[n-1]) {
		count = n - 1
	}
	for i := 0; i < count; i++ {
		sx += ring[i].X()
		sy += ring[i].Y()
	}
	return geom.Coord{sx / float64(count), sy / float64(count)}
}

// Distance is the planar euclidean distance between two coordinates, in the
// units of the coordinates themselves (degrees for lon/lat input).
func Distance(a, b geom.Coord) float64 {
	dx := a.X() - b.X()
	dy := a.Y() - b.Y()
	return math.Sqrt(dx*dx + dy*dy)
}

// HaversineMeters returns the great-circle distance between two points.
func HaversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := math.Pi / 180
	dLat := (lat2 - lat1) * toRad
	dLng := (lng2 - lng1) * toRad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*toRad)*math.Cos(lat2*toRad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// PointToSegment returns the distance from p to the segment ab.
func PointToSegment(p, a, b geom.Coord) float64 {
	abx := b.X() - a.X()
	aby := b.Y() - a.Y()
	lenSq := abx*abx + aby*aby
	if lenSq < epsilon {
		return Distance(p, a)
	}
	t := ((p.X()-a.X())*abx + (p.Y()-a.Y())*aby) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	proj := geom.Coord{a.X() + t*abx, a.Y() + t*aby}
	return Distance(p, proj)
}

// DistanceToLineString returns the minimum distance from p to any segment of
// the line.
func DistanceToLineString(p geom.Coord, ls *geom.LineString) float64 {
	coords := ls.Coords()
	if len(coords) == 0 {
		return math.MaxFloat64
	}
	if len(coords) == 1 {
		return Distance(p, coords[0])
	}
	min := math.MaxFloat64
	for i := 0; i < len(coords)-1; i++ {
		if d := PointToSegment(p, coords[i], coords[i+1]); d < min {
			min = d
		}
	}
	return min
}

// LineLength returns the planar length of a line in coordinate units.
func LineLength(ls *geom.LineString) float64 {
	coords := ls.Coords()
	var total float64
	for i := 0; i < len(coords)-1; i++ {
		total += Distance(coords[i], coords[i+1])
	}
	return total
}

// PointInRing reports whether p lies inside the ring using the even-odd rule.
// Boundary points may land on either side; callers needing stability should
// combine with a distance check.
func PointInRing(p geom.Coord, ring []geom.Coord) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	inside := false
	x, y := p.X(), p.Y()
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i].X(), ring[i].Y()
		xj, yj := ring[j].X(), ring[j].Y()
		if ((yi > y) != (yj > y)) && (x < (xj-xi)*(y-yi)/(yj-yi+1e-12)+xi) {
			inside = !inside
		}
	}
	return inside
}

// PolygonContains reports whether p lies inside the polygon's outer ring and
// outside all of its holes.
func PolygonContains(poly *geom.Polygon, p geom.Coord) bool {
	if poly == nil || poly.NumLinearRings() == 0 || p == nil {
		return false
	}
	rings := poly.Coords()
	if !PointInRing(p, rings[0]) {
		return false
	}
	for _, hole := range rings[1:] {
		if PointInRing(p, hole) {
			return false
		}
	}
	return true
}

// NormalizeRing removes consecutive duplicate vertices and enforces closure
// (first == last). This is the repair step applied to every incoming ring;
// rings left with fewer than three distinct vertices are unusable and yield
// nil.
func NormalizeRing(ring []geom.Coord) []geom.Coord {
	if len(ring) == 0 {
		return nil
	}
	out := make([]geom.Coord, 0, len(ring)+1)
	for _, c := range ring {
		if len(out) == 0 || !sameCoord(out[len(out)-1], c) {
			out = append(out, geom.Coord{c.X(), c.Y()})
		}
	}
	// Drop a duplicated closing vertex before counting distinct points.
	if len(out) > 1 && sameCoord(out[0], out[len(out)-1]) {
		out = out[:len(out)-1]
	}
	if len(out) < 3 {
		return nil
	}
	out = append(out, geom.Coord{out[0].X(), out[0].Y()})
	return out
}

// RingSelfIntersects reports whether any two non-adjacent edges of the ring
// cross or touch, i.e. the ring is not a simple polygon boundary. Adjacent
// edges share a vertex by construction and are exempt. The ring is
// normalized first; rings too degenerate to normalize report false, since
// they are rejected elsewhere. The pairwise scan is quadratic in the edge
// count, fine for the boundary rings this runs on.
func RingSelfIntersects(ring []geom.Coord) bool {
	closed := NormalizeRing(ring)
	if closed == nil {
		return false
	}
	verts := closed[:len(closed)-1]
	n := len(verts)
	for i := 0; i < n; i++ {
		a0 := verts[i]
		a1 := verts[(i+1)%n]
		for j := i + 1; j < n; j++ {
			if j == i+1 || (i == 0 && j == n-1) {
				continue // shares a vertex with edge i
			}
			if segmentsTouch(a0, a1, verts[j], verts[(j+1)%n]) {
				return true
			}
		}
	}
	return false
}

// PolygonFromRing builds an XY polygon from a ring, normalizing it first.
// Returns nil for unusable rings.
func PolygonFromRing(ring []geom.Coord) *geom.Polygon {
	closed := NormalizeRing(ring)
	if closed == nil {
		return nil
	}
	flat := make([]float64, 0, len(closed)*2)
	for _, c := range closed {
		flat = append(flat, c.X(), c.Y())
	}
	return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
}

// LineFromCoords builds an XY line string. Returns nil when fewer than two
// coordinates remain after dropping consecutive duplicates.
func LineFromCoords(coords []geom.Coord) *geom.LineString {
	var flat []float64
	var last geom.Coord
	for _, c := range coords {
		if last != nil && sameCoord(last, c) {
			continue
		}
		flat = append(flat, c.X(), c.Y())
		last = c
	}
	if len(flat) < 4 {
		return nil
	}
	return geom.NewLineStringFlat(geom.XY, flat)
}

// ClipLineToPolygon clips a line to the polygon interior. One line can split
// into several pieces where it leaves and re-enters the polygon; pieces
// shorter than the numeric noise floor are dropped.
func ClipLineToPolygon(ls *geom.LineString, poly *geom.Polygon) []*geom.LineString {
	if ls == nil || poly == nil || poly.NumLinearRings() == 0 {
		return nil
	}
	coords := ls.Coords()
	if len(coords) < 2 {
		return nil
	}
	rings := poly.Coords()

	var pieces []*geom.LineString
	var current []geom.Coord
	flush := func() {
		if line := LineFromCoords(current); line != nil {
			pieces = append(pieces, line)
		}
		current = nil
	}

	for i := 0; i < len(coords)-1; i++ {
		a, b := coords[i], coords[i+1]
		ts := []float64{0, 1}
		for _, ring := range rings {
			for j := 0; j < len(ring)-1; j++ {
				if t, ok := segmentIntersectParam(a, b, ring[j], ring[j+1]); ok {
					ts = append(ts, t)
				}
			}
		}
		sort.Float64s(ts)
		for k := 0; k < len(ts)-1; k++ {
			t0, t1 := ts[k], ts[k+1]
			if t1-t0 < 1e-9 {
				continue
			}
			mid := lerp(a, b, (t0+t1)/2)
			if PolygonContains(poly, mid) {
				p0 := lerp(a, b, t0)
				p1 := lerp(a, b, t1)
				if len(current) > 0 && !sameCoord(current[len(current)-1], p0) {
					flush()
				}
				if len(current) == 0 {
					current = append(current, p0)
				}
				current = append(current, p1)
			} else {
				flush()
			}
		}
	}
	flush()
	return pieces
}

// ClipPolygonToConvex intersects the subject polygon's outer ring with a
// convex CCW clip ring (Sutherland-Hodgman). A non-convex subject whose
// intersection is multi-part comes back as one ring with degenerate bridging
// edges; the smaller parts are effectively absorbed, which callers accept.
// Returns nil when the intersection is empty.
func ClipPolygonToConvex(subject *geom.Polygon, clip []geom.Coord) *geom.Polygon {
	if subject == nil || subject.NumLinearRings() == 0 || len(clip) < 3 {
		return nil
	}
	output := openRing(subject.Coords()[0])
	n := len(clip)
	for i := 0; i < n && len(output) > 0; i++ {
		c0 := clip[i]
		c1 := clip[(i+1)%n]
		input := output
		output = nil
		for j, cur := range input {
			prev := input[(j+len(input)-1)%len(input)]
			curIn := leftOrOn(c0, c1, cur)
			prevIn := leftOrOn(c0, c1, prev)
			switch {
			case curIn && prevIn:
				output = append(output, cur)
			case curIn && !prevIn:
				output = append(output, lineCross(prev, cur, c0, c1), cur)
			case !curIn && prevIn:
				output = append(output, lineCross(prev, cur, c0, c1))
			}
		}
	}
	if len(output) < 3 {
		return nil
	}
	result := PolygonFromRing(output)
	if result == nil || math.Abs(RingArea(result.Coords()[0])) < epsilon {
		return nil
	}
	return result
}

// RectRing returns an open CCW rectangle ring.
func RectRing(minX, minY, maxX, maxY float64) []geom.Coord {
	return []geom.Coord{
		{minX, minY},
		{maxX, minY},
		{maxX, maxY},
		{minX, maxY},
	}
}

// ConvexHull computes the convex hull of a point set (monotone chain) and
// returns it as an open CCW ring. Inputs with fewer than three distinct,
// non-collinear points yield nil.
func ConvexHull(points []geom.Coord) []geom.Coord {
	pts := make([]geom.Coord, 0, len(points))
	for _, p := range points {
		pts = append(pts, geom.Coord{p.X(), p.Y()})
	}
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X() != pts[j].X() {
			return pts[i].X() < pts[j].X()
		}
		return pts[i].Y() < pts[j].Y()
	})
	// Compact duplicates after sorting.
	uniq := pts[:0]
	for _, p := range pts {
		if len(uniq) == 0 || !sameCoord(uniq[len(uniq)-1], p) {
			uniq = append(uniq, p)
		}
	}
	pts = uniq
	if len(pts) < 3 {
		return nil
	}

	var lower, upper []geom.Coord
	for _, p := range pts {
		for len(lower) >= 2 && crossOf(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}
	for i := len(pts) - 1; i >= 0; i-- {
		p := pts[i]
		for len(upper) >= 2 && crossOf(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}
	hull := append(lower[:len(lower)-1], upper[:len(upper)-1]...)
	if len(hull) < 3 {
		return nil
	}
	return hull
}

// OffsetConvexRing expands a convex CCW ring outward by d (miter joins).
func OffsetConvexRing(ring []geom.Coord, d float64) []geom.Coord {
	n := len(ring)
	if n < 3 || d <= 0 {
		return ring
	}
	out := make([]geom.Coord, 0, n)
	for i := 0; i < n; i++ {
		p0 := ring[(i+n-1)%n]
		p1 := ring[i]
		p2 := ring[(i+1)%n]
		n0 := outwardNormal(p0, p1)
		n1 := outwardNormal(p1, p2)
		a0 := geom.Coord{p0.X() + d*n0.X(), p0.Y() + d*n0.Y()}
		a1 := geom.Coord{p1.X() + d*n0.X(), p1.Y() + d*n0.Y()}
		b0 := geom.Coord{p1.X() + d*n1.X(), p1.Y() + d*n1.Y()}
		b1 := geom.Coord{p2.X() + d*n1.X(), p2.Y() + d*n1.Y()}
		q, ok := lineLineIntersect(a0, a1, b0, b1)
		if !ok {
			// Nearly collinear edges: push the vertex along the mean normal.
			mx := (n0.X() + n1.X()) / 2
			my := (n0.Y() + n1.Y()) / 2
			norm := math.Sqrt(mx*mx + my*my)
			if norm < epsilon {
				q = a1
			} else {
				q = geom.Coord{p1.X() + d*mx/norm, p1.Y() + d*my/norm}
			}
		}
		out = append(out, q)
	}
	return out
}

// BufferUnionClip merges a cluster of polygons and lines into one coherent
// polygon: convex hull of every member vertex, expanded by dist, intersected
// with the boundary. Collinear clusters (a single straight road) fall back to
// a padded extent box. When the boundary clip comes back empty the unclipped
// hull is returned rather than losing the cluster.
func BufferUnionClip(geoms []geom.T, dist float64, boundary *geom.Polygon) *geom.Polygon {
	var pts []geom.Coord
	for _, g := range geoms {
		pts = append(pts, vertexCoords(g)...)
	}
	if len(pts) == 0 {
		return nil
	}
	hull := ConvexHull(pts)
	if hull == nil {
		minX, minY := pts[0].X(), pts[0].Y()
		maxX, maxY := minX, minY
		for _, p := range pts {
			minX = math.Min(minX, p.X())
			minY = math.Min(minY, p.Y())
			maxX = math.Max(maxX, p.X())
			maxY = math.Max(maxY, p.Y())
		}
		hull = RectRing(minX-dist, minY-dist, maxX+dist, maxY+dist)
	} else {
		hull = OffsetConvexRing(hull, dist)
	}
	if boundary != nil {
		if clipped := ClipPolygonToConvex(boundary, hull); clipped != nil {
			return clipped
		}
	}
	return PolygonFromRing(hull)
}

// vertexCoords gathers the vertices of a geometry for hull construction.
// Polygon holes are ignored; the hull swallows them anyway.
func vertexCoords(g geom.T) []geom.Coord {
	switch t := g.(type) {
	case *geom.Point:
		return []geom.Coord{t.Coords()}
	case *geom.LineString:
		return t.Coords()
	case *geom.Polygon:
		if t.NumLinearRings() == 0 {
			return nil
		}
		return t.Coords()[0]
	case *geom.MultiPolygon:
		var out []geom.Coord
		for i := 0; i < t.NumPolygons(); i++ {
			out = append(out, vertexCoords(t.Polygon(i))...)
		}
		return out
	default:
		return nil
	}
}

func sameCoord(a, b geom.Coord) bool {
	return math.Abs(a.X()-b.X()) < epsilon && math.Abs(a.Y()-b.Y()) < epsilon
}

func lerp(a, b geom.Coord, t float64) geom.Coord {
	return geom.Coord{a.X() + t*(b.X()-a.X()), a.Y() + t*(b.Y()-a.Y())}
}

// segmentIntersectParam returns the parameter t along ab where ab crosses cd,
// when the two segments properly intersect.
func segmentIntersectParam(a, b, c, d geom.Coord) (float64, bool) {
	rx, ry := b.X()-a.X(), b.Y()-a.Y()
	sx, sy := d.X()-c.X(), d.Y()-c.Y()
	den := rx*sy - ry*sx
	if math.Abs(den) < epsilon {
		return 0, false
	}
	qpx, qpy := c.X()-a.X(), c.Y()-a.Y()
	t := (qpx*sy - qpy*sx) / den
	u := (qpx*ry - qpy*rx) / den
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return 0, false
	}
	return t, true
}

// segmentsTouch reports whether segments a0a1 and b0b1 share any point,
// including endpoint contact and collinear overlap.
func segmentsTouch(a0, a1, b0, b1 geom.Coord) bool {
	d1 := crossOf(b0, b1, a0)
	d2 := crossOf(b0, b1, a1)
	d3 := crossOf(a0, a1, b0)
	d4 := crossOf(a0, a1, b1)
	if ((d1 > epsilon && d2 < -epsilon) || (d1 < -epsilon && d2 > epsilon)) &&
		((d3 > epsilon && d4 < -epsilon) || (d3 < -epsilon && d4 > epsilon)) {
		return true
	}
	if math.Abs(d1) <= epsilon && withinBounds(b0, b1, a0) {
		return true
	}
	if math.Abs(d2) <= epsilon && withinBounds(b0, b1, a1) {
		return true
	}
	if math.Abs(d3) <= epsilon && withinBounds(a0, a1, b0) {
		return true
	}
	if math.Abs(d4) <= epsilon && withinBounds(a0, a1, b1) {
		return true
	}
	return false
}

// withinBounds checks that r, known collinear with pq, lies between p and q.
func withinBounds(p, q, r geom.Coord) bool {
	return math.Min(p.X(), q.X())-epsilon <= r.X() && r.X() <= math.Max(p.X(), q.X())+epsilon &&
		math.Min(p.Y(), q.Y())-epsilon <= r.Y() && r.Y() <= math.Max(p.Y(), q.Y())+epsilon
}

// lineCross intersects segment pq with the infinite line through c0 c1.
func lineCross(p, q, c0, c1 geom.Coord) geom.Coord {
	d1x, d1y := q.X()-p.X(), q.Y()-p.Y()
	d2x, d2y := c1.X()-c0.X(), c1.Y()-c0.Y()
	den := d1x*d2y - d1y*d2x
	if math.Abs(den) < epsilon {
		return q
	}
	t := ((c0.X()-p.X())*d2y - (c0.Y()-p.Y())*d2x) / den
	return geom.Coord{p.X() + t*d1x, p.Y() + t*d1y}
}

func lineLineIntersect(a0, a1, b0, b1 geom.Coord) (geom.Coord, bool) {
	d1x, d1y := a1.X()-a0.X(), a1.Y()-a0.Y()
	d2x, d2y := b1.X()-b0.X(), b1.Y()-b0.Y()
	den := d1x*d2y - d1y*d2x
	if math.Abs(den) < epsilon {
		return nil, false
	}
	t := ((b0.X()-a0.X())*d2y - (b0.Y()-a0.Y())*d2x) / den
	return geom.Coord{a0.X() + t*d1x, a0.Y() + t*d1y}, true
}

func leftOrOn(c0, c1, p geom.Coord) bool {
	return (c1.X()-c0.X())*(p.Y()-c0.Y())-(c1.Y()-c0.Y())*(p.X()-c0.X()) >= -epsilon
}

func crossOf(o, a, b geom.Coord) float64 {
	return (a.X()-o.X())*(b.Y()-o.Y()) - (a.Y()-o.Y())*(b.X()-o.X())
}

func outwardNormal(a, b geom.Coord) geom.Coord {
	dx := b.X() - a.X()
	dy := b.Y() - a.Y()
	length := math.Sqrt(dx*dx + dy*dy)
	if length < epsilon {
		return geom.Coord{0, 0}
	}
	// CCW ring: interior on the left, so the outward normal is the right one.
	return geom.Coord{dy / length, -dx / length}
}

func openRing(ring []geom.Coord) []geom.Coord {
	if len(ring) > 1 && sameCoord(ring[0], ring[len(ring)-1]) {
		return ring[:len(ring)-1]
	}
	return ring
}
