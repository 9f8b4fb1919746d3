package geomath

import (
	"math"
	"testing"

	"github.com/twpayne/go-geom"
)

func square(minX, minY, size float64) *geom.Polygon {
	return PolygonFromRing([]geom.Coord{
		{minX, minY},
		{minX + size, minY},
		{minX + size, minY + size},
		{minX, minY + size},
	})
}

func TestAreaM2Positive(t *testing.T) {
	tests := []struct {
		name string
		poly *geom.Polygon
	}{
		{"unit square at equator", square(0, 0, 1)},
		{"small square mid latitude", square(38.7, 9.0, 0.01)},
		{"clockwise ring", PolygonFromRing([]geom.Coord{{0, 0}, {0, 1}, {1, 1}, {1, 0}})},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.poly == nil {
				t.Fatal("polygon construction failed")
			}
			if got := AreaM2(tc.poly); got <= 0 {
				t.Errorf("AreaM2 = %f, want > 0", got)
			}
		})
	}
}

func TestAreaM2Monotonic(t *testing.T) {
	outer := square(0, 0, 1)
	inner := square(0.25, 0.25, 0.5)
	if AreaM2(inner) >= AreaM2(outer) {
		t.Errorf("contained polygon area %f not smaller than container %f", AreaM2(inner), AreaM2(outer))
	}
}

func TestAreaM2ScaleFactors(t *testing.T) {
	// One degree square at the equator: ~111.3 km x ~111.4 km.
	got := AreaM2(square(0, -0.5, 1))
	want := 111132.92 * 111412.84 * math.Cos(0.5*math.Pi/180)
	if math.Abs(got-want)/want > 0.05 {
		t.Errorf("AreaM2 = %e, want about %e", got, want)
	}
}

func TestPolygonContains(t *testing.T) {
	poly := square(0, 0, 1)
	tests := []struct {
		name string
		p    geom.Coord
		want bool
	}{
		{"center", geom.Coord{0.5, 0.5}, true},
		{"outside", geom.Coord{1.5, 0.5}, false},
		{"far outside", geom.Coord{-3, -3}, false},
		{"near corner inside", geom.Coord{0.01, 0.01}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := PolygonContains(poly, tc.p); got != tc.want {
				t.Errorf("PolygonContains(%v) = %v, want %v", tc.p, got, tc.want)
			}
		})
	}
}

func TestNormalizeRing(t *testing.T) {
	// Duplicates collapse, ring closes.
	ring := NormalizeRing([]geom.Coord{{0, 0}, {0, 0}, {1, 0}, {1, 1}, {1, 1}, {0, 1}})
	if ring == nil {
		t.Fatal("expected usable ring")
	}
	if len(ring) != 5 {
		t.Errorf("got %d vertices, want 5 (4 distinct + closure)", len(ring))
	}
	if !sameCoord(ring[0], ring[len(ring)-1]) {
		t.Error("ring not closed")
	}

	// Degenerate input yields nil.
	if got := NormalizeRing([]geom.Coord{{0, 0}, {1, 1}, {0, 0}, {1, 1}}); got != nil {
		t.Errorf("degenerate ring should be nil, got %v", got)
	}
}

func TestDistanceToLineString(t *testing.T) {
	line := LineFromCoords([]geom.Coord{{0, 0}, {10, 0}})
	tests := []struct {
		name string
		p    geom.Coord
		want float64
	}{
		{"above midpoint", geom.Coord{5, 3}, 3},
		{"beyond end", geom.Coord{13, 4}, 5},
		{"on the line", geom.Coord{2, 0}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DistanceToLineString(tc.p, line); math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("distance = %f, want %f", got, tc.want)
			}
		})
	}
}

func TestClipLineToPolygon(t *testing.T) {
	boundary := square(0, 0, 1)

	// Fully inside: one piece, same endpoints.
	inside := LineFromCoords([]geom.Coord{{0.1, 0.5}, {0.9, 0.5}})
	pieces := ClipLineToPolygon(inside, boundary)
	if len(pieces) != 1 {
		t.Fatalf("inside line: got %d pieces, want 1", len(pieces))
	}
	if got := LineLength(pieces[0]); math.Abs(got-0.8) > 1e-9 {
		t.Errorf("inside piece length = %f, want 0.8", got)
	}

	// Crossing: clipped to the boundary extent.
	crossing := LineFromCoords([]geom.Coord{{-0.5, 0.5}, {1.5, 0.5}})
	pieces = ClipLineToPolygon(crossing, boundary)
	if len(pieces) != 1 {
		t.Fatalf("crossing line: got %d pieces, want 1", len(pieces))
	}
	if got := LineLength(pieces[0]); math.Abs(got-1.0) > 1e-6 {
		t.Errorf("crossing piece length = %f, want 1.0", got)
	}

	// Entirely outside: no pieces.
	outside := LineFromCoords([]geom.Coord{{2, 2}, {3, 3}})
	if pieces = ClipLineToPolygon(outside, boundary); len(pieces) != 0 {
		t.Errorf("outside line: got %d pieces, want 0", len(pieces))
	}
}

func TestClipLineSplitsOnReentry(t *testing.T) {
	// An L-shaped boundary forces the line to leave and re-enter.
	boundary := PolygonFromRing([]geom.Coord{
		{0, 0}, {3, 0}, {3, 3}, {2, 3}, {2, 1}, {1, 1}, {1, 3}, {0, 3},
	})
	line := LineFromCoords([]geom.Coord{{0.5, 2}, {2.5, 2}})
	pieces := ClipLineToPolygon(line, boundary)
	if len(pieces) != 2 {
		t.Fatalf("got %d pieces, want 2", len(pieces))
	}
}

func TestClipPolygonToConvex(t *testing.T) {
	subject := square(0, 0, 2)

	// Overlapping cell: quarter of the subject.
	cell := RectRing(1, 1, 3, 3)
	clipped := ClipPolygonToConvex(subject, cell)
	if clipped == nil {
		t.Fatal("expected non-empty intersection")
	}
	if got := math.Abs(RingArea(clipped.Coords()[0])); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("clipped area = %f, want 1.0", got)
	}

	// Disjoint cell: nil.
	if got := ClipPolygonToConvex(subject, RectRing(5, 5, 6, 6)); got != nil {
		t.Errorf("disjoint clip should be nil, got %v", got)
	}
}

func TestConvexHull(t *testing.T) {
	pts := []geom.Coord{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0.5, 0.5}, {0.2, 0.8}}
	hull := ConvexHull(pts)
	if len(hull) != 4 {
		t.Fatalf("hull has %d vertices, want 4", len(hull))
	}

	// Collinear input has no hull.
	if got := ConvexHull([]geom.Coord{{0, 0}, {1, 1}, {2, 2}}); got != nil {
		t.Errorf("collinear hull should be nil, got %v", got)
	}
}

func TestBufferUnionClip(t *testing.T) {
	boundary := square(0, 0, 10)
	geoms := []geom.T{
		square(1, 1, 1),
		square(4, 4, 1),
		LineFromCoords([]geom.Coord{{2, 2}, {4, 4}}),
	}
	result := BufferUnionClip(geoms, 0.5, boundary)
	if result == nil {
		t.Fatal("expected a merged polygon")
	}
	// The merged boundary must cover both member squares.
	for _, p := range []geom.Coord{{1.5, 1.5}, {4.5, 4.5}} {
		if !PolygonContains(result, p) {
			t.Errorf("merged polygon does not contain member point %v", p)
		}
	}
	// And stay inside the (slightly padded) boundary extent.
	b := result.Bounds()
	if b.Min(0) < -1e-9 || b.Max(0) > 10+1e-9 {
		t.Errorf("merged polygon escapes the boundary: %v", b)
	}
}

func TestHaversineMeters(t *testing.T) {
	// One degree of latitude is about 111 km.
	got := HaversineMeters(0, 0, 1, 0)
	if math.Abs(got-111195) > 500 {
		t.Errorf("HaversineMeters = %f, want about 111195", got)
	}
}

func TestRingCentroidAtRealCoordinates(t *testing.T) {
	// A 0.001-degree square at real lon/lat magnitudes: the centroid must
	// land on the exact center, not drift from cancellation in the cross
	// terms.
	got := RingCentroid([]geom.Coord{
		{38.701, 9.001},
		{38.702, 9.001},
		{38.702, 9.002},
		{38.701, 9.002},
		{38.701, 9.001},
	})
	if got == nil {
		t.Fatal("expected a centroid")
	}
	if math.Abs(got.X()-38.7015) > 1e-9 || math.Abs(got.Y()-9.0015) > 1e-9 {
		t.Errorf("RingCentroid = (%v, %v), want (38.7015, 9.0015)", got.X(), got.Y())
	}
}

func TestRingSelfIntersects(t *testing.T) {
	tests := []struct {
		name string
		ring []geom.Coord
		want bool
	}{
		{
			name: "square",
			ring: []geom.Coord{{0, 0}, {4, 0}, {4, 4}, {0, 4}},
			want: false,
		},
		{
			name: "triangle closed",
			ring: []geom.Coord{{0, 0}, {2, 0}, {1, 2}, {0, 0}},
			want: false,
		},
		{
			name: "bowtie",
			ring: []geom.Coord{{0, 0}, {1, 1}, {1, 0}, {0, 1}},
			want: true,
		},
		{
			name: "small-scale bowtie",
			ring: []geom.Coord{{0, 0}, {0.01, 0.01}, {0.01, 0}, {0, 0.01}},
			want: true,
		},
		{
			name: "edge crossing through interior",
			ring: []geom.Coord{{0, 0}, {4, 0}, {4, 4}, {2, -1}, {0, 4}},
			want: true,
		},
		{
			name: "too few vertices",
			ring: []geom.Coord{{0, 0}, {1, 1}},
			want: false,
		},
	}
	for _, tt := range tests {
		if got := RingSelfIntersects(tt.ring); got != tt.want {
			t.Errorf("%s: RingSelfIntersects = %v, want %v", tt.name, got, tt.want)
		}
	}
}
