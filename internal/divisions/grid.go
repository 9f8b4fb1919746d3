package divisions

import (
	"math"

	"github.com/twpayne/go-geom"

	"sar_command/internal/geomath"
)

// GridPartition is the deterministic fallback used when road or building
// data is unusable. It overlays a rows x cols rectangular grid on the search
// area's bounding box, sized so the cell count approximates n, clips each
// cell to the area in row-major order, and emits at most n non-empty cells.
// Cells lying entirely outside the area are skipped and do not consume a
// slot.
func GridPartition(area *geom.Polygon, n int) []*geom.Polygon {
	if area == nil || area.NumLinearRings() == 0 {
		return nil
	}
	if n < 1 {
		n = 1
	}
	cols := int(math.Floor(math.Sqrt(float64(n))))
	if cols < 1 {
		cols = 1
	}
	rows := int(math.Ceil(float64(n) / float64(cols)))

	b := area.Bounds()
	minX, minY := b.Min(0), b.Min(1)
	cellW := (b.Max(0) - minX) / float64(cols)
	cellH := (b.Max(1) - minY) / float64(rows)

	var cells []*geom.Polygon
	for row := 0; row < rows && len(cells) < n; row++ {
		for col := 0; col < cols && len(cells) < n; col++ {
			cell := geomath.RectRing(
				minX+float64(col)*cellW,
				minY+float64(row)*cellH,
				minX+float64(col+1)*cellW,
				minY+float64(row+1)*cellH,
			)
			clipped := geomath.ClipPolygonToConvex(area, cell)
			if clipped == nil {
				continue
			}
			cells = append(cells, clipped)
		}
	}
	return cells
}

// TargetDivisionCount derives the grid cell count from the total area and
// the per-division target, minimum 1.
func TargetDivisionCount(totalAreaM2, targetAreaM2 float64) int {
	if targetAreaM2 <= 0 {
		return 1
	}
	n := int(math.Floor(totalAreaM2 / targetAreaM2))
	if n < 1 {
		n = 1
	}
	return n
}
