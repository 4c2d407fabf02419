// Package raster implements the CPU analytic coverage rasterizer: for each
// output pixel, cast rays from a small sample grid and vote "inside" by ray
// parity, then average per-subpixel coverage into premultiplied RGB and
// divide out alpha to produce straight-alpha linear RGBA.
//
// Grounded on bitmap.rs's raster_cpu and raster.rs's new_cpu sample/ray
// table construction (spec §4.B/§4.C).
package raster

import (
	"github.com/chewxy/math32"

	"github.com/ilmenite-gfx/ilmenite/internal/geom"
	"github.com/ilmenite-gfx/ilmenite/internal/ilmtype"
	"github.com/ilmenite-gfx/ilmenite/internal/metrics"
)

// subpixelOffsets place the three (R, G, B) passes at the sixths of a pixel
// column, matching bitmap.rs's get_value calls at x = 1/6, 3/6, 5/6.
var subpixelOffsets = [3]float32{1.0 / 6.0, 3.0 / 6.0, 5.0 / 6.0}

// Table holds the precomputed sample-grid offsets and ray directions for a
// given quality pair. Building it once per rasterizer and reusing it across
// every glyph mirrors ImtRaster::new_cpu, which builds the table once at
// construction rather than per call.
type Table struct {
	Samples []geom.Point
	Rays    []geom.Point
}

// NewTable builds the sample grid and ray direction table for the given
// quality settings. The sample grid is a w-by-w grid (w = floor(sqrt(n)))
// of points in [-1, 1]^2; rays are evenly spaced around the circle.
func NewTable(sampleQuality ilmtype.SampleQuality, fillQuality ilmtype.FillQuality) Table {
	sampleCount := sampleQuality.SampleCount()
	rayCount := fillQuality.RayCount()

	w := int(math32.Sqrt(float32(sampleCount)))
	samples := make([]geom.Point, 0, sampleCount)
	for x := 1; x <= w; x++ {
		for y := 1; y <= w; y++ {
			samples = append(samples, geom.Point{
				X: ((float32(x) / (float32(w) + 1.0)) * 2.0) - 1.0,
				Y: ((float32(y) / (float32(w) + 1.0)) * 2.0) - 1.0,
			})
		}
	}

	rays := make([]geom.Point, 0, rayCount)
	for i := 0; i < rayCount; i++ {
		rad := (float32(i) * (360.0 / float32(rayCount))) * (math32.Pi / 180.0)
		rays = append(rays, geom.Point{X: math32.Cos(rad), Y: math32.Sin(rad)})
	}

	return Table{Samples: samples, Rays: rays}
}

// Rasterize fills a linear-RGBA float buffer (straight alpha, 4 floats per
// pixel) for the given flattened outline, at the metrics derived for it.
//
// lines and the glyph's (minX, maxY) are in design units; scaler converts
// design units to pixels at the target text height.
func (t Table) Rasterize(lines []geom.Line2, minX, maxY, scaler float32, m metrics.Bitmap) []float32 {
	if m.Width == 0 || m.Height == 0 || len(lines) == 0 {
		return nil
	}

	cellHeight := scaler / math32.Sqrt(float32(len(t.Samples)))
	cellWidth := cellHeight / 3.0

	rayLen := math32.Sqrt(
		math32.Pow(float32(m.Width)/scaler, 2) + math32.Pow(float32(m.Height)/scaler, 2),
	)

	out := make([]float32, m.Width*m.Height*4)

	for x := uint32(0); x < m.Width; x++ {
		for y := uint32(0); y < m.Height; y++ {
			idx := ((y*m.Width + x) * 4)

			r := t.getValue(lines, x, y, subpixelOffsets[0], 0, rayLen, cellWidth, cellHeight, m, minX, maxY, scaler)
			g := t.getValue(lines, x, y, subpixelOffsets[1], 0, rayLen, cellWidth, cellHeight, m, minX, maxY, scaler)
			b := t.getValue(lines, x, y, subpixelOffsets[2], 0, rayLen, cellWidth, cellHeight, m, minX, maxY, scaler)
			a := (r + g + b) / 3.0

			if a == 0 {
				continue
			}
			out[idx+0] = r / a
			out[idx+1] = g / a
			out[idx+2] = b / a
			out[idx+3] = a
		}
	}

	return out
}

func (t Table) getValue(
	lines []geom.Line2,
	px, py uint32,
	offsetX, offsetY, rayLen, cellWidth, cellHeight float32,
	m metrics.Bitmap,
	minX, maxY, scaler float32,
) float32 {
	sum := float32(0)

	for _, sample := range t.Samples {
		coord := transformCoords(px, py, sample, offsetX, offsetY, m, minX, maxY, scaler)
		if amt, filled := t.sampleFilled(lines, coord, rayLen, cellWidth, cellHeight); filled {
			sum += amt
		}
	}

	return sum / float32(len(t.Samples))
}

// transformCoords maps a pixel coordinate plus a subsample offset back into
// the glyph's design-unit space, matching bitmap.rs's transform_coords
// closure exactly (including the y-flip, since design-unit space is y-up
// and pixel space is y-down).
func transformCoords(px, py uint32, sample geom.Point, offsetX, offsetY float32, m metrics.Bitmap, minX, maxY, scaler float32) geom.Point {
	x := float32(px)
	y := float32(py) * -1.0

	x -= m.OffsetX
	y -= m.OffsetY

	x += sample.X
	y += sample.Y

	x += offsetX
	y += offsetY

	x /= scaler
	y /= scaler

	x += minX
	y += maxY

	return geom.Point{X: x, Y: y}
}

// sampleFilled casts every ray in the table from src and reports whether a
// majority register an odd number of outline crossings (the inside test),
// along with the averaged normalized hit distance across those rays.
func (t Table) sampleFilled(lines []geom.Line2, src geom.Point, rayLen, cellWidth, cellHeight float32) (float32, bool) {
	raysFilled := 0
	fillAmt := float32(0)

	for _, ray := range t.Rays {
		hits := 0
		dest := geom.Point{X: src.X + ray.X*rayLen, Y: src.Y + ray.Y*rayLen}

		rayAngle := math32.Atan(ray.Y / ray.X)
		rayMaxDist := (cellWidth / 2.0) / math32.Cos(rayAngle)
		if rayMaxDist > cellHeight/2.0 {
			rayMaxDist = (cellHeight / 2.0) / math32.Cos(1.570796327-rayAngle)
		}
		rayMinDist := rayMaxDist

		for _, line := range lines {
			if ip, ok := raySegmentIntersect(src, dest, line.A, line.B); ok {
				dist := src.Dist(ip)
				if dist < rayMinDist {
					rayMinDist = dist
				}
				hits++
			}
		}

		if hits%2 != 0 {
			raysFilled++
			fillAmt += rayMinDist / rayMaxDist
		}
	}

	if raysFilled*2 >= len(t.Rays) {
		return fillAmt / float32(raysFilled), true
	}
	return 0, false
}

// raySegmentIntersect finds the intersection of segment (p0, p1) with
// segment (p2, p3), if any lies within both segments' parameter ranges.
func raySegmentIntersect(p0, p1, p2, p3 geom.Point) (geom.Point, bool) {
	r := geom.Point{X: p1.X - p0.X, Y: p1.Y - p0.Y}
	s := geom.Point{X: p3.X - p2.X, Y: p3.Y - p2.Y}

	det := (r.X * s.Y) - (r.Y * s.X)
	if det == 0 {
		return geom.Point{}, false
	}

	u := (((p2.X - p0.X) * r.Y) - ((p2.Y - p0.Y) * r.X)) / det
	tt := (((p2.X - p0.X) * s.Y) - ((p2.Y - p0.Y) * s.X)) / det

	if tt >= 0 && tt <= 1 && u >= 0 && u <= 1 {
		return geom.Point{X: p0.X + r.X*tt, Y: p0.Y + r.Y*tt}, true
	}
	return geom.Point{}, false
}
