// Package metrics derives a glyph bitmap's pixel extent, bearings, and the
// whole-pixel alignment offset fed into the rasterizer, from a parsed
// glyph's analytic bounding box.
//
// Grounded on bitmap.rs's expand_round and ImtGlyphBitmap::new (spec §4.D).
package metrics

import "github.com/chewxy/math32"

// Bitmap is the set of values a rasterizer needs before it can allocate an
// output buffer and begin sampling: the pixel extent, the bearings the
// caller composites the result at, and the subpixel offset the rasterizer
// itself must add to every sample coordinate when whole-pixel alignment is
// requested.
type Bitmap struct {
	Width, Height      uint32
	BearingX, BearingY float32
	OffsetX, OffsetY   float32
}

// Derive computes a Bitmap from a glyph's analytic bounding box (in design
// units), its font's ascender (also in design units), the combined
// scaler (font.Scaler * text height), and whether bearings are snapped to
// whole pixels.
func Derive(minX, minY, maxX, maxY, ascender, scaler float32, alignWholePixels bool) Bitmap {
	bearingX := minX * scaler
	bearingY := (ascender - maxY) * scaler

	var offsetX, offsetY float32
	if alignWholePixels {
		offsetX = (bearingX - math32.Ceil(bearingX)) + 1.0
		bearingX = math32.Ceil(bearingX)
		offsetY = -(bearingY - math32.Ceil(bearingY)) - 1.0
		bearingY = math32.Ceil(bearingY)
	}

	height := uint32(expandRound(maxY*scaler, true)-expandRound(minY*scaler, false)) + 1
	width := uint32(expandRound(maxX*scaler, true)-expandRound(minX*scaler, false)) + 1

	return Bitmap{
		Width:    width,
		Height:   height,
		BearingX: bearingX,
		BearingY: bearingY,
		OffsetX:  offsetX,
		OffsetY:  offsetY,
	}
}

// expandRound implements the expand-round rule: the outer-pixel boundary
// sits beyond the analytic extremum, so the rasterized outline never clips
// against the bitmap edge. The margin is at least one full pixel except for
// a negative, non-integer min-side value, which is truncated toward zero
// before one is subtracted (-0.5 gives -1). direction true computes the
// outer (max-side) boundary, false the inner (min-side) one.
func expandRound(val float32, direction bool) float32 {
	if direction {
		if val >= 0 {
			return math32.Ceil(val) + 1.0
		}
		return math32.Trunc(val) + 1.0
	}
	if val >= 0 {
		return math32.Trunc(val) - 1.0
	}
	return math32.Ceil(val) - 1.0
}
