// Package outline builds a flat line-segment list from a parsed glyph's raw
// contour points, synthesizing implicit on-curve points for runs of
// off-curve TrueType control points, resolving composite glyph references,
// and adaptively flattening quadratic Beziers into chords.
//
// Grounded on src/parse.rs's contour walk (the on-curve/off-curve synthesis
// loop building ImtGeometry from simple.coordinates/simple.flags, and the
// geometry_indexes work stack for composite glyphs) and bitmap.rs's
// draw_curve (the two-pass arc-length flattening). Both lived in the
// "external parser" in the original crate; spec §4.A assigns this algorithm
// to the core's Outline builder component, so it is reproduced here rather
// than in internal/fontio.
package outline

import (
	"github.com/chewxy/math32"

	"github.com/ilmenite-gfx/ilmenite/ilmerr"
	"github.com/ilmenite-gfx/ilmenite/internal/geom"
	"github.com/ilmenite-gfx/ilmenite/internal/ilmtype"
)

// minCurveSteps is the floor on chord count for any flattened curve,
// regardless of its design-unit length (spec §4.A).
const minCurveSteps = 3

// pilotSteps is the sample count of the arc-length estimation pass that
// precedes the final chord count (bitmap.rs's draw_curve: a fixed 10-step
// pilot, then a final pass sized from the measured length).
const pilotSteps = 10

// maxCompositeDepth bounds composite recursion independent of the
// visited-set cycle guard, as a defense against pathological but
// non-cyclic component chains.
const maxCompositeDepth = 64

// Lookup resolves a glyph index to its parsed glyph, for composite glyph
// traversal. Implemented by whatever holds the font's full glyph table
// (internal/fontio in this repo).
type Lookup interface {
	Glyph(index uint16) (*ilmtype.ParsedGlyph, error)
}

// Build flattens a parsed glyph's contours (or, for composite glyphs, its
// referenced components) into a line-segment list in design units. scaler
// converts design units to pixels at the glyph's eventual text height and
// sizes curve subdivision so the piecewise-linear approximation error stays
// under half a pixel at that size.
func Build(lookup Lookup, glyph *ilmtype.ParsedGlyph, scaler float32) ([]geom.Line2, error) {
	b := &builder{lookup: lookup, scaler: scaler, visited: make(map[uint16]bool)}
	if err := b.walk(glyph, 0, 0, 0); err != nil {
		return nil, err
	}
	return b.lines, nil
}

type builder struct {
	lookup  Lookup
	scaler  float32
	visited map[uint16]bool
	lines   []geom.Line2
}

func (b *builder) walk(glyph *ilmtype.ParsedGlyph, offX, offY float32, depth int) error {
	if depth > maxCompositeDepth {
		return ilmerr.New(ilmerr.SourceOutline, ilmerr.KindUnimplementedDataType)
	}

	if len(glyph.Composites) > 0 {
		if b.visited[glyph.GlyphIndex] {
			return ilmerr.New(ilmerr.SourceOutline, ilmerr.KindUnimplementedDataType)
		}
		b.visited[glyph.GlyphIndex] = true
		defer delete(b.visited, glyph.GlyphIndex)

		for _, ref := range glyph.Composites {
			child, err := b.lookup.Glyph(ref.GlyphIndex)
			if err != nil {
				return ilmerr.New(ilmerr.SourceOutline, ilmerr.KindMissingGlyph)
			}
			if err := b.walk(child, offX+ref.OffsetX, offY+ref.OffsetY, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	for _, contour := range glyph.Contours {
		b.walkContour(contour, offX, offY)
	}
	return nil
}

// walkContour implements spec §4.A's three-case rule over a single
// contour's on/off-curve points.
func (b *builder) walkContour(contour []ilmtype.ContourPoint, offX, offY float32) {
	n := len(contour)
	if n == 0 {
		return
	}

	at := func(i int) ilmtype.ContourPoint { return contour[((i%n)+n)%n] }
	pt := func(cp ilmtype.ContourPoint) geom.Point {
		return geom.Point{X: cp.X + offX, Y: cp.Y + offY}
	}

	for j := 0; j < n; j++ {
		cur := at(j)
		next := at(j + 1)

		if !cur.OnCurve {
			// Case 1: off-curve point. Synthesize implicit endpoints from
			// its two neighbors (using the neighbor directly if it is
			// itself on-curve, else the midpoint to it).
			prev := at(j - 1)
			a := midpointOrSelf(prev, cur, offX, offY)
			c := midpointOrSelf(next, cur, offX, offY)
			b.lines = append(b.lines, flattenCurve(geom.Curve(a, pt(cur), c), b.scaler)...)
			continue
		}

		if next.OnCurve {
			// Case 2: both on-curve — a straight segment.
			b.lines = append(b.lines, geom.Line2{A: pt(cur), B: pt(next)})
		}
		// Case 3: current on-curve, next off-curve — nothing emitted here;
		// the next iteration's off-curve case handles it.
	}
}

func midpointOrSelf(neighbor, offCurve ilmtype.ContourPoint, offX, offY float32) geom.Point {
	if neighbor.OnCurve {
		return geom.Point{X: neighbor.X + offX, Y: neighbor.Y + offY}
	}
	return geom.Point{
		X: (neighbor.X+offCurve.X)/2 + offX,
		Y: (neighbor.Y+offCurve.Y)/2 + offY,
	}
}

// flattenCurve subdivides a quadratic Bezier into chords. First a pilot
// pass at t = 1/10 .. 10/10 measures the arc length; the final step count
// is max(3, ceil(length * scaler * 2)).
func flattenCurve(seg geom.Segment, scaler float32) []geom.Line2 {
	length := float32(0)
	last := seg.P0

	for s := 1; s <= pilotSteps; s++ {
		t := float32(s) / float32(pilotSteps)
		next := seg.PointAt(t)
		length += last.Dist(next)
		last = next
	}

	steps := int(math32.Ceil(length * scaler * 2))
	if steps < minCurveSteps {
		steps = minCurveSteps
	}

	lines := make([]geom.Line2, 0, steps)
	last = seg.P0

	for s := 1; s <= steps; s++ {
		t := float32(s) / float32(steps)
		next := seg.PointAt(t)
		lines = append(lines, geom.Line2{A: last, B: next})
		last = next
	}

	return lines
}
