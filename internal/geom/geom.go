// Package geom provides the geometric primitives shared by the outline
// builder and both rasterizers: points in design-unit space and the line and
// quadratic-curve segments that make up a glyph outline.
package geom

import "github.com/chewxy/math32"

// Point is a coordinate in the font's design-unit space (y-up).
//
// Mirrors the generic Point[T CoordType] idiom from agg_go/internal/basics,
// specialized to float32 since design units are always f32 (spec §3).
type Point struct {
	X, Y float32
}

// Lerp linearly interpolates between p and other at parameter t.
func (p Point) Lerp(t float32, other Point) Point {
	return Point{
		X: p.X + ((other.X - p.X) * t),
		Y: p.Y + ((other.Y - p.Y) * t),
	}
}

// Dist returns the Euclidean distance between p and other.
func (p Point) Dist(other Point) float32 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math32.Sqrt(dx*dx + dy*dy)
}

// Sub returns p - other.
func (p Point) Sub(other Point) Point {
	return Point{X: p.X - other.X, Y: p.Y - other.Y}
}

// SegmentKind distinguishes the two geometry variants a glyph outline is
// built from.
type SegmentKind int

const (
	// SegmentLine is a straight segment between two on-curve points.
	SegmentLine SegmentKind = iota
	// SegmentCurve is a quadratic Bezier with P1 the off-curve control point.
	SegmentCurve
)

// Segment is a sum of a straight Line(P0, P1) or a quadratic
// Curve(P0, P1, P2), matching ImtGeometry's Line/Curve variants. For
// SegmentLine, P2 is unused.
type Segment struct {
	Kind     SegmentKind
	P0, P1, P2 Point
}

// Line constructs a straight segment.
func Line(p0, p1 Point) Segment {
	return Segment{Kind: SegmentLine, P0: p0, P1: p1}
}

// Curve constructs a quadratic segment; p1 is the off-curve control point.
func Curve(p0, p1, p2 Point) Segment {
	return Segment{Kind: SegmentCurve, P0: p0, P1: p1, P2: p2}
}

// PointAt evaluates a quadratic Bezier segment at parameter t in [0, 1].
// Only meaningful for SegmentCurve.
func (s Segment) PointAt(t float32) Point {
	u := 1 - t
	return Point{
		X: (u*u)*s.P0.X + (2*u*t)*s.P1.X + (t*t)*s.P2.X,
		Y: (u*u)*s.P0.Y + (2*u*t)*s.P1.Y + (t*t)*s.P2.Y,
	}
}

// Line2 is a flattened straight line in design-unit space: the unit the
// outline builder emits and the rasterizers consume.
type Line2 struct {
	A, B Point
}
