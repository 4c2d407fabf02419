package outline

import (
	"testing"

	"github.com/ilmenite-gfx/ilmenite/internal/geom"
	"github.com/ilmenite-gfx/ilmenite/internal/ilmtype"
)

type fakeLookup map[uint16]*ilmtype.ParsedGlyph

func (f fakeLookup) Glyph(index uint16) (*ilmtype.ParsedGlyph, error) {
	g, ok := f[index]
	if !ok {
		return nil, errNotFound
	}
	return g, nil
}

var errNotFound = errNotFoundType{}

type errNotFoundType struct{}

func (errNotFoundType) Error() string { return "not found" }

func TestBuildSquareContour(t *testing.T) {
	glyph := &ilmtype.ParsedGlyph{
		GlyphIndex: 1,
		Contours: [][]ilmtype.ContourPoint{
			{
				{X: 0, Y: 0, OnCurve: true},
				{X: 100, Y: 0, OnCurve: true},
				{X: 100, Y: 100, OnCurve: true},
				{X: 0, Y: 100, OnCurve: true},
			},
		},
	}

	lines, err := Build(fakeLookup{}, glyph, 1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 4 {
		t.Fatalf("expected 4 straight segments for a closed square, got %d", len(lines))
	}
}

func TestBuildSingleOffCurveProducesCurve(t *testing.T) {
	glyph := &ilmtype.ParsedGlyph{
		GlyphIndex: 1,
		Contours: [][]ilmtype.ContourPoint{
			{
				{X: 0, Y: 0, OnCurve: true},
				{X: 50, Y: 50, OnCurve: false},
				{X: 100, Y: 0, OnCurve: true},
			},
		},
	}

	lines, err := Build(fakeLookup{}, glyph, 1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) < minCurveSteps {
		t.Fatalf("expected at least %d chords for the flattened curve, got %d", minCurveSteps, len(lines))
	}
}

func TestBuildConsecutiveOffCurveSynthesizesMidpoint(t *testing.T) {
	// Two consecutive off-curve points with no explicit on-curve point
	// between them; the walk must synthesize the implicit midpoint.
	glyph := &ilmtype.ParsedGlyph{
		GlyphIndex: 1,
		Contours: [][]ilmtype.ContourPoint{
			{
				{X: 0, Y: 0, OnCurve: true},
				{X: 30, Y: 60, OnCurve: false},
				{X: 70, Y: 60, OnCurve: false},
				{X: 100, Y: 0, OnCurve: true},
			},
		},
	}

	lines, err := Build(fakeLookup{}, glyph, 1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) < 2*minCurveSteps {
		t.Fatalf("expected two flattened curves, got %d segments", len(lines))
	}
}

func TestBuildCompositeAppliesOffset(t *testing.T) {
	component := &ilmtype.ParsedGlyph{
		GlyphIndex: 2,
		Contours: [][]ilmtype.ContourPoint{
			{
				{X: 0, Y: 0, OnCurve: true},
				{X: 10, Y: 0, OnCurve: true},
				{X: 10, Y: 10, OnCurve: true},
			},
		},
	}
	composite := &ilmtype.ParsedGlyph{
		GlyphIndex: 1,
		Composites: []ilmtype.CompositeRef{
			{GlyphIndex: 2, OffsetX: 100, OffsetY: 200},
		},
	}

	lines, err := Build(fakeLookup{2: component}, composite, 1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 segments from the single component, got %d", len(lines))
	}
	for _, l := range lines {
		if l.A.X < 100 || l.A.Y < 200 {
			t.Fatalf("expected component geometry to be offset by the composite reference, got %+v", l)
		}
	}
}

func TestBuildCompositeCycleIsRejected(t *testing.T) {
	a := &ilmtype.ParsedGlyph{GlyphIndex: 1}
	b := &ilmtype.ParsedGlyph{GlyphIndex: 2}
	a.Composites = []ilmtype.CompositeRef{{GlyphIndex: 2}}
	b.Composites = []ilmtype.CompositeRef{{GlyphIndex: 1}}

	_, err := Build(fakeLookup{1: a, 2: b}, a, 1.0)
	if err == nil {
		t.Fatal("expected an error for a cyclic composite reference, got nil")
	}
}

func TestBuildMissingComponentGlyphErrors(t *testing.T) {
	composite := &ilmtype.ParsedGlyph{
		GlyphIndex: 1,
		Composites: []ilmtype.CompositeRef{{GlyphIndex: 99}},
	}

	_, err := Build(fakeLookup{}, composite, 1.0)
	if err == nil {
		t.Fatal("expected an error for a missing component glyph, got nil")
	}
}

func TestBuildEmptyGlyphProducesNoSegments(t *testing.T) {
	glyph := &ilmtype.ParsedGlyph{GlyphIndex: 3}

	lines, err := Build(fakeLookup{}, glyph, 1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("expected no segments for an empty glyph, got %d", len(lines))
	}
}

func TestFlattenCurveRespectsMinimumSteps(t *testing.T) {
	lines := flattenCurve(
		geom.Curve(geom.Point{X: 0, Y: 0}, geom.Point{X: 1, Y: 1}, geom.Point{X: 2, Y: 0}),
		0.0001, // tiny scaler keeps the estimated length-driven count below the floor
	)
	if len(lines) != minCurveSteps {
		t.Fatalf("expected the %d-step floor for a tiny scaler, got %d", minCurveSteps, len(lines))
	}
}
