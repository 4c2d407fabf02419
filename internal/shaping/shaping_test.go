package shaping

import (
	"testing"

	"github.com/ilmenite-gfx/ilmenite/ilmerr"
	"github.com/ilmenite-gfx/ilmenite/internal/ilmtype"
)

// fakeSource is a GlyphSource over a small fixed alphabet: every rune
// advances 10 units and has a 10x10 box starting at its own origin, so
// test expectations reduce to simple arithmetic on glyph count.
type fakeSource struct {
	props ilmtype.FontProps
}

func (f *fakeSource) GlyphIndexForRune(r rune) (uint16, error) {
	if r == '?' {
		return 0, ilmerr.New(ilmerr.SourceCmap, ilmerr.KindMissingIndex)
	}
	return uint16(r), nil
}

func (f *fakeSource) Glyph(index uint16) (*ilmtype.ParsedGlyph, error) {
	return &ilmtype.ParsedGlyph{GlyphIndex: index, MinX: 0, MinY: 0, MaxX: 10, MaxY: 10, HoriAdv: 10}, nil
}

func (f *fakeSource) Advance(index uint16) (float32, error) {
	return 10, nil
}

func (f *fakeSource) Props() ilmtype.FontProps {
	return f.props
}

func unitProps() ilmtype.FontProps {
	return ilmtype.FontProps{Scaler: 1, Ascender: 10, Descender: -2, LineGap: 1}
}

func TestShapePropagatesMissingGlyph(t *testing.T) {
	_, err := Shape(&fakeSource{props: unitProps()}, []rune("a?b"), DefaultOptions())
	if err == nil {
		t.Fatal("expected an error for an unmapped rune")
	}
}

func TestShapeAccumulatesAdvanceLeftToRight(t *testing.T) {
	opts := DefaultOptions()
	opts.TextHeight = 1
	opts.AlignWholePixels = false

	out, err := Shape(&fakeSource{props: unitProps()}, []rune("abc"), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 shaped glyphs, got %d", len(out))
	}
	for i, want := range []float32{0, 10, 20} {
		if out[i].Position.X != want {
			t.Errorf("glyph %d: X = %v, want %v", i, out[i].Position.X, want)
		}
	}
}

func TestShapeWrapNewLineBreaksOnOverflow(t *testing.T) {
	opts := DefaultOptions()
	opts.TextHeight = 1
	opts.AlignWholePixels = false
	opts.TextWrap = WrapNewLine
	opts.BodyWidth = 25 // fits 2 glyphs (0, 10) before the 3rd (max_x 30) overflows

	out, err := Shape(&fakeSource{props: unitProps()}, []rune("abc"), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 shaped glyphs, got %d", len(out))
	}
	if out[0].Position.Y != 0 || out[1].Position.Y != 0 {
		t.Errorf("expected the first two glyphs on line 0, got Y=%v,%v", out[0].Position.Y, out[1].Position.Y)
	}
	if out[2].Position.Y == 0 {
		t.Error("expected the third glyph wrapped onto a new line")
	}
	if out[2].Position.X != 0 {
		t.Errorf("expected the wrapped glyph reset to X=0, got %v", out[2].Position.X)
	}
}

func TestShapeWrapShiftDropsLeadingGlyphsOfAnOverflowingLine(t *testing.T) {
	opts := DefaultOptions()
	opts.TextHeight = 1
	opts.AlignWholePixels = false
	opts.TextWrap = WrapShift
	opts.BodyWidth = 15 // line width (30) exceeds BodyWidth by 15: the line moves
	// left by 15, so 'a' (-15) and 'b' (-5) fall past the left edge and are dropped.

	out, err := Shape(&fakeSource{props: unitProps()}, []rune("abc"), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected the first two glyphs dropped from the overflowing line, got %d glyphs", len(out))
	}
	if out[0].Parsed.GlyphIndex != 'c' {
		t.Errorf("expected the surviving glyph to be 'c', got glyph index %d", out[0].Parsed.GlyphIndex)
	}
	if got, want := out[0].Position.X, float32(5); got < want-0.01 || got > want+0.01 {
		t.Errorf("expected the surviving glyph shifted to X=%v (its right edge at the body edge), got %v", want, got)
	}
}

func TestShapeWrapShiftLeavesAFittingLineUnchanged(t *testing.T) {
	opts := DefaultOptions()
	opts.TextHeight = 1
	opts.AlignWholePixels = false
	opts.TextWrap = WrapShift
	opts.BodyWidth = 40 // line width 30 fits inside 40: nothing is shifted or dropped.

	out, err := Shape(&fakeSource{props: unitProps()}, []rune("abc"), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected no glyphs dropped from a line that fits the body width, got %d", len(out))
	}
	for i, want := range []float32{0, 10, 20} {
		if got := out[i].Position.X; got < want-0.01 || got > want+0.01 {
			t.Errorf("glyph %d: X = %v, want %v", i, got, want)
		}
	}
}

func TestShapeWrapNoneNeverShiftsOrBreaks(t *testing.T) {
	opts := DefaultOptions()
	opts.TextHeight = 1
	opts.AlignWholePixels = false
	opts.BodyWidth = 15

	out, err := Shape(&fakeSource{props: unitProps()}, []rune("abc"), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("WrapNone must keep every glyph, got %d", len(out))
	}
	for i, want := range []float32{0, 10, 20} {
		if out[i].Position.X != want {
			t.Errorf("glyph %d: X = %v, want %v", i, out[i].Position.X, want)
		}
	}
}

func TestShapePopulatesXOverflowWhenBodyWidthSet(t *testing.T) {
	opts := DefaultOptions()
	opts.TextHeight = 1
	opts.AlignWholePixels = false
	opts.BodyWidth = 15 // glyph 'b' at X=10 has max_x=20, overflowing by 5

	out, err := Shape(&fakeSource{props: unitProps()}, []rune("ab"), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0].XOverflow != 0 {
		t.Errorf("expected the first glyph (max_x=10) not to overflow a body width of 15, got %v", out[0].XOverflow)
	}
	if got, want := out[1].XOverflow, float32(5); got < want-0.01 || got > want+0.01 {
		t.Errorf("expected the second glyph to overflow by %v, got %v", want, got)
	}
}

func TestShapeDefaultOptionsProduceNoOverflow(t *testing.T) {
	out, err := Shape(&fakeSource{props: unitProps()}, []rune("abc"), DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, g := range out {
		if g.XOverflow != 0 || g.YOverflow != 0 {
			t.Errorf("glyph %d: expected no overflow under the unbounded default body size, got x=%v y=%v", i, g.XOverflow, g.YOverflow)
		}
	}
}

func TestApplyVertAlignLeavesTopAlignedUnchanged(t *testing.T) {
	glyphs := []ilmtype.ShapedGlyph{{Position: ilmtype.Position{X: 0, Y: 5}}}
	applyVertAlign(glyphs, Options{VertAlign: VertTop}, 10, 1)
	if glyphs[0].Position.Y != 5 {
		t.Errorf("expected VertTop to leave Y unchanged, got %v", glyphs[0].Position.Y)
	}
}
