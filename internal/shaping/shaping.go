// Package shaping is the external collaborator spec.md treats as already
// done — text shaping (line breaking, kerning, alignment) — supplemented
// here as a minimal advance-based layout so the batch driver has a
// pre-shaped glyph list to consume end to end. It does not perform GSUB/GPOS
// substitution or positioning; it advances each glyph by its horizontal
// metric and wraps lines by body width, matching the left-to-right,
// whole-pixel-snapped layout loop in shape.rs minus its allsorts-driven
// placement and line-break-on-mark-glyph handling (kerning is out of scope
// per spec's Non-goals).
package shaping

import (
	"github.com/chewxy/math32"

	"github.com/ilmenite-gfx/ilmenite/ilmerr"
	"github.com/ilmenite-gfx/ilmenite/internal/ilmtype"
)

// TextWrap controls how a line of glyphs that exceeds Options.BodyWidth is
// handled.
type TextWrap int

const (
	WrapNone TextWrap = iota
	WrapNewLine
	// WrapShift does not break a long line onto a new line; instead the
	// whole line is shifted so its content that no longer fits is dropped
	// from the front, per shape.rs's ImtTextWrap::Shift.
	WrapShift
)

// VertAlign controls vertical placement of the whole shaped block within
// Options.BodyHeight.
type VertAlign int

const (
	VertTop VertAlign = iota
	VertCenter
	VertBottom
)

// HoriAlign controls horizontal placement of each line within
// Options.BodyWidth.
type HoriAlign int

const (
	HoriLeft HoriAlign = iota
	HoriCenter
	HoriRight
)

// Options mirrors ImtShapeOpts's non-GPOS fields.
type Options struct {
	BodyWidth        float32
	BodyHeight       float32
	TextHeight       float32
	LineSpacing      float32
	TextWrap         TextWrap
	VertAlign        VertAlign
	HoriAlign        HoriAlign
	AlignWholePixels bool
}

// DefaultOptions mirrors ImtShapeOpts::default.
func DefaultOptions() Options {
	return Options{
		TextHeight: 36.0,
		TextWrap:   WrapNone,
		VertAlign:  VertTop,
		HoriAlign:  HoriLeft,
		AlignWholePixels: true,
	}
}

// GlyphSource resolves a rune to a parsed glyph and its advance, the two
// facts shaping needs per character; internal/fontio.Font implements it.
type GlyphSource interface {
	GlyphIndexForRune(r rune) (uint16, error)
	Glyph(index uint16) (*ilmtype.ParsedGlyph, error)
	Advance(index uint16) (float32, error)
	Props() ilmtype.FontProps
}

// Shape lays out text's glyphs left to right, wrapping lines per opts, and
// returns one ilmtype.ShapedGlyph per character other than a newline
// (newlines only start a new line and produce no entry). Under WrapShift,
// glyphs that the shift pushes past the left edge are dropped as well.
func Shape(src GlyphSource, text []rune, opts Options) ([]ilmtype.ShapedGlyph, error) {
	props := src.Props()
	scaler := props.Scaler * opts.TextHeight

	lineSpacing := (math32.Floor(opts.TextHeight/18.0) + opts.LineSpacing) / scaler
	vertAdv := props.LineGap + props.Ascender + lineSpacing
	if opts.AlignWholePixels {
		vertAdv = math32.Ceil(vertAdv)
	}

	var out []ilmtype.ShapedGlyph
	var lines [][2]int
	var lineStart int
	x, y := float32(0), float32(0)

	flushLine := func(lineEnd int) {
		if lineEnd > lineStart {
			lines = append(lines, [2]int{lineStart, lineEnd})
		}
		if opts.HoriAlign == HoriLeft || lineEnd <= lineStart {
			lineStart = lineEnd
			return
		}
		lineWidth := out[lineEnd-1].Position.X
		var shift float32
		if opts.HoriAlign == HoriCenter {
			shift = (opts.BodyWidth/scaler - lineWidth) / 2.0
		} else {
			shift = opts.BodyWidth/scaler - lineWidth
		}
		for i := lineStart; i < lineEnd; i++ {
			out[i].Position.X += shift
		}
		lineStart = lineEnd
	}

	for _, r := range text {
		if r == '\n' {
			flushLine(len(out))
			x = 0
			y += vertAdv
			continue
		}

		index, err := src.GlyphIndexForRune(r)
		if err != nil {
			return nil, ilmerr.Wrap(ilmerr.SourceShaper, ilmerr.KindMissingGlyph, err)
		}
		parsed, err := src.Glyph(index)
		if err != nil {
			return nil, err
		}
		adv, err := src.Advance(index)
		if err != nil {
			return nil, err
		}

		if opts.TextWrap == WrapNewLine && x > 0 && (x+parsed.MaxX)*scaler > opts.BodyWidth {
			flushLine(len(out))
			x = 0
			y += vertAdv
		}

		pos := ilmtype.Position{X: x, Y: y}
		if opts.AlignWholePixels {
			pos = ilmtype.Position{X: math32.Ceil(x), Y: math32.Ceil(y)}
		}

		out = append(out, ilmtype.ShapedGlyph{
			Parsed:   parsed,
			Position: pos,
		})

		x += adv
	}
	flushLine(len(out))

	if opts.TextWrap == WrapShift {
		out = applyShiftWrap(out, lines, scaler, opts.BodyWidth)
	}
	applyOverflow(out, opts, scaler, props.Ascender)

	applyVertAlign(out, opts, vertAdv, scaler)

	return out, nil
}

// applyShiftWrap implements ImtTextWrap::Shift (shape.rs's "Shift Wrapping"
// pass): for each line that overflows the body width, the whole line is
// shifted so its rightmost content lands at the body edge, and whatever
// glyphs that shift pushes past the left edge are dropped. lines holds
// [start, end) index pairs into out, captured before any shift.
func applyShiftWrap(out []ilmtype.ShapedGlyph, lines [][2]int, scaler, bodyWidth float32) []ilmtype.ShapedGlyph {
	if len(lines) == 0 {
		return out
	}

	remove := make(map[int]bool)
	for _, ln := range lines {
		start, end := ln[0], ln[1]
		last := out[end-1].Parsed
		width := out[end-1].Position.X + last.MaxX
		shift := bodyWidth/scaler - width
		if shift >= 0 {
			continue
		}

		started := false
		for i := start; i < end; i++ {
			if !started {
				if out[i].Position.X+shift >= 0 {
					started = true
					out[i].Position.X += shift
				} else {
					remove[i] = true
				}
			} else {
				out[i].Position.X += shift
			}
		}
	}
	if len(remove) == 0 {
		return out
	}

	kept := make([]ilmtype.ShapedGlyph, 0, len(out)-len(remove))
	for i, g := range out {
		if !remove[i] {
			kept = append(kept, g)
		}
	}
	return kept
}

// applyOverflow populates XOverflow/YOverflow for every shaped glyph whose
// bounding box extends past the requested body size (shape.rs's "Calculate
// Overflows" pass). A body dimension of zero or less means "unbounded" on
// that axis and is skipped, so the default Options{} (BodyWidth/BodyHeight
// both zero) produces no overflow — shape.rs runs this pass unconditionally
// against its own zero default, which would flag nearly every glyph as
// overflowing; this deviates from that default-case behavior deliberately.
func applyOverflow(out []ilmtype.ShapedGlyph, opts Options, scaler, ascender float32) {
	if opts.BodyWidth <= 0 && opts.BodyHeight <= 0 {
		return
	}

	bodyWidthFU := opts.BodyWidth / scaler
	bodyHeightFU := opts.BodyHeight / scaler

	for i := range out {
		g := &out[i]
		if opts.BodyWidth > 0 {
			minX := g.Position.X + g.Parsed.MinX
			maxX := minX + (g.Parsed.MaxX - g.Parsed.MinX)
			if maxX > bodyWidthFU {
				g.XOverflow = maxX - bodyWidthFU
			}
		}
		if opts.BodyHeight > 0 {
			bearingY := ascender - g.Parsed.MaxY
			minY := g.Position.Y + bearingY
			maxY := minY + (g.Parsed.MaxY - g.Parsed.MinY)
			if maxY > bodyHeightFU {
				g.YOverflow = maxY - bodyHeightFU
			}
		}
	}
}

func applyVertAlign(glyphs []ilmtype.ShapedGlyph, opts Options, vertAdv, scaler float32) {
	if opts.VertAlign == VertTop || len(glyphs) == 0 {
		return
	}

	maxY := float32(0)
	for _, g := range glyphs {
		if g.Position.Y > maxY {
			maxY = g.Position.Y
		}
	}
	blockHeight := (maxY + vertAdv) * scaler

	var shift float32
	if opts.VertAlign == VertCenter {
		shift = (opts.BodyHeight - blockHeight) / (2.0 * scaler)
	} else {
		shift = (opts.BodyHeight - blockHeight) / scaler
	}

	for i := range glyphs {
		glyphs[i].Position.Y += shift
	}
}
