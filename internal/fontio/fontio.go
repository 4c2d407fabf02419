// Package fontio is the external collaborator the core's data model treats
// as already done: OpenType table parsing. It loads an sfnt.Font and
// exposes the shapes the core consumes — ilmtype.ParsedGlyph (raw contours,
// not pre-flattened geometry) and ilmtype.FontProps — so the
// on-curve/off-curve synthesis required by spec §4.A still happens inside
// internal/outline, not here. sfnt resolves composite glyphs into plain
// contours while loading them, so the ParsedGlyphs built here never carry
// Composites and internal/outline's composite traversal is not exercised
// for them.
//
// Grounded on parse.rs's ImtParser: the scaler and ascender derivation
// (including its two tracked TODOs, reproduced verbatim) and the
// glyf-table contour walk, reworked onto golang.org/x/image/font/sfnt,
// the OpenType parser used across this retrieval pack (cogentcore-core,
// esimov-caire, Konstantin8105-glsymbol, phanxgames-willow all depend on
// golang.org/x/image).
package fontio

import (
	"sync"

	"github.com/chewxy/math32"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/ilmenite-gfx/ilmenite/ilmerr"
	"github.com/ilmenite-gfx/ilmenite/internal/ilmtype"
)

// defaultDPI and defaultPixelHeight anchor the scaler derivation to the
// same reference frame parse.rs uses: a 1px-tall glyph at 72 DPI before
// the caller's own text-height scaling is applied.
const (
	defaultDPI         = 72.0
	defaultPixelHeight = 1.0
)

// Font wraps a parsed OpenType font, caching ParsedGlyph results so a
// single Font can back many outline.Build calls (and itself implements
// outline.Lookup for composite glyph resolution).
type Font struct {
	sfntFont *sfnt.Font
	props    ilmtype.FontProps

	mu     sync.Mutex
	buf    sfnt.Buffer
	glyphs map[uint16]*ilmtype.ParsedGlyph
}

// Parse loads an OpenType/TrueType font from raw file bytes.
func Parse(data []byte) (*Font, error) {
	sf, err := sfnt.Parse(data)
	if err != nil {
		return nil, ilmerr.Wrap(ilmerr.SourceFile, ilmerr.KindFileRead, err)
	}

	f := &Font{sfntFont: sf, glyphs: make(map[uint16]*ilmtype.ParsedGlyph)}
	if err := f.loadProps(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Font) loadProps() error {
	unitsPerEm, err := f.sfntFont.UnitsPerEm()
	if err != nil {
		return ilmerr.Wrap(ilmerr.SourceHead, ilmerr.KindFileRead, err)
	}

	metrics, err := f.sfntFont.Metrics(&f.buf, fixed.I(int(unitsPerEm)), 0)
	if err != nil {
		return ilmerr.Wrap(ilmerr.SourceHhea, ilmerr.KindFileRead, err)
	}

	// head.yMin, read at 1 unit-per-em ppem so Bounds reports raw design
	// units rather than a hinted/rasterized size, same trick as the
	// Metrics call above.
	bounds, err := f.sfntFont.Bounds(&f.buf, fixed.I(int(unitsPerEm)), 0)
	if err != nil {
		return ilmerr.Wrap(ilmerr.SourceHead, ilmerr.KindFileRead, err)
	}
	yMin := fixedToF32(bounds.Min.Y)

	em := float32(unitsPerEm)

	// TODO 1.00 should be 1.33 but why? (kept verbatim from the reference
	// derivation this was ported from)
	scaler := ((defaultPixelHeight * 1.00) * defaultDPI) / (defaultDPI * em)

	// TODO: (em / 22.0).floor() needed to adjust y_min for some reason
	// (kept verbatim from the reference derivation this was ported from).
	ascender := fixedToF32(metrics.Ascent) + yMin + math32.Floor(em/22.0)

	f.props = ilmtype.FontProps{
		Scaler:    scaler,
		Ascender:  ascender,
		Descender: -fixedToF32(metrics.Descent),
		LineGap:   fixedToF32(metrics.Height) - fixedToF32(metrics.Ascent) - fixedToF32(metrics.Descent),
	}
	return nil
}

// Props returns the font's scaler/ascender/descender/line-gap properties.
func (f *Font) Props() ilmtype.FontProps {
	return f.props
}

// GlyphIndexForRune resolves a rune to its glyph index via the font's cmap.
func (f *Font) GlyphIndexForRune(r rune) (uint16, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	idx, err := f.sfntFont.GlyphIndex(&f.buf, r)
	if err != nil {
		return 0, ilmerr.Wrap(ilmerr.SourceCmap, ilmerr.KindFileRead, err)
	}
	if idx == 0 {
		return 0, ilmerr.New(ilmerr.SourceCmap, ilmerr.KindMissingIndex)
	}
	return uint16(idx), nil
}

// Advance returns a glyph's horizontal advance in design units.
func (f *Font) Advance(index uint16) (float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	unitsPerEm, err := f.sfntFont.UnitsPerEm()
	if err != nil {
		return 0, ilmerr.Wrap(ilmerr.SourceHmtx, ilmerr.KindFileRead, err)
	}
	adv, err := f.sfntFont.GlyphAdvance(&f.buf, sfnt.GlyphIndex(index), fixed.I(int(unitsPerEm)), 0)
	if err != nil {
		return 0, ilmerr.Wrap(ilmerr.SourceHmtx, ilmerr.KindFileRead, err)
	}
	return fixedToF32(adv), nil
}

// Glyph implements outline.Lookup: it returns a glyph's raw contours in
// design-unit space, parsing and caching on first request.
func (f *Font) Glyph(index uint16) (*ilmtype.ParsedGlyph, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if g, ok := f.glyphs[index]; ok {
		return g, nil
	}

	g, err := f.loadGlyphLocked(index)
	if err != nil {
		return nil, err
	}
	f.glyphs[index] = g
	return g, nil
}

func (f *Font) loadGlyphLocked(index uint16) (*ilmtype.ParsedGlyph, error) {
	unitsPerEm, err := f.sfntFont.UnitsPerEm()
	if err != nil {
		return nil, ilmerr.Wrap(ilmerr.SourceGlyf, ilmerr.KindFileRead, err)
	}

	// Requesting ppem == unitsPerEm makes sfnt's internal
	// funits-to-pixels scaling an identity, so LoadGlyph hands back
	// segments in the font's native design-unit space.
	segs, err := f.sfntFont.LoadGlyph(&f.buf, sfnt.GlyphIndex(index), fixed.I(int(unitsPerEm)), nil)
	if err != nil {
		return nil, ilmerr.Wrap(ilmerr.SourceGlyf, ilmerr.KindFileRead, err)
	}

	adv, err := f.sfntFont.GlyphAdvance(&f.buf, sfnt.GlyphIndex(index), fixed.I(int(unitsPerEm)), 0)
	if err != nil {
		return nil, ilmerr.Wrap(ilmerr.SourceHmtx, ilmerr.KindFileRead, err)
	}

	contours, minX, minY, maxX, maxY := segmentsToContours(segs)

	return &ilmtype.ParsedGlyph{
		GlyphIndex: index,
		Contours:   contours,
		MinX:       minX, MinY: minY, MaxX: maxX, MaxY: maxY,
		HoriAdv: fixedToF32(adv),
	}, nil
}

// segmentsToContours reconstructs raw on/off-curve contour points from
// sfnt's already on-curve-resolved Segments, so internal/outline's
// contour-walk algorithm still does the synthesis work spec §4.A assigns
// it, rather than consuming pre-flattened geometry. A QuadTo's control
// point becomes an off-curve ContourPoint; every other segment endpoint is
// on-curve.
//
// Cubic segments (SegmentOpCubeTo) occur in CFF/PostScript outlines, not
// TrueType glyf tables; the ones that are present are approximated here by
// sampling the cubic at fixed steps into short on-curve line segments,
// since ContourPoint only models the quadratic TrueType case.
func segmentsToContours(segs sfnt.Segments) ([][]ilmtype.ContourPoint, float32, float32, float32, float32) {
	var contours [][]ilmtype.ContourPoint
	var current []ilmtype.ContourPoint
	minX, minY := float32(0), float32(0)
	maxX, maxY := float32(0), float32(0)
	first := true

	track := func(p ilmtype.ContourPoint) {
		if first {
			minX, maxX = p.X, p.X
			minY, maxY = p.Y, p.Y
			first = false
			return
		}
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	flush := func() {
		if len(current) > 0 {
			contours = append(contours, current)
			current = nil
		}
	}

	for _, seg := range segs {
		switch seg.Op {
		case sfnt.SegmentOpMoveTo:
			flush()
			p := pointFromFixed(seg.Args[0])
			track(p)
			current = append(current, p)
		case sfnt.SegmentOpLineTo:
			p := pointFromFixed(seg.Args[0])
			track(p)
			current = append(current, p)
		case sfnt.SegmentOpQuadTo:
			ctrl := pointFromFixed(seg.Args[0])
			ctrl.OnCurve = false
			end := pointFromFixed(seg.Args[1])
			track(ctrl)
			track(end)
			current = append(current, ctrl, end)
		case sfnt.SegmentOpCubeTo:
			const cubicSteps = 6
			start := lastPoint(current)
			c1 := pointFromFixed(seg.Args[0])
			c2 := pointFromFixed(seg.Args[1])
			end := pointFromFixed(seg.Args[2])
			for s := 1; s <= cubicSteps; s++ {
				t := float32(s) / float32(cubicSteps)
				p := cubicAt(start, c1, c2, end, t)
				track(p)
				current = append(current, p)
			}
		}
	}
	flush()

	return contours, minX, minY, maxX, maxY
}

func lastPoint(contour []ilmtype.ContourPoint) ilmtype.ContourPoint {
	if len(contour) == 0 {
		return ilmtype.ContourPoint{}
	}
	return contour[len(contour)-1]
}

func cubicAt(p0, p1, p2, p3 ilmtype.ContourPoint, t float32) ilmtype.ContourPoint {
	u := 1 - t
	x := u*u*u*p0.X + 3*u*u*t*p1.X + 3*u*t*t*p2.X + t*t*t*p3.X
	y := u*u*u*p0.Y + 3*u*u*t*p1.Y + 3*u*t*t*p2.Y + t*t*t*p3.Y
	return ilmtype.ContourPoint{X: x, Y: y, OnCurve: true}
}

func pointFromFixed(p fixed.Point26_6) ilmtype.ContourPoint {
	return ilmtype.ContourPoint{X: fixedToF32(p.X), Y: fixedToF32(p.Y), OnCurve: true}
}

func fixedToF32(v fixed.Int26_6) float32 {
	return float32(v) / 64.0
}
