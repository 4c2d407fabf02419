package ilmenite

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/ilmenite-gfx/ilmenite/ilmerr"
	"github.com/ilmenite-gfx/ilmenite/internal/batch"
	"github.com/ilmenite-gfx/ilmenite/internal/cache"
	"github.com/ilmenite-gfx/ilmenite/internal/fontio"
	"github.com/ilmenite-gfx/ilmenite/internal/ilmtype"
	"github.com/ilmenite-gfx/ilmenite/internal/metrics"
	"github.com/ilmenite-gfx/ilmenite/internal/outline"
	"github.com/ilmenite-gfx/ilmenite/internal/raster"
	"github.com/ilmenite-gfx/ilmenite/internal/rastergpu"
	"github.com/ilmenite-gfx/ilmenite/internal/shaping"
)

// Font is a parsed OpenType font bound to a rasterization path (CPU or
// GPU) and a rasterization cache. It implements batch.Rasterizer so the
// batch driver can build bitmaps on a cache miss, and it owns the cache
// itself so repeated GlyphsForText calls on the same Font dedupe work per
// spec §4.E.
//
// Mirrors the ImtFont::from_bytes_cpu/from_bytes_gpu split from the
// original crate (SPEC_FULL's "CPU/GPU constructor split" supplement):
// the two constructors below produce the same Font shape, differing only
// in which rasterization backend it drives.
type Font struct {
	src    *fontio.Font
	cache  *cache.Cache
	driver *batch.Driver
	opts   RasterOptions

	cpu *raster.Table
	gpu *rastergpu.Context
}

// NewFontCPU parses an OpenType font from raw bytes and binds it to the
// CPU coverage rasterizer.
func NewFontCPU(data []byte, opts RasterOptions) (*Font, error) {
	src, err := fontio.Parse(data)
	if err != nil {
		return nil, err
	}
	opts.CPURasterization = true

	table := raster.NewTable(opts.SampleQuality, opts.FillQuality)
	f := &Font{src: src, cache: cache.New(), opts: opts, cpu: &table}
	f.driver = batch.New(f.cache, f)
	return f, nil
}

// NewFontGPU parses an OpenType font from raw bytes and binds it to the
// compute-shader rasterizer, using the given wgpu device and queue. The
// caller owns the device/queue lifetime (spec §1: GPU device/queue
// provisioning is an external collaborator).
func NewFontGPU(data []byte, device *wgpu.Device, queue *wgpu.Queue, opts RasterOptions) (*Font, error) {
	src, err := fontio.Parse(data)
	if err != nil {
		return nil, err
	}
	opts.CPURasterization = false

	table := raster.NewTable(opts.SampleQuality, opts.FillQuality)
	ctx, err := rastergpu.NewContext(device, queue, table.Samples, table.Rays)
	if err != nil {
		return nil, err
	}

	f := &Font{src: src, cache: cache.New(), opts: opts, gpu: ctx}
	f.driver = batch.New(f.cache, f)
	return f, nil
}

// Props returns the font's scaler/ascender/descender/line-gap.
func (f *Font) Props() ilmtype.FontProps { return f.src.Props() }

// GlyphsForText shapes text at the given pixel height and rasterizes every
// glyph it needs, consulting the Font's cache so repeated characters and
// repeated calls collapse onto one build per (glyph, height) key.
func (f *Font) GlyphsForText(text string, textHeight float32, shapeOpts ShapeOptions) ([]RasteredGlyph, error) {
	shapeOpts.TextHeight = textHeight
	shaped, err := shaping.Shape(f.src, []rune(text), shapeOpts)
	if err != nil {
		return nil, err
	}
	return f.driver.Run(shaped, textHeight)
}

// Rasterize implements batch.Rasterizer: build the outline, derive
// metrics, and rasterize via whichever backend this Font was constructed
// with. Called by the batch driver with the cache lock released, per
// spec §4.E's invariant that rasterization never runs while the cache is
// locked.
func (f *Font) Rasterize(glyph *ilmtype.ParsedGlyph, textHeight float32) (*ilmtype.GlyphBitmap, error) {
	props := f.src.Props()
	scaler := props.Scaler * textHeight

	lines, err := outline.Build(f.src, glyph, scaler)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 || glyph.MinX == glyph.MaxX || glyph.MinY == glyph.MaxY {
		return &ilmtype.GlyphBitmap{Data: ilmtype.BitmapData{Kind: ilmtype.DataEmpty}}, nil
	}

	m := metrics.Derive(glyph.MinX, glyph.MinY, glyph.MaxX, glyph.MaxY, props.Ascender, scaler, f.opts.AlignWholePixels)
	if m.Width == 0 || m.Height == 0 {
		return &ilmtype.GlyphBitmap{Data: ilmtype.BitmapData{Kind: ilmtype.DataEmpty}}, nil
	}

	if f.opts.CPURasterization {
		buf := f.cpu.Rasterize(lines, glyph.MinX, glyph.MaxY, scaler, m)
		return &ilmtype.GlyphBitmap{
			Width: m.Width, Height: m.Height,
			BearingX: m.BearingX, BearingY: m.BearingY,
			Data: ilmtype.BitmapData{Kind: ilmtype.DataLinearRGBA, LRGBA: buf},
		}, nil
	}

	if f.gpu == nil {
		return nil, ilmerr.Newf(ilmerr.SourceRasterizer, "font was constructed with NewFontCPU but RasterOptions requests GPU rasterization")
	}
	data, err := f.gpu.Rasterize(lines, glyph.MinX, glyph.MaxX, glyph.MinY, glyph.MaxY, scaler, m, f.opts)
	if err != nil {
		return nil, err
	}
	return &ilmtype.GlyphBitmap{
		Width: m.Width, Height: m.Height,
		BearingX: m.BearingX, BearingY: m.BearingY,
		Data: data,
	}, nil
}
