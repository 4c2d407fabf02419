// Package ilmenite is a font-to-bitmap pipeline: given an OpenType font and
// a run of shaped text, it produces positioned glyph bitmaps suitable for
// upload to a GPU texture cache.
//
// The package ties together the core subsystems that live under internal/
// (outline flattening, CPU/GPU coverage rasterization, bitmap metrics, the
// concurrent rasterization cache, and the batch driver) behind a small
// surface: load a font with NewFontCPU or NewFontGPU, then call
// GlyphsForText to get back positioned bitmaps. A Registry indexes loaded
// fonts by family and weight for callers juggling more than one.
//
//	reg := ilmenite.NewRegistry()
//	font, err := reg.LoadCPU("Inter", ilmenite.WeightRegular, fontBytes, ilmenite.DefaultRasterOptions())
//	rastered, err := font.GlyphsForText("hello", 32, ilmenite.DefaultShapeOptions())
package ilmenite

import (
	"github.com/ilmenite-gfx/ilmenite/internal/ilmtype"
	"github.com/ilmenite-gfx/ilmenite/internal/shaping"
)

// RasterOptions re-exports internal/ilmtype's raster quality knobs at the
// package boundary so callers never import internal/ilmtype directly.
type RasterOptions = ilmtype.RasterOptions

// DefaultRasterOptions returns the default fill/sample quality, whole-pixel
// alignment on, GPU rasterization, RGBA8 output.
func DefaultRasterOptions() RasterOptions { return ilmtype.DefaultRasterOptions() }

// ShapeOptions re-exports internal/shaping's layout knobs.
type ShapeOptions = shaping.Options

// DefaultShapeOptions returns the default single-line, top/left-aligned
// layout at a 36px text height.
func DefaultShapeOptions() ShapeOptions { return shaping.DefaultOptions() }

// RasteredGlyph pairs a shaped glyph with its (shared, cached) bitmap.
type RasteredGlyph = ilmtype.RasteredGlyph

// GlyphBitmap is the immutable rasterized output for one (glyph, height) key.
type GlyphBitmap = ilmtype.GlyphBitmap

const (
	FillFast   = ilmtype.FillFast
	FillNormal = ilmtype.FillNormal
	FillBest   = ilmtype.FillBest

	SampleFastest = ilmtype.SampleFastest
	SampleFaster  = ilmtype.SampleFaster
	SampleFast    = ilmtype.SampleFast
	SampleNormal  = ilmtype.SampleNormal
	SampleBest    = ilmtype.SampleBest

	FormatRGBA8Unorm  = ilmtype.FormatRGBA8Unorm
	FormatRGBA32Float = ilmtype.FormatRGBA32Float
)
