// Command ilmview is a minimal demo viewer: it loads an OpenType font,
// rasterizes a line of text through the ilmenite pipeline, and blits the
// resulting glyph bitmaps into an SDL2 window.
//
// Adapted from agg_go's examples/sdl2_demo, trimmed to the one thing this
// repo's core needs a viewer for: confirming glyph bitmaps land at the
// positions GlyphsForText reports, rather than driving a general 2D canvas.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/ilmenite-gfx/ilmenite"
)

func main() {
	fontPath := flag.String("font", "", "path to a .ttf/.otf file")
	text := flag.String("text", "Ilmenite", "text to rasterize")
	height := flag.Float64("height", 48, "text height in pixels")
	flag.Parse()

	if *fontPath == "" {
		fmt.Fprintln(os.Stderr, "usage: ilmview -font <path.ttf> [-text STRING] [-height N]")
		os.Exit(2)
	}

	data, err := os.ReadFile(*fontPath)
	if err != nil {
		log.Fatalf("read font: %v", err)
	}

	opts := ilmenite.DefaultRasterOptions()
	font, err := ilmenite.NewFontCPU(data, opts)
	if err != nil {
		log.Fatalf("parse font: %v", err)
	}

	rastered, err := font.GlyphsForText(*text, float32(*height), ilmenite.DefaultShapeOptions())
	if err != nil {
		log.Fatalf("rasterize: %v", err)
	}

	scaler := font.Props().Scaler * float32(*height)
	if err := run(rastered, scaler); err != nil {
		log.Fatalf("viewer: %v", err)
	}
}

const (
	windowWidth  = 960
	windowHeight = 240
	marginLeft   = 32
	marginTop    = 96
)

func run(rastered []ilmenite.RasteredGlyph, scaler float32) error {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return fmt.Errorf("sdl init: %w", err)
	}
	defer sdl.Quit()

	window, err := sdl.CreateWindow("ilmview", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		windowWidth, windowHeight, sdl.WINDOW_SHOWN)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	defer window.Destroy()

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	defer renderer.Destroy()

	textures := make([]*sdl.Texture, 0, len(rastered))
	defer func() {
		for _, tex := range textures {
			tex.Destroy()
		}
	}()

	type placement struct {
		tex  *sdl.Texture
		x, y int32
		w, h int32
	}
	placements := make([]placement, 0, len(rastered))

	for _, rg := range rastered {
		if rg.Bitmap == nil || rg.Bitmap.Width == 0 || rg.Bitmap.Height == 0 {
			continue
		}
		tex, err := bitmapTexture(renderer, rg.Bitmap)
		if err != nil {
			return err
		}
		textures = append(textures, tex)

		x := marginLeft + int32(rg.Shaped.Position.X*scaler+rg.Bitmap.BearingX)
		y := marginTop + int32(rg.Shaped.Position.Y*scaler+rg.Bitmap.BearingY)
		placements = append(placements, placement{tex: tex, x: x, y: y, w: int32(rg.Bitmap.Width), h: int32(rg.Bitmap.Height)})
	}

	running := true
	for running {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch event.(type) {
			case *sdl.QuitEvent:
				running = false
			case *sdl.KeyboardEvent:
				if event.(*sdl.KeyboardEvent).Keysym.Sym == sdl.K_ESCAPE {
					running = false
				}
			}
		}

		renderer.SetDrawColor(20, 20, 24, 255)
		renderer.Clear()

		for _, p := range placements {
			dst := sdl.Rect{X: p.x, Y: p.y, W: p.w, H: p.h}
			if err := renderer.Copy(p.tex, nil, &dst); err != nil {
				return fmt.Errorf("blit glyph: %w", err)
			}
		}

		renderer.Present()
		sdl.Delay(16)
	}

	return nil
}

// bitmapTexture converts a straight-alpha linear RGBA float buffer into an
// SDL2 streaming texture of premultiplied 8-bit RGBA, the format SDL2's
// renderer composites correctly over the window background.
func bitmapTexture(renderer *sdl.Renderer, bitmap *ilmenite.GlyphBitmap) (*sdl.Texture, error) {
	tex, err := renderer.CreateTexture(sdl.PIXELFORMAT_RGBA32, sdl.TEXTUREACCESS_STREAMING, int32(bitmap.Width), int32(bitmap.Height))
	if err != nil {
		return nil, fmt.Errorf("create texture: %w", err)
	}
	tex.SetBlendMode(sdl.BLENDMODE_BLEND)

	pixels := make([]byte, bitmap.Width*bitmap.Height*4)
	lrgba := bitmap.Data.LRGBA
	for i := uint32(0); i < bitmap.Width*bitmap.Height; i++ {
		r, g, b, a := float32(0), float32(0), float32(0), float32(0)
		if len(lrgba) >= int(i+1)*4 {
			r, g, b, a = lrgba[i*4+0], lrgba[i*4+1], lrgba[i*4+2], lrgba[i*4+3]
		}
		pixels[i*4+0] = to8(r * a)
		pixels[i*4+1] = to8(g * a)
		pixels[i*4+2] = to8(b * a)
		pixels[i*4+3] = to8(a)
	}

	if err := tex.Update(nil, pixels, int(bitmap.Width*4)); err != nil {
		return nil, fmt.Errorf("update texture: %w", err)
	}
	return tex, nil
}

func to8(v float32) byte {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return byte(v*255.0 + 0.5)
}
