package ilmenite

import (
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/ilmenite-gfx/ilmenite/ilmerr"
)

// Weight is a font weight in the CSS numeric scale (100-900), matching the
// (family, weight) index key spec §1 places outside the core but names as
// part of the surrounding system.
type Weight int

const (
	WeightThin     Weight = 100
	WeightLight    Weight = 300
	WeightRegular  Weight = 400
	WeightMedium   Weight = 500
	WeightSemiBold Weight = 600
	WeightBold     Weight = 700
	WeightBlack    Weight = 900
)

type registryKey struct {
	family string
	weight Weight
}

// Registry indexes loaded Fonts by (family, weight) behind a mutex, the
// "thin top-level registry" spec §1 calls out as an external collaborator
// of the core (this repo's SUPPLEMENTED FEATURES section implements it for
// real rather than leaving it a stub).
type Registry struct {
	mu    sync.Mutex
	fonts map[registryKey]*Font
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{fonts: make(map[registryKey]*Font)}
}

// LoadCPU parses data and registers it under (family, weight), bound to
// the CPU rasterization path. Replaces any font previously registered
// under the same key.
func (r *Registry) LoadCPU(family string, weight Weight, data []byte, opts RasterOptions) (*Font, error) {
	f, err := NewFontCPU(data, opts)
	if err != nil {
		return nil, err
	}
	r.put(family, weight, f)
	return f, nil
}

// LoadGPU parses data and registers it under (family, weight), bound to
// the GPU rasterization path on the given device/queue.
func (r *Registry) LoadGPU(family string, weight Weight, data []byte, device *wgpu.Device, queue *wgpu.Queue, opts RasterOptions) (*Font, error) {
	f, err := NewFontGPU(data, device, queue, opts)
	if err != nil {
		return nil, err
	}
	r.put(family, weight, f)
	return f, nil
}

func (r *Registry) put(family string, weight Weight, f *Font) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fonts[registryKey{family, weight}] = f
}

// Font returns the registered font for (family, weight), or
// ilmerr.KindMissingFont if none was loaded.
func (r *Registry) Font(family string, weight Weight) (*Font, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.fonts[registryKey{family, weight}]
	if !ok {
		return nil, ilmerr.New(ilmerr.SourceRegistry, ilmerr.KindMissingFont)
	}
	return f, nil
}

// GlyphsForText is the one-call convenience spec.md's distillation named
// but left unimplemented in the original crate (`unimplemented!()` in
// lib.rs): look up (family, weight), shape text at textHeight, and
// rasterize it, wiring parser → shaper → rasterizer → cache in one call.
func (r *Registry) GlyphsForText(family string, weight Weight, text string, textHeight float32, shapeOpts ShapeOptions) ([]RasteredGlyph, error) {
	f, err := r.Font(family, weight)
	if err != nil {
		return nil, err
	}
	return f.GlyphsForText(text, textHeight, shapeOpts)
}
