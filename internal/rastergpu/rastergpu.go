// Package rastergpu implements the GPU compute path for rasterization: the
// one-time pipeline setup and the per-glyph dispatch sequence (upload
// lines, upload the per-glyph uniform, dispatch one workgroup per pixel,
// read back the result), kept in exact algorithmic parity with
// internal/raster's CPU path.
//
// Grounded on bitmap.rs's raster_gpu (buffer/image/descriptor-set/command
// buffer sequence) and raster.rs's ImtRaster::new (pipeline and common
// buffer setup), reworked from vulkano onto
// github.com/cogentcore/webgpu/wgpu, the wgpu binding cogentcore-core uses
// for its own compute dispatch (gpu/gpu_test.go, gpu/compute_test.go).
package rastergpu

import (
	_ "embed"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/ilmenite-gfx/ilmenite/ilmerr"
	"github.com/ilmenite-gfx/ilmenite/internal/geom"
	"github.com/ilmenite-gfx/ilmenite/internal/ilmtype"
	"github.com/ilmenite-gfx/ilmenite/internal/metrics"
)

//go:embed shaders/glyph.wgsl
var shaderSource string

// maxSamplesAndRays bounds the packed samples_and_rays uniform array, sized
// to the highest sample/ray quality the spec defines (25 samples).
const maxSamplesAndRays = 25

// Context owns the one-time GPU setup: device, queue, compiled pipeline,
// and bind group layout. Built once per rasterizer and reused across every
// glyph it rasterizes.
type Context struct {
	device   *wgpu.Device
	queue    *wgpu.Queue
	pipeline *wgpu.ComputePipeline
	bgLayout *wgpu.BindGroupLayout

	commonBuf *wgpu.Buffer
	samples   []geom.Point
	rays      []geom.Point
}

// Image is the concrete type behind ilmtype.BitmapData.Image when
// RasterOptions.RasterToImage is set: a live GPU texture handle the
// caller can bind for sampling directly, rather than a host float buffer
// dispatch read back to the CPU (spec §6's "raster_to_image: bool").
// The caller owns the texture once returned and must call Release when
// done with it.
type Image struct {
	Texture *wgpu.Texture
	View    *wgpu.TextureView
	Format  ilmtype.PixelFormat
}

// Release frees the underlying GPU texture and view.
func (img *Image) Release() {
	if img == nil {
		return
	}
	if img.View != nil {
		img.View.Release()
	}
	if img.Texture != nil {
		img.Texture.Release()
	}
}

// pixelFormat maps an ilmtype.PixelFormat onto the wgpu texture format
// used for the image handed back when RasterToImage is requested.
func pixelFormat(f ilmtype.PixelFormat) wgpu.TextureFormat {
	if f == ilmtype.FormatRGBA8Unorm {
		return wgpu.TextureFormatRGBA8Unorm
	}
	return wgpu.TextureFormatRGBA32Float
}

// NewContext compiles the compute pipeline and uploads the fixed
// sample/ray table once, analogous to ImtRaster::new's one-time
// ComputePipeline::new and common uniform upload.
func NewContext(device *wgpu.Device, queue *wgpu.Queue, samples, rays []geom.Point) (*Context, error) {
	if len(samples) > maxSamplesAndRays || len(rays) > maxSamplesAndRays {
		return nil, ilmerr.Newf(ilmerr.SourceRasterizer, "sample/ray table too large for the packed uniform: %d samples, %d rays", len(samples), len(rays))
	}

	shader, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "ilmenite-glyph-compute",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaderSource},
	})
	if err != nil {
		return nil, ilmerr.Wrap(ilmerr.SourceRasterizer, ilmerr.KindOther, err)
	}

	bgLayout, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "ilmenite-glyph-bgl",
		Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Visibility: wgpu.ShaderStageCompute, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: wgpu.ShaderStageCompute, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}},
			{Binding: 2, Visibility: wgpu.ShaderStageCompute, StorageTexture: wgpu.StorageTextureBindingLayout{
				Access: wgpu.StorageTextureAccessWriteOnly, Format: wgpu.TextureFormatRGBA32Float, ViewDimension: wgpu.TextureViewDimension2D,
			}},
			{Binding: 3, Visibility: wgpu.ShaderStageCompute, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage}},
		},
	})
	if err != nil {
		return nil, ilmerr.Wrap(ilmerr.SourceRasterizer, ilmerr.KindOther, err)
	}

	pipelineLayout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "ilmenite-glyph-pl",
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgLayout},
	})
	if err != nil {
		return nil, ilmerr.Wrap(ilmerr.SourceRasterizer, ilmerr.KindOther, err)
	}

	pipeline, err := device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  "ilmenite-glyph-pipeline",
		Layout: pipelineLayout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     shader,
			EntryPoint: "main",
		},
	})
	if err != nil {
		return nil, ilmerr.Wrap(ilmerr.SourceRasterizer, ilmerr.KindOther, err)
	}

	packed := packSamplesAndRays(samples, rays)
	commonBuf, err := device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "ilmenite-common",
		Contents: wgpu.ToBytes(packed),
		Usage:    wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, ilmerr.Wrap(ilmerr.SourceRasterizer, ilmerr.KindOther, err)
	}

	return &Context{
		device:    device,
		queue:     queue,
		pipeline:  pipeline,
		bgLayout:  bgLayout,
		commonBuf: commonBuf,
		samples:   samples,
		rays:      rays,
	}, nil
}

// commonUniform is the packed layout matching the shader's Common struct:
// a fixed-size samples_and_rays array plus the two live counts.
type commonUniform struct {
	samplesAndRays [maxSamplesAndRays][4]float32
	sampleCount    uint32
	rayCount       uint32
	_pad           [2]uint32 // std140 struct alignment
}

func packSamplesAndRays(samples, rays []geom.Point) commonUniform {
	var u commonUniform
	for i, s := range samples {
		u.samplesAndRays[i] = [4]float32{s.X, s.Y, 0, 0}
	}
	for i, r := range rays {
		u.samplesAndRays[i][2] = r.X
		u.samplesAndRays[i][3] = r.Y
	}
	u.sampleCount = uint32(len(samples))
	u.rayCount = uint32(len(rays))
	return u
}

// glyphUniform mirrors the shader's Glyph struct.
type glyphUniform struct {
	scaler    float32
	width     uint32
	height    uint32
	lineCount uint32
	bounds    [4]float32
	offset    [2]float32
	_pad      [2]float32
}

// Rasterize dispatches one compute invocation per output pixel. The
// compute shader always writes a straight-alpha linear RGBA float texture
// (internal/raster.Table.Rasterize's CPU output shape, §4.C); what happens
// to that texture afterwards depends on opts:
//
//   - RasterToImage == false: the texture is copied back to a host float
//     buffer and returned as DataLinearRGBA, matching the CPU path exactly.
//   - RasterToImage == true, BitmapFormat == FormatRGBA32Float: the
//     compute-shader texture itself is handed back as a live DataImage —
//     no readback, no copy.
//   - RasterToImage == true, BitmapFormat == FormatRGBA8Unorm: the float
//     texture is read back once, quantized to 8-bit straight-alpha RGBA,
//     and re-uploaded into a fresh RGBA8Unorm texture returned as
//     DataImage — still one device round trip, but the caller gets back a
//     texture in the format it actually asked for rather than always
//     float32.
func (c *Context) Rasterize(lines []geom.Line2, minX, maxX, minY, maxY, scaler float32, m metrics.Bitmap, opts ilmtype.RasterOptions) (ilmtype.BitmapData, error) {
	if m.Width == 0 || m.Height == 0 || len(lines) == 0 {
		return ilmtype.BitmapData{}, nil
	}

	glyphU := glyphUniform{
		scaler:    scaler,
		width:     m.Width,
		height:    m.Height,
		lineCount: uint32(len(lines)),
		bounds:    [4]float32{minX, maxX, minY, maxY},
		offset:    [2]float32{m.OffsetX, m.OffsetY},
	}
	glyphBuf, err := c.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "ilmenite-glyph-uniform",
		Contents: wgpu.ToBytes(&glyphU),
		Usage:    wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return ilmtype.BitmapData{}, ilmerr.Wrap(ilmerr.SourceRasterizer, ilmerr.KindOther, err)
	}
	defer glyphBuf.Release()

	packedLines := make([][4]float32, len(lines))
	for i, l := range lines {
		packedLines[i] = [4]float32{l.A.X, l.A.Y, l.B.X, l.B.Y}
	}
	lineBuf, err := c.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "ilmenite-lines",
		Contents: wgpu.ToBytes(packedLines),
		Usage:    wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return ilmtype.BitmapData{}, ilmerr.Wrap(ilmerr.SourceRasterizer, ilmerr.KindOther, err)
	}
	defer lineBuf.Release()

	// The compute shader always writes float32 RGBA (it computes coverage
	// as a float); keepFloatTexture requests that exact texture back
	// instead of converting or reading it to the CPU.
	keepFloatTexture := opts.RasterToImage && opts.BitmapFormat == ilmtype.FormatRGBA32Float
	texUsage := wgpu.TextureUsageStorageBinding | wgpu.TextureUsageCopySrc
	if keepFloatTexture {
		texUsage |= wgpu.TextureUsageTextureBinding
	}
	outTexture, err := c.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:  "ilmenite-bitmap",
		Size:   wgpu.Extent3D{Width: m.Width, Height: m.Height, DepthOrArrayLayers: 1},
		Format: wgpu.TextureFormatRGBA32Float,
		Usage:  texUsage,
	})
	if err != nil {
		return ilmtype.BitmapData{}, ilmerr.Wrap(ilmerr.SourceRasterizer, ilmerr.KindOther, err)
	}
	if !keepFloatTexture {
		defer outTexture.Release()
	}
	outView, err := outTexture.CreateView(nil)
	if err != nil {
		return ilmtype.BitmapData{}, ilmerr.Wrap(ilmerr.SourceRasterizer, ilmerr.KindOther, err)
	}
	if !keepFloatTexture {
		defer outView.Release()
	}

	bindGroup, err := c.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "ilmenite-glyph-bg",
		Layout: c.bgLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: c.commonBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: glyphBuf, Size: wgpu.WholeSize},
			{Binding: 2, TextureView: outView},
			{Binding: 3, Buffer: lineBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return ilmtype.BitmapData{}, ilmerr.Wrap(ilmerr.SourceRasterizer, ilmerr.KindOther, err)
	}
	defer bindGroup.Release()

	encoder, err := c.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "ilmenite-encoder"})
	if err != nil {
		return ilmtype.BitmapData{}, ilmerr.Wrap(ilmerr.SourceRasterizer, ilmerr.KindOther, err)
	}

	pass := encoder.BeginComputePass(&wgpu.ComputePassDescriptor{Label: "ilmenite-glyph-pass"})
	pass.SetPipeline(c.pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DispatchWorkgroups(m.Width, m.Height, 1)
	pass.End()

	if keepFloatTexture {
		cmd, err := encoder.Finish(&wgpu.CommandBufferDescriptor{Label: "ilmenite-cmd"})
		if err != nil {
			return ilmtype.BitmapData{}, ilmerr.Wrap(ilmerr.SourceRasterizer, ilmerr.KindOther, err)
		}
		c.queue.Submit(cmd)
		c.device.Poll(true, nil)
		return ilmtype.BitmapData{
			Kind:  ilmtype.DataImage,
			Image: &Image{Texture: outTexture, View: outView, Format: ilmtype.FormatRGBA32Float},
		}, nil
	}

	out, err := c.readback(encoder, outTexture, m)
	if err != nil {
		return ilmtype.BitmapData{}, err
	}

	if !opts.RasterToImage {
		return ilmtype.BitmapData{Kind: ilmtype.DataLinearRGBA, LRGBA: out}, nil
	}

	// RasterToImage with an 8-bit target: quantize the readback and
	// re-upload into a texture in the format actually requested.
	pixels := quantizeRGBA8(out)
	img8, err := c.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:  "ilmenite-bitmap-8",
		Size:   wgpu.Extent3D{Width: m.Width, Height: m.Height, DepthOrArrayLayers: 1},
		Format: pixelFormat(opts.BitmapFormat),
		Usage:  wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return ilmtype.BitmapData{}, ilmerr.Wrap(ilmerr.SourceRasterizer, ilmerr.KindOther, err)
	}
	c.queue.WriteTexture(
		&wgpu.TexelCopyTextureInfo{Texture: img8},
		pixels,
		&wgpu.TextureDataLayout{BytesPerRow: m.Width * 4, RowsPerImage: m.Height},
		&wgpu.Extent3D{Width: m.Width, Height: m.Height, DepthOrArrayLayers: 1},
	)
	img8View, err := img8.CreateView(nil)
	if err != nil {
		img8.Release()
		return ilmtype.BitmapData{}, ilmerr.Wrap(ilmerr.SourceRasterizer, ilmerr.KindOther, err)
	}

	return ilmtype.BitmapData{
		Kind:  ilmtype.DataImage,
		Image: &Image{Texture: img8, View: img8View, Format: opts.BitmapFormat},
	}, nil
}

// readback copies outTexture back to a host float buffer and maps it,
// the original §4.C step-4 device-to-host path.
func (c *Context) readback(encoder *wgpu.CommandEncoder, outTexture *wgpu.Texture, m metrics.Bitmap) ([]float32, error) {
	readBuf, err := c.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "ilmenite-readback",
		Size:  uint64(m.Width) * uint64(m.Height) * 4 * 4,
		Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
	})
	if err != nil {
		return nil, ilmerr.Wrap(ilmerr.SourceRasterizer, ilmerr.KindOther, err)
	}
	defer readBuf.Release()

	bytesPerRow := m.Width * 4 * 4
	encoder.CopyTextureToBuffer(
		&wgpu.TexelCopyTextureInfo{Texture: outTexture},
		&wgpu.TexelCopyBufferInfo{Buffer: readBuf, Layout: wgpu.TextureDataLayout{BytesPerRow: bytesPerRow, RowsPerImage: m.Height}},
		&wgpu.Extent3D{Width: m.Width, Height: m.Height, DepthOrArrayLayers: 1},
	)

	cmd, err := encoder.Finish(&wgpu.CommandBufferDescriptor{Label: "ilmenite-cmd"})
	if err != nil {
		return nil, ilmerr.Wrap(ilmerr.SourceRasterizer, ilmerr.KindOther, err)
	}
	c.queue.Submit(cmd)
	c.device.Poll(true, nil)

	done := make(chan error, 1)
	readBuf.MapAsync(wgpu.MapModeRead, 0, readBuf.GetSize(), func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			done <- ilmerr.Newf(ilmerr.SourceRasterizer, "readback map failed: %v", status)
			return
		}
		done <- nil
	})
	c.device.Poll(true, nil)
	if err := <-done; err != nil {
		return nil, err
	}

	raw := readBuf.GetMappedRange(0, uint(readBuf.GetSize()))
	out := make([]float32, m.Width*m.Height*4)
	copy(out, unsafe.Slice((*float32)(unsafe.Pointer(&raw[0])), len(out)))
	readBuf.Unmap()

	return out, nil
}

// quantizeRGBA8 converts a straight-alpha linear RGBA float buffer (in
// [0,1] per channel) to 8-bit straight-alpha RGBA bytes.
func quantizeRGBA8(in []float32) []byte {
	out := make([]byte, len(in))
	for i, v := range in {
		switch {
		case v <= 0:
			out[i] = 0
		case v >= 1:
			out[i] = 255
		default:
			out[i] = byte(v*255.0 + 0.5)
		}
	}
	return out
}
