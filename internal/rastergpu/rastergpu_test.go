package rastergpu

import (
	"testing"

	"github.com/ilmenite-gfx/ilmenite/internal/geom"
	"github.com/ilmenite-gfx/ilmenite/internal/ilmtype"
	"github.com/ilmenite-gfx/ilmenite/internal/metrics"
)

func TestPackSamplesAndRays(t *testing.T) {
	samples := []geom.Point{{X: 0.1, Y: 0.2}, {X: 0.3, Y: 0.4}}
	rays := []geom.Point{{X: 1, Y: 0}}

	u := packSamplesAndRays(samples, rays)

	if u.sampleCount != 2 || u.rayCount != 1 {
		t.Fatalf("expected counts (2, 1), got (%d, %d)", u.sampleCount, u.rayCount)
	}
	if u.samplesAndRays[0] != [4]float32{0.1, 0.2, 0, 0} {
		t.Errorf("sample 0 packed incorrectly: %v", u.samplesAndRays[0])
	}
	if u.samplesAndRays[0][2] != 1 || u.samplesAndRays[0][3] != 0 {
		t.Errorf("ray 0 packed incorrectly into sample slot: %v", u.samplesAndRays[0])
	}
}

func TestRasterizeEmptyLinesSkipsGPUWork(t *testing.T) {
	// No device is configured; an empty line set must short-circuit
	// before the context's GPU handles are touched.
	c := &Context{}
	data, err := c.Rasterize(nil, 0, 0, 0, 0, 1.0, metrics.Bitmap{}, ilmtype.RasterOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data.Kind != ilmtype.DataEmpty || data.LRGBA != nil || data.Image != nil {
		t.Fatalf("expected a zero BitmapData for an empty line set, got %+v", data)
	}
}

func TestQuantizeRGBA8ClampsToByteRange(t *testing.T) {
	in := []float32{-0.5, 0, 0.5, 1.0, 1.5}
	out := quantizeRGBA8(in)
	want := []byte{0, 0, 128, 255, 255}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("quantizeRGBA8(%v)[%d] = %d, want %d", in[i], i, out[i], want[i])
		}
	}
}

func TestPixelFormatDistinguishesBitmapFormats(t *testing.T) {
	if pixelFormat(ilmtype.FormatRGBA8Unorm) == pixelFormat(ilmtype.FormatRGBA32Float) {
		t.Error("expected FormatRGBA8Unorm and FormatRGBA32Float to map to distinct wgpu texture formats")
	}
}
