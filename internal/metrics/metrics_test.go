package metrics

import "testing"

func TestDeriveWithoutAlignment(t *testing.T) {
	// A 1024-unit em, 0..1024 outline, scaler yielding 1 px per unit.
	b := Derive(0, 0, 1024, 1024, 1024, 1.0, false)

	if b.BearingX != 0 {
		t.Errorf("expected bearingX 0, got %v", b.BearingX)
	}
	if b.OffsetX != 0 || b.OffsetY != 0 {
		t.Errorf("expected zero offsets when alignment is off, got (%v, %v)", b.OffsetX, b.OffsetY)
	}
	// width = ceil(1024) + 1 - (trunc(0) - 1) = 1025 - (-1) = 1026
	if b.Width != 1026 {
		t.Errorf("expected width 1026, got %v", b.Width)
	}
}

func TestDeriveWithAlignmentSnapsToWholePixel(t *testing.T) {
	b := Derive(0.4, 0, 1024, 1024, 1024, 1.0, true)

	if b.BearingX != 1 {
		t.Errorf("expected bearingX snapped up to 1, got %v", b.BearingX)
	}
	expectedOffset := (float32(0.4) - 1.0) + 1.0
	if !floatsClose(b.OffsetX, expectedOffset) {
		t.Errorf("expected offsetX %v, got %v", expectedOffset, b.OffsetX)
	}
}

func TestDeriveHeightSpansAscenderGap(t *testing.T) {
	// ascender 1800, max_y 1024: matches the worked example where the
	// glyph sits below the ascender line.
	b := Derive(0, 0, 1024, 1024, 1800, 0.015625, true) // 1/64 scaler-ish
	if b.Height == 0 {
		t.Fatal("expected non-zero height")
	}
}

func floatsClose(a, b float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 0.0001
}
