package nv4

import "testing"

func TestExpandDownconvertIdempotence(t *testing.T) {
	// Non-lossy formats must round-trip exactly from a packed wire word
	// through ExpandColor and back through DownconvertColor (spec.md §8).
	// Y8/Y16/Y18*/YUV* are excluded: they carry no exact RGB decomposition.
	cases := []struct {
		name  string
		fmt   PixelFormat
		words []uint32
		alpha bool
	}{
		{"R5G5B5 opaque", PixelFormatR5G5B5, []uint32{0x0000, 0x7FFF, 0x8421, 0xFFFF}, false},
		{"R8G8B8 no alpha", PixelFormatR8G8B8, []uint32{0x000000, 0x112233, 0xFFFFFF, 0xAABBCC}, false},
		{"R8G8B8 with alpha", PixelFormatR8G8B8, []uint32{0x00112233, 0xFF808080}, true},
		{"R10G10B10", PixelFormatR10G10B10, []uint32{0, 0x3FFFFFFF, 0x155AA555}, false},
	}

	for _, c := range cases {
		for _, word := range c.words {
			color := ExpandColor(c.fmt, word, c.alpha)
			back := DownconvertColor(c.fmt, color, c.alpha)
			if back != word {
				t.Errorf("%s: round-trip 0x%08X -> %+v -> 0x%08X, want 0x%08X", c.name, word, color, back, word)
			}
		}
	}
}

func TestLossyFormatsExcludedFromIdempotence(t *testing.T) {
	lossyFormats := []PixelFormat{
		PixelFormatY8, PixelFormatY16, PixelFormatY18A, PixelFormatY18B,
		PixelFormatYUV422, PixelFormatYUV411, PixelFormatYUVPacked,
	}
	for _, f := range lossyFormats {
		if !lossy(f) {
			t.Errorf("format %d should be marked lossy", f)
		}
	}
	for _, f := range []PixelFormat{PixelFormatR5G5B5, PixelFormatR8G8B8, PixelFormatR10G10B10} {
		if lossy(f) {
			t.Errorf("format %d should not be marked lossy", f)
		}
	}
}

func TestBytesPerPixel(t *testing.T) {
	want := map[PixelFormat]int{
		PixelFormatY8:        1,
		PixelFormatR5G5B5:    2,
		PixelFormatY16:       2,
		PixelFormatYUV422:    2,
		PixelFormatYUV411:    2,
		PixelFormatYUVPacked: 2,
		PixelFormatR8G8B8:    4,
		PixelFormatR10G10B10: 4,
	}
	for f, n := range want {
		if got := BytesPerPixel(f); got != n {
			t.Errorf("BytesPerPixel(%d) = %d, want %d", f, got, n)
		}
	}
}

func TestColorsEqual(t *testing.T) {
	a := Color{R: 10, G: 20, B: 30, A: 255}
	b := Color{R: 10, G: 20, B: 30, A: 255}
	c := Color{R: 10, G: 20, B: 31, A: 255}
	if !ColorsEqual(a, b) {
		t.Error("identical colors should compare equal")
	}
	if ColorsEqual(a, c) {
		t.Error("differing colors should not compare equal")
	}
}
