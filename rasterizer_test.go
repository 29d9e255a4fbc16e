package nv4

import "testing"

func TestApplyROP3TruthTable(t *testing.T) {
	src := uint32(0xAAAAAAAA)
	dst := uint32(0x55555555)
	pattern := uint32(0xF0F0F0F0)

	cases := []struct {
		name string
		rop3 uint8
		want uint32
	}{
		{"SRCCOPY", 0xCC, src},
		{"BLACKNESS", 0x00, 0},
		{"WHITENESS", 0xFF, 0xFFFFFFFF},
		{"DSTCOPY (no-op)", 0xAA, dst},
		{"SRCAND", 0x88, src & dst},
		{"SRCPAINT (OR)", 0xEE, src | dst},
		{"SRCINVERT (XOR)", 0x66, src ^ dst},
	}
	for _, c := range cases {
		if got := applyROP3(c.rop3, src, dst, pattern); got != c.want {
			t.Errorf("%s: applyROP3(0x%02X, ...) = 0x%08X, want 0x%08X", c.name, c.rop3, got, c.want)
		}
	}
}

func TestClipTest(t *testing.T) {
	c := absoluteClip{xmin: 10, xmax: 20, ymin: 10, ymax: 20}
	inside := []struct{ x, y int }{{10, 10}, {19, 19}, {15, 15}}
	outside := []struct{ x, y int }{{9, 10}, {20, 10}, {10, 20}, {-1, -1}}
	for _, p := range inside {
		if !clipTest(c, p.x, p.y) {
			t.Errorf("(%d,%d) should be inside clip %+v", p.x, p.y, c)
		}
	}
	for _, p := range outside {
		if clipTest(c, p.x, p.y) {
			t.Errorf("(%d,%d) should be outside clip %+v", p.x, p.y, c)
		}
	}
}

func TestChromaTestPassesWhenDisabled(t *testing.T) {
	g := &pgraph{chromaKey: Color{R: 100, G: 100, B: 100, A: 255}}
	gc := grobjContext{chromaEnable: false}
	if !chromaTest(g, gc, Color{R: 100, G: 100, B: 100, A: 255}) {
		t.Error("chroma test should always pass when the grobj does not enable chroma keying")
	}
}

func TestChromaTestSuppressesMatchingPixel(t *testing.T) {
	key := Color{R: 100, G: 100, B: 100, A: 255}
	g := &pgraph{chromaKey: key}
	gc := grobjContext{chromaEnable: true}

	if chromaTest(g, gc, key) {
		t.Error("a pixel matching the armed chroma key should fail the test")
	}
	if !chromaTest(g, gc, Color{R: 1, G: 2, B: 3, A: 255}) {
		t.Error("a pixel not matching the chroma key should pass")
	}
}

// setupSurface configures surface 0 as a w*h R8G8B8 canvas with full clip,
// no pattern, no chroma, ROP3 SRCCOPY — the minimal state fillRect/blitRect
// need to behave like a plain paint.
func setupSurface(dev *Device, w, h int) grobjContext {
	dev.pgraph.surfaces[0] = Surface{Offset: 0, Pitch: uint32(w * 4), Format: PixelFormatR8G8B8}
	dev.pgraph.clip = absoluteClip{xmin: 0, xmax: w, ymin: 0, ymax: h}
	dev.pgraph.rop3 = 0xCC // SRCCOPY
	// An all-zero pattern bitmap selects color0 for every pixel; give it
	// full alpha so the pattern test doesn't suppress every pixel by
	// default (a zero-value Color is fully transparent).
	dev.pgraph.pattern = patternState{
		shape:  PatternShape8x8,
		color0: Color{A: 255},
		color1: Color{A: 255},
	}
	return grobjContext{pixelFormat: PixelFormatR8G8B8, destMask: 0, srcSelect: 0, alphaEnable: false}
}

func TestFillRectWritesEveryPixel(t *testing.T) {
	dev := newTestDevice(t)
	const w, h = 16, 16
	gc := setupSurface(dev, w, h)

	color := Color{R: 40, G: 80, B: 120, A: 255}
	dev.fillRect(gc, 2, 2, 8, 8, color)

	for y := 2; y < 10; y++ {
		for x := 2; x < 10; x++ {
			got := dev.readSurfaceWord(0, x, y, 4)
			want := DownconvertColor(PixelFormatR8G8B8, color, false)
			if got != want {
				t.Fatalf("pixel (%d,%d) = 0x%06X, want 0x%06X", x, y, got, want)
			}
		}
	}
	// A pixel outside the filled rectangle must remain untouched (zero).
	if got := dev.readSurfaceWord(0, 0, 0, 4); got != 0 {
		t.Errorf("pixel (0,0) outside the fill = 0x%06X, want 0", got)
	}
}

func TestFillRectParallelMatchesSequentialAcrossThreshold(t *testing.T) {
	dev := newTestDevice(t)
	const w, h = 32, parallelRowsThreshold + 5
	gc := setupSurface(dev, w, h)

	color := Color{R: 10, G: 20, B: 30, A: 255}
	dev.fillRect(gc, 0, 0, w, h, color)

	want := DownconvertColor(PixelFormatR8G8B8, color, false)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if got := dev.readSurfaceWord(0, x, y, 4); got != want {
				t.Fatalf("parallel fill: pixel (%d,%d) = 0x%06X, want 0x%06X", x, y, got, want)
			}
		}
	}
}

func TestFillRectHonorsChromaSuppression(t *testing.T) {
	dev := newTestDevice(t)
	const w, h = 8, 8
	gc := setupSurface(dev, w, h)
	gc.chromaEnable = true

	key := Color{R: 40, G: 80, B: 120, A: 255}
	dev.pgraph.chromaKey = key

	dev.fillRect(gc, 0, 0, w, h, key)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if got := dev.readSurfaceWord(0, x, y, 4); got != 0 {
				t.Fatalf("pixel (%d,%d) = 0x%06X, want 0 (chroma-suppressed), matching the key should never be written", x, y, got)
			}
		}
	}
}

func TestFillRectHonorsClip(t *testing.T) {
	dev := newTestDevice(t)
	const w, h = 16, 16
	gc := setupSurface(dev, w, h)
	dev.pgraph.clip = absoluteClip{xmin: 4, xmax: 12, ymin: 4, ymax: 12}

	color := Color{R: 1, G: 2, B: 3, A: 255}
	dev.fillRect(gc, 0, 0, w, h, color)

	want := DownconvertColor(PixelFormatR8G8B8, color, false)
	if got := dev.readSurfaceWord(0, 5, 5, 4); got != want {
		t.Errorf("pixel inside clip (5,5) = 0x%06X, want 0x%06X", got, want)
	}
	if got := dev.readSurfaceWord(0, 0, 0, 4); got != 0 {
		t.Errorf("pixel outside clip (0,0) = 0x%06X, want 0", got)
	}
	if got := dev.readSurfaceWord(0, 15, 15, 4); got != 0 {
		t.Errorf("pixel outside clip (15,15) = 0x%06X, want 0", got)
	}
}

// TestOverlappingBlitStagesBeforeWriting verifies blitRect copies from a
// staged snapshot of the source region, so a shift-by-one blit of a
// row gradient produces the correctly shifted result rather than smearing
// already-overwritten bytes forward (spec.md §4.6).
func TestOverlappingBlitStagesBeforeWriting(t *testing.T) {
	dev := newTestDevice(t)
	const w, h = 1, 8
	gc := setupSurface(dev, w, h)

	for y := 0; y < h; y++ {
		dev.writeSurfaceWord(0, 0, y, uint32(y+1), 4)
	}

	// Shift the whole column down by one row, overlapping source and
	// destination within the same surface.
	dev.blitRect(gc, 0, 0, 0, 1, w, h-1)

	for y := 1; y < h; y++ {
		want := uint32(y) // row y now holds what row y-1 held before the shift
		if got := dev.readSurfaceWord(0, 0, y, 4); got != want {
			t.Errorf("row %d after shift-down blit = %d, want %d", y, got, want)
		}
	}
	if got := dev.readSurfaceWord(0, 0, 0, 4); got != 1 {
		t.Errorf("row 0 (outside the blit's destination) = %d, want unchanged 1", got)
	}
}

func TestPatternPassesSelectsColorByBit(t *testing.T) {
	p := patternState{
		shape:  PatternShape8x8,
		bitmap: 1, // only bit 0 set -> pixel (0,0) hits color1, all else color0
		color0: Color{R: 1, A: 255},
		color1: Color{R: 2, A: 255},
	}
	ok, c := patternPasses(p, 0, 0)
	if !ok || c.R != 2 {
		t.Errorf("patternPasses(0,0) = (%v, %+v), want (true, color1)", ok, c)
	}
	ok, c = patternPasses(p, 1, 0)
	if !ok || c.R != 1 {
		t.Errorf("patternPasses(1,0) = (%v, %+v), want (true, color0)", ok, c)
	}
}

func TestPatternPassesSuppressesTransparentSlot(t *testing.T) {
	p := patternState{
		shape:  PatternShape8x8,
		bitmap: 0,
		color0: Color{A: 0}, // transparent: pattern fully masks this pixel out
	}
	if ok, _ := patternPasses(p, 0, 0); ok {
		t.Error("a transparent pattern color should suppress the pixel")
	}
}
