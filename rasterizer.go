package nv4

import (
	"encoding/binary"

	"golang.org/x/sync/errgroup"
)

// parallelRowsThreshold is the row count at or above which fillRect splits work
// across a worker pool instead of running the scanline loop inline (design
// note #9: "a simple work-stealing queue ... tile-aligned, non-aliasing,
// joins before the instigating write returns"). Rows never alias each
// other's VRAM addresses, so splitting by row is always safe.
const parallelRowsThreshold = 64

// rasterWorkers bounds how many goroutines a single large fill spreads
// across.
const rasterWorkers = 4

// patternBit selects bit b of the 64-bit pattern bitmap for pixel (x,y)
// per the selected shape (spec.md §4.5 "Pattern dispatch within
// rasterization").
func patternBit(p patternState, x, y int) bool {
	var b uint
	switch p.shape {
	case PatternShape8x8:
		b = uint(((y & 7) << 3) | (x & 7))
	case PatternShape1x64:
		b = uint(x & 0x3F)
	case PatternShape64x1:
		b = uint(y & 0x3F)
	default:
		b = uint(((y & 7) << 3) | (x & 7))
	}
	return p.bitmap&(uint64(1)<<b) != 0
}

// patternPasses reports whether the pixel survives the pattern test and,
// if so, which pattern color applies.
func patternPasses(p patternState, x, y int) (bool, Color) {
	if patternBit(p, x, y) {
		if p.color1.A == 0 {
			return false, Color{}
		}
		return true, p.color1
	}
	if p.color0.A == 0 {
		return false, Color{}
	}
	return true, p.color0
}

// clipTest implements spec.md §4.6's clip test against the absolute clip
// rectangle.
func clipTest(c absoluteClip, x, y int) bool {
	return x >= c.xmin && x < c.xmax && y >= c.ymin && y < c.ymax
}

// chromaTest passes unless the grobj enables chroma keying, the configured
// chroma key's arm bit (its top byte, decoded into Color.A) is set, and the
// pixel's RGB matches the key. The key's alpha byte is an arm flag, not a
// color component, so it is deliberately excluded from the comparison:
// comparing it against a drawn pixel's alpha (which means opacity, not
// "armed") would make legitimate RGB matches fail to compare equal
// whenever the two alphas carry their ordinary, unrelated meanings.
func chromaTest(g *pgraph, gc grobjContext, pixel Color) bool {
	if !gc.chromaEnable {
		return true
	}
	if g.chromaKey.A < 0x80 {
		return true
	}
	return !(pixel.R == g.chromaKey.R && pixel.G == g.chromaKey.G && pixel.B == g.chromaKey.B)
}

// applyROP3 combines src, dst, and pattern bit-by-bit through the 8-entry
// truth table indexed by (pattern_bit<<2)|(src_bit<<1)|dst_bit, so that
// 0xCC is SRCCOPY, 0xAA leaves the destination and 0xF0 copies the pattern.
func applyROP3(rop3 uint8, src, dst, pattern uint32) uint32 {
	var result uint32
	for bit := uint(0); bit < 32; bit++ {
		s := (src >> bit) & 1
		d := (dst >> bit) & 1
		p := (pattern >> bit) & 1
		idx := (p << 2) | (s << 1) | d
		r := (uint32(rop3) >> idx) & 1
		result |= r << bit
	}
	return result
}

func surfaceVRAMAddr(s Surface, x, y, bpp int) uint32 {
	return s.Offset + uint32(x*bpp) + uint32(y)*s.Pitch
}

func (d *Device) readSurfaceWord(surfIdx, x, y, bpp int) uint32 {
	addr := int(surfaceVRAMAddr(d.pgraph.surfaces[surfIdx], x, y, bpp)) % len(d.vram)
	var word uint32
	for i := 0; i < bpp && addr+i < len(d.vram); i++ {
		word |= uint32(d.vram[addr+i]) << uint(8*i)
	}
	return word
}

func (d *Device) writeSurfaceWord(surfIdx, x, y int, word uint32, bpp int) {
	addr := int(surfaceVRAMAddr(d.pgraph.surfaces[surfIdx], x, y, bpp)) % len(d.vram)
	for i := 0; i < bpp && addr+i < len(d.vram); i++ {
		d.vram[addr+i] = byte(word >> uint(8*i))
	}
	d.markDisplayDirty(surfIdx, x, y)
}

// drawPixel runs the full per-pixel test chain (clip, pattern, chroma) and,
// if the pixel survives, combines src/dst/pattern through ROP3 and writes
// the destination surface.
func (d *Device) drawPixel(gc grobjContext, x, y int, src Color) {
	g := d.pgraph
	if !clipTest(g.clip, x, y) {
		return
	}
	patOK, patColor := patternPasses(g.pattern, x, y)
	if !patOK {
		return
	}
	if !chromaTest(g, gc, src) {
		return
	}

	dst := destSurface(gc)
	surf := g.surfaces[dst]
	bpp := BytesPerPixel(surf.Format)

	dstWord := d.readSurfaceWord(dst, x, y, bpp)
	dstColor := ExpandColor(surf.Format, dstWord, gc.alphaEnable)
	_ = dstColor

	srcWord := DownconvertColor(surf.Format, src, gc.alphaEnable)
	patWord := DownconvertColor(surf.Format, patColor, gc.alphaEnable)

	result := applyROP3(g.rop3, srcWord, dstWord, patWord)
	d.writeSurfaceWord(dst, x, y, result, bpp)
}

// fillRect draws every pixel of a w x h rectangle at (x0,y0) through
// drawPixel, honoring clip/pattern/chroma/ROP3 per pixel. Large fills split
// their scanlines across a small worker pool; each worker only ever
// touches rows no other worker touches, so no synchronization is needed
// beyond the errgroup join before fillRect returns.
func (d *Device) fillRect(gc grobjContext, x0, y0, w, h int, color Color) {
	if h < parallelRowsThreshold {
		for y := y0; y < y0+h; y++ {
			d.fillRow(gc, x0, y, w, color)
		}
		return
	}

	var g errgroup.Group
	rowsPerWorker := (h + rasterWorkers - 1) / rasterWorkers
	for worker := 0; worker < rasterWorkers; worker++ {
		startY := y0 + worker*rowsPerWorker
		endY := startY + rowsPerWorker
		if endY > y0+h {
			endY = y0 + h
		}
		if startY >= endY {
			continue
		}
		g.Go(func() error {
			for y := startY; y < endY; y++ {
				d.fillRow(gc, x0, y, w, color)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (d *Device) fillRow(gc grobjContext, x0, y, w int, color Color) {
	for x := x0; x < x0+w; x++ {
		d.drawPixel(gc, x, y, color)
	}
}

// blitRect copies a w x h rectangle from (srcX,srcY) to (dstX,dstY) within
// the destination surface named by gc, staging the full source rectangle
// in a temporary buffer first so overlapping source/destination regions
// never see partially-written source bytes (spec.md §4.6).
func (d *Device) blitRect(gc grobjContext, srcX, srcY, dstX, dstY, w, h int) {
	dst := destSurface(gc)
	surf := d.pgraph.surfaces[dst]
	bpp := BytesPerPixel(surf.Format)

	staged := make([]byte, w*h*bpp)
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			addr := int(surfaceVRAMAddr(surf, srcX+col, srcY+row, bpp)) % len(d.vram)
			copy(staged[(row*w+col)*bpp:(row*w+col+1)*bpp], d.vram[addr:min(addr+bpp, len(d.vram))])
		}
	}
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			x, y := dstX+col, dstY+row
			if !clipTest(d.pgraph.clip, x, y) {
				continue
			}
			addr := int(surfaceVRAMAddr(surf, x, y, bpp)) % len(d.vram)
			copy(d.vram[addr:min(addr+bpp, len(d.vram))], staged[(row*w+col)*bpp:(row*w+col+1)*bpp])
			d.markDisplayDirty(dst, x, y)
		}
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// streamImageWord unpacks 4, 2, or 1 pixels from one 32-bit host word at
// 8, 15/16, or 32 bpp respectively and advances the image-from-host
// cursor, discarding padding pixels at or past SIZE_IN's width; the cursor
// wraps to the next row at SIZE's width (spec.md §4.6 "Image from host").
func (d *Device) streamImageWord(gc grobjContext, ih *imageHostClassState, word uint32) {
	srcFmt := gc.pixelFormat
	bpp := BytesPerPixel(srcFmt)
	pixelsPerWord := 4 / bpp
	if pixelsPerWord < 1 {
		pixelsPerWord = 1
	}

	for i := 0; i < pixelsPerWord; i++ {
		shift := uint(i * bpp * 8)
		mask := uint32(1)<<uint(bpp*8) - 1
		raw := (word >> shift) & mask

		if ih.cursorX < ih.sizeInW {
			color := ExpandColor(srcFmt, raw, gc.alphaEnable)
			d.drawPixel(gc, ih.pointX+ih.cursorX, ih.pointY+ih.cursorY, color)
		}
		ih.cursorX++
		if ih.cursorX >= ih.width {
			ih.cursorX = 0
			ih.cursorY++
		}
	}
}

// markDisplayDirty records that (x,y) in the given surface changed, so the
// display output path can re-emit the affected region. Surfaces other than
// the one PRAMDAC currently scans out are tracked but not copied.
func (d *Device) markDisplayDirty(surfIdx, x, y int) {
	if surfIdx != d.displaySurfaceIndex {
		return
	}
	if x < 0 || y < 0 || x >= d.pramdac.displayWidth || y >= d.pramdac.displayHeight {
		return
	}
	surf := d.pgraph.surfaces[surfIdx]
	bpp := BytesPerPixel(surf.Format)
	word := d.readSurfaceWord(surfIdx, x, y, bpp)
	c := ExpandColor(surf.Format, word, false)
	argb := DownconvertColor(PixelFormatR8G8B8, c, false) | 0xFF000000
	off := (y*d.pramdac.displayWidth + x) * 4
	if off+4 <= len(d.displayLine) {
		binary.LittleEndian.PutUint32(d.displayLine[off:off+4], argb)
	}
}

// DisplayLineBuffer returns the current 32-bit display line buffer and its
// dimensions, ready for presentation by an outer display sink.
func (d *Device) DisplayLineBuffer() (buf []byte, width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.displayLine, d.pramdac.displayWidth, d.pramdac.displayHeight
}
