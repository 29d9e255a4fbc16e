// Command nv4demo presents a live nv4.Device's scanned-out surface in an
// Ebiten window and, given a -image flag, decodes a PNG and streams it into
// PGRAPH's image-from-host class (0x61) to exercise the host-to-framebuffer
// upload path end to end.
package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"golang.org/x/image/draw"

	"github.com/retrocore/nv4"
)

type demoGame struct {
	dev *nv4.Device

	mu     sync.Mutex
	window *ebiten.Image
}

func (g *demoGame) Update() error {
	g.dev.Tick(16 * time.Millisecond)
	return nil
}

func (g *demoGame) Draw(screen *ebiten.Image) {
	buf, width, height := g.dev.DisplayLineBuffer()
	if width == 0 || height == 0 {
		return
	}

	g.mu.Lock()
	if g.window == nil || g.window.Bounds().Dx() != width || g.window.Bounds().Dy() != height {
		g.window = ebiten.NewImage(width, height)
	}
	g.window.WritePixels(buf)
	g.mu.Unlock()

	screen.DrawImage(g.window, nil)
}

func (g *demoGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	_, width, height := g.dev.DisplayLineBuffer()
	if width == 0 || height == 0 {
		return 640, 480
	}
	return width, height
}

func main() {
	vramSize := flag.Int("vram", 16<<20, "VRAM size in bytes")
	imagePath := flag.String("image", "", "PNG file to stream through the image-from-host class at startup")
	flag.Parse()

	dev, err := nv4.NewDevice(nv4.Config{VRAMSize: *vramSize})
	if err != nil {
		fmt.Fprintf(os.Stderr, "nv4demo: %v\n", err)
		os.Exit(1)
	}

	if *imagePath != "" {
		if err := streamPNG(dev, *imagePath); err != nil {
			fmt.Fprintf(os.Stderr, "nv4demo: %v\n", err)
		}
	}

	ebiten.SetWindowSize(640, 480)
	ebiten.SetWindowTitle("nv4demo")
	ebiten.SetWindowResizable(true)

	if err := ebiten.RunGame(&demoGame{dev: dev}); err != nil {
		fmt.Fprintf(os.Stderr, "nv4demo: %v\n", err)
		os.Exit(1)
	}
}

// streamPNG decodes path, downsamples it into the class 0x61 target
// rectangle's dimensions with x/image/draw, and pushes it as a sequence of
// R5G5B5-packed COLOR method writes — the same submission path a real
// driver's blit-from-system-memory call would take.
func streamPNG(dev *nv4.Device, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return err
	}

	const targetW, targetH = 256, 256
	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	const (
		classIndex = 0x61
		windowBase = 0x410000
		windowSpan = 0x2000
		mPoint     = 0x300
		mSize      = 0x304
		mSizeIn    = 0x308
		mColor     = 0x400
	)
	base := uint32(windowBase + classIndex*windowSpan)

	dev.Write32(base+mPoint, 0)
	dev.Write32(base+mSize, uint32(targetH)<<16|uint32(targetW))
	dev.Write32(base+mSizeIn, uint32(targetH)<<16|uint32(targetW))

	// The class window's default resident context (subchannel 0, no grobj
	// ever bound) decodes as R5G5B5: two pixels pack into each 32-bit
	// COLOR word, matching streamImageWord's default expansion.
	for y := 0; y < targetH; y++ {
		for x := 0; x < targetW; x += 2 {
			var word uint32
			for i := 0; i < 2 && x+i < targetW; i++ {
				r, g, b, _ := dst.At(x+i, y).RGBA()
				word |= packR5G5B5(uint8(r>>8), uint8(g>>8), uint8(b>>8)) << uint(i*16)
			}
			dev.Write32(base+mColor, word)
		}
	}
	return nil
}

func packR5G5B5(r, g, b uint8) uint32 {
	return 1<<15 | uint32(r>>3)<<10 | uint32(g>>3)<<5 | uint32(b>>3)
}
