package nv4

import "time"

// pramdac stores the pixel-clock and memory-clock PLL dividers and the CRT
// timing registers, recomputing display size on every timing-register
// write and a synthetic vblank flag on every Device.Tick.
type pramdac struct {
	pixM, pixN, pixP uint32
	memM, memN, memP uint32
	crystalHz        uint64

	hTotal, hSyncStart, hSyncEnd, hBlankStart, hBlankEnd uint32
	vTotal, vSyncStart, vSyncEnd, vBlankStart, vBlankEnd uint32

	mode565 bool // 16-bpp mode: true = R5G6B5, false = R5G5B5 (XR1G5B5)

	displayWidth, displayHeight int

	vblankPending bool
	frameAccum    time.Duration
}

const (
	pramdacOffPixM       = 0x000
	pramdacOffPixN       = 0x004
	pramdacOffPixP       = 0x008
	pramdacOffMemM       = 0x010
	pramdacOffMemN       = 0x014
	pramdacOffMemP       = 0x018
	pramdacOffHTotal     = 0x020
	pramdacOffHSyncStart = 0x024
	pramdacOffHSyncEnd   = 0x028
	pramdacOffHBlankStrt = 0x02C
	pramdacOffHBlankEnd  = 0x030
	pramdacOffVTotal     = 0x040
	pramdacOffVSyncStart = 0x044
	pramdacOffVSyncEnd   = 0x048
	pramdacOffVBlankStrt = 0x04C
	pramdacOffVBlankEnd  = 0x050
	pramdacOffGeneralCtl = 0x060 // bit0: mode565
	pramdacOffVBlankAck  = 0x070 // write-1 clears vblankPending
)

func newPRAMDAC(crystalHz uint64) *pramdac {
	p := &pramdac{
		crystalHz:    crystalHz,
		pixM:         1, pixN: 1, pixP: 0,
		memM: 1, memN: 1, memP: 0,
		hTotal: 800, hBlankStart: 640,
		vTotal: 525, vBlankStart: 480,
	}
	p.recomputeDisplaySize()
	return p
}

// PixelClockHz returns the configured pixel clock frequency.
func (p *pramdac) PixelClockHz() uint64 {
	return dividerFreq(p.crystalHz, p.pixM, p.pixN, p.pixP)
}

// MemoryClockHz returns the configured memory clock frequency.
func (p *pramdac) MemoryClockHz() uint64 {
	return dividerFreq(p.crystalHz, p.memM, p.memN, p.memP)
}

func dividerFreq(crystalHz uint64, m, n, pShift uint32) uint64 {
	if m == 0 {
		return 0
	}
	return (crystalHz * uint64(n)) / (uint64(m) << pShift)
}

func (p *pramdac) recomputeDisplaySize() {
	w := int(p.hBlankStart)
	h := int(p.vBlankStart)
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	p.displayWidth, p.displayHeight = w, h
}

// Tick advances a simulated frame-period accumulator derived from the pixel
// clock, toggling vblankPending once per frame. PMC observes this flag
// through its PFB interrupt slot (Device.recomputeIRQ).
func (p *pramdac) Tick(delta time.Duration) {
	freq := p.PixelClockHz()
	if freq == 0 || p.hTotal == 0 || p.vTotal == 0 {
		return
	}
	totalPixels := uint64(p.hTotal) * uint64(p.vTotal)
	framePeriod := time.Duration(totalPixels * uint64(time.Second) / freq)
	if framePeriod <= 0 {
		return
	}
	p.frameAccum += delta
	if p.frameAccum >= framePeriod {
		p.frameAccum -= framePeriod
		p.vblankPending = true
	}
}

func (p *pramdac) read32(addr uint32) uint32 {
	switch addr {
	case pramdacOffPixM:
		return p.pixM
	case pramdacOffPixN:
		return p.pixN
	case pramdacOffPixP:
		return p.pixP
	case pramdacOffMemM:
		return p.memM
	case pramdacOffMemN:
		return p.memN
	case pramdacOffMemP:
		return p.memP
	case pramdacOffHTotal:
		return p.hTotal
	case pramdacOffHSyncStart:
		return p.hSyncStart
	case pramdacOffHSyncEnd:
		return p.hSyncEnd
	case pramdacOffHBlankStrt:
		return p.hBlankStart
	case pramdacOffHBlankEnd:
		return p.hBlankEnd
	case pramdacOffVTotal:
		return p.vTotal
	case pramdacOffVSyncStart:
		return p.vSyncStart
	case pramdacOffVSyncEnd:
		return p.vSyncEnd
	case pramdacOffVBlankStrt:
		return p.vBlankStart
	case pramdacOffVBlankEnd:
		return p.vBlankEnd
	case pramdacOffGeneralCtl:
		if p.mode565 {
			return 1
		}
		return 0
	case pramdacOffVBlankAck:
		if p.vblankPending {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func (p *pramdac) write32(addr uint32, val uint32) {
	switch addr {
	case pramdacOffPixM:
		p.pixM = val
	case pramdacOffPixN:
		p.pixN = val
	case pramdacOffPixP:
		p.pixP = val
	case pramdacOffMemM:
		p.memM = val
	case pramdacOffMemN:
		p.memN = val
	case pramdacOffMemP:
		p.memP = val
	case pramdacOffHTotal:
		p.hTotal = val
		p.recomputeDisplaySize()
	case pramdacOffHSyncStart:
		p.hSyncStart = val
	case pramdacOffHSyncEnd:
		p.hSyncEnd = val
	case pramdacOffHBlankStrt:
		p.hBlankStart = val
		p.recomputeDisplaySize()
	case pramdacOffHBlankEnd:
		p.hBlankEnd = val
	case pramdacOffVTotal:
		p.vTotal = val
		p.recomputeDisplaySize()
	case pramdacOffVSyncStart:
		p.vSyncStart = val
	case pramdacOffVSyncEnd:
		p.vSyncEnd = val
	case pramdacOffVBlankStrt:
		p.vBlankStart = val
		p.recomputeDisplaySize()
	case pramdacOffVBlankEnd:
		p.vBlankEnd = val
	case pramdacOffGeneralCtl:
		p.mode565 = val&1 != 0
	case pramdacOffVBlankAck:
		if val&1 != 0 {
			p.vblankPending = false
		}
	}
}
