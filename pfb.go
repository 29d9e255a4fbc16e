package nv4

// pfb is the framebuffer controller: reports installed VRAM size/bank
// configuration and holds framebuffer width/bpp hints that mirror what
// PRAMDAC also tracks from its own CRT timing registers.
type pfb struct {
	boot0      uint32 // VRAM size enum
	bankConfig uint32
	debug0     uint32
}

const (
	pfbOffBoot0      = 0x000
	pfbOffBankConfig = 0x004
	pfbOffDebug0     = 0x008
)

// VRAM size encodings for boot_0, matching the installed sizes a real NV4
// board shipped with.
const (
	pfbVRAMSize2MB  = 0x00
	pfbVRAMSize4MB  = 0x01
	pfbVRAMSize8MB  = 0x02
	pfbVRAMSize16MB = 0x03
)

func newPFB(vramBytes int) *pfb {
	var enc uint32
	switch {
	case vramBytes <= 2<<20:
		enc = pfbVRAMSize2MB
	case vramBytes <= 4<<20:
		enc = pfbVRAMSize4MB
	case vramBytes <= 8<<20:
		enc = pfbVRAMSize8MB
	default:
		enc = pfbVRAMSize16MB
	}
	return &pfb{boot0: enc}
}

// pmcPendingReduced is always false: PFB has no interrupt source of its
// own on this chip. Its PMC slot is shared with PRAMDAC's vblank flag (see
// Device.recomputeIRQ), so the bit is not permanently dead.
func (b *pfb) pmcPendingReduced() bool { return false }

func (b *pfb) read32(addr uint32) uint32 {
	switch addr {
	case pfbOffBoot0:
		return b.boot0
	case pfbOffBankConfig:
		return b.bankConfig
	case pfbOffDebug0:
		return b.debug0
	default:
		return 0
	}
}

// write32 accepts writes to the VRAM-size field but never reallocates the
// backing VRAM slice: on real hardware this field only describes installed
// memory. Reallocating is a construction-time-only operation via
// Config.VRAMSize.
func (b *pfb) write32(addr uint32, val uint32) {
	switch addr {
	case pfbOffBoot0:
		b.boot0 = val
	case pfbOffBankConfig:
		b.bankConfig = val
	case pfbOffDebug0:
		b.debug0 = val
	}
}
