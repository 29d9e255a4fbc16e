package nv4

// pextdev exposes the read-only chip configuration straps: bus type, RAM
// type, crystal frequency select, and TV-out presence. These are
// soft-strapped from Config at construction time; no host write can change
// them.
type pextdev struct {
	straps uint32
}

const pextdevOffStraps = 0x000

// Strap bit layout within the straps register.
const (
	pextdevBusTypeShift  = 0 // 2 bits: 0=PCI, 1=AGP
	pextdevRAMTypeShift  = 2 // 2 bits: 0=SDRAM, 1=SGRAM
	pextdevCrystalShift  = 4 // 1 bit
	pextdevTVOutShift    = 5 // 1 bit
)

// Bus types for BusType.
const (
	BusTypePCI byte = iota
	BusTypeAGP
)

// RAM types for RAMType.
const (
	RAMTypeSDRAM byte = iota
	RAMTypeSGRAM
)

func newPEXTDEV(busType, ramType byte, crystal, tvOut bool) *pextdev {
	var straps uint32
	straps |= uint32(busType&0x3) << pextdevBusTypeShift
	straps |= uint32(ramType&0x3) << pextdevRAMTypeShift
	if crystal {
		straps |= 1 << pextdevCrystalShift
	}
	if tvOut {
		straps |= 1 << pextdevTVOutShift
	}
	return &pextdev{straps: straps}
}

func (p *pextdev) read32(addr uint32) uint32 {
	if addr == pextdevOffStraps {
		return p.straps
	}
	return 0
}

// write32 is a no-op: straps are hardware-soldered, not host-writable.
func (p *pextdev) write32(addr uint32, val uint32) {}
