package nv4

// pmc is the master control subsystem: chip identity, interrupt
// aggregation, and per-subsystem clock/enable gating.
//
// Design note: pmc never holds pointers to other subsystems (design note
// #9's cyclic-reference avoidance). Device.recomputeIRQ pulls a single
// reduced pending bit from each subsystem through a narrow
// pmcPendingReduced() method and folds it into intr0 itself.
type pmc struct {
	boot    uint32
	intr0   uint32
	intrEn0 uint32
	enable  uint32
}

// PMC interrupt bit assignments within INTR_0/ENABLE. Bit 31 is the
// software-settable/write-1-to-clear bit; bits 0..4 are hardware bits
// mirroring a subsystem's own reduced pending state.
const (
	pmcBitPFIFO    = 0
	pmcBitPGRAPH   = 1
	pmcBitPTIMER   = 2
	pmcBitPFB      = 3
	pmcBitPBUS     = 4
	pmcBitSoftware = 31
)

const (
	pmcIntrEn0Hardware = 1 << 0
	pmcIntrEn0Software = 1 << 1
)

// Chip boot identities, one per revision strap (spec §4.2: "value depends
// on revision A/B/C").
const (
	pmcBootRevA = 0x00004000
	pmcBootRevB = 0x00004001
	pmcBootRevC = 0x00004002
)

func newPMC(rev byte) *pmc {
	boot := uint32(pmcBootRevA)
	switch rev {
	case 'B':
		boot = pmcBootRevB
	case 'C':
		boot = pmcBootRevC
	}
	return &pmc{boot: boot}
}

func (p *pmc) subsystemEnabled(bit uint) bool {
	return p.enable&(1<<bit) != 0
}

func (p *pmc) read32(addr uint32) uint32 {
	switch addr {
	case 0x000:
		return p.boot
	case 0x100:
		return p.intr0
	case 0x140:
		return p.intrEn0
	case 0x200:
		return p.enable
	default:
		return 0
	}
}

func (p *pmc) write32(addr uint32, val uint32) {
	switch addr {
	case 0x000:
		// read-only
	case 0x100:
		// Write-1-to-clear, software bit only; hardware bits clear
		// only when the owning subsystem's own pending clears.
		p.intr0 &^= val & (1 << pmcBitSoftware)
	case 0x140:
		p.intrEn0 = val
	case 0x200:
		p.enable = val
	}
}

// recomputeIRQ pulls each subsystem's reduced pending bit and updates
// pmc.intr0 and the asserted IRQ line. Called by Device after every write
// that could change a subsystem's interrupt state.
func (d *Device) recomputeIRQ() {
	intr0 := d.pmc.intr0 & (1 << pmcBitSoftware)

	if d.pmc.subsystemEnabled(pmcBitPFIFO) && d.pfifo.pmcPendingReduced() {
		intr0 |= 1 << pmcBitPFIFO
	}
	if d.pmc.subsystemEnabled(pmcBitPGRAPH) && d.pgraph.pmcPendingReduced() {
		intr0 |= 1 << pmcBitPGRAPH
	}
	if d.pmc.subsystemEnabled(pmcBitPTIMER) && d.ptimer.pmcPendingReduced() {
		intr0 |= 1 << pmcBitPTIMER
	}
	if d.pmc.subsystemEnabled(pmcBitPFB) && (d.pfb.pmcPendingReduced() || d.pramdac.vblankPending) {
		intr0 |= 1 << pmcBitPFB
	}
	if d.pmc.subsystemEnabled(pmcBitPBUS) && d.pbus.pmcPendingReduced() {
		intr0 |= 1 << pmcBitPBUS
	}

	d.pmc.intr0 = intr0

	var mask uint32
	if d.pmc.intrEn0&pmcIntrEn0Hardware != 0 {
		mask |= 0x7FFFFFFF
	}
	if d.pmc.intrEn0&pmcIntrEn0Software != 0 {
		mask |= 1 << pmcBitSoftware
	}
	d.irqAsserted = intr0&mask != 0
}
