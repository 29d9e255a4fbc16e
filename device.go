package nv4

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"
)

// Config describes one NV4-core instance: installed VRAM, revision strap,
// RAMIN partition sizes, CACHE1 depth, and the hardware straps PEXTDEV
// reports. Zero-valued fields take the revision-C defaults a RIVA TNT
// board shipped with.
type Config struct {
	VRAMSize   int
	Revision   byte // 'A', 'B', or 'C'; default 'C'
	RAMHTSize  int
	RAMROSize  int
	RAMFCSize  int
	Cache1Size int

	BusType  byte
	RAMType  byte
	Crystal  bool
	TVOut    bool
	CrystalHz uint64

	VGA VGACollaborator
}

func (c *Config) setDefaults() {
	if c.VRAMSize <= 0 {
		c.VRAMSize = 16 << 20
	}
	if c.Revision == 0 {
		c.Revision = 'C'
	}
	if c.RAMHTSize == 0 {
		c.RAMHTSize = RAMHTSize8KiB
	}
	if c.RAMROSize == 0 {
		c.RAMROSize = RAMROSize512B
	}
	if c.RAMFCSize == 0 {
		c.RAMFCSize = RAMFCSize4KiB
	}
	if c.Cache1Size == 0 {
		if c.Revision == 'C' {
			c.Cache1Size = 64
		} else {
			c.Cache1Size = 32
		}
	}
	if c.CrystalHz == 0 {
		c.CrystalHz = 14318180
	}
	if c.VGA == nil {
		c.VGA = NullVGACollaborator{}
	}
}

// Device is one complete NV4 core: every MMIO subsystem, the shared VRAM
// backing store, and the 24-bit BAR0 arbiter that routes host accesses to
// the subsystem owning each address range.
type Device struct {
	mu sync.Mutex

	cfg  Config
	vram []byte

	pmc     *pmc
	pbus    *pbus
	pfb     *pfb
	pextdev *pextdev
	ptimer  *ptimer
	pramdac *pramdac
	ramin   *ramin
	pfifo   *pfifo
	pgraph  *pgraph

	vga VGACollaborator

	irqAsserted bool

	displaySurfaceIndex int
	displayLine         []byte
}

// NewDevice constructs one core from cfg, wiring every subsystem the way
// spec.md §2 describes them and defaulting every unset Config field to a
// revision-C RIVA TNT's straps.
func NewDevice(cfg Config) (*Device, error) {
	cfg.setDefaults()
	if cfg.VRAMSize < ramInTotalSize {
		return nil, fmt.Errorf("nv4: VRAMSize %d too small for the %d byte RAMIN region", cfg.VRAMSize, ramInTotalSize)
	}

	d := &Device{
		cfg:     cfg,
		vram:    make([]byte, cfg.VRAMSize),
		pmc:     newPMC(cfg.Revision),
		pbus:    newPBUS(),
		pfb:     newPFB(cfg.VRAMSize),
		pextdev: newPEXTDEV(cfg.BusType, cfg.RAMType, cfg.Crystal, cfg.TVOut),
		ptimer:  newPTIMER(),
		pramdac: newPRAMDAC(cfg.CrystalHz),
		pgraph:  newPGRAPH(),
		vga:     cfg.VGA,
	}
	d.ramin = newRAMIN(d.vram, cfg.RAMHTSize, cfg.RAMROSize, cfg.RAMFCSize)
	d.pfifo = newPFIFO(d.ramin, cfg.Cache1Size)
	d.pmc.enable = 0xFFFFFFFF

	d.resizeDisplayBuffer()
	d.recomputeIRQ()
	return d, nil
}

func (d *Device) resizeDisplayBuffer() {
	need := d.pramdac.displayWidth * d.pramdac.displayHeight * 4
	if len(d.displayLine) != need {
		d.displayLine = make([]byte, need)
	}
}

// IRQAsserted reports PMC's current aggregated interrupt line.
func (d *Device) IRQAsserted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.irqAsserted
}

// VRAM exposes the raw backing store, for a host driver simulator or test
// harness to seed grobjs, DMA objects, and surface contents directly.
func (d *Device) VRAM() []byte { return d.vram }

func inRange(addr, start, end uint32) bool { return addr >= start && addr <= end }

// Read32 dispatches one 32-bit MMIO read to the subsystem owning addr.
func (d *Device) Read32(addr uint32) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.read32Locked(addr)
}

func (d *Device) read32Locked(addr uint32) uint32 {
	switch {
	case inRange(addr, rangePMCStart, rangePMCEnd):
		return d.pmc.read32(addr - rangePMCStart)
	case inRange(addr, rangePBUSStart, rangePBUSEnd):
		return d.pbus.read32(addr - rangePBUSStart)
	case inRange(addr, rangePFIFOStart, rangePFIFOEnd):
		return d.pfifo.read32(addr - rangePFIFOStart)
	case inRange(addr, rangePRMStart, rangePRMEnd):
		return d.vgaRead32(addr)
	case inRange(addr, rangePRMIOStart, rangePRMIOEnd):
		return d.vgaRead32(addr)
	case inRange(addr, rangePTIMERStart, rangePTIMEREnd):
		return d.ptimer.read32(addr - rangePTIMERStart)
	case inRange(addr, rangePFBStart, rangePFBEnd):
		return d.pfb.read32(addr - rangePFBStart)
	case inRange(addr, rangePEXTDEVStart, rangePEXTDEVEnd):
		return d.pextdev.read32(addr - rangePEXTDEVStart)
	case inRange(addr, rangePMEStart, rangePMEEnd):
		return 0 // mediaport: no audio/video capture block on this core (spec.md §1 Non-goals)
	case inRange(addr, rangePROMStart, rangePROMEnd):
		return 0xFFFFFFFF // unmapped expansion ROM shadow reads as all-ones
	case inRange(addr, rangePGRAPHStart, rangePGRAPHEnd):
		if addr >= pgraphClassWindowBase {
			return 0
		}
		return d.pgraph.read32(addr - rangePGRAPHStart)
	case inRange(addr, rangePRMCIOStart, rangePRMCIOEnd):
		return d.vgaRead32(addr)
	case inRange(addr, rangePRAMDACStart, rangePRAMDACEnd):
		return d.pramdac.read32(addr - rangePRAMDACStart)
	case inRange(addr, rangeNVUserStart, rangeNVUserEnd):
		return 0 // host submission window is write-only
	case inRange(addr, rangePNVMStart, rangePNVMEnd):
		return d.readVRAMWord(addr - rangePNVMStart)
	case inRange(addr, rangeRAMINStart, rangeRAMINEnd):
		return d.readVRAMWord(uint32(d.ramin.base) + (addr - rangeRAMINStart))
	default:
		return 0
	}
}

// Write32 dispatches one 32-bit MMIO write to the subsystem owning addr,
// then recomputes PMC's aggregated interrupt line: any subsystem write can
// change a pending/enable bit (spec.md §4.2).
func (d *Device) Write32(addr uint32, val uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.write32Locked(addr, val)
}

func (d *Device) write32Locked(addr uint32, val uint32) {
	switch {
	case inRange(addr, rangePMCStart, rangePMCEnd):
		d.pmc.write32(addr-rangePMCStart, val)
	case inRange(addr, rangePBUSStart, rangePBUSEnd):
		replayAddr, replayVal, replay := d.pbus.write32(addr-rangePBUSStart, val)
		if replay {
			d.write32Locked(replayAddr, replayVal)
			return
		}
	case inRange(addr, rangePFIFOStart, rangePFIFOEnd):
		d.pfifo.write32(addr-rangePFIFOStart, val)
	case inRange(addr, rangePRMStart, rangePRMEnd):
		d.vgaWrite32(addr, val)
		return
	case inRange(addr, rangePRMIOStart, rangePRMIOEnd):
		d.vgaWrite32(addr, val)
		return
	case inRange(addr, rangePTIMERStart, rangePTIMEREnd):
		d.ptimer.write32(addr-rangePTIMERStart, val)
	case inRange(addr, rangePFBStart, rangePFBEnd):
		d.pfb.write32(addr-rangePFBStart, val)
	case inRange(addr, rangePEXTDEVStart, rangePEXTDEVEnd):
		d.pextdev.write32(addr-rangePEXTDEVStart, val)
	case inRange(addr, rangePMEStart, rangePMEEnd):
		// mediaport: no audio/video capture block on this core (Non-goal)
	case inRange(addr, rangePROMStart, rangePROMEnd):
		// expansion ROM shadow is read-only from the host's perspective
	case inRange(addr, rangePGRAPHStart, rangePGRAPHEnd):
		if addr >= pgraphClassWindowBase {
			rel := addr - pgraphClassWindowBase
			classIdx := rel / pgraphClassWindowSpan
			methodOff := rel % pgraphClassWindowSpan
			d.pgraphClassWindowWrite(uint8(classIdx), uint16(methodOff), val)
		} else {
			d.pgraph.write32(addr-rangePGRAPHStart, val)
		}
	case inRange(addr, rangePRMCIOStart, rangePRMCIOEnd):
		d.vgaWrite32(addr, val)
		return
	case inRange(addr, rangePRAMDACStart, rangePRAMDACEnd):
		d.pramdac.write32(addr-rangePRAMDACStart, val)
		d.resizeDisplayBuffer()
	case inRange(addr, rangeNVUserStart, rangeNVUserEnd):
		d.submitNVUser(addr, val)
	case inRange(addr, rangePNVMStart, rangePNVMEnd):
		d.writeVRAMWord(addr-rangePNVMStart, val)
	case inRange(addr, rangeRAMINStart, rangeRAMINEnd):
		d.writeVRAMWord(uint32(d.ramin.base)+(addr-rangeRAMINStart), val)
	default:
		return
	}
	d.recomputeIRQ()
}

// submitNVUser decodes one host submission word per spec.md §4.3's NV_USER
// layout and hands it to PFIFO's push path.
func (d *Device) submitNVUser(addr uint32, val uint32) {
	rel := addr - rangeNVUserStart
	channel := (rel >> nvUserChannelShift) & nvUserChannelMask
	subchannel := uint8((rel >> nvUserSubchannelShift) & nvUserSubchannelMask)
	method := uint16(rel & nvUserMethodMask)
	d.pfifo.Push(channel, subchannel, method, val)
}

// pgraphClassWindowWrite implements the per-class method window mirror
// (spec.md §4.5 "convenience mirror of NV_USER"): a direct, non-FIFO write
// to a class's current method, dispatched immediately against whatever
// object subchannel 0 currently has resident.
func (d *Device) pgraphClassWindowWrite(classID uint8, method uint16, val uint32) {
	cls := classByID(classID)
	if cls == nil {
		d.pgraph.intr1 |= pgraphIntr1SoftwareMethodPending
		return
	}
	gc := decodeGrobjField0(d.pgraph.ctxCache[0])
	cls.HandleMethod(d, d.pgraph, methodContext{
		param:      val,
		method:     method,
		channel:    d.pfifo.cache1.channel,
		subchannel: 0,
		classID:    classID,
	}, [4]uint32{}, gc)
}

func (d *Device) readVRAMWord(off uint32) uint32 {
	o := int(off)
	if o < 0 || o+4 > len(d.vram) {
		return 0
	}
	return binary.LittleEndian.Uint32(d.vram[o : o+4])
}

func (d *Device) writeVRAMWord(off uint32, val uint32) {
	o := int(off)
	if o < 0 || o+4 > len(d.vram) {
		return
	}
	binary.LittleEndian.PutUint32(d.vram[o:o+4], val)
}

func (d *Device) vgaRead32(addr uint32) uint32 {
	var word uint32
	for i := uint32(0); i < 4; i++ {
		word |= uint32(d.vga.VGARead8(addr+i)) << (8 * i)
	}
	return word
}

func (d *Device) vgaWrite32(addr uint32, val uint32) {
	for i := uint32(0); i < 4; i++ {
		d.vga.VGAWrite8(addr+i, uint8(val>>(8*i)))
	}
}

func inVGAWindow(addr uint32) bool {
	return inRange(addr, rangePRMStart, rangePRMEnd) ||
		inRange(addr, rangePRMIOStart, rangePRMIOEnd) ||
		inRange(addr, rangePRMCIOStart, rangePRMCIOEnd)
}

// Read16/Write16/Read8/Write8 synthesize narrower accesses on top of the
// 32-bit register storage every subsystem keeps, per spec.md §4.1, except
// inside the legacy VGA windows, which are always byte-addressed and
// forwarded straight to the collaborator.
func (d *Device) Read8(addr uint32) uint8 {
	if inVGAWindow(addr) {
		d.mu.Lock()
		defer d.mu.Unlock()
		return d.vga.VGARead8(addr)
	}
	word := d.Read32(addr &^ 3)
	return uint8(word >> ((addr & 3) * 8))
}

func (d *Device) Write8(addr uint32, val uint8) {
	if inVGAWindow(addr) {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.vga.VGAWrite8(addr, val)
		return
	}
	base := addr &^ 3
	shift := (addr & 3) * 8
	d.mu.Lock()
	word := d.read32Locked(base)
	word = word&^(0xFF<<shift) | uint32(val)<<shift
	d.write32Locked(base, word)
	d.mu.Unlock()
}

func (d *Device) Read16(addr uint32) uint16 {
	if inVGAWindow(addr) {
		return uint16(d.Read8(addr)) | uint16(d.Read8(addr+1))<<8
	}
	word := d.Read32(addr &^ 3)
	return uint16(word >> ((addr & 3) * 8))
}

func (d *Device) Write16(addr uint32, val uint16) {
	if inVGAWindow(addr) {
		d.Write8(addr, uint8(val))
		d.Write8(addr+1, uint8(val>>8))
		return
	}
	base := addr &^ 3
	shift := (addr & 3) * 8
	d.mu.Lock()
	word := d.read32Locked(base)
	word = word&^(0xFFFF<<shift) | uint32(val)<<shift
	d.write32Locked(base, word)
	d.mu.Unlock()
}

// maxPullsPerTick bounds how many entries PFIFO drains per Tick, so a
// pathological submission burst can't make Tick block indefinitely.
const maxPullsPerTick = 4096

// Tick advances PTIMER and PRAMDAC by delta and drains PFIFO, the same
// external-clock-driven loop spec.md §4.7 and §5 describe: the host writes
// registers and pushes methods asynchronously, and the engine only
// processes pushed methods and timer/vblank state when ticked.
func (d *Device) Tick(delta time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.ptimer.Tick(delta)
	d.pramdac.Tick(delta)

	for i := 0; i < maxPullsPerTick; i++ {
		before := d.pfifo.cache1.decodedGet
		beforeC0 := d.pfifo.cache0.full
		if !(d.pfifo.cache0.pullEnabled && d.pfifo.cache0.full) && (!d.pfifo.cache1.pullEnabled || d.pfifo.cache1.isEmpty()) {
			break
		}
		d.pfifo.PullStep(d)
		if d.pfifo.cache1.decodedGet == before && d.pfifo.cache0.full == beforeC0 {
			break
		}
	}

	d.recomputeIRQ()
}
