package nv4

// methodContext is what PFIFO's pull side hands to PGRAPH for one resolved
// method submission.
type methodContext struct {
	param       uint32
	method      uint16
	channel     uint32
	subchannel  uint8
	classID     uint8
	ramInOffset uint16
}

// Surface is one of PGRAPH's four independently addressable render
// targets.
type Surface struct {
	Offset uint32 // 22 bits into VRAM
	Pitch  uint32 // 12 bits, bytes
	Format PixelFormat
}

// PatternShape selects how the 64-bit pattern bitmap is indexed per pixel.
type PatternShape uint8

const (
	PatternShape8x8 PatternShape = iota
	PatternShape1x64
	PatternShape64x1
)

type patternState struct {
	color0, color1 Color
	bitmap         uint64
	shape          PatternShape
}

type clipRect struct {
	x, y, w, h int
}

type trappedState struct {
	address, data, instance uint32
}

// pgraph is the graphics engine: a large banked state machine shared by
// every object class's method handlers, plus per-class latched draw state.
type pgraph struct {
	debug [4]uint32

	intr0, intrEn0 uint32 // method-trap pending/enable
	intr1, intrEn1 uint32 // software-method / invalid-data / double-notify
	dmaIntr, dmaIntrEn uint32

	ctxSwitch        uint32
	dmaContextCtrl   uint32
	dmaContextUser   uint32
	ctxCache         [8]uint32

	clip absoluteClip

	srcCanvasMin, srcCanvasMax [2]int
	dstCanvasMin, dstCanvasMax [2]int

	pattern patternState

	rop3      uint8
	planeMask uint8

	chromaKeyRaw uint32
	chromaKey    Color

	beta uint32 // fixed-point 1.30

	surfaces [4]Surface

	clip0, clip1 clipRect
	clipMisc     uint32

	fifoAccess bool
	status     uint32
	trapped    trappedState

	notifyAddr       uint32
	notifyDMAContext uint32
	notifyPending    bool

	rect    rectClassState
	lin     linClassState
	tri     triClassState
	m2mf    m2mfClassState
	blit    blitClassState
	imgHost imageHostClassState
	d3d5    d3dClassState
	d3d6    d3dClassState
}

type absoluteClip struct {
	xmin, xmax, ymin, ymax int
}

func newPGRAPH() *pgraph {
	g := &pgraph{}
	for i := range g.surfaces {
		g.surfaces[i].Format = PixelFormatR8G8B8
	}
	return g
}

func (g *pgraph) pmcPendingReduced() bool {
	return (g.intr0&g.intrEn0) != 0 || (g.intr1&g.intrEn1) != 0 || (g.dmaIntr&g.dmaIntrEn) != 0
}

// PGRAPH INTR_1 bits.
const (
	pgraphIntr1SoftwareMethodPending = 1 << 0
	pgraphIntr1InvalidData           = 1 << 1
	pgraphIntr1DoubleNotify          = 1 << 2
)

// destSurface returns the highest-indexed enabled destination buffer named
// by the grobj's destination-buffer mask, falling back to the source
// buffer when none are enabled (spec.md §4.5 "Destination selection").
func destSurface(gc grobjContext) int {
	for i := 3; i >= 0; i-- {
		if gc.destMask&(1<<uint(i)) != 0 {
			return i
		}
	}
	return int(gc.srcSelect)
}

// Dispatch implements spec.md §4.5's per-method dispatch algorithm.
func (g *pgraph) Dispatch(d *Device, ctx methodContext) {
	grobjWords := d.ramin.ReadGrobj(uint32(ctx.ramInOffset))
	gc := decodeGrobjField0(grobjWords[0])
	g.ctxCache[ctx.subchannel] = grobjWords[0]

	if ctx.method <= 0x104 {
		g.handleGenericMethod(d, ctx)
		return
	}

	cls := classByID(ctx.classID)
	if cls == nil {
		g.intr1 |= pgraphIntr1SoftwareMethodPending
		d.recomputeIRQ()
		return
	}
	cls.HandleMethod(d, g, ctx, grobjWords, gc)
	d.recomputeIRQ()
}

// handleGenericMethod implements the two shared-prefix methods every class
// accepts below 0x105: arming a notifier.
func (g *pgraph) handleGenericMethod(d *Device, ctx methodContext) {
	switch ctx.method {
	case 0x100: // SET_NOTIFY_CONTEXT_FOR_DMA
		g.notifyDMAContext = ctx.param
	case 0x104: // SET_NOTIFY
		if g.notifyPending {
			g.intr1 |= pgraphIntr1DoubleNotify
			g.notifyPending = false
			d.recomputeIRQ()
			return
		}
		g.notifyAddr = ctx.param
		g.notifyPending = true
		armNotifier(d.vram, g.notifyAddr)
	}
}

// completeNotify writes the notifier record and clears the pending flag if
// a notifier is currently armed. Class handlers call this after finishing
// a notifiable operation (a filled rectangle, a completed blit, an M2MF
// reformat, ...).
func (g *pgraph) completeNotify(d *Device, info32 uint32, info16 uint16, status uint16) {
	if !g.notifyPending {
		return
	}
	writeNotifier(d.vram, g.notifyAddr, d.ptimer.time, info32, info16, status)
	g.notifyPending = false
}

func (g *pgraph) reportInvalidData(d *Device) {
	g.intr1 |= pgraphIntr1InvalidData
	d.recomputeIRQ()
}

// grobjContext is the decoded form of a grobj's field 0.
type grobjContext struct {
	pixelFormat  PixelFormat
	chromaEnable bool
	destMask     uint8
	srcSelect    uint8
	alphaEnable  bool
}

func decodeGrobjField0(word uint32) grobjContext {
	return grobjContext{
		pixelFormat:  PixelFormat(word & 0x7),
		chromaEnable: word&(1<<3) != 0,
		destMask:     uint8((word >> 4) & 0xF),
		srcSelect:    uint8((word >> 8) & 0x3),
		alphaEnable:  word&(1<<10) != 0,
	}
}

// PGRAPH MMIO register offsets (relative to rangePGRAPHStart).
const (
	pgraphOffDebug0        = 0x080
	pgraphOffIntr0         = 0x100
	pgraphOffIntrEn0       = 0x140
	pgraphOffIntr1         = 0x104
	pgraphOffIntrEn1       = 0x144
	pgraphOffDMAIntr       = 0x108
	pgraphOffDMAIntrEn     = 0x148
	pgraphOffCtxSwitch     = 0x180
	pgraphOffDMACtxCtrl    = 0x184
	pgraphOffDMACtxUser    = 0x188
	pgraphOffAbsClipXMin   = 0x200
	pgraphOffAbsClipXMax   = 0x204
	pgraphOffAbsClipYMin   = 0x208
	pgraphOffAbsClipYMax   = 0x20C
	pgraphOffROP3          = 0x210
	pgraphOffPlaneMask     = 0x214
	pgraphOffChromaKey     = 0x218
	pgraphOffBeta          = 0x220
	pgraphOffPatternColor0 = 0x230
	pgraphOffPatternColor1 = 0x234
	pgraphOffPatternBitLo  = 0x238
	pgraphOffPatternBitHi  = 0x23C
	pgraphOffPatternShape  = 0x240
	pgraphOffSurfBase      = 0x300 // + surface*0x10: offset, pitch, format
	pgraphOffStatus        = 0x3F0
	pgraphOffFIFOAccess    = 0x3F4
)

func (g *pgraph) read32(addr uint32) uint32 {
	if addr >= pgraphOffSurfBase && addr < pgraphOffSurfBase+0x40 {
		idx := (addr - pgraphOffSurfBase) / 0x10
		field := (addr - pgraphOffSurfBase) % 0x10
		if int(idx) < len(g.surfaces) {
			switch field {
			case 0x0:
				return g.surfaces[idx].Offset
			case 0x4:
				return g.surfaces[idx].Pitch
			case 0x8:
				return uint32(g.surfaces[idx].Format)
			}
		}
		return 0
	}
	switch addr {
	case pgraphOffDebug0:
		return g.debug[0]
	case pgraphOffIntr0:
		return g.intr0
	case pgraphOffIntrEn0:
		return g.intrEn0
	case pgraphOffIntr1:
		return g.intr1
	case pgraphOffIntrEn1:
		return g.intrEn1
	case pgraphOffDMAIntr:
		return g.dmaIntr
	case pgraphOffDMAIntrEn:
		return g.dmaIntrEn
	case pgraphOffCtxSwitch:
		return g.ctxSwitch
	case pgraphOffDMACtxCtrl:
		return g.dmaContextCtrl
	case pgraphOffDMACtxUser:
		return g.dmaContextUser
	case pgraphOffAbsClipXMin:
		return uint32(g.clip.xmin)
	case pgraphOffAbsClipXMax:
		return uint32(g.clip.xmax)
	case pgraphOffAbsClipYMin:
		return uint32(g.clip.ymin)
	case pgraphOffAbsClipYMax:
		return uint32(g.clip.ymax)
	case pgraphOffROP3:
		return uint32(g.rop3)
	case pgraphOffPlaneMask:
		return uint32(g.planeMask)
	case pgraphOffChromaKey:
		return g.chromaKeyRaw
	case pgraphOffBeta:
		return g.beta
	case pgraphOffPatternColor0:
		return DownconvertColor(PixelFormatR8G8B8, g.pattern.color0, true)
	case pgraphOffPatternColor1:
		return DownconvertColor(PixelFormatR8G8B8, g.pattern.color1, true)
	case pgraphOffPatternBitLo:
		return uint32(g.pattern.bitmap)
	case pgraphOffPatternBitHi:
		return uint32(g.pattern.bitmap >> 32)
	case pgraphOffPatternShape:
		return uint32(g.pattern.shape)
	case pgraphOffStatus:
		return g.status
	case pgraphOffFIFOAccess:
		return boolToU32(g.fifoAccess)
	default:
		return 0
	}
}

func (g *pgraph) write32(addr uint32, val uint32) {
	if addr >= pgraphOffSurfBase && addr < pgraphOffSurfBase+0x40 {
		idx := (addr - pgraphOffSurfBase) / 0x10
		field := (addr - pgraphOffSurfBase) % 0x10
		if int(idx) < len(g.surfaces) {
			switch field {
			case 0x0:
				g.surfaces[idx].Offset = val & 0x3FFFFF
			case 0x4:
				g.surfaces[idx].Pitch = val & 0xFFF
			case 0x8:
				g.surfaces[idx].Format = PixelFormat(val)
			}
		}
		return
	}
	switch addr {
	case pgraphOffDebug0:
		g.debug[0] = val
	case pgraphOffIntr0:
		g.intr0 &^= val
	case pgraphOffIntrEn0:
		g.intrEn0 = val
	case pgraphOffIntr1:
		g.intr1 &^= val
	case pgraphOffIntrEn1:
		g.intrEn1 = val
	case pgraphOffDMAIntr:
		g.dmaIntr &^= val
	case pgraphOffDMAIntrEn:
		g.dmaIntrEn = val
	case pgraphOffCtxSwitch:
		g.ctxSwitch = val
	case pgraphOffDMACtxCtrl:
		g.dmaContextCtrl = val
	case pgraphOffDMACtxUser:
		g.dmaContextUser = val
	case pgraphOffAbsClipXMin:
		g.clip.xmin = int(val)
	case pgraphOffAbsClipXMax:
		g.clip.xmax = int(val)
	case pgraphOffAbsClipYMin:
		g.clip.ymin = int(val)
	case pgraphOffAbsClipYMax:
		g.clip.ymax = int(val)
	case pgraphOffROP3:
		g.rop3 = uint8(val)
	case pgraphOffPlaneMask:
		g.planeMask = uint8(val)
	case pgraphOffChromaKey:
		g.chromaKeyRaw = val
		g.chromaKey = ExpandColor(PixelFormatR8G8B8, val, true)
	case pgraphOffBeta:
		g.beta = val
	case pgraphOffPatternColor0:
		g.pattern.color0 = ExpandColor(PixelFormatR8G8B8, val, true)
	case pgraphOffPatternColor1:
		g.pattern.color1 = ExpandColor(PixelFormatR8G8B8, val, true)
	case pgraphOffPatternBitLo:
		g.pattern.bitmap = g.pattern.bitmap&0xFFFFFFFF00000000 | uint64(val)
	case pgraphOffPatternBitHi:
		g.pattern.bitmap = g.pattern.bitmap&0x00000000FFFFFFFF | uint64(val)<<32
	case pgraphOffPatternShape:
		g.pattern.shape = PatternShape(val)
	case pgraphOffStatus:
		// read-only
	case pgraphOffFIFOAccess:
		g.fifoAccess = val != 0
	}
}
