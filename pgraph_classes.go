package nv4

// graphicsClass is the per-class method handler contract every one of the
// thirteen object classes implements. Methods at or below 0x104 never
// reach here; pgraph.Dispatch handles those generically.
type graphicsClass interface {
	HandleMethod(d *Device, g *pgraph, ctx methodContext, grobj [4]uint32, gc grobjContext)
}

// classByID maps a context word's class_id to its handler. A nil return
// means an unrecognized class, which Dispatch reports as a method trap.
func classByID(id uint8) graphicsClass {
	switch id {
	case 0x12:
		return betaClass{}
	case 0x43:
		return rop3Class{}
	case 0x57:
		return chromaClass{}
	case 0x19:
		return clipClass{}
	case 0x44:
		return patternClass{}
	case 0x5E:
		return rectClass{}
	case 0x5C:
		return linClass{}
	case 0x5D:
		return triClass{}
	case 0x39:
		return m2mfClass{}
	case 0x5F:
		return blitClass{}
	case 0x61:
		return imageHostClass{}
	case 0x54:
		return d3dClass{unit: 5}
	case 0x55:
		return d3dClass{unit: 6}
	default:
		return nil
	}
}

// --- 0x12 Beta blending factor ---

type betaClass struct{}

const betaClassSetBeta = 0x300

func (betaClass) HandleMethod(d *Device, g *pgraph, ctx methodContext, grobj [4]uint32, gc grobjContext) {
	switch ctx.method {
	case betaClassSetBeta:
		// Fixed-point 1.30: bit 31 is sign, treated as "clamp to 0" since
		// beta is only ever used as a non-negative blend weight here.
		v := ctx.param
		if v&0x80000000 != 0 {
			v = 0
		}
		g.beta = v
	default:
		g.intr1 |= pgraphIntr1SoftwareMethodPending
	}
}

// --- 0x43 ROP3 ---

type rop3Class struct{}

const rop3ClassSetROP = 0x300

func (rop3Class) HandleMethod(d *Device, g *pgraph, ctx methodContext, grobj [4]uint32, gc grobjContext) {
	switch ctx.method {
	case rop3ClassSetROP:
		if ctx.param > 0xFF {
			g.reportInvalidData(d)
			return
		}
		g.rop3 = uint8(ctx.param)
	default:
		g.intr1 |= pgraphIntr1SoftwareMethodPending
	}
}

// --- 0x57 Chroma key ---

type chromaClass struct{}

const chromaClassSetColor = 0x304

func (chromaClass) HandleMethod(d *Device, g *pgraph, ctx methodContext, grobj [4]uint32, gc grobjContext) {
	switch ctx.method {
	case chromaClassSetColor:
		expanded := ExpandColor(PixelFormatR8G8B8, ctx.param, true)
		g.chromaKeyRaw = DownconvertColor(PixelFormatR8G8B8, expanded, true)
		g.chromaKey = expanded
	default:
		g.intr1 |= pgraphIntr1SoftwareMethodPending
	}
}

// --- 0x19 Clipping rectangle ---

type clipClass struct{}

const (
	clipClassSetPosition = 0x300
	clipClassSetSize     = 0x304
)

func (clipClass) HandleMethod(d *Device, g *pgraph, ctx methodContext, grobj [4]uint32, gc grobjContext) {
	switch ctx.method {
	case clipClassSetPosition:
		g.clip.xmin = int(int16(ctx.param))
		g.clip.ymin = int(int16(ctx.param >> 16))
	case clipClassSetSize:
		w := int(uint16(ctx.param))
		h := int(ctx.param >> 16)
		g.clip.xmax = g.clip.xmin + w
		g.clip.ymax = g.clip.ymin + h
	default:
		g.intr1 |= pgraphIntr1SoftwareMethodPending
	}
}

// --- 0x44 Pattern ---

type patternClass struct{}

const (
	patternClassSetShape    = 0x308
	patternClassSetColor0   = 0x310
	patternClassSetColor1   = 0x314
	patternClassSetBitmapHi = 0x318
	patternClassSetBitmapLo = 0x31C
)

func (patternClass) HandleMethod(d *Device, g *pgraph, ctx methodContext, grobj [4]uint32, gc grobjContext) {
	switch ctx.method {
	case patternClassSetShape:
		g.pattern.shape = PatternShape(ctx.param)
	case patternClassSetColor0:
		g.pattern.color0 = ExpandColor(PixelFormatR8G8B8, ctx.param, true)
	case patternClassSetColor1:
		g.pattern.color1 = ExpandColor(PixelFormatR8G8B8, ctx.param, true)
	case patternClassSetBitmapHi:
		g.pattern.bitmap = g.pattern.bitmap&0x00000000FFFFFFFF | uint64(ctx.param)<<32
	case patternClassSetBitmapLo:
		g.pattern.bitmap = g.pattern.bitmap&0xFFFFFFFF00000000 | uint64(ctx.param)
	default:
		g.intr1 |= pgraphIntr1SoftwareMethodPending
	}
}

// --- 0x5E Rectangle fill ---

type rectClassState struct {
	color     Color
	positions [16]struct{ x, y int }
}

type rectClass struct{}

const (
	rectClassSetColor  = 0x304
	rectClassPosition0 = 0x400
	rectClassSize0     = 0x404
	rectClassSlotSpan  = 0x008
	rectClassSlots     = 16
)

func (rectClass) HandleMethod(d *Device, g *pgraph, ctx methodContext, grobj [4]uint32, gc grobjContext) {
	r := &g.rect
	switch {
	case ctx.method == rectClassSetColor:
		r.color = ExpandColor(PixelFormatR8G8B8, ctx.param, gc.alphaEnable)
	case ctx.method >= rectClassPosition0 && ctx.method < rectClassPosition0+rectClassSlots*rectClassSlotSpan && (ctx.method-rectClassPosition0)%rectClassSlotSpan == 0:
		slot := (ctx.method - rectClassPosition0) / rectClassSlotSpan
		r.positions[slot].x = int(int16(ctx.param))
		r.positions[slot].y = int(int16(ctx.param >> 16))
	case ctx.method >= rectClassSize0 && ctx.method < rectClassSize0+rectClassSlots*rectClassSlotSpan && (ctx.method-rectClassSize0)%rectClassSlotSpan == 0:
		slot := (ctx.method - rectClassSize0) / rectClassSlotSpan
		w := int(uint16(ctx.param))
		h := int(ctx.param >> 16)
		d.fillRect(gc, r.positions[slot].x, r.positions[slot].y, w, h, r.color)
		g.completeNotify(d, 0, 0, NotifierDoneOK)
	default:
		g.intr1 |= pgraphIntr1SoftwareMethodPending
	}
}

// --- 0x5C "Lin" (line without endpoints) ---

type linClassState struct {
	color      Color
	haveLast   bool
	lastX, lastY int
}

type linClass struct{}

const (
	linClassSetColor = 0x304
	linClassPoint    = 0x400
)

func (linClass) HandleMethod(d *Device, g *pgraph, ctx methodContext, grobj [4]uint32, gc grobjContext) {
	l := &g.lin
	switch ctx.method {
	case linClassSetColor:
		l.color = ExpandColor(PixelFormatR8G8B8, ctx.param, gc.alphaEnable)
	case linClassPoint:
		x := int(int16(ctx.param))
		y := int(int16(ctx.param >> 16))
		if l.haveLast {
			drawLine(d, gc, l.lastX, l.lastY, x, y, l.color)
		}
		l.lastX, l.lastY = x, y
		l.haveLast = true
	default:
		g.intr1 |= pgraphIntr1SoftwareMethodPending
	}
}

// drawLine is a standard integer Bresenham walk through drawPixel.
func drawLine(d *Device, gc grobjContext, x0, y0, x1, y1 int, color Color) {
	dx := abs(x1 - x0)
	sx := 1
	if x0 >= x1 {
		sx = -1
	}
	dy := -abs(y1 - y0)
	sy := 1
	if y0 >= y1 {
		sy = -1
	}
	err := dx + dy
	x, y := x0, y0
	for {
		d.drawPixel(gc, x, y, color)
		if x == x1 && y == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// --- 0x5D Triangle ---

type triClassState struct {
	color    Color
	vertices [3]struct{ x, y int }
	count    int
}

type triClass struct{}

const (
	triClassSetColor = 0x304
	triClassVertex   = 0x400
)

func (triClass) HandleMethod(d *Device, g *pgraph, ctx methodContext, grobj [4]uint32, gc grobjContext) {
	t := &g.tri
	switch ctx.method {
	case triClassSetColor:
		t.color = ExpandColor(PixelFormatR8G8B8, ctx.param, gc.alphaEnable)
	case triClassVertex:
		t.vertices[t.count].x = int(int16(ctx.param))
		t.vertices[t.count].y = int(int16(ctx.param >> 16))
		t.count++
		if t.count == 3 {
			fillTriangle(d, gc, t.vertices[0], t.vertices[1], t.vertices[2], t.color)
			t.count = 0
			g.completeNotify(d, 0, 0, NotifierDoneOK)
		}
	default:
		g.intr1 |= pgraphIntr1SoftwareMethodPending
	}
}

// fillTriangle rasterizes a flat-colored triangle with a bounding-box scan
// and edge-function test, honoring the same clip/pattern/chroma/ROP3
// pipeline every other shape goes through via drawPixel.
func fillTriangle(d *Device, gc grobjContext, a, b, c struct{ x, y int }, color Color) {
	minX, maxX := minInt3(a.x, b.x, c.x), maxInt3(a.x, b.x, c.x)
	minY, maxY := minInt3(a.y, b.y, c.y), maxInt3(a.y, b.y, c.y)
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if pointInTriangle(x, y, a, b, c) {
				d.drawPixel(gc, x, y, color)
			}
		}
	}
}

func edgeFn(ax, ay, bx, by, px, py int) int {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

func pointInTriangle(x, y int, a, b, c struct{ x, y int }) bool {
	d1 := edgeFn(a.x, a.y, b.x, b.y, x, y)
	d2 := edgeFn(b.x, b.y, c.x, c.y, x, y)
	d3 := edgeFn(c.x, c.y, a.x, a.y, x, y)
	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNeg && hasPos)
}

func minInt3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

func maxInt3(a, b, c int) int {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

// --- 0x39 Memory-to-memory image reformat ---

type m2mfClassState struct {
	offsetIn, offsetOut uint32
	pitchIn, pitchOut   uint32
	lineLength          uint32
	format              PixelFormat
	linesCopied         uint32
}

type m2mfClass struct{}

const (
	m2mfClassOffsetIn   = 0x30C
	m2mfClassOffsetOut  = 0x310
	m2mfClassPitchIn    = 0x314
	m2mfClassPitchOut   = 0x318
	m2mfClassLineLength = 0x31C
	m2mfClassLineCount  = 0x320
	m2mfClassFormat     = 0x324
	m2mfClassNotify     = 0x328
)

func (m2mfClass) HandleMethod(d *Device, g *pgraph, ctx methodContext, grobj [4]uint32, gc grobjContext) {
	m := &g.m2mf
	switch ctx.method {
	case m2mfClassOffsetIn:
		m.offsetIn = ctx.param
	case m2mfClassOffsetOut:
		m.offsetOut = ctx.param
	case m2mfClassPitchIn:
		m.pitchIn = ctx.param
	case m2mfClassPitchOut:
		m.pitchOut = ctx.param
	case m2mfClassLineLength:
		m.lineLength = ctx.param
	case m2mfClassFormat:
		m.format = PixelFormat(ctx.param)
	case m2mfClassLineCount:
		lineCount := int(ctx.param)
		for row := 0; row < lineCount; row++ {
			srcOff := int(m.offsetIn) + row*int(m.pitchIn)
			dstOff := int(m.offsetOut) + row*int(m.pitchOut)
			n := int(m.lineLength)
			if srcOff+n > len(d.vram) || dstOff+n > len(d.vram) || srcOff < 0 || dstOff < 0 {
				g.reportInvalidData(d)
				return
			}
			copy(d.vram[dstOff:dstOff+n], d.vram[srcOff:srcOff+n])
		}
		m.linesCopied = uint32(lineCount)
	case m2mfClassNotify:
		g.completeNotify(d, m.linesCopied, 0, NotifierDoneOK)
	default:
		g.intr1 |= pgraphIntr1SoftwareMethodPending
	}
}

// --- 0x5F Screen-to-screen blit ---

type blitClassState struct {
	pointInX, pointInY   int
	pointOutX, pointOutY int
}

type blitClass struct{}

const (
	blitClassPointIn  = 0x300
	blitClassPointOut = 0x304
	blitClassSize     = 0x308
)

func (blitClass) HandleMethod(d *Device, g *pgraph, ctx methodContext, grobj [4]uint32, gc grobjContext) {
	bl := &g.blit
	switch ctx.method {
	case blitClassPointIn:
		bl.pointInX = int(int16(ctx.param))
		bl.pointInY = int(int16(ctx.param >> 16))
	case blitClassPointOut:
		bl.pointOutX = int(int16(ctx.param))
		bl.pointOutY = int(int16(ctx.param >> 16))
	case blitClassSize:
		w := int(uint16(ctx.param))
		h := int(ctx.param >> 16)
		d.blitRect(gc, bl.pointInX, bl.pointInY, bl.pointOutX, bl.pointOutY, w, h)
		g.completeNotify(d, 0, 0, NotifierDoneOK)
	default:
		g.intr1 |= pgraphIntr1SoftwareMethodPending
	}
}

// --- 0x61 Image from host ---

type imageHostClassState struct {
	pointX, pointY   int
	width, height    int
	sizeInW, sizeInH int
	cursorX, cursorY int
}

type imageHostClass struct{}

const (
	imageHostClassPoint   = 0x300
	imageHostClassSize    = 0x304
	imageHostClassSizeIn  = 0x308
	imageHostClassColor   = 0x400
)

func (imageHostClass) HandleMethod(d *Device, g *pgraph, ctx methodContext, grobj [4]uint32, gc grobjContext) {
	ih := &g.imgHost
	switch ctx.method {
	case imageHostClassPoint:
		ih.pointX = int(int16(ctx.param))
		ih.pointY = int(int16(ctx.param >> 16))
		ih.cursorX, ih.cursorY = 0, 0
	case imageHostClassSize:
		ih.width = int(uint16(ctx.param))
		ih.height = int(ctx.param >> 16)
	case imageHostClassSizeIn:
		ih.sizeInW = int(uint16(ctx.param))
		ih.sizeInH = int(ctx.param >> 16)
		ih.cursorX, ih.cursorY = 0, 0
	case imageHostClassColor:
		d.streamImageWord(gc, ih, ctx.param)
		if ih.cursorY >= ih.height {
			g.completeNotify(d, 0, 0, NotifierDoneOK)
		}
	default:
		g.intr1 |= pgraphIntr1SoftwareMethodPending
	}
}

// --- 0x54 / 0x55 D3D5 / D3D6 textured triangle ---

type d3dVertex struct {
	x, y  int
	color Color
}

type d3dClassState struct {
	textureFormat uint32
	filter        uint32
	controlOut    uint32
	alphaControl  uint32
	vertices      [128]d3dVertex
	count         int
}

// d3dClass handles both 0x54 (single texture unit) and 0x55 (dual texture
// unit): per-texel shading accuracy is out of scope (spec.md §1 Non-goals).
// The texture format/filter/control registers are latched but never
// sampled; each accumulated vertex triple is handed to the same flat-fill
// triangle rasterizer class 0x5D uses, colored with the triple's first
// vertex color, enough to exercise vertex accumulation and method dispatch.
type d3dClass struct{ unit int }

const (
	d3dClassTextureFormat = 0x308
	d3dClassFilter        = 0x30C
	d3dClassControlOut    = 0x310
	d3dClassAlphaControl  = 0x314
	d3dClassVertex        = 0x400
	d3dClassVertexColor   = 0x404
)

func (c d3dClass) state(g *pgraph) *d3dClassState {
	if c.unit == 5 {
		return &g.d3d5
	}
	return &g.d3d6
}

func (c d3dClass) HandleMethod(d *Device, g *pgraph, ctx methodContext, grobj [4]uint32, gc grobjContext) {
	s := c.state(g)
	switch ctx.method {
	case d3dClassTextureFormat:
		s.textureFormat = ctx.param
	case d3dClassFilter:
		s.filter = ctx.param
	case d3dClassControlOut:
		s.controlOut = ctx.param
	case d3dClassAlphaControl:
		s.alphaControl = ctx.param
	case d3dClassVertex:
		if s.count >= len(s.vertices) {
			g.reportInvalidData(d)
			return
		}
		s.vertices[s.count].x = int(int16(ctx.param))
		s.vertices[s.count].y = int(int16(ctx.param >> 16))
	case d3dClassVertexColor:
		if s.count >= len(s.vertices) {
			g.reportInvalidData(d)
			return
		}
		s.vertices[s.count].color = ExpandColor(PixelFormatR8G8B8, ctx.param, gc.alphaEnable)
		s.count++
		if s.count >= 3 && s.count%3 == 0 {
			a, b, cc := s.vertices[s.count-3], s.vertices[s.count-2], s.vertices[s.count-1]
			fillTriangle(d, gc,
				struct{ x, y int }{a.x, a.y},
				struct{ x, y int }{b.x, b.y},
				struct{ x, y int }{cc.x, cc.y},
				a.color)
			g.completeNotify(d, 0, 0, NotifierDoneOK)
		}
		if s.count >= len(s.vertices) {
			s.count = 0
		}
	default:
		g.intr1 |= pgraphIntr1SoftwareMethodPending
	}
}
