package nv4

import "encoding/binary"

// ramInTotalSize is RAMIN's fixed footprint at the top of VRAM (spec.md
// §3: "a 64 KiB region"), partitioned at construction time into RAMHT,
// RAMAU (obsolete audio, zero-filled and otherwise unused), RAMFC, RAMRO;
// everything left over is available to the host for grobj storage.
const ramInTotalSize = 64 * 1024

// RAMHT/RAMRO/RAMFC size choices, spec.md §4.4.
const (
	RAMHTSize4KiB  = 4 * 1024
	RAMHTSize8KiB  = 8 * 1024
	RAMHTSize16KiB = 16 * 1024
	RAMHTSize32KiB = 32 * 1024

	RAMROSize512B = 512
	RAMROSize8KiB = 8 * 1024

	RAMFCSize512B = 512
	RAMFCSize4KiB = 4 * 1024

	ramAUSize = 4 * 1024

	maxChannels = 128
)

// ramfcEntry is saved PFIFO state for a non-resident channel. Rather than
// packing this into the (small, configurable) RAMFC byte region, it is
// kept as a typed array parallel to that region: the spec does not mandate
// an on-disk layout for RAMFC, and design note #9 already prefers plain
// word storage over transcribed packed structs for exactly this reason.
type ramfcEntry struct {
	subchannelContext [8]uint32
	put, get          uint32
	pushEnabled       bool
	pullEnabled       bool
	valid             bool
}

// ramin is the partitioned top-of-VRAM region: object hash table, runout
// queue, per-channel FIFO context save area, and grobj storage.
type ramin struct {
	vram []byte
	base int // byte offset into vram where the 64 KiB RAMIN region begins

	htOff, htSize int
	roOff, roSize int

	roPut, roGet uint32

	fc [maxChannels]ramfcEntry
}

func newRAMIN(vram []byte, htSize, roSize, fcSize int) *ramin {
	base := len(vram) - ramInTotalSize
	if base < 0 {
		base = 0
	}
	r := &ramin{
		vram:   vram,
		base:   base,
		htOff:  base,
		htSize: htSize,
		roOff:  base + htSize + ramAUSize,
		roSize: roSize,
	}
	_ = fcSize // RAMFC is modeled as the typed r.fc array, not a byte region
	return r
}

// hashRAMHT folds name into four chunks (9, 9, 9 and 5 bits), XORs them
// with channel, and masks to the configured table's slot count. Decided here to resolve
// spec.md §9 open question (a); recorded in DESIGN.md.
func (r *ramin) hashRAMHT(name, channel uint32) uint32 {
	c0 := name & 0x1FF
	c1 := (name >> 9) & 0x1FF
	c2 := (name >> 18) & 0x1FF
	c3 := (name >> 27) & 0x1F
	slots := uint32(r.htSize / 8)
	return (c0 ^ c1 ^ c2 ^ c3 ^ channel) & (slots - 1)
}

// LookupRAMHT scans from hash(name, channel), advancing linearly (open
// addressing) until it finds a matching name or an empty slot. An empty
// slot (name == 0) reports a miss.
func (r *ramin) LookupRAMHT(name, channel uint32) (context uint32, ok bool) {
	slots := r.htSize / 8
	if slots == 0 {
		return 0, false
	}
	start := int(r.hashRAMHT(name, channel))
	for i := 0; i < slots; i++ {
		idx := (start + i) % slots
		off := r.htOff + idx*8
		slotName := binary.LittleEndian.Uint32(r.vram[off : off+4])
		if slotName == 0 {
			return 0, false
		}
		if slotName == name {
			return binary.LittleEndian.Uint32(r.vram[off+4 : off+8]), true
		}
	}
	return 0, false
}

// InsertRAMHT writes a (name, context) pair at the first empty or matching
// slot found by the same open-addressing scan LookupRAMHT uses.
func (r *ramin) InsertRAMHT(name, channel, context uint32) bool {
	slots := r.htSize / 8
	if slots == 0 {
		return false
	}
	start := int(r.hashRAMHT(name, channel))
	for i := 0; i < slots; i++ {
		idx := (start + i) % slots
		off := r.htOff + idx*8
		slotName := binary.LittleEndian.Uint32(r.vram[off : off+4])
		if slotName == 0 || slotName == name {
			binary.LittleEndian.PutUint32(r.vram[off:off+4], name)
			binary.LittleEndian.PutUint32(r.vram[off+4:off+8], context)
			return true
		}
	}
	return false
}

// ReadGrobj reads the 16-byte graphics-object state block at the given
// RAMIN offset (in 16-byte units, per the RAMHT context word's ramin_offset
// field).
func (r *ramin) ReadGrobj(ramInOffset uint32) [4]uint32 {
	off := r.base + int(ramInOffset)*16
	var g [4]uint32
	for i := 0; i < 4; i++ {
		if off+i*4+4 > len(r.vram) {
			break
		}
		g[i] = binary.LittleEndian.Uint32(r.vram[off+i*4 : off+i*4+4])
	}
	return g
}

// WriteRunout appends a RAMRO entry (offending address word, offending
// parameter word) and advances runout_put. The return value reports
// RUNOUT_OVERFLOW: runout_put caught up with runout_get after advancing.
func (r *ramin) WriteRunout(addrWord, param uint32) (overflow bool) {
	if r.roSize == 0 {
		return true
	}
	off := r.roOff + int(r.roPut)
	binary.LittleEndian.PutUint32(r.vram[off:off+4], addrWord)
	binary.LittleEndian.PutUint32(r.vram[off+4:off+8], param)
	r.roPut = (r.roPut + 8) % uint32(r.roSize)
	return r.roPut == r.roGet
}

func (r *ramin) RunoutEmpty() bool { return r.roPut == r.roGet }

// SaveRAMFC stores a channel's PFIFO state, atomically with respect to the
// caller: all fields are copied before LoadRAMFC of the new channel is
// called (spec.md §5: "context switch is atomic").
func (r *ramin) SaveRAMFC(channel uint32, e ramfcEntry) {
	e.valid = true
	r.fc[channel%maxChannels] = e
}

func (r *ramin) LoadRAMFC(channel uint32) (ramfcEntry, bool) {
	e := r.fc[channel%maxChannels]
	return e, e.valid
}
