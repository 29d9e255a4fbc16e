package nv4

import "encoding/binary"

// Notifier status values (spec.md §3).
const (
	NotifierDoneOK      uint16 = 0x0000
	NotifierInProgress  uint16 = 0x00FF
	NotifierError       uint16 = 0x0100
)

// notifierSize is the wire size of one notifier record: u64 nanoseconds;
// u32 info32; u16 info16; u16 status.
const notifierSize = 16

func readNotifierStatus(vram []byte, addr uint32) uint16 {
	off := int(addr) + 14
	if off+2 > len(vram) {
		return NotifierDoneOK
	}
	return binary.LittleEndian.Uint16(vram[off : off+2])
}

func armNotifier(vram []byte, addr uint32) {
	writeNotifier(vram, addr, 0, 0, 0, NotifierInProgress)
}

func writeNotifier(vram []byte, addr uint32, nanos uint64, info32 uint32, info16 uint16, status uint16) {
	off := int(addr)
	if off+notifierSize > len(vram) {
		return
	}
	binary.LittleEndian.PutUint64(vram[off:off+8], nanos)
	binary.LittleEndian.PutUint32(vram[off+8:off+12], info32)
	binary.LittleEndian.PutUint16(vram[off+12:off+14], info16)
	binary.LittleEndian.PutUint16(vram[off+14:off+16], status)
}
