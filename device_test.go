package nv4

import "testing"

// newTestDevice builds a Device with a small VRAM footprint (1 MiB, which
// holds RAMIN's fixed 64 KiB region plus room for test surfaces) suitable
// for fast unit tests.
func newTestDevice(t *testing.T) *Device {
	t.Helper()
	dev, err := NewDevice(Config{VRAMSize: 1 << 20})
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	return dev
}

func TestNewDeviceRejectsUndersizedVRAM(t *testing.T) {
	_, err := NewDevice(Config{VRAMSize: 1024})
	if err == nil {
		t.Fatal("expected an error constructing a Device with VRAM smaller than RAMIN's footprint")
	}
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.setDefaults()
	if cfg.VRAMSize != 16<<20 {
		t.Errorf("default VRAMSize = %d, want 16 MiB", cfg.VRAMSize)
	}
	if cfg.Revision != 'C' {
		t.Errorf("default Revision = %c, want C", cfg.Revision)
	}
	if cfg.Cache1Size != 64 {
		t.Errorf("default Cache1Size for revision C = %d, want 64", cfg.Cache1Size)
	}
	if cfg.VGA == nil {
		t.Error("default VGA collaborator should not be nil")
	}
}

func TestCache1SizeDefaultsByRevision(t *testing.T) {
	cfg := Config{Revision: 'A'}
	cfg.setDefaults()
	if cfg.Cache1Size != 32 {
		t.Errorf("default Cache1Size for revision A = %d, want 32", cfg.Cache1Size)
	}
}

func TestRegisterReadWriteRoundTrip(t *testing.T) {
	dev := newTestDevice(t)
	dev.Write32(rangePGRAPHStart+pgraphOffAbsClipXMax, 640)
	if got := dev.Read32(rangePGRAPHStart + pgraphOffAbsClipXMax); got != 640 {
		t.Errorf("Read32 after Write32 = %d, want 640", got)
	}
}

func TestByteAndHalfwordSynthesis(t *testing.T) {
	dev := newTestDevice(t)
	addr := uint32(rangePGRAPHStart + pgraphOffAbsClipXMax)

	dev.Write32(addr, 0)
	dev.Write8(addr, 0xAB)
	dev.Write8(addr+1, 0xCD)
	if got := dev.Read32(addr); got != 0x0000CDAB {
		t.Errorf("Write8 synthesis = 0x%08X, want 0x0000CDAB", got)
	}

	dev.Write32(addr, 0)
	dev.Write16(addr, 0x1234)
	if got := dev.Read16(addr); got != 0x1234 {
		t.Errorf("Write16/Read16 round trip = 0x%04X, want 0x1234", got)
	}
}

func TestNVUserSubmissionDecode(t *testing.T) {
	dev := newTestDevice(t)

	// Channel 0 matches cache1's resident channel at reset, so this push
	// enqueues directly without exercising the cache-reassignment gate
	// (covered separately in pfifo_test.go).
	const channel, subchannel, method = 0, 2, 0x304
	addr := uint32(rangeNVUserStart) | (channel << nvUserChannelShift) | (subchannel << nvUserSubchannelShift) | method

	dev.submitNVUser(addr, 0xDEADBEEF)

	entry := dev.pfifo.cache1.peek()
	if entry.method != method || entry.subchannel != subchannel || entry.data != 0xDEADBEEF {
		t.Errorf("decoded entry = %+v, want method=0x%X subchannel=%d data=0xDEADBEEF", entry, method, subchannel)
	}
}

func TestIRQStartsDeasserted(t *testing.T) {
	dev := newTestDevice(t)
	if dev.IRQAsserted() {
		t.Error("a freshly constructed Device should not assert IRQ (intrEn0 is zero)")
	}
}
