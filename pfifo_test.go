package nv4

import "testing"

func TestGrayCodeRoundTrip(t *testing.T) {
	for n := uint32(0); n < 64; n++ {
		if got := grayDecode(grayEncode(n)); got != n {
			t.Errorf("grayDecode(grayEncode(%d)) = %d", n, got)
		}
	}
}

func TestGrayCodeFirstEight(t *testing.T) {
	want := []uint32{0b000, 0b001, 0b011, 0b010, 0b110, 0b111, 0b101, 0b100}
	for n, w := range want {
		if got := grayEncode(uint32(n)); got != w {
			t.Errorf("grayEncode(%d) = %03b, want %03b", n, got, w)
		}
	}
}

// TestCache1FreeSlotsAtSize32 exercises scenario 6 (spec.md §8): a 32-slot
// CACHE1 has exactly 31 usable slots (one is always reserved to
// disambiguate empty from full with a single put/get pair); the 32nd push
// is rejected with FREE_COUNT_OVERRUN.
func TestCache1FreeSlotsAtSize32(t *testing.T) {
	dev, err := NewDevice(Config{VRAMSize: 1 << 20, Cache1Size: 32})
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}

	if got := dev.pfifo.cache1.freeSlots(); got != 31 {
		t.Fatalf("freeSlots() at reset = %d, want 31", got)
	}

	for i := 0; i < 31; i++ {
		dev.pfifo.Push(0, 0, 0x304, uint32(i))
	}
	if dev.pfifo.intr&pfifoIntrRunout != 0 {
		t.Fatalf("unexpected runout after filling only 31 of 32 slots")
	}
	if got := dev.pfifo.cache1.freeSlots(); got != 0 {
		t.Fatalf("freeSlots() after 31 pushes = %d, want 0", got)
	}

	dev.pfifo.Push(0, 0, 0x304, 999)
	if dev.pfifo.intr&pfifoIntrRunout == 0 {
		t.Fatal("the 32nd push into a 32-slot cache should runout")
	}
}

func TestReservedMethodAccessRunsOut(t *testing.T) {
	dev := newTestDevice(t)

	// Methods strictly between 0 and 0x100 are reserved; only method 0
	// (object bind) and methods >= 0x100 are legal.
	dev.pfifo.Push(0, 0, 0x80, 0x42)
	if dev.pfifo.intr&pfifoIntrRunout == 0 {
		t.Fatal("a push to a reserved method offset should runout")
	}
}

func TestPushRejectsUnknownChannelWithoutReassignment(t *testing.T) {
	dev := newTestDevice(t)
	dev.pfifo.Push(5, 0, 0x304, 0x42)
	if dev.pfifo.intr&pfifoIntrRunout == 0 {
		t.Fatal("pushing to a non-resident channel without cache reassignment enabled should runout")
	}
}

func TestCacheReassignmentSwitchesChannel(t *testing.T) {
	dev := newTestDevice(t)
	dev.pfifo.cacheReassignment = true

	dev.pfifo.Push(5, 1, 0x304, 0x42)
	if dev.pfifo.cache1.channel != 5 {
		t.Fatalf("cache1.channel = %d, want 5 after a reassignment-enabled push to an empty cache", dev.pfifo.cache1.channel)
	}
	entry := dev.pfifo.cache1.peek()
	if entry.method != 0x304 || entry.data != 0x42 {
		t.Errorf("entry = %+v after channel switch, want method=0x304 data=0x42", entry)
	}
}

func TestObjectBindResolvesThroughRAMHT(t *testing.T) {
	dev := newTestDevice(t)

	const objectName = 0x1000
	const classID = 0x5E // rectangle fill
	const ramInOffset = 16
	context := uint32(ramInOffset) | uint32(classID)<<16 | 1<<23

	if !dev.ramin.InsertRAMHT(objectName, 0, context) {
		t.Fatal("InsertRAMHT failed")
	}

	dev.pfifo.Push(0, 3, 0, objectName)
	dev.pfifo.PullStep(dev)

	if dev.pfifo.cache1.subchannelContext[3] != context {
		t.Errorf("subchannel 3 context = 0x%X, want 0x%X", dev.pfifo.cache1.subchannelContext[3], context)
	}
}

func TestObjectBindMissReportsCacheError(t *testing.T) {
	dev := newTestDevice(t)
	dev.pfifo.Push(0, 0, 0, 0xBADBAD)
	dev.pfifo.PullStep(dev)
	if dev.pfifo.intr&pfifoIntrCacheError == 0 {
		t.Fatal("binding an unregistered object name should set the cache-error interrupt")
	}
}
