package nv4

import "testing"

func TestRecomputeIRQGatesOnSubsystemEnable(t *testing.T) {
	dev := newTestDevice(t)

	// Enable hardware interrupt delivery and force a PFIFO pending bit.
	dev.pmc.intrEn0 = pmcIntrEn0Hardware
	dev.pfifo.intr = pfifoIntrCacheError
	dev.pfifo.intrEn = pfifoIntrCacheError

	dev.pmc.enable = 1 << pmcBitPFIFO
	dev.recomputeIRQ()
	if !dev.irqAsserted {
		t.Fatal("PFIFO pending + enabled + hardware IRQ enabled should assert IRQ")
	}

	dev.pmc.enable = 0
	dev.recomputeIRQ()
	if dev.irqAsserted {
		t.Fatal("disabling PFIFO's subsystem-enable bit should deassert IRQ even with pending set")
	}
}

func TestRecomputeIRQRespectsSoftwareVsHardwareMask(t *testing.T) {
	dev := newTestDevice(t)
	dev.pmc.enable = 1 << pmcBitPFIFO
	dev.pfifo.intr = pfifoIntrCacheError
	dev.pfifo.intrEn = pfifoIntrCacheError

	// Hardware bits masked out, only the software bit enabled: a hardware
	// subsystem's pending bit must not assert IRQ.
	dev.pmc.intrEn0 = pmcIntrEn0Software
	dev.recomputeIRQ()
	if dev.irqAsserted {
		t.Fatal("a hardware subsystem's pending interrupt should not assert IRQ when only the software mask bit is enabled")
	}

	dev.pmc.intrEn0 = pmcIntrEn0Hardware
	dev.recomputeIRQ()
	if !dev.irqAsserted {
		t.Fatal("expected IRQ asserted once the hardware mask bit is enabled")
	}
}

func TestPMCBootIdentityByRevision(t *testing.T) {
	cases := map[byte]uint32{'A': pmcBootRevA, 'B': pmcBootRevB, 'C': pmcBootRevC}
	for rev, want := range cases {
		p := newPMC(rev)
		if p.boot != want {
			t.Errorf("newPMC(%c).boot = 0x%X, want 0x%X", rev, p.boot, want)
		}
	}
}

func TestPMCIntr0SoftwareBitWriteOneToClear(t *testing.T) {
	p := newPMC('C')
	p.intr0 = 1 << pmcBitSoftware
	p.write32(0x100, 1<<pmcBitSoftware)
	if p.intr0 != 0 {
		t.Errorf("intr0 software bit = 0x%X after write-1-to-clear, want 0", p.intr0)
	}
}

func TestPRAMDACVBlankAcknowledge(t *testing.T) {
	dev := newTestDevice(t)
	dev.pramdac.vblankPending = true

	const ackOff = 0x070
	if got := dev.pramdac.read32(ackOff); got != 1 {
		t.Fatalf("vblank ack register read = %d, want 1 while pending", got)
	}
	dev.pramdac.write32(ackOff, 1)
	if dev.pramdac.vblankPending {
		t.Fatal("writing 1 to the vblank ack register should clear vblankPending")
	}
	if got := dev.pramdac.read32(ackOff); got != 0 {
		t.Fatalf("vblank ack register read = %d, want 0 after clearing", got)
	}
}
