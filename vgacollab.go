package nv4

// VGACollaborator is the narrow seam through which the three legacy VGA
// MMIO windows (PRM, PRMIO, PRMCIO) are forwarded unchanged. The core never
// interprets these accesses; an outer emulator supplies the real CRTC/VGA
// behavior.
type VGACollaborator interface {
	VGARead8(addr uint32) uint8
	VGAWrite8(addr uint32, val uint8)
}

// NullVGACollaborator discards writes and returns 0 for reads. It is the
// default collaborator for tests and for cmd/nv4demo, which has no legacy
// VGA text mode to forward to.
type NullVGACollaborator struct{}

func (NullVGACollaborator) VGARead8(addr uint32) uint8    { return 0 }
func (NullVGACollaborator) VGAWrite8(addr uint32, val uint8) {}
