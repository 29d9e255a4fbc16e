// Package nv4 implements the command-processing and rasterization core of an
// NV4-class graphics accelerator: an MMIO arbiter, interrupt aggregation
// (PMC), object submission engine (PFIFO), per-class method dispatcher
// (PGRAPH), and a software rasterizer, all driven through a single Device
// value.
//
// The host bus, PCI configuration space, VGA/CRTC text-mode emulation,
// VBIOS loading, and the outer emulator's timing/audio/input/UI are out of
// scope. This package exposes only a 24-bit MMIO aperture, a VRAM byte
// slice, and the VGACollaborator seam for the three legacy VGA windows it
// forwards unchanged.
package nv4
