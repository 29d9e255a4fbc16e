package nv4

import "testing"

// TestClassDispatchAvoidsFiveBitCollision confirms every one of the
// thirteen class IDs resolves to a distinct, non-nil handler at full 7-bit
// width. Masking class_id to 5 bits (an earlier reading of spec.md §4.5
// step 3) would collide 0x19 and 0x39 (0x39 & 0x1F == 0x19); classByID
// uses the full width specifically to avoid that.
func TestClassDispatchAvoidsFiveBitCollision(t *testing.T) {
	ids := []uint8{0x12, 0x43, 0x57, 0x19, 0x44, 0x5E, 0x5C, 0x5D, 0x39, 0x5F, 0x61, 0x54, 0x55}
	seen := make(map[string]uint8)
	for _, id := range ids {
		cls := classByID(id)
		if cls == nil {
			t.Fatalf("classByID(0x%X) = nil, want a handler", id)
		}
		key := classKindOf(cls)
		if other, ok := seen[key]; ok && key != "d3dClass" {
			t.Errorf("class 0x%X and 0x%X both resolve to %s", id, other, key)
		}
		seen[key] = id
	}
}

// classKindOf distinguishes d3dClass{unit:5} from d3dClass{unit:6}
// (the one legitimate case of two class IDs sharing a Go type).
func classKindOf(c graphicsClass) string {
	if dc, ok := c.(d3dClass); ok {
		if dc.unit == 5 {
			return "d3dClass/5"
		}
		return "d3dClass/6"
	}
	switch c.(type) {
	case betaClass:
		return "betaClass"
	case rop3Class:
		return "rop3Class"
	case chromaClass:
		return "chromaClass"
	case clipClass:
		return "clipClass"
	case patternClass:
		return "patternClass"
	case rectClass:
		return "rectClass"
	case linClass:
		return "linClass"
	case triClass:
		return "triClass"
	case m2mfClass:
		return "m2mfClass"
	case blitClass:
		return "blitClass"
	case imageHostClass:
		return "imageHostClass"
	default:
		return "unknown"
	}
}

func TestClassByIDUnrecognized(t *testing.T) {
	if cls := classByID(0x00); cls != nil {
		t.Errorf("classByID(0x00) = %T, want nil", cls)
	}
}

func TestDoubleNotifyReportsInterrupt(t *testing.T) {
	dev := newTestDevice(t)
	g := dev.pgraph

	ctx := methodContext{method: 0x104, param: 0x1000, channel: 0, subchannel: 0}
	g.handleGenericMethod(dev, ctx)
	if !g.notifyPending {
		t.Fatal("first SET_NOTIFY should arm a pending notifier")
	}

	g.handleGenericMethod(dev, ctx)
	if g.intr1&pgraphIntr1DoubleNotify == 0 {
		t.Fatal("a second SET_NOTIFY while one is still pending should raise DOUBLE_NOTIFY")
	}
	if g.notifyPending {
		t.Error("DOUBLE_NOTIFY should clear the pending flag rather than leaving two armed")
	}
}

func TestDestSurfaceFallsBackToSrcSelect(t *testing.T) {
	gc := grobjContext{destMask: 0, srcSelect: 2}
	if got := destSurface(gc); got != 2 {
		t.Errorf("destSurface with no destMask bits set = %d, want srcSelect 2", got)
	}

	gc2 := grobjContext{destMask: 0b1010, srcSelect: 0}
	if got := destSurface(gc2); got != 3 {
		t.Errorf("destSurface should pick the highest enabled destMask bit, got %d want 3", got)
	}
}
