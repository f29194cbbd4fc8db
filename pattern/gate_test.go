package pattern

import "testing"

func emissionsEqual(t *testing.T, got []Emission, want []Emission) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("emissions = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("emissions = %+v, want %+v", got, want)
		}
	}
}

func TestApplyGateIdleToSounding(t *testing.T) {
	rt := NewRuntime(1)
	got := applyGate(rt, 60, 100, false, 3)
	emissionsEqual(t, got, []Emission{{On: true, Note: 60, Velocity: 100}})
	if !rt.Sounding.Set || rt.Sounding.Note != 60 {
		t.Fatal("expected sounding note 60")
	}
	if rt.GateSustain {
		t.Fatal("non-tied note should not sustain")
	}
	if rt.GateRemaining != 3 {
		t.Fatalf("GateRemaining = %v, want 3", rt.GateRemaining)
	}
}

func TestApplyGateIdleToSoundingTied(t *testing.T) {
	rt := NewRuntime(1)
	applyGate(rt, 60, 100, true, 3)
	if !rt.GateSustain {
		t.Fatal("tied note should sustain")
	}
	if !rt.TiePrev {
		t.Fatal("TiePrev should be true")
	}
}

func TestApplyGateSameNoteRetrigger(t *testing.T) {
	rt := NewRuntime(1)
	applyGate(rt, 60, 100, false, 3)
	rt.GateRemaining = 1 // simulate partial countdown
	got := applyGate(rt, 60, 100, false, 3)
	if len(got) != 0 {
		t.Fatalf("same-note non-tied retrigger should not emit, got %+v", got)
	}
	if rt.GateRemaining != 3 {
		t.Fatalf("gate should reset to 3, got %v", rt.GateRemaining)
	}
}

func TestApplyGateDifferentNoteCleanCut(t *testing.T) {
	rt := NewRuntime(1)
	applyGate(rt, 60, 100, false, 3)
	got := applyGate(rt, 64, 90, false, 3)
	emissionsEqual(t, got, []Emission{
		{On: false, Note: 60},
		{On: true, Note: 64, Velocity: 90},
	})
	if rt.Sounding.Note != 64 {
		t.Fatalf("sounding note = %d, want 64", rt.Sounding.Note)
	}
}

func TestApplyGateTiedOverlap(t *testing.T) {
	rt := NewRuntime(1)
	applyGate(rt, 60, 100, true, 0) // idle -> sounding, tied
	got := applyGate(rt, 64, 90, false, 3)
	emissionsEqual(t, got, []Emission{
		{On: true, Note: 64, Velocity: 90},
	})
	if !rt.PendingOff.Set || rt.PendingOff.Note != 60 {
		t.Fatal("expected pending release of note 60")
	}
	if rt.PendingRemaining != 1 {
		t.Fatalf("PendingRemaining = %v, want 1", rt.PendingRemaining)
	}
	if rt.Sounding.Note != 64 || rt.GateSustain {
		t.Fatal("new note should be sounding, non-tied, gated")
	}
}

func TestApplyGateDoublePendingFlushesOlder(t *testing.T) {
	rt := NewRuntime(1)
	applyGate(rt, 60, 100, true, 0)  // sounding 60, tied
	applyGate(rt, 64, 100, true, 0)  // sounding 64 tied, pending-off 60
	got := applyGate(rt, 67, 100, false, 3) // new tied transition before pending-off 60 resolves
	// The older pending (60) must be flushed immediately, then 64
	// scheduled as the new pending, and 67 takes over as sounding.
	emissionsEqual(t, got, []Emission{
		{On: false, Note: 60},
		{On: true, Note: 67, Velocity: 100},
	})
	if !rt.PendingOff.Set || rt.PendingOff.Note != 64 {
		t.Fatalf("expected pending release of note 64, got %+v", rt.PendingOff)
	}
}

func TestTickDecrementsAndReleases(t *testing.T) {
	rt := NewRuntime(1)
	applyGate(rt, 60, 100, false, 2)
	if got := tick(rt); len(got) != 0 {
		t.Fatalf("tick 1: got %+v, want no emission", got)
	}
	got := tick(rt)
	emissionsEqual(t, got, []Emission{{On: false, Note: 60}})
	if rt.Sounding.Set {
		t.Fatal("sounding should be cleared after gate expiry")
	}
}

func TestTickSustainDoesNotDecrement(t *testing.T) {
	rt := NewRuntime(1)
	applyGate(rt, 60, 100, true, 0)
	for i := 0; i < 100; i++ {
		tick(rt)
	}
	if !rt.Sounding.Set {
		t.Fatal("sustained note should never expire from tick alone")
	}
}

func TestTickPendingRelease(t *testing.T) {
	rt := NewRuntime(1)
	applyGate(rt, 60, 100, true, 0)
	applyGate(rt, 64, 90, false, 5)
	got := tick(rt)
	emissionsEqual(t, got, []Emission{{On: false, Note: 60}})
	if rt.PendingOff.Set {
		t.Fatal("pending release should be cleared")
	}
}

func TestSilenceClearsSoundingAndPending(t *testing.T) {
	rt := NewRuntime(1)
	applyGate(rt, 60, 100, true, 0)
	applyGate(rt, 64, 90, false, 5)
	got := silence(rt)
	emissionsEqual(t, got, []Emission{
		{On: false, Note: 64},
		{On: false, Note: 60},
	})
	if !rt.Silenced() {
		t.Fatal("runtime should report silenced")
	}
}

func TestSilenceIdempotent(t *testing.T) {
	rt := NewRuntime(1)
	if got := silence(rt); len(got) != 0 {
		t.Fatalf("silence on idle runtime should emit nothing, got %+v", got)
	}
}
