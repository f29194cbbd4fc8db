package pattern

// applyGate runs the gate/tie state machine (spec §4.5) for a step that
// resolved to note with tie flag tie and a whole-pulse gate length
// gatePulses (ignored when tie is true — a tied step always sustains).
// It mutates rt to the new state and returns the note-on/note-off
// emissions the transition produces, in emission order.
func applyGate(rt *Runtime, note, velocity uint8, tie bool, gatePulses float64) []Emission {
	var out []Emission

	if !rt.Sounding.Set {
		out = append(out, Emission{On: true, Note: note, Velocity: velocity})
		rt.Sounding = NoteState{Note: note, Set: true}
		rt.TiePrev = tie
		rt.GateSustain = tie
		if !tie {
			rt.GateRemaining = gatePulses
		}
		return out
	}

	prevNote := rt.Sounding.Note
	prevTied := rt.TiePrev

	switch {
	case prevNote == note && !prevTied:
		if tie {
			rt.GateSustain = true
			rt.TiePrev = true
		} else {
			rt.GateSustain = false
			rt.GateRemaining = gatePulses
		}

	case prevNote != note && !prevTied:
		if tie {
			flushPending(rt, &out)
			rt.PendingOff = NoteState{Note: prevNote, Set: true}
			rt.PendingRemaining = 1
			out = append(out, Emission{On: true, Note: note, Velocity: velocity})
			rt.Sounding = NoteState{Note: note, Set: true}
			rt.TiePrev = true
			rt.GateSustain = true
		} else {
			out = append(out, Emission{On: false, Note: prevNote})
			out = append(out, Emission{On: true, Note: note, Velocity: velocity})
			rt.Sounding = NoteState{Note: note, Set: true}
			rt.TiePrev = false
			rt.GateSustain = false
			rt.GateRemaining = gatePulses
		}

	case prevNote == note && prevTied:
		if tie {
			rt.GateSustain = true
		} else {
			rt.TiePrev = false
			rt.GateSustain = false
			rt.GateRemaining = gatePulses
		}

	default: // prevNote != note && prevTied
		flushPending(rt, &out)
		rt.PendingOff = NoteState{Note: prevNote, Set: true}
		rt.PendingRemaining = 1
		out = append(out, Emission{On: true, Note: note, Velocity: velocity})
		rt.Sounding = NoteState{Note: note, Set: true}
		rt.TiePrev = tie
		rt.GateSustain = tie
		if !tie {
			rt.GateRemaining = gatePulses
		}
	}

	return out
}

// flushPending releases an already-pending note-off immediately (spec
// §9's recommended policy) before a new one is scheduled, so two tied
// transitions inside one pending window never silently drop a note-off.
func flushPending(rt *Runtime, out *[]Emission) {
	if rt.PendingOff.Set {
		*out = append(*out, Emission{On: false, Note: rt.PendingOff.Note})
		rt.PendingOff = NoteState{}
		rt.PendingRemaining = 0
	}
}

// tick runs the clock tail (spec §4.4 "Clock tail"): decrements the
// sounding note's gate and any pending release by one pulse, emitting
// note-offs that reach zero. Sustained (tied) notes never decrement.
func tick(rt *Runtime) []Emission {
	var out []Emission

	if rt.Sounding.Set && !rt.GateSustain {
		rt.GateRemaining--
		if rt.GateRemaining <= 0 {
			out = append(out, Emission{On: false, Note: rt.Sounding.Note})
			rt.Sounding = NoteState{}
		}
	}

	if rt.PendingOff.Set {
		rt.PendingRemaining--
		if rt.PendingRemaining <= 0 {
			out = append(out, Emission{On: false, Note: rt.PendingOff.Note})
			rt.PendingOff = NoteState{}
		}
	}

	return out
}

// silence forces note-offs for any sounding or pending note and clears
// both, used when the chord empties or the transport stops.
func silence(rt *Runtime) []Emission {
	var out []Emission
	if rt.Sounding.Set {
		out = append(out, Emission{On: false, Note: rt.Sounding.Note})
		rt.Sounding = NoteState{}
	}
	if rt.PendingOff.Set {
		out = append(out, Emission{On: false, Note: rt.PendingOff.Note})
		rt.PendingOff = NoteState{}
	}
	rt.GateRemaining = 0
	rt.GateSustain = false
	rt.PendingRemaining = 0
	return out
}
