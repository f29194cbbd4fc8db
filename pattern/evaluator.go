package pattern

import "math/rand"

// Emission is one note-on or note-off the sequencer wants the port layer
// to send.
type Emission struct {
	On       bool
	Note     uint8
	Velocity uint8 // 0 on note-off
}

// stepResult is the outcome of resolving one step against the current
// chord, before the gate/tie machine decides what to emit.
type stepResult struct {
	fire     bool // false: rest, probability miss, or out-of-range drop
	note     uint8
	velocity uint8
	gate     GateSpec
}

// evaluateStep resolves cfg's step at stepPos against a chord of the
// given size, using rng for every random draw (probability roll, Random
// step/velocity resolution, octave randomization, and out-of-range
// salvage). runtime supplies and updates the per-cycle random caches.
//
// This implements spec §4.4 steps 2-8 (the cursor advance in step 1 and
// 10 is the caller's responsibility — evaluateStep only resolves a
// single already-selected step position).
func evaluateStep(cfg *Config, rt *Runtime, stepPos int, chordSize int, chordAt func(int) (uint8, bool), rng *rand.Rand) stepResult {
	if stepPos == 0 {
		rt.clearCaches()
	}

	// A disabled pattern still consumes the clock (the caller advances
	// StepCursor regardless of fire), it just never emits or sounds a
	// note (spec §3).
	if !cfg.Enabled {
		return stepResult{fire: false}
	}

	prob := cfg.SProb[stepPos]
	if roll := 1 + rng.Intn(100); roll > prob {
		return stepResult{fire: false}
	}

	desc := cfg.Steps[stepPos]
	var idx int
	switch desc.Kind {
	case StepRest:
		return stepResult{fire: false}
	case StepRandom:
		if rt.cycleRandomSteps[stepPos] < 0 {
			rt.cycleRandomSteps[stepPos] = 1 + rng.Intn(chordSize)
		}
		idx = rt.cycleRandomSteps[stepPos]
	case StepFixed:
		idx = desc.Fixed
	}

	if idx < 1 || idx > chordSize {
		if cfg.SilentOnOutOfRange {
			return stepResult{fire: false}
		}
		// Salvage: resample uniformly rather than silencing a Fixed
		// step whose index has fallen outside the shrunk chord.
		idx = 1 + rng.Intn(chordSize)
	}

	chordNote, ok := chordAt(idx)
	if !ok {
		return stepResult{fire: false}
	}

	velocity := resolveVelocity(cfg, rt, stepPos, rng)

	octaveOffset := cfg.GlobalOctave + cfg.SOct[stepPos] + resolveOctaveRandom(cfg.ROct[stepPos], rng)
	noteNum := int(chordNote) + 12*octaveOffset
	if noteNum < 0 || noteNum > 127 {
		return stepResult{fire: false}
	}

	return stepResult{
		fire:     true,
		note:     uint8(noteNum),
		velocity: velocity,
		gate:     cfg.Gate[stepPos],
	}
}

// resolveVelocity implements spec §4.4 step 6: base velocity resolution
// (fixed or per-cycle-cached random) followed by v-random jitter.
func resolveVelocity(cfg *Config, rt *Runtime, stepPos int, rng *rand.Rand) uint8 {
	var base int
	spec := cfg.Velocity[stepPos]
	switch spec.Kind {
	case VelocityRandom:
		if rt.cycleRandomVelocities[stepPos] < 0 {
			rt.cycleRandomVelocities[stepPos] = 1 + rng.Intn(127)
		}
		base = rt.cycleRandomVelocities[stepPos]
	default:
		base = spec.Fixed
	}

	vRandom := cfg.VRandom[stepPos]
	switch {
	case vRandom >= 100:
		return uint8(1 + rng.Intn(127))
	case vRandom > 0:
		span := vRandom * 127 / 100
		half := span / 2
		lo := base - half
		if lo < 1 {
			lo = 1
		}
		hi := base + half
		if hi > 127 {
			hi = 127
		}
		if hi < lo {
			hi = lo
		}
		return uint8(lo + rng.Intn(hi-lo+1))
	default:
		return uint8(base)
	}
}

// resolveOctaveRandom implements the r-oct semantics: a single value
// "+-k" chooses uniformly from {-k..k}; "+k"/"-k" chooses uniformly
// between {-k, +k}.
func resolveOctaveRandom(spec OctaveRandomSpec, rng *rand.Rand) int {
	switch spec.Kind {
	case OctaveRandomSigned:
		if rng.Intn(2) == 0 {
			return -spec.K
		}
		return spec.K
	case OctaveRandomRange:
		return -spec.K + rng.Intn(2*spec.K+1)
	default:
		return 0
	}
}

// gatePulses converts a GateSpec and the pattern's pulses-per-step into a
// whole-pulse countdown, rounding to nearest and clamping to at least one
// pulse per spec §9's open question about short divisions rounding to 0.
func gatePulses(spec GateSpec, pulsesPerStep float64) float64 {
	if spec.Kind == GateTie {
		return 0
	}
	pulses := pulsesPerStep * float64(spec.Percent) / 100.0
	rounded := float64(int(pulses + 0.5))
	if rounded < 1 {
		rounded = 1
	}
	return rounded
}
