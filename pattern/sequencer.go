package pattern

import "math/rand"

// ChordAt resolves a 1-indexed chord position to a MIDI note number, the
// same contract chord.Buffer.At exposes. Sequencer depends on this
// narrow interface rather than the chord package directly, so patterns
// borrow a read-only view of the chord at fire time without owning it
// (spec §9's note on breaking the Coordinator/Sequencer cyclic
// dependency).
type ChordAt func(i int) (uint8, bool)

// Sequencer is one output pattern's clock divider and step sequencer. It
// owns a Runtime and currently-applied Config; the Engine Coordinator
// owns the Sequencer itself and the chord it reads from.
type Sequencer struct {
	Config  *Config
	Runtime *Runtime
}

// NewSequencer builds a sequencer for cfg with fresh runtime state.
func NewSequencer(cfg *Config) *Sequencer {
	return &Sequencer{Config: cfg, Runtime: NewRuntime(cfg.Length)}
}

// ReplaceConfig installs a new configuration and re-initializes runtime
// state from scratch. Callers must release any sounding/pending note
// (Silence) before calling this, per spec §4.6: "In-flight sounding
// notes MUST be released first to avoid stuck notes."
func (s *Sequencer) ReplaceConfig(cfg *Config) {
	s.Config = cfg
	s.Runtime = NewRuntime(cfg.Length)
}

// Reset zeroes the pulse accumulator, step cursor and random caches
// without touching sounding/pending note state. Used on Start and on
// the empty→non-empty chord transition.
func (s *Sequencer) Reset() {
	s.Runtime.Reset()
}

// Silence forces note-offs for any sounding or pending note.
func (s *Sequencer) Silence() []Emission {
	return silence(s.Runtime)
}

// FireImmediate resolves and fires exactly one step at the current
// cursor position, without touching the pulse accumulator or running
// the clock tail. This realizes the "first-step-on-chord" rule (an
// empty→non-empty chord transition, or a Start with a chord already
// held) so the arpeggio is audible before the next clock pulse. A
// disabled pattern's step still resolves (advancing the cursor) but
// never fires; see evaluateStep.
func (s *Sequencer) FireImmediate(chordSize int, chordAt ChordAt, rng *rand.Rand) []Emission {
	return s.fireCursorStep(chordSize, chordAt, rng)
}

// Pulse advances the pattern by one MIDI clock pulse: it first runs the
// gate/tie clock tail against state left over from prior pulses, then
// fires as many steps as the pulse accumulator crossing the division
// threshold demands (ordinarily at most one). Running the tail first
// matters: a step firing this pulse schedules its own 1-pulse pending
// release for the NEXT pulse (spec §4.5's overlap), and that would
// collapse to zero pulses of overlap if the tail decremented it again
// before this pulse finished. A disabled pattern still advances its
// pulse accumulator and step cursor here — it consumes the clock like
// any other pattern — it just never fires (see evaluateStep), so it
// never accumulates sounding or pending state for the tail to release.
func (s *Sequencer) Pulse(chordSize int, chordAt ChordAt, rng *rand.Rand) []Emission {
	out := tick(s.Runtime)

	s.Runtime.PulseAccum++
	for s.Runtime.PulseAccum >= s.Config.PulsesPerStep {
		s.Runtime.PulseAccum -= s.Config.PulsesPerStep
		out = append(out, s.fireCursorStep(chordSize, chordAt, rng)...)
	}

	return out
}

func (s *Sequencer) fireCursorStep(chordSize int, chordAt ChordAt, rng *rand.Rand) []Emission {
	cfg := s.Config
	rt := s.Runtime

	stepPos := rt.StepCursor % cfg.Length
	result := evaluateStep(cfg, rt, stepPos, chordSize, chordAt, rng)

	var out []Emission
	if result.fire {
		tie := result.gate.Kind == GateTie
		gp := gatePulses(result.gate, cfg.PulsesPerStep)
		out = applyGate(rt, result.note, result.velocity, tie, gp)
	}

	rt.StepCursor = (rt.StepCursor + 1) % cfg.Length
	return out
}
