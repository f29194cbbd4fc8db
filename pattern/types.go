// Package pattern implements one output pattern's step sequencer: its
// configuration, its mutable per-cycle runtime state, the step-resolution
// algorithm, and the gate/tie note-lifecycle state machine.
package pattern

// StepKind tags the three shapes a step descriptor can take. Keeping this
// as a tagged variant (rather than carrying the raw "X"/"R"/int JSON value
// at runtime) means the hot path never re-parses a string.
type StepKind int

const (
	StepRest StepKind = iota
	StepRandom
	StepFixed
)

// StepDescriptor is one slot in a pattern's step list.
type StepDescriptor struct {
	Kind  StepKind
	Fixed int // valid only when Kind == StepFixed; 1..8
}

// VelocityKind tags whether a step's base velocity is a fixed value or
// drawn fresh (and cached) once per cycle.
type VelocityKind int

const (
	VelocityFixed VelocityKind = iota
	VelocityRandom
)

// VelocitySpec is one entry in a pattern's velocity list.
type VelocitySpec struct {
	Kind  VelocityKind
	Fixed int // valid only when Kind == VelocityFixed; 1..127
}

// GateKind tags whether a step's gate is a percentage of the step
// duration or a tie (sustain until a non-tie step supersedes it).
type GateKind int

const (
	GatePercent GateKind = iota
	GateTie
)

// GateSpec is one entry in a pattern's gate list.
type GateSpec struct {
	Kind    GateKind
	Percent int // valid only when Kind == GatePercent; 1..100
}

// OctaveRandomKind tags the r-oct grammar: no randomization, a symmetric
// two-valued choice, or a uniform range.
type OctaveRandomKind int

const (
	OctaveRandomNone OctaveRandomKind = iota
	OctaveRandomSigned                // "+N"/"-N": choose uniformly in {-N, +N}
	OctaveRandomRange                 // "+-N": choose uniformly in [-N, N]
)

// OctaveRandomSpec is the parsed form of a pattern's r-oct entry.
type OctaveRandomSpec struct {
	Kind OctaveRandomKind
	K    int
}

// Config is one pattern's immutable-during-a-step configuration. It is
// replaced wholesale on a config reload, never mutated in place.
type Config struct {
	Name   string
	Length int // 1..16

	Steps    []StepDescriptor
	Velocity []VelocitySpec
	VRandom  []int // 0..100, symmetric jitter percent
	SProb    []int // 0..100, probability the step fires at all
	SOct     []int // -2..2, per-step octave offset
	ROct     []OctaveRandomSpec
	Gate     []GateSpec

	GlobalOctave  int // -5..5
	Division      string
	PulsesPerStep float64 // resolved from Division at load time

	Enabled       bool
	OutputChannel uint8 // 0..15

	// SilentOnOutOfRange, when true, skips emission instead of
	// salvaging with a random draw when a Fixed step index exceeds the
	// current chord size. Default false preserves the source engine's
	// salvage behavior.
	SilentOnOutOfRange bool
}

// NoteState describes a single currently-sounding (or pending-release)
// note belonging to a pattern.
type NoteState struct {
	Note uint8
	Set  bool
}

// Runtime is the mutable, per-pattern state a Sequencer owns between
// clock pulses.
type Runtime struct {
	PulseAccum float64
	StepCursor int

	// cycleRandomSteps/cycleRandomVelocities cache the resolved value
	// of each Random slot for the remainder of the current cycle,
	// cleared exactly when StepCursor wraps back through 0. -1 means
	// "not yet cached for this cycle".
	cycleRandomSteps      []int
	cycleRandomVelocities []int

	Sounding NoteState

	// GateRemaining counts down in whole clock pulses; GateSustain
	// means "hold until a non-tie step supersedes it" (the spec's
	// "sustain" sentinel).
	GateRemaining float64
	GateSustain   bool
	TiePrev       bool

	PendingOff       NoteState
	PendingRemaining float64
}

// NewRuntime returns a zeroed runtime sized for a pattern of the given
// length.
func NewRuntime(length int) *Runtime {
	r := &Runtime{}
	r.resizeCaches(length)
	return r
}

func (r *Runtime) resizeCaches(length int) {
	r.cycleRandomSteps = make([]int, length)
	r.cycleRandomVelocities = make([]int, length)
	r.clearCaches()
}

func (r *Runtime) clearCaches() {
	for i := range r.cycleRandomSteps {
		r.cycleRandomSteps[i] = -1
	}
	for i := range r.cycleRandomVelocities {
		r.cycleRandomVelocities[i] = -1
	}
}

// Reset zeroes the pulse accumulator and step cursor and clears the
// per-cycle random caches, without touching any sounding/pending note.
// Used on Start and on the empty→non-empty chord transition.
func (r *Runtime) Reset() {
	r.PulseAccum = 0
	r.StepCursor = 0
	r.clearCaches()
}

// Silenced reports whether the runtime has no sounding or pending note.
func (r *Runtime) Silenced() bool {
	return !r.Sounding.Set && !r.PendingOff.Set
}
