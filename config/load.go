package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/iltempo/trrouter/division"
	"github.com/iltempo/trrouter/pattern"
)

const (
	defaultVelocity = 100
	defaultVRandom  = 0
	defaultSProb    = 100
	defaultSOct     = 0
	defaultROct     = "0"
	defaultGate     = 100
	defaultDivision = "1/16"
)

type rawDocument struct {
	InputChannel   *int                       `json:"input_channel"`
	OutputChannels map[string]int             `json:"output_channels"`
	Patterns       map[string]json.RawMessage `json:"patterns"`
}

type rawPattern struct {
	Length   *int              `json:"length"`
	Steps    []json.RawMessage `json:"steps"`
	Velocity []json.RawMessage `json:"velocity"`
	VRandom  []int             `json:"v-random"`
	SProb    []int             `json:"s-prob"`
	SOct     []int             `json:"s-oct"`
	ROct     []string          `json:"r-oct"`
	Gate     []json.RawMessage `json:"gate"`
	Oktawa   *int              `json:"oktawa"`
	Division *string           `json:"division"`
	Enabled  *bool             `json:"enabled"`
}

// Load parses doc (with "//" line comments permitted outside string
// literals) into a Document. On any Configuration-invalid condition it
// returns a *ConfigError and no Document, leaving any previously-loaded
// configuration untouched in the caller.
func Load(doc []byte) (*Document, error) {
	stripped := stripLineComments(doc)

	var raw rawDocument
	if err := json.Unmarshal(stripped, &raw); err != nil {
		return nil, &ConfigError{Path: "$", Reason: err.Error()}
	}

	inputChannel := 1
	if raw.InputChannel != nil {
		inputChannel = *raw.InputChannel
	}
	if inputChannel < 1 || inputChannel > 16 {
		return nil, &ConfigError{Path: "input_channel", Reason: "must be in 1..16"}
	}

	if len(raw.OutputChannels) == 0 {
		return nil, &ConfigError{Path: "output_channels", Reason: "must not be empty"}
	}

	// encoding/json unmarshals objects into a map, which loses key order,
	// but pattern iteration order must follow configuration insertion
	// order. Walk the stripped document's output_channels object with
	// gjson, whose ForEach visits object keys in on-disk declaration
	// order, to recover it.
	names := make([]string, 0, len(raw.OutputChannels))
	gjson.GetBytes(stripped, "output_channels").ForEach(func(key, _ gjson.Result) bool {
		names = append(names, key.String())
		return true
	})

	patterns := make(map[string]*pattern.Config, len(names))
	for _, name := range names {
		ch := raw.OutputChannels[name]
		if ch < 1 || ch > 16 {
			return nil, &ConfigError{Path: fmt.Sprintf("output_channels.%s", name), Reason: "must be in 1..16"}
		}

		rawMsg, ok := raw.Patterns[name]
		var rp rawPattern
		if ok {
			if err := json.Unmarshal(rawMsg, &rp); err != nil {
				return nil, &ConfigError{Path: fmt.Sprintf("patterns.%s", name), Reason: err.Error()}
			}
		} else {
			rp = defaultPatternFallback()
		}

		cfg, err := buildPatternConfig(name, rp)
		if err != nil {
			return nil, err
		}
		cfg.OutputChannel = uint8(ch - 1)
		patterns[name] = cfg
	}

	return &Document{
		InputChannel: uint8(inputChannel - 1),
		PatternOrder: names,
		Patterns:     patterns,
	}, nil
}

// defaultPatternFallback mirrors midi_router.py's default_pattern: a
// pattern entry present in output_channels but absent from patterns
// still produces sound, via a 1-step ascending pattern.
func defaultPatternFallback() rawPattern {
	one := 1
	return rawPattern{
		Length: &one,
		Steps:  []json.RawMessage{json.RawMessage(`"1"`)},
	}
}

func buildPatternConfig(name string, rp rawPattern) (*pattern.Config, error) {
	length := len(rp.Steps)
	if rp.Length != nil {
		length = *rp.Length
	}
	if length < 1 {
		length = 1
	}
	if length > 16 {
		length = 16
	}

	steps, err := buildSteps(name, rp.Steps, length)
	if err != nil {
		return nil, err
	}
	velocity, err := buildVelocity(name, rp.Velocity, length)
	if err != nil {
		return nil, err
	}
	gate, err := buildGate(name, rp.Gate, length)
	if err != nil {
		return nil, err
	}
	roct, err := buildOctaveRandom(name, rp.ROct, length)
	if err != nil {
		return nil, err
	}

	divisionStr := defaultDivision
	if rp.Division != nil {
		divisionStr = *rp.Division
	}
	if !division.Valid(divisionStr) {
		return nil, &ConfigError{Path: fmt.Sprintf("patterns.%s.division", name), Reason: fmt.Sprintf("malformed division %q", divisionStr)}
	}

	oktawa := 0
	if rp.Oktawa != nil {
		oktawa = clampInt(*rp.Oktawa, -5, 5)
	}

	enabled := true
	if rp.Enabled != nil {
		enabled = *rp.Enabled
	}

	return &pattern.Config{
		Name:          name,
		Length:        length,
		Steps:         steps,
		Velocity:      velocity,
		VRandom:       padInts(rp.VRandom, length, defaultVRandom, 0, 100),
		SProb:         padInts(rp.SProb, length, defaultSProb, 0, 100),
		SOct:          padInts(rp.SOct, length, defaultSOct, -2, 2),
		ROct:          roct,
		Gate:          gate,
		GlobalOctave:  oktawa,
		Division:      divisionStr,
		PulsesPerStep: division.Resolve(divisionStr),
		Enabled:       enabled,
	}, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// padInts right-pads with def and truncates to length, clamping every
// present value to [lo,hi].
func padInts(vals []int, length, def, lo, hi int) []int {
	out := make([]int, length)
	for i := range out {
		if i < len(vals) {
			out[i] = clampInt(vals[i], lo, hi)
		} else {
			out[i] = def
		}
	}
	return out
}

func buildSteps(name string, raw []json.RawMessage, length int) ([]pattern.StepDescriptor, error) {
	out := make([]pattern.StepDescriptor, length)
	for i := range out {
		if i >= len(raw) {
			out[i] = pattern.StepDescriptor{Kind: pattern.StepRest}
			continue
		}
		d, err := parseStep(raw[i])
		if err != nil {
			return nil, &ConfigError{Path: fmt.Sprintf("patterns.%s.steps[%d]", name, i), Reason: err.Error()}
		}
		out[i] = d
	}
	return out, nil
}

func parseStep(raw json.RawMessage) (pattern.StepDescriptor, error) {
	var n int
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch strings.ToUpper(strings.TrimSpace(s)) {
		case "X":
			return pattern.StepDescriptor{Kind: pattern.StepRest}, nil
		case "R":
			return pattern.StepDescriptor{Kind: pattern.StepRandom}, nil
		}
		// A numeric string ("1") is a fixed index, as in the fallback pattern.
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return pattern.StepDescriptor{}, fmt.Errorf("unrecognized step symbol %q", s)
		}
		n = v
	} else if err := json.Unmarshal(raw, &n); err != nil {
		return pattern.StepDescriptor{}, fmt.Errorf("step must be an integer or \"R\"/\"X\"")
	}
	if n < 1 {
		return pattern.StepDescriptor{}, fmt.Errorf("fixed step index must be >= 1, got %d", n)
	}
	return pattern.StepDescriptor{Kind: pattern.StepFixed, Fixed: n}, nil
}

func buildVelocity(name string, raw []json.RawMessage, length int) ([]pattern.VelocitySpec, error) {
	out := make([]pattern.VelocitySpec, length)
	for i := range out {
		if i >= len(raw) {
			out[i] = pattern.VelocitySpec{Kind: pattern.VelocityFixed, Fixed: defaultVelocity}
			continue
		}
		v, err := parseVelocity(raw[i])
		if err != nil {
			return nil, &ConfigError{Path: fmt.Sprintf("patterns.%s.velocity[%d]", name, i), Reason: err.Error()}
		}
		out[i] = v
	}
	return out, nil
}

func parseVelocity(raw json.RawMessage) (pattern.VelocitySpec, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.ToUpper(strings.TrimSpace(s)) == "R" {
			return pattern.VelocitySpec{Kind: pattern.VelocityRandom}, nil
		}
		return pattern.VelocitySpec{}, fmt.Errorf("unrecognized velocity symbol %q", s)
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return pattern.VelocitySpec{}, fmt.Errorf("velocity must be an integer or \"R\"")
	}
	return pattern.VelocitySpec{Kind: pattern.VelocityFixed, Fixed: clampInt(n, 1, 127)}, nil
}

func buildGate(name string, raw []json.RawMessage, length int) ([]pattern.GateSpec, error) {
	out := make([]pattern.GateSpec, length)
	for i := range out {
		if i >= len(raw) {
			out[i] = pattern.GateSpec{Kind: pattern.GatePercent, Percent: defaultGate}
			continue
		}
		g, err := parseGate(raw[i])
		if err != nil {
			return nil, &ConfigError{Path: fmt.Sprintf("patterns.%s.gate[%d]", name, i), Reason: err.Error()}
		}
		out[i] = g
	}
	return out, nil
}

func parseGate(raw json.RawMessage) (pattern.GateSpec, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.ToUpper(strings.TrimSpace(s)) == "T" {
			return pattern.GateSpec{Kind: pattern.GateTie}, nil
		}
		return pattern.GateSpec{}, fmt.Errorf("unrecognized gate symbol %q", s)
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return pattern.GateSpec{}, fmt.Errorf("gate must be an integer in 1..100 or \"T\"")
	}
	return pattern.GateSpec{Kind: pattern.GatePercent, Percent: clampInt(n, 1, 100)}, nil
}

func buildOctaveRandom(name string, raw []string, length int) ([]pattern.OctaveRandomSpec, error) {
	out := make([]pattern.OctaveRandomSpec, length)
	for i := range out {
		s := defaultROct
		if i < len(raw) {
			s = raw[i]
		}
		spec, err := parseOctaveRandom(s)
		if err != nil {
			return nil, &ConfigError{Path: fmt.Sprintf("patterns.%s.r-oct[%d]", name, i), Reason: err.Error()}
		}
		out[i] = spec
	}
	return out, nil
}

// parseOctaveRandom implements the r-oct grammar: "0" disables
// randomization, "+-N" picks uniformly in [-N,N], and a signed "+N"/"-N"
// picks uniformly from {-N,+N}.
func parseOctaveRandom(s string) (pattern.OctaveRandomSpec, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return pattern.OctaveRandomSpec{Kind: pattern.OctaveRandomNone}, nil
	}
	if strings.HasPrefix(s, "+-") {
		k, err := strconv.Atoi(s[2:])
		if err != nil || k < 0 {
			return pattern.OctaveRandomSpec{}, fmt.Errorf("malformed r-oct range %q", s)
		}
		return pattern.OctaveRandomSpec{Kind: pattern.OctaveRandomRange, K: k}, nil
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		k, err := strconv.Atoi(s[1:])
		if err != nil || k < 0 {
			return pattern.OctaveRandomSpec{}, fmt.Errorf("malformed r-oct value %q", s)
		}
		return pattern.OctaveRandomSpec{Kind: pattern.OctaveRandomSigned, K: k}, nil
	}
	return pattern.OctaveRandomSpec{}, fmt.Errorf("unrecognized r-oct grammar %q", s)
}
