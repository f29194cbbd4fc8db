// Package division converts textual rhythm descriptors ("1/16", "1/8d",
// "1/4t") into pulses-per-step at 24 PPQN.
package division

import "strings"

// PPQN is the MIDI clock resolution this engine assumes: pulses per
// quarter note.
const PPQN = 24

var baseTable = map[string]float64{
	"1":    96,
	"1/2":  48,
	"1/4":  24,
	"1/8":  12,
	"1/16": 6,
	"1/32": 3,
}

// defaultBase is used for an unrecognized base division string (1/16).
const defaultBase = 6

// Resolve converts a division string to pulses-per-step. Suffixes "d"
// (dotted, x1.5), "t" (triplet, x2/3) and "q" (quintuplet, x4/5) modify
// the base. An unrecognized base defaults to 1/16. The result is
// clamped to at least 1.0 pulse.
func Resolve(s string) float64 {
	s = strings.ToLower(strings.TrimSpace(s))

	num, den := 1.0, 1.0
	base := s
	switch {
	case strings.HasSuffix(s, "d"):
		num, den = 3, 2
		base = strings.TrimSuffix(s, "d")
	case strings.HasSuffix(s, "t"):
		num, den = 2, 3
		base = strings.TrimSuffix(s, "t")
	case strings.HasSuffix(s, "q"):
		num, den = 4, 5
		base = strings.TrimSuffix(s, "q")
	}

	pulses, ok := baseTable[base]
	if !ok {
		pulses = defaultBase
	}

	result := pulses * num / den
	if result < 1.0 {
		result = 1.0
	}
	return result
}

// Valid reports whether s parses to a recognized base division, ignoring
// the dotted/triplet/quintuplet suffix. Used by the config loader to
// reject malformed division strings at load time rather than silently
// defaulting to 1/16.
func Valid(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	base := strings.TrimSuffix(strings.TrimSuffix(strings.TrimSuffix(s, "d"), "t"), "q")
	_, ok := baseTable[base]
	return ok
}
