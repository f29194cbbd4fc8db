package division

import "testing"

func TestResolveBaseTable(t *testing.T) {
	tests := []struct {
		div  string
		want float64
	}{
		{"1", 96},
		{"1/2", 48},
		{"1/4", 24},
		{"1/8", 12},
		{"1/16", 6},
		{"1/32", 3},
	}
	for _, tt := range tests {
		t.Run(tt.div, func(t *testing.T) {
			if got := Resolve(tt.div); got != tt.want {
				t.Errorf("Resolve(%q) = %v, want %v", tt.div, got, tt.want)
			}
		})
	}
}

func TestResolveSuffixes(t *testing.T) {
	tests := []struct {
		div  string
		want float64
	}{
		{"1/8d", 18},     // 12 * 1.5
		{"1/4t", 16},     // 24 * 2/3
		{"1/16q", 4.8},   // 6 * 4/5
		{"1/2d", 72},     // 48 * 1.5
	}
	for _, tt := range tests {
		t.Run(tt.div, func(t *testing.T) {
			if got := Resolve(tt.div); got != tt.want {
				t.Errorf("Resolve(%q) = %v, want %v", tt.div, got, tt.want)
			}
		})
	}
}

func TestResolveUnknownDefaultsTo1_16(t *testing.T) {
	if got := Resolve("bogus"); got != 6 {
		t.Errorf("Resolve(bogus) = %v, want 6", got)
	}
}

func TestResolveClampedToAtLeastOne(t *testing.T) {
	// No real combination in the table drops below 1, but the clamp
	// still needs to hold for pathological future base values.
	if got := Resolve("1/32t"); got < 1.0 {
		t.Errorf("Resolve(1/32t) = %v, want >= 1.0", got)
	}
}

func TestValid(t *testing.T) {
	for _, s := range []string{"1", "1/2", "1/4d", "1/8t", "1/16q", "1/32"} {
		if !Valid(s) {
			t.Errorf("Valid(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"1/3", "bogus", "1/64"} {
		if Valid(s) {
			t.Errorf("Valid(%q) = true, want false", s)
		}
	}
}

func TestResolveCaseInsensitive(t *testing.T) {
	if Resolve("1/8D") != Resolve("1/8d") {
		t.Error("Resolve should be case-insensitive")
	}
}
