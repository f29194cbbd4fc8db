package commands

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/iltempo/trrouter/config"
	"github.com/iltempo/trrouter/engine"
	"github.com/iltempo/trrouter/midi"
)

type fakeOutput struct{}

func (fakeOutput) NoteOn(note, velocity uint8) error { return nil }
func (fakeOutput) NoteOff(note uint8) error          { return nil }
func (fakeOutput) Close() error                      { return nil }

type fakePorts struct{}

func (fakePorts) OpenOutput(name string, channel uint8) (engine.OutputPort, error) {
	return fakeOutput{}, nil
}

const sampleDoc = `{
	"input_channel": 1,
	"output_channels": { "P1": 1, "P2": 2 },
	"patterns": {
		"P1": {"length": 1, "steps": ["1"]},
		"P2": {"length": 1, "steps": ["1"], "enabled": false}
	}
}`

// testHandler writes sampleDoc to a temp file, builds an engine over it, and
// starts the engine's worker loop so RequestStatus/RequestReload work the
// way the console depends on. The caller must call the returned cancel.
func testHandler(t *testing.T) (*Handler, *bytes.Buffer, string, context.CancelFunc) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(sampleDoc), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	doc, err := config.Load([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	e, err := engine.New(fakePorts{}, doc, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan midi.Event)
	go e.Run(ctx, events)

	var out bytes.Buffer
	return New(e, path, &out), &out, path, cancel
}

func TestStatusListsConfiguredPatterns(t *testing.T) {
	h, out, _, cancel := testHandler(t)
	defer cancel()

	if err := h.ProcessCommand("status"); err != nil {
		t.Fatalf("status: %v", err)
	}
	got := out.String()
	if !bytes.Contains([]byte(got), []byte("P1")) || !bytes.Contains([]byte(got), []byte("P2")) {
		t.Fatalf("expected both patterns listed, got %q", got)
	}
}

func TestEmptyLineActsLikeStatus(t *testing.T) {
	h, out, _, cancel := testHandler(t)
	defer cancel()

	if err := h.ProcessCommand("   "); err != nil {
		t.Fatalf("empty line: %v", err)
	}
	if out.Len() == 0 {
		t.Fatal("expected empty line to print status")
	}
}

func TestPatternsShowsEnabledState(t *testing.T) {
	h, out, _, cancel := testHandler(t)
	defer cancel()

	if err := h.ProcessCommand("patterns"); err != nil {
		t.Fatalf("patterns: %v", err)
	}
	got := out.String()
	if !bytes.Contains([]byte(got), []byte("enabled=false")) {
		t.Fatalf("expected P2 reported disabled, got %q", got)
	}
}

func TestShowPrintsPatternBlock(t *testing.T) {
	h, out, _, cancel := testHandler(t)
	defer cancel()

	if err := h.ProcessCommand("show P1"); err != nil {
		t.Fatalf("show P1: %v", err)
	}
	if !bytes.Contains(out.Bytes(), []byte(`"length"`)) {
		t.Fatalf("expected pattern JSON in output, got %q", out.String())
	}
}

func TestShowUnknownPatternErrors(t *testing.T) {
	h, _, _, cancel := testHandler(t)
	defer cancel()

	if err := h.ProcessCommand("show Nope"); err == nil {
		t.Fatal("expected error for unknown pattern")
	}
}

func TestSetPatchesConfigFileAndReloads(t *testing.T) {
	h, _, path, cancel := testHandler(t)
	defer cancel()

	if err := h.ProcessCommand("set P1 velocity 0 90"); err != nil {
		t.Fatalf("set: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading patched config: %v", err)
	}
	if got := gjson.GetBytes(raw, "patterns.P1.velocity.0").Int(); got != 90 {
		t.Fatalf("expected velocity[0] patched to 90, got %d (%s)", got, raw)
	}
}

func TestSetUnknownPatternErrors(t *testing.T) {
	h, _, _, cancel := testHandler(t)
	defer cancel()

	if err := h.ProcessCommand("set Nope velocity 0 90"); err == nil {
		t.Fatal("expected error for unknown pattern")
	}
}

func TestToggleFlipsEnabledAndReloads(t *testing.T) {
	h, _, path, cancel := testHandler(t)
	defer cancel()

	if err := h.ProcessCommand("toggle P1"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading patched config: %v", err)
	}
	if gjson.GetBytes(raw, "patterns.P1.enabled").Bool() {
		t.Fatalf("expected P1 toggled to disabled, got %s", raw)
	}

	if err := h.ProcessCommand("toggle P1"); err != nil {
		t.Fatalf("toggle back: %v", err)
	}
	raw, err = os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading patched config: %v", err)
	}
	if !gjson.GetBytes(raw, "patterns.P1.enabled").Bool() {
		t.Fatalf("expected P1 toggled back to enabled, got %s", raw)
	}
}

func TestReloadRejectsMalformedConfig(t *testing.T) {
	h, _, path, cancel := testHandler(t)
	defer cancel()

	if err := os.WriteFile(path, []byte(`{ not json`), 0o644); err != nil {
		t.Fatalf("writing broken config: %v", err)
	}
	if err := h.ProcessCommand("reload"); err == nil {
		t.Fatal("expected reload to reject malformed config")
	}
}

func TestQuitReturnsSentinel(t *testing.T) {
	h, _, _, cancel := testHandler(t)
	defer cancel()

	err := h.ProcessCommand("quit")
	if !errors.Is(err, ErrQuit) {
		t.Fatalf("expected ErrQuit, got %v", err)
	}
}

func TestUnknownCommandErrors(t *testing.T) {
	h, _, _, cancel := testHandler(t)
	defer cancel()

	if err := h.ProcessCommand("frobnicate"); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestReadLoopStopsOnQuit(t *testing.T) {
	h, _, _, cancel := testHandler(t)
	defer cancel()

	reader := bytes.NewBufferString("status\nquit\nstatus\n")
	if err := h.ReadLoop(reader); err != nil {
		t.Fatalf("ReadLoop: %v", err)
	}
}
