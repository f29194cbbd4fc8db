// Package engine implements the Engine Coordinator (spec §4.6): the
// single-owner component that holds the chord buffer, the per-pattern
// sequencers, the current configuration, and dispatches every decoded
// MIDI event to completion before the next one is handled.
package engine

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/iltempo/trrouter/chord"
	"github.com/iltempo/trrouter/config"
	"github.com/iltempo/trrouter/midi"
	"github.com/iltempo/trrouter/pattern"
)

// OutputPort is the narrow surface the engine needs from a MIDI output;
// *midi.Output satisfies it. Tests substitute an in-memory recorder.
type OutputPort interface {
	NoteOn(note, velocity uint8) error
	NoteOff(note uint8) error
	Close() error
}

// PortOpener opens a named, channel-bound output port.
type PortOpener interface {
	OpenOutput(name string, channel uint8) (OutputPort, error)
}

// driverAdapter satisfies PortOpener over a *midi.Driver. A plain method
// value can't do this directly: Go's interface satisfaction requires an
// exact signature match, and midi.Driver.OpenOutput returns the
// concrete *midi.Output rather than the OutputPort interface.
type driverAdapter struct {
	driver *midi.Driver
}

// WrapDriver adapts a *midi.Driver to PortOpener.
func WrapDriver(d *midi.Driver) PortOpener {
	return driverAdapter{driver: d}
}

func (a driverAdapter) OpenOutput(name string, channel uint8) (OutputPort, error) {
	return a.driver.OpenOutput(name, channel)
}

type boundOutput struct {
	port    OutputPort
	channel uint8
}

// Engine owns every piece of mutable arpeggiation state. It has a single
// owner: the goroutine running Run. No other goroutine may touch its
// fields; the Operator Console communicates only through RequestReload
// and RequestStatus.
type Engine struct {
	ports PortOpener
	rng   *rand.Rand

	chord        *chord.Buffer
	inputChannel uint8
	order        []string
	sequencers   map[string]*pattern.Sequencer
	outputs      map[string]boundOutput

	mu            sync.Mutex
	pendingConfig *config.Document
	reloadFlag    atomic.Bool

	queries chan StatusQuery
}

// New builds an Engine from an already-loaded configuration and opens
// one output port per configured pattern.
func New(ports PortOpener, doc *config.Document, rng *rand.Rand) (*Engine, error) {
	e := &Engine{
		ports:      ports,
		rng:        rng,
		chord:      chord.New(),
		sequencers: make(map[string]*pattern.Sequencer),
		outputs:    make(map[string]boundOutput),
		queries:    make(chan StatusQuery, 1),
	}
	if err := e.applyConfig(doc); err != nil {
		return nil, err
	}
	return e, nil
}

// Run is the single worker loop described in spec §5: it blocks on
// either an inbound MIDI event or a console status query, handles it to
// completion, and checks the reload flag at the resulting event
// boundary. It returns when events closes, the context is canceled, or
// a port write fails fatally.
func (e *Engine) Run(ctx context.Context, events <-chan midi.Event) error {
	defer e.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil

		case q, ok := <-e.queries:
			if !ok {
				continue
			}
			q.Resp <- e.snapshot()

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := e.dispatch(ev); err != nil {
				return err
			}
			e.checkReload()
		}
	}
}

// shutdown releases every sounding and pending note before the worker
// loop returns (spec §5's termination guarantee), best-effort.
func (e *Engine) shutdown() {
	for _, name := range e.order {
		seq, ok := e.sequencers[name]
		if !ok {
			continue
		}
		_ = e.sendEmissions(name, seq.Silence())
	}
}
