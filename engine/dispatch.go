package engine

import (
	"github.com/iltempo/trrouter/midi"
	"github.com/iltempo/trrouter/pattern"
)

// dispatch routes one decoded MIDI event to completion (spec §4.6). All
// outputs it produces are emitted before dispatch returns, matching
// §5's "all outputs generated from a single input event are emitted
// before the next event is consumed."
func (e *Engine) dispatch(ev midi.Event) error {
	switch ev.Kind {
	case midi.NoteOn:
		if ev.Channel != e.inputChannel {
			return nil
		}
		return e.handleNoteOn(ev.Note)
	case midi.NoteOff:
		if ev.Channel != e.inputChannel {
			return nil
		}
		return e.handleNoteOff(ev.Note)
	case midi.ClockPulse:
		return e.handleClock()
	case midi.Start:
		return e.handleStart()
	case midi.Stop:
		return e.handleStop()
	default:
		return nil
	}
}

func (e *Engine) handleNoteOn(note uint8) error {
	wasEmpty := e.chord.Empty()
	e.chord.Insert(note)
	if !wasEmpty || e.chord.Empty() {
		return nil
	}

	for _, name := range e.order {
		seq := e.sequencers[name]
		seq.Reset()
		if err := e.sendEmissions(name, seq.FireImmediate(e.chord.Size(), e.chord.At, e.rng)); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) handleNoteOff(note uint8) error {
	wasEmpty := e.chord.Empty()
	e.chord.Remove(note)
	if wasEmpty || !e.chord.Empty() {
		return nil
	}

	for _, name := range e.order {
		seq := e.sequencers[name]
		if err := e.sendEmissions(name, seq.Silence()); err != nil {
			return err
		}
		seq.Reset()
	}
	return nil
}

func (e *Engine) handleClock() error {
	if e.chord.Empty() {
		for _, name := range e.order {
			seq := e.sequencers[name]
			if err := e.sendEmissions(name, seq.Silence()); err != nil {
				return err
			}
		}
		return nil
	}

	for _, name := range e.order {
		seq := e.sequencers[name]
		if err := e.sendEmissions(name, seq.Pulse(e.chord.Size(), e.chord.At, e.rng)); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) handleStart() error {
	for _, name := range e.order {
		seq := e.sequencers[name]
		if err := e.sendEmissions(name, seq.Silence()); err != nil {
			return err
		}
		seq.Reset()
	}
	if e.chord.Empty() {
		return nil
	}
	for _, name := range e.order {
		seq := e.sequencers[name]
		if err := e.sendEmissions(name, seq.FireImmediate(e.chord.Size(), e.chord.At, e.rng)); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) handleStop() error {
	for _, name := range e.order {
		seq := e.sequencers[name]
		if err := e.sendEmissions(name, seq.Silence()); err != nil {
			return err
		}
		seq.Reset()
	}
	return nil
}

func (e *Engine) sendEmissions(name string, ems []pattern.Emission) error {
	out, ok := e.outputs[name]
	if !ok || len(ems) == 0 {
		return nil
	}
	for _, em := range ems {
		var err error
		if em.On {
			err = out.port.NoteOn(em.Note, em.Velocity)
		} else {
			err = out.port.NoteOff(em.Note)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
