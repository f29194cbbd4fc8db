package midi

import (
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// Driver opens virtual MIDI ports through the system's RtMIDI backend.
// It is the Port Layer's entry point: one Driver per process, one Input
// (the engine's clock/transport/note source) and one Output per
// configured pattern.
type Driver struct {
	rt *rtmididrv.Driver
}

// NewDriver initializes the RtMIDI backend.
func NewDriver() (*Driver, error) {
	rt, err := rtmididrv.New()
	if err != nil {
		return nil, &PortError{Op: "open driver", Name: "rtmidi", Err: err}
	}
	return &Driver{rt: rt}, nil
}

// Close releases the driver. Callers must close every Input/Output
// first.
func (d *Driver) Close() error {
	return d.rt.Close()
}

// Input is a virtual MIDI input port decoding raw bytes into Events and
// delivering them on a buffered channel, so the driver's own listener
// goroutine never blocks on engine work. Channel filtering of note
// events against the configured input channel is the Engine
// Coordinator's job, not the port's, so a config reload can change the
// input channel without reopening the port (spec's "TR Router In").
type Input struct {
	port   drivers.In
	stop   func()
	events chan Event
}

// OpenInput opens a virtual input port named name. The returned Input
// starts listening immediately.
func (d *Driver) OpenInput(name string) (*Input, error) {
	port, err := d.rt.OpenVirtualIn(name)
	if err != nil {
		return nil, &PortError{Op: "open virtual input", Name: name, Err: err}
	}

	in := &Input{
		port:   port,
		events: make(chan Event, 256),
	}

	stop, err := port.Listen(in.onData)
	if err != nil {
		_ = port.Close()
		return nil, &PortError{Op: "listen", Name: name, Err: err}
	}
	in.stop = stop

	return in, nil
}

func (in *Input) onData(data []byte, _ int32) {
	ev := Decode(data)
	if ev.Kind == Ignore {
		return
	}
	select {
	case in.events <- ev:
	default:
		// Engine worker is falling behind; drop rather than block the
		// driver's listener goroutine.
	}
}

// Events returns the channel the engine worker ranges over.
func (in *Input) Events() <-chan Event {
	return in.events
}

// Close stops listening and closes the underlying port.
func (in *Input) Close() error {
	if in.stop != nil {
		in.stop()
	}
	return in.port.Close()
}

// Output is a virtual MIDI output port bound to a fixed channel, one
// per configured pattern.
type Output struct {
	port    drivers.Out
	send    func(midi.Message) error
	channel uint8
}

// OpenOutput opens a virtual output port named name, sending on
// channel.
func (d *Driver) OpenOutput(name string, channel uint8) (*Output, error) {
	port, err := d.rt.OpenVirtualOut(name)
	if err != nil {
		return nil, &PortError{Op: "open virtual output", Name: name, Err: err}
	}
	send, err := midi.SendTo(port)
	if err != nil {
		_ = port.Close()
		return nil, &PortError{Op: "bind sender", Name: name, Err: err}
	}
	return &Output{port: port, send: send, channel: channel}, nil
}

// NoteOn sends a note-on on the output's configured channel.
func (o *Output) NoteOn(note, velocity uint8) error {
	if err := o.send(midi.NoteOn(o.channel, note, velocity)); err != nil {
		return &PortError{Op: "send note-on", Err: err}
	}
	return nil
}

// NoteOff sends a note-off (velocity 0, per spec §6) on the output's
// configured channel.
func (o *Output) NoteOff(note uint8) error {
	if err := o.send(midi.NoteOff(o.channel, note)); err != nil {
		return &PortError{Op: "send note-off", Err: err}
	}
	return nil
}

// Close closes the underlying port.
func (o *Output) Close() error {
	return o.port.Close()
}
