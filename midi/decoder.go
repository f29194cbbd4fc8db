package midi

// Kind tags the classification a raw MIDI byte sequence decodes to
// (spec's Clock & Transport Decoder).
type Kind int

const (
	Ignore Kind = iota
	ClockPulse
	Start
	Stop
	NoteOn
	NoteOff
)

// Event is the decoded form of one inbound MIDI message. Note and
// Velocity are only meaningful for NoteOn/NoteOff. Channel filtering
// against the configured input channel is left to the caller (the
// Engine Coordinator), so a config reload can change the input channel
// without reopening the port.
type Event struct {
	Kind     Kind
	Note     uint8
	Velocity uint8
	Channel  uint8
}

const (
	statusNoteOff = 0x80
	statusNoteOn  = 0x90
	statusClock   = 0xF8
	statusStart   = 0xFA
	statusStop    = 0xFC
)

// Decode classifies a raw MIDI message. Clock and transport bytes are
// channel-agnostic. Running status is resolved by the driver before
// Decode ever sees the bytes.
func Decode(data []byte) Event {
	if len(data) == 0 {
		return Event{Kind: Ignore}
	}

	status := data[0]
	switch status {
	case statusClock:
		return Event{Kind: ClockPulse}
	case statusStart:
		return Event{Kind: Start}
	case statusStop:
		return Event{Kind: Stop}
	}

	msgType := status & 0xF0
	channel := status & 0x0F

	switch msgType {
	case statusNoteOn:
		if len(data) < 3 {
			return Event{Kind: Ignore}
		}
		note, velocity := data[1], data[2]
		if velocity == 0 {
			return Event{Kind: NoteOff, Note: note, Channel: channel}
		}
		return Event{Kind: NoteOn, Note: note, Velocity: velocity, Channel: channel}
	case statusNoteOff:
		if len(data) < 3 {
			return Event{Kind: Ignore}
		}
		return Event{Kind: NoteOff, Note: data[1], Channel: channel}
	default:
		return Event{Kind: Ignore}
	}
}
