package engine

import "github.com/iltempo/trrouter/pattern"

// StatusQuery is how the Operator Console reads engine state without
// reaching into it directly, preserving the single-owner rule: the
// console sends one on Queries() and blocks on Resp.
type StatusQuery struct {
	Resp chan Status
}

// PatternStatus is one pattern's externally-visible runtime snapshot.
type PatternStatus struct {
	Name       string
	Enabled    bool
	Channel    uint8
	StepCursor int
	Sounding   pattern.NoteState
}

// Status is a point-in-time snapshot of the whole engine.
type Status struct {
	Chord    []uint8
	Patterns []PatternStatus
}

// Queries returns the channel the console sends StatusQuery on.
func (e *Engine) Queries() chan<- StatusQuery {
	return e.queries
}

// RequestStatus blocks until the engine worker answers with a snapshot.
func (e *Engine) RequestStatus() Status {
	resp := make(chan Status, 1)
	e.queries <- StatusQuery{Resp: resp}
	return <-resp
}

func (e *Engine) snapshot() Status {
	st := Status{Chord: e.chord.Notes()}
	for _, name := range e.order {
		seq := e.sequencers[name]
		st.Patterns = append(st.Patterns, PatternStatus{
			Name:       name,
			Enabled:    seq.Config.Enabled,
			Channel:    seq.Config.OutputChannel,
			StepCursor: seq.Runtime.StepCursor,
			Sounding:   seq.Runtime.Sounding,
		})
	}
	return st
}
