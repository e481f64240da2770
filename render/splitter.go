// Package render shows a streamed chat response as a live terminal panel,
// with the model's reasoning dimmed above the answer.
package render

import "strings"

const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

// State is the phase of a streamed response.
type State int

const (
	Thinking State = iota
	Answering
)

func (s State) String() string {
	if s == Answering {
		return "answering"
	}
	return "thinking"
}

// Event reports what a fragment changed.
type Event int

const (
	EventNone Event = iota
	// EventFlush means the reasoning block was committed and the
	// splitter moved to Answering.
	EventFlush
)

// Frame is a snapshot of what the panel should show.
type Frame struct {
	State     State
	Reasoning string
	Answer    string
}

// Splitter separates a streamed response into reasoning and answer.
// It starts in Thinking and moves to Answering once, either when the
// closing marker arrives or when the response turns out not to begin
// with an opening marker.
type Splitter struct {
	state     State
	opened    bool
	raw       strings.Builder
	pending   strings.Builder
	reasoning string
	answer    strings.Builder
}

// NewSplitter returns a splitter in the Thinking state.
func NewSplitter() *Splitter {
	return &Splitter{}
}

// Feed consumes the next fragment.
func (s *Splitter) Feed(fragment string) Event {
	s.raw.WriteString(fragment)
	if s.state == Answering {
		s.appendAnswer(fragment)
		return EventNone
	}

	s.pending.WriteString(fragment)
	buf := s.pending.String()

	if !s.opened {
		lead := strings.TrimLeft(buf, " \t\r\n")
		switch {
		case lead == "" || strings.HasPrefix(thinkOpen, lead):
			return EventNone
		case strings.HasPrefix(lead, thinkOpen):
			s.opened = true
		default:
			s.state = Answering
			s.pending.Reset()
			s.appendAnswer(lead)
			return EventFlush
		}
	}

	i := strings.Index(buf, thinkClose)
	if i < 0 {
		return EventNone
	}
	s.reasoning = stripMarkers(buf[:i])
	s.state = Answering
	s.pending.Reset()
	s.appendAnswer(buf[i+len(thinkClose):])
	return EventFlush
}

// appendAnswer drops whitespace between the reasoning and the answer.
func (s *Splitter) appendAnswer(text string) {
	if s.answer.Len() == 0 {
		text = strings.TrimLeft(text, " \t\r\n")
	}
	s.answer.WriteString(text)
}

// State returns the current phase.
func (s *Splitter) State() State { return s.state }

// Raw returns every fragment fed so far, markers included.
func (s *Splitter) Raw() string { return s.raw.String() }

// Frame returns the current panel contents.
func (s *Splitter) Frame() Frame {
	if s.state == Thinking {
		if !s.opened {
			return Frame{State: Thinking}
		}
		return Frame{State: Thinking, Reasoning: stripMarkers(s.pending.String())}
	}
	return Frame{State: Answering, Reasoning: s.reasoning, Answer: s.answer.String()}
}

func stripMarkers(s string) string {
	s = strings.ReplaceAll(s, thinkOpen, "")
	s = strings.ReplaceAll(s, thinkClose, "")
	return strings.TrimSpace(s)
}
