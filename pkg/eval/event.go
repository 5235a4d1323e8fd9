package eval

import "fmt"

// EventKind classifies an output event.
type EventKind int

const (
	// Heading starts a new paragraph and writes its text.
	Heading EventKind = iota
	// Line writes one list entry in the current paragraph.
	Line
	// ParagraphBreak starts a new paragraph without writing anything.
	ParagraphBreak
)

var eventKindNames = map[EventKind]string{
	Heading:        "heading",
	Line:           "line",
	ParagraphBreak: "paragraph_break",
}

func (k EventKind) String() string {
	if s, ok := eventKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

func (k EventKind) MarshalText() ([]byte, error) {
	s, ok := eventKindNames[k]
	if !ok {
		return nil, fmt.Errorf("unknown event kind %d", int(k))
	}
	return []byte(s), nil
}

func (k *EventKind) UnmarshalText(b []byte) error {
	for kind, name := range eventKindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown event kind %q", string(b))
}

// Event is one logical piece of output. Formatting is left to the sink.
type Event struct {
	Kind EventKind `json:"kind"`
	Text string    `json:"text,omitempty"`
}

// Sink receives events in evaluation order.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(ev Event) { f(ev) }

// Recorder collects events in memory.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Emit(ev Event) {
	r.Events = append(r.Events, ev)
}

// Tee returns a sink that forwards every event to each of sinks.
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(ev Event) {
		for _, s := range sinks {
			s.Emit(ev)
		}
	})
}
