package reasoning

import (
	"iter"
	"time"

	"github.com/google/uuid"
)

// Transducer rewrites one streamed response, wrapping its reasoning
// fragments in OpenMarker/CloseMarker. It owns the phase of that single
// response and must not be reused or shared across responses.
type Transducer struct {
	model      string
	fallbackID string
	phase      Phase
	finished   bool
	now        func() time.Time
}

type TransducerOption func(*Transducer)

// WithClock overrides the clock used for chunk creation timestamps.
func WithClock(now func() time.Time) TransducerOption {
	return func(t *Transducer) {
		t.now = now
	}
}

// WithFallbackID sets the id used for chunks when an upstream event has none.
func WithFallbackID(id string) TransducerOption {
	return func(t *Transducer) {
		t.fallbackID = id
	}
}

// NewTransducer creates a transducer for a single response. model is the
// normalized request model stamped on every outbound chunk; when empty, the
// model reported by each upstream event is used.
func NewTransducer(model string, opts ...TransducerOption) *Transducer {
	t := &Transducer{
		model:      model,
		fallbackID: "chatcmpl-" + uuid.NewString(),
		phase:      PhaseNotStarted,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Phase returns the current phase.
func (t *Transducer) Phase() Phase {
	return t.phase
}

// Finished reports whether the terminal marker has been produced.
func (t *Transducer) Finished() bool {
	return t.finished
}

// Step consumes one upstream event and returns the chunks it maps to, in
// emission order. Once the terminal marker has been returned, Step returns nil.
func (t *Transducer) Step(evt Event) []Chunk {
	if t.finished {
		return nil
	}

	choice := evt.firstChoice()
	reasoning := choice.Delta.ReasoningText()
	content := choice.Delta.Content

	id := evt.ID
	if id == "" {
		id = t.fallbackID
	}
	model := t.model
	if model == "" {
		model = evt.Model
	}
	created := t.now().Unix()

	var out []Chunk

	switch t.phase {
	case PhaseNotStarted:
		if reasoning != "" {
			out = append(out, newChunk(id, model, OpenMarker, created))
			t.phase = PhaseThinking
		}
	case PhaseThinking:
		if reasoning == "" && content != "" {
			out = append(out, newChunk(id, model, CloseMarker, created))
			t.phase = PhaseAnswered
		}
	case PhaseAnswered:
	}

	text := reasoning
	if text == "" {
		text = content
	}
	if text != "" {
		out = append(out, newChunk(id, model, text, created))
	}

	if choice.finished() {
		// A block left open by the upstream is closed before the stream ends.
		if t.phase == PhaseThinking {
			out = append(out, newChunk(id, model, CloseMarker, created))
			t.phase = PhaseAnswered
		}
		out = append(out, terminalChunk())
		t.finished = true
	}

	return out
}

// Transform is the lazy form of Step. It pulls events one at a time and
// stops pulling as soon as the terminal marker has been yielded. An input
// error is yielded once and ends the sequence without a terminal marker.
func (t *Transducer) Transform(events iter.Seq2[Event, error]) iter.Seq2[Chunk, error] {
	return func(yield func(Chunk, error) bool) {
		if t.finished {
			return
		}
		for evt, err := range events {
			if err != nil {
				yield(Chunk{}, err)
				return
			}
			for _, c := range t.Step(evt) {
				if !yield(c, nil) {
					return
				}
			}
			if t.finished {
				return
			}
		}
	}
}

// Stream wires the decoder and a fresh transducer over raw SSE lines.
func Stream(lines iter.Seq2[string, error], model string, opts ...TransducerOption) iter.Seq2[Chunk, error] {
	return NewTransducer(model, opts...).Transform(DecodeEvents(lines))
}
