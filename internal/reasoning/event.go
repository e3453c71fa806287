package reasoning

import (
	"encoding/json"
	"fmt"
	"iter"
	"strings"
)

const (
	dataField    = "data:"
	doneSentinel = "[DONE]"
)

// Delta is the incremental part of a streamed choice. Reasoning and content
// arrive independently; either, both or neither may be set.
type Delta struct {
	Reasoning string `json:"reasoning,omitempty"`
	// ReasoningContent is the field name some providers use instead of reasoning.
	ReasoningContent string `json:"reasoning_content,omitempty"`
	Content          string `json:"content,omitempty"`
}

// ReasoningText returns the reasoning fragment, preferring the standard field.
func (d Delta) ReasoningText() string {
	if d.Reasoning != "" {
		return d.Reasoning
	}
	return d.ReasoningContent
}

type Choice struct {
	Index        int     `json:"index"`
	Delta        Delta   `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

// Event is one decoded upstream chat.completion.chunk.
type Event struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

// firstChoice returns choices[0], or a zero Choice for keep-alive and
// metadata-only events that carry none.
func (e Event) firstChoice() Choice {
	if len(e.Choices) == 0 {
		return Choice{}
	}
	return e.Choices[0]
}

// finished reports whether the event carries a non-empty finish reason.
func (c Choice) finished() bool {
	return c.FinishReason != nil && *c.FinishReason != ""
}

// DecodeError is returned when an upstream data line is not valid JSON.
// It is fatal for the response it occurred in.
type DecodeError struct {
	Payload string
	Err     error
}

func (e *DecodeError) Error() string {
	preview := e.Payload
	if len(preview) > 200 {
		preview = preview[:200] + "…"
	}
	return fmt.Sprintf("invalid upstream JSON chunk %q: %v", preview, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ParseLine decodes a single SSE line. ok is false for lines that carry no
// event: comments, blank lines, non-data fields, empty payloads and the
// [DONE] sentinel (reported through done).
func ParseLine(line string) (evt Event, ok bool, done bool, err error) {
	payload, isData := strings.CutPrefix(line, dataField)
	if !isData {
		return Event{}, false, false, nil
	}
	// The SSE format allows a single optional space after the colon.
	payload = strings.TrimPrefix(payload, " ")
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return Event{}, false, false, nil
	}
	if payload == doneSentinel {
		return Event{}, false, true, nil
	}
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		return Event{}, false, false, &DecodeError{Payload: payload, Err: err}
	}
	return evt, true, false, nil
}

// DecodeEvents turns a lazy sequence of raw SSE lines into a lazy sequence of
// events. A read error or a malformed data line is yielded once and ends the
// sequence. An upstream [DONE] sentinel ends it cleanly.
func DecodeEvents(lines iter.Seq2[string, error]) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for line, err := range lines {
			if err != nil {
				yield(Event{}, err)
				return
			}
			evt, ok, done, err := ParseLine(line)
			if err != nil {
				yield(Event{}, err)
				return
			}
			if done {
				return
			}
			if !ok {
				continue
			}
			if !yield(evt, nil) {
				return
			}
		}
	}
}
