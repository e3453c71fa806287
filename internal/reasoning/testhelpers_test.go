package reasoning

import (
	"encoding/json"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var fixedClock = func() time.Time { return time.Unix(1700000000, 0) }

func stop() *string {
	s := "stop"
	return &s
}

func reasoningEvent(id, text string) Event {
	return Event{ID: id, Choices: []Choice{{Delta: Delta{Reasoning: text}}}}
}

func contentEvent(id, text string) Event {
	return Event{ID: id, Choices: []Choice{{Delta: Delta{Content: text}}}}
}

func finishEvent(id string) Event {
	return Event{ID: id, Choices: []Choice{{FinishReason: stop()}}}
}

func eventsOf(events ...Event) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for _, e := range events {
			if !yield(e, nil) {
				return
			}
		}
	}
}

func linesOf(lines ...string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, l := range lines {
			if !yield(l, nil) {
				return
			}
		}
	}
}

func dataLine(t *testing.T, evt Event) string {
	t.Helper()
	b, err := json.Marshal(evt)
	require.NoError(t, err)
	return "data: " + string(b)
}

// contents renders chunks as their content, with the terminal marker as [DONE].
func contents(chunks []Chunk) []string {
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if c.Done {
			out = append(out, doneSentinel)
			continue
		}
		out = append(out, c.Content)
	}
	return out
}

func collect(t *testing.T, seq iter.Seq2[Chunk, error]) ([]Chunk, error) {
	t.Helper()
	var out []Chunk
	for c, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, c)
	}
	return out, nil
}
