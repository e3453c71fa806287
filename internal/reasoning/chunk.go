package reasoning

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"strings"
)

const (
	// OpenMarker opens the reasoning block in rendered output.
	OpenMarker = "<think>"
	// CloseMarker closes the reasoning block in a stream. The blank line
	// separates the block from the answer.
	CloseMarker = "</think>\n\n"

	chunkObject   = "chat.completion.chunk"
	assistantRole = "assistant"
)

// Chunk is one outbound event. A chunk with Done set is the terminal marker
// and carries nothing else.
type Chunk struct {
	ID      string
	Model   string
	Created int64
	Content string
	Done    bool
}

func newChunk(id, model, content string, created int64) Chunk {
	return Chunk{ID: id, Model: model, Created: created, Content: content}
}

func terminalChunk() Chunk {
	return Chunk{Done: true}
}

// ChunkDelta mirrors the delta object of an outbound chunk.
type ChunkDelta struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

type ChunkChoice struct {
	Index        int        `json:"index"`
	Delta        ChunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

// ChunkPayload is the JSON body of an outbound data line.
type ChunkPayload struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
}

func (c Chunk) payload() ChunkPayload {
	return ChunkPayload{
		ID:      c.ID,
		Object:  chunkObject,
		Created: c.Created,
		Model:   c.Model,
		Choices: []ChunkChoice{{
			Index: 0,
			Delta: ChunkDelta{Content: c.Content, Role: assistantRole},
		}},
	}
}

// MarshalPayload returns the bare payload of a chunk: its JSON body, or the
// [DONE] sentinel for the terminal marker.
func MarshalPayload(c Chunk) ([]byte, error) {
	if c.Done {
		return []byte(doneSentinel), nil
	}
	body, err := json.Marshal(c.payload())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chunk: %w", err)
	}
	return body, nil
}

// EncodeChunk serializes a chunk into a complete SSE data line, including
// the blank line that terminates the event.
func EncodeChunk(c Chunk) ([]byte, error) {
	body, err := MarshalPayload(c)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Grow(len(dataField) + 1 + len(body) + 2)
	buf.WriteString(dataField)
	buf.WriteByte(' ')
	buf.Write(body)
	buf.WriteString("\n\n")
	return buf.Bytes(), nil
}

// DecodeChunk parses an encoded data line (or bare payload) back into a
// Chunk. Created is preserved as sent.
func DecodeChunk(line []byte) (Chunk, error) {
	payload := strings.TrimSpace(string(line))
	payload = strings.TrimPrefix(payload, dataField)
	payload = strings.TrimSpace(payload)
	if payload == doneSentinel {
		return terminalChunk(), nil
	}
	var p ChunkPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return Chunk{}, &DecodeError{Payload: payload, Err: err}
	}
	c := Chunk{ID: p.ID, Model: p.Model, Created: p.Created}
	if len(p.Choices) > 0 {
		c.Content = p.Choices[0].Delta.Content
	}
	return c, nil
}

// WriteChunks encodes every chunk of the sequence to w and returns how many
// were written. It stops at the first sequence or write error.
func WriteChunks(w io.Writer, chunks iter.Seq2[Chunk, error]) (int, error) {
	written := 0
	for c, err := range chunks {
		if err != nil {
			return written, err
		}
		line, err := EncodeChunk(c)
		if err != nil {
			return written, err
		}
		if _, err := w.Write(line); err != nil {
			return written, fmt.Errorf("failed to write chunk: %w", err)
		}
		written++
	}
	return written, nil
}
