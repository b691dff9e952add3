// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"encoding/json"
	"log"
	"strings"
)

// STREAMING: Robust SSE parsing with per-frame error recovery

// eventDelimiter separates SSE events. It is pure ASCII, so scanning for it
// never lands inside a multi-byte UTF-8 sequence; a rune split across two
// network chunks simply stays buffered until its event completes.
var eventDelimiter = []byte("\n\n")

// doneSentinel is the payload that marks the end of the stream.
const doneSentinel = "[DONE]"

// streamChunk is one decoded SSE payload.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// content returns the first choice's delta content.
func (c *streamChunk) content() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].Delta.Content
	}
	return ""
}

// DeltaFunc receives one content increment per decoded frame.
type DeltaFunc func(delta string)

// Logf is the decoder's logging hook.
type Logf func(format string, args ...any)

// Decoder incrementally parses an SSE chat-completion stream from raw byte
// chunks. Chunk boundaries are arbitrary: an event, or a single multi-byte
// character, may arrive split across any number of chunks.
//
// A frame that fails to parse is logged and skipped; decoding continues with
// the next frame. Only the transport can abort a stream.
type Decoder struct {
	buf     bytes.Buffer
	acc     strings.Builder
	done    bool
	skipped int
	onDelta DeltaFunc
	logf    Logf
}

// NewDecoder creates a decoder. onDelta may be nil when the caller only
// wants the accumulated text.
func NewDecoder(onDelta DeltaFunc) *Decoder {
	return &Decoder{
		onDelta: onDelta,
		logf:    log.Printf,
	}
}

// SetLogf replaces the logger used for skipped frames.
func (d *Decoder) SetLogf(logf Logf) {
	if logf != nil {
		d.logf = logf
	}
}

// Feed consumes one raw chunk, emitting a delta callback for every complete
// frame it finishes.
func (d *Decoder) Feed(chunk []byte) {
	d.buf.Write(chunk)
	for {
		raw := d.buf.Bytes()
		idx := bytes.Index(raw, eventDelimiter)
		if idx < 0 {
			return
		}
		event := make([]byte, idx)
		copy(event, raw[:idx])
		d.buf.Next(idx + len(eventDelimiter))
		d.processEvent(event)
	}
}

// Flush processes any trailing event that arrived without a final
// delimiter. Call once at end of stream.
func (d *Decoder) Flush() {
	if d.buf.Len() == 0 {
		return
	}
	event := make([]byte, d.buf.Len())
	copy(event, d.buf.Bytes())
	d.buf.Reset()
	d.processEvent(event)
}

// processEvent handles one blank-line-delimited SSE event, which may span
// several data lines.
func (d *Decoder) processEvent(event []byte) {
	if d.done {
		return
	}
	for _, line := range bytes.Split(event, []byte("\n")) {
		line = bytes.TrimRight(line, "\r")
		if !bytes.HasPrefix(line, []byte("data:")) {
			// Comments, id:, retry: and anything else are ignored.
			continue
		}
		payload := bytes.TrimPrefix(line, []byte("data:"))
		payload = bytes.TrimSpace(payload)
		if len(payload) == 0 {
			continue
		}

		if string(payload) == doneSentinel {
			d.done = true
			return
		}

		var chunk streamChunk
		if err := json.Unmarshal(payload, &chunk); err != nil {
			// A malformed frame never kills the stream.
			d.skipped++
			d.logf("stream: skipping malformed frame: %v", err)
			continue
		}
		if delta := chunk.content(); delta != "" {
			d.acc.WriteString(delta)
			if d.onDelta != nil {
				d.onDelta(delta)
			}
		}
	}
}

// Done reports whether the terminal sentinel has been seen.
func (d *Decoder) Done() bool { return d.done }

// Skipped returns how many malformed frames were dropped.
func (d *Decoder) Skipped() int { return d.skipped }

// Text returns everything accumulated so far.
func (d *Decoder) Text() string { return d.acc.String() }
