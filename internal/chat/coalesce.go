// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"sync"
	"time"
)

// Coalescer batches streamed increments for rendering. Increments accumulate
// and are released either when enough of them pile up or when enough time
// has passed since the last release, so a fast stream doesn't force a redraw
// per token.
//
// Coalescing is purely a performance accommodation: every increment still
// reaches the caller, just possibly glued to its neighbors. Write happens on
// the streaming goroutine, Flush on the render loop, so everything is
// mutex-guarded.
type Coalescer struct {
	mu        sync.Mutex
	buf       strings.Builder
	count     int
	lastFlush time.Time

	batchSize  int
	flushEvery time.Duration
}

const (
	// defaultBatchSize releases a batch once this many increments queue up.
	defaultBatchSize = 15

	// defaultFlushEvery caps the redraw rate at roughly 30fps.
	defaultFlushEvery = 33 * time.Millisecond
)

// NewCoalescer creates a coalescer with the default batching thresholds.
func NewCoalescer() *Coalescer {
	return &Coalescer{
		batchSize:  defaultBatchSize,
		flushEvery: defaultFlushEvery,
		lastFlush:  time.Now(),
	}
}

// Write queues one increment.
func (c *Coalescer) Write(delta string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf.WriteString(delta)
	c.count++
}

// Flush returns the queued text when a threshold has been crossed. It
// returns ok=false when nothing is queued or neither threshold is due.
func (c *Coalescer) Flush() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.buf.Len() == 0 {
		return "", false
	}
	if c.count < c.batchSize && time.Since(c.lastFlush) < c.flushEvery {
		return "", false
	}
	return c.takeLocked(), true
}

// ForceFlush returns everything queued regardless of thresholds. Call when
// the stream settles so no tail is left unrendered.
func (c *Coalescer) ForceFlush() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.buf.Len() == 0 {
		return "", false
	}
	return c.takeLocked(), true
}

// Reset discards anything queued. Call before a new submission.
func (c *Coalescer) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf.Reset()
	c.count = 0
	c.lastFlush = time.Now()
}

// Pending returns how many increments are queued.
func (c *Coalescer) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func (c *Coalescer) takeLocked() string {
	out := c.buf.String()
	c.buf.Reset()
	c.count = 0
	c.lastFlush = time.Now()
	return out
}
