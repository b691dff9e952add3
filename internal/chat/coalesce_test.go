// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestCoalescer_EmptyNeverFlushes(t *testing.T) {
	c := NewCoalescer()

	if _, ok := c.Flush(); ok {
		t.Error("Empty coalescer flushed")
	}
	if _, ok := c.ForceFlush(); ok {
		t.Error("Empty coalescer force-flushed")
	}
}

func TestCoalescer_BatchSizeThreshold(t *testing.T) {
	c := NewCoalescer()
	c.lastFlush = time.Now() // time threshold not due

	for i := 0; i < defaultBatchSize-1; i++ {
		c.Write("x")
	}
	c.lastFlush = time.Now() // keep the check deterministic on slow runners
	if _, ok := c.Flush(); ok {
		t.Fatal("Flushed below batch size")
	}

	c.Write("x")
	got, ok := c.Flush()
	if !ok {
		t.Fatal("Expected flush at batch size")
	}
	if len(got) != defaultBatchSize {
		t.Errorf("Flushed %d chars, want %d", len(got), defaultBatchSize)
	}
	if c.Pending() != 0 {
		t.Errorf("Pending = %d after flush", c.Pending())
	}
}

func TestCoalescer_TimeThreshold(t *testing.T) {
	c := NewCoalescer()
	c.Write("one")
	c.lastFlush = time.Now().Add(-defaultFlushEvery * 2)

	got, ok := c.Flush()
	if !ok {
		t.Fatal("Expected time-based flush")
	}
	if got != "one" {
		t.Errorf("Flush = %q", got)
	}
}

func TestCoalescer_ForceFlushIgnoresThresholds(t *testing.T) {
	c := NewCoalescer()
	c.Write("tail")

	got, ok := c.ForceFlush()
	if !ok || got != "tail" {
		t.Errorf("ForceFlush = %q, %v", got, ok)
	}
}

func TestCoalescer_PreservesOrder(t *testing.T) {
	c := NewCoalescer()
	want := ""
	for i := 0; i < 40; i++ {
		s := fmt.Sprintf("[%d]", i)
		c.Write(s)
		want += s
	}

	all := ""
	if got, ok := c.Flush(); ok {
		all += got
	}
	if got, ok := c.ForceFlush(); ok {
		all += got
	}
	if all != want {
		t.Errorf("Reassembled %q, want %q", all, want)
	}
}

func TestCoalescer_Reset(t *testing.T) {
	c := NewCoalescer()
	c.Write("discard me")
	c.Reset()

	if _, ok := c.ForceFlush(); ok {
		t.Error("Content survived Reset")
	}
}

func TestCoalescer_ConcurrentWrites(t *testing.T) {
	c := NewCoalescer()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Write("a")
			}
		}()
	}
	wg.Wait()

	got, ok := c.ForceFlush()
	if !ok || len(got) != 800 {
		t.Errorf("ForceFlush len = %d, want 800", len(got))
	}
}
