// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package format post-processes completed assistant responses for display.
//
// Formatting is applied exactly once, after the stream settles, never to
// partial text. Format is pure and idempotent: running it over its own
// output changes nothing, so re-rendering a stored conversation is safe.
package format

import (
	"regexp"
	"strings"
)

// Bullet is the glyph every list marker is normalized to.
const Bullet = "•"

var (
	// fencedBlock matches a complete ``` ... ``` block, non-greedy, so two
	// blocks in one response never merge into one span.
	fencedBlock = regexp.MustCompile("(?s)```.*?```")

	// listMarker matches *, - or N. markers at the start of a line.
	listMarker = regexp.MustCompile(`^(\s*)([*-]|\d+\.)\s+`)

	// tableLine matches a markdown table row (a line beginning with |).
	tableLine = regexp.MustCompile(`^\s*\|`)

	// thinkBlock matches a reasoning span emitted by thinking models.
	thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)
)

// StripThoughts removes <think>...</think> reasoning spans. The presentation
// layer calls this when the user has thought visibility turned off; stored
// content keeps the spans so the setting stays reversible.
func StripThoughts(text string) string {
	return strings.TrimSpace(thinkBlock.ReplaceAllString(text, ""))
}

// Format normalizes a completed response:
//
//   - fenced code blocks and pipe tables pass through byte-identical,
//     interior whitespace included
//   - *, - and N. list markers become the bullet glyph
//   - every run of line breaks collapses to a single paragraph break
//
// An unterminated fence is treated as ordinary text.
func Format(text string) string {
	var blocks []string

	rest := text
	for {
		loc := fencedBlock.FindStringIndex(rest)
		if loc == nil {
			blocks = append(blocks, proseBlocks(rest)...)
			break
		}
		blocks = append(blocks, proseBlocks(rest[:loc[0]])...)
		blocks = append(blocks, rest[loc[0]:loc[1]])
		rest = rest[loc[1]:]
	}

	return strings.Join(blocks, "\n\n")
}

// proseBlocks splits non-fenced text into display blocks: table runs are
// kept verbatim, everything else becomes one block per line with list
// markers normalized. Blank lines vanish, which is what collapses runs of
// line breaks into single paragraph breaks.
func proseBlocks(text string) []string {
	if text == "" {
		return nil
	}

	var blocks []string
	var table []string

	flushTable := func() {
		if len(table) == 0 {
			return
		}
		if len(table) >= 2 {
			// A real table: at least header plus separator or row.
			blocks = append(blocks, strings.Join(table, "\n"))
		} else {
			// A lone pipe line is prose, not a table.
			blocks = append(blocks, normalizeLine(table[0]))
		}
		table = nil
	}

	for _, line := range strings.Split(text, "\n") {
		if tableLine.MatchString(line) {
			table = append(table, line)
			continue
		}
		flushTable()
		if strings.TrimSpace(line) == "" {
			continue
		}
		blocks = append(blocks, normalizeLine(line))
	}
	flushTable()
	return blocks
}

// normalizeLine rewrites a leading list marker to the bullet glyph.
func normalizeLine(line string) string {
	trimmed := strings.TrimRight(line, " \t")
	if m := listMarker.FindStringSubmatch(trimmed); m != nil {
		return m[1] + Bullet + " " + trimmed[len(m[0]):]
	}
	return trimmed
}
