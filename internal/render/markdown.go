// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns assistant markdown into terminal output.
//
// The renderer is a collaborator, not core logic: callers hand it text once
// per redraw and once at finalization, and it owns whatever escaping its
// output medium needs. If the markdown engine cannot initialize, rendering
// degrades to pass-through rather than failing the conversation.
package render

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// Renderer maps markdown text to a displayable string.
type Renderer interface {
	Render(markdown string) string
}

// Markdown renders with glamour: ANSI styling, syntax-highlighted code
// blocks, wrapped prose.
type Markdown struct {
	tr   *glamour.TermRenderer
	wrap int
}

// NewMarkdown creates a terminal markdown renderer wrapping at width
// columns. Width <= 0 uses a sane default.
func NewMarkdown(width int) *Markdown {
	if width <= 0 {
		width = 80
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		// USABILITY: degrade to pass-through instead of refusing to start.
		tr = nil
	}
	return &Markdown{tr: tr, wrap: width}
}

// Render returns the styled text, or the input unchanged when the engine is
// unavailable or errors on this particular document.
func (m *Markdown) Render(markdown string) string {
	if m.tr == nil {
		return markdown
	}
	out, err := m.tr.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(out, "\n") + "\n"
}

// Plain passes text through untouched. Used for dumb terminals and as the
// streaming-placeholder renderer, where re-running a markdown engine per
// increment would be wasted work.
type Plain struct{}

func (Plain) Render(markdown string) string { return markdown }
