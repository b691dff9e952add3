// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
)

// The full markdown renderer only runs once the stream settles; re-running
// it per increment is too slow and makes half-open markdown flicker. The
// live view instead highlights just the fenced code, which reads well even
// while a block is still open.

// highlightFences returns text with complete fenced code blocks syntax
// highlighted for the terminal. Prose and unterminated fences pass through.
func highlightFences(text string) string {
	var out strings.Builder
	rest := text
	for {
		open := strings.Index(rest, "```")
		if open < 0 {
			out.WriteString(rest)
			return out.String()
		}
		after := rest[open+3:]
		nl := strings.Index(after, "\n")
		if nl < 0 {
			out.WriteString(rest)
			return out.String()
		}
		lang := strings.TrimSpace(after[:nl])
		body := after[nl+1:]
		closing := strings.Index(body, "```")
		if closing < 0 {
			// Block still streaming in; leave it raw.
			out.WriteString(rest)
			return out.String()
		}

		out.WriteString(rest[:open])
		out.WriteString(highlightCode(body[:closing], lang))
		rest = body[closing+3:]
	}
}

// highlightCode renders one code snippet with ANSI colors, falling back to
// the raw code when highlighting fails.
func highlightCode(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var sb strings.Builder
	if err := formatter.Format(&sb, style, iterator); err != nil {
		return code
	}
	return sb.String()
}
