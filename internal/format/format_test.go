// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package format

import (
	"strings"
	"testing"
)

func TestFormat_ListMarkers(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"star", "* first", "• first"},
		{"dash", "- first", "• first"},
		{"numbered", "1. first", "• first"},
		{"double digit", "12. twelfth", "• twelfth"},
		{"indented keeps indent", "  - nested", "  • nested"},
		{"already bullet untouched", "• done", "• done"},
		{"emphasis is not a marker", "*bold* text", "*bold* text"},
		{"dash without space is prose", "-dash", "-dash"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.input); got != tt.want {
				t.Errorf("Format(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormat_LineBreaksBecomeParagraphBreaks(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"single break", "one\ntwo", "one\n\ntwo"},
		{"blank run collapses", "one\n\n\n\ntwo", "one\n\ntwo"},
		{"list items separate", "* a\n* b", "• a\n\n• b"},
		{"trailing breaks dropped", "one\n\n", "one"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.input); got != tt.want {
				t.Errorf("Format(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormat_FencedCodeIsProtected(t *testing.T) {
	code := "```go\nfunc main() {\n\n\tfmt.Println(\"* not a list\")\n}\n```"
	input := "Look:\n" + code + "\nDone."

	got := Format(input)
	if !strings.Contains(got, code) {
		t.Errorf("Fenced block was altered:\n%s", got)
	}
	if !strings.Contains(got, "Look:") || !strings.Contains(got, "Done.") {
		t.Errorf("Surrounding prose lost:\n%s", got)
	}
}

func TestFormat_TwoFencesStaySeparate(t *testing.T) {
	input := "```\na\n```\nmiddle\n```\nb\n```"
	got := Format(input)

	if !strings.Contains(got, "```\na\n```") || !strings.Contains(got, "```\nb\n```") {
		t.Errorf("Blocks merged or altered:\n%s", got)
	}
	if !strings.Contains(got, "middle") {
		t.Errorf("Prose between fences lost:\n%s", got)
	}
}

func TestFormat_UnterminatedFenceIsProse(t *testing.T) {
	input := "```go\n* item"
	got := Format(input)

	// No closing fence, so the marker line is ordinary text and the list
	// item still normalizes.
	if !strings.Contains(got, "• item") {
		t.Errorf("Format(%q) = %q", input, got)
	}
}

func TestFormat_TableIsProtected(t *testing.T) {
	table := "| Name | Value |\n| --- | --- |\n| a | 1 |"
	input := "Results:\n" + table + "\nThat's all."

	got := Format(input)
	if !strings.Contains(got, table) {
		t.Errorf("Table was altered:\n%s", got)
	}
}

func TestFormat_LonePipeLineIsProse(t *testing.T) {
	input := "| just one pipe line"
	if got := Format(input); got != "| just one pipe line" {
		t.Errorf("Format(%q) = %q", input, got)
	}
}

func TestFormat_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"plain text",
		"* a\n* b\n\n1. c",
		"para one\n\n\npara two\nthree",
		"```python\nif x:\n    pass\n```",
		"mix\n* item\n```\n* protected\n```\n| a | b |\n| - | - |\nend",
		"| a | b |\n| - | - |\n| 1 | 2 |",
		"unicode • and 日本語\n- リスト",
	}

	for _, input := range inputs {
		once := Format(input)
		twice := Format(once)
		if once != twice {
			t.Errorf("Not idempotent for %q:\n once: %q\ntwice: %q", input, once, twice)
		}
	}
}

func TestStripThoughts(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no span", "plain answer", "plain answer"},
		{"leading span", "<think>hmm, tricky</think>\n\nThe answer is 4.", "The answer is 4."},
		{"multiline span", "<think>line one\nline two</think>result", "result"},
		{"unclosed span kept", "<think>never closed", "<think>never closed"},
		{"two spans", "<think>a</think>x<think>b</think>y", "xy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripThoughts(tt.input); got != tt.want {
				t.Errorf("StripThoughts(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormat_Empty(t *testing.T) {
	if got := Format(""); got != "" {
		t.Errorf("Format(\"\") = %q", got)
	}
	if got := Format("\n\n  \n"); got != "" {
		t.Errorf("Format(whitespace) = %q", got)
	}
}
