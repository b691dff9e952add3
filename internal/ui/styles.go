// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui implements the interactive chat terminal interface.
package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styles for the chat screen, adjusted to the terminal's
// color capability.
type Theme struct {
	HasTrueColor bool
	IsDark       bool

	Title       lipgloss.Style
	Sidebar     lipgloss.Style
	SidebarItem lipgloss.Style
	SidebarSel  lipgloss.Style
	UserLabel   lipgloss.Style
	BotLabel    lipgloss.Style
	ErrorText   lipgloss.Style
	StatusBar   lipgloss.Style
	HelpText    lipgloss.Style
	InputBox    lipgloss.Style
}

// NewTheme detects terminal capabilities and builds the style set.
func NewTheme() *Theme {
	profile := termenv.ColorProfile()
	t := &Theme{
		HasTrueColor: profile == termenv.TrueColor,
		IsDark:       termenv.HasDarkBackground(),
	}

	accent := lipgloss.Color("12")
	muted := lipgloss.Color("8")
	if t.HasTrueColor {
		accent = lipgloss.Color("#7aa2f7")
		muted = lipgloss.Color("#565f89")
	}

	t.Title = lipgloss.NewStyle().Bold(true).Foreground(accent)
	t.Sidebar = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, true, false, false).
		BorderForeground(muted).
		PaddingRight(1)
	t.SidebarItem = lipgloss.NewStyle().Foreground(muted)
	t.SidebarSel = lipgloss.NewStyle().Bold(true).Foreground(accent)
	t.UserLabel = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	t.BotLabel = lipgloss.NewStyle().Bold(true).Foreground(accent)
	t.ErrorText = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	t.StatusBar = lipgloss.NewStyle().Foreground(muted)
	t.HelpText = lipgloss.NewStyle().Foreground(muted)
	t.InputBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(muted).
		Padding(0, 1)

	return t
}
