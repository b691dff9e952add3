// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// Font size bounds. FontSize is an ordinal step, not a point size; the
// presentation layer maps it to whatever scale it uses.
const (
	FontSizeMin     = 1
	FontSizeMax     = 5
	DefaultFontSize = 2

	DefaultMaxTokens = 1024
)

// Settings holds user preferences persisted alongside conversations.
type Settings struct {
	FontSize     int  `json:"fontSize"`
	MaxTokens    int  `json:"maxTokens"`
	ShowThoughts bool `json:"showThoughts"`
}

// DefaultSettings returns the settings used for a fresh install.
func DefaultSettings() Settings {
	return Settings{
		FontSize:     DefaultFontSize,
		MaxTokens:    DefaultMaxTokens,
		ShowThoughts: false,
	}
}

// Normalize clamps out-of-range values back to usable ones. Fields that were
// absent in a loaded blob (zero values) fall back to defaults individually.
func (s *Settings) Normalize() {
	if s.FontSize < FontSizeMin || s.FontSize > FontSizeMax {
		s.FontSize = DefaultFontSize
	}
	if s.MaxTokens <= 0 {
		s.MaxTokens = DefaultMaxTokens
	}
}
