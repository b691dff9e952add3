// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Jhonatan1998P/chatbot/internal/chat"
	"github.com/Jhonatan1998P/chatbot/internal/model"
)

// Messages bridging the orchestrator's callback goroutine into the Bubble
// Tea loop. The orchestrator never touches the UI directly; everything
// arrives through program.Send.

// StreamStateMsg reports an orchestrator phase change.
type StreamStateMsg struct {
	State chat.State
}

// StreamTickMsg drives coalesced redraws while streaming.
type StreamTickMsg struct {
	Time time.Time
}

// StreamFinalMsg carries the committed assistant turn.
type StreamFinalMsg struct {
	Turn model.Turn
}

// TitleChangedMsg reports a conversation naming itself.
type TitleChangedMsg struct {
	Title string
}

// SubmitErrorMsg carries a submission failure that produced no turn
// (configuration errors, double submits).
type SubmitErrorMsg struct {
	Err error
}

// streamTickCmd schedules the next coalesced redraw at ~30fps.
func streamTickCmd() tea.Cmd {
	return tea.Tick(33*time.Millisecond, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}
