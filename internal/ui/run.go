// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Jhonatan1998P/chatbot/internal/chat"
	"github.com/Jhonatan1998P/chatbot/internal/model"
	"github.com/Jhonatan1998P/chatbot/internal/render"
	"github.com/Jhonatan1998P/chatbot/internal/storage"
)

// The orchestrator invokes callbacks on its own goroutine; they reach the
// Bubble Tea loop through the program reference below.
var (
	programRef *tea.Program
	programMu  sync.Mutex
)

func send(msg tea.Msg) {
	programMu.Lock()
	p := programRef
	programMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// Run wires the orchestrator to the chat screen and blocks until the user
// quits.
func Run(store *storage.Store, client chat.Streamer, md render.Renderer) error {
	coalescer := chat.NewCoalescer()

	orch := chat.New(store, client, chat.Callbacks{
		OnState: func(s chat.State) {
			send(StreamStateMsg{State: s})
		},
		OnIncrement: func(delta string) {
			// Queued only; the tick loop drains at a sane frame rate.
			coalescer.Write(delta)
		},
		OnTitle: func(title string) {
			send(TitleChangedMsg{Title: title})
		},
		OnFinal: func(turn model.Turn) {
			send(StreamFinalMsg{Turn: turn})
		},
	})

	m := NewModel(store, orch, md, coalescer)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	programMu.Lock()
	programRef = p
	programMu.Unlock()
	defer func() {
		programMu.Lock()
		programRef = nil
		programMu.Unlock()
	}()

	_, err := p.Run()
	return err
}
