// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the plain line-mode chat interface.
//
// This is the fallback for terminals where the full-screen interface is
// unwelcome (dumb terminals, scripts, screen readers): a readline prompt,
// streamed output printed as it arrives, slash commands for everything the
// TUI binds to keys.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"golang.org/x/term"

	"github.com/Jhonatan1998P/chatbot/internal/api"
	"github.com/Jhonatan1998P/chatbot/internal/chat"
	"github.com/Jhonatan1998P/chatbot/internal/config"
	"github.com/Jhonatan1998P/chatbot/internal/format"
	"github.com/Jhonatan1998P/chatbot/internal/model"
	"github.com/Jhonatan1998P/chatbot/internal/render"
	"github.com/Jhonatan1998P/chatbot/internal/storage"
	"github.com/Jhonatan1998P/chatbot/internal/util"
)

// IsInteractive reports whether stdin is a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// REPL is the line-mode chat loop.
type REPL struct {
	store       *storage.Store
	orch        *chat.Orchestrator
	md          render.Renderer
	out         io.Writer
	line        *liner.State
	historyFile string
}

// NewREPL builds a REPL over an opened store and API client.
func NewREPL(store *storage.Store, client chat.Streamer, md render.Renderer) *REPL {
	r := &REPL{
		store: store,
		md:    md,
		out:   os.Stdout,
	}
	r.orch = chat.New(store, client, chat.Callbacks{
		OnIncrement: func(delta string) {
			// Stream straight to the terminal; the formatted version is
			// printed once the turn settles.
			fmt.Fprint(r.out, delta)
		},
	})

	r.line = liner.NewLiner()
	r.line.SetCtrlCAborts(true)

	configDir, err := config.Dir()
	if err != nil {
		configDir = os.TempDir()
	}
	r.historyFile = filepath.Join(configDir, "history")
	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}

	return r
}

// Close saves history and restores the terminal.
func (r *REPL) Close() {
	if f, err := os.Create(r.historyFile); err == nil {
		r.line.WriteHistory(f)
		f.Close()
	}
	r.line.Close()
}

// Run executes the loop until /quit or EOF.
func (r *REPL) Run(ctx context.Context) error {
	fmt.Fprintf(r.out, "chatbot — %s\n", r.activeTitle())
	fmt.Fprintln(r.out, "Type /help for commands.")

	for {
		input, err := r.line.Prompt("> ")
		if err != nil {
			// Ctrl-C abort and EOF are both a clean way out.
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		r.line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if quit := r.command(input); quit {
				return nil
			}
			continue
		}

		r.submit(ctx, input)
	}
}

func (r *REPL) submit(ctx context.Context, input string) {
	err := r.orch.Send(ctx, input)
	fmt.Fprintln(r.out)

	switch {
	case errors.Is(err, api.ErrNoAPIKey):
		fmt.Fprintln(r.out, "No API key configured. Set CHATBOT_API_KEY or api_key in the config file.")
		return
	case errors.Is(err, chat.ErrBusy):
		fmt.Fprintln(r.out, "Still responding, hang on.")
		return
	}

	// Success and failure both end with a committed assistant turn — the
	// reply on the happy path, the explanatory notice otherwise. Either
	// way it replaces the raw streamed text on screen, so a failure is
	// never silent.
	conv := r.store.Active()
	if conv != nil && len(conv.Turns) > 0 {
		last := conv.Turns[len(conv.Turns)-1]
		if last.Role == model.RoleAssistant {
			fmt.Fprintln(r.out, r.md.Render(r.visible(last.Content)))
		}
	}
}

func (r *REPL) visible(content string) string {
	if r.store.Settings().ShowThoughts {
		return content
	}
	return format.StripThoughts(content)
}

// command handles one slash command; returns true to quit.
func (r *REPL) command(input string) bool {
	fields := strings.Fields(input)
	arg := ""
	if len(fields) > 1 {
		arg = strings.TrimSpace(strings.TrimPrefix(input, fields[0]))
	}

	switch fields[0] {
	case "/quit", "/exit":
		return true

	case "/help":
		fmt.Fprintln(r.out, `Commands:
  /new              start a new conversation
  /list             list conversations (newest first)
  /switch <n>       switch to conversation n from /list
  /delete           delete the current conversation
  /delturn <n>      delete turn n of the current conversation
  /system [text]    show or set the system prompt
  /tokens <n>       set the reply token limit
  /thoughts         toggle thought visibility
  /quit             exit`)

	case "/new":
		if _, err := r.store.NewConversation(); err != nil {
			fmt.Fprintln(r.out, "error:", err)
			return false
		}
		fmt.Fprintln(r.out, "Started:", r.activeTitle())

	case "/list":
		active := r.store.ActiveID()
		for i, conv := range r.store.List() {
			marker := " "
			if conv.ID == active {
				marker = "*"
			}
			fmt.Fprintf(r.out, "%s %2d. %s\n", marker, i+1, util.TruncateWidth(conv.Title, 60))
		}

	case "/switch":
		n, err := strconv.Atoi(arg)
		list := r.store.List()
		if err != nil || n < 1 || n > len(list) {
			fmt.Fprintln(r.out, "usage: /switch <n> (see /list)")
			return false
		}
		if err := r.store.SetActive(list[n-1].ID); err != nil {
			fmt.Fprintln(r.out, "error:", err)
			return false
		}
		fmt.Fprintln(r.out, "Switched to:", r.activeTitle())

	case "/delete":
		if err := r.store.DeleteConversation(r.store.ActiveID()); err != nil {
			fmt.Fprintln(r.out, "error:", err)
			return false
		}
		fmt.Fprintln(r.out, "Deleted. Now on:", r.activeTitle())

	case "/delturn":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			fmt.Fprintln(r.out, "usage: /delturn <n> (1-based)")
			return false
		}
		if err := r.store.DeleteTurn(n - 1); err != nil {
			fmt.Fprintln(r.out, "error:", err)
		}

	case "/system":
		if arg == "" {
			conv := r.store.Active()
			if conv != nil {
				fmt.Fprintln(r.out, conv.SystemPrompt)
			}
			return false
		}
		if err := r.store.SetSystemPrompt(arg); err != nil {
			fmt.Fprintln(r.out, "error:", err)
		}

	case "/tokens":
		n, err := strconv.Atoi(arg)
		if err != nil || n <= 0 {
			fmt.Fprintln(r.out, "usage: /tokens <positive integer>")
			return false
		}
		if err := r.store.UpdateSettings(func(s *model.Settings) { s.MaxTokens = n }); err != nil {
			fmt.Fprintln(r.out, "error:", err)
		}

	case "/thoughts":
		var now bool
		if err := r.store.UpdateSettings(func(s *model.Settings) {
			s.ShowThoughts = !s.ShowThoughts
			now = s.ShowThoughts
		}); err != nil {
			fmt.Fprintln(r.out, "error:", err)
			return false
		}
		fmt.Fprintln(r.out, "Thoughts visible:", now)

	default:
		fmt.Fprintln(r.out, "Unknown command. Try /help.")
	}
	return false
}

func (r *REPL) activeTitle() string {
	conv := r.store.Active()
	if conv == nil {
		return "(no conversation)"
	}
	return conv.Title
}
