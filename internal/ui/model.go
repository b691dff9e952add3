// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Jhonatan1998P/chatbot/internal/chat"
	"github.com/Jhonatan1998P/chatbot/internal/format"
	"github.com/Jhonatan1998P/chatbot/internal/model"
	"github.com/Jhonatan1998P/chatbot/internal/render"
	"github.com/Jhonatan1998P/chatbot/internal/storage"
	"github.com/Jhonatan1998P/chatbot/internal/util"
)

const sidebarWidth = 24

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	store *storage.Store
	orch  *chat.Orchestrator
	md    render.Renderer
	theme *Theme

	viewport viewport.Model
	input    textinput.Model
	spin     spinner.Model

	coalescer  *chat.Coalescer
	streamText strings.Builder
	transcript string
	state      chat.State
	notice     string

	width  int
	height int
	ready  bool
}

// NewModel builds the chat screen over an already-opened store.
func NewModel(store *storage.Store, orch *chat.Orchestrator, md render.Renderer, coalescer *chat.Coalescer) *Model {
	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.Prompt = "> "
	input.CharLimit = 0
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	m := &Model{
		store:     store,
		orch:      orch,
		md:        md,
		theme:     NewTheme(),
		input:     input,
		spin:      spin,
		coalescer: coalescer,
		state:     chat.StateIdle,
	}
	m.rebuildTranscript()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StreamStateMsg:
		return m.handleState(msg.State)

	case StreamTickMsg:
		if text, ok := m.coalescer.Flush(); ok {
			m.streamText.WriteString(text)
			m.refreshViewport()
		}
		if m.state == chat.StateSending || m.state == chat.StateStreaming {
			return m, streamTickCmd()
		}
		return m, nil

	case StreamFinalMsg:
		// The turn is committed; everything renders from the store now.
		m.coalescer.Reset()
		m.streamText.Reset()
		m.rebuildTranscript()
		m.viewport.GotoBottom()
		return m, nil

	case TitleChangedMsg:
		// Sidebar reads titles from the store on every View.
		return m, nil

	case SubmitErrorMsg:
		m.notice = msg.Err.Error()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		if m.state != chat.StateIdle {
			return m, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "enter":
		return m, m.submit()

	case "ctrl+n":
		if m.orch.Busy() {
			return m, nil
		}
		if _, err := m.store.NewConversation(); err != nil {
			m.notice = err.Error()
		}
		m.rebuildTranscript()
		return m, nil

	case "ctrl+d":
		if m.orch.Busy() {
			return m, nil
		}
		if err := m.store.DeleteConversation(m.store.ActiveID()); err != nil {
			m.notice = err.Error()
		}
		m.rebuildTranscript()
		return m, nil

	case "ctrl+j", "ctrl+k":
		if m.orch.Busy() {
			return m, nil
		}
		m.cycleConversation(msg.String() == "ctrl+j")
		return m, nil

	case "ctrl+t":
		if err := m.store.UpdateSettings(func(s *model.Settings) {
			s.ShowThoughts = !s.ShowThoughts
		}); err != nil {
			m.notice = err.Error()
		}
		m.rebuildTranscript()
		return m, nil

	case "ctrl+f":
		if err := m.store.UpdateSettings(func(s *model.Settings) {
			s.FontSize++
			if s.FontSize > model.FontSizeMax {
				s.FontSize = model.FontSizeMin
			}
		}); err != nil {
			m.notice = err.Error()
		}
		m.rebuildTranscript()
		return m, nil

	case "pgup", "pgdown", "up", "down":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit launches one submission cycle on its own goroutine; results come
// back as messages.
func (m *Model) submit() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return nil
	}
	if m.orch.Busy() {
		m.notice = "still responding, hang on"
		return nil
	}
	m.input.Reset()
	m.notice = ""

	// Reset before Send starts: the streaming goroutine writes increments
	// straight into the coalescer, so resetting later (on the queued state
	// message) could drop leading deltas from the live view.
	m.coalescer.Reset()
	m.streamText.Reset()

	go func() {
		if err := m.orch.Send(context.Background(), text); err != nil {
			send(SubmitErrorMsg{Err: err})
		}
	}()
	return m.spin.Tick
}

func (m *Model) handleState(s chat.State) (tea.Model, tea.Cmd) {
	m.state = s
	switch s {
	case chat.StateSending:
		// The user turn is in the store by now. The coalescer was already
		// reset in submit, before the streaming goroutine started.
		m.rebuildTranscript()
		return m, tea.Batch(m.spin.Tick, streamTickCmd())
	case chat.StateIdle:
		m.refreshViewport()
	}
	return m, nil
}

func (m *Model) cycleConversation(next bool) {
	list := m.store.List()
	if len(list) < 2 {
		return
	}
	active := m.store.ActiveID()
	idx := 0
	for i, conv := range list {
		if conv.ID == active {
			idx = i
			break
		}
	}
	if next {
		idx = (idx + 1) % len(list)
	} else {
		idx = (idx - 1 + len(list)) % len(list)
	}
	if err := m.store.SetActive(list[idx].ID); err != nil {
		m.notice = err.Error()
	}
	m.rebuildTranscript()
}

func (m *Model) layout() {
	mainWidth := m.width - sidebarWidth - 2
	if mainWidth < 20 {
		mainWidth = 20
	}
	vpHeight := m.height - 6
	if vpHeight < 3 {
		vpHeight = 3
	}
	if !m.ready {
		m.viewport = viewport.New(mainWidth, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = mainWidth
		m.viewport.Height = vpHeight
	}
	m.input.Width = mainWidth - 6
	m.refreshViewport()
}

// rebuildTranscript re-renders the active conversation from the store.
func (m *Model) rebuildTranscript() {
	conv := m.store.Active()
	if conv == nil {
		m.transcript = ""
		m.refreshViewport()
		return
	}
	settings := m.store.Settings()
	gap := "\n\n"
	if settings.FontSize >= 4 {
		gap = "\n\n\n"
	}

	var sb strings.Builder
	for i, turn := range conv.Turns {
		if i > 0 {
			sb.WriteString(gap)
		}
		if turn.Role == model.RoleUser {
			sb.WriteString(m.theme.UserLabel.Render("You"))
			sb.WriteString("\n")
			sb.WriteString(turn.Content)
			continue
		}
		sb.WriteString(m.theme.BotLabel.Render("Bot"))
		sb.WriteString("\n")
		content := turn.Content
		if !settings.ShowThoughts {
			content = format.StripThoughts(content)
		}
		sb.WriteString(m.md.Render(content))
	}
	m.transcript = sb.String()
	m.refreshViewport()
	m.viewport.GotoBottom()
}

// refreshViewport recomposes transcript plus any live streaming tail.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	content := m.transcript
	if m.streamText.Len() > 0 {
		if content != "" {
			content += "\n\n"
		}
		content += m.theme.BotLabel.Render("Bot") + "\n" + highlightFences(m.streamText.String())
	}
	m.viewport.SetContent(content)
	m.viewport.GotoBottom()
}

// View implements tea.Model.
func (m *Model) View() string {
	if !m.ready {
		return "loading..."
	}

	sidebar := m.renderSidebar()
	main := lipgloss.JoinVertical(lipgloss.Left,
		m.renderTitle(),
		m.viewport.View(),
		m.theme.InputBox.Render(m.input.View()),
		m.renderStatus(),
	)
	return lipgloss.JoinHorizontal(lipgloss.Top, m.theme.Sidebar.Render(sidebar), main)
}

func (m *Model) renderTitle() string {
	conv := m.store.Active()
	title := ""
	if conv != nil {
		title = conv.Title
	}
	return m.theme.Title.Render(util.TruncateWidth(title, m.viewport.Width))
}

func (m *Model) renderSidebar() string {
	active := m.store.ActiveID()
	var lines []string
	lines = append(lines, m.theme.Title.Render("Chats"), "")
	for _, conv := range m.store.List() {
		label := util.TruncateWidth(conv.Title, sidebarWidth-3)
		if conv.ID == active {
			lines = append(lines, m.theme.SidebarSel.Render("▸ "+label))
		} else {
			lines = append(lines, m.theme.SidebarItem.Render("  "+label))
		}
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderStatus() string {
	if m.notice != "" {
		return m.theme.ErrorText.Render(m.notice)
	}
	if m.state != chat.StateIdle {
		return m.theme.StatusBar.Render(fmt.Sprintf("%s %s", m.spin.View(), m.state))
	}
	return m.theme.HelpText.Render("enter send · ^N new · ^D delete · ^J/^K switch · ^T thoughts · ^F size · ^C quit")
}
