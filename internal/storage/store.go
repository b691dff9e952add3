// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Jhonatan1998P/chatbot/internal/model"
)

// StateKey is the KV key holding the whole chat state blob.
const StateKey = "chatbot-state"

// state is the persisted shape: every mutation rewrites this one document.
type state struct {
	Chats    map[string]*model.Conversation `json:"chats"`
	ActiveID string                         `json:"activeChatId"`
	Settings model.Settings                 `json:"settings"`
}

// StoreError wraps a failed store operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Store owns all conversations, the active-conversation pointer, and user
// settings, writing the whole state through to its KV after every mutation.
//
// Mutating methods are safe for concurrent use. Accessors return live
// pointers; treat them as read-only snapshots.
type Store struct {
	mu  sync.Mutex
	kv  KV
	st  state
	now func() time.Time
}

// Open loads state from kv, filling defaults for anything missing, and
// guarantees at least one conversation exists with the active pointer
// resolving to it.
func Open(kv KV) (*Store, error) {
	s := &Store{
		kv:  kv,
		now: time.Now,
		st: state{
			Chats:    make(map[string]*model.Conversation),
			Settings: model.DefaultSettings(),
		},
	}

	data, found, err := kv.Get(StateKey)
	if err != nil {
		return nil, &StoreError{Op: "load", Err: err}
	}
	if found {
		// A corrupt blob is unrecoverable; surface it rather than
		// silently discarding the user's history.
		if err := json.Unmarshal(data, &s.st); err != nil {
			return nil, &StoreError{Op: "load", Err: err}
		}
	}

	s.normalize()
	if err := s.persist("load"); err != nil {
		return nil, err
	}
	return s, nil
}

// normalize restores the structural invariants after a load: non-nil maps
// and slices, in-range settings, and a resolvable active pointer.
func (s *Store) normalize() {
	if s.st.Chats == nil {
		s.st.Chats = make(map[string]*model.Conversation)
	}
	for id, conv := range s.st.Chats {
		if conv == nil {
			delete(s.st.Chats, id)
			continue
		}
		conv.ID = id
		if conv.Turns == nil {
			conv.Turns = []model.Turn{}
		}
		if conv.Title == "" {
			conv.Title = model.DefaultTitle
		}
		if conv.SystemPrompt == "" {
			conv.SystemPrompt = model.DefaultSystemPrompt
		}
	}
	s.st.Settings.Normalize()

	if len(s.st.Chats) == 0 {
		conv := s.newConversationLocked()
		s.st.Chats[conv.ID] = conv
		s.st.ActiveID = conv.ID
		return
	}
	if _, ok := s.st.Chats[s.st.ActiveID]; !ok {
		s.st.ActiveID = s.newestIDLocked()
	}
}

func (s *Store) persist(op string) error {
	data, err := json.MarshalIndent(&s.st, "", "  ")
	if err != nil {
		return &StoreError{Op: op, Err: err}
	}
	if err := s.kv.Set(StateKey, data); err != nil {
		return &StoreError{Op: op, Err: err}
	}
	return nil
}

// newConversationLocked creates a conversation whose ID does not collide
// with any existing one, bumping the embedded timestamp if two are created
// within the same millisecond.
func (s *Store) newConversationLocked() *model.Conversation {
	at := s.now()
	conv := model.NewConversation(at)
	for _, exists := s.st.Chats[conv.ID]; exists; _, exists = s.st.Chats[conv.ID] {
		at = at.Add(time.Millisecond)
		conv = model.NewConversation(at)
	}
	return conv
}

// newestIDLocked returns the most recently created conversation ID, or ""
// when no conversations exist.
func (s *Store) newestIDLocked() string {
	newest := ""
	var newestAt time.Time
	for id := range s.st.Chats {
		at := model.CreatedAt(id)
		if newest == "" || at.After(newestAt) || (at.Equal(newestAt) && id > newest) {
			newest = id
			newestAt = at
		}
	}
	return newest
}

// ============================================================================
// CONVERSATION OPERATIONS
// ============================================================================

// NewConversation creates an empty conversation, makes it active, and
// persists. The new conversation's ID is returned.
func (s *Store) NewConversation() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.newConversationLocked()
	s.st.Chats[conv.ID] = conv
	s.st.ActiveID = conv.ID
	if err := s.persist("new conversation"); err != nil {
		return "", err
	}
	return conv.ID, nil
}

// DeleteConversation removes a conversation. Deleting the active one
// reselects the newest remaining; deleting the last one creates a fresh
// conversation so the store is never empty. Unknown IDs are a no-op.
func (s *Store) DeleteConversation(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.st.Chats[id]; !ok {
		return nil
	}
	delete(s.st.Chats, id)

	if len(s.st.Chats) == 0 {
		conv := s.newConversationLocked()
		s.st.Chats[conv.ID] = conv
		s.st.ActiveID = conv.ID
	} else if s.st.ActiveID == id {
		s.st.ActiveID = s.newestIDLocked()
	}
	return s.persist("delete conversation")
}

// SetActive switches the active conversation. An unknown or empty ID
// resolves to the newest existing conversation.
func (s *Store) SetActive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.st.Chats[id]; ok {
		s.st.ActiveID = id
	} else {
		s.st.ActiveID = s.newestIDLocked()
	}
	return s.persist("set active")
}

// ActiveID returns the current active conversation ID.
func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.ActiveID
}

// Active returns the active conversation.
func (s *Store) Active() *model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Chats[s.st.ActiveID]
}

// Get returns a conversation by ID, or nil when absent.
func (s *Store) Get(id string) *model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Chats[id]
}

// List returns all conversations, newest first.
func (s *Store) List() []*model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.Conversation, 0, len(s.st.Chats))
	for _, conv := range s.st.Chats {
		out = append(out, conv)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := model.CreatedAt(out[i].ID), model.CreatedAt(out[j].ID)
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// Len returns the number of conversations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.Chats)
}

// ============================================================================
// TURN OPERATIONS
// ============================================================================

// AppendTurn adds a turn to the active conversation and persists. When a
// user turn opens the conversation, the derived title is returned with
// ok=true so callers can refresh any visible conversation label. With no
// active conversation this is a silent no-op; callers must not assume a
// turn was recorded.
func (s *Store) AppendTurn(role model.Role, content string) (title string, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.st.Chats[s.st.ActiveID]
	if conv == nil {
		return "", false, nil
	}
	title, ok = conv.Append(model.NewTurn(role, content))
	if perr := s.persist("append turn"); perr != nil {
		return "", false, perr
	}
	return title, ok, nil
}

// DeleteTurn removes the turn at index from the active conversation.
// Out-of-range indexes are a no-op.
func (s *Store) DeleteTurn(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.st.Chats[s.st.ActiveID]
	if conv == nil || index < 0 || index >= len(conv.Turns) {
		return nil
	}
	conv.Turns = append(conv.Turns[:index], conv.Turns[index+1:]...)
	return s.persist("delete turn")
}

// SetSystemPrompt replaces the active conversation's system prompt.
func (s *Store) SetSystemPrompt(prompt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.st.Chats[s.st.ActiveID]
	if conv == nil {
		return nil
	}
	conv.SystemPrompt = prompt
	return s.persist("set system prompt")
}

// ============================================================================
// SETTINGS
// ============================================================================

// Settings returns the current user settings.
func (s *Store) Settings() model.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Settings
}

// UpdateSettings applies fn to the settings, clamps the result back into
// range, and persists.
func (s *Store) UpdateSettings(fn func(*model.Settings)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.st.Settings)
	s.st.Settings.Normalize()
	return s.persist("update settings")
}

// SetNowFunc overrides the clock used for conversation IDs. Tests only.
func (s *Store) SetNowFunc(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}
