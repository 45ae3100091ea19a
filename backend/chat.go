// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Reaction is a single emoji response attached to a chat message.
type Reaction struct {
	UserID string `json:"userId"`
	Emoji  string `json:"emoji"`
}

// ChatMessage is one entry in a team's chat feed.
type ChatMessage struct {
	ID            string     `json:"id"`
	TeamID        string     `json:"teamId"`
	UserID        string     `json:"userId"`
	UserName      string     `json:"userName,omitempty"`
	UserAvatarURL string     `json:"userAvatarUrl,omitempty"`
	Timestamp     string     `json:"timestamp"`
	Content       string     `json:"content"`
	ImageURL      string     `json:"imageUrl,omitempty"`
	Reactions     []Reaction `json:"reactions"`
}

func (m *ChatMessage) normalize() {
	if m.Reactions == nil {
		m.Reactions = make([]Reaction, 0)
	}
}

func (m *ChatMessage) clone() *ChatMessage {
	cp := *m
	cp.Reactions = make([]Reaction, len(m.Reactions))
	copy(cp.Reactions, m.Reactions)
	return &cp
}

// ChatStore keeps per-team chat feeds in memory, oldest first.
type ChatStore struct {
	mu       sync.RWMutex
	messages map[string][]*ChatMessage // keyed by teamId
}

// NewChatStore creates a new ChatStore.
func NewChatStore() *ChatStore {
	return &ChatStore{messages: make(map[string][]*ChatMessage)}
}

// PostMessage appends a message to the team feed.
func (cs *ChatStore) PostMessage(m *ChatMessage) (*ChatMessage, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Timestamp == "" {
		m.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	m.normalize()
	cs.messages[m.TeamID] = append(cs.messages[m.TeamID], m.clone())
	return m, nil
}

// ListMessages returns the team feed, oldest first.
func (cs *ChatStore) ListMessages(teamId string) []*ChatMessage {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	feed := cs.messages[teamId]
	out := make([]*ChatMessage, 0, len(feed))
	for _, m := range feed {
		out = append(out, m.clone())
	}
	return out
}

// ToggleReaction adds the (user, emoji) reaction to a message, or
// removes it when the same user already reacted with the same emoji.
func (cs *ChatStore) ToggleReaction(teamId, messageId, userId, emoji string) (*ChatMessage, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	for _, m := range cs.messages[teamId] {
		if m.ID != messageId {
			continue
		}
		for i, r := range m.Reactions {
			if r.UserID == userId && r.Emoji == emoji {
				m.Reactions = append(m.Reactions[:i], m.Reactions[i+1:]...)
				return m.clone(), nil
			}
		}
		m.Reactions = append(m.Reactions, Reaction{UserID: userId, Emoji: emoji})
		return m.clone(), nil
	}
	return nil, os.ErrNotExist
}
