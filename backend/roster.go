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
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// GameStatLine is one match's worth of derived stats in a player's
// career history. Its ID is deterministic per (match, player) so that
// re-running reconciliation replaces the line instead of appending a
// duplicate.
type GameStatLine struct {
	ID               string `json:"id"`
	Date             string `json:"date"`
	Opponent         string `json:"opponent"`
	Score            string `json:"score"`
	MinutesPlayed    int    `json:"minutesPlayed"`
	Goals            int    `json:"goals"`
	Assists          int    `json:"assists"`
	Tackles          int    `json:"tackles"`
	Fouls            int    `json:"fouls"`
	Saves            int    `json:"saves"`
	PlayerOfTheMatch bool   `json:"playerOfTheMatch"`
	Substitutions    int    `json:"substitutions"`
	CleanSheet       bool   `json:"cleanSheet"`
	PenaltiesScored  int    `json:"penaltiesScored"`
	RedCards         int    `json:"redCards"`
}

// StatLineID derives the idempotency key for a (match, player) pair.
func StatLineID(matchId, playerId string) string {
	return fmt.Sprintf("gs_%s_%s", matchId, playerId)
}

// Player is a roster entry. GameHistory accumulates one GameStatLine
// per played match, most recent first.
type Player struct {
	ID           string         `json:"id"`
	TeamID       string         `json:"teamId"`
	Name         string         `json:"name"`
	JerseyNumber int            `json:"jerseyNumber"`
	Position     string         `json:"position"`
	ImageURL     string         `json:"imageUrl,omitempty"`
	Height       string         `json:"height,omitempty"`
	Weight       string         `json:"weight,omitempty"`
	DOB          string         `json:"dob,omitempty"`
	GameHistory  []GameStatLine `json:"gameHistory"`
	Notes        string         `json:"notes,omitempty"`
	Bio          string         `json:"bio,omitempty"`
	Status       string         `json:"status,omitempty"`
	UpdatedAt    int64          `json:"updatedAt,omitempty"`
}

func (p *Player) normalize() {
	if p.GameHistory == nil {
		p.GameHistory = make([]GameStatLine, 0)
	}
	if p.Status == "" {
		p.Status = PlayerActive
	}
}

func (p *Player) clone() *Player {
	cp := *p
	cp.GameHistory = make([]GameStatLine, len(p.GameHistory))
	copy(cp.GameHistory, p.GameHistory)
	return &cp
}

// RosterStore manages player records in memory.
type RosterStore struct {
	mu      sync.RWMutex
	players map[string]*Player
}

// NewRosterStore creates a new RosterStore.
func NewRosterStore() *RosterStore {
	return &RosterStore{players: make(map[string]*Player)}
}

// CreatePlayer adds a player to the roster.
func (rs *RosterStore) CreatePlayer(p *Player) (*Player, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if p.TeamID == "" {
		return nil, fmt.Errorf("player must belong to a team")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if _, exists := rs.players[p.ID]; exists {
		return nil, os.ErrExist
	}
	p.normalize()
	p.UpdatedAt = time.Now().UnixMilli()
	rs.players[p.ID] = p.clone()
	return p, nil
}

// LoadPlayer returns a player by ID.
func (rs *RosterStore) LoadPlayer(playerId string) (*Player, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	p, ok := rs.players[playerId]
	if !ok {
		return nil, os.ErrNotExist
	}
	return p.clone(), nil
}

// UpdatePlayer replaces a player's profile fields. GameHistory is not
// replaced here; reconciliation owns it via UpsertStatLine.
func (rs *RosterStore) UpdatePlayer(p *Player) (*Player, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	existing, ok := rs.players[p.ID]
	if !ok {
		return nil, os.ErrNotExist
	}
	history := existing.GameHistory
	p.normalize()
	cp := p.clone()
	cp.GameHistory = history
	cp.TeamID = existing.TeamID
	cp.UpdatedAt = time.Now().UnixMilli()
	rs.players[p.ID] = cp
	return cp.clone(), nil
}

// SetStatus updates only the availability status of a player.
func (rs *RosterStore) SetStatus(playerId, status string) (*Player, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	p, ok := rs.players[playerId]
	if !ok {
		return nil, os.ErrNotExist
	}
	p.Status = status
	p.UpdatedAt = time.Now().UnixMilli()
	return p.clone(), nil
}

// SetNotes updates the coaching notes on a player.
func (rs *RosterStore) SetNotes(playerId, notes string) (*Player, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	p, ok := rs.players[playerId]
	if !ok {
		return nil, os.ErrNotExist
	}
	p.Notes = notes
	p.UpdatedAt = time.Now().UnixMilli()
	return p.clone(), nil
}

// DeletePlayer removes a player from the roster.
func (rs *RosterStore) DeletePlayer(playerId string) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if _, ok := rs.players[playerId]; !ok {
		return os.ErrNotExist
	}
	delete(rs.players, playerId)
	return nil
}

// ListTeamPlayers returns the roster of a team sorted by jersey number.
func (rs *RosterStore) ListTeamPlayers(teamId string) []*Player {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	out := make([]*Player, 0)
	for _, p := range rs.players {
		if p.TeamID == teamId {
			out = append(out, p.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JerseyNumber < out[j].JerseyNumber })
	return out
}

// UpsertStatLine merges a derived stat line into a player's history.
// If a line with the same ID already exists it is replaced in place,
// preserving its position; otherwise the line is appended, so the
// history reads in the order the matches were recorded.
func (rs *RosterStore) UpsertStatLine(playerId string, line GameStatLine) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	p, ok := rs.players[playerId]
	if !ok {
		return os.ErrNotExist
	}
	for i := range p.GameHistory {
		if p.GameHistory[i].ID == line.ID {
			p.GameHistory[i] = line
			p.UpdatedAt = time.Now().UnixMilli()
			return nil
		}
	}
	p.GameHistory = append(p.GameHistory, line)
	p.UpdatedAt = time.Now().UnixMilli()
	return nil
}

// AppendStatLine records a manually entered history line (staff filling
// in stats for matches played before the club used live tracking).
func (rs *RosterStore) AppendStatLine(playerId string, line GameStatLine) (*Player, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	p, ok := rs.players[playerId]
	if !ok {
		return nil, os.ErrNotExist
	}
	if line.ID == "" {
		line.ID = "gs_manual_" + uuid.NewString()
	}
	p.GameHistory = append(p.GameHistory, line)
	p.UpdatedAt = time.Now().UnixMilli()
	return p.clone(), nil
}
