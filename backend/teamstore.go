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
	"crypto/rand"
	"math/big"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Team represents one squad of the club. A club can run several teams
// (senior squad, U18, academy) and every roster, schedule and chat
// record is scoped to exactly one of them.
type Team struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Sport     string `json:"sport,omitempty"`
	Code      string `json:"code"`
	LogoURL   string `json:"logoUrl,omitempty"`
	OwnerID   string `json:"ownerId"`
	CreatedAt int64  `json:"createdAt,omitempty"`
	UpdatedAt int64  `json:"updatedAt,omitempty"`
}

func (t *Team) normalize() {
	t.Code = strings.ToUpper(strings.TrimSpace(t.Code))
}

// teamCodeAlphabet deliberately omits easily confused characters (0/O, 1/I).
const teamCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// newTeamCode generates a 6-character join code.
func newTeamCode() string {
	var b strings.Builder
	for i := 0; i < 6; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(teamCodeAlphabet))))
		if err != nil {
			return strings.ToUpper(uuid.NewString()[:6])
		}
		b.WriteByte(teamCodeAlphabet[n.Int64()])
	}
	return b.String()
}

// TeamStore manages the teams of the club in memory.
type TeamStore struct {
	mu    sync.RWMutex
	teams map[string]*Team
}

// NewTeamStore creates a new TeamStore.
func NewTeamStore() *TeamStore {
	return &TeamStore{teams: make(map[string]*Team)}
}

// CreateTeam registers a new team. A missing ID or join code is filled in.
func (ts *TeamStore) CreateTeam(team *Team) (*Team, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if team.ID == "" {
		team.ID = uuid.NewString()
	}
	if _, exists := ts.teams[team.ID]; exists {
		return nil, os.ErrExist
	}
	team.normalize()
	if team.Code == "" {
		for {
			code := newTeamCode()
			if _, taken := ts.byCodeLocked(code); !taken {
				team.Code = code
				break
			}
		}
	}
	now := time.Now().UnixMilli()
	team.CreatedAt = now
	team.UpdatedAt = now

	cp := *team
	ts.teams[team.ID] = &cp
	return team, nil
}

// LoadTeam loads the team data by ID.
func (ts *TeamStore) LoadTeam(teamId string) (*Team, error) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	t, ok := ts.teams[teamId]
	if !ok {
		return nil, os.ErrNotExist
	}
	cp := *t
	return &cp, nil
}

// FindByCode resolves a join code to a team.
func (ts *TeamStore) FindByCode(code string) (*Team, error) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	t, ok := ts.byCodeLocked(code)
	if !ok {
		return nil, os.ErrNotExist
	}
	cp := *t
	return &cp, nil
}

func (ts *TeamStore) byCodeLocked(code string) (*Team, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, t := range ts.teams {
		if t.Code == code {
			return t, true
		}
	}
	return nil, false
}

// UpdateTeam applies mutable fields (name, sport, logo) to an existing team.
func (ts *TeamStore) UpdateTeam(team *Team) (*Team, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	existing, ok := ts.teams[team.ID]
	if !ok {
		return nil, os.ErrNotExist
	}
	if team.Name != "" {
		existing.Name = team.Name
	}
	if team.Sport != "" {
		existing.Sport = team.Sport
	}
	if team.LogoURL != "" {
		existing.LogoURL = team.LogoURL
	}
	existing.UpdatedAt = time.Now().UnixMilli()
	cp := *existing
	return &cp, nil
}

// ListTeams returns all teams, sorted by name for stable output.
func (ts *TeamStore) ListTeams() []*Team {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	out := make([]*Team, 0, len(ts.teams))
	for _, t := range ts.teams {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// DeleteTeam removes a team. Deleting a missing team is not an error.
func (ts *TeamStore) DeleteTeam(teamId string) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	delete(ts.teams, teamId)
	return nil
}
