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
	"sync"

	"github.com/google/uuid"
)

// TacticObject is one marker on the tactical whiteboard. Coordinates
// are fractions of the pitch (0..1) so clients can render at any size.
type TacticObject struct {
	ID    string  `json:"id"`
	Type  string  `json:"type"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Label string  `json:"label,omitempty"`
	Color string  `json:"color,omitempty"`
}

// Drill is a saved whiteboard layout with a short writeup.
type Drill struct {
	ID          string         `json:"id"`
	TeamID      string         `json:"teamId"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Objects     []TacticObject `json:"objects"`
}

func (d *Drill) clone() *Drill {
	cp := *d
	cp.Objects = make([]TacticObject, len(d.Objects))
	copy(cp.Objects, d.Objects)
	return &cp
}

// validateDrill checks a board layout before it is stored.
func validateDrill(d *Drill) error {
	if d.Title == "" {
		return fmt.Errorf("missing drill title")
	}
	if err := validateStringLen(d.Title, 100, "title"); err != nil {
		return err
	}
	if err := validateStringLen(d.Description, 4000, "description"); err != nil {
		return err
	}
	for _, o := range d.Objects {
		switch o.Type {
		case BoardObjectPlayer, BoardObjectBall, BoardObjectCone:
		default:
			return fmt.Errorf("unknown board object type: %s", o.Type)
		}
		if o.X < 0 || o.X > 1 || o.Y < 0 || o.Y > 1 {
			return fmt.Errorf("board object out of bounds")
		}
	}
	return nil
}

// BoardStore keeps saved tactical drills per team in memory.
type BoardStore struct {
	mu     sync.RWMutex
	drills map[string][]*Drill // keyed by teamId
}

// NewBoardStore creates a new BoardStore.
func NewBoardStore() *BoardStore {
	return &BoardStore{drills: make(map[string][]*Drill)}
}

// SaveDrill stores a new drill, or replaces an existing one when the
// ID matches.
func (bs *BoardStore) SaveDrill(d *Drill) (*Drill, error) {
	if err := validateDrill(d); err != nil {
		return nil, err
	}

	bs.mu.Lock()
	defer bs.mu.Unlock()

	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Objects == nil {
		d.Objects = make([]TacticObject, 0)
	}
	for i, existing := range bs.drills[d.TeamID] {
		if existing.ID == d.ID {
			bs.drills[d.TeamID][i] = d.clone()
			return d, nil
		}
	}
	bs.drills[d.TeamID] = append(bs.drills[d.TeamID], d.clone())
	return d, nil
}

// ListDrills returns a team's saved drills in insertion order.
func (bs *BoardStore) ListDrills(teamId string) []*Drill {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	saved := bs.drills[teamId]
	out := make([]*Drill, 0, len(saved))
	for _, d := range saved {
		out = append(out, d.clone())
	}
	return out
}

// DeleteDrill removes a saved drill.
func (bs *BoardStore) DeleteDrill(teamId, drillId string) error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	saved := bs.drills[teamId]
	for i, d := range saved {
		if d.ID == drillId {
			bs.drills[teamId] = append(saved[:i], saved[i+1:]...)
			return nil
		}
	}
	return os.ErrNotExist
}
