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
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RSVP is one member's attendance intention for a scheduled event.
type RSVP struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName,omitempty"`
	Status   string `json:"status"`
}

// ScheduleEvent is a calendar entry for a team: a home or away game, a
// training session or a meeting. Games are what the live match tracker
// binds to.
type ScheduleEvent struct {
	ID                string   `json:"id"`
	TeamID            string   `json:"teamId"`
	Type              string   `json:"type"`
	Title             string   `json:"title"`
	Date              string   `json:"date"` // YYYY-MM-DD
	Time              string   `json:"time"` // HH:MM
	Location          string   `json:"location,omitempty"`
	Opponent          string   `json:"opponent,omitempty"`
	Notes             string   `json:"notes,omitempty"`
	RSVPs             []RSVP   `json:"rsvps"`
	AttendedPlayerIDs []string `json:"attendedPlayerIds"`
	UpdatedAt         int64    `json:"updatedAt,omitempty"`
}

func (e *ScheduleEvent) normalize() {
	if e.RSVPs == nil {
		e.RSVPs = make([]RSVP, 0)
	}
	if e.AttendedPlayerIDs == nil {
		e.AttendedPlayerIDs = make([]string, 0)
	}
}

func (e *ScheduleEvent) clone() *ScheduleEvent {
	cp := *e
	cp.RSVPs = make([]RSVP, len(e.RSVPs))
	copy(cp.RSVPs, e.RSVPs)
	cp.AttendedPlayerIDs = make([]string, len(e.AttendedPlayerIDs))
	copy(cp.AttendedPlayerIDs, e.AttendedPlayerIDs)
	return &cp
}

// IsGame reports whether this event is a match rather than a training
// session or meeting. The generic "Game" type exists for imported
// fixtures where the venue is unknown; the tracker treats it as home.
func (e *ScheduleEvent) IsGame() bool {
	return e.Type == EventTypeGame || e.Type == EventTypeHomeGame || e.Type == EventTypeAwayGame
}

// ScheduleStore manages team calendars in memory.
type ScheduleStore struct {
	mu     sync.RWMutex
	events map[string]*ScheduleEvent
}

// NewScheduleStore creates a new ScheduleStore.
func NewScheduleStore() *ScheduleStore {
	return &ScheduleStore{events: make(map[string]*ScheduleEvent)}
}

// CreateEvent adds a calendar entry.
func (ss *ScheduleStore) CreateEvent(e *ScheduleEvent) (*ScheduleEvent, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if _, exists := ss.events[e.ID]; exists {
		return nil, os.ErrExist
	}
	e.normalize()
	e.UpdatedAt = time.Now().UnixMilli()
	ss.events[e.ID] = e.clone()
	return e, nil
}

// LoadEvent returns an event by ID.
func (ss *ScheduleStore) LoadEvent(eventId string) (*ScheduleEvent, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	e, ok := ss.events[eventId]
	if !ok {
		return nil, os.ErrNotExist
	}
	return e.clone(), nil
}

// UpdateEvent replaces the descriptive fields of an event. RSVPs and
// attendance are updated through their own operations.
func (ss *ScheduleStore) UpdateEvent(e *ScheduleEvent) (*ScheduleEvent, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	existing, ok := ss.events[e.ID]
	if !ok {
		return nil, os.ErrNotExist
	}
	e.normalize()
	cp := e.clone()
	cp.TeamID = existing.TeamID
	cp.RSVPs = existing.RSVPs
	cp.AttendedPlayerIDs = existing.AttendedPlayerIDs
	cp.UpdatedAt = time.Now().UnixMilli()
	ss.events[e.ID] = cp
	return cp.clone(), nil
}

// DeleteEvent removes an event from the calendar.
func (ss *ScheduleStore) DeleteEvent(eventId string) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if _, ok := ss.events[eventId]; !ok {
		return os.ErrNotExist
	}
	delete(ss.events, eventId)
	return nil
}

// SetRSVP records a member's attendance intention, replacing any
// earlier answer from the same member.
func (ss *ScheduleStore) SetRSVP(eventId string, rsvp RSVP) (*ScheduleEvent, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	e, ok := ss.events[eventId]
	if !ok {
		return nil, os.ErrNotExist
	}
	replaced := false
	for i := range e.RSVPs {
		if e.RSVPs[i].UserID == rsvp.UserID {
			e.RSVPs[i] = rsvp
			replaced = true
			break
		}
	}
	if !replaced {
		e.RSVPs = append(e.RSVPs, rsvp)
	}
	e.UpdatedAt = time.Now().UnixMilli()
	return e.clone(), nil
}

// SetAttendance replaces the list of players who actually showed up.
// Reconciliation treats these players as participants even when no
// ledger event names them.
func (ss *ScheduleStore) SetAttendance(eventId string, playerIds []string) (*ScheduleEvent, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	e, ok := ss.events[eventId]
	if !ok {
		return nil, os.ErrNotExist
	}
	if playerIds == nil {
		playerIds = make([]string, 0)
	}
	e.AttendedPlayerIDs = playerIds
	e.UpdatedAt = time.Now().UnixMilli()
	return e.clone(), nil
}

// ListTeamEvents returns a team's calendar sorted by date then time.
func (ss *ScheduleStore) ListTeamEvents(teamId string) []*ScheduleEvent {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	out := make([]*ScheduleEvent, 0)
	for _, e := range ss.events {
		if e.TeamID == teamId {
			out = append(out, e.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Time < out[j].Time
	})
	return out
}

// NextGame returns the earliest game-type event for the team dated
// notBefore (YYYY-MM-DD) or later that is not in the played set. Stale
// fixtures that were never tracked stay in the calendar but no longer
// shadow upcoming games. Returns os.ErrNotExist when no game remains.
func (ss *ScheduleStore) NextGame(teamId, notBefore string, played map[string]bool) (*ScheduleEvent, error) {
	for _, e := range ss.ListTeamEvents(teamId) {
		if !e.IsGame() {
			continue
		}
		if e.Date < notBefore {
			continue
		}
		if played[e.ID] {
			continue
		}
		return e, nil
	}
	return nil, os.ErrNotExist
}
