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
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrMatchNotLive is returned for ledger mutations attempted while
	// the match is not in the live state.
	ErrMatchNotLive = errors.New("invalid state for mutation")
	// ErrMatchAlreadyLive is returned when starting a match that is
	// already running.
	ErrMatchAlreadyLive = errors.New("match is already live")
)

// MatchEvent is one entry in the live match ledger. Events are
// immutable once recorded; the only permitted change is removal by an
// operator while the match is live.
type MatchEvent struct {
	ID                    string `json:"id"`
	Kind                  string `json:"kind"`
	Minute                int    `json:"minute"`
	PrimaryPlayerID       string `json:"primaryPlayerId,omitempty"`
	SecondaryPlayerID     string `json:"secondaryPlayerId,omitempty"`
	CornerTakenByPlayerID string `json:"cornerTakenByPlayerId,omitempty"`
	Side                  string `json:"side"`
	Details               string `json:"details,omitempty"`
}

// Formations holds the lineup shape strings for both sides, e.g. "4-4-2".
type Formations struct {
	Home string `json:"home,omitempty"`
	Away string `json:"away,omitempty"`
}

// LiveMatchState is the full tracker state for one scheduled game. The
// MatchID is the ID of the underlying schedule event.
type LiveMatchState struct {
	MatchID         string       `json:"matchId"`
	TeamID          string       `json:"teamId"`
	Status          string       `json:"status"`
	OwnSide         string       `json:"ownSide"`
	HomeScore       int          `json:"homeScore"`
	AwayScore       int          `json:"awayScore"`
	Events          []MatchEvent `json:"events"`
	Notes           string       `json:"notes,omitempty"`
	OpponentLogoRef string       `json:"opponentLogoRef,omitempty"`
	Formations      Formations   `json:"formations"`
	UpdatedAt       int64        `json:"updatedAt,omitempty"`
}

func (s *LiveMatchState) clone() *LiveMatchState {
	cp := *s
	cp.Events = make([]MatchEvent, len(s.Events))
	copy(cp.Events, s.Events)
	return &cp
}

// scoreEffect returns the scoreboard delta implied by one ledger event.
// Goals and converted penalties credit the scoring side; an own goal
// credits the opposing side. Everything else leaves the score alone.
func scoreEffect(kind, side string) (homeDelta, awayDelta int) {
	other := SideAway
	if side == SideAway {
		other = SideHome
	}
	credit := func(s string) {
		if s == SideHome {
			homeDelta = 1
		} else {
			awayDelta = 1
		}
	}
	switch kind {
	case EventKindGoal, EventKindPenalty:
		credit(side)
	case EventKindOwnGoal:
		credit(other)
	}
	return homeDelta, awayDelta
}

// LiveMatchManager owns the tracker state of every team. It binds a
// team's tracker to the next unplayed game on the schedule, moves the
// match through its lifecycle and runs stat reconciliation when a
// match ends.
type LiveMatchManager struct {
	mu       sync.Mutex
	states   map[string]*LiveMatchState // keyed by matchId
	current  map[string]string          // teamId -> matchId
	played   map[string]bool            // matchIds that have ended at least once
	schedule *ScheduleStore
	roster   *RosterStore
	now      func() time.Time // injectable clock for the schedule date floor
}

// NewLiveMatchManager creates a LiveMatchManager over the given stores.
func NewLiveMatchManager(schedule *ScheduleStore, roster *RosterStore) *LiveMatchManager {
	return &LiveMatchManager{
		states:   make(map[string]*LiveMatchState),
		current:  make(map[string]string),
		played:   make(map[string]bool),
		schedule: schedule,
		roster:   roster,
		now:      time.Now,
	}
}

// CurrentMatch returns the tracker state a team's live view should
// show, creating a fresh not-started state for the next unplayed game
// when needed. A live match is always returned as-is, even if the
// schedule has since changed.
func (lm *LiveMatchManager) CurrentMatch(teamId string) (*LiveMatchState, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.currentMatchLocked(teamId)
}

func (lm *LiveMatchManager) currentMatchLocked(teamId string) (*LiveMatchState, error) {
	if cur := lm.current[teamId]; cur != "" {
		if s := lm.states[cur]; s != nil && s.Status == MatchLive {
			return s.clone(), nil
		}
	}

	today := lm.now().Format("2006-01-02")
	next, err := lm.schedule.NextGame(teamId, today, lm.played)
	if err != nil {
		// No games left. Keep showing the last tracked match if any.
		if cur := lm.current[teamId]; cur != "" {
			if s := lm.states[cur]; s != nil {
				return s.clone(), nil
			}
		}
		return nil, os.ErrNotExist
	}

	if s := lm.states[next.ID]; s != nil {
		lm.current[teamId] = next.ID
		return s.clone(), nil
	}

	ownSide := SideHome
	if next.Type == EventTypeAwayGame {
		ownSide = SideAway
	}
	s := &LiveMatchState{
		MatchID:   next.ID,
		TeamID:    teamId,
		Status:    MatchNotStarted,
		OwnSide:   ownSide,
		Events:    make([]MatchEvent, 0),
		UpdatedAt: time.Now().UnixMilli(),
	}
	lm.states[next.ID] = s
	lm.current[teamId] = next.ID
	return s.clone(), nil
}

// Match returns the tracker state for a specific match.
func (lm *LiveMatchManager) Match(matchId string) (*LiveMatchState, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	s, ok := lm.states[matchId]
	if !ok {
		return nil, os.ErrNotExist
	}
	return s.clone(), nil
}

// StartMatch moves a match into the live state. Starting an ended
// match reopens it: the ledger and score are kept, and the next
// end-of-match reconciliation overwrites the previously derived stat
// lines instead of duplicating them.
func (lm *LiveMatchManager) StartMatch(matchId string) (*LiveMatchState, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	s, ok := lm.states[matchId]
	if !ok {
		return nil, os.ErrNotExist
	}
	if s.Status == MatchLive {
		return nil, ErrMatchAlreadyLive
	}
	if s.Status == MatchEnded {
		delete(lm.played, matchId)
	}
	s.Status = MatchLive
	s.UpdatedAt = time.Now().UnixMilli()
	return s.clone(), nil
}

// EndMatch moves a live match to ended and reconciles the ledger into
// the roster's career histories. Reconciliation is computed in full
// before the ended status is committed, so a failure leaves the match
// live and the histories untouched.
func (lm *LiveMatchManager) EndMatch(matchId string) (*LiveMatchState, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	s, ok := lm.states[matchId]
	if !ok {
		return nil, os.ErrNotExist
	}
	if s.Status != MatchLive {
		return nil, ErrMatchNotLive
	}

	meta, err := lm.schedule.LoadEvent(matchId)
	if err != nil {
		return nil, fmt.Errorf("schedule event for match %s: %w", matchId, err)
	}
	lines := reconcileMatch(s, meta, lm.roster.ListTeamPlayers(s.TeamID))
	for _, ln := range lines {
		// Unresolvable players were already skipped by reconcileMatch;
		// a concurrent roster deletion is treated the same way.
		if err := lm.roster.UpsertStatLine(ln.PlayerID, ln.Line); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("upsert stat line for player %s: %w", ln.PlayerID, err)
		}
	}

	s.Status = MatchEnded
	s.UpdatedAt = time.Now().UnixMilli()
	lm.played[matchId] = true
	return s.clone(), nil
}

// AppendEvent records a ledger event and applies its score effect. The
// event is head-inserted so the most recent entry is first.
func (lm *LiveMatchManager) AppendEvent(matchId string, ev MatchEvent) (*LiveMatchState, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	s, ok := lm.states[matchId]
	if !ok {
		return nil, os.ErrNotExist
	}
	if s.Status != MatchLive {
		return nil, ErrMatchNotLive
	}
	if ev.ID == "" {
		ev.ID = "lge_" + uuid.NewString()
	}
	for _, existing := range s.Events {
		if existing.ID == ev.ID {
			return nil, fmt.Errorf("duplicate event id %s", ev.ID)
		}
	}
	s.Events = append([]MatchEvent{ev}, s.Events...)
	hd, ad := scoreEffect(ev.Kind, ev.Side)
	s.HomeScore += hd
	s.AwayScore += ad
	s.UpdatedAt = time.Now().UnixMilli()
	return s.clone(), nil
}

// RemoveEvent deletes a ledger event. The scoreboard is deliberately
// left as-is; operators correct the score with SetScore when removing
// a goal that should not have counted.
func (lm *LiveMatchManager) RemoveEvent(matchId, eventId string) (*LiveMatchState, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	s, ok := lm.states[matchId]
	if !ok {
		return nil, os.ErrNotExist
	}
	if s.Status != MatchLive {
		return nil, ErrMatchNotLive
	}
	for i := range s.Events {
		if s.Events[i].ID == eventId {
			s.Events = append(s.Events[:i], s.Events[i+1:]...)
			s.UpdatedAt = time.Now().UnixMilli()
			return s.clone(), nil
		}
	}
	return nil, os.ErrNotExist
}

// SetScore overrides the scoreboard without touching the ledger.
// Negative inputs are clamped to zero.
func (lm *LiveMatchManager) SetScore(matchId string, home, away int) (*LiveMatchState, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	s, ok := lm.states[matchId]
	if !ok {
		return nil, os.ErrNotExist
	}
	if s.Status != MatchLive {
		return nil, ErrMatchNotLive
	}
	if home < 0 {
		home = 0
	}
	if away < 0 {
		away = 0
	}
	s.HomeScore = home
	s.AwayScore = away
	s.UpdatedAt = time.Now().UnixMilli()
	return s.clone(), nil
}

// SetFormations records the lineup shapes. Allowed until the match has
// ended so staff can prepare before kickoff.
func (lm *LiveMatchManager) SetFormations(matchId string, f Formations) (*LiveMatchState, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	s, ok := lm.states[matchId]
	if !ok {
		return nil, os.ErrNotExist
	}
	if s.Status == MatchEnded {
		return nil, ErrMatchNotLive
	}
	s.Formations = f
	s.UpdatedAt = time.Now().UnixMilli()
	return s.clone(), nil
}

// SetNotes records free-form match notes.
func (lm *LiveMatchManager) SetNotes(matchId, notes string) (*LiveMatchState, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	s, ok := lm.states[matchId]
	if !ok {
		return nil, os.ErrNotExist
	}
	if s.Status == MatchEnded {
		return nil, ErrMatchNotLive
	}
	s.Notes = notes
	s.UpdatedAt = time.Now().UnixMilli()
	return s.clone(), nil
}

// SetOpponentLogo records a reference (URL or upload key) to the
// opponent's crest shown on the scoreboard.
func (lm *LiveMatchManager) SetOpponentLogo(matchId, ref string) (*LiveMatchState, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	s, ok := lm.states[matchId]
	if !ok {
		return nil, os.ErrNotExist
	}
	if s.Status == MatchEnded {
		return nil, ErrMatchNotLive
	}
	s.OpponentLogoRef = ref
	s.UpdatedAt = time.Now().UnixMilli()
	return s.clone(), nil
}
