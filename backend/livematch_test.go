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
	"os"
	"testing"
	"time"
)

const testTeamId = "team-1"

// withTestClock pins the tracker's clock so the schedule date floor is
// deterministic no matter when the tests run.
func withTestClock(lm *LiveMatchManager) *LiveMatchManager {
	lm.now = func() time.Time { return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC) }
	return lm
}

// newTestTracker builds a schedule with one home game and a roster,
// and returns the manager plus the match's event ID.
func newTestTracker(t *testing.T) (*LiveMatchManager, *ScheduleStore, *RosterStore, string) {
	t.Helper()

	schedule := NewScheduleStore()
	roster := NewRosterStore()

	ev, err := schedule.CreateEvent(&ScheduleEvent{
		TeamID:   testTeamId,
		Type:     EventTypeHomeGame,
		Title:    "vs FC Raptors",
		Date:     "2026-09-05",
		Time:     "14:00",
		Opponent: "FC Raptors",
	})
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	players := []*Player{
		{ID: "p1", TeamID: testTeamId, Name: "Liam Johnson", JerseyNumber: 9, Position: "Forward"},
		{ID: "p2", TeamID: testTeamId, Name: "Sofia Rossi", JerseyNumber: 10, Position: "Midfielder"},
		{ID: "p4", TeamID: testTeamId, Name: "Chloe Kim", JerseyNumber: 1, Position: "Goalkeeper"},
	}
	for _, p := range players {
		if _, err := roster.CreatePlayer(p); err != nil {
			t.Fatalf("CreatePlayer(%s) failed: %v", p.ID, err)
		}
	}

	return withTestClock(NewLiveMatchManager(schedule, roster)), schedule, roster, ev.ID
}

func TestCurrentMatchBindsToNextGame(t *testing.T) {
	lm, _, _, matchId := newTestTracker(t)

	s, err := lm.CurrentMatch(testTeamId)
	if err != nil {
		t.Fatalf("CurrentMatch failed: %v", err)
	}
	if s.MatchID != matchId {
		t.Errorf("Expected match %s, got %s", matchId, s.MatchID)
	}
	if s.Status != MatchNotStarted {
		t.Errorf("Expected status %s, got %s", MatchNotStarted, s.Status)
	}
	if s.OwnSide != SideHome {
		t.Errorf("Expected own side %s for a home game, got %s", SideHome, s.OwnSide)
	}
}

func TestCurrentMatchAwaySide(t *testing.T) {
	schedule := NewScheduleStore()
	roster := NewRosterStore()
	ev, err := schedule.CreateEvent(&ScheduleEvent{
		TeamID:   testTeamId,
		Type:     EventTypeAwayGame,
		Title:    "at United Lions",
		Date:     "2026-09-12",
		Time:     "11:00",
		Opponent: "United Lions",
	})
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	lm := withTestClock(NewLiveMatchManager(schedule, roster))
	s, err := lm.CurrentMatch(testTeamId)
	if err != nil {
		t.Fatalf("CurrentMatch failed: %v", err)
	}
	if s.MatchID != ev.ID {
		t.Errorf("Expected match %s, got %s", ev.ID, s.MatchID)
	}
	if s.OwnSide != SideAway {
		t.Errorf("Expected own side %s for an away game, got %s", SideAway, s.OwnSide)
	}
}

func TestCurrentMatchNoGames(t *testing.T) {
	schedule := NewScheduleStore()
	// Training sessions are not game events and must not be tracked.
	if _, err := schedule.CreateEvent(&ScheduleEvent{
		TeamID: testTeamId,
		Type:   EventTypeTraining,
		Title:  "Midweek session",
		Date:   "2026-09-03",
		Time:   "18:00",
	}); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	lm := withTestClock(NewLiveMatchManager(schedule, NewRosterStore()))
	if _, err := lm.CurrentMatch(testTeamId); !os.IsNotExist(err) {
		t.Errorf("Expected os.ErrNotExist, got %v", err)
	}
}

func TestCurrentMatchSkipsStaleFixture(t *testing.T) {
	schedule := NewScheduleStore()
	// A fixture from last season that nobody tracked must not shadow
	// the upcoming game.
	if _, err := schedule.CreateEvent(&ScheduleEvent{
		TeamID:   testTeamId,
		Type:     EventTypeHomeGame,
		Title:    "vs Old Boys",
		Date:     "2020-05-01",
		Time:     "14:00",
		Opponent: "Old Boys",
	}); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	upcoming, err := schedule.CreateEvent(&ScheduleEvent{
		TeamID:   testTeamId,
		Type:     EventTypeHomeGame,
		Title:    "vs FC Raptors",
		Date:     "2026-09-05",
		Time:     "14:00",
		Opponent: "FC Raptors",
	})
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	lm := withTestClock(NewLiveMatchManager(schedule, NewRosterStore()))
	s, err := lm.CurrentMatch(testTeamId)
	if err != nil {
		t.Fatalf("CurrentMatch failed: %v", err)
	}
	if s.MatchID != upcoming.ID {
		t.Errorf("Expected upcoming game %s, got %s", upcoming.ID, s.MatchID)
	}
}

func TestCurrentMatchGenericGameType(t *testing.T) {
	schedule := NewScheduleStore()
	ev, err := schedule.CreateEvent(&ScheduleEvent{
		TeamID:   testTeamId,
		Type:     EventTypeGame,
		Title:    "Cup tie",
		Date:     "2026-09-07",
		Time:     "15:00",
		Opponent: "Harbor Rovers",
	})
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	lm := withTestClock(NewLiveMatchManager(schedule, NewRosterStore()))
	s, err := lm.CurrentMatch(testTeamId)
	if err != nil {
		t.Fatalf("CurrentMatch failed: %v", err)
	}
	if s.MatchID != ev.ID {
		t.Errorf("Expected match %s, got %s", ev.ID, s.MatchID)
	}
	if s.OwnSide != SideHome {
		t.Errorf("Expected own side %s for a generic game, got %s", SideHome, s.OwnSide)
	}
}

func TestMutationsRequireLiveState(t *testing.T) {
	lm, _, _, matchId := newTestTracker(t)
	if _, err := lm.CurrentMatch(testTeamId); err != nil {
		t.Fatalf("CurrentMatch failed: %v", err)
	}

	goal := MatchEvent{Kind: EventKindGoal, Minute: 10, PrimaryPlayerID: "p1", Side: SideHome}

	// Not started yet.
	if _, err := lm.AppendEvent(matchId, goal); !errors.Is(err, ErrMatchNotLive) {
		t.Errorf("AppendEvent before start: expected ErrMatchNotLive, got %v", err)
	}
	if _, err := lm.SetScore(matchId, 1, 0); !errors.Is(err, ErrMatchNotLive) {
		t.Errorf("SetScore before start: expected ErrMatchNotLive, got %v", err)
	}
	if _, err := lm.RemoveEvent(matchId, "nope"); !errors.Is(err, ErrMatchNotLive) {
		t.Errorf("RemoveEvent before start: expected ErrMatchNotLive, got %v", err)
	}
	if _, err := lm.EndMatch(matchId); !errors.Is(err, ErrMatchNotLive) {
		t.Errorf("EndMatch before start: expected ErrMatchNotLive, got %v", err)
	}

	if _, err := lm.StartMatch(matchId); err != nil {
		t.Fatalf("StartMatch failed: %v", err)
	}
	if _, err := lm.StartMatch(matchId); !errors.Is(err, ErrMatchAlreadyLive) {
		t.Errorf("Double start: expected ErrMatchAlreadyLive, got %v", err)
	}
	if _, err := lm.AppendEvent(matchId, goal); err != nil {
		t.Errorf("AppendEvent while live failed: %v", err)
	}

	if _, err := lm.EndMatch(matchId); err != nil {
		t.Fatalf("EndMatch failed: %v", err)
	}

	// Ended.
	if _, err := lm.AppendEvent(matchId, goal); !errors.Is(err, ErrMatchNotLive) {
		t.Errorf("AppendEvent after end: expected ErrMatchNotLive, got %v", err)
	}
	if _, err := lm.SetNotes(matchId, "late notes"); !errors.Is(err, ErrMatchNotLive) {
		t.Errorf("SetNotes after end: expected ErrMatchNotLive, got %v", err)
	}
}

func TestAppendEventScoreEffects(t *testing.T) {
	tests := []struct {
		name     string
		kind     string
		side     string
		wantHome int
		wantAway int
	}{
		{"home goal", EventKindGoal, SideHome, 1, 0},
		{"away goal", EventKindGoal, SideAway, 0, 1},
		{"home penalty", EventKindPenalty, SideHome, 1, 0},
		{"home own goal credits away", EventKindOwnGoal, SideHome, 0, 1},
		{"away own goal credits home", EventKindOwnGoal, SideAway, 1, 0},
		{"foul does not score", EventKindFoul, SideHome, 0, 0},
		{"yellow card does not score", EventKindYellowCard, SideAway, 0, 0},
		{"save does not score", EventKindSave, SideHome, 0, 0},
		{"sub does not score", EventKindSubOn, SideHome, 0, 0},
		{"whistle does not score", EventKindWhistle, SideHome, 0, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lm, _, _, matchId := newTestTracker(t)
			if _, err := lm.CurrentMatch(testTeamId); err != nil {
				t.Fatalf("CurrentMatch failed: %v", err)
			}
			if _, err := lm.StartMatch(matchId); err != nil {
				t.Fatalf("StartMatch failed: %v", err)
			}
			s, err := lm.AppendEvent(matchId, MatchEvent{Kind: tc.kind, Minute: 5, PrimaryPlayerID: "p1", Side: tc.side})
			if err != nil {
				t.Fatalf("AppendEvent failed: %v", err)
			}
			if s.HomeScore != tc.wantHome || s.AwayScore != tc.wantAway {
				t.Errorf("Expected score %d-%d, got %d-%d", tc.wantHome, tc.wantAway, s.HomeScore, s.AwayScore)
			}
		})
	}
}

func TestAppendWhistleEvent(t *testing.T) {
	lm, _, _, matchId := newTestTracker(t)
	if _, err := lm.CurrentMatch(testTeamId); err != nil {
		t.Fatalf("CurrentMatch failed: %v", err)
	}
	if _, err := lm.StartMatch(matchId); err != nil {
		t.Fatalf("StartMatch failed: %v", err)
	}
	if _, err := lm.AppendEvent(matchId, MatchEvent{Kind: EventKindGoal, Minute: 12, PrimaryPlayerID: "p1", Side: SideHome}); err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}

	// Whistle entries carry no player, only a note.
	s, err := lm.AppendEvent(matchId, MatchEvent{Kind: EventKindWhistle, Minute: 45, Side: SideHome, Details: "Half-time"})
	if err != nil {
		t.Fatalf("AppendEvent(whistle) failed: %v", err)
	}
	if s.HomeScore != 1 || s.AwayScore != 0 {
		t.Errorf("Expected score untouched at 1-0, got %d-%d", s.HomeScore, s.AwayScore)
	}
	if s.Events[0].Kind != EventKindWhistle || s.Events[0].Details != "Half-time" {
		t.Errorf("Expected whistle entry with details, got %+v", s.Events[0])
	}
}

func TestAppendEventHeadInsertAndDuplicates(t *testing.T) {
	lm, _, _, matchId := newTestTracker(t)
	if _, err := lm.CurrentMatch(testTeamId); err != nil {
		t.Fatalf("CurrentMatch failed: %v", err)
	}
	if _, err := lm.StartMatch(matchId); err != nil {
		t.Fatalf("StartMatch failed: %v", err)
	}

	if _, err := lm.AppendEvent(matchId, MatchEvent{ID: "e1", Kind: EventKindGoal, Minute: 10, PrimaryPlayerID: "p1", Side: SideHome}); err != nil {
		t.Fatalf("AppendEvent(e1) failed: %v", err)
	}
	s, err := lm.AppendEvent(matchId, MatchEvent{ID: "e2", Kind: EventKindFoul, Minute: 20, PrimaryPlayerID: "p2", Side: SideHome})
	if err != nil {
		t.Fatalf("AppendEvent(e2) failed: %v", err)
	}
	if len(s.Events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(s.Events))
	}
	if s.Events[0].ID != "e2" {
		t.Errorf("Expected newest event first, got %s", s.Events[0].ID)
	}

	if _, err := lm.AppendEvent(matchId, MatchEvent{ID: "e1", Kind: EventKindSave, Minute: 30, PrimaryPlayerID: "p4", Side: SideHome}); err == nil {
		t.Error("Expected duplicate event id to be rejected")
	}

	// Generated IDs are filled in when the client omits one.
	s, err = lm.AppendEvent(matchId, MatchEvent{Kind: EventKindSave, Minute: 35, PrimaryPlayerID: "p4", Side: SideHome})
	if err != nil {
		t.Fatalf("AppendEvent without id failed: %v", err)
	}
	if s.Events[0].ID == "" {
		t.Error("Expected a generated event id")
	}
}

func TestRemoveEventKeepsScore(t *testing.T) {
	lm, _, _, matchId := newTestTracker(t)
	if _, err := lm.CurrentMatch(testTeamId); err != nil {
		t.Fatalf("CurrentMatch failed: %v", err)
	}
	if _, err := lm.StartMatch(matchId); err != nil {
		t.Fatalf("StartMatch failed: %v", err)
	}
	if _, err := lm.AppendEvent(matchId, MatchEvent{ID: "e1", Kind: EventKindGoal, Minute: 10, PrimaryPlayerID: "p1", Side: SideHome}); err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}

	s, err := lm.RemoveEvent(matchId, "e1")
	if err != nil {
		t.Fatalf("RemoveEvent failed: %v", err)
	}
	if len(s.Events) != 0 {
		t.Errorf("Expected 0 events, got %d", len(s.Events))
	}
	// Score corrections go through SetScore, never through removal.
	if s.HomeScore != 1 {
		t.Errorf("Expected scoreboard untouched at 1, got %d", s.HomeScore)
	}

	if _, err := lm.RemoveEvent(matchId, "e1"); !os.IsNotExist(err) {
		t.Errorf("Expected os.ErrNotExist for unknown event, got %v", err)
	}
}

func TestSetScoreClampsNegatives(t *testing.T) {
	lm, _, _, matchId := newTestTracker(t)
	if _, err := lm.CurrentMatch(testTeamId); err != nil {
		t.Fatalf("CurrentMatch failed: %v", err)
	}
	if _, err := lm.StartMatch(matchId); err != nil {
		t.Fatalf("StartMatch failed: %v", err)
	}

	s, err := lm.SetScore(matchId, -3, 2)
	if err != nil {
		t.Fatalf("SetScore failed: %v", err)
	}
	if s.HomeScore != 0 || s.AwayScore != 2 {
		t.Errorf("Expected 0-2, got %d-%d", s.HomeScore, s.AwayScore)
	}
}

func TestPreMatchSetupAllowed(t *testing.T) {
	lm, _, _, matchId := newTestTracker(t)
	if _, err := lm.CurrentMatch(testTeamId); err != nil {
		t.Fatalf("CurrentMatch failed: %v", err)
	}

	// Formations, notes and the opponent crest can be set before
	// kickoff; only ended matches reject them.
	if _, err := lm.SetFormations(matchId, Formations{Home: "4-4-2", Away: "4-3-3"}); err != nil {
		t.Errorf("SetFormations before start failed: %v", err)
	}
	if _, err := lm.SetNotes(matchId, "press high"); err != nil {
		t.Errorf("SetNotes before start failed: %v", err)
	}
	s, err := lm.SetOpponentLogo(matchId, "https://example.com/crest.png")
	if err != nil {
		t.Errorf("SetOpponentLogo before start failed: %v", err)
	}
	if s.Formations.Home != "4-4-2" || s.Notes != "press high" {
		t.Errorf("Setup fields not retained: %+v", s)
	}

	if _, err := lm.StartMatch(matchId); err != nil {
		t.Fatalf("StartMatch failed: %v", err)
	}
	if _, err := lm.EndMatch(matchId); err != nil {
		t.Fatalf("EndMatch failed: %v", err)
	}
	if _, err := lm.SetFormations(matchId, Formations{Home: "5-4-1"}); !errors.Is(err, ErrMatchNotLive) {
		t.Errorf("SetFormations after end: expected ErrMatchNotLive, got %v", err)
	}
}

func TestEndedMatchAdvancesToNextGame(t *testing.T) {
	lm, schedule, _, matchId := newTestTracker(t)
	second, err := schedule.CreateEvent(&ScheduleEvent{
		TeamID:   testTeamId,
		Type:     EventTypeAwayGame,
		Title:    "at United Lions",
		Date:     "2026-09-12",
		Time:     "11:00",
		Opponent: "United Lions",
	})
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	if _, err := lm.CurrentMatch(testTeamId); err != nil {
		t.Fatalf("CurrentMatch failed: %v", err)
	}
	if _, err := lm.StartMatch(matchId); err != nil {
		t.Fatalf("StartMatch failed: %v", err)
	}
	if _, err := lm.EndMatch(matchId); err != nil {
		t.Fatalf("EndMatch failed: %v", err)
	}

	s, err := lm.CurrentMatch(testTeamId)
	if err != nil {
		t.Fatalf("CurrentMatch after end failed: %v", err)
	}
	if s.MatchID != second.ID {
		t.Errorf("Expected tracker to advance to %s, got %s", second.ID, s.MatchID)
	}
	if s.OwnSide != SideAway {
		t.Errorf("Expected own side %s, got %s", SideAway, s.OwnSide)
	}
}

func TestReopenEndedMatch(t *testing.T) {
	lm, _, _, matchId := newTestTracker(t)
	if _, err := lm.CurrentMatch(testTeamId); err != nil {
		t.Fatalf("CurrentMatch failed: %v", err)
	}
	if _, err := lm.StartMatch(matchId); err != nil {
		t.Fatalf("StartMatch failed: %v", err)
	}
	if _, err := lm.AppendEvent(matchId, MatchEvent{ID: "e1", Kind: EventKindGoal, Minute: 10, PrimaryPlayerID: "p1", Side: SideHome}); err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}
	if _, err := lm.EndMatch(matchId); err != nil {
		t.Fatalf("EndMatch failed: %v", err)
	}

	s, err := lm.StartMatch(matchId)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	if s.Status != MatchLive {
		t.Errorf("Expected status %s, got %s", MatchLive, s.Status)
	}
	// Ledger and score survive the reopen.
	if len(s.Events) != 1 || s.HomeScore != 1 {
		t.Errorf("Expected ledger and score preserved, got %d events, score %d", len(s.Events), s.HomeScore)
	}

	// The reopened match is current again.
	cur, err := lm.CurrentMatch(testTeamId)
	if err != nil {
		t.Fatalf("CurrentMatch failed: %v", err)
	}
	if cur.MatchID != matchId {
		t.Errorf("Expected reopened match %s to be current, got %s", matchId, cur.MatchID)
	}
}

func TestEndMatchMissingScheduleEvent(t *testing.T) {
	lm, schedule, _, matchId := newTestTracker(t)
	if _, err := lm.CurrentMatch(testTeamId); err != nil {
		t.Fatalf("CurrentMatch failed: %v", err)
	}
	if _, err := lm.StartMatch(matchId); err != nil {
		t.Fatalf("StartMatch failed: %v", err)
	}
	if err := schedule.DeleteEvent(matchId); err != nil {
		t.Fatalf("DeleteEvent failed: %v", err)
	}

	if _, err := lm.EndMatch(matchId); err == nil {
		t.Fatal("Expected EndMatch to fail without the schedule event")
	}

	// The failure must leave the match live.
	s, err := lm.Match(matchId)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if s.Status != MatchLive {
		t.Errorf("Expected match still %s after failed end, got %s", MatchLive, s.Status)
	}
}
