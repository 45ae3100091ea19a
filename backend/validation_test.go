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
	"strings"
	"testing"
)

func TestValidateMatchEvent(t *testing.T) {
	tests := []struct {
		name    string
		event   MatchEvent
		wantErr bool
	}{
		{
			name:  "valid goal",
			event: MatchEvent{Kind: EventKindGoal, Minute: 23, PrimaryPlayerID: "p1", Side: SideHome},
		},
		{
			name:  "valid own goal",
			event: MatchEvent{Kind: EventKindOwnGoal, Minute: 45, PrimaryPlayerID: "p3", Side: SideAway},
		},
		{
			name:  "goal with assist and corner taker",
			event: MatchEvent{Kind: EventKindGoal, Minute: 67, PrimaryPlayerID: "p1", SecondaryPlayerID: "p2", CornerTakenByPlayerID: "p5", Side: SideHome},
		},
		{
			name:  "minute zero is valid",
			event: MatchEvent{Kind: EventKindYellowCard, Minute: 0, PrimaryPlayerID: "p2", Side: SideHome},
		},
		{
			name:  "deep stoppage time",
			event: MatchEvent{Kind: EventKindSubOff, Minute: 120, PrimaryPlayerID: "p2", Side: SideHome},
		},
		{
			name:  "whistle without player",
			event: MatchEvent{Kind: EventKindWhistle, Minute: 45, Side: SideHome, Details: "Half-time"},
		},
		{
			name:  "goal with details",
			event: MatchEvent{Kind: EventKindGoal, Minute: 23, PrimaryPlayerID: "p1", Side: SideHome, Details: "Volley from the edge of the box"},
		},
		{
			name:    "details too long",
			event:   MatchEvent{Kind: EventKindWhistle, Minute: 45, Side: SideHome, Details: strings.Repeat("x", 501)},
			wantErr: true,
		},
		{
			name:    "unknown kind",
			event:   MatchEvent{Kind: "throw-in", Minute: 10, PrimaryPlayerID: "p1", Side: SideHome},
			wantErr: true,
		},
		{
			name:    "negative minute",
			event:   MatchEvent{Kind: EventKindGoal, Minute: -1, PrimaryPlayerID: "p1", Side: SideHome},
			wantErr: true,
		},
		{
			name:    "absurd minute",
			event:   MatchEvent{Kind: EventKindGoal, Minute: 500, PrimaryPlayerID: "p1", Side: SideHome},
			wantErr: true,
		},
		{
			name:    "missing primary player",
			event:   MatchEvent{Kind: EventKindGoal, Minute: 10, Side: SideHome},
			wantErr: true,
		},
		{
			name:    "invalid side",
			event:   MatchEvent{Kind: EventKindGoal, Minute: 10, PrimaryPlayerID: "p1", Side: "middle"},
			wantErr: true,
		},
		{
			name:    "empty side",
			event:   MatchEvent{Kind: EventKindGoal, Minute: 10, PrimaryPlayerID: "p1"},
			wantErr: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateMatchEvent(tc.event)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateMatchEvent() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestValidateScheduleEvent(t *testing.T) {
	tests := []struct {
		name    string
		event   ScheduleEvent
		wantErr bool
	}{
		{
			name:  "valid home game",
			event: ScheduleEvent{Type: EventTypeHomeGame, Title: "vs FC Raptors", Date: "2026-09-05", Time: "14:00", Opponent: "FC Raptors"},
		},
		{
			name:  "valid training without time",
			event: ScheduleEvent{Type: EventTypeTraining, Title: "Session", Date: "2026-09-03"},
		},
		{
			name:  "valid generic game",
			event: ScheduleEvent{Type: EventTypeGame, Title: "Cup tie", Date: "2026-09-07", Time: "15:00", Opponent: "Harbor Rovers"},
		},
		{
			name:    "generic game without opponent",
			event:   ScheduleEvent{Type: EventTypeGame, Title: "Cup tie", Date: "2026-09-07"},
			wantErr: true,
		},
		{
			name:    "unknown type",
			event:   ScheduleEvent{Type: "Party", Title: "X", Date: "2026-09-03"},
			wantErr: true,
		},
		{
			name:    "missing title",
			event:   ScheduleEvent{Type: EventTypeTraining, Date: "2026-09-03"},
			wantErr: true,
		},
		{
			name:    "bad date",
			event:   ScheduleEvent{Type: EventTypeTraining, Title: "Session", Date: "05/09/2026"},
			wantErr: true,
		},
		{
			name:    "bad time",
			event:   ScheduleEvent{Type: EventTypeTraining, Title: "Session", Date: "2026-09-03", Time: "6pm"},
			wantErr: true,
		},
		{
			name:    "game without opponent",
			event:   ScheduleEvent{Type: EventTypeAwayGame, Title: "Away day", Date: "2026-09-12", Time: "11:00"},
			wantErr: true,
		},
		{
			name:    "title too long",
			event:   ScheduleEvent{Type: EventTypeTraining, Title: strings.Repeat("x", 101), Date: "2026-09-03"},
			wantErr: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateScheduleEvent(&tc.event)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateScheduleEvent() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestValidatePlayer(t *testing.T) {
	tests := []struct {
		name    string
		player  Player
		wantErr bool
	}{
		{
			name:   "valid",
			player: Player{Name: "Liam Johnson", JerseyNumber: 9, Position: "Forward"},
		},
		{
			name:   "valid with status",
			player: Player{Name: "Marcus Rashford", JerseyNumber: 11, Status: PlayerInjured},
		},
		{
			name:    "missing name",
			player:  Player{JerseyNumber: 9},
			wantErr: true,
		},
		{
			name:    "negative jersey",
			player:  Player{Name: "X", JerseyNumber: -1},
			wantErr: true,
		},
		{
			name:    "jersey too large",
			player:  Player{Name: "X", JerseyNumber: 1000},
			wantErr: true,
		},
		{
			name:    "unknown status",
			player:  Player{Name: "X", Status: "On Holiday"},
			wantErr: true,
		},
		{
			name:    "name too long",
			player:  Player{Name: strings.Repeat("x", 51)},
			wantErr: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePlayer(&tc.player)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidatePlayer() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestValidateTeam(t *testing.T) {
	tests := []struct {
		name    string
		team    Team
		wantErr bool
	}{
		{name: "valid", team: Team{Name: "VTAC Demo FC", Sport: "Soccer"}},
		{name: "valid with code", team: Team{Name: "VTAC U18 Elite", Code: "ELITE1"}},
		{name: "missing name", team: Team{}, wantErr: true},
		{name: "bad code", team: Team{Name: "X", Code: "abc"}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateTeam(&tc.team)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateTeam() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestValidateRoleAndRSVP(t *testing.T) {
	for _, role := range []string{RoleManager, RoleCoach, RoleAssistantCoach, RolePlayer, RoleParent} {
		if err := ValidateRole(role); err != nil {
			t.Errorf("ValidateRole(%q) failed: %v", role, err)
		}
	}
	if err := ValidateRole("Mascot"); err == nil {
		t.Error("Expected unknown role to be rejected")
	}

	for _, s := range []string{RSVPGoing, RSVPNotGoing, RSVPMaybe, RSVPPending} {
		if err := ValidateRSVPStatus(s); err != nil {
			t.Errorf("ValidateRSVPStatus(%q) failed: %v", s, err)
		}
	}
	if err := ValidateRSVPStatus("Yes"); err == nil {
		t.Error("Expected unknown RSVP status to be rejected")
	}
}

func TestValidateChatMessage(t *testing.T) {
	if err := ValidateChatMessage(&ChatMessage{Content: "hello"}); err != nil {
		t.Errorf("ValidateChatMessage failed: %v", err)
	}
	if err := ValidateChatMessage(&ChatMessage{ImageURL: "https://example.com/pitch.jpg"}); err != nil {
		t.Errorf("Expected image-only message to be valid, got %v", err)
	}
	if err := ValidateChatMessage(&ChatMessage{}); err == nil {
		t.Error("Expected empty message to be rejected")
	}
	if err := ValidateChatMessage(&ChatMessage{Content: strings.Repeat("x", 4001)}); err == nil {
		t.Error("Expected oversized message to be rejected")
	}
	if err := ValidateChatMessage(&ChatMessage{ImageURL: "https://example.com/" + strings.Repeat("x", 2001)}); err == nil {
		t.Error("Expected oversized image URL to be rejected")
	}
}

func TestIsValidTeamCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"LOGIN1", true},
		{"ABC123", true},
		{"abc123", false},
		{"SHORT", false},
		{"TOOLONG1", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := isValidTeamCode(tc.code); got != tc.want {
			t.Errorf("isValidTeamCode(%q) = %v, want %v", tc.code, got, tc.want)
		}
	}
}
