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
	"net/mail"
	"regexp"
	"time"
)

// uuidRegex is a regex for standard UUIDs (8-4-4-4-12 hex digits)
var uuidRegex = regexp.MustCompile(`^[a-fA-F0-9]{8}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{12}$`)

// isValidUUID checks if the string is a valid UUID.
func isValidUUID(id string) bool {
	return uuidRegex.MatchString(id)
}

// isValidEmail checks if the string is a valid email address.
func isValidEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

// teamCodeRegex matches 6-character join codes.
var teamCodeRegex = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// isValidTeamCode checks if the string looks like a join code.
func isValidTeamCode(code string) bool {
	return teamCodeRegex.MatchString(code)
}

const CurrentAppVersion = "0.3.1"

// validateStringLen checks if the string length is within the limit.
func validateStringLen(s string, max int, name string) error {
	if len(s) > max {
		return fmt.Errorf("%s too long (max %d chars)", name, max)
	}
	return nil
}

// validEventKinds enumerates every recordable ledger event kind.
var validEventKinds = map[string]bool{
	EventKindGoal:       true,
	EventKindOwnGoal:    true,
	EventKindFoul:       true,
	EventKindYellowCard: true,
	EventKindRedCard:    true,
	EventKindSubOn:      true,
	EventKindSubOff:     true,
	EventKindSave:       true,
	EventKindPenalty:    true,
	EventKindWhistle:    true,
}

// ValidateMatchEvent checks a ledger event before it is recorded.
func ValidateMatchEvent(ev MatchEvent) error {
	if !validEventKinds[ev.Kind] {
		return fmt.Errorf("unknown event kind: %s", ev.Kind)
	}
	if ev.Minute < 0 {
		return fmt.Errorf("invalid minute: %d", ev.Minute)
	}
	if ev.Minute > 200 {
		return fmt.Errorf("minute out of range: %d", ev.Minute)
	}
	// Whistle entries mark kick-off, half-time and similar moments.
	// They carry no player and never touch the score or the stats.
	if ev.PrimaryPlayerID == "" && ev.Kind != EventKindWhistle {
		return fmt.Errorf("missing primary player")
	}
	if ev.Side != SideHome && ev.Side != SideAway {
		return fmt.Errorf("invalid side: %s", ev.Side)
	}
	return validateStringLen(ev.Details, 500, "details")
}

// validScheduleEventTypes enumerates the calendar entry types.
var validScheduleEventTypes = map[string]bool{
	EventTypeGame:     true,
	EventTypeHomeGame: true,
	EventTypeAwayGame: true,
	EventTypeTraining: true,
	EventTypeMeeting:  true,
}

// ValidateScheduleEvent checks a calendar entry before it is stored.
func ValidateScheduleEvent(e *ScheduleEvent) error {
	if !validScheduleEventTypes[e.Type] {
		return fmt.Errorf("unknown event type: %s", e.Type)
	}
	if e.Title == "" {
		return fmt.Errorf("missing title")
	}
	if err := validateStringLen(e.Title, 100, "title"); err != nil {
		return err
	}
	if err := validateStringLen(e.Location, 100, "location"); err != nil {
		return err
	}
	if err := validateStringLen(e.Opponent, 50, "opponent"); err != nil {
		return err
	}
	if err := validateStringLen(e.Notes, 2000, "notes"); err != nil {
		return err
	}
	if _, err := time.Parse("2006-01-02", e.Date); err != nil {
		return fmt.Errorf("invalid date format: %v", err)
	}
	if e.Time != "" {
		if _, err := time.Parse("15:04", e.Time); err != nil {
			return fmt.Errorf("invalid time format: %v", err)
		}
	}
	if e.IsGame() && e.Opponent == "" {
		return fmt.Errorf("games require an opponent")
	}
	return nil
}

// validRSVPStatuses enumerates the attendance answers.
var validRSVPStatuses = map[string]bool{
	RSVPGoing:    true,
	RSVPNotGoing: true,
	RSVPMaybe:    true,
	RSVPPending:  true,
}

// ValidateRSVPStatus checks an attendance answer.
func ValidateRSVPStatus(status string) error {
	if !validRSVPStatuses[status] {
		return fmt.Errorf("unknown RSVP status: %s", status)
	}
	return nil
}

// validPlayerStatuses enumerates the availability states.
var validPlayerStatuses = map[string]bool{
	PlayerActive:      true,
	PlayerInjured:     true,
	PlayerSuspended:   true,
	PlayerUnavailable: true,
	PlayerPending:     true,
}

// ValidatePlayer checks a roster entry before it is stored.
func ValidatePlayer(p *Player) error {
	if p.Name == "" {
		return fmt.Errorf("missing player name")
	}
	if err := validateStringLen(p.Name, 50, "player name"); err != nil {
		return err
	}
	if p.JerseyNumber < 0 || p.JerseyNumber > 999 {
		return fmt.Errorf("invalid jersey number: %d", p.JerseyNumber)
	}
	if err := validateStringLen(p.Position, 30, "position"); err != nil {
		return err
	}
	if err := validateStringLen(p.Bio, 2000, "bio"); err != nil {
		return err
	}
	if err := validateStringLen(p.Notes, 2000, "notes"); err != nil {
		return err
	}
	if p.Status != "" && !validPlayerStatuses[p.Status] {
		return fmt.Errorf("unknown player status: %s", p.Status)
	}
	return nil
}

// validRoles enumerates the club roles.
var validRoles = map[string]bool{
	RoleManager:        true,
	RoleCoach:          true,
	RoleAssistantCoach: true,
	RolePlayer:         true,
	RoleParent:         true,
}

// ValidateRole checks a club role name.
func ValidateRole(role string) error {
	if !validRoles[role] {
		return fmt.Errorf("unknown role: %s", role)
	}
	return nil
}

// ValidateChatMessage checks a chat post before it is stored.
func ValidateChatMessage(m *ChatMessage) error {
	if m.Content == "" && m.ImageURL == "" {
		return fmt.Errorf("empty message")
	}
	if err := validateStringLen(m.Content, 4000, "message"); err != nil {
		return err
	}
	return validateStringLen(m.ImageURL, 2000, "imageUrl")
}

// ValidateTeam checks a team record before it is stored.
func ValidateTeam(t *Team) error {
	if t.Name == "" {
		return fmt.Errorf("missing team name")
	}
	if err := validateStringLen(t.Name, 50, "team name"); err != nil {
		return err
	}
	if err := validateStringLen(t.Sport, 30, "sport"); err != nil {
		return err
	}
	if t.Code != "" && !isValidTeamCode(t.Code) {
		return fmt.Errorf("invalid team code: %s", t.Code)
	}
	return nil
}
