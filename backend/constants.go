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

// User Roles
const (
	RoleManager        = "Manager"
	RoleCoach          = "Coach"
	RoleAssistantCoach = "Assistant Coach"
	RolePlayer         = "Player"
	RoleParent         = "Parent"
)

// Match Event Kinds
const (
	EventKindGoal       = "goal"
	EventKindOwnGoal    = "own-goal"
	EventKindFoul       = "foul"
	EventKindYellowCard = "yellow-card"
	EventKindRedCard    = "red-card"
	EventKindSubOn      = "sub-on"
	EventKindSubOff     = "sub-off"
	EventKindSave       = "save"
	EventKindPenalty    = "penalty"
	EventKindWhistle    = "whistle"
)

// Match Sides
const (
	SideHome = "home"
	SideAway = "away"
)

// Live Match Statuses
const (
	MatchNotStarted = "not-started"
	MatchLive       = "live"
	MatchEnded      = "ended"
)

// Schedule Event Types
const (
	EventTypeGame     = "Game"
	EventTypeHomeGame = "Home Game"
	EventTypeAwayGame = "Away Game"
	EventTypeTraining = "Training"
	EventTypeMeeting  = "Meeting"
)

// RSVP Statuses
const (
	RSVPGoing    = "Going"
	RSVPNotGoing = "Not Going"
	RSVPMaybe    = "Maybe"
	RSVPPending  = "Pending"
)

// Player Statuses
const (
	PlayerActive      = "Active"
	PlayerInjured     = "Injured"
	PlayerSuspended   = "Suspended"
	PlayerUnavailable = "Unavailable"
	PlayerPending     = "Pending"
)

// Membership Statuses
const (
	MemberActive  = "active"
	MemberPending = "pending"
)

// Tactical Board Object Types
const (
	BoardObjectPlayer = "player"
	BoardObjectBall   = "ball"
	BoardObjectCone   = "cone"
)
