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
	"log"
	"time"
)

// SeedDemoData loads the demo club fixtures into the in-memory stores.
// "VTAC Academy B" deliberately starts with an empty roster so adding
// players can be exercised against a clean team.
func SeedDemoData(ts *TeamStore, dir *UserDirectory, rs *RosterStore, ss *ScheduleStore, cs *ChatStore) {
	teams := []*Team{
		{ID: "t1", Name: "VTAC Demo FC", Code: "LOGIN1", Sport: "football", OwnerID: "manager@vtac.com"},
		{ID: "t1_u18", Name: "VTAC U18 Elite", Code: "ELITE1", Sport: "football", OwnerID: "manager@vtac.com"},
		{ID: "t1_b", Name: "VTAC Academy B", Code: "ACAD02", Sport: "football", OwnerID: "manager@vtac.com"},
	}
	for _, t := range teams {
		if _, err := ts.CreateTeam(t); err != nil {
			log.Printf("seed: team %s: %v", t.ID, err)
		}
	}

	players := []*Player{
		{ID: "p1", TeamID: "t1", Name: "Liam Johnson", JerseyNumber: 9, Position: "Forward", DOB: "1998-04-12",
			Notes: "Natural goalscorer with great instincts. Needs to improve his contribution to defensive plays."},
		{ID: "p2", TeamID: "t1", Name: "Sofia Rossi", JerseyNumber: 10, Position: "Midfielder", DOB: "2000-08-25",
			Notes: "Exceptional passer and playmaker. Can work on being more aggressive in taking shots herself."},
		{ID: "p3", TeamID: "t1", Name: "Jamal Adebayo", JerseyNumber: 4, Position: "Defender", DOB: "1997-11-30",
			Notes: "A wall in defense, strong in the air. Long-range passing from the back needs refinement."},
		{ID: "p4", TeamID: "t1", Name: "Chloe Kim", JerseyNumber: 1, Position: "Goalkeeper", DOB: "1999-02-18",
			Notes: "Agile and a great shot-stopper. Communication with the defensive line can be more commanding."},
		{ID: "p5", TeamID: "t1", Name: "Mateo Garcia", JerseyNumber: 11, Position: "Forward", DOB: "2001-06-05",
			Notes: "Pacy winger with excellent dribbling skills. Final product can be more consistent."},
		{ID: "p6", TeamID: "t1", Name: "Isabella Chen", JerseyNumber: 8, Position: "Midfielder", DOB: "2000-03-22",
			Notes: "High work rate, covers a lot of ground. Decision making in the final third needs improvement."},
		{ID: "p7", TeamID: "t1", Name: "Kenji Tanaka", JerseyNumber: 5, Position: "Defender", DOB: "1999-09-14",
			Notes: "Intelligent defender, reads the game well."},
		{ID: "p8", TeamID: "t1", Name: "Ava O'Connell", JerseyNumber: 6, Position: "Midfielder", DOB: "2002-01-10",
			Notes: "Excellent tackler and ball-winner."},
		{ID: "p11", TeamID: "t1", Name: "Marcus Rashford", JerseyNumber: 10, Position: "Forward", DOB: "1997-10-31",
			Status: PlayerInjured, Notes: "Incredibly fast with a powerful shot. Can sometimes be inconsistent in front of goal."},
		{ID: "p_u18_1", TeamID: "t1_u18", Name: "Jayden Williams", JerseyNumber: 7, Position: "Forward", DOB: "2006-03-15",
			Notes: "Explosive speed, great prospect for senior squad."},
		{ID: "p_u18_2", TeamID: "t1_u18", Name: "Ethan Brown", JerseyNumber: 4, Position: "Defender", DOB: "2006-07-22",
			Notes: "Solid center back, leadership qualities."},
		{ID: "p_u18_4", TeamID: "t1_u18", Name: "Noah Wilson", JerseyNumber: 1, Position: "Goalkeeper", DOB: "2006-11-05",
			Notes: "Good reflexes, working on distribution."},
	}
	for _, p := range players {
		if _, err := rs.CreatePlayer(p); err != nil {
			log.Printf("seed: player %s: %v", p.ID, err)
		}
	}

	users := []*User{
		{ID: "u1", Name: "Maria Garcia", Email: "manager@vtac.com", Role: RoleManager, TeamID: "t1", Status: MemberActive},
		{ID: "u2", Name: "David Chen", Email: "coach@vtac.com", Role: RoleCoach, TeamID: "t1", Status: MemberActive},
		{ID: "u6", Name: "Mike Lee", Email: "assistant@vtac.com", Role: RoleAssistantCoach, TeamID: "t1", Status: MemberActive},
		{ID: "u5", Name: "Pending User", Email: "newbie@vtac.com", Role: RolePlayer, TeamID: "t1", Status: MemberPending},
		{ID: "u_p1", Name: "Liam Johnson", Email: "player1@vtac.com", Role: RolePlayer, TeamID: "t1", PlayerID: "p1", Status: MemberActive},
		{ID: "u_p2", Name: "Sofia Rossi", Email: "player2@vtac.com", Role: RolePlayer, TeamID: "t1", PlayerID: "p2", Status: MemberActive},
		{ID: "u_p4", Name: "Chloe Kim", Email: "player4@vtac.com", Role: RolePlayer, TeamID: "t1", PlayerID: "p4", Status: MemberActive},
		{ID: "u_parent_p1", Name: "Sarah Johnson", Email: "parent1@vtac.com", Role: RoleParent, TeamID: "t1", Status: MemberActive, LinkedPlayerIDs: []string{"p1"}},
		{ID: "u_parent_p2", Name: "Marco Rossi", Email: "parent2@vtac.com", Role: RoleParent, TeamID: "t1", Status: MemberActive, LinkedPlayerIDs: []string{"p2"}},
	}
	for _, u := range users {
		if _, err := dir.Register(u); err != nil {
			log.Printf("seed: user %s: %v", maskEmail(u.Email), err)
		}
	}

	// Fixture dates are relative to today so the demo schedule always
	// has upcoming games to track.
	day := func(offset int) string {
		return time.Now().AddDate(0, 0, offset).Format("2006-01-02")
	}
	events := []*ScheduleEvent{
		{ID: "event1", TeamID: "t1", Type: EventTypeHomeGame, Title: "League Match",
			Date: day(8), Time: "18:00", Location: "City Stadium", Opponent: "FC Raptors",
			Notes:             "Arrive 45 minutes early for warm-up.",
			AttendedPlayerIDs: []string{"p1", "p2", "p5", "p7", "p8"}},
		{ID: "event2", TeamID: "t1", Type: EventTypeTraining, Title: "Defensive Drill Session",
			Date: day(10), Time: "19:30", Location: "Training Ground West",
			Notes: "Focus on defensive drills. Bring water and both kits."},
		{ID: "event3", TeamID: "t1", Type: EventTypeMeeting, Title: "Quarterly Strategy",
			Date: day(13), Time: "10:00", Location: "Local Park Pitch 3",
			Notes: "Team meeting to discuss upcoming strategy."},
		{ID: "event4", TeamID: "t1", Type: EventTypeAwayGame, Title: "Cup Fixture",
			Date: day(15), Time: "15:00", Location: "Riverside Arena", Opponent: "United Lions"},
		{ID: "event_u18_1", TeamID: "t1_u18", Type: EventTypeTraining, Title: "U18 Selection",
			Date: day(15), Time: "17:00", Location: "Academy Pitch 1", Notes: "Selection trials."},
	}
	for _, e := range events {
		if _, err := ss.CreateEvent(e); err != nil {
			log.Printf("seed: event %s: %v", e.ID, err)
		}
	}

	messages := []*ChatMessage{
		{ID: "msg1", TeamID: "t1", UserID: "u2", UserName: "David Chen",
			Content: "Hi team, quick reminder that tomorrow's training will focus on defensive drills. Please come prepared!"},
		{ID: "msg2", TeamID: "t1", UserID: "u1", UserName: "Maria Garcia",
			Content: "Thanks, Coach! Also, everyone please make sure your RSVPs for the weekend game are updated by tonight."},
		{ID: "msg3", TeamID: "t1", UserID: "u_p1", UserName: "Liam Johnson",
			Content: "Got it. I'm confirmed for the game."},
	}
	for _, m := range messages {
		if _, err := cs.PostMessage(m); err != nil {
			log.Printf("seed: message %s: %v", m.ID, err)
		}
	}
}
