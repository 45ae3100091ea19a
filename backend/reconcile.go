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
	"sort"
	"strings"
)

// fullMatchMinutes is credited to every participant. Substitution
// events are narrative only and do not reduce playing time in this
// design.
const fullMatchMinutes = 90

// defensivePositionMarkers classify a position string as defensive for
// clean sheet purposes, matched by substring on the lowercased value.
var defensivePositionMarkers = []string{"keeper", "defender", "gk", "cb", "lb", "rb"}

// isDefensivePosition reports whether a position earns clean sheets.
func isDefensivePosition(position string) bool {
	pos := strings.ToLower(strings.TrimSpace(position))
	for _, marker := range defensivePositionMarkers {
		if strings.Contains(pos, marker) {
			return true
		}
	}
	return false
}

// matchOutcome composes the score string stored on each stat line, from
// the tracked team's point of view: "2-1 W" means we scored 2,
// conceded 1 and won, whether we were the home or the away side.
func matchOutcome(s *LiveMatchState) (own, opp int, scoreStr string) {
	own, opp = s.HomeScore, s.AwayScore
	if s.OwnSide == SideAway {
		own, opp = s.AwayScore, s.HomeScore
	}
	result := "D"
	switch {
	case own > opp:
		result = "W"
	case own < opp:
		result = "L"
	}
	return own, opp, fmt.Sprintf("%d-%d %s", own, opp, result)
}

// PlayerStatLine pairs a derived stat line with the player it belongs to.
type PlayerStatLine struct {
	PlayerID string
	Line     GameStatLine
}

// reconcileMatch derives one GameStatLine per participating player from
// the final ledger. A player participates by being marked attended on
// the schedule event or by appearing in any ledger event. Players that
// cannot be resolved against the roster are skipped. The function is
// pure: same inputs, same output, which is what makes reopening and
// re-ending a match safe.
func reconcileMatch(s *LiveMatchState, meta *ScheduleEvent, roster []*Player) []PlayerStatLine {
	byID := make(map[string]*Player, len(roster))
	for _, p := range roster {
		byID[p.ID] = p
	}

	participants := make(map[string]bool)
	for _, id := range meta.AttendedPlayerIDs {
		if id != "" {
			participants[id] = true
		}
	}
	for _, ev := range s.Events {
		for _, id := range []string{ev.PrimaryPlayerID, ev.SecondaryPlayerID, ev.CornerTakenByPlayerID} {
			if id != "" {
				participants[id] = true
			}
		}
	}

	_, oppScore, scoreStr := matchOutcome(s)

	ids := make([]string, 0, len(participants))
	for id := range participants {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]PlayerStatLine, 0, len(ids))
	for _, playerId := range ids {
		p, ok := byID[playerId]
		if !ok {
			continue
		}
		line := GameStatLine{
			ID:            StatLineID(s.MatchID, playerId),
			Date:          meta.Date,
			Opponent:      meta.Opponent,
			Score:         scoreStr,
			MinutesPlayed: fullMatchMinutes,
			CleanSheet:    oppScore == 0 && isDefensivePosition(p.Position),
		}
		for _, ev := range s.Events {
			if ev.PrimaryPlayerID == playerId {
				switch ev.Kind {
				case EventKindGoal:
					line.Goals++
				case EventKindPenalty:
					line.Goals++
					line.PenaltiesScored++
				case EventKindFoul:
					line.Fouls++
				case EventKindSave:
					line.Saves++
				case EventKindRedCard:
					line.RedCards++
				}
			}
			if ev.SecondaryPlayerID == playerId && ev.Kind == EventKindGoal {
				line.Assists++
			}
		}
		out = append(out, PlayerStatLine{PlayerID: playerId, Line: line})
	}
	return out
}
