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
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/cors"
)

func parsePagination(r *http.Request) (int, int) {
	limit := 50
	offset := 0

	if l := r.URL.Query().Get("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			limit = val
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if val, err := strconv.Atoi(o); err == nil {
			offset = val
		}
	}

	if limit < 1 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	return limit, offset
}

// Options represent server options.
type Options struct {
	Addr         string
	Cert         *tls.Certificate
	UseMockAuth  bool
	Debug        bool
	SeedDemoData bool
	Listener     net.Listener

	// Injectable stores, mostly for tests. Nil fields are created fresh.
	TeamStore     *TeamStore
	UserDirectory *UserDirectory
	RosterStore   *RosterStore
	ScheduleStore *ScheduleStore
	ChatStore     *ChatStore
	BoardStore    *BoardStore
	Assistant     *Assistant

	UseProductionTimeouts bool

	// Auth Options
	AuthCookieName string
	AuthJWKSURL    string

	// CORS Options: comma-separated allowed browser origins. Empty
	// means same-origin only, no CORS headers.
	CORSOrigins string

	// Assistant Options
	GeminiAPIKey string
}

// Server represents the running server instance.
type Server struct {
	httpServer *http.Server
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	return nil
}

// StartServer starts the web server and registers the API handlers.
func StartServer(opts Options) (*Server, error) {
	handler := NewServerHandler(opts)

	httpServer := &http.Server{
		Addr:    opts.Addr,
		Handler: handler,
	}
	if opts.UseProductionTimeouts {
		httpServer.ReadHeaderTimeout = 10 * time.Second
		httpServer.IdleTimeout = 120 * time.Second
	}

	if opts.Cert != nil {
		httpServer.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{*opts.Cert},
		}
	}

	go func() {
		var err error
		if opts.Listener != nil {
			if httpServer.TLSConfig != nil {
				log.Printf("Starting HTTPS server on provided listener %s...", opts.Listener.Addr())
				err = httpServer.ServeTLS(opts.Listener, "", "")
			} else {
				log.Printf("Starting HTTP server on provided listener %s...", opts.Listener.Addr())
				err = httpServer.Serve(opts.Listener)
			}
		} else {
			log.Printf("Server starting on port %s...\n", opts.Addr)
			if opts.Cert != nil {
				err = httpServer.ListenAndServeTLS("", "")
			} else {
				err = httpServer.ListenAndServe()
			}
		}

		if err != nil && !errors.Is(err, net.ErrClosed) && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	return &Server{httpServer: httpServer}, nil
}

// NewServerHandler creates and configures the HTTP handler for the server.
func NewServerHandler(opts Options) http.Handler {
	tStore := opts.TeamStore
	if tStore == nil {
		tStore = NewTeamStore()
	}
	dir := opts.UserDirectory
	if dir == nil {
		dir = NewUserDirectory()
	}
	roster := opts.RosterStore
	if roster == nil {
		roster = NewRosterStore()
	}
	schedule := opts.ScheduleStore
	if schedule == nil {
		schedule = NewScheduleStore()
	}
	chat := opts.ChatStore
	if chat == nil {
		chat = NewChatStore()
	}
	board := opts.BoardStore
	if board == nil {
		board = NewBoardStore()
	}
	assistant := opts.Assistant
	if assistant == nil {
		assistant = NewAssistant(opts.GeminiAPIKey)
	}

	if opts.SeedDemoData {
		SeedDemoData(tStore, dir, roster, schedule, chat)
	}

	live := NewLiveMatchManager(schedule, roster)
	hm := NewHubManager(chat, dir)
	metrics := NewMetrics(hm.ActiveConnections)

	debugf := func(string, ...any) {}
	if opts.Debug {
		debugf = func(f string, a ...any) {
			log.Printf("[DEBUG BACKEND] "+f, a...)
		}
	}

	// requireUser resolves the authenticated caller's directory entry.
	// Writes the error response and returns nil when that fails.
	requireUser := func(w http.ResponseWriter, r *http.Request) *User {
		userId := getUserID(r)
		if userId == "" {
			http.Error(w, "Unauthenticated: Login required", http.StatusUnauthorized)
			return nil
		}
		u, err := dir.Lookup(userId)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				http.Error(w, "Forbidden: Unknown user", http.StatusForbidden)
				return nil
			}
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return nil
		}
		return u
	}

	// requireMember additionally checks active membership in a team.
	requireMember := func(w http.ResponseWriter, r *http.Request, teamId string) *User {
		u := requireUser(w, r)
		if u == nil {
			return nil
		}
		if teamId == "" {
			http.Error(w, "Bad Request: teamId is missing", http.StatusBadRequest)
			return nil
		}
		if u.Status != MemberActive || u.TeamID != teamId {
			debugf("user %s denied for team %s", maskEmail(u.Email), teamId)
			http.Error(w, "Forbidden: Not an active member of this team", http.StatusForbidden)
			return nil
		}
		return u
	}

	// requireOperator additionally checks the caller may run match-day
	// and roster mutations.
	requireOperator := func(w http.ResponseWriter, r *http.Request, teamId string) *User {
		u := requireMember(w, r, teamId)
		if u == nil {
			return nil
		}
		if !canOperateMatch(u.Role) {
			log.Printf("Forbidden: User %s (%s) attempted staff operation on team %s", maskEmail(u.Email), u.Role, teamId)
			http.Error(w, "Forbidden: Staff role required", http.StatusForbidden)
			return nil
		}
		return u
	}

	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)
	}

	decodeJSON := func(w http.ResponseWriter, r *http.Request, v any) bool {
		if err := json.NewDecoder(r.Body).Decode(v); err != nil {
			http.Error(w, "Bad Request: Malformed JSON", http.StatusBadRequest)
			return false
		}
		return true
	}

	// liveStateError maps match lifecycle errors onto HTTP statuses.
	liveStateError := func(w http.ResponseWriter, err error) {
		switch {
		case errors.Is(err, os.ErrNotExist):
			http.Error(w, "Not Found: Match not found", http.StatusNotFound)
		case errors.Is(err, ErrMatchNotLive), errors.Is(err, ErrMatchAlreadyLive):
			http.Error(w, "Conflict: "+err.Error(), http.StatusConflict)
		default:
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}

	// matchTeam resolves whose hub a live mutation should notify.
	matchTeam := func(matchId string) string {
		if s, err := live.Match(matchId); err == nil {
			return s.TeamID
		}
		return ""
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok", "version": CurrentAppVersion})
	})

	mux.HandleFunc("/api/metrics", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		u := requireUser(w, r)
		if u == nil {
			return
		}
		if !canManageTeam(u.Role) {
			http.Error(w, "Forbidden: Staff role required", http.StatusForbidden)
			return
		}
		writeJSON(w, metrics.Snapshot())
	})

	// --- Identity ---

	mux.HandleFunc("/api/me", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			userId := getUserID(r)
			if userId == "" {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte("null\n"))
				return
			}
			u, err := dir.Lookup(userId)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					w.Header().Set("Content-Type", "application/json")
					w.Write([]byte("null\n"))
					return
				}
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			writeJSON(w, u)
		case http.MethodPost:
			u := requireUser(w, r)
			if u == nil {
				return
			}
			var req struct {
				Name     string `json:"name"`
				ImageURL string `json:"imageUrl"`
			}
			if !decodeJSON(w, r, &req) {
				return
			}
			if err := validateStringLen(req.Name, 50, "name"); err != nil {
				http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
				return
			}
			updated, err := dir.Update(&User{Email: u.Email, Name: req.Name, ImageURL: req.ImageURL})
			if err != nil {
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			writeJSON(w, updated)
		default:
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		}
	})

	// --- Teams & membership ---

	mux.HandleFunc("/api/teams", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			u := requireUser(w, r)
			if u == nil {
				return
			}
			if canManageTeam(u.Role) {
				writeJSON(w, tStore.ListTeams())
				return
			}
			if u.TeamID == "" {
				writeJSON(w, []*Team{})
				return
			}
			t, err := tStore.LoadTeam(u.TeamID)
			if err != nil {
				writeJSON(w, []*Team{})
				return
			}
			writeJSON(w, []*Team{t})
		case http.MethodPost:
			u := requireUser(w, r)
			if u == nil {
				return
			}
			if !canManageTeam(u.Role) {
				http.Error(w, "Forbidden: Staff role required", http.StatusForbidden)
				return
			}
			var t Team
			if !decodeJSON(w, r, &t) {
				return
			}
			t.ID = ""
			t.OwnerID = u.Email
			if err := ValidateTeam(&t); err != nil {
				http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
				return
			}
			created, err := tStore.CreateTeam(&t)
			if err != nil {
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			writeJSON(w, created)
		default:
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/teams/update", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		var t Team
		if !decodeJSON(w, r, &t) {
			return
		}
		if requireOperator(w, r, t.ID) == nil {
			return
		}
		updated, err := tStore.UpdateTeam(&t)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				http.Error(w, "Not Found: Team not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, updated)
	})

	// provisionPlayer backs a Player membership with a pending roster
	// entry so staff see the new player alongside the join request.
	provisionPlayer := func(u *User) error {
		if u.Role != RolePlayer || u.PlayerID != "" {
			return nil
		}
		name := u.Name
		if name == "" {
			name = u.Email
		}
		p, err := roster.CreatePlayer(&Player{TeamID: u.TeamID, Name: name, Status: PlayerPending})
		if err != nil {
			return err
		}
		if _, err := dir.Update(&User{Email: u.Email, PlayerID: p.ID}); err != nil {
			return err
		}
		u.PlayerID = p.ID
		return nil
	}

	// Joining is the one operation open to users the directory does not
	// know yet: a team code plus a self-declared role creates a pending
	// membership that staff approve.
	mux.HandleFunc("/api/teams/join", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		userId := getUserID(r)
		if userId == "" {
			http.Error(w, "Unauthenticated: Login required", http.StatusUnauthorized)
			return
		}
		var req struct {
			Code            string   `json:"code"`
			Name            string   `json:"name"`
			Role            string   `json:"role"`
			LinkedPlayerIDs []string `json:"linkedPlayerIds"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Name == "" {
			if c := getAuthClaims(r); c != nil {
				req.Name = c.Name
			}
		}
		if req.Role == "" {
			req.Role = RolePlayer
		}
		if err := ValidateRole(req.Role); err != nil {
			http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
			return
		}
		code := strings.ToUpper(strings.TrimSpace(req.Code))
		if !isValidTeamCode(code) {
			http.Error(w, "Bad Request: invalid team code", http.StatusBadRequest)
			return
		}
		t, err := tStore.FindByCode(code)
		if err != nil {
			http.Error(w, "Not Found: No team with that code", http.StatusNotFound)
			return
		}
		u, err := dir.Register(&User{
			Name:            req.Name,
			Email:           userId,
			Role:            req.Role,
			TeamID:          t.ID,
			Status:          MemberPending,
			LinkedPlayerIDs: req.LinkedPlayerIDs,
		})
		if err != nil {
			if errors.Is(err, os.ErrExist) {
				http.Error(w, "Conflict: You are already registered", http.StatusConflict)
				return
			}
			http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := provisionPlayer(u); err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		log.Printf("User %s requested to join team %s", maskEmail(userId), t.ID)
		writeJSON(w, u)
	})

	mux.HandleFunc("/api/teams/members", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		teamId := r.URL.Query().Get("teamId")
		if requireMember(w, r, teamId) == nil {
			return
		}
		writeJSON(w, dir.ListTeamMembers(teamId))
	})

	mux.HandleFunc("/api/teams/approve", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Email string `json:"email"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		member, err := dir.Lookup(req.Email)
		if err != nil {
			http.Error(w, "Not Found: Unknown member", http.StatusNotFound)
			return
		}
		if requireOperator(w, r, member.TeamID) == nil {
			return
		}
		approved, err := dir.Approve(req.Email)
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, approved)
	})

	mux.HandleFunc("/api/teams/invite", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			TeamID          string   `json:"teamId"`
			Email           string   `json:"email"`
			Name            string   `json:"name"`
			Role            string   `json:"role"`
			PlayerID        string   `json:"playerId"`
			LinkedPlayerIDs []string `json:"linkedPlayerIds"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if requireOperator(w, r, req.TeamID) == nil {
			return
		}
		if !isValidEmail(req.Email) {
			http.Error(w, "Bad Request: invalid email", http.StatusBadRequest)
			return
		}
		if err := ValidateRole(req.Role); err != nil {
			http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
			return
		}
		u, err := dir.Register(&User{
			Name:            req.Name,
			Email:           req.Email,
			Role:            req.Role,
			TeamID:          req.TeamID,
			PlayerID:        req.PlayerID,
			Status:          MemberActive,
			LinkedPlayerIDs: req.LinkedPlayerIDs,
		})
		if err != nil {
			if errors.Is(err, os.ErrExist) {
				http.Error(w, "Conflict: Member already registered", http.StatusConflict)
				return
			}
			http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := provisionPlayer(u); err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, u)
	})

	mux.HandleFunc("/api/teams/members/remove", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Email string `json:"email"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		member, err := dir.Lookup(req.Email)
		if err != nil {
			http.Error(w, "Not Found: Unknown member", http.StatusNotFound)
			return
		}
		if requireOperator(w, r, member.TeamID) == nil {
			return
		}
		if err := dir.Remove(req.Email); err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	// --- Roster ---

	mux.HandleFunc("/api/players", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			if playerId := r.URL.Query().Get("playerId"); playerId != "" {
				p, err := roster.LoadPlayer(playerId)
				if err != nil {
					http.Error(w, "Not Found: Player not found", http.StatusNotFound)
					return
				}
				if requireMember(w, r, p.TeamID) == nil {
					return
				}
				writeJSON(w, p)
				return
			}
			teamId := r.URL.Query().Get("teamId")
			if requireMember(w, r, teamId) == nil {
				return
			}
			writeJSON(w, roster.ListTeamPlayers(teamId))
		case http.MethodPost:
			var p Player
			if !decodeJSON(w, r, &p) {
				return
			}
			if requireOperator(w, r, p.TeamID) == nil {
				return
			}
			p.ID = ""
			if err := ValidatePlayer(&p); err != nil {
				http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
				return
			}
			created, err := roster.CreatePlayer(&p)
			if err != nil {
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			writeJSON(w, created)
		default:
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		}
	})

	// playerOperator loads a player and checks the caller operates its
	// team. Used by the per-player mutations below.
	playerOperator := func(w http.ResponseWriter, r *http.Request, playerId string) *Player {
		p, err := roster.LoadPlayer(playerId)
		if err != nil {
			http.Error(w, "Not Found: Player not found", http.StatusNotFound)
			return nil
		}
		if requireOperator(w, r, p.TeamID) == nil {
			return nil
		}
		return p
	}

	mux.HandleFunc("/api/players/update", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		var p Player
		if !decodeJSON(w, r, &p) {
			return
		}
		if playerOperator(w, r, p.ID) == nil {
			return
		}
		if err := ValidatePlayer(&p); err != nil {
			http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
			return
		}
		updated, err := roster.UpdatePlayer(&p)
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, updated)
	})

	mux.HandleFunc("/api/players/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			PlayerID string `json:"playerId"`
			Status   string `json:"status"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if playerOperator(w, r, req.PlayerID) == nil {
			return
		}
		if !validPlayerStatuses[req.Status] {
			http.Error(w, "Bad Request: unknown player status", http.StatusBadRequest)
			return
		}
		updated, err := roster.SetStatus(req.PlayerID, req.Status)
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, updated)
	})

	mux.HandleFunc("/api/players/notes", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			PlayerID string `json:"playerId"`
			Notes    string `json:"notes"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if playerOperator(w, r, req.PlayerID) == nil {
			return
		}
		if err := validateStringLen(req.Notes, 2000, "notes"); err != nil {
			http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
			return
		}
		updated, err := roster.SetNotes(req.PlayerID, req.Notes)
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, updated)
	})

	mux.HandleFunc("/api/players/stats", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			PlayerID string       `json:"playerId"`
			Line     GameStatLine `json:"line"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if playerOperator(w, r, req.PlayerID) == nil {
			return
		}
		req.Line.ID = ""
		updated, err := roster.AppendStatLine(req.PlayerID, req.Line)
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, updated)
	})

	mux.HandleFunc("/api/players/delete", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			PlayerID string `json:"playerId"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if playerOperator(w, r, req.PlayerID) == nil {
			return
		}
		if err := roster.DeletePlayer(req.PlayerID); err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	// --- Schedule ---

	mux.HandleFunc("/api/events", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			teamId := r.URL.Query().Get("teamId")
			if requireMember(w, r, teamId) == nil {
				return
			}
			writeJSON(w, schedule.ListTeamEvents(teamId))
		case http.MethodPost:
			var e ScheduleEvent
			if !decodeJSON(w, r, &e) {
				return
			}
			if requireOperator(w, r, e.TeamID) == nil {
				return
			}
			e.ID = ""
			if err := ValidateScheduleEvent(&e); err != nil {
				http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
				return
			}
			created, err := schedule.CreateEvent(&e)
			if err != nil {
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			writeJSON(w, created)
		default:
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		}
	})

	// eventOperator loads an event and checks the caller operates its
	// team.
	eventOperator := func(w http.ResponseWriter, r *http.Request, eventId string) *ScheduleEvent {
		e, err := schedule.LoadEvent(eventId)
		if err != nil {
			http.Error(w, "Not Found: Event not found", http.StatusNotFound)
			return nil
		}
		if requireOperator(w, r, e.TeamID) == nil {
			return nil
		}
		return e
	}

	mux.HandleFunc("/api/events/update", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		var e ScheduleEvent
		if !decodeJSON(w, r, &e) {
			return
		}
		if eventOperator(w, r, e.ID) == nil {
			return
		}
		if err := ValidateScheduleEvent(&e); err != nil {
			http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
			return
		}
		updated, err := schedule.UpdateEvent(&e)
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, updated)
	})

	mux.HandleFunc("/api/events/delete", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			EventID string `json:"eventId"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if eventOperator(w, r, req.EventID) == nil {
			return
		}
		if err := schedule.DeleteEvent(req.EventID); err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/api/events/rsvp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			EventID string `json:"eventId"`
			Status  string `json:"status"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		e, err := schedule.LoadEvent(req.EventID)
		if err != nil {
			http.Error(w, "Not Found: Event not found", http.StatusNotFound)
			return
		}
		u := requireMember(w, r, e.TeamID)
		if u == nil {
			return
		}
		if err := ValidateRSVPStatus(req.Status); err != nil {
			http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
			return
		}
		updated, err := schedule.SetRSVP(req.EventID, RSVP{UserID: u.ID, UserName: u.Name, Status: req.Status})
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, updated)
	})

	mux.HandleFunc("/api/events/attendance", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			EventID   string   `json:"eventId"`
			PlayerIDs []string `json:"playerIds"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if eventOperator(w, r, req.EventID) == nil {
			return
		}
		updated, err := schedule.SetAttendance(req.EventID, req.PlayerIDs)
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, updated)
	})

	// --- Chat ---

	mux.HandleFunc("/api/messages", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			teamId := r.URL.Query().Get("teamId")
			if requireMember(w, r, teamId) == nil {
				return
			}
			feed := chat.ListMessages(teamId)
			limit, offset := parsePagination(r)
			if offset > len(feed) {
				offset = len(feed)
			}
			end := offset + limit
			if end > len(feed) {
				end = len(feed)
			}
			writeJSON(w, feed[offset:end])
		case http.MethodPost:
			var req struct {
				TeamID   string `json:"teamId"`
				Content  string `json:"content"`
				ImageURL string `json:"imageUrl"`
			}
			if !decodeJSON(w, r, &req) {
				return
			}
			u := requireMember(w, r, req.TeamID)
			if u == nil {
				return
			}
			m := &ChatMessage{
				TeamID:        req.TeamID,
				UserID:        u.ID,
				UserName:      u.Name,
				UserAvatarURL: u.ImageURL,
				Content:       req.Content,
				ImageURL:      req.ImageURL,
			}
			if err := ValidateChatMessage(m); err != nil {
				http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
				return
			}
			posted, err := chat.PostMessage(m)
			if err != nil {
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			hm.BroadcastChat(req.TeamID, posted)
			writeJSON(w, posted)
		default:
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/messages/react", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			TeamID    string `json:"teamId"`
			MessageID string `json:"messageId"`
			Emoji     string `json:"emoji"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		u := requireMember(w, r, req.TeamID)
		if u == nil {
			return
		}
		if req.Emoji == "" || len(req.Emoji) > 16 {
			http.Error(w, "Bad Request: invalid emoji", http.StatusBadRequest)
			return
		}
		m, err := chat.ToggleReaction(req.TeamID, req.MessageID, u.ID, req.Emoji)
		if err != nil {
			http.Error(w, "Not Found: Message not found", http.StatusNotFound)
			return
		}
		hm.BroadcastChat(req.TeamID, m)
		writeJSON(w, m)
	})

	// --- Live match tracker ---

	mux.HandleFunc("/api/live", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		teamId := r.URL.Query().Get("teamId")
		if requireMember(w, r, teamId) == nil {
			return
		}
		s, err := live.CurrentMatch(teamId)
		if err != nil {
			http.Error(w, "Not Found: No game on the schedule", http.StatusNotFound)
			return
		}
		writeJSON(w, s)
	})

	// liveMutation wraps the shared shape of all tracker mutations:
	// authorize against the match's team, apply, broadcast.
	liveMutation := func(w http.ResponseWriter, r *http.Request, matchId string, apply func() (*LiveMatchState, error)) {
		teamId := matchTeam(matchId)
		if teamId == "" {
			http.Error(w, "Not Found: Match not found", http.StatusNotFound)
			return
		}
		if requireOperator(w, r, teamId) == nil {
			return
		}
		s, err := apply()
		if err != nil {
			liveStateError(w, err)
			return
		}
		hm.BroadcastLiveUpdate(teamId, s)
		writeJSON(w, s)
	}

	mux.HandleFunc("/api/live/start", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			TeamID  string `json:"teamId"`
			MatchID string `json:"matchId"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.MatchID == "" {
			// Starting without an explicit match binds the tracker to
			// the next unplayed game on the schedule.
			if requireOperator(w, r, req.TeamID) == nil {
				return
			}
			s, err := live.CurrentMatch(req.TeamID)
			if err != nil {
				http.Error(w, "Not Found: No game on the schedule", http.StatusNotFound)
				return
			}
			s, err = live.StartMatch(s.MatchID)
			if err != nil {
				liveStateError(w, err)
				return
			}
			hm.BroadcastLiveUpdate(req.TeamID, s)
			writeJSON(w, s)
			return
		}
		liveMutation(w, r, req.MatchID, func() (*LiveMatchState, error) {
			return live.StartMatch(req.MatchID)
		})
	})

	mux.HandleFunc("/api/live/end", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			MatchID string `json:"matchId"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		liveMutation(w, r, req.MatchID, func() (*LiveMatchState, error) {
			return live.EndMatch(req.MatchID)
		})
	})

	mux.HandleFunc("/api/live/events", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			MatchID string     `json:"matchId"`
			Event   MatchEvent `json:"event"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := ValidateMatchEvent(req.Event); err != nil {
			http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
			return
		}
		liveMutation(w, r, req.MatchID, func() (*LiveMatchState, error) {
			return live.AppendEvent(req.MatchID, req.Event)
		})
	})

	mux.HandleFunc("/api/live/events/delete", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			MatchID string `json:"matchId"`
			EventID string `json:"eventId"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		liveMutation(w, r, req.MatchID, func() (*LiveMatchState, error) {
			return live.RemoveEvent(req.MatchID, req.EventID)
		})
	})

	mux.HandleFunc("/api/live/score", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			MatchID   string `json:"matchId"`
			HomeScore int    `json:"homeScore"`
			AwayScore int    `json:"awayScore"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		liveMutation(w, r, req.MatchID, func() (*LiveMatchState, error) {
			return live.SetScore(req.MatchID, req.HomeScore, req.AwayScore)
		})
	})

	mux.HandleFunc("/api/live/formations", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			MatchID    string     `json:"matchId"`
			Formations Formations `json:"formations"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		liveMutation(w, r, req.MatchID, func() (*LiveMatchState, error) {
			return live.SetFormations(req.MatchID, req.Formations)
		})
	})

	mux.HandleFunc("/api/live/notes", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			MatchID string `json:"matchId"`
			Notes   string `json:"notes"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := validateStringLen(req.Notes, 4000, "notes"); err != nil {
			http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
			return
		}
		liveMutation(w, r, req.MatchID, func() (*LiveMatchState, error) {
			return live.SetNotes(req.MatchID, req.Notes)
		})
	})

	mux.HandleFunc("/api/live/opponent-logo", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			MatchID string `json:"matchId"`
			LogoRef string `json:"logoRef"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := validateStringLen(req.LogoRef, 2000, "logoRef"); err != nil {
			http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
			return
		}
		liveMutation(w, r, req.MatchID, func() (*LiveMatchState, error) {
			return live.SetOpponentLogo(req.MatchID, req.LogoRef)
		})
	})

	// --- Tactical board ---

	mux.HandleFunc("/api/board", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			teamId := r.URL.Query().Get("teamId")
			if requireMember(w, r, teamId) == nil {
				return
			}
			writeJSON(w, board.ListDrills(teamId))
		case http.MethodPost:
			var d Drill
			if !decodeJSON(w, r, &d) {
				return
			}
			if requireOperator(w, r, d.TeamID) == nil {
				return
			}
			saved, err := board.SaveDrill(&d)
			if err != nil {
				http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
				return
			}
			writeJSON(w, saved)
		default:
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/board/delete", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			TeamID  string `json:"teamId"`
			DrillID string `json:"drillId"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if requireOperator(w, r, req.TeamID) == nil {
			return
		}
		if err := board.DeleteDrill(req.TeamID, req.DrillID); err != nil {
			http.Error(w, "Not Found: Drill not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	// --- AI assistant ---

	// assistantError maps generation failures onto HTTP statuses.
	assistantError := func(w http.ResponseWriter, err error) {
		if errors.Is(err, ErrAssistantDisabled) {
			http.Error(w, "Service Unavailable: assistant is not configured", http.StatusServiceUnavailable)
			return
		}
		log.Printf("Assistant error: %v", err)
		http.Error(w, "Bad Gateway: assistant request failed", http.StatusBadGateway)
	}

	mux.HandleFunc("/api/assistant/drill", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			TeamID string `json:"teamId"`
			Prompt string `json:"prompt"`
			Sport  string `json:"sport"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if requireOperator(w, r, req.TeamID) == nil {
			return
		}
		if req.Prompt == "" {
			http.Error(w, "Bad Request: missing prompt", http.StatusBadRequest)
			return
		}
		text, err := assistant.DrillSuggestion(r.Context(), req.Prompt, req.Sport)
		if err != nil {
			assistantError(w, err)
			return
		}
		writeJSON(w, map[string]string{"text": text})
	})

	mux.HandleFunc("/api/assistant/training-plan", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			TeamID     string `json:"teamId"`
			Position   string `json:"position"`
			Experience string `json:"experience"`
			Goals      string `json:"goals"`
			Sport      string `json:"sport"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if requireMember(w, r, req.TeamID) == nil {
			return
		}
		text, err := assistant.TrainingPlan(r.Context(), req.Position, req.Experience, req.Goals, req.Sport)
		if err != nil {
			assistantError(w, err)
			return
		}
		writeJSON(w, map[string]string{"text": text})
	})

	mux.HandleFunc("/api/assistant/strategy", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			TeamID   string `json:"teamId"`
			Opponent string `json:"opponent"`
			Notes    string `json:"notes"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if requireOperator(w, r, req.TeamID) == nil {
			return
		}
		t, err := tStore.LoadTeam(req.TeamID)
		if err != nil {
			http.Error(w, "Not Found: Team not found", http.StatusNotFound)
			return
		}
		text, err := assistant.MatchStrategy(r.Context(), t.Name, req.Opponent, roster.ListTeamPlayers(req.TeamID), req.Notes)
		if err != nil {
			assistantError(w, err)
			return
		}
		writeJSON(w, map[string]string{"text": text})
	})

	mux.HandleFunc("/api/assistant/player-summary", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			PlayerID string `json:"playerId"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		p, err := roster.LoadPlayer(req.PlayerID)
		if err != nil {
			http.Error(w, "Not Found: Player not found", http.StatusNotFound)
			return
		}
		if requireMember(w, r, p.TeamID) == nil {
			return
		}
		text, err := assistant.PlayerSummary(r.Context(), p)
		if err != nil {
			assistantError(w, err)
			return
		}
		writeJSON(w, map[string]string{"text": text})
	})

	// --- WebSocket ---

	mux.HandleFunc("/api/ws", func(w http.ResponseWriter, r *http.Request) {
		ServeWS(dir, hm, w, r)
	})

	// --- SSO helpers (mock auth and browser session probing) ---

	mux.HandleFunc("/.sso/status", func(w http.ResponseWriter, r *http.Request) {
		ssoStatusHandler(dir, w, r)
	})
	mux.HandleFunc("/.sso/logout", ssoLogoutHandler)

	handler := http.Handler(mux)
	handler = metricsMiddleware(metrics, handler)
	if opts.UseMockAuth {
		handler = mockAuthMiddleware(opts, handler)
	} else {
		handler = jwtAuthMiddleware(opts, handler)
	}
	handler = loggingMiddleware(handler)
	handler = securityMiddleware(handler)
	handler = cacheControlMiddleware(handler)

	if opts.CORSOrigins != "" {
		c := cors.New(cors.Options{
			AllowedOrigins:   strings.Split(opts.CORSOrigins, ","),
			AllowedMethods:   []string{http.MethodGet, http.MethodPost},
			AllowedHeaders:   []string{"Content-Type"},
			AllowCredentials: true,
		})
		handler = c.Handler(handler)
	}

	return handler
}

// cacheControlMiddleware adds Cache-Control headers optimized for PWA reliability behind a proxy.
func cacheControlMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/.sso/") {
			w.Header().Set("Cache-Control", "private, no-cache, no-transform")
		} else {
			w.Header().Set("Cache-Control", "public, max-age=300, proxy-revalidate, no-transform")
		}
		next.ServeHTTP(w, r)
	})
}

// securityMiddleware adds HTTP security headers to responses.
func securityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data: blob:")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// mockAuthMiddleware simulates the auth proxy by checking for a cookie
// and setting the UserID context.
func mockAuthMiddleware(opts Options, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookieName := "mock_auth_user"
		cookie, err := r.Cookie(cookieName)
		if err == nil && cookie.Value != "" {
			ctx := context.WithValue(r.Context(), userIDKey, normalizeEmail(cookie.Value))
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ssoStatusHandler returns the current user status.
func ssoStatusHandler(dir *UserDirectory, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	userId := getUserID(r)
	if userId == "" {
		w.Write([]byte("null\n"))
		return
	}
	name := ""
	if u, err := dir.Lookup(userId); err == nil {
		name = u.Name
	} else if c := getAuthClaims(r); c != nil {
		// Signed in but not registered yet; fall back to the token.
		name = c.Name
	}
	json.NewEncoder(w).Encode(map[string]any{
		"email": userId,
		"name":  name,
	})
}

// ssoLogoutHandler logs the user out (clears cookie).
func ssoLogoutHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:    "mock_auth_user",
		Value:   "",
		Path:    "/",
		Expires: time.Unix(0, 0),
		MaxAge:  -1,
	})
	w.WriteHeader(http.StatusOK)
}

// loggingMiddleware logs the method and URL path of every incoming HTTP request.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("Received request: %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// metricsMiddleware accounts request counts and latencies per route.
// WebSocket upgrades are passed through untouched because the recorder
// does not implement http.Hijacker.
func metricsMiddleware(m *Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/ws" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sr, r)
		m.Record(r.URL.Path, sr.status, time.Since(start))
	})
}
