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
	"log"
	"net/http"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

// Message types for WebSocket communication
const (
	MsgTypeJoin       = "JOIN"
	MsgTypeAck        = "ACK"
	MsgTypeChat       = "CHAT"
	MsgTypeLiveUpdate = "LIVE_UPDATE"
	MsgTypeError      = "ERROR"
)

// Message represents a WebSocket message. A CHAT message carries
// either inbound Content (client posting) or the stored ChatMessage
// (server broadcasting); a LIVE_UPDATE carries the full match state.
type Message struct {
	Type    string          `json:"type"`
	TeamID  string          `json:"teamId,omitempty"`
	Content string          `json:"content,omitempty"`
	Chat    *ChatMessage    `json:"chat,omitempty"`
	Match   *LiveMatchState `json:"match,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Hub maintains the set of active clients of one team and broadcasts
// chat and live match updates to them.
type Hub struct {
	teamId string

	// Registered clients.
	clients map[*wsClient]bool

	// Register requests from the clients.
	register chan *wsClient

	// Unregister requests from clients.
	unregister chan *wsClient

	// Outbound fan-out requests from HTTP handlers and clients.
	broadcasts chan Message

	cs  *ChatStore
	dir *UserDirectory
	hm  *HubManager
}

func newHub(teamId string, cs *ChatStore, dir *UserDirectory, hm *HubManager) *Hub {
	return &Hub{
		teamId:     teamId,
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcasts: make(chan Message, 64),
		cs:         cs,
		dir:        dir,
		hm:         hm,
	}
}

func (h *Hub) run() {
	idleTimer := time.NewTicker(5 * time.Minute)
	defer idleTimer.Stop()

	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			client.sendJSON(Message{Type: MsgTypeAck, TeamID: h.teamId})
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case msg := <-h.broadcasts:
			h.broadcast(msg)
		case <-idleTimer.C:
			if len(h.clients) == 0 {
				h.hm.RemoveHub(h.teamId)
				return
			}
		}
	}
}

func (h *Hub) broadcast(msg Message) {
	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
			close(client.send)
			delete(h.clients, client)
		}
	}
}

// handleChat stores an inbound chat post and queues it for fan-out.
func (h *Hub) handleChat(c *wsClient, msg Message) {
	u, err := h.dir.Lookup(c.userId)
	if err != nil || u.Status != MemberActive || u.TeamID != h.teamId {
		c.sendJSON(Message{Type: MsgTypeError, Error: "Forbidden: not an active member of this team"})
		return
	}
	cm := &ChatMessage{
		TeamID:        h.teamId,
		UserID:        u.ID,
		UserName:      u.Name,
		UserAvatarURL: u.ImageURL,
		Content:       msg.Content,
	}
	if err := ValidateChatMessage(cm); err != nil {
		c.sendJSON(Message{Type: MsgTypeError, Error: err.Error()})
		return
	}
	if _, err := h.cs.PostMessage(cm); err != nil {
		c.sendJSON(Message{Type: MsgTypeError, Error: "Server error storing message"})
		return
	}
	h.queue(Message{Type: MsgTypeChat, TeamID: h.teamId, Chat: cm})
}

func (h *Hub) queue(msg Message) {
	select {
	case h.broadcasts <- msg:
	default:
		log.Printf("Warning: Hub channel full, dropping broadcast for team %s", h.teamId)
	}
}

// HubManager manages the hubs of all teams.
type HubManager struct {
	hubs      map[string]*Hub
	mu        sync.Mutex
	cs        *ChatStore
	dir       *UserDirectory
	connCount atomic.Int64
}

// ActiveConnections returns the number of open websocket connections.
func (hm *HubManager) ActiveConnections() int {
	return int(hm.connCount.Load())
}

func NewHubManager(cs *ChatStore, dir *UserDirectory) *HubManager {
	return &HubManager{
		hubs: make(map[string]*Hub),
		cs:   cs,
		dir:  dir,
	}
}

func (hm *HubManager) GetHub(teamId string) *Hub {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	if hub, ok := hm.hubs[teamId]; ok {
		return hub
	}

	hub := newHub(teamId, hm.cs, hm.dir, hm)
	hm.hubs[teamId] = hub
	go hub.run()
	return hub
}

func (hm *HubManager) RemoveHub(teamId string) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	delete(hm.hubs, teamId)
}

func (hm *HubManager) Clear() {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.hubs = make(map[string]*Hub)
}

// BroadcastChat fans a stored chat message out to the team's clients.
func (hm *HubManager) BroadcastChat(teamId string, m *ChatMessage) {
	if hub := hm.hub(teamId); hub != nil {
		hub.queue(Message{Type: MsgTypeChat, TeamID: teamId, Chat: m})
	}
}

// BroadcastLiveUpdate fans the current match state out to the team's
// clients.
func (hm *HubManager) BroadcastLiveUpdate(teamId string, s *LiveMatchState) {
	if hub := hm.hub(teamId); hub != nil {
		hub.queue(Message{Type: MsgTypeLiveUpdate, TeamID: teamId, Match: s})
	}
}

// hub returns the existing hub for a team without creating one. A nil
// result means nobody is listening.
func (hm *HubManager) hub(teamId string) *Hub {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	return hm.hubs[teamId]
}

// wsClient is a middleman between the websocket connection and the hub.
type wsClient struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan Message

	userId string
	teamId string
}

// readPump pumps messages from the websocket connection to the hub.
func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
		c.hub.hm.connCount.Add(-1)
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error: %v", err)
			}
			break
		}

		switch msg.Type {
		case MsgTypeJoin:
			c.sendJSON(Message{Type: MsgTypeAck, TeamID: c.teamId})
		case MsgTypeChat:
			c.hub.handleChat(c, msg)
		case "PING":
			c.sendJSON(Message{Type: "PONG"})
		default:
			log.Printf("Unknown message type: %s", msg.Type)
			c.sendJSON(Message{Type: MsgTypeError, Error: "Unknown message type"})
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) sendJSON(msg Message) {
	select {
	case c.send <- msg:
	default:
		// Channel full, drop connection?
	}
}

// ServeWS handles websocket requests from the peer. Only active team
// members may subscribe to a team's feed.
func ServeWS(dir *UserDirectory, hm *HubManager, w http.ResponseWriter, r *http.Request) {
	userId := getUserID(r)

	teamId := r.URL.Query().Get("teamId")
	if teamId == "" {
		http.Error(w, "Invalid teamId", http.StatusBadRequest)
		return
	}

	if _, err := dir.Lookup(userId); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.Error(w, "Unauthenticated", http.StatusUnauthorized)
			return
		}
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}
	if GetTeamAccess(userId, teamId, dir) == AccessNone {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	hub := hm.GetHub(teamId)
	client := &wsClient{hub: hub, conn: conn, send: make(chan Message, 256), userId: userId, teamId: teamId}
	hm.connCount.Add(1)
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}
