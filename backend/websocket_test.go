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
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialWS(t *testing.T, serverURL, user, teamId string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(serverURL, "http") + "/api/ws"
	if teamId != "" {
		wsURL += "?teamId=" + teamId
	}
	hdr := http.Header{}
	if user != "" {
		hdr.Set("Cookie", "mock_auth_user="+user)
	}
	return websocket.DefaultDialer.Dial(wsURL, hdr)
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	return msg
}

func TestServeWSAuth(t *testing.T) {
	srv := httptest.NewServer(NewServerHandler(Options{
		UseMockAuth:  true,
		SeedDemoData: true,
	}))
	defer srv.Close()

	for _, tc := range []struct {
		name     string
		user     string
		teamId   string
		wantCode int
	}{
		{"MissingTeamID", "player1@vtac.com", "", http.StatusBadRequest},
		{"Anonymous", "", "t1", http.StatusUnauthorized},
		{"UnknownUser", "nobody@example.com", "t1", http.StatusUnauthorized},
		{"NonMember", "player1@vtac.com", "t1_u18", http.StatusForbidden},
		{"PendingMember", "newbie@vtac.com", "t1", http.StatusForbidden},
	} {
		t.Run(tc.name, func(t *testing.T) {
			conn, resp, err := dialWS(t, srv.URL, tc.user, tc.teamId)
			if err == nil {
				conn.Close()
				t.Fatal("Expected the handshake to fail")
			}
			if resp == nil || resp.StatusCode != tc.wantCode {
				t.Errorf("Expected status %d, got %+v", tc.wantCode, resp)
			}
		})
	}
}

func TestWebsocketChatRoundTrip(t *testing.T) {
	cs := NewChatStore()
	srv := httptest.NewServer(NewServerHandler(Options{
		UseMockAuth:  true,
		SeedDemoData: true,
		ChatStore:    cs,
	}))
	defer srv.Close()

	conn, _, err := dialWS(t, srv.URL, "player1@vtac.com", "t1")
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	// The hub acknowledges the subscription on registration.
	if msg := readMessage(t, conn); msg.Type != MsgTypeAck || msg.TeamID != "t1" {
		t.Fatalf("Expected registration ACK for t1, got %+v", msg)
	}

	// An explicit JOIN is acknowledged too.
	if err := conn.WriteJSON(Message{Type: MsgTypeJoin}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if msg := readMessage(t, conn); msg.Type != MsgTypeAck {
		t.Fatalf("Expected JOIN ACK, got %+v", msg)
	}

	// A chat post is stored and fanned back out.
	if err := conn.WriteJSON(Message{Type: MsgTypeChat, Content: "On my way to the stadium"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	msg := readMessage(t, conn)
	if msg.Type != MsgTypeChat || msg.Chat == nil {
		t.Fatalf("Expected CHAT broadcast, got %+v", msg)
	}
	if msg.Chat.UserName != "Liam Johnson" || msg.Chat.Content != "On my way to the stadium" {
		t.Errorf("Expected sender resolved from directory, got %+v", msg.Chat)
	}

	feed := cs.ListMessages("t1")
	if len(feed) != 4 {
		t.Fatalf("Expected 4 stored messages, got %d", len(feed))
	}
	if feed[3].Content != "On my way to the stadium" {
		t.Errorf("Expected the posted message stored last, got %q", feed[3].Content)
	}
}

func TestWebsocketPingAndErrors(t *testing.T) {
	srv := httptest.NewServer(NewServerHandler(Options{
		UseMockAuth:  true,
		SeedDemoData: true,
	}))
	defer srv.Close()

	conn, _, err := dialWS(t, srv.URL, "player2@vtac.com", "t1")
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if msg := readMessage(t, conn); msg.Type != MsgTypeAck {
		t.Fatalf("Expected registration ACK, got %+v", msg)
	}

	if err := conn.WriteJSON(Message{Type: "PING"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if msg := readMessage(t, conn); msg.Type != "PONG" {
		t.Errorf("Expected PONG, got %+v", msg)
	}

	if err := conn.WriteJSON(Message{Type: "SHOUT"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if msg := readMessage(t, conn); msg.Type != MsgTypeError {
		t.Errorf("Expected ERROR for unknown type, got %+v", msg)
	}

	// Empty chat content fails validation and is not broadcast.
	if err := conn.WriteJSON(Message{Type: MsgTypeChat, Content: ""}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if msg := readMessage(t, conn); msg.Type != MsgTypeError {
		t.Errorf("Expected ERROR for empty message, got %+v", msg)
	}
}

func TestWebsocketLiveUpdatePush(t *testing.T) {
	srv := httptest.NewServer(NewServerHandler(Options{
		UseMockAuth:  true,
		SeedDemoData: true,
	}))
	defer srv.Close()

	conn, _, err := dialWS(t, srv.URL, "player1@vtac.com", "t1")
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if msg := readMessage(t, conn); msg.Type != MsgTypeAck {
		t.Fatalf("Expected registration ACK, got %+v", msg)
	}

	// Bind the tracker, then start the match over HTTP. The subscriber
	// should see the state change pushed to it.
	client := srv.Client()
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/live?teamId=t1", nil)
	req.AddCookie(&http.Cookie{Name: "mock_auth_user", Value: "coach@vtac.com"})
	resp, err := client.Do(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/live: %v (%+v)", err, resp)
	}
	resp.Body.Close()

	req, _ = http.NewRequest(http.MethodPost, srv.URL+"/api/live/start", strings.NewReader(`{"teamId":"t1"}`))
	req.AddCookie(&http.Cookie{Name: "mock_auth_user", Value: "coach@vtac.com"})
	resp, err = client.Do(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /api/live/start: %v (%+v)", err, resp)
	}
	resp.Body.Close()

	msg := readMessage(t, conn)
	if msg.Type != MsgTypeLiveUpdate || msg.Match == nil {
		t.Fatalf("Expected LIVE_UPDATE, got %+v", msg)
	}
	if msg.Match.MatchID != "event1" || msg.Match.Status != MatchLive {
		t.Errorf("Expected live event1, got %+v", msg.Match)
	}
}

func TestHubManagerBroadcastWithoutListeners(t *testing.T) {
	hm := NewHubManager(NewChatStore(), NewUserDirectory())

	// Nobody is subscribed, so these are no-ops.
	hm.BroadcastChat("t1", &ChatMessage{TeamID: "t1", Content: "hello"})
	hm.BroadcastLiveUpdate("t1", &LiveMatchState{MatchID: "m1", TeamID: "t1"})

	if got := hm.ActiveConnections(); got != 0 {
		t.Errorf("Expected 0 active connections, got %d", got)
	}
}

func TestHubManagerGetAndRemove(t *testing.T) {
	hm := NewHubManager(NewChatStore(), NewUserDirectory())

	h1 := hm.GetHub("t1")
	if h1 == nil {
		t.Fatal("Expected a hub")
	}
	if h2 := hm.GetHub("t1"); h2 != h1 {
		t.Error("Expected the same hub for the same team")
	}
	if other := hm.GetHub("t2"); other == h1 {
		t.Error("Expected a separate hub per team")
	}

	hm.RemoveHub("t1")
	if h3 := hm.GetHub("t1"); h3 == h1 {
		t.Error("Expected a fresh hub after removal")
	}
	hm.Clear()
}
