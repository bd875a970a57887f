package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"conquerors/catalog"
)

func newTestServer(t *testing.T) (*httptest.Server, *RoomManager) {
	t.Helper()
	rooms := NewRoomManager()
	d := NewDispatcher(rooms)
	srv := httptest.NewServer(NewRouter(rooms, d, catalog.NewMemory(), DefaultConfig()))
	t.Cleanup(srv.Close)
	return srv, rooms
}

func dialRoom(t *testing.T, srv *httptest.Server, roomID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + roomID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	return env.Type, env.Data
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocketJoinStartAndState(t *testing.T) {
	srv, rooms := newTestServer(t)
	alice := dialRoom(t, srv, "R1")
	bob := dialRoom(t, srv, "R1")
	waitFor(t, "two connections", func() bool {
		r := rooms.Get("R1")
		return r != nil && r.ConnCount() == 2
	})

	send := func(c *websocket.Conn, raw string) {
		t.Helper()
		if err := c.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	send(alice, `{"type":"player_join","data":{"player_id":"p1","name":"Alice"}}`)
	for _, c := range []*websocket.Conn{alice, bob} {
		if typ, _ := readEnvelope(t, c); typ != KindPlayerJoin {
			t.Fatalf("echo type = %s", typ)
		}
	}

	// 非法消息不广播，连接保持
	send(bob, `{"type":"unit_move","data":{}}`)
	send(bob, `{"type":"player_join","data":{"player_id":"p2","name":"Bob"}}`)
	if typ, _ := readEnvelope(t, alice); typ != KindPlayerJoin {
		t.Fatalf("expected bob's join echo, got %s", typ)
	}
	readEnvelope(t, bob)

	send(alice, `{"type":"get_game_state","data":{}}`)
	typ, data := readEnvelope(t, bob)
	if typ != KindGameState {
		t.Fatalf("type = %s", typ)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.GameState != PhaseLobby || len(snap.Players) != 2 || snap.Players["p2"].Color != "red" {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestWebSocketLastCloseRemovesRoom(t *testing.T) {
	srv, rooms := newTestServer(t)
	a := dialRoom(t, srv, "R9")
	b := dialRoom(t, srv, "R9")
	waitFor(t, "attach", func() bool {
		r := rooms.Get("R9")
		return r != nil && r.ConnCount() == 2
	})

	_ = a.Close()
	waitFor(t, "first detach", func() bool { return rooms.Get("R9").ConnCount() == 1 })
	_ = b.Close()
	waitFor(t, "room teardown", func() bool { return !rooms.Exists("R9") })

	c := dialRoom(t, srv, "R9")
	waitFor(t, "reattach", func() bool { return rooms.Exists("R9") })
	if err := c.WriteMessage(websocket.TextMessage, []byte(`{"type":"get_game_state"}`)); err != nil {
		t.Fatal(err)
	}
	_, data := readEnvelope(t, c)
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatal(err)
	}
	if snap.GameState != PhaseLobby || len(snap.Players) != 0 {
		t.Fatalf("reattached room not fresh: %+v", snap)
	}
}
