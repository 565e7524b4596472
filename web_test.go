/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Seednode/codewords/games"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		port:      8080,
		rateLimit: 1000,
		rateBurst: 1000,
	}
}

func newTestServer(t *testing.T, cfg *Config) (*server, *httptest.Server) {
	t.Helper()

	s := newServer(cfg, games.NewRegistry(), zerolog.Nop())
	ts := httptest.NewServer(newRouter(s, make(chan error, 64)))
	t.Cleanup(ts.Close)

	return s, ts
}

func dial(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	if query != "" {
		url += "?" + query
	}

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg map[string]any) {
	t.Helper()

	require.NoError(t, conn.WriteJSON(msg))
}

// expect reads until a message of the wanted type arrives and decodes it into
// out, skipping anything else.
func expect(t *testing.T, conn *websocket.Conn, want string, out any) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %q", want)

		var head struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(data, &head))

		if head.Type != want {
			continue
		}

		if out != nil {
			require.NoError(t, json.Unmarshal(data, out))
		}

		return
	}
}

// expectRoom reads room snapshots until one satisfies ok.
func expectRoom(t *testing.T, conn *websocket.Conn, ok func(games.Room) bool) games.Room {
	t.Helper()

	for {
		var msg RoomMessage
		expect(t, conn, eventReceiveRoom, &msg)

		if ok(msg.Room) {
			return msg.Room
		}
	}
}

func firstSecret(t *testing.T, room games.Room, pred func(games.Colour) bool) int {
	t.Helper()

	for i, c := range room.Cards {
		if c.IsSecret && pred(c.Colour) {
			return i
		}
	}
	t.Fatal("no matching card")

	return -1
}

func TestWebsocketGame(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	alice := dial(t, ts, "")
	expect(t, alice, eventConnectAck, nil)

	send(t, alice, map[string]any{"type": eventCreateRoom, "username": "alice"})

	var aliceID IDMessage
	expect(t, alice, eventReceiveID, &aliceID)
	require.NotNil(t, aliceID.PlayerID)
	require.NotNil(t, aliceID.RoomID)
	roomID := *aliceID.RoomID

	var created RoomMessage
	expect(t, alice, eventReceiveRoom, &created)
	assert.Equal(t, roomID, created.Room.ID)
	assert.Len(t, created.Room.Players, 1)

	bob := dial(t, ts, "")
	expect(t, bob, eventConnectAck, nil)
	send(t, bob, map[string]any{"type": eventJoinRoom, "username": "bob", "roomId": roomID})

	var bobID IDMessage
	expect(t, bob, eventReceiveID, &bobID)
	require.NotNil(t, bobID.PlayerID)
	assert.Equal(t, roomID, *bobID.RoomID)

	joined := expectRoom(t, alice, func(r games.Room) bool { return len(r.Players) == 2 })

	turn := joined.Turn
	send(t, alice, map[string]any{"type": eventPickPosition, "team": turn, "spymaster": true})
	send(t, bob, map[string]any{"type": eventPickPosition, "team": turn, "spymaster": false})
	expectRoom(t, alice, func(r games.Room) bool {
		p, _ := r.Player(*bobID.PlayerID)
		return p.Team == turn
	})

	send(t, alice, map[string]any{"type": eventStartGame})
	started := expectRoom(t, bob, func(r games.Room) bool { return r.IsStarted })
	require.Len(t, started.Cards, games.DeckSize)
	assert.Equal(t, games.PhaseHinting, started.Phase)

	send(t, alice, map[string]any{"type": eventGiveHint, "word": "sun", "number": 2})
	hinted := expectRoom(t, bob, func(r games.Room) bool { return r.CurrentHint != nil })
	assert.Equal(t, 2, hinted.RemainingGuesses)

	grey := firstSecret(t, hinted, func(c games.Colour) bool { return c == games.ColourGrey })
	send(t, bob, map[string]any{"type": eventMakeGuess, "guess": grey})
	guessed := expectRoom(t, alice, func(r games.Room) bool { return len(r.HintHistory) == 1 })
	assert.Equal(t, turn.Other(), guessed.Turn)
	assert.False(t, guessed.Cards[grey].IsSecret)

	send(t, bob, map[string]any{"type": eventSendTeamMessage, "message": "sorry"})
	var chat ChatLogMessage
	expect(t, alice, eventReceiveTeamMessage, &chat)
	require.Len(t, chat.Messages, 1)
	assert.Equal(t, *bobID.PlayerID, chat.Messages[0].SenderID)
	assert.Equal(t, "sorry", chat.Messages[0].Message)
}

func TestWebsocketGameOver(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	alice := dial(t, ts, "")
	send(t, alice, map[string]any{"type": eventCreateRoom, "username": "alice"})

	created := expectRoom(t, alice, func(games.Room) bool { return true })
	turn := created.Turn

	send(t, alice, map[string]any{"type": eventPickPosition, "team": turn, "spymaster": true})
	send(t, alice, map[string]any{"type": eventStartGame})
	started := expectRoom(t, alice, func(r games.Room) bool { return r.IsStarted })

	send(t, alice, map[string]any{"type": eventGiveHint, "word": "night", "number": 1})
	expectRoom(t, alice, func(r games.Room) bool { return r.CurrentHint != nil })

	send(t, alice, map[string]any{"type": eventMakeGuess})
	var refused ErrorMessage
	expect(t, alice, eventError, &refused)
	assert.Equal(t, games.KindOther, refused.ErrorType)
	assert.Contains(t, refused.Message, "invalid card")

	black := firstSecret(t, started, func(c games.Colour) bool { return c == games.ColourBlack })
	send(t, alice, map[string]any{"type": eventMakeGuess, "guess": black})

	final := expectRoom(t, alice, func(r games.Room) bool { return r.Phase == games.PhaseGameOver })
	for i, c := range final.Cards {
		assert.Equal(t, i != black, c.IsSecret, "card %d", i)
	}

	var over GameOverMessage
	expect(t, alice, eventGameOver, &over)
	assert.Equal(t, turn.Other(), over.Winner)
}

func TestWebsocketErrors(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	conn := dial(t, ts, "")
	expect(t, conn, eventConnectAck, nil)

	testCases := []struct {
		msg  map[string]any
		want games.Kind
	}{
		{map[string]any{"type": eventJoinRoom, "username": "bob", "roomId": 1234}, games.KindRoomNotFound},
		{map[string]any{"type": eventCreateRoom, "username": "  "}, games.KindNoUsername},
		{map[string]any{"type": eventStartGame}, games.KindRoomNotFound},
		{map[string]any{"type": "dance"}, games.KindOther},
	}

	for _, tc := range testCases {
		send(t, conn, tc.msg)

		var got ErrorMessage
		expect(t, conn, eventError, &got)
		assert.Equal(t, tc.want, got.ErrorType, "%v", tc.msg)
		assert.NotEmpty(t, got.Message)
	}

	send(t, conn, map[string]any{"type": eventGetID})
	var id IDMessage
	expect(t, conn, eventReceiveID, &id)
	assert.Nil(t, id.PlayerID)
	assert.Nil(t, id.RoomID)
}

func TestWebsocketReconnect(t *testing.T) {
	s, ts := newTestServer(t, testConfig())

	alice := dial(t, ts, "")
	send(t, alice, map[string]any{"type": eventCreateRoom, "username": "alice"})
	var aliceID IDMessage
	expect(t, alice, eventReceiveID, &aliceID)

	bob := dial(t, ts, "")
	send(t, bob, map[string]any{"type": eventJoinRoom, "username": "bob", "roomId": *aliceID.RoomID})
	var bobID IDMessage
	expect(t, bob, eventReceiveID, &bobID)
	send(t, bob, map[string]any{"type": eventPickPosition, "team": games.TeamBlue})
	expectRoom(t, bob, func(r games.Room) bool {
		p, _ := r.Player(*bobID.PlayerID)
		return p.Team == games.TeamBlue
	})

	require.NoError(t, bob.Close())

	expectRoom(t, alice, func(r games.Room) bool {
		p, ok := r.Player(*bobID.PlayerID)
		return ok && p.IsInactive
	})

	again := dial(t, ts, "playerId="+bobID.PlayerID.String())
	expect(t, again, eventReconnectAck, nil)

	var resumed IDMessage
	expect(t, again, eventReceiveID, &resumed)
	assert.Equal(t, *bobID.PlayerID, *resumed.PlayerID)

	room := expectRoom(t, again, func(games.Room) bool { return true })
	p, ok := room.Player(*bobID.PlayerID)
	require.True(t, ok)
	assert.False(t, p.IsInactive)
	assert.Equal(t, games.TeamBlue, p.Team)

	rooms, players := s.reg.Stats()
	assert.Equal(t, 1, rooms)
	assert.Equal(t, 2, players)

	gone := games.MaxRoomID
	if gone == *aliceID.RoomID {
		gone--
	}
	stale := dial(t, ts, "playerId="+games.PlayerID{Room: gone, Suffix: 1}.String())
	expect(t, stale, eventConnectAck, nil)
	var refused ErrorMessage
	expect(t, stale, eventError, &refused)
	assert.Equal(t, games.KindRoomNoLongerExists, refused.ErrorType)

	garbage := dial(t, ts, "playerId=nope")
	expect(t, garbage, eventConnectAck, nil)
	expect(t, garbage, eventError, &refused)
	assert.Equal(t, games.KindOther, refused.ErrorType)
}

func TestWebsocketReconnectSupersedesOpenConnection(t *testing.T) {
	s, ts := newTestServer(t, testConfig())

	first := dial(t, ts, "")
	send(t, first, map[string]any{"type": eventCreateRoom, "username": "alice"})
	var aliceID IDMessage
	expect(t, first, eventReceiveID, &aliceID)
	send(t, first, map[string]any{"type": eventPickPosition, "team": games.TeamRed})
	expectRoom(t, first, func(r games.Room) bool {
		p, _ := r.Player(*aliceID.PlayerID)
		return p.Team == games.TeamRed
	})

	bob := dial(t, ts, "")
	send(t, bob, map[string]any{"type": eventJoinRoom, "username": "bob", "roomId": *aliceID.RoomID})
	var bobID IDMessage
	expect(t, bob, eventReceiveID, &bobID)
	send(t, bob, map[string]any{"type": eventPickPosition, "team": games.TeamRed})
	expectRoom(t, bob, func(r games.Room) bool {
		p, _ := r.Player(*bobID.PlayerID)
		return p.Team == games.TeamRed
	})

	second := dial(t, ts, "playerId="+aliceID.PlayerID.String())
	expect(t, second, eventReconnectAck, nil)
	send(t, second, map[string]any{"type": eventPickPosition, "team": games.TeamBlue})
	expectRoom(t, bob, func(r games.Room) bool {
		p, _ := r.Player(*aliceID.PlayerID)
		return p.Team == games.TeamBlue
	})

	send(t, bob, map[string]any{"type": eventSendTeamMessage, "message": "red only"})
	var chat ChatLogMessage
	expect(t, bob, eventReceiveTeamMessage, &chat)
	require.Len(t, chat.Messages, 1)

	require.NoError(t, first.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, data, err := first.ReadMessage()
		if err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNoStatusReceived), "old connection is closed, got %v", err)
			break
		}

		assert.NotContains(t, string(data), eventReceiveTeamMessage)
	}

	assert.Equal(t, 2, s.hub.connections())
}

func TestWebsocketRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.rateLimit = 0.001
	cfg.rateBurst = 1

	_, ts := newTestServer(t, cfg)

	conn := dial(t, ts, "")
	send(t, conn, map[string]any{"type": eventGetID})
	expect(t, conn, eventReceiveID, nil)

	send(t, conn, map[string]any{"type": eventGetID})
	var got ErrorMessage
	expect(t, conn, eventError, &got)
	assert.Equal(t, games.KindOther, got.ErrorType)
	assert.Contains(t, got.Message, "rate limit")
}

func TestHTTPRoutes(t *testing.T) {
	s, ts := newTestServer(t, testConfig())

	get := func(path string) (*http.Response, string) {
		t.Helper()

		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		return resp, string(body)
	}

	resp, body := get("/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Ok\n", body)

	resp, body = get("/version")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "codewords v"+releaseVersion+"\n", body)

	resp, _ = get("/")
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	room, _, err := s.reg.CreateRoom("alice", "h-alice")
	require.NoError(t, err)

	resp, body = get("/stats")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"rooms":1,"players":1,"connections":0}`, body)

	resp, body = get("/rooms/" + room.ID.String() + "/qr")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(body, "\x89PNG"))

	missing := games.MinRoomID
	if missing == room.ID {
		missing++
	}
	resp, _ = get("/rooms/" + strconv.Itoa(int(missing)) + "/qr")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = get("/rooms/abc/qr")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
