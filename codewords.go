/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Codewords
//
// Two teams share a board of twenty hidden cards. Each turn the active team's
// spymaster gives a one-word hint and a number, and the rest of the team
// reveals cards one at a time until they miss, run out of guesses, or stop.
// Revealing the black card loses the game; revealing every card of a colour
// wins it for that colour's team.
//
// All game state lives in the games package. This file speaks the websocket
// protocol on top of it:
//   - {prefix}/ws                  → event stream for one connection
//   - {prefix}/rooms/:roomid/qr    → PNG QR code linking to a room
//
// Players reconnect by presenting their player id in the codewords_id cookie
// or the playerId query parameter when opening the websocket.

package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Seednode/codewords/games"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Inbound event types.
const (
	eventCreateRoom        = "createRoom"
	eventJoinRoom          = "joinRoom"
	eventLeaveRoom         = "leaveRoom"
	eventGetID             = "getId"
	eventPickPosition      = "pickPosition"
	eventStartGame         = "startGame"
	eventGiveHint          = "giveHint"
	eventMakeGuess         = "makeGuess"
	eventEndGuessing       = "endGuessing"
	eventRestartGame       = "restartGame"
	eventSendTeamMessage   = "sendTeamMessage"
	eventSendGlobalMessage = "sendGlobalMessage"
)

// Outbound event types.
const (
	eventConnectAck           = "connectAck"
	eventReconnectAck         = "reconnectAck"
	eventReceiveID            = "receiveId"
	eventReceiveRoom          = "receiveRoom"
	eventReceiveTeamMessage   = "receiveTeamMessage"
	eventReceiveGlobalMessage = "receiveGlobalMessage"
	eventGameOver             = "gameOver"
	eventError                = "error"
)

const playerCookieName = "codewords_id"

var errUnknownEvent = errors.New("unknown event type")

// ClientMessage is any event sent by a client. Only the fields relevant to
// Type are read.
type ClientMessage struct {
	Type      string       `json:"type"`
	Username  string       `json:"username,omitempty"`  // createRoom, joinRoom
	RoomID    games.RoomID `json:"roomId,omitempty"`    // joinRoom
	Team      games.Team   `json:"team,omitempty"`      // pickPosition
	Spymaster bool         `json:"spymaster,omitempty"` // pickPosition
	Word      string       `json:"word,omitempty"`      // giveHint
	Number    int          `json:"number,omitempty"`    // giveHint
	Guess     *int         `json:"guess,omitempty"`     // makeGuess
	Message   string       `json:"message,omitempty"`   // sendTeamMessage, sendGlobalMessage
}

// AckMessage carries no payload ("connectAck", "reconnectAck").
type AckMessage struct {
	Type string `json:"type"`
}

// IDMessage tells a client who it is. Both ids are null outside a room.
type IDMessage struct {
	Type     string          `json:"type"` // "receiveId"
	PlayerID *games.PlayerID `json:"playerId"`
	RoomID   *games.RoomID   `json:"roomId"`
}

// RoomMessage broadcasts a room snapshot.
type RoomMessage struct {
	Type string     `json:"type"` // "receiveRoom"
	Room games.Room `json:"room"`
}

// ChatLogMessage carries a complete chat log.
type ChatLogMessage struct {
	Type     string              `json:"type"` // "receiveTeamMessage" or "receiveGlobalMessage"
	Messages []games.ChatMessage `json:"messages"`
}

// GameOverMessage announces the winner once a game has ended.
type GameOverMessage struct {
	Type   string     `json:"type"` // "gameOver"
	Winner games.Team `json:"winner"`
}

// ErrorMessage is sent to the originating connection only.
type ErrorMessage struct {
	Type      string     `json:"type"` // "error"
	ErrorType games.Kind `json:"errorType"`
	Message   string     `json:"message"`
}

func idMessage(id games.PlayerID) IDMessage {
	room := id.Room

	return IDMessage{Type: eventReceiveID, PlayerID: &id, RoomID: &room}
}

func roomMessage(room games.Room) RoomMessage {
	return RoomMessage{Type: eventReceiveRoom, Room: room}
}

func errorMessage(err error) ErrorMessage {
	return ErrorMessage{
		Type:      eventError,
		ErrorType: games.KindOf(err),
		Message:   err.Error(),
	}
}

type server struct {
	cfg *Config
	reg *games.Registry
	hub *Hub
	log zerolog.Logger

	handlers map[string]func(*Client, ClientMessage) error
}

func newServer(cfg *Config, reg *games.Registry, log zerolog.Logger) *server {
	s := &server{
		cfg: cfg,
		reg: reg,
		hub: newHub(),
		log: log,
	}

	s.handlers = map[string]func(*Client, ClientMessage) error{
		eventCreateRoom:        s.createRoom,
		eventJoinRoom:          s.joinRoom,
		eventLeaveRoom:         s.leaveRoom,
		eventGetID:             s.getID,
		eventPickPosition:      s.pickPosition,
		eventStartGame:         s.inRoom(s.reg.Start),
		eventGiveHint:          s.giveHint,
		eventMakeGuess:         s.makeGuess,
		eventEndGuessing:       s.inRoom(s.reg.EndGuessing),
		eventRestartGame:       s.inRoom(s.reg.Restart),
		eventSendTeamMessage:   s.sendTeamMessage,
		eventSendGlobalMessage: s.sendGlobalMessage,
	}

	return s
}

func (s *server) dispatch(c *Client, msg ClientMessage) {
	handler, ok := s.handlers[msg.Type]
	if !ok {
		s.fail(c, msg, fmt.Errorf("%w: %q", errUnknownEvent, msg.Type))
		return
	}

	if err := handler(c, msg); err != nil {
		s.fail(c, msg, err)
	}
}

func (s *server) fail(c *Client, msg ClientMessage, err error) {
	kind := games.KindOf(err)

	c.log.Debug().
		Err(err).
		Str("event", msg.Type).
		Str("kind", string(kind)).
		Msg("rejected event")

	s.hub.sendTo(c, errorMessage(err))
}

func (s *server) rateLimited(c *Client, msg ClientMessage) {
	s.fail(c, msg, fmt.Errorf("rate limit exceeded, %q dropped", msg.Type))
}

// lockRoomOf serializes on the room c currently sits in.
func (s *server) lockRoomOf(c *Client) (func(), error) {
	p, err := s.reg.PlayerOf(c.handle)
	if err != nil {
		return nil, err
	}

	return s.hub.serialize(p.ID.Room), nil
}

// resubscribe points c at the channels player id belongs to right now.
func (s *server) resubscribe(c *Client, id games.PlayerID) {
	ch, err := s.reg.ChannelsFor(id)
	if err != nil {
		s.hub.unsubscribe(c)
		return
	}
	s.hub.subscribe(c, ch)
}

// syncChat sends c the chat logs it can read.
func (s *server) syncChat(c *Client) {
	view, err := s.reg.ChatOf(c.handle)
	if err != nil {
		return
	}

	s.hub.sendTo(c, ChatLogMessage{Type: eventReceiveGlobalMessage, Messages: view.Global.Messages})
	if view.Team.Channel != "" {
		s.hub.sendTo(c, ChatLogMessage{Type: eventReceiveTeamMessage, Messages: view.Team.Messages})
	}
}

func (s *server) createRoom(c *Client, msg ClientMessage) error {
	room, id, err := s.reg.CreateRoom(msg.Username, c.handle)
	if err != nil {
		return err
	}

	s.hub.bind(c, id)
	s.hub.sendTo(c, idMessage(id))
	s.resubscribe(c, id)
	s.hub.sendTo(c, roomMessage(room))
	s.syncChat(c)

	return nil
}

func (s *server) joinRoom(c *Client, msg ClientMessage) error {
	unlock := s.hub.serialize(msg.RoomID)
	defer unlock()

	room, id, err := s.reg.JoinRoom(msg.Username, c.handle, msg.RoomID)
	if err != nil {
		return err
	}

	s.hub.bind(c, id)
	s.hub.sendTo(c, idMessage(id))
	s.resubscribe(c, id)
	s.hub.publish(games.RoomChannel(room.ID), roomMessage(room))
	s.syncChat(c)

	return nil
}

func (s *server) leaveRoom(c *Client, _ ClientMessage) error {
	unlock, err := s.lockRoomOf(c)
	if err != nil {
		return err
	}
	defer unlock()

	room, id, err := s.reg.LeaveRoom(c.handle)
	if err != nil {
		return err
	}

	s.hub.unsubscribe(c)
	s.hub.unbind(c)
	s.hub.sendTo(c, IDMessage{Type: eventReceiveID})

	if len(room.Players) > 0 {
		s.hub.publish(games.RoomChannel(room.ID), roomMessage(room))
	}

	c.log.Debug().Stringer("player", id).Msg("left room")

	return nil
}

func (s *server) getID(c *Client, _ ClientMessage) error {
	p, err := s.reg.PlayerOf(c.handle)
	if err != nil {
		s.hub.sendTo(c, IDMessage{Type: eventReceiveID})
		return nil
	}

	s.hub.sendTo(c, idMessage(p.ID))

	return nil
}

func (s *server) pickPosition(c *Client, msg ClientMessage) error {
	unlock, err := s.lockRoomOf(c)
	if err != nil {
		return err
	}
	defer unlock()

	room, err := s.reg.PickPosition(c.handle, msg.Team, msg.Spymaster)
	if err != nil {
		return err
	}

	p, err := s.reg.PlayerOf(c.handle)
	if err == nil {
		s.resubscribe(c, p.ID)
	}

	s.hub.publish(games.RoomChannel(room.ID), roomMessage(room))
	s.syncChat(c)

	return nil
}

// inRoom adapts a room action that needs no arguments into a handler that
// broadcasts the resulting snapshot.
func (s *server) inRoom(action func(games.Handle) (games.Room, error)) func(*Client, ClientMessage) error {
	return func(c *Client, _ ClientMessage) error {
		unlock, err := s.lockRoomOf(c)
		if err != nil {
			return err
		}
		defer unlock()

		room, err := action(c.handle)
		if err != nil {
			return err
		}

		s.hub.publish(games.RoomChannel(room.ID), roomMessage(room))

		return nil
	}
}

func (s *server) giveHint(c *Client, msg ClientMessage) error {
	unlock, err := s.lockRoomOf(c)
	if err != nil {
		return err
	}
	defer unlock()

	room, err := s.reg.GiveHint(c.handle, msg.Word, msg.Number)
	if err != nil {
		return err
	}

	s.hub.publish(games.RoomChannel(room.ID), roomMessage(room))

	return nil
}

func (s *server) makeGuess(c *Client, msg ClientMessage) error {
	unlock, err := s.lockRoomOf(c)
	if err != nil {
		return err
	}
	defer unlock()

	if msg.Guess == nil {
		return fmt.Errorf("%w: no card chosen", games.ErrInvalidCard)
	}

	room, card, err := s.reg.MakeGuess(c.handle, *msg.Guess)
	if err != nil {
		return err
	}

	c.log.Debug().
		Stringer("room", room.ID).
		Int("card", *msg.Guess).
		Str("colour", string(card.Colour)).
		Msg("revealed card")

	channel := games.RoomChannel(room.ID)
	s.hub.publish(channel, roomMessage(room))

	if room.Phase == games.PhaseGameOver {
		s.hub.publish(channel, GameOverMessage{Type: eventGameOver, Winner: room.Winner})
	}

	return nil
}

func (s *server) sendTeamMessage(c *Client, msg ClientMessage) error {
	unlock, err := s.lockRoomOf(c)
	if err != nil {
		return err
	}
	defer unlock()

	d, err := s.reg.SendTeamMessage(c.handle, msg.Message)
	if err != nil {
		return err
	}

	s.hub.publish(d.Channel, ChatLogMessage{Type: eventReceiveTeamMessage, Messages: d.Messages})

	return nil
}

func (s *server) sendGlobalMessage(c *Client, msg ClientMessage) error {
	unlock, err := s.lockRoomOf(c)
	if err != nil {
		return err
	}
	defer unlock()

	d, err := s.reg.SendGlobalMessage(c.handle, msg.Message)
	if err != nil {
		return err
	}

	s.hub.publish(d.Channel, ChatLogMessage{Type: eventReceiveGlobalMessage, Messages: d.Messages})

	return nil
}

// connect greets a new connection, resuming its seat when it presented a
// player id.
func (s *server) connect(c *Client, token string) {
	if token == "" {
		s.hub.sendTo(c, AckMessage{Type: eventConnectAck})
		return
	}

	id, err := games.ParsePlayerID(token)
	if err != nil {
		s.hub.sendTo(c, AckMessage{Type: eventConnectAck})
		s.hub.sendTo(c, errorMessage(err))
		return
	}

	unlock := s.hub.serialize(id.Room)
	defer unlock()

	rec, err := s.reg.Reconnect(token, c.handle)
	if err != nil {
		c.log.Debug().
			Err(err).
			Str("kind", string(games.KindOf(err))).
			Msg("reconnect refused")

		s.hub.sendTo(c, AckMessage{Type: eventConnectAck})
		s.hub.sendTo(c, errorMessage(err))
		return
	}

	s.hub.bind(c, rec.Player.ID)
	s.hub.sendTo(c, AckMessage{Type: eventReconnectAck})
	s.hub.sendTo(c, idMessage(rec.Player.ID))
	s.hub.subscribe(c, rec.Channels)
	s.hub.publish(games.RoomChannel(rec.Room.ID), roomMessage(rec.Room))
	s.syncChat(c)
}

// disconnect marks the player behind c inactive and gives it playerTimeout to
// come back before its seat is released.
func (s *server) disconnect(c *Client) {
	s.hub.remove(c)

	unlock, err := s.lockRoomOf(c)
	if err != nil {
		return
	}

	room, gone, err := s.reg.Disconnect(c.handle)
	if err == nil {
		s.hub.publish(games.RoomChannel(room.ID), roomMessage(room))
	}
	unlock()

	if err != nil || s.cfg.playerTimeout <= 0 {
		return
	}

	time.AfterFunc(s.cfg.playerTimeout, func() {
		s.expire(gone)
	})
}

// expire releases the seat of a player that never came back after the
// disconnect recorded in gone.
func (s *server) expire(gone games.Absence) {
	id := gone.Player

	unlock := s.hub.serialize(id.Room)
	defer unlock()

	room, removed, err := s.reg.LeaveIfInactive(gone)
	if err != nil || !removed {
		return
	}

	s.log.Info().
		Stringer("room", id.Room).
		Stringer("player", id).
		Msg("released seat of disconnected player")

	if len(room.Players) > 0 {
		s.hub.publish(games.RoomChannel(room.ID), roomMessage(room))
	}
}

// playerToken returns the player id a connecting client presented, if any.
func playerToken(r *http.Request) string {
	if token := strings.TrimSpace(r.URL.Query().Get("playerId")); token != "" {
		return token
	}

	if c, err := r.Cookie(playerCookieName); err == nil {
		return strings.TrimSpace(c.Value)
	}

	return ""
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func serveWS(s *server) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		token := playerToken(r)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.log.Debug().Err(err).Str("remote", realIP(r)).Msg("websocket upgrade failed")
			return
		}

		limiter := rate.NewLimiter(rate.Limit(s.cfg.rateLimit), s.cfg.rateBurst)
		c := newClient(conn, games.Handle(uuid.NewString()), limiter, s.log)

		c.log.Debug().Str("remote", realIP(r)).Msg("connected")

		s.hub.add(c)
		go c.writePump()

		s.connect(c, token)
		c.readPump(s)
	}
}

func registerCodewords(s *server, mux *httprouter.Router) {
	mux.GET(s.cfg.prefix+"/ws", serveWS(s))
	mux.GET(s.cfg.prefix+"/rooms/:roomid/qr", serveQR(s))
}
