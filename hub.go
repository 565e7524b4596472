/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"sync"
	"time"

	"github.com/Seednode/codewords/games"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	sendBuffer   = 32
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	maxFrameSize = 4096

	// roomStripes bounds the number of transport locks shared between rooms.
	roomStripes = 64
)

// Client is one websocket connection. Its handle changes with every
// connection, even when the same player reconnects.
type Client struct {
	conn    *websocket.Conn
	send    chan any
	handle  games.Handle
	limiter *rate.Limiter
	log     zerolog.Logger

	// channels and player are guarded by Hub.mu.
	channels games.Channels
	player   *games.PlayerID
}

func newClient(conn *websocket.Conn, handle games.Handle, limiter *rate.Limiter, log zerolog.Logger) *Client {
	return &Client{
		conn:    conn,
		send:    make(chan any, sendBuffer),
		handle:  handle,
		limiter: limiter,
		log:     log.With().Str("handle", string(handle)).Logger(),
	}
}

// Hub tracks live connections and which broadcast channels they listen on.
// Subscriptions are whatever the transport last set from ChannelsFor.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
	subs    map[games.Channel]map[*Client]struct{}
	players map[games.PlayerID]*Client

	// rooms serializes the mutate-then-publish sequence of events per room,
	// so snapshots reach subscribers in the order they were taken.
	rooms [roomStripes]sync.Mutex
}

func newHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		subs:    make(map[games.Channel]map[*Client]struct{}),
		players: make(map[games.PlayerID]*Client),
	}
}

// serialize locks the transport stripe of room id and returns the unlock.
func (h *Hub) serialize(id games.RoomID) func() {
	mu := &h.rooms[int(id)%roomStripes]
	mu.Lock()

	return mu.Unlock
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = struct{}{}
}

// remove forgets c and closes its send queue. It is safe to call more than
// once.
func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		h.dropLocked(c)
	}
}

func (h *Hub) dropLocked(c *Client) {
	h.unsubscribeLocked(c)
	h.unbindLocked(c)
	delete(h.clients, c)
	close(c.send)
}

// bind records c as the only connection of player id. Any other connection
// still holding id is dropped.
func (h *Hub) bind(c *Client, id games.PlayerID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}

	if prev, ok := h.players[id]; ok && prev != c {
		prev.log.Debug().Stringer("player", id).Msg("superseded by a newer connection")
		h.dropLocked(prev)
	}

	h.unbindLocked(c)
	h.players[id] = c
	c.player = &id
}

// unbind forgets the player c held, if any.
func (h *Hub) unbind(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.unbindLocked(c)
}

func (h *Hub) unbindLocked(c *Client) {
	if c.player == nil {
		return
	}

	if h.players[*c.player] == c {
		delete(h.players, *c.player)
	}
	c.player = nil
}

// subscribe replaces the channels c listens on.
func (h *Hub) subscribe(c *Client, ch games.Channels) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}

	h.unsubscribeLocked(c)

	for _, name := range []games.Channel{ch.Global, ch.Team} {
		if name == "" {
			continue
		}

		set, ok := h.subs[name]
		if !ok {
			set = make(map[*Client]struct{})
			h.subs[name] = set
		}
		set[c] = struct{}{}
	}
	c.channels = ch
}

func (h *Hub) unsubscribe(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.unsubscribeLocked(c)
}

func (h *Hub) unsubscribeLocked(c *Client) {
	for _, name := range []games.Channel{c.channels.Global, c.channels.Team} {
		if set, ok := h.subs[name]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(h.subs, name)
			}
		}
	}
	c.channels = games.Channels{}
}

// publish queues msg for every subscriber of name. Subscribers whose queue is
// full are dropped, as they are no longer keeping up.
func (h *Hub) publish(name games.Channel, msg any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.subs[name] {
		h.queueLocked(c, msg)
	}
}

// sendTo queues msg for c alone.
func (h *Hub) sendTo(c *Client, msg any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		h.queueLocked(c, msg)
	}
}

func (h *Hub) queueLocked(c *Client, msg any) {
	select {
	case c.send <- msg:
	default:
		c.log.Warn().Msg("send queue full, dropping connection")
		h.dropLocked(c)
	}
}

// connections reports the number of live connections.
func (h *Hub) connections() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

// closeAll disconnects every client (used on shutdown).
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		h.dropLocked(c)
		_ = c.conn.Close()
	}
}

func (c *Client) readPump(s *server) {
	defer func() {
		s.disconnect(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug().Err(err).Msg("read failed")
			}

			return
		}

		if !c.limiter.Allow() {
			s.rateLimited(c, msg)
			continue
		}

		s.dispatch(c, msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
