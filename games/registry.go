/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultMaxIDAttempts = 64

// Registry owns every live room and chat, and the index from connection
// handle to player. It is the only place rooms are created or destroyed.
//
// Lock order is Registry.mu, then session.mu.
type Registry struct {
	mu      sync.RWMutex
	rooms   map[RoomID]*session
	chats   map[RoomID]*Chat
	handles map[Handle]PlayerID

	rand        *randomizer
	log         zerolog.Logger
	now         func() time.Time
	maxAttempts int
}

type Option func(*Registry)

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) {
		r.log = l
	}
}

// WithRand makes id generation, team selection and dealing deterministic.
func WithRand(rng *rand.Rand) Option {
	return func(r *Registry) {
		r.rand = newRandomizer(rng)
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// WithMaxIDAttempts caps the retries spent looking for an unused id.
func WithMaxIDAttempts(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		rooms:       make(map[RoomID]*session),
		chats:       make(map[RoomID]*Chat),
		handles:     make(map[Handle]PlayerID),
		rand:        newRandomizer(nil),
		log:         zerolog.Nop(),
		now:         time.Now,
		maxAttempts: defaultMaxIDAttempts,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func validName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrNoUsername
	}

	return name, nil
}

// existing returns the room a handle already belongs to. r.mu must be held.
func (r *Registry) existing(h Handle) (*session, PlayerID, bool) {
	id, ok := r.handles[h]
	if !ok {
		return nil, PlayerID{}, false
	}

	s, ok := r.rooms[id.Room]
	if !ok {
		delete(r.handles, h)
		return nil, PlayerID{}, false
	}

	return s, id, true
}

// CreateRoom opens a new room with name as its first player. A handle that is
// already seated gets its current room back instead.
func (r *Registry) CreateRoom(name string, h Handle) (Room, PlayerID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, id, ok := r.existing(h); ok {
		s.mu.Lock()
		defer s.mu.Unlock()

		return s.snapshot(), id, nil
	}

	name, err := validName(name)
	if err != nil {
		return Room{}, PlayerID{}, err
	}

	roomID, err := r.newRoomID()
	if err != nil {
		return Room{}, PlayerID{}, err
	}

	s := newSession(roomID, r.rand.team(), r.now())

	suffix, err := r.newSuffix(s)
	if err != nil {
		return Room{}, PlayerID{}, err
	}

	id := PlayerID{Room: roomID, Suffix: suffix}
	s.players = append(s.players, &Player{ID: id, Handle: h, Name: name})

	r.rooms[roomID] = s
	r.chats[roomID] = s.chat
	r.handles[h] = id

	r.log.Info().
		Stringer("room", roomID).
		Stringer("player", id).
		Str("name", name).
		Int("rooms", len(r.rooms)).
		Msg("created room")

	return s.snapshot(), id, nil
}

// JoinRoom seats name in an existing room that has not started yet.
func (r *Registry) JoinRoom(name string, h Handle, roomID RoomID) (Room, PlayerID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, id, ok := r.existing(h); ok {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.started {
			return Room{}, PlayerID{}, fmt.Errorf("%w: room %s", ErrRoomAlreadyStarted, s.id)
		}

		return s.snapshot(), id, nil
	}

	name, err := validName(name)
	if err != nil {
		return Room{}, PlayerID{}, err
	}

	s, ok := r.rooms[roomID]
	if !ok {
		return Room{}, PlayerID{}, fmt.Errorf("%w: room %s does not exist", ErrRoomNotFound, roomID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return Room{}, PlayerID{}, fmt.Errorf("%w: room %s", ErrRoomAlreadyStarted, roomID)
	}

	suffix, err := r.newSuffix(s)
	if err != nil {
		return Room{}, PlayerID{}, err
	}

	id := PlayerID{Room: roomID, Suffix: suffix}
	s.players = append(s.players, &Player{ID: id, Handle: h, Name: name})
	s.lastActive = r.now()
	r.handles[h] = id

	r.log.Info().
		Stringer("room", roomID).
		Stringer("player", id).
		Str("name", name).
		Msg("joined room")

	return s.snapshot(), id, nil
}

// LeaveRoom removes the player behind h. The room and its chat are destroyed
// once the last player is gone; the returned snapshot is then empty.
func (r *Registry) LeaveRoom(h Handle) (Room, PlayerID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, id, ok := r.existing(h)
	if !ok {
		return Room{}, PlayerID{}, fmt.Errorf("%w: no room for connection", ErrRoomNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return r.leaveLocked(s, id), id, nil
}

// LeaveIfInactive removes a player that has stayed disconnected since a.
// Absences superseded by a reconnect or a newer disconnect are ignored. It
// reports whether the player was removed.
func (r *Registry) LeaveIfInactive(a Absence) (Room, bool, error) {
	id := a.Player

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.rooms[id.Room]
	if !ok {
		return Room{}, false, fmt.Errorf("%w: room %s", ErrRoomNoLongerExists, id.Room)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.player(id)
	if p == nil || !p.IsInactive || s.absent[id] != a.seq {
		return s.snapshot(), false, nil
	}

	return r.leaveLocked(s, id), true, nil
}

// ReapIdle removes every room whose players are all inactive and which has
// seen no activity since cutoff. Players are removed one by one through the
// regular leave path.
func (r *Registry) ReapIdle(cutoff time.Time) []RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()

	var reaped []RoomID

	for _, s := range r.rooms {
		s.mu.Lock()
		if s.allInactive() && s.lastActive.Before(cutoff) {
			for len(s.players) > 0 {
				r.leaveLocked(s, s.players[0].ID)
			}
			reaped = append(reaped, s.id)
		}
		s.mu.Unlock()
	}

	return reaped
}

// leaveLocked requires r.mu and s.mu.
func (r *Registry) leaveLocked(s *session, id PlayerID) Room {
	if p := s.removePlayer(id); p != nil {
		if r.handles[p.Handle] == id {
			delete(r.handles, p.Handle)
		}

		r.log.Info().
			Stringer("room", s.id).
			Stringer("player", id).
			Str("name", p.Name).
			Msg("left room")
	}
	s.lastActive = r.now()

	if len(s.players) == 0 {
		delete(r.rooms, s.id)
		delete(r.chats, s.id)
		s.closed = true

		r.log.Info().
			Stringer("room", s.id).
			Int("rooms", len(r.rooms)).
			Msg("closed room")
	}

	return s.snapshot()
}

// RoomOf returns the room of the player connected through h.
func (r *Registry) RoomOf(h Handle) (Room, error) {
	s, _, err := r.lock(h)
	if err != nil {
		return Room{}, err
	}
	defer s.mu.Unlock()

	return s.snapshot(), nil
}

// PlayerOf returns the player connected through h.
func (r *Registry) PlayerOf(h Handle) (Player, error) {
	s, p, err := r.lock(h)
	if err != nil {
		return Player{}, err
	}
	defer s.mu.Unlock()

	return *p, nil
}

// RoomByID returns the room with the given id.
func (r *Registry) RoomByID(id RoomID) (Room, error) {
	r.mu.RLock()
	s, ok := r.rooms[id]
	r.mu.RUnlock()

	if !ok {
		return Room{}, fmt.Errorf("%w: room %s does not exist", ErrRoomNotFound, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Room{}, fmt.Errorf("%w: room %s does not exist", ErrRoomNotFound, id)
	}

	return s.snapshot(), nil
}

// PlayerByID looks a player up through the room encoded in its id.
func (r *Registry) PlayerByID(id PlayerID) (Player, error) {
	r.mu.RLock()
	s, ok := r.rooms[id.Room]
	r.mu.RUnlock()

	if !ok {
		return Player{}, fmt.Errorf("%w: room %s", ErrRoomNotFound, id.Room)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.player(id)
	if s.closed || p == nil {
		return Player{}, fmt.Errorf("%w: player %s", ErrRoomNotFound, id)
	}

	return *p, nil
}

// RebindHandle moves player id onto a new connection and marks it active.
// Team and role are left as they were.
func (r *Registry) RebindHandle(id PlayerID, h Handle) (Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.rooms[id.Room]
	if !ok {
		return Room{}, fmt.Errorf("%w: room %s", ErrRoomNoLongerExists, id.Room)
	}

	if bound, ok := r.handles[h]; ok && bound != id {
		return Room{}, fmt.Errorf("%w: %s", ErrHandleInUse, bound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.player(id)
	if p == nil {
		return Room{}, fmt.Errorf("%w: player %s left room %s", ErrRoomNoLongerExists, id, id.Room)
	}

	if r.handles[p.Handle] == id {
		delete(r.handles, p.Handle)
	}
	p.Handle = h
	p.IsInactive = false
	r.handles[h] = id
	s.lastActive = r.now()

	return s.snapshot(), nil
}

// Stats reports the number of live rooms and seated players.
func (r *Registry) Stats() (rooms, players int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms), len(r.handles)
}

// lock resolves h and returns its session locked. The binding is checked
// again under the session lock, since the room may have been destroyed or the
// player rebound in between.
func (r *Registry) lock(h Handle) (*session, *Player, error) {
	r.mu.RLock()
	id, ok := r.handles[h]
	s := r.rooms[id.Room]
	r.mu.RUnlock()

	if !ok || s == nil {
		return nil, nil, fmt.Errorf("%w: no room for connection", ErrRoomNotFound)
	}

	s.mu.Lock()

	p := s.player(id)
	if s.closed || p == nil || p.Handle != h {
		s.mu.Unlock()
		return nil, nil, fmt.Errorf("%w: no room for connection", ErrRoomNotFound)
	}

	return s, p, nil
}

// update runs fn against the room of h and returns the resulting snapshot.
// fn must leave the room untouched when it returns an error.
func (r *Registry) update(h Handle, fn func(s *session, p *Player) error) (Room, error) {
	s, p, err := r.lock(h)
	if err != nil {
		return Room{}, err
	}
	defer s.mu.Unlock()

	if err := fn(s, p); err != nil {
		return Room{}, err
	}
	s.lastActive = r.now()

	return s.snapshot(), nil
}

func (r *Registry) newRoomID() (RoomID, error) {
	span := int(MaxRoomID-MinRoomID) + 1

	for range r.maxAttempts {
		id := MinRoomID + RoomID(r.rand.IntN(span))
		if _, ok := r.rooms[id]; !ok {
			return id, nil
		}
	}

	return 0, fmt.Errorf("%w: no free room id after %d attempts", ErrIDSpaceExhausted, r.maxAttempts)
}

func (r *Registry) newSuffix(s *session) (int, error) {
	for range r.maxAttempts {
		suffix := r.rand.IntN(SuffixSpace)
		if !s.usedSuffix(suffix) {
			return suffix, nil
		}
	}

	return 0, fmt.Errorf("%w: no free player id in room %s after %d attempts", ErrIDSpaceExhausted, s.id, r.maxAttempts)
}
