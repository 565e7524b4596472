/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const (
	// MinRoomID and MaxRoomID bound the room id space (inclusive).
	MinRoomID RoomID = 1000
	MaxRoomID RoomID = 9999

	// SuffixSpace is the number of player slots a single room id can encode.
	SuffixSpace = 10000
)

// RoomID identifies a live room.
type RoomID int

func (id RoomID) String() string {
	return strconv.Itoa(int(id))
}

func (id RoomID) valid() bool {
	return id >= MinRoomID && id <= MaxRoomID
}

// PlayerID is the composite key of a player: the room it belongs to and a
// suffix unique within that room. On the wire it is a single integer,
// Room*SuffixSpace + Suffix, so the owning room is recovered arithmetically.
type PlayerID struct {
	Room   RoomID
	Suffix int
}

// Int encodes the id as a single integer.
func (id PlayerID) Int() int64 {
	return int64(id.Room)*SuffixSpace + int64(id.Suffix)
}

func (id PlayerID) String() string {
	return strconv.FormatInt(id.Int(), 10)
}

// PlayerIDFromInt is the inverse of PlayerID.Int.
func PlayerIDFromInt(n int64) (PlayerID, error) {
	if n < 0 {
		return PlayerID{}, fmt.Errorf("%w: negative id %d", ErrMalformedToken, n)
	}

	id := PlayerID{
		Room:   RoomID(n / SuffixSpace),
		Suffix: int(n % SuffixSpace),
	}
	if !id.Room.valid() {
		return PlayerID{}, fmt.Errorf("%w: room %d out of range", ErrMalformedToken, id.Room)
	}

	return id, nil
}

// ParsePlayerID decodes a reconnection token.
func ParsePlayerID(token string) (PlayerID, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return PlayerID{}, fmt.Errorf("%w: empty token", ErrMalformedToken)
	}

	n, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return PlayerID{}, fmt.Errorf("%w: %q", ErrMalformedToken, token)
	}

	return PlayerIDFromInt(n)
}

func (id PlayerID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.Int())
}

func (id *PlayerID) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	parsed, err := PlayerIDFromInt(n)
	if err != nil {
		return err
	}
	*id = parsed

	return nil
}
