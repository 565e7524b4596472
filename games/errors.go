/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import "errors"

// Kind is the error category reported to clients.
type Kind string

const (
	KindRoomNotFound       Kind = "room-not-found"
	KindRoomAlreadyStarted Kind = "room-already-started"
	KindRoomNoLongerExists Kind = "room-no-longer-exists"
	KindSettingUnavailable Kind = "setting-unavailable"
	KindNoUsername         Kind = "no-username"
	KindChatError          Kind = "chat-error"
	KindOther              Kind = "other"
)

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomAlreadyStarted = errors.New("room already started")
	ErrRoomNoLongerExists = errors.New("room no longer exists")
	ErrSettingUnavailable = errors.New("setting unavailable")
	ErrNoUsername         = errors.New("username cannot be empty")
	ErrChatUnavailable    = errors.New("no team chat for player")
	ErrInvalidMessage     = errors.New("invalid chat message")

	ErrMalformedToken   = errors.New("malformed player id")
	ErrIDSpaceExhausted = errors.New("id space exhausted")
	ErrHandleInUse      = errors.New("connection already bound to a player")
	ErrWrongPhase       = errors.New("action not allowed in current phase")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrInvalidCard      = errors.New("invalid card")
	ErrInvalidHint      = errors.New("invalid hint")
	ErrInvalidTeam      = errors.New("invalid team")
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrRoomNotFound, KindRoomNotFound},
	{ErrRoomAlreadyStarted, KindRoomAlreadyStarted},
	{ErrRoomNoLongerExists, KindRoomNoLongerExists},
	{ErrSettingUnavailable, KindSettingUnavailable},
	{ErrNoUsername, KindNoUsername},
	{ErrChatUnavailable, KindChatError},
	{ErrInvalidMessage, KindChatError},
}

// KindOf classifies err for the wire. Unknown errors are KindOther.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}

	return KindOther
}
