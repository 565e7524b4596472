/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import "encoding/json"

// Handle identifies one transport connection. A player keeps its PlayerID
// across reconnects but gets a new Handle each time.
type Handle string

// Team is a side of the table. The zero value means unassigned.
type Team string

const (
	TeamNone Team = ""
	TeamRed  Team = "red"
	TeamBlue Team = "blue"
)

func (t Team) Valid() bool {
	return t == TeamRed || t == TeamBlue
}

// Other returns the opposing team.
func (t Team) Other() Team {
	switch t {
	case TeamRed:
		return TeamBlue
	case TeamBlue:
		return TeamRed
	default:
		return TeamNone
	}
}

// Colour returns the card colour belonging to the team.
func (t Team) Colour() Colour {
	switch t {
	case TeamRed:
		return ColourRed
	case TeamBlue:
		return ColourBlue
	default:
		return ""
	}
}

// MarshalJSON encodes TeamNone as null.
func (t Team) MarshalJSON() ([]byte, error) {
	if t == TeamNone {
		return []byte("null"), nil
	}

	return json.Marshal(string(t))
}

func (t *Team) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		*t = TeamNone
		return nil
	}
	*t = Team(*s)

	return nil
}

// Player is a member of a room.
type Player struct {
	ID          PlayerID `json:"id"`
	Handle      Handle   `json:"-"`
	Name        string   `json:"name"`
	Team        Team     `json:"team"`
	IsSpymaster bool     `json:"isSpymaster"`
	IsInactive  bool     `json:"isInactive"`
}

// Hint is a clue word with its guess budget as given by the spymaster.
type Hint struct {
	Word   string `json:"word"`
	Number int    `json:"number"`
}

// HintRecord is an archived hint. Records are never modified once appended.
type HintRecord struct {
	Team Team `json:"team"`
	Hint Hint `json:"hint"`
}

// Room is a point-in-time copy of a live room. It shares no memory with the
// registry and may be kept, serialized and broadcast freely.
type Room struct {
	ID               RoomID       `json:"roomId"`
	Players          []Player     `json:"players"`
	Cards            []Card       `json:"cards"`
	IsStarted        bool         `json:"isStarted"`
	Winner           Team         `json:"winner"`
	Turn             Team         `json:"turn"`
	RemainingGuesses int          `json:"remainingGuesses"`
	CurrentHint      *Hint        `json:"currentHint"`
	HintHistory      []HintRecord `json:"hintHistory"`
	Phase            Phase        `json:"phase"`
}

// Player returns the member with the given id.
func (r Room) Player(id PlayerID) (Player, bool) {
	for _, p := range r.Players {
		if p.ID == id {
			return p, true
		}
	}

	return Player{}, false
}
