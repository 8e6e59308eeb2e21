// Package event defines the narrative domain events consumed by the memory
// engine. Events are facts that already happened; the engine never mutates them.
package event

import "time"

// Kind identifies the type of a domain event.
type Kind string

// Character events.
const (
	// KindCharacterDied records a character's death.
	KindCharacterDied Kind = "character.died"
	// KindCharacterMoved records a character travelling between locations.
	KindCharacterMoved Kind = "character.moved"
	// KindCharacterEncountered records two characters meeting.
	KindCharacterEncountered Kind = "character.encountered"
	// KindCharacterLearned records a character learning a secret.
	KindCharacterLearned Kind = "character.learned"
)

// Location events.
const (
	// KindLocationDestroyed records the destruction of a location.
	KindLocationDestroyed Kind = "location.destroyed"
)

// Kinds lists every supported event kind.
var Kinds = []Kind{
	KindCharacterDied,
	KindCharacterMoved,
	KindCharacterEncountered,
	KindCharacterLearned,
	KindLocationDestroyed,
}

// Event is implemented by every domain event.
type Event interface {
	Kind() Kind
	// EventID is the stable identifier of the event, used as fact source.
	EventID() string
	// OccurredAt is when the event happened in the narrative timeline.
	OccurredAt() time.Time
	// Actors returns the ids of the entities the event is about.
	Actors() []string
}

// Header carries the fields shared by all events.
type Header struct {
	ID string    `json:"id" yaml:"id"`
	At time.Time `json:"at" yaml:"at"`
}

func (h Header) EventID() string       { return h.ID }
func (h Header) OccurredAt() time.Time { return h.At }

// CharacterDied records a character's death.
type CharacterDied struct {
	Header
	CharacterID string
	LocationID  string
	Cause       string
}

func (CharacterDied) Kind() Kind { return KindCharacterDied }

func (e CharacterDied) Actors() []string { return []string{e.CharacterID} }

// CharacterMoved records a character travelling from one location to another.
type CharacterMoved struct {
	Header
	CharacterID    string
	FromLocationID string
	ToLocationID   string
}

func (CharacterMoved) Kind() Kind { return KindCharacterMoved }

func (e CharacterMoved) Actors() []string { return []string{e.CharacterID} }

// CharacterEncountered records two characters meeting, optionally at a location.
type CharacterEncountered struct {
	Header
	CharacterID string
	OtherID     string
	LocationID  string
}

func (CharacterEncountered) Kind() Kind { return KindCharacterEncountered }

func (e CharacterEncountered) Actors() []string { return []string{e.CharacterID, e.OtherID} }

// CharacterLearned records a character coming to know a secret.
type CharacterLearned struct {
	Header
	CharacterID string
	Secret      string
}

func (CharacterLearned) Kind() Kind { return KindCharacterLearned }

func (e CharacterLearned) Actors() []string { return []string{e.CharacterID} }

// LocationDestroyed records the destruction of a location.
type LocationDestroyed struct {
	Header
	LocationID string
	Cause      string
}

func (LocationDestroyed) Kind() Kind { return KindLocationDestroyed }

func (e LocationDestroyed) Actors() []string { return []string{e.LocationID} }
