package event

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rcliao/story-memory/internal/apperrors"
)

// Envelope is the flat document form of an event, as read from YAML or JSON.
type Envelope struct {
	Kind      Kind      `json:"kind" yaml:"kind"`
	ID        string    `json:"id,omitempty" yaml:"id,omitempty"`
	At        time.Time `json:"at" yaml:"at"`
	Character string    `json:"character,omitempty" yaml:"character,omitempty"`
	Other     string    `json:"other,omitempty" yaml:"other,omitempty"`
	From      string    `json:"from,omitempty" yaml:"from,omitempty"`
	To        string    `json:"to,omitempty" yaml:"to,omitempty"`
	Location  string    `json:"location,omitempty" yaml:"location,omitempty"`
	Cause     string    `json:"cause,omitempty" yaml:"cause,omitempty"`
	Secret    string    `json:"secret,omitempty" yaml:"secret,omitempty"`
}

// Event converts the envelope into its concrete event.
func (e Envelope) Event() (Event, error) {
	h := Header{ID: e.ID, At: e.At}
	switch e.Kind {
	case KindCharacterDied:
		if e.Character == "" {
			return nil, missing(e.Kind, "character")
		}
		return CharacterDied{Header: h, CharacterID: e.Character, LocationID: e.Location, Cause: e.Cause}, nil
	case KindCharacterMoved:
		if e.Character == "" || e.To == "" {
			return nil, missing(e.Kind, "character, to")
		}
		return CharacterMoved{Header: h, CharacterID: e.Character, FromLocationID: e.From, ToLocationID: e.To}, nil
	case KindCharacterEncountered:
		if e.Character == "" || e.Other == "" {
			return nil, missing(e.Kind, "character, other")
		}
		return CharacterEncountered{Header: h, CharacterID: e.Character, OtherID: e.Other, LocationID: e.Location}, nil
	case KindCharacterLearned:
		if e.Character == "" || strings.TrimSpace(e.Secret) == "" {
			return nil, missing(e.Kind, "character, secret")
		}
		return CharacterLearned{Header: h, CharacterID: e.Character, Secret: e.Secret}, nil
	case KindLocationDestroyed:
		if e.Location == "" {
			return nil, missing(e.Kind, "location")
		}
		return LocationDestroyed{Header: h, LocationID: e.Location, Cause: e.Cause}, nil
	default:
		return nil, apperrors.New(apperrors.CodeUnsupportedEventKind,
			fmt.Sprintf("unsupported event kind %q", e.Kind))
	}
}

func missing(k Kind, fields string) error {
	return apperrors.New(apperrors.CodeInvalidArgument,
		fmt.Sprintf("%s event requires %s", k, fields))
}

// Document is a batch of events with optional entity display names.
type Document struct {
	World    string            `json:"world,omitempty" yaml:"world,omitempty"`
	Entities map[string]string `json:"entities,omitempty" yaml:"entities,omitempty"`
	Events   []Envelope        `json:"events" yaml:"events"`
	Chapters [][]Envelope      `json:"chapters,omitempty" yaml:"chapters,omitempty"`
}

// DecodeDocument reads a YAML or JSON event document. A bare list of
// envelopes is accepted as a document holding only events.
func DecodeDocument(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, apperrors.New(apperrors.CodeEmptyEvents, "event document is empty")
	}

	var doc Document
	if data[0] == '[' || data[0] == '-' {
		if err := yaml.Unmarshal(data, &doc.Events); err != nil {
			return nil, fmt.Errorf("parse events: %w", err)
		}
		return &doc, nil
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse events: %w", err)
	}
	return &doc, nil
}

// Decode converts envelopes into events. Every invalid envelope is reported.
func Decode(envs []Envelope) ([]Event, error) {
	events := make([]Event, 0, len(envs))
	var errs []error
	for i, env := range envs {
		ev, err := env.Event()
		if err != nil {
			errs = append(errs, fmt.Errorf("event %d: %w", i, err))
			continue
		}
		events = append(events, ev)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return events, nil
}
