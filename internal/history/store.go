// Package history owns the in-memory roster and its bounded undo/redo stack.
package history

import (
	"errors"
	"fmt"

	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/character"
)

// ErrNoCharacter is returned when an index or id names no roster entry.
var ErrNoCharacter = errors.New("history: no such character")

// RosterStore holds the roster and the index of the active character. It is
// owned by the application entry point and passed to whatever needs it.
type RosterStore struct {
	characters []*character.Character
	active     int
}

// NewRosterStore creates a store over characters with the first one active.
func NewRosterStore(characters ...*character.Character) *RosterStore {
	return &RosterStore{characters: characters}
}

// Characters returns the roster in order. The slice must not be modified.
func (s *RosterStore) Characters() []*character.Character { return s.characters }

// Len returns the roster size.
func (s *RosterStore) Len() int { return len(s.characters) }

// ActiveIndex returns the index of the active character.
func (s *RosterStore) ActiveIndex() int { return s.active }

// ActiveCharacter returns the active character, or nil for an empty roster.
func (s *RosterStore) ActiveCharacter() *character.Character {
	if s.active < 0 || s.active >= len(s.characters) {
		return nil
	}
	return s.characters[s.active]
}

// SetActive makes the character at index active.
func (s *RosterStore) SetActive(index int) error {
	if index < 0 || index >= len(s.characters) {
		return fmt.Errorf("index %d of %d: %w", index, len(s.characters), ErrNoCharacter)
	}
	s.active = index
	return nil
}

// Select makes the character whose ID or name is key active.
func (s *RosterStore) Select(key string) error {
	for i, c := range s.characters {
		if c.ID == key || c.Name == key {
			s.active = i
			return nil
		}
	}
	return fmt.Errorf("%q: %w", key, ErrNoCharacter)
}

// Add appends c to the roster and makes it active.
func (s *RosterStore) Add(c *character.Character) {
	s.characters = append(s.characters, c)
	s.active = len(s.characters) - 1
}

// Remove deletes the character at index, keeping the active index in range.
func (s *RosterStore) Remove(index int) error {
	if index < 0 || index >= len(s.characters) {
		return fmt.Errorf("index %d of %d: %w", index, len(s.characters), ErrNoCharacter)
	}
	s.characters = append(s.characters[:index:index], s.characters[index+1:]...)
	if s.active > index {
		s.active--
	}
	s.clamp()
	return nil
}

// Replace swaps in a whole roster, clamping the active index into range.
func (s *RosterStore) Replace(characters []*character.Character) {
	s.characters = characters
	s.clamp()
}

func (s *RosterStore) clamp() {
	if s.active >= len(s.characters) {
		s.active = len(s.characters) - 1
	}
	if s.active < 0 {
		s.active = 0
	}
}
