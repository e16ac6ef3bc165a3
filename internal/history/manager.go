package history

import (
	"bytes"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/character"
)

var (
	// ErrNothingToUndo is returned by Undo at the oldest snapshot.
	ErrNothingToUndo = errors.New("history: nothing to undo")
	// ErrNothingToRedo is returned by Redo at the newest snapshot.
	ErrNothingToRedo = errors.New("history: nothing to redo")
)

// DefaultCapacity is the number of snapshots kept when none is configured.
const DefaultCapacity = 10

// RosterCodec serializes whole rosters.
type RosterCodec interface {
	EncodeRoster(roster []*character.Character) ([]byte, error)
	DecodeRoster(data []byte) ([]*character.Character, error)
}

// Deriver recomputes the values a snapshot does not carry.
type Deriver interface {
	Derive(c *character.Character) error
}

// Factory creates the default character used when a roster would be empty.
type Factory func() (*character.Character, error)

// Manager is a bounded stack of serialized roster snapshots with a pointer to
// the current one. Snapshots are immutable byte slices; a materialized roster
// never aliases them.
type Manager struct {
	entries  [][]byte
	pointer  int
	capacity int

	codec        RosterCodec
	deriver      Deriver
	newCharacter Factory
	logger       *zap.Logger
}

// NewManager creates an empty Manager.
//
// Precondition: codec, deriver, newCharacter and logger must be non-nil.
// capacity <= 0 uses DefaultCapacity.
func NewManager(capacity int, codec RosterCodec, deriver Deriver, newCharacter Factory, logger *zap.Logger) *Manager {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Manager{
		pointer:      -1,
		capacity:     capacity,
		codec:        codec,
		deriver:      deriver,
		newCharacter: newCharacter,
		logger:       logger,
	}
}

// Len returns the number of snapshots held.
func (m *Manager) Len() int { return len(m.entries) }

// CanUndo reports whether an older snapshot exists.
func (m *Manager) CanUndo() bool { return m.pointer > 0 }

// CanRedo reports whether a newer snapshot exists.
func (m *Manager) CanRedo() bool { return m.pointer >= 0 && m.pointer < len(m.entries)-1 }

// Snapshot records the store's roster. Recording a roster identical to the
// current snapshot is a no-op. Recording after an undo discards the redo branch;
// beyond capacity the oldest snapshot is evicted.
//
// Postcondition: Returns true when a new snapshot was pushed.
func (m *Manager) Snapshot(store *RosterStore) (bool, error) {
	data, err := m.codec.EncodeRoster(store.Characters())
	if err != nil {
		return false, fmt.Errorf("snapshot: %w", err)
	}
	if m.pointer >= 0 && bytes.Equal(m.entries[m.pointer], data) {
		return false, nil
	}
	m.entries = append(m.entries[:m.pointer+1], data)
	if len(m.entries) > m.capacity {
		m.entries = append([][]byte(nil), m.entries[len(m.entries)-m.capacity:]...)
	}
	m.pointer = len(m.entries) - 1
	m.logger.Debug("snapshot pushed", zap.Int("entries", len(m.entries)))
	return true, nil
}

// Undo moves to the previous snapshot and loads it into store.
//
// Postcondition: Returns ErrNothingToUndo, leaving everything unchanged, at the oldest snapshot.
func (m *Manager) Undo(store *RosterStore) error {
	if !m.CanUndo() {
		return ErrNothingToUndo
	}
	return m.moveTo(store, m.pointer-1)
}

// Redo moves to the next snapshot and loads it into store.
//
// Postcondition: Returns ErrNothingToRedo, leaving everything unchanged, at the newest snapshot.
func (m *Manager) Redo(store *RosterStore) error {
	if !m.CanRedo() {
		return ErrNothingToRedo
	}
	return m.moveTo(store, m.pointer+1)
}

func (m *Manager) moveTo(store *RosterStore, pointer int) error {
	roster, err := m.materialize(m.entries[pointer])
	if err != nil {
		return err
	}
	m.pointer = pointer
	store.Replace(roster)
	return nil
}

// materialize decodes a snapshot into a fresh roster with derived values restored.
func (m *Manager) materialize(data []byte) ([]*character.Character, error) {
	roster, err := m.codec.DecodeRoster(data)
	if err != nil {
		return nil, fmt.Errorf("materializing snapshot: %w", err)
	}
	if len(roster) == 0 {
		c, err := m.newCharacter()
		if err != nil {
			return nil, fmt.Errorf("creating default character: %w", err)
		}
		m.logger.Info("snapshot roster empty; created default character")
		roster = append(roster, c)
	}
	for _, c := range roster {
		if err := m.deriver.Derive(c); err != nil {
			return nil, fmt.Errorf("materializing %s: %w", c.Name, err)
		}
	}
	return roster, nil
}

// Entries returns copies of the held snapshots, oldest first, and the index of
// the current one (-1 when empty).
func (m *Manager) Entries() ([][]byte, int) {
	out := make([][]byte, len(m.entries))
	for i, e := range m.entries {
		out[i] = bytes.Clone(e)
	}
	return out, m.pointer
}

// Resume replaces the stack with entries saved by Entries. Entries beyond
// capacity are dropped from the oldest end and the pointer follows them.
//
// Precondition: pointer must index entries, or be -1 when entries is empty.
func (m *Manager) Resume(entries [][]byte, pointer int) error {
	if len(entries) == 0 {
		if pointer != -1 {
			return fmt.Errorf("resuming history: pointer %d into empty history", pointer)
		}
		m.entries, m.pointer = nil, -1
		return nil
	}
	if pointer < 0 || pointer >= len(entries) {
		return fmt.Errorf("resuming history: pointer %d out of range [0, %d)", pointer, len(entries))
	}
	if drop := len(entries) - m.capacity; drop > 0 {
		entries = entries[drop:]
		pointer = max(pointer-drop, 0)
	}
	m.entries = make([][]byte, len(entries))
	for i, e := range entries {
		m.entries[i] = bytes.Clone(e)
	}
	m.pointer = pointer
	return nil
}
