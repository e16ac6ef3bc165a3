package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrRosterNotFound is returned when a roster lookup yields no results.
var ErrRosterNotFound = errors.New("roster not found")

// RosterRecord is one stored roster document.
type RosterRecord struct {
	ID        string
	Name      string
	Data      []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RosterRepository persists serialized rosters as JSONB documents.
type RosterRepository struct {
	db *pgxpool.Pool
}

// NewRosterRepository creates a RosterRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewRosterRepository(db *pgxpool.Pool) *RosterRepository {
	return &RosterRepository{db: db}
}

// Save inserts or replaces the roster stored under id.
//
// Precondition: id must be non-empty; data must be a valid JSON document.
// Postcondition: The stored document equals data and updated_at is advanced.
func (r *RosterRepository) Save(ctx context.Context, id, name string, data []byte) error {
	if id == "" {
		return errors.New("saving roster: id must not be empty")
	}
	if !json.Valid(data) {
		return errors.New("saving roster: data is not valid JSON")
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO rosters (id, name, data)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, data = EXCLUDED.data, updated_at = NOW()`,
		id, name, string(data),
	)
	if err != nil {
		return fmt.Errorf("saving roster %q: %w", id, err)
	}
	return nil
}

// Load returns the roster stored under id.
//
// Postcondition: Returns ErrRosterNotFound when no row matches.
func (r *RosterRepository) Load(ctx context.Context, id string) (*RosterRecord, error) {
	var (
		rec  RosterRecord
		data string
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, name, data::text, created_at, updated_at
		FROM rosters WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.Name, &data, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRosterNotFound
		}
		return nil, fmt.Errorf("loading roster %q: %w", id, err)
	}
	rec.Data = []byte(data)
	return &rec, nil
}

// List returns every stored roster without its document, most recently updated first.
func (r *RosterRepository) List(ctx context.Context) ([]*RosterRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, created_at, updated_at
		FROM rosters ORDER BY updated_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing rosters: %w", err)
	}
	defer rows.Close()

	var out []*RosterRecord
	for rows.Next() {
		var rec RosterRecord
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning roster: %w", err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// Delete removes the roster stored under id.
//
// Postcondition: Returns ErrRosterNotFound when no row matched.
func (r *RosterRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM rosters WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting roster %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRosterNotFound
	}
	return nil
}
