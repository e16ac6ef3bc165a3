package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"

	"github.com/Novatruepower/NazaraxSheet-sub000/internal/config"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/persist"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/storage/postgres"
)

// session is the stored document: the roster, the active index and the undo stack.
type session struct {
	Active  int             `json:"active"`
	Roster  json.RawMessage `json:"roster"`
	History *sessionHistory `json:"history,omitempty"`
}

type sessionHistory struct {
	Pointer int               `json:"pointer"`
	Entries []json.RawMessage `json:"entries"`
}

func (s session) historyEntries() ([][]byte, int) {
	if s.History == nil {
		return nil, -1
	}
	out := make([][]byte, len(s.History.Entries))
	for i, e := range s.History.Entries {
		out[i] = e
	}
	return out, s.History.Pointer
}

// decodeSession accepts a session document or a bare roster array. Empty data
// is an empty session.
func decodeSession(data []byte) (session, error) {
	if len(data) == 0 {
		return session{}, nil
	}
	if !gjson.ValidBytes(data) {
		return session{}, fmt.Errorf("%w: session is not valid JSON", persist.ErrMalformed)
	}
	doc := gjson.ParseBytes(data)
	if doc.IsArray() {
		return session{Roster: data}, nil
	}
	var s session
	if err := json.Unmarshal(data, &s); err != nil {
		return session{}, fmt.Errorf("%w: %v", persist.ErrMalformed, err)
	}
	return s, nil
}

func encodeSession(s session, entries [][]byte, pointer int) ([]byte, error) {
	if len(entries) > 0 {
		s.History = &sessionHistory{Pointer: pointer, Entries: make([]json.RawMessage, len(entries))}
		for i, e := range entries {
			s.History.Entries[i] = e
		}
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding session: %w", err)
	}
	return data, nil
}

// rosterSource reads and writes the stored session document.
type rosterSource interface {
	// Read returns the stored document, or nil when nothing is stored yet.
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close()
}

type fileSource struct {
	path string
}

func (f fileSource) Read(context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.path, err)
	}
	return data, nil
}

// Write replaces the file through a temporary sibling so a failed write keeps the old roster.
func (f fileSource) Write(_ context.Context, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("writing %s: %w", f.path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", f.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", f.path, err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("writing %s: %w", f.path, err)
	}
	return nil
}

func (fileSource) Close() {}

type postgresSource struct {
	pool *postgres.Pool
	repo *postgres.RosterRepository
	id   string
}

func openPostgresSource(ctx context.Context, cfg config.DatabaseConfig, id string) (*postgresSource, error) {
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return &postgresSource{pool: pool, repo: postgres.NewRosterRepository(pool.DB()), id: id}, nil
}

func (p *postgresSource) Read(ctx context.Context) ([]byte, error) {
	rec, err := p.repo.Load(ctx, p.id)
	if errors.Is(err, postgres.ErrRosterNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec.Data, nil
}

func (p *postgresSource) Write(ctx context.Context, data []byte) error {
	return p.repo.Save(ctx, p.id, p.id, data)
}

func (p *postgresSource) Close() { p.pool.Close() }
