package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Novatruepower/NazaraxSheet-sub000/internal/config"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/character"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/dice"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/passive"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/ruleset"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/stats"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/turn"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/history"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/observability"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/persist"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/scripting"
)

var errNoActive = errors.New("roster is empty; create a character with 'sheet new'")

// app is the wired engine plus the roster it is editing.
type app struct {
	logger   *zap.Logger
	registry *ruleset.Registry
	calc     *stats.Calculator
	passives *passive.Manager
	turns    *turn.Processor
	codec    *persist.Codec
	roller   *dice.Roller
	history  *history.Manager
	store    *history.RosterStore
	source   rosterSource
}

// openApp loads configuration, the ruleset and the roster named by opts.
//
// Postcondition: Returns a ready app whose close method must be called, or a non-nil error.
func openApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	registry, err := ruleset.LoadDirectory(cfg.Ruleset.Dir)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("loading ruleset: %w", err)
	}
	logger.Debug("ruleset loaded", zap.Strings("races", registry.RaceIDs()))

	a := &app{
		logger:   logger,
		registry: registry,
		calc:     stats.NewCalculator(registry.Rules()),
		roller:   dice.NewLoggedRoller(dice.NewCryptoSource(), logger),
	}
	a.passives = passive.NewManager(registry, a.calc, scripting.NewEvaluator(cfg.Scripting.InstructionLimit, logger), logger)
	a.turns = turn.NewProcessor(a.calc, logger)
	a.codec = persist.NewCodec(registry.Rules(), a.blankCharacter, logger)
	a.history = history.NewManager(cfg.History.Capacity, a.codec, a.calc, a.defaultCharacter, logger)

	source, err := openSource(ctx, cfg, opts)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	a.source = source
	if err := a.load(ctx); err != nil {
		a.close()
		return nil, err
	}
	if opts.character != "" {
		if err := a.store.Select(opts.character); err != nil {
			a.close()
			return nil, err
		}
	}
	return a, nil
}

// openSource returns the roster file, or the Postgres roster when opts names one.
//
// Postcondition: The source is nil exactly when err is non-nil.
func openSource(ctx context.Context, cfg config.Config, opts *rootOptions) (rosterSource, error) {
	if opts.rosterID == "" {
		return fileSource{path: opts.file}, nil
	}
	src, err := openPostgresSource(ctx, cfg.Database, opts.rosterID)
	if err != nil {
		return nil, err
	}
	return src, nil
}

func (a *app) close() {
	if a.source != nil {
		a.source.Close()
	}
	_ = a.logger.Sync()
}

// blankCharacter is the default that persisted fields are overlaid on.
func (a *app) blankCharacter() (*character.Character, error) {
	race, err := a.registry.Race(a.registry.Rules().DefaultRace)
	if err != nil {
		return nil, err
	}
	return character.New("New character", a.registry.Rules(), race)
}

// defaultCharacter is a fully derived character of the default race.
func (a *app) defaultCharacter() (*character.Character, error) {
	return a.createCharacter("New character", a.registry.Rules().DefaultRace, "", false)
}

func (a *app) createCharacter(name, raceID, class string, roll bool) (*character.Character, error) {
	race, err := a.registry.Race(raceID)
	if err != nil {
		return nil, err
	}
	c, err := character.New(name, a.registry.Rules(), race)
	if err != nil {
		return nil, err
	}
	if roll {
		if err := character.RollStats(c, a.registry.Rules(), a.roller); err != nil {
			return nil, err
		}
	}
	if err := a.passives.SyncFullAutoPassives(c); err != nil {
		return nil, err
	}
	if class != "" {
		if err := a.passives.ChangeClass(c, class); err != nil {
			return nil, err
		}
	}
	return c, a.calc.RecalcDerived(c)
}

func (a *app) load(ctx context.Context) error {
	data, err := a.source.Read(ctx)
	if err != nil {
		return err
	}
	sess, err := decodeSession(data)
	if err != nil {
		return err
	}
	roster := []*character.Character{}
	if len(sess.Roster) > 0 {
		if roster, err = a.codec.DecodeRoster(sess.Roster); err != nil {
			return err
		}
	}
	for _, c := range roster {
		if err := a.calc.Derive(c); err != nil {
			return fmt.Errorf("deriving %s: %w", c.Name, err)
		}
	}
	a.store = history.NewRosterStore(roster...)
	if len(roster) > 0 {
		if err := a.store.SetActive(sess.Active); err != nil {
			a.logger.Warn("stored active index out of range", zap.Int("active", sess.Active))
		}
	}
	entries, pointer := sess.historyEntries()
	if err := a.history.Resume(entries, pointer); err != nil {
		a.logger.Warn("discarding unusable history", zap.Error(err))
		_ = a.history.Resume(nil, -1)
	}
	return nil
}

func (a *app) save(ctx context.Context) error {
	roster, err := a.codec.EncodeRoster(a.store.Characters())
	if err != nil {
		return err
	}
	entries, pointer := a.history.Entries()
	data, err := encodeSession(session{
		Active: a.store.ActiveIndex(),
		Roster: roster,
	}, entries, pointer)
	if err != nil {
		return err
	}
	return a.source.Write(ctx, data)
}

// record snapshots the roster, runs fn, snapshots again and saves. The first
// snapshot is a no-op unless the roster changed outside the history.
func (a *app) record(ctx context.Context, fn func() error) error {
	if _, err := a.history.Snapshot(a.store); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	if _, err := a.history.Snapshot(a.store); err != nil {
		return err
	}
	return a.save(ctx)
}

// edit runs fn against the active character inside record.
func (a *app) edit(ctx context.Context, fn func(c *character.Character) error) error {
	c := a.store.ActiveCharacter()
	if c == nil {
		return errNoActive
	}
	return a.record(ctx, func() error { return fn(c) })
}
