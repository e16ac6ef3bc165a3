// Package passive manages player-chosen passive options and full-auto race and
// class abilities, keeping a character's choice bookkeeping consistent with the
// racial-change, counter and effect side effects it implies.
package passive

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/character"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/effect"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/ruleset"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/stats"
)

var (
	// ErrConflict is returned when another slot of the conflict group already claims the stat.
	ErrConflict = errors.New("passive: stat already claimed in conflict group")
	// ErrInvalidChoice is returned for a choice whose calc or value cannot be applied.
	ErrInvalidChoice = errors.New("passive: invalid choice")
	// ErrLevelTooLow is returned when an option requires a higher character level.
	ErrLevelTooLow = errors.New("passive: character level too low")
)

// FormulaEvaluator evaluates an ability formula expression with vars bound.
type FormulaEvaluator interface {
	Eval(expr string, vars map[string]float64) (float64, error)
}

// Manager applies and reverts passives. It holds no character state.
type Manager struct {
	provider ruleset.Provider
	calc     *stats.Calculator
	eval     FormulaEvaluator
	logger   *zap.Logger
}

// NewManager creates a Manager.
//
// Precondition: provider, calc and logger must be non-nil. eval may be nil when
// no ability uses expressions.
func NewManager(provider ruleset.Provider, calc *stats.Calculator, eval FormulaEvaluator, logger *zap.Logger) *Manager {
	return &Manager{provider: provider, calc: calc, eval: eval, logger: logger}
}

// mutate runs fn followed by a derived-stat recalculation. If either fails the
// character is restored to its state before the call.
func (m *Manager) mutate(c *character.Character, fn func() error) error {
	backup := c.Clone()
	if err := fn(); err != nil {
		c.Restore(backup)
		return err
	}
	if err := m.calc.RecalcDerived(c); err != nil {
		c.Restore(backup)
		return err
	}
	return nil
}

// HasConflict reports whether a slot other than slot in (category, group) already
// has stat selected.
func (m *Manager) HasConflict(c *character.Character, category, group, stat, slot string) bool {
	for other := range c.StatsAffected.Slots(category, group, stat) {
		if other != slot {
			return true
		}
	}
	return false
}

// SetChoice replaces whatever occupies slot with choice, or clears the slot when
// choice is nil.
//
// Postcondition: On ErrConflict or any other error the character is unchanged.
func (m *Manager) SetChoice(c *character.Character, category, group, slot string, choice *character.Choice) error {
	if choice != nil {
		if err := m.validateChoice(c, choice); err != nil {
			return err
		}
		if choice.StatName != "" && m.HasConflict(c, category, group, choice.StatName, slot) {
			return fmt.Errorf("%s/%s %q: %w", category, group, choice.StatName, ErrConflict)
		}
	}
	return m.mutate(c, func() error {
		m.revertSlot(c, category, group, slot)
		if choice == nil {
			return nil
		}
		m.applyChoice(c, *choice, 1)
		if choice.StatName != "" {
			c.StatsAffected.AddSlot(category, group, choice.StatName, slot)
		}
		storeChoice(c, category, group, slot, *choice)
		m.logger.Debug("passive choice set",
			zap.String("character", c.Name),
			zap.String("category", category),
			zap.String("group", group),
			zap.String("slot", slot),
			zap.String("stat", choice.StatName),
		)
		return nil
	})
}

// Choose looks up option optionType offered to category (a race or class id) and
// sets it in slot against stat. The option's conflict group becomes the choice's group.
func (m *Manager) Choose(c *character.Character, category, optionType, slot, stat string) error {
	options, err := m.optionsOf(category)
	if err != nil {
		return err
	}
	idx := slices.IndexFunc(options, func(o ruleset.Option) bool { return o.Type == optionType })
	if idx < 0 {
		return fmt.Errorf("%s option %q: %w", category, optionType, ruleset.ErrNotFound)
	}
	opt := options[idx]
	if opt.Level != nil && c.Level < *opt.Level {
		return fmt.Errorf("%s option %q needs level %d: %w", category, optionType, *opt.Level, ErrLevelTooLow)
	}
	if !slices.Contains(opt.ApplicableStats, stat) {
		return fmt.Errorf("%s option %q does not apply to %q: %w", category, optionType, stat, ErrInvalidChoice)
	}
	group := opt.Unique
	if group == "" {
		group = opt.Type
	}
	choice := ChoiceFromOption(opt, stat)
	return m.SetChoice(c, category, group, slot, &choice)
}

// ChoiceFromOption builds the choice a player makes by picking opt for stat.
func ChoiceFromOption(opt ruleset.Option, stat string) character.Choice {
	ch := character.Choice{
		Type:     opt.Type,
		Calc:     opt.Calc,
		StatName: stat,
		Label:    opt.Label,
		Unique:   opt.Unique,
	}
	if opt.Value != nil {
		v := *opt.Value
		ch.Value = &v
	}
	if opt.Level != nil {
		l := *opt.Level
		ch.Level = &l
	}
	return ch
}

func (m *Manager) optionsOf(category string) ([]ruleset.Option, error) {
	if race, err := m.provider.Race(category); err == nil {
		return race.Options, nil
	}
	class, err := m.provider.Class(category)
	if err != nil {
		m.logger.Warn("passive category not found", zap.String("category", category))
		return nil, fmt.Errorf("category %q: %w", category, ruleset.ErrNotFound)
	}
	return class.Options, nil
}

func (m *Manager) validateChoice(c *character.Character, ch *character.Choice) error {
	if !ch.Calc.Valid() {
		return fmt.Errorf("calc %q: %w", ch.Calc, ErrInvalidChoice)
	}
	if ch.StatName == "" {
		return nil
	}
	if _, ok := c.RacialChangeRef(ch.StatName); !ok {
		return fmt.Errorf("choice stat %q: %w", ch.StatName, effect.ErrUnknownStat)
	}
	switch ch.Calc {
	case ruleset.CalcAdd:
		if ch.Value == nil {
			return fmt.Errorf("add choice without value: %w", ErrInvalidChoice)
		}
	case ruleset.CalcMult:
		if ch.Value == nil || *ch.Value == 0 {
			return fmt.Errorf("mult choice needs a non-zero value: %w", ErrInvalidChoice)
		}
	}
	return nil
}

// applyChoice applies (dir = 1) or reverses (dir = -1) a choice's numeric effect.
func (m *Manager) applyChoice(c *character.Character, ch character.Choice, dir int) {
	if ch.StatName == "" {
		return
	}
	switch ch.Calc {
	case ruleset.CalcCount:
		c.Counters[ch.StatName] += dir
		if c.Counters[ch.StatName] == 0 {
			delete(c.Counters, ch.StatName)
		}
	case ruleset.CalcAdd:
		if rc, ok := c.RacialChangeRef(ch.StatName); ok && ch.Value != nil {
			if dir > 0 {
				*rc += *ch.Value
			} else {
				*rc -= *ch.Value
			}
		}
	case ruleset.CalcMult:
		if rc, ok := c.RacialChangeRef(ch.StatName); ok && ch.Value != nil && *ch.Value != 0 {
			if dir > 0 {
				*rc *= *ch.Value
			} else {
				*rc /= *ch.Value
			}
		}
	}
}

// revertSlot undoes and removes the choice in slot, pruning empty maps.
func (m *Manager) revertSlot(c *character.Character, category, group, slot string) {
	prev, ok := c.StatChoices[category][group][slot]
	if !ok {
		return
	}
	m.applyChoice(c, prev, -1)
	if prev.StatName != "" {
		c.StatsAffected.RemoveSlot(category, group, prev.StatName, slot)
	}
	delete(c.StatChoices[category][group], slot)
	if len(c.StatChoices[category][group]) == 0 {
		delete(c.StatChoices[category], group)
	}
	if len(c.StatChoices[category]) == 0 {
		delete(c.StatChoices, category)
	}
}

func storeChoice(c *character.Character, category, group, slot string, ch character.Choice) {
	groups, ok := c.StatChoices[category]
	if !ok {
		groups = make(map[string]map[string]character.Choice)
		c.StatChoices[category] = groups
	}
	slots, ok := groups[group]
	if !ok {
		slots = make(map[string]character.Choice)
		groups[group] = slots
	}
	slots[slot] = ch
}

// RevertChoicesBelowLevel reverts every choice whose level requirement exceeds
// the character's level.
func (m *Manager) RevertChoicesBelowLevel(c *character.Character) error {
	return m.mutate(c, func() error {
		m.revertAbove(c, c.Level)
		return nil
	})
}

func (m *Manager) revertAbove(c *character.Character, level int) {
	type slotRef struct{ category, group, slot string }
	var stale []slotRef
	for cat, groups := range c.StatChoices {
		for group, slots := range groups {
			for slot, ch := range slots {
				if ch.Level != nil && *ch.Level > level {
					stale = append(stale, slotRef{cat, group, slot})
				}
			}
		}
	}
	for _, ref := range stale {
		m.revertSlot(c, ref.category, ref.group, ref.slot)
		m.logger.Info("passive choice reverted below level",
			zap.String("character", c.Name),
			zap.String("category", ref.category),
			zap.String("slot", ref.slot),
			zap.Int("level", level),
		)
	}
}

// revertCategory reverts every choice stored under category and drops the category.
func (m *Manager) revertCategory(c *character.Character, category string) {
	for group, slots := range c.StatChoices[category] {
		for slot := range slots {
			m.revertSlot(c, category, group, slot)
		}
	}
	delete(c.StatChoices, category)
	delete(c.StatsAffected, category)
}
