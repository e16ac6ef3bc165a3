package passive

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/character"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/effect"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/ruleset"
)

// ApplyFullAutoPassive grants ability, as it stands at the character's level, to
// c under category. Effects it granted before are replaced, never duplicated.
//
// Postcondition: On error the character is unchanged.
func (m *Manager) ApplyFullAutoPassive(c *character.Character, category string, ability ruleset.Ability) error {
	return m.mutate(c, func() error {
		return m.grant(c, category, ability)
	})
}

// RemoveFullAutoPassive removes the held ability with identifier and every effect
// tagged with it. Removing an ability the character does not hold is a no-op.
func (m *Manager) RemoveFullAutoPassive(c *character.Character, identifier string) error {
	if _, ok := c.UniqueIdentifiers[identifier]; !ok {
		return nil
	}
	return m.mutate(c, func() error {
		m.revoke(c, identifier)
		return nil
	})
}

// SyncFullAutoPassives grants every race and class ability whose level requirement
// the character meets and revokes held ones it no longer meets.
func (m *Manager) SyncFullAutoPassives(c *character.Character) error {
	return m.mutate(c, func() error {
		return m.sync(c)
	})
}

func (m *Manager) sync(c *character.Character) error {
	for _, owner := range m.owners(c) {
		for _, a := range owner.abilities {
			if c.Level >= a.Level {
				if err := m.grant(c, owner.category, a); err != nil {
					return err
				}
				continue
			}
			if _, held := c.UniqueIdentifiers[a.Identifier]; held {
				m.revoke(c, a.Identifier)
			}
		}
	}
	return nil
}

type abilityOwner struct {
	category  string
	abilities []ruleset.Ability
}

func (m *Manager) owners(c *character.Character) []abilityOwner {
	var out []abilityOwner
	if race, err := m.provider.Race(c.Race); err == nil {
		out = append(out, abilityOwner{category: race.ID, abilities: race.Abilities})
	} else {
		m.logger.Warn("race not found", zap.String("race", c.Race), zap.Error(err))
	}
	if c.Class != "" {
		if class, err := m.provider.Class(c.Class); err == nil {
			out = append(out, abilityOwner{category: class.ID, abilities: class.Abilities})
		} else {
			m.logger.Warn("class not found", zap.String("class", c.Class), zap.Error(err))
		}
	}
	return out
}

// definition finds the ability with identifier among category's race or class abilities.
func (m *Manager) definition(category, identifier string) (ruleset.Ability, bool) {
	var abilities []ruleset.Ability
	if race, err := m.provider.Race(category); err == nil {
		abilities = race.Abilities
	} else if class, err := m.provider.Class(category); err == nil {
		abilities = class.Abilities
	}
	idx := slices.IndexFunc(abilities, func(a ruleset.Ability) bool { return a.Identifier == identifier })
	if idx < 0 {
		return ruleset.Ability{}, false
	}
	return abilities[idx], true
}

func (m *Manager) grant(c *character.Character, category string, ability ruleset.Ability) error {
	current := ability.AtLevel(c.Level)
	pushed, err := m.effectsFor(c, category, current)
	if err != nil {
		return fmt.Errorf("ability %q: %w", ability.Identifier, err)
	}

	removeTagged(c, ability.Identifier, touchedStats(ability))
	if prev, ok := c.UniqueIdentifiers[ability.Identifier]; ok {
		shiftBase(c, prev.Override, -1)
	}
	for _, target := range sortedKeys(pushed) {
		effects := c.EffectsOf(target)
		effects[category] = append(effects[category], pushed[target]...)
	}

	rec := character.AbilityRecord{
		Name:       current.Name,
		Identifier: current.Identifier,
		Category:   category,
	}
	if current.Override != nil {
		o := *current.Override
		rec.Override = &o
	}
	shiftBase(c, rec.Override, 1)
	c.UniqueIdentifiers[ability.Identifier] = rec
	m.logger.Debug("ability granted",
		zap.String("character", c.Name),
		zap.String("ability", ability.Identifier),
		zap.String("category", category),
	)
	return nil
}

func (m *Manager) revoke(c *character.Character, identifier string) {
	rec, ok := c.UniqueIdentifiers[identifier]
	if !ok {
		return
	}
	if def, found := m.definition(rec.Category, identifier); found {
		removeTagged(c, identifier, touchedStats(def))
	} else {
		m.logger.Warn("revoking ability without definition; scanning every stat",
			zap.String("ability", identifier),
			zap.String("category", rec.Category),
		)
		removeTagged(c, identifier, allStats(c))
	}
	shiftBase(c, rec.Override, -1)
	delete(c.UniqueIdentifiers, identifier)
	m.logger.Debug("ability revoked", zap.String("character", c.Name), zap.String("ability", identifier))
}

// effectsFor builds the infinite-duration effects the ability pushes, keyed by target stat.
func (m *Manager) effectsFor(c *character.Character, category string, a ruleset.Ability) (map[string][]character.Effect, error) {
	out := make(map[string][]character.Effect)
	for _, f := range a.Formulas {
		e := character.Effect{
			Type:       f.Type,
			AppliesTo:  f.AppliesTo,
			IsPercent:  f.Percent,
			Duration:   character.InfiniteDuration,
			Identifier: a.Identifier,
			Category:   category,
		}
		switch {
		case len(f.Operands) > 0:
			for _, o := range f.Operands {
				e.StatsAffected = append(e.StatsAffected, o.Stat)
				e.Types = append(e.Types, o.Op)
				e.Values = append(e.Values, o.Value)
			}
		case f.Expr != "":
			if m.eval == nil {
				return nil, errors.New("formula expression without an evaluator")
			}
			v, err := m.eval.Eval(f.Expr, map[string]float64{"level": float64(c.Level)})
			if err != nil {
				return nil, err
			}
			e.Values = []float64{v}
		default:
			e.Values = append([]float64(nil), f.Values...)
		}
		for _, target := range f.Targets {
			if c.EffectsOf(target) == nil {
				return nil, fmt.Errorf("target %q: %w", target, effect.ErrUnknownStat)
			}
			cp := e
			cp.StatsAffected = slices.Clone(e.StatsAffected)
			cp.Types = slices.Clone(e.Types)
			cp.Values = slices.Clone(e.Values)
			out[target] = append(out[target], cp)
		}
	}
	return out, nil
}

// shiftBase moves the static base of an overridden stat by Value-BaseScale in direction dir.
func shiftBase(c *character.Character, o *ruleset.Override, dir float64) {
	if o == nil || o.BaseScale == 0 {
		return
	}
	baseName, ok := ruleset.MaxBaseStat[o.Stat]
	if !ok {
		return
	}
	if base := c.Other(baseName); base != nil {
		base.Value += dir * (o.Value - o.BaseScale)
	}
}

// removeTagged deletes every effect tagged with identifier from the given stats
// and drops categories left empty.
func removeTagged(c *character.Character, identifier string, statNames []string) {
	for _, name := range statNames {
		effects := c.EffectsOf(name)
		for cat, list := range effects {
			kept := slices.DeleteFunc(list, func(e character.Effect) bool { return e.Identifier == identifier })
			if len(kept) == 0 {
				delete(effects, cat)
			} else {
				effects[cat] = kept
			}
		}
	}
}

// touchedStats returns the stats any version of the ability writes to.
func touchedStats(a ruleset.Ability) []string {
	out := a.Stats()
	for _, u := range a.Upgrades {
		for _, s := range (ruleset.Ability{Formulas: u.Formulas}).Stats() {
			if !slices.Contains(out, s) {
				out = append(out, s)
			}
		}
	}
	return out
}

func allStats(c *character.Character) []string {
	out := make([]string, 0, len(c.RollStats)+len(c.OtherStats))
	for name := range c.RollStats {
		out = append(out, name)
	}
	for name := range c.OtherStats {
		out = append(out, name)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
