package passive

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/character"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/ruleset"
)

// ChangeRace switches c to race newRace.
//
// Every choice made under the old race is reverted and the old race's abilities
// are revoked. Each stat's racial change has the old race's static modifier
// replaced by the new race's, so choice-driven components made under other
// categories survive. A purse still at the old race's starting value is
// refilled, together with the inventory, from the new race's starter kit.
//
// Postcondition: On error, including an unknown newRace, the character is unchanged.
func (m *Manager) ChangeRace(c *character.Character, newRace string) error {
	next, err := m.provider.Race(newRace)
	if err != nil {
		m.logger.Warn("race not found", zap.String("race", newRace), zap.Error(err))
		return err
	}
	prev, err := m.provider.Race(c.Race)
	if err != nil {
		if !errors.Is(err, ruleset.ErrNotFound) {
			return err
		}
		m.logger.Warn("current race not found; assuming neutral modifiers",
			zap.String("race", c.Race),
		)
		prev = &ruleset.Race{ID: c.Race}
	}
	if prev.ID == next.ID {
		return nil
	}

	rules := m.provider.Rules()
	return m.mutate(c, func() error {
		m.revertCategory(c, prev.ID)
		for id, rec := range c.UniqueIdentifiers {
			if rec.Category == prev.ID {
				m.revoke(c, id)
			}
		}
		for name, rs := range c.RollStats {
			rs.RacialChange = rs.RacialChange - prev.Modifier(name) + next.Modifier(name)
		}
		for name, ds := range c.OtherStats {
			ds.RacialChange = ds.RacialChange - prev.Modifier(name) + next.Modifier(name)
		}
		c.Race = next.ID
		if err := m.sync(c); err != nil {
			return err
		}
		if c.Purse == starterPurse(rules, prev) {
			c.Purse = starterPurse(rules, next)
			c.Inventory = character.StarterInventory(next)
		}
		m.logger.Info("race changed",
			zap.String("character", c.Name),
			zap.String("from", prev.ID),
			zap.String("to", next.ID),
		)
		return nil
	})
}

func starterPurse(rules *ruleset.Rules, race *ruleset.Race) int {
	if race.StarterPurse != 0 {
		return race.StarterPurse
	}
	return rules.StartingPurse
}

// ChangeLevel sets c's level. Lowering it reverts choices that need a higher
// level. Full-auto abilities are re-synchronised with their level requirements
// and upgrades either way.
func (m *Manager) ChangeLevel(c *character.Character, level int) error {
	if level < 1 {
		return fmt.Errorf("level %d: must be at least 1", level)
	}
	return m.mutate(c, func() error {
		lowered := level < c.Level
		c.Level = level
		if lowered {
			m.revertAbove(c, level)
		}
		return m.sync(c)
	})
}

// ChangeClass switches c to class newClass, or clears the class when newClass is
// empty. Choices and abilities granted by the old class are removed.
func (m *Manager) ChangeClass(c *character.Character, newClass string) error {
	if newClass != "" {
		if _, err := m.provider.Class(newClass); err != nil {
			m.logger.Warn("class not found", zap.String("class", newClass), zap.Error(err))
			return err
		}
	}
	if newClass == c.Class {
		return nil
	}
	return m.mutate(c, func() error {
		if c.Class != "" {
			m.revertCategory(c, c.Class)
			for id, rec := range c.UniqueIdentifiers {
				if rec.Category == c.Class {
					m.revoke(c, id)
				}
			}
		}
		c.Class = newClass
		return m.sync(c)
	})
}
