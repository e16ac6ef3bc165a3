package character

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/dice"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/ruleset"
)

// New constructs a level 1 character of race with default stats.
//
// Roll stats start at rules.DefaultRollBase and every stat's racial change at the
// race's static modifier. Resources start at zero; the first derived-stat
// recalculation raises them to their ceiling.
//
// Precondition: rules must be indexed; race must not be nil.
// Postcondition: Returns a Character with a fresh ID, or a non-nil error.
func New(name string, rules *ruleset.Rules, race *ruleset.Race) (*Character, error) {
	if rules == nil {
		return nil, errors.New("rules must not be nil")
	}
	if race == nil {
		return nil, errors.New("race must not be nil")
	}

	c := &Character{
		ID:                uuid.NewString(),
		Name:              name,
		Race:              race.ID,
		Level:             1,
		Purse:             race.StarterPurse,
		RollStats:         make(map[string]*RollStat, len(rules.RollStats)),
		OtherStats:        make(map[string]*DerivedStat, len(rules.OtherStats)),
		UniqueIdentifiers: make(map[string]AbilityRecord),
		StatChoices:       make(Choices),
		StatsAffected:     make(Affected),
		Counters:          make(map[string]int),
		States:            make(map[string]bool),
		Extras:            make(map[string]any),
	}
	if c.Purse == 0 {
		c.Purse = rules.StartingPurse
	}
	for _, s := range rules.RollStats {
		c.RollStats[s] = &RollStat{
			BaseValue:        rules.DefaultRollBase,
			RacialChange:     race.Modifier(s),
			MaxExperience:    rules.RollMaxExperience,
			TemporaryEffects: make(Effects),
		}
	}
	for _, s := range rules.OtherStats {
		c.OtherStats[s] = &DerivedStat{
			Value:            rules.OtherDefaults[s],
			RacialChange:     race.Modifier(s),
			TemporaryEffects: make(Effects),
		}
	}
	c.Inventory = StarterInventory(race)
	c.LevelMaxExperience = rules.LevelMaxExperience(c.Level)
	return c, nil
}

// StarterInventory converts a race's starter-item table into inventory entries.
func StarterInventory(race *ruleset.Race) []Item {
	items := make([]Item, 0, len(race.StarterItems))
	for _, si := range race.StarterItems {
		items = append(items, Item{
			Name:     si.Name,
			Quantity: si.Quantity,
			Defense:  si.Defense,
			Equipped: si.Equipped,
		})
	}
	return items
}

// Roller rolls a dice expression.
type Roller interface {
	RollExpr(expr string) (dice.RollResult, error)
}

// RollStats rerolls the base value of every roll stat with the ruleset's dice expression.
//
// Precondition: roller must not be nil.
// Postcondition: Every roll stat listed by rules has a freshly rolled BaseValue, or
// no stat is changed and a non-nil error is returned.
func RollStats(c *Character, rules *ruleset.Rules, roller Roller) error {
	rolled := make(map[string]int, len(rules.RollStats))
	for _, s := range rules.RollStats {
		res, err := roller.RollExpr(rules.RollDice)
		if err != nil {
			return fmt.Errorf("rolling %s: %w", s, err)
		}
		rolled[s] = res.Total()
	}
	for s, v := range rolled {
		if rs, ok := c.RollStats[s]; ok {
			rs.BaseValue = v
		}
	}
	return nil
}
